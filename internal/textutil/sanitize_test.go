package textutil

import "testing"

func TestSanitizeComponent(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Isaac Asimov", "Isaac Asimov"},
		{"reserved", `What? A "Title": Yes/No`, "What A Title- Yes-No"},
		{"trailing dots", "J. R. R. Tolkien...", "J. R. R. Tolkien"},
		{"control runes", "Karel\x00\x1fČapek", "KarelČapek"},
		{"unicode preserved", "Haruki Murakami 村上春樹", "Haruki Murakami 村上春樹"},
		{"whitespace collapsed", "  War \t and\n Peace  ", "War and Peace"},
		{"empty", "   ", ""},
		{"only reserved", `***???`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeComponent(tc.in); got != tc.want {
				t.Fatalf("SanitizeComponent(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestSanitizeComponentNormalizesUnicode(t *testing.T) {
	// "é" composed vs decomposed should collapse to the same component.
	composed := "Eríc"
	decomposed := "Eríc"
	if SanitizeComponent(composed) != SanitizeComponent(decomposed) {
		t.Fatal("expected NFC normalization to unify equivalent strings")
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := TruncateRunes("abcdef", 4); got != "abcd" {
		t.Fatalf("got %q", got)
	}
	if got := TruncateRunes("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
	if got := TruncateRunes("日本語のタイトル", 3); got != "日本語" {
		t.Fatalf("multibyte truncation got %q", got)
	}
	if got := TruncateRunes("abc. ", 4); got != "abc" {
		t.Fatalf("trailing trim got %q", got)
	}
	if got := TruncateRunes("abc", 0); got != "" {
		t.Fatalf("zero budget got %q", got)
	}
}
