package language

import "testing"

func TestCanonical(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"english", "English", true},
		{"English", "English", true},
		{"en", "English", true},
		{"eng", "English", true},
		{"cze", "Czech", true},
		{"czech", "Czech", true},
		{"fre", "French", true},
		{"fra", "French", true},
		{"Slovenian", "Slovenian", true}, // uncatalogued single word passes through
		{"", "", false},
		{"not a language", "", false},
		{"xx1", "", false},
		{"en-US or so", "", false},
	}
	for _, tc := range cases {
		got, ok := Canonical(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("Canonical(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestIsKnown(t *testing.T) {
	if !IsKnown("chi") {
		t.Fatal("alternate ISO code should be known")
	}
	if IsKnown("klingon") {
		t.Fatal("klingon should not be catalogued")
	}
}
