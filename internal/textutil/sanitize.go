package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// reservedReplacer drops characters that are illegal in path components on
// common filesystems. Slashes, backslashes, and colons become dashes so
// adjacent words stay readable; the rest are removed outright.
var reservedReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeComponent converts an arbitrary metadata string into a safe path
// component. Unicode letters are preserved; reserved characters, control
// runes, and trailing dots/spaces are stripped. The input is NFC-normalized
// first so visually identical names map to identical components.
func SanitizeComponent(value string) string {
	value = norm.NFC.String(strings.TrimSpace(value))
	if value == "" {
		return ""
	}
	value = reservedReplacer.Replace(value)

	var b strings.Builder
	b.Grow(len(value))
	lastSpace := false
	for _, r := range value {
		if unicode.IsControl(r) {
			continue
		}
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		lastSpace = false
		b.WriteRune(r)
	}

	return strings.TrimRight(strings.TrimSpace(b.String()), ". ")
}

// TruncateRunes caps a string at maxRunes runes, trimming any trailing
// whitespace or dots left by the cut.
func TruncateRunes(value string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(value)
	if len(runes) <= maxRunes {
		return value
	}
	return strings.TrimRight(string(runes[:maxRunes]), ". ")
}
