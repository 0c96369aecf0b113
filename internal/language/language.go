package language

import (
	"strings"
	"unicode"
)

type entry struct {
	code2   string   // ISO 639-1 (2-letter)
	code3   string   // ISO 639-2 primary (3-letter)
	alt3    string   // ISO 639-2 alternate (e.g. "fre" vs "fra")
	display string   // Human-readable name
	words   []string // Full word forms (e.g. "english")
}

var languages = []entry{
	{"en", "eng", "", "English", []string{"english"}},
	{"cs", "ces", "cze", "Czech", []string{"czech"}},
	{"sk", "slk", "slo", "Slovak", []string{"slovak"}},
	{"es", "spa", "", "Spanish", []string{"spanish"}},
	{"fr", "fra", "fre", "French", []string{"french"}},
	{"de", "deu", "ger", "German", []string{"german"}},
	{"it", "ita", "", "Italian", []string{"italian"}},
	{"pt", "por", "", "Portuguese", []string{"portuguese"}},
	{"ja", "jpn", "", "Japanese", []string{"japanese"}},
	{"ko", "kor", "", "Korean", []string{"korean"}},
	{"zh", "zho", "chi", "Chinese", []string{"chinese"}},
	{"ru", "rus", "", "Russian", []string{"russian"}},
	{"uk", "ukr", "", "Ukrainian", []string{"ukrainian"}},
	{"pl", "pol", "", "Polish", []string{"polish"}},
	{"hu", "hun", "", "Hungarian", []string{"hungarian"}},
	{"nl", "nld", "dut", "Dutch", []string{"dutch"}},
	{"sv", "swe", "", "Swedish", []string{"swedish"}},
	{"da", "dan", "", "Danish", []string{"danish"}},
	{"no", "nor", "", "Norwegian", []string{"norwegian"}},
	{"fi", "fin", "", "Finnish", []string{"finnish"}},
	{"ar", "ara", "", "Arabic", []string{"arabic"}},
	{"hi", "hin", "", "Hindi", []string{"hindi"}},
	{"la", "lat", "", "Latin", []string{"latin"}},
}

// Index maps built at init time.
var (
	byCode2 map[string]*entry
	byCode3 map[string]*entry
	byWord  map[string]*entry
)

func init() {
	byCode2 = make(map[string]*entry, len(languages))
	byCode3 = make(map[string]*entry, len(languages)*2)
	byWord = make(map[string]*entry, len(languages))
	for i := range languages {
		e := &languages[i]
		byCode2[e.code2] = e
		byCode3[e.code3] = e
		if e.alt3 != "" {
			byCode3[e.alt3] = e
		}
		for _, w := range e.words {
			byWord[w] = e
		}
	}
}

func lookup(value string) *entry {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return nil
	}
	if e, ok := byWord[value]; ok {
		return e
	}
	if e, ok := byCode2[value]; ok {
		return e
	}
	if e, ok := byCode3[value]; ok {
		return e
	}
	return nil
}

// Canonical converts a language word or ISO code into the display name used
// in library filenames ("en", "eng", and "english" all map to "English").
// Unrecognized single alphabetic words pass through title-cased so rarer
// languages survive; anything else is rejected.
func Canonical(value string) (string, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", false
	}
	if e := lookup(trimmed); e != nil {
		return e.display, true
	}
	if !isSingleWord(trimmed) {
		return "", false
	}
	return titleCase(trimmed), true
}

// IsKnown reports whether the value maps to a catalogued language.
func IsKnown(value string) bool {
	return lookup(value) != nil
}

func isSingleWord(value string) bool {
	if strings.ContainsAny(value, " \t\n") {
		return false
	}
	count := 0
	for _, r := range value {
		if !unicode.IsLetter(r) {
			return false
		}
		count++
	}
	return count >= 3
}

func titleCase(value string) string {
	lower := strings.ToLower(value)
	r := []rune(lower)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
