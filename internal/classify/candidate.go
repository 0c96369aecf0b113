package classify

import (
	"fmt"
	"strings"

	"bindery/internal/language"
)

// Sentinels the inference model may use when the snippet genuinely does not
// identify a field. Both at once means the model learned nothing useful.
const (
	UnknownAuthor = "unknown_author"
	UnknownTitle  = "unknown_title"
)

// Candidate is one complete inference result. Candidates are replaced
// wholesale on re-inference, never patched field by field.
type Candidate struct {
	Author   string
	Title    string
	Language string
}

func (c Candidate) String() string {
	return fmt.Sprintf("%s / %s (%s)", c.Author, c.Title, c.Language)
}

// Placeholder tokens the model is forbidden to echo back. Matched
// case-insensitively against the whole trimmed field.
var forbiddenTokens = map[string]struct{}{
	"author":    {},
	"title":     {},
	"book":      {},
	"n/a":       {},
	"na":        {},
	"unknown":   {},
	"anonymous": {},
	"none":      {},
	"null":      {},
}

func isForbiddenToken(value string) bool {
	_, forbidden := forbiddenTokens[strings.ToLower(strings.TrimSpace(value))]
	return forbidden
}

// CheckCandidate enforces the output contract on a parsed candidate. It is
// applied after every parse regardless of what the prompt demanded.
func CheckCandidate(candidate Candidate) error {
	author := strings.TrimSpace(candidate.Author)
	title := strings.TrimSpace(candidate.Title)
	lang := strings.TrimSpace(candidate.Language)

	if author == "" {
		return fmt.Errorf("author is empty")
	}
	if title == "" {
		return fmt.Errorf("title is empty")
	}
	if lang == "" {
		return fmt.Errorf("language is empty")
	}
	if isForbiddenToken(author) {
		return fmt.Errorf("author %q is a placeholder", author)
	}
	if isForbiddenToken(title) {
		return fmt.Errorf("title %q is a placeholder", title)
	}
	authorUnknown := strings.EqualFold(author, UnknownAuthor)
	titleUnknown := strings.EqualFold(title, UnknownTitle)
	if authorUnknown && titleUnknown {
		return fmt.Errorf("both author and title are unknown")
	}
	if _, ok := language.Canonical(lang); !ok {
		return fmt.Errorf("language %q is not recognized", lang)
	}
	return nil
}

// NormalizeCandidate trims fields and canonicalizes the language display
// name. Call only after CheckCandidate has accepted the candidate.
func NormalizeCandidate(candidate Candidate) Candidate {
	normalized := Candidate{
		Author:   strings.TrimSpace(candidate.Author),
		Title:    strings.TrimSpace(candidate.Title),
		Language: strings.TrimSpace(candidate.Language),
	}
	if display, ok := language.Canonical(normalized.Language); ok {
		normalized.Language = display
	}
	if strings.EqualFold(normalized.Author, UnknownAuthor) {
		normalized.Author = UnknownAuthor
	}
	if strings.EqualFold(normalized.Title, UnknownTitle) {
		normalized.Title = UnknownTitle
	}
	return normalized
}
