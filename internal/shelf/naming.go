package shelf

import (
	"fmt"
	"path/filepath"
	"strings"

	"bindery/internal/classify"
	"bindery/internal/textutil"
)

// QuarantineDirName holds files whose classification never validated.
const QuarantineDirName = "invalid_classification"

// maxComponentRunes bounds each name component so the joined filename stays
// under common filesystem limits even for pathological metadata.
const maxComponentRunes = 80

// AuthorDirName returns the directory component for an author.
func AuthorDirName(candidate classify.Candidate) string {
	return sanitizedComponent(candidate.Author, "unknown_author")
}

// FileName returns the canonical file name for a validated candidate:
// Author-Title-Language with the source extension preserved.
func FileName(candidate classify.Candidate, ext string) string {
	author := sanitizedComponent(candidate.Author, "unknown_author")
	title := sanitizedComponent(candidate.Title, "unknown_title")
	lang := sanitizedComponent(candidate.Language, "unknown")
	return fmt.Sprintf("%s-%s-%s%s", author, title, lang, normalizeExt(ext))
}

// QuarantineFileName derives a best-effort name from the source path.
func QuarantineFileName(sourcePath string) string {
	base := filepath.Base(sourcePath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return sanitizedComponent(stem, "unnamed") + normalizeExt(ext)
}

func sanitizedComponent(value, fallback string) string {
	cleaned := textutil.SanitizeComponent(value)
	cleaned = textutil.TruncateRunes(cleaned, maxComponentRunes)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return fallback
	}
	return cleaned
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
