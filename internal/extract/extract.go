package extract

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"bindery/internal/logging"
)

// Reason classifies why extraction failed for a file.
type Reason string

const (
	ReasonUnsupported Reason = "unsupported"
	ReasonCorrupt     Reason = "corrupt"
	ReasonEmpty       Reason = "empty"
)

// Error describes a per-file extraction failure. It never aborts a run; the
// orchestrator records it as the file's outcome and moves on.
type Error struct {
	Path   string
	Reason Reason
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("extract %s: %s", e.Path, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(path string, reason Reason, err error) *Error {
	return &Error{Path: path, Reason: reason, Err: err}
}

// Limits bounds the snippet size. Extraction stops at whichever cap is
// reached first; the character cap protects against pathological
// single-"word" files.
type Limits struct {
	MaxWords int
	MaxChars int
}

// Snippet is the bounded text excerpt fed to the inference model. It is
// consumed once and never persisted.
type Snippet struct {
	Text      string
	Words     int
	Truncated bool
}

// Reader produces raw text for one file format. Any implementation
// qualifies; readers are free to stop early once the budget is exhausted.
type Reader interface {
	Read(path string, budget *Budget) error
}

// Extractor dispatches on file extension to a registered format reader and
// enforces the snippet limits.
type Extractor struct {
	limits  Limits
	readers map[string]Reader
	logger  *slog.Logger
}

// New builds an extractor with the built-in format readers registered.
func New(limits Limits, logger *slog.Logger) *Extractor {
	e := &Extractor{
		limits:  limits,
		readers: make(map[string]Reader),
		logger:  logging.NewComponentLogger(logger, "extract"),
	}
	plain := plainTextReader{}
	markup := markupReader{}
	for _, ext := range []string{".txt", ".text", ".md"} {
		e.Register(ext, plain)
	}
	for _, ext := range []string{".fb2", ".opf", ".html", ".htm", ".xhtml"} {
		e.Register(ext, markup)
	}
	e.Register(".epub", epubReader{})
	e.Register(".docx", docxReader{})
	e.Register(".pdf", pdfReader{})
	return e
}

// Register installs a reader for the given extension (lowercase, with dot).
// Registering over an existing extension replaces the previous reader.
func (e *Extractor) Register(ext string, reader Reader) {
	e.readers[strings.ToLower(ext)] = reader
}

// Supported reports whether a reader is registered for the extension.
func (e *Extractor) Supported(ext string) bool {
	_, ok := e.readers[strings.ToLower(ext)]
	return ok
}

// Extensions returns the registered extensions in no particular order.
func (e *Extractor) Extensions() []string {
	exts := make([]string, 0, len(e.readers))
	for ext := range e.readers {
		exts = append(exts, ext)
	}
	return exts
}

// Extract returns a bounded snippet for the file or an *Error describing why
// the file yielded nothing usable.
func (e *Extractor) Extract(path string) (Snippet, error) {
	ext := strings.ToLower(filepath.Ext(path))
	reader, ok := e.readers[ext]
	if !ok {
		return Snippet{}, newError(path, ReasonUnsupported, fmt.Errorf("no reader for extension %q", ext))
	}

	budget := NewBudget(e.limits)
	if err := reader.Read(path, budget); err != nil {
		return Snippet{}, newError(path, ReasonCorrupt, err)
	}

	snippet := budget.Snippet()
	if snippet.Words == 0 {
		return Snippet{}, newError(path, ReasonEmpty, nil)
	}
	e.logger.Debug("snippet extracted",
		logging.String(logging.FieldFile, path),
		logging.Int("words", snippet.Words),
		logging.Bool("truncated", snippet.Truncated),
	)
	return snippet, nil
}

// Budget accumulates whitespace-separated words until either limit is hit.
type Budget struct {
	limits Limits
	words  []string
	chars  int
	full   bool
}

// NewBudget returns an empty budget for the given limits.
func NewBudget(limits Limits) *Budget {
	return &Budget{limits: limits}
}

// Add folds more raw text into the budget and reports whether the budget is
// exhausted; readers should stop producing text once it returns true.
func (b *Budget) Add(text string) bool {
	if b.full {
		return true
	}
	for _, word := range strings.Fields(text) {
		if len(b.words) >= b.limits.MaxWords {
			b.full = true
			return true
		}
		need := len(word)
		if len(b.words) > 0 {
			need++ // joining space
		}
		if b.chars+need > b.limits.MaxChars {
			// Take a partial word only when nothing has been collected yet,
			// so a single enormous token still yields usable text. The cut
			// backs up to a rune boundary to keep the snippet valid UTF-8.
			if len(b.words) == 0 && b.limits.MaxChars > 0 {
				cut := b.limits.MaxChars
				for cut > 0 && !utf8.RuneStart(word[cut]) {
					cut--
				}
				if cut > 0 {
					b.words = append(b.words, word[:cut])
					b.chars = cut
				}
			}
			b.full = true
			return true
		}
		b.words = append(b.words, word)
		b.chars += need
	}
	return b.full
}

// Full reports whether the budget is exhausted.
func (b *Budget) Full() bool { return b.full }

// Snippet finalizes the collected text.
func (b *Budget) Snippet() Snippet {
	return Snippet{
		Text:      strings.Join(b.words, " "),
		Words:     len(b.words),
		Truncated: b.full,
	}
}

// plainTextReader handles .txt and friends by streaming lines.
type plainTextReader struct{}

func (plainTextReader) Read(path string, budget *Budget) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if budget.Add(scanner.Text()) {
			return nil
		}
	}
	return scanner.Err()
}
