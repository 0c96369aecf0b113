// Package classify infers book metadata from extracted text snippets using
// the configured inference model.
package classify

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"bindery/internal/logging"
	"bindery/internal/services"
	"bindery/internal/services/llm"
)

const stageName = "classify"

// Completer is the slice of the LLM client the classifier needs.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Model() string
}

// Request carries everything the prompt is built from. KnownAuthors lists
// author directories already present in the library so the model reuses
// established spellings instead of inventing near-duplicates.
type Request struct {
	SnippetText  string
	SourcePath   string
	KnownAuthors []string
}

type Classifier struct {
	completer Completer
	logger    *slog.Logger
}

func New(completer Completer, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Classifier{
		completer: completer,
		logger:    logger.With(logging.FieldComponent, stageName),
	}
}

type inferencePayload struct {
	Author   string `json:"author"`
	Title    string `json:"title"`
	Language string `json:"language"`
}

// Classify runs a single inference round. It never retries internally;
// re-invocation belongs to the validation loop.
func (c *Classifier) Classify(ctx context.Context, request Request) (Candidate, error) {
	if strings.TrimSpace(request.SnippetText) == "" {
		return Candidate{}, services.Wrap(services.ErrInference, stageName, "classify", "snippet text is empty", nil)
	}

	content, err := c.completer.CompleteJSON(ctx, systemPrompt, c.userPrompt(request))
	if err != nil {
		return Candidate{}, services.Wrap(services.ErrInference, stageName, "classify", "inference request failed", err)
	}

	var payload inferencePayload
	if err := llm.DecodeLLMJSON(content, &payload); err != nil {
		return Candidate{}, services.Wrap(services.ErrInference, stageName, "classify", "inference response is not a metadata object", err)
	}

	candidate := Candidate{
		Author:   payload.Author,
		Title:    payload.Title,
		Language: payload.Language,
	}
	if err := CheckCandidate(candidate); err != nil {
		return Candidate{}, services.Wrap(services.ErrInference, stageName, "classify", fmt.Sprintf("inference output rejected: %v", err), nil)
	}
	candidate = NormalizeCandidate(candidate)

	c.logger.Debug("inference accepted",
		logging.String("model", c.completer.Model()),
		logging.String("author", candidate.Author),
		logging.String("title", candidate.Title),
		logging.String("language", candidate.Language))
	return candidate, nil
}

const systemPrompt = `You are a meticulous librarian. You identify the author, title, and language of a book from an excerpt of its text.

Respond with a single JSON object and nothing else:
{"author": "...", "title": "...", "language": "..."}

Rules:
- "author" is the person or persons who wrote the book, in natural reading order (e.g. "Isaac Asimov").
- "title" is the book's title without series numbering or subtitles unless they are part of the canonical title.
- "language" is the language the excerpt is written in, as an English word (e.g. "English", "Czech").
- Never output placeholder words such as AUTHOR, TITLE, BOOK, N/A, UNKNOWN, or ANONYMOUS.
- If the excerpt truly does not identify the author, use exactly "unknown_author". If it does not identify the title, use exactly "unknown_title". Never use both at once unless the excerpt is meaningless.`

func (c *Classifier) userPrompt(request Request) string {
	var builder strings.Builder

	base := filepath.Base(request.SourcePath)
	if base != "" && base != "." {
		fmt.Fprintf(&builder, "File name: %s\n", base)
	}
	if segments := pathHints(request.SourcePath); len(segments) > 0 {
		fmt.Fprintf(&builder, "Directory path: %s\n", strings.Join(segments, " / "))
	}
	if len(request.KnownAuthors) > 0 {
		builder.WriteString("Authors already present in the library (reuse these spellings when they match):\n")
		for _, author := range request.KnownAuthors {
			fmt.Fprintf(&builder, "- %s\n", author)
		}
	}
	builder.WriteString("\nExcerpt:\n")
	builder.WriteString(request.SnippetText)
	return builder.String()
}

// pathHints returns up to the last three parent directory names. Deeper
// ancestors are usually mount points and storage noise, not metadata.
func pathHints(path string) []string {
	dir := filepath.Dir(path)
	var segments []string
	for range 3 {
		base := filepath.Base(dir)
		if base == "." || base == string(filepath.Separator) || base == "" {
			break
		}
		segments = append([]string{base}, segments...)
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return segments
}
