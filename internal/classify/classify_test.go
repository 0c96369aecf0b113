package classify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"bindery/internal/services"
)

type stubCompleter struct {
	response     string
	err          error
	calls        int
	lastUserText string
}

func (s *stubCompleter) CompleteJSON(_ context.Context, _ string, userPrompt string) (string, error) {
	s.calls++
	s.lastUserText = userPrompt
	return s.response, s.err
}

func (s *stubCompleter) Model() string { return "stub-model" }

func TestClassifyAcceptsValidResponse(t *testing.T) {
	completer := &stubCompleter{response: `{"author": " Isaac Asimov ", "title": "Foundation", "language": "en"}`}
	classifier := New(completer, nil)

	candidate, err := classifier.Classify(context.Background(), Request{
		SnippetText: "Hari Seldon stood on the steps of the University.",
		SourcePath:  "/books/incoming/asimov/foundation.epub",
	})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if candidate.Author != "Isaac Asimov" {
		t.Fatalf("author = %q", candidate.Author)
	}
	if candidate.Language != "English" {
		t.Fatalf("language = %q, want canonical display name", candidate.Language)
	}
}

func TestClassifyPromptCarriesHints(t *testing.T) {
	completer := &stubCompleter{response: `{"author": "A. B.", "title": "C", "language": "English"}`}
	classifier := New(completer, nil)

	_, err := classifier.Classify(context.Background(), Request{
		SnippetText:  "some text",
		SourcePath:   "/mnt/books/scifi/asimov/foundation.epub",
		KnownAuthors: []string{"Isaac Asimov", "Ursula K. Le Guin"},
	})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	prompt := completer.lastUserText
	for _, want := range []string{"foundation.epub", "asimov", "Isaac Asimov", "Ursula K. Le Guin", "some text"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "/mnt") {
		t.Fatalf("prompt should carry only nearby directory names, got:\n%s", prompt)
	}
}

func TestClassifyRejections(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"placeholder author", `{"author": "AUTHOR", "title": "Foundation", "language": "English"}`},
		{"placeholder title", `{"author": "Isaac Asimov", "title": "n/a", "language": "English"}`},
		{"empty title", `{"author": "Isaac Asimov", "title": "", "language": "English"}`},
		{"both unknown", `{"author": "unknown_author", "title": "unknown_title", "language": "English"}`},
		{"bad language", `{"author": "Isaac Asimov", "title": "Foundation", "language": "12"}`},
		{"not an object", `the author is probably Asimov`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			classifier := New(&stubCompleter{response: test.response}, nil)
			_, err := classifier.Classify(context.Background(), Request{SnippetText: "text", SourcePath: "/b/f.txt"})
			if !errors.Is(err, services.ErrInference) {
				t.Fatalf("err = %v, want ErrInference", err)
			}
		})
	}
}

func TestClassifySingleUnknownTolerated(t *testing.T) {
	completer := &stubCompleter{response: `{"author": "unknown_author", "title": "Foundation", "language": "English"}`}
	candidate, err := New(completer, nil).Classify(context.Background(), Request{SnippetText: "text", SourcePath: "/b/f.txt"})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if candidate.Author != UnknownAuthor {
		t.Fatalf("author = %q", candidate.Author)
	}
}

func TestClassifyDoesNotRetry(t *testing.T) {
	completer := &stubCompleter{err: errors.New("connection refused")}
	_, err := New(completer, nil).Classify(context.Background(), Request{SnippetText: "text", SourcePath: "/b/f.txt"})
	if !errors.Is(err, services.ErrInference) {
		t.Fatalf("err = %v, want ErrInference", err)
	}
	if completer.calls != 1 {
		t.Fatalf("calls = %d, want exactly 1", completer.calls)
	}
}

func TestClassifyEmptySnippet(t *testing.T) {
	completer := &stubCompleter{}
	_, err := New(completer, nil).Classify(context.Background(), Request{SourcePath: "/b/f.txt"})
	if !errors.Is(err, services.ErrInference) {
		t.Fatalf("err = %v, want ErrInference", err)
	}
	if completer.calls != 0 {
		t.Fatal("empty snippet must not reach the backend")
	}
}

func TestCheckCandidateCaseInsensitivePlaceholders(t *testing.T) {
	for _, author := range []string{"Unknown", "ANONYMOUS", "n/A", "Book"} {
		if err := CheckCandidate(Candidate{Author: author, Title: "T", Language: "English"}); err == nil {
			t.Fatalf("author %q should be rejected", author)
		}
	}
	if err := CheckCandidate(Candidate{Author: "Isaac Asimov", Title: "Foundation", Language: "English"}); err != nil {
		t.Fatalf("valid candidate rejected: %v", err)
	}
}
