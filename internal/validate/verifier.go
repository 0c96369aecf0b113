package validate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"bindery/internal/classify"
	"bindery/internal/logging"
	"bindery/internal/services"
	"bindery/internal/services/llm"
)

// LLMVerifier judges candidates with a second model persona. A separate
// persona catches hallucinated pairings the inference model is confident
// about.
type LLMVerifier struct {
	completer classify.Completer
	logger    *slog.Logger
}

func NewLLMVerifier(completer classify.Completer, logger *slog.Logger) *LLMVerifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &LLMVerifier{
		completer: completer,
		logger:    logger.With(logging.FieldComponent, stageName),
	}
}

type verdictPayload struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason"`
}

const verifierSystemPrompt = `You are a skeptical bibliographic fact checker. You receive a proposed classification of a book: author, title, and language. Judge whether the combination is plausible as a real published work.

Respond with a single JSON object and nothing else:
{"valid": true} or {"valid": false, "reason": "..."}

Rules:
- Reject placeholder values such as AUTHOR, TITLE, BOOK, N/A, UNKNOWN, or ANONYMOUS.
- Reject pairings of a real author with a title that author did not write.
- Accept "unknown_author" or "unknown_title" when the other field is a real value.
- Keep the reason to one short sentence.`

func (v *LLMVerifier) Verify(ctx context.Context, candidate classify.Candidate) (Verdict, error) {
	userPrompt := fmt.Sprintf("Author: %s\nTitle: %s\nLanguage: %s", candidate.Author, candidate.Title, candidate.Language)

	content, err := v.completer.CompleteJSON(ctx, verifierSystemPrompt, userPrompt)
	if err != nil {
		return Verdict{}, services.Wrap(services.ErrTransient, stageName, "verify", "validation request failed", err)
	}

	var payload verdictPayload
	if err := llm.DecodeLLMJSON(content, &payload); err != nil {
		return Verdict{}, services.Wrap(services.ErrTransient, stageName, "verify", "validation response is not a verdict object", err)
	}

	reason := strings.TrimSpace(payload.Reason)
	if !payload.Valid && reason == "" {
		reason = "rejected without a stated reason"
	}
	return Verdict{Valid: payload.Valid, Reason: reason}, nil
}
