// Package validate double-checks inferred metadata with a second model
// persona and drives the bounded classify-validate retry loop.
package validate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"bindery/internal/classify"
	"bindery/internal/logging"
	"bindery/internal/services"
)

const stageName = "validate"

// Verdict is one validation decision. Attempt is 1-based.
type Verdict struct {
	Valid   bool
	Reason  string
	Attempt int
}

// Verifier judges a candidate. Implementations must be safe for concurrent
// use; the pipeline shares one verifier across workers.
type Verifier interface {
	Verify(ctx context.Context, candidate classify.Candidate) (Verdict, error)
}

// InferFunc produces a fresh candidate for the given 1-based attempt.
type InferFunc func(ctx context.Context, attempt int) (classify.Candidate, error)

// Loop drives verification rounds until a candidate passes or the attempt
// budget is spent. The budget counts verdicts: a semantic rejection discards
// the candidate and a fresh one is inferred, while a transport failure
// re-verifies the same candidate. Inference failures never consume the
// budget; they escalate to the caller, which records the file as failed.
type Loop struct {
	verifier    Verifier
	maxAttempts int
	logger      *slog.Logger
}

func NewLoop(verifier Verifier, maxAttempts int, logger *slog.Logger) *Loop {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Loop{
		verifier:    verifier,
		maxAttempts: maxAttempts,
		logger:      logger.With(logging.FieldComponent, stageName),
	}
}

// Run returns the first candidate the verifier accepts. On exhaustion it
// returns ErrValidationExhausted with the last rejection reason; inference
// errors and context cancellation abort immediately without consuming
// further attempts.
func (l *Loop) Run(ctx context.Context, infer InferFunc) (classify.Candidate, Verdict, error) {
	var (
		candidate     classify.Candidate
		haveCandidate bool
		lastReason    string
	)

	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return classify.Candidate{}, Verdict{}, err
		}

		if !haveCandidate {
			var err error
			candidate, err = infer(ctx, attempt)
			if err != nil {
				// The attempt budget covers verdicts only; an inference
				// failure escalates as-is and the file records as failed.
				return classify.Candidate{}, Verdict{Attempt: attempt - 1}, err
			}
			haveCandidate = true
		}

		verdict, err := l.verifier.Verify(ctx, candidate)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return classify.Candidate{}, Verdict{}, err
			}
			// The candidate stays; the next attempt re-verifies it.
			lastReason = fmt.Sprintf("validation failed: %v", err)
			l.logger.Warn("validation attempt failed",
				logging.Int(logging.FieldAttempt, attempt),
				logging.String(logging.FieldErrorKind, services.ErrorKind(err)),
				logging.Error(err))
			continue
		}
		verdict.Attempt = attempt

		if verdict.Valid {
			l.logger.Debug("candidate accepted",
				logging.Int(logging.FieldAttempt, attempt),
				logging.String("author", candidate.Author),
				logging.String("title", candidate.Title))
			return candidate, verdict, nil
		}

		// Candidates are replaced wholesale on rejection, never patched.
		haveCandidate = false
		lastReason = verdict.Reason
		l.logger.Info("candidate rejected",
			logging.Int(logging.FieldAttempt, attempt),
			logging.String("author", candidate.Author),
			logging.String("title", candidate.Title),
			logging.String("reason", verdict.Reason))
	}

	if lastReason == "" {
		lastReason = "no attempt produced a verdict"
	}
	err := services.Wrap(services.ErrValidationExhausted, stageName, "run",
		fmt.Sprintf("no valid classification after %d attempts: %s", l.maxAttempts, lastReason), nil)
	return classify.Candidate{}, Verdict{Valid: false, Reason: lastReason, Attempt: l.maxAttempts}, err
}
