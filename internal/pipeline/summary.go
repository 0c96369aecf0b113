package pipeline

import (
	"sort"
	"sync"
	"time"
)

// Outcome is one file's terminal status within a run.
type Outcome string

const (
	OutcomeCommitted   Outcome = "committed"
	OutcomeQuarantined Outcome = "quarantined"
	OutcomeFailed      Outcome = "failed"
	OutcomeSkipped     Outcome = "skipped"
)

// Problem is one non-committed file with its reason.
type Problem struct {
	Path    string
	Outcome Outcome
	Kind    string
	Reason  string
}

// Summary accumulates run results. It is the only state shared between
// workers; all mutation goes through the record method.
type Summary struct {
	RunID    string
	Mode     Mode
	Started  time.Time
	Finished time.Time

	mu          sync.Mutex
	total       int
	committed   int
	quarantined int
	failed      int
	skipped     int
	errorKinds  map[string]int
	problems    []Problem
}

func newSummary(runID string, mode Mode) *Summary {
	return &Summary{
		RunID:      runID,
		Mode:       mode,
		Started:    time.Now().UTC(),
		errorKinds: make(map[string]int),
	}
}

func (s *Summary) record(path string, outcome Outcome, kind, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total++
	switch outcome {
	case OutcomeCommitted:
		s.committed++
	case OutcomeQuarantined:
		s.quarantined++
	case OutcomeFailed:
		s.failed++
	case OutcomeSkipped:
		s.skipped++
	}
	if kind != "" {
		s.errorKinds[kind]++
	}
	if outcome != OutcomeCommitted && outcome != OutcomeSkipped {
		s.problems = append(s.problems, Problem{Path: path, Outcome: outcome, Kind: kind, Reason: reason})
	}
}

// Counts returns the outcome totals.
func (s *Summary) Counts() (total, committed, quarantined, failed, skipped int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total, s.committed, s.quarantined, s.failed, s.skipped
}

// ErrorKinds returns error-kind counts, sorted by kind.
func (s *Summary) ErrorKinds() []KindCount {
	s.mu.Lock()
	defer s.mu.Unlock()
	kinds := make([]KindCount, 0, len(s.errorKinds))
	for kind, count := range s.errorKinds {
		kinds = append(kinds, KindCount{Kind: kind, Count: count})
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i].Kind < kinds[j].Kind })
	return kinds
}

// KindCount pairs an error kind with its occurrence count.
type KindCount struct {
	Kind  string
	Count int
}

// Problems returns the non-committed files, sorted by path.
func (s *Summary) Problems() []Problem {
	s.mu.Lock()
	defer s.mu.Unlock()
	problems := make([]Problem, len(s.problems))
	copy(problems, s.problems)
	sort.Slice(problems, func(i, j int) bool { return problems[i].Path < problems[j].Path })
	return problems
}
