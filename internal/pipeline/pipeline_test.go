package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bindery/internal/catalog"
	"bindery/internal/classify"
	"bindery/internal/config"
	"bindery/internal/services"
	"bindery/internal/testsupport"
	"bindery/internal/validate"
)

type ruleClassifier struct{}

// Classify derives metadata from the snippet, which test fixtures open with
// "author|title|language|" ahead of the body text, so no backend is needed.
// The extractor joins words with single spaces, so the markers must not rely
// on line breaks surviving extraction.
func (ruleClassifier) Classify(_ context.Context, request classify.Request) (classify.Candidate, error) {
	parts := strings.SplitN(request.SnippetText, "|", 4)
	if len(parts) < 4 {
		return classify.Candidate{}, errors.New("fixture snippet is not author|title|language|body")
	}
	return classify.Candidate{
		Author:   strings.TrimSpace(parts[0]),
		Title:    strings.TrimSpace(parts[1]),
		Language: strings.TrimSpace(parts[2]),
	}, nil
}

type ruleVerifier struct {
	rejectAuthors map[string]string
}

func (v ruleVerifier) Verify(_ context.Context, candidate classify.Candidate) (validate.Verdict, error) {
	if reason, bad := v.rejectAuthors[candidate.Author]; bad {
		return validate.Verdict{Valid: false, Reason: reason}, nil
	}
	return validate.Verdict{Valid: true}, nil
}

type testEnv struct {
	cfg   *config.Config
	store *catalog.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithMaxAttempts(3))

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return &testEnv{cfg: cfg, store: store}
}

func (e *testEnv) addBook(t *testing.T, name, author, title, lang string) string {
	t.Helper()
	content := author + "|" + title + "|" + lang + "|\nbody text follows here"
	return testsupport.WriteBook(t, e.cfg, name, content)
}

func (e *testEnv) pipeline(t *testing.T, verifier validate.Verifier, dryRun bool) *Pipeline {
	t.Helper()
	pipe, err := New(Options{
		Config:     e.cfg,
		Store:      e.store,
		Classifier: ruleClassifier{},
		Verifier:   verifier,
		DryRun:     dryRun,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return pipe
}

func TestRunInPlaceCommits(t *testing.T) {
	env := newTestEnv(t)
	source := env.addBook(t, "incoming/foundation.txt", "Isaac Asimov", "Foundation", "English")

	summary, err := env.pipeline(t, ruleVerifier{}, false).Run(context.Background(), ModeInPlace)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	total, committed, _, failed, _ := summary.Counts()
	if total != 1 || committed != 1 || failed != 0 {
		t.Fatalf("counts: total=%d committed=%d failed=%d", total, committed, failed)
	}

	want := filepath.Join(env.cfg.Paths.FinalRoot, "Isaac Asimov", "Isaac Asimov-Foundation-English.txt")
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("destination missing: %v", err)
	}
	if _, err := os.Stat(source); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("in-place mode should move the source")
	}

	record, err := env.store.LookupBySource(context.Background(), source)
	if err != nil {
		t.Fatalf("LookupBySource: %v", err)
	}
	if record == nil || record.Status != catalog.StatusCommitted || record.FinalPath != want {
		t.Fatalf("record = %+v", record)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.addBook(t, "one.txt", "Isaac Asimov", "Foundation", "English")

	pipe := env.pipeline(t, ruleVerifier{}, false)
	if _, err := pipe.Run(context.Background(), ModeInPlace); err != nil {
		t.Fatalf("first run: %v", err)
	}

	summary, err := pipe.Run(context.Background(), ModeInPlace)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	total, committed, _, _, _ := summary.Counts()
	if total != 0 || committed != 0 {
		t.Fatalf("second run reprocessed files: total=%d committed=%d", total, committed)
	}

	entries, err := os.ReadDir(filepath.Join(env.cfg.Paths.FinalRoot, "Isaac Asimov"))
	if err != nil {
		t.Fatalf("read author dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("author dir has %d entries, want 1 (no duplicate placement)", len(entries))
	}
}

func TestRunQuarantinesExhaustedValidation(t *testing.T) {
	env := newTestEnv(t)
	source := env.addBook(t, "dubious.txt", "Madeup Person", "Fake Book", "English")
	env.addBook(t, "fine.txt", "Isaac Asimov", "Foundation", "English")

	verifier := ruleVerifier{rejectAuthors: map[string]string{"Madeup Person": "no such author"}}
	summary, err := env.pipeline(t, verifier, false).Run(context.Background(), ModeInPlace)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	_, committed, quarantined, _, _ := summary.Counts()
	if committed != 1 || quarantined != 1 {
		t.Fatalf("committed=%d quarantined=%d", committed, quarantined)
	}

	record, err := env.store.LookupBySource(context.Background(), source)
	if err != nil {
		t.Fatalf("LookupBySource: %v", err)
	}
	if record.Status != catalog.StatusQuarantined {
		t.Fatalf("record = %+v", record)
	}
	if record.Attempts != env.cfg.Validation.MaxAttempts {
		t.Fatalf("attempts = %d, want the full budget", record.Attempts)
	}
	if !strings.Contains(record.FinalPath, "invalid_classification") {
		t.Fatalf("final path = %q", record.FinalPath)
	}

	problems := summary.Problems()
	if len(problems) != 1 || problems[0].Reason != "no such author" {
		t.Fatalf("problems = %+v", problems)
	}
}

func TestRunRecordsExtractionFailure(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(env.cfg.Paths.RootPath, "image.jpg")
	if err := os.WriteFile(path, []byte{0xFF, 0xD8}, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	summary, err := env.pipeline(t, ruleVerifier{}, false).Run(context.Background(), ModeInPlace)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	_, _, _, failed, _ := summary.Counts()
	if failed != 1 {
		t.Fatalf("failed = %d", failed)
	}
	record, err := env.store.LookupBySource(context.Background(), path)
	if err != nil {
		t.Fatalf("LookupBySource: %v", err)
	}
	if record.Status != catalog.StatusFailed || record.ErrorKind != "extraction" {
		t.Fatalf("record = %+v", record)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal("failed files must stay where they are")
	}
}

func TestRunRecordsInferenceFailure(t *testing.T) {
	env := newTestEnv(t)
	path := env.addBook(t, "book.txt", "A", "B", "English")

	classifier := classifierFunc(func(context.Context, classify.Request) (classify.Candidate, error) {
		return classify.Candidate{}, services.Wrap(services.ErrInference, "classify", "classify", "backend returned garbage", nil)
	})
	pipe, err := New(Options{
		Config:     env.cfg,
		Store:      env.store,
		Classifier: classifier,
		Verifier:   ruleVerifier{},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	summary, err := pipe.Run(context.Background(), ModeInPlace)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	_, _, quarantined, failed, _ := summary.Counts()
	if failed != 1 || quarantined != 0 {
		t.Fatalf("failed=%d quarantined=%d, inference failure must not quarantine", failed, quarantined)
	}
	record, err := env.store.LookupBySource(context.Background(), path)
	if err != nil {
		t.Fatalf("LookupBySource: %v", err)
	}
	if record.ErrorKind != "inference" {
		t.Fatalf("error kind = %q", record.ErrorKind)
	}
}

func TestRunSandboxLeavesSourceUntouched(t *testing.T) {
	env := newTestEnv(t)
	source := env.addBook(t, "foundation.txt", "Isaac Asimov", "Foundation", "English")

	summary, err := env.pipeline(t, ruleVerifier{}, false).Run(context.Background(), ModeSandbox)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	_, committed, _, _, _ := summary.Counts()
	if committed != 1 {
		t.Fatalf("committed = %d", committed)
	}

	if _, err := os.Stat(source); err != nil {
		t.Fatal("sandbox mode must not touch the source tree")
	}
	placed := filepath.Join(env.cfg.Paths.SandboxDir, SandboxLibraryDirName,
		"Isaac Asimov", "Isaac Asimov-Foundation-English.txt")
	if _, err := os.Stat(placed); err != nil {
		t.Fatalf("sandbox placement missing: %v", err)
	}
}

func TestRunSandboxProcessesNestedDirectories(t *testing.T) {
	env := newTestEnv(t)
	env.addBook(t, "scifi/foundation.txt", "Isaac Asimov", "Foundation", "English")
	env.addBook(t, "scifi/classics/war.txt", "H. G. Wells", "The War of the Worlds", "English")

	summary, err := env.pipeline(t, ruleVerifier{}, false).Run(context.Background(), ModeSandbox)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	total, committed, _, _, _ := summary.Counts()
	if total != 2 || committed != 2 {
		t.Fatalf("total=%d committed=%d, nested files must be enumerated", total, committed)
	}
	for _, author := range []string{"Isaac Asimov", "H. G. Wells"} {
		dir := filepath.Join(env.cfg.Paths.SandboxDir, SandboxLibraryDirName, author)
		if _, err := os.Stat(dir); err != nil {
			t.Fatalf("author dir missing for %s: %v", author, err)
		}
	}
}

func TestRunReprocessesChangedCommittedSource(t *testing.T) {
	env := newTestEnv(t)
	source := env.addBook(t, "one.txt", "Isaac Asimov", "Foundation", "English")

	pipe := env.pipeline(t, ruleVerifier{}, false)
	if _, err := pipe.Run(context.Background(), ModeInPlace); err != nil {
		t.Fatalf("first run: %v", err)
	}

	// A different book lands at the committed path between runs.
	env.addBook(t, "one.txt", "Frank Herbert", "Dune", "English")
	summary, err := pipe.Run(context.Background(), ModeInPlace)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	_, committed, _, _, skipped := summary.Counts()
	if committed != 1 || skipped != 0 {
		t.Fatalf("committed=%d skipped=%d, changed content must be reclassified", committed, skipped)
	}

	record, err := env.store.LookupBySource(context.Background(), source)
	if err != nil {
		t.Fatalf("LookupBySource: %v", err)
	}
	if record.Author != "Frank Herbert" {
		t.Fatalf("record author = %q, want the replacement's metadata", record.Author)
	}
}

func TestRunDryRunMovesNothing(t *testing.T) {
	env := newTestEnv(t)
	source := env.addBook(t, "foundation.txt", "Isaac Asimov", "Foundation", "English")

	summary, err := env.pipeline(t, ruleVerifier{}, true).Run(context.Background(), ModeInPlace)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	_, committed, _, _, _ := summary.Counts()
	if committed != 1 {
		t.Fatalf("committed = %d", committed)
	}
	if _, err := os.Stat(source); err != nil {
		t.Fatal("dry run must not move files")
	}
	if _, err := os.Stat(filepath.Join(env.cfg.Paths.FinalRoot, "Isaac Asimov")); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("dry run must not create library directories")
	}
}

type unreachableHealth struct{}

func (unreachableHealth) HealthCheck(context.Context) error {
	return errors.New("connection refused")
}

func TestRunPreflightFailureIsFatal(t *testing.T) {
	env := newTestEnv(t)
	env.addBook(t, "foundation.txt", "Isaac Asimov", "Foundation", "English")

	pipe, err := New(Options{
		Config:     env.cfg,
		Store:      env.store,
		Classifier: ruleClassifier{},
		Verifier:   ruleVerifier{},
		Health:     unreachableHealth{},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := pipe.Run(context.Background(), ModeInPlace); err == nil {
		t.Fatal("unreachable backend must fail the run before processing")
	}
	run, err := env.store.LatestRun(context.Background())
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if run != nil {
		t.Fatal("failed preflight must not record a run")
	}
}

func TestKnownAuthorsFeedIntoPrompts(t *testing.T) {
	env := newTestEnv(t)
	if err := os.MkdirAll(filepath.Join(env.cfg.Paths.FinalRoot, "Ursula K. Le Guin"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	env.addBook(t, "foundation.txt", "Isaac Asimov", "Foundation", "English")

	var captured []string
	classifier := classifierFunc(func(_ context.Context, request classify.Request) (classify.Candidate, error) {
		captured = request.KnownAuthors
		return ruleClassifier{}.Classify(context.Background(), request)
	})

	pipe, err := New(Options{
		Config:     env.cfg,
		Store:      env.store,
		Classifier: classifier,
		Verifier:   ruleVerifier{},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := pipe.Run(context.Background(), ModeInPlace); err != nil {
		t.Fatalf("Run: %v", err)
	}
	found := false
	for _, author := range captured {
		if author == "Ursula K. Le Guin" {
			found = true
		}
	}
	if !found {
		t.Fatalf("known authors %v missing existing library author", captured)
	}
}

type classifierFunc func(ctx context.Context, request classify.Request) (classify.Candidate, error)

func (f classifierFunc) Classify(ctx context.Context, request classify.Request) (classify.Candidate, error) {
	return f(ctx, request)
}
