// Package pipeline orchestrates a full classification run: enumerate,
// extract, classify, validate, place, record.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"bindery/internal/catalog"
	"bindery/internal/classify"
	"bindery/internal/config"
	"bindery/internal/extract"
	"bindery/internal/logging"
	"bindery/internal/scan"
	"bindery/internal/services"
	"bindery/internal/shelf"
	"bindery/internal/validate"
)

// Mode selects where placements happen.
type Mode string

const (
	// ModeSandbox works on a copy of the source tree; the source stays
	// untouched.
	ModeSandbox Mode = "sandbox"
	// ModeInPlace moves files from the source tree into the library.
	ModeInPlace Mode = "in-place"
)

// SandboxLibraryDirName is the library root inside the sandbox.
const SandboxLibraryDirName = "sorted"

// Classifier produces metadata candidates.
type Classifier interface {
	Classify(ctx context.Context, request classify.Request) (classify.Candidate, error)
}

// HealthChecker verifies the inference backend is reachable before any file
// is touched.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Options wires the pipeline's collaborators.
type Options struct {
	Config     *config.Config
	Store      *catalog.Store
	Classifier Classifier
	Verifier   validate.Verifier
	Health     HealthChecker
	Logger     *slog.Logger
	DryRun     bool
}

// Pipeline runs the classify-validate-place workflow over a source tree.
type Pipeline struct {
	cfg        *config.Config
	store      *catalog.Store
	classifier Classifier
	loop       *validate.Loop
	extractor  *extract.Extractor
	health     HealthChecker
	logger     *slog.Logger
	dryRun     bool
}

func New(opts Options) (*Pipeline, error) {
	if opts.Config == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "configuration is required", nil)
	}
	if opts.Store == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "catalog store is required", nil)
	}
	if opts.Classifier == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "classifier is required", nil)
	}
	if opts.Verifier == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "verifier is required", nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.With(logging.FieldComponent, "pipeline")

	limits := extract.Limits{
		MaxWords: opts.Config.Extraction.MaxWords,
		MaxChars: opts.Config.Extraction.MaxChars,
	}
	return &Pipeline{
		cfg:        opts.Config,
		store:      opts.Store,
		classifier: opts.Classifier,
		loop:       validate.NewLoop(opts.Verifier, opts.Config.Validation.MaxAttempts, logger),
		extractor:  extract.New(limits, logger),
		health:     opts.Health,
		logger:     logger,
		dryRun:     opts.DryRun,
	}, nil
}

// Run processes every file under the source root once and returns the run
// summary. Individual file failures are recorded, not returned; the error
// covers run-level problems only.
func (p *Pipeline) Run(ctx context.Context, mode Mode) (*Summary, error) {
	if err := p.preflight(ctx); err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	ctx = services.WithRunID(ctx, runID)
	logger := p.logger.With(logging.FieldRunID, runID)

	scanRoot, placer, excludes, err := p.resolveRoots(ctx, mode)
	if err != nil {
		return nil, err
	}

	if err := p.store.BeginRun(ctx, runID, string(mode)); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "begin run", "Failed to record run start", err)
	}

	files, err := scan.NewWalker(excludes, logger).Walk(scanRoot)
	if err != nil {
		return nil, err
	}
	logger.Info("run started",
		logging.String("mode", string(mode)),
		logging.String("scan_root", scanRoot),
		logging.Int("files", len(files)))

	committed, err := p.store.CommittedPaths(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "load committed paths", "Failed to read catalog", err)
	}
	knownAuthors, err := p.knownAuthors(ctx, placer.LibraryDir())
	if err != nil {
		return nil, err
	}

	summary := newSummary(runID, mode)
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.workers())

	for _, file := range files {
		group.Go(func() error {
			return p.processFile(groupCtx, file, placer, committed, knownAuthors, summary)
		})
	}
	runErr := group.Wait()

	summary.Finished = time.Now().UTC()
	_, committedCount, quarantined, failed, skipped := summary.Counts()
	if err := p.store.FinishRun(context.WithoutCancel(ctx), runID, committedCount, quarantined, failed, skipped); err != nil {
		logger.Warn("failed to record run completion", logging.Error(err))
	}
	if runErr != nil {
		return summary, runErr
	}

	logger.Info("run finished",
		logging.Int("committed", committedCount),
		logging.Int("quarantined", quarantined),
		logging.Int("failed", failed),
		logging.Int("skipped", skipped))
	return summary, nil
}

func (p *Pipeline) preflight(ctx context.Context) error {
	info, err := os.Stat(p.cfg.Paths.RootPath)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "pipeline", "preflight", "Source root is not accessible", err)
	}
	if !info.IsDir() {
		return services.Wrap(services.ErrConfiguration, "pipeline", "preflight",
			fmt.Sprintf("Source root %s is not a directory", p.cfg.Paths.RootPath), nil)
	}
	if p.health != nil {
		if err := p.health.HealthCheck(ctx); err != nil {
			return services.Wrap(services.ErrConfiguration, "pipeline", "preflight", "Inference backend is not reachable", err)
		}
	}
	return nil
}

// resolveRoots returns the scan root, the placer, and the subtrees the walker
// must skip under that root. The sandbox working copy lives inside the
// sandbox dir, so only the sandbox library is excluded there; excluding the
// whole sandbox dir would skip every directory being scanned.
func (p *Pipeline) resolveRoots(ctx context.Context, mode Mode) (string, *shelf.Placer, []string, error) {
	switch mode {
	case ModeSandbox:
		copyExcludes := []string{p.cfg.Paths.FinalRoot, p.cfg.Paths.LogDir}
		workRoot, err := shelf.PrepareSandbox(ctx, p.cfg.Paths.RootPath, p.cfg.Paths.SandboxDir, copyExcludes, p.logger)
		if err != nil {
			return "", nil, nil, err
		}
		libraryDir := filepath.Join(p.cfg.Paths.SandboxDir, SandboxLibraryDirName)
		scanExcludes := []string{libraryDir, p.cfg.Paths.LogDir}
		return workRoot, shelf.NewPlacer(libraryDir, p.dryRun, p.logger), scanExcludes, nil
	case ModeInPlace:
		scanExcludes := []string{p.cfg.Paths.FinalRoot, p.cfg.Paths.SandboxDir, p.cfg.Paths.LogDir}
		return p.cfg.Paths.RootPath, shelf.NewPlacer(p.cfg.Paths.FinalRoot, p.dryRun, p.logger), scanExcludes, nil
	default:
		return "", nil, nil, services.Wrap(services.ErrConfiguration, "pipeline", "resolve mode",
			fmt.Sprintf("Unknown run mode %q", mode), nil)
	}
}

// knownAuthors merges author directories already in the library with
// committed authors from the catalog, for prompt stabilization.
func (p *Pipeline) knownAuthors(ctx context.Context, libraryDir string) ([]string, error) {
	seen := make(map[string]struct{})

	entries, err := os.ReadDir(libraryDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "list authors", "Failed to read library directory", err)
	}
	for _, entry := range entries {
		if entry.IsDir() && entry.Name() != shelf.QuarantineDirName {
			seen[entry.Name()] = struct{}{}
		}
	}

	recorded, err := p.store.CommittedAuthors(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "list authors", "Failed to read catalog authors", err)
	}
	for _, author := range recorded {
		seen[author] = struct{}{}
	}

	authors := make([]string, 0, len(seen))
	for author := range seen {
		authors = append(authors, author)
	}
	sort.Strings(authors)
	return authors, nil
}

func (p *Pipeline) processFile(ctx context.Context, file scan.SourceFile, placer *shelf.Placer, committed map[string]string, knownAuthors []string, summary *Summary) error {
	ctx = services.WithSourcePath(ctx, file.Path)
	logger := p.logger.With(logging.FieldFile, file.Path)

	fingerprint, err := fileFingerprint(file.Path)
	if err != nil {
		logger.Debug("could not fingerprint file", logging.Error(err))
	}

	// A committed path is only skipped while its content fingerprint still
	// matches; a replaced file at the same path is classified anew.
	if prior, done := committed[file.Path]; (done && (prior == "" || prior == fingerprint)) || placer.AlreadyPlaced(file.Path) {
		logger.Debug("skipping already placed file")
		summary.record(file.Path, OutcomeSkipped, "", "")
		return nil
	}

	snippet, err := p.extractor.Extract(file.Path)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.recordFailure(ctx, file, fingerprint, summary, err, 0)
		return nil
	}

	infer := func(ctx context.Context, attempt int) (classify.Candidate, error) {
		return p.classifier.Classify(ctx, classify.Request{
			SnippetText:  snippet.Text,
			SourcePath:   file.Path,
			KnownAuthors: knownAuthors,
		})
	}

	candidate, verdict, err := p.loop.Run(ctx, infer)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, services.ErrValidationExhausted) {
			p.quarantine(ctx, file, fingerprint, placer, summary, verdict)
			return nil
		}
		p.recordFailure(ctx, file, fingerprint, summary, err, verdict.Attempt)
		return nil
	}

	placement, err := placer.Place(ctx, file.Path, candidate)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.recordFailure(ctx, file, fingerprint, summary, err, verdict.Attempt)
		return nil
	}

	record := catalog.Record{
		RunID:       summary.RunID,
		SourcePath:  file.Path,
		Fingerprint: fingerprint,
		Status:      catalog.StatusCommitted,
		Author:      candidate.Author,
		Title:       candidate.Title,
		Language:    candidate.Language,
		FinalPath:   placement.FinalPath,
		Attempts:    verdict.Attempt,
	}
	if err := p.store.SaveRecord(ctx, record); err != nil {
		logger.Warn("failed to persist record", logging.Error(err))
	}
	summary.record(file.Path, OutcomeCommitted, "", "")
	return nil
}

func (p *Pipeline) quarantine(ctx context.Context, file scan.SourceFile, fingerprint string, placer *shelf.Placer, summary *Summary, verdict validate.Verdict) {
	logger := p.logger.With(logging.FieldFile, file.Path)

	placement, err := placer.Quarantine(ctx, file.Path)
	if err != nil {
		p.recordFailure(ctx, file, fingerprint, summary, err, verdict.Attempt)
		return
	}
	record := catalog.Record{
		RunID:        summary.RunID,
		SourcePath:   file.Path,
		Fingerprint:  fingerprint,
		Status:       catalog.StatusQuarantined,
		FinalPath:    placement.FinalPath,
		ErrorKind:    services.ErrorKind(services.ErrValidationExhausted),
		ErrorMessage: verdict.Reason,
		Attempts:     verdict.Attempt,
	}
	if err := p.store.SaveRecord(ctx, record); err != nil {
		logger.Warn("failed to persist record", logging.Error(err))
	}
	summary.record(file.Path, OutcomeQuarantined, services.ErrorKind(services.ErrValidationExhausted), verdict.Reason)
}

func (p *Pipeline) recordFailure(ctx context.Context, file scan.SourceFile, fingerprint string, summary *Summary, cause error, attempts int) {
	kind := failureKind(cause)
	logger := p.logger.With(logging.FieldFile, file.Path)
	logger.Error("file processing failed",
		logging.String(logging.FieldErrorKind, kind),
		logging.Error(cause))

	record := catalog.Record{
		RunID:        summary.RunID,
		SourcePath:   file.Path,
		Fingerprint:  fingerprint,
		Status:       catalog.StatusFailed,
		ErrorKind:    kind,
		ErrorMessage: cause.Error(),
		Attempts:     attempts,
	}
	if err := p.store.SaveRecord(ctx, record); err != nil {
		logger.Warn("failed to persist record", logging.Error(err))
	}
	summary.record(file.Path, OutcomeFailed, kind, cause.Error())
}

func failureKind(err error) string {
	var extractErr *extract.Error
	if errors.As(err, &extractErr) {
		return "extraction"
	}
	if kind := services.ErrorKind(err); kind != "" {
		return kind
	}
	return "unknown"
}

// fingerprintBytes bounds how much of a file the fingerprint hashes.
const fingerprintBytes = 256 * 1024

// fileFingerprint hashes the head of the file together with its size. Enough
// to notice a replaced file at a committed path without reading gigabytes.
func fileFingerprint(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, io.LimitReader(file, fingerprintBytes)); err != nil {
		return "", err
	}
	info, err := file.Stat()
	if err != nil {
		return "", err
	}
	fmt.Fprintf(hash, ":%d", info.Size())
	return hex.EncodeToString(hash.Sum(nil)), nil
}

func (p *Pipeline) workers() int {
	if p.cfg.Workflow.Workers > 0 {
		return p.cfg.Workflow.Workers
	}
	return 1
}
