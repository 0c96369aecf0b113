// Package shelf decides where classified files live and moves them there.
package shelf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"bindery/internal/classify"
	"bindery/internal/logging"
	"bindery/internal/services"
)

const stageName = "place"

// maxCollisionSlots bounds the numeric disambiguator search.
const maxCollisionSlots = 1000

// Status is a placement outcome.
type Status string

const (
	StatusCommitted   Status = "committed"
	StatusQuarantined Status = "quarantined"
)

// Placement records where a file ended up.
type Placement struct {
	FinalPath string
	Status    Status
}

// Placer moves classified files into the library tree. With DryRun set it
// resolves destinations without touching the filesystem. Safe for concurrent
// use: allocation and move run under one lock so two workers cannot claim
// the same destination and overwrite each other.
type Placer struct {
	libraryDir string
	dryRun     bool
	logger     *slog.Logger

	mu sync.Mutex
}

func NewPlacer(libraryDir string, dryRun bool, logger *slog.Logger) *Placer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Placer{
		libraryDir: libraryDir,
		dryRun:     dryRun,
		logger:     logger.With(logging.FieldComponent, stageName),
	}
}

// LibraryDir returns the root the placer commits into.
func (p *Placer) LibraryDir() string { return p.libraryDir }

// AlreadyPlaced reports whether a path lies inside the library tree.
func (p *Placer) AlreadyPlaced(path string) bool {
	rel, err := filepath.Rel(p.libraryDir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && rel != "."
}

// Place moves the file to its canonical destination under the library root.
// Name collisions get a numeric suffix; sanitization collapse of distinct
// metadata counts as a collision too.
func (p *Placer) Place(ctx context.Context, sourcePath string, candidate classify.Candidate) (Placement, error) {
	logger := logging.WithContext(ctx, p.logger)
	p.mu.Lock()
	defer p.mu.Unlock()

	authorDir := filepath.Join(p.libraryDir, AuthorDirName(candidate))
	name := FileName(candidate, filepath.Ext(sourcePath))
	target, err := p.allocate(authorDir, name)
	if err != nil {
		return Placement{}, err
	}

	if p.dryRun {
		logger.Info("would place file",
			logging.String("source", sourcePath),
			logging.String("target", target))
		return Placement{FinalPath: target, Status: StatusCommitted}, nil
	}

	if err := os.MkdirAll(authorDir, 0o755); err != nil {
		return Placement{}, services.Wrap(services.ErrPlacement, stageName, "ensure author dir", "Failed to create author directory", err)
	}
	if err := p.moveFile(ctx, sourcePath, target); err != nil {
		return Placement{}, err
	}

	logger.Info("placed file",
		logging.String("source", sourcePath),
		logging.String("target", target),
		logging.String("author", candidate.Author))
	return Placement{FinalPath: target, Status: StatusCommitted}, nil
}

// Quarantine moves a file that never validated into the quarantine bucket.
func (p *Placer) Quarantine(ctx context.Context, sourcePath string) (Placement, error) {
	logger := logging.WithContext(ctx, p.logger)
	p.mu.Lock()
	defer p.mu.Unlock()

	quarantineDir := filepath.Join(p.libraryDir, QuarantineDirName)
	target, err := p.allocate(quarantineDir, QuarantineFileName(sourcePath))
	if err != nil {
		return Placement{}, err
	}

	if p.dryRun {
		logger.Info("would quarantine file",
			logging.String("source", sourcePath),
			logging.String("target", target))
		return Placement{FinalPath: target, Status: StatusQuarantined}, nil
	}

	if err := os.MkdirAll(quarantineDir, 0o755); err != nil {
		return Placement{}, services.Wrap(services.ErrPlacement, stageName, "ensure quarantine dir", "Failed to create quarantine directory", err)
	}
	if err := p.moveFile(ctx, sourcePath, target); err != nil {
		return Placement{}, err
	}

	logger.Info("quarantined file",
		logging.String("source", sourcePath),
		logging.String("target", target))
	return Placement{FinalPath: target, Status: StatusQuarantined}, nil
}

// allocate resolves the first free path for name under dir, appending -1,
// -2, ... before the extension when taken.
func (p *Placer) allocate(dir, name string) (string, error) {
	candidate := filepath.Join(dir, name)
	free, err := pathFree(candidate)
	if err != nil {
		return "", services.Wrap(services.ErrPlacement, stageName, "allocate filename", "Unable to probe destination path", err)
	}
	if free {
		return candidate, nil
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for slot := 1; slot <= maxCollisionSlots; slot++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s-%d%s", stem, slot, ext))
		free, err := pathFree(candidate)
		if err != nil {
			return "", services.Wrap(services.ErrPlacement, stageName, "allocate filename", "Unable to probe destination path", err)
		}
		if free {
			return candidate, nil
		}
	}
	return "", services.Wrap(services.ErrPlacement, stageName, "allocate filename",
		fmt.Sprintf("Exhausted filename slots for %s in %s", name, dir), nil)
}

func pathFree(path string) (bool, error) {
	_, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

func (p *Placer) moveFile(ctx context.Context, source, target string) error {
	logger := logging.WithContext(ctx, p.logger)

	renameErr := os.Rename(source, target)
	if renameErr == nil {
		return nil
	}

	var linkErr *os.LinkError
	if errors.As(renameErr, &linkErr) && errors.Is(linkErr.Err, syscall.EXDEV) {
		if copyErr := CopyFile(source, target); copyErr != nil {
			return services.Wrap(services.ErrPlacement, stageName, "copy file", "Failed to copy file across filesystems", copyErr)
		}
		if err := os.Remove(source); err != nil {
			logger.Warn("failed to remove source file after cross-device copy", logging.Error(err))
		}
		return nil
	}
	return services.Wrap(services.ErrPlacement, stageName, "move file", "Failed to move file into place", renameErr)
}

// CopyFile copies src to dst, creating parent directories.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
