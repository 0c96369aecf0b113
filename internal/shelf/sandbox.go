package shelf

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"bindery/internal/logging"
	"bindery/internal/services"
)

// SandboxWorkDirName is the working-copy subtree inside the sandbox root.
const SandboxWorkDirName = "working"

// PrepareSandbox mirrors the source tree into the sandbox working directory
// and returns the working root. Files already present in the sandbox are
// kept, so a re-run resumes against the same working copy instead of
// clobbering earlier placements. Directories listed in excludes (and the
// sandbox itself, if nested under the source) are not copied.
func PrepareSandbox(ctx context.Context, sourceRoot, sandboxDir string, excludes []string, logger *slog.Logger) (string, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.With(logging.FieldComponent, "sandbox")

	workRoot := filepath.Join(sandboxDir, SandboxWorkDirName)
	if err := os.MkdirAll(workRoot, 0o755); err != nil {
		return "", services.Wrap(services.ErrPlacement, stageName, "ensure sandbox", "Failed to create sandbox working directory", err)
	}

	skipDirs := append([]string{sandboxDir}, excludes...)
	copied := 0
	reused := 0

	err := filepath.WalkDir(sourceRoot, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() {
			for _, skip := range skipDirs {
				if skip != "" && pathWithin(path, skip) {
					return filepath.SkipDir
				}
			}
			return nil
		}
		if !entry.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(sourceRoot, path)
		if err != nil {
			return err
		}
		target := filepath.Join(workRoot, rel)
		if _, err := os.Stat(target); err == nil {
			reused++
			return nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err := CopyFile(path, target); err != nil {
			return err
		}
		copied++
		return nil
	})
	if err != nil {
		return "", services.Wrap(services.ErrPlacement, stageName, "prepare sandbox", "Failed to mirror source tree into sandbox", err)
	}

	logger.Info("sandbox ready",
		logging.String("work_root", workRoot),
		logging.Int("copied", copied),
		logging.Int("reused", reused))
	return workRoot, nil
}

func pathWithin(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
