// Package scan enumerates candidate book files under the source root.
package scan

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"bindery/internal/extract"
	"bindery/internal/logging"
	"bindery/internal/services"
)

// SourceFile is one enumerated file. Ext is lowercased with the leading dot.
type SourceFile struct {
	Path string
	Ext  string
	Size int64
}

// Walker enumerates regular files under a root, skipping the excluded
// subtrees (sandbox, library, quarantine) when they nest under it.
type Walker struct {
	excludes []string
	logger   *slog.Logger
}

func NewWalker(excludes []string, logger *slog.Logger) *Walker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Walker{
		excludes: excludes,
		logger:   logger.With(logging.FieldComponent, "scan"),
	}
}

// Walk returns every regular file under root outside the excluded subtrees.
// Order is not significant.
func (w *Walker) Walk(root string) ([]SourceFile, error) {
	var files []SourceFile

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			if path != root && w.excluded(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		files = append(files, SourceFile{
			Path: path,
			Ext:  strings.ToLower(filepath.Ext(path)),
			Size: info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "scan", "walk", "Failed to enumerate source files", err)
	}

	w.logger.Debug("enumerated source tree",
		logging.String("root", root),
		logging.Int("files", len(files)))
	return files, nil
}

func (w *Walker) excluded(path string) bool {
	for _, exclude := range w.excludes {
		if exclude == "" {
			continue
		}
		rel, err := filepath.Rel(exclude, path)
		if err != nil {
			continue
		}
		if rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))) {
			return true
		}
	}
	return false
}

// ExtensionStat is one row of the survey: how many files carry the
// extension and whether a sample file yielded text.
type ExtensionStat struct {
	Ext         string
	Count       int
	SamplePath  string
	Extractable bool
	Detail      string
}

// SampleExtractor is the slice of the extractor the survey needs.
type SampleExtractor interface {
	Supported(ext string) bool
	Extract(path string) (extract.Snippet, error)
}

// Survey builds an extension census of the walked files and probes one
// sample file per extension through the extractor.
func Survey(files []SourceFile, extractor SampleExtractor) []ExtensionStat {
	byExt := make(map[string]*ExtensionStat)
	for _, file := range files {
		stat, ok := byExt[file.Ext]
		if !ok {
			stat = &ExtensionStat{Ext: file.Ext, SamplePath: file.Path}
			byExt[file.Ext] = stat
		}
		stat.Count++
	}

	stats := make([]ExtensionStat, 0, len(byExt))
	for _, stat := range byExt {
		if extractor == nil || !extractor.Supported(stat.Ext) {
			stat.Detail = "no reader registered"
		} else if _, err := extractor.Extract(stat.SamplePath); err != nil {
			stat.Detail = err.Error()
		} else {
			stat.Extractable = true
		}
		stats = append(stats, *stat)
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Ext < stats[j].Ext
	})
	return stats
}
