// Package ingest turns filesystem paths into raw sources for the
// indexer. The walker resolves CLI path arguments; the watcher follows
// directories and re-feeds changed paths through the same pipeline.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/loci-labs/loci/internal/core/domain"
	"github.com/loci-labs/loci/internal/logger"
)

// DefaultMaxFileSize caps how large a file the walker reads.
const DefaultMaxFileSize = 10 << 20 // 10 MiB

// DefaultIgnores returns the names skipped in every walk unless the
// config overrides them.
func DefaultIgnores() []string {
	return []string{".git", "node_modules"}
}

// sourceTypeByExt maps file extensions to the source type recorded for
// them. Extensions outside this map are not indexable by the walker.
var sourceTypeByExt = map[string]domain.SourceType{
	".md":       domain.SourceTypeMarkdown,
	".markdown": domain.SourceTypeMarkdown,
	".txt":      domain.SourceTypeText,
	".text":     domain.SourceTypeText,
}

// WalkerConfig holds walker settings.
type WalkerConfig struct {
	// Project is stamped on every source the walker emits.
	Project string

	// Ignores lists names and glob patterns to skip. Nil means
	// DefaultIgnores(); hidden entries are always skipped.
	Ignores []string

	// MaxFileSize is the per-file size cap in bytes.
	MaxFileSize int64
}

// Walker resolves path arguments (files or directories) into raw
// sources for indexing.
type Walker struct {
	project string
	ignores []string
	maxSize int64
}

// NewWalker creates a walker, applying defaults for zero values.
func NewWalker(cfg WalkerConfig) *Walker {
	if cfg.Ignores == nil {
		cfg.Ignores = DefaultIgnores()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	return &Walker{
		project: cfg.Project,
		ignores: cfg.Ignores,
		maxSize: cfg.MaxFileSize,
	}
}

// Walk resolves each argument into raw sources. Directories are walked
// recursively. A missing argument path fails the walk; a problem file
// inside a directory is skipped with a warning so one bad file cannot
// sink a whole run.
func (w *Walker) Walk(ctx context.Context, paths []string) ([]domain.RawSource, error) {
	var sources []domain.RawSource

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolving path %q: %w", p, err)
		}

		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("root path error: %w", err)
		}

		if info.IsDir() {
			if err := w.walkDir(ctx, abs, &sources); err != nil {
				return nil, err
			}
			continue
		}

		// A file named explicitly fails loudly instead of being
		// silently skipped.
		src, err := w.loadArg(abs, info)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}

	return sources, nil
}

func (w *Walker) walkDir(ctx context.Context, root string, out *[]domain.RawSource) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walking %s: %w", path, err)
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}

		name := d.Name()
		if d.IsDir() {
			if path != root && (w.ignored(name) || isHidden(name)) {
				return filepath.SkipDir
			}
			return nil
		}
		if w.ignored(name) || isHidden(name) {
			return nil
		}

		st, ok := sourceTypeByExt[strings.ToLower(filepath.Ext(name))]
		if !ok {
			return nil
		}

		info, ierr := d.Info()
		if ierr != nil {
			logger.Warn("skipping %s: %v", path, ierr)
			return nil
		}
		if info.Size() > w.maxSize {
			logger.Warn("skipping %s: %d bytes over the %d byte cap", path, info.Size(), w.maxSize)
			return nil
		}

		src, rerr := w.read(path, st, info)
		if rerr != nil {
			logger.Warn("skipping %s: %v", path, rerr)
			return nil
		}
		*out = append(*out, src)
		return nil
	})
}

// loadArg loads a file the user named directly on the command line.
func (w *Walker) loadArg(path string, info fs.FileInfo) (domain.RawSource, error) {
	ext := strings.ToLower(filepath.Ext(path))
	st, ok := sourceTypeByExt[ext]
	if !ok {
		return domain.RawSource{}, fmt.Errorf("%w: unsupported file type %q", domain.ErrInvalidInput, ext)
	}
	if info.Size() > w.maxSize {
		return domain.RawSource{}, fmt.Errorf("%w: %s is %d bytes, over the %d byte cap",
			domain.ErrInvalidInput, path, info.Size(), w.maxSize)
	}
	return w.read(path, st, info)
}

func (w *Walker) read(path string, st domain.SourceType, info fs.FileInfo) (domain.RawSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.RawSource{}, fmt.Errorf("reading %s: %w", path, err)
	}

	// The file mtime is the date fallback; parsers override it from
	// frontmatter when the document carries its own date.
	mtime := info.ModTime().UTC()

	return domain.RawSource{
		Path: path,
		Data: data,
		Meta: domain.DocumentMeta{
			SourcePath: path,
			Project:    w.project,
			SourceType: st,
			SourceDate: &mtime,
		},
	}, nil
}

func (w *Walker) ignored(name string) bool {
	return matchesIgnores(name, w.ignores)
}

// matchesIgnores checks one path element against exact names and glob
// patterns.
func matchesIgnores(name string, patterns []string) bool {
	for _, pat := range patterns {
		if pat == name {
			return true
		}
		if ok, err := filepath.Match(pat, name); err == nil && ok {
			return true
		}
	}
	return false
}

// indexableExt reports whether the walker knows the file's extension.
func indexableExt(path string) bool {
	_, ok := sourceTypeByExt[strings.ToLower(filepath.Ext(path))]
	return ok
}

// isHidden reports whether a single path element is a dotfile.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
