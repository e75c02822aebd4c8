package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/tendant/media-content/pkg/mediacontent"
)

// Directory is a media directory on the local filesystem. It implements
// mediacontent.MediaDirectory and mediacontent.DirectoryWalker.
type Directory struct {
	baseDir string
}

// Config options for the filesystem media directory
type Config struct {
	BaseDir string // Root of the media tree
}

// New opens an existing media directory
func New(config Config) (*Directory, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	abs, err := filepath.Abs(config.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to open media directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("media directory %s is not a directory", abs)
	}

	return &Directory{baseDir: filepath.Clean(abs)}, nil
}

// AbsolutePath returns the absolute root of the media tree
func (d *Directory) AbsolutePath() string {
	return d.baseDir
}

// RelativePath returns path relative to the media root with forward slashes.
// The root itself yields an empty path.
func (d *Directory) RelativePath(path string) (string, error) {
	if !filepath.IsAbs(path) {
		return "", fmt.Errorf("path %s is not absolute", path)
	}
	rel, err := filepath.Rel(d.baseDir, filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	if rel == "." {
		return "", nil
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside media directory %s", path, d.baseDir)
	}
	return filepath.ToSlash(rel), nil
}

// Open opens a file by its path relative to the media root
func (d *Directory) Open(ctx context.Context, relativePath string) (io.ReadCloser, error) {
	local := filepath.FromSlash(relativePath)
	if !filepath.IsLocal(local) {
		return nil, fmt.Errorf("invalid media path %s", relativePath)
	}

	file, err := os.Open(filepath.Join(d.baseDir, local))
	if err != nil {
		return nil, err
	}
	return file, nil
}

// Walk yields every regular file under root. Read errors are yielded with the
// failing path and the walk continues.
func (d *Directory) Walk(ctx context.Context, root string) iter.Seq2[mediacontent.FileEntry, error] {
	return d.WalkPruned(ctx, root, nil)
}

// WalkPruned is Walk without descending into directories for which skipDir
// returns true. Pruned directories are never read.
func (d *Directory) WalkPruned(ctx context.Context, root string, skipDir func(path string) bool) iter.Seq2[mediacontent.FileEntry, error] {
	return func(yield func(mediacontent.FileEntry, error) bool) {
		_ = filepath.WalkDir(root, func(path string, entry iofs.DirEntry, err error) error {
			if ctx.Err() != nil {
				return filepath.SkipAll
			}
			if entry != nil && entry.IsDir() && path != root && skipDir != nil && skipDir(path) {
				return filepath.SkipDir
			}
			if err != nil {
				if !yield(mediacontent.FileEntry{Path: path, Name: filepath.Base(path)}, err) {
					return filepath.SkipAll
				}
				return nil
			}
			if entry.IsDir() || !entry.Type().IsRegular() {
				return nil
			}

			info, err := entry.Info()
			if err != nil {
				if !yield(mediacontent.FileEntry{Path: path, Name: entry.Name()}, err) {
					return filepath.SkipAll
				}
				return nil
			}

			file := mediacontent.FileEntry{
				Path:    path,
				Name:    entry.Name(),
				Size:    info.Size(),
				ModTime: info.ModTime(),
			}
			if !yield(file, nil) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}
