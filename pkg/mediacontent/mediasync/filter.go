package mediasync

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/tendant/media-content/pkg/mediacontent"
)

var imageFileNamePattern = regexp.MustCompile(`(?i)\.(jpg|jpeg|gif|png)$`)

// EligibilityFilter decides whether a walked file is handed to synchronizers.
type EligibilityFilter struct {
	dir      mediacontent.MediaDirectory
	excluded *ExcludedDirectories
	logger   *slog.Logger
}

// NewEligibilityFilter creates a filter for files under dir
func NewEligibilityFilter(dir mediacontent.MediaDirectory, excluded *ExcludedDirectories, logger *slog.Logger) *EligibilityFilter {
	if logger == nil {
		logger = slog.Default()
	}
	return &EligibilityFilter{dir: dir, excluded: excluded, logger: logger}
}

// IsApplicable returns true when path lies within the media root, is not in
// an excluded directory and has an image extension. A path that cannot be
// resolved against the root is logged and rejected.
func (f *EligibilityFilter) IsApplicable(ctx context.Context, path string) bool {
	rel, err := f.dir.RelativePath(path)
	if err != nil {
		f.logger.Log(ctx, mediacontent.LevelCritical, "Failed to resolve media path", "path", path, "error", err)
		return false
	}
	return rel != "" &&
		!f.excluded.IsExcluded(rel) &&
		imageFileNamePattern.MatchString(path)
}

// IsExcluded reports whether path lies inside an excluded directory. Paths
// that cannot be resolved against the root are not considered excluded.
func (f *EligibilityFilter) IsExcluded(path string) bool {
	rel, err := f.dir.RelativePath(path)
	if err != nil || rel == "" {
		return false
	}
	return f.excluded.IsExcluded(rel)
}
