package mediasync

import (
	"path/filepath"
	"strings"
)

// DefaultExcludedDirectories returns media subdirectories that hold generated
// or system files rather than library assets.
func DefaultExcludedDirectories() []string {
	return []string{
		"captcha",
		"catalog/product",
		"customer",
		"downloadable",
		"import",
		"theme",
		"theme_customization",
		"tmp",
		".thumbs",
		".renditions",
	}
}

// ExcludedDirectories is a set of directory prefixes, relative to the media
// root, whose files are never synchronized.
type ExcludedDirectories struct {
	prefixes []string
}

// NewExcludedDirectories normalizes the given prefixes. Leading and trailing
// slashes are ignored; empty prefixes are dropped.
func NewExcludedDirectories(prefixes ...string) *ExcludedDirectories {
	e := &ExcludedDirectories{}
	for _, p := range prefixes {
		p = strings.Trim(filepath.ToSlash(strings.TrimSpace(p)), "/")
		if p == "" {
			continue
		}
		e.prefixes = append(e.prefixes, p)
	}
	return e
}

// IsExcluded reports whether relativePath lies inside an excluded directory
func (e *ExcludedDirectories) IsExcluded(relativePath string) bool {
	if e == nil {
		return false
	}
	p := strings.TrimLeft(filepath.ToSlash(relativePath), "/")
	for _, prefix := range e.prefixes {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	return false
}

// Prefixes returns the normalized prefixes
func (e *ExcludedDirectories) Prefixes() []string {
	if e == nil {
		return nil
	}
	return append([]string(nil), e.prefixes...)
}
