package mediacontent

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	// {{media url="path"}}, {{media url='path'}}, {{media url=&quot;path&quot;}}, {{media url=path}}
	mediaDirectivePattern = regexp.MustCompile(`\{\{media url=(?:"([^"]+)"|'([^']+)'|&quot;(.+?)&quot;|([^\s}]+))\s*\}\}`)

	// <img ... src="..."> and background/srcset style src attributes
	srcAttributePattern = regexp.MustCompile(`(?i)src\s*=\s*(?:"([^"]+)"|'([^']+)')`)
)

// firstGroup returns the first non-empty capture group of a match.
func firstGroup(match []string) string {
	for _, g := range match[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}

// MarkupExtractor extracts asset references from content markup and resolves
// them to assets through an AssetRepository. References to paths with no
// asset record are ignored.
type MarkupExtractor struct {
	assets      AssetRepository
	mediaPrefix string
}

// NewMarkupExtractor creates an extractor. mediaPrefix is the public path or
// URL the media directory is served under (e.g. "/media/" or
// "https://cdn.example.com/media/"); src attributes outside it are ignored.
func NewMarkupExtractor(assets AssetRepository, mediaPrefix string) *MarkupExtractor {
	if mediaPrefix == "" {
		mediaPrefix = "/media/"
	}
	if !strings.HasSuffix(mediaPrefix, "/") {
		mediaPrefix += "/"
	}
	return &MarkupExtractor{assets: assets, mediaPrefix: mediaPrefix}
}

// Extract implements AssetExtractor
func (e *MarkupExtractor) Extract(ctx context.Context, content string) (map[uuid.UUID]*Asset, error) {
	result := make(map[uuid.UUID]*Asset)
	for _, path := range e.ReferencedPaths(content) {
		asset, err := e.assets.GetAssetByPath(ctx, path)
		if err != nil {
			if errors.Is(err, ErrAssetNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to resolve asset %s: %w", path, err)
		}
		result[asset.ID] = asset
	}
	return result, nil
}

// ReferencedPaths returns the distinct media-relative paths referenced in
// content, in order of first appearance.
func (e *MarkupExtractor) ReferencedPaths(content string) []string {
	var paths []string
	seen := make(map[string]bool)
	add := func(p string) {
		p = normalizeMediaPath(p)
		if p == "" || seen[p] {
			return
		}
		seen[p] = true
		paths = append(paths, p)
	}

	for _, m := range mediaDirectivePattern.FindAllStringSubmatch(content, -1) {
		add(firstGroup(m))
	}
	for _, m := range srcAttributePattern.FindAllStringSubmatch(content, -1) {
		src := html.UnescapeString(firstGroup(m))
		if strings.Contains(src, "{{media url=") {
			// already handled by the directive pattern
			continue
		}
		if rel, ok := e.trimMediaPrefix(src); ok {
			add(rel)
		}
	}
	return paths
}

func (e *MarkupExtractor) trimMediaPrefix(src string) (string, bool) {
	if rel, ok := strings.CutPrefix(src, e.mediaPrefix); ok {
		return rel, true
	}
	// Absolute URLs are matched on their path against a path-only prefix
	if u, err := url.Parse(src); err == nil && u.Host != "" && strings.HasPrefix(e.mediaPrefix, "/") {
		return strings.CutPrefix(u.Path, e.mediaPrefix)
	}
	return "", false
}

func normalizeMediaPath(p string) string {
	p = strings.TrimSpace(html.UnescapeString(p))
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if unescaped, err := url.PathUnescape(p); err == nil {
		p = unescaped
	}
	return strings.TrimLeft(p, "/")
}
