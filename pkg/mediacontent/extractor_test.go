package mediacontent_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/media-content/pkg/mediacontent"
	"github.com/tendant/media-content/pkg/mediacontent/repo/memory"
)

func TestMarkupExtractorReferencedPaths(t *testing.T) {
	e := mediacontent.NewMarkupExtractor(memory.New(), "/media")

	tests := []struct {
		name     string
		content  string
		expected []string
	}{
		{
			name:     "media directive",
			content:  `<p>{{media url="wysiwyg/banner.jpg"}}</p>`,
			expected: []string{"wysiwyg/banner.jpg"},
		},
		{
			name:     "escaped media directive",
			content:  `<img src="{{media url=&quot;wysiwyg/a.png&quot;}}" alt="">`,
			expected: []string{"wysiwyg/a.png"},
		},
		{
			name:     "unquoted media directive",
			content:  `{{media url=catalog/b.gif}}`,
			expected: []string{"catalog/b.gif"},
		},
		{
			name:     "directive path with a space",
			content:  `{{media url="wysiwyg/my banner.jpg"}}`,
			expected: []string{"wysiwyg/my banner.jpg"},
		},
		{
			name:     "directive path with an ampersand",
			content:  `{{media url="wysiwyg/R&D.jpg"}}`,
			expected: []string{"wysiwyg/R&D.jpg"},
		},
		{
			name:     "escaped directive path with an ampersand",
			content:  `<img src="{{media url=&quot;wysiwyg/R&amp;D.jpg&quot;}}">`,
			expected: []string{"wysiwyg/R&D.jpg"},
		},
		{
			name:     "directive path with an apostrophe",
			content:  `{{media url="wysiwyg/it's.jpg"}}`,
			expected: []string{"wysiwyg/it's.jpg"},
		},
		{
			name:     "single quoted directive path with a double quote",
			content:  `{{media url='wysiwyg/5" screen.jpg'}}`,
			expected: []string{`wysiwyg/5" screen.jpg`},
		},
		{
			name:     "src attribute with an apostrophe",
			content:  `<img src="/media/wysiwyg/it's.jpg">`,
			expected: []string{"wysiwyg/it's.jpg"},
		},
		{
			name:     "img src under media prefix",
			content:  `<img src="/media/catalog/c.png?v=2"><img src='https://shop.test/media/d%20e.jpg'>`,
			expected: []string{"catalog/c.png", "d e.jpg"},
		},
		{
			name:     "src outside media prefix is ignored",
			content:  `<img src="/static/logo.png">`,
			expected: nil,
		},
		{
			name:     "duplicates collapse",
			content:  `{{media url="a.jpg"}} <img src="/media/a.jpg"> {{media url='a.jpg'}}`,
			expected: []string{"a.jpg"},
		},
		{
			name:     "plain text",
			content:  "no markup here",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, e.ReferencedPaths(tt.content))
		})
	}
}

func TestMarkupExtractorExtract(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	known := &mediacontent.Asset{ID: uuid.New(), Path: "wysiwyg/known.jpg", Title: "known"}
	require.NoError(t, repo.SaveAsset(ctx, known))

	e := mediacontent.NewMarkupExtractor(repo, "/media/")
	assets, err := e.Extract(ctx, `{{media url="wysiwyg/known.jpg"}} {{media url="wysiwyg/unknown.jpg"}}`)
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "wysiwyg/known.jpg", assets[known.ID].Path)
}
