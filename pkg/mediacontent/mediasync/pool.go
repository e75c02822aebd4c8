package mediasync

import (
	"context"
	"fmt"

	"github.com/tendant/media-content/pkg/mediacontent"
)

// FilesSynchronizer synchronizes a batch of media files with the asset
// database. Implementations must be safe to call again for the same file.
type FilesSynchronizer interface {
	SynchronizeFiles(ctx context.Context, files []mediacontent.FileEntry) error
}

// FilesSynchronizerFunc adapts a function to the FilesSynchronizer interface.
type FilesSynchronizerFunc func(ctx context.Context, files []mediacontent.FileEntry) error

func (f FilesSynchronizerFunc) SynchronizeFiles(ctx context.Context, files []mediacontent.FileEntry) error {
	return f(ctx, files)
}

// Pool is an ordered collection of synchronizers.
type Pool struct {
	members []FilesSynchronizer
}

// NewPool keeps, in order, the members that implement FilesSynchronizer.
// Members with other capabilities are dropped here, once, rather than checked
// for every file.
func NewPool(members ...any) *Pool {
	p := &Pool{}
	for _, m := range members {
		if s, ok := m.(FilesSynchronizer); ok {
			p.members = append(p.members, s)
		}
	}
	return p
}

// Get returns the file synchronizers in pool order
func (p *Pool) Get() []FilesSynchronizer {
	return append([]FilesSynchronizer(nil), p.members...)
}

// Len returns the number of file synchronizers
func (p *Pool) Len() int {
	return len(p.members)
}

func synchronizerName(s FilesSynchronizer) string {
	if named, ok := s.(interface{ Name() string }); ok {
		return named.Name()
	}
	return fmt.Sprintf("%T", s)
}
