package mediasync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tendant/media-content/pkg/mediacontent"
	"golang.org/x/sync/errgroup"
)

// DirectoryResolver returns the media root handle.
type DirectoryResolver func(ctx context.Context) (mediacontent.MediaDirectory, error)

// StaticDirectory returns a resolver for an already opened directory
func StaticDirectory(dir mediacontent.MediaDirectory) DirectoryResolver {
	return func(ctx context.Context) (mediacontent.MediaDirectory, error) {
		return dir, nil
	}
}

// Synchronizer drives the pool of file synchronizers over every eligible file
// of the media directory.
type Synchronizer struct {
	resolve  DirectoryResolver
	walker   mediacontent.DirectoryWalker
	pool     *Pool
	excluded *ExcludedDirectories
	logger   *slog.Logger
	workers  int

	mu  sync.Mutex
	dir mediacontent.MediaDirectory
}

// Option configures a Synchronizer
type Option func(*Synchronizer)

// WithExcludedDirectories sets the excluded directory prefixes
func WithExcludedDirectories(prefixes ...string) Option {
	return func(s *Synchronizer) {
		s.excluded = NewExcludedDirectories(prefixes...)
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Synchronizer) {
		s.logger = logger
	}
}

// WithWorkers sets how many files are synchronized at once
func WithWorkers(n int) Option {
	return func(s *Synchronizer) {
		if n > 0 {
			s.workers = n
		}
	}
}

// New creates a Synchronizer
func New(resolve DirectoryResolver, walker mediacontent.DirectoryWalker, pool *Pool, options ...Option) (*Synchronizer, error) {
	if resolve == nil {
		return nil, fmt.Errorf("media directory resolver is required")
	}
	if walker == nil {
		return nil, fmt.Errorf("directory walker is required")
	}
	if pool == nil {
		pool = NewPool()
	}

	s := &Synchronizer{
		resolve:  resolve,
		walker:   walker,
		pool:     pool,
		excluded: NewExcludedDirectories(),
		logger:   slog.Default(),
		workers:  1,
	}
	for _, option := range options {
		option(s)
	}
	return s, nil
}

// Execute walks the media directory and synchronizes every eligible file with
// every pool member. A failure for one file and synchronizer is logged and
// recorded and the run continues. When any failure was recorded, Execute
// returns a *mediacontent.SyncRunError listing the failed paths after all
// files were attempted.
//
// Cancelling ctx stops dispatching further files; files already in progress
// finish and the context error is returned.
func (s *Synchronizer) Execute(ctx context.Context) error {
	dir, err := s.mediaDirectory(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve media directory: %w", err)
	}
	filter := NewEligibilityFilter(dir, s.excluded, s.logger)
	members := s.pool.Get()

	var (
		mu       sync.Mutex
		failures []mediacontent.SyncFailure
	)
	record := func(f mediacontent.SyncFailure) {
		mu.Lock()
		defer mu.Unlock()
		failures = append(failures, f)
	}

	var g errgroup.Group
	g.SetLimit(s.workers)

	entries := s.walker.Walk(ctx, dir.AbsolutePath())
	if pruning, ok := s.walker.(mediacontent.PruningWalker); ok {
		entries = pruning.WalkPruned(ctx, dir.AbsolutePath(), filter.IsExcluded)
	}

	var interrupted error
	for entry, walkErr := range entries {
		if err := ctx.Err(); err != nil {
			interrupted = err
			break
		}
		if walkErr != nil {
			if filter.IsExcluded(entry.Path) {
				s.logger.Debug("Ignoring unreadable entry in excluded directory", "path", entry.Path, "error", walkErr)
				continue
			}
			s.logger.Log(ctx, mediacontent.LevelCritical, "Failed to read media directory entry",
				"path", entry.Path, "error", walkErr)
			record(mediacontent.SyncFailure{Path: entry.Path, Synchronizer: "walker", Err: walkErr})
			continue
		}
		if !filter.IsApplicable(ctx, entry.Path) {
			continue
		}

		g.Go(func() error {
			s.synchronize(ctx, entry, members, record)
			return nil
		})
	}
	_ = g.Wait()

	if interrupted == nil {
		interrupted = ctx.Err()
	}
	if interrupted != nil {
		return fmt.Errorf("media synchronization interrupted: %w", interrupted)
	}
	if len(failures) > 0 {
		return &mediacontent.SyncRunError{Failures: failures}
	}
	return nil
}

func (s *Synchronizer) synchronize(ctx context.Context, entry mediacontent.FileEntry, members []FilesSynchronizer, record func(mediacontent.SyncFailure)) {
	for _, member := range members {
		if ctx.Err() != nil {
			return
		}
		if err := member.SynchronizeFiles(ctx, []mediacontent.FileEntry{entry}); err != nil {
			name := synchronizerName(member)
			s.logger.Log(ctx, mediacontent.LevelCritical, "Failed to synchronize media file",
				"path", entry.Path, "synchronizer", name, "error", err)
			record(mediacontent.SyncFailure{Path: entry.Path, Synchronizer: name, Err: err})
		}
	}
}

// mediaDirectory resolves the media root once and caches it.
func (s *Synchronizer) mediaDirectory(ctx context.Context) (mediacontent.MediaDirectory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dir == nil {
		dir, err := s.resolve(ctx)
		if err != nil {
			return nil, err
		}
		s.dir = dir
	}
	return s.dir, nil
}
