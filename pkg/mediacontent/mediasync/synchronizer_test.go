package mediasync_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/media-content/pkg/mediacontent"
	"github.com/tendant/media-content/pkg/mediacontent/mediasync"
	fsstorage "github.com/tendant/media-content/pkg/mediacontent/storage/fs"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func writeMedia(t *testing.T, root string, files map[string][]byte) {
	t.Helper()
	for rel, data := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, data, 0644))
	}
}

func openMedia(t *testing.T, files map[string][]byte) *fsstorage.Directory {
	t.Helper()
	root := t.TempDir()
	writeMedia(t, root, files)
	dir, err := fsstorage.New(fsstorage.Config{BaseDir: root})
	require.NoError(t, err)
	return dir
}

// recordingSynchronizer remembers relative paths it was given and can fail
// for selected file names.
type recordingSynchronizer struct {
	name   string
	dir    mediacontent.MediaDirectory
	failOn string

	mu    sync.Mutex
	calls []string
}

func (r *recordingSynchronizer) Name() string { return r.name }

func (r *recordingSynchronizer) SynchronizeFiles(ctx context.Context, files []mediacontent.FileEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range files {
		rel, err := r.dir.RelativePath(f.Path)
		if err != nil {
			return err
		}
		r.calls = append(r.calls, rel)
		if r.failOn != "" && f.Name == r.failOn {
			return errors.New("synchronizer failure")
		}
	}
	return nil
}

func (r *recordingSynchronizer) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]string(nil), r.calls...)
	sort.Strings(out)
	return out
}

func TestNewSynchronizer(t *testing.T) {
	dir := openMedia(t, nil)

	_, err := mediasync.New(nil, dir, mediasync.NewPool())
	assert.Error(t, err)

	_, err = mediasync.New(mediasync.StaticDirectory(dir), nil, mediasync.NewPool())
	assert.Error(t, err)

	s, err := mediasync.New(mediasync.StaticDirectory(dir), dir, nil)
	require.NoError(t, err)
	assert.NoError(t, s.Execute(context.Background()))
}

func TestSynchronizerExecute(t *testing.T) {
	dir := openMedia(t, map[string][]byte{
		"a.jpg":          []byte("a"),
		"b.gif":          []byte("b"),
		"readme.md":      []byte("# readme"),
		"excluded/c.png": []byte("c"),
	})
	rec := &recordingSynchronizer{name: "recorder", dir: dir}

	s, err := mediasync.New(mediasync.StaticDirectory(dir), dir, mediasync.NewPool(rec),
		mediasync.WithExcludedDirectories("excluded"),
		mediasync.WithLogger(quietLogger()),
		mediasync.WithWorkers(4),
	)
	require.NoError(t, err)

	require.NoError(t, s.Execute(context.Background()))
	assert.Equal(t, []string{"a.jpg", "b.gif"}, rec.seen())
}

func TestSynchronizerPartialFailure(t *testing.T) {
	dir := openMedia(t, map[string][]byte{
		"a.jpg": []byte("a"),
		"x.png": []byte("x"),
	})
	failing := &recordingSynchronizer{name: "failing", dir: dir, failOn: "x.png"}
	healthy := &recordingSynchronizer{name: "healthy", dir: dir}

	s, err := mediasync.New(mediasync.StaticDirectory(dir), dir, mediasync.NewPool(failing, healthy),
		mediasync.WithLogger(quietLogger()),
	)
	require.NoError(t, err)

	err = s.Execute(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, mediacontent.ErrSyncFailed)

	var runErr *mediacontent.SyncRunError
	require.ErrorAs(t, err, &runErr)
	require.Len(t, runErr.Failures, 1)
	assert.Equal(t, "failing", runErr.Failures[0].Synchronizer)
	assert.Equal(t, filepath.Join(dir.AbsolutePath(), "x.png"), runErr.Failures[0].Path)
	assert.Contains(t, err.Error(), "x.png")

	assert.Equal(t, []string{"a.jpg", "x.png"}, failing.seen())
	assert.Equal(t, []string{"a.jpg", "x.png"}, healthy.seen())
}

func TestSynchronizerIgnoresNonSynchronizers(t *testing.T) {
	dir := openMedia(t, map[string][]byte{"a.jpg": []byte("a")})
	rec := &recordingSynchronizer{name: "recorder", dir: dir}

	pool := mediasync.NewPool("not a synchronizer", rec, 42)
	assert.Equal(t, 1, pool.Len())

	s, err := mediasync.New(mediasync.StaticDirectory(dir), dir, pool, mediasync.WithLogger(quietLogger()))
	require.NoError(t, err)
	require.NoError(t, s.Execute(context.Background()))
	assert.Equal(t, []string{"a.jpg"}, rec.seen())
}

func TestSynchronizerResolvesDirectoryOnce(t *testing.T) {
	dir := openMedia(t, map[string][]byte{"a.jpg": []byte("a")})
	calls := 0
	resolve := func(ctx context.Context) (mediacontent.MediaDirectory, error) {
		calls++
		return dir, nil
	}

	s, err := mediasync.New(resolve, dir, mediasync.NewPool(), mediasync.WithLogger(quietLogger()))
	require.NoError(t, err)
	require.NoError(t, s.Execute(context.Background()))
	require.NoError(t, s.Execute(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestSynchronizerResolveError(t *testing.T) {
	dir := openMedia(t, nil)
	resolve := func(ctx context.Context) (mediacontent.MediaDirectory, error) {
		return nil, errors.New("unavailable")
	}
	s, err := mediasync.New(resolve, dir, mediasync.NewPool())
	require.NoError(t, err)

	err = s.Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unavailable")
}

type failingWalker struct {
	root string
}

func (w failingWalker) Walk(ctx context.Context, root string) iter.Seq2[mediacontent.FileEntry, error] {
	return func(yield func(mediacontent.FileEntry, error) bool) {
		if !yield(mediacontent.FileEntry{Path: filepath.Join(w.root, "broken")}, errors.New("permission denied")) {
			return
		}
		yield(mediacontent.FileEntry{Path: filepath.Join(w.root, "a.jpg"), Name: "a.jpg"}, nil)
	}
}

func TestSynchronizerRecordsWalkErrors(t *testing.T) {
	dir := openMedia(t, map[string][]byte{"a.jpg": []byte("a")})
	rec := &recordingSynchronizer{name: "recorder", dir: dir}

	s, err := mediasync.New(mediasync.StaticDirectory(dir), failingWalker{root: dir.AbsolutePath()}, mediasync.NewPool(rec),
		mediasync.WithLogger(quietLogger()),
	)
	require.NoError(t, err)

	err = s.Execute(context.Background())
	var runErr *mediacontent.SyncRunError
	require.ErrorAs(t, err, &runErr)
	require.Len(t, runErr.Failures, 1)
	assert.Equal(t, "walker", runErr.Failures[0].Synchronizer)
	assert.Equal(t, []string{"a.jpg"}, rec.seen())
}

// unreadableWalker fails on one directory entry before yielding a.jpg.
type unreadableWalker struct {
	root   string
	broken string
}

func (w unreadableWalker) Walk(ctx context.Context, root string) iter.Seq2[mediacontent.FileEntry, error] {
	return func(yield func(mediacontent.FileEntry, error) bool) {
		if !yield(mediacontent.FileEntry{Path: filepath.Join(w.root, filepath.FromSlash(w.broken))}, errors.New("permission denied")) {
			return
		}
		yield(mediacontent.FileEntry{Path: filepath.Join(w.root, "a.jpg"), Name: "a.jpg"}, nil)
	}
}

func TestSynchronizerIgnoresWalkErrorsInExcludedDirectories(t *testing.T) {
	dir := openMedia(t, map[string][]byte{"a.jpg": []byte("a")})

	for _, broken := range []string{"excluded/cache", "excluded/cache/x.jpg", "excluded"} {
		t.Run(broken, func(t *testing.T) {
			rec := &recordingSynchronizer{name: "recorder", dir: dir}
			s, err := mediasync.New(mediasync.StaticDirectory(dir), unreadableWalker{root: dir.AbsolutePath(), broken: broken}, mediasync.NewPool(rec),
				mediasync.WithExcludedDirectories("excluded"),
				mediasync.WithLogger(quietLogger()),
			)
			require.NoError(t, err)

			require.NoError(t, s.Execute(context.Background()))
			assert.Equal(t, []string{"a.jpg"}, rec.seen())
		})
	}
}

func TestSynchronizerPrunesExcludedDirectories(t *testing.T) {
	dir := openMedia(t, map[string][]byte{
		"a.jpg":                 []byte("a"),
		"tmp/cache/b.jpg":       []byte("b"),
		"catalog/product/c.png": []byte("c"),
		"catalog/d.png":         []byte("d"),
	})
	locked := filepath.Join(dir.AbsolutePath(), "tmp", "cache")
	require.NoError(t, os.Chmod(locked, 0))
	t.Cleanup(func() { _ = os.Chmod(locked, 0755) })

	rec := &recordingSynchronizer{name: "recorder", dir: dir}
	s, err := mediasync.New(mediasync.StaticDirectory(dir), dir, mediasync.NewPool(rec),
		mediasync.WithExcludedDirectories(mediasync.DefaultExcludedDirectories()...),
		mediasync.WithLogger(quietLogger()),
	)
	require.NoError(t, err)

	require.NoError(t, s.Execute(context.Background()))
	assert.Equal(t, []string{"a.jpg", "catalog/d.png"}, rec.seen())
}

func TestSynchronizerCancelled(t *testing.T) {
	dir := openMedia(t, map[string][]byte{"a.jpg": []byte("a")})
	rec := &recordingSynchronizer{name: "recorder", dir: dir}

	s, err := mediasync.New(mediasync.StaticDirectory(dir), dir, mediasync.NewPool(rec), mediasync.WithLogger(quietLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = s.Execute(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.seen())
}

func TestSyncRunErrorMessage(t *testing.T) {
	err := &mediacontent.SyncRunError{Failures: []mediacontent.SyncFailure{
		{Path: "/m/p1.jpg", Synchronizer: "s", Err: errors.New("x")},
		{Path: "/m/p2.jpg", Synchronizer: "s", Err: errors.New("y")},
	}}
	assert.True(t, strings.HasPrefix(err.Error(), "could not synchronize assets: "))
	assert.Contains(t, err.Error(), "/m/p1.jpg, /m/p2.jpg")
}
