package watch_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/hotserve/pkg/watch"
)

func waitForEvent(t *testing.T, events <-chan watch.Event, path string) watch.Event {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatalf("events closed before %s was seen", path)
			}
			if ev.Path == path {
				return ev
			}
		case <-deadline:
			t.Fatalf("timeout waiting for event on %s", path)
		}
	}
}

func TestNewProducer_EmptyWatchSet(t *testing.T) {
	_, err := watch.NewProducer(nil)
	assert.ErrorIs(t, err, watch.ErrEmptyWatchSet)
}

func TestNewProducer_MissingPathIsSetupError(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "does-not-exist")

	p, err := watch.NewProducer([]string{dir, missing})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Nil(t, p)
}

func TestProducer_EmitsFileWrites(t *testing.T) {
	dir := t.TempDir()
	p, err := watch.NewProducer([]string{dir})
	require.NoError(t, err)
	defer p.Close()

	file := filepath.Join(dir, "app.yaml")
	require.NoError(t, os.WriteFile(file, []byte("a: 1\n"), 0o644))

	ev := waitForEvent(t, p.Events(), file)
	assert.False(t, ev.Time.IsZero())
}

func TestProducer_WatchesRecursively(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "routes", "v1")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	p, err := watch.NewProducer([]string{dir})
	require.NoError(t, err)
	defer p.Close()

	file := filepath.Join(nested, "users.yaml")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	waitForEvent(t, p.Events(), file)
}

func TestProducer_FollowsNewDirectories(t *testing.T) {
	dir := t.TempDir()
	p, err := watch.NewProducer([]string{dir})
	require.NoError(t, err)
	defer p.Close()

	fresh := filepath.Join(dir, "fresh")
	require.NoError(t, os.Mkdir(fresh, 0o755))
	waitForEvent(t, p.Events(), fresh)

	// The new directory is picked up asynchronously; keep writing until an
	// event from inside it arrives.
	file := filepath.Join(fresh, "late.txt")
	assert.Eventually(t, func() bool {
		_ = os.WriteFile(file, []byte(time.Now().String()), 0o644)
		select {
		case ev := <-p.Events():
			return ev.Path == file
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 3*time.Second, 10*time.Millisecond)
}

func TestProducer_WatchesSingleFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "app.json")
	require.NoError(t, os.WriteFile(file, []byte("{}"), 0o644))

	p, err := watch.NewProducer([]string{file})
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, os.WriteFile(file, []byte(`{"a":1}`), 0o644))
	waitForEvent(t, p.Events(), file)
}

func TestProducer_CloseClosesEvents(t *testing.T) {
	dir := t.TempDir()
	p, err := watch.NewProducer([]string{dir})
	require.NoError(t, err)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	select {
	case _, ok := <-p.Events():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Events not closed after Close")
	}
}

func TestProducer_Paths(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	p, err := watch.NewProducer([]string{a, b})
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, []string{a, b}, p.Paths())
	assert.Zero(t, p.Errors())
}

func TestProducer_SurvivesAtomicSave(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "app.yaml")
	require.NoError(t, os.WriteFile(file, []byte("a: 1\n"), 0o644))

	p, err := watch.NewProducer([]string{file})
	require.NoError(t, err)
	defer p.Close()

	tmp := filepath.Join(dir, ".app.yaml.swp")
	require.NoError(t, os.WriteFile(tmp, []byte("a: 2\n"), 0o644))
	require.NoError(t, os.Rename(tmp, file))
	waitForEvent(t, p.Events(), file)

	// The replacement file must still be watched.
	assert.Eventually(t, func() bool {
		if err := os.WriteFile(file, []byte("a: 3\n"), 0o644); err != nil {
			return false
		}
		timeout := time.After(50 * time.Millisecond)
		for {
			select {
			case ev := <-p.Events():
				if ev.Path == file && ev.Op.Has(fsnotify.Write) {
					return true
				}
			case <-timeout:
				return false
			}
		}
	}, 3*time.Second, 10*time.Millisecond)
}

func TestProducer_IgnoresSiblingsOfWatchedFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "app.yaml")
	require.NoError(t, os.WriteFile(file, []byte("a: 1\n"), 0o644))

	p, err := watch.NewProducer([]string{file})
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(file, []byte("a: 2\n"), 0o644))

	select {
	case ev := <-p.Events():
		assert.Equal(t, file, ev.Path)
	case <-time.After(3 * time.Second):
		t.Fatal("no event for the watched file")
	}
}
