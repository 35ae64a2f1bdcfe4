package filetree

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smoothie-happy/events"
	"smoothie-happy/models"
)

// fakeLister serves listings from a map and counts calls per folder
type fakeLister struct {
	mu      sync.Mutex
	folders map[string][]models.FileEntry
	fail    map[string]bool
	calls   map[string]int
}

func newFakeLister() *fakeLister {
	return &fakeLister{
		folders: map[string][]models.FileEntry{
			"/sd": {
				models.NewFile("/sd", "config", 100),
				models.NewFolder("/sd", "a"),
				models.NewFolder("/sd", "empty"),
			},
			"/sd/a": {
				models.NewFile("/sd/a", "one.gcode", 10),
				models.NewFolder("/sd/a", "b"),
			},
			"/sd/a/b": {
				models.NewFile("/sd/a/b", "two.gcode", 20),
			},
			"/sd/empty": {},
		},
		fail:  map[string]bool{},
		calls: map[string]int{},
	}
}

func (f *fakeLister) List(_ context.Context, dir string) ([]models.FileEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[dir]++
	if f.fail[dir] {
		return nil, errors.New("Could not open directory")
	}
	return append([]models.FileEntry(nil), f.folders[dir]...), nil
}

func (f *fakeLister) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

type treeRecorder struct {
	events.Nop
	mu      sync.Mutex
	updates []events.FileTreeEvent
}

func (r *treeRecorder) OnFileTree(e events.FileTreeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, e)
}

func paths(entries []models.FileEntry) []string {
	var list []string
	for _, e := range entries {
		list = append(list, e.Path)
	}
	return list
}

func TestListFilesRecursive(t *testing.T) {
	lister := newFakeLister()
	rec := &treeRecorder{}
	c := New("board.local", lister, rec)

	entries, err := c.ListFiles(context.Background(), "/SD", false)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/sd/a",
		"/sd/a/b",
		"/sd/a/b/two.gcode",
		"/sd/a/one.gcode",
		"/sd/config",
		"/sd/empty",
	}, paths(entries))

	assert.Equal(t, int64(130), c.Size("/sd"))
	assert.Equal(t, int64(30), c.Size("/sd/a"))
	assert.Equal(t, int64(20), c.Size("/sd/a/b"))
	assert.Equal(t, int64(130), c.Size("/"))
	assert.Equal(t, 7, c.Len())

	rec.mu.Lock()
	require.Len(t, rec.updates, 1)
	assert.Equal(t, "/sd", rec.updates[0].Path)
	assert.Equal(t, int64(130), rec.updates[0].Size)
	rec.mu.Unlock()
}

func TestListFilesIsCached(t *testing.T) {
	lister := newFakeLister()
	c := New("board.local", lister, nil)

	first, err := c.ListFiles(context.Background(), "/sd", false)
	require.NoError(t, err)
	calls := lister.total()
	assert.Equal(t, 4, calls)

	second, err := c.ListFiles(context.Background(), "/sd", false)
	require.NoError(t, err)
	assert.Equal(t, calls, lister.total())
	assert.Equal(t, first, second)

	_, err = c.ListFiles(context.Background(), "/sd", true)
	require.NoError(t, err)
	assert.Equal(t, 2*calls, lister.total())
}

func TestSizeInvariant(t *testing.T) {
	c := New("board.local", newFakeLister(), nil)
	_, err := c.ListFiles(context.Background(), "/sd", false)
	require.NoError(t, err)

	before := map[string]int64{}
	for _, p := range []string{"/sd/a/b", "/sd/a", "/sd", "/"} {
		before[p] = c.Size(p)
	}

	c.Set(models.NewFile("/sd/a/b", "new.gcode", 7))
	for p, size := range before {
		assert.Equal(t, size+7, c.Size(p), p)
	}

	// replacing keeps a single copy
	c.Set(models.NewFile("/sd/a/b", "new.gcode", 9))
	for p, size := range before {
		assert.Equal(t, size+9, c.Size(p), p)
	}

	assert.Equal(t, 1, c.Remove("/sd/a/b/new.gcode"))
	for p, size := range before {
		assert.Equal(t, size, c.Size(p), p)
	}
}

func TestRemoveFolder(t *testing.T) {
	c := New("board.local", newFakeLister(), nil)
	_, err := c.ListFiles(context.Background(), "/sd", false)
	require.NoError(t, err)

	assert.Equal(t, 4, c.Remove("/sd/a"))
	assert.False(t, c.Has("/sd/a/b/two.gcode"))
	assert.Equal(t, int64(100), c.Size("/sd"))
	assert.Equal(t, 0, c.Remove("/sd/a"))
}

func TestTypeChangeDropsStaleChildren(t *testing.T) {
	c := New("board.local", newFakeLister(), nil)
	_, err := c.ListFiles(context.Background(), "/sd", false)
	require.NoError(t, err)

	c.Set(models.NewFile("/sd", "a", 5))
	assert.False(t, c.Has("/sd/a/one.gcode"))
	assert.False(t, c.Has("/sd/a/b"))
	assert.Equal(t, int64(105), c.Size("/sd"))
}

func TestRefreshReplacesOnlySubtree(t *testing.T) {
	lister := newFakeLister()
	c := New("board.local", lister, nil)
	_, err := c.ListFiles(context.Background(), "/sd", false)
	require.NoError(t, err)

	lister.mu.Lock()
	lister.folders["/sd/a/b"] = []models.FileEntry{models.NewFile("/sd/a/b", "three.gcode", 3)}
	lister.folders["/sd"] = nil
	lister.mu.Unlock()

	entries, err := c.ListFiles(context.Background(), "/sd/a", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"/sd/a/b", "/sd/a/b/three.gcode", "/sd/a/one.gcode"}, paths(entries))

	assert.True(t, c.Has("/sd/config"))
	assert.True(t, c.Has("/sd/empty"))
	assert.False(t, c.Has("/sd/a/b/two.gcode"))
	assert.Equal(t, int64(13), c.Size("/sd/a"))
	assert.Equal(t, int64(113), c.Size("/sd"))
}

func TestFailedRefreshLeavesCacheUntouched(t *testing.T) {
	lister := newFakeLister()
	c := New("board.local", lister, nil)
	before, err := c.ListFiles(context.Background(), "/sd", false)
	require.NoError(t, err)

	lister.mu.Lock()
	lister.fail["/sd/a/b"] = true
	lister.mu.Unlock()

	_, err = c.ListFiles(context.Background(), "/sd", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/sd/a/b")

	assert.Equal(t, before, c.List("/sd"))
	assert.Equal(t, int64(130), c.Size("/sd"))
}

func TestRename(t *testing.T) {
	c := New("board.local", newFakeLister(), nil)
	_, err := c.ListFiles(context.Background(), "/sd", false)
	require.NoError(t, err)

	assert.True(t, c.Rename("/sd/a", "/sd/empty/moved"))
	assert.False(t, c.Has("/sd/a"))

	moved, ok := c.Get("/sd/empty/moved/b/two.gcode")
	require.True(t, ok)
	assert.Equal(t, "/sd/empty/moved/b", moved.Parent)
	assert.Equal(t, int64(30), c.Size("/sd/empty"))
	assert.Equal(t, int64(130), c.Size("/sd"))

	assert.True(t, c.Rename("/sd/config", "/sd/config.txt"))
	renamed, ok := c.Get("/sd/config.txt")
	require.True(t, ok)
	assert.Equal(t, "config.txt", renamed.Name)
	assert.Equal(t, ".txt", renamed.Extension)

	assert.False(t, c.Rename("/sd/nope", "/sd/other"))
}

func TestTreeAndSnapshots(t *testing.T) {
	c := New("board.local", newFakeLister(), nil)
	entries, err := c.ListFiles(context.Background(), "/sd", false)
	require.NoError(t, err)

	// callers own their copy
	entries[0].Size = 999
	assert.Equal(t, int64(30), c.Size("/sd/a"))

	tree := c.Tree("/sd")
	assert.Equal(t, int64(130), tree.Entry.Size)
	require.Len(t, tree.Folders, 2)
	assert.Equal(t, "/sd/a", tree.Folders[0].Entry.Path)
	require.Len(t, tree.Files, 1)
	assert.Equal(t, "/sd/config", tree.Files[0].Path)
}
