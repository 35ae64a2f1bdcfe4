// Package filetree mirrors the board SD card in a flat, path keyed cache.
//
// Every folder size is the sum of the file sizes below it. Inserting or
// removing an entry moves the size of each cached ancestor by the same
// delta, and an entry is always removed with its whole subtree before
// being replaced.
package filetree

import (
	"context"
	"fmt"
	"path"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"smoothie-happy/events"
	"smoothie-happy/models"
)

// Root is the board filesystem root
const Root = "/"

// Lister lists the direct children of a board folder
type Lister interface {
	List(ctx context.Context, dir string) ([]models.FileEntry, error)
}

// Cache is the local mirror of a board filesystem
type Cache struct {
	address  string
	lister   Lister
	observer events.Observer

	mu      sync.RWMutex
	entries map[string]models.FileEntry
	size    int64
}

// New creates a new empty cache filled through lister
func New(address string, lister Lister, observer events.Observer) *Cache {
	return &Cache{
		address:  address,
		lister:   lister,
		observer: events.Or(observer),
		entries:  make(map[string]models.FileEntry),
	}
}

// ListFiles returns every entry below dir. A non-empty cached subtree is
// returned as is unless refresh is set; otherwise dir is listed again,
// with every sub folder listed concurrently. The cache is only updated
// once the whole subtree was fetched, a failure leaves it untouched.
func (c *Cache) ListFiles(ctx context.Context, dir string, refresh bool) ([]models.FileEntry, error) {
	dir = models.NormalizePath(dir)

	if !refresh {
		if entries := c.List(dir); len(entries) > 0 {
			return entries, nil
		}
	}

	fetched, err := c.fetch(ctx, dir)
	if err != nil {
		return nil, err
	}

	removed := c.commit(dir, fetched)
	c.emit(dir, removed)
	return c.List(dir), nil
}

// fetch lists dir and all its sub folders. The first failure cancels gctx,
// which withdraws the sibling listings still queued.
func (c *Cache) fetch(ctx context.Context, dir string) ([]models.FileEntry, error) {
	entries, err := c.lister.List(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	subtrees := make([][]models.FileEntry, len(entries))
	for i, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		i, entry := i, entry
		g.Go(func() error {
			sub, err := c.fetch(gctx, entry.Path)
			subtrees[i] = sub
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := append([]models.FileEntry(nil), entries...)
	for _, sub := range subtrees {
		all = append(all, sub...)
	}
	return all, nil
}

// commit replaces the subtree below dir with fetched
func (c *Cache) commit(dir string, fetched []models.FileEntry) int {
	sort.Slice(fetched, func(i, j int) bool { return fetched[i].Path < fetched[j].Path })

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, p := range c.descendants(dir) {
		removed += c.remove(p)
	}

	if dir != Root {
		if e, ok := c.entries[dir]; !ok || !e.IsDir() {
			c.set(models.NewFolder(models.Parent(dir), path.Base(dir)))
		}
	}

	// parents sort before their children
	for _, e := range fetched {
		c.set(e)
	}
	return removed
}

// Set inserts or replaces entry and its whole subtree.
func (c *Cache) Set(entry models.FileEntry) {
	c.mu.Lock()
	c.set(entry)
	c.mu.Unlock()

	c.emit(entry.Parent, 0)
}

// Remove deletes target and everything below it and returns the number of
// removed entries.
func (c *Cache) Remove(target string) int {
	target = models.NormalizePath(target)

	c.mu.Lock()
	n := c.remove(target)
	c.mu.Unlock()

	if n > 0 {
		c.emit(models.Parent(target), n)
	}
	return n
}

// Rename moves from and its subtree to to, keeping sizes. It reports
// whether from was cached.
func (c *Cache) Rename(from, to string) bool {
	from, to = models.NormalizePath(from), models.NormalizePath(to)

	c.mu.Lock()
	entry, ok := c.entries[from]
	if !ok {
		c.mu.Unlock()
		return false
	}

	moved := []models.FileEntry{entry}
	for _, p := range c.descendants(from) {
		moved = append(moved, c.entries[p])
	}
	c.remove(from)
	c.remove(to)

	sort.Slice(moved, func(i, j int) bool { return moved[i].Path < moved[j].Path })
	for _, e := range moved {
		p := to + e.Path[len(from):]
		e.Path = p
		e.Parent = models.Parent(p)
		if p == to {
			e.Name = path.Base(to)
			if !e.IsDir() {
				e.Extension = models.Extension(e.Name)
			}
		}
		c.set(e)
	}
	c.mu.Unlock()

	c.emit(models.Parent(to), 0)
	return true
}

// Get returns the entry cached at target
func (c *Cache) Get(target string) (models.FileEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[models.NormalizePath(target)]
	return e, ok
}

// Has reports whether target is cached
func (c *Cache) Has(target string) bool {
	_, ok := c.Get(target)
	return ok
}

// List returns a copy of every entry below dir, sorted by path
func (c *Cache) List(dir string) []models.FileEntry {
	dir = models.NormalizePath(dir)

	c.mu.RLock()
	defer c.mu.RUnlock()

	var list []models.FileEntry
	for p, e := range c.entries {
		if models.IsDescendant(dir, p) {
			list = append(list, e)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Path < list[j].Path })
	return list
}

// Size returns the cached size of target, the whole tree for "/"
func (c *Cache) Size(target string) int64 {
	target = models.NormalizePath(target)

	c.mu.RLock()
	defer c.mu.RUnlock()

	if target == Root {
		return c.size
	}
	return c.entries[target].Size
}

// Len returns the number of cached entries
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Tree returns the cached subtree below dir as nested folders
func (c *Cache) Tree(dir string) models.Folder {
	dir = models.NormalizePath(dir)

	root, ok := c.Get(dir)
	if !ok {
		root = models.FileEntry{Type: models.TypeFolder, Path: dir, Parent: models.Parent(dir), Name: path.Base(dir)}
		root.Size = c.Size(dir)
	}
	return models.BuildFolder(root, c.List(dir))
}

// set must be called with mu held
func (c *Cache) set(e models.FileEntry) {
	c.remove(e.Path)
	if e.IsDir() {
		// children bring their own size in
		e.Size = 0
	}
	c.entries[e.Path] = e
	c.updateSize(e.Parent, e.Size)
}

// remove must be called with mu held
func (c *Cache) remove(target string) int {
	e, ok := c.entries[target]
	if !ok {
		return 0
	}

	delete(c.entries, target)
	c.updateSize(e.Parent, -e.Size)

	removed := 1
	if e.IsDir() {
		for _, p := range c.descendants(target) {
			delete(c.entries, p)
			removed++
		}
	}
	return removed
}

// updateSize adds delta to the tree and to every cached ancestor,
// stopping at the first missing one
func (c *Cache) updateSize(parent string, delta int64) {
	if delta == 0 {
		return
	}
	c.size += delta

	for p := parent; p != Root; p = models.Parent(p) {
		e, ok := c.entries[p]
		if !ok {
			return
		}
		e.Size += delta
		c.entries[p] = e
	}
}

// descendants must be called with mu held
func (c *Cache) descendants(dir string) []string {
	var paths []string
	for p := range c.entries {
		if models.IsDescendant(dir, p) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths
}

func (c *Cache) emit(dir string, removed int) {
	c.observer.OnFileTree(events.FileTreeEvent{
		Address: c.address,
		Path:    dir,
		Entries: c.List(dir),
		Removed: removed,
		Size:    c.Size(dir),
		Time:    time.Now(),
	})
}
