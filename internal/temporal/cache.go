package temporal

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/banshee-data/nusconv/internal/fsutil"
)

// Scope identifies the radar captures of one scene.
type Scope struct {
	Log   string
	Team  string
	Scene string
}

// Lister returns the capture files available for a scope. A missing
// directory should be reported with an error wrapping fs.ErrNotExist.
type Lister interface {
	List(scope Scope) ([]string, error)
}

// DirLister lists <Root>/<log>/<team>/<scene>/*.pcd through a FileSystem.
type DirLister struct {
	FS   fsutil.FileSystem
	Root string
	Ext  string
}

// NewDirLister returns a DirLister for .pcd files under root.
func NewDirLister(fsys fsutil.FileSystem, root string) *DirLister {
	return &DirLister{FS: fsys, Root: root, Ext: ".pcd"}
}

// Dir returns the capture directory for scope.
func (l *DirLister) Dir(scope Scope) string {
	return filepath.Join(l.Root, scope.Log, scope.Team, scope.Scene)
}

// List implements Lister.
func (l *DirLister) List(scope Scope) ([]string, error) {
	dir := l.Dir(scope)
	entries, err := l.FS.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), l.Ext) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// Cache holds one Index per scope, built lazily on first query.
// A Cache is not safe for concurrent use.
type Cache struct {
	lister  Lister
	indexes map[Scope]*Index
}

// NewCache returns a Cache that lists captures with lister.
func NewCache(lister Lister) *Cache {
	return &Cache{lister: lister, indexes: make(map[Scope]*Index)}
}

// Index returns the index for scope, building it if needed. A scope
// whose directory does not exist gets an empty index.
func (c *Cache) Index(scope Scope) (*Index, error) {
	if idx, ok := c.indexes[scope]; ok {
		return idx, nil
	}
	paths, err := c.lister.List(scope)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		paths = nil
	}
	idx := Build(paths)
	c.indexes[scope] = idx
	return idx, nil
}

// Nearest builds the scope's index if needed and returns the capture
// closest to ts.
func (c *Cache) Nearest(scope Scope, ts int64) (Capture, bool, error) {
	idx, err := c.Index(scope)
	if err != nil {
		return Capture{}, false, err
	}
	capture, ok := idx.Nearest(ts)
	return capture, ok, nil
}

// Lookup queries an already built scope without touching the lister.
// Scopes that were never built report no match.
func (c *Cache) Lookup(scope Scope, ts int64) (Capture, bool) {
	idx, ok := c.indexes[scope]
	if !ok {
		return Capture{}, false
	}
	return idx.Nearest(ts)
}
