// Package vfs is the simulated file system the terminal commands browse.
package vfs

import (
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"hackterm/internal/config"
	"hackterm/internal/kvstore"
)

// Home is the working directory of every terminal user.
const Home = "/home/user"

const (
	unlockedKey = "vfs.unlocked"
	createdKey  = "vfs.created"
)

// FS overlays persisted unlocks and created files on the catalog's static files.
type FS struct {
	files map[string]config.File
	store kvstore.Store
	log   logrus.FieldLogger
	mu    sync.Mutex
}

// New builds a file system from catalog files.
func New(files []config.File, store kvstore.Store) *FS {
	m := make(map[string]config.File, len(files))
	for _, f := range files {
		m[f.Path] = f
	}
	return &FS{
		files: m,
		store: store,
		log:   logrus.WithField("component", "vfs"),
	}
}

// Resolve turns a user-supplied path into an absolute clean path.
// Relative paths and "~" are taken relative to Home.
func Resolve(p string) string {
	switch {
	case p == "" || p == "~":
		return Home
	case strings.HasPrefix(p, "~/"):
		p = Home + p[1:]
	case !strings.HasPrefix(p, "/"):
		p = Home + "/" + p
	}
	return path.Clean(p)
}

// Lookup returns the file at p. Locked reflects the persisted unlock set.
func (fs *FS) Lookup(p string) (config.File, bool) {
	p = Resolve(p)
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if content, ok := fs.created()[p]; ok {
		return config.File{Path: p, Content: content}, true
	}
	f, ok := fs.files[p]
	if !ok {
		return config.File{}, false
	}
	if f.Locked && fs.unlocked()[p] {
		f.Locked = false
	}
	return f, true
}

// IsDir reports whether p contains any file.
func (fs *FS) IsDir(p string) bool {
	_, ok := fs.List(p)
	return ok
}

// List returns the sorted entry names directly under dir; directories end with "/".
func (fs *FS) List(dir string) ([]string, bool) {
	dir = Resolve(dir)
	prefix := dir + "/"
	if dir == "/" {
		prefix = "/"
	}

	fs.mu.Lock()
	all := make([]string, 0, len(fs.files))
	for p := range fs.files {
		all = append(all, p)
	}
	for p := range fs.created() {
		all = append(all, p)
	}
	fs.mu.Unlock()

	seen := make(map[string]bool)
	for _, p := range all {
		rest, ok := strings.CutPrefix(p, prefix)
		if !ok || rest == "" {
			continue
		}
		if i := strings.Index(rest, "/"); i >= 0 {
			seen[rest[:i+1]] = true
		} else {
			seen[rest] = true
		}
	}
	if len(seen) == 0 {
		return nil, false
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, true
}

// Unlock makes a locked catalog file readable. Unknown paths are ignored.
func (fs *FS) Unlock(p string) {
	p = Resolve(p)
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, ok := fs.files[p]; !ok {
		fs.log.WithField("path", p).Warn("Unlock requested for unknown file")
		return
	}
	set := fs.unlocked()
	if set[p] {
		return
	}
	set[p] = true
	paths := make([]string, 0, len(set))
	for k := range set {
		paths = append(paths, k)
	}
	sort.Strings(paths)
	if kvstore.SetJSON(fs.store, unlockedKey, paths) {
		fs.log.WithField("path", p).Info("File unlocked")
	}
}

// Create writes a plain text file, replacing any earlier created file at p.
func (fs *FS) Create(p, content string) bool {
	p = Resolve(p)
	fs.mu.Lock()
	defer fs.mu.Unlock()

	created := fs.created()
	created[p] = content
	return kvstore.SetJSON(fs.store, createdKey, created)
}

// callers hold fs.mu
func (fs *FS) unlocked() map[string]bool {
	paths := kvstore.GetJSON(fs.store, unlockedKey, []string{})
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		set[p] = true
	}
	return set
}

// callers hold fs.mu
func (fs *FS) created() map[string]string {
	m := kvstore.GetJSON(fs.store, createdKey, map[string]string{})
	if m == nil {
		m = map[string]string{}
	}
	return m
}
