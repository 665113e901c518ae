// Package servers holds the static target catalog and the persisted cracked set.
package servers

import (
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"hackterm/internal/hackterm"
	"hackterm/internal/kvstore"
)

const crackedKey = "servers.cracked"

// Registry is read-only over the catalog; only the cracked set grows.
type Registry struct {
	byIP  map[string]hackterm.ServerRecord
	order []string
	store kvstore.Store
	log   logrus.FieldLogger
	mu    sync.Mutex
}

// New builds a registry. Duplicate identifiers keep the first record.
func New(records []hackterm.ServerRecord, store kvstore.Store) *Registry {
	r := &Registry{
		byIP:  make(map[string]hackterm.ServerRecord, len(records)),
		store: store,
		log:   logrus.WithField("component", "servers"),
	}
	for _, rec := range records {
		if _, dup := r.byIP[rec.IP]; dup {
			continue
		}
		r.byIP[rec.IP] = rec
		r.order = append(r.order, rec.IP)
	}
	return r
}

// Lookup returns the catalog record for target.
func (r *Registry) Lookup(target string) (hackterm.ServerRecord, bool) {
	rec, ok := r.byIP[target]
	return rec, ok
}

// All returns the catalog in declaration order.
func (r *Registry) All() []hackterm.ServerRecord {
	out := make([]hackterm.ServerRecord, 0, len(r.order))
	for _, ip := range r.order {
		out = append(out, r.byIP[ip])
	}
	return out
}

// IsCracked reports whether target has been cracked.
func (r *Registry) IsCracked(target string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ip := range r.load() {
		if ip == target {
			return true
		}
	}
	return false
}

// MarkCracked adds target to the cracked set. The set never shrinks.
func (r *Registry) MarkCracked(target string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.load()
	for _, ip := range list {
		if ip == target {
			return
		}
	}
	if kvstore.SetJSON(r.store, crackedKey, append(list, target)) {
		r.log.WithField("target", target).Info("Server cracked")
	}
}

// Cracked returns every cracked target, sorted.
func (r *Registry) Cracked() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.load()
	sort.Strings(list)
	return list
}

func (r *Registry) load() []string {
	return kvstore.GetJSON(r.store, crackedKey, []string{})
}
