// Package sessions tracks simulated hack sessions, at most one per target.
package sessions

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"hackterm/internal/hackterm"
	"hackterm/internal/kvstore"
)

const storeKey = "sessions"

// Registry persists the active sessions as one JSON array.
type Registry struct {
	store kvstore.Store
	now   hackterm.Clock
	log   logrus.FieldLogger
	mu    sync.Mutex
}

// New creates a registry over store. A nil clock means time.Now.
func New(store kvstore.Store, now hackterm.Clock) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{
		store: store,
		now:   now,
		log:   logrus.WithField("component", "sessions"),
	}
}

// Add starts a session for target, replacing any existing one.
func (r *Registry) Add(target string, dataSize int, level hackterm.AccessLevel) hackterm.HackSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := hackterm.HackSession{
		TargetIP:    target,
		StartTime:   r.now().UnixMilli(),
		DataSize:    dataSize,
		AccessLevel: level,
	}
	list := r.load()
	kept := list[:0]
	for _, existing := range list {
		if existing.TargetIP != target {
			kept = append(kept, existing)
		}
	}
	kept = append(kept, s)
	r.save(kept)
	r.log.WithFields(logrus.Fields{"target": target, "access": level}).Info("Session established")
	return s
}

// Remove ends the session for target and reports whether one existed.
func (r *Registry) Remove(target string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.load()
	kept := list[:0]
	for _, s := range list {
		if s.TargetIP != target {
			kept = append(kept, s)
		}
	}
	if len(kept) == len(list) {
		return false
	}
	r.save(kept)
	r.log.WithField("target", target).Info("Session closed")
	return true
}

// Get returns the session for target.
func (r *Registry) Get(target string) (hackterm.HackSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.load() {
		if s.TargetIP == target {
			return s, true
		}
	}
	return hackterm.HackSession{}, false
}

// List returns every active session in creation order.
func (r *Registry) List() []hackterm.HackSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

// Clear ends every session and returns how many were active.
func (r *Registry) Clear() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.load())
	kvstore.Delete(r.store, storeKey)
	if n > 0 {
		r.log.WithField("count", n).Info("All sessions closed")
	}
	return n
}

// Elapsed returns how long s has been active.
func (r *Registry) Elapsed(s hackterm.HackSession) time.Duration {
	d := time.Duration(r.now().UnixMilli()-s.StartTime) * time.Millisecond
	if d < 0 {
		return 0
	}
	return d
}

// FormatDuration renders d as "Xm Ys" when minutes > 0, else "Ys".
func FormatDuration(d time.Duration) string {
	secs := int64(d / time.Second)
	if m := secs / 60; m > 0 {
		return fmt.Sprintf("%dm %ds", m, secs%60)
	}
	return fmt.Sprintf("%ds", secs)
}

func (r *Registry) load() []hackterm.HackSession {
	return kvstore.GetJSON(r.store, storeKey, []hackterm.HackSession{})
}

func (r *Registry) save(list []hackterm.HackSession) {
	kvstore.SetJSON(r.store, storeKey, list)
}
