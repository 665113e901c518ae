// Package ledger holds the append-only trackers: usage statistics, secrets and missions.
package ledger

import (
	"strings"
	"sync"

	"hackterm/internal/kvstore"
)

const statsKey = "stats.commands"

// Stats counts attempted command names.
type Stats struct {
	store kvstore.Store
	mu    sync.Mutex
}

// NewStats creates a usage counter over store.
func NewStats(store kvstore.Store) *Stats {
	return &Stats{store: store}
}

// Record counts one attempt of command, whether or not it exists.
func (s *Stats) Record(command string) {
	command = strings.ToLower(command)
	if command == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := s.load()
	counts[command]++
	kvstore.SetJSON(s.store, statsKey, counts)
}

// Counts returns a copy of the per-command counters.
func (s *Stats) Counts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Total returns the number of recorded commands.
func (s *Stats) Total() int {
	total := 0
	for _, n := range s.Counts() {
		total += n
	}
	return total
}

func (s *Stats) load() map[string]int {
	m := kvstore.GetJSON(s.store, statsKey, map[string]int{})
	if m == nil {
		m = map[string]int{}
	}
	return m
}
