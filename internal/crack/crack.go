// Package crack implements the password-guessing mini-game against catalogued servers.
package crack

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"hackterm/internal/hackterm"
	"hackterm/internal/kvstore"
	"hackterm/internal/servers"
)

const attemptsKey = "crack.attempts"

// Mask symbols.
const (
	Present = '?' // character exists at another position
	Absent  = '_'
)

// Unlocker makes simulated files readable.
type Unlocker interface {
	Unlock(path string)
}

// Outcome is the result of one crack attempt.
type Outcome struct {
	Success bool
	Mask    string
	Message string
	Attempt *hackterm.CrackAttempt // nil when the attempt was rejected before recording
}

// Engine evaluates guesses and persists the latest attempt per target.
type Engine struct {
	servers *servers.Registry
	files   Unlocker
	store   kvstore.Store
	log     logrus.FieldLogger
	mu      sync.Mutex
}

// New creates an engine. files may be nil.
func New(reg *servers.Registry, files Unlocker, store kvstore.Store) *Engine {
	return &Engine{
		servers: reg,
		files:   files,
		store:   store,
		log:     logrus.WithField("component", "crack"),
	}
}

// Attempt checks password against target.
func (e *Engine) Attempt(target, password string) Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Checks run in a fixed order. The first four never consume an attempt.
	rec, ok := e.servers.Lookup(target)
	if !ok {
		return Outcome{Message: fmt.Sprintf("Target %s not found. Run 'scan' to discover targets.", target)}
	}
	// Open servers are reached with 'hack' directly.
	if !rec.RequiresCracking {
		return Outcome{Message: fmt.Sprintf("Target %s is not password protected. Use 'hack %s'.", target, target)}
	}
	// Cracked is terminal; later guesses are not counted against the server.
	if e.servers.IsCracked(target) {
		return Outcome{Message: fmt.Sprintf("Target %s has already been cracked.", target)}
	}

	attempts := e.load()
	maxAttempts := rec.Difficulty.MaxAttempts()
	count := attempts[target].Attempts + 1
	// Lockout: the attempt that would exceed the ceiling is refused, not recorded.
	if count > maxAttempts {
		return Outcome{Message: fmt.Sprintf("Maximum attempts (%d) reached. Server %s is locked.", maxAttempts, target)}
	}

	guess := strings.ToUpper(password)
	actual := strings.ToUpper(rec.Password)
	attempt := hackterm.CrackAttempt{
		Target:      target,
		Password:    guess,
		Attempts:    count,
		MaxAttempts: maxAttempts,
	}
	log := e.log.WithFields(logrus.Fields{"target": target, "attempt": count})

	// Comparison is case-insensitive. A wrong length still costs an attempt and
	// still returns a mask so the player learns something.
	if len([]rune(guess)) != len([]rune(actual)) {
		attempt.Mask = GenerateMask(guess, actual)
		e.record(attempts, attempt)
		log.Debug("Crack attempt with wrong length")
		return Outcome{
			Mask:    attempt.Mask,
			Message: fmt.Sprintf("Incorrect password length. Expected %d characters, got %d.", len([]rune(actual)), len([]rune(guess))),
			Attempt: &attempt,
		}
	}

	if guess == actual {
		// Success unlocks every file the server guards and reveals the full password as the mask.
		e.servers.MarkCracked(target)
		if e.files != nil {
			for _, p := range rec.UnlockFiles {
				e.files.Unlock(p)
			}
		}
		attempt.Mask = actual
		attempt.IsCracked = true
		e.record(attempts, attempt)
		log.Info("Crack succeeded")
		return Outcome{
			Success: true,
			Mask:    attempt.Mask,
			Message: fmt.Sprintf("ACCESS GRANTED: %s (%s) cracked in %d %s.", target, rec.Name, count, plural(count, "attempt")),
			Attempt: &attempt,
		}
	}

	attempt.Mask = GenerateMask(guess, actual)
	e.record(attempts, attempt)
	remaining := maxAttempts - count
	log.Debug("Crack attempt failed")
	return Outcome{
		Mask:    attempt.Mask,
		Message: fmt.Sprintf("Access denied. %d %s remaining.", remaining, plural(remaining, "attempt")),
		Attempt: &attempt,
	}
}

// Status returns the latest attempt recorded against target.
func (e *Engine) Status(target string) (hackterm.CrackAttempt, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.load()[target]
	return a, ok
}

// All returns every recorded attempt sorted by target.
func (e *Engine) All() []hackterm.CrackAttempt {
	e.mu.Lock()
	defer e.mu.Unlock()
	m := e.load()
	out := make([]hackterm.CrackAttempt, 0, len(m))
	for _, a := range m {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Target < out[j].Target })
	return out
}

// Clear forgets the attempt record for target and reports whether one existed.
func (e *Engine) Clear(target string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	m := e.load()
	if _, ok := m[target]; !ok {
		return false
	}
	delete(m, target)
	return kvstore.SetJSON(e.store, attemptsKey, m)
}

// ClearAll forgets every attempt record.
func (e *Engine) ClearAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	kvstore.Delete(e.store, attemptsKey)
}

func (e *Engine) load() map[string]hackterm.CrackAttempt {
	m := kvstore.GetJSON(e.store, attemptsKey, map[string]hackterm.CrackAttempt{})
	if m == nil {
		m = map[string]hackterm.CrackAttempt{}
	}
	return m
}

func (e *Engine) record(m map[string]hackterm.CrackAttempt, a hackterm.CrackAttempt) {
	m[a.Target] = a
	kvstore.SetJSON(e.store, attemptsKey, m)
}

// GenerateMask compares guess with password, both upper-cased.
// Exact positions keep the character, characters present elsewhere in the
// unconsumed password become '?', the rest '_'. A short guess is padded with '_'.
func GenerateMask(guess, password string) string {
	g := []rune(strings.ToUpper(guess))
	p := []rune(strings.ToUpper(password))

	mask := make([]rune, len(g))
	consumed := make([]bool, len(p))

	// Exact hits first, so they are never spent on a '?' elsewhere.
	for i := range g {
		if i < len(p) && g[i] == p[i] {
			mask[i] = g[i]
			consumed[i] = true
		}
	}

	// Each password character can justify at most one '?'.
	for i := range g {
		if mask[i] != 0 {
			continue
		}
		mask[i] = Absent
		for j := range p {
			if j != i && !consumed[j] && p[j] == g[i] {
				mask[i] = Present
				consumed[j] = true
				break
			}
		}
	}

	for len(mask) < len(p) {
		mask = append(mask, Absent)
	}
	return string(mask)
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
