// Package virus implements the infection state machine and its trigger detection.
package virus

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"hackterm/internal/hackterm"
	"hackterm/internal/kvstore"
)

const (
	stateKey = "virus.state"

	// Timeout is how long a non-permanent infection runs before the system is destroyed.
	Timeout = 45 * time.Second

	// Forever is the TimeRemaining reported for permanent kinds.
	Forever int64 = math.MaxInt64
)

var codes = map[hackterm.VirusKind]string{
	hackterm.VirusTrojan:     "ALPHA-DEFENSE-2077",
	hackterm.VirusHoneypot:   "HONEYPOT-BREAK-42",
	hackterm.VirusPrototype:  "PROTOTYPE-KILL-SWITCH",
	hackterm.VirusAdware:     "LAIN-DISCONNECT-2077",
	hackterm.VirusCorruption: "UNICODE-FIX-UTF8",
}

// DeactivationCode returns the cure code for kind. Unknown kinds use the trojan code.
func DeactivationCode(kind hackterm.VirusKind) string {
	if c, ok := codes[kind]; ok {
		return c
	}
	return codes[hackterm.VirusTrojan]
}

// CheckDeactivationCode compares code with the kind's cure code, ignoring case and surrounding space.
func CheckDeactivationCode(code string, kind hackterm.VirusKind) bool {
	return strings.EqualFold(strings.TrimSpace(code), DeactivationCode(kind))
}

// InfectHook runs after an infection starts. Its failure never blocks the infection.
type InfectHook func(kind hackterm.VirusKind) error

// Option configures a Machine.
type Option func(*Machine)

// WithInfectHook registers a hook run on every new infection.
func WithInfectHook(h InfectHook) Option {
	return func(m *Machine) { m.onInfect = append(m.onInfect, h) }
}

// Machine holds the single persisted infection record.
type Machine struct {
	store    kvstore.Store
	now      hackterm.Clock
	onInfect []InfectHook
	log      logrus.FieldLogger
	mu       sync.Mutex
}

// New creates a state machine over store. A nil clock means time.Now.
func New(store kvstore.Store, now hackterm.Clock, opts ...Option) *Machine {
	if now == nil {
		now = time.Now
	}
	m := &Machine{
		store: store,
		now:   now,
		log:   logrus.WithField("component", "virus"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetState records an infection of kind with a fresh start time.
// Setting infected to false clears the record.
func (m *Machine) SetState(infected bool, kind hackterm.VirusKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !infected {
		kvstore.Delete(m.store, stateKey)
		return
	}
	remaining := Timeout.Milliseconds()
	if kind.Permanent() {
		remaining = Forever
	}
	kvstore.SetJSON(m.store, stateKey, hackterm.VirusState{
		IsInfected:    true,
		TimeRemaining: remaining,
		StartTime:     m.now().UnixMilli(),
		VirusType:     kind,
	})
}

// GetState returns the current infection with a freshly computed TimeRemaining, or nil.
func (m *Machine) GetState() *hackterm.VirusState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state()
}

// CheckTimeout reports whether a non-permanent infection has run out of time.
func (m *Machine) CheckTimeout() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.state()
	if st == nil || !st.IsInfected || st.VirusType.Permanent() {
		return false
	}
	return m.now().UnixMilli()-st.StartTime >= Timeout.Milliseconds()
}

// ClearState removes the infection record.
func (m *Machine) ClearState() {
	m.SetState(false, "")
}

// Activate infects the system with kind, runs the infect hooks and returns the announcement.
// While an infection is active a new trigger leaves the record untouched: the kind stays,
// and the timer is neither restarted nor turned into a different deadline.
func (m *Machine) Activate(kind hackterm.VirusKind) hackterm.Result {
	if st := m.GetState(); st != nil && st.IsInfected {
		m.log.WithFields(logrus.Fields{"kind": st.VirusType, "trigger": kind}).Debug("Already infected, trigger ignored")
		res := hackterm.Lines(
			fmt.Sprintf("[!] System already compromised (%s). The new payload finds nothing left to take.", st.VirusType),
			"Remove the current infection with 'antivirus <code>'.",
		)
		res.IsVirusActive = true
		return res
	}

	m.SetState(true, kind)
	m.log.WithField("kind", kind).Info("Infection started")

	for _, hook := range m.onInfect {
		m.runHook(hook, kind)
	}

	res := hackterm.Lines(Announcement(kind)...)
	res.IsVirusActive = true
	return res
}

// Cure clears the infection when code matches its kind.
// It returns the cured kind and whether the code was accepted; ok is false when not infected.
func (m *Machine) Cure(code string) (hackterm.VirusKind, bool) {
	st := m.GetState()
	if st == nil || !st.IsInfected {
		return "", false
	}
	if !CheckDeactivationCode(code, st.VirusType) {
		m.log.WithField("kind", st.VirusType).Debug("Rejected deactivation code")
		return st.VirusType, false
	}
	// Only the matching kind's code cures; the deactivation file stays behind.
	m.ClearState()
	m.log.WithField("kind", st.VirusType).Info("Infection cured")
	return st.VirusType, true
}

func (m *Machine) runHook(hook InfectHook, kind hackterm.VirusKind) {
	defer func() {
		if r := recover(); r != nil {
			m.log.WithField("kind", kind).Warnf("Infect hook panicked: %v", r)
		}
	}()
	if err := hook(kind); err != nil {
		m.log.WithField("kind", kind).WithError(err).Warn("Infect hook failed")
	}
}

// callers hold m.mu
func (m *Machine) state() *hackterm.VirusState {
	if !kvstore.Has(m.store, stateKey) {
		return nil
	}
	// A corrupt record decodes to the zero value and reads as uninfected.
	st := kvstore.GetJSON(m.store, stateKey, hackterm.VirusState{})
	if !st.IsInfected {
		return nil
	}
	if st.VirusType.Permanent() {
		st.TimeRemaining = Forever
		return &st
	}
	// The stored TimeRemaining is only the initial budget; the live value
	// is always derived from StartTime so a reload cannot stop the clock.
	elapsed := m.now().UnixMilli() - st.StartTime
	st.TimeRemaining = max(Timeout.Milliseconds()-elapsed, 0)
	return &st
}

// Announcement returns the infection narrative for kind.
func Announcement(kind hackterm.VirusKind) []string {
	timer := fmt.Sprintf("You have %d seconds before total system failure.", int(Timeout.Seconds()))
	switch kind {
	case hackterm.VirusHoneypot:
		return []string{
			"!!! HONEYPOT TRIGGERED !!!",
			"The extracted data was bait. NeoCorp trace routines are inside your system.",
			"Trace lock: 12%... 27%... 41%...",
			timer,
			"Break the trap: 'antivirus <code>'. The answer to everything is part of it.",
			"Code format: HONEYPOT-BREAK-??",
		}
	case hackterm.VirusPrototype:
		return []string{
			"!!! PROTOTYPE VIRUS EXECUTED !!!",
			"Self-replicating payload spreading through memory banks...",
			"Strings dump of the binary reveals: ...PROTOTYPE-KILL-SWITCH...",
			timer,
			"Engage the kill switch with 'antivirus <code>'.",
		}
	case hackterm.VirusAdware:
		return []string{
			"~*~ Present day. Present time. ~*~",
			"Something from the Wired has attached itself to your terminal.",
			"It will not leave on its own.",
			"A note appeared in your home directory: LAIN_README.txt",
			"Disconnect it with 'antivirus <code>'.",
		}
	case hackterm.VirusCorruption:
		return []string{
			"Ã¢â‚¬Å\" ENCODING FAULT Ã¢â‚¬ï¿½",
			"Text buffers are being rewritten byte by byte.",
			"The corruption is permanent until repaired.",
			"Repair instructions were written to ~/ENCODING_REPAIR.txt",
			"Run 'antivirus <code>' to restore UTF-8.",
		}
	default:
		return []string{
			"!!! WARNING: TROJAN DETECTED !!!",
			"NeoCorp countermeasure ALPHA-DEFENSE is encrypting your file system.",
			timer,
			"Deactivation instructions dropped to ~/DEFENSE_OVERRIDE.txt",
			"Run 'antivirus <code>' to stop it.",
		}
	}
}

// DeactivationFile returns the hint file created on infection for kind, if it has one.
func DeactivationFile(kind hackterm.VirusKind) (path, content string, ok bool) {
	switch kind {
	case hackterm.VirusTrojan:
		return "/home/user/DEFENSE_OVERRIDE.txt",
			"ALPHA-DEFENSE override sequence (internal use only):\n" + DeactivationCode(kind) + "\n", true
	case hackterm.VirusAdware:
		return "/home/user/LAIN_README.txt",
			"let me go. say the words:\n" + DeactivationCode(kind) + "\n", true
	case hackterm.VirusCorruption:
		return "/home/user/ENCODING_REPAIR.txt",
			"Encoding repair key: " + DeactivationCode(kind) + "\n", true
	}
	return "", "", false
}
