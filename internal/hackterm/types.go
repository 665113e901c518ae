// Package hackterm defines the data model shared by the terminal subsystems.
package hackterm

import (
	"context"
	"time"
)

// Clock returns the current time. Subsystems take one so tests can pin time.
type Clock func() time.Time

// Result is what a command produces for the presentation layer.
type Result struct {
	Output        []string `json:"output"`
	Error         bool     `json:"error,omitempty"`
	IsAnimated    bool     `json:"isAnimated,omitempty"`
	Progress      *int     `json:"progress,omitempty"`
	Theme         string   `json:"theme,omitempty"`
	Notification  string   `json:"notification,omitempty"`
	IsVirusActive bool     `json:"isVirusActive,omitempty"`
	ShouldDestroy bool     `json:"shouldDestroy,omitempty"`
	Clear         bool     `json:"clear,omitempty"`
	App           string   `json:"app,omitempty"`
}

// Lines builds a plain result.
func Lines(lines ...string) Result {
	if lines == nil {
		lines = []string{}
	}
	return Result{Output: lines}
}

// Failure builds a result with the error flag set.
func Failure(lines ...string) Result {
	res := Lines(lines...)
	res.Error = true
	return res
}

// Size is the terminal window size in character cells.
type Size struct {
	Cols int `json:"cols"`
	Rows int `json:"rows"`
}

// Env bundles presentation-owned state handed to every command handler.
// The callbacks may be nil.
type Env struct {
	History  []string
	Theme    string
	SetTheme func(theme string)
	Notify   func(message string)
	Size     Size
	SetSize  func(size Size)
	User     string
	SetUser  func(user string)
}

// NotifyUser emits a notification if a callback is installed.
func (e *Env) NotifyUser(message string) {
	if e == nil || e.Notify == nil || message == "" {
		return
	}
	e.Notify(message)
}

// ChangeTheme updates the theme and forwards it to the presentation layer.
func (e *Env) ChangeTheme(theme string) {
	if e == nil {
		return
	}
	e.Theme = theme
	if e.SetTheme != nil {
		e.SetTheme(theme)
	}
}

// ChangeSize updates the terminal size and forwards it to the presentation layer.
func (e *Env) ChangeSize(size Size) {
	if e == nil {
		return
	}
	e.Size = size
	if e.SetSize != nil {
		e.SetSize(size)
	}
}

// ChangeUser updates the identity and forwards it to the presentation layer.
func (e *Env) ChangeUser(user string) {
	if e == nil {
		return
	}
	e.User = user
	if e.SetUser != nil {
		e.SetUser(user)
	}
}

// Event describes one dispatched command for post-command observers.
type Event struct {
	Command string
	Args    []string
	Result  Result
	Env     *Env
}

// Observer runs after a command handler. Failures are logged, never shown.
type Observer interface {
	Observe(ctx context.Context, ev Event) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event) error

// Observe calls f.
func (f ObserverFunc) Observe(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// AccessLevel is the privilege obtained on a hacked target.
type AccessLevel string

// Access levels.
const (
	AccessGuest AccessLevel = "GUEST"
	AccessAdmin AccessLevel = "ADMIN"
)

// HackSession is a persisted simulated connection to a target.
type HackSession struct {
	TargetIP    string      `json:"targetIP"`
	StartTime   int64       `json:"startTime"` // ms since epoch
	DataSize    int         `json:"dataSize"`  // KB
	AccessLevel AccessLevel `json:"accessLevel"`
}

// Difficulty of a catalogued server.
type Difficulty string

// Difficulties.
const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// MaxAttempts returns how many crack guesses the difficulty allows.
func (d Difficulty) MaxAttempts() int {
	switch d {
	case DifficultyMedium:
		return 8
	case DifficultyHard:
		return 12
	default:
		return 5
	}
}

// Valid reports whether d is a known difficulty.
func (d Difficulty) Valid() bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

// ServerRecord is a static catalog entry for a simulated network target.
type ServerRecord struct {
	IP               string     `yaml:"ip" json:"ip"`
	Name             string     `yaml:"name" json:"name"`
	Password         string     `yaml:"password" json:"-"`
	Difficulty       Difficulty `yaml:"difficulty" json:"difficulty"`
	Description      string     `yaml:"description" json:"description"`
	HintFiles        []string   `yaml:"hints,omitempty" json:"hints,omitempty"`
	UnlockFiles      []string   `yaml:"unlocks,omitempty" json:"unlocks,omitempty"`
	RequiresCracking bool       `yaml:"requires_cracking" json:"requiresCracking"`
}

// CrackAttempt is the latest guess recorded against one target.
type CrackAttempt struct {
	Target      string `json:"target"`
	Password    string `json:"password"`
	Mask        string `json:"mask"`
	Attempts    int    `json:"attempts"`
	MaxAttempts int    `json:"maxAttempts"`
	IsCracked   bool   `json:"isCracked"`
}

// VirusKind is one of the fixed infection archetypes.
type VirusKind string

// Virus kinds.
const (
	VirusTrojan     VirusKind = "trojan"
	VirusHoneypot   VirusKind = "honeypot"
	VirusPrototype  VirusKind = "prototype"
	VirusAdware     VirusKind = "adware"
	VirusCorruption VirusKind = "corruption"
)

// Permanent kinds never expire on their own; only a cure removes them.
func (k VirusKind) Permanent() bool {
	return k == VirusAdware || k == VirusCorruption
}

// VirusState is the single persisted infection record.
type VirusState struct {
	IsInfected    bool      `json:"isInfected"`
	TimeRemaining int64     `json:"timeRemaining"` // ms
	StartTime     int64     `json:"startTime"`     // ms since epoch
	VirusType     VirusKind `json:"virusType"`
}
