// Package terminal assembles every subsystem over one store and owns the
// presentation-side state of a single terminal.
package terminal

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"hackterm/internal/apps"
	"hackterm/internal/commands"
	"hackterm/internal/config"
	"hackterm/internal/contacts"
	"hackterm/internal/crack"
	"hackterm/internal/dispatcher"
	"hackterm/internal/hackterm"
	"hackterm/internal/kvstore"
	"hackterm/internal/ledger"
	"hackterm/internal/netsim"
	"hackterm/internal/servers"
	"hackterm/internal/sessions"
	"hackterm/internal/vfs"
	"hackterm/internal/virus"
)

const (
	prefsKey   = "terminal.prefs"
	historyKey = "terminal.history"

	maxHistory   = 500
	defaultUser  = "user"
	defaultTheme = "green"
)

var defaultSize = hackterm.Size{Cols: 80, Rows: 24}

type prefs struct {
	Theme string        `json:"theme"`
	User  string        `json:"user"`
	Size  hackterm.Size `json:"size"`
}

// Option configures a Terminal.
type Option func(*Terminal)

// WithClock pins the time source.
func WithClock(c hackterm.Clock) Option {
	return func(t *Terminal) { t.now = c }
}

// WithRand sets the source of cosmetic randomness.
func WithRand(r *rand.Rand) Option {
	return func(t *Terminal) { t.rng = r }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(t *Terminal) { t.log = l }
}

// WithObserver adds a post-command observer.
func WithObserver(o hackterm.Observer) Option {
	return func(t *Terminal) { t.observers = append(t.observers, o) }
}

// WithCommands registers extra commands on top of the built-ins.
func WithCommands(cmds ...commands.Command) Option {
	return func(t *Terminal) { t.extra = append(t.extra, cmds...) }
}

// Terminal is one simulated terminal. Execute calls are serialized.
type Terminal struct {
	store     kvstore.Store
	catalog   *config.Catalog
	now       hackterm.Clock
	rng       *rand.Rand
	log       logrus.FieldLogger
	observers []hackterm.Observer
	extra     []commands.Command
	started   time.Time

	disp     *dispatcher.Dispatcher
	virus    *virus.Machine
	sessions *sessions.Registry
	servers  *servers.Registry
	secrets  *ledger.Secrets
	missions *ledger.Missions

	pending []string
	mu      sync.Mutex
}

// New builds a terminal over store.
func New(store kvstore.Store, catalog *config.Catalog, opts ...Option) *Terminal {
	t := &Terminal{
		store:   store,
		catalog: catalog,
		now:     time.Now,
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.rng == nil {
		t.rng = rand.New(rand.NewSource(t.now().UnixNano())) //nolint:gosec // cosmetic values only
	}
	t.started = t.now()
	t.build()
	return t
}

func (t *Terminal) build() {
	files := vfs.New(t.catalog.Files, t.store)
	t.servers = servers.New(t.catalog.Servers, t.store)
	t.sessions = sessions.New(t.store, t.now)
	t.missions = ledger.NewMissions(t.catalog.Missions, t.store)
	t.secrets = ledger.NewSecrets(t.catalog.Secrets, t.missions, t.store)
	stats := ledger.NewStats(t.store)

	t.virus = virus.New(t.store, t.now, virus.WithInfectHook(func(kind hackterm.VirusKind) error {
		p, content, ok := virus.DeactivationFile(kind)
		if !ok {
			return nil
		}
		if !files.Create(p, content) {
			return fmt.Errorf("failed to create %s", p)
		}
		return nil
	}))

	table := commands.New(commands.Deps{
		Sessions: t.sessions,
		Servers:  t.servers,
		Crack:    crack.New(t.servers, files, t.store),
		Virus:    t.virus,
		Files:    files,
		Stats:    stats,
		Secrets:  t.secrets,
		Missions: t.missions,
		Net:      netsim.NewGenerator(t.rng),
		Themes:   t.catalog.Themes,
		Now:      t.now,
		Started:  t.started,
	})
	for _, c := range t.extra {
		table.Register(c)
	}

	observers := append([]hackterm.Observer{contacts.New(t.catalog.Contacts, t.store)}, t.observers...)
	t.disp = dispatcher.New(dispatcher.Config{
		Commands:  table,
		Virus:     t.virus,
		Apps:      apps.New(files, t.virus),
		Stats:     stats,
		Secrets:   t.secrets,
		Missions:  t.missions,
		Observers: observers,
		Logger:    t.log,
	})
}

// Execute runs one command line. It never fails: handler errors and panics
// become an "Error: ..." result.
func (t *Terminal) Execute(ctx context.Context, input string) (res hackterm.Result) {
	t.mu.Lock()
	defer t.mu.Unlock()

	env := t.env()
	defer func() {
		if r := recover(); r != nil {
			t.log.WithField("input", input).Errorf("Command panicked: %v", r)
			res = hackterm.Failure(fmt.Sprintf("Error: %v", r))
		}
		t.record(input)
	}()

	res, err := t.disp.Execute(ctx, input, env)
	if err != nil {
		t.log.WithField("input", input).WithError(err).Error("Command failed")
		return hackterm.Failure(fmt.Sprintf("Error: %v", err))
	}
	if res.Notification != "" {
		t.pending = append(t.pending, res.Notification)
	}
	return res
}

// Reset wipes all persisted state and rebuilds every subsystem.
func (t *Terminal) Reset() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.store.Clear(); err != nil {
		return fmt.Errorf("failed to wipe state: %w", err)
	}
	t.pending = nil
	t.started = t.now()
	t.build()
	t.log.Info("Terminal reset")
	return nil
}

// DrainNotifications returns and forgets queued notifications.
func (t *Terminal) DrainNotifications() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.pending
	t.pending = nil
	return out
}

// Prompt renders the shell prompt.
func (t *Terminal) Prompt() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fmt.Sprintf("%s@hackterm:~$ ", t.loadPrefs().User)
}

// Status summarizes the terminal state.
type Status struct {
	User          string
	Theme         string
	Size          hackterm.Size
	Sessions      int
	Cracked       int
	Secrets       int
	SecretsTotal  int
	MissionsDone  int
	MissionsTotal int
	Virus         *hackterm.VirusState
	Commands      int
}

// Status returns a snapshot of the terminal state.
func (t *Terminal) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.loadPrefs()
	s := Status{
		User:          p.User,
		Theme:         p.Theme,
		Size:          p.Size,
		Sessions:      len(t.sessions.List()),
		Cracked:       len(t.servers.Cracked()),
		Secrets:       len(t.secrets.Discovered()),
		SecretsTotal:  len(t.secrets.All()),
		MissionsTotal: len(t.missions.All()),
		Virus:         t.virus.GetState(),
		Commands:      len(t.history()),
	}
	for _, m := range t.missions.All() {
		if t.missions.IsCompleted(m.ID) {
			s.MissionsDone++
		}
	}
	return s
}

// env builds the handler context. Callers hold t.mu.
func (t *Terminal) env() *hackterm.Env {
	p := t.loadPrefs()
	return &hackterm.Env{
		History: t.history(),
		Theme:   p.Theme,
		Size:    p.Size,
		User:    p.User,
		SetTheme: func(theme string) {
			p := t.loadPrefs()
			p.Theme = theme
			t.savePrefs(p)
		},
		SetSize: func(size hackterm.Size) {
			p := t.loadPrefs()
			p.Size = size
			t.savePrefs(p)
		},
		SetUser: func(user string) {
			p := t.loadPrefs()
			p.User = user
			t.savePrefs(p)
		},
		Notify: func(msg string) {
			t.pending = append(t.pending, msg)
		},
	}
}

func (t *Terminal) loadPrefs() prefs {
	p := kvstore.GetJSON(t.store, prefsKey, prefs{})
	if p.User == "" {
		p.User = defaultUser
	}
	if p.Theme == "" {
		p.Theme = defaultTheme
	}
	if p.Size.Cols == 0 || p.Size.Rows == 0 {
		p.Size = defaultSize
	}
	return p
}

func (t *Terminal) savePrefs(p prefs) {
	kvstore.SetJSON(t.store, prefsKey, p)
}

func (t *Terminal) history() []string {
	return kvstore.GetJSON(t.store, historyKey, []string{})
}

// record appends input to the history. Blank input is not recorded.
func (t *Terminal) record(input string) {
	if strings.TrimSpace(input) == "" {
		return
	}
	h := append(t.history(), input)
	if len(h) > maxHistory {
		h = h[len(h)-maxHistory:]
	}
	kvstore.SetJSON(t.store, historyKey, h)
}

