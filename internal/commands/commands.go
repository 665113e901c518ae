// Package commands holds the registered command table and its handlers.
package commands

import (
	"context"
	"sort"
	"strings"
	"time"

	"hackterm/internal/crack"
	"hackterm/internal/hackterm"
	"hackterm/internal/ledger"
	"hackterm/internal/netsim"
	"hackterm/internal/servers"
	"hackterm/internal/sessions"
	"hackterm/internal/vfs"
	"hackterm/internal/virus"
)

// Handler runs one command. User mistakes are reported in the Result;
// a returned error means the handler itself broke.
type Handler func(ctx context.Context, args []string, env *hackterm.Env) (hackterm.Result, error)

// Command is one entry of the table.
type Command struct {
	Name    string
	Usage   string
	Summary string
	Hidden  bool // left out of help
	Run     Handler
}

// Table maps lower-case command names to commands.
type Table struct {
	cmds map[string]Command
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{cmds: make(map[string]Command)}
}

// Register adds c, replacing any command with the same name.
func (t *Table) Register(c Command) {
	t.cmds[strings.ToLower(c.Name)] = c
}

// Alias registers c again under another name, hidden from help.
func (t *Table) Alias(name string, c Command) {
	c.Name = name
	c.Hidden = true
	t.Register(c)
}

// Lookup finds the command for name.
func (t *Table) Lookup(name string) (Command, bool) {
	c, ok := t.cmds[strings.ToLower(name)]
	return c, ok
}

// List returns the visible commands sorted by name.
func (t *Table) List() []Command {
	out := make([]Command, 0, len(t.cmds))
	for _, c := range t.cmds {
		if !c.Hidden {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Deps are the subsystems handlers operate on.
type Deps struct {
	Sessions *sessions.Registry
	Servers  *servers.Registry
	Crack    *crack.Engine
	Virus    *virus.Machine
	Files    *vfs.FS
	Stats    *ledger.Stats
	Secrets  *ledger.Secrets
	Missions *ledger.Missions
	Net      *netsim.Generator
	Themes   []string
	Now      hackterm.Clock
	Started  time.Time
}

type handlers struct {
	Deps
	table *Table
}

// New builds the table with every built-in command.
func New(d Deps) *Table {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Started.IsZero() {
		d.Started = d.Now()
	}
	if d.Net == nil {
		d.Net = netsim.NewGenerator(nil)
	}
	h := &handlers{Deps: d, table: NewTable()}
	h.registerNetwork()
	h.registerCrack()
	h.registerVirus()
	h.registerFiles()
	h.registerSystem()
	return h.table
}
