// Package contacts delivers delayed story messages after trigger commands.
package contacts

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"hackterm/internal/analyzer"
	"hackterm/internal/config"
	"hackterm/internal/hackterm"
	"hackterm/internal/kvstore"
)

const stateKey = "contacts.state"

type progress struct {
	Armed     bool `json:"armed"`
	Remaining int  `json:"remaining"`
	Delivered bool `json:"delivered"`
}

// Hook is a post-command observer. Once a contact's trigger fires it waits
// Delay further commands and then notifies the user, exactly once.
type Hook struct {
	defs  []config.Contact
	store kvstore.Store
	log   logrus.FieldLogger
	mu    sync.Mutex
}

// New creates the hook.
func New(defs []config.Contact, store kvstore.Store) *Hook {
	return &Hook{
		defs:  defs,
		store: store,
		log:   logrus.WithField("component", "contacts"),
	}
}

// Observe implements hackterm.Observer.
func (h *Hook) Observe(_ context.Context, ev hackterm.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	state := kvstore.GetJSON(h.store, stateKey, map[string]progress{})
	if state == nil {
		state = map[string]progress{}
	}
	inv := analyzer.Invocation{Command: ev.Command, Args: ev.Args, Output: ev.Result.Output}

	changed := false
	for _, c := range h.defs {
		p := state[c.ID]
		if p.Delivered {
			continue
		}

		if p.Armed {
			p.Remaining--
		} else {
			ok, err := analyzer.Match(c.Trigger, inv)
			if err != nil {
				return fmt.Errorf("contact %s: %w", c.ID, err)
			}
			if !ok {
				continue
			}
			p = progress{Armed: true, Remaining: c.Delay}
			h.log.WithField("contact", c.ID).Debug("Contact armed")
		}

		if p.Remaining <= 0 {
			p.Delivered = true
			ev.Env.NotifyUser(c.Message)
			h.log.WithField("contact", c.ID).Info("Contact message delivered")
		}
		state[c.ID] = p
		changed = true
	}

	if changed && !kvstore.SetJSON(h.store, stateKey, state) {
		return fmt.Errorf("failed to persist contact state")
	}
	return nil
}
