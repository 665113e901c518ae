// Package dispatcher runs one command line through the terminal pipeline.
package dispatcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"hackterm/internal/analyzer"
	"hackterm/internal/apps"
	"hackterm/internal/commands"
	"hackterm/internal/hackterm"
	"hackterm/internal/ledger"
	"hackterm/internal/virus"
)

// Config wires the dispatcher to its collaborators. Observers run after every
// handled command, in order.
type Config struct {
	Commands  *commands.Table
	Virus     *virus.Machine
	Apps      *apps.Resolver
	Stats     *ledger.Stats
	Secrets   *ledger.Secrets
	Missions  *ledger.Missions
	Observers []hackterm.Observer
	Logger    logrus.FieldLogger
}

// Dispatcher turns raw input into a Result. It assumes serialized calls.
type Dispatcher struct {
	cfg Config
	log logrus.FieldLogger
}

// New creates a dispatcher.
func New(cfg Config) *Dispatcher {
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Dispatcher{cfg: cfg, log: log.WithField("component", "dispatcher")}
}

// DestroySequence is the scripted system wipe.
func DestroySequence() []string {
	return []string{
		"[!] CRITICAL: rm -rf / initiated",
		"Deleting /bin...",
		"Deleting /etc...",
		"Deleting /home/user...",
		"Deleting /usr...",
		"Deleting /var...",
		"[!] Kernel panic - not syncing: Attempted to kill init!",
		"[!] SYSTEM DESTROYED",
		"Rebooting...",
	}
}

func destroyed() hackterm.Result {
	res := hackterm.Lines(DestroySequence()...)
	res.Error = true
	res.ShouldDestroy = true
	return res
}

// Execute dispatches raw. Handler errors are returned unchanged; the caller
// owns the user-facing error boundary.
func (d *Dispatcher) Execute(ctx context.Context, raw string, env *hackterm.Env) (hackterm.Result, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return hackterm.Lines(), nil
	}

	fields := strings.Fields(trimmed)
	token := fields[0]
	cmd := strings.ToLower(token)
	args := fields[1:]
	log := d.log.WithField("command", cmd)
	log.Debug("Dispatching command")

	d.cfg.Stats.Record(cmd)

	if d.cfg.Virus.CheckTimeout() {
		st := d.cfg.Virus.GetState()
		d.cfg.Virus.ClearState()
		if st != nil {
			log = log.WithField("kind", st.VirusType)
		}
		log.Warn("Infection timer expired, destroying system")
		return destroyed(), nil
	}

	if isDestroyPhrase(cmd, args) {
		log.Warn("Destroy command entered")
		return destroyed(), nil
	}

	if cmd == "open" {
		if res := d.cfg.Apps.Open(args); res != nil {
			return normalize(*res), nil
		}
	}

	if strings.HasPrefix(cmd, "./") {
		if res := d.cfg.Apps.Exec(token); res != nil {
			return normalize(*res), nil
		}
	}

	if virus.CheckTrigger(cmd, args) {
		kind := virus.DetectKind(cmd, args)
		log.WithField("kind", kind).Info("Infection triggered")
		return normalize(d.cfg.Virus.Activate(kind)), nil
	}

	inv := analyzer.Invocation{Command: cmd, Args: args}
	_, secretFound := d.checkSecret(inv, env)

	c, ok := d.cfg.Commands.Lookup(cmd)
	if !ok {
		return hackterm.Failure(
			fmt.Sprintf("Command not found: %s", cmd),
			"Type 'help' for a list of available commands.",
		), nil
	}

	res, err := c.Run(ctx, args, env)
	if err != nil {
		return hackterm.Result{}, fmt.Errorf("%s: %w", cmd, err)
	}
	res = normalize(res)
	inv.Output = res.Output

	if !secretFound {
		d.checkSecret(inv, env)
	}

	ev := hackterm.Event{Command: cmd, Args: args, Result: res, Env: env}
	for _, obs := range d.cfg.Observers {
		d.observe(ctx, obs, ev)
	}

	for _, id := range d.cfg.Missions.Track(inv) {
		if msg := d.cfg.Missions.Notification(id); msg != "" {
			env.NotifyUser(msg)
		}
	}

	return res, nil
}

func (d *Dispatcher) checkSecret(inv analyzer.Invocation, env *hackterm.Env) (string, bool) {
	s, ok := d.cfg.Secrets.Check(inv)
	if !ok {
		return "", false
	}
	env.NotifyUser(fmt.Sprintf("Secret discovered: %s", s.Name))
	return s.ID, true
}

// observe runs one observer, logging failures and panics.
func (d *Dispatcher) observe(ctx context.Context, obs hackterm.Observer, ev hackterm.Event) {
	defer func() {
		if r := recover(); r != nil {
			d.log.WithField("observer", fmt.Sprintf("%T", obs)).Errorf("Observer panicked: %v", r)
		}
	}()
	if err := obs.Observe(ctx, ev); err != nil {
		d.log.WithField("observer", fmt.Sprintf("%T", obs)).WithError(err).Warn("Observer failed")
	}
}

// isDestroyPhrase matches "sudo rm -rf /" in any case.
func isDestroyPhrase(cmd string, args []string) bool {
	return cmd == "sudo" && len(args) >= 3 &&
		strings.EqualFold(args[0], "rm") &&
		strings.EqualFold(args[1], "-rf") &&
		args[2] == "/"
}

func normalize(res hackterm.Result) hackterm.Result {
	if res.Output == nil {
		res.Output = []string{}
	}
	return res
}
