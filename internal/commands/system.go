package commands

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"hackterm/internal/hackterm"
	"hackterm/internal/netsim"
	"hackterm/internal/sessions"
)

const (
	minCols, maxCols = 40, 300
	minRows, maxRows = 10, 120
	topCommands      = 10
)

func (h *handlers) registerSystem() {
	h.table.Register(Command{Name: "help", Usage: "help [command]", Summary: "Show available commands", Run: h.help})
	h.table.Register(Command{Name: "clear", Usage: "clear", Summary: "Clear the screen", Run: h.clear})
	h.table.Register(Command{Name: "echo", Usage: "echo [text]", Summary: "Print text", Run: h.echo})
	h.table.Register(Command{Name: "whoami", Usage: "whoami", Summary: "Print the current user", Run: h.whoami})
	h.table.Register(Command{Name: "su", Usage: "su <user>", Summary: "Switch user", Run: h.su})
	h.table.Register(Command{Name: "theme", Usage: "theme [name]", Summary: "List or change the color theme", Run: h.theme})
	h.table.Register(Command{Name: "resize", Usage: "resize <cols> <rows>", Summary: "Resize the terminal window", Run: h.resize})
	h.table.Register(Command{Name: "history", Usage: "history", Summary: "Show command history", Run: h.history})
	h.table.Register(Command{Name: "date", Usage: "date", Summary: "Print the system date", Run: h.date})
	h.table.Register(Command{Name: "uptime", Usage: "uptime", Summary: "Show how long the system has been up", Run: h.uptime})
	h.table.Register(Command{Name: "stats", Usage: "stats", Summary: "Show command usage statistics", Run: h.stats})
	h.table.Register(Command{Name: "secrets", Usage: "secrets", Summary: "Show discovered secrets", Run: h.secrets})
	h.table.Register(Command{Name: "missions", Usage: "missions", Summary: "Show mission progress", Run: h.missions})
	h.table.Register(Command{Name: "qr", Usage: "qr <text>", Summary: "Render text as a QR code", Run: h.qr})
	h.table.Register(Command{Name: "sudo", Usage: "sudo <command>", Hidden: true, Run: h.sudo})
	h.table.Register(Command{Name: "xyzzy", Hidden: true, Run: func(context.Context, []string, *hackterm.Env) (hackterm.Result, error) {
		return hackterm.Lines("Nothing happens."), nil
	}})
}

func (h *handlers) help(_ context.Context, args []string, _ *hackterm.Env) (hackterm.Result, error) {
	if len(args) > 0 {
		c, ok := h.table.Lookup(args[0])
		if !ok || c.Hidden {
			return hackterm.Failure(fmt.Sprintf("help: no help for '%s'", args[0])), nil
		}
		return hackterm.Lines("Usage: "+c.Usage, "  "+c.Summary), nil
	}
	lines := []string{"Available commands:", ""}
	for _, c := range h.table.List() {
		lines = append(lines, fmt.Sprintf("  %-12s %s", c.Name, c.Summary))
	}
	lines = append(lines, "", "Type 'help <command>' for usage.")
	return hackterm.Lines(lines...), nil
}

func (h *handlers) clear(context.Context, []string, *hackterm.Env) (hackterm.Result, error) {
	res := hackterm.Lines()
	res.Clear = true
	return res, nil
}

func (h *handlers) echo(_ context.Context, args []string, _ *hackterm.Env) (hackterm.Result, error) {
	return hackterm.Lines(strings.Join(args, " ")), nil
}

func (h *handlers) whoami(_ context.Context, _ []string, env *hackterm.Env) (hackterm.Result, error) {
	return hackterm.Lines(currentUser(env)), nil
}

func (h *handlers) su(_ context.Context, args []string, env *hackterm.Env) (hackterm.Result, error) {
	if len(args) == 0 {
		return hackterm.Failure("Usage: su <user>"), nil
	}
	user := strings.ToLower(args[0])
	for _, r := range user {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' && r != '-' {
			return hackterm.Failure(fmt.Sprintf("su: invalid user name '%s'", args[0])), nil
		}
	}
	if user == "root" && len(h.Servers.Cracked()) == 0 {
		return hackterm.Failure("su: Authentication failure"), nil
	}
	env.ChangeUser(user)
	return hackterm.Lines(fmt.Sprintf("Switched to %s.", user)), nil
}

func (h *handlers) theme(_ context.Context, args []string, env *hackterm.Env) (hackterm.Result, error) {
	current := ""
	if env != nil {
		current = env.Theme
	}
	if len(args) == 0 {
		lines := []string{"Available themes:"}
		for _, t := range h.Themes {
			marker := "  "
			if t == current {
				marker = "* "
			}
			lines = append(lines, marker+t)
		}
		return hackterm.Lines(lines...), nil
	}
	name := strings.ToLower(args[0])
	if !slices.Contains(h.Themes, name) {
		return hackterm.Failure(fmt.Sprintf("theme: unknown theme '%s'", args[0]), "Available: "+strings.Join(h.Themes, ", ")), nil
	}
	env.ChangeTheme(name)
	res := hackterm.Lines(fmt.Sprintf("Theme set to %s.", name))
	res.Theme = name
	return res, nil
}

func (h *handlers) resize(_ context.Context, args []string, env *hackterm.Env) (hackterm.Result, error) {
	if len(args) < 2 {
		if env != nil {
			return hackterm.Lines(fmt.Sprintf("Current size: %dx%d", env.Size.Cols, env.Size.Rows), "Usage: resize <cols> <rows>"), nil
		}
		return hackterm.Failure("Usage: resize <cols> <rows>"), nil
	}
	cols, err1 := strconv.Atoi(args[0])
	rows, err2 := strconv.Atoi(args[1])
	if err1 != nil || err2 != nil || cols < minCols || cols > maxCols || rows < minRows || rows > maxRows {
		return hackterm.Failure(fmt.Sprintf("resize: size must be %d-%d columns and %d-%d rows", minCols, maxCols, minRows, maxRows)), nil
	}
	env.ChangeSize(hackterm.Size{Cols: cols, Rows: rows})
	return hackterm.Lines(fmt.Sprintf("Terminal resized to %dx%d.", cols, rows)), nil
}

func (h *handlers) history(_ context.Context, _ []string, env *hackterm.Env) (hackterm.Result, error) {
	if env == nil || len(env.History) == 0 {
		return hackterm.Lines("No history."), nil
	}
	lines := make([]string, 0, len(env.History))
	for i, cmd := range env.History {
		lines = append(lines, fmt.Sprintf("%5d  %s", i+1, cmd))
	}
	return hackterm.Lines(lines...), nil
}

func (h *handlers) date(context.Context, []string, *hackterm.Env) (hackterm.Result, error) {
	return hackterm.Lines(h.Now().UTC().Format("Mon Jan _2 15:04:05 UTC 2006")), nil
}

func (h *handlers) uptime(context.Context, []string, *hackterm.Env) (hackterm.Result, error) {
	up := h.Now().Sub(h.Started).Round(time.Second)
	return hackterm.Lines(fmt.Sprintf("up %s, %d active %s",
		sessions.FormatDuration(up), len(h.Sessions.List()), plural(len(h.Sessions.List()), "session"))), nil
}

func (h *handlers) stats(context.Context, []string, *hackterm.Env) (hackterm.Result, error) {
	counts := h.Stats.Counts()
	if len(counts) == 0 {
		return hackterm.Lines("No commands recorded."), nil
	}
	names := make([]string, 0, len(counts))
	total := 0
	for name, n := range counts {
		names = append(names, name)
		total += n
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	lines := []string{fmt.Sprintf("Commands run: %d", total), ""}
	for _, name := range names[:min(len(names), topCommands)] {
		lines = append(lines, fmt.Sprintf("  %-12s %d", name, counts[name]))
	}
	return hackterm.Lines(lines...), nil
}

func (h *handlers) secrets(context.Context, []string, *hackterm.Env) (hackterm.Result, error) {
	found := h.Secrets.Discovered()
	all := h.Secrets.All()
	lines := []string{fmt.Sprintf("Secrets discovered: %d/%d", len(found), len(all))}
	for _, s := range all {
		if slices.Contains(found, s.ID) {
			lines = append(lines, fmt.Sprintf("  [x] %s - %s", s.Name, s.Description))
		}
	}
	if len(found) < len(all) {
		lines = append(lines, "  Keep exploring...")
	}
	return hackterm.Lines(lines...), nil
}

func (h *handlers) missions(context.Context, []string, *hackterm.Env) (hackterm.Result, error) {
	all := h.Missions.All()
	if len(all) == 0 {
		return hackterm.Lines("No missions available."), nil
	}
	lines := []string{"Missions:"}
	for _, m := range all {
		done, total := h.Missions.Progress(m.ID)
		mark := " "
		if done >= total {
			mark = "x"
		}
		lines = append(lines, fmt.Sprintf("  [%s] %s (%d/%d) - %s", mark, m.Title, done, total, m.Description))
		if done < total {
			lines = append(lines, "      Next: "+m.Objectives[done].Description)
		}
	}
	return hackterm.Lines(lines...), nil
}

func (h *handlers) qr(_ context.Context, args []string, _ *hackterm.Env) (hackterm.Result, error) {
	if len(args) == 0 {
		return hackterm.Failure("Usage: qr <text>"), nil
	}
	lines, err := netsim.QR(strings.Join(args, " "))
	if err != nil {
		return hackterm.Failure(fmt.Sprintf("qr: %v", err)), nil
	}
	return hackterm.Lines(lines...), nil
}

func (h *handlers) sudo(_ context.Context, args []string, env *hackterm.Env) (hackterm.Result, error) {
	if len(args) == 0 {
		return hackterm.Failure("usage: sudo <command>"), nil
	}
	if strings.EqualFold(strings.Join(args, " "), "make me a sandwich") {
		return hackterm.Lines("Okay."), nil
	}
	return hackterm.Failure(
		fmt.Sprintf("%s is not in the sudoers file. This incident will be reported.", currentUser(env)),
	), nil
}

func currentUser(env *hackterm.Env) string {
	if env == nil || env.User == "" {
		return "user"
	}
	return env.User
}
