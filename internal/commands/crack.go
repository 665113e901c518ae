package commands

import (
	"context"
	"fmt"
	"strings"

	"hackterm/internal/hackterm"
)

func (h *handlers) registerCrack() {
	h.table.Register(Command{
		Name:    "crack",
		Usage:   "crack <target> <password> | crack status [target] | crack --reset [target]",
		Summary: "Guess a server password; the mask shows matches (X), misplaced (?) and misses (_)",
		Run:     h.crack,
	})
}

func (h *handlers) crack(_ context.Context, args []string, _ *hackterm.Env) (hackterm.Result, error) {
	if len(args) == 0 {
		return hackterm.Failure(
			"Usage: crack <target> <password>",
			"       crack status [target]",
			"       crack --reset [target]",
		), nil
	}

	switch strings.ToLower(args[0]) {
	case "--reset":
		if len(args) > 1 {
			if !h.Crack.Clear(args[1]) {
				return hackterm.Lines(fmt.Sprintf("No crack attempts recorded for %s.", args[1])), nil
			}
			return hackterm.Lines(fmt.Sprintf("Crack attempts for %s reset.", args[1])), nil
		}
		h.Crack.ClearAll()
		return hackterm.Lines("All crack attempts reset."), nil
	case "status":
		return h.crackStatus(args[1:]), nil
	}

	target := args[0]
	if len(args) < 2 {
		return hackterm.Failure(fmt.Sprintf("Usage: crack %s <password>", target)), nil
	}
	password := strings.Join(args[1:], " ")

	out := h.Crack.Attempt(target, password)
	lines := []string{fmt.Sprintf("[*] Attempting to crack %s...", target)}
	if out.Mask != "" {
		lines = append(lines,
			"    Guess: "+strings.ToUpper(password),
			"    Mask:  "+out.Mask,
		)
	}
	lines = append(lines, out.Message)
	if !out.Success {
		return hackterm.Failure(lines...), nil
	}

	rec, _ := h.Servers.Lookup(target)
	for _, p := range rec.UnlockFiles {
		lines = append(lines, "[+] Decrypted: "+p)
	}
	lines = append(lines, fmt.Sprintf("Run 'hack %s' to establish a session.", target))
	res := hackterm.Lines(lines...)
	res.Notification = fmt.Sprintf("Server cracked: %s", rec.Name)
	return res, nil
}

func (h *handlers) crackStatus(args []string) hackterm.Result {
	attempts := h.Crack.All()
	if len(args) > 0 {
		a, ok := h.Crack.Status(args[0])
		if !ok {
			return hackterm.Lines(fmt.Sprintf("No crack attempts recorded for %s.", args[0]))
		}
		attempts = []hackterm.CrackAttempt{a}
	}
	if len(attempts) == 0 {
		return hackterm.Lines("No crack attempts recorded.")
	}
	lines := []string{"Crack attempts:"}
	for _, a := range attempts {
		state := fmt.Sprintf("%d/%d", a.Attempts, a.MaxAttempts)
		if a.IsCracked {
			state = "CRACKED"
		} else if a.Attempts >= a.MaxAttempts {
			state = "LOCKED"
		}
		lines = append(lines, fmt.Sprintf("  %-15s %-10s last mask: %s", a.Target, state, a.Mask))
	}
	return hackterm.Lines(lines...)
}
