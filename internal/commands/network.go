package commands

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"hackterm/internal/hackterm"
	"hackterm/internal/netsim"
	"hackterm/internal/sessions"
)

func (h *handlers) registerNetwork() {
	h.table.Register(Command{Name: "hack", Usage: "hack [target]", Summary: "Break into a target and open an ADMIN session", Run: h.hack})
	h.table.Register(Command{Name: "connect", Usage: "connect <target>", Summary: "Open a GUEST session to a target", Run: h.connect})
	h.table.Register(Command{Name: "disconnect", Usage: "disconnect [target|all]", Summary: "Close one or all sessions", Run: h.disconnect})
	h.table.Register(Command{Name: "sessions", Usage: "sessions", Summary: "List active sessions", Run: h.sessions})
	h.table.Register(Command{Name: "scan", Usage: "scan", Summary: "Discover targets on the network", Run: h.scan})
	h.table.Register(Command{Name: "ping", Usage: "ping <host> [count]", Summary: "Send echo requests to a host", Run: h.ping})
	h.table.Register(Command{Name: "dig", Usage: "dig <host>", Summary: "Query DNS for a host", Run: h.dig})
	h.table.Register(Command{Name: "sniff", Usage: "sniff [target] [count]", Summary: "Capture traffic to a target", Run: h.sniff})
}

// extractedSize is the simulated data size of an ADMIN session, in KB.
func (h *handlers) extractedSize() int {
	return 1000 + h.Net.Intn(5000)
}

func (h *handlers) hack(_ context.Context, args []string, _ *hackterm.Env) (hackterm.Result, error) {
	target := h.Net.IP()
	if len(args) > 0 {
		target = args[0]
	}

	rec, known := h.Servers.Lookup(target)
	if known && rec.RequiresCracking && !h.Servers.IsCracked(target) {
		lines := []string{
			fmt.Sprintf("[*] Initiating reconnaissance on %s (%s)...", target, rec.Name),
			"[*] " + rec.Description,
			"[*] Open ports: " + h.portList(3),
			fmt.Sprintf("[*] Security level: %s (%d attempts allowed)", rec.Difficulty, rec.Difficulty.MaxAttempts()),
			"[!] Authentication wall detected. Brute force will trip the lockout.",
			fmt.Sprintf("[!] Use 'crack %s <password>' to break authentication.", target),
		}
		if len(rec.HintFiles) > 0 {
			lines = append(lines, "", "Intel that might help:")
			for _, p := range rec.HintFiles {
				lines = append(lines, "  "+p)
			}
		}
		return hackterm.Lines(lines...), nil
	}

	size := h.extractedSize()
	var lines []string
	switch {
	case known && rec.RequiresCracking:
		// Reaching here means the password was cracked earlier.
		lines = []string{
			fmt.Sprintf("[*] Reconnecting to %s (%s)...", target, rec.Name),
			"[*] Phase 1: Reconnaissance... " + progressBar(100),
			"[*] Phase 2: Authenticating with cracked credentials... OK",
			"[*] Phase 3: Data extraction... " + progressBar(100),
		}
	case known:
		lines = []string{
			fmt.Sprintf("[*] Connecting to %s (%s)...", target, rec.Name),
			"[*] " + rec.Description,
			"[*] Phase 1: Reconnaissance... " + progressBar(100),
			"[*] Phase 2: No authentication required. Walking right in.",
			"[*] Phase 3: Data extraction... " + progressBar(100),
		}
	default:
		lines = []string{
			fmt.Sprintf("[*] Target acquired: %s", target),
			"[*] Phase 1: Reconnaissance",
			"    MAC address: " + h.Net.MAC().String(),
			"    Open ports:  " + h.portList(h.Net.Between(2, 5)),
			"    " + progressBar(25),
			"[*] Phase 2: Authentication bypass",
			"    Vulnerability: " + h.Net.Vulnerability(),
			fmt.Sprintf("    Exploit compatibility: %d%%", h.Net.Between(72, 99)),
			"    " + progressBar(50),
			"[*] Phase 3: Exploitation",
			"    Payload delivered. Shell spawned as www-data.",
			"    " + progressBar(70),
			"[*] Phase 4: Privilege escalation",
			"    Kernel exploit succeeded. uid=0(root)",
			"    " + progressBar(90),
			"[*] Phase 5: Data extraction",
			"    " + progressBar(100),
		}
	}

	h.Sessions.Add(target, size, hackterm.AccessAdmin)
	lines = append(lines,
		fmt.Sprintf("[+] Extracted %d KB of data.", size),
		fmt.Sprintf("[+] Session established with %s (ADMIN access).", target),
	)
	res := hackterm.Lines(lines...)
	res.IsAnimated = true
	done := 100
	res.Progress = &done
	return res, nil
}

func (h *handlers) connect(_ context.Context, args []string, _ *hackterm.Env) (hackterm.Result, error) {
	if len(args) == 0 {
		return hackterm.Failure("Usage: connect <target>"), nil
	}
	target := args[0]
	if _, ok := h.Sessions.Get(target); ok {
		return hackterm.Lines(fmt.Sprintf("Already connected to %s.", target)), nil
	}
	h.Sessions.Add(target, 0, hackterm.AccessGuest)
	return hackterm.Lines(
		fmt.Sprintf("Connecting to %s...", target),
		fmt.Sprintf("Connected to %s (GUEST access).", target),
	), nil
}

func (h *handlers) disconnect(_ context.Context, args []string, _ *hackterm.Env) (hackterm.Result, error) {
	active := h.Sessions.List()
	if len(active) == 0 {
		return hackterm.Lines("No active sessions."), nil
	}

	if len(args) > 0 {
		if strings.EqualFold(args[0], "all") {
			n := h.Sessions.Clear()
			return hackterm.Lines(fmt.Sprintf("Disconnected from %d %s.", n, plural(n, "session"))), nil
		}
		if !h.Sessions.Remove(args[0]) {
			return hackterm.Failure(fmt.Sprintf("No active session for %s.", args[0])), nil
		}
		return hackterm.Lines(fmt.Sprintf("Disconnected from %s.", args[0])), nil
	}

	if len(active) == 1 {
		h.Sessions.Remove(active[0].TargetIP)
		return hackterm.Lines(fmt.Sprintf("Disconnected from %s.", active[0].TargetIP)), nil
	}

	lines := []string{"Multiple active sessions:"}
	for _, s := range active {
		lines = append(lines, "  "+s.TargetIP)
	}
	lines = append(lines, "Specify a target or use 'disconnect all'.")
	return hackterm.Lines(lines...), nil
}

func (h *handlers) sessions(_ context.Context, _ []string, _ *hackterm.Env) (hackterm.Result, error) {
	active := h.Sessions.List()
	if len(active) == 0 {
		return hackterm.Lines("No active sessions."), nil
	}
	lines := []string{fmt.Sprintf("Active sessions (%d):", len(active))}
	for _, s := range active {
		lines = append(lines, fmt.Sprintf("  %-16s %-6s %6d KB  %s",
			s.TargetIP, s.AccessLevel, s.DataSize, sessions.FormatDuration(h.Sessions.Elapsed(s))))
	}
	return hackterm.Lines(lines...), nil
}

func (h *handlers) scan(_ context.Context, _ []string, _ *hackterm.Env) (hackterm.Result, error) {
	lines := []string{"[*] Scanning network...", ""}
	for _, rec := range h.Servers.All() {
		status := "OPEN"
		switch {
		case h.Servers.IsCracked(rec.IP):
			status = "CRACKED"
		case rec.RequiresCracking:
			status = "LOCKED"
		}
		lines = append(lines, fmt.Sprintf("  %-15s %-28s [%s] %s", rec.IP, rec.Name, status, rec.Difficulty))
	}
	for i := h.Net.Between(1, 3); i > 0; i-- {
		lines = append(lines, fmt.Sprintf("  %-15s %-28s [FILTERED]", h.Net.IP(), "unknown host"))
	}
	lines = append(lines, "", "[*] Scan complete. Use 'hack <target>' to begin.")
	res := hackterm.Lines(lines...)
	res.IsAnimated = true
	return res, nil
}

func (h *handlers) ping(_ context.Context, args []string, _ *hackterm.Env) (hackterm.Result, error) {
	if len(args) == 0 {
		return hackterm.Failure("Usage: ping <host> [count]"), nil
	}
	count := 4
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 || n > 20 {
			return hackterm.Failure("ping: count must be between 1 and 20"), nil
		}
		count = n
	}
	res := hackterm.Lines(h.Net.Ping(args[0], count)...)
	res.IsAnimated = true
	return res, nil
}

func (h *handlers) dig(_ context.Context, args []string, _ *hackterm.Env) (hackterm.Result, error) {
	if len(args) == 0 {
		return hackterm.Failure("Usage: dig <host>"), nil
	}
	host := args[0]
	answer := h.Net.IP()
	if rec, ok := h.Servers.Lookup(host); ok {
		answer = strings.ToLower(strings.ReplaceAll(rec.Name, " ", "-")) + ".neocorp.net"
	} else if isIP(host) {
		answer = "host-" + strings.ReplaceAll(host, ".", "-") + ".neocorp.net"
	}
	lines, err := h.Net.Dig(host, answer)
	if err != nil {
		return hackterm.Failure(fmt.Sprintf("dig: %v", err)), nil
	}
	return hackterm.Lines(lines...), nil
}

func (h *handlers) sniff(_ context.Context, args []string, _ *hackterm.Env) (hackterm.Result, error) {
	target := ""
	count := 5
	if len(args) > 0 {
		target = args[0]
	}
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 || n > 50 {
			return hackterm.Failure("sniff: count must be between 1 and 50"), nil
		}
		count = n
	}
	lines, err := h.Net.Sniff(target, count)
	if err != nil {
		return hackterm.Result{}, fmt.Errorf("sniff: %w", err)
	}
	res := hackterm.Lines(lines...)
	res.IsAnimated = true
	return res, nil
}

func (h *handlers) portList(n int) string {
	var parts []string
	for _, p := range h.Net.Ports(n) {
		parts = append(parts, fmt.Sprintf("%d/%s", p, netsim.Service(p)))
	}
	return strings.Join(parts, ", ")
}

func isIP(s string) bool {
	return net.ParseIP(s) != nil
}

func progressBar(pct int) string {
	const width = 20
	filled := pct * width / 100
	return fmt.Sprintf("[%s%s] %d%%", strings.Repeat("#", filled), strings.Repeat("-", width-filled), pct)
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
