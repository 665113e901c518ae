package commands

import (
	"context"
	"fmt"
	"strings"

	"hackterm/internal/hackterm"
	"hackterm/internal/virus"
)

func (h *handlers) registerVirus() {
	c := Command{Name: "antivirus", Usage: "antivirus [code]", Summary: "Show infection status or submit a deactivation code", Run: h.antivirus}
	h.table.Register(c)
	c.Name = "cure"
	c.Usage = "cure [code]"
	h.table.Register(c)
}

func (h *handlers) antivirus(_ context.Context, args []string, _ *hackterm.Env) (hackterm.Result, error) {
	st := h.Virus.GetState()
	if st == nil {
		return hackterm.Lines("[*] Scanning memory...", "[+] No infection detected. System clean."), nil
	}

	if len(args) == 0 {
		remaining := "PERMANENT (will not expire)"
		if st.TimeRemaining != virus.Forever {
			remaining = fmt.Sprintf("%ds", st.TimeRemaining/1000)
		}
		res := hackterm.Failure(
			"[!] INFECTION DETECTED",
			"    Type:           "+strings.ToUpper(string(st.VirusType)),
			"    Time remaining: "+remaining,
			"Usage: antivirus <deactivation code>",
		)
		res.IsVirusActive = true
		return res, nil
	}

	kind, ok := h.Virus.Cure(strings.Join(args, " "))
	if !ok {
		res := hackterm.Failure(
			"[*] Verifying deactivation code...",
			"[!] Invalid deactivation code. The infection is still active.",
		)
		res.IsVirusActive = true
		return res, nil
	}
	return hackterm.Lines(
		"[*] Verifying deactivation code...",
		"[*] Purging "+string(kind)+" payload from memory...",
		"[+] Infection removed. System restored.",
	), nil
}
