// Package viewmodels provides the JSON view models served by the terminal server.
package viewmodels

import (
	"fmt"
	"sort"
	"time"

	"hackterm/internal/hackterm"
	"hackterm/internal/terminal"
	"hackterm/internal/virus"
)

// CommandRequest is the body of a command submission.
type CommandRequest struct {
	Input string `json:"input"`
}

// CommandResponse is a command result plus the notifications it produced.
type CommandResponse struct {
	hackterm.Result

	TerminalID    string   `json:"terminalId"`
	Notifications []string `json:"notifications,omitempty"`
	Prompt        string   `json:"prompt"`
}

// BuildCommandResponse assembles the response for one executed command.
func BuildCommandResponse(id string, res hackterm.Result, notifications []string, prompt string) CommandResponse {
	if res.Output == nil {
		res.Output = []string{}
	}
	return CommandResponse{
		Result:        res,
		TerminalID:    id,
		Notifications: notifications,
		Prompt:        prompt,
	}
}

// TerminalListItem represents a terminal in the list view with a progress summary.
type TerminalListItem struct {
	ID            string    `json:"id"`
	User          string    `json:"user"`
	Theme         string    `json:"theme"`
	LastActive    time.Time `json:"lastActive"`
	Sessions      int       `json:"sessions"`
	Cracked       int       `json:"cracked"`
	Infected      bool      `json:"infected"`
	VirusType     string    `json:"virusType,omitempty"`
	ProgressScore float64   `json:"progressScore"`
	ProgressEmoji string    `json:"progressEmoji"`
}

// TerminalListView is one page of terminals.
type TerminalListView struct {
	Terminals   []TerminalListItem `json:"terminals"`
	Page        int                `json:"page"`
	TotalPages  int                `json:"totalPages"`
	Total       int                `json:"total"`
	HasPrevious bool               `json:"hasPrevious"`
	HasNext     bool               `json:"hasNext"`
}

// TerminalDetail is the detailed view of one terminal.
type TerminalDetail struct {
	TerminalListItem

	Size            hackterm.Size `json:"size"`
	SecretsFound    int           `json:"secretsFound"`
	SecretsTotal    int           `json:"secretsTotal"`
	MissionsDone    int           `json:"missionsDone"`
	MissionsTotal   int           `json:"missionsTotal"`
	TimeRemaining   string        `json:"timeRemaining,omitempty"`
	Commands        int           `json:"commands"`
	ProgressMessage string        `json:"progressMessage"`
}

// BuildListItem summarizes a terminal status.
func BuildListItem(id string, st terminal.Status, lastActive time.Time) TerminalListItem {
	item := TerminalListItem{
		ID:         id,
		User:       st.User,
		Theme:      st.Theme,
		LastActive: lastActive,
		Sessions:   st.Sessions,
		Cracked:    st.Cracked,
	}
	if st.Virus != nil {
		item.Infected = true
		item.VirusType = string(st.Virus.VirusType)
	}
	item.ProgressScore = progressScore(st)
	switch {
	case item.Infected:
		item.ProgressEmoji = "☣️"
	case item.ProgressScore == 1:
		item.ProgressEmoji = "👑"
	case item.ProgressScore >= 0.5:
		item.ProgressEmoji = "💀"
	case item.ProgressScore > 0:
		item.ProgressEmoji = "🔓"
	default:
		item.ProgressEmoji = "🔒"
	}
	return item
}

// BuildTerminalDetail creates the detailed view model for a single terminal.
func BuildTerminalDetail(id string, st terminal.Status, lastActive time.Time) TerminalDetail {
	detail := TerminalDetail{
		TerminalListItem: BuildListItem(id, st, lastActive),
		Size:             st.Size,
		SecretsFound:     st.Secrets,
		SecretsTotal:     st.SecretsTotal,
		MissionsDone:     st.MissionsDone,
		MissionsTotal:    st.MissionsTotal,
		Commands:         st.Commands,
	}
	if st.Virus != nil {
		if st.Virus.TimeRemaining == virus.Forever {
			detail.TimeRemaining = "permanent"
		} else {
			detail.TimeRemaining = fmt.Sprintf("%ds", st.Virus.TimeRemaining/1000)
		}
	}

	score := detail.ProgressScore
	switch {
	case st.Commands == 0:
		detail.ProgressMessage = "Fresh install. Nobody has touched this terminal yet."
	case detail.Infected:
		detail.ProgressMessage = "Currently infected. Somebody opened the wrong file."
	case score == 1.0:
		detail.ProgressMessage = "Everything found, every mission done. NeoCorp never stood a chance."
	case score >= 0.75:
		detail.ProgressMessage = "Deep inside the NeoCorp network. The mainframe is nervous."
	case score >= 0.5:
		detail.ProgressMessage = "Halfway there. The sysadmins have started to notice."
	case score > 0:
		detail.ProgressMessage = "First footholds. Script kiddie with ambition."
	default:
		detail.ProgressMessage = "Lots of typing, nothing to show for it yet."
	}
	return detail
}

// BuildTerminalList sorts items by recent activity and returns the requested page.
// Pages are 1-based; out-of-range pages are clamped.
func BuildTerminalList(items []TerminalListItem, page, perPage int) TerminalListView {
	sorted := make([]TerminalListItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].LastActive.Equal(sorted[j].LastActive) {
			return sorted[i].LastActive.After(sorted[j].LastActive)
		}
		return sorted[i].ID < sorted[j].ID
	})

	if perPage <= 0 {
		perPage = 20
	}
	total := len(sorted)
	totalPages := (total + perPage - 1) / perPage
	if totalPages == 0 {
		totalPages = 1
	}
	page = max(1, min(page, totalPages))

	start := (page - 1) * perPage
	end := min(start+perPage, total)

	return TerminalListView{
		Terminals:   sorted[start:end],
		Page:        page,
		TotalPages:  totalPages,
		Total:       total,
		HasPrevious: page > 1,
		HasNext:     page < totalPages,
	}
}

func progressScore(st terminal.Status) float64 {
	total := st.SecretsTotal + st.MissionsTotal
	if total == 0 {
		return 0
	}
	return float64(st.Secrets+st.MissionsDone) / float64(total)
}
