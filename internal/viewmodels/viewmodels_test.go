package viewmodels

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hackterm/internal/hackterm"
	"hackterm/internal/terminal"
	"hackterm/internal/virus"
)

func TestBuildTerminalDetail(t *testing.T) {
	tests := []struct {
		name      string
		status    terminal.Status
		wantEmoji string
		wantMsg   string
		wantTime  string
	}{
		{
			name:      "fresh",
			status:    terminal.Status{SecretsTotal: 6, MissionsTotal: 3},
			wantEmoji: "🔒",
			wantMsg:   "Fresh install",
		},
		{
			name:      "halfway",
			status:    terminal.Status{Commands: 40, Secrets: 3, SecretsTotal: 6, MissionsDone: 2, MissionsTotal: 3},
			wantEmoji: "💀",
			wantMsg:   "Halfway there",
		},
		{
			name:      "complete",
			status:    terminal.Status{Commands: 99, Secrets: 6, SecretsTotal: 6, MissionsDone: 3, MissionsTotal: 3},
			wantEmoji: "👑",
			wantMsg:   "never stood a chance",
		},
		{
			name: "infected timed",
			status: terminal.Status{Commands: 5, SecretsTotal: 6, MissionsTotal: 3,
				Virus: &hackterm.VirusState{IsInfected: true, VirusType: hackterm.VirusTrojan, TimeRemaining: 12500}},
			wantEmoji: "☣️",
			wantMsg:   "Currently infected",
			wantTime:  "12s",
		},
		{
			name: "infected permanent",
			status: terminal.Status{Commands: 5, SecretsTotal: 6, MissionsTotal: 3,
				Virus: &hackterm.VirusState{IsInfected: true, VirusType: hackterm.VirusAdware, TimeRemaining: virus.Forever}},
			wantEmoji: "☣️",
			wantMsg:   "Currently infected",
			wantTime:  "permanent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := BuildTerminalDetail("id", tt.status, time.Time{})
			assert.Equal(t, tt.wantEmoji, d.ProgressEmoji)
			assert.Contains(t, d.ProgressMessage, tt.wantMsg)
			assert.Equal(t, tt.wantTime, d.TimeRemaining)
		})
	}
}

func TestBuildTerminalList(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	var items []TerminalListItem
	for i := 0; i < 5; i++ {
		items = append(items, TerminalListItem{ID: fmt.Sprintf("t%d", i), LastActive: base.Add(time.Duration(i) * time.Minute)})
	}

	view := BuildTerminalList(items, 1, 2)
	require.Len(t, view.Terminals, 2)
	assert.Equal(t, "t4", view.Terminals[0].ID, "most recent first")
	assert.Equal(t, 3, view.TotalPages)
	assert.False(t, view.HasPrevious)
	assert.True(t, view.HasNext)

	view = BuildTerminalList(items, 99, 2)
	assert.Equal(t, 3, view.Page)
	require.Len(t, view.Terminals, 1)
	assert.Equal(t, "t0", view.Terminals[0].ID)
	assert.False(t, view.HasNext)

	view = BuildTerminalList(nil, 0, 0)
	assert.Equal(t, 1, view.Page)
	assert.Empty(t, view.Terminals)
}

func TestCommandResponseJSON(t *testing.T) {
	resp := BuildCommandResponse("abc", hackterm.Result{ShouldDestroy: true}, []string{"hi"}, "user@hackterm:~$ ")
	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "abc", decoded["terminalId"])
	assert.Equal(t, true, decoded["shouldDestroy"])
	assert.Equal(t, []any{}, decoded["output"])
	assert.Equal(t, []any{"hi"}, decoded["notifications"])
}
