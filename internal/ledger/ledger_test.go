package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hackterm/internal/analyzer"
	"hackterm/internal/config"
	"hackterm/internal/kvstore"
)

var missionDefs = []config.Mission{
	{
		ID:           "first_blood",
		Notification: "Mission complete: First Blood.",
		Objectives: []config.Objective{
			{Trigger: config.TriggerRule{Command: "scan"}},
			{Trigger: config.TriggerRule{Command: "crack", Args: `192\.168\.1\.42`, Output: "ACCESS GRANTED"}},
		},
	},
	{
		ID:         "clean_machine",
		Objectives: []config.Objective{{Trigger: config.TriggerRule{Command: "cure", Output: "Infection removed"}}},
	},
}

var secretDefs = []config.Secret{
	{ID: "xyzzy", Trigger: config.TriggerRule{Command: "xyzzy"}},
	{ID: "passwd", Trigger: config.TriggerRule{Command: "cat,head", Args: "/etc/passwd"}},
	{ID: "ghost", Trigger: config.TriggerRule{Command: "sessions", Mission: "first_blood"}},
}

func TestStats(t *testing.T) {
	store := kvstore.NewMemory()
	s := NewStats(store)
	s.Record("LS")
	s.Record("ls")
	s.Record("nope")
	s.Record("")

	assert.Equal(t, map[string]int{"ls": 2, "nope": 1}, NewStats(store).Counts())
	assert.Equal(t, 3, s.Total())
}

func TestMissionsTrackInOrder(t *testing.T) {
	store := kvstore.NewMemory()
	m := NewMissions(missionDefs, store)

	granted := analyzer.Invocation{Command: "crack", Args: []string{"192.168.1.42", "ADMIN123"}, Output: []string{"ACCESS GRANTED: 192.168.1.42"}}

	assert.Empty(t, m.Track(granted), "objectives complete in order")
	assert.Empty(t, m.Track(analyzer.Invocation{Command: "scan"}))
	done, total := m.Progress("first_blood")
	assert.Equal(t, 1, done)
	assert.Equal(t, 2, total)

	assert.Equal(t, []string{"first_blood"}, m.Track(granted))
	assert.True(t, m.IsCompleted("first_blood"))
	assert.Equal(t, "Mission complete: First Blood.", m.Notification("first_blood"))

	assert.Empty(t, m.Track(granted), "completion is reported once")
	assert.True(t, NewMissions(missionDefs, store).IsCompleted("first_blood"))
	assert.False(t, m.IsCompleted("unknown"))
}

func TestSecretsDiscoveredOnce(t *testing.T) {
	store := kvstore.NewMemory()
	s := NewSecrets(secretDefs, NewMissions(missionDefs, store), store)

	got, ok := s.Check(analyzer.Invocation{Command: "head", Args: []string{"/etc/passwd"}})
	require.True(t, ok)
	assert.Equal(t, "passwd", got.ID)

	_, ok = s.Check(analyzer.Invocation{Command: "cat", Args: []string{"/etc/passwd"}})
	assert.False(t, ok)

	_, ok = s.Check(analyzer.Invocation{Command: "ls"})
	assert.False(t, ok)

	assert.Equal(t, []string{"passwd"}, s.Discovered())
}

func TestSecretsRequireMission(t *testing.T) {
	store := kvstore.NewMemory()
	missions := NewMissions(missionDefs, store)
	s := NewSecrets(secretDefs, missions, store)

	_, ok := s.Check(analyzer.Invocation{Command: "sessions"})
	assert.False(t, ok)

	missions.Track(analyzer.Invocation{Command: "scan"})
	missions.Track(analyzer.Invocation{Command: "crack", Args: []string{"192.168.1.42"}, Output: []string{"ACCESS GRANTED"}})

	got, ok := s.Check(analyzer.Invocation{Command: "sessions"})
	require.True(t, ok)
	assert.Equal(t, "ghost", got.ID)
}
