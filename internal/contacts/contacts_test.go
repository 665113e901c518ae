package contacts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hackterm/internal/config"
	"hackterm/internal/hackterm"
	"hackterm/internal/kvstore"
)

func TestHookDeliversAfterDelay(t *testing.T) {
	store := kvstore.NewMemory()
	defs := []config.Contact{
		{ID: "lain", Trigger: config.TriggerRule{Command: "crack", Output: "ACCESS GRANTED"}, Delay: 2, Message: "hello"},
		{ID: "now", Trigger: config.TriggerRule{Command: "xyzzy"}, Message: "instant"},
	}

	var got []string
	env := &hackterm.Env{Notify: func(m string) { got = append(got, m) }}
	run := func(h *Hook, cmd string, out ...string) {
		t.Helper()
		require.NoError(t, h.Observe(context.Background(), hackterm.Event{Command: cmd, Result: hackterm.Lines(out...), Env: env}))
	}

	h := New(defs, store)
	run(h, "ls")
	run(h, "crack", "ACCESS GRANTED: 192.168.1.42")
	run(h, "ls")
	assert.Empty(t, got)

	// State survives a rebuilt hook.
	h = New(defs, store)
	run(h, "ls")
	assert.Equal(t, []string{"hello"}, got)

	run(h, "crack", "ACCESS GRANTED")
	run(h, "ls")
	run(h, "ls")
	assert.Equal(t, []string{"hello"}, got, "delivered once")

	run(h, "xyzzy")
	assert.Equal(t, []string{"hello", "instant"}, got)
}

func TestHookInvalidTrigger(t *testing.T) {
	h := New([]config.Contact{{ID: "bad", Trigger: config.TriggerRule{Command: "ls", Args: "(["}}}, kvstore.NewMemory())
	err := h.Observe(context.Background(), hackterm.Event{Command: "ls", Args: []string{"x"}})
	assert.Error(t, err)
}
