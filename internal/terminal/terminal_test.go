package terminal

import (
	"context"
	"errors"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hackterm/internal/commands"
	"hackterm/internal/config"
	"hackterm/internal/hackterm"
	"hackterm/internal/kvstore"
	"hackterm/internal/virus"
)

func newTerminal(t *testing.T, store kvstore.Store, opts ...Option) (*Terminal, *time.Time) {
	t.Helper()
	cat, err := config.Default()
	require.NoError(t, err)
	now := time.UnixMilli(1_700_000_000_000)
	opts = append([]Option{
		WithClock(func() time.Time { return now }),
		WithRand(rand.New(rand.NewSource(42))),
	}, opts...)
	return New(store, cat, opts...), &now
}

func TestExecuteRecordsHistory(t *testing.T) {
	term, _ := newTerminal(t, kvstore.NewMemory())
	ctx := context.Background()

	term.Execute(ctx, "ls")
	term.Execute(ctx, "   ")
	term.Execute(ctx, "echo hi")

	res := term.Execute(ctx, "history")
	assert.Equal(t, []string{"    1  ls", "    2  echo hi"}, res.Output)
	assert.Equal(t, 3, term.Status().Commands)
}

func TestPrefsPersist(t *testing.T) {
	store := kvstore.NewMemory()
	term, _ := newTerminal(t, store)
	ctx := context.Background()

	assert.Equal(t, "user@hackterm:~$ ", term.Prompt())
	term.Execute(ctx, "su lain")
	term.Execute(ctx, "theme amber")
	term.Execute(ctx, "resize 100 30")

	again, _ := newTerminal(t, store)
	st := again.Status()
	assert.Equal(t, "lain", st.User)
	assert.Equal(t, "amber", st.Theme)
	assert.Equal(t, hackterm.Size{Cols: 100, Rows: 30}, st.Size)
	assert.Equal(t, "lain@hackterm:~$ ", again.Prompt())
}

func TestNotificationsAreQueued(t *testing.T) {
	term, _ := newTerminal(t, kvstore.NewMemory())
	ctx := context.Background()

	term.Execute(ctx, "theme matrix")
	assert.Equal(t, []string{"Secret discovered: Follow the White Rabbit"}, term.DrainNotifications())
	assert.Empty(t, term.DrainNotifications())

	term.Execute(ctx, "crack 192.168.1.42 ADMIN123")
	assert.Contains(t, term.DrainNotifications(), "Server cracked: NeoCorp Mail Gateway")
}

func TestErrorBoundary(t *testing.T) {
	boom := hackterm.ObserverFunc(func(context.Context, hackterm.Event) error { panic("observer") })
	term, _ := newTerminal(t, kvstore.NewMemory(),
		WithObserver(boom),
		WithCommands(
			commands.Command{Name: "explode", Run: func(context.Context, []string, *hackterm.Env) (hackterm.Result, error) {
				panic("handler exploded")
			}},
			commands.Command{Name: "broken", Run: func(context.Context, []string, *hackterm.Env) (hackterm.Result, error) {
				return hackterm.Result{}, errors.New("disk on fire")
			}},
		),
	)
	ctx := context.Background()

	res := term.Execute(ctx, "echo still works")
	assert.Equal(t, []string{"still works"}, res.Output)

	res = term.Execute(ctx, "explode")
	assert.True(t, res.Error)
	assert.Equal(t, []string{"Error: handler exploded"}, res.Output)

	res = term.Execute(ctx, "broken")
	assert.True(t, res.Error)
	assert.Equal(t, []string{"Error: broken: disk on fire"}, res.Output)

	// The terminal keeps working afterwards.
	assert.Equal(t, []string{"ok"}, term.Execute(ctx, "echo ok").Output)
	assert.Equal(t, 4, term.Status().Commands)
}

func TestInfectionCreatesDeactivationFile(t *testing.T) {
	term, _ := newTerminal(t, kvstore.NewMemory())
	ctx := context.Background()

	res := term.Execute(ctx, "cat downloads/neocorp_alert.txt")
	assert.True(t, res.IsVirusActive)

	res = term.Execute(ctx, "cat DEFENSE_OVERRIDE.txt")
	assert.False(t, res.Error)
	assert.Contains(t, res.Output, "ALPHA-DEFENSE-2077")

	res = term.Execute(ctx, "antivirus alpha-defense-2077")
	assert.False(t, res.Error)
	assert.Nil(t, term.Status().Virus)
}

func TestTimeoutThenReset(t *testing.T) {
	term, now := newTerminal(t, kvstore.NewMemory())
	ctx := context.Background()

	term.Execute(ctx, "hack 10.9.9.9")
	term.Execute(ctx, "cat neocorp/extracted_data.db")
	require.NotNil(t, term.Status().Virus)

	*now = now.Add(virus.Timeout)
	res := term.Execute(ctx, "ls")
	require.True(t, res.ShouldDestroy)

	require.NoError(t, term.Reset())
	st := term.Status()
	assert.Equal(t, 0, st.Sessions)
	assert.Equal(t, 0, st.Commands)
	assert.Nil(t, st.Virus)
}

func TestFileBackedTerminal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terminal.json")
	store, err := kvstore.OpenFile(context.Background(), path)
	require.NoError(t, err)

	term, _ := newTerminal(t, store)
	term.Execute(context.Background(), "connect 10.0.0.1")

	reopened, err := kvstore.OpenFile(context.Background(), path)
	require.NoError(t, err)
	again, _ := newTerminal(t, reopened)
	assert.Equal(t, 1, again.Status().Sessions)
}
