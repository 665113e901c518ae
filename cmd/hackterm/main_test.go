package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hackterm/internal/config"
	"hackterm/internal/kvstore"
	"hackterm/internal/terminal"
)

func newTerminal(t *testing.T) *terminal.Terminal {
	t.Helper()
	cat, err := config.Default()
	require.NoError(t, err)
	return terminal.New(kvstore.NewMemory(), cat)
}

func TestREPL(t *testing.T) {
	term := newTerminal(t)
	var out bytes.Buffer

	in := strings.NewReader("echo hello\nwhoami\nexit\necho unreachable\n")
	require.NoError(t, repl(context.Background(), term, in, &out, 0))

	text := out.String()
	assert.Contains(t, text, "user@hackterm:~$ ")
	assert.Contains(t, text, "hello\n")
	assert.NotContains(t, text, "unreachable")
}

func TestREPLDestroyResets(t *testing.T) {
	term := newTerminal(t)
	var out bytes.Buffer

	in := strings.NewReader("theme amber\nsudo rm -rf /\n")
	require.NoError(t, repl(context.Background(), term, in, &out, 0))

	assert.Contains(t, out.String(), "System restored from backup.")
	assert.Equal(t, "green", term.Status().Theme)
}

func TestREPLClearAndNotifications(t *testing.T) {
	term := newTerminal(t)
	var out bytes.Buffer

	in := strings.NewReader("clear\nxyzzy\n")
	require.NoError(t, repl(context.Background(), term, in, &out, 0))

	assert.Contains(t, out.String(), clearScreen)
	assert.Contains(t, out.String(), ">>> Secret discovered: Nothing Happens")
}

func TestOpenUsesStateFile(t *testing.T) {
	settings := config.Settings{StatePath: filepath.Join(t.TempDir(), "state", "terminal.json")}

	term, err := open(context.Background(), settings)
	require.NoError(t, err)
	term.Execute(context.Background(), "theme amber")

	reopened, err := open(context.Background(), settings)
	require.NoError(t, err)
	assert.Equal(t, "amber", reopened.Status().Theme)
}

func TestLoadCatalogMissingFile(t *testing.T) {
	_, err := loadCatalog(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
