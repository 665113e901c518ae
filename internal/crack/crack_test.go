package crack

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hackterm/internal/hackterm"
	"hackterm/internal/kvstore"
	"hackterm/internal/servers"
)

type unlockRecorder struct{ paths []string }

func (u *unlockRecorder) Unlock(p string) { u.paths = append(u.paths, p) }

func newEngine(t *testing.T) (*Engine, *servers.Registry, *unlockRecorder) {
	t.Helper()
	reg := servers.New([]hackterm.ServerRecord{
		{
			IP: "192.168.1.42", Name: "Gateway", Password: "ADMIN123",
			Difficulty: hackterm.DifficultyEasy, RequiresCracking: true,
			UnlockFiles: []string{"/home/user/neocorp/mail_dump.txt"},
		},
		{IP: "10.0.0.13", Name: "Alpha", Password: "CYBERDECK", Difficulty: hackterm.DifficultyMedium, RequiresCracking: true},
		{IP: "10.10.10.10", Name: "Relay", Difficulty: hackterm.DifficultyEasy},
	}, kvstore.NewMemory())
	files := &unlockRecorder{}
	return New(reg, files, kvstore.NewMemory()), reg, files
}

func TestGenerateMask(t *testing.T) {
	tests := []struct {
		guess, password, want string
	}{
		{"ADMXN129", "ADMIN123", "ADM_N12_"},
		{"admin123", "ADMIN123", "ADMIN123"},
		{"NIMDA", "ADMIN", "??M??"},
		{"AAAA", "ABCD", "A___"},
		{"BAAA", "ABCD", "??__"},
		{"AB", "ABCD", "AB__"},
		{"", "ABC", "___"},
		{"ZZZZ", "ABCD", "____"},
	}
	for _, tt := range tests {
		t.Run(tt.guess+"/"+tt.password, func(t *testing.T) {
			got := GenerateMask(tt.guess, tt.password)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, GenerateMask(tt.guess, tt.password), "mask must be deterministic")
		})
	}
}

func TestAttemptUnknownTarget(t *testing.T) {
	e, _, _ := newEngine(t)
	out := e.Attempt("1.2.3.4", "x")
	assert.False(t, out.Success)
	assert.Empty(t, out.Mask)
	assert.Contains(t, out.Message, "1.2.3.4")
	assert.Contains(t, out.Message, "scan")
	assert.Nil(t, out.Attempt)
}

func TestAttemptUnprotectedTarget(t *testing.T) {
	e, _, _ := newEngine(t)
	out := e.Attempt("10.10.10.10", "anything")
	assert.False(t, out.Success)
	assert.Contains(t, out.Message, "not password protected")
}

func TestAttemptLengthMismatch(t *testing.T) {
	e, _, _ := newEngine(t)
	out := e.Attempt("192.168.1.42", "wrong")
	assert.False(t, out.Success)
	assert.Equal(t, "___?____", out.Mask)
	assert.Contains(t, out.Message, "Expected 8 characters")

	rec, ok := e.Status("192.168.1.42")
	require.True(t, ok)
	assert.Equal(t, 1, rec.Attempts)
	assert.Equal(t, "WRONG", rec.Password)
	assert.False(t, rec.IsCracked)
}

func TestAttemptRemainingWording(t *testing.T) {
	e, _, _ := newEngine(t)
	for i := 1; i <= 3; i++ {
		out := e.Attempt("192.168.1.42", "ADMXN129")
		assert.Equal(t, "ADM_N12_", out.Mask)
		assert.Contains(t, out.Message, "attempts remaining")
	}
	out := e.Attempt("192.168.1.42", "ADMXN129")
	assert.Contains(t, out.Message, "1 attempt remaining")
}

func TestAttemptCeiling(t *testing.T) {
	e, _, _ := newEngine(t)
	for i := 0; i < 5; i++ {
		e.Attempt("192.168.1.42", "BADPASS1")
	}
	before, _ := e.Status("192.168.1.42")
	require.Equal(t, 5, before.Attempts)

	out := e.Attempt("192.168.1.42", "ADMIN123")
	assert.False(t, out.Success)
	assert.Empty(t, out.Mask)
	assert.Contains(t, out.Message, "locked")

	after, _ := e.Status("192.168.1.42")
	assert.Equal(t, before, after, "over-limit attempt must not be recorded")
}

func TestAttemptSuccessIsMonotonic(t *testing.T) {
	e, reg, files := newEngine(t)

	out := e.Attempt("192.168.1.42", "admin123")
	require.True(t, out.Success)
	assert.Equal(t, "ADMIN123", out.Mask)
	assert.True(t, strings.Contains(out.Message, "ACCESS GRANTED"))
	assert.True(t, reg.IsCracked("192.168.1.42"))
	assert.Equal(t, []string{"/home/user/neocorp/mail_dump.txt"}, files.paths)

	rec, _ := e.Status("192.168.1.42")
	assert.True(t, rec.IsCracked)

	again := e.Attempt("192.168.1.42", "ADMIN123")
	assert.False(t, again.Success)
	assert.Contains(t, again.Message, "already been cracked")
}

func TestClear(t *testing.T) {
	e, _, _ := newEngine(t)
	e.Attempt("192.168.1.42", "x")
	e.Attempt("10.0.0.13", "x")

	assert.True(t, e.Clear("192.168.1.42"))
	assert.False(t, e.Clear("192.168.1.42"))
	assert.Len(t, e.All(), 1)

	e.ClearAll()
	assert.Empty(t, e.All())
}
