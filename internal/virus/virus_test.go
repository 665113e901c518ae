package virus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hackterm/internal/hackterm"
	"hackterm/internal/kvstore"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func TestCheckTrigger(t *testing.T) {
	tests := []struct {
		command string
		args    []string
		want    bool
	}{
		{"cat", []string{"downloads/neocorp_alert.txt"}, true},
		{"HEAD", []string{"-n", "5", "~/downloads/MESSAGE_FROM_LAIN.txt"}, false}, // "5" is the first operand
		{"head", []string{"-n5", "~/downloads/message_from_lain.txt"}, true},
		{"less", []string{"message_from_bob.txt"}, true},
		{"more", []string{"/tmp/text_corruption.log"}, true},
		{"tail", []string{"-f"}, false},
		{"cat", nil, false},
		{"cat", []string{"README.txt"}, false},
		{"gcc", []string{"virus_prototype.c", "-o", "x"}, true},
		{"gcc", []string{"hello.c"}, false},
		{"bash", []string{"run", "VIRUS_PROTOTYPE.bin"}, true},
		{"./virus_prototype.bin", nil, false},
		{"./run", []string{"virus_prototype.bin"}, true},
		{"ls", []string{"virus_prototype.bin"}, false},
		{"", []string{"virus_prototype.bin"}, false},
	}
	for _, tt := range tests {
		got := CheckTrigger(tt.command, tt.args)
		assert.Equal(t, tt.want, got, "CheckTrigger(%q, %q)", tt.command, tt.args)
	}
}

func TestDetectKind(t *testing.T) {
	tests := []struct {
		args []string
		want hackterm.VirusKind
	}{
		{[]string{"neocorp/virus_prototype.bin"}, hackterm.VirusPrototype},
		{[]string{"extracted_data.db"}, hackterm.VirusHoneypot},
		{[]string{"message_from_lain.txt"}, hackterm.VirusAdware},
		{[]string{"message_from_anyone.txt"}, hackterm.VirusAdware},
		{[]string{"Corrupted_Unicode.txt"}, hackterm.VirusCorruption},
		{[]string{"broken_encoding.txt"}, hackterm.VirusCorruption},
		{[]string{"neocorp_alert.txt"}, hackterm.VirusTrojan},
		{[]string{"project_alpha_defense.txt"}, hackterm.VirusTrojan},
		{nil, hackterm.VirusTrojan},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectKind("cat", tt.args), "DetectKind(%q)", tt.args)
	}
}

func TestCheckDeactivationCode(t *testing.T) {
	assert.True(t, CheckDeactivationCode(" alpha-defense-2077 ", hackterm.VirusTrojan))
	assert.True(t, CheckDeactivationCode("LAIN-DISCONNECT-2077", hackterm.VirusAdware))
	assert.False(t, CheckDeactivationCode("LAIN-DISCONNECT-2077", hackterm.VirusTrojan))
	assert.True(t, CheckDeactivationCode("alpha-defense-2077", "mystery"), "unknown kinds fall back to the trojan code")
	assert.Equal(t, "UNICODE-FIX-UTF8", DeactivationCode(hackterm.VirusCorruption))
	assert.Equal(t, "HONEYPOT-BREAK-42", DeactivationCode(hackterm.VirusHoneypot))
	assert.Equal(t, "PROTOTYPE-KILL-SWITCH", DeactivationCode(hackterm.VirusPrototype))
}

func TestTimeoutFiresForTimedKinds(t *testing.T) {
	for _, kind := range []hackterm.VirusKind{hackterm.VirusTrojan, hackterm.VirusHoneypot, hackterm.VirusPrototype} {
		t.Run(string(kind), func(t *testing.T) {
			clock := &fakeClock{t: time.UnixMilli(1_000_000)}
			m := New(kvstore.NewMemory(), clock.Now)
			m.SetState(true, kind)

			clock.t = clock.t.Add(10 * time.Second)
			st := m.GetState()
			require.NotNil(t, st)
			assert.Equal(t, int64(35000), st.TimeRemaining)
			assert.False(t, m.CheckTimeout())

			clock.t = clock.t.Add(35 * time.Second)
			assert.True(t, m.CheckTimeout())
			assert.Equal(t, int64(0), m.GetState().TimeRemaining)

			m.ClearState()
			assert.False(t, m.CheckTimeout())
			assert.Nil(t, m.GetState())
		})
	}
}

func TestPermanentKindsNeverExpire(t *testing.T) {
	for _, kind := range []hackterm.VirusKind{hackterm.VirusAdware, hackterm.VirusCorruption} {
		t.Run(string(kind), func(t *testing.T) {
			clock := &fakeClock{t: time.UnixMilli(0)}
			m := New(kvstore.NewMemory(), clock.Now)
			m.SetState(true, kind)

			clock.t = clock.t.Add(365 * 24 * time.Hour)
			assert.False(t, m.CheckTimeout())
			st := m.GetState()
			require.NotNil(t, st)
			assert.Equal(t, Forever, st.TimeRemaining)
		})
	}
}

func TestActivateRunsHooks(t *testing.T) {
	var got []hackterm.VirusKind
	m := New(kvstore.NewMemory(), nil,
		WithInfectHook(func(kind hackterm.VirusKind) error {
			got = append(got, kind)
			return nil
		}),
		WithInfectHook(func(hackterm.VirusKind) error { return errors.New("disk full") }),
		WithInfectHook(func(hackterm.VirusKind) error { panic("boom") }),
	)

	res := m.Activate(hackterm.VirusAdware)
	assert.True(t, res.IsVirusActive)
	assert.NotEmpty(t, res.Output)
	assert.Equal(t, []hackterm.VirusKind{hackterm.VirusAdware}, got)

	st := m.GetState()
	require.NotNil(t, st, "failing hooks must not block the infection")
	assert.Equal(t, hackterm.VirusAdware, st.VirusType)
}

func TestActivateWhileInfectedKeepsRecord(t *testing.T) {
	clock := &fakeClock{t: time.UnixMilli(1_000_000)}
	hooks := 0
	m := New(kvstore.NewMemory(), clock.Now, WithInfectHook(func(hackterm.VirusKind) error {
		hooks++
		return nil
	}))

	m.Activate(hackterm.VirusTrojan)
	started := m.GetState().StartTime

	clock.t = clock.t.Add(30 * time.Second)
	res := m.Activate(hackterm.VirusAdware)
	assert.True(t, res.IsVirusActive)
	assert.Contains(t, res.Output[0], "already compromised")

	st := m.GetState()
	require.NotNil(t, st)
	assert.Equal(t, hackterm.VirusTrojan, st.VirusType)
	assert.Equal(t, started, st.StartTime, "a second trigger must not restart the timer")
	assert.Equal(t, 1, hooks)
}

func TestCure(t *testing.T) {
	m := New(kvstore.NewMemory(), nil)

	_, ok := m.Cure("anything")
	assert.False(t, ok)

	m.SetState(true, hackterm.VirusAdware)
	kind, ok := m.Cure("ALPHA-DEFENSE-2077")
	assert.False(t, ok)
	assert.Equal(t, hackterm.VirusAdware, kind)
	assert.NotNil(t, m.GetState())

	kind, ok = m.Cure("lain-disconnect-2077")
	assert.True(t, ok)
	assert.Equal(t, hackterm.VirusAdware, kind)
	assert.Nil(t, m.GetState())
}

func TestCorruptStateIsUninfected(t *testing.T) {
	store := kvstore.NewMemory()
	require.NoError(t, store.Set(stateKey, []byte("garbage")))
	m := New(store, nil)
	assert.Nil(t, m.GetState())
	assert.False(t, m.CheckTimeout())
}

func TestDeactivationFile(t *testing.T) {
	for _, kind := range []hackterm.VirusKind{hackterm.VirusTrojan, hackterm.VirusAdware, hackterm.VirusCorruption} {
		p, content, ok := DeactivationFile(kind)
		assert.True(t, ok)
		assert.NotEmpty(t, p)
		assert.Contains(t, content, DeactivationCode(kind))
	}
	_, _, ok := DeactivationFile(hackterm.VirusPrototype)
	assert.False(t, ok)
}
