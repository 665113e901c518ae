package sessions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hackterm/internal/hackterm"
	"hackterm/internal/kvstore"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func TestAddReplacesSameTarget(t *testing.T) {
	clock := &fakeClock{t: time.UnixMilli(1_000_000)}
	r := New(kvstore.NewMemory(), clock.Now)

	r.Add("10.0.0.1", 100, hackterm.AccessGuest)
	clock.t = clock.t.Add(time.Minute)
	r.Add("10.0.0.1", 2500, hackterm.AccessAdmin)

	list := r.List()
	require.Len(t, list, 1)
	assert.Equal(t, 2500, list[0].DataSize)
	assert.Equal(t, hackterm.AccessAdmin, list[0].AccessLevel)
	assert.Equal(t, clock.t.UnixMilli(), list[0].StartTime)
}

func TestRemoveAndClear(t *testing.T) {
	r := New(kvstore.NewMemory(), nil)
	r.Add("a", 0, hackterm.AccessGuest)
	r.Add("b", 0, hackterm.AccessGuest)
	r.Add("c", 0, hackterm.AccessGuest)

	assert.True(t, r.Remove("b"))
	assert.False(t, r.Remove("b"))
	_, ok := r.Get("a")
	assert.True(t, ok)

	assert.Equal(t, 2, r.Clear())
	assert.Empty(t, r.List())
	assert.Equal(t, 0, r.Clear())
}

func TestPersistsAcrossRegistries(t *testing.T) {
	store := kvstore.NewMemory()
	New(store, nil).Add("192.168.1.42", 1234, hackterm.AccessAdmin)

	s, ok := New(store, nil).Get("192.168.1.42")
	require.True(t, ok)
	assert.Equal(t, 1234, s.DataSize)
}

func TestCorruptStoreDegradesToEmpty(t *testing.T) {
	store := kvstore.NewMemory()
	require.NoError(t, store.Set(storeKey, []byte("{not json")))
	assert.Empty(t, New(store, nil).List())
}

func TestElapsedAndFormat(t *testing.T) {
	clock := &fakeClock{t: time.UnixMilli(0)}
	r := New(kvstore.NewMemory(), clock.Now)
	s := r.Add("x", 0, hackterm.AccessGuest)

	clock.t = clock.t.Add(75 * time.Second)
	assert.Equal(t, "1m 15s", FormatDuration(r.Elapsed(s)))
	assert.Equal(t, "42s", FormatDuration(42*time.Second))
	assert.Equal(t, "0s", FormatDuration(0))
}
