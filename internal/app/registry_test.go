package app

import (
	"testing"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopConn struct{}

func (nopConn) TrySend(core.Frame) error { return nil }
func (nopConn) Close()                   {}

func TestRegistryRegisterLookupRemove(t *testing.T) {
	r := NewRegistry()

	sess, err := r.Register("c1", "alice", "R1")
	require.NoError(t, err)
	assert.Equal(t, domain.Session{DisplayName: "alice", RoomID: "R1"}, sess)

	got, ok := r.Lookup("c1")
	require.True(t, ok)
	assert.Equal(t, sess, got)

	removed, ok := r.Remove("c1")
	require.True(t, ok)
	assert.Equal(t, sess, removed)

	_, ok = r.Lookup("c1")
	assert.False(t, ok)

	_, ok = r.Remove("c1")
	assert.False(t, ok, "remove is idempotent")
	_, ok = r.Remove("never")
	assert.False(t, ok)
}

func TestRegistryRegisterOverwrites(t *testing.T) {
	r := NewRegistry()
	_, err := r.Register("c1", "alice", "R1")
	require.NoError(t, err)
	_, err = r.Register("c1", "alicia", "R2")
	require.NoError(t, err)

	got, ok := r.Lookup("c1")
	require.True(t, ok)
	assert.Equal(t, domain.Session{DisplayName: "alicia", RoomID: "R2"}, got)
	assert.Empty(t, r.MembersOf("R1", ""))
}

func TestRegistryRegisterRejectsBlank(t *testing.T) {
	r := NewRegistry()
	_, err := r.Register("c1", " ", "R1")
	assert.ErrorIs(t, err, domain.ErrDisplayNameEmpty)
	_, err = r.Register("c1", "alice", "")
	assert.ErrorIs(t, err, domain.ErrRoomIDEmpty)

	_, ok := r.Lookup("c1")
	assert.False(t, ok, "failed register leaves no session")
}

func TestRegistryBindingOutlivesSession(t *testing.T) {
	r := NewRegistry()
	canceled := false
	r.BindSignal("c1", nopConn{}, func() { canceled = true })

	_, ok := r.Lookup("c1")
	assert.False(t, ok, "bound but not joined")
	_, ok = r.Signal("c1")
	assert.True(t, ok)

	_, err := r.Register("c1", "alice", "R1")
	require.NoError(t, err)
	r.Remove("c1")
	_, ok = r.Signal("c1")
	assert.True(t, ok, "leaving a room keeps the transport")

	conns, members := r.Stats()
	assert.Equal(t, 1, conns)
	assert.Equal(t, 0, members)

	assert.True(t, r.Cancel("c1"))
	assert.True(t, canceled)

	r.Unbind("c1")
	_, ok = r.Signal("c1")
	assert.False(t, ok)
	assert.False(t, r.Cancel("c1"))
}
