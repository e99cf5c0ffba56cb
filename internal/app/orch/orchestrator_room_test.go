package orch

import (
	"testing"

	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinPresenceSequence(t *testing.T) {
	h := newHarness(t, Options{})

	a := h.join("A", "alice", "R1")
	evs := a.drain(t)
	assert.Equal(t, []string{core.EventJoinedRoom, core.EventRoomUsersList}, names(evs))
	joined := decodeAs[core.JoinedRoom](t, evs[0])
	assert.Equal(t, core.JoinedRoom{ConnectionID: "A", DisplayName: "alice", RoomID: "R1"}, joined)

	b := h.join("B", "bob", "R1")
	bEvs := b.drain(t)
	assert.Equal(t, []string{core.EventJoinedRoom, core.EventRoomUsersList}, names(bEvs))

	aEvs := a.drain(t)
	assert.Equal(t, []string{core.EventUserJoined, core.EventRoomUsersList}, names(aEvs))
	notice := decodeAs[core.PresenceNotice](t, aEvs[0])
	assert.Equal(t, "bob", notice.DisplayName)
	assert.Equal(t, "bob joined the room", notice.Message)

	want := []core.MemberDTO{{ConnectionID: "A", DisplayName: "alice"}, {ConnectionID: "B", DisplayName: "bob"}}
	assert.Equal(t, want, decodeAs[[]core.MemberDTO](t, aEvs[1]))
	assert.Equal(t, want, decodeAs[[]core.MemberDTO](t, bEvs[1]))
}

func TestJoinErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload any
		want    string
	}{
		{name: "blank name", payload: core.JoinRoomRequest{DisplayName: "  ", RoomID: "R1"}, want: domain.ErrDisplayNameEmpty.Error()},
		{name: "no room", payload: core.JoinRoomRequest{DisplayName: "alice"}, want: domain.ErrRoomIDEmpty.Error()},
		{name: "malformed", payload: `{"displayName":`, want: errBadPayload.Error()},
		{name: "no payload", payload: nil, want: domain.ErrDisplayNameEmpty.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, Options{})
			other := h.join("B", "bob", "R1")
			other.drain(t)
			a := h.connect("A")

			h.send("A", core.EventJoinRoom, tt.payload)

			evs := a.drain(t)
			got := single[core.ErrorPayload](t, evs, core.EventJoinError)
			assert.Equal(t, tt.want, got.Message)
			assert.Len(t, evs, 1)
			assert.Empty(t, other.drain(t), "a failed join notifies nobody")
			_, ok := h.o.Registry.Lookup("A")
			assert.False(t, ok)
		})
	}
}

func TestGetRoomUsersIsIdempotent(t *testing.T) {
	h := newHarness(t, Options{})
	a := h.join("A", "alice", "R1")
	h.join("B", "bob", "R1")
	h.join("C", "carol", "R2")
	h.drainAll()

	h.send("A", core.EventGetRoomUsers, `{}`)
	h.send("A", core.EventGetRoomUsers, nil)

	evs := a.drain(t)
	require.Len(t, evs, 2)
	first := decodeAs[[]core.MemberDTO](t, evs[0])
	second := decodeAs[[]core.MemberDTO](t, evs[1])
	assert.ElementsMatch(t, first, second)
	assert.Len(t, first, 2)
	assert.Empty(t, h.conns["B"].drain(t), "only the requester gets the list")
}

func TestExplicitLeave(t *testing.T) {
	h := newHarness(t, Options{})
	a := h.join("A", "alice", "R1")
	b := h.join("B", "bob", "R1")
	h.drainAll()

	h.send("A", core.EventLeaveRoom, `{}`)

	aEvs := a.drain(t)
	assert.Equal(t, []string{core.EventLeftRoom}, names(aEvs))
	assert.Equal(t, "R1", decodeAs[core.LeftRoom](t, aEvs[0]).RoomID)

	bEvs := b.drain(t)
	assert.Equal(t, []string{core.EventUserLeft, core.EventRoomUsersList}, names(bEvs))
	assert.Equal(t, "alice left the room", decodeAs[core.PresenceNotice](t, bEvs[0]).Message)
	assert.Equal(t, []core.MemberDTO{{ConnectionID: "B", DisplayName: "bob"}}, decodeAs[[]core.MemberDTO](t, bEvs[1]))

	_, bound := h.o.Registry.Signal("A")
	assert.True(t, bound, "leaving keeps the connection")

	h.send("A", core.EventLeaveRoom, nil)
	assert.Equal(t, domain.ErrUnregistered.Error(), single[core.ErrorPayload](t, a.drain(t), core.EventError).Message)
}

func TestRejoinOverwriteIsSilent(t *testing.T) {
	h := newHarness(t, Options{Rejoin: app.RejoinOverwrite})
	a := h.join("A", "alice", "R1")
	b := h.join("B", "bob", "R1")
	h.drainAll()

	h.join("A", "alice", "R2")

	assert.Empty(t, b.drain(t), "old room hears nothing")
	assert.Equal(t, []string{core.EventJoinedRoom, core.EventRoomUsersList}, names(a.drain(t)))
	assert.Equal(t, []core.MemberDTO{{ConnectionID: "B", DisplayName: "bob"}}, h.o.Registry.MembersOf("R1", ""))
}

func TestRejoinLeaveFirst(t *testing.T) {
	h := newHarness(t, Options{Rejoin: app.RejoinLeaveFirst})
	a := h.join("A", "alice", "R1")
	b := h.join("B", "bob", "R1")
	h.send("A", core.EventCallUser, core.CallUserRequest{TargetConnection: "B", MediaKind: "audio"})
	h.drainAll()

	// Invalid input is rejected before the old room is left.
	h.join("A", "   ", "R2")
	assert.Equal(t, domain.ErrDisplayNameEmpty.Error(), single[core.ErrorPayload](t, a.drain(t), core.EventJoinError).Message)
	assert.Empty(t, b.drain(t))
	prev, ok := h.o.Registry.Lookup("A")
	require.True(t, ok)
	assert.Equal(t, domain.RoomID("R1"), prev.RoomID)
	assert.Equal(t, 1, h.o.Calls.Len())

	h.join("A", "alice", "R2")

	bEvs := b.drain(t)
	assert.Equal(t, []string{core.EventCallEnded, core.EventUserLeft, core.EventRoomUsersList}, names(bEvs))
	ended := decodeAs[core.CallEnded](t, bEvs[0])
	assert.Equal(t, core.CallEnded{FromConnection: "A", FromDisplayName: "alice", Reason: string(domain.EndLeft)}, ended)
	assert.Equal(t, []string{core.EventJoinedRoom, core.EventRoomUsersList}, names(a.drain(t)))
	assert.Zero(t, h.o.Calls.Len())

	// Same room and name: nothing to leave.
	h.join("A", "alice", "R2")
	assert.Empty(t, b.drain(t))
}

func TestDisconnectBeforeJoin(t *testing.T) {
	h := newHarness(t, Options{})
	b := h.join("B", "bob", "R1")
	h.connect("A")
	h.drainAll()

	h.o.OnDisconnect("A")

	assert.Empty(t, b.drain(t))
	_, bound := h.o.Registry.Signal("A")
	assert.False(t, bound)
}
