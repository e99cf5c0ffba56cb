package orch

import (
	"encoding/json"
	"fmt"

	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
)

func joinError(id core.ConnectionID, err error) Outbound {
	return Outbound{To: id, Event: core.EventJoinError, Data: core.ErrorPayload{Message: err.Error()}}
}

func (o *Orchestrator) handleJoin(id core.ConnectionID, data json.RawMessage) []Outbound {
	p, err := decode[core.JoinRoomRequest](data)
	if err != nil {
		return []Outbound{joinError(id, err)}
	}
	// Reject bad input before the rejoin policy touches the old room.
	next, err := domain.NewSession(p.DisplayName, p.RoomID)
	if err != nil {
		return []Outbound{joinError(id, err)}
	}

	var outs []Outbound
	if prev, ok := o.Registry.Lookup(id); ok && o.rejoin == app.RejoinLeaveFirst && prev != next {
		log.Info().Str("module", "orch").Str("conn", string(id)).Str("from_room", prev.RoomID.String()).Msg("leaving before rejoin")
		outs = append(outs, o.leave(id, domain.EndLeft)...)
	}

	sess, err := o.Registry.Register(id, next.DisplayName, next.RoomID.String())
	if err != nil {
		return append(outs, joinError(id, err))
	}
	log.Info().Str("module", "orch").Str("conn", string(id)).Str("room", sess.RoomID.String()).Msg("join")

	outs = append(outs, Outbound{
		To:    id,
		Event: core.EventJoinedRoom,
		Data: core.JoinedRoom{
			ConnectionID: id,
			DisplayName:  sess.DisplayName,
			RoomID:       sess.RoomID.String(),
		},
	})
	outs = append(outs, o.broadcast(sess.RoomID, core.EventUserJoined, core.PresenceNotice{
		DisplayName: sess.DisplayName,
		Message:     fmt.Sprintf("%s joined the room", sess.DisplayName),
	}, id)...)
	return append(outs, o.roomUsers(sess.RoomID)...)
}

func (o *Orchestrator) handleLeave(id core.ConnectionID, _ json.RawMessage) []Outbound {
	sess, ok := o.Registry.Lookup(id)
	if !ok {
		return []Outbound{errorTo(id, domain.ErrUnregistered)}
	}
	log.Info().Str("module", "orch").Str("conn", string(id)).Str("room", sess.RoomID.String()).Msg("leave")
	outs := o.leave(id, domain.EndLeft)
	return append(outs, Outbound{To: id, Event: core.EventLeftRoom, Data: core.LeftRoom{RoomID: sess.RoomID.String()}})
}

func (o *Orchestrator) handleGetRoomUsers(id core.ConnectionID, _ json.RawMessage) []Outbound {
	sess, ok := o.Registry.Lookup(id)
	if !ok {
		return []Outbound{errorTo(id, domain.ErrUnregistered)}
	}
	return []Outbound{{To: id, Event: core.EventRoomUsersList, Data: o.Registry.MembersOf(sess.RoomID, "")}}
}

// leave removes the session of id, ends its calls, then tells the former room.
// Safe for connections that never joined.
func (o *Orchestrator) leave(id core.ConnectionID, reason domain.EndReason) []Outbound {
	sess, ok := o.Registry.Remove(id)
	outs := o.endCallsOf(id, sess.DisplayName, reason)
	if !ok {
		return outs
	}
	outs = append(outs, o.broadcast(sess.RoomID, core.EventUserLeft, core.PresenceNotice{
		DisplayName: sess.DisplayName,
		Message:     fmt.Sprintf("%s left the room", sess.DisplayName),
	}, id)...)
	return append(outs, o.roomUsers(sess.RoomID)...)
}

// roomUsers sends one membership snapshot, taken now, to every member.
func (o *Orchestrator) roomUsers(room domain.RoomID) []Outbound {
	members := o.Registry.MembersOf(room, "")
	outs := make([]Outbound, 0, len(members))
	for _, m := range members {
		outs = append(outs, Outbound{To: m.ConnectionID, Event: core.EventRoomUsersList, Data: members})
	}
	return outs
}
