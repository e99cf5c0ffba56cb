package orch

import (
	"encoding/json"
	"time"

	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) handleCallUser(id core.ConnectionID, data json.RawMessage) []Outbound {
	sess, ok := o.Registry.Lookup(id)
	if !ok {
		return []Outbound{errorTo(id, domain.ErrUnregistered)}
	}
	p, err := decode[core.CallUserRequest](data)
	if err != nil {
		return []Outbound{errorTo(id, err)}
	}
	kind, err := domain.ParseMediaKind(p.MediaKind)
	if err != nil {
		return []Outbound{errorTo(id, err)}
	}

	// Missing, cross-room and self targets look the same to the caller.
	target, ok := o.Registry.Lookup(p.TargetConnection)
	if !ok || target.RoomID != sess.RoomID || p.TargetConnection == id {
		log.Info().Str("module", "orch").Str("conn", string(id)).Str("target", string(p.TargetConnection)).Msg("call target not found")
		return []Outbound{errorTo(id, domain.ErrCallTargetNotFound)}
	}

	s, replaced, err := o.Calls.Initiate(id, p.TargetConnection, kind)
	if err != nil {
		return []Outbound{errorTo(id, err)}
	}
	if replaced != nil {
		o.stopRingTimer(replaced.Key())
	}
	o.armRingTimer(s)

	log.Info().Str("module", "orch").Str("caller", string(id)).Str("callee", string(s.Callee)).
		Str("media", string(kind)).Uint64("call", s.ID).Msg("ringing")
	return []Outbound{{
		To:    s.Callee,
		Event: core.EventIncomingCall,
		Data: core.IncomingCall{
			CallerConnection:  id,
			CallerDisplayName: sess.DisplayName,
			MediaKind:         string(kind),
		},
	}}
}

func (o *Orchestrator) handleAcceptCall(id core.ConnectionID, data json.RawMessage) []Outbound {
	return o.answerCall(id, data, true)
}

func (o *Orchestrator) handleRejectCall(id core.ConnectionID, data json.RawMessage) []Outbound {
	return o.answerCall(id, data, false)
}

func (o *Orchestrator) answerCall(id core.ConnectionID, data json.RawMessage, accept bool) []Outbound {
	sess, ok := o.Registry.Lookup(id)
	if !ok {
		return []Outbound{errorTo(id, domain.ErrUnregistered)}
	}
	p, err := decode[core.CallReplyRequest](data)
	if err != nil {
		return []Outbound{errorTo(id, err)}
	}

	event := core.EventCallAccepted
	var s *app.CallSession
	if accept {
		s, err = o.Calls.Accept(id, p.CallerConnection)
	} else {
		event = core.EventCallRejected
		s, err = o.Calls.Reject(id, p.CallerConnection)
	}
	if err != nil {
		return []Outbound{errorTo(id, err)}
	}
	o.stopRingTimer(s.Key())

	log.Info().Str("module", "orch").Str("callee", string(id)).Str("caller", string(s.Caller)).
		Uint64("call", s.ID).Str("state", string(s.State)).Msg("call answered")
	return []Outbound{{
		To:    s.Caller,
		Event: event,
		Data: core.CallReply{
			CalleeConnection:  id,
			CalleeDisplayName: sess.DisplayName,
		},
	}}
}

func (o *Orchestrator) handleEndCall(id core.ConnectionID, data json.RawMessage) []Outbound {
	sess, ok := o.Registry.Lookup(id)
	if !ok {
		return []Outbound{errorTo(id, domain.ErrUnregistered)}
	}
	p, err := decode[core.EndCallRequest](data)
	if err != nil {
		return []Outbound{errorTo(id, err)}
	}
	s, err := o.Calls.End(id, p.TargetConnection)
	if err != nil {
		// Both sides hanging up at once is normal.
		log.Debug().Err(err).Str("module", "orch").Str("conn", string(id)).Msg("end-call without session")
		return nil
	}
	o.stopRingTimer(s.Key())

	log.Info().Str("module", "orch").Str("conn", string(id)).Uint64("call", s.ID).Msg("call ended")
	return []Outbound{{
		To:    s.Peer(id),
		Event: core.EventCallEnded,
		Data: core.CallEnded{
			FromConnection:  id,
			FromDisplayName: sess.DisplayName,
			Reason:          string(domain.EndHangup),
		},
	}}
}

// relay forwards negotiation payloads untouched. The only check is that the
// target is registered; the call state is deliberately not consulted.
func relay(event string) handlerFunc {
	return func(o *Orchestrator, id core.ConnectionID, data json.RawMessage) []Outbound {
		if _, ok := o.Registry.Lookup(id); !ok {
			return []Outbound{errorTo(id, domain.ErrUnregistered)}
		}
		p, err := decode[core.SignalRequest](data)
		if err != nil {
			return []Outbound{errorTo(id, err)}
		}
		if _, ok := o.Registry.Lookup(p.TargetConnection); !ok {
			log.Debug().Str("module", "orch").Str("conn", string(id)).Str("target", string(p.TargetConnection)).
				Str("event", event).Msg("relay target gone, dropping")
			return nil
		}
		return []Outbound{{
			To:    p.TargetConnection,
			Event: event,
			Data:  core.SignalRelay{FromConnection: id, Payload: p.Payload},
		}}
	}
}

// endCallsOf drops every call of id and tells each surviving party.
func (o *Orchestrator) endCallsOf(id core.ConnectionID, name string, reason domain.EndReason) []Outbound {
	var outs []Outbound
	for _, s := range o.Calls.Drop(id) {
		o.stopRingTimer(s.Key())
		outs = append(outs, Outbound{
			To:    s.Peer(id),
			Event: core.EventCallEnded,
			Data: core.CallEnded{
				FromConnection:  id,
				FromDisplayName: name,
				Reason:          string(reason),
			},
		})
	}
	return outs
}

func (o *Orchestrator) armRingTimer(s *app.CallSession) {
	if o.ringTimeout <= 0 {
		return
	}
	key, callID := s.Key(), s.ID
	o.ringTimers[key] = time.AfterFunc(o.ringTimeout, func() { o.expireCall(key, callID) })
}

func (o *Orchestrator) stopRingTimer(key app.CallKey) {
	if t, ok := o.ringTimers[key]; ok {
		t.Stop()
		delete(o.ringTimers, key)
	}
}

// expireCall runs on the timer goroutine. A timer that lost the race with an
// answer finds a different attempt (or none) and does nothing.
func (o *Orchestrator) expireCall(key app.CallKey, callID uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s, ok := o.Calls.Expire(key, callID)
	if !ok {
		return
	}
	delete(o.ringTimers, key)
	log.Info().Str("module", "orch").Str("caller", string(s.Caller)).Str("callee", string(s.Callee)).
		Uint64("call", s.ID).Msg("ring timeout")

	callerName := o.displayName(s.Caller)
	calleeName := o.displayName(s.Callee)
	o.deliver([]Outbound{
		{
			To:    s.Caller,
			Event: core.EventCallEnded,
			Data:  core.CallEnded{FromConnection: s.Callee, FromDisplayName: calleeName, Reason: string(domain.EndTimeout)},
		},
		{
			To:    s.Callee,
			Event: core.EventCallEnded,
			Data:  core.CallEnded{FromConnection: s.Caller, FromDisplayName: callerName, Reason: string(domain.EndTimeout)},
		},
	})
}

func (o *Orchestrator) displayName(id core.ConnectionID) string {
	sess, _ := o.Registry.Lookup(id)
	return sess.DisplayName
}
