package app

import (
	"sort"
	"time"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
)

// CallKey identifies the unordered pair of call participants.
type CallKey struct {
	A, B core.ConnectionID
}

func KeyOf(x, y core.ConnectionID) CallKey {
	if y < x {
		x, y = y, x
	}
	return CallKey{A: x, B: y}
}

// CallSession is one call attempt between two connections.
type CallSession struct {
	ID        uint64
	Caller    core.ConnectionID
	Callee    core.ConnectionID
	MediaKind domain.MediaKind
	State     domain.CallState
	CreatedAt time.Time
}

func (s *CallSession) Key() CallKey { return KeyOf(s.Caller, s.Callee) }

// Peer returns the participant that is not id.
func (s *CallSession) Peer(id core.ConnectionID) core.ConnectionID {
	if s.Caller == id {
		return s.Callee
	}
	return s.Caller
}

func (s *CallSession) Involves(id core.ConnectionID) bool {
	return s.Caller == id || s.Callee == id
}

// CallCoordinator is the call state machine. It only knows pairs and states;
// registry preconditions are checked by the caller. Not safe for concurrent
// use: the dispatcher serialises access.
type CallCoordinator struct {
	exclusive bool
	seq       uint64
	calls     map[CallKey]*CallSession
	now       func() time.Time
}

// NewCallCoordinator with exclusive set refuses to ring a connection that is
// already part of another call session.
func NewCallCoordinator(exclusive bool) *CallCoordinator {
	return &CallCoordinator{
		exclusive: exclusive,
		calls:     make(map[CallKey]*CallSession),
		now:       time.Now,
	}
}

// Initiate puts the pair into ringing. An existing session for the same pair
// is replaced and returned as the second value.
func (c *CallCoordinator) Initiate(caller, callee core.ConnectionID, kind domain.MediaKind) (*CallSession, *CallSession, error) {
	if caller == callee {
		return nil, nil, domain.ErrCallTargetNotFound
	}
	key := KeyOf(caller, callee)
	if c.exclusive && (c.busyOutside(caller, key) || c.busyOutside(callee, key)) {
		return nil, nil, domain.ErrCallTargetBusy
	}

	replaced := c.calls[key]
	if replaced != nil {
		replaced.State = domain.CallEnded
	}
	c.seq++
	s := &CallSession{
		ID:        c.seq,
		Caller:    caller,
		Callee:    callee,
		MediaKind: kind,
		State:     domain.CallRinging,
		CreatedAt: c.now(),
	}
	c.calls[key] = s
	return s, replaced, nil
}

// Accept moves a ringing session to accepted. Only the callee may accept.
func (c *CallCoordinator) Accept(callee, caller core.ConnectionID) (*CallSession, error) {
	s, err := c.pending(callee, caller)
	if err != nil {
		return nil, err
	}
	s.State = domain.CallAccepted
	return s, nil
}

// Reject discards a ringing session. Only the callee may reject.
func (c *CallCoordinator) Reject(callee, caller core.ConnectionID) (*CallSession, error) {
	s, err := c.pending(callee, caller)
	if err != nil {
		return nil, err
	}
	delete(c.calls, s.Key())
	s.State = domain.CallRejected
	return s, nil
}

// End discards the session between from and other, ringing or accepted.
func (c *CallCoordinator) End(from, other core.ConnectionID) (*CallSession, error) {
	key := KeyOf(from, other)
	s, ok := c.calls[key]
	if !ok {
		return nil, domain.ErrNoActiveCall
	}
	delete(c.calls, key)
	s.State = domain.CallEnded
	return s, nil
}

// Expire ends the session for key if it is still the ringing attempt id.
func (c *CallCoordinator) Expire(key CallKey, id uint64) (*CallSession, bool) {
	s, ok := c.calls[key]
	if !ok || s.ID != id || s.State != domain.CallRinging {
		return nil, false
	}
	delete(c.calls, key)
	s.State = domain.CallEnded
	return s, true
}

// Drop ends every session involving id, oldest first.
func (c *CallCoordinator) Drop(id core.ConnectionID) []*CallSession {
	var out []*CallSession
	for key, s := range c.calls {
		if s.Involves(id) {
			delete(c.calls, key)
			s.State = domain.CallEnded
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *CallCoordinator) Get(x, y core.ConnectionID) (*CallSession, bool) {
	s, ok := c.calls[KeyOf(x, y)]
	return s, ok
}

func (c *CallCoordinator) Len() int { return len(c.calls) }

func (c *CallCoordinator) pending(callee, caller core.ConnectionID) (*CallSession, error) {
	s, ok := c.calls[KeyOf(callee, caller)]
	if !ok || s.State != domain.CallRinging || s.Callee != callee {
		return nil, domain.ErrNoPendingCall
	}
	return s, nil
}

func (c *CallCoordinator) busyOutside(id core.ConnectionID, key CallKey) bool {
	for k, s := range c.calls {
		if k != key && s.Involves(id) {
			return true
		}
	}
	return false
}
