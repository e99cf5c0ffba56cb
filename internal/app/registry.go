package app

import (
	"context"
	"sync"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
)

type sessionEntry struct {
	Signal  core.SignalConnection
	Cancel  context.CancelFunc
	Session *domain.Session
	// joinSeq orders room members by the time of their latest join.
	joinSeq uint64
}

// Registry is the authoritative connection -> session mapping. Rooms are
// derived from it and never stored.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.ConnectionID]*sessionEntry
	seq      uint64
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.ConnectionID]*sessionEntry),
	}
}

// BindSignal records the transport handle of a fresh connection. It has no
// Session until Register.
func (r *Registry) BindSignal(id core.ConnectionID, conn core.SignalConnection, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = &sessionEntry{Signal: conn, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("bound signal")
}

// Register binds id to (displayName, roomID), replacing any previous Session
// without notifying anybody.
func (r *Registry) Register(id core.ConnectionID, displayName, roomID string) (domain.Session, error) {
	sess, err := domain.NewSession(displayName, roomID)
	if err != nil {
		return domain.Session{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		e = &sessionEntry{}
		r.sessions[id] = e
	}
	r.seq++
	e.Session = &sess
	e.joinSeq = r.seq
	log.Info().Str("module", "app.registry").Str("conn", string(id)).
		Str("room", sess.RoomID.String()).Str("name", sess.DisplayName).Msg("registered session")
	return sess, nil
}

func (r *Registry) Lookup(id core.ConnectionID) (domain.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[id]
	if !ok || e.Session == nil {
		return domain.Session{}, false
	}
	return *e.Session, true
}

// Remove drops the Session but keeps the transport binding. Removing an
// unregistered connection is a no-op.
func (r *Registry) Remove(id core.ConnectionID) (domain.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok || e.Session == nil {
		return domain.Session{}, false
	}
	sess := *e.Session
	e.Session = nil
	e.joinSeq = 0
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Str("room", sess.RoomID.String()).Msg("removed session")
	return sess, true
}

// Unbind forgets the connection entirely.
func (r *Registry) Unbind(id core.ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("unbind connection")
}

func (r *Registry) Signal(id core.ConnectionID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[id]
	if !ok || e.Signal == nil {
		return nil, false
	}
	return e.Signal, true
}

// Cancel fires the connection's cancel func; the transport then tears the
// connection down and reports the disconnect.
func (r *Registry) Cancel(id core.ConnectionID) bool {
	r.mu.RLock()
	e, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("canceled connection")
	return true
}

// Stats counts bound connections and those holding a Session.
func (r *Registry) Stats() (connections, members int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.sessions {
		connections++
		if e.Session != nil {
			members++
		}
	}
	return connections, members
}
