package core

import (
	"errors"

	"github.com/dkeye/Huddle/internal/domain"
)

// Frame is one encoded outbound event.
type Frame []byte

// ConnectionID identifies one live transport session.
type ConnectionID string

var ErrBackpressure = errors.New("backpressure")

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend must not block. A full buffer reports ErrBackpressure.
	TrySend(Frame) error
	Close()
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	ConnectionID ConnectionID `json:"connectionId"`
	DisplayName  string       `json:"displayName"`
}

type RoomInfo struct {
	Name        domain.RoomID `json:"name"`
	MemberCount int           `json:"member_count"`
}
