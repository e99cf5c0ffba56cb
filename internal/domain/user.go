// Package domain contains entities without transport, just meta-data and rules
package domain

import (
	"strings"
	"unicode/utf8"
)

const (
	MaxDisplayNameLen = 64
	MaxRoomIDLen      = 128
)

// Session is the (display name, room) binding of one connection.
type Session struct {
	DisplayName string `json:"displayName"`
	RoomID      RoomID `json:"roomId"`
}

// NewSession trims and checks both fields.
func NewSession(displayName, roomID string) (Session, error) {
	name := strings.TrimSpace(displayName)
	if name == "" {
		return Session{}, ErrDisplayNameEmpty
	}
	if utf8.RuneCountInString(name) > MaxDisplayNameLen {
		return Session{}, ErrDisplayNameTooLong
	}
	room := strings.TrimSpace(roomID)
	if room == "" {
		return Session{}, ErrRoomIDEmpty
	}
	if utf8.RuneCountInString(room) > MaxRoomIDLen {
		return Session{}, ErrRoomIDTooLong
	}
	return Session{DisplayName: name, RoomID: RoomID(room)}, nil
}
