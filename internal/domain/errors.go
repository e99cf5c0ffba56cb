package domain

import "errors"

// Texts are client-visible.
var (
	ErrDisplayNameEmpty   = errors.New("Display name is required")
	ErrDisplayNameTooLong = errors.New("Display name is too long")
	ErrRoomIDEmpty        = errors.New("Room ID is required")
	ErrRoomIDTooLong      = errors.New("Room ID is too long")
	ErrEmptyContent       = errors.New("message content cannot be empty")
	ErrTextTooLong        = errors.New("Message is too long")
	ErrRateLimited        = errors.New("You are sending messages too fast")

	ErrUnregistered       = errors.New("You must join a room first")
	ErrCallTargetNotFound = errors.New("User not found in this room")
	ErrCallTargetBusy     = errors.New("User is busy")
	ErrNoPendingCall      = errors.New("No pending call")
	ErrNoActiveCall       = errors.New("No active call")
	ErrInvalidMediaKind   = errors.New("mediaKind must be audio or video")
)
