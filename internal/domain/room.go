package domain

// RoomID is free-form. A room exists only while some session carries it.
type RoomID string

func (r RoomID) String() string { return string(r) }
