package app

import (
	"fmt"

	"github.com/dkeye/Huddle/internal/core"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
)

// Policy decides what happens to a connection whose send buffer is full.
type Policy interface {
	OnBackPressure(id core.ConnectionID) BackpressureAction
}

type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(core.ConnectionID) BackpressureAction {
	return KickMember
}

// RejoinPolicy governs a join-room from a connection that already has a
// Session.
type RejoinPolicy string

const (
	// RejoinOverwrite replaces the Session silently; the old room hears nothing.
	RejoinOverwrite RejoinPolicy = "overwrite"
	// RejoinLeaveFirst runs the full leave sequence for the old room first.
	RejoinLeaveFirst RejoinPolicy = "leave_first"
)

func ParseRejoinPolicy(s string) (RejoinPolicy, error) {
	switch p := RejoinPolicy(s); p {
	case RejoinOverwrite, RejoinLeaveFirst:
		return p, nil
	case "":
		return RejoinOverwrite, nil
	}
	return "", fmt.Errorf("unknown rejoin policy %q", s)
}
