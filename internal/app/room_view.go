package app

import (
	"sort"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
)

type memberSnap struct {
	dto core.MemberDTO
	seq uint64
}

// MembersOf returns the members of room in join order, read from the
// registry at the moment of the call. exclude may be empty.
func (r *Registry) MembersOf(room domain.RoomID, exclude core.ConnectionID) []core.MemberDTO {
	r.mu.RLock()
	snaps := make([]memberSnap, 0, len(r.sessions))
	for id, e := range r.sessions {
		if e.Session == nil || e.Session.RoomID != room || id == exclude {
			continue
		}
		snaps = append(snaps, memberSnap{
			dto: core.MemberDTO{ConnectionID: id, DisplayName: e.Session.DisplayName},
			seq: e.joinSeq,
		})
	}
	r.mu.RUnlock()

	sort.Slice(snaps, func(i, j int) bool { return snaps[i].seq < snaps[j].seq })
	out := make([]core.MemberDTO, len(snaps))
	for i, s := range snaps {
		out[i] = s.dto
	}
	return out
}

// Rooms lists the rooms that currently exist, sorted by name.
func (r *Registry) Rooms() []core.RoomInfo {
	r.mu.RLock()
	counts := make(map[domain.RoomID]int)
	for _, e := range r.sessions {
		if e.Session != nil {
			counts[e.Session.RoomID]++
		}
	}
	r.mu.RUnlock()

	out := make([]core.RoomInfo, 0, len(counts))
	for name, n := range counts {
		out = append(out, core.RoomInfo{Name: name, MemberCount: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
