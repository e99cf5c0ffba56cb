package orch

import (
	"fmt"
	"sync"
	"testing"

	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/stretchr/testify/assert"
)

func TestUnknownEvent(t *testing.T) {
	h := newHarness(t, Options{})
	a := h.connect("A")

	h.send("A", "teleport", `{}`)
	h.send("A", "", nil)

	evs := a.drain(t)
	assert.Equal(t, []string{core.EventError, core.EventError}, names(evs))
	assert.Equal(t, errUnknownEvent.Error(), decodeAs[core.ErrorPayload](t, evs[0]).Message)
}

type countingPolicy struct {
	mu   sync.Mutex
	hits []core.ConnectionID
	act  app.BackpressureAction
}

func (p *countingPolicy) OnBackPressure(id core.ConnectionID) app.BackpressureAction {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hits = append(p.hits, id)
	return p.act
}

func TestBackpressureKicksSlowConnection(t *testing.T) {
	h := newHarness(t, Options{})
	a := h.join("A", "alice", "R1")
	b := h.join("B", "bob", "R1")
	h.drainAll()
	b.setFull(true)

	h.send("A", core.EventSendMessage, core.SendMessageRequest{Text: "hi"})

	assert.True(t, b.wasCanceled())
	assert.False(t, a.wasCanceled())
	assert.Len(t, a.drain(t), 1, "the fast reader is unaffected")
}

func TestBackpressureNoAction(t *testing.T) {
	p := &countingPolicy{act: app.NoAction}
	h := newHarness(t, Options{Policy: p})
	h.join("A", "alice", "R1")
	b := h.join("B", "bob", "R1")
	h.drainAll()
	b.setFull(true)

	h.send("A", core.EventSendMessage, core.SendMessageRequest{Text: "hi"})

	assert.Equal(t, []core.ConnectionID{"B"}, p.hits)
	assert.False(t, b.wasCanceled())
}

func TestStats(t *testing.T) {
	h := newHarness(t, Options{})
	h.join("A", "alice", "R1")
	h.join("B", "bob", "R1")
	h.join("C", "carol", "R2")
	h.connect("D")
	h.send("A", core.EventCallUser, core.CallUserRequest{TargetConnection: "B", MediaKind: "audio"})

	assert.Equal(t, Stats{Rooms: 2, Connections: 4, Members: 3, Calls: 1}, h.o.Stats())
}

func TestConcurrentDispatch(t *testing.T) {
	h := newHarness(t, Options{})
	const n = 20
	ids := make([]core.ConnectionID, n)
	for i := range ids {
		ids[i] = core.ConnectionID(fmt.Sprintf("c%02d", i))
		h.connect(ids[i])
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id core.ConnectionID) {
			defer wg.Done()
			h.o.Dispatch(id, core.EventJoinRoom, []byte(`{"displayName":"u","roomId":"R1"}`))
			h.o.Dispatch(id, core.EventSendMessage, []byte(`{"text":"hi"}`))
		}(id)
	}
	wg.Wait()

	assert.Len(t, h.o.Registry.MembersOf("R1", ""), n)
	for _, id := range ids[:n/2] {
		h.o.OnDisconnect(id)
	}
	assert.Len(t, h.o.Registry.MembersOf("R1", ""), n/2)
}
