package orch

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// fakeConn records every frame handed to it.
type fakeConn struct {
	mu       sync.Mutex
	frames   []core.Frame
	full     bool
	canceled bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full {
		return core.ErrBackpressure
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {}

func (c *fakeConn) cancel() {
	c.mu.Lock()
	c.canceled = true
	c.mu.Unlock()
}

func (c *fakeConn) wasCanceled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canceled
}

func (c *fakeConn) setFull(full bool) {
	c.mu.Lock()
	c.full = full
	c.mu.Unlock()
}

// drain returns the received events and forgets them.
func (c *fakeConn) drain(t *testing.T) []event {
	t.Helper()
	c.mu.Lock()
	frames := c.frames
	c.frames = nil
	c.mu.Unlock()

	out := make([]event, 0, len(frames))
	for _, f := range frames {
		var ev event
		require.NoError(t, json.Unmarshal(f, &ev))
		out = append(out, ev)
	}
	return out
}

func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

type harness struct {
	t     *testing.T
	o     *Orchestrator
	conns map[core.ConnectionID]*fakeConn
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	if opts.Policy == nil {
		opts.Policy = app.SimplePolicy{}
	}
	return &harness{
		t:     t,
		o:     New(app.NewRegistry(), opts),
		conns: make(map[core.ConnectionID]*fakeConn),
	}
}

func (h *harness) connect(id core.ConnectionID) *fakeConn {
	c := &fakeConn{}
	h.o.Registry.BindSignal(id, c, c.cancel)
	h.conns[id] = c
	return c
}

// send dispatches payload; a string is taken as raw JSON.
func (h *harness) send(id core.ConnectionID, ev string, payload any) {
	h.t.Helper()
	var raw json.RawMessage
	switch p := payload.(type) {
	case nil:
	case string:
		raw = json.RawMessage(p)
	default:
		b, err := json.Marshal(p)
		require.NoError(h.t, err)
		raw = b
	}
	h.o.Dispatch(id, ev, raw)
}

func (h *harness) join(id core.ConnectionID, name, room string) *fakeConn {
	h.t.Helper()
	c, ok := h.conns[id]
	if !ok {
		c = h.connect(id)
	}
	h.send(id, core.EventJoinRoom, core.JoinRoomRequest{DisplayName: name, RoomID: room})
	return c
}

func (h *harness) drainAll() {
	for _, c := range h.conns {
		c.drain(h.t)
	}
}

func names(evs []event) []string {
	out := make([]string, len(evs))
	for i, ev := range evs {
		out[i] = ev.Event
	}
	return out
}

func decodeAs[T any](t *testing.T, ev event) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(ev.Data, &v))
	return v
}

// single asserts exactly one event named name and returns its payload.
func single[T any](t *testing.T, evs []event, name string) T {
	t.Helper()
	var found []event
	for _, ev := range evs {
		if ev.Event == name {
			found = append(found, ev)
		}
	}
	require.Len(t, found, 1, "want one %s in %v", name, names(evs))
	return decodeAs[T](t, found[0])
}
