package orch

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

var (
	errBadPayload   = errors.New("Malformed payload")
	errUnknownEvent = errors.New("Unknown event")
)

// Outbound is one addressed message produced by a handler.
type Outbound struct {
	To    core.ConnectionID
	Event string
	Data  any
}

// handlerFunc mutates orchestrator state and returns what must be sent.
// Handlers never touch the transport.
type handlerFunc func(o *Orchestrator, id core.ConnectionID, data json.RawMessage) []Outbound

var handlers = map[string]handlerFunc{
	core.EventJoinRoom:     (*Orchestrator).handleJoin,
	core.EventLeaveRoom:    (*Orchestrator).handleLeave,
	core.EventGetRoomUsers: (*Orchestrator).handleGetRoomUsers,
	core.EventSendMessage:  (*Orchestrator).handleSendMessage,
	core.EventSendImage:    (*Orchestrator).handleSendImage,
	core.EventCallUser:     (*Orchestrator).handleCallUser,
	core.EventAcceptCall:   (*Orchestrator).handleAcceptCall,
	core.EventRejectCall:   (*Orchestrator).handleRejectCall,
	core.EventEndCall:      (*Orchestrator).handleEndCall,
	core.EventOffer:        relay(core.EventOffer),
	core.EventAnswer:       relay(core.EventAnswer),
	core.EventICECandidate: relay(core.EventICECandidate),
}

type Options struct {
	Rejoin       app.RejoinPolicy
	Exclusive    bool
	RingTimeout  time.Duration
	MaxTextLen   int
	RateLimit    int
	RateInterval time.Duration
	Policy       app.Policy
	Now          func() time.Time
}

// Orchestrator is the single logical dispatcher. Every inbound event,
// disconnect and ring timeout runs under mu, and the resulting messages are
// handed to the transport before mu is released.
type Orchestrator struct {
	Registry *app.Registry
	Calls    *app.CallCoordinator
	Policy   app.Policy
	Limiter  *app.RateLimiter

	rejoin      app.RejoinPolicy
	ringTimeout time.Duration
	maxTextLen  int
	now         func() time.Time

	mu         sync.Mutex
	ringTimers map[app.CallKey]*time.Timer
}

func New(reg *app.Registry, opts Options) *Orchestrator {
	if opts.Rejoin == "" {
		opts.Rejoin = app.RejoinOverwrite
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		Registry:    reg,
		Calls:       app.NewCallCoordinator(opts.Exclusive),
		Policy:      opts.Policy,
		Limiter:     app.NewRateLimiter(opts.RateLimit, opts.RateInterval),
		rejoin:      opts.Rejoin,
		ringTimeout: opts.RingTimeout,
		maxTextLen:  opts.MaxTextLen,
		now:         opts.Now,
		ringTimers:  make(map[app.CallKey]*time.Timer),
	}
}

// Dispatch runs the handler registered for event.
func (o *Orchestrator) Dispatch(id core.ConnectionID, event string, data json.RawMessage) {
	h, ok := handlers[event]

	o.mu.Lock()
	defer o.mu.Unlock()

	var outs []Outbound
	if ok {
		outs = h(o, id, data)
	} else {
		log.Warn().Str("module", "orch").Str("conn", string(id)).Str("event", event).Msg("unknown event")
		outs = []Outbound{errorTo(id, errUnknownEvent)}
	}
	o.deliver(outs)
}

// OnDisconnect is the implicit leave of a vanished connection. It always runs
// to completion: session, calls, presence, then the transport binding.
func (o *Orchestrator) OnDisconnect(id core.ConnectionID) {
	o.mu.Lock()
	defer o.mu.Unlock()

	outs := o.leave(id, domain.EndDisconnected)
	o.Limiter.Forget(id)
	o.deliver(outs)
	o.Registry.Unbind(id)
}

// Kick asks the transport to drop the connection; cleanup follows through
// OnDisconnect.
func (o *Orchestrator) Kick(id core.ConnectionID) {
	log.Warn().Str("module", "orch").Str("conn", string(id)).Msg("kicking connection")
	o.Registry.Cancel(id)
}

type Stats struct {
	Rooms       int `json:"rooms"`
	Connections int `json:"connections"`
	Members     int `json:"members"`
	Calls       int `json:"calls"`
}

func (o *Orchestrator) Stats() Stats {
	o.mu.Lock()
	calls := o.Calls.Len()
	o.mu.Unlock()

	conns, members := o.Registry.Stats()
	return Stats{
		Rooms:       len(o.Registry.Rooms()),
		Connections: conns,
		Members:     members,
		Calls:       calls,
	}
}

func (o *Orchestrator) deliver(outs []Outbound) {
	for _, out := range outs {
		conn, ok := o.Registry.Signal(out.To)
		if !ok {
			log.Debug().Str("module", "orch").Str("conn", string(out.To)).Str("event", out.Event).Msg("no transport, dropping")
			continue
		}
		frame, err := core.EncodeFrame(out.Event, out.Data)
		if err != nil {
			log.Error().Err(err).Str("module", "orch").Str("event", out.Event).Msg("encode frame")
			continue
		}
		if err := conn.TrySend(frame); err != nil {
			if errors.Is(err, core.ErrBackpressure) {
				o.onBackpressure(out.To)
				continue
			}
			log.Debug().Err(err).Str("module", "orch").Str("conn", string(out.To)).Msg("send failed")
		}
	}
}

func (o *Orchestrator) onBackpressure(id core.ConnectionID) {
	if o.Policy == nil {
		return
	}
	switch o.Policy.OnBackPressure(id) {
	case app.KickMember:
		o.Kick(id)
	case app.NoAction:
	}
}

// broadcast addresses every current member of room except exclude.
func (o *Orchestrator) broadcast(room domain.RoomID, event string, data any, exclude core.ConnectionID) []Outbound {
	members := o.Registry.MembersOf(room, exclude)
	outs := make([]Outbound, 0, len(members))
	for _, m := range members {
		outs = append(outs, Outbound{To: m.ConnectionID, Event: event, Data: data})
	}
	return outs
}

func errorTo(id core.ConnectionID, err error) Outbound {
	return Outbound{To: id, Event: core.EventError, Data: core.ErrorPayload{Message: err.Error()}}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode unmarshals and validates a client payload. Errors are client-facing.
func decode[T any](data json.RawMessage) (T, error) {
	var p T
	if len(data) > 0 {
		if err := json.Unmarshal(data, &p); err != nil {
			return p, errBadPayload
		}
	}
	if err := validate.Struct(&p); err != nil {
		return p, validationError(err)
	}
	return p, nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return errBadPayload
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", fe.Field())
	case "max":
		return fmt.Errorf("%s is too long", fe.Field())
	case "oneof":
		return fmt.Errorf("%s must be one of: %s", fe.Field(), fe.Param())
	}
	return fmt.Errorf("%s is invalid", fe.Field())
}
