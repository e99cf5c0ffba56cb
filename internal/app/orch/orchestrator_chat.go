package orch

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) handleSendMessage(id core.ConnectionID, data json.RawMessage) []Outbound {
	sess, ok := o.Registry.Lookup(id)
	if !ok {
		return []Outbound{errorTo(id, domain.ErrUnregistered)}
	}
	p, err := decode[core.SendMessageRequest](data)
	if err != nil {
		return []Outbound{errorTo(id, err)}
	}
	msg, err := domain.NewTextMessage(sess.DisplayName, p.Text, o.maxTextLen, o.now())
	if errors.Is(err, domain.ErrEmptyContent) {
		return nil
	}
	if err != nil {
		return []Outbound{errorTo(id, err)}
	}
	if !o.Limiter.Allow(id) {
		return []Outbound{errorTo(id, domain.ErrRateLimited)}
	}

	log.Debug().Str("module", "orch").Str("conn", string(id)).Str("room", sess.RoomID.String()).Str("kind", string(msg.Kind)).Msg("chat message")
	return o.broadcast(sess.RoomID, core.EventReceiveMessage, core.ReceiveMessage{
		Sender:    msg.Sender,
		Text:      msg.Text,
		Timestamp: msg.Stamp(),
	}, "")
}

func (o *Orchestrator) handleSendImage(id core.ConnectionID, data json.RawMessage) []Outbound {
	sess, ok := o.Registry.Lookup(id)
	if !ok {
		return []Outbound{errorTo(id, domain.ErrUnregistered)}
	}
	p, err := decode[core.SendImageRequest](data)
	if err != nil {
		return []Outbound{errorTo(id, err)}
	}
	msg, err := domain.NewImageMessage(sess.DisplayName, p.ResourceURL, o.now())
	if err != nil {
		return nil
	}
	if !o.Limiter.Allow(id) {
		return []Outbound{errorTo(id, domain.ErrRateLimited)}
	}

	log.Debug().Str("module", "orch").Str("conn", string(id)).Str("room", sess.RoomID.String()).Str("kind", string(msg.Kind)).Msg("chat message")
	return o.broadcast(sess.RoomID, core.EventReceiveImage, core.ReceiveImage{
		Sender:      msg.Sender,
		ResourceURL: msg.ResourceURL,
		Timestamp:   msg.Stamp(),
	}, "")
}
