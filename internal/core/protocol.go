package core

import (
	"bytes"
	"encoding/json"
)

// Event names, client -> server.
const (
	EventJoinRoom     = "join-room"
	EventLeaveRoom    = "leave-room"
	EventSendMessage  = "send-message"
	EventSendImage    = "send-image"
	EventGetRoomUsers = "get-room-users"
	EventCallUser     = "call-user"
	EventAcceptCall   = "accept-call"
	EventRejectCall   = "reject-call"
	EventEndCall      = "end-call"
	EventPing         = "ping"
)

// Event names, server -> client.
const (
	EventJoinedRoom     = "joined-room"
	EventJoinError      = "join-error"
	EventLeftRoom       = "left-room"
	EventUserJoined     = "user-joined"
	EventUserLeft       = "user-left"
	EventReceiveMessage = "receive-message"
	EventReceiveImage   = "receive-image"
	EventRoomUsersList  = "room-users-list"
	EventIncomingCall   = "incoming-call"
	EventCallAccepted   = "call-accepted"
	EventCallRejected   = "call-rejected"
	EventCallEnded      = "call-ended"
	EventError          = "error"
	EventPong           = "pong"
)

// Negotiation events keep their name in both directions.
const (
	EventOffer        = "offer"
	EventAnswer       = "answer"
	EventICECandidate = "ice-candidate"
)

// Envelope is the inbound frame shape.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outboundEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// EncodeFrame marshals an outbound event. HTML escaping is off so relayed
// negotiation payloads leave byte-for-byte as they arrived.
func EncodeFrame(event string, data any) (Frame, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(outboundEnvelope{Event: event, Data: data}); err != nil {
		return nil, err
	}
	return Frame(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// Client -> server payloads.

// JoinRoomRequest is checked by domain.NewSession after trimming.
type JoinRoomRequest struct {
	DisplayName string `json:"displayName"`
	RoomID      string `json:"roomId"`
}

type SendMessageRequest struct {
	Text string `json:"text"`
}

type SendImageRequest struct {
	ResourceURL string `json:"resourceUrl"`
}

type CallUserRequest struct {
	TargetConnection ConnectionID `json:"targetConnection" validate:"required"`
	MediaKind        string       `json:"mediaKind" validate:"required,oneof=audio video"`
}

// CallReplyRequest is shared by accept-call and reject-call.
type CallReplyRequest struct {
	CallerConnection ConnectionID `json:"callerConnection" validate:"required"`
}

type EndCallRequest struct {
	TargetConnection ConnectionID `json:"targetConnection" validate:"required"`
}

type SignalRequest struct {
	TargetConnection ConnectionID   `json:"targetConnection" validate:"required"`
	Payload          json.RawMessage `json:"payload"`
}

// Server -> client payloads.

type JoinedRoom struct {
	ConnectionID ConnectionID `json:"connectionId"`
	DisplayName  string       `json:"displayName"`
	RoomID       string       `json:"roomId"`
}

type LeftRoom struct {
	RoomID string `json:"roomId"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type PresenceNotice struct {
	DisplayName string `json:"displayName"`
	Message     string `json:"message"`
}

type ReceiveMessage struct {
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

type ReceiveImage struct {
	Sender      string `json:"sender"`
	ResourceURL string `json:"resourceUrl"`
	Timestamp   string `json:"timestamp"`
}

type IncomingCall struct {
	CallerConnection  ConnectionID `json:"callerConnection"`
	CallerDisplayName string       `json:"callerDisplayName"`
	MediaKind         string       `json:"mediaKind"`
}

// CallReply is the payload of call-accepted and call-rejected.
type CallReply struct {
	CalleeConnection  ConnectionID `json:"calleeConnection"`
	CalleeDisplayName string       `json:"calleeDisplayName"`
}

type CallEnded struct {
	FromConnection  ConnectionID `json:"fromConnection"`
	FromDisplayName string       `json:"fromDisplayName"`
	Reason          string       `json:"reason,omitempty"`
}

type SignalRelay struct {
	FromConnection ConnectionID   `json:"fromConnection"`
	Payload        json.RawMessage `json:"payload"`
}
