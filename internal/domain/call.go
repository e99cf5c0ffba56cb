package domain

type MediaKind string

const (
	MediaAudio MediaKind = "audio"
	MediaVideo MediaKind = "video"
)

func ParseMediaKind(s string) (MediaKind, error) {
	switch MediaKind(s) {
	case MediaAudio, MediaVideo:
		return MediaKind(s), nil
	}
	return "", ErrInvalidMediaKind
}

type CallState string

const (
	CallRinging  CallState = "ringing"
	CallAccepted CallState = "accepted"
	CallRejected CallState = "rejected"
	CallEnded    CallState = "ended"
)

// EndReason travels with call-ended so clients can tell a hang-up from a
// timeout or a vanished peer.
type EndReason string

const (
	EndHangup       EndReason = "ended"
	EndTimeout      EndReason = "timeout"
	EndDisconnected EndReason = "disconnected"
	EndLeft         EndReason = "left"
)
