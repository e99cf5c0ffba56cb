package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

type MessageKind string

const (
	MessageText  MessageKind = "text"
	MessageImage MessageKind = "image"
)

// Message lives for the duration of one broadcast.
type Message struct {
	Kind        MessageKind
	Sender      string
	Text        string
	ResourceURL string
	Timestamp   time.Time
}

// NewTextMessage rejects blank text with ErrEmptyContent. maxLen <= 0 means
// no limit.
func NewTextMessage(sender, text string, maxLen int, now time.Time) (*Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyContent
	}
	if maxLen > 0 && utf8.RuneCountInString(text) > maxLen {
		return nil, ErrTextTooLong
	}
	return &Message{
		Kind:      MessageText,
		Sender:    sender,
		Text:      text,
		Timestamp: now.UTC(),
	}, nil
}

// NewImageMessage only checks that a URL is present; the upload endpoint
// validated the content before the URL existed.
func NewImageMessage(sender, resourceURL string, now time.Time) (*Message, error) {
	url := strings.TrimSpace(resourceURL)
	if url == "" {
		return nil, ErrEmptyContent
	}
	return &Message{
		Kind:        MessageImage,
		Sender:      sender,
		ResourceURL: url,
		Timestamp:   now.UTC(),
	}, nil
}

const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

func (m *Message) Stamp() string { return m.Timestamp.Format(TimestampLayout) }
