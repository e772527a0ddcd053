package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ecarlucci/taskmate/internal/notify"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeUserMessage       MessageType = "user_message"
	TypeAssistantMessage  MessageType = "assistant_message"
	TypeNotificationEvent MessageType = "notification_event"
	TypeErrorEvent        MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// UserMessage is one conversational turn from the client.
type UserMessage struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Text      string      `json:"text"`
}

// AssistantMessage carries one transcript entry back to the client. Speaker
// distinguishes the echoed user line from assistant replies so clients can
// render the full transcript from the stream alone.
type AssistantMessage struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Speaker   string      `json:"speaker"`
	Text      string      `json:"text"`
	At        time.Time   `json:"at"`
}

// NotificationEvent pushes server-side notification changes into the
// conversation stream.
type NotificationEvent struct {
	Type      MessageType  `json:"type"`
	SessionID string       `json:"session_id"`
	Event     notify.Event `json:"event"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Detail    string      `json:"detail"`
}

// ParseClientMessage decodes and validates an inbound websocket frame. Only
// user_message is accepted from clients.
func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeUserMessage:
		var msg UserMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || msg.Text == "" {
			return nil, errors.New("invalid user_message")
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
