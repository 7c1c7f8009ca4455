// Package protocol defines the wire protocol between the browser client and live sessions.
package protocol

import "time"

// Reserved event names.
const (
	EventJoin      = "phx_join"
	EventLeave     = "phx_leave"
	EventReply     = "phx_reply"
	EventHeartbeat = "heartbeat"
	EventDiff      = "diff"
	EventRedirect  = "redirect"
)

// Message is a single frame exchanged over a transport.
type Message struct {
	// Ref correlates a reply with the request that caused it.
	Ref string `json:"ref,omitempty" msgpack:"ref,omitempty"`

	// Topic is the live session channel, e.g. "lv:<socket-id>".
	Topic string `json:"topic" msgpack:"topic"`

	// Event names the action ("next", "input", "diff", ...).
	Event string `json:"event" msgpack:"event"`

	Payload map[string]any `json:"payload,omitempty" msgpack:"payload,omitempty"`

	// Timestamp in Unix milliseconds.
	Timestamp int64 `json:"ts,omitempty" msgpack:"ts,omitempty"`
}

// NewMessage creates a timestamped message.
func NewMessage(topic, event string, payload map[string]any) Message {
	return Message{
		Topic:     topic,
		Event:     event,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
}

// WithRef returns a copy of the message carrying ref.
func (m Message) WithRef(ref string) Message {
	m.Ref = ref
	return m
}

// String returns a payload value as a string, or "" when absent.
func (m Message) String(key string) string {
	if v, ok := m.Payload[key].(string); ok {
		return v
	}
	return ""
}

// IsHeartbeat reports whether the message is a keepalive.
func (m Message) IsHeartbeat() bool {
	return m.Event == EventHeartbeat || m.Event == "phx_heartbeat"
}

// OkReply builds a successful reply to ref.
func OkReply(ref, topic string, response map[string]any) Message {
	return NewMessage(topic, EventReply, map[string]any{
		"status":   "ok",
		"response": response,
	}).WithRef(ref)
}

// ErrorReply builds an error reply to ref.
func ErrorReply(ref, topic, reason string) Message {
	return NewMessage(topic, EventReply, map[string]any{
		"status":   "error",
		"response": map[string]any{"reason": reason},
	}).WithRef(ref)
}
