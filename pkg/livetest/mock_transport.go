package livetest

import (
	"sync"

	"github.com/gabrielmiguelok/signupkit/pkg/core"
	"github.com/gabrielmiguelok/signupkit/pkg/protocol"
)

// MockTransport implements core.Transport and records every frame sent.
type MockTransport struct {
	sent      []protocol.Message
	closed    bool
	sendError error

	mu sync.Mutex
}

// NewMockTransport creates a connected mock transport.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// Send records a sent message.
func (m *MockTransport) Send(msg protocol.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sendError != nil {
		return m.sendError
	}
	if m.closed {
		return core.ErrSocketClosed
	}
	m.sent = append(m.sent, msg)
	return nil
}

// Close marks the transport as closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// IsConnected returns the connection status.
func (m *MockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// Sent returns a copy of all sent messages.
func (m *MockTransport) Sent() []protocol.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]protocol.Message, len(m.sent))
	copy(result, m.sent)
	return result
}

// SentEvents returns the sent messages with the given event name.
func (m *MockTransport) SentEvents(event string) []protocol.Message {
	var out []protocol.Message
	for _, msg := range m.Sent() {
		if msg.Event == event {
			out = append(out, msg)
		}
	}
	return out
}

// LastSent returns the last sent message.
func (m *MockTransport) LastSent() protocol.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sent) == 0 {
		return protocol.Message{}
	}
	return m.sent[len(m.sent)-1]
}

// SetError makes every following Send fail with err. Pass nil to clear.
func (m *MockTransport) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendError = err
}
