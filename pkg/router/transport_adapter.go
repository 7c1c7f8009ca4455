package router

import (
	"errors"

	"github.com/gabrielmiguelok/signupkit/pkg/core"
	"github.com/gabrielmiguelok/signupkit/pkg/logging"
	"github.com/gabrielmiguelok/signupkit/pkg/protocol"
	"github.com/gabrielmiguelok/signupkit/pkg/transport"
)

// Conn is the connection side of a live session.
type Conn interface {
	transport.Transport

	// CloseChan is closed when the connection ends.
	CloseChan() <-chan struct{}
}

// TransportAdapter exposes a Conn as a core.Transport. Closed-connection
// errors are reported as core.ErrSocketClosed.
type TransportAdapter struct {
	conn   Conn
	logger logging.Logger
}

// NewTransportAdapter creates a new adapter.
func NewTransportAdapter(conn Conn, logger logging.Logger) *TransportAdapter {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &TransportAdapter{conn: conn, logger: logger}
}

// Send implements core.Transport.
func (a *TransportAdapter) Send(msg protocol.Message) error {
	err := a.conn.Send(msg)
	switch {
	case err == nil:
		a.logger.Debug("frame queued", logging.String("event", msg.Event), logging.String("ref", msg.Ref))
		return nil
	case errors.Is(err, transport.ErrConnectionClosed), errors.Is(err, transport.ErrNotConnected):
		return core.ErrSocketClosed
	default:
		return err
	}
}

// Close implements core.Transport.
func (a *TransportAdapter) Close() error {
	return a.conn.Close()
}

// IsConnected implements core.Transport.
func (a *TransportAdapter) IsConnected() bool {
	return a.conn.IsConnected()
}

// Conn returns the wrapped connection.
func (a *TransportAdapter) Conn() Conn {
	return a.conn
}
