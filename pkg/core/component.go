// Package core provides the component runtime that live sessions are built on.
package core

import (
	"context"
	"io"
)

// Component is the interface that all live components must implement.
// Components are stateful server-side entities owned by a single session
// goroutine; every callback runs on that goroutine.
type Component interface {
	// Name returns the identifier for this component type.
	Name() string

	// Mount is called once when the client joins.
	Mount(ctx context.Context, params Params, session Session) error

	// Render returns the current HTML representation of the component.
	// It is called after Mount and after every handled event or info message.
	Render(ctx context.Context) Renderer

	// HandleEvent processes user interactions sent by the client.
	HandleEvent(ctx context.Context, event string, payload map[string]any) error

	// HandleInfo processes messages posted to the socket mailbox, typically
	// results of background work started by the component.
	HandleInfo(ctx context.Context, msg any) error

	// Terminate is called when the session ends. Pending background work
	// must be stopped before it returns.
	Terminate(ctx context.Context, reason TerminateReason) error
}

// Renderer is the interface for rendering HTML content.
type Renderer interface {
	Render(ctx context.Context, w io.Writer) error
}

// RendererFunc is an adapter to allow ordinary functions to be used as Renderers.
type RendererFunc func(ctx context.Context, w io.Writer) error

func (f RendererFunc) Render(ctx context.Context, w io.Writer) error {
	return f(ctx, w)
}

// Params contains URL query parameters from the connection.
type Params map[string]string

// Get returns a parameter value or empty string if not found.
func (p Params) Get(key string) string {
	return p[key]
}

// Session contains data passed from the HTTP handler.
type Session map[string]any

// TerminateReason indicates why a component is being terminated.
type TerminateReason int

const (
	// TerminateNormal indicates clean disconnection.
	TerminateNormal TerminateReason = iota
	// TerminateShutdown indicates server shutdown.
	TerminateShutdown
	// TerminateError indicates termination due to an error.
	TerminateError
	// TerminateTimeout indicates termination due to inactivity.
	TerminateTimeout
)

func (r TerminateReason) String() string {
	switch r {
	case TerminateNormal:
		return "normal"
	case TerminateShutdown:
		return "shutdown"
	case TerminateError:
		return "error"
	case TerminateTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// SocketAware is implemented by components that need their socket injected
// before Mount.
type SocketAware interface {
	SetSocket(s *Socket)
}

// BaseComponent provides default implementations for Component methods.
// Embed it in components to avoid implementing unused callbacks.
type BaseComponent struct {
	socket *Socket
}

// SetSocket sets the socket for the component (called by the router).
func (bc *BaseComponent) SetSocket(s *Socket) {
	bc.socket = s
}

// Socket returns the component's socket.
func (bc *BaseComponent) Socket() *Socket {
	return bc.socket
}

// Assigns returns the socket's assigns store, or a detached store when the
// component has no socket yet.
func (bc *BaseComponent) Assigns() *Assigns {
	if bc.socket == nil {
		bc.socket = NewSocket("", nil)
	}
	return bc.socket.Assigns()
}

// Name returns an empty string (override in your component).
func (bc *BaseComponent) Name() string {
	return ""
}

// Mount does nothing by default.
func (bc *BaseComponent) Mount(ctx context.Context, params Params, session Session) error {
	return nil
}

// HandleEvent does nothing by default.
func (bc *BaseComponent) HandleEvent(ctx context.Context, event string, payload map[string]any) error {
	return nil
}

// HandleInfo does nothing by default.
func (bc *BaseComponent) HandleInfo(ctx context.Context, msg any) error {
	return nil
}

// Terminate does nothing by default.
func (bc *BaseComponent) Terminate(ctx context.Context, reason TerminateReason) error {
	return nil
}
