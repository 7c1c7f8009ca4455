// Package livetest mounts live components without a browser or WebSocket
// connection. Events go straight to the component, the socket mailbox is
// drained on demand, and every frame the component pushes is recorded.
package livetest

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabrielmiguelok/signupkit/pkg/core"
)

// LiveViewTest is a test harness for one mounted component.
type LiveViewTest struct {
	component core.Component
	socket    *core.Socket
	transport *MockTransport
	params    core.Params
	session   core.Session
	rendered  string
	t         testing.TB
}

// MountOption configures the test mount.
type MountOption func(*LiveViewTest)

// WithParams sets mount parameters.
func WithParams(params core.Params) MountOption {
	return func(lvt *LiveViewTest) {
		lvt.params = params
	}
}

// WithSession sets session data.
func WithSession(session core.Session) MountOption {
	return func(lvt *LiveViewTest) {
		lvt.session = session
	}
}

// Mount wires comp to a socket over a mock transport, mounts it and renders.
// The component is terminated when the test ends.
func Mount(t testing.TB, comp core.Component, opts ...MountOption) *LiveViewTest {
	t.Helper()

	transport := NewMockTransport()
	lvt := &LiveViewTest{
		component: comp,
		transport: transport,
		socket:    core.NewSocket("test-"+uuid.NewString()[:8], transport),
		params:    core.Params{},
		session:   core.Session{},
		t:         t,
	}
	for _, opt := range opts {
		opt(lvt)
	}

	if sa, ok := comp.(core.SocketAware); ok {
		sa.SetSocket(lvt.socket)
	}

	require.NoError(t, comp.Mount(lvt.ctx(), lvt.params, lvt.session), "mount")
	lvt.render()

	t.Cleanup(func() {
		comp.Terminate(context.Background(), core.TerminateNormal)
		lvt.socket.Close()
	})
	return lvt
}

func (lvt *LiveViewTest) ctx() context.Context {
	return context.Background()
}

// PushEvent delivers a client event and re-renders. A handler error fails the test.
func (lvt *LiveViewTest) PushEvent(event string, payload map[string]any) *LiveViewTest {
	lvt.t.Helper()
	require.NoError(lvt.t, lvt.TryEvent(event, payload), "HandleEvent(%q)", event)
	return lvt
}

// TryEvent delivers a client event and returns the handler error.
func (lvt *LiveViewTest) TryEvent(event string, payload map[string]any) error {
	if payload == nil {
		payload = map[string]any{}
	}
	if err := lvt.component.HandleEvent(lvt.ctx(), event, payload); err != nil {
		return err
	}
	lvt.render()
	return nil
}

// Click sends a payload-less event.
func (lvt *LiveViewTest) Click(event string) *LiveViewTest {
	lvt.t.Helper()
	return lvt.PushEvent(event, nil)
}

// Input sends an "input" event for one named field.
func (lvt *LiveViewTest) Input(field string, value any) *LiveViewTest {
	lvt.t.Helper()
	return lvt.PushEvent("input", map[string]any{"field": field, "value": value})
}

// SendInfo delivers msg to HandleInfo directly and re-renders.
func (lvt *LiveViewTest) SendInfo(msg any) *LiveViewTest {
	lvt.t.Helper()
	require.NoError(lvt.t, lvt.component.HandleInfo(lvt.ctx(), msg), "HandleInfo(%T)", msg)
	lvt.render()
	return lvt
}

// AwaitInfo waits for the next mailbox message, delivers it like the session
// loop does and returns it.
func (lvt *LiveViewTest) AwaitInfo(timeout time.Duration) any {
	lvt.t.Helper()

	select {
	case msg := <-lvt.socket.Info():
		lvt.SendInfo(msg)
		return msg
	case <-time.After(timeout):
		lvt.t.Fatalf("no info message within %s", timeout)
		return nil
	}
}

// AssertNoInfo fails if a mailbox message arrives within wait.
func (lvt *LiveViewTest) AssertNoInfo(wait time.Duration) *LiveViewTest {
	lvt.t.Helper()

	select {
	case msg := <-lvt.socket.Info():
		lvt.t.Errorf("unexpected info message %#v", msg)
	case <-time.After(wait):
	}
	return lvt
}

// Terminate ends the component as the session loop would on disconnect.
func (lvt *LiveViewTest) Terminate(reason core.TerminateReason) *LiveViewTest {
	lvt.t.Helper()
	require.NoError(lvt.t, lvt.component.Terminate(context.Background(), reason))
	return lvt
}

func (lvt *LiveViewTest) render() {
	lvt.t.Helper()

	renderer := lvt.component.Render(lvt.ctx())
	require.NotNil(lvt.t, renderer, "Render returned nil")

	var buf bytes.Buffer
	require.NoError(lvt.t, renderer.Render(lvt.ctx(), &buf), "render")
	lvt.rendered = buf.String()
}

// Rendered returns the current rendered HTML.
func (lvt *LiveViewTest) Rendered() string {
	return lvt.rendered
}

// AssertText verifies the rendered output contains text.
func (lvt *LiveViewTest) AssertText(text string) *LiveViewTest {
	lvt.t.Helper()
	if !strings.Contains(lvt.rendered, text) {
		lvt.t.Errorf("text not found: %q\nrendered HTML:\n%s", text, lvt.rendered)
	}
	return lvt
}

// AssertNoText verifies the rendered output does not contain text.
func (lvt *LiveViewTest) AssertNoText(text string) *LiveViewTest {
	lvt.t.Helper()
	if strings.Contains(lvt.rendered, text) {
		lvt.t.Errorf("text should not be rendered: %q", text)
	}
	return lvt
}

// AssertAssign verifies an assign value on the socket.
func (lvt *LiveViewTest) AssertAssign(key string, expected any) *LiveViewTest {
	lvt.t.Helper()
	assert.Equal(lvt.t, expected, lvt.socket.Assigns().Get(key), "assign %q", key)
	return lvt
}

// AssertPushed verifies the component pushed an event to the client and
// returns the last such message.
func (lvt *LiveViewTest) AssertPushed(event string) map[string]any {
	lvt.t.Helper()
	msgs := lvt.transport.SentEvents(event)
	if len(msgs) == 0 {
		lvt.t.Errorf("no %q event pushed", event)
		return nil
	}
	return msgs[len(msgs)-1].Payload
}

// AssertNotPushed verifies the component never pushed event.
func (lvt *LiveViewTest) AssertNotPushed(event string) *LiveViewTest {
	lvt.t.Helper()
	assert.Empty(lvt.t, lvt.transport.SentEvents(event), "%q should not be pushed", event)
	return lvt
}

// Socket returns the component's socket.
func (lvt *LiveViewTest) Socket() *core.Socket {
	return lvt.socket
}

// Transport returns the mock transport under the socket.
func (lvt *LiveViewTest) Transport() *MockTransport {
	return lvt.transport
}

// Component returns the component under test.
func (lvt *LiveViewTest) Component() core.Component {
	return lvt.component
}
