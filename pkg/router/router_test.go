package router

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabrielmiguelok/signupkit/pkg/core"
	"github.com/gabrielmiguelok/signupkit/pkg/logging"
	"github.com/gabrielmiguelok/signupkit/pkg/protocol"
	"github.com/gabrielmiguelok/signupkit/pkg/transport"
)

// counter is a minimal live component: "inc" bumps a count, "later" posts
// an info message that sets a note and redirects.
type counter struct {
	core.BaseComponent
	count      int
	note       string
	terminated *atomic.Bool
}

func (c *counter) Name() string { return "counter" }

func (c *counter) Mount(ctx context.Context, params core.Params, session core.Session) error {
	c.count = 0
	if start := params.Get("start"); start != "" {
		fmt.Sscanf(start, "%d", &c.count)
	}
	return nil
}

func (c *counter) Render(ctx context.Context) core.Renderer {
	return core.RendererFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<div id="counter">%d %s</div>`, c.count, c.note)
		return err
	})
}

func (c *counter) HandleEvent(ctx context.Context, event string, payload map[string]any) error {
	switch event {
	case "inc":
		c.count++
	case "noop":
	case "later":
		return c.Socket().SendInfo("done")
	default:
		return fmt.Errorf("unknown event %q", event)
	}
	return nil
}

func (c *counter) HandleInfo(ctx context.Context, msg any) error {
	c.note = fmt.Sprint(msg)
	return c.Socket().Redirect("/elsewhere")
}

func (c *counter) Terminate(ctx context.Context, reason core.TerminateReason) error {
	if c.terminated != nil {
		c.terminated.Store(true)
	}
	return nil
}

func newTestServer(t *testing.T, terminated *atomic.Bool) (*Router, *httptest.Server) {
	t.Helper()
	r := New()
	r.Live("/live", func() core.Component { return &counter{terminated: terminated} },
		WithLayout(func(body core.Renderer) core.Renderer {
			return core.RendererFunc(func(ctx context.Context, w io.Writer) error {
				io.WriteString(w, "<html><body>")
				if err := body.Render(ctx, w); err != nil {
					return err
				}
				_, err := io.WriteString(w, "</body></html>")
				return err
			})
		}),
		WithRouteMiddleware(NoStore()),
	)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return r, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *transport.WebSocketTransport {
	t.Helper()
	cfg := transport.DefaultTransportConfig()
	if strings.Contains(query, "msgpack") {
		cfg.Codec = protocol.NewMsgPackCodec()
	}
	client := transport.NewWebSocketTransport(cfg, nil)
	client.SetURL("ws" + strings.TrimPrefix(srv.URL, "http") + "/live" + query)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, client.Connect(ctx))
	t.Cleanup(func() { client.Close() })
	return client
}

func send(t *testing.T, c *transport.WebSocketTransport, ref, event string, payload map[string]any) {
	t.Helper()
	require.NoError(t, c.Send(protocol.NewMessage("lv:test", event, payload).WithRef(ref)))
}

func await(t *testing.T, c *transport.WebSocketTransport, match func(protocol.Message) bool) protocol.Message {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case msg := <-c.Receive():
			if match(msg) {
				return msg
			}
		case <-timeout:
			t.Fatal("timed out waiting for message")
		}
	}
}

func replyTo(ref string) func(protocol.Message) bool {
	return func(m protocol.Message) bool { return m.Event == protocol.EventReply && m.Ref == ref }
}

func event(name string) func(protocol.Message) bool {
	return func(m protocol.Message) bool { return m.Event == name }
}

func TestRouter_InitialHTTPRender(t *testing.T) {
	_, srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/live?start=4")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Equal(t, `<html><body><div id="counter">4 </div></body></html>`, string(body))
}

func TestRouter_JoinEventDiff(t *testing.T) {
	r, srv := newTestServer(t, nil)
	client := dial(t, srv, "?start=1")

	send(t, client, "1", protocol.EventJoin, nil)
	join := await(t, client, replyTo("1"))
	assert.Equal(t, "ok", join.Payload["status"])
	response := join.Payload["response"].(map[string]any)
	assert.Contains(t, response["f"], `<div id="counter">1 </div>`)

	require.Eventually(t, func() bool { return r.SessionManager().Count() == 1 }, time.Second, 10*time.Millisecond)

	send(t, client, "2", "inc", nil)
	await(t, client, replyTo("2"))
	diff := await(t, client, event(protocol.EventDiff))
	assert.Contains(t, diff.Payload["f"], `<div id="counter">2 </div>`)
}

func TestRouter_UnchangedRenderNotResent(t *testing.T) {
	_, srv := newTestServer(t, nil)
	client := dial(t, srv, "")

	send(t, client, "1", protocol.EventJoin, nil)
	await(t, client, replyTo("1"))

	send(t, client, "2", "noop", nil)
	send(t, client, "3", "inc", nil)

	// The first diff after join must be the one caused by "inc".
	diff := await(t, client, event(protocol.EventDiff))
	assert.Contains(t, diff.Payload["f"], `<div id="counter">1 </div>`)
}

func TestRouter_EventBeforeJoin(t *testing.T) {
	_, srv := newTestServer(t, nil)
	client := dial(t, srv, "")

	send(t, client, "1", "inc", nil)
	reply := await(t, client, replyTo("1"))

	assert.Equal(t, "error", reply.Payload["status"])
	assert.Equal(t, ErrNotJoined.Error(), reply.Payload["response"].(map[string]any)["reason"])
}

func TestRouter_EventError(t *testing.T) {
	_, srv := newTestServer(t, nil)
	client := dial(t, srv, "")

	send(t, client, "1", protocol.EventJoin, nil)
	await(t, client, replyTo("1"))

	send(t, client, "2", "explode", nil)
	reply := await(t, client, replyTo("2"))
	assert.Equal(t, "error", reply.Payload["status"])
}

func TestRouter_InfoMailboxAndRedirect(t *testing.T) {
	_, srv := newTestServer(t, nil)
	client := dial(t, srv, "")

	send(t, client, "1", protocol.EventJoin, nil)
	await(t, client, replyTo("1"))

	send(t, client, "2", "later", nil)

	redirect := await(t, client, event(protocol.EventRedirect))
	assert.Equal(t, "/elsewhere", redirect.String("to"))

	diff := await(t, client, event(protocol.EventDiff))
	assert.Contains(t, diff.Payload["f"], "done")
}

func TestRouter_HeartbeatReply(t *testing.T) {
	_, srv := newTestServer(t, nil)
	client := dial(t, srv, "")

	send(t, client, "hb", protocol.EventHeartbeat, nil)
	reply := await(t, client, replyTo("hb"))
	assert.Equal(t, "ok", reply.Payload["status"])
}

func TestRouter_MsgPackCodec(t *testing.T) {
	_, srv := newTestServer(t, nil)
	client := dial(t, srv, "?codec=msgpack&start=7")

	send(t, client, "1", protocol.EventJoin, nil)
	join := await(t, client, replyTo("1"))

	response := join.Payload["response"].(map[string]any)
	assert.Contains(t, response["f"], `<div id="counter">7 </div>`)
}

func TestRouter_DisconnectTerminates(t *testing.T) {
	var terminated atomic.Bool
	r, srv := newTestServer(t, &terminated)
	client := dial(t, srv, "")

	send(t, client, "1", protocol.EventJoin, nil)
	await(t, client, replyTo("1"))

	client.Close()

	require.Eventually(t, terminated.Load, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return r.SessionManager().Count() == 0 && r.SocketManager().Count() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRouter_LeaveTerminates(t *testing.T) {
	var terminated atomic.Bool
	_, srv := newTestServer(t, &terminated)
	client := dial(t, srv, "")

	send(t, client, "1", protocol.EventJoin, nil)
	await(t, client, replyTo("1"))
	send(t, client, "2", protocol.EventLeave, nil)

	require.Eventually(t, terminated.Load, 2*time.Second, 10*time.Millisecond)
}

func TestRouter_ShutdownRejectsNewSessions(t *testing.T) {
	r, srv := newTestServer(t, nil)
	require.NoError(t, r.Shutdown(context.Background()))

	req, _ := http.NewRequest("GET", srv.URL+"/live", nil)
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Connection", "Upgrade")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRouter_Handle_UsesMiddleware(t *testing.T) {
	r := New()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("X-Test", "yes")
			next.ServeHTTP(w, req)
		})
	})
	r.HandleFunc("/login", func(w http.ResponseWriter, req *http.Request) {
		io.WriteString(w, "login")
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/login", nil))

	assert.Equal(t, "yes", rec.Header().Get("X-Test"))
	assert.Equal(t, "login", rec.Body.String())
}

func TestRecovery(t *testing.T) {
	h := Recovery(nopLogger())(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestIsWebSocketRequest(t *testing.T) {
	req := httptest.NewRequest("GET", "/live", nil)
	assert.False(t, isWebSocketRequest(req))

	req.Header.Set("Upgrade", "WebSocket")
	assert.True(t, isWebSocketRequest(req))
}

func TestExtractParams(t *testing.T) {
	req := httptest.NewRequest("GET", "/live?step=2&codec=json", nil)
	params := extractParams(req)
	assert.Equal(t, "2", params.Get("step"))
	assert.Equal(t, "json", params.Get("codec"))
}

func TestLiveViewSessionManager(t *testing.T) {
	m := NewLiveViewSessionManager()
	s := m.Create("sock", &counter{}, core.Params{}, core.Session{})

	assert.Equal(t, "lv:sock", s.Topic)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, 1, m.Count())

	m.Remove(s.ID)
	assert.Equal(t, 0, m.Count())
}

func nopLogger() logging.Logger { return logging.NopLogger{} }
