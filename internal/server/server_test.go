package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabrielmiguelok/signupkit/internal/config"
	"github.com/gabrielmiguelok/signupkit/pkg/core"
	"github.com/gabrielmiguelok/signupkit/pkg/logging"
)

func testSettings() config.Settings {
	cfg := core.DefaultConfig()
	cfg.Registration.SubmitDelay = 5 * time.Millisecond
	cfg.Registration.RedirectDelay = 5 * time.Millisecond
	return config.Settings{Core: cfg, TakenEmails: []string{"taken@example.com"}}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	r, err := NewRouter(testSettings(), logging.NopLogger{})
	require.NoError(t, err)
	ts := httptest.NewServer(r)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		r.Shutdown(ctx)
		ts.Close()
	})
	return ts
}

type frame struct {
	Ref     string         `json:"ref,omitempty"`
	Topic   string         `json:"topic"`
	Event   string         `json:"event"`
	Payload map[string]any `json:"payload,omitempty"`
}

type liveClient struct {
	t   *testing.T
	ws  *websocket.Conn
	ref int
}

func connect(t *testing.T, ts *httptest.Server) *liveClient {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ws, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+RegisterPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close(websocket.StatusNormalClosure, "test done") })

	return &liveClient{t: t, ws: ws}
}

func (c *liveClient) push(event string, payload map[string]any) string {
	c.t.Helper()
	c.ref++
	ref := strconv.Itoa(c.ref)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(c.t, wsjson.Write(ctx, c.ws, frame{Ref: ref, Topic: "lv:register", Event: event, Payload: payload}))
	return ref
}

func (c *liveClient) input(field string, value any) {
	c.t.Helper()
	c.push("input", map[string]any{"field": field, "value": value})
}

// await reads frames until match accepts one.
func (c *liveClient) await(match func(frame) bool) frame {
	c.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	for {
		var f frame
		require.NoError(c.t, wsjson.Read(ctx, c.ws, &f))
		if match(f) {
			return f
		}
	}
}

func replyTo(ref string) func(frame) bool {
	return func(f frame) bool { return f.Event == "phx_reply" && f.Ref == ref }
}

func diffContaining(text string) func(frame) bool {
	return func(f frame) bool {
		html, _ := f.Payload["f"].(string)
		return f.Event == "diff" && strings.Contains(html, text)
	}
}

func TestRegisterPage_HTTP(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + RegisterPath)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	html := string(body)
	assert.Contains(t, html, "<title>Create your account</title>")
	assert.Contains(t, html, `<main id="live-root" data-live-root>`)
	assert.Contains(t, html, `data-live-view="signup-wizard"`)
	assert.Contains(t, html, "Step 1 of 3: Personal Info")
	assert.Contains(t, html, `<script src="/_live/signup.js" defer></script>`)
}

func TestStaticRoutes(t *testing.T) {
	ts := newTestServer(t)
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}

	resp, err := client.Get(ts.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, RegisterPath, resp.Header.Get("Location"))

	for path, want := range map[string]int{
		"/login":            http.StatusOK,
		"/_live/signup.js":  http.StatusOK,
		"/healthz":          http.StatusOK,
		"/readyz":           http.StatusOK,
		"/nope":             http.StatusNotFound,
		"/_live/missing.js": http.StatusNotFound,
		"/_live/":           http.StatusNotFound,
	} {
		resp, err := client.Get(ts.URL + path)
		require.NoError(t, err, path)
		resp.Body.Close()
		assert.Equal(t, want, resp.StatusCode, path)
	}
}

func TestWizard_OverWebSocket(t *testing.T) {
	ts := newTestServer(t)
	c := connect(t, ts)

	join := c.await(replyTo(c.push("phx_join", nil)))
	require.Equal(t, "ok", join.Payload["status"])
	resp := join.Payload["response"].(map[string]any)
	assert.Contains(t, resp["f"], "Step 1 of 3: Personal Info")

	// An empty step is rejected with field errors and no step change.
	c.push("next", nil)
	c.await(diffContaining("First name is required"))

	c.input("firstName", "Ada")
	c.input("lastName", "Lovelace")
	c.input("email", "ada@example.com")
	c.input("phone", "555-0100")
	c.push("next", nil)
	c.await(diffContaining("Step 2 of 3: Address"))

	c.input("address", "12 St James's Square")
	c.input("city", "London")
	c.push("next", nil)
	c.await(diffContaining("Step 3 of 3: Security"))

	c.input("password", "secret1")
	c.input("confirmPassword", "secret1")
	c.push("change", map[string]any{"field": "agreeTerms", "value": true})
	c.push("submit", nil)

	c.await(diffContaining("Registration successful!"))
	redirect := c.await(func(f frame) bool { return f.Event == "redirect" })
	assert.Equal(t, "/login", redirect.Payload["to"])
}

func TestWizard_RejectedEmailOverWebSocket(t *testing.T) {
	ts := newTestServer(t)
	c := connect(t, ts)
	c.await(replyTo(c.push("phx_join", nil)))

	for field, value := range map[string]string{
		"firstName": "Tak", "lastName": "En", "email": "taken@example.com", "phone": "1",
	} {
		c.input(field, value)
	}
	c.push("next", nil)
	c.input("address", "1 Main St")
	c.input("city", "Springfield")
	c.push("next", nil)
	c.input("password", "secret1")
	c.input("confirmPassword", "secret1")
	c.input("agreeTerms", "on")
	c.push("submit", nil)

	c.await(diffContaining("An account with this email already exists"))
}

func TestWizard_UnknownEventReplyError(t *testing.T) {
	ts := newTestServer(t)
	c := connect(t, ts)
	c.await(replyTo(c.push("phx_join", nil)))

	reply := c.await(replyTo(c.push("explode", nil)))
	assert.Equal(t, "error", reply.Payload["status"])
}

func TestNewRouter_RejectsReservedLoginPath(t *testing.T) {
	for _, path := range []string{"/", RegisterPath, "/_live/", "/_live/signup.js", "/healthz", "/readyz", "/log{in}"} {
		settings := testSettings()
		settings.Core.Registration.LoginPath = path

		assert.NotPanics(t, func() {
			r, err := NewRouter(settings, logging.NopLogger{})
			assert.Error(t, err, path)
			assert.Nil(t, r, path)
		})
	}
}

func TestNewRouter_CustomLoginPath(t *testing.T) {
	settings := testSettings()
	settings.Core.Registration.LoginPath = "/signin"

	r, err := NewRouter(settings, logging.NopLogger{})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/signin", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogger(t *testing.T) {
	assert.NotNil(t, Logger(core.LogConfig{Level: "debug", JSON: true}))
	assert.NotNil(t, Logger(core.LogConfig{}))
}
