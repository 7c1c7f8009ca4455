// Package router serves live components over HTTP and WebSocket.
package router

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gabrielmiguelok/signupkit/pkg/core"
	"github.com/gabrielmiguelok/signupkit/pkg/logging"
	"github.com/gabrielmiguelok/signupkit/pkg/protocol"
	"github.com/gabrielmiguelok/signupkit/pkg/transport"
)

// Common router errors.
var (
	ErrNotJoined    = errors.New("session not joined")
	ErrShuttingDown = errors.New("server shutting down")
)

// Router handles HTTP routing for live components.
type Router struct {
	mux          *http.ServeMux
	liveRoutes   map[string]*LiveRoute
	middleware   []Middleware
	errorHandler ErrorHandler

	sessionManager *LiveViewSessionManager
	socketManager  *core.SocketManager
	codecs         *protocol.CodecRegistry

	config core.Config
	logger logging.Logger

	mu sync.RWMutex
}

// LiveRoute defines a route that renders a live component.
type LiveRoute struct {
	// Path is the URL path pattern.
	Path string

	// Component creates a fresh component for every visit.
	Component func() core.Component

	// Layout wraps the first HTTP render in a full page.
	Layout Layout

	Middleware []Middleware
}

// Layout wraps a component render in a document.
type Layout func(body core.Renderer) core.Renderer

// ErrorHandler handles errors during request processing.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Option configures a Router.
type Option func(*Router)

// WithConfig sets timeouts, origins and codec selection.
func WithConfig(cfg core.Config) Option {
	return func(r *Router) {
		r.config = cfg
	}
}

// WithLogger sets the router logger.
func WithLogger(logger logging.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// New creates a new router.
func New(opts ...Option) *Router {
	r := &Router{
		mux:            http.NewServeMux(),
		liveRoutes:     make(map[string]*LiveRoute),
		sessionManager: NewLiveViewSessionManager(),
		socketManager:  core.NewSocketManager(),
		codecs:         protocol.NewCodecRegistry(),
		config:         core.DefaultConfig(),
		logger:         logging.NopLogger{},
	}
	r.errorHandler = func(w http.ResponseWriter, req *http.Request, err error) {
		r.logger.Error("request failed", logging.String("path", req.URL.Path), logging.Err(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.config.Codec != "" {
		if err := r.codecs.SetDefault(r.config.Codec); err != nil {
			r.logger.Warn("unknown codec, using json", logging.String("codec", r.config.Codec))
		}
	}
	return r
}

// Use adds middleware to routes registered after the call.
func (r *Router) Use(mw Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middleware = append(r.middleware, mw)
}

// SetErrorHandler sets the error handler.
func (r *Router) SetErrorHandler(handler ErrorHandler) {
	r.errorHandler = handler
}

// SessionManager returns the session manager.
func (r *Router) SessionManager() *LiveViewSessionManager {
	return r.sessionManager
}

// SocketManager returns the socket manager.
func (r *Router) SocketManager() *core.SocketManager {
	return r.socketManager
}

// Codecs returns the codec registry.
func (r *Router) Codecs() *protocol.CodecRegistry {
	return r.codecs
}

// Live registers a live component route.
func (r *Router) Live(path string, component func() core.Component, opts ...RouteOption) {
	route := &LiveRoute{
		Path:      path,
		Component: component,
	}
	for _, opt := range opts {
		opt(route)
	}

	r.mu.Lock()
	r.liveRoutes[path] = route
	r.mu.Unlock()

	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.serveLive(w, req, route)
	})
	for i := len(route.Middleware) - 1; i >= 0; i-- {
		handler = route.Middleware[i](handler)
	}
	r.Handle(path, handler)
}

// Handle registers a standard HTTP handler wrapped in the router middleware.
func (r *Router) Handle(pattern string, handler http.Handler) {
	r.mu.RLock()
	middleware := make([]Middleware, len(r.middleware))
	copy(middleware, r.middleware)
	r.mu.RUnlock()

	h := handler
	for i := len(middleware) - 1; i >= 0; i-- {
		h = middleware[i](h)
	}
	r.mux.Handle(pattern, h)
}

// HandleFunc registers a standard HTTP handler function.
func (r *Router) HandleFunc(pattern string, handler http.HandlerFunc) {
	r.Handle(pattern, handler)
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Shutdown closes every live session.
func (r *Router) Shutdown(ctx context.Context) error {
	return r.socketManager.Shutdown(ctx)
}

func (r *Router) serveLive(w http.ResponseWriter, req *http.Request, route *LiveRoute) {
	if isWebSocketRequest(req) {
		r.handleWebSocket(w, req, route.Component())
		return
	}
	r.renderLive(w, req, route)
}

// renderLive serves the first, static render of a component. The client
// then connects over WebSocket and gets its own mounted instance.
func (r *Router) renderLive(w http.ResponseWriter, req *http.Request, route *LiveRoute) {
	component := route.Component()
	ctx := req.Context()

	if err := component.Mount(ctx, extractParams(req), extractSession(req)); err != nil {
		r.errorHandler(w, req, fmt.Errorf("mount %s: %w", component.Name(), err))
		return
	}
	defer component.Terminate(ctx, core.TerminateNormal)

	renderer := component.Render(ctx)
	if renderer == nil {
		r.errorHandler(w, req, ErrNilRenderer)
		return
	}
	if route.Layout != nil {
		renderer = route.Layout(renderer)
	}

	var buf bytes.Buffer
	if err := renderer.Render(ctx, &buf); err != nil {
		r.errorHandler(w, req, fmt.Errorf("render %s: %w", component.Name(), err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// handleWebSocket upgrades the request and starts the session loop.
func (r *Router) handleWebSocket(w http.ResponseWriter, req *http.Request, component core.Component) {
	if r.socketManager.IsShutdown() {
		http.Error(w, ErrShuttingDown.Error(), http.StatusServiceUnavailable)
		return
	}

	codec := r.codecs.Negotiate(req.URL.Query().Get("codec"))

	tcfg := transport.DefaultTransportConfig()
	tcfg.Codec = codec
	if d := r.config.Timeouts.WebSocketRead; d > 0 {
		tcfg.ReadTimeout = d
	}
	if d := r.config.Timeouts.WebSocketWrite; d > 0 {
		tcfg.WriteTimeout = d
	}
	if n := r.config.MaxMessageSize; n > 0 {
		tcfg.MaxMessageSize = n
	}

	ws := transport.NewWebSocketTransport(tcfg, &transport.WebSocketConfig{
		AllowedOrigins:  r.config.Security.AllowedOrigins,
		InsecureDevMode: r.config.Security.InsecureDevMode,
	})
	ws.SetLogger(r.logger)

	if err := ws.Upgrade(w, req); err != nil {
		r.logger.Warn("websocket upgrade failed",
			logging.String("origin", req.Header.Get("Origin")),
			logging.Err(err),
		)
		return
	}

	socketID := uuid.NewString()
	logger := r.logger.With(logging.String("socket_id", socketID), logging.String("codec", codec.Name()))
	socket := core.NewSocket(socketID, NewTransportAdapter(ws, logger))

	if sa, ok := component.(core.SocketAware); ok {
		sa.SetSocket(socket)
	}

	lvSession := r.sessionManager.Create(socketID, component, extractParams(req), extractSession(req))
	lvSession.Socket = socket
	lvSession.Conn = ws

	if err := r.socketManager.Add(socket); err != nil {
		r.sessionManager.Remove(lvSession.ID)
		ws.Close()
		return
	}

	logger.Info("session connected", logging.String("component", component.Name()))

	// The connection outlives the HTTP request, so the loop gets its own context.
	ctx := logging.ContextWithLogger(context.Background(), logger)
	go r.messageLoop(ctx, lvSession)
}

// messageLoop is the only goroutine that touches the session's component.
// It multiplexes client frames, the socket info mailbox and connection close.
func (r *Router) messageLoop(ctx context.Context, session *LiveViewSession) {
	recvCh := session.Conn.Receive()
	closeCh := session.Conn.CloseChan()
	infoCh := session.Socket.Info()

	var idle <-chan time.Time
	if ttl := r.config.Timeouts.SessionIdle; ttl > 0 {
		ticker := time.NewTicker(ttl / 2)
		defer ticker.Stop()
		idle = ticker.C
	}

	for {
		select {
		case msg, ok := <-recvCh:
			if !ok {
				r.terminate(ctx, session, core.TerminateNormal)
				return
			}
			session.UpdateActivity()
			if done := r.handleMessage(ctx, session, msg); done {
				return
			}

		case info := <-infoCh:
			r.handleInfo(ctx, session, info)

		case <-idle:
			if time.Since(session.GetLastActivity()) > r.config.Timeouts.SessionIdle {
				r.terminate(ctx, session, core.TerminateTimeout)
				return
			}

		case <-closeCh:
			reason := core.TerminateNormal
			if r.socketManager.IsShutdown() {
				reason = core.TerminateShutdown
			}
			r.terminate(ctx, session, reason)
			return

		case <-ctx.Done():
			r.terminate(ctx, session, core.TerminateShutdown)
			return
		}
	}
}

// handleMessage processes one client frame and reports whether the session ended.
func (r *Router) handleMessage(ctx context.Context, session *LiveViewSession, msg protocol.Message) bool {
	switch {
	case msg.IsHeartbeat():
		session.Socket.UpdateActivity()
		r.sendReply(session, msg.Ref, nil)

	case msg.Event == protocol.EventJoin:
		r.handleJoin(ctx, session, msg)

	case msg.Event == protocol.EventLeave:
		r.terminate(ctx, session, core.TerminateNormal)
		return true

	default:
		if !session.IsMounted() {
			r.sendError(session, msg.Ref, ErrNotJoined)
			return false
		}
		if err := r.dispatchEvent(ctx, session, msg); err != nil {
			logging.L(ctx).Debug("event rejected", logging.String("event", msg.Event), logging.Err(err))
			r.sendError(session, msg.Ref, err)
			return false
		}
		r.sendReply(session, msg.Ref, nil)
		r.renderAndSendDiff(ctx, session)
	}
	return false
}

// handleJoin mounts the component and replies with the first render.
func (r *Router) handleJoin(ctx context.Context, session *LiveViewSession, msg protocol.Message) {
	if !session.IsMounted() {
		mountCtx, cancel := withTimeout(ctx, r.config.Timeouts.ComponentMount)
		err := session.Component.Mount(mountCtx, session.Params, session.Session)
		cancel()
		if err != nil {
			r.sendError(session, msg.Ref, err)
			return
		}
		session.SetMounted(true)
	}

	html, err := r.render(ctx, session)
	if err != nil {
		r.sendError(session, msg.Ref, err)
		return
	}
	session.lastHash = hashHTML(html)

	r.sendReply(session, msg.Ref, map[string]any{
		"v": session.nextVersion(),
		"f": html,
	})
}

// dispatchEvent hands a client event to the component.
func (r *Router) dispatchEvent(ctx context.Context, session *LiveViewSession, msg protocol.Message) error {
	payload := msg.Payload
	if payload == nil {
		payload = make(map[string]any)
	}

	eventCtx, cancel := withTimeout(ctx, r.config.Timeouts.ComponentEvent)
	defer cancel()
	return session.Component.HandleEvent(eventCtx, msg.Event, payload)
}

// handleInfo delivers a mailbox message and pushes the resulting render.
func (r *Router) handleInfo(ctx context.Context, session *LiveViewSession, info any) {
	if !session.IsMounted() {
		return
	}

	infoCtx, cancel := withTimeout(ctx, r.config.Timeouts.ComponentEvent)
	err := session.Component.HandleInfo(infoCtx, info)
	cancel()
	if err != nil {
		logging.L(ctx).Error("handle info", logging.String("type", fmt.Sprintf("%T", info)), logging.Err(err))
		return
	}
	r.renderAndSendDiff(ctx, session)
}

func (r *Router) render(ctx context.Context, session *LiveViewSession) (string, error) {
	renderer := session.Component.Render(ctx)
	if renderer == nil {
		return "", ErrNilRenderer
	}

	var buf bytes.Buffer
	if err := renderer.Render(ctx, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// renderAndSendDiff re-renders the component and sends it unless the HTML
// is unchanged since the last send.
func (r *Router) renderAndSendDiff(ctx context.Context, session *LiveViewSession) {
	html, err := r.render(ctx, session)
	if err != nil {
		logging.L(ctx).Error("render failed", logging.Err(err))
		return
	}

	hash := hashHTML(html)
	if hash == session.lastHash {
		return
	}
	session.lastHash = hash

	payload := &core.DiffPayload{Version: session.nextVersion(), Full: html}
	if err := session.Socket.SendDiff(payload); err != nil {
		logging.L(ctx).Debug("diff not sent", logging.Err(err))
	}
}

// terminate tears the session down once.
func (r *Router) terminate(ctx context.Context, session *LiveViewSession, reason core.TerminateReason) {
	session.terminateOnce.Do(func() {
		if session.IsMounted() {
			tctx, cancel := withTimeout(context.Background(), r.config.Timeouts.ComponentEvent)
			if err := session.Component.Terminate(tctx, reason); err != nil {
				logging.L(ctx).Warn("terminate failed", logging.Err(err))
			}
			cancel()
		}

		r.sessionManager.Remove(session.ID)
		r.socketManager.Remove(session.SocketID)
		session.Socket.Close()

		logging.L(ctx).Info("session closed", logging.String("reason", reason.String()))
	})
}

func (r *Router) sendReply(session *LiveViewSession, ref string, response map[string]any) {
	session.Socket.Send(protocol.OkReply(ref, session.Topic, response))
}

func (r *Router) sendError(session *LiveViewSession, ref string, err error) {
	session.Socket.Send(protocol.ErrorReply(ref, session.Topic, err.Error()))
}

func hashHTML(html string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(html))
	return h.Sum64()
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// extractSession collects cookies into the session.
func extractSession(req *http.Request) core.Session {
	session := make(core.Session)
	for _, cookie := range req.Cookies() {
		session["cookie:"+cookie.Name] = cookie.Value
	}
	return session
}

// extractParams extracts query parameters.
func extractParams(req *http.Request) core.Params {
	params := make(core.Params)
	for key, values := range req.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	return params
}

// isWebSocketRequest checks if this is a WebSocket upgrade request.
func isWebSocketRequest(req *http.Request) bool {
	return strings.Contains(strings.ToLower(req.Header.Get("Upgrade")), "websocket")
}

// RouteOption configures a LiveRoute.
type RouteOption func(*LiveRoute)

// WithLayout sets the page layout for the first render.
func WithLayout(layout Layout) RouteOption {
	return func(r *LiveRoute) {
		r.Layout = layout
	}
}

// WithRouteMiddleware adds middleware to the route.
func WithRouteMiddleware(mw ...Middleware) RouteOption {
	return func(r *LiveRoute) {
		r.Middleware = append(r.Middleware, mw...)
	}
}
