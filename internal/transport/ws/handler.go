// Package ws carries the realtime gateway over WebSocket connections.
package ws

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"delivery-tracking/internal/auth"
	"delivery-tracking/internal/logx"
	"delivery-tracking/internal/realtime"
)

// Config tunes connection handling.
type Config struct {
	HandshakeTimeout time.Duration
	PingInterval     time.Duration
	WriteTimeout     time.Duration
	MaxMessageBytes  int64
	AllowedOrigins   []string
}

func (c Config) withDefaults() Config {
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 5 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 25 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.MaxMessageBytes <= 0 {
		c.MaxMessageBytes = 64 << 10
	}
	return c
}

// pongWait must exceed the ping interval so one lost pong is tolerated.
func (c Config) pongWait() time.Duration {
	return c.PingInterval * 2
}

// Handler upgrades HTTP requests and runs one session per connection.
type Handler struct {
	gw       *realtime.Gateway
	cfg      Config
	upgrader websocket.Upgrader
	logger   logx.Logger
	onReject func(http.ResponseWriter, *http.Request, error)
}

// NewHandler creates a Handler. onReject writes the response for a request
// whose upgrade-time credentials are invalid.
func NewHandler(gw *realtime.Gateway, cfg Config, logger logx.Logger, onReject func(http.ResponseWriter, *http.Request, error)) *Handler {
	if logger == nil {
		logger = logx.Nop()
	}
	if onReject == nil {
		onReject = func(w http.ResponseWriter, _ *http.Request, _ error) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		}
	}
	cfg = cfg.withDefaults()
	h := &Handler{gw: gw, cfg: cfg, logger: logger, onReject: onReject}
	h.upgrader = websocket.Upgrader{
		HandshakeTimeout: cfg.HandshakeTimeout,
		CheckOrigin:      originChecker(cfg.AllowedOrigins),
	}
	return h
}

// ServeHTTP handles GET /ws. Credentials presented with the upgrade request
// are checked before upgrading; otherwise the first frame must authenticate
// within the handshake timeout.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := auth.BearerToken(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	teardown := func(c *realtime.Client) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.cfg.WriteTimeout)
		defer cancel()
		h.gw.Close(ctx, c)
	}

	c := h.gw.Open(nil)
	if token != "" {
		if _, err := h.gw.Authenticate(r.Context(), c, token); err != nil {
			teardown(c)
			h.onReject(w, r, err)
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", logx.Err(err))
		teardown(c)
		return
	}

	s := &session{h: h, conn: conn, client: c}
	go s.writePump()
	s.readPump(r.Context())
	teardown(c)
}

func (h *Handler) reject(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(h.cfg.WriteTimeout))
}

type session struct {
	h      *Handler
	conn   *websocket.Conn
	client *realtime.Client
}

func (s *session) readPump(ctx context.Context) {
	cfg := s.h.cfg
	s.conn.SetReadLimit(cfg.MaxMessageBytes)
	_ = s.conn.SetReadDeadline(time.Now().Add(cfg.pongWait()))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(cfg.pongWait()))
	})

	if _, ok := s.client.Identity(); !ok {
		timer := time.AfterFunc(cfg.HandshakeTimeout, func() {
			if _, ok := s.client.Identity(); ok {
				return
			}
			s.h.logger.Info("authentication timeout", logx.ConnID(s.client.ID()))
			s.h.reject(s.conn, "authentication timeout")
			s.client.Close()
		})
		defer timer.Stop()
	}

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) &&
				!errors.Is(err, websocket.ErrCloseSent) {
				s.h.logger.Debug("websocket read failed",
					logx.ConnID(s.client.ID()),
					logx.Err(err),
				)
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(cfg.pongWait()))
		s.h.gw.Reply(s.client, s.h.gw.Handle(ctx, s.client, data))
	}
}

// writePump is the only writer of data frames on the connection.
func (s *session) writePump() {
	cfg := s.h.cfg
	ticker := time.NewTicker(cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case frame := <-s.client.Outbox():
			_ = s.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.client.Close()
				return
			}
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(cfg.WriteTimeout)); err != nil {
				s.client.Close()
				return
			}
		case <-s.client.Done():
			s.flush()
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(cfg.WriteTimeout))
			return
		}
	}
}

// flush writes frames already queued before the client was closed.
func (s *session) flush() {
	deadline := time.Now().Add(s.h.cfg.WriteTimeout)
	_ = s.conn.SetWriteDeadline(deadline)
	for {
		select {
		case frame := <-s.client.Outbox():
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		default:
			return
		}
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.ToLower(strings.TrimSpace(o))] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		_, ok := set[strings.ToLower(u.Scheme+"://"+u.Host)]
		return ok
	}
}
