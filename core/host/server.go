package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "github.com/koscakluka/ema-assistant/core/host"

var logger = otelslog.NewLogger(scopeName)

const (
	clientSendBuffer = 16
	writeTimeout     = 5 * time.Second
)

var ErrServerClosed = errors.New("host server closed")

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Server exposes the host channel on /ipc and fans notifications out to all
// connected windows.
type Server struct {
	httpServer *http.Server
	upgrader   websocket.Upgrader
	handler    Handler

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

func NewServer(addr string, handler Handler) *Server {
	s := &Server{
		handler: handler,
		clients: map[*client]struct{}{},
		upgrader: websocket.Upgrader{
			// Host windows are served from local files and carry no origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", s.handleHealth)
	r.Get("/ipc", s.serveWS)
	return r
}

// SetHandler replaces the inbound message handler. Messages received before
// a handler is set are dropped.
func (s *Server) SetHandler(handler Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = handler
}

// ListenAndServe blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	logger.Info("host channel listening", "addr", ln.Addr().String())

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
	}
	s.mu.Unlock()

	return s.httpServer.Shutdown(ctx)
}

// NotifyMiniMode tells every connected window about the mini mode state.
func (s *Server) NotifyMiniMode(enabled bool) error {
	return s.broadcast(Notification{Channel: ChannelMiniMode, Enabled: enabled})
}

func (s *Server) broadcast(notification Notification) error {
	data, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal %s notification: %w", notification.Channel, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrServerClosed
	}

	for c := range s.clients {
		select {
		case c.send <- data:
		default:
			logger.Warn("host window too slow, dropping notification", "channel", notification.Channel)
		}
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("failed to upgrade host connection", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientSendBuffer)}
	if !s.register(c) {
		conn.Close()
		return
	}

	go s.writePump(c)
	s.readPump(c)
}

func (s *Server) register(c *client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.clients[c] = struct{}{}
	logger.Info("host window connected", "clients", len(s.clients))
	return true
}

func (s *Server) unregister(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
		logger.Info("host window disconnected", "clients", len(s.clients))
	}
}

func (s *Server) readPump(c *client) {
	defer func() {
		s.unregister(c)
		c.conn.Close()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("host connection read failed", "error", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warn("malformed host message", "error", err)
			continue
		}

		s.mu.RLock()
		handler := s.handler
		s.mu.RUnlock()
		if handler == nil {
			logger.Debug("no host message handler, dropping message")
			continue
		}
		handler.HandleHostMessage(msg)
	}
}

func (s *Server) writePump(c *client) {
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logger.Debug("host connection write failed", "error", err)
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
