package host

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialIPC(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ipc"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial host channel: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, s *Server, want int) {
	t.Helper()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		s.mu.RLock()
		got := len(s.clients)
		s.mu.RUnlock()
		if got == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d connected clients", want)
}

func TestInboundQueryReachesHandler(t *testing.T) {
	received := make(chan Message, 1)
	s := NewServer("", HandlerFunc(func(msg Message) { received <- msg }))
	server := httptest.NewServer(s.Routes())
	defer server.Close()

	conn := dialIPC(t, server)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"query":{"queryText":"what is the weather"}}`)); err != nil {
		t.Fatalf("failed to write message: %v", err)
	}

	select {
	case msg := <-received:
		if msg.Query == nil || msg.Query.QueryText != "what is the weather" {
			t.Fatalf("unexpected message %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for host message")
	}
}

func TestMalformedMessagesAreSkipped(t *testing.T) {
	received := make(chan Message, 2)
	s := NewServer("", HandlerFunc(func(msg Message) { received <- msg }))
	server := httptest.NewServer(s.Routes())
	defer server.Close()

	conn := dialIPC(t, server)
	conn.WriteMessage(websocket.TextMessage, []byte(`{not json`))
	conn.WriteMessage(websocket.TextMessage, []byte(`{"query":{"queryText":"hello"}}`))

	select {
	case msg := <-received:
		if msg.Query == nil || msg.Query.QueryText != "hello" {
			t.Fatalf("expected the well formed message, got %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for host message")
	}
}

func TestNotifyMiniModeBroadcasts(t *testing.T) {
	s := NewServer("", nil)
	server := httptest.NewServer(s.Routes())
	defer server.Close()

	first := dialIPC(t, server)
	second := dialIPC(t, server)
	waitForClients(t, s, 2)

	if err := s.NotifyMiniMode(true); err != nil {
		t.Fatalf("unexpected notify error: %v", err)
	}

	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("failed to read notification: %v", err)
		}

		var notification Notification
		if err := json.Unmarshal(data, &notification); err != nil {
			t.Fatalf("failed to decode notification: %v", err)
		}
		if notification.Channel != ChannelMiniMode || !notification.Enabled {
			t.Fatalf("unexpected notification %+v", notification)
		}
	}
}

func TestNotifyAfterShutdownFails(t *testing.T) {
	s := NewServer("127.0.0.1:0", nil)
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected shutdown error: %v", err)
	}
	if err := s.NotifyMiniMode(false); err != ErrServerClosed {
		t.Fatalf("expected closed error, got %v", err)
	}
}

func TestHealth(t *testing.T) {
	s := NewServer("", nil)
	recorder := httptest.NewRecorder()
	s.Routes().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
}
