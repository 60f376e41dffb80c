package connection

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// mockGateway creates a test WebSocket server.
func mockGateway(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestClientEndpointCarriesToken(t *testing.T) {
	client := NewClient(Config{
		GatewayURL: "wss://gateway.example.test/ws",
		Token:      "secret-token",
	}, nil)

	endpoint, err := client.Endpoint()
	if err != nil {
		t.Fatalf("Endpoint error: %v", err)
	}

	parsed, err := url.Parse(endpoint)
	if err != nil {
		t.Fatalf("parse endpoint: %v", err)
	}

	query := parsed.Query()
	if query.Get("token") != "secret-token" {
		t.Fatalf("token param = %q", query.Get("token"))
	}
	if query.Get("v") != "1" || query.Get("encoding") != "text" {
		t.Fatalf("common params missing: %q", parsed.RawQuery)
	}
}

func TestClientConnectAndClose(t *testing.T) {
	server := mockGateway(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	client := NewClient(Config{GatewayURL: wsURL(server), Token: "t"}, nil)

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if !client.IsOpen() {
		t.Fatal("expected IsOpen after Connect")
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if client.IsOpen() {
		t.Fatal("expected closed state after Close")
	}
}

func TestClientCloseNeverOpenedIsNoOp(t *testing.T) {
	client := NewClient(Config{GatewayURL: "wss://gateway.example.test/ws", Token: "t"}, nil)

	if err := client.Close(); err != nil {
		t.Fatalf("Close on never-opened client = %v, want nil", err)
	}
}

func TestClientForwardsFramesAndConsumesPong(t *testing.T) {
	server := mockGateway(t, func(conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte("PONG"))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"5","data":{}}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	client := NewClient(Config{GatewayURL: wsURL(server), Token: "t"}, nil)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	select {
	case frame := <-client.Messages():
		if string(frame) != `{"type":"5","data":{}}` {
			t.Fatalf("frame = %q, want the JSON frame (PONG consumed internally)", frame)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
	}
}

func TestClientPongResetsHeartbeat(t *testing.T) {
	pongBack := make(chan struct{})
	server := mockGateway(t, func(conn *websocket.Conn) {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if string(data) == "PING" {
				_ = conn.WriteMessage(websocket.TextMessage, []byte("PONG"))
				select {
				case pongBack <- struct{}{}:
				default:
				}
			}
		}
	})
	defer server.Close()

	client := NewClient(Config{
		GatewayURL:        wsURL(server),
		Token:             "t",
		HeartbeatInterval: 20 * time.Millisecond,
	}, nil)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	select {
	case <-pongBack:
	case <-time.After(2 * time.Second):
		t.Fatal("no probe reached the server")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if client.MissedHeartbeats() == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("missed heartbeats = %d, want 0 after reply", client.MissedHeartbeats())
}

func TestClientSendWhenNotConnected(t *testing.T) {
	client := NewClient(Config{GatewayURL: "wss://gateway.example.test/ws", Token: "t"}, nil)

	if err := client.Send([]byte("data")); err != ErrNotConnected {
		t.Fatalf("Send error = %v, want ErrNotConnected", err)
	}
}
