package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-social-backend/internal/presence"
)

func newHubServer(t *testing.T) (*httptest.Server, *Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := presence.NewRegistry()
	relay := NewRelay(registry, zerolog.Nop())
	hub := NewHub(registry, relay, nil, zerolog.Nop(), Options{
		WriteWait:  2 * time.Second,
		PingPeriod: 10 * time.Second,
		SendBuffer: 16,
	})

	r := gin.New()
	r.GET("/ws", hub.Handler())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	t.Cleanup(hub.Shutdown)
	return srv, hub
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendEnv(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	if err := conn.WriteJSON(Envelope{Event: event, Data: raw}); err != nil {
		t.Fatalf("write %s: %v", event, err)
	}
}

func readEnv(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var env Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	return env
}

func readOnlineUsers(t *testing.T, conn *websocket.Conn) []string {
	t.Helper()
	env := readEnv(t, conn)
	if env.Event != EventOnlineUsers {
		t.Fatalf("expected %s, got %s", EventOnlineUsers, env.Event)
	}
	var ids []string
	if err := json.Unmarshal(env.Data, &ids); err != nil {
		t.Fatalf("decode ids: %v", err)
	}
	return ids
}

func TestHub_AnnounceBroadcastsOnlineUsersToAll(t *testing.T) {
	srv, _ := newHubServer(t)

	a := dialWS(t, srv)
	sendEnv(t, a, EventAnnouncePresence, "u1")
	if ids := readOnlineUsers(t, a); len(ids) != 1 || ids[0] != "u1" {
		t.Fatalf("expected [u1], got %v", ids)
	}

	b := dialWS(t, srv)
	sendEnv(t, b, EventAnnouncePresence, "u2")

	// Both connections, not just the announcer, receive the updated list.
	if ids := readOnlineUsers(t, a); len(ids) != 2 {
		t.Fatalf("a: expected 2 online users, got %v", ids)
	}
	if ids := readOnlineUsers(t, b); len(ids) != 2 {
		t.Fatalf("b: expected 2 online users, got %v", ids)
	}
}

func TestHub_RelaysMessageToAnnouncedReceiver(t *testing.T) {
	srv, _ := newHubServer(t)

	a := dialWS(t, srv)
	sendEnv(t, a, EventAnnouncePresence, "u1")
	readOnlineUsers(t, a)

	b := dialWS(t, srv)
	sendEnv(t, b, EventAnnouncePresence, "u2")
	readOnlineUsers(t, a)
	readOnlineUsers(t, b)

	sendEnv(t, b, EventSendMessage, SendMessagePayload{
		ReceiverID: "u1",
		Message:    json.RawMessage(`{"text":"hello","senderId":"u2"}`),
	})

	env := readEnv(t, a)
	if env.Event != EventSendMessage {
		t.Fatalf("expected send-message, got %s", env.Event)
	}
	var msg struct {
		Text     string `json:"text"`
		SenderID string `json:"senderId"`
	}
	if err := json.Unmarshal(env.Data, &msg); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if msg.Text != "hello" || msg.SenderID != "u2" {
		t.Fatalf("message not forwarded verbatim: %+v", msg)
	}
}

func TestHub_IgnoresEventsFromUnannouncedConnections(t *testing.T) {
	srv, _ := newHubServer(t)

	a := dialWS(t, srv)
	sendEnv(t, a, EventAnnouncePresence, "u1")
	readOnlineUsers(t, a)

	b := dialWS(t, srv)
	sendEnv(t, b, EventAnnouncePresence, "u2")
	readOnlineUsers(t, a)
	readOnlineUsers(t, b)

	// c never announces; its events must be dropped silently.
	c := dialWS(t, srv)
	sendEnv(t, c, EventTypingStart, TypingPayload{ReceiverID: "u1", Flag: true})

	// b's typing event must be the next thing a sees, proving c's was dropped.
	sendEnv(t, b, EventTypingStop, TypingPayload{ReceiverID: "u1"})
	env := readEnv(t, a)
	if env.Event != EventTypingStop {
		t.Fatalf("expected typing-stop from announced sender, got %s", env.Event)
	}
}

func TestHub_DisconnectBroadcastsShrunkList(t *testing.T) {
	srv, _ := newHubServer(t)

	a := dialWS(t, srv)
	sendEnv(t, a, EventAnnouncePresence, "u1")
	readOnlineUsers(t, a)

	b := dialWS(t, srv)
	sendEnv(t, b, EventAnnouncePresence, "u2")
	readOnlineUsers(t, a)
	readOnlineUsers(t, b)

	_ = b.Close()

	if ids := readOnlineUsers(t, a); len(ids) != 1 || ids[0] != "u1" {
		t.Fatalf("after u2 left, expected [u1], got %v", ids)
	}
}

func TestHub_RelayToOfflineUserIsNoop(t *testing.T) {
	srv, _ := newHubServer(t)

	a := dialWS(t, srv)
	sendEnv(t, a, EventAnnouncePresence, "u1")
	readOnlineUsers(t, a)

	// Target never connected; the sender's connection must stay healthy.
	sendEnv(t, a, EventNotify, NotifyPayload{SenderID: "u1", ReceiverID: "ghost", Kind: "like"})
	sendEnv(t, a, EventUnreadBump, UnreadBumpPayload{ReceiverID: "u1"})

	env := readEnv(t, a)
	if env.Event != EventUnreadBump {
		t.Fatalf("expected unread-bump echo to self, got %s", env.Event)
	}
	var data UnreadBumpDelivery
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !data.HasNewMessage {
		t.Fatalf("unread bump should carry hasNewMessage=true")
	}
}
