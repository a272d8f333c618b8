package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-social-backend/internal/presence"
)

// UserDirectory resolves a user id to display data for notification relays.
// The account store is owned by the surrounding application; this is the only
// read the relay needs from it.
type UserDirectory interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

// Options tunes connection behavior. Zero values fall back to defaults.
type Options struct {
	WriteWait  time.Duration // per-write deadline
	PingPeriod time.Duration // keepalive interval, must be < read deadline
	SendBuffer int           // outbound queue length per connection
	ReadLimit  int64         // max inbound frame size in bytes
}

func (o Options) withDefaults() Options {
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.PingPeriod <= 0 {
		o.PingPeriod = 30 * time.Second
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 128
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = 64 << 10
	}
	return o
}

// Hub owns the connection lifecycle. Each connection walks a small state
// machine: connected on upgrade, announced once announce-presence arrives
// (only then is it a valid relay target), closed on disconnect. Events that
// arrive before announcement or after close are ignored, never errors.
//
// The hub also fans the online-id list out to every open connection — not
// just the affected one — after each effective registry change, so all
// clients converge on an eventually-consistent view of who is online.
type Hub struct {
	registry *presence.Registry
	relay    *Relay
	users    UserDirectory
	log      zerolog.Logger
	opts     Options
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*Client]struct{}
}

// NewHub wires the registry, relay, and user directory together and installs
// the presence fan-out.
func NewHub(registry *presence.Registry, relay *Relay, users UserDirectory, log zerolog.Logger, opts Options) *Hub {
	h := &Hub{
		registry: registry,
		relay:    relay,
		users:    users,
		log:      log,
		opts:     opts.withDefaults(),
		upgrader: websocket.Upgrader{
			// The relay rides on an already-authenticated connection; origin
			// policy is enforced upstream with the rest of the CORS posture.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[*Client]struct{}),
	}
	registry.OnChange(h.broadcastOnline)
	return h
}

// Handler returns the Gin handler that upgrades GET /ws and serves the
// connection until it closes.
func (h *Hub) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error.
			h.log.Debug().Err(err).Msg("ws upgrade failed")
			return
		}
		h.serve(conn)
	}
}

// serve runs one connection to completion: register bookkeeping, write loop,
// read loop, then teardown.
func (h *Hub) serve(conn *websocket.Conn) {
	client := newClient(conn, h.opts.SendBuffer, h.opts.WriteWait, h.opts.PingPeriod)

	h.mu.Lock()
	h.conns[client] = struct{}{}
	n := len(h.conns)
	h.mu.Unlock()
	wsConnections.Set(float64(n))
	h.log.Debug().Str("conn_id", client.ID()).Int("open", n).Msg("ws connected")

	go client.writeLoop()
	h.readLoop(client)
	h.drop(client)
}

// drop finalizes a closed connection: it leaves the open set, its presence
// entries (if any) are unregistered — which triggers the online broadcast to
// the remaining connections — and the socket is closed.
func (h *Hub) drop(client *Client) {
	h.mu.Lock()
	delete(h.conns, client)
	n := len(h.conns)
	h.mu.Unlock()
	wsConnections.Set(float64(n))

	h.registry.Unregister(client)
	client.Close(websocket.CloseNormalClosure, "bye")
	h.log.Debug().Str("conn_id", client.ID()).Str("user_id", client.UserID()).Int("open", n).Msg("ws closed")
}

// Shutdown closes every open connection. Used on server stop.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.conns))
	for c := range h.conns {
		clients = append(clients, c)
	}
	h.conns = make(map[*Client]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		h.registry.Unregister(c)
		c.Close(websocket.CloseGoingAway, "server shutdown")
	}
	wsConnections.Set(0)
}

func (h *Hub) readLoop(client *Client) {
	conn := client.conn
	conn.SetReadLimit(h.opts.ReadLimit)
	readWait := h.opts.PingPeriod * 2
	_ = conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readWait))

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			h.log.Debug().Err(err).Str("conn_id", client.ID()).Msg("ws bad frame")
			continue
		}
		h.dispatch(client, env)
	}
}

// dispatch routes one inbound envelope. Apart from announce-presence, events
// from a connection that has not announced are dropped silently.
func (h *Hub) dispatch(client *Client, env Envelope) {
	if env.Event == EventAnnouncePresence {
		h.handleAnnounce(client, env.Data)
		return
	}
	if client.UserID() == "" {
		h.log.Debug().Str("event", env.Event).Str("conn_id", client.ID()).Msg("event before announce ignored")
		return
	}

	switch env.Event {
	case EventNotify:
		var p NotifyPayload
		if json.Unmarshal(env.Data, &p) != nil || p.ReceiverID == "" {
			return
		}
		h.relay.Deliver(p.ReceiverID, EventNotify, NotifyDelivery{
			DisplayName: h.displayName(p.SenderID),
			Kind:        p.Kind,
		})

	case EventSendMessage:
		var p SendMessagePayload
		if json.Unmarshal(env.Data, &p) != nil || p.ReceiverID == "" {
			return
		}
		// Forwarded verbatim; the sender persists it through the REST API.
		h.relay.Deliver(p.ReceiverID, EventSendMessage, p.Message)

	case EventTypingStart, EventTypingStop:
		var p TypingPayload
		if json.Unmarshal(env.Data, &p) != nil || p.ReceiverID == "" {
			return
		}
		h.relay.Deliver(p.ReceiverID, env.Event, TypingDelivery{Flag: p.Flag})

	case EventMarkSeen:
		var p MarkSeenPayload
		if json.Unmarshal(env.Data, &p) != nil || p.ReceiverID == "" {
			return
		}
		h.relay.Deliver(p.ReceiverID, EventMarkSeen, MarkSeenDelivery{MessageID: p.MessageID})

	case EventUnreadBump:
		var p UnreadBumpPayload
		if json.Unmarshal(env.Data, &p) != nil || p.ReceiverID == "" {
			return
		}
		h.relay.Deliver(p.ReceiverID, EventUnreadBump, UnreadBumpDelivery{HasNewMessage: true})

	default:
		h.log.Debug().Str("event", env.Event).Msg("unknown ws event ignored")
	}
}

// handleAnnounce promotes the connection to a relay target. Registration is
// first-wins: when the user already has a live entry the new connection stays
// unregistered until the old one disconnects.
func (h *Hub) handleAnnounce(client *Client, data json.RawMessage) {
	var userID string
	if json.Unmarshal(data, &userID) != nil {
		return
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return
	}
	if !client.setUserID(userID) {
		// Re-announce on the same connection; nothing to do.
		return
	}
	if h.registry.Register(client, userID) {
		h.log.Debug().Str("user_id", userID).Str("conn_id", client.ID()).Msg("presence announced")
	} else {
		h.log.Debug().Str("user_id", userID).Str("conn_id", client.ID()).Msg("presence announce dropped, user already registered")
	}
}

// broadcastOnline pushes the current online-id list to every open connection.
// Installed as the registry change callback; runs outside the registry lock.
func (h *Hub) broadcastOnline(ids []string) {
	onlineUsers.Set(float64(len(ids)))

	payload, err := marshalEnvelope(EventOnlineUsers, ids)
	if err != nil {
		h.log.Error().Err(err).Msg("online broadcast marshal failed")
		return
	}

	h.mu.Lock()
	clients := make([]*Client, 0, len(h.conns))
	for c := range h.conns {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		_ = c.Send(payload)
	}
}

// displayName resolves the sender's display data, falling back to the raw id
// when the directory cannot answer.
func (h *Hub) displayName(userID string) string {
	if h.users == nil {
		return userID
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	name, err := h.users.DisplayName(ctx, userID)
	if err != nil || name == "" {
		return userID
	}
	return name
}
