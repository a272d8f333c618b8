// Package ws implements the websocket transport: the per-connection client,
// the best-effort event relay, and the hub that ties connection lifecycle to
// the presence registry.
//
// This file defines the wire protocol. Every frame, in both directions, is a
// JSON envelope {"event": <name>, "data": <payload>}. The inbound event names
// and payload shapes are a client compatibility contract and must not change.
package ws

import "encoding/json"

// Inbound event names accepted from clients.
const (
	// EventAnnouncePresence carries the user id as data and promotes the
	// connection to a relay target.
	EventAnnouncePresence = "announce-presence"
	// EventNotify asks the relay to forward a notification to a receiver.
	EventNotify = "notify"
	// EventSendMessage forwards a chat message payload verbatim to the
	// receiver. Persistence is the sender's responsibility via the REST API.
	EventSendMessage = "send-message"
	// EventTypingStart / EventTypingStop forward a typing flag.
	EventTypingStart = "typing-start"
	EventTypingStop  = "typing-stop"
	// EventMarkSeen forwards a seen-receipt for one message.
	EventMarkSeen = "mark-seen"
	// EventUnreadBump forwards a "has new message" hint.
	EventUnreadBump = "unread-bump"
)

// EventOnlineUsers is the outbound presence broadcast, sent to every open
// connection after each registration or removal. Data is the id list.
const EventOnlineUsers = "online-users"

// Envelope is the frame wrapper for both directions. Data stays raw on the
// inbound path so each handler can decode its own payload shape.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NotifyPayload is the inbound data for EventNotify.
type NotifyPayload struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Kind       string `json:"kind"`
}

// NotifyDelivery is the outbound data for EventNotify, enriched with the
// sender's display name from the user directory.
type NotifyDelivery struct {
	DisplayName string `json:"displayName"`
	Kind        string `json:"kind"`
}

// SendMessagePayload is the inbound data for EventSendMessage. Message is
// forwarded verbatim and never interpreted here.
type SendMessagePayload struct {
	ReceiverID string          `json:"receiverId"`
	Message    json.RawMessage `json:"message"`
}

// TypingPayload is the inbound data for EventTypingStart/EventTypingStop.
type TypingPayload struct {
	ReceiverID string `json:"receiverId"`
	Flag       bool   `json:"flag"`
}

// TypingDelivery is the outbound data for typing events.
type TypingDelivery struct {
	Flag bool `json:"flag"`
}

// MarkSeenPayload is the inbound data for EventMarkSeen.
type MarkSeenPayload struct {
	ReceiverID string `json:"receiverId"`
	MessageID  string `json:"messageId"`
}

// MarkSeenDelivery is the outbound data for EventMarkSeen.
type MarkSeenDelivery struct {
	MessageID string `json:"messageId"`
}

// UnreadBumpPayload is the inbound data for EventUnreadBump.
type UnreadBumpPayload struct {
	ReceiverID string `json:"receiverId"`
}

// UnreadBumpDelivery is the outbound data for EventUnreadBump.
type UnreadBumpDelivery struct {
	HasNewMessage bool `json:"hasNewMessage"`
}
