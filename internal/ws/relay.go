package ws

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-social-backend/internal/presence"
)

// Relay forwards named events to a specific user's live connection.
//
// Delivery is best-effort and fire-and-forget: when the target is not
// registered the call is a silent no-op — it never errors, queues, retries,
// or falls back to persistence. Durability for chat content belongs entirely
// to the conversation/message store, written independently by the sender's
// REST call; the relay only shaves latency for recipients who happen to be
// connected.
type Relay struct {
	registry *presence.Registry
	log      zerolog.Logger
}

// NewRelay constructs a Relay over the given presence registry.
func NewRelay(registry *presence.Registry, log zerolog.Logger) *Relay {
	return &Relay{registry: registry, log: log}
}

// Deliver marshals data into an event envelope and enqueues it on the target
// user's connection, if any. Offline targets are a normal outcome: the miss
// is counted and visible at debug level only.
func (r *Relay) Deliver(targetUserID, event string, data any) {
	conn, ok := r.registry.Lookup(targetUserID)
	if !ok {
		relayMisses.WithLabelValues(event).Inc()
		r.log.Debug().Str("event", event).Str("target", targetUserID).Msg("relay miss")
		return
	}

	payload, err := marshalEnvelope(event, data)
	if err != nil {
		// Payloads are our own DTOs; a marshal failure is a programming error.
		r.log.Error().Err(err).Str("event", event).Msg("relay marshal failed")
		return
	}

	if err := conn.Send(payload); err != nil {
		// The connection died between lookup and send; equivalent to a miss.
		relayMisses.WithLabelValues(event).Inc()
		r.log.Debug().Err(err).Str("event", event).Str("target", targetUserID).Msg("relay send failed")
		return
	}
	relayDelivered.WithLabelValues(event).Inc()
}

func marshalEnvelope(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}
