package ws

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-social-backend/internal/presence"
)

type captureConn struct {
	payloads [][]byte
	sendErr  error
}

func (c *captureConn) Send(payload []byte) error {
	if c.sendErr != nil {
		return c.sendErr
	}
	c.payloads = append(c.payloads, payload)
	return nil
}

func TestDeliver_OfflineTargetIsSilentNoop(t *testing.T) {
	registry := presence.NewRegistry()
	relay := NewRelay(registry, zerolog.Nop())

	// Must not error, panic, queue, or retry.
	relay.Deliver("ghost", EventNotify, NotifyDelivery{DisplayName: "A", Kind: "like"})

	if registry.Len() != 0 {
		t.Fatalf("registry should be untouched")
	}
}

func TestDeliver_WrapsPayloadInEnvelope(t *testing.T) {
	registry := presence.NewRegistry()
	relay := NewRelay(registry, zerolog.Nop())

	conn := &captureConn{}
	registry.Register(conn, "u2")

	relay.Deliver("u2", EventTypingStart, TypingDelivery{Flag: true})

	if len(conn.payloads) != 1 {
		t.Fatalf("expected one delivery, got %d", len(conn.payloads))
	}
	var env Envelope
	if err := json.Unmarshal(conn.payloads[0], &env); err != nil {
		t.Fatalf("envelope decode: %v", err)
	}
	if env.Event != EventTypingStart {
		t.Fatalf("expected event %q, got %q", EventTypingStart, env.Event)
	}
	var data TypingDelivery
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("payload decode: %v", err)
	}
	if !data.Flag {
		t.Fatalf("typing flag lost in transit")
	}
}

func TestDeliver_SendFailureDoesNotPropagate(t *testing.T) {
	registry := presence.NewRegistry()
	relay := NewRelay(registry, zerolog.Nop())

	conn := &captureConn{sendErr: errors.New("dead connection")}
	registry.Register(conn, "u2")

	// Treated as a miss; the caller never sees an error.
	relay.Deliver("u2", EventNotify, NotifyDelivery{DisplayName: "B"})

	if len(conn.payloads) != 0 {
		t.Fatalf("no payload should be recorded for a failed send")
	}
}
