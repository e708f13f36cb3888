package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/listenupapp/marginalia/internal/domain"
)

// Slots is durable code-addressed storage for published payloads.
type Slots interface {
	PutSlot(ctx context.Context, code string, payload []byte, ttl time.Duration) error
	GetSlot(ctx context.Context, code string) ([]byte, bool, error)
}

// SlotTransport publishes into local slots. It backs exchanges between
// libraries that share a data directory, and the relay server's storage.
type SlotTransport struct {
	slots Slots
	ttl   time.Duration
}

// NewSlotTransport creates a SlotTransport whose payloads expire after ttl
// (never, when ttl is zero).
func NewSlotTransport(slots Slots, ttl time.Duration) *SlotTransport {
	return &SlotTransport{slots: slots, ttl: ttl}
}

// Publish implements Transport.
func (t *SlotTransport) Publish(ctx context.Context, code string, p *domain.Payload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	return t.slots.PutSlot(ctx, code, data, t.ttl)
}

// Fetch implements Transport.
func (t *SlotTransport) Fetch(ctx context.Context, code string) (*domain.Payload, bool, error) {
	data, ok, err := t.slots.GetSlot(ctx, code)
	if err != nil || !ok {
		return nil, false, err
	}
	p, err := DecodePayload(data)
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

// DecodePayload parses a published payload and checks its snapshot shape.
func DecodePayload(data []byte) (*domain.Payload, error) {
	var raw struct {
		Data      json.RawMessage `json:"data"`
		Timestamp time.Time       `json:"timestamp"`
		DeviceID  string          `json:"deviceId"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	snap, err := domain.DecodeSnapshot(raw.Data)
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &domain.Payload{Data: *snap, Timestamp: raw.Timestamp, DeviceID: raw.DeviceID}, nil
}
