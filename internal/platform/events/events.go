// Package events publishes resource change notifications. Publishing is best
// effort: callers log a failure and carry on.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Event describes one committed change to a resource.
type Event struct {
	ID           string    `json:"id"`
	ResourceType string    `json:"resourceType"`
	ResourceID   string    `json:"resourceId"`
	Action       string    `json:"action"`
	Outcome      string    `json:"outcome,omitempty"`
	OccurredAt   time.Time `json:"occurredAt"`
}

// NewEvent stamps a fresh event id and time.
func NewEvent(resourceType, resourceID, action string) Event {
	return Event{
		ID:           uuid.New().String(),
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Action:       action,
		OccurredAt:   time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Emit publishes evt on pub and logs a failure instead of returning it.
func Emit(ctx context.Context, pub Publisher, log zerolog.Logger, evt Event) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, evt); err != nil {
		log.Warn().Err(err).
			Str("subject", ResourceSubject(evt.ResourceType, evt.Action)).
			Str("resource_id", evt.ResourceID).
			Msg("failed to publish resource event")
	}
}

// NATSPublisher publishes events as JSON on core NATS. The event id travels
// in the Nats-Msg-Id header so JetStream consumers can dedupe.
type NATSPublisher struct {
	nc *nats.Conn
}

// ConnectNATS dials url with reconnects enabled.
func ConnectNATS(url string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("practice-server"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &NATSPublisher{nc: nc}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, evt Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := nats.NewMsg(ResourceSubject(evt.ResourceType, evt.Action))
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, evt.ID)
	if err := p.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Subject, err)
	}
	return nil
}

// Close drains pending messages before closing the connection.
func (p *NATSPublisher) Close() error {
	return p.nc.Drain()
}

type nopPublisher struct{}

// Nop discards every event.
func Nop() Publisher { return nopPublisher{} }

func (nopPublisher) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, evt Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
