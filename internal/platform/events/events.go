// Package events carries domain events out of the lab workflow once the
// owning transaction has committed. Events are delivered over AMQP when a
// broker is configured and dropped otherwise.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ---------------------------------------------------------------------------
// Event types
// ---------------------------------------------------------------------------

const (
	ReportCreated   = "report.created"
	ReportCompleted = "report.completed"
	ReportReviewed  = "report.reviewed"
	BillCreated     = "bill.created"
	PaymentRecorded = "payment.recorded"
)

// Event is the JSON envelope written to the queue.
type Event struct {
	Type       string          `json:"type"`
	EntityID   uuid.UUID       `json:"entity_id"`
	PatientID  uuid.UUID       `json:"patient_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// New builds an event stamped with the current time. data is marshalled to
// JSON; a value that cannot be marshalled is left out.
func New(typ string, entityID, patientID uuid.UUID, data interface{}) Event {
	ev := Event{
		Type:       typ,
		EntityID:   entityID,
		PatientID:  patientID,
		OccurredAt: time.Now().UTC(),
	}
	if data != nil {
		if raw, err := json.Marshal(data); err == nil {
			ev.Data = raw
		}
	}
	return ev
}

// ---------------------------------------------------------------------------
// Publishers
// ---------------------------------------------------------------------------

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Noop discards every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

// Memory keeps published events in order. Safe for concurrent use.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Publish(_ context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

// Events returns a copy of everything published so far.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Types returns the type of each published event, in order.
func (m *Memory) Types() []string {
	var types []string
	for _, ev := range m.Events() {
		types = append(types, ev.Type)
	}
	return types
}

// Emit publishes ev and logs a failure instead of returning it. Callers use it
// after commit, where a broker outage must not undo the committed change.
func Emit(ctx context.Context, p Publisher, logger zerolog.Logger, ev Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, ev); err != nil {
		logger.Warn().Err(err).
			Str("event", ev.Type).
			Str("entity_id", ev.EntityID.String()).
			Msg("event publish failed")
	}
}
