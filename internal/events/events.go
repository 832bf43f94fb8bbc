package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const (
	ComplaintCreated    = "complaint.created"
	ComplaintAssigned   = "complaint.assigned"
	ComplaintReassigned = "complaint.reassigned"
	ComplaintResolved   = "complaint.resolved"
	CallbackScheduled   = "callback.scheduled"
	CallbackCompleted   = "callback.completed"
)

type Event struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	ComplaintID string         `json:"complaint_id"`
	Data        map[string]any `json:"data,omitempty"`
	Time        time.Time      `json:"time"`
}

func New(eventType, complaintID string, data map[string]any) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		ComplaintID: complaintID,
		Data:        data,
		Time:        time.Now().UTC(),
	}
}

// Publisher emits triage lifecycle events. Callers treat failures as
// log-only; no operation is rolled back because an event was lost.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

// KafkaPublisher writes events keyed by complaint id so a complaint's events
// stay ordered within a partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.ComplaintID),
		Value: data,
		Time:  e.Time,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Recorder keeps published events in memory; used by tests.
type Recorder struct {
	mu     sync.Mutex
	Events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, e)
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.Events))
	for _, e := range r.Events {
		out = append(out, e.Type)
	}
	return out
}
