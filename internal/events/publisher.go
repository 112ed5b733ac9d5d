// Package events publishes domain events to the event topic.
package events

import (
	"context"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/logging"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/prometheus"
	"github.com/goccy/go-json"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

const (
	TypeCallRegistered      = "call.registered"
	TypeEnquiryTransitioned = "enquiry.transitioned"
	TypeLeadsImported       = "leads.imported"
	TypeLeadCaptured        = "lead.captured"
)

type Event struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Key        string    `json:"-"`
	Payload    any       `json:"payload"`
}

func New(eventType, key string, payload any) Event {
	return Event{Type: eventType, OccurredAt: time.Now().UTC(), Key: key, Payload: payload}
}

// Publisher delivers events without blocking the caller. Delivery failures
// are logged and dropped.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

type Sender interface {
	SendMessage(topic string, key, value []byte) (int32, int64, error)
}

// Nop discards every event; used when Kafka is disabled.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}

// KafkaPublisher hands events to an ants pool that sends them to Kafka.
type KafkaPublisher struct {
	Sender Sender
	Topic  string
	Pool   *ants.Pool
}

func NewKafkaPublisher(sender Sender, topic string, poolSize int) (*KafkaPublisher, error) {
	pool, err := ants.NewPool(poolSize, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}

	return &KafkaPublisher{Sender: sender, Topic: topic, Pool: pool}, nil
}

func (p *KafkaPublisher) Publish(_ context.Context, event Event) {
	value, err := json.Marshal(event)
	if err != nil {
		logging.Logger.Error("[PublishEvent] Failed to marshal event",
			zap.String("type", event.Type),
			zap.String("error", err.Error()),
		)

		return
	}

	err = p.Pool.Submit(func() {
		p.send(event, value)
	})
	if err != nil {
		prometheus.EventsPublished.WithLabelValues(event.Type, "dropped").Inc()
		logging.Logger.Warn("[PublishEvent] Event pool is full, dropping event",
			zap.String("type", event.Type),
			zap.String("key", event.Key),
			zap.String("error", err.Error()),
		)
	}
}

func (p *KafkaPublisher) send(event Event, value []byte) {
	_, _, err := p.Sender.SendMessage(p.Topic, []byte(event.Key), value)
	if err != nil {
		prometheus.EventsPublished.WithLabelValues(event.Type, "failed").Inc()
		logging.Logger.Error("[PublishEvent] Failed to send event",
			zap.String("type", event.Type),
			zap.String("key", event.Key),
			zap.String("error", err.Error()),
		)

		return
	}

	prometheus.EventsPublished.WithLabelValues(event.Type, "sent").Inc()
}

// Close waits for queued events to be sent.
func (p *KafkaPublisher) Close(timeout time.Duration) {
	err := p.Pool.ReleaseTimeout(timeout)
	if err != nil {
		logging.Logger.Warn("[PublishEvent] Event pool did not drain in time", zap.String("error", err.Error()))
	}
}
