package repository

import (
	"context"

	"TurtleDesk/internal/domain/models"
	domrepo "TurtleDesk/internal/domain/repository"
	pkgkafka "TurtleDesk/pkg/kafka"
)

// KafkaEventPublisher writes signal events to a topic keyed by symbol.
type KafkaEventPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaEventPublisher(producer *pkgkafka.Producer, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, ev models.SignalEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.Symbol), ev)
}

func (p *KafkaEventPublisher) Backend() string { return "kafka" }

// StoreEventPublisher writes events straight into an EventStore.
type StoreEventPublisher struct {
	store domrepo.EventStore
}

func NewStoreEventPublisher(store domrepo.EventStore) *StoreEventPublisher {
	return &StoreEventPublisher{store: store}
}

func (p *StoreEventPublisher) Publish(ctx context.Context, ev models.SignalEvent) error {
	return p.store.Store(ctx, ev)
}

func (p *StoreEventPublisher) Backend() string { return "clickhouse" }

// NopEventPublisher drops events.
type NopEventPublisher struct{}

func (NopEventPublisher) Publish(context.Context, models.SignalEvent) error { return nil }

func (NopEventPublisher) Backend() string { return "none" }
