package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"TurtleDesk/internal/domain/models"
	domrepo "TurtleDesk/internal/domain/repository"
	pkgkafka "TurtleDesk/pkg/kafka"
)

// SignalEventProcessor routes signal events to the configured backend.
type SignalEventProcessor struct {
	pub     domrepo.EventPublisher
	metrics domrepo.Metrics
}

func NewSignalEventProcessor(pub domrepo.EventPublisher, metrics domrepo.Metrics) *SignalEventProcessor {
	return &SignalEventProcessor{pub: pub, metrics: metrics}
}

// Process publishes one event.
func (p *SignalEventProcessor) Process(ctx context.Context, ev models.SignalEvent) error {
	if ev.Symbol == "" {
		return fmt.Errorf("event symbol empty")
	}
	if p.pub.Backend() == "none" {
		return nil
	}
	start := time.Now()
	if err := p.pub.Publish(ctx, ev); err != nil {
		p.metrics.RecordError("event_publish")
		return fmt.Errorf("publish event: %w", err)
	}
	p.metrics.RecordEventSent(p.pub.Backend())
	p.metrics.RecordLatency("event_publish", time.Since(start).Seconds())
	return nil
}

// KafkaSignalsHandler consumes signal events and writes them to the event store.
type KafkaSignalsHandler struct {
	topic   string
	store   domrepo.EventStore
	metrics domrepo.Metrics
}

func NewKafkaSignalsHandler(topic string, store domrepo.EventStore, metrics domrepo.Metrics) *KafkaSignalsHandler {
	return &KafkaSignalsHandler{topic: topic, store: store, metrics: metrics}
}

func (h *KafkaSignalsHandler) Topic() string { return h.topic }

func (h *KafkaSignalsHandler) Handle(ctx context.Context, b []byte) error {
	var ev models.SignalEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if ev.Symbol == "" {
		h.metrics.RecordError("consumer_invalid")
		return fmt.Errorf("signal event without symbol")
	}
	if !ev.At.IsZero() {
		h.metrics.RecordLatency("event_e2e", time.Since(ev.At).Seconds())
	}

	start := time.Now()
	err := h.store.Store(ctx, ev)
	h.metrics.RecordLatency("ch_insert", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordEventSent("clickhouse")
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaSignalsHandler)(nil)

// EventsUseCase reads stored signal events.
type EventsUseCase struct {
	store domrepo.EventStore
}

// NewEventsUseCase accepts a nil store when ClickHouse is disabled.
func NewEventsUseCase(store domrepo.EventStore) *EventsUseCase {
	return &EventsUseCase{store: store}
}

func (uc *EventsUseCase) Enabled() bool { return uc.store != nil }

func (uc *EventsUseCase) Query(ctx context.Context, q models.EventQuery) ([]models.SignalEvent, error) {
	if uc.store == nil {
		return nil, models.ErrEventsDisabled
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.From.After(q.To) {
		return nil, fmt.Errorf("%w: from must be <= to", models.ErrInvalidRequest)
	}
	if q.Limit <= 0 {
		q.Limit = 100
	}
	return uc.store.Query(ctx, q)
}
