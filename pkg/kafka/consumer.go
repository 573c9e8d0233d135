package kafka

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// MessageHandler handles messages from a specific topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// fetcher is the subset of *kafka.Reader the consumer uses.
type fetcher interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type consumerSettings struct {
	brokers    []string
	groupID    string
	retryMax   int
	backoffMin time.Duration
	backoffMax time.Duration
	dlqTopic   string
}

// ConsumerOption configures Consumer.
type ConsumerOption func(*consumerSettings)

func WithConsumerBrokers(brokers []string) ConsumerOption {
	return func(s *consumerSettings) { s.brokers = brokers }
}

func WithConsumerGroupID(groupID string) ConsumerOption {
	return func(s *consumerSettings) {
		if groupID != "" {
			s.groupID = groupID
		}
	}
}

// WithConsumerRetry sets how often a failed message is retried and the backoff range between attempts.
func WithConsumerRetry(max int, backoffMin, backoffMax time.Duration) ConsumerOption {
	return func(s *consumerSettings) {
		s.retryMax = max
		s.backoffMin = backoffMin
		s.backoffMax = backoffMax
	}
}

// WithConsumerDLQ routes messages that exhaust their retries to topic.
func WithConsumerDLQ(topic string) ConsumerOption {
	return func(s *consumerSettings) { s.dlqTopic = topic }
}

// Consumer reads each registered topic in its own goroutine. Messages are
// handled in partition order, retried with jittered backoff, then sent to the
// DLQ (if configured) and committed.
type Consumer struct {
	cfg      *consumerSettings
	handlers map[string]MessageHandler
	readers  map[string]fetcher
	dlq      *kafka.Writer
	hook     ConsumerHook

	newReader func(topic string) fetcher

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewConsumer creates a new Kafka consumer.
func NewConsumer(opts ...ConsumerOption) (*Consumer, error) {
	cfg := &consumerSettings{
		groupID:    "turtledesk",
		retryMax:   3,
		backoffMin: 200 * time.Millisecond,
		backoffMax: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}

	c := &Consumer{
		cfg:      cfg,
		handlers: make(map[string]MessageHandler),
		readers:  make(map[string]fetcher),
		hook:     NoopHook{},
	}
	c.newReader = func(topic string) fetcher {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers: cfg.brokers,
			Topic:   topic,
			GroupID: cfg.groupID,
		})
	}
	if cfg.dlqTopic != "" {
		c.dlq = &kafka.Writer{Addr: kafka.TCP(cfg.brokers...), AllowAutoTopicCreation: true}
	}
	return c, nil
}

// RegisterHandler registers a handler for its topic. Later registrations for the same topic are ignored.
func (c *Consumer) RegisterHandler(h MessageHandler) {
	if _, ok := c.handlers[h.Topic()]; !ok {
		c.handlers[h.Topic()] = h
	}
}

// WithConsumerHook sets a hook implementation for lifecycle events.
func (c *Consumer) WithConsumerHook(h ConsumerHook) {
	if h != nil {
		c.hook = h
	}
}

// Start spawns one reader loop per registered topic.
func (c *Consumer) Start() error {
	if len(c.handlers) == 0 {
		return fmt.Errorf("no handlers registered")
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	for topic, h := range c.handlers {
		r := c.newReader(topic)
		c.readers[topic] = r
		c.wg.Add(1)
		go c.consume(ctx, r, h)
	}
	return nil
}

// Stop cancels reader loops, waits for them and closes readers.
func (c *Consumer) Stop(ctx context.Context) error {
	var stopErr error
	c.stopOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}

		done := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			stopErr = fmt.Errorf("timeout waiting for consumer to stop: %w", ctx.Err())
		}

		for _, r := range c.readers {
			_ = r.Close()
		}
		if c.dlq != nil {
			_ = c.dlq.Close()
		}
	})
	return stopErr
}

func (c *Consumer) consume(ctx context.Context, r fetcher, h MessageHandler) {
	defer c.wg.Done()

	for {
		km, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			if !sleepCtx(ctx, c.cfg.backoffMin) {
				return
			}
			continue
		}

		herr := c.handle(ctx, h, km)
		if herr != nil && ctx.Err() != nil {
			// shutting down mid-retry: leave uncommitted for redelivery
			return
		}
		if herr != nil && c.dlq != nil {
			_ = c.dlq.WriteMessages(context.Background(), kafka.Message{
				Topic:   c.cfg.dlqTopic,
				Key:     km.Key,
				Value:   km.Value,
				Headers: []kafka.Header{{Key: "source_topic", Value: []byte(h.Topic())}, {Key: "error", Value: []byte(herr.Error())}},
			})
		}
		commitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = r.CommitMessages(commitCtx, km)
		cancel()
	}
}

func (c *Consumer) handle(ctx context.Context, h MessageHandler, km kafka.Message) (err error) {
	for attempt := 1; ; attempt++ {
		hctx := c.hook.BeforeHandle(ctx, km)
		err = safeHandle(hctx, h, km.Value)
		c.hook.AfterHandle(hctx, km, attempt, err)
		if err == nil || attempt > c.cfg.retryMax {
			return err
		}
		if !sleepCtx(ctx, backoffWithJitter(c.cfg.backoffMin, c.cfg.backoffMax, attempt)) {
			return err
		}
	}
}

func safeHandle(ctx context.Context, h MessageHandler, data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.Handle(ctx, data)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	if attempt < 1 {
		attempt = 1
	}
	exp := max
	if attempt < 31 {
		if e := min * time.Duration(1<<uint(attempt-1)); e > 0 && e < max {
			exp = e
		}
	}
	// up to 50% jitter
	if half := int64(exp) / 2; half > 0 {
		exp -= time.Duration(rand.Int63n(half))
	}
	return exp
}
