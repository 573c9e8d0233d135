package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// ConsumerHook observes each handling attempt.
type ConsumerHook interface {
	BeforeHandle(ctx context.Context, km kafka.Message) context.Context
	AfterHandle(ctx context.Context, km kafka.Message, attempt int, err error)
}

// NoopHook does nothing.
type NoopHook struct{}

func (NoopHook) BeforeHandle(ctx context.Context, _ kafka.Message) context.Context { return ctx }
func (NoopHook) AfterHandle(context.Context, kafka.Message, int, error)            {}

// HookFuncs adapts optional functions to ConsumerHook.
type HookFuncs struct {
	Before func(ctx context.Context, km kafka.Message) context.Context
	After  func(ctx context.Context, km kafka.Message, attempt int, err error)
}

func (h HookFuncs) BeforeHandle(ctx context.Context, km kafka.Message) context.Context {
	if h.Before == nil {
		return ctx
	}
	return h.Before(ctx, km)
}

func (h HookFuncs) AfterHandle(ctx context.Context, km kafka.Message, attempt int, err error) {
	if h.After != nil {
		h.After(ctx, km, attempt, err)
	}
}
