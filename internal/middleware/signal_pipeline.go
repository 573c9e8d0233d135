package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"TurtleDesk/internal/domain/models"
	domrepo "TurtleDesk/internal/domain/repository"
	applogger "TurtleDesk/pkg/logger"
)

var ErrBufferFull = errors.New("signal pipeline buffer full")

// Proc is the minimal processor interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, r *models.AnalysisResult) error
}

// ProcFunc adapts a function to Proc.
type ProcFunc func(ctx context.Context, r *models.AnalysisResult) error

func (f ProcFunc) Process(ctx context.Context, r *models.AnalysisResult) error { return f(ctx, r) }

// SignalPipeline sits between analysis and notification delivery.
// It validates, suppresses repeats of the same symbol and signal within the cooldown,
// and buffers accepted results for a background worker.
type SignalPipeline struct {
	proc     Proc
	metrics  domrepo.Metrics
	l        *applogger.Logger
	cooldown time.Duration
	retries  int
	bufSize  int
	bufCh    chan *models.AnalysisResult
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopCtx  context.Context
	started  bool
	mu       sync.Mutex
	lastSent map[string]time.Time // symbol|signal -> last accepted time
	now      func() time.Time
}

type PipelineOption func(*SignalPipeline)

// WithCooldown sets how long a repeated symbol/signal pair is suppressed.
func WithCooldown(d time.Duration) PipelineOption {
	return func(p *SignalPipeline) {
		if d >= 0 {
			p.cooldown = d
		}
	}
}

// WithBufferSize sets the number of results waiting for delivery.
func WithBufferSize(n int) PipelineOption {
	return func(p *SignalPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithRetries sets delivery attempts per result.
func WithRetries(n int) PipelineOption {
	return func(p *SignalPipeline) {
		if n > 0 {
			p.retries = n
		}
	}
}

func NewSignalPipeline(proc Proc, metrics domrepo.Metrics, l *applogger.Logger, opts ...PipelineOption) *SignalPipeline {
	p := &SignalPipeline{
		proc:     proc,
		metrics:  metrics,
		l:        l,
		cooldown: time.Hour,
		retries:  3,
		bufSize:  64,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		lastSent: make(map[string]time.Time),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.AnalysisResult, p.bufSize)
	return p
}

// Start launches the delivery worker. Deliveries keep ctx's values but not its
// cancellation, so results buffered when ctx ends are still handed to Stop.
func (p *SignalPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	base := context.WithoutCancel(ctx)
	go func() {
		defer close(p.doneCh)
		for {
			select {
			case <-p.stopCh:
				p.drain(p.stopCtx)
				return
			case r := <-p.bufCh:
				p.deliver(base, r)
			}
		}
	}()
}

// Stop delivers what is already buffered using ctx, then stops the worker.
func (p *SignalPipeline) Stop(ctx context.Context) {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.stopCtx = ctx
	p.mu.Unlock()
	close(p.stopCh)
	<-p.doneCh
}

// Dispatch accepts an actionable result for asynchronous delivery.
func (p *SignalPipeline) Dispatch(_ context.Context, r *models.AnalysisResult) error {
	if err := validateResult(r); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !r.Signal.Actionable() {
		return nil
	}
	if !p.allow(r) {
		p.metrics.RecordError("pipeline_cooldown")
		p.l.Debug("signal suppressed by cooldown",
			applogger.String("symbol", r.Symbol),
			applogger.String("signal", string(r.Signal)))
		return nil
	}

	select {
	case p.bufCh <- r:
		p.metrics.RecordLatency("pipeline_buffer_depth", float64(len(p.bufCh)))
		return nil
	default:
		p.metrics.RecordError("pipeline_buffer_full")
		p.forget(r)
		return ErrBufferFull
	}
}

func (p *SignalPipeline) deliver(ctx context.Context, r *models.AnalysisResult) {
	start := p.now()
	backoff := 50 * time.Millisecond
	for attempt := 1; attempt <= p.retries; attempt++ {
		err := p.proc.Process(ctx, r)
		if err == nil {
			p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
			return
		}
		p.metrics.RecordError("pipeline_process")
		p.l.Warn("signal delivery failed",
			applogger.String("symbol", r.Symbol),
			applogger.Int("attempt", attempt),
			applogger.Error(err))
		if attempt == p.retries {
			break
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
		if backoff < 2*time.Second {
			backoff *= 2
		}
	}
	p.metrics.RecordError("pipeline_drop")
	p.forget(r)
}

func (p *SignalPipeline) drain(ctx context.Context) {
	for {
		select {
		case r := <-p.bufCh:
			p.deliver(ctx, r)
		default:
			return
		}
	}
}

func validateResult(r *models.AnalysisResult) error {
	if r == nil {
		return fmt.Errorf("result nil")
	}
	if r.Symbol == "" {
		return fmt.Errorf("symbol empty")
	}
	if r.CurrentPrice < 0 {
		return fmt.Errorf("negative price")
	}
	return nil
}

func cooldownKey(r *models.AnalysisResult) string { return r.Symbol + "|" + string(r.Signal) }

func (p *SignalPipeline) allow(r *models.AnalysisResult) bool {
	if p.cooldown <= 0 {
		return true
	}
	now := p.now()
	key := cooldownKey(r)

	p.mu.Lock()
	defer p.mu.Unlock()
	if last, ok := p.lastSent[key]; ok && now.Sub(last) < p.cooldown {
		return false
	}
	p.lastSent[key] = now
	return true
}

// forget clears the cooldown so an undelivered signal can be retried by the next analysis.
func (p *SignalPipeline) forget(r *models.AnalysisResult) {
	p.mu.Lock()
	delete(p.lastSent, cooldownKey(r))
	p.mu.Unlock()
}
