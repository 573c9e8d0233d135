package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"TurtleDesk/internal/domain/models"
	applogger "TurtleDesk/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type nopMetrics struct{}

func (nopMetrics) RecordAnalysis(string)           {}
func (nopMetrics) RecordEventSent(string)          {}
func (nopMetrics) RecordNotification(string, bool) {}
func (nopMetrics) RecordError(string)              {}
func (nopMetrics) RecordLastPrice(string, float64) {}
func (nopMetrics) RecordLatency(string, float64)   {}

type recorder struct {
	mu   sync.Mutex
	got  []string
	fail int
}

func (r *recorder) Process(_ context.Context, res *models.AnalysisResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail > 0 {
		r.fail--
		return errors.New("down")
	}
	r.got = append(r.got, res.Symbol+":"+string(res.Signal))
	return nil
}

func (r *recorder) delivered() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.got...)
}

func result(sym string, sig models.Signal) *models.AnalysisResult {
	return &models.AnalysisResult{Symbol: sym, Signal: sig, CurrentPrice: 10}
}

func TestPipelineCooldownAndHoldFilter(t *testing.T) {
	rec := &recorder{}
	p := NewSignalPipeline(rec, nopMetrics{}, applogger.Nop(), WithCooldown(time.Hour))
	p.Start(context.Background())

	ctx := context.Background()
	require.NoError(t, p.Dispatch(ctx, result("AAPL", models.SignalBuy)))
	require.NoError(t, p.Dispatch(ctx, result("AAPL", models.SignalBuy)))
	require.NoError(t, p.Dispatch(ctx, result("AAPL", models.SignalHold)))
	require.NoError(t, p.Dispatch(ctx, result("AAPL", models.SignalSell)))
	p.Stop(context.Background())

	assert.Equal(t, []string{"AAPL:BUY", "AAPL:SELL"}, rec.delivered())
}

func TestPipelineRetriesDelivery(t *testing.T) {
	rec := &recorder{fail: 1}
	p := NewSignalPipeline(rec, nopMetrics{}, applogger.Nop(), WithRetries(2))
	p.Start(context.Background())

	require.NoError(t, p.Dispatch(context.Background(), result("TSLA", models.SignalSell)))
	p.Stop(context.Background())

	assert.Equal(t, []string{"TSLA:SELL"}, rec.delivered())
}

func TestPipelineBufferFull(t *testing.T) {
	p := NewSignalPipeline(&recorder{}, nopMetrics{}, applogger.Nop(), WithBufferSize(1), WithCooldown(0))

	require.NoError(t, p.Dispatch(context.Background(), result("A", models.SignalBuy)))
	assert.ErrorIs(t, p.Dispatch(context.Background(), result("B", models.SignalBuy)), ErrBufferFull)
}

func TestPipelineRejectsInvalid(t *testing.T) {
	p := NewSignalPipeline(&recorder{}, nopMetrics{}, applogger.Nop())
	assert.Error(t, p.Dispatch(context.Background(), nil))
	assert.Error(t, p.Dispatch(context.Background(), &models.AnalysisResult{Signal: models.SignalBuy}))
}

func TestPipelineDeliversBufferedAfterRunContextEnds(t *testing.T) {
	rec := &recorder{}
	p := NewSignalPipeline(rec, nopMetrics{}, applogger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	cancel()

	require.NoError(t, p.Dispatch(context.Background(), result("AAPL", models.SignalBuy)))
	p.Stop(context.Background())

	assert.Equal(t, []string{"AAPL:BUY"}, rec.delivered())
}

type ctxChecker struct{ errs []error }

func (c *ctxChecker) Process(ctx context.Context, _ *models.AnalysisResult) error {
	c.errs = append(c.errs, ctx.Err())
	return nil
}

func TestPipelineDrainUsesStopContext(t *testing.T) {
	chk := &ctxChecker{}
	p := NewSignalPipeline(chk, nopMetrics{}, applogger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	require.NoError(t, p.Dispatch(ctx, result("TSLA", models.SignalSell)))
	cancel()
	p.Stop(context.Background())

	require.Len(t, chk.errs, 1)
	assert.NoError(t, chk.errs[0])
}
