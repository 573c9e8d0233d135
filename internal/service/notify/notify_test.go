package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"TurtleDesk/internal/domain/models"
	applogger "TurtleDesk/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
	tb "gopkg.in/tucnak/telebot.v2"
)

func buyResult() *models.AnalysisResult {
	return &models.AnalysisResult{
		Symbol:         "AAPL",
		Signal:         models.SignalBuy,
		CurrentPrice:   120,
		EntryPrice:     118.5,
		ExitPrice:      101.25,
		Timestamp:      time.Date(2024, 10, 13, 15, 30, 0, 0, time.UTC),
		Recommendation: "Breakout above 20-day high: consider entering a long position",
	}
}

func TestBody(t *testing.T) {
	b := Body(buyResult())
	assert.Contains(t, b, "Symbol:        AAPL")
	assert.Contains(t, b, "Current price: $120.00")
	assert.Contains(t, b, "Exit (low):    $101.25")
	assert.Contains(t, b, "BUY (Buy)")
	assert.Equal(t, "Turtle alert: AAPL BUY signal", Subject(buyResult()))
}

type fakeMailer struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeMailer) DialAndSend(m ...*gomail.Message) error {
	f.sent = append(f.sent, m...)
	return f.err
}

func TestEmailNotify(t *testing.T) {
	fm := &fakeMailer{}
	e := &Email{sender: fm, from: "bot@example.com", to: []string{"trader@example.com"}}

	require.NoError(t, e.Notify(context.Background(), buyResult()))
	require.Len(t, fm.sent, 1)
	assert.Equal(t, []string{"trader@example.com"}, fm.sent[0].GetHeader("To"))
	assert.Equal(t, []string{"Turtle alert: AAPL BUY signal"}, fm.sent[0].GetHeader("Subject"))
}

type fakeBot struct {
	to   tb.Recipient
	text string
}

func (f *fakeBot) Send(to tb.Recipient, what interface{}, _ ...interface{}) (*tb.Message, error) {
	f.to = to
	f.text, _ = what.(string)
	return &tb.Message{}, nil
}

func TestTelegramNotify(t *testing.T) {
	fb := &fakeBot{}
	tg := &Telegram{bot: fb, chat: &tb.Chat{ID: 42}}

	require.NoError(t, tg.Notify(context.Background(), buyResult()))
	assert.Equal(t, "42", fb.to.Recipient())
	assert.Contains(t, fb.text, "AAPL")
}

type stubNotifier struct {
	name  string
	err   error
	calls int
}

func (s *stubNotifier) Channel() string { return s.name }

func (s *stubNotifier) Notify(context.Context, *models.AnalysisResult) error {
	s.calls++
	return s.err
}

type nopMetrics struct{}

func (nopMetrics) RecordAnalysis(string)           {}
func (nopMetrics) RecordEventSent(string)          {}
func (nopMetrics) RecordNotification(string, bool) {}
func (nopMetrics) RecordError(string)              {}
func (nopMetrics) RecordLastPrice(string, float64) {}
func (nopMetrics) RecordLatency(string, float64)   {}

func TestMultiSucceedsWhenAnyChannelDelivers(t *testing.T) {
	bad := &stubNotifier{name: "email", err: errors.New("smtp down")}
	good := &stubNotifier{name: "telegram"}
	m := NewMulti(applogger.Nop(), nopMetrics{}, bad, good)

	require.NoError(t, m.Notify(context.Background(), buyResult()))
	assert.Equal(t, 1, bad.calls)
	assert.Equal(t, 1, good.calls)
}

func TestMultiFailsWhenAllChannelsFail(t *testing.T) {
	m := NewMulti(applogger.Nop(), nopMetrics{},
		&stubNotifier{name: "email", err: errors.New("smtp down")},
		&stubNotifier{name: "telegram", err: errors.New("forbidden")})

	err := m.Notify(context.Background(), buyResult())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
	assert.Contains(t, err.Error(), "forbidden")

	assert.ErrorIs(t, NewMulti(applogger.Nop(), nopMetrics{}).Notify(context.Background(), buyResult()), ErrNoChannels)
}
