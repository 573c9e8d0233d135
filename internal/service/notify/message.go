// Package notify delivers BUY and SELL signals over email and Telegram.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"TurtleDesk/internal/domain/models"
	domrepo "TurtleDesk/internal/domain/repository"
	"TurtleDesk/internal/domain/service"
	applogger "TurtleDesk/pkg/logger"
)

var signalAction = map[models.Signal]string{
	models.SignalBuy:  "Buy",
	models.SignalSell: "Sell",
	models.SignalHold: "Hold",
}

// Subject is shared by every channel.
func Subject(r *models.AnalysisResult) string {
	return fmt.Sprintf("Turtle alert: %s %s signal", r.Symbol, strings.ToUpper(signalAction[r.Signal]))
}

// Body is the plain text alert.
func Body(r *models.AnalysisResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Turtle Trading alert\n\n")
	fmt.Fprintf(&b, "Symbol:        %s\n", r.Symbol)
	fmt.Fprintf(&b, "Current price: $%.2f\n", r.CurrentPrice)
	fmt.Fprintf(&b, "Entry (high):  $%.2f\n", r.EntryPrice)
	fmt.Fprintf(&b, "Exit (low):    $%.2f\n", r.ExitPrice)
	fmt.Fprintf(&b, "Signal:        %s (%s)\n", r.Signal, signalAction[r.Signal])
	if r.Recommendation != "" {
		fmt.Fprintf(&b, "\n%s\n", r.Recommendation)
	}
	fmt.Fprintf(&b, "\nAnalyzed at %s\n", r.Timestamp.UTC().Format(time.RFC1123))
	b.WriteString("\nThis alert is based on technical analysis only and is not investment advice.\n")
	return b.String()
}

// Multi fans a signal out to every channel.
// It succeeds when at least one channel delivered.
type Multi struct {
	notifiers []service.Notifier
	metrics   domrepo.Metrics
	l         *applogger.Logger
}

func NewMulti(l *applogger.Logger, metrics domrepo.Metrics, notifiers ...service.Notifier) *Multi {
	return &Multi{notifiers: notifiers, metrics: metrics, l: l}
}

var ErrNoChannels = errors.New("no notification channel configured")

func (m *Multi) Channel() string { return "multi" }

func (m *Multi) Enabled() bool { return len(m.notifiers) > 0 }

func (m *Multi) Notify(ctx context.Context, r *models.AnalysisResult) error {
	if len(m.notifiers) == 0 {
		return ErrNoChannels
	}
	var (
		errs []error
		ok   bool
	)
	for _, n := range m.notifiers {
		err := n.Notify(ctx, r)
		m.metrics.RecordNotification(n.Channel(), err == nil)
		if err != nil {
			m.l.Warn("notification failed",
				applogger.String("channel", n.Channel()),
				applogger.String("symbol", r.Symbol),
				applogger.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", n.Channel(), err))
			continue
		}
		ok = true
	}
	if ok {
		return nil
	}
	return errors.Join(errs...)
}
