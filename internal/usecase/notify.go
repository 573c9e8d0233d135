package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"TurtleDesk/internal/domain/models"
	domrepo "TurtleDesk/internal/domain/repository"
	domsvc "TurtleDesk/internal/domain/service"
	applogger "TurtleDesk/pkg/logger"
	"TurtleDesk/pkg/queue"
)

// JobSignalNotify is the queue message type for notification jobs.
const JobSignalNotify = "signal.notify"

// NotifyUseCase delivers a result and flags its alert as sent.
type NotifyUseCase struct {
	notifier domsvc.Notifier
	alerts   domrepo.AlertRepository
	l        *applogger.Logger
}

func NewNotifyUseCase(notifier domsvc.Notifier, alerts domrepo.AlertRepository, l *applogger.Logger) *NotifyUseCase {
	return &NotifyUseCase{notifier: notifier, alerts: alerts, l: l}
}

// Process satisfies the signal pipeline processor.
func (uc *NotifyUseCase) Process(ctx context.Context, r *models.AnalysisResult) error {
	if err := uc.notifier.Notify(ctx, r); err != nil {
		return fmt.Errorf("notify %s: %w", r.Symbol, err)
	}
	if r.AlertID == 0 {
		return nil
	}
	if err := uc.alerts.MarkSent(ctx, r.AlertID); err != nil {
		// delivery succeeded, so the job must not be retried
		uc.l.Error("alert not marked sent", applogger.Uint("alert_id", r.AlertID), applogger.Error(err))
	}
	return nil
}

// Type and Handle make NotifyUseCase a queue job.
func (uc *NotifyUseCase) Type() string { return JobSignalNotify }

func (uc *NotifyUseCase) Handle(ctx context.Context, payload json.RawMessage) error {
	p, err := queue.Decode[models.NotifyPayload](payload)
	if err != nil {
		return err
	}
	p.Result.AlertID = p.AlertID
	return uc.Process(ctx, &p.Result)
}

// QueueDispatcher hands notifications to the redis job queue.
type QueueDispatcher struct {
	pub queue.Publisher
}

func NewQueueDispatcher(pub queue.Publisher) *QueueDispatcher {
	return &QueueDispatcher{pub: pub}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, r *models.AnalysisResult) error {
	if !r.Signal.Actionable() {
		return nil
	}
	return d.pub.Enqueue(ctx, JobSignalNotify, models.NotifyPayload{AlertID: r.AlertID, Result: *r})
}

var (
	_ queue.Job         = (*NotifyUseCase)(nil)
	_ domsvc.Dispatcher = (*QueueDispatcher)(nil)
)
