package service

import (
	"context"

	"TurtleDesk/internal/domain/models"
)

// Analyzer runs one Turtle analysis. Implemented in-process and by the remote client.
type Analyzer interface {
	Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error)
}

// Notifier delivers a signal over one channel.
type Notifier interface {
	Channel() string
	Notify(ctx context.Context, r *models.AnalysisResult) error
}

// Dispatcher hands an actionable result off for notification.
type Dispatcher interface {
	Dispatch(ctx context.Context, r *models.AnalysisResult) error
}

// Broadcaster pushes results to live subscribers.
type Broadcaster interface {
	Broadcast(r *models.AnalysisResult)
}
