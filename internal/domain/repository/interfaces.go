package repository

import (
	"context"
	"time"

	"TurtleDesk/internal/domain/models"
)

// MarketData loads price history from a market provider.
type MarketData interface {
	Name() string
	History(ctx context.Context, symbol, period, interval string) ([]models.Candle, error)
}

type StockRepository interface {
	// Upsert creates the stock or refreshes its price and reactivates it.
	Upsert(ctx context.Context, symbol string, price float64, at time.Time) (*models.Stock, error)
	Get(ctx context.Context, symbol string) (*models.Stock, error)
	List(ctx context.Context, activeOnly bool) ([]models.Stock, error)
	Deactivate(ctx context.Context, symbol string) (*models.Stock, error)
	Count(ctx context.Context, activeOnly bool) (int64, error)
}

type AlertRepository interface {
	Create(ctx context.Context, a *models.AlertHistory) error
	// Recent returns newest-first alerts; empty symbol means all symbols.
	Recent(ctx context.Context, symbol string, limit int) ([]models.AlertHistory, error)
	MarkSent(ctx context.Context, id uint) error
	CountBySignal(ctx context.Context) (map[models.Signal]int64, error)
	Count(ctx context.Context) (int64, error)
}

// Store wraps the relational store so the analysis write is atomic.
type Store interface {
	Stocks() StockRepository
	Alerts() AlertRepository
	Transaction(ctx context.Context, fn func(Store) error) error
	Ping(ctx context.Context) error
}

type EventPublisher interface {
	Publish(ctx context.Context, ev models.SignalEvent) error
	Backend() string
}

type EventStore interface {
	Init(ctx context.Context) error
	Store(ctx context.Context, ev models.SignalEvent) error
	StoreBatch(ctx context.Context, evs []models.SignalEvent) error
	Query(ctx context.Context, q models.EventQuery) ([]models.SignalEvent, error)
	Health(ctx context.Context) error
}

type Metrics interface {
	RecordAnalysis(signal string)
	RecordEventSent(backend string)
	RecordNotification(channel string, ok bool)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
