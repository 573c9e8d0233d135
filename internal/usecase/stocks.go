package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"TurtleDesk/internal/domain/models"
	domrepo "TurtleDesk/internal/domain/repository"
	"TurtleDesk/internal/service/strategy"
)

const recentAlertsLimit = 5

// StocksUseCase serves the read side of the relational store.
type StocksUseCase struct {
	store  domrepo.Store
	market domrepo.MarketData
}

func NewStocksUseCase(store domrepo.Store, market domrepo.MarketData) *StocksUseCase {
	return &StocksUseCase{store: store, market: market}
}

func (uc *StocksUseCase) List(ctx context.Context, activeOnly bool) ([]models.Stock, error) {
	return uc.store.Stocks().List(ctx, activeOnly)
}

func (uc *StocksUseCase) Detail(ctx context.Context, symbol string) (*models.StockDetail, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	st, err := uc.store.Stocks().Get(ctx, symbol)
	if err != nil {
		return nil, err
	}
	alerts, err := uc.store.Alerts().Recent(ctx, symbol, recentAlertsLimit)
	if err != nil {
		return nil, err
	}
	return &models.StockDetail{Stock: *st, RecentAlerts: alerts}, nil
}

func (uc *StocksUseCase) Deactivate(ctx context.Context, symbol string) (*models.Stock, error) {
	st, err := uc.store.Stocks().Deactivate(ctx, strings.ToUpper(strings.TrimSpace(symbol)))
	if err != nil {
		return nil, err
	}
	st.IsActive = false
	return st, nil
}

// History returns newest-first alerts, optionally for one symbol.
func (uc *StocksUseCase) History(ctx context.Context, symbol string, limit int) ([]models.AlertHistory, error) {
	if limit < 1 || limit > 100 {
		return nil, fmt.Errorf("%w: limit must be in 1..100", models.ErrInvalidRequest)
	}
	return uc.store.Alerts().Recent(ctx, strings.ToUpper(strings.TrimSpace(symbol)), limit)
}

func (uc *StocksUseCase) Statistics(ctx context.Context) (*models.Statistics, error) {
	counts, err := uc.store.Alerts().CountBySignal(ctx)
	if err != nil {
		return nil, err
	}
	tracked, err := uc.store.Stocks().Count(ctx, true)
	if err != nil {
		return nil, err
	}
	s := &models.Statistics{
		BuySignals:    counts[models.SignalBuy],
		SellSignals:   counts[models.SignalSell],
		HoldSignals:   counts[models.SignalHold],
		TrackedStocks: tracked,
	}
	for _, n := range counts {
		s.TotalAnalyses += n
	}
	return s, nil
}

// Health pings the database and reports table sizes.
func (uc *StocksUseCase) Health(ctx context.Context) (*models.HealthStatus, error) {
	now := time.Now().UTC()
	if err := uc.store.Ping(ctx); err != nil {
		return &models.HealthStatus{Status: "unhealthy", Database: "disconnected", Error: err.Error(), Timestamp: now}, err
	}
	stocks, err := uc.store.Stocks().Count(ctx, false)
	if err != nil {
		return &models.HealthStatus{Status: "unhealthy", Database: "connected", Error: err.Error(), Timestamp: now}, err
	}
	alerts, err := uc.store.Alerts().Count(ctx)
	if err != nil {
		return &models.HealthStatus{Status: "unhealthy", Database: "connected", Error: err.Error(), Timestamp: now}, err
	}
	return &models.HealthStatus{
		Status:      "healthy",
		Database:    "connected",
		StocksCount: stocks,
		AlertsCount: alerts,
		Timestamp:   now,
	}, nil
}

// StockData summarizes price history without storing anything.
func (uc *StocksUseCase) StockData(ctx context.Context, symbol, period string) (*models.StockStats, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if period == "" {
		period = models.DefaultPeriod
	}
	candles, err := uc.market.History(ctx, symbol, period, models.DefaultInterval)
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", symbol, err)
	}
	if len(candles) < models.MinStatsPoints {
		return nil, fmt.Errorf("%w: %s has %d data points, need %d", models.ErrInsufficientData, symbol, len(candles), models.MinStatsPoints)
	}
	s := strategy.Summarize(candles, models.DefaultEntryPeriod, models.DefaultExitPeriod)
	return &models.StockStats{
		Symbol:       symbol,
		CurrentPrice: s.CurrentPrice,
		High20D:      s.High,
		Low10D:       s.Low,
		AvgPrice:     s.AvgPrice,
		DataPoints:   s.DataPoints,
		Period:       period,
		Timestamp:    time.Now().UTC(),
	}, nil
}
