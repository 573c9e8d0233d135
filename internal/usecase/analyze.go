package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"TurtleDesk/internal/domain/models"
	domrepo "TurtleDesk/internal/domain/repository"
	domsvc "TurtleDesk/internal/domain/service"
	"TurtleDesk/internal/service/strategy"
	applogger "TurtleDesk/pkg/logger"
)

// StrategyDefaults fill fields an AnalysisRequest leaves empty.
type StrategyDefaults struct {
	Period      string
	Interval    string
	EntryPeriod int
	ExitPeriod  int
}

const maxWindow = 250

// AnalyzeUseCase runs the Turtle rule and records the outcome.
type AnalyzeUseCase struct {
	market     domrepo.MarketData
	store      domrepo.Store
	events     *SignalEventProcessor
	dispatcher domsvc.Dispatcher
	hub        domsvc.Broadcaster
	metrics    domrepo.Metrics
	l          *applogger.Logger
	defaults   StrategyDefaults
	now        func() time.Time
}

func NewAnalyzeUseCase(
	market domrepo.MarketData,
	store domrepo.Store,
	events *SignalEventProcessor,
	dispatcher domsvc.Dispatcher,
	hub domsvc.Broadcaster,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	defaults StrategyDefaults,
) *AnalyzeUseCase {
	return &AnalyzeUseCase{
		market:     market,
		store:      store,
		events:     events,
		dispatcher: dispatcher,
		hub:        hub,
		metrics:    metrics,
		l:          l,
		defaults:   defaults,
		now:        time.Now,
	}
}

// Normalize uppercases the symbol and applies defaults and bounds.
func (uc *AnalyzeUseCase) Normalize(req models.AnalysisRequest) (models.AnalysisRequest, error) {
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if req.Symbol == "" {
		return req, fmt.Errorf("%w: symbol is required", models.ErrInvalidRequest)
	}
	if req.Period == "" {
		req.Period = uc.defaults.Period
	}
	if req.Interval == "" {
		req.Interval = uc.defaults.Interval
	}
	if req.EntryPeriod == 0 {
		req.EntryPeriod = uc.defaults.EntryPeriod
	}
	if req.ExitPeriod == 0 {
		req.ExitPeriod = uc.defaults.ExitPeriod
	}
	if req.EntryPeriod < 1 || req.EntryPeriod > maxWindow {
		return req, fmt.Errorf("%w: entry_period must be in 1..%d", models.ErrInvalidRequest, maxWindow)
	}
	if req.ExitPeriod < 1 || req.ExitPeriod > maxWindow {
		return req, fmt.Errorf("%w: exit_period must be in 1..%d", models.ErrInvalidRequest, maxWindow)
	}
	return req, nil
}

func (uc *AnalyzeUseCase) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	start := uc.now()
	req, err := uc.Normalize(req)
	if err != nil {
		return nil, err
	}

	candles, err := uc.market.History(ctx, req.Symbol, req.Period, req.Interval)
	if err != nil {
		if !errors.Is(err, models.ErrNoData) {
			uc.metrics.RecordError("market_history")
		}
		return nil, fmt.Errorf("history %s: %w", req.Symbol, err)
	}

	ev := strategy.Evaluate(candles, req.EntryPeriod, req.ExitPeriod)
	res := &models.AnalysisResult{
		Symbol:         req.Symbol,
		CurrentPrice:   ev.CurrentPrice,
		Signal:         ev.Signal,
		EntryPrice:     ev.High,
		ExitPrice:      ev.Low,
		High20D:        ev.High,
		Low10D:         ev.Low,
		Timestamp:      uc.now().UTC(),
		Recommendation: ev.Recommendation,
	}

	if err := uc.persist(ctx, req, res); err != nil {
		uc.metrics.RecordError("persist")
		return nil, err
	}

	uc.metrics.RecordAnalysis(string(res.Signal))
	uc.metrics.RecordLastPrice(res.Symbol, res.CurrentPrice)
	uc.metrics.RecordLatency("analyze", uc.now().Sub(start).Seconds())

	uc.fanOut(ctx, res)

	uc.l.Info("analysis complete",
		applogger.String("symbol", res.Symbol),
		applogger.String("signal", string(res.Signal)),
		applogger.Float64("price", res.CurrentPrice),
		applogger.Uint("alert_id", res.AlertID))
	return res, nil
}

// persist upserts the stock and appends the alert in one transaction.
func (uc *AnalyzeUseCase) persist(ctx context.Context, req models.AnalysisRequest, res *models.AnalysisResult) error {
	params, err := json.Marshal(models.StrategyParams{
		EntryPeriod: req.EntryPeriod,
		ExitPeriod:  req.ExitPeriod,
		EntryPrice:  res.EntryPrice,
		ExitPrice:   res.ExitPrice,
		Period:      req.Period,
		Interval:    req.Interval,
	})
	if err != nil {
		return fmt.Errorf("encode strategy params: %w", err)
	}

	return uc.store.Transaction(ctx, func(tx domrepo.Store) error {
		if _, err := tx.Stocks().Upsert(ctx, res.Symbol, res.CurrentPrice, res.Timestamp); err != nil {
			return err
		}
		alert := &models.AlertHistory{
			Symbol:         res.Symbol,
			Signal:         res.Signal,
			Price:          res.CurrentPrice,
			StrategyParams: string(params),
			Message:        fmt.Sprintf("%s current signal: %s", res.Symbol, res.Signal),
			Sent:           false,
			CreatedAt:      res.Timestamp,
		}
		if err := tx.Alerts().Create(ctx, alert); err != nil {
			return err
		}
		res.AlertID = alert.ID
		return nil
	})
}

// fanOut runs the best-effort side effects. Failures are logged, never returned.
func (uc *AnalyzeUseCase) fanOut(ctx context.Context, res *models.AnalysisResult) {
	if uc.events != nil {
		if err := uc.events.Process(ctx, models.NewSignalEvent(res)); err != nil {
			uc.l.Warn("signal event not published",
				applogger.String("symbol", res.Symbol),
				applogger.Error(err))
		}
	}
	if uc.hub != nil {
		uc.hub.Broadcast(res)
	}
	if uc.dispatcher != nil && res.Signal.Actionable() {
		if err := uc.dispatcher.Dispatch(ctx, res); err != nil {
			uc.l.Warn("notification not dispatched",
				applogger.String("symbol", res.Symbol),
				applogger.Error(err))
		}
	}
}

var _ domsvc.Analyzer = (*AnalyzeUseCase)(nil)
