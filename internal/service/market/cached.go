package market

import (
	"context"
	"time"

	"TurtleDesk/internal/domain/models"
	domrepo "TurtleDesk/internal/domain/repository"
	"TurtleDesk/pkg/cache"
	applogger "TurtleDesk/pkg/logger"
)

// Cached memoizes provider responses. Errors are never cached.
type Cached struct {
	next domrepo.MarketData
	c    cache.Service
	ttl  time.Duration
	l    *applogger.Logger
}

func NewCached(next domrepo.MarketData, c cache.Service, ttl time.Duration, l *applogger.Logger) *Cached {
	return &Cached{next: next, c: c, ttl: ttl, l: l}
}

func (m *Cached) Name() string { return m.next.Name() }

func (m *Cached) History(ctx context.Context, symbol, period, interval string) ([]models.Candle, error) {
	key := cache.Key("history", m.next.Name(), symbol, period, interval)
	candles, hit, err := cache.GetOrLoad(ctx, m.c, key, m.ttl, func(ctx context.Context) ([]models.Candle, error) {
		return m.next.History(ctx, symbol, period, interval)
	})
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, models.ErrNoData
	}
	m.l.Debug("history loaded",
		applogger.String("symbol", symbol),
		applogger.String("provider", m.next.Name()),
		applogger.Bool("cache_hit", hit),
		applogger.Int("rows", len(candles)))
	return candles, nil
}
