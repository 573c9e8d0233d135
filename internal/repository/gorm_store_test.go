package repository

import (
	"context"
	"testing"
	"time"

	"TurtleDesk/internal/domain/models"
	domrepo "TurtleDesk/internal/domain/repository"
	"TurtleDesk/pkg/database"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := database.Open(database.Config{Driver: "sqlite", DSN: "file::memory:", MaxOpenConns: 1},
		&gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	s := NewGormStore(db)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestStockUpsertAndDeactivate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	at := time.Date(2024, 10, 13, 15, 30, 0, 0, time.UTC)

	st, err := s.Stocks().Upsert(ctx, "AAPL", 178.5, at)
	require.NoError(t, err)
	assert.True(t, st.IsActive)
	assert.Equal(t, "AAPL", st.Name)

	_, err = s.Stocks().Deactivate(ctx, "AAPL")
	require.NoError(t, err)

	active, err := s.Stocks().List(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)

	st, err = s.Stocks().Upsert(ctx, "AAPL", 180, at.Add(time.Hour))
	require.NoError(t, err)
	got, err := s.Stocks().Get(ctx, "AAPL")
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	assert.Equal(t, 180.0, got.CurrentPrice)
	assert.Equal(t, st.ID, got.ID)

	_, err = s.Stocks().Deactivate(ctx, "MSFT")
	assert.ErrorIs(t, err, models.ErrStockNotFound)
}

func TestStockListOrderedBySymbol(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now()
	for _, sym := range []string{"TSLA", "AAPL", "MSFT"} {
		_, err := s.Stocks().Upsert(ctx, sym, 1, now)
		require.NoError(t, err)
	}
	_, err := s.Stocks().Deactivate(ctx, "MSFT")
	require.NoError(t, err)

	all, err := s.Stocks().List(ctx, false)
	require.NoError(t, err)
	var syms []string
	for _, st := range all {
		syms = append(syms, st.Symbol)
	}
	if diff := cmp.Diff([]string{"AAPL", "MSFT", "TSLA"}, syms); diff != "" {
		t.Fatalf("symbols mismatch (-want +got):\n%s", diff)
	}

	n, err := s.Stocks().Count(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestAlertsRecentAndCounts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	signals := []models.Signal{models.SignalBuy, models.SignalHold, models.SignalSell, models.SignalHold}
	for i, sig := range signals {
		a := &models.AlertHistory{
			Symbol:    "AAPL",
			Signal:    sig,
			Price:     float64(100 + i),
			Message:   "AAPL current signal: " + string(sig),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, s.Alerts().Create(ctx, a))
	}
	require.NoError(t, s.Alerts().Create(ctx, &models.AlertHistory{Symbol: "TSLA", Signal: models.SignalBuy, Price: 1}))

	recent, err := s.Alerts().Recent(ctx, "AAPL", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 103.0, recent[0].Price)
	assert.Equal(t, 102.0, recent[1].Price)

	counts, err := s.Alerts().CountBySignal(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[models.SignalBuy])
	assert.Equal(t, int64(1), counts[models.SignalSell])
	assert.Equal(t, int64(2), counts[models.SignalHold])

	require.NoError(t, s.Alerts().MarkSent(ctx, recent[0].ID))
	recent, err = s.Alerts().Recent(ctx, "AAPL", 1)
	require.NoError(t, err)
	assert.True(t, recent[0].Sent)
}

func TestTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.Transaction(ctx, func(tx domrepo.Store) error {
		if _, err := tx.Stocks().Upsert(ctx, "AAPL", 1, time.Now()); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	_, err = s.Stocks().Get(ctx, "AAPL")
	assert.ErrorIs(t, err, models.ErrStockNotFound)
}

func TestBuildEventQuery(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	q, args := buildEventQuery(models.EventQuery{Symbol: "AAPL", From: from, Limit: 50})
	assert.Equal(t, "SELECT alert_id, symbol, signal, price, entry_price, exit_price, at FROM signal_events WHERE symbol = ? AND at >= ? ORDER BY at DESC LIMIT ?", q)
	assert.Equal(t, []interface{}{"AAPL", from, 50}, args)

	q, args = buildEventQuery(models.EventQuery{Limit: 10})
	assert.NotContains(t, q, "WHERE")
	assert.Equal(t, []interface{}{10}, args)
}
