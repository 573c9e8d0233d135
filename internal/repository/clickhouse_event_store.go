package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"TurtleDesk/internal/domain/models"
	pkgch "TurtleDesk/pkg/clickhouse"
	applogger "TurtleDesk/pkg/logger"

	"github.com/jmoiron/sqlx"
)

const signalEventsTable = "signal_events"

var signalEventsSchema = []string{
	`CREATE TABLE IF NOT EXISTS ` + signalEventsTable + ` (
		alert_id    UInt64,
		symbol      LowCardinality(String),
		signal      LowCardinality(String),
		price       Float64,
		entry_price Float64,
		exit_price  Float64,
		at          DateTime64(3, 'UTC')
	) ENGINE = MergeTree
	ORDER BY (symbol, at)`,
}

// CHEventStore keeps signal events in ClickHouse.
type CHEventStore struct {
	client *pkgch.Client
	db     *sqlx.DB
	l      *applogger.Logger
}

func NewCHEventStore(ch *pkgch.Client, l *applogger.Logger) *CHEventStore {
	return &CHEventStore{client: ch, db: ch.DB(), l: l}
}

func (s *CHEventStore) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, signalEventsSchema)
}

func (s *CHEventStore) Store(ctx context.Context, ev models.SignalEvent) error {
	return s.StoreBatch(ctx, []models.SignalEvent{ev})
}

// StoreBatch inserts through one prepared statement, which the driver sends as a single block.
func (s *CHEventStore) StoreBatch(ctx context.Context, evs []models.SignalEvent) error {
	if len(evs) == 0 {
		return nil
	}
	start := time.Now()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	stmt, err := tx.PreparexContext(ctx, `INSERT INTO `+signalEventsTable+
		` (alert_id, symbol, signal, price, entry_price, exit_price, at)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare batch: %w", err)
	}
	defer stmt.Close()

	for _, ev := range evs {
		if ev.Symbol == "" {
			continue
		}
		_, err := stmt.ExecContext(ctx,
			uint64(ev.AlertID),
			ev.Symbol,
			string(ev.Signal),
			ev.Price,
			ev.EntryPrice,
			ev.ExitPrice,
			ev.At.UTC(),
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("append event %s: %w", ev.Symbol, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	s.l.Debug("clickhouse store events ok",
		applogger.Int("rows", len(evs)),
		applogger.Duration("duration_ms", time.Since(start)))
	return nil
}

func (s *CHEventStore) Query(ctx context.Context, q models.EventQuery) ([]models.SignalEvent, error) {
	query, args := buildEventQuery(q)

	out := make([]models.SignalEvent, 0, q.Limit)
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		s.l.Error("clickhouse query events error",
			applogger.String("symbol", q.Symbol),
			applogger.Error(err))
		return nil, fmt.Errorf("query events: %w", err)
	}
	return out, nil
}

func (s *CHEventStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func buildEventQuery(q models.EventQuery) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)
	if q.Symbol != "" {
		where = append(where, "symbol = ?")
		args = append(args, q.Symbol)
	}
	if !q.From.IsZero() {
		where = append(where, "at >= ?")
		args = append(args, q.From.UTC())
	}
	if !q.To.IsZero() {
		where = append(where, "at <= ?")
		args = append(args, q.To.UTC())
	}

	var b strings.Builder
	b.WriteString("SELECT alert_id, symbol, signal, price, entry_price, exit_price, at FROM ")
	b.WriteString(signalEventsTable)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY at DESC LIMIT ?")
	args = append(args, q.Limit)
	return b.String(), args
}
