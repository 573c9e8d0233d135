package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"TurtleDesk/internal/domain/models"
	domsvc "TurtleDesk/internal/domain/service"

	"golang.org/x/sync/errgroup"
)

// BatchUseCase analyzes several symbols concurrently.
type BatchUseCase struct {
	analyzer domsvc.Analyzer
	limit    int
	timeout  time.Duration
}

func NewBatchUseCase(analyzer domsvc.Analyzer, limit int) *BatchUseCase {
	if limit <= 0 {
		limit = 4
	}
	return &BatchUseCase{analyzer: analyzer, limit: limit, timeout: 60 * time.Second}
}

// Analyze keeps input order. A failing symbol is reported in its item and never fails the batch.
func (uc *BatchUseCase) Analyze(ctx context.Context, symbols []string) (*models.BatchResult, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: symbols required", models.ErrInvalidRequest)
	}
	if len(symbols) > models.MaxBatchSymbols {
		return nil, fmt.Errorf("%w: at most %d symbols, got %d", models.ErrTooManySymbols, models.MaxBatchSymbols, len(symbols))
	}

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	items := make([]models.BatchItem, len(symbols))
	var g errgroup.Group
	g.SetLimit(uc.limit)
	for i, sym := range symbols {
		g.Go(func() error {
			res, err := uc.analyzer.Analyze(ctx, models.AnalysisRequest{Symbol: sym})
			if err != nil {
				items[i] = models.BatchItem{Symbol: strings.ToUpper(strings.TrimSpace(sym)), Status: models.BatchFailed, Error: err.Error()}
				return nil
			}
			items[i] = models.BatchItem{Symbol: res.Symbol, Status: models.BatchSuccess, Data: res}
			return nil
		})
	}
	_ = g.Wait()

	return &models.BatchResult{Total: len(items), Results: items, Timestamp: time.Now().UTC()}, nil
}
