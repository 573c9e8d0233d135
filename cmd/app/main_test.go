package main

import (
	"context"
	"errors"
	"testing"

	"TurtleDesk/internal/domain/models"

	"github.com/stretchr/testify/assert"
)

type stubAnalyzer struct{}

func (stubAnalyzer) Analyze(_ context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	if req.Symbol == "BAD" {
		return nil, errors.New("no price data")
	}
	return &models.AnalysisResult{
		Symbol:         req.Symbol,
		Signal:         models.SignalSell,
		CurrentPrice:   90,
		EntryPrice:     120,
		ExitPrice:      91,
		Recommendation: "Break below 10-day low: consider exiting the position",
	}, nil
}

func TestRenderResults(t *testing.T) {
	build := func(s string) models.AnalysisRequest { return models.AnalysisRequest{Symbol: s, Period: "2mo"} }
	out := renderResults(analyzeAll(context.Background(), stubAnalyzer{}, []string{"TSLA", "BAD"}, build))

	assert.Contains(t, out, "Current Price")
	assert.Contains(t, out, "TSLA")
	assert.Contains(t, out, "SELL")
	assert.Contains(t, out, "$120.00")
	assert.Contains(t, out, "ERROR")
	assert.Contains(t, out, "no price data")
}

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "analyze", "migrate"} {
		cmd, _, err := root.Find([]string{name})
		assert.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}
