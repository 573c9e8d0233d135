// Package strategy evaluates the Turtle channel breakout rule.
package strategy

import (
	"fmt"

	"TurtleDesk/internal/domain/models"

	"github.com/sdcoffey/big"
	"github.com/sdcoffey/techan"
)

// Evaluation is the rule outcome together with the channel it was measured against.
type Evaluation struct {
	Signal         models.Signal
	CurrentPrice   float64
	High           float64 // highest high over the entry window
	Low            float64 // lowest low over the exit window
	DataPoints     int
	Recommendation string
}

// Evaluate applies the rule to candles ordered oldest first.
// With fewer than entryPeriod candles the channel covers what exists and the signal is HOLD.
func Evaluate(candles []models.Candle, entryPeriod, exitPeriod int) Evaluation {
	series := NewSeries(candles)
	n := len(series.Candles)
	ev := Evaluation{Signal: models.SignalHold, DataPoints: n}
	if n == 0 {
		return ev
	}
	last := n - 1
	ev.CurrentPrice = techan.NewClosePriceIndicator(series).Calculate(last).Float()
	if entryPeriod <= 0 || exitPeriod <= 0 {
		ev.Recommendation = fmt.Sprintf("Insufficient data: %d of %d points: hold", n, entryPeriod)
		return ev
	}

	// the indicators clamp their window to the start of the series
	ev.High = techan.NewMaximumValueIndicator(techan.NewHighPriceIndicator(series), entryPeriod).Calculate(last).Float()
	ev.Low = techan.NewMinimumValueIndicator(techan.NewLowPriceIndicator(series), exitPeriod).Calculate(last).Float()
	if n < entryPeriod {
		ev.Recommendation = fmt.Sprintf("Insufficient data: %d of %d points: hold", n, entryPeriod)
		return ev
	}

	switch {
	case ev.CurrentPrice >= ev.High:
		ev.Signal = models.SignalBuy
	case ev.CurrentPrice <= ev.Low:
		ev.Signal = models.SignalSell
	}
	ev.Recommendation = Recommendation(ev.Signal, entryPeriod, exitPeriod, ev.High, ev.Low)
	return ev
}

// Recommendation renders the human readable advice for a signal.
func Recommendation(s models.Signal, entryPeriod, exitPeriod int, high, low float64) string {
	switch s {
	case models.SignalBuy:
		return fmt.Sprintf("Breakout above %d-day high: consider entering a long position", entryPeriod)
	case models.SignalSell:
		return fmt.Sprintf("Break below %d-day low: consider exiting the position", exitPeriod)
	default:
		return fmt.Sprintf("Price within $%.2f - $%.2f channel: hold", low, high)
	}
}

// Stats summarizes candles over the given high and low windows.
type Stats struct {
	CurrentPrice float64
	High         float64
	Low          float64
	AvgPrice     float64
	DataPoints   int
}

func Summarize(candles []models.Candle, highWindow, lowWindow int) Stats {
	series := NewSeries(candles)
	n := len(series.Candles)
	if n == 0 {
		return Stats{}
	}
	last := n - 1
	closes := techan.NewClosePriceIndicator(series)
	return Stats{
		CurrentPrice: closes.Calculate(last).Float(),
		High:         techan.NewMaximumValueIndicator(techan.NewHighPriceIndicator(series), highWindow).Calculate(last).Float(),
		Low:          techan.NewMinimumValueIndicator(techan.NewLowPriceIndicator(series), lowWindow).Calculate(last).Float(),
		AvgPrice:     techan.NewSimpleMovingAverage(closes, n).Calculate(last).Float(),
		DataPoints:   n,
	}
}

// NewSeries converts candles into a techan series. Candles get zero-length
// periods so bars with irregular spacing are never rejected as overlapping.
func NewSeries(candles []models.Candle) *techan.TimeSeries {
	series := techan.NewTimeSeries()
	for _, c := range candles {
		tc := techan.NewCandle(techan.NewTimePeriod(c.Time, 0))
		tc.OpenPrice = big.NewDecimal(c.Open)
		tc.MaxPrice = big.NewDecimal(c.High)
		tc.MinPrice = big.NewDecimal(c.Low)
		tc.ClosePrice = big.NewDecimal(c.Close)
		tc.Volume = big.NewDecimal(c.Volume)
		series.AddCandle(tc)
	}
	return series
}
