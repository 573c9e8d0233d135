package models

import "time"

// SignalEvent is published for every stored analysis.
type SignalEvent struct {
	AlertID    uint      `json:"alert_id" db:"alert_id"`
	Symbol     string    `json:"symbol" db:"symbol"`
	Signal     Signal    `json:"signal" db:"signal"`
	Price      float64   `json:"price" db:"price"`
	EntryPrice float64   `json:"entry_price" db:"entry_price"`
	ExitPrice  float64   `json:"exit_price" db:"exit_price"`
	At         time.Time `json:"at" db:"at"`
}

// NewSignalEvent builds the event for an analysis result.
func NewSignalEvent(r *AnalysisResult) SignalEvent {
	return SignalEvent{
		AlertID:    r.AlertID,
		Symbol:     r.Symbol,
		Signal:     r.Signal,
		Price:      r.CurrentPrice,
		EntryPrice: r.EntryPrice,
		ExitPrice:  r.ExitPrice,
		At:         r.Timestamp,
	}
}

// NotifyPayload is the job body for signal notifications.
type NotifyPayload struct {
	AlertID uint           `json:"alert_id"`
	Result  AnalysisResult `json:"result"`
}
