package models

import "time"

// Signal is the Turtle channel decision.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// Actionable reports whether the signal warrants a notification.
func (s Signal) Actionable() bool { return s == SignalBuy || s == SignalSell }

// Defaults used by the analysis page and by API callers that omit fields.
const (
	DefaultPeriod      = "2mo"
	DefaultInterval    = "1d"
	DefaultEntryPeriod = 20
	DefaultExitPeriod  = 10
	MinStatsPoints     = 20
	MaxBatchSymbols    = 10
)

// AnalysisRequest asks for a Turtle evaluation of one symbol.
type AnalysisRequest struct {
	Symbol      string `json:"symbol" form:"symbol" validate:"required,ticker"`
	Period      string `json:"period" form:"period" default:"2mo" validate:"omitempty,period"`
	Interval    string `json:"interval" form:"interval" default:"1d" validate:"omitempty,interval"`
	EntryPeriod int    `json:"entry_period" form:"entry_period" default:"20" validate:"gte=1,lte=250"`
	ExitPeriod  int    `json:"exit_period" form:"exit_period" default:"10" validate:"gte=1,lte=250"`
}

// AnalysisResult is the outcome of one analysis.
type AnalysisResult struct {
	Symbol         string    `json:"symbol" validate:"required"`
	CurrentPrice   float64   `json:"current_price" validate:"gte=0"`
	Signal         Signal    `json:"signal" validate:"required,oneof=BUY SELL HOLD"`
	EntryPrice     float64   `json:"entry_price" validate:"gte=0"`
	ExitPrice      float64   `json:"exit_price"`
	High20D        float64   `json:"high_20d"`
	Low10D         float64   `json:"low_10d"`
	Timestamp      time.Time `json:"timestamp"`
	AlertID        uint      `json:"alert_id,omitempty"`
	Recommendation string    `json:"recommendation,omitempty"`
}

// StockStats summarizes a price history without running the strategy.
type StockStats struct {
	Symbol       string    `json:"symbol"`
	CurrentPrice float64   `json:"current_price"`
	High20D      float64   `json:"high_20d"`
	Low10D       float64   `json:"low_10d"`
	AvgPrice     float64   `json:"avg_price"`
	DataPoints   int       `json:"data_points"`
	Period       string    `json:"period"`
	Timestamp    time.Time `json:"timestamp"`
}

// BatchStatus marks the outcome of one symbol in a batch.
type BatchStatus string

const (
	BatchSuccess BatchStatus = "success"
	BatchFailed  BatchStatus = "failed"
)

// BatchItem is one entry of a batch analysis.
type BatchItem struct {
	Symbol string          `json:"symbol"`
	Status BatchStatus     `json:"status"`
	Data   *AnalysisResult `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// BatchResult is the whole batch, in request order.
type BatchResult struct {
	Total     int         `json:"total"`
	Results   []BatchItem `json:"results"`
	Timestamp time.Time   `json:"timestamp"`
}
