package models

import "time"

// Stock is a tracked symbol. IsActive=false marks a soft delete.
type Stock struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Symbol       string    `gorm:"size:20;uniqueIndex;not null" json:"symbol"`
	Name         string    `gorm:"size:100" json:"name"`
	CurrentPrice float64   `json:"current_price"`
	LastUpdated  time.Time `json:"last_updated"`
	IsActive     bool      `gorm:"default:true;index" json:"is_active"`
}

func (Stock) TableName() string { return "stocks" }

// AlertHistory records every analysis outcome.
type AlertHistory struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Symbol         string    `gorm:"size:20;index;not null" json:"symbol"`
	Signal         Signal    `gorm:"column:signal_type;size:10;not null;index" json:"signal"`
	Price          float64   `gorm:"not null" json:"price"`
	StrategyParams string    `gorm:"type:text" json:"strategy_params,omitempty"`
	Message        string    `gorm:"type:text" json:"message"`
	Sent           bool      `gorm:"default:false" json:"sent"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}

func (AlertHistory) TableName() string { return "alert_history" }

// StrategyParams is serialized into AlertHistory.StrategyParams.
type StrategyParams struct {
	EntryPeriod int     `json:"entry_period"`
	ExitPeriod  int     `json:"exit_period"`
	EntryPrice  float64 `json:"entry_price"`
	ExitPrice   float64 `json:"exit_price"`
	Period      string  `json:"period"`
	Interval    string  `json:"interval"`
}

// StockDetail is a stock with its latest alerts.
type StockDetail struct {
	Stock        Stock          `json:"stock"`
	RecentAlerts []AlertHistory `json:"recent_alerts"`
}

// Statistics aggregates the alert history.
type Statistics struct {
	TotalAnalyses int64 `json:"total_analyses"`
	BuySignals    int64 `json:"buy_signals"`
	SellSignals   int64 `json:"sell_signals"`
	HoldSignals   int64 `json:"hold_signals"`
	TrackedStocks int64 `json:"tracked_stocks"`
}

// HealthStatus is returned by the health probe.
type HealthStatus struct {
	Status      string    `json:"status"`
	Database    string    `json:"database"`
	StocksCount int64     `json:"stocks_count,omitempty"`
	AlertsCount int64     `json:"alerts_count,omitempty"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
