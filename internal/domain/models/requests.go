package models

import "time"

// Query parameters of the read endpoints.

type HistoryRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"omitempty,ticker"`
	Limit  int    `query:"limit" json:"limit" default:"10" validate:"gte=1,lte=100"`
}

type BatchRequest struct {
	Symbols string `query:"symbols" json:"symbols" validate:"required"`
}

type StockDataRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required,ticker"`
	Period string `query:"period" json:"period" default:"2mo" validate:"period"`
}

type EventsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"omitempty,ticker"`
	From   string `query:"from" json:"from" validate:"omitempty,timestamp"`
	To     string `query:"to" json:"to" validate:"omitempty,timestamp"`
	Limit  int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}

// EventQuery is the resolved filter for the event store.
type EventQuery struct {
	Symbol string
	From   time.Time
	To     time.Time
	Limit  int
}
