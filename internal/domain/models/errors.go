package models

import "errors"

var (
	ErrNoData           = errors.New("no price data")
	ErrStockNotFound    = errors.New("stock not found")
	ErrInsufficientData = errors.New("insufficient data points")
	ErrTooManySymbols   = errors.New("too many symbols")
	ErrEventsDisabled   = errors.New("event store disabled")
	ErrInvalidRequest   = errors.New("invalid request")
)
