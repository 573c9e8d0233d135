package api

import (
	"context"
	"errors"
	"net/http"

	"TurtleDesk/internal/domain/models"
	xhttp "TurtleDesk/pkg/http"
)

// AppError maps domain errors onto HTTP-aware application errors.
func AppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, models.ErrNoData):
		return xhttp.NotFoundErrorf("No data found for symbol").WithError(err)
	case errors.Is(err, models.ErrStockNotFound):
		return xhttp.NotFoundErrorf("Stock not found").WithError(err)
	case errors.Is(err, models.ErrInsufficientData):
		return xhttp.NewAppError("ERR_INSUFFICIENT_DATA", "", err.Error(), http.StatusBadRequest)
	case errors.Is(err, models.ErrTooManySymbols):
		return xhttp.NewAppError("ERR_TOO_MANY_SYMBOLS", "symbols", "Maximum 10 symbols allowed", http.StatusBadRequest)
	case errors.Is(err, models.ErrInvalidRequest):
		return xhttp.BadRequestErrorf("%s", err.Error())
	case errors.Is(err, models.ErrEventsDisabled):
		return xhttp.ServiceUnavailableErrorf("Signal event store is disabled").WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.NewAppError("ERR_TIMEOUT", "", "Upstream timed out", http.StatusGatewayTimeout).WithError(err)
	default:
		return xhttp.InternalErrorf("Analysis failed").WithError(err)
	}
}
