package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"TurtleDesk/internal/domain/models"
	domsvc "TurtleDesk/internal/domain/service"
	"TurtleDesk/internal/service/metrics"
	"TurtleDesk/internal/usecase"
	xhttp "TurtleDesk/pkg/http"
	applogger "TurtleDesk/pkg/logger"
	xutil "TurtleDesk/pkg/util"

	"github.com/labstack/echo/v4"
)

// Handler serves the JSON API under /api plus the health probe.
type Handler struct {
	l        *applogger.Logger
	analyzer domsvc.Analyzer
	stocks   *usecase.StocksUseCase
	batch    *usecase.BatchUseCase
	events   *usecase.EventsUseCase
}

func NewHandler(
	l *applogger.Logger,
	analyzer domsvc.Analyzer,
	stocks *usecase.StocksUseCase,
	batch *usecase.BatchUseCase,
	events *usecase.EventsUseCase,
) *Handler {
	metrics.Register()
	return &Handler{l: l, analyzer: analyzer, stocks: stocks, batch: batch, events: events}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/api")
	g.POST("/analyze", observe("analyze", h.Analyze))
	g.GET("/history", observe("history", h.History))
	g.GET("/stocks", observe("stocks", h.Stocks))
	g.GET("/stocks/batch", observe("batch", h.Batch))
	g.GET("/stocks/:symbol", observe("stock_detail", h.StockDetail))
	g.DELETE("/stocks/:symbol", observe("stock_delete", h.DeleteStock))
	g.GET("/stock/:symbol", observe("stock_data", h.StockData))
	g.GET("/statistics", observe("statistics", h.Statistics))
	g.GET("/events", observe("events", h.Events))
}

// observe records latency for every call and counts 4xx/5xx responses.
func observe(endpoint string, next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		if err != nil || c.Response().Status >= http.StatusBadRequest {
			metrics.APIErrors.WithLabelValues(endpoint).Inc()
		}
		return err
	}
}

func (h *Handler) fail(c echo.Context, op string, err error) error {
	appErr := AppError(err)
	if appErr.Status >= http.StatusInternalServerError {
		h.l.Error(op+" failed", applogger.Error(err))
	} else {
		h.l.Debug(op+" rejected", applogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func (h *Handler) Analyze(c echo.Context) error {
	req := &models.AnalysisRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.analyzer.Analyze(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "analyze", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *Handler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows, err := h.stocks.History(c.Request().Context(), req.Symbol, req.Limit)
	if err != nil {
		return h.fail(c, "history", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *Handler) Stocks(c echo.Context) error {
	activeOnly := true
	if v := c.QueryParam("active_only"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{
				Code: "ERR_BOOLEAN", Field: "active_only", Message: "active_only must be true or false",
			}})
		}
		activeOnly = b
	}
	rows, err := h.stocks.List(c.Request().Context(), activeOnly)
	if err != nil {
		return h.fail(c, "stocks", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *Handler) Batch(c echo.Context) error {
	req := &models.BatchRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.batch.Analyze(c.Request().Context(), xutil.SplitSymbols(req.Symbols))
	if err != nil {
		return h.fail(c, "batch", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *Handler) StockDetail(c echo.Context) error {
	res, err := h.stocks.Detail(c.Request().Context(), c.Param("symbol"))
	if err != nil {
		return h.fail(c, "stock detail", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *Handler) DeleteStock(c echo.Context) error {
	st, err := h.stocks.Deactivate(c.Request().Context(), c.Param("symbol"))
	if err != nil {
		return h.fail(c, "stock delete", err)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"message": st.Symbol + " deactivated",
		"stock":   st,
	})
}

func (h *Handler) StockData(c echo.Context) error {
	req := &models.StockDataRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.stocks.StockData(c.Request().Context(), req.Symbol, req.Period)
	if err != nil {
		return h.fail(c, "stock data", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *Handler) Statistics(c echo.Context) error {
	res, err := h.stocks.Statistics(c.Request().Context())
	if err != nil {
		return h.fail(c, "statistics", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *Handler) Events(c echo.Context) error {
	req := &models.EventsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	q := models.EventQuery{
		Symbol: strings.ToUpper(strings.TrimSpace(req.Symbol)),
		From:   xutil.ParseTimeDefault(req.From, time.Time{}),
		To:     xutil.ParseTimeDefault(req.To, time.Time{}),
		Limit:  req.Limit,
	}
	rows, err := h.events.Query(c.Request().Context(), q)
	if err != nil {
		return h.fail(c, "events", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// Health answers 200 with table sizes or 503 when the database is unreachable.
func (h *Handler) Health(c echo.Context) error {
	status, err := h.stocks.Health(c.Request().Context())
	if err != nil {
		h.l.Warn("health check failed", applogger.Error(err))
		return c.JSON(http.StatusServiceUnavailable, status)
	}
	return c.JSON(http.StatusOK, status)
}
