// Package web serves the landing and analysis pages.
package web

import (
	"embed"
	"net/http"
	"strings"

	"TurtleDesk/internal/domain/models"
	domsvc "TurtleDesk/internal/domain/service"
	"TurtleDesk/internal/handler/api"
	xhttp "TurtleDesk/pkg/http"
	applogger "TurtleDesk/pkg/logger"

	"github.com/labstack/echo/v4"
)

// FailureMessage is shown whenever an analysis submission fails.
const FailureMessage = "Failed to analyze stock. Please try again."

//go:embed templates/*.html
var templates embed.FS

// NewRenderer parses the embedded page templates.
func NewRenderer() (*xhttp.TemplateRenderer, error) {
	return xhttp.NewTemplateRenderer(templates, nil, "templates/*.html")
}

// Page is the data every template receives.
type Page struct {
	Title       string
	Symbol      string
	Period      string
	EntryPeriod int
	ExitPeriod  int
	Failure     string
	Result      *models.AnalysisResult
	Error       string
}

func newPage(title string) Page {
	return Page{
		Title:       title,
		Period:      models.DefaultPeriod,
		EntryPeriod: models.DefaultEntryPeriod,
		ExitPeriod:  models.DefaultExitPeriod,
		Failure:     FailureMessage,
	}
}

type Handler struct {
	l        *applogger.Logger
	analyzer domsvc.Analyzer
	stream   http.Handler
}

// NewHandler wires the pages to analyzer. stream may be nil to disable /ws/signals.
func NewHandler(l *applogger.Logger, analyzer domsvc.Analyzer, stream http.Handler) *Handler {
	return &Handler{l: l, analyzer: analyzer, stream: stream}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Landing)
	e.GET("/analyze", h.AnalyzePage)
	e.POST("/analyze", h.Submit)
	if h.stream != nil {
		e.GET("/ws/signals", echo.WrapHandler(h.stream))
	}
}

func (h *Handler) Landing(c echo.Context) error {
	return c.Render(http.StatusOK, "index", newPage("Turtle Trading Strategy Platform"))
}

func (h *Handler) AnalyzePage(c echo.Context) error {
	return c.Render(http.StatusOK, "analyze", newPage("Stock Analysis"))
}

// Submit runs one analysis. JSON bodies get the bare result back, forms get the page re-rendered.
func (h *Handler) Submit(c echo.Context) error {
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		return h.submitJSON(c)
	}
	return h.submitForm(c)
}

func (h *Handler) submitJSON(c echo.Context) error {
	req := &models.AnalysisRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.DetailResponse(c, http.StatusBadRequest, "Invalid analysis request")
	}
	res, err := h.analyzer.Analyze(c.Request().Context(), *req)
	if err != nil {
		appErr := api.AppError(err)
		h.log(req.Symbol, appErr.Status, err)
		return xhttp.DetailResponse(c, appErr.Status, appErr.Message)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) submitForm(c echo.Context) error {
	page := newPage("Stock Analysis")
	page.Symbol = strings.TrimSpace(c.FormValue("symbol"))
	if page.Symbol == "" {
		return c.Render(http.StatusOK, "analyze", page)
	}

	res, err := h.analyzer.Analyze(c.Request().Context(), models.AnalysisRequest{
		Symbol:      page.Symbol,
		Period:      page.Period,
		EntryPeriod: page.EntryPeriod,
		ExitPeriod:  page.ExitPeriod,
	})
	if err != nil {
		appErr := api.AppError(err)
		h.log(page.Symbol, appErr.Status, err)
		page.Error = FailureMessage
		return c.Render(appErr.Status, "analyze", page)
	}
	page.Result = res
	return c.Render(http.StatusOK, "analyze", page)
}

func (h *Handler) log(symbol string, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.l.Error("analysis failed", applogger.String("symbol", symbol), applogger.Error(err))
		return
	}
	h.l.Info("analysis rejected", applogger.String("symbol", symbol), applogger.Int("status", status), applogger.Error(err))
}
