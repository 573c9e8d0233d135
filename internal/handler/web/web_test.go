package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"TurtleDesk/internal/domain/models"
	xhttp "TurtleDesk/pkg/http"
	applogger "TurtleDesk/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingAnalyzer struct {
	calls []models.AnalysisRequest
	err   error
}

func (a *recordingAnalyzer) Analyze(_ context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	a.calls = append(a.calls, req)
	if a.err != nil {
		return nil, a.err
	}
	return &models.AnalysisResult{
		Symbol:       strings.ToUpper(req.Symbol),
		Signal:       models.SignalBuy,
		CurrentPrice: 187.5,
		EntryPrice:   185.25,
	}, nil
}

func newServer(t *testing.T, a *recordingAnalyzer) *xhttp.Server {
	t.Helper()
	r, err := NewRenderer()
	require.NoError(t, err)
	return xhttp.NewServer([]xhttp.Handler{NewHandler(applogger.Nop(), a, nil)}, xhttp.WithRenderer(r))
}

func get(t *testing.T, srv *xhttp.Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestLandingPage(t *testing.T) {
	rec := get(t, newServer(t, &recordingAnalyzer{}), "/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, want := range []string{
		"🐢 Turtle Trading Strategy Platform",
		"AI-powered stock analysis based on Turtle Trading Rules",
		"📈 Stock Analysis",
		"🎯 Entry/Exit Signals",
		"📊 History",
		`href="/analyze"`,
		"Start Analysis →",
	} {
		assert.Contains(t, body, want)
	}
}

func TestAnalyzePageIdle(t *testing.T) {
	a := &recordingAnalyzer{}
	rec := get(t, newServer(t, a), "/analyze")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `placeholder="Enter stock symbol (e.g., AAPL)" required`)
	assert.Contains(t, body, "Analyze Stock")
	assert.Contains(t, body, "Analyzing...")
	assert.Contains(t, body, `const PERIOD = "2mo"`)
	assert.NotContains(t, body, "<dt>Symbol</dt>")
	assert.Empty(t, a.calls)
}

func TestJSONSubmissionReturnsResult(t *testing.T) {
	a := &recordingAnalyzer{}
	srv := newServer(t, a)

	req := httptest.NewRequest(http.MethodPost, "/analyze",
		strings.NewReader(`{"symbol":"AAPL","period":"2mo","entry_period":20,"exit_period":10}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var res models.AnalysisResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "AAPL", res.Symbol)
	assert.Equal(t, models.SignalBuy, res.Signal)

	require.Len(t, a.calls, 1)
	assert.Equal(t, models.AnalysisRequest{Symbol: "AAPL", Period: "2mo", Interval: "1d", EntryPeriod: 20, ExitPeriod: 10}, a.calls[0])
}

func TestJSONSubmissionFailureIsNon2xx(t *testing.T) {
	a := &recordingAnalyzer{err: models.ErrNoData}
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(`{"symbol":"ZZZZ"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	newServer(t, a).Echo().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "detail")
}

func TestEmptyJSONSymbolNeverAnalyzes(t *testing.T) {
	a := &recordingAnalyzer{}
	srv := newServer(t, a)

	for _, body := range []string{`{"symbol":""}`, `{"symbol":"   "}`, `{}`} {
		req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		srv.Echo().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Empty(t, a.calls)
}

func TestFormSubmission(t *testing.T) {
	a := &recordingAnalyzer{}
	srv := newServer(t, a)

	form := url.Values{"symbol": {"aapl"}}
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<dt>Symbol</dt><dd>AAPL</dd>")
	assert.Contains(t, body, "<dt>Signal</dt><dd>BUY</dd>")
	assert.Contains(t, body, "<dt>Current Price</dt><dd>$187.5</dd>")
	assert.Contains(t, body, "<dt>Entry Price</dt><dd>$185.25</dd>")

	require.Len(t, a.calls, 1)
	assert.Equal(t, "2mo", a.calls[0].Period)
	assert.Equal(t, 20, a.calls[0].EntryPeriod)
	assert.Equal(t, 10, a.calls[0].ExitPeriod)
}

func TestFormSubmissionFailure(t *testing.T) {
	a := &recordingAnalyzer{err: errors.New("upstream down")}
	form := url.Values{"symbol": {"AAPL"}}
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	newServer(t, a).Echo().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), FailureMessage)
	assert.NotContains(t, rec.Body.String(), "<dt>Symbol</dt>")
}

func TestEmptyFormNeverAnalyzes(t *testing.T) {
	a := &recordingAnalyzer{}
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader("symbol=+"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	newServer(t, a).Echo().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, a.calls)
}
