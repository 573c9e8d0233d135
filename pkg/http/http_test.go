package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type quoteRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,ticker"`
	Limit  int    `query:"limit" json:"limit" default:"10" validate:"gte=1,lte=100"`
}

type routes struct{}

func (routes) RegisterRoutes(e *echo.Echo) {
	e.GET("/quote", func(c echo.Context) error {
		req := &quoteRequest{}
		if verr := ReadAndValidateRequest(c, req); verr != nil {
			return BadRequestResponse(c, verr)
		}
		return SuccessResponse(c, req)
	})
	e.GET("/missing", func(c echo.Context) error {
		return AppErrorResponse(c, NotFoundErrorf("stock %s not found", "ZZZ"))
	})
	e.GET("/boom", func(c echo.Context) error {
		panic("boom")
	})
	e.GET("/plain-error", func(c echo.Context) error {
		return AppErrorResponse(c, errors.New("db down"))
	})
}

func serve(t *testing.T, srv *Server, method, target string) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	var body APIResponse
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestReadAndValidateRequestAppliesDefaults(t *testing.T) {
	srv := NewServer([]Handler{routes{}})

	rec, body := serve(t, srv, http.MethodGet, "/quote?symbol=AAPL")
	require.Equal(t, http.StatusOK, rec.Code)
	data := body.Data.(map[string]interface{})
	assert.Equal(t, "AAPL", data["symbol"])
	assert.Equal(t, float64(10), data["limit"])
}

func TestReadAndValidateRequestReportsFields(t *testing.T) {
	srv := NewServer([]Handler{routes{}})

	rec, body := serve(t, srv, http.MethodGet, "/quote?limit=500")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	details := body.Data.([]interface{})
	codes := map[string]string{}
	for _, d := range details {
		m := d.(map[string]interface{})
		codes[m["field"].(string)] = m["code"].(string)
	}
	assert.Equal(t, map[string]string{"symbol": "ERR_REQUIRED", "limit": "ERR_LTE"}, codes)
}

func TestTickerValidation(t *testing.T) {
	srv := NewServer([]Handler{routes{}})
	rec, _ := serve(t, srv, http.MethodGet, "/quote?symbol=DROP%20TABLE")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = serve(t, srv, http.MethodGet, "/quote?symbol=BRK.B")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAppErrorResponseUsesErrorStatus(t *testing.T) {
	srv := NewServer([]Handler{routes{}})

	rec, body := serve(t, srv, http.MethodGet, "/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, body.Status)

	rec, body = serve(t, srv, http.MethodGet, "/plain-error")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Something went wrong", body.Data)
}

func TestRecoverAndRequestID(t *testing.T) {
	srv := NewServer([]Handler{routes{}})

	rec, body := serve(t, srv, http.MethodGet, "/boom")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal Server Error", body.Message)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestMetricsEndpoint(t *testing.T) {
	srv := NewServer(nil)
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTemplateRenderer(t *testing.T) {
	fsys := fstest.MapFS{"hello.html": {Data: []byte(`{{define "hello"}}Hi {{.}}{{end}}`)}}
	r, err := NewTemplateRenderer(fsys, nil, "*.html")
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, r.Render(&sb, "hello", "<b>", nil))
	assert.Equal(t, "Hi &lt;b&gt;", sb.String())
}

func TestClientSendAndParse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("symbol") == "BAD" {
			http.Error(w, "nope", http.StatusBadGateway)
			return
		}
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": in["symbol"]})
	}))
	defer ts.Close()

	c := NewClient()
	var out map[string]string
	err := c.SendAndParse(context.Background(), &RequestOptions{
		Method: MethodPost,
		URL:    ts.URL,
		Body:   map[string]string{"symbol": "TSLA"},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, "TSLA", out["echo"])

	err = c.SendAndParse(context.Background(), &RequestOptions{
		Method: MethodGet,
		URL:    ts.URL,
		Query:  map[string][]string{"symbol": {"BAD"}},
	}, &out)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)
	assert.Equal(t, "nope", se.Body)
}

func TestServerStartStop(t *testing.T) {
	srv := NewServer([]Handler{routes{}}, WithHost("127.0.0.1"), WithPort(0))
	assert.Empty(t, srv.Addr())
	require.NoError(t, srv.Start())

	resp, err := http.Get("http://" + srv.Addr() + "/missing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	require.NoError(t, srv.Stop(context.Background()))
}

func TestServerCORSPreflight(t *testing.T) {
	srv := NewServer([]Handler{routes{}}, WithCORS(true))

	req := httptest.NewRequest(http.MethodOptions, "/quote", nil)
	req.Header.Set(echo.HeaderOrigin, "http://example.com")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodGet)
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}
