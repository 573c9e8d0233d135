package analysisclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"TurtleDesk/internal/domain/models"
	xhttp "TurtleDesk/pkg/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pageRequest() models.AnalysisRequest {
	return models.AnalysisRequest{Symbol: "AAPL", Period: "2mo", EntryPeriod: 20, ExitPeriod: 10}
}

func TestAnalyzePostsRequestAndDecodesResult(t *testing.T) {
	var got map[string]interface{}
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"symbol":"AAPL","signal":"BUY","current_price":120.5,"entry_price":118}`))
	}))
	defer srv.Close()

	res, err := New(srv.URL, time.Second).Analyze(context.Background(), pageRequest())
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "AAPL", got["symbol"])
	assert.Equal(t, "2mo", got["period"])
	assert.Equal(t, float64(20), got["entry_period"])
	assert.Equal(t, float64(10), got["exit_period"])
	assert.Equal(t, models.SignalBuy, res.Signal)
	assert.Equal(t, 120.5, res.CurrentPrice)
}

func TestAnalyzeNon2xxIsAnError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"no data"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).WithRetry(3).Analyze(context.Background(), pageRequest())
	var se *xhttp.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAnalyzeRejectsMalformedResult(t *testing.T) {
	for name, body := range map[string]string{
		"not json":       `<html>oops</html>`,
		"missing signal": `{"symbol":"AAPL","current_price":1,"entry_price":1}`,
		"bad signal":     `{"symbol":"AAPL","signal":"MAYBE","current_price":1,"entry_price":1}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			_, err := New(srv.URL, time.Second).Analyze(context.Background(), pageRequest())
			assert.Error(t, err)
		})
	}
}
