package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"TurtleDesk/internal/domain/models"
	"TurtleDesk/pkg/cache"
	xhttp "TurtleDesk/pkg/http"
	applogger "TurtleDesk/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yahooBody = `{"chart":{"result":[{"timestamp":[1700006400,1700092800,1700179200],
"indicators":{"quote":[{"open":[10,11,null],"high":[12,13,null],"low":[9,10,null],"close":[11,12.5,null],"volume":[100,200,null]}]}}],"error":null}}`

func TestYahooHistory(t *testing.T) {
	var gotPath, gotRange, gotInterval string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRange = r.URL.Query().Get("range")
		gotInterval = r.URL.Query().Get("interval")
		_, _ = w.Write([]byte(yahooBody))
	}))
	defer srv.Close()

	y := NewYahoo(xhttp.NewClient(), srv.URL)
	candles, err := y.History(context.Background(), "AAPL", "2mo", "1d")
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/AAPL", gotPath)
	assert.Equal(t, "2mo", gotRange)
	assert.Equal(t, "1d", gotInterval)
	require.Len(t, candles, 2, "null rows are dropped")
	assert.Equal(t, 12.5, candles[1].Close)
	assert.True(t, candles[0].Time.Before(candles[1].Time))
}

func TestYahooNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	}))
	defer srv.Close()

	_, err := NewYahoo(xhttp.NewClient(), srv.URL).History(context.Background(), "NOPE", "2mo", "1d")
	assert.ErrorIs(t, err, models.ErrNoData)
}

func TestFinnhubHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stock/candle", r.URL.Path)
		assert.Equal(t, "D", r.URL.Query().Get("resolution"))
		assert.Equal(t, "secret", r.Header.Get("X-Finnhub-Token"))
		_, _ = w.Write([]byte(`{"c":[11,12],"h":[12,13],"l":[9,10],"o":[10,11],"v":[1,2],"t":[1700006400,1700092800],"s":"ok"}`))
	}))
	defer srv.Close()

	f := NewFinnhub(xhttp.NewClient(), srv.URL, "secret")
	f.now = func() time.Time { return time.Unix(1700200000, 0) }
	candles, err := f.History(context.Background(), "AAPL", "1mo", "1d")
	require.NoError(t, err)
	assert.Len(t, candles, 2)
}

func TestFinnhubNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"s":"no_data"}`))
	}))
	defer srv.Close()

	_, err := NewFinnhub(xhttp.NewClient(), srv.URL, "k").History(context.Background(), "AAPL", "1mo", "1d")
	assert.ErrorIs(t, err, models.ErrNoData)
}

func TestIntervalMapping(t *testing.T) {
	iv, err := binanceInterval("1wk")
	require.NoError(t, err)
	assert.Equal(t, "1w", iv)
	_, err = binanceInterval("2d")
	assert.Error(t, err)

	res, err := finnhubResolution("1h")
	require.NoError(t, err)
	assert.Equal(t, "60", res)
}

type countingSource struct {
	calls atomic.Int32
	err   error
}

func (s *countingSource) Name() string { return "fake" }

func (s *countingSource) History(context.Context, string, string, string) ([]models.Candle, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return []models.Candle{{Time: time.Unix(0, 0).UTC(), High: 2, Low: 1, Close: 1.5}}, nil
}

func TestCachedHistory(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	src := &countingSource{}
	m := NewCached(src, mc, time.Minute, applogger.Nop())

	for i := 0; i < 3; i++ {
		candles, err := m.History(context.Background(), "AAPL", "2mo", "1d")
		require.NoError(t, err)
		require.Len(t, candles, 1)
	}
	assert.Equal(t, int32(1), src.calls.Load())

	_, err := m.History(context.Background(), "MSFT", "2mo", "1d")
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestCachedDoesNotCacheErrors(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	src := &countingSource{err: models.ErrNoData}
	m := NewCached(src, mc, time.Minute, applogger.Nop())

	_, err := m.History(context.Background(), "NOPE", "2mo", "1d")
	assert.ErrorIs(t, err, models.ErrNoData)
	_, err = m.History(context.Background(), "NOPE", "2mo", "1d")
	assert.ErrorIs(t, err, models.ErrNoData)
	assert.Equal(t, int32(2), src.calls.Load())
}
