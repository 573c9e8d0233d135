package stream

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"TurtleDesk/internal/domain/models"
	applogger "TurtleDesk/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestHubHistoryAndBroadcast(t *testing.T) {
	h := NewHub(applogger.Nop(), 2)
	h.Broadcast(&models.AnalysisResult{Symbol: "OLD", Signal: models.SignalHold})
	h.Broadcast(&models.AnalysisResult{Symbol: "AAPL", Signal: models.SignalBuy})
	h.Broadcast(&models.AnalysisResult{Symbol: "TSLA", Signal: models.SignalSell})

	hist := h.History()
	require.Len(t, hist, 2)
	assert.Equal(t, "AAPL", hist[0].Symbol)

	srv := httptest.NewServer(h)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first struct {
		Type string                  `json:"type"`
		Data []models.AnalysisResult `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "history", first.Type)
	assert.Len(t, first.Data, 2)

	require.Eventually(t, func() bool { return h.Clients() == 1 }, time.Second, 10*time.Millisecond)
	h.Broadcast(&models.AnalysisResult{Symbol: "MSFT", Signal: models.SignalBuy})

	var next struct {
		Type string                `json:"type"`
		Data models.AnalysisResult `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&next))
	assert.Equal(t, "signal", next.Type)
	assert.Equal(t, "MSFT", next.Data.Symbol)

	h.Close()
	srv.Close()
}
