package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorderCounts(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.RecordAnalysis("BUY")
	r.RecordAnalysis("BUY")
	r.RecordAnalysis("HOLD")
	r.RecordNotification("email", false)
	r.RecordLastPrice("AAPL", 190.5)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.analyses.WithLabelValues("BUY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.analyses.WithLabelValues("HOLD")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.notifications.WithLabelValues("email", "failed")))
	assert.Equal(t, 190.5, testutil.ToFloat64(r.lastPrice.WithLabelValues("AAPL")))
}
