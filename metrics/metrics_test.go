package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("get_balance", "ok", time.Millisecond)
	m.RequestFailed("Validating")
	m.ObserveEpoch(1)
	m.ObserveNonce(2)
	m.SetQueueDepth(3)
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}

func TestCollectors(t *testing.T) {
	m := New()
	m.ObserveRequest("call_method", "ok", 10*time.Millisecond)
	m.ObserveRequest("call_method", "ok", 20*time.Millisecond)
	m.ObserveRequest("call_method", "error", time.Millisecond)
	m.RequestFailed("Formatting")
	m.ObserveEpoch(7)
	m.ObserveNonce(42)
	m.SetQueueDepth(2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("call_method", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("call_method", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("Formatting")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.epoch))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.nonce))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.queue))

	err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(`
# HELP ledgerd_nonce Last committed nonce.
# TYPE ledgerd_nonce gauge
ledgerd_nonce 42
`), "ledgerd_nonce")
	require.NoError(t, err)
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveEpoch(3)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "ledgerd_epoch 3")
}
