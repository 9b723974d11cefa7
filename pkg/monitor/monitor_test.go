package monitor

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestFlowMetrics(t *testing.T) {
	m := NewFlowMetrics(prometheus.NewRegistry())

	m.ObserveOutcome("request", "resolved", 1.5)
	m.ObserveOutcome("request", "failed", 0)
	m.ObserveOutcome("refresh", "resolved", 0.2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.BalanceRequestsTotal.WithLabelValues("request", "resolved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BalanceRequestsTotal.WithLabelValues("request", "failed")))

	states := []string{"idle", "requesting", "awaiting_response"}
	m.SetState("requesting", states)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FlowState.WithLabelValues("requesting")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.FlowState.WithLabelValues("idle")))

	m.ObserveExecution("deposit", nil)
	m.ObserveExecution("deposit", errors.New("boom"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExecutionsTotal.WithLabelValues("deposit", "failed")))
}

func TestFlowMetricsNilSafe(t *testing.T) {
	var m *FlowMetrics
	assert.NotPanics(t, func() {
		m.ObserveOutcome("request", "resolved", 1)
		m.SetState("idle", []string{"idle"})
		m.ObserveExecution("withdraw", nil)
	})
}

func TestPrometheusMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(PrometheusMiddleware())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/health", "200"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/unknown", nil))

	assert.Equal(t, before+1, testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/health", "200")))
}
