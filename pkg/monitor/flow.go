package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// FlowMetrics 余额请求流程与合约执行的业务指标
type FlowMetrics struct {
	BalanceRequestsTotal *prometheus.CounterVec   // path: request|refresh, outcome: resolved|failed|busy|aborted
	BalanceDuration      *prometheus.HistogramVec // path
	FlowState            *prometheus.GaugeVec     // state, 1 for the current one
	ExecutionsTotal      *prometheus.CounterVec   // action, status
}

// Flow is the process wide instance, nil until InitFlowMetrics runs.
var Flow *FlowMetrics

// InitFlowMetrics 初始化业务指标
func InitFlowMetrics(reg prometheus.Registerer) {
	Flow = NewFlowMetrics(reg)
}

func NewFlowMetrics(reg prometheus.Registerer) *FlowMetrics {
	f := promauto.With(reg)
	return &FlowMetrics{
		BalanceRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "transfers_balance_requests_total",
			Help: "Balance round trips by path and outcome",
		}, []string{"path", "outcome"}),
		BalanceDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "transfers_balance_duration_seconds",
			Help:    "Time from request to resolved balance",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 120},
		}, []string{"path"}),
		FlowState: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "transfers_balance_flow_state",
			Help: "Current state of the balance request flow",
		}, []string{"state"}),
		ExecutionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "transfers_contract_executions_total",
			Help: "Contract executions by action and status",
		}, []string{"action", "status"}),
	}
}

// ObserveOutcome is nil safe.
func (m *FlowMetrics) ObserveOutcome(path, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.BalanceRequestsTotal.WithLabelValues(path, outcome).Inc()
	if outcome == "resolved" {
		m.BalanceDuration.WithLabelValues(path).Observe(seconds)
	}
}

// SetState marks state as current and clears the others.
func (m *FlowMetrics) SetState(state string, all []string) {
	if m == nil {
		return
	}
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1
		}
		m.FlowState.WithLabelValues(s).Set(v)
	}
}

func (m *FlowMetrics) ObserveExecution(action string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failed"
	}
	m.ExecutionsTotal.WithLabelValues(action, status).Inc()
}
