// Package metrics exposes Prometheus instruments for tool calls and the CLI
// commands they issue.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "opennebula_mcp"

// Metrics groups the server's collectors. A nil *Metrics records nothing.
type Metrics struct {
	ToolCalls       *prometheus.CounterVec
	ToolDuration    *prometheus.HistogramVec
	CommandDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ToolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool invocations by tool name and result.",
		}, []string{"tool", "result"}),
		ToolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_duration_seconds",
			Help:      "Wall time spent handling a tool call.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cli_command_duration_seconds",
			Help:      "Wall time of OpenNebula CLI commands by binary and outcome.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"binary", "outcome"}),
	}
	reg.MustRegister(m.ToolCalls, m.ToolDuration, m.CommandDuration)
	return m
}

// ObserveTool records one tool call.
func (m *Metrics) ObserveTool(tool, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.ToolCalls.WithLabelValues(tool, result).Inc()
	m.ToolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// ObserveCommand records one CLI command.
func (m *Metrics) ObserveCommand(binary, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.CommandDuration.WithLabelValues(binary, outcome).Observe(d.Seconds())
}
