package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	questionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querypilot_questions_total",
			Help: "Total number of natural-language questions answered, by result status.",
		},
		[]string{"status"},
	)
	toolInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querypilot_tool_invocations_total",
			Help: "Total number of tool invocations issued by the reasoning loop.",
		},
		[]string{"tool"},
	)
	modelCallDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "querypilot_model_call_duration_seconds",
			Help:    "Latency of hosted model generation calls.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
	)
	reasoningSteps = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "querypilot_reasoning_steps",
			Help:    "Number of reasoning iterations consumed per question.",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		},
	)
)

func init() {
	prometheus.MustRegister(
		questionsTotal,
		toolInvocationsTotal,
		modelCallDurationSeconds,
		reasoningSteps,
	)
}

func ObserveQuestion(status string, steps int) {
	questionsTotal.WithLabelValues(status).Inc()
	reasoningSteps.Observe(float64(steps))
}

func ObserveToolInvocation(tool string) {
	toolInvocationsTotal.WithLabelValues(tool).Inc()
}

func ObserveModelCall(elapsed time.Duration) {
	modelCallDurationSeconds.Observe(elapsed.Seconds())
}
