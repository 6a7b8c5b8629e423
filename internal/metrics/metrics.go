// Package metrics exposes Prometheus instrumentation for the assistant.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every FitFusion collector plus the Go runtime collectors.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		LoopIterations, LoopOutcomes,
		ToolCalls, ToolDuration,
		LLMRequests, LLMDuration,
		GuardWarnings, ChatRequests,
	)
}

// LoopIterations records reasoning passes per turn.
var LoopIterations = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "fitfusion_agent_iterations",
		Help:    "Reasoning passes per chat turn.",
		Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 10},
	},
)

// LoopOutcomes counts how turns terminated.
var LoopOutcomes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fitfusion_agent_turns_total",
		Help: "Chat turns by outcome.",
	},
	[]string{"outcome"}, // answered | synthesized | capped | llm_error
)

// ToolCalls counts tool executions by tool and result status.
var ToolCalls = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fitfusion_tool_calls_total",
		Help: "Tool executions by tool and status.",
	},
	[]string{"tool", "status"},
)

// ToolDuration records tool execution latency.
var ToolDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "fitfusion_tool_duration_seconds",
		Help:    "Tool execution latency in seconds.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"tool"},
)

// LLMRequests counts model calls by outcome.
var LLMRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fitfusion_llm_requests_total",
		Help: "LLM generate calls by model and outcome.",
	},
	[]string{"model", "outcome"}, // ok | empty | error
)

// LLMDuration records model latency.
var LLMDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "fitfusion_llm_duration_seconds",
		Help:    "LLM generate latency in seconds.",
		Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
	},
	[]string{"model"},
)

// GuardWarnings counts advisory hallucination warnings by check.
var GuardWarnings = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fitfusion_guard_warnings_total",
		Help: "Hallucination guard warnings by check.",
	},
	[]string{"check"},
)

// ChatRequests counts chat requests by transport and result.
var ChatRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fitfusion_chat_requests_total",
		Help: "Chat requests by channel and result.",
	},
	[]string{"channel", "result"},
)

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
