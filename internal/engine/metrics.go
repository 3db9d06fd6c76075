package engine

import "github.com/prometheus/client_golang/prometheus"

const outcomeSuccess = "success"

// formatOther is the format label for everything outside knownFormats.
const formatOther = "other"

var knownFormats = map[string]bool{"pdf": true, "dvi": true, "ps": true}

// formatLabel keeps the format label set fixed whatever clients request.
func formatLabel(format string) string {
	if knownFormats[format] {
		return format
	}
	return formatOther
}

var (
	compilesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "texwrap_compiles_total",
			Help: "Total number of compile requests by format and outcome.",
		},
		[]string{"format", "outcome"},
	)

	compileDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "texwrap_compile_duration_seconds",
			Help:    "Time from submission to delivered outcome.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"format"},
	)

	compilesInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "texwrap_compiles_in_flight",
			Help: "Number of compiles currently running.",
		},
	)

	workspacesAllocated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "texwrap_workspaces_allocated_total",
			Help: "Total number of workspaces allocated.",
		},
	)

	logLinesDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "texwrap_log_lines_dropped_total",
			Help: "Engine output lines not delivered to a live subscriber that fell behind.",
		},
	)
)

func init() {
	prometheus.MustRegister(compilesTotal)
	prometheus.MustRegister(compileDuration)
	prometheus.MustRegister(compilesInFlight)
	prometheus.MustRegister(workspacesAllocated)
	prometheus.MustRegister(logLinesDropped)
}
