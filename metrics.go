package marla

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/traherom/marla-sub003")

var (
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marla_engine_commands_total",
		Help: "Commands sent to R, by result (ok, error, dead).",
	}, []string{"result"})

	commandDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "marla_engine_command_duration_seconds",
		Help:    "Time from writing a command to reading both output sentinels.",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 9),
	})

	restartsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marla_engine_restarts_total",
		Help: "Number of times the R process was restarted.",
	})
)
