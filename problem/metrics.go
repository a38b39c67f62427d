package problem

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/traherom/marla-sub003/problem")

var (
	recomputesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marla_operation_recomputes_total",
		Help: "Successful operation recomputations, by operation.",
	}, []string{"operation"})

	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marla_operation_cache_hits_total",
		Help: "Reads of operation results that needed no recomputation.",
	})

	failuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marla_operation_failures_total",
		Help: "Failed operation recomputations, by operation.",
	}, []string{"operation"})
)
