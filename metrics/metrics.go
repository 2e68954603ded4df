package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const metricNamespace = "percona_linkstack"

// Counters.
var (
	//nolint:gochecknoglobals
	pushedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name:      "pushed_total",
		Help:      "Total number of elements pushed onto lists.",
		Namespace: metricNamespace,
	})

	//nolint:gochecknoglobals
	poppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name:      "popped_total",
		Help:      "Total number of elements popped or drained from lists.",
		Namespace: metricNamespace,
	})

	//nolint:gochecknoglobals
	iteratedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:      "iterated_total",
		Help:      "Total number of elements visited by borrowing iterators.",
		Namespace: metricNamespace,
	}, []string{"mode"})

	//nolint:gochecknoglobals
	droppedNodesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name:      "dropped_nodes_total",
		Help:      "Total number of nodes released by list teardown.",
		Namespace: metricNamespace,
	})

	//nolint:gochecknoglobals
	runsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:      "runs_total",
		Help:      "Total number of bench runs by result.",
		Namespace: metricNamespace,
	}, []string{"result"})
)

// Gauges.
var (
	//nolint:gochecknoglobals
	lastRunDurationSeconds = prometheus.NewGauge(prometheus.GaugeOpts{
		Name:      "last_run_duration_seconds",
		Help:      "Duration of the last bench run in seconds.",
		Namespace: metricNamespace,
	})

	//nolint:gochecknoglobals
	lastRunElements = prometheus.NewGauge(prometheus.GaugeOpts{
		Name:      "last_run_elements",
		Help:      "Number of elements processed by the last bench run.",
		Namespace: metricNamespace,
	})
)

// Init initializes and registers the metrics.
func Init(reg prometheus.Registerer) {
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{
		Namespace: metricNamespace,
	}))

	reg.MustRegister(
		pushedTotal,
		poppedTotal,
		iteratedTotal,
		droppedNodesTotal,
		runsTotal,

		lastRunDurationSeconds,
		lastRunElements,
	)
}

// AddPushed increments the pushed elements counter.
func AddPushed(v int) {
	pushedTotal.Add(float64(v))
}

// AddPopped increments the popped elements counter.
func AddPopped(v int) {
	poppedTotal.Add(float64(v))
}

// AddIterated increments the iterated elements counter for the iterator mode
// ("shared" or "mutable").
func AddIterated(mode string, v int) {
	iteratedTotal.WithLabelValues(mode).Add(float64(v))
}

// AddDroppedNodes increments the dropped nodes counter.
func AddDroppedNodes(v int) {
	droppedNodesTotal.Add(float64(v))
}

// RecordRun records the outcome of a bench run.
func RecordRun(dur time.Duration, elements int, err error) {
	result := "ok"
	if err != nil {
		result = "failed"
	}

	runsTotal.WithLabelValues(result).Inc()
	lastRunDurationSeconds.Set(dur.Seconds())
	lastRunElements.Set(float64(elements))
}
