package runner

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"maskd/pkg/types"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maskd_runs_total",
		Help: "Mask generation runs by model family and outcome.",
	}, []string{"family", "outcome"})

	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "maskd_run_duration_seconds",
		Help:    "Wall-clock duration of mask generation runs.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
	}, []string{"family"})
)

func observeRun(family types.Family, err error, elapsed time.Duration) {
	outcome := "ok"
	switch err.(type) {
	case nil:
	case types.CrashError:
		outcome = "crash"
	case types.TimeoutError:
		outcome = "timeout"
	case types.InferenceError:
		outcome = "inference_error"
	default:
		outcome = "error"
	}
	runsTotal.WithLabelValues(family.String(), outcome).Inc()
	runDuration.WithLabelValues(family.String()).Observe(elapsed.Seconds())
}
