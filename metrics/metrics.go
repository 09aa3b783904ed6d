package metrics

import (
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	MetricsNamespace = "bank_acceptor"
)

var (
	Debug bool = true

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	executionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "executions_total",
		Help:      "Count of test-case executions",
	}, []string{
		"kind",
		"functionality",
		"result",
	})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "retries_total",
		Help:      "Count of execution retry attempts",
	}, []string{
		"kind",
		"functionality",
	})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "runs_total",
		Help:      "Count of runs by terminal status",
	}, []string{
		"status",
	})

	runTestTotal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_test_total",
		Help:      "Total number of test cases in a run",
	}, []string{
		"run_id",
	})

	runTestPassed = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_test_passed",
		Help:      "Number of passed test cases in a run",
	}, []string{
		"run_id",
	})

	runTestFailed = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_test_failed",
		Help:      "Number of failed test cases in a run",
	}, []string{
		"run_id",
	})

	runDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of a run",
	}, []string{
		"run_id",
	})
)

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

func RecordExecution(kind string, functionality string, success bool) {
	result := "fail"
	if success {
		result = "pass"
	}
	if Debug {
		log.Debug("metric inc",
			"m", "executions_total",
			"kind", kind,
			"functionality", functionality,
			"result", result)
	}
	executionsTotal.WithLabelValues(kind, functionality, result).Inc()
}

func RecordRetry(kind string, functionality string) {
	retriesTotal.WithLabelValues(kind, functionality).Inc()
}

func RecordRun(
	runID string,
	status string,
	total int,
	passed int,
	failed int,
	duration time.Duration,
) {
	runsTotal.WithLabelValues(status).Inc()
	runTestTotal.WithLabelValues(runID).Set(float64(total))
	runTestPassed.WithLabelValues(runID).Set(float64(passed))
	runTestFailed.WithLabelValues(runID).Set(float64(failed))
	runDuration.WithLabelValues(runID).Set(duration.Seconds())
}
