package metrics

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nswdaq/test-harness/types"
)

const (
	MetricsNamespace = "test_harness"
)

var (
	Debug                bool = true
	validResults              = []types.TestStatus{types.TestStatusPass, types.TestStatusFail, types.TestStatusError}
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	candidatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "candidates_total",
		Help:      "Count of executed test executables by result",
	}, []string{
		"candidate",
		"result",
	})

	candidateTimeoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "candidate_timeouts_total",
		Help:      "Count of test executables killed after their timeout",
	}, []string{
		"candidate",
	})

	candidateDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "candidate_duration_seconds",
		Help:      "Duration of individual test executables",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{
		"candidate",
	})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "runs_total",
		Help:      "Count of completed runs by result",
	}, []string{
		"result",
	})

	lastRunFailed = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "last_run_failed",
		Help:      "1 if the most recent run had a failure, 0 otherwise",
	})

	lastRunDuration = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "last_run_duration_seconds",
		Help:      "Duration of the most recent run",
	})

	lastRunCandidates = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "last_run_candidates",
		Help:      "Candidate counts of the most recent run",
	}, []string{
		"result",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

// RecordCandidate records the outcome of a single test executable.
func RecordCandidate(runID string, result *types.TestRunResult) {
	if result == nil {
		return
	}
	status := result.Status()
	if !isValidResult(status) {
		log.Error("RecordCandidate - invalid result", "result", status)
		return
	}
	name := result.Candidate.Name
	if Debug {
		log.Debug("metric inc",
			"m", "candidates_total",
			"run_id", runID,
			"candidate", name,
			"result", status)
	}
	candidatesTotal.WithLabelValues(name, string(status)).Inc()
	candidateDuration.WithLabelValues(name).Observe(result.Duration.Seconds())
	if result.TimedOut {
		candidateTimeoutsTotal.WithLabelValues(name).Inc()
	}
}

// RecordRun records the folded outcome of a finished run.
func RecordRun(run *types.RunResult) {
	if run == nil {
		return
	}
	status := run.Status()
	runsTotal.WithLabelValues(string(status)).Inc()
	if run.Failed {
		lastRunFailed.Set(1)
	} else {
		lastRunFailed.Set(0)
	}
	lastRunDuration.Set(run.Duration.Seconds())
	lastRunCandidates.WithLabelValues("total").Set(float64(run.Stats.Total))
	lastRunCandidates.WithLabelValues("passed").Set(float64(run.Stats.Passed))
	lastRunCandidates.WithLabelValues("failed").Set(float64(run.Stats.Failed))
	lastRunCandidates.WithLabelValues("timed_out").Set(float64(run.Stats.TimedOut))
}

func isValidResult(result types.TestStatus) bool {
	return slices.Contains(validResults, result)
}
