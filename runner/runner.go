package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	"github.com/nswdaq/test-harness/discovery"
	"github.com/nswdaq/test-harness/logging"
	"github.com/nswdaq/test-harness/metrics"
	"github.com/nswdaq/test-harness/reporting"
	"github.com/nswdaq/test-harness/types"
)

// TestRunner discovers and runs every candidate in a test directory.
type TestRunner interface {
	// RunAll performs one full pass. The returned error is only non-nil for problems
	// that invalidate the whole run: an unreadable directory, cancellation or a sink
	// that could not complete.
	RunAll(ctx context.Context) (*types.RunResult, error)
}

// runner implements TestRunner
type runner struct {
	testDir      string
	executor     CandidateExecutor
	fragmentMode reporting.FragmentMode
	sinks        []logging.ResultSink
	log          log.Logger
}

// Config holds configuration for creating a new runner
type Config struct {
	TestDir      string
	Executor     CandidateExecutor
	FragmentMode reporting.FragmentMode // Defaults to passthrough
	Sinks        []logging.ResultSink
	Log          log.Logger
}

// NewTestRunner creates a new test runner instance
func NewTestRunner(cfg Config) (TestRunner, error) {
	if cfg.TestDir == "" {
		return nil, fmt.Errorf("test directory is required")
	}
	if cfg.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.FragmentMode == "" {
		cfg.FragmentMode = reporting.FragmentModePassthrough
	}
	if !cfg.FragmentMode.IsValid() {
		return nil, fmt.Errorf("invalid fragment mode: %q", cfg.FragmentMode)
	}

	return &runner{
		testDir:      cfg.TestDir,
		executor:     cfg.Executor,
		fragmentMode: cfg.FragmentMode,
		sinks:        cfg.Sinks,
		log:          cfg.Log,
	}, nil
}

// RunAll implements the TestRunner interface
func (r *runner) RunAll(ctx context.Context) (*types.RunResult, error) {
	runID := uuid.New().String()
	start := time.Now()
	r.log.Info("Running unit tests", "dir", r.testDir, "run_id", runID)

	candidates, err := discovery.Discover(r.testDir)
	if err != nil {
		metrics.RecordErrorDetails("discovery", err)
		return nil, err
	}
	if len(candidates) == 0 {
		r.log.Warn("No test executables found", "dir", r.testDir)
	}
	r.log.Debug("Discovered candidates", "count", len(candidates))

	run := types.NewRunResult(runID, r.testDir)
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run interrupted before %s: %w", candidate.Name, err)
		}

		r.log.Info("Running test executable", "candidate", candidate.Name)
		result := r.executor.Execute(ctx, candidate)
		// A candidate killed by cancellation is not a test failure
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run interrupted during %s: %w", candidate.Name, err)
		}
		reporting.ApplyFragmentMode(r.fragmentMode, result)
		run.Add(result)
		metrics.RecordCandidate(runID, result)

		if result.Failed() {
			r.log.Warn("Test executable failed", "candidate", candidate.Name,
				"exit_code", result.ExitCode, "timed_out", result.TimedOut,
				"duration", result.Duration, "err", result.Error)
		} else {
			r.log.Debug("Test executable passed", "candidate", candidate.Name, "duration", result.Duration)
		}

		for _, sink := range r.sinks {
			if err := sink.Consume(result, runID); err != nil {
				r.log.Error("Result sink failed to consume result", "candidate", candidate.Name, "err", err)
				metrics.RecordErrorDetails("sink_consume", err)
			}
		}
	}
	run.Duration = time.Since(start)

	var sinkErrs []error
	for _, sink := range r.sinks {
		if err := sink.Complete(run); err != nil {
			metrics.RecordErrorDetails("sink_complete", err)
			sinkErrs = append(sinkErrs, err)
		}
	}
	metrics.RecordRun(run)

	if err := errors.Join(sinkErrs...); err != nil {
		return run, fmt.Errorf("failed to complete run %s: %w", runID, err)
	}
	return run, nil
}
