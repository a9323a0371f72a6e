package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum-optimism/optimism/op-service/cliapp"

	"github.com/nswdaq/test-harness/flags"
	"github.com/nswdaq/test-harness/logging"
	"github.com/nswdaq/test-harness/reporting"
	"github.com/nswdaq/test-harness/runner"
	"github.com/nswdaq/test-harness/service"
	"github.com/nswdaq/test-harness/types"
)

// harness implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = &harness{}

// harness discovers and runs unit test executables and aggregates their reports.
type harness struct {
	ctx     context.Context
	config  *Config
	version string
	runner  runner.TestRunner
	table   *reporting.TableReporter
	service *service.Service
	out     io.Writer
	result  *types.RunResult

	running      atomic.Bool
	done         chan struct{}
	wg           sync.WaitGroup
	shutdownOnce sync.Once

	shutdownCallback func(error) // Callback to signal application shutdown
}

func New(ctx context.Context, config *Config, version string, shutdownCallback func(error)) (*harness, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if config.Log == nil {
		return nil, errors.New("config logger is required")
	}

	config.Log.Debug("Creating harness with config",
		"testDir", config.TestDir,
		"output", config.Output,
		"convention", config.Convention,
		"timeout", config.Timeout,
		"runInterval", config.RunInterval,
		"runOnce", config.RunOnce)

	strategy, err := runner.NewExtractionStrategy(config.Convention, config.LogMarker, config.SinkDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction strategy: %w", err)
	}
	executor, err := runner.NewCandidateExecutor(config.Timeout, config.CandidateArgs, strategy,
		runner.DefaultCommandBuilder, config.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create executor: %w", err)
	}

	reportSink, err := reporting.NewReportSink(config.Output, config.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create report sink: %w", err)
	}
	sinks := []logging.ResultSink{reportSink}
	if config.LogDir != "" {
		fileLogger, err := logging.NewFileLogger(config.LogDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create file logger: %w", err)
		}
		sinks = append(sinks, fileLogger)
	}

	testRunner, err := runner.NewTestRunner(runner.Config{
		TestDir:      config.TestDir,
		Executor:     executor,
		FragmentMode: config.FragmentMode,
		Sinks:        sinks,
		Log:          config.Log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create test runner: %w", err)
	}

	var svc *service.Service
	if config.Metrics.Enabled {
		svc = service.New(service.NewConfig(config.Metrics.ListenAddr, config.Metrics.ListenPort), config.Log)
	}

	return &harness{
		ctx:              ctx,
		config:           config,
		version:          version,
		runner:           testRunner,
		table:            reporting.NewTableReporter("Unit Test Results"),
		service:          svc,
		out:              os.Stdout,
		done:             make(chan struct{}),
		shutdownCallback: shutdownCallback,
	}, nil
}

// Start runs the unit tests once, or periodically at the configured interval.
// Start implements the cliapp.Lifecycle interface.
func (h *harness) Start(ctx context.Context) (err error) {
	// A panic is a runtime error, not a test failure
	defer func() {
		if r := recover(); r != nil {
			h.config.Log.Error("Runtime error occurred", "error", r)
			h.shutdownService()
			err = NewRuntimeError(fmt.Errorf("panic: %v", r))
		}
	}()

	h.ctx = ctx
	h.done = make(chan struct{})
	h.running.Store(true)

	if h.config.RunOnce {
		h.config.Log.Info("Starting test-harness in run-once mode", "version", h.version)
	} else {
		h.config.Log.Info("Starting test-harness in continuous mode", "version", h.version, "interval", h.config.RunInterval)
	}

	if h.service != nil {
		if err := h.service.Start(); err != nil {
			h.running.Store(false)
			return NewRuntimeError(fmt.Errorf("failed to start service: %w", err))
		}
	}

	// Run tests immediately on startup
	failed, err := h.runTests(ctx)
	if err != nil {
		h.config.Log.Error("Runtime error running tests", "error", err)
		h.running.Store(false)
		h.shutdownService()
		return err
	}

	if h.config.RunOnce {
		h.config.Log.Info("Tests completed, exiting (run-once mode)")
		h.running.Store(false)
		h.shutdownService()

		if failed {
			h.config.Log.Warn("One or more tests failed, setting exit code to 1")
			return NewRunFailureError(h.result)
		}

		go func() {
			h.shutdownCallback(nil)
		}()
		return nil
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.config.Log.Debug("Starting periodic test runner goroutine", "interval", h.config.RunInterval)

		for {
			select {
			case <-time.After(h.config.RunInterval):
				if !h.running.Load() {
					h.config.Log.Debug("Service stopped, exiting periodic test runner")
					return
				}

				h.config.Log.Info("Running periodic tests")
				if failed, err := h.runTests(ctx); err != nil {
					h.config.Log.Error("Error running periodic tests", "error", err)
				} else if failed {
					h.config.Log.Warn("One or more tests failed in periodic run")
				}
				h.config.Log.Info("Test run interval", "interval", h.config.RunInterval)

			case <-h.done:
				h.config.Log.Debug("Done signal received, stopping periodic test runner")
				return

			case <-ctx.Done():
				h.config.Log.Debug("Context canceled, stopping periodic test runner")
				h.running.Store(false)
				return
			}
		}
	}()
	h.config.Log.Debug("test-harness started successfully")
	return nil
}

// runTests performs one run, prints the results and reports whether it failed.
// The error is only non-nil for runtime errors.
func (h *harness) runTests(ctx context.Context) (bool, error) {
	result, err := h.runner.RunAll(ctx)
	if result == nil {
		if err == nil {
			err = errors.New("runner returned no result")
		}
		return false, NewRuntimeError(err)
	}
	h.result = result

	if err := h.table.Print(h.out, result); err != nil {
		h.config.Log.Warn("Failed to print results table", "err", err)
	}
	fmt.Fprintln(h.out, result.String())

	if err != nil {
		// The run finished but its report could not be written
		return result.Failed, NewRuntimeError(err)
	}

	failed := result.Failed
	if len(result.Results) == 0 {
		switch h.config.EmptyPolicy {
		case flags.EmptyPolicyWarn:
			h.config.Log.Warn("No test executables found", "dir", h.config.TestDir)
		case flags.EmptyPolicyFail:
			h.config.Log.Error("No test executables found, failing run", "dir", h.config.TestDir)
			failed = true
		}
	}

	h.config.Log.Info("Test run completed", "run_id", result.RunID, "status", result.Status(),
		"total", result.Stats.Total, "failed", result.Stats.Failed)
	return failed, nil
}

// Stop stops the test-harness service.
// Stop implements the cliapp.Lifecycle interface.
func (h *harness) Stop(ctx context.Context) error {
	h.config.Log.Info("Stopping test-harness")

	if h.running.Load() {
		h.running.Store(false)
		h.config.Log.Debug("Sending done signal to goroutines")
		close(h.done)
	}

	waitCh := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(waitCh)
	}()
	select {
	case <-waitCh:
	case <-ctx.Done():
		return fmt.Errorf("timed out waiting for test runs to finish: %w", ctx.Err())
	}

	h.shutdownService()
	h.config.Log.Info("test-harness stopped successfully")
	return nil
}

// Stopped returns true if the test-harness service is stopped.
// Stopped implements the cliapp.Lifecycle interface.
func (h *harness) Stopped() bool {
	return !h.running.Load()
}

func (h *harness) shutdownService() {
	h.shutdownOnce.Do(func() {
		if h.service == nil {
			return
		}
		if err := h.service.Shutdown(); err != nil {
			h.config.Log.Warn("Failed to shut down service", "err", err)
		}
	})
}
