package runner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nswdaq/test-harness/types"
)

var _ CandidateExecutor = (*candidateExecutor)(nil)

// CandidateExecutor runs a single test executable.
type CandidateExecutor interface {
	// Execute runs the candidate to completion or timeout. It always returns a result;
	// failures of any kind are recorded in it rather than returned.
	Execute(ctx context.Context, candidate types.Candidate) *types.TestRunResult
}

// CommandBuilder creates the command for a candidate, letting tests swap in their own process.
type CommandBuilder func(ctx context.Context, name string, arg ...string) *exec.Cmd

// candidateExecutor implements CandidateExecutor
type candidateExecutor struct {
	timeout     time.Duration
	stdoutLimit int
	args        []string
	strategy    ExtractionStrategy
	cmdBuilder  CommandBuilder
	log         log.Logger
	tracer      trace.Tracer
}

// NewCandidateExecutor creates a new candidate executor. A non-positive timeout falls
// back to DefaultTimeout; a nil args slice falls back to DefaultCandidateArgs.
func NewCandidateExecutor(timeout time.Duration, args []string, strategy ExtractionStrategy,
	cmdBuilder CommandBuilder, logger log.Logger) (CandidateExecutor, error) {

	if strategy == nil {
		return nil, fmt.Errorf("strategy cannot be nil")
	}
	if cmdBuilder == nil {
		return nil, fmt.Errorf("cmdBuilder cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if args == nil {
		args = DefaultCandidateArgs
	}

	return &candidateExecutor{
		timeout:     timeout,
		stdoutLimit: defaultStdoutLimitBytes,
		args:        append([]string(nil), args...),
		strategy:    strategy,
		cmdBuilder:  cmdBuilder,
		log:         logger,
		tracer:      otel.Tracer("candidate executor"),
	}, nil
}

// DefaultCommandBuilder runs the candidate directly and kills it when ctx ends.
func DefaultCommandBuilder(ctx context.Context, name string, arg ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, arg...)
	cmd.WaitDelay = waitDelay
	return cmd
}

// Execute implements CandidateExecutor
func (e *candidateExecutor) Execute(ctx context.Context, candidate types.Candidate) *types.TestRunResult {
	ctx, span := e.tracer.Start(ctx, fmt.Sprintf("candidate %s", candidate.Name))
	defer span.End()

	result := &types.TestRunResult{Candidate: candidate}
	defer func() {
		if err := e.strategy.Cleanup(candidate); err != nil {
			e.log.Warn("Failed to clean up after candidate", "candidate", candidate.Name, "err", err)
		}
		span.SetAttributes(
			attribute.Int("exit_code", result.ExitCode),
			attribute.Bool("timed_out", result.TimedOut),
		)
		if result.Failed() {
			span.SetStatus(codes.Error, "candidate failed")
		}
	}()

	extraArgs, err := e.strategy.Prepare(candidate)
	if err != nil {
		result.ExitCode = types.NoExitCode
		result.Error = fmt.Errorf("failed to prepare candidate: %w", err)
		return result
	}
	result.Args = append(append([]string(nil), e.args...), extraArgs...)

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := e.cmdBuilder(runCtx, candidate.Path(), result.Args...)
	cmd.Dir = candidate.Dir

	stdout := newCappedBuffer(e.stdoutLimit)
	stderr := newTailBuffer(defaultStderrTailBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	e.log.Debug("Running candidate command",
		"dir", cmd.Dir,
		"command", cmd.String(),
		"timeout", e.timeout,
		"convention", e.strategy.Convention())

	startTime := time.Now()
	runErr := cmd.Run()
	result.Duration = time.Since(startTime)
	result.Stderr = stderr.String()

	started := cmd.ProcessState != nil
	result.ExitCode, result.Error = exitStatus(runErr)
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		result.TimedOut = true
		if result.ExitCode == 0 {
			result.ExitCode = types.NoExitCode
		}
		result.Error = fmt.Errorf("candidate timed out after %v", e.timeout)
	}

	if stdout.Overflowed() {
		e.log.Warn("Candidate stdout exceeded limit, output truncated", "candidate", candidate.Name, "limit", e.stdoutLimit)
		if result.ExitCode == 0 {
			result.ExitCode = types.NoExitCode
		}
		if result.Error == nil {
			result.Error = fmt.Errorf("candidate stdout exceeded %d bytes", e.stdoutLimit)
		}
	}

	if started {
		fragment, err := e.strategy.Extract(candidate, stdout.Bytes())
		result.Fragment = fragment
		if err != nil {
			e.log.Warn("Failed to extract report fragment", "candidate", candidate.Name, "err", err)
			if result.ExitCode == 0 {
				result.ExitCode = types.NoExitCode
			}
			if result.Error == nil {
				result.Error = fmt.Errorf("failed to extract report: %w", err)
			}
		}
	}

	if result.Error != nil && result.Stderr != "" {
		result.Error = fmt.Errorf("%w\nstderr: %s", result.Error, strings.TrimSpace(result.Stderr))
	}
	if result.Failed() {
		span.RecordError(result.Error)
	}
	return result
}

// exitStatus maps the error from Cmd.Run to an exit code and a failure reason.
func exitStatus(runErr error) (int, error) {
	if runErr == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		// A child killed by a signal reports -1, same as NoExitCode.
		code := exitErr.ExitCode()
		return code, fmt.Errorf("candidate exited with code %d", code)
	}
	return types.NoExitCode, fmt.Errorf("failed to run candidate: %w", runErr)
}
