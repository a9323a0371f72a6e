package harness

import (
	"errors"
	"fmt"

	"github.com/nswdaq/test-harness/types"
)

// RuntimeError means the harness itself could not do its job, so the report cannot be
// trusted or was never written: the test directory was unreadable, the run was
// interrupted, the report could not be written or the configuration was invalid.
// It maps to exit code 2.
type RuntimeError struct {
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %v", e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func NewRuntimeError(err error) *RuntimeError {
	return &RuntimeError{Err: err}
}

// IsRuntimeError reports whether err is or wraps a RuntimeError.
func IsRuntimeError(err error) bool {
	var runtimeErr *RuntimeError
	return err != nil && errors.As(err, &runtimeErr)
}

// TestFailureError means the run completed and its report was written, but at least
// one test executable failed or timed out, or the empty-run policy rejected a run with
// none. It maps to exit code 1.
type TestFailureError struct {
	Message string
	// Counts of the failing run, zero when built from a message alone
	Failed   int
	TimedOut int
	Total    int
}

func (e *TestFailureError) Error() string {
	return fmt.Sprintf("test failure: %s", e.Message)
}

func NewTestFailureError(message string) *TestFailureError {
	return &TestFailureError{Message: message}
}

// NewRunFailureError summarises a failed run.
func NewRunFailureError(result *types.RunResult) *TestFailureError {
	if result == nil {
		return NewTestFailureError("no result")
	}
	e := &TestFailureError{
		Failed:   result.Stats.Failed,
		TimedOut: result.Stats.TimedOut,
		Total:    result.Stats.Total,
	}
	if e.Total == 0 {
		e.Message = fmt.Sprintf("no test executables found in %s", result.TestDir)
	} else {
		e.Message = fmt.Sprintf("%d of %d test executables failed (%d timed out)", e.Failed, e.Total, e.TimedOut)
	}
	return e
}

// IsTestFailureError reports whether err is or wraps a TestFailureError.
func IsTestFailureError(err error) bool {
	var testErr *TestFailureError
	return err != nil && errors.As(err, &testErr)
}
