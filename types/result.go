package types

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// TestStatus represents the possible states of a candidate execution
type TestStatus string

const (
	TestStatusPass  TestStatus = "pass"
	TestStatusFail  TestStatus = "fail"
	TestStatusError TestStatus = "error"
)

// NoExitCode is recorded when the process never produced an exit status (timeout, start failure).
const NoExitCode = -1

// Candidate is a directory entry that passed the discovery filter.
type Candidate struct {
	Name string // Entry name relative to Dir
	Dir  string // Absolute directory the candidate lives in
}

// Path returns the full path to the candidate executable.
func (c Candidate) Path() string {
	return filepath.Join(c.Dir, c.Name)
}

// TestRunResult captures the outcome of a single candidate run
type TestRunResult struct {
	Candidate Candidate
	Fragment  string        // Extracted report fragment, possibly empty or partial
	ExitCode  int           // Process exit code, non-zero on any failure
	TimedOut  bool          // Process was killed at the timeout
	Duration  time.Duration // Wall time of the child process
	Error     error         // Why the candidate failed, if it did
	Stderr    string        // Tail of the child's stderr
	Args      []string      // Arguments passed to the child
}

// Failed reports whether this result counts against the run.
func (r *TestRunResult) Failed() bool {
	return r.ExitCode != 0 || r.TimedOut
}

// Status maps the result to a TestStatus.
func (r *TestRunResult) Status() TestStatus {
	switch {
	case r.TimedOut:
		return TestStatusError
	case r.Failed():
		return TestStatusFail
	default:
		return TestStatusPass
	}
}

// RunStats tracks run statistics
type RunStats struct {
	Total    int
	Passed   int
	Failed   int
	TimedOut int
}

// RunResult is the accumulated outcome of one discovery/execution pass.
type RunResult struct {
	RunID    string
	TestDir  string
	Results  []*TestRunResult
	Failed   bool // Sticky: set once any result failed
	Stats    RunStats
	Duration time.Duration
}

// NewRunResult creates an empty accumulator for a run.
func NewRunResult(runID, testDir string) *RunResult {
	return &RunResult{
		RunID:   runID,
		TestDir: testDir,
		Results: make([]*TestRunResult, 0),
	}
}

// Add folds a candidate result into the run.
func (r *RunResult) Add(result *TestRunResult) *RunResult {
	r.Results = append(r.Results, result)
	r.Stats.Total++
	if result.TimedOut {
		r.Stats.TimedOut++
	}
	if result.Failed() {
		r.Stats.Failed++
		r.Failed = true
	} else {
		r.Stats.Passed++
	}
	return r
}

// Status returns the overall status of the run.
func (r *RunResult) Status() TestStatus {
	if r.Failed {
		return TestStatusFail
	}
	return TestStatusPass
}

// Fragments returns every fragment in execution order.
func (r *RunResult) Fragments() []string {
	fragments := make([]string, 0, len(r.Results))
	for _, res := range r.Results {
		fragments = append(fragments, res.Fragment)
	}
	return fragments
}

// FormatDuration formats the duration to seconds with 1 decimal place
func FormatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// String returns a formatted string representation of the run
func (r *RunResult) String() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Unit Test Results (%s):\n", FormatDuration(r.Duration)))
	b.WriteString(fmt.Sprintf("Total: %d, Passed: %d, Failed: %d, Timed out: %d\n",
		r.Stats.Total, r.Stats.Passed, r.Stats.Failed, r.Stats.TimedOut))

	for i, res := range r.Results {
		prefix := "├──"
		if i == len(r.Results)-1 {
			prefix = "└──"
		}
		b.WriteString(fmt.Sprintf("%s %s (%s) [status=%s exit=%d]\n",
			prefix, res.Candidate.Name, FormatDuration(res.Duration), res.Status(), res.ExitCode))
		if res.Error != nil {
			b.WriteString(fmt.Sprintf("│       └── Error: %s\n", res.Error.Error()))
		}
	}
	return b.String()
}
