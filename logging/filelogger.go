package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/nswdaq/test-harness/types"
)

const (
	RunDirectoryPrefix = "testrun-" // Standardized prefix for run directories
	SummaryFilename    = "summary.log"
	AllLogsFilename    = "all.log"
	PassedDirName      = "passed"
	FailedDirName      = "failed"
)

// ResultSink is an interface for different ways of consuming candidate results
type ResultSink interface {
	// Consume processes a single candidate result as soon as it is available
	Consume(result *types.TestRunResult, runID string) error
	// Complete is called once every candidate of the run has been consumed
	Complete(run *types.RunResult) error
}

var _ ResultSink = (*FileLogger)(nil)

// FileLogger writes per-candidate logs and a run summary under baseDir/testrun-<runID>.
type FileLogger struct {
	baseDir string
	mu      sync.Mutex
}

// NewFileLogger creates a FileLogger rooted at baseDir.
func NewFileLogger(baseDir string) (*FileLogger, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("baseDir cannot be empty")
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", baseDir, err)
	}
	return &FileLogger{baseDir: baseDir}, nil
}

// GetDirectoryForRunID returns the path for a specific runID
func (l *FileLogger) GetDirectoryForRunID(runID string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("runID cannot be empty")
	}
	return filepath.Join(l.baseDir, RunDirectoryPrefix+runID), nil
}

// Consume writes the candidate's log into the passed/ or failed/ directory and appends it to all.log.
func (l *FileLogger) Consume(result *types.TestRunResult, runID string) error {
	runDir, err := l.GetDirectoryForRunID(runID)
	if err != nil {
		return err
	}

	statusDir := PassedDirName
	if result.Failed() {
		statusDir = FailedDirName
	}
	dir := filepath.Join(runDir, statusDir)

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	content := formatCandidateLog(result)
	path := filepath.Join(dir, safeFilename(result.Candidate.Name)+".log")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write candidate log: %w", err)
	}

	all, err := os.OpenFile(filepath.Join(runDir, AllLogsFilename), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", AllLogsFilename, err)
	}
	defer all.Close()
	if _, err := all.WriteString(content + "\n"); err != nil {
		return fmt.Errorf("failed to append to %s: %w", AllLogsFilename, err)
	}
	return nil
}

// Complete writes summary.log for the run.
func (l *FileLogger) Complete(run *types.RunResult) error {
	runDir, err := l.GetDirectoryForRunID(run.RunID)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// A run with no candidates never created its directory.
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", runDir, err)
	}
	if err := os.WriteFile(filepath.Join(runDir, SummaryFilename), []byte(run.String()), 0644); err != nil {
		return fmt.Errorf("failed to write summary file: %w", err)
	}
	return nil
}

func formatCandidateLog(result *types.TestRunResult) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("CANDIDATE: %s\n", result.Candidate.Name))
	b.WriteString(fmt.Sprintf("COMMAND: %s %s\n", result.Candidate.Path(), strings.Join(result.Args, " ")))
	b.WriteString(fmt.Sprintf("STATUS: %s\n", result.Status()))
	b.WriteString(fmt.Sprintf("EXIT CODE: %d\n", result.ExitCode))
	b.WriteString(fmt.Sprintf("TIMED OUT: %t\n", result.TimedOut))
	b.WriteString(fmt.Sprintf("DURATION: %s\n", types.FormatDuration(result.Duration)))
	if result.Error != nil {
		b.WriteString(fmt.Sprintf("ERROR: %s\n", result.Error.Error()))
	}
	if result.Stderr != "" {
		b.WriteString("\nSTDERR:\n")
		b.WriteString(result.Stderr)
		if !strings.HasSuffix(result.Stderr, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("\nREPORT FRAGMENT:\n")
	b.WriteString(result.Fragment)
	return b.String()
}

// safeFilename converts a string to a safe filename by replacing problematic characters
func safeFilename(s string) string {
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
		"\"", "_", "<", "_", ">", "_", "|", "_", " ", "_",
	)
	return replacer.Replace(s)
}
