package runner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nswdaq/test-harness/types"
)

// Convention names the way a candidate hands back its report.
type Convention string

const (
	ConventionStdout Convention = "stdout"
	ConventionSink   Convention = "sink"
)

// IsValid checks if the convention is one we know how to extract.
func (c Convention) IsValid() bool {
	switch c {
	case ConventionStdout, ConventionSink:
		return true
	default:
		return false
	}
}

func (c Convention) String() string {
	return string(c)
}

// ExtractionStrategy pulls a report fragment out of a finished candidate.
type ExtractionStrategy interface {
	// Convention identifies the strategy.
	Convention() Convention
	// Prepare readies the strategy for a run and returns extra candidate arguments.
	Prepare(candidate types.Candidate) ([]string, error)
	// Extract builds the fragment from the candidate's captured stdout and any side files.
	Extract(candidate types.Candidate, stdout []byte) (string, error)
	// Cleanup removes anything Prepare or the candidate left behind. Always called.
	Cleanup(candidate types.Candidate) error
}

// NewExtractionStrategy builds the strategy for a convention.
func NewExtractionStrategy(convention Convention, logMarker, sinkDir string) (ExtractionStrategy, error) {
	switch convention {
	case ConventionStdout:
		return NewStdoutStrategy(logMarker), nil
	case ConventionSink:
		return NewSinkFileStrategy(sinkDir), nil
	default:
		return nil, fmt.Errorf("unknown report convention: %q", convention)
	}
}

var _ ExtractionStrategy = (*stdoutStrategy)(nil)

// stdoutStrategy keeps the report lines a candidate interleaves with its logging on stdout.
type stdoutStrategy struct {
	classifier LineClassifier
}

// NewStdoutStrategy creates a strategy that filters stdout with the given log marker.
func NewStdoutStrategy(logMarker string) ExtractionStrategy {
	return &stdoutStrategy{classifier: NewLineClassifier(logMarker)}
}

func (s *stdoutStrategy) Convention() Convention { return ConventionStdout }

func (s *stdoutStrategy) Prepare(types.Candidate) ([]string, error) { return nil, nil }

func (s *stdoutStrategy) Extract(_ types.Candidate, stdout []byte) (string, error) {
	return s.classifier.FilterString(string(stdout)), nil
}

func (s *stdoutStrategy) Cleanup(types.Candidate) error { return nil }

var _ ExtractionStrategy = (*SinkFileStrategy)(nil)

// SinkFileStrategy asks the candidate to write its report to a file and reads it back.
type SinkFileStrategy struct {
	dir        string
	classifier LineClassifier
}

// NewSinkFileStrategy creates a sink strategy. An empty dir puts sink files next to the candidate.
func NewSinkFileStrategy(dir string) *SinkFileStrategy {
	return &SinkFileStrategy{
		dir:        dir,
		classifier: NewLineClassifier(""),
	}
}

func (s *SinkFileStrategy) Convention() Convention { return ConventionSink }

// SinkPath returns where the candidate's report is written.
func (s *SinkFileStrategy) SinkPath(candidate types.Candidate) string {
	dir := s.dir
	if dir == "" {
		dir = candidate.Dir
	}
	return filepath.Join(dir, candidate.Name+SinkFileSuffix)
}

func (s *SinkFileStrategy) Prepare(candidate types.Candidate) ([]string, error) {
	path := s.SinkPath(candidate)
	if err := removeIfExists(path); err != nil {
		return nil, fmt.Errorf("failed to remove stale report sink: %w", err)
	}
	return []string{fmt.Sprintf("%s=%s", LogSinkFlag, path)}, nil
}

func (s *SinkFileStrategy) Extract(candidate types.Candidate, _ []byte) (string, error) {
	path := s.SinkPath(candidate)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("candidate did not write report sink %s", path)
		}
		return "", fmt.Errorf("failed to open report sink: %w", err)
	}
	defer f.Close()

	return s.classifier.Filter(f)
}

func (s *SinkFileStrategy) Cleanup(candidate types.Candidate) error {
	return removeIfExists(s.SinkPath(candidate))
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
