package reporting

import (
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/nswdaq/test-harness/logging"
	"github.com/nswdaq/test-harness/types"
)

var _ logging.ResultSink = (*ReportSink)(nil)

// ReportSink writes the aggregate JUnit document when a run completes.
type ReportSink struct {
	path string
	log  log.Logger
}

// NewReportSink creates a sink that writes the aggregate report to path.
func NewReportSink(path string, logger log.Logger) (*ReportSink, error) {
	if path == "" {
		return nil, fmt.Errorf("report path cannot be empty")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	return &ReportSink{path: path, log: logger}, nil
}

// Path returns where the report is written.
func (s *ReportSink) Path() string {
	return s.path
}

// Consume is a no-op; fragments are taken from the completed run so their order matches execution.
func (s *ReportSink) Consume(*types.TestRunResult, string) error {
	return nil
}

// Complete writes the aggregate document.
func (s *ReportSink) Complete(run *types.RunResult) error {
	s.log.Info("Writing report", "path", s.path, "fragments", len(run.Results))
	if err := WriteAggregateFile(s.path, run.Fragments()); err != nil {
		return fmt.Errorf("failed to write report %s: %w", s.path, err)
	}
	return nil
}
