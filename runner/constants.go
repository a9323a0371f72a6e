package runner

import "time"

// Candidate execution constants
const (
	// DefaultTimeout is the default ceiling for a single candidate
	DefaultTimeout = 10 * time.Second

	// DefaultLogMarker identifies incidental log lines on a candidate's stdout
	DefaultLogMarker = "LOG"

	// XML declaration markers, a line holding both is a prolog
	PrologOpenMarker  = "<?xml"
	PrologCloseMarker = "?>"

	// Boost.Test arguments requesting JUnit output on stdout
	CatchSystemErrorFlag = "--catch_system_error=yes"
	ReportLevelFlag      = "--report_level=no"
	LogFormatFlag        = "--log_format=JUNIT"

	// LogSinkFlag redirects the JUnit log to a file
	LogSinkFlag = "--log_sink"

	// SinkFileSuffix is appended to the candidate name for sink files. The dot keeps
	// a leftover file from ever passing discovery.
	SinkFileSuffix = ".junit.xml"

	// waitDelay bounds how long Wait keeps draining pipes after the child is killed
	waitDelay = 2 * time.Second

	// defaultStderrTailBytes is the amount of stderr kept per candidate
	defaultStderrTailBytes = 64 * 1024

	// defaultStdoutLimitBytes caps captured stdout per candidate; a candidate exceeding
	// it fails
	defaultStdoutLimitBytes = 64 * 1024 * 1024
)

// DefaultCandidateArgs are passed to every candidate unless overridden.
var DefaultCandidateArgs = []string{CatchSystemErrorFlag, ReportLevelFlag, LogFormatFlag}
