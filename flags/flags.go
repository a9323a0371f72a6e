package flags

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
)

const EnvVarPrefix = "TEST_HARNESS"

// EmptyPolicy decides the outcome of a run that found no test executables.
type EmptyPolicy string

const (
	EmptyPolicyPass EmptyPolicy = "pass"
	EmptyPolicyWarn EmptyPolicy = "warn"
	EmptyPolicyFail EmptyPolicy = "fail"
)

// IsValid checks if the policy is known.
func (p EmptyPolicy) IsValid() bool {
	switch p {
	case EmptyPolicyPass, EmptyPolicyWarn, EmptyPolicyFail:
		return true
	default:
		return false
	}
}

func (p EmptyPolicy) String() string {
	return string(p)
}

// ValidEmptyPolicies returns all valid empty-run policies
func ValidEmptyPolicies() []EmptyPolicy {
	return []EmptyPolicy{EmptyPolicyPass, EmptyPolicyWarn, EmptyPolicyFail}
}

func validateEmptyPolicy(v string) error {
	if !EmptyPolicy(v).IsValid() {
		return fmt.Errorf("empty-policy must be one of %v, got %q", ValidEmptyPolicies(), v)
	}
	return nil
}

var (
	TestDir = &cli.StringFlag{
		Name:    "testdir",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TESTDIR"),
		Usage:   "Directory from which to discover test executables",
	}
	Output = &cli.StringFlag{
		Name:    "output",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "OUTPUT"),
		Usage:   "Path of the aggregate JUnit report to write",
	}
	Profile = &cli.StringFlag{
		Name:    "profile",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PROFILE"),
		Usage:   "Optional YAML or TOML file with defaults for the run settings. Flags set explicitly take precedence.",
	}
	Convention = &cli.StringFlag{
		Name:    "convention",
		Value:   "stdout",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CONVENTION"),
		Usage:   "How test executables hand back their report: 'stdout' (filtered stdout) or 'sink' (--log_sink file)",
	}
	Timeout = &cli.DurationFlag{
		Name:    "timeout",
		Value:   10 * time.Second,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TIMEOUT"),
		Usage:   "Timeout for each test executable; it is killed and recorded as failed when exceeded",
	}
	TestArgs = &cli.StringSliceFlag{
		Name:    "test-arg",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TEST_ARG"),
		Usage:   "Argument passed to every test executable, repeatable. Replaces the Boost.Test JUnit defaults.",
	}
	LogMarker = &cli.StringFlag{
		Name:    "log-marker",
		Value:   "LOG",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "LOG_MARKER"),
		Usage:   "Stdout lines containing this marker are treated as logging and dropped from the report",
	}
	SinkDir = &cli.StringFlag{
		Name:    "sink-dir",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SINK_DIR"),
		Usage:   "Directory for report sink files in 'sink' convention. Defaults to the test directory.",
	}
	EmptyPolicyFlag = &cli.StringFlag{
		Name:    "empty-policy",
		Value:   string(EmptyPolicyPass),
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "EMPTY_POLICY"),
		Usage:   "Outcome when no test executables are found: 'pass', 'warn' or 'fail'",
		Action: func(_ *cli.Context, v string) error {
			return validateEmptyPolicy(v)
		},
	}
	FragmentMode = &cli.StringFlag{
		Name:    "fragment-mode",
		Value:   "passthrough",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "FRAGMENT_MODE"),
		Usage:   "'passthrough' copies report fragments as-is; 'validate' replaces malformed fragments with an error suite",
	}
	RunInterval = &cli.DurationFlag{
		Name:    "run-interval",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RUN_INTERVAL"),
		Usage:   "Interval between test runs (e.g. '1h', '30m'). Set to 0 or omit for run-once mode.",
	}
	LogDir = &cli.StringFlag{
		Name:    "logdir",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "LOGDIR"),
		Usage:   "Directory for per-run logs (testrun-<id>/passed, failed, summary.log). Disabled when empty.",
	}
)

var requiredFlags = []cli.Flag{
	TestDir,
	Output,
}

var optionalFlags = []cli.Flag{
	Profile,
	Convention,
	Timeout,
	TestArgs,
	LogMarker,
	SinkDir,
	EmptyPolicyFlag,
	FragmentMode,
	RunInterval,
	LogDir,
}

var Flags []cli.Flag

// ListFlags are the flags of the list subcommand.
var ListFlags = []cli.Flag{
	TestDir,
}

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)
	optionalFlags = append(optionalFlags, opmetrics.CLIFlags(EnvVarPrefix)...)

	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return nil
}
