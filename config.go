package harness

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"

	"github.com/nswdaq/test-harness/flags"
	"github.com/nswdaq/test-harness/profile"
	"github.com/nswdaq/test-harness/reporting"
	"github.com/nswdaq/test-harness/runner"
)

// Config holds the application configuration
type Config struct {
	TestDir       string                 // Absolute directory to discover test executables in
	Output        string                 // Absolute path of the aggregate report
	Convention    runner.Convention      // How test executables hand back their report
	Timeout       time.Duration          // Per test executable timeout
	CandidateArgs []string               // Arguments passed to every test executable
	LogMarker     string                 // Marker identifying log lines on stdout
	SinkDir       string                 // Directory for report sink files, empty for the test directory
	EmptyPolicy   flags.EmptyPolicy      // Outcome of a run with no test executables
	FragmentMode  reporting.FragmentMode // Fragment handling before aggregation
	RunInterval   time.Duration          // Interval between test runs
	RunOnce       bool                   // Indicates if the service should exit after one test run
	LogDir        string                 // Directory for per-run logs, empty to disable
	Metrics       opmetrics.CLIConfig
	Log           log.Logger
}

// NewConfig creates a new Config from cli context. Settings come from explicitly set
// flags first, then the profile file if one is given, then flag defaults.
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}
	if log == nil {
		return nil, errors.New("logger is required")
	}

	testDir := ctx.String(flags.TestDir.Name)
	if testDir == "" {
		return nil, errors.New("test directory is required")
	}
	output := ctx.String(flags.Output.Name)
	if output == "" {
		return nil, errors.New("output path is required")
	}

	prof := &profile.Profile{}
	if path := ctx.String(flags.Profile.Name); path != "" {
		var err error
		if prof, err = profile.Load(path); err != nil {
			return nil, fmt.Errorf("failed to load profile '%s': %w", path, err)
		}
	}

	convention := runner.Convention(stringSetting(ctx, flags.Convention, prof.Convention))
	if !convention.IsValid() {
		return nil, fmt.Errorf("invalid convention: %s. Must be one of: %s, %s",
			convention, runner.ConventionStdout, runner.ConventionSink)
	}

	emptyPolicy := flags.EmptyPolicy(stringSetting(ctx, flags.EmptyPolicyFlag, prof.EmptyPolicy))
	if !emptyPolicy.IsValid() {
		return nil, fmt.Errorf("invalid empty policy: %s. Must be one of: %v", emptyPolicy, flags.ValidEmptyPolicies())
	}

	fragmentMode := reporting.FragmentMode(stringSetting(ctx, flags.FragmentMode, prof.FragmentMode))
	if !fragmentMode.IsValid() {
		return nil, fmt.Errorf("invalid fragment mode: %s. Must be one of: %s, %s",
			fragmentMode, reporting.FragmentModePassthrough, reporting.FragmentModeValidate)
	}

	timeout := durationSetting(ctx, flags.Timeout, prof.TimeoutDuration())
	if timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %s", timeout)
	}

	runInterval := durationSetting(ctx, flags.RunInterval, prof.RunIntervalDuration())
	if runInterval < 0 {
		return nil, fmt.Errorf("run interval cannot be negative, got %s", runInterval)
	}

	args := runner.DefaultCandidateArgs
	if ctx.IsSet(flags.TestArgs.Name) {
		args = ctx.StringSlice(flags.TestArgs.Name)
	} else if prof.Args != nil {
		args = prof.Args
	}

	logMarker := ctx.String(flags.LogMarker.Name)
	if !ctx.IsSet(flags.LogMarker.Name) && prof.LogMarker != nil {
		logMarker = *prof.LogMarker
	}

	absTestDir, err := filepath.Abs(testDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for test directory '%s': %w", testDir, err)
	}
	absOutput, err := filepath.Abs(output)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for output '%s': %w", output, err)
	}
	sinkDir, err := optionalAbs(stringSetting(ctx, flags.SinkDir, prof.SinkDir))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for sink directory: %w", err)
	}
	logDir, err := optionalAbs(stringSetting(ctx, flags.LogDir, prof.LogDir))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for log directory: %w", err)
	}

	metricsCfg := opmetrics.ReadCLIConfig(ctx)
	if err := metricsCfg.Check(); err != nil {
		return nil, fmt.Errorf("invalid metrics config: %w", err)
	}

	return &Config{
		TestDir:       absTestDir,
		Output:        absOutput,
		Convention:    convention,
		Timeout:       timeout,
		CandidateArgs: args,
		LogMarker:     logMarker,
		SinkDir:       sinkDir,
		EmptyPolicy:   emptyPolicy,
		FragmentMode:  fragmentMode,
		RunInterval:   runInterval,
		RunOnce:       runInterval == 0,
		LogDir:        logDir,
		Metrics:       metricsCfg,
		Log:           log,
	}, nil
}

// stringSetting prefers an explicitly set flag, then the profile value, then the flag default.
func stringSetting(ctx *cli.Context, flag *cli.StringFlag, profileValue string) string {
	if !ctx.IsSet(flag.Name) && profileValue != "" {
		return profileValue
	}
	return ctx.String(flag.Name)
}

func durationSetting(ctx *cli.Context, flag *cli.DurationFlag, profileValue time.Duration) time.Duration {
	if !ctx.IsSet(flag.Name) && profileValue != 0 {
		return profileValue
	}
	return ctx.Duration(flag.Name)
}

func optionalAbs(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	return filepath.Abs(path)
}
