package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/optimism/devnet-sdk/telemetry"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
	"github.com/ethereum-optimism/optimism/op-service/ctxinterrupt"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"

	harness "github.com/nswdaq/test-harness"
	"github.com/nswdaq/test-harness/discovery"
	"github.com/nswdaq/test-harness/exitcodes"
	"github.com/nswdaq/test-harness/flags"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := newApp(os.Stdout)

	// Start telemetry
	ctx, shutdown, err := telemetry.SetupOpenTelemetry(
		context.Background(),
		otelconfig.WithServiceName(app.Name),
		otelconfig.WithServiceVersion(app.Version),
	)
	if err != nil {
		log.Crit("Failed to setup open telemetry", "message", err)
	}
	defer shutdown()

	// Start CLI
	ctx = ctxinterrupt.WithSignalWaiterMain(ctx)
	err = app.RunContext(ctx, os.Args)
	if err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func newApp(out io.Writer) *cli.App {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "test-harness"
	app.Usage = "Unit test executable runner and JUnit report aggregator"
	app.Description = "test-harness discovers test executables in a directory, runs each one with a timeout " +
		"and merges their JUnit output into a single report"
	app.Writer = out
	app.Flags = cliapp.ProtectFlags(flags.Flags)
	app.Action = cliapp.LifecycleCmd(run)
	app.Commands = []*cli.Command{
		{
			Name:   "list",
			Usage:  "List the test executables that would be run",
			Flags:  cliapp.ProtectFlags(flags.ListFlags),
			Action: list,
		},
	}
	app.ExitErrHandler = func(c *cli.Context, err error) {
		if err == nil {
			return
		}
		cli.HandleExitCoder(cli.Exit(err.Error(), exitCode(err)))
	}
	return app
}

// exitCode maps an application error to the process exit code.
func exitCode(err error) int {
	var exitErr cli.ExitCoder
	switch {
	case err == nil:
		return exitcodes.Success
	case harness.IsRuntimeError(err):
		return exitcodes.RuntimeErr
	case harness.IsTestFailureError(err):
		return exitcodes.TestFailure
	case errors.As(err, &exitErr):
		return exitErr.ExitCode()
	default:
		// Flag parsing and other unspecified errors
		return exitcodes.RuntimeErr
	}
}

func run(ctx *cli.Context, closeApp context.CancelCauseFunc) (cliapp.Lifecycle, error) {
	logCfg := oplog.ReadCLIConfig(ctx)
	log := oplog.NewLogger(oplog.AppOut(ctx), logCfg)
	oplog.SetGlobalLogHandler(log.Handler())
	oplog.SetupDefaults()

	cfg, err := harness.NewConfig(ctx, log)
	if err != nil {
		// Wrap in RuntimeError to signal this should exit with code 2
		return nil, harness.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	cfg.Log.Debug("Config", "config", cfg)

	h, err := harness.New(ctx.Context, cfg, Version, closeApp)
	if err != nil {
		return nil, harness.NewRuntimeError(fmt.Errorf("failed to create harness: %w", err))
	}

	return h, nil
}

// list prints the discovered test executables, one per line.
func list(ctx *cli.Context) error {
	testDir := ctx.String(flags.TestDir.Name)
	if testDir == "" {
		return harness.NewRuntimeError(errors.New("flag testdir is required"))
	}
	candidates, err := discovery.Discover(testDir)
	if err != nil {
		return harness.NewRuntimeError(err)
	}
	for _, c := range candidates {
		if _, err := fmt.Fprintln(ctx.App.Writer, c.Name); err != nil {
			return harness.NewRuntimeError(err)
		}
	}
	return nil
}
