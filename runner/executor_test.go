package runner

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nswdaq/test-harness/types"
)

func TestNewCandidateExecutor(t *testing.T) {
	validStrategy := NewStdoutStrategy(DefaultLogMarker)
	validCmdBuilder := CommandBuilder(DefaultCommandBuilder)
	validLogger := log.New()

	tests := []struct {
		name        string
		timeout     time.Duration
		strategy    ExtractionStrategy
		cmdBuilder  CommandBuilder
		logger      log.Logger
		expectError bool
		errorMsg    string
	}{
		{
			name:       "valid inputs should succeed",
			timeout:    time.Second,
			strategy:   validStrategy,
			cmdBuilder: validCmdBuilder,
			logger:     validLogger,
		},
		{
			name:       "zero timeout should use default and succeed",
			timeout:    0,
			strategy:   validStrategy,
			cmdBuilder: validCmdBuilder,
			logger:     validLogger,
		},
		{
			name:        "nil strategy should return error",
			timeout:     time.Second,
			strategy:    nil,
			cmdBuilder:  validCmdBuilder,
			logger:      validLogger,
			expectError: true,
			errorMsg:    "strategy cannot be nil",
		},
		{
			name:        "nil cmdBuilder should return error",
			timeout:     time.Second,
			strategy:    validStrategy,
			cmdBuilder:  nil,
			logger:      validLogger,
			expectError: true,
			errorMsg:    "cmdBuilder cannot be nil",
		},
		{
			name:        "nil logger should return error",
			timeout:     time.Second,
			strategy:    validStrategy,
			cmdBuilder:  validCmdBuilder,
			logger:      nil,
			expectError: true,
			errorMsg:    "logger cannot be nil",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executor, err := NewCandidateExecutor(tt.timeout, nil, tt.strategy, tt.cmdBuilder, tt.logger)
			if tt.expectError {
				require.Error(t, err)
				assert.Equal(t, tt.errorMsg, err.Error())
				assert.Nil(t, executor)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, executor)
		})
	}

	executor, err := NewCandidateExecutor(0, nil, validStrategy, validCmdBuilder, validLogger)
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, executor.(*candidateExecutor).timeout)
	assert.Equal(t, DefaultCandidateArgs, executor.(*candidateExecutor).args)
}

func newTestExecutor(t *testing.T, timeout time.Duration, strategy ExtractionStrategy) CandidateExecutor {
	t.Helper()
	executor, err := NewCandidateExecutor(timeout, nil, strategy, DefaultCommandBuilder, log.New())
	require.NoError(t, err)
	return executor
}

func TestExecute_Pass(t *testing.T) {
	dir := t.TempDir()
	writeCandidate(t, dir, "testPass", `
[ "$1" = "--catch_system_error=yes" ] || exit 9
[ "$2" = "--report_level=no" ] || exit 9
[ "$3" = "--log_format=JUNIT" ] || exit 9
[ -f ./testPass ] || exit 8
echo '<?xml version="1.0" encoding="UTF-8"?>'
echo 'LOG: opening device'
echo '<testsuite tests="1" name="pass">'
echo '<testcase name="works"/>'
echo '</testsuite>'
exit 0`)

	executor := newTestExecutor(t, 5*time.Second, NewStdoutStrategy(DefaultLogMarker))
	result := executor.Execute(context.Background(), types.Candidate{Name: "testPass", Dir: dir})

	require.NoError(t, result.Error)
	assert.Equal(t, 0, result.ExitCode)
	assert.False(t, result.TimedOut)
	assert.False(t, result.Failed())
	assert.Equal(t, DefaultCandidateArgs, result.Args)
	assert.Equal(t, "<testsuite tests=\"1\" name=\"pass\">\n<testcase name=\"works\"/>\n</testsuite>\n", result.Fragment)
	assert.Greater(t, result.Duration, time.Duration(0))
}

func TestExecute_Fail(t *testing.T) {
	dir := t.TempDir()
	writeCandidate(t, dir, "testFail", `
echo '<testsuite name="fail"><testcase name="broken"><failure/></testcase></testsuite>'
echo 'check failed: value != 3' >&2
exit 3`)

	executor := newTestExecutor(t, 5*time.Second, NewStdoutStrategy(DefaultLogMarker))
	result := executor.Execute(context.Background(), types.Candidate{Name: "testFail", Dir: dir})

	assert.Equal(t, 3, result.ExitCode)
	assert.True(t, result.Failed())
	assert.Equal(t, types.TestStatusFail, result.Status())
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "candidate exited with code 3")
	assert.Contains(t, result.Error.Error(), "check failed: value != 3")
	assert.Contains(t, result.Stderr, "check failed")
	assert.Contains(t, result.Fragment, `<testsuite name="fail">`)
}

func TestExecute_Timeout(t *testing.T) {
	dir := t.TempDir()
	writeCandidate(t, dir, "testSlow", `
echo '<testsuite name="slow">'
exec sleep 30`)

	executor := newTestExecutor(t, 200*time.Millisecond, NewStdoutStrategy(DefaultLogMarker))
	start := time.Now()
	result := executor.Execute(context.Background(), types.Candidate{Name: "testSlow", Dir: dir})

	assert.Less(t, time.Since(start), 10*time.Second)
	assert.True(t, result.TimedOut)
	assert.Equal(t, types.NoExitCode, result.ExitCode)
	assert.Equal(t, types.TestStatusError, result.Status())
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "timed out")
	assert.Equal(t, "<testsuite name=\"slow\">\n", result.Fragment)
}

func TestExecute_MissingExecutable(t *testing.T) {
	dir := t.TempDir()

	executor := newTestExecutor(t, time.Second, NewStdoutStrategy(DefaultLogMarker))
	result := executor.Execute(context.Background(), types.Candidate{Name: "testGone", Dir: dir})

	assert.Equal(t, types.NoExitCode, result.ExitCode)
	assert.False(t, result.TimedOut)
	assert.True(t, result.Failed())
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "failed to run candidate")
	assert.Empty(t, result.Fragment)
}

func TestExecute_CustomArgs(t *testing.T) {
	dir := t.TempDir()
	writeCandidate(t, dir, "testArgs", `echo "<args count=\"$#\" first=\"$1\"/>"`)

	executor, err := NewCandidateExecutor(time.Second, []string{"--only"}, NewStdoutStrategy(DefaultLogMarker),
		DefaultCommandBuilder, log.New())
	require.NoError(t, err)
	result := executor.Execute(context.Background(), types.Candidate{Name: "testArgs", Dir: dir})

	require.NoError(t, result.Error)
	assert.Equal(t, "<args count=\"1\" first=\"--only\"/>\n", result.Fragment)
}

func TestExecute_CommandBuilder(t *testing.T) {
	dir := t.TempDir()
	var gotName string
	var gotArgs []string
	builder := func(ctx context.Context, name string, arg ...string) *exec.Cmd {
		gotName, gotArgs = name, arg
		return exec.CommandContext(ctx, "/bin/sh", "-c", "echo '<testsuite name=\"wrapped\"/>'")
	}

	executor, err := NewCandidateExecutor(time.Second, nil, NewStdoutStrategy(DefaultLogMarker), builder, log.New())
	require.NoError(t, err)
	result := executor.Execute(context.Background(), types.Candidate{Name: "testWrapped", Dir: dir})

	require.NoError(t, result.Error)
	assert.Equal(t, filepath.Join(dir, "testWrapped"), gotName)
	assert.Equal(t, DefaultCandidateArgs, gotArgs)
	assert.Equal(t, "<testsuite name=\"wrapped\"/>\n", result.Fragment)
}

const sinkWriterScript = `
for arg in "$@"; do
  case "$arg" in
    --log_sink=*) sink="${arg#--log_sink=}" ;;
  esac
done
[ -n "$sink" ] || exit 9
echo 'LOG: running'
printf '<?xml version="1.0" encoding="UTF-8"?>\n<testsuite name="sink"/>\n' > "$sink"`

func TestExecute_SinkConvention(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		timeout      time.Duration
		wantFragment string
		wantExit     int
		wantTimedOut bool
		wantErr      string
	}{
		{
			name:         "pass",
			body:         sinkWriterScript + "\nexit 0",
			timeout:      5 * time.Second,
			wantFragment: "<testsuite name=\"sink\"/>\n",
			wantExit:     0,
		},
		{
			name:         "fail",
			body:         sinkWriterScript + "\nexit 4",
			timeout:      5 * time.Second,
			wantFragment: "<testsuite name=\"sink\"/>\n",
			wantExit:     4,
			wantErr:      "candidate exited with code 4",
		},
		{
			name:         "timeout",
			body:         sinkWriterScript + "\nexec sleep 30",
			timeout:      200 * time.Millisecond,
			wantFragment: "<testsuite name=\"sink\"/>\n",
			wantExit:     types.NoExitCode,
			wantTimedOut: true,
			wantErr:      "timed out",
		},
		{
			name:     "sink not written",
			body:     "exit 0",
			timeout:  5 * time.Second,
			wantExit: types.NoExitCode,
			wantErr:  "did not write report sink",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeCandidate(t, dir, "testSink", tt.body)
			strategy := NewSinkFileStrategy("")
			candidate := types.Candidate{Name: "testSink", Dir: dir}

			executor := newTestExecutor(t, tt.timeout, strategy)
			result := executor.Execute(context.Background(), candidate)

			assert.Equal(t, tt.wantExit, result.ExitCode)
			assert.Equal(t, tt.wantTimedOut, result.TimedOut)
			assert.Equal(t, tt.wantFragment, result.Fragment)
			assert.Len(t, result.Args, len(DefaultCandidateArgs)+1)
			if tt.wantErr == "" {
				require.NoError(t, result.Error)
			} else {
				require.Error(t, result.Error)
				assert.Contains(t, result.Error.Error(), tt.wantErr)
			}

			assert.NoFileExists(t, strategy.SinkPath(candidate))
			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Len(t, entries, 1, "only the candidate should remain")
		})
	}
}

func TestExecute_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	writeCandidate(t, dir, "testCancel", "exec sleep 30")

	ctx, cancel := context.WithCancel(context.Background())
	executor := newTestExecutor(t, 10*time.Second, NewStdoutStrategy(DefaultLogMarker))

	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	result := executor.Execute(ctx, types.Candidate{Name: "testCancel", Dir: dir})

	assert.False(t, result.TimedOut)
	assert.True(t, result.Failed())
}

func TestExecute_StdoutLimit(t *testing.T) {
	dir := t.TempDir()
	writeCandidate(t, dir, "testChatty", `
echo '<testsuite name="chatty"/>'
i=0
while [ $i -lt 200 ]; do
  echo "padding line $i"
  i=$((i+1))
done
exit 0`)

	executor := newTestExecutor(t, 5*time.Second, NewStdoutStrategy(DefaultLogMarker))
	executor.(*candidateExecutor).stdoutLimit = 64
	result := executor.Execute(context.Background(), types.Candidate{Name: "testChatty", Dir: dir})

	assert.True(t, result.Failed())
	assert.Equal(t, types.NoExitCode, result.ExitCode)
	assert.False(t, result.TimedOut)
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "stdout exceeded 64 bytes")
	assert.True(t, strings.HasPrefix(result.Fragment, "<testsuite name=\"chatty\"/>\n"))
	assert.LessOrEqual(t, len(result.Fragment), 64+1)
}
