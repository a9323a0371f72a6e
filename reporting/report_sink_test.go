package reporting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nswdaq/test-harness/types"
)

func TestNewReportSink(t *testing.T) {
	_, err := NewReportSink("", log.New())
	require.Error(t, err)

	_, err = NewReportSink("out.xml", nil)
	require.Error(t, err)
	assert.Equal(t, "logger cannot be nil", err.Error())
}

func TestReportSink_Complete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unit.xml")
	sink, err := NewReportSink(path, log.New())
	require.NoError(t, err)
	assert.Equal(t, path, sink.Path())

	run := types.NewRunResult("run", "/opt/tests")
	for _, name := range []string{"testA", "testB"} {
		res := &types.TestRunResult{
			Candidate: types.Candidate{Name: name},
			Fragment:  "<testsuite name=\"" + name + "\"/>\n",
		}
		run.Add(res)
		require.NoError(t, sink.Consume(res, run.RunID))
	}
	require.NoError(t, sink.Complete(run))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, AggregateString(run.Fragments()), string(data))
}

func TestReportSink_CompleteEmptyRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unit.xml")
	sink, err := NewReportSink(path, log.New())
	require.NoError(t, err)

	require.NoError(t, sink.Complete(types.NewRunResult("run", "/opt/tests")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, XMLProlog+"\n"+RootOpenTag+"\n"+RootEndTag+"\n", string(data))
}
