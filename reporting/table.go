package reporting

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/nswdaq/test-harness/types"
)

const maxErrorWidth = 80

// TableReporter renders a RunResult as a console table.
type TableReporter struct {
	title string
}

// NewTableReporter creates a new table reporter
func NewTableReporter(title string) *TableReporter {
	return &TableReporter{title: title}
}

// Generate renders the table for a run.
func (tr *TableReporter) Generate(run *types.RunResult) string {
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("%s (%s)", tr.title, types.FormatDuration(run.Duration)))

	t.AppendHeader(table.Row{
		"Test Executable", "Duration", "Exit Code", "Timed Out", "Status", "Error",
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Test Executable", WidthMax: 50, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Exit Code", Align: text.AlignRight},
		{Name: "Error", WidthMax: maxErrorWidth, WidthMaxEnforcer: text.WrapSoft},
	})

	for i, res := range run.Results {
		prefix := "├──"
		if i == len(run.Results)-1 {
			prefix = "└──"
		}
		t.AppendRow(table.Row{
			fmt.Sprintf("%s %s", prefix, res.Candidate.Name),
			types.FormatDuration(res.Duration),
			res.ExitCode,
			yesNo(res.TimedOut),
			getResultString(res.Status()),
			extractKeyErrorMessage(res.Error),
		})
	}

	if run.Failed {
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	} else {
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	}

	t.AppendFooter(table.Row{
		fmt.Sprintf("TOTAL %d (passed %d, failed %d)", run.Stats.Total, run.Stats.Passed, run.Stats.Failed),
		types.FormatDuration(run.Duration),
		"",
		run.Stats.TimedOut,
		getResultString(run.Status()),
		"",
	})

	return t.Render()
}

// Print writes the table followed by a newline.
func (tr *TableReporter) Print(w io.Writer, run *types.RunResult) error {
	_, err := fmt.Fprintln(w, tr.Generate(run))
	return err
}

func getResultString(status types.TestStatus) string {
	switch status {
	case types.TestStatusPass:
		return "✓ pass"
	case types.TestStatusError:
		return "! error"
	default:
		return "✗ fail"
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// extractKeyErrorMessage keeps the first line of an error for table display
func extractKeyErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.TrimSpace(err.Error())
	msg = firstLine(msg)
	if len(msg) > maxErrorWidth*2 {
		msg = msg[:maxErrorWidth*2-3] + "..."
	}
	return msg
}
