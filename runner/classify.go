package runner

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/acarl005/stripansi"
)

// LineKind tags a captured output line.
type LineKind int

const (
	ContentLine LineKind = iota
	ProseLogLine
	PrologLine
)

func (k LineKind) String() string {
	switch k {
	case ContentLine:
		return "content"
	case ProseLogLine:
		return "log"
	case PrologLine:
		return "prolog"
	default:
		return fmt.Sprintf("LineKind(%d)", int(k))
	}
}

// LineClassifier decides which captured lines belong to a report fragment.
// An empty LogMarker disables log line detection, so only prologs are dropped.
type LineClassifier struct {
	LogMarker string
}

// NewLineClassifier creates a classifier that treats lines containing logMarker as log output.
func NewLineClassifier(logMarker string) LineClassifier {
	return LineClassifier{LogMarker: logMarker}
}

// Classify tags a single line. ANSI escapes are ignored when matching.
func (c LineClassifier) Classify(line string) LineKind {
	clean := stripansi.Strip(line)
	if strings.Contains(clean, PrologOpenMarker) && strings.Contains(clean, PrologCloseMarker) {
		return PrologLine
	}
	if c.LogMarker != "" && strings.Contains(clean, c.LogMarker) {
		return ProseLogLine
	}
	return ContentLine
}

// Filter reads r line by line and returns the content lines with ANSI escapes removed.
// A non-empty result always ends in a newline.
func (c LineClassifier) Filter(r io.Reader) (string, error) {
	var b strings.Builder
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" && c.Classify(line) == ContentLine {
			b.WriteString(stripansi.Strip(line))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return terminate(b.String()), fmt.Errorf("failed to read report output: %w", err)
		}
	}
	return terminate(b.String()), nil
}

// FilterString is Filter over an in-memory buffer.
func (c LineClassifier) FilterString(s string) string {
	out, _ := c.Filter(strings.NewReader(s))
	return out
}

func terminate(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
