package reporting

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/nswdaq/test-harness/types"
)

// FragmentMode selects how fragments are treated before aggregation.
type FragmentMode string

const (
	// FragmentModePassthrough copies fragments untouched.
	FragmentModePassthrough FragmentMode = "passthrough"
	// FragmentModeValidate replaces unusable fragments with a synthesized error suite.
	FragmentModeValidate FragmentMode = "validate"
)

func (m FragmentMode) IsValid() bool {
	switch m {
	case FragmentModePassthrough, FragmentModeValidate:
		return true
	default:
		return false
	}
}

func (m FragmentMode) String() string {
	return string(m)
}

// ErrEmptyFragment is returned by CheckFragment for a fragment with no elements.
var ErrEmptyFragment = errors.New("report fragment is empty")

// CheckFragment verifies that a fragment is a well-formed sequence of XML elements.
func CheckFragment(fragment string) error {
	dec := xml.NewDecoder(strings.NewReader(fragment))
	depth, elements := 0, 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("malformed report fragment: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				elements++
			}
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			if depth == 0 && strings.TrimSpace(string(t)) != "" {
				return fmt.Errorf("malformed report fragment: text outside of an element at offset %d", dec.InputOffset())
			}
		case xml.ProcInst:
			return fmt.Errorf("malformed report fragment: unexpected processing instruction %q", t.Target)
		}
	}
	if elements == 0 {
		return ErrEmptyFragment
	}
	return nil
}

// ApplyFragmentMode prepares a result's fragment for aggregation. In validate mode an
// empty fragment from a failed candidate, or a malformed fragment from any candidate, is
// replaced by a synthesized error suite; malformed output also fails the candidate.
// It must run before the result is folded into a RunResult.
func ApplyFragmentMode(mode FragmentMode, result *types.TestRunResult) {
	if mode != FragmentModeValidate {
		return
	}

	err := CheckFragment(result.Fragment)
	switch {
	case err == nil:
		return
	case errors.Is(err, ErrEmptyFragment):
		if !result.Failed() {
			return
		}
		result.Fragment = SynthesizeErrorSuite(result.Candidate.Name, failureMessage(result), result.Fragment)
	default:
		raw := result.Fragment
		if result.ExitCode == 0 {
			result.ExitCode = types.NoExitCode
		}
		if result.Error == nil {
			result.Error = err
		} else {
			result.Error = fmt.Errorf("%w; %v", result.Error, err)
		}
		result.Fragment = SynthesizeErrorSuite(result.Candidate.Name, err.Error(), raw)
	}
}

func failureMessage(result *types.TestRunResult) string {
	switch {
	case result.TimedOut:
		return "test executable timed out"
	case result.Error != nil:
		return firstLine(result.Error.Error())
	default:
		return fmt.Sprintf("test executable exited with code %d", result.ExitCode)
	}
}

// SynthesizeErrorSuite builds a one-case <testsuite> reporting an error for a candidate.
// raw, if any, is carried in CDATA.
func SynthesizeErrorSuite(name, message, raw string) string {
	var b strings.Builder
	b.WriteString(`<testsuite name="`)
	b.WriteString(escapeAttr(name))
	b.WriteString(`" tests="1" failures="0" errors="1" skipped="0">` + "\n")
	b.WriteString(`<testcase name="`)
	b.WriteString(escapeAttr(name))
	b.WriteString(`" classname="`)
	b.WriteString(escapeAttr(name))
	b.WriteString(`">` + "\n")
	b.WriteString(`<error message="`)
	b.WriteString(escapeAttr(message))
	b.WriteString(`" type="harness">`)
	if raw != "" {
		b.WriteString(cdata(raw))
	}
	b.WriteString("</error>\n</testcase>\n</testsuite>\n")
	return b.String()
}

func escapeAttr(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(validXMLChars(s)))
	return b.String()
}

// cdata wraps s in a CDATA section, splitting any "]]>" it contains.
func cdata(s string) string {
	s = strings.ReplaceAll(validXMLChars(s), "]]>", "]]]]><![CDATA[>")
	return "<![CDATA[" + s + "]]>"
}

// validXMLChars drops runes that may not appear in an XML 1.0 document.
func validXMLChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r == utf8.RuneError || !isXMLChar(r) {
			return -1
		}
		return r
	}, s)
}

func isXMLChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		(r >= 0x20 && r <= 0xD7FF) ||
		(r >= 0xE000 && r <= 0xFFFD) ||
		(r >= 0x10000 && r <= 0x10FFFF)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
