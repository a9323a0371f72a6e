package reporting

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	XMLProlog   = `<?xml version="1.0" encoding="UTF-8"?>`
	RootOpenTag = "<testsuites>"
	RootEndTag  = "</testsuites>"
)

// Aggregate writes the aggregate JUnit document: one prolog, one <testsuites> root and
// every fragment in order. Fragments are copied verbatim; a missing trailing newline is added.
func Aggregate(w io.Writer, fragments []string) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%s\n%s\n", XMLProlog, RootOpenTag); err != nil {
		return err
	}
	for _, fragment := range fragments {
		if fragment == "" {
			continue
		}
		if _, err := bw.WriteString(fragment); err != nil {
			return err
		}
		if !strings.HasSuffix(fragment, "\n") {
			if err := bw.WriteByte('\n'); err != nil {
				return err
			}
		}
	}
	if _, err := fmt.Fprintf(bw, "%s\n", RootEndTag); err != nil {
		return err
	}
	return bw.Flush()
}

// AggregateString is Aggregate into a string.
func AggregateString(fragments []string) string {
	var b strings.Builder
	_ = Aggregate(&b, fragments)
	return b.String()
}

// WriteAggregateFile writes the aggregate document to path, replacing any previous report.
// The document is written next to path and renamed into place so readers never see a
// partial report.
func WriteAggregateFile(path string, fragments []string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create report directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if err := Aggregate(tmp, fragments); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close report file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to set report permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move report into place: %w", err)
	}
	return nil
}
