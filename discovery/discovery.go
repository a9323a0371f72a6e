// Package discovery finds standalone test executables in a directory.
package discovery

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nswdaq/test-harness/types"
)

// CandidatePrefix is the name prefix every test executable must carry.
const CandidatePrefix = "test"

// Discover returns every entry in dir that looks like a test executable, sorted by name.
// A directory that cannot be read is returned as an error; callers treat it as fatal.
func Discover(dir string) ([]types.Candidate, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for test directory '%s': %w", dir, err)
	}

	entries, err := os.ReadDir(absDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read test directory: %w", err)
	}

	var candidates []types.Candidate
	for _, entry := range entries {
		if !IsCandidateName(entry.Name()) {
			continue
		}
		path := filepath.Join(absDir, entry.Name())
		// DirEntry.Info does not follow symlinks, Stat does.
		info, err := os.Stat(path)
		if err != nil || !IsCandidate(path, info) {
			continue
		}
		candidates = append(candidates, types.Candidate{Name: entry.Name(), Dir: absDir})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Name < candidates[j].Name
	})
	return candidates, nil
}

// IsCandidateName applies the naming half of the filter: a "test" prefix and no extension.
func IsCandidateName(name string) bool {
	return strings.HasPrefix(name, CandidatePrefix) && !strings.Contains(name, ".")
}

// IsCandidate applies the full filter to an already stat'ed entry.
func IsCandidate(path string, info fs.FileInfo) bool {
	return info.Mode().IsRegular() && IsCandidateName(info.Name()) && isExecutable(path)
}
