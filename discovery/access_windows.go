//go:build windows

package discovery

import "os"

// Windows has no execute bit; anything that stats as a regular file is runnable.
func isExecutable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
