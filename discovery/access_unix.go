//go:build !windows

package discovery

import "golang.org/x/sys/unix"

// isExecutable asks the kernel whether the current process may execute path,
// which honours ownership, groups and ACLs rather than just the mode bits.
func isExecutable(path string) bool {
	return unix.Access(path, unix.X_OK) == nil
}
