// Package exitcodes defines the standard exit codes used by test-harness.
package exitcodes

// Exit code constants used by test-harness.
//
// * Success (0): every executed candidate passed (or none were found under the default policy)
// * TestFailure (1): one or more candidates failed or timed out
// * RuntimeErr (2): the run could not happen at all, e.g. an unreadable test directory
const (
	Success     = 0 // All candidates pass
	TestFailure = 1 // Candidate failures or timeouts
	RuntimeErr  = 2 // Runtime errors such as a bad test directory or unwritable report
)
