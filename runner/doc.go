// Package runner executes standalone test executables one after another and collects
// their JUnit report fragments.
//
// The main components are:
//   - LineClassifier: tags captured lines as content, incidental log output or XML prolog
//   - ExtractionStrategy: pulls a candidate's fragment from stdout or from a sink file
//   - CandidateExecutor: runs a single candidate under a timeout and always returns a result
//   - TestRunner: discovers candidates, runs them sequentially and feeds result sinks
//
// Per-candidate problems are recorded in the result and never stop the loop; only an
// unreadable test directory or a failing sink aborts a run.
package runner
