// Package testutil holds helpers shared by the matlab-ci tests: a fake MATLAB interpreter
// and small wrappers around external commands.
package testutil

// TestingT is the subset of testing.T methods that we use.
// This allows for easier testing of the testutil package itself.
type TestingT interface {
	Helper()
	Fatalf(format string, args ...interface{})
	Fatal(args ...interface{})
}
