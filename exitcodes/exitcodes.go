// Package exitcodes defines the standard exit codes used by bank-acceptor.
package exitcodes

// Exit code constants used by bank-acceptor:
//
// * Success (0): Used when all test cases pass
// * TestFailure (1): Used when one or more test cases fail
// * RuntimeErr (2): Used for runtime errors such as panics, bad configuration or dispatch faults
const (
	Success     = 0 // All test cases pass
	TestFailure = 1 // Test-case failures
	RuntimeErr  = 2 // Runtime errors or dispatch faults
)
