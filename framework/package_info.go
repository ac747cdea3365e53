// Package framework contains the low-level implementation of test harness infrastructure
// that is not specific to the Felina API.
//
// The general model is:
//
// 1. The test harness acquires a set of resources before any test runs (a swapped
// configuration, a freshly built store, a server process) and registers a release
// function for each one with a TestHarness. The harness releases them in reverse order
// exactly once, either at the end of the run or when the process is interrupted.
//
// 2. There is a general notion of a test context which is similar to Go's *testing.T,
// allowing pieces of test logic to be associated with a test identifier and to accumulate
// success/failure results.
//
// 3. Tests run as one linear script. Later tests depend on side effects of earlier ones,
// so the first failing test aborts the rest of the run; everything after it is reported
// as not run.
//
// The domain-specific code that knows what is being tested is responsible for building
// requests, expected responses, and a domain-specific test API on top of the test context.
package framework
