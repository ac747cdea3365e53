package framework

import (
	"fmt"
	"io"
	"strings"
)

type Results struct {
	Tests    []TestResult
	Failures []TestResult
	NotRun   []TestResult
}

type TestResult struct {
	TestID  TestID
	Errors  []error
	Skipped bool
}

// OK is true only if every step of the script ran and passed.
func (r Results) OK() bool {
	return len(r.Failures) == 0 && len(r.NotRun) == 0
}

// TestID identifies a step of the script. Index is 1-based and counts every step in
// declaration order, including steps that were not run.
type TestID struct {
	Index int
	Path  []string
}

func (t TestID) String() string {
	return strings.Join(t.Path, "/")
}

// Name is the label of the innermost test.
func (t TestID) Name() string {
	if len(t.Path) == 0 {
		return ""
	}
	return t.Path[len(t.Path)-1]
}

// PrintResults writes a summary of the run.
func PrintResults(w io.Writer, r Results) {
	passed := len(r.Tests) - len(r.Failures)
	fmt.Fprintf(w, "%d passed, %d failed, %d not run\n", passed, len(r.Failures), len(r.NotRun))
	for _, f := range r.Failures {
		fmt.Fprintf(w, "FAILED: Test %d: %s\n", f.TestID.Index, f.TestID)
		for _, err := range f.Errors {
			for _, line := range strings.Split(err.Error(), "\n") {
				fmt.Fprintf(w, "  %s\n", line)
			}
		}
	}
}
