package framework

import (
	"errors"
	"fmt"
	"runtime/debug"
)

const notRunReason = "not run because an earlier test failed"

type environment struct {
	results    Results
	testLogger TestLogger
	lastIndex  int
	aborted    bool
}

// Context is the state of one test, or of the root scope that contains the whole script.
//
// It implements require.TestingT, so the assert and require packages can be used with it
// as if it were a *testing.T.
type Context struct {
	env         *environment
	id          TestID
	debugLogger CapturingLogger
	failed      bool
	errors      []error
}

// Run executes the root action of a test script and returns the accumulated results.
func Run(testLogger TestLogger, action func(*Context)) Results {
	if testLogger == nil {
		testLogger = nullTestLogger{}
	}
	env := &environment{testLogger: testLogger}
	c := &Context{env: env}
	c.run(action)
	return env.results
}

func (c *Context) run(action func(*Context)) {
	defer func() {
		if r := recover(); r != nil {
			c.failed = true
			var addError error
			if _, ok := r.(*Context); ok {
				if len(c.errors) == 0 {
					addError = errors.New("test failed with no failure message")
				}
			} else {
				addError = fmt.Errorf("unexpected panic in test: %+v\n%s", r, string(debug.Stack()))
			}
			if addError != nil {
				c.errors = append(c.errors, addError)
				c.env.testLogger.TestError(c.id, addError)
			}
		}
		if len(c.id.Path) == 0 {
			return // the root scope is not a test
		}
		result := TestResult{TestID: c.id, Errors: c.errors}
		c.env.results.Tests = append(c.env.results.Tests, result)
		if c.failed {
			c.env.results.Failures = append(c.env.results.Failures, result)
			c.env.aborted = true
		}
	}()

	action(c)
}

// ID returns the identifier of this test.
func (c *Context) ID() TestID {
	return c.id
}

// Aborted returns true if a test in this run has already failed.
func (c *Context) Aborted() bool {
	return c.env.aborted
}

// Run runs a test as the next step of the script.
//
// If an earlier step failed, the action is not called and the step is recorded as not run.
func (c *Context) Run(name string, action func(*Context)) {
	c.env.lastIndex++
	id := TestID{Index: c.env.lastIndex, Path: append(append([]string(nil), c.id.Path...), name)}

	if c.env.aborted {
		c.env.results.NotRun = append(c.env.results.NotRun, TestResult{TestID: id, Skipped: true})
		c.env.testLogger.TestSkipped(id, notRunReason)
		return
	}

	c.env.testLogger.TestStarted(id)
	c1 := &Context{
		id:  id,
		env: c.env,
	}
	c1.run(action)
	c.env.testLogger.TestFinished(id, c1.failed, c1.debugLogger.Output())
}

// Errorf records a failure for this test. It does not cause an immediate exit, but the
// rest of the script will not run once this test returns.
func (c *Context) Errorf(format string, args ...interface{}) {
	c.Fail(fmt.Errorf(format, args...))
}

// Fail records an error value as a failure for this test.
func (c *Context) Fail(err error) {
	c.failed = true
	c.errors = append(c.errors, err)
	c.env.testLogger.TestError(c.id, err)
}

// FailNow stops the current test immediately.
func (c *Context) FailNow() {
	panic(c)
}

// Failed returns true if this test has recorded a failure.
func (c *Context) Failed() bool {
	return c.failed
}

func (c *Context) Debug(message string, args ...interface{}) {
	c.debugLogger.Printf(message, args...)
}

func (c *Context) DebugLogger() Logger {
	return &c.debugLogger
}
