package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/felina/server-contract-tests/framework"

	"github.com/fatih/color"
)

var (
	passColor = color.New(color.FgBlue)
	failColor = color.New(color.FgRed)
	skipColor = color.New(color.FgYellow)
)

// ConsoleTestLogger prints one line per test, "Test N: name - Pass" or "- Fail". The test's
// name is printed before it runs, so a run that hangs shows which test it is stuck on.
// Failure details follow the line they belong to.
type ConsoleTestLogger struct {
	DebugOutputOnFailure bool
	DebugOutputOnSuccess bool
	Out                  io.Writer

	pendingErrors []error
}

func (c *ConsoleTestLogger) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

func (c *ConsoleTestLogger) TestStarted(id framework.TestID) {
	fmt.Fprintf(c.out(), "Test %d: %s - ", id.Index, id)
	c.pendingErrors = nil
}

func (c *ConsoleTestLogger) TestError(id framework.TestID, err error) {
	c.pendingErrors = append(c.pendingErrors, err)
}

func (c *ConsoleTestLogger) TestFinished(id framework.TestID, failed bool, debugOutput framework.CapturedOutput) {
	w := c.out()
	if failed {
		failColor.Fprintln(w, "Fail")
	} else {
		passColor.Fprintln(w, "Pass")
	}
	for _, err := range c.pendingErrors {
		for _, line := range strings.Split(err.Error(), "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
	c.pendingErrors = nil
	if len(debugOutput) > 0 &&
		((failed && c.DebugOutputOnFailure) || (!failed && c.DebugOutputOnSuccess)) {
		debugOutput.Dump(w, "    DEBUG ")
	}
}

func (c *ConsoleTestLogger) TestSkipped(id framework.TestID, reason string) {
	w := c.out()
	fmt.Fprintf(w, "Test %d: %s - ", id.Index, id)
	if reason == "" {
		skipColor.Fprintln(w, "Not run")
	} else {
		skipColor.Fprintf(w, "Not run (%s)\n", reason)
	}
}
