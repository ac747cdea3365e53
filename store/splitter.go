package store

import (
	"bufio"
	"io"
	"regexp"
	"strings"
)

var (
	commentLine    = regexp.MustCompile(`^--`)
	terminatorLine = regexp.MustCompile(`[^-;]+;`)
)

// SplitStatements splits a schema script into statements, line by line.
//
// Lines starting with "--" are dropped. A line containing a ";" that follows at least one
// character other than "-" or ";" ends the current statement; every other line is added to
// it. Line endings are kept. Text after the last terminator is not a statement and is
// discarded.
func SplitStatements(r io.Reader) ([]string, error) {
	var statements []string
	var current strings.Builder
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" && !commentLine.MatchString(line) {
			current.WriteString(line)
			if terminatorLine.MatchString(line) {
				statements = append(statements, current.String())
				current.Reset()
			}
		}
		if err == io.EOF {
			return statements, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// RenameSchema replaces every occurrence of the canonical schema name with the test name.
func RenameSchema(statement, from, to string) string {
	if from == "" || from == to {
		return statement
	}
	return strings.ReplaceAll(statement, from, to)
}
