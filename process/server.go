// Package process runs the server under test as a child process.
//
// Start launches the server's command through the shell and blocks until the server prints
// its readiness marker. After that the output is no longer inspected, but it keeps being
// read so the server can never block on a full pipe. Stop kills the whole process group,
// since the shell usually has a child of its own.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"
)

const readChunkSize = 4096

type Options struct {
	// Command is a shell command line.
	Command string
	// Dir is the working directory of the server. Empty means the current directory.
	Dir string
	// Env is added to the harness's own environment.
	Env []string
	// ReadyMarker is the text the server prints to stdout once it accepts connections.
	ReadyMarker string
	Timeout     time.Duration
	// Output receives stdout after the marker has been seen. Nil discards it.
	Output io.Writer
	// Stderr receives the server's stderr. Nil discards it.
	Stderr io.Writer
	Logger *zap.SugaredLogger
}

// StartupTimeoutError means the server did not print its readiness marker in time. The
// server has been killed when this is returned.
type StartupTimeoutError struct {
	Marker  string
	Timeout time.Duration
	Output  string
}

func (e *StartupTimeoutError) Error() string {
	return fmt.Sprintf("server did not print %q within %s", e.Marker, e.Timeout)
}

// ExitedError means the server exited before it became ready.
type ExitedError struct {
	Err    error
	Output string
}

func (e *ExitedError) Error() string {
	msg := "server exited before it was ready"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Output != "" {
		msg += "\noutput:\n" + e.Output
	}
	return msg
}

func (e *ExitedError) Unwrap() error {
	return e.Err
}

type capture struct {
	buf bytes.Buffer
	// scanned is where the next marker search starts. Everything before it has been searched.
	scanned int
	lock    sync.Mutex
}

func (c *capture) write(p []byte) {
	c.lock.Lock()
	c.buf.Write(p)
	c.lock.Unlock()
}

// after returns a copy of what was captured after the first occurrence of marker, and
// false if the marker has not been seen. Each call only searches the output that arrived
// since the last one, plus enough of the tail to find a marker split across writes.
func (c *capture) after(marker []byte) ([]byte, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	data := c.buf.Bytes()
	i := bytes.Index(data[c.scanned:], marker)
	if i < 0 {
		c.scanned = max(c.scanned, len(data)-len(marker)+1)
		return nil, false
	}
	end := c.scanned + i + len(marker)
	return append([]byte(nil), data[end:]...), true
}

func (c *capture) String() string {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.buf.String()
}

// Server is a running server process.
type Server struct {
	cmd      *exec.Cmd
	captured *capture
	exited   chan struct{}
	waitErr  error
	stopOnce sync.Once
	stopErr  error
	logger   *zap.SugaredLogger
}

// Start launches the server and waits until it is ready.
func Start(ctx context.Context, opts Options) (*Server, error) {
	if opts.Command == "" {
		return nil, errors.New("server command is required")
	}
	if opts.ReadyMarker == "" {
		return nil, errors.New("readiness marker is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	output := opts.Output
	if output == nil {
		output = io.Discard
	}

	cmd := shellCommand(opts.Command)
	cmd.Dir = opts.Dir
	cmd.Env = append(os.Environ(), opts.Env...)
	cmd.Stderr = opts.Stderr
	setProcessGroup(cmd)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	logger.Infof("Starting server: %s", opts.Command)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting server: %w", err)
	}

	s := &Server{
		cmd:      cmd,
		captured: &capture{},
		exited:   make(chan struct{}),
		logger:   logger,
	}
	ready := make(chan struct{})
	readDone := make(chan struct{})
	go s.readOutput(stdout, []byte(opts.ReadyMarker), ready, readDone, output)
	go func() {
		// Wait must not be called until every read from the pipe has finished.
		<-readDone
		s.waitErr = cmd.Wait()
		close(s.exited)
	}()

	var timeout <-chan time.Time
	if opts.Timeout > 0 {
		timer := time.NewTimer(opts.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-ready:
		logger.Infof("Server is ready (pid %d)", cmd.Process.Pid)
		return s, nil
	case <-s.exited:
		return nil, &ExitedError{Err: s.waitErr, Output: s.captured.String()}
	case <-timeout:
		_ = s.Stop()
		return nil, &StartupTimeoutError{Marker: opts.ReadyMarker, Timeout: opts.Timeout, Output: s.captured.String()}
	case <-ctx.Done():
		_ = s.Stop()
		return nil, ctx.Err()
	}
}

func (s *Server) readOutput(r io.Reader, marker []byte, ready, done chan<- struct{}, output io.Writer) {
	defer close(done)
	chunk := make([]byte, readChunkSize)
	isReady := false
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			if isReady {
				_, _ = output.Write(chunk[:n])
			} else {
				s.captured.write(chunk[:n])
				if rest, found := s.captured.after(marker); found {
					isReady = true
					close(ready)
					if len(rest) > 0 {
						_, _ = output.Write(rest)
					}
				}
			}
		}
		if err != nil {
			return
		}
	}
}

// Pid returns the process id of the shell that runs the server.
func (s *Server) Pid() int {
	return s.cmd.Process.Pid
}

// StartupOutput returns the output read while waiting for the marker.
func (s *Server) StartupOutput() string {
	return s.captured.String()
}

// Done is closed once the server process has exited and been reaped.
func (s *Server) Done() <-chan struct{} {
	return s.exited
}

// Stop kills the server and waits for it to exit. Only the first call does anything; later
// calls return the same result.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		select {
		case <-s.exited:
			s.logger.Infof("Server had already exited: %v", s.waitErr)
			return
		default:
		}
		s.logger.Infof("Stopping server (pid %d)", s.cmd.Process.Pid)
		if err := killProcessGroup(s.cmd); err != nil && !errors.Is(err, os.ErrProcessDone) {
			s.stopErr = fmt.Errorf("killing server: %w", err)
			return
		}
		<-s.exited
	})
	return s.stopErr
}
