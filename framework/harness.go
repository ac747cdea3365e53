package framework

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

type release struct {
	name string
	fn   func() error
}

// TestHarness owns the resources that a run acquires before the test script starts.
//
// Each resource registers its release function with Defer as soon as it has been acquired.
// Close releases everything in reverse order of registration. It runs at most once, no
// matter how many exit paths call it.
type TestHarness struct {
	releases []release
	closed   bool
	logger   Logger
	lock     sync.Mutex
}

// NewTestHarness creates an empty harness. The logger receives a line for every release.
func NewTestHarness(logger Logger) *TestHarness {
	if logger == nil {
		logger = NullLogger()
	}
	return &TestHarness{logger: logger}
}

// Defer registers a release function. If the harness has already been closed, the function
// is called immediately, since nothing else would ever call it.
func (h *TestHarness) Defer(name string, fn func() error) {
	h.lock.Lock()
	if h.closed {
		h.lock.Unlock()
		h.runRelease(release{name: name, fn: fn})
		return
	}
	h.releases = append(h.releases, release{name: name, fn: fn})
	h.lock.Unlock()
}

// Close releases all registered resources in reverse order and returns the combined
// errors. Every release function is called even if an earlier one fails.
func (h *TestHarness) Close() error {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true

	var errs []error
	for i := len(h.releases) - 1; i >= 0; i-- {
		if err := h.runRelease(h.releases[i]); err != nil {
			errs = append(errs, err)
		}
	}
	h.releases = nil
	return errors.Join(errs...)
}

func (h *TestHarness) runRelease(r release) error {
	h.logger.Printf("Releasing %s", r.name)
	if err := r.fn(); err != nil {
		h.logger.Printf("Failed to release %s: %s", r.name, err)
		return fmt.Errorf("release %s: %w", r.name, err)
	}
	return nil
}

// CancelOnSignal returns a context that is cancelled when the process receives SIGINT or
// SIGTERM, after calling onSignal. The run is expected to notice the cancellation, unwind,
// and close its harness from its own goroutine, so releases never race with acquisitions.
// After the first signal the default handling is restored, so a second one terminates the
// process. The returned function stops listening and cancels the context.
func CancelOnSignal(parent context.Context, onSignal func(os.Signal)) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-ch:
			signal.Stop(ch)
			if onSignal != nil {
				onSignal(sig)
			}
			cancel()
		case <-ctx.Done():
		}
	}()
	var once sync.Once
	return ctx, func() {
		once.Do(func() {
			signal.Stop(ch)
			cancel()
		})
	}
}
