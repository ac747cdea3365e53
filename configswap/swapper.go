// Package configswap puts the server's test configuration in place of its production
// configuration for the length of a run, and puts it back afterwards.
//
// The swap is a three-way rotation through a backup slot:
//
//	Active -> Backup, Test -> Active, Backup -> Test
//
// so at the end of a swap the production configuration sits in the test slot and the
// backup slot is empty again. Every completed rename is recorded, both in memory and in a
// state file next to the active slot, so a swap that stopped halfway can still be undone,
// including by a later process.
package configswap

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

const (
	stateFileSuffix = ".swapstate"
	lockFileSuffix  = ".lock"
)

// Slots names the three files taking part in the rotation.
type Slots struct {
	Active string `json:"active"`
	Test   string `json:"test"`
	Backup string `json:"backup"`
}

func (s Slots) stateFile() string { return s.Active + stateFileSuffix }
func (s Slots) lockFile() string  { return s.Active + lockFileSuffix }

type rename struct {
	from, to string
}

func (s Slots) steps() []rename {
	return []rename{
		{s.Active, s.Backup},
		{s.Test, s.Active},
		{s.Backup, s.Test},
	}
}

// ConfigurationError means the files are not in a state from which a swap can be made.
// Nothing has been moved when Activate returns one.
type ConfigurationError struct {
	Path    string
	Problem string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration file %s: %s", e.Path, e.Problem)
}

type swapState struct {
	Slots     Slots `json:"slots"`
	Completed int   `json:"completed"`
}

// Swapper performs one swap and its restoration. It is not safe for concurrent use.
type Swapper struct {
	slots     Slots
	completed int
	lock      *flock.Flock
	logger    *zap.SugaredLogger
}

func New(slots Slots, logger *zap.SugaredLogger) *Swapper {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Swapper{slots: slots, logger: logger}
}

// Swapped reports whether any part of the rotation is currently in effect.
func (s *Swapper) Swapped() bool {
	return s.completed > 0
}

// Activate rotates the test configuration into the active slot.
//
// All preconditions are checked before anything is moved: the active and test files must
// exist, the backup slot must be free, no state file from an earlier run may be left over,
// and no other run may hold the lock. If a rename fails partway, the error is returned and
// Restore will undo the renames that did complete.
func (s *Swapper) Activate() error {
	if err := s.acquireLock(); err != nil {
		return err
	}
	if err := s.checkPreconditions(); err != nil {
		s.releaseLock()
		return err
	}
	for i, step := range s.slots.steps() {
		if err := os.Rename(step.from, step.to); err != nil {
			return fmt.Errorf("swap step %d, moving %s to %s: %w", i+1, step.from, step.to, err)
		}
		s.completed = i + 1
		if err := s.saveState(); err != nil {
			return err
		}
	}
	s.logger.Infof("Test configuration %s is now active", s.slots.Test)
	return nil
}

func (s *Swapper) checkPreconditions() error {
	if _, err := os.Stat(s.slots.stateFile()); err == nil {
		return &ConfigurationError{Path: s.slots.stateFile(),
			Problem: "an earlier run did not finish restoring its configuration; run restore-config first"}
	}
	for _, p := range []string{s.slots.Active, s.slots.Test} {
		info, err := os.Stat(p)
		if err != nil {
			return &ConfigurationError{Path: p, Problem: "does not exist or is not readable"}
		}
		if info.IsDir() {
			return &ConfigurationError{Path: p, Problem: "is a directory"}
		}
	}
	if _, err := os.Stat(s.slots.Backup); err == nil {
		return &ConfigurationError{Path: s.slots.Backup, Problem: "backup slot is already occupied"}
	} else if !errors.Is(err, os.ErrNotExist) {
		return &ConfigurationError{Path: s.slots.Backup, Problem: err.Error()}
	}
	return nil
}

// Restore undoes every rename that Activate completed, newest first. It does nothing if
// nothing was swapped, so it can be called more than once. If a rename fails, the error is
// returned and a later call resumes from the same step.
func (s *Swapper) Restore() error {
	steps := s.slots.steps()
	for s.completed > 0 {
		step := steps[s.completed-1]
		if err := os.Rename(step.to, step.from); err != nil {
			return fmt.Errorf("restore step %d, moving %s to %s: %w", s.completed, step.to, step.from, err)
		}
		s.completed--
		if err := s.saveState(); err != nil {
			return err
		}
	}
	s.releaseLock()
	return nil
}

func (s *Swapper) acquireLock() error {
	if s.lock != nil {
		return nil
	}
	lock := flock.New(s.slots.lockFile())
	ok, err := lock.TryLock()
	if err != nil {
		return &ConfigurationError{Path: s.slots.lockFile(), Problem: err.Error()}
	}
	if !ok {
		return &ConfigurationError{Path: s.slots.lockFile(), Problem: "another test run is using this configuration"}
	}
	s.lock = lock
	return nil
}

// releaseLock unlocks but leaves the lock file in place. Removing it would let a waiting run
// lock the unlinked file while another run locks a new one at the same path.
func (s *Swapper) releaseLock() {
	if s.lock == nil {
		return
	}
	if err := s.lock.Unlock(); err != nil {
		s.logger.Warnf("Failed to release lock %s: %v", s.slots.lockFile(), err)
	}
	s.lock = nil
}

func (s *Swapper) saveState() error {
	path := s.slots.stateFile()
	if s.completed == 0 {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing swap state: %w", err)
		}
		return nil
	}
	data, err := json.Marshal(swapState{Slots: s.slots, Completed: s.completed})
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("saving swap state: %w", err)
	}
	return nil
}

// Recover restores the original configuration after a run that was killed before it could
// restore it. It returns false if there was nothing to recover.
func Recover(slots Slots, logger *zap.SugaredLogger) (bool, error) {
	data, err := os.ReadFile(slots.stateFile())
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading swap state: %w", err)
	}
	var state swapState
	if err := json.Unmarshal(data, &state); err != nil {
		return false, &ConfigurationError{Path: slots.stateFile(), Problem: "swap state is not valid JSON"}
	}
	if state.Slots != slots {
		return false, &ConfigurationError{Path: slots.stateFile(),
			Problem: fmt.Sprintf("swap state was written for different files (%+v)", state.Slots)}
	}
	if state.Completed < 0 || state.Completed > len(slots.steps()) {
		return false, &ConfigurationError{Path: slots.stateFile(),
			Problem: fmt.Sprintf("swap state has an invalid step count %d", state.Completed)}
	}
	s := New(slots, logger)
	if err := s.acquireLock(); err != nil {
		return false, err
	}
	s.completed = state.Completed
	s.logger.Infof("Undoing %d configuration swap step(s) left by an earlier run", state.Completed)
	if err := s.Restore(); err != nil {
		s.releaseLock()
		return false, err
	}
	return true, nil
}
