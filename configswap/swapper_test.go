package configswap

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	productionContent = `{"database":"felina"}`
	testContent       = `{"database":"felinaTest"}`
)

func makeSlots(t *testing.T) Slots {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "config"), 0700))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "test"), 0700))
	slots := Slots{
		Active: filepath.Join(dir, "config", "db_settings.json"),
		Test:   filepath.Join(dir, "test", "db_settingsTest.json"),
		Backup: filepath.Join(dir, "test", "db_settings.json"),
	}
	require.NoError(t, os.WriteFile(slots.Active, []byte(productionContent), 0600))
	require.NoError(t, os.WriteFile(slots.Test, []byte(testContent), 0600))
	return slots
}

func readFile(t *testing.T, path string) string {
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func assertOriginalArrangement(t *testing.T, slots Slots) {
	assert.Equal(t, productionContent, readFile(t, slots.Active))
	assert.Equal(t, testContent, readFile(t, slots.Test))
	assert.NoFileExists(t, slots.Backup)
	assert.NoFileExists(t, slots.stateFile())
}

func TestActivateAndRestore(t *testing.T) {
	slots := makeSlots(t)
	s := New(slots, nil)

	require.NoError(t, s.Activate())
	assert.True(t, s.Swapped())
	assert.Equal(t, testContent, readFile(t, slots.Active))
	assert.Equal(t, productionContent, readFile(t, slots.Test))
	assert.NoFileExists(t, slots.Backup)
	assert.FileExists(t, slots.stateFile())

	require.NoError(t, s.Restore())
	assert.False(t, s.Swapped())
	assertOriginalArrangement(t, slots)
}

func TestRestoreTwiceIsNoOp(t *testing.T) {
	slots := makeSlots(t)
	s := New(slots, nil)
	require.NoError(t, s.Activate())
	require.NoError(t, s.Restore())
	require.NoError(t, s.Restore())
	assertOriginalArrangement(t, slots)
}

func TestRestoreWithoutActivateIsNoOp(t *testing.T) {
	slots := makeSlots(t)
	require.NoError(t, New(slots, nil).Restore())
	assertOriginalArrangement(t, slots)
}

func TestRestoreAfterPartialSwap(t *testing.T) {
	slots := makeSlots(t)
	s := New(slots, nil)
	require.NoError(t, os.Rename(slots.Active, slots.Backup))
	s.completed = 1

	require.NoError(t, s.Restore())
	assertOriginalArrangement(t, slots)
}

func TestActivateFailsWhenActiveMissing(t *testing.T) {
	slots := makeSlots(t)
	require.NoError(t, os.Remove(slots.Active))

	err := New(slots, nil).Activate()
	var ce *ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, slots.Active, ce.Path)
	assert.Equal(t, testContent, readFile(t, slots.Test))
	assert.NoFileExists(t, slots.Backup)
}

func TestActivateFailsWhenTestMissing(t *testing.T) {
	slots := makeSlots(t)
	require.NoError(t, os.Remove(slots.Test))

	err := New(slots, nil).Activate()
	var ce *ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, slots.Test, ce.Path)
	assert.Equal(t, productionContent, readFile(t, slots.Active))
}

func TestActivateFailsWhenBackupOccupied(t *testing.T) {
	slots := makeSlots(t)
	require.NoError(t, os.WriteFile(slots.Backup, []byte("stale"), 0600))

	err := New(slots, nil).Activate()
	var ce *ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, slots.Backup, ce.Path)
	assert.Equal(t, productionContent, readFile(t, slots.Active))
	assert.Equal(t, "stale", readFile(t, slots.Backup))
}

func TestActivateFailsWhileAnotherRunHoldsLock(t *testing.T) {
	slots := makeSlots(t)
	first := New(slots, nil)
	require.NoError(t, first.acquireLock())
	defer first.releaseLock()

	err := New(slots, nil).Activate()
	var ce *ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, slots.lockFile(), ce.Path)
	assert.Equal(t, productionContent, readFile(t, slots.Active))
}

func TestLockFileOutlivesRunAndCanBeRelocked(t *testing.T) {
	slots := makeSlots(t)
	first := New(slots, nil)
	require.NoError(t, first.Activate())
	require.NoError(t, first.Restore())
	assert.FileExists(t, slots.lockFile())

	second := New(slots, nil)
	require.NoError(t, second.Activate())
	require.NoError(t, second.Restore())
	assertOriginalArrangement(t, slots)
}

func TestActivateRefusesLeftoverState(t *testing.T) {
	slots := makeSlots(t)
	interrupted := New(slots, nil)
	require.NoError(t, interrupted.Activate())
	interrupted.releaseLock()

	err := New(slots, nil).Activate()
	var ce *ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, slots.stateFile(), ce.Path)
}

func TestRecoverAfterInterruptedRun(t *testing.T) {
	slots := makeSlots(t)
	interrupted := New(slots, nil)
	require.NoError(t, interrupted.Activate())
	interrupted.releaseLock()

	recovered, err := Recover(slots, nil)
	require.NoError(t, err)
	assert.True(t, recovered)
	assertOriginalArrangement(t, slots)
}

func TestRecoverWithNothingToDo(t *testing.T) {
	slots := makeSlots(t)
	recovered, err := Recover(slots, nil)
	require.NoError(t, err)
	assert.False(t, recovered)
	assertOriginalArrangement(t, slots)
}

func TestRecoverRejectsStateForOtherFiles(t *testing.T) {
	slots := makeSlots(t)
	require.NoError(t, os.WriteFile(slots.stateFile(),
		[]byte(`{"slots":{"active":"a","test":"b","backup":"c"},"completed":3}`), 0600))

	_, err := Recover(slots, nil)
	var ce *ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, productionContent, readFile(t, slots.Active))
}
