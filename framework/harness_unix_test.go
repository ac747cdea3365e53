//go:build !windows

package framework

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCancelOnSignalCancelsOnSIGTERM(t *testing.T) {
	got := make(chan os.Signal, 1)
	ctx, stop := CancelOnSignal(context.Background(), func(sig os.Signal) { got <- sig })
	defer stop()

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGTERM))
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		require.Fail(t, "context was not cancelled")
	}
	assert.Equal(t, syscall.SIGTERM, <-got)
}
