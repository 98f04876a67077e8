//go:build windows

package hotkey

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowsBinder_perform_failedWakeupDoesNotBlock(t *testing.T) {
	instance := NewBinder().(*windowsBinder)
	defer func() { _ = instance.Close() }()

	instance.post = func(uint32) error {
		return fmt.Errorf("message queue does not exist yet")
	}

	done := make(chan error, 1)
	go func() {
		done <- instance.perform(func() error { return nil })
	}()

	select {
	case err := <-done:
		assert.ErrorContains(t, err, "message queue does not exist yet")
	case <-time.After(2 * time.Second):
		t.Fatal("perform blocked although the wakeup could not be posted")
	}

	// The taken-back request must not leak into the next operation.
	instance.post = instance.postWakeup
	executed := false
	require.NoError(t, instance.perform(func() error {
		executed = true
		return nil
	}))
	assert.True(t, executed)
}
