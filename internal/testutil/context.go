package testutil

import (
	"context"
	"testing"
	"time"
)

// NewTestContext creates a context with 5 second timeout for tests.
func NewTestContext(t *testing.T) context.Context {
	t.Helper()

	return NewTestContextWithTimeout(t, 5*time.Second)
}

// NewTestContextWithTimeout creates a context with custom timeout.
func NewTestContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)

	return ctx
}

// WaitClosed fails the test if ch is not closed within timeout.
func WaitClosed(t *testing.T, ch <-chan struct{}, timeout time.Duration) {
	t.Helper()

	select {
	case <-ch:
	case <-time.After(timeout):
		t.Fatalf("timed out after %v waiting for signal", timeout)
	}
}
