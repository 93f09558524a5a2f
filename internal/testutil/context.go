// Package testutil provides shared helpers for coral-asprof tests.
package testutil

import (
	"context"
	"testing"
	"time"
)

// NewTestContext returns a context bounded to 30 seconds and cancelled when
// the test ends.
func NewTestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}
