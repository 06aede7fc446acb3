package ingest

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain enables goroutine leak detection: every pipeline worker must be
// joined before Run returns.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
