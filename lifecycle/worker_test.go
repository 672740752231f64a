package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHalterIsIdempotent(t *testing.T) {
	h := NewHalter()
	require.False(t, h.IsHalted())
	h.Halt()
	h.Halt()
	require.True(t, h.IsHalted())

	select {
	case <-h.HaltCh():
	case <-time.After(time.Second):
		t.Fatal("HaltCh never closed")
	}
}

func TestGroupShutdownWaitsForGoroutines(t *testing.T) {
	g := NewGroup()
	started := make(chan struct{})
	g.Go(func() {
		close(started)
		<-g.HaltCh()
	})
	<-started
	g.Shutdown()
	require.True(t, g.IsHalted())
}
