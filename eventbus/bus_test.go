package eventbus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublishAndStream(t *testing.T) {
	b := New(1)
	b.Publish(Shutdown{})
	ev := <-b.Stream()
	_, ok := ev.(Shutdown)
	require.True(t, ok)
}

func TestTryPublishDropsWhenFull(t *testing.T) {
	b := New(1)
	b.TryPublish(Stats{Accepted: 1})
	b.TryPublish(Stats{Accepted: 2}) // dropped, channel already full

	ev := <-b.Stream()
	stats, ok := ev.(Stats)
	require.True(t, ok)
	require.Equal(t, int64(1), stats.Accepted)
}

func TestClose(t *testing.T) {
	b := New(1)
	b.Close()
	_, ok := <-b.Stream()
	require.False(t, ok)
}
