package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestContainsAfterInsert(t *testing.T) {
	c := New(10, time.Minute)
	require.False(t, c.Contains("a"))
	c.Insert("a")
	require.True(t, c.Contains("a"))
}

func TestContainsExpiresAfterTTL(t *testing.T) {
	c := New(10, 20*time.Millisecond)
	c.Insert("a")
	require.True(t, c.Contains("a"))
	time.Sleep(40 * time.Millisecond)
	require.False(t, c.Contains("a"))
}

func TestContainsOrInsert(t *testing.T) {
	c := New(10, time.Minute)
	require.False(t, c.ContainsOrInsert("a"))
	require.True(t, c.ContainsOrInsert("a"))
	require.Equal(t, 1, c.Len())
}

func TestCapacityEviction(t *testing.T) {
	c := New(2, time.Minute)
	c.Insert("a")
	c.Insert("b")
	c.Insert("c")
	require.LessOrEqual(t, c.Len(), 2)
}

func TestConcurrentContainsOrInsertOnlyOneWinner(t *testing.T) {
	c := New(10, time.Minute)
	const n = 50
	wins := make(chan bool, n)
	var done sync.WaitGroup
	done.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer done.Done()
			wins <- !c.ContainsOrInsert("shared")
		}()
	}
	done.Wait()
	close(wins)
	firstCount := 0
	for w := range wins {
		if w {
			firstCount++
		}
	}
	require.Equal(t, 1, firstCount)
}
