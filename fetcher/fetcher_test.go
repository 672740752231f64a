package fetcher

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nexusprover/pipeline/cache"
	"github.com/nexusprover/pipeline/eventbus"
	"github.com/nexusprover/pipeline/lifecycle"
	"github.com/nexusprover/pipeline/orchestrator"
	"github.com/nexusprover/pipeline/task"
)

type mockOrchestrator struct {
	mu        sync.Mutex
	responses [][]task.Task
	errs      []error
	calls     int32
}

func (m *mockOrchestrator) FetchTasks(ctx context.Context, nodeID string, verifyingKey []byte, limit int) ([]task.Task, error) {
	i := int(atomic.AddInt32(&m.calls, 1)) - 1
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if i < len(m.responses) {
		return m.responses[i], nil
	}
	return nil, nil
}

func (m *mockOrchestrator) RequestTask(ctx context.Context, nodeID string, verifyingKey []byte) (*task.Task, error) {
	return nil, nil
}

func (m *mockOrchestrator) SubmitProof(ctx context.Context, submission task.ProofSubmission) error {
	return nil
}

var _ orchestrator.Orchestrator = (*mockOrchestrator)(nil)

func TestFetcherPushesNewTasks(t *testing.T) {
	mock := &mockOrchestrator{responses: [][]task.Task{
		{{TaskID: "T1"}, {TaskID: "T2"}},
	}}
	queue := make(chan task.Task, 10)
	seen := cache.New(100, time.Minute)
	bus := eventbus.New(10)

	f := New(mock, "node1", []byte("pub"), queue, seen, bus)
	halter := lifecycle.NewHalter()
	f.tick(halter)

	require.Len(t, queue, 2)
}

func TestFetcherSuppressesDuplicates(t *testing.T) {
	mock := &mockOrchestrator{responses: [][]task.Task{
		{{TaskID: "T1"}},
		{{TaskID: "T1"}},
	}}
	queue := make(chan task.Task, 10)
	seen := cache.New(100, time.Minute)
	bus := eventbus.New(10)

	f := New(mock, "node1", []byte("pub"), queue, seen, bus)
	halter := lifecycle.NewHalter()
	f.tick(halter)
	f.lastFetch = time.Time{} // force past the backoff gate
	f.tick(halter)

	require.Len(t, queue, 1)
}

func TestFetcherBackoffDoublesOnRateLimit(t *testing.T) {
	mock := &mockOrchestrator{errs: []error{
		&orchestrator.StatusError{StatusCode: 429},
	}}
	queue := make(chan task.Task, 10)
	seen := cache.New(100, time.Minute)
	bus := eventbus.New(10)

	f := New(mock, "node1", []byte("pub"), queue, seen, bus)
	halter := lifecycle.NewHalter()
	require.Equal(t, 30*time.Second, f.backoff.Duration())
	f.tick(halter)
	require.Equal(t, 60*time.Second, f.backoff.Duration())
}

func TestFetcherStopsOnHalt(t *testing.T) {
	mock := &mockOrchestrator{}
	queue := make(chan task.Task)
	seen := cache.New(100, time.Minute)
	bus := eventbus.New(10)

	f := New(mock, "node1", []byte("pub"), queue, seen, bus)
	halter := lifecycle.NewHalter()
	halter.Halt()

	done := make(chan struct{})
	go func() {
		f.Run(halter)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after halt")
	}
}
