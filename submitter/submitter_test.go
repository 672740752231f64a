package submitter

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nexusprover/pipeline/cache"
	"github.com/nexusprover/pipeline/eventbus"
	"github.com/nexusprover/pipeline/lifecycle"
	"github.com/nexusprover/pipeline/orchestrator"
	"github.com/nexusprover/pipeline/prover"
	"github.com/nexusprover/pipeline/signer"
	"github.com/nexusprover/pipeline/task"
	"github.com/nexusprover/pipeline/telemetry"
	"github.com/nexusprover/pipeline/workerpool"
)

type mockOrchestrator struct {
	mu            sync.Mutex
	submissions   []task.ProofSubmission
	errsThenNil   []error
}

func (m *mockOrchestrator) FetchTasks(context.Context, string, []byte, int) ([]task.Task, error) {
	return nil, nil
}

func (m *mockOrchestrator) RequestTask(context.Context, string, []byte) (*task.Task, error) {
	return nil, nil
}

func (m *mockOrchestrator) SubmitProof(ctx context.Context, submission task.ProofSubmission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := len(m.submissions)
	m.submissions = append(m.submissions, submission)
	if idx < len(m.errsThenNil) {
		return m.errsThenNil[idx]
	}
	return nil
}

func newTestSubmitter(orch orchestrator.Orchestrator) (*Submitter, *eventbus.Bus) {
	key, _ := signer.GenerateKey()
	accepted := cache.New(100, time.Minute)
	gatherer := telemetry.New(orchestrator.StaticCountryProvider{Code: "US"}, 1)
	bus := eventbus.New(10)
	return New(orch, key, accepted, gatherer, bus), bus
}

func testResult(taskID string) workerpool.Result {
	p := prover.New(prover.ReferenceGuest{})
	proof, _ := p.ProveAuthenticated(task.Task{TaskID: taskID, ProgramID: task.ProgramFastFib, PublicInputs: task.EncodeFastFib(10)})
	return workerpool.Result{Task: task.Task{TaskID: taskID}, Proof: proof}
}

func TestSubmitAcceptsAndEmitsEvent(t *testing.T) {
	mock := &mockOrchestrator{}
	s, bus := newTestSubmitter(mock)
	halter := lifecycle.NewHalter()

	s.submit(testResult("T1"), halter)

	require.Len(t, mock.submissions, 1)
	require.Equal(t, "T1", mock.submissions[0].TaskID)
	require.True(t, s.accepted.Contains("T1"))

	select {
	case ev := <-bus.Stream():
		accept, ok := ev.(eventbus.ProofAccepted)
		require.True(t, ok)
		require.Equal(t, "T1", accept.TaskID)
	case <-time.After(time.Second):
		t.Fatal("no ProofAccepted emitted")
	}
}

func TestSubmitSkipsAlreadyAccepted(t *testing.T) {
	mock := &mockOrchestrator{}
	s, _ := newTestSubmitter(mock)
	halter := lifecycle.NewHalter()
	s.accepted.Insert("T1")

	s.submit(testResult("T1"), halter)

	require.Empty(t, mock.submissions)
}

func TestSubmitHaltDuringBackoffWaitAbortsRetry(t *testing.T) {
	// A rate-limited first attempt puts submit() to sleep for the
	// (tens-of-seconds) backoff duration before its retry; halting
	// mid-wait must return promptly rather than block the test suite
	// for the full duration.
	mock := &mockOrchestrator{errsThenNil: []error{
		&orchestrator.StatusError{StatusCode: 429},
	}}
	s, _ := newTestSubmitter(mock)
	halter := lifecycle.NewHalter()

	done := make(chan struct{})
	go func() {
		s.submit(testResult("T1"), halter)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	halter.Halt()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("submit did not return promptly after halt during backoff wait")
	}
	require.Len(t, mock.submissions, 1)
	require.False(t, s.accepted.Contains("T1"))
}

func TestSubmitDropsOnNonRetryable(t *testing.T) {
	mock := &mockOrchestrator{errsThenNil: []error{
		&orchestrator.StatusError{StatusCode: 400},
	}}
	s, bus := newTestSubmitter(mock)
	halter := lifecycle.NewHalter()

	s.submit(testResult("T1"), halter)
	require.Len(t, mock.submissions, 1)
	require.False(t, s.accepted.Contains("T1"))

	select {
	case ev := <-bus.Stream():
		se, ok := ev.(eventbus.SubmitError)
		require.True(t, ok)
		require.Equal(t, "T1", se.TaskID)
	case <-time.After(time.Second):
		t.Fatal("no SubmitError emitted")
	}
}
