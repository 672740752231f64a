package dispatcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nexusprover/pipeline/lifecycle"
	"github.com/nexusprover/pipeline/task"
)

func newInboxes(n, capacity int) []chan task.Task {
	inboxes := make([]chan task.Task, n)
	for i := range inboxes {
		inboxes[i] = make(chan task.Task, capacity)
	}
	return inboxes
}

func TestRoundRobinReachesDistinctInboxes(t *testing.T) {
	queue := make(chan task.Task, 10)
	inboxes := newInboxes(3, 8)
	d := New(queue, inboxes)
	halter := lifecycle.NewHalter()

	for i := 0; i < 3; i++ {
		queue <- task.Task{TaskID: string(rune('A' + i))}
	}

	go d.Run(halter)

	for i := 0; i < 3; i++ {
		select {
		case got := <-inboxes[i]:
			require.Equal(t, string(rune('A'+i)), got.TaskID)
		case <-time.After(time.Second):
			t.Fatalf("inbox %d never received a task", i)
		}
	}
	halter.Halt()
}

func TestDispatcherWaitsOnFullInbox(t *testing.T) {
	queue := make(chan task.Task, 10)
	inboxes := newInboxes(1, 1)
	d := New(queue, inboxes)
	halter := lifecycle.NewHalter()

	queue <- task.Task{TaskID: "A"}
	queue <- task.Task{TaskID: "B"}

	go d.Run(halter)

	select {
	case got := <-inboxes[0]:
		require.Equal(t, "A", got.TaskID)
	case <-time.After(time.Second):
		t.Fatal("never received first task")
	}
	select {
	case got := <-inboxes[0]:
		require.Equal(t, "B", got.TaskID)
	case <-time.After(time.Second):
		t.Fatal("never received second task after drain")
	}
	halter.Halt()
}

func TestDispatcherClosesInboxesOnShutdown(t *testing.T) {
	queue := make(chan task.Task)
	inboxes := newInboxes(2, 4)
	d := New(queue, inboxes)
	halter := lifecycle.NewHalter()

	done := make(chan struct{})
	go func() {
		d.Run(halter)
		close(done)
	}()
	halter.Halt()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after halt")
	}
	for i, inbox := range inboxes {
		_, ok := <-inbox
		require.False(t, ok, "inbox %d should be closed", i)
	}
}
