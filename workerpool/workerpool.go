// workerpool.go - offline worker pool
// Copyright (C) 2024  Nexus Prover Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package workerpool implements the Offline Worker Pool: a fixed
// number of workers, each running the Prover against tasks pulled
// from its own inbox (authenticated mode) or against a fixed input on
// a timer (anonymous mode).
package workerpool

import (
	"errors"
	"fmt"
	"time"

	logging "gopkg.in/op/go-logging.v1"

	"github.com/nexusprover/pipeline/constants"
	"github.com/nexusprover/pipeline/eventbus"
	"github.com/nexusprover/pipeline/lifecycle"
	"github.com/nexusprover/pipeline/prover"
	"github.com/nexusprover/pipeline/task"
)

var log = logging.MustGetLogger("workerpool")

// Result pairs a completed task with its proof, handed from a worker
// to the submitter.
type Result struct {
	Task  task.Task
	Proof task.Proof
}

// ClampWorkerCount clamps n to [constants.MinWorkers, constants.MaxWorkers],
// logging a warning if clamping was necessary, per §8's boundary
// behaviors.
func ClampWorkerCount(n int) int {
	switch {
	case n < constants.MinWorkers:
		log.Warningf("num_workers %d below minimum, clamping to %d", n, constants.MinWorkers)
		return constants.MinWorkers
	case n > constants.MaxWorkers:
		log.Warningf("num_workers %d above maximum, clamping to %d", n, constants.MaxWorkers)
		return constants.MaxWorkers
	default:
		return n
	}
}

// NewInboxes allocates n worker inboxes of constants.WorkerInboxSize
// capacity, for the dispatcher and the authenticated workers to share.
func NewInboxes(n int) []chan task.Task {
	inboxes := make([]chan task.Task, n)
	for i := range inboxes {
		inboxes[i] = make(chan task.Task, constants.WorkerInboxSize)
	}
	return inboxes
}

// RunAuthenticated drives worker id: it consumes inbox until the
// dispatcher closes it or halter signals shutdown, calling
// ProveAuthenticated on every task and forwarding successes on
// results.
func RunAuthenticated(id int, p *prover.Prover, inbox <-chan task.Task, results chan<- Result, bus *eventbus.Bus, halter *lifecycle.Halter) {
	workerLog := logging.MustGetLogger(fmt.Sprintf("worker-%d", id))
	for {
		select {
		case <-halter.HaltCh():
			return
		case t, ok := <-inbox:
			if !ok {
				return
			}
			start := time.Now()
			proof, err := p.ProveAuthenticated(t)
			if err != nil {
				emitProofError(bus, workerLog, t.TaskID, err)
				continue
			}
			bus.TryPublish(eventbus.ProofComputed{WorkerID: id, TaskID: t.TaskID, Elapsed: time.Since(start)})
			select {
			case results <- Result{Task: t, Proof: proof}:
			case <-halter.HaltCh():
				return
			}
		}
	}
}

// RunAnonymous drives worker id in self-driven mode: no inbox, no
// submission, just a fixed-cadence loop proving the fixed
// fib_input_initial(9, 1, 1) binding and emitting local events.
func RunAnonymous(id int, p *prover.Prover, bus *eventbus.Bus, halter *lifecycle.Halter) {
	workerLog := logging.MustGetLogger(fmt.Sprintf("worker-%d", id))
	ticker := time.NewTicker(constants.AnonInterval)
	defer ticker.Stop()

	for {
		select {
		case <-halter.HaltCh():
			return
		case <-ticker.C:
			start := time.Now()
			_, err := p.ProveAnonymous()
			if err != nil {
				emitProofError(bus, workerLog, "", err)
				continue
			}
			bus.TryPublish(eventbus.ProofComputed{WorkerID: id, Elapsed: time.Since(start)})
		}
	}
}

func emitProofError(bus *eventbus.Bus, workerLog *logging.Logger, taskID string, err error) {
	kind := proverErrorKind(err)
	workerLog.Warningf("prove failed: task_id=%q kind=%s err=%s", taskID, kind, err)
	bus.TryPublish(eventbus.ProofError{TaskID: taskID, Kind: kind})
}

func proverErrorKind(err error) string {
	var guestFailure prover.GuestFailure
	var internalErr prover.InternalProver
	switch {
	case errors.As(err, &guestFailure):
		return "guest_failure"
	case errors.As(err, &internalErr):
		return "internal_prover"
	case errors.Is(err, task.ErrMalformedTask):
		return "malformed_task"
	case errors.Is(err, prover.ErrUnknownProgram):
		return "unknown_program"
	default:
		return "unknown"
	}
}
