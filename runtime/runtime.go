// runtime.go - pipeline startup and shutdown wiring
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

// Package runtime wires the pipeline's components together and
// exposes the two entry points an embedding application calls:
// StartAuthenticated (fetch/dispatch/prove/submit against a real
// Orchestrator) and StartAnonymous (self-driven proving with no
// coordinator).
package runtime

import (
	"time"

	"github.com/nexusprover/pipeline/cache"
	"github.com/nexusprover/pipeline/constants"
	"github.com/nexusprover/pipeline/dispatcher"
	"github.com/nexusprover/pipeline/eventbus"
	"github.com/nexusprover/pipeline/fetcher"
	"github.com/nexusprover/pipeline/lifecycle"
	"github.com/nexusprover/pipeline/orchestrator"
	"github.com/nexusprover/pipeline/prover"
	"github.com/nexusprover/pipeline/signer"
	"github.com/nexusprover/pipeline/submitter"
	"github.com/nexusprover/pipeline/task"
	"github.com/nexusprover/pipeline/telemetry"
	"github.com/nexusprover/pipeline/workerpool"
)

// EventStream is what callers range over to observe pipeline events.
type EventStream = <-chan eventbus.Event

// Handle lets the embedding application wait for a clean shutdown
// after signalling it.
type Handle struct {
	group  *lifecycle.Group
	bus    *eventbus.Bus
	Events EventStream
}

// Shutdown signals every spawned component and blocks until they have
// all exited, then publishes a Shutdown event (dropped if the stream is
// full) and closes the event stream.
func (h *Handle) Shutdown() {
	h.group.Shutdown()
	h.bus.TryPublish(eventbus.Shutdown{})
	h.bus.Close()
}

// StartAuthenticated wires the full fetch/dispatch/prove/submit
// pipeline against orch, proving tasks with proverKey identifying the
// submitting node. numWorkers is clamped per §8's boundary behavior.
func StartAuthenticated(proverKey signer.Key, nodeID string, orch orchestrator.Orchestrator, guest prover.GuestRunner, numWorkers int, country orchestrator.CountryProvider) *Handle {
	numWorkers = workerpool.ClampWorkerCount(numWorkers)

	group := lifecycle.NewGroup()
	bus := eventbus.New(constants.EventQueueSize)

	taskQueue := make(chan task.Task, constants.TaskQueueSize)
	results := make(chan workerpool.Result, constants.ResultQueueSize)
	inboxes := workerpool.NewInboxes(numWorkers)

	// The fetch-side cache only needs to outlive a handful of poll
	// cycles: its job is suppressing re-fetch of ids the orchestrator
	// hands back again before the task has cleared the queue.
	fetchCache := cache.New(constants.TaskQueueSize*4, 50*constants.FetcherTick)
	successCache := cache.New(constants.MaxCompletedTasks, 24*time.Hour)

	f := fetcher.New(orch, nodeID, proverKey.Public, taskQueue, fetchCache, bus)
	group.Go(func() { f.Run(group.Halter) })

	d := dispatcher.New(taskQueue, inboxes)
	group.Go(func() { d.Run(group.Halter) })

	p := prover.New(guest)
	for i := 0; i < numWorkers; i++ {
		i := i
		group.Go(func() { workerpool.RunAuthenticated(i, p, inboxes[i], results, bus, group.Halter) })
	}

	gatherer := telemetry.New(country, numWorkers)
	sub := submitter.New(orch, proverKey, successCache, gatherer, bus)
	group.Go(func() { sub.Run(results, group.Halter) })

	return &Handle{group: group, bus: bus, Events: bus.Stream()}
}

// StartAnonymous spawns numWorkers self-driven workers with no
// coordinator; proofs are computed and discarded, observable only via
// the returned event stream.
func StartAnonymous(guest prover.GuestRunner, numWorkers int) *Handle {
	numWorkers = workerpool.ClampWorkerCount(numWorkers)

	group := lifecycle.NewGroup()
	bus := eventbus.New(constants.EventQueueSize)
	p := prover.New(guest)

	for i := 0; i < numWorkers; i++ {
		i := i
		group.Go(func() { workerpool.RunAnonymous(i, p, bus, group.Halter) })
	}

	return &Handle{group: group, bus: bus, Events: bus.Stream()}
}
