// fetcher.go - online task fetcher
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

// Package fetcher implements the Online Fetcher: a single goroutine
// that keeps the shared task queue non-empty without over-fetching,
// polling the Orchestrator on a fixed cadence and backing off under
// the shared classify.BackoffPolicy.
package fetcher

import (
	"context"
	"time"

	logging "gopkg.in/op/go-logging.v1"

	"github.com/nexusprover/pipeline/cache"
	"github.com/nexusprover/pipeline/classify"
	"github.com/nexusprover/pipeline/constants"
	"github.com/nexusprover/pipeline/eventbus"
	"github.com/nexusprover/pipeline/lifecycle"
	"github.com/nexusprover/pipeline/orchestrator"
	"github.com/nexusprover/pipeline/task"
)

var log = logging.MustGetLogger("fetcher")

// Fetcher polls orchestrator on constants.FetcherTick, pushing newly
// seen tasks into taskQueue while the shared task queue stays below
// constants.LowWaterMark.
type Fetcher struct {
	orch         orchestrator.Orchestrator
	nodeID       string
	verifyingKey []byte
	taskQueue    chan task.Task
	seen         *cache.TaskCache
	bus          *eventbus.Bus
	backoff      *classify.BackoffPolicy

	lastFetch time.Time
	lastQueueLog time.Time
}

// New constructs a Fetcher. taskQueue and bus are owned by the
// runtime; seen is the fetch-side dedup cache (distinct from the
// submitter's success cache).
func New(orch orchestrator.Orchestrator, nodeID string, verifyingKey []byte, taskQueue chan task.Task, seen *cache.TaskCache, bus *eventbus.Bus) *Fetcher {
	return &Fetcher{
		orch:         orch,
		nodeID:       nodeID,
		verifyingKey: verifyingKey,
		taskQueue:    taskQueue,
		seen:         seen,
		bus:          bus,
		backoff:      classify.NewBackoffPolicy(),
	}
}

// Run polls until halter signals shutdown. It is meant to be spawned
// as the sole goroutine driving this Fetcher.
func (f *Fetcher) Run(halter *lifecycle.Halter) {
	ticker := time.NewTicker(constants.FetcherTick)
	defer ticker.Stop()

	for {
		select {
		case <-halter.HaltCh():
			return
		case <-ticker.C:
			f.tick(halter)
		}
	}
}

func (f *Fetcher) tick(halter *lifecycle.Halter) {
	if halter.IsHalted() {
		return
	}
	if time.Since(f.lastFetch) < f.backoff.Duration() {
		return
	}
	if len(f.taskQueue) >= constants.LowWaterMark {
		f.logQueueLevel()
		return
	}

	f.lastFetch = time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), constants.HTTPTimeout)
	tasks, err := f.orch.FetchTasks(ctx, f.nodeID, f.verifyingKey, constants.BatchSize)
	cancel()

	if err != nil {
		f.onFailure(classify.Failure{Err: err, StatusCode: statusCodeOf(err)})
		return
	}
	if len(tasks) == 0 {
		f.onFailure(classify.Failure{StatusCode: 404})
		return
	}

	f.backoff.OnSuccess()
	for _, t := range tasks {
		if halter.IsHalted() {
			return
		}
		if f.seen.ContainsOrInsert(t.TaskID) {
			continue
		}
		select {
		case f.taskQueue <- t:
		case <-halter.HaltCh():
			return
		}
	}
	f.logQueueLevel()
}

func (f *Fetcher) onFailure(failure classify.Failure) {
	kind := classify.Classify(failure)
	pauseAtMax := f.backoff.OnFailure(kind)
	log.Debugf("fetch failed: kind=%s pause_at_max=%t", kind, pauseAtMax)
	f.bus.TryPublish(eventbus.FetcherBackoff{Reason: kind, Duration: f.backoff.Duration()})
}

func (f *Fetcher) logQueueLevel() {
	if time.Since(f.lastQueueLog) < constants.QueueLogInterval {
		return
	}
	f.lastQueueLog = time.Now()
	f.bus.TryPublish(eventbus.QueueLevel{Len: len(f.taskQueue), Cap: cap(f.taskQueue)})
}

// statusCodeOf extracts the HTTP status code from err if it is an
// *orchestrator.StatusError, and 0 (network failure) otherwise.
func statusCodeOf(err error) int {
	se, ok := err.(*orchestrator.StatusError)
	if !ok {
		return 0
	}
	return se.StatusCode
}
