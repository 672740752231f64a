// events.go - pipeline event types
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

package eventbus

import (
	"time"

	"github.com/nexusprover/pipeline/classify"
)

// Event is the marker interface implemented by every event kind the
// pipeline emits. Consumers type-switch on the concrete type.
type Event interface {
	isEvent()
}

// FetcherBackoff reports that the fetcher is backing off and why.
type FetcherBackoff struct {
	Reason   classify.Kind
	Duration time.Duration
}

// QueueLevel is a throttled snapshot of the shared task queue's depth.
type QueueLevel struct {
	Len int
	Cap int
}

// ProofComputed is emitted by a worker after a successful
// ProveAuthenticated/ProveAnonymous call.
type ProofComputed struct {
	WorkerID int
	TaskID   string // empty in anonymous mode
	Elapsed  time.Duration
}

// ProofAccepted is emitted once per task_id, after the Orchestrator
// accepts a submission.
type ProofAccepted struct {
	TaskID string
}

// ProofError is emitted when proving a task fails.
type ProofError struct {
	TaskID string
	Kind   string
}

// SubmitError is emitted when a submission is dropped: the proof could
// not be serialized, the failure was not retryable, or the retry
// budget was exhausted.
type SubmitError struct {
	TaskID string
	Kind   classify.Kind
}

// Stats is the submitter's periodic accepted-count/rate snapshot.
type Stats struct {
	Accepted   int64
	RatePerMin float64
}

// Shutdown marks that the runtime has finished its shutdown sequence.
type Shutdown struct{}

func (FetcherBackoff) isEvent() {}
func (QueueLevel) isEvent()     {}
func (ProofComputed) isEvent()  {}
func (ProofAccepted) isEvent()  {}
func (ProofError) isEvent()     {}
func (SubmitError) isEvent()    {}
func (Stats) isEvent()          {}
func (Shutdown) isEvent()       {}
