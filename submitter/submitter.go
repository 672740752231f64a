// submitter.go - proof submission with retry
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

// Package submitter implements the Submitter: it consumes
// (task, proof) pairs, signs and hashes the proof, submits it to the
// Orchestrator with retry under the shared backoff policy, and
// deduplicates against a success cache so a task is never submitted
// twice after being accepted.
package submitter

import (
	"context"
	"sync/atomic"
	"time"

	logging "gopkg.in/op/go-logging.v1"

	"github.com/nexusprover/pipeline/cache"
	"github.com/nexusprover/pipeline/classify"
	"github.com/nexusprover/pipeline/constants"
	"github.com/nexusprover/pipeline/eventbus"
	"github.com/nexusprover/pipeline/lifecycle"
	"github.com/nexusprover/pipeline/orchestrator"
	"github.com/nexusprover/pipeline/signer"
	"github.com/nexusprover/pipeline/task"
	"github.com/nexusprover/pipeline/telemetry"
	"github.com/nexusprover/pipeline/wire"
	"github.com/nexusprover/pipeline/workerpool"
)

var log = logging.MustGetLogger("submitter")

// Submitter consumes workerpool.Result values and drives them to
// acceptance by the Orchestrator.
type Submitter struct {
	orch      orchestrator.Orchestrator
	key       signer.Key
	accepted  *cache.TaskCache
	telemetry *telemetry.Gatherer
	bus       *eventbus.Bus

	acceptedCount int64
	startedAt     time.Time
}

// New constructs a Submitter. accepted is the success-dedup cache,
// distinct from the fetcher's fetch-side cache.
func New(orch orchestrator.Orchestrator, key signer.Key, accepted *cache.TaskCache, gatherer *telemetry.Gatherer, bus *eventbus.Bus) *Submitter {
	return &Submitter{
		orch:      orch,
		key:       key,
		accepted:  accepted,
		telemetry: gatherer,
		bus:       bus,
		startedAt: time.Now(),
	}
}

// Run consumes results until the channel is closed or halter signals
// shutdown, emitting periodic Stats events on constants.StatsInterval.
func (s *Submitter) Run(results <-chan workerpool.Result, halter *lifecycle.Halter) {
	ticker := time.NewTicker(constants.StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-halter.HaltCh():
			return
		case <-ticker.C:
			s.emitStats()
		case r, ok := <-results:
			if !ok {
				return
			}
			s.submit(r, halter)
		}
	}
}

func (s *Submitter) submit(r workerpool.Result, halter *lifecycle.Halter) {
	if s.accepted.Contains(r.Task.TaskID) {
		return
	}

	proofBytes, err := wire.EncodeProof(r.Proof)
	if err != nil {
		log.Errorf("serialize failed: task_id=%s err=%s", r.Task.TaskID, err)
		s.bus.TryPublish(eventbus.SubmitError{TaskID: r.Task.TaskID, Kind: classify.KindSerializeFailed})
		return
	}
	proofHash := signer.Keccak256Hex(proofBytes)
	signature := s.key.Sign(r.Task.TaskID, proofHash)

	submission := task.ProofSubmission{
		TaskID:     r.Task.TaskID,
		ProofHash:  proofHash,
		ProofBytes: proofBytes,
		Signature:  signature,
		PublicKey:  s.key.Public,
		Telemetry:  s.telemetry.Gather(context.Background()),
	}

	policy := classify.NewBackoffPolicy()
	for attempt := 1; attempt <= constants.SubmitRetryBudget; attempt++ {
		if halter.IsHalted() {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), constants.HTTPTimeout)
		err := s.orch.SubmitProof(ctx, submission)
		cancel()

		if err == nil {
			s.accepted.Insert(r.Task.TaskID)
			atomic.AddInt64(&s.acceptedCount, 1)
			s.bus.TryPublish(eventbus.ProofAccepted{TaskID: r.Task.TaskID})
			return
		}

		kind := classify.Classify(classify.Failure{Err: err, StatusCode: statusCodeOf(err)})
		policy.OnFailure(kind)
		log.Warningf("submit failed: task_id=%s attempt=%d kind=%s", r.Task.TaskID, attempt, kind)
		if !kind.Retryable() || attempt == constants.SubmitRetryBudget {
			s.bus.TryPublish(eventbus.SubmitError{TaskID: r.Task.TaskID, Kind: kind})
			return
		}
		select {
		case <-time.After(policy.Duration()):
		case <-halter.HaltCh():
			return
		}
	}
}

func (s *Submitter) emitStats() {
	accepted := atomic.LoadInt64(&s.acceptedCount)
	elapsedMin := time.Since(s.startedAt).Minutes()
	rate := 0.0
	if elapsedMin > 0 {
		rate = float64(accepted) / elapsedMin
	}
	s.bus.TryPublish(eventbus.Stats{Accepted: accepted, RatePerMin: rate})
}

func statusCodeOf(err error) int {
	se, ok := err.(*orchestrator.StatusError)
	if !ok {
		return 0
	}
	return se.StatusCode
}
