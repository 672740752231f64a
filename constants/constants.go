// constants.go - pipeline sizing and timing constants
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

// Package constants contains the sizing and timing constants that
// govern the prover worker pipeline.
package constants

import (
	"time"
)

const (
	// TaskQueueSize is the capacity of the shared queue the fetcher
	// pushes into and the dispatcher drains from.
	TaskQueueSize = 100

	// WorkerInboxSize is the per-worker inbox capacity.
	WorkerInboxSize = 8

	// ResultQueueSize is the capacity of the (task, proof) channel
	// handed from workers to the submitter.
	ResultQueueSize = 50

	// EventQueueSize is the capacity of the multiplexed event stream.
	EventQueueSize = 100

	// MaxCompletedTasks bounds the submitter's success-dedup cache.
	MaxCompletedTasks = 500

	// LowWaterMark is the queue length below which the fetcher is
	// eligible to request a new batch.
	LowWaterMark = 25

	// BatchSize is the maximum number of tasks requested per fetch.
	BatchSize = 10

	// MinBackoff is the starting, and minimum, fetch/submit backoff.
	MinBackoff = 30 * time.Second

	// MaxBackoff is the backoff ceiling for both fetch and submit retries.
	MaxBackoff = 60 * time.Second

	// Max404sBeforeGivingUp is the number of consecutive empty-404
	// fetches tolerated before pausing at MaxBackoff.
	Max404sBeforeGivingUp = 3

	// HTTPTimeout bounds every individual Orchestrator HTTP call.
	HTTPTimeout = 10 * time.Second

	// AnonInterval is the sleep between proofs in anonymous mode.
	AnonInterval = 300 * time.Millisecond

	// FetcherTick is the fetcher's poll cadence.
	FetcherTick = 500 * time.Millisecond

	// QueueLogInterval throttles queue-level telemetry events.
	QueueLogInterval = 10 * time.Second

	// StatsInterval is the submitter's accepted-count/rate cadence.
	StatsInterval = 30 * time.Second

	// SubmitRetryBudget is the number of submission attempts allowed
	// per proof before the item is dropped.
	SubmitRetryBudget = 3

	// MinWorkers and MaxWorkers bound the clamped worker pool size.
	MinWorkers = 1
	MaxWorkers = 8

	// DefaultCountry is used whenever geolocation detection fails.
	DefaultCountry = "US"
)
