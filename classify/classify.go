// classify.go - failure taxonomy and backoff policy
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

// Package classify implements the error taxonomy and the adaptive
// backoff policy that every network-facing component (the fetcher and
// the submitter) shares, so the two can never drift into two
// different doubling schedules.
package classify

import (
	"errors"
	"sync"
	"time"

	logging "gopkg.in/op/go-logging.v1"

	"github.com/nexusprover/pipeline/constants"
)

// Kind is the classification a failure is mapped to.
type Kind int

const (
	// KindFatal covers out-of-core initialization failures only; it
	// never arises from in-pipeline operations.
	KindFatal Kind = iota
	// KindRateLimited is an HTTP 429.
	KindRateLimited
	// KindNetwork is a transport-layer failure.
	KindNetwork
	// KindServer5xx is any 5xx response, retried like KindNetwork.
	KindServer5xx
	// KindEmpty404 is a 404 on a task-fetch, a soft "nothing to do" signal.
	KindEmpty404
	// KindNonRetryable is any other 4xx: the originating request is
	// dropped but the pipeline continues.
	KindNonRetryable
	// KindSerializeFailed marks a proof that could not be encoded to
	// its wire form (e.g. it would not fit the frame's length prefix).
	// Retrying would produce the same bytes, so the task is skipped.
	KindSerializeFailed
)

func (k Kind) String() string {
	switch k {
	case KindFatal:
		return "fatal"
	case KindRateLimited:
		return "rate_limited"
	case KindNetwork:
		return "network"
	case KindServer5xx:
		return "server_5xx"
	case KindEmpty404:
		return "empty_404"
	case KindNonRetryable:
		return "non_retryable"
	case KindSerializeFailed:
		return "serialize_failed"
	default:
		return "unknown"
	}
}

// Retryable reports whether the backoff policy should schedule a
// retry for this kind.
func (k Kind) Retryable() bool {
	switch k {
	case KindRateLimited, KindNetwork, KindServer5xx, KindEmpty404:
		return true
	default:
		return false
	}
}

// LogLevel returns the severity at which a failure of this kind
// should be logged, per the classifier's log-level mapping.
func (k Kind) LogLevel() logging.Level {
	switch k {
	case KindFatal, KindSerializeFailed:
		return logging.ERROR
	case KindNonRetryable:
		return logging.INFO
	case KindEmpty404:
		return logging.DEBUG
	default:
		return logging.WARNING
	}
}

// Failure describes an operation's outcome for classification
// purposes. StatusCode is 0 for non-HTTP failures (e.g. a connection
// error before any response was received).
type Failure struct {
	StatusCode int
	Err        error
}

// ErrNetwork is a sentinel for transport-layer errors (dial/timeout/
// connection reset) that never produced an HTTP status. Classify does
// not inspect it: it identifies network failures by StatusCode 0.
var ErrNetwork = errors.New("classify: network failure")

// Classify maps a Failure to its Kind.
func Classify(f Failure) Kind {
	switch {
	case f.StatusCode == 404:
		return KindEmpty404
	case f.StatusCode == 429:
		return KindRateLimited
	case f.StatusCode >= 500 && f.StatusCode < 600:
		return KindServer5xx
	case f.StatusCode >= 400 && f.StatusCode < 500:
		return KindNonRetryable
	case f.StatusCode == 0:
		return KindNetwork
	default:
		return KindNonRetryable
	}
}

// BackoffPolicy is the shared doubling-with-cap backoff state machine
// described for the fetcher and reused, unmodified, by the submitter's
// per-task retry loop.
type BackoffPolicy struct {
	mu            sync.Mutex
	backoff       time.Duration
	consecutive404 int
}

// NewBackoffPolicy returns a policy starting at constants.MinBackoff.
func NewBackoffPolicy() *BackoffPolicy {
	return &BackoffPolicy{backoff: constants.MinBackoff}
}

// Duration returns the current backoff duration.
func (p *BackoffPolicy) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.backoff
}

// OnSuccess resets the backoff and the 404 counter.
func (p *BackoffPolicy) OnSuccess() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.backoff = constants.MinBackoff
	p.consecutive404 = 0
}

// OnFailure applies kind's effect on the backoff schedule and reports
// whether the caller should pause at MaxBackoff because
// Max404sBeforeGivingUp consecutive empty-404s were observed.
func (p *BackoffPolicy) OnFailure(kind Kind) (pauseAtMax bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch kind {
	case KindRateLimited, KindNetwork, KindServer5xx:
		p.consecutive404 = 0
		p.backoff *= 2
		if p.backoff > constants.MaxBackoff {
			p.backoff = constants.MaxBackoff
		}
	case KindEmpty404:
		p.consecutive404++
		if p.consecutive404 >= constants.Max404sBeforeGivingUp {
			p.backoff = constants.MaxBackoff
			p.consecutive404 = 0
			return true
		}
	case KindNonRetryable, KindFatal:
		// Not a retry signal; backoff is left untouched so the next
		// well-formed request isn't penalized for someone else's bad
		// request.
	}
	return false
}
