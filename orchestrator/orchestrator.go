// orchestrator.go - orchestrator capability interfaces
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

// Package orchestrator defines the capability interfaces the pipeline
// uses to talk to the remote coordinator and to geolocation services,
// plus HTTP implementations of both. Production wires the HTTP
// implementations; tests wire in-memory mocks — there is no reflection
// or runtime type introspection involved in picking between them.
package orchestrator

import (
	"context"

	"github.com/nexusprover/pipeline/task"
)

// Orchestrator is the remote-coordinator contract: fetching tasks and
// submitting proofs. Every method's error, when non-nil, is expected
// to be classifiable via classify.Classify(classify.Failure{...}) —
// HTTP implementations arrange for that by returning *StatusError.
type Orchestrator interface {
	// FetchTasks requests up to limit tasks via GET /v3/tasks. A
	// successful call with zero tasks is not an error.
	FetchTasks(ctx context.Context, nodeID string, verifyingKey []byte, limit int) ([]task.Task, error)

	// RequestTask requests a single task via POST /v3/tasks. It
	// returns (nil, nil) on an empty-404 response.
	RequestTask(ctx context.Context, nodeID string, verifyingKey []byte) (*task.Task, error)

	// SubmitProof submits a completed proof via POST /v3/tasks/submit.
	SubmitProof(ctx context.Context, submission task.ProofSubmission) error
}

// CountryProvider resolves a best-effort ISO-3166-1 alpha-2 country
// code for the local host.
type CountryProvider interface {
	Country(ctx context.Context) (string, error)
}

// StatusError carries the HTTP status code of a failed Orchestrator
// call so callers can classify it without re-parsing transport detail.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return httpStatusMessage(e.StatusCode)
	}
	return httpStatusMessage(e.StatusCode) + ": " + e.Body
}

func httpStatusMessage(code int) string {
	switch {
	case code == 404:
		return "orchestrator: no task available"
	case code == 429:
		return "orchestrator: rate limited"
	case code >= 500:
		return "orchestrator: server error"
	default:
		return "orchestrator: request failed"
	}
}
