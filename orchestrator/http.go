// http.go - orchestrator HTTP client
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

package orchestrator

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	logging "gopkg.in/op/go-logging.v1"

	"github.com/nexusprover/pipeline/constants"
	"github.com/nexusprover/pipeline/task"
	"github.com/nexusprover/pipeline/wire"
)

const contentType = "application/x-protobuf"

// HTTPClient implements Orchestrator as protobuf-over-HTTPS calls to
// /v3/tasks and /v3/tasks/submit. Request and response bodies are bare
// wire-encoded messages; no length prefix (wire.WriteFramed) is added
// or expected. The underlying http.Client is shared across calls
// so connections are reused, per the concurrency model's "HTTP client:
// shared; connection reuse required".
type HTTPClient struct {
	baseURL string
	client  *http.Client
	log     *logging.Logger
}

// NewHTTPClient constructs an HTTPClient against baseURL, fallible the
// way any HTTP client construction must be: a malformed baseURL
// surfaces here, during startup, not mid-pipeline.
func NewHTTPClient(baseURL string) (*HTTPClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("orchestrator: base URL must not be empty")
	}
	if u, err := url.Parse(baseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("orchestrator: malformed base URL %q", baseURL)
	}
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: constants.HTTPTimeout},
		log:     logging.MustGetLogger("orchestrator"),
	}, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.HTTPTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("orchestrator: build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Debugf("%s %s failed: %s", method, path, err)
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: read response: %w", err)
	}

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent {
		return respBody, nil
	}
	return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
}

// FetchTasks implements Orchestrator.
func (c *HTTPClient) FetchTasks(ctx context.Context, nodeID string, verifyingKey []byte, limit int) ([]task.Task, error) {
	reqBody := wire.EncodeTaskRequest(nodeID, verifyingKey)
	respBody, err := c.do(ctx, http.MethodGet, "/v3/tasks", reqBody)
	if err != nil {
		return nil, err
	}
	if len(respBody) == 0 {
		return nil, nil
	}
	tasks, err := wire.DecodeTaskList(respBody)
	if err != nil {
		return nil, err
	}
	if len(tasks) > limit {
		tasks = tasks[:limit]
	}
	return tasks, nil
}

// RequestTask implements Orchestrator.
func (c *HTTPClient) RequestTask(ctx context.Context, nodeID string, verifyingKey []byte) (*task.Task, error) {
	reqBody := wire.EncodeTaskRequest(nodeID, verifyingKey)
	respBody, err := c.do(ctx, http.MethodPost, "/v3/tasks", reqBody)
	if err != nil {
		var statusErr *StatusError
		if isStatusCode(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	if len(respBody) == 0 {
		return nil, nil
	}
	t, err := wire.DecodeTask(respBody)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// SubmitProof implements Orchestrator.
func (c *HTTPClient) SubmitProof(ctx context.Context, submission task.ProofSubmission) error {
	reqBody, err := wire.EncodeProofSubmission(submission)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPost, "/v3/tasks/submit", reqBody)
	return err
}

func isStatusCode(err error, target **StatusError) bool {
	se, ok := err.(*StatusError)
	if !ok {
		return false
	}
	*target = se
	return true
}
