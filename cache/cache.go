// cache.go - task identifier dedup cache
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

// Package cache implements the task-identifier dedup cache used by
// both the fetcher (suppressing re-fetch of recently seen task ids)
// and the submitter (suppressing duplicate submissions). Two
// independent instances are expected, one per use.
package cache

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// TaskCache is a bounded, TTL-indexed set of task ids. contains and
// insert are combined under one mutex so a concurrent insert of the
// same id can never be observed mid-mutation, per the cache-atomicity
// requirement this pipeline is built to (the source implementation it
// replaces checked membership and inserted under separate critical
// sections, leaving a race window).
type TaskCache struct {
	mu    sync.Mutex
	inner *expirable.LRU[string, struct{}]
}

// New constructs a TaskCache with the given capacity and retention
// TTL.
func New(capacity int, ttl time.Duration) *TaskCache {
	return &TaskCache{
		inner: expirable.NewLRU[string, struct{}](capacity, nil, ttl),
	}
}

// Contains reports whether id is present and not yet expired.
func (c *TaskCache) Contains(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Contains(id)
}

// Insert adds id to the cache, refreshing its TTL if already present.
func (c *TaskCache) Insert(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner.Add(id, struct{}{})
}

// ContainsOrInsert is the single-lock fast path: it reports whether id
// was already present, and if not, inserts it atomically with the
// check. Callers use this to avoid a separate Contains+Insert pair
// that would reopen the race the two-step form has.
func (c *TaskCache) ContainsOrInsert(id string) (alreadyPresent bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inner.Contains(id) {
		return true
	}
	c.inner.Add(id, struct{}{})
	return false
}

// Len reports the number of live (non-expired) entries.
func (c *TaskCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Len()
}
