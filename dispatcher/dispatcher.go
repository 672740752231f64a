// dispatcher.go - round-robin task dispatch
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

// Package dispatcher implements the strict round-robin distributor
// from the shared task queue into per-worker inboxes.
package dispatcher

import (
	"github.com/nexusprover/pipeline/lifecycle"
	"github.com/nexusprover/pipeline/task"
)

// Dispatcher reads taskQueue and writes to inboxes in strict
// round-robin order, per §4.5's "must not spin or skip": a full
// inbox is waited on, never worked around.
type Dispatcher struct {
	taskQueue <-chan task.Task
	inboxes   []chan task.Task
}

// New constructs a Dispatcher over the given inboxes, one per worker.
func New(taskQueue <-chan task.Task, inboxes []chan task.Task) *Dispatcher {
	return &Dispatcher{taskQueue: taskQueue, inboxes: inboxes}
}

// Run drains taskQueue into the worker inboxes until halter signals
// shutdown, then closes every inbox so workers can exit their own
// receive loops.
func (d *Dispatcher) Run(halter *lifecycle.Halter) {
	defer d.closeInboxes()

	cursor := 0
	for {
		select {
		case <-halter.HaltCh():
			return
		case t, ok := <-d.taskQueue:
			if !ok {
				return
			}
			inbox := d.inboxes[cursor]
			cursor = (cursor + 1) % len(d.inboxes)
			select {
			case inbox <- t:
			case <-halter.HaltCh():
				return
			}
		}
	}
}

func (d *Dispatcher) closeInboxes() {
	for _, inbox := range d.inboxes {
		close(inbox)
	}
}
