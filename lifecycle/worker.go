// worker.go - halt/shutdown broadcast primitive
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

// Package lifecycle provides the halt/shutdown-broadcast primitive
// every long-running pipeline component embeds. It plays the role the
// teacher's embedded `worker.Worker` (github.com/katzenpost/core/worker)
// plays in session.Session, rebuilt here because that package is not
// part of this module's dependency surface.
package lifecycle

import "sync"

// Halter is a single idempotent shutdown broadcast: closing it once
// wakes every goroutine selecting on HaltCh, however many there are.
type Halter struct {
	haltOnce sync.Once
	haltedCh chan struct{}
}

// NewHalter returns a ready-to-use Halter.
func NewHalter() *Halter {
	return &Halter{haltedCh: make(chan struct{})}
}

// HaltCh returns the channel that closes when Halt is called. Every
// component selects on this alongside its primary work.
func (h *Halter) HaltCh() <-chan struct{} {
	return h.haltedCh
}

// Halt signals shutdown. Safe to call multiple times or concurrently;
// only the first call has an effect.
func (h *Halter) Halt() {
	h.haltOnce.Do(func() { close(h.haltedCh) })
}

// IsHalted reports whether Halt has already been called, without
// blocking.
func (h *Halter) IsHalted() bool {
	select {
	case <-h.haltedCh:
		return true
	default:
		return false
	}
}

// Group tracks a set of goroutines spawned against a shared Halter and
// waits for all of them to return on shutdown.
type Group struct {
	*Halter
	wg sync.WaitGroup
}

// NewGroup returns a Group with a fresh Halter.
func NewGroup() *Group {
	return &Group{Halter: NewHalter()}
}

// Go spawns fn in a new goroutine tracked by the group's WaitGroup.
func (g *Group) Go(fn func()) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		fn()
	}()
}

// Shutdown halts the group and blocks until every spawned goroutine
// has returned.
func (g *Group) Shutdown() {
	g.Halt()
	g.wg.Wait()
}
