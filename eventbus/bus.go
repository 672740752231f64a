// bus.go - typed event stream
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

// Package eventbus is the pipeline's typed event stream, modeled on
// go-ethereum's event.Feed: a bounded channel producers publish into
// and a single stream consumers range over. Unlike event.Feed (which
// fans one Send out to every Subscriber), the runtime only ever needs
// one outgoing stream per mode, so Bus keeps that one-channel shape
// instead of carrying the multi-subscriber machinery it doesn't use.
package eventbus

// Bus multiplexes events from any number of producer goroutines onto
// one bounded output channel.
type Bus struct {
	ch chan Event
}

// New creates a Bus with the given channel capacity.
func New(capacity int) *Bus {
	return &Bus{ch: make(chan Event, capacity)}
}

// Publish sends ev to the bus. If the channel is full, Publish blocks
// the caller — events are diagnostic, not control flow, and a full
// event channel means the consumer has fallen behind, which backs up
// into producers exactly the way a full task/result queue does.
func (b *Bus) Publish(ev Event) {
	b.ch <- ev
}

// TryPublish sends ev without blocking, dropping it if the channel is
// full. Used on shutdown paths where blocking would deadlock against
// a consumer that has already stopped reading.
func (b *Bus) TryPublish(ev Event) {
	select {
	case b.ch <- ev:
	default:
	}
}

// Stream returns the receive side of the bus, what runtime.Start*
// hands back as the caller's EventStream.
func (b *Bus) Stream() <-chan Event {
	return b.ch
}

// Close closes the underlying channel. Callers must ensure no
// producer publishes after Close.
func (b *Bus) Close() {
	close(b.ch)
}
