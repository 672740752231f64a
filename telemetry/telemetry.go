// telemetry.go - host telemetry gathering
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

// Package telemetry gathers the best-effort host information attached
// to every proof submission: memory figures from runtime.MemStats, an
// estimated peak GFLOPS figure, and the country code from a
// CountryProvider. The memory figures are the Go process's own heap
// bytes in use (MemoryUsed) and bytes obtained from the OS by the Go
// runtime (MemoryCapacity); host resident-set size and total system
// memory are not read.
package telemetry

import (
	"context"
	"runtime"

	"github.com/nexusprover/pipeline/constants"
	"github.com/nexusprover/pipeline/orchestrator"
	"github.com/nexusprover/pipeline/task"
)

// flopsPerWorker is a rough, constant estimate of one worker's
// sustained proving throughput; actual guest performance depends on
// the out-of-scope prover library, so this is a placeholder figure
// scaled by worker count rather than a measurement.
const flopsPerWorker = 2_000_000_000

// Gatherer collects task.Telemetry snapshots. It is safe for
// concurrent use: Gather only reads runtime memory stats and the
// process-lifetime-cached country code.
type Gatherer struct {
	country    orchestrator.CountryProvider
	numWorkers int
}

// New constructs a Gatherer. country is consulted at most once per
// process (its own caching, not this type's).
func New(country orchestrator.CountryProvider, numWorkers int) *Gatherer {
	return &Gatherer{country: country, numWorkers: numWorkers}
}

// Gather returns a best-effort Telemetry snapshot. A failed country
// lookup falls back to constants.DefaultCountry, regardless of what
// the provider itself does on error.
func (g *Gatherer) Gather(ctx context.Context) task.Telemetry {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	location, err := g.country.Country(ctx)
	if err != nil {
		location = constants.DefaultCountry
	}

	return task.Telemetry{
		FlopsPerSec:    int64(g.numWorkers) * flopsPerWorker,
		MemoryUsed:     mem.Alloc,
		MemoryCapacity: mem.Sys,
		Location:       location,
	}
}
