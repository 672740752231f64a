// guest.go - reference zero-knowledge guest program
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

package prover

import (
	"encoding/binary"
	"fmt"

	"github.com/nexusprover/pipeline/task"
)

// ReferenceGuest is a stand-in for the real, opaque RISC-V guest
// execution the production prover library performs. It computes the
// same Fibonacci relation the two fixed guest programs are specified
// to prove, and reports it as a guest exit code plus an 8-byte
// little-endian artifact, the shape a real guest's public output
// would take. It exists so this module has a working, testable
// implementation of the GuestRunner contract; swapping in the real
// prover library means implementing GuestRunner against it instead.
type ReferenceGuest struct{}

// Prove implements GuestRunner.
func (ReferenceGuest) Prove(program task.ProgramID, input []byte) ([]byte, int, error) {
	switch program {
	case task.ProgramFastFib:
		n, err := task.DecodeFastFib(input)
		if err != nil {
			return nil, 0, fmt.Errorf("guest: %w", err)
		}
		return encodeFibResult(fibStandard(n)), 0, nil
	case task.ProgramFibInitial:
		in, err := task.DecodeFibInitial(input)
		if err != nil {
			return nil, 0, fmt.Errorf("guest: %w", err)
		}
		return encodeFibResult(fibSeeded(in.N, in.A, in.B)), 0, nil
	default:
		return nil, 1, fmt.Errorf("guest: no such program %q", program)
	}
}

func encodeFibResult(v uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return buf
}

// fibStandard computes F(n) with F(0)=0, F(1)=1.
func fibStandard(n uint32) uint64 {
	return fibSeeded(n, 0, 1)
}

// fibSeeded computes F(n) with F(0)=a, F(1)=b, via the standard
// linear recurrence F(k) = F(k-1) + F(k-2).
func fibSeeded(n, a, b uint32) uint64 {
	if n == 0 {
		return uint64(a)
	}
	if n == 1 {
		return uint64(b)
	}
	prev, cur := uint64(a), uint64(b)
	for i := uint32(2); i <= n; i++ {
		prev, cur = cur, prev+cur
	}
	return cur
}

// DecodeFibResult is the inverse of encodeFibResult, used by callers
// (and tests) that want to check a proof's claimed value.
func DecodeFibResult(artifact []byte) (uint64, error) {
	if len(artifact) != 8 {
		return 0, fmt.Errorf("prover: artifact must be 8 bytes, got %d", len(artifact))
	}
	return binary.LittleEndian.Uint64(artifact), nil
}
