// task.go - task and proof types
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

// Package task defines the unit of proving work that flows through the
// pipeline, and the on-the-wire representation of its inputs and
// outputs.
package task

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
)

// ProgramID identifies one of the fixed guest programs embedded in the
// prover binary.
type ProgramID string

const (
	// ProgramFastFib takes one decimal-encoded uint32 n and proves
	// the n-th Fibonacci number via the fast doubling method.
	ProgramFastFib ProgramID = "fast-fib"

	// ProgramFibInitial takes three little-endian uint32s (n, a, b)
	// and proves F(n) seeded with F(0)=a, F(1)=b.
	ProgramFibInitial ProgramID = "fib_input_initial"
)

// ErrMalformedTask is returned when public_inputs cannot be decoded
// for the task's program_id.
var ErrMalformedTask = errors.New("task: malformed public inputs")

// Task is a unit of proving work received from the Orchestrator.
type Task struct {
	TaskID       string
	ProgramID    ProgramID
	PublicInputs []byte
}

// FibInitialInput is the decoded form of a fib_input_initial task's
// public inputs.
type FibInitialInput struct {
	N uint32
	A uint32
	B uint32
}

const fibInitialInputLen = 12

// DecodeFastFib decodes the UTF-8 decimal digits of a fast-fib task's
// public inputs into the bound n.
func DecodeFastFib(publicInputs []byte) (uint32, error) {
	if len(publicInputs) == 0 {
		return 0, fmt.Errorf("%w: empty input", ErrMalformedTask)
	}
	n, err := strconv.ParseUint(string(publicInputs), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedTask, err)
	}
	return uint32(n), nil
}

// EncodeFastFib is the inverse of DecodeFastFib, used by tests and by
// callers constructing fast-fib tasks.
func EncodeFastFib(n uint32) []byte {
	return []byte(strconv.FormatUint(uint64(n), 10))
}

// DecodeFibInitial decodes the 12-byte little-endian (n, a, b) triple
// of a fib_input_initial task's public inputs.
func DecodeFibInitial(publicInputs []byte) (FibInitialInput, error) {
	if len(publicInputs) < fibInitialInputLen {
		return FibInitialInput{}, fmt.Errorf("%w: need %d bytes, got %d", ErrMalformedTask, fibInitialInputLen, len(publicInputs))
	}
	return FibInitialInput{
		N: binary.LittleEndian.Uint32(publicInputs[0:4]),
		A: binary.LittleEndian.Uint32(publicInputs[4:8]),
		B: binary.LittleEndian.Uint32(publicInputs[8:12]),
	}, nil
}

// EncodeFibInitial is the inverse of DecodeFibInitial.
func EncodeFibInitial(in FibInitialInput) []byte {
	buf := make([]byte, fibInitialInputLen)
	binary.LittleEndian.PutUint32(buf[0:4], in.N)
	binary.LittleEndian.PutUint32(buf[4:8], in.A)
	binary.LittleEndian.PutUint32(buf[8:12], in.B)
	return buf
}

// Proof is the opaque artifact a Prover produces for a Task (or for
// the fixed anonymous input). Value is the serializable payload; the
// prover wrapper never interprets it beyond handing it to the codec.
type Proof struct {
	ProgramID ProgramID
	Value     []byte
}

// Telemetry is best-effort prover-host information attached to a
// submission. Any field may be its zero value if detection failed.
type Telemetry struct {
	FlopsPerSec     int64
	MemoryUsed      uint64
	MemoryCapacity  uint64
	Location        string
}

// ProofSubmission is what the Submitter sends to the Orchestrator.
type ProofSubmission struct {
	TaskID    string
	ProofHash string
	ProofBytes []byte
	Signature []byte
	PublicKey []byte
	Telemetry Telemetry
}
