// prover.go - prover wrapper and error taxonomy
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

// Package prover wraps the opaque, out-of-scope zero-knowledge prover
// library behind the two operations the pipeline needs, and maps its
// failure modes onto the ProverError taxonomy.
package prover

import (
	"errors"
	"fmt"

	"github.com/nexusprover/pipeline/task"
)

// ErrUnknownProgram is returned when a task names a program_id this
// binary has no guest for.
var ErrUnknownProgram = errors.New("prover: unknown program")

// GuestFailure is returned when the guest program ran to completion
// but reported a non-zero exit code.
type GuestFailure struct {
	Code int
}

func (e GuestFailure) Error() string {
	return fmt.Sprintf("prover: guest exited with code %d", e.Code)
}

// InternalProver wraps an error the prover library itself reported,
// as opposed to anything about the task's input.
type InternalProver struct {
	Msg string
}

func (e InternalProver) Error() string {
	return fmt.Sprintf("prover: internal error: %s", e.Msg)
}

// fixedAnonymousInput is the (n=9, a=1, b=1) binding anonymous mode
// always proves.
var fixedAnonymousInput = task.FibInitialInput{N: 9, A: 1, B: 1}

// GuestRunner is the capability interface over the opaque external ZK
// prover library: run program on input, report the guest's exit code
// and its output artifact. Implementations of this interface are the
// only thing that changes between a real prover backend and a test
// double.
type GuestRunner interface {
	Prove(program task.ProgramID, input []byte) (artifact []byte, exitCode int, err error)
}

// Prover adapts a GuestRunner to the two pipeline-facing operations.
type Prover struct {
	runner GuestRunner
}

// New wraps runner in a Prover.
func New(runner GuestRunner) *Prover {
	return &Prover{runner: runner}
}

// ProveAnonymous binds the fib_input_initial guest to the fixed input
// (9, 1, 1), for self-driven proving with no coordinator.
func (p *Prover) ProveAnonymous() (task.Proof, error) {
	input := task.EncodeFibInitial(fixedAnonymousInput)
	return p.run(task.ProgramFibInitial, input)
}

// ProveAuthenticated selects the guest program from t.ProgramID,
// validates t.PublicInputs can be decoded for that program, and runs
// the prover.
func (p *Prover) ProveAuthenticated(t task.Task) (task.Proof, error) {
	switch t.ProgramID {
	case task.ProgramFastFib:
		if _, err := task.DecodeFastFib(t.PublicInputs); err != nil {
			return task.Proof{}, err
		}
	case task.ProgramFibInitial:
		if _, err := task.DecodeFibInitial(t.PublicInputs); err != nil {
			return task.Proof{}, err
		}
	default:
		return task.Proof{}, fmt.Errorf("%w: %s", ErrUnknownProgram, t.ProgramID)
	}
	return p.run(t.ProgramID, t.PublicInputs)
}

func (p *Prover) run(program task.ProgramID, input []byte) (task.Proof, error) {
	artifact, exitCode, err := p.runner.Prove(program, input)
	if err != nil {
		return task.Proof{}, InternalProver{Msg: err.Error()}
	}
	if exitCode != 0 {
		return task.Proof{}, GuestFailure{Code: exitCode}
	}
	return task.Proof{ProgramID: program, Value: artifact}, nil
}
