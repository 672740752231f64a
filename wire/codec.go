// codec.go - orchestrator wire codec
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

// Package wire implements the Orchestrator's on-the-wire format:
// hand-rolled protocol-buffer messages (via protowire, the low-level
// encoder/decoder beneath generated protobuf code), plus
// WriteFramed/ReadFramed for a 4-byte big-endian length prefix. The
// Encode*/Decode* functions produce and consume bare, unframed
// messages; framing is applied only by callers of WriteFramed.
//
// There is no .proto/generated-code step here: the message shapes are
// small and fixed, so the wire primitives are driven directly, the way
// a hand-written lightweight RPC client would.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/nexusprover/pipeline/task"
)

// maxFrameSize bounds an encoded message to what WriteFramed's 4-byte
// big-endian length prefix can address. A message larger than this
// size cannot be framed at all, so encoding must fail rather than
// produce a header that silently truncates uint32(len(msg)). It is a
// var, not a const, so tests can lower it instead of constructing a
// multi-gigabyte payload.
var maxFrameSize int64 = math.MaxUint32

// ErrMessageTooLarge is returned by the Encode* functions when the
// encoded message would not fit in the wire frame's length prefix.
var ErrMessageTooLarge = errors.New("wire: message exceeds max frame size")

// field numbers for the Task message.
const (
	fieldTaskID        protowire.Number = 1
	fieldTaskProgramID protowire.Number = 2
	fieldTaskInputs    protowire.Number = 3
)

// field numbers for the ProofSubmission message.
const (
	fieldSubTaskID     protowire.Number = 1
	fieldSubProofHash  protowire.Number = 2
	fieldSubProofBytes protowire.Number = 3
	fieldSubSignature  protowire.Number = 4
	fieldSubPublicKey  protowire.Number = 5
	fieldSubTelemetry  protowire.Number = 6
)

// field numbers for the embedded Telemetry message.
const (
	fieldTelFlops    protowire.Number = 1
	fieldTelMemUsed  protowire.Number = 2
	fieldTelMemCap   protowire.Number = 3
	fieldTelLocation protowire.Number = 4
)

// field numbers for the Proof message (the deterministic proof codec).
const (
	fieldProofProgramID protowire.Number = 1
	fieldProofValue     protowire.Number = 2
)

// field numbers for the TaskRequest message (GET/POST /v3/tasks).
const (
	fieldReqNodeID        protowire.Number = 1
	fieldReqVerifyingKey  protowire.Number = 2
)

// EncodeTask serializes a Task to its protobuf-wire bytes.
func EncodeTask(t task.Task) ([]byte, error) {
	var b []byte
	b = appendStringField(b, fieldTaskID, t.TaskID)
	b = appendStringField(b, fieldTaskProgramID, string(t.ProgramID))
	b = appendBytesField(b, fieldTaskInputs, t.PublicInputs)
	if int64(len(b)) > maxFrameSize {
		return nil, fmt.Errorf("wire: encode task %q: %w", t.TaskID, ErrMessageTooLarge)
	}
	return b, nil
}

// DecodeTask deserializes a Task from protobuf-wire bytes.
func DecodeTask(data []byte) (task.Task, error) {
	var t task.Task
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, v []byte) error {
		switch num {
		case fieldTaskID:
			t.TaskID = string(v)
		case fieldTaskProgramID:
			t.ProgramID = task.ProgramID(v)
		case fieldTaskInputs:
			t.PublicInputs = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return task.Task{}, fmt.Errorf("wire: decode task: %w", err)
	}
	return t, nil
}

// EncodeTaskList serializes zero or more tasks as repeated
// length-delimited Task submessages, the shape of the GET /v3/tasks
// response.
func EncodeTaskList(tasks []task.Task) ([]byte, error) {
	var b []byte
	for _, t := range tasks {
		tb, err := EncodeTask(t)
		if err != nil {
			return nil, err
		}
		b = appendBytesField(b, 1, tb)
	}
	if int64(len(b)) > maxFrameSize {
		return nil, fmt.Errorf("wire: encode task list: %w", ErrMessageTooLarge)
	}
	return b, nil
}

// DecodeTaskList deserializes a repeated Task list.
func DecodeTaskList(data []byte) ([]task.Task, error) {
	var tasks []task.Task
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, v []byte) error {
		if num != 1 {
			return nil
		}
		t, err := DecodeTask(v)
		if err != nil {
			return err
		}
		tasks = append(tasks, t)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("wire: decode task list: %w", err)
	}
	return tasks, nil
}

// EncodeTaskRequest serializes the node_id/verifying_key request body
// shared by GET and POST /v3/tasks.
func EncodeTaskRequest(nodeID string, verifyingKey []byte) []byte {
	var b []byte
	b = appendStringField(b, fieldReqNodeID, nodeID)
	b = appendBytesField(b, fieldReqVerifyingKey, verifyingKey)
	return b
}

// EncodeProofSubmission serializes a ProofSubmission for POST
// /v3/tasks/submit.
func EncodeProofSubmission(s task.ProofSubmission) ([]byte, error) {
	var b []byte
	b = appendStringField(b, fieldSubTaskID, s.TaskID)
	b = appendStringField(b, fieldSubProofHash, s.ProofHash)
	b = appendBytesField(b, fieldSubProofBytes, s.ProofBytes)
	b = appendBytesField(b, fieldSubSignature, s.Signature)
	b = appendBytesField(b, fieldSubPublicKey, s.PublicKey)
	b = appendBytesField(b, fieldSubTelemetry, encodeTelemetry(s.Telemetry))
	if int64(len(b)) > maxFrameSize {
		return nil, fmt.Errorf("wire: encode proof submission %q: %w", s.TaskID, ErrMessageTooLarge)
	}
	return b, nil
}

// DecodeProofSubmission deserializes a ProofSubmission, primarily for
// test mocks of the Orchestrator that need to inspect what was sent.
func DecodeProofSubmission(data []byte) (task.ProofSubmission, error) {
	var s task.ProofSubmission
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, v []byte) error {
		switch num {
		case fieldSubTaskID:
			s.TaskID = string(v)
		case fieldSubProofHash:
			s.ProofHash = string(v)
		case fieldSubProofBytes:
			s.ProofBytes = append([]byte(nil), v...)
		case fieldSubSignature:
			s.Signature = append([]byte(nil), v...)
		case fieldSubPublicKey:
			s.PublicKey = append([]byte(nil), v...)
		case fieldSubTelemetry:
			tel, err := decodeTelemetry(v)
			if err != nil {
				return err
			}
			s.Telemetry = tel
		}
		return nil
	})
	if err != nil {
		return task.ProofSubmission{}, fmt.Errorf("wire: decode proof submission: %w", err)
	}
	return s, nil
}

func encodeTelemetry(t task.Telemetry) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldTelFlops, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(t.FlopsPerSec))
	b = protowire.AppendTag(b, fieldTelMemUsed, protowire.VarintType)
	b = protowire.AppendVarint(b, t.MemoryUsed)
	b = protowire.AppendTag(b, fieldTelMemCap, protowire.VarintType)
	b = protowire.AppendVarint(b, t.MemoryCapacity)
	b = appendStringField(b, fieldTelLocation, t.Location)
	return b
}

func decodeTelemetry(data []byte) (task.Telemetry, error) {
	var t task.Telemetry
	// Telemetry mixes varint and length-delimited fields, so it gets
	// its own decode loop rather than walkFields (which only surfaces
	// length-delimited payloads).
	b := data
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return task.Telemetry{}, protowire.ParseError(n)
		}
		b = b[n:]
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return task.Telemetry{}, protowire.ParseError(n)
			}
			b = b[n:]
			switch num {
			case fieldTelFlops:
				t.FlopsPerSec = int64(v)
			case fieldTelMemUsed:
				t.MemoryUsed = v
			case fieldTelMemCap:
				t.MemoryCapacity = v
			}
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return task.Telemetry{}, protowire.ParseError(n)
			}
			b = b[n:]
			if num == fieldTelLocation {
				t.Location = string(v)
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return task.Telemetry{}, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return t, nil
}

// EncodeProof implements the binary codec for the Proof type. It
// fails only when the encoded message would not fit in the wire
// frame's 4-byte length prefix.
func EncodeProof(p task.Proof) ([]byte, error) {
	var b []byte
	b = appendStringField(b, fieldProofProgramID, string(p.ProgramID))
	b = appendBytesField(b, fieldProofValue, p.Value)
	if int64(len(b)) > maxFrameSize {
		return nil, fmt.Errorf("wire: encode proof: %w", ErrMessageTooLarge)
	}
	return b, nil
}

// DecodeProof is the inverse of EncodeProof.
func DecodeProof(data []byte) (task.Proof, error) {
	var p task.Proof
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, v []byte) error {
		switch num {
		case fieldProofProgramID:
			p.ProgramID = task.ProgramID(v)
		case fieldProofValue:
			p.Value = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return task.Proof{}, fmt.Errorf("wire: decode proof: %w", err)
	}
	return p, nil
}

// appendStringField and appendBytesField append a length-delimited
// field with a string/[]byte payload, the protowire equivalent of a
// generated message setter for a `string`/`bytes` proto field.
func appendStringField(b []byte, num protowire.Number, s string) []byte {
	return appendBytesField(b, num, []byte(s))
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendBytes(b, v)
	return b
}

// walkFields parses a top-level protobuf-wire message and invokes fn
// with the raw payload of every length-delimited field it finds,
// skipping (but correctly consuming) fields of other wire types.
func walkFields(data []byte, fn func(num protowire.Number, typ protowire.Type, v []byte) error) error {
	b := data
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		switch typ {
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
			if err := fn(num, typ, v); err != nil {
				return err
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return nil
}

// WriteFramed writes a single length-prefixed message: a 4-byte
// big-endian length followed by the message bytes.
func WriteFramed(w io.Writer, msg []byte) error {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(msg)))
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("wire: write frame header: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("wire: write frame body: %w", err)
	}
	return nil
}

// ReadFramed reads one length-prefixed message written by WriteFramed.
func ReadFramed(r io.Reader) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("wire: read frame header: %w", err)
	}
	n := binary.BigEndian.Uint32(hdr[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("wire: read frame body: %w", err)
	}
	return buf, nil
}
