package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nexusprover/pipeline/task"
)

func TestTaskRoundTrip(t *testing.T) {
	tk := task.Task{
		TaskID:       "T1",
		ProgramID:    task.ProgramFibInitial,
		PublicInputs: task.EncodeFibInitial(task.FibInitialInput{N: 9, A: 1, B: 1}),
	}
	encoded, err := EncodeTask(tk)
	require.NoError(t, err)
	decoded, err := DecodeTask(encoded)
	require.NoError(t, err)
	require.Equal(t, tk, decoded)
}

func TestTaskListRoundTrip(t *testing.T) {
	tasks := []task.Task{
		{TaskID: "A", ProgramID: task.ProgramFastFib, PublicInputs: task.EncodeFastFib(5)},
		{TaskID: "B", ProgramID: task.ProgramFastFib, PublicInputs: task.EncodeFastFib(6)},
	}
	encoded, err := EncodeTaskList(tasks)
	require.NoError(t, err)
	decoded, err := DecodeTaskList(encoded)
	require.NoError(t, err)
	require.Equal(t, tasks, decoded)
}

func TestTaskListRoundTripEmpty(t *testing.T) {
	encoded, err := EncodeTaskList(nil)
	require.NoError(t, err)
	decoded, err := DecodeTaskList(encoded)
	require.NoError(t, err)
	require.Empty(t, decoded)
}

func TestProofSubmissionRoundTrip(t *testing.T) {
	sub := task.ProofSubmission{
		TaskID:     "T1",
		ProofHash:  "deadbeef",
		ProofBytes: []byte{1, 2, 3},
		Signature:  []byte{4, 5, 6},
		PublicKey:  []byte{7, 8, 9},
		Telemetry: task.Telemetry{
			FlopsPerSec:    1000,
			MemoryUsed:     2048,
			MemoryCapacity: 8192,
			Location:       "US",
		},
	}
	encoded, err := EncodeProofSubmission(sub)
	require.NoError(t, err)
	decoded, err := DecodeProofSubmission(encoded)
	require.NoError(t, err)
	require.Equal(t, sub, decoded)
}

func TestProofRoundTrip(t *testing.T) {
	p := task.Proof{ProgramID: task.ProgramFastFib, Value: []byte("proof-bytes")}
	encoded, err := EncodeProof(p)
	require.NoError(t, err)
	decoded, err := DecodeProof(encoded)
	require.NoError(t, err)
	require.Equal(t, p, decoded)
}

func TestFramedRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	msg, err := EncodeTask(task.Task{TaskID: "T1", ProgramID: task.ProgramFastFib, PublicInputs: task.EncodeFastFib(3)})
	require.NoError(t, err)
	require.NoError(t, WriteFramed(&buf, msg))

	out, err := ReadFramed(&buf)
	require.NoError(t, err)
	require.Equal(t, msg, out)
}

func TestEncodeProofRejectsOversizedMessage(t *testing.T) {
	orig := maxFrameSize
	maxFrameSize = 8
	defer func() { maxFrameSize = orig }()

	p := task.Proof{ProgramID: task.ProgramFastFib, Value: []byte("this value is well over eight bytes")}
	_, err := EncodeProof(p)
	require.ErrorIs(t, err, ErrMessageTooLarge)
}
