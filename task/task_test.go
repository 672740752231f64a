package task

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFibInitialRoundTrip(t *testing.T) {
	in := FibInitialInput{N: 9, A: 1, B: 1}
	encoded := EncodeFibInitial(in)
	require.Len(t, encoded, fibInitialInputLen)

	decoded, err := DecodeFibInitial(encoded)
	require.NoError(t, err)
	require.Equal(t, in, decoded)
}

func TestDecodeFibInitialTooShort(t *testing.T) {
	_, err := DecodeFibInitial([]byte{0, 0})
	require.ErrorIs(t, err, ErrMalformedTask)
}

func TestFastFibRoundTrip(t *testing.T) {
	encoded := EncodeFastFib(42)
	n, err := DecodeFastFib(encoded)
	require.NoError(t, err)
	require.Equal(t, uint32(42), n)
}

func TestDecodeFastFibEmpty(t *testing.T) {
	_, err := DecodeFastFib(nil)
	require.ErrorIs(t, err, ErrMalformedTask)
}

func TestDecodeFastFibNotNumeric(t *testing.T) {
	_, err := DecodeFastFib([]byte("not-a-number"))
	require.ErrorIs(t, err, ErrMalformedTask)
}
