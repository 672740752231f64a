package signer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	k, err := GenerateKey()
	require.NoError(t, err)

	hash := Keccak256Hex([]byte("some proof bytes"))
	sig := k.Sign("T1", hash)

	require.True(t, Verify(k.Public, "T1", hash, sig))
	require.False(t, Verify(k.Public, "T2", hash, sig))
}

func TestMessageFormat(t *testing.T) {
	require.Equal(t, []byte("0 | T1 | deadbeef"), Message("T1", "deadbeef"))
}

func TestKeyFromSeedDeterministic(t *testing.T) {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i)
	}
	k1, err := KeyFromSeed(seed)
	require.NoError(t, err)
	k2, err := KeyFromSeed(seed)
	require.NoError(t, err)
	require.Equal(t, k1.Public, k2.Public)
}

func TestKeccak256HexIsDeterministic(t *testing.T) {
	require.Equal(t, Keccak256Hex([]byte("x")), Keccak256Hex([]byte("x")))
	require.NotEqual(t, Keccak256Hex([]byte("x")), Keccak256Hex([]byte("y")))
}
