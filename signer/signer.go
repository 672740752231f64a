// signer.go - submission signing and hashing
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

// Package signer implements the submission signing and hashing
// contract: Ed25519 over a versioned message string, and Keccak-256
// over serialized proof bytes.
package signer

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/ed25519"
	"golang.org/x/crypto/sha3"
)

// SignatureVersion is the leading integer literal in every signed
// message, reserved so the format can be rotated without breaking
// verifiers that only understand version 0.
const SignatureVersion = 0

// Key is an Ed25519 keypair used to sign proof submissions. It is
// shared read-only across submitter goroutines; signing is a pure
// function of the private half and never mutates Key.
type Key struct {
	Public  ed25519.PublicKey
	private ed25519.PrivateKey
}

// GenerateKey produces a fresh random signing Key.
func GenerateKey() (Key, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Key{}, fmt.Errorf("signer: generate key: %w", err)
	}
	return Key{Public: pub, private: priv}, nil
}

// KeyFromSeed rebuilds a Key from a 32-byte Ed25519 seed, as embedding
// applications typically load the ProverKey from disk or an env var.
func KeyFromSeed(seed []byte) (Key, error) {
	if len(seed) != ed25519.SeedSize {
		return Key{}, fmt.Errorf("signer: seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return Key{Public: priv.Public().(ed25519.PublicKey), private: priv}, nil
}

// Message builds the literal ASCII string that gets signed:
// "0 | {task_id} | {proof_hash}".
func Message(taskID, proofHash string) []byte {
	return []byte(fmt.Sprintf("%d | %s | %s", SignatureVersion, taskID, proofHash))
}

// Sign signs the submission message for taskID/proofHash, returning
// the raw Ed25519 signature.
func (k Key) Sign(taskID, proofHash string) []byte {
	return ed25519.Sign(k.private, Message(taskID, proofHash))
}

// Verify checks a signature produced by Sign against the given
// verifying key.
func Verify(pub ed25519.PublicKey, taskID, proofHash string, signature []byte) bool {
	return ed25519.Verify(pub, Message(taskID, proofHash), signature)
}

// Keccak256Hex returns the hex-encoded Keccak-256 digest of data, used
// as the proof_hash field of a submission.
func Keccak256Hex(data []byte) string {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
