// Copyright (c) 2017-2020 The lyra developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package crypto

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/ed25519"
)

// KeyPair is an ed25519 signing key pair.
type KeyPair struct {
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
}

// MakeKeypair derives a deterministic key pair from a 32 byte seed,
// normally the sha256 digest of a secret passphrase.
func MakeKeypair(seed []byte) (*KeyPair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("invalid seed length %d, expect %d", len(seed), ed25519.SeedSize)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &KeyPair{
		PublicKey:  priv.Public().(ed25519.PublicKey),
		PrivateKey: priv,
	}, nil
}

// PublicHex returns the lowercase hex encoding of the public key.
func (kp *KeyPair) PublicHex() string {
	return hex.EncodeToString(kp.PublicKey)
}

// Sign signs msg with the private key and returns the raw signature.
func (kp *KeyPair) Sign(msg []byte) []byte {
	return ed25519.Sign(kp.PrivateKey, msg)
}

// VerifyHex verifies a raw signature against a hex-encoded public key.
func VerifyHex(pubHex string, msg, sig []byte) bool {
	pub, err := hex.DecodeString(pubHex)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), msg, sig)
}
