// Package crypto implements the streaming encrypted container (C1): a
// public-key-sealed header carrying a symmetric stream key, followed by an
// authenticated-chunked body. Sealing uses golang.org/x/crypto/nacl/box;
// the chunked body cipher is built on golang.org/x/crypto/nacl/secretbox,
// framed the way rclone's backend/crypt cipher derives per-block nonces
// from a base nonce plus a block counter.
package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"
)

const KeySize = 32

// Keypair is a NaCl box public/secret keypair.
type Keypair struct {
	Public [KeySize]byte
	Secret [KeySize]byte
}

// GenerateKeypair creates a fresh recipient or sender keypair.
func GenerateKeypair() (*Keypair, error) {
	pub, sec, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating keypair: %w", err)
	}
	return &Keypair{Public: *pub, Secret: *sec}, nil
}

// EncodeKey base64-encodes a 32-byte key for display/config storage.
func EncodeKey(key [KeySize]byte) string {
	return base64.StdEncoding.EncodeToString(key[:])
}

// publicFromSecret derives the box public key matching a secret key, used
// when the caller supplies a sender secret key without its public half.
func publicFromSecret(secret [KeySize]byte) ([KeySize]byte, error) {
	var pub [KeySize]byte
	out, err := curve25519.X25519(secret[:], curve25519.Basepoint)
	if err != nil {
		return pub, fmt.Errorf("deriving public key: %w", err)
	}
	copy(pub[:], out)
	return pub, nil
}

// DecodeKey parses a base64-encoded 32-byte key.
func DecodeKey(s string) ([KeySize]byte, error) {
	var out [KeySize]byte
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return out, fmt.Errorf("decoding key: %w", err)
	}
	if len(raw) != KeySize {
		return out, fmt.Errorf("decoding key: expected %d bytes, got %d", KeySize, len(raw))
	}
	copy(out[:], raw)
	return out, nil
}
