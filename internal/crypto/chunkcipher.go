package crypto

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/kpcyrd/brchd/internal/brchderr"
)

// chunkTag distinguishes the last chunk of a body from all preceding ones.
// The tag is folded into the nonce (see chunkNonce) rather than carried as
// a separate byte, so each chunk's overhead stays exactly ABytes.
type chunkTag int

const (
	tagMessage chunkTag = iota
	tagFinal
)

// newBaseNonce generates the 24-byte base nonce written in clear after the
// sealed header, following the header-plus-counter idiom rclone's
// backend/crypt cipher uses for its data nonces.
func newBaseNonce() ([NonceSize]byte, error) {
	var n [NonceSize]byte
	if _, err := rand.Read(n[:]); err != nil {
		return n, fmt.Errorf("generating base nonce: %w", err)
	}
	return n, nil
}

// chunkNonce derives the nonce for chunk index counter under base, folding
// in tag so Message and Final chunks at the same counter value never share
// a nonce.
func chunkNonce(base [NonceSize]byte, counter uint64, tag chunkTag) [NonceSize]byte {
	n := base
	binary.BigEndian.PutUint64(n[16:24], counter)
	if tag == tagFinal {
		n[0] ^= 0x01
	}
	return n
}

// sealChunk authenticates and encrypts one plaintext chunk.
func sealChunk(key [KeySize]byte, base [NonceSize]byte, counter uint64, tag chunkTag, plain []byte) []byte {
	nonce := chunkNonce(base, counter, tag)
	return secretbox.Seal(nil, plain, &nonce, &key)
}

// openChunk authenticates and decrypts one ciphertext chunk.
func openChunk(key [KeySize]byte, base [NonceSize]byte, counter uint64, tag chunkTag, sealed []byte) ([]byte, error) {
	nonce := chunkNonce(base, counter, tag)
	plain, ok := secretbox.Open(nil, sealed, &nonce, &key)
	if !ok {
		return nil, brchderr.ErrTagMismatch
	}
	return plain, nil
}
