package crypto

import (
	"bufio"
	"bytes"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/kpcyrd/brchd/internal/brchderr"
)

// Encryptor wraps a plaintext io.Reader and yields the sealed container
// stream: intro header, clear base nonce, then a sequence of secretbox-sealed
// chunks with the last one tagged Final.
type Encryptor struct {
	inner     *bufio.Reader
	bodyKey   [KeySize]byte
	baseNonce [NonceSize]byte
	counter   uint64
	finished  bool
	buf       bytes.Buffer
}

// NewEncryptor prepares a container stream addressed to recipientPK. If
// senderSK is nil, a fresh ephemeral keypair is used so the recipient learns
// nothing about the sender's identity (still authenticated against that
// ephemeral key). filename, if non-nil, is embedded in the sealed header.
func NewEncryptor(r io.Reader, recipientPK [KeySize]byte, senderSK *[KeySize]byte, filename *string) (*Encryptor, error) {
	var bodyKey [KeySize]byte
	if _, err := rand.Read(bodyKey[:]); err != nil {
		return nil, fmt.Errorf("generating body key: %w", err)
	}

	intro, _, err := sealedHeader(bodyKey, filename, recipientPK, senderSK)
	if err != nil {
		return nil, err
	}

	baseNonce, err := newBaseNonce()
	if err != nil {
		return nil, err
	}

	e := &Encryptor{
		inner:     bufio.NewReaderSize(r, ChunkSize),
		bodyKey:   bodyKey,
		baseNonce: baseNonce,
	}
	e.buf.Write(intro)
	e.buf.Write(baseNonce[:])
	return e, nil
}

func (e *Encryptor) Read(p []byte) (int, error) {
	for e.buf.Len() == 0 && !e.finished {
		if err := e.fillNextChunk(); err != nil {
			return 0, err
		}
	}
	if e.buf.Len() == 0 {
		return 0, io.EOF
	}
	return e.buf.Read(p)
}

// fillNextChunk reads up to one plaintext chunk, seals it, and appends the
// result to buf. A chunk is tagged Final when it is short (end of stream
// reached mid-chunk) or when it is exactly CHUNK_SIZE but nothing follows.
func (e *Encryptor) fillNextChunk() error {
	chunk := make([]byte, ChunkSize)
	n, err := io.ReadFull(e.inner, chunk)
	switch err {
	case nil:
		_, peekErr := e.inner.Peek(1)
		if peekErr == io.EOF {
			e.seal(chunk[:n], tagFinal)
			e.finished = true
			return nil
		}
		if peekErr != nil {
			return fmt.Errorf("reading plaintext stream: %w", peekErr)
		}
		e.seal(chunk[:n], tagMessage)
		return nil
	case io.ErrUnexpectedEOF, io.EOF:
		e.seal(chunk[:n], tagFinal)
		e.finished = true
		return nil
	default:
		return fmt.Errorf("reading plaintext stream: %w", err)
	}
}

func (e *Encryptor) seal(plain []byte, tag chunkTag) {
	e.buf.Write(sealChunk(e.bodyKey, e.baseNonce, e.counter, tag, plain))
	e.counter++
}

// Decryptor wraps a sealed container stream and yields the plaintext body.
// The embedded filename, if any, is available via Filename after
// construction.
type Decryptor struct {
	inner     *bufio.Reader
	bodyKey   [KeySize]byte
	baseNonce [NonceSize]byte
	counter   uint64
	done      bool
	pending   []byte
	header    encryptionHeader
}

// NewDecryptor opens the intro header against recipientSK. If
// expectedSenderPK is non-nil, the embedded sender public key must match it
// or ErrUntrustedSender is returned. Returns brchderr.ErrNotAContainer if r
// does not begin with the container magic.
func NewDecryptor(r io.Reader, recipientSK [KeySize]byte, expectedSenderPK *[KeySize]byte) (*Decryptor, error) {
	intro, err := parseIntro(r)
	if err != nil {
		return nil, err
	}
	hdr, err := intro.open(recipientSK, expectedSenderPK)
	if err != nil {
		return nil, err
	}

	var bodyKey [KeySize]byte
	copy(bodyKey[:], hdr.K)

	var baseNonce [NonceSize]byte
	if _, err := io.ReadFull(r, baseNonce[:]); err != nil {
		return nil, fmt.Errorf("reading body nonce header: %w", brchderr.ErrUnexpectedEOF)
	}

	return &Decryptor{
		inner:     bufio.NewReaderSize(r, ChunkSize+ABytes),
		bodyKey:   bodyKey,
		baseNonce: baseNonce,
		header:    hdr,
	}, nil
}

// Filename returns the embedded original filename, or nil if none was set.
func (d *Decryptor) Filename() *string { return d.header.N }

func (d *Decryptor) Read(p []byte) (int, error) {
	for len(d.pending) == 0 && !d.done {
		if err := d.fillNextChunk(); err != nil {
			return 0, err
		}
	}
	if len(d.pending) == 0 {
		return 0, io.EOF
	}
	n := copy(p, d.pending)
	d.pending = d.pending[n:]
	return n, nil
}

func (d *Decryptor) fillNextChunk() error {
	sealed := make([]byte, ChunkSize+ABytes)
	n, err := io.ReadFull(d.inner, sealed)
	switch err {
	case nil:
		_, peekErr := d.inner.Peek(1)
		tag := tagMessage
		if peekErr == io.EOF {
			tag = tagFinal
		} else if peekErr != nil {
			return fmt.Errorf("reading container stream: %w", peekErr)
		}
		plain, err := openChunk(d.bodyKey, d.baseNonce, d.counter, tag, sealed[:n])
		if err != nil {
			if tag == tagMessage {
				// The stream looked non-final (more bytes follow), but this
				// chunk only authenticates as Final: whatever follows it
				// was appended after the container's real end.
				if _, finalErr := openChunk(d.bodyKey, d.baseNonce, d.counter, tagFinal, sealed[:n]); finalErr == nil {
					return brchderr.ErrTrailingData
				}
			}
			return err
		}
		d.pending = plain
		d.counter++
		if tag == tagFinal {
			d.done = true
		}
		return nil
	case io.ErrUnexpectedEOF, io.EOF:
		if n < ABytes {
			return fmt.Errorf("reading final chunk: %w", brchderr.ErrUnexpectedEOF)
		}
		plain, err := openChunk(d.bodyKey, d.baseNonce, d.counter, tagFinal, sealed[:n])
		if err != nil {
			return err
		}
		d.pending = plain
		d.counter++
		d.done = true
		return nil
	default:
		return fmt.Errorf("reading container stream: %w", err)
	}
}

// TotalWithOverhead computes the on-wire length of a container carrying
// plainLen bytes of plaintext, given the sealed header's length (as returned
// by sealing with the intended filename), for progress-bar sizing.
func TotalWithOverhead(plainLen int64, hdrSealedLen int) int64 {
	headerBytes := int64(HeaderIntroLen) + int64(hdrSealedLen) + int64(NonceSize)
	if plainLen == 0 {
		return headerBytes + ABytes
	}
	full := plainLen / ChunkSize
	rem := plainLen % ChunkSize
	if rem == 0 {
		return headerBytes + full*(ChunkSize+ABytes)
	}
	return headerBytes + full*(ChunkSize+ABytes) + (rem + ABytes)
}
