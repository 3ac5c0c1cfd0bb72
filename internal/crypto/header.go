package crypto

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/box"

	"github.com/kpcyrd/brchd/internal/brchderr"
)

// Wire layout constants, see SPEC_FULL.md §6.1.
const (
	MagicLen         = 8
	NonceSize        = 24
	HeaderIntroLen   = MagicLen + NonceSize + KeySize + 2 // 66
	ChunkSize        = 4096
	PaddingSize      = 48
	PaddingBaseline  = 59
	ABytes           = 16 // secretbox.Overhead
	maxSealedHdrSize = 65535
)

var magic = [MagicLen]byte{0x00, '#', 'B', 'R', 'C', 'H', 'D', 0x00}

// encryptionHeader is the JSON object sealed inside the intro header.
// K is the symmetric body key; byte slices marshal to base64 automatically.
type encryptionHeader struct {
	K []byte  `json:"k"`
	N *string `json:"n,omitempty"`
}

// padHeader pads JSON-serialized header bytes with trailing ASCII spaces
// per §4.1: headers shorter than PaddingBaseline are left alone (they carry
// no filename and are already short); longer ones are padded up to the next
// PaddingSize-byte bucket above the baseline, so filename length is hidden
// to within one 48-byte bucket. Padding is appended after the closing brace,
// which JSON permits as trailing whitespace.
func padHeader(encoded []byte) []byte {
	if len(encoded) < PaddingBaseline {
		return encoded
	}
	extra := len(encoded) - PaddingBaseline
	bucket := ((extra + PaddingSize - 1) / PaddingSize) * PaddingSize
	target := PaddingBaseline + bucket
	if target <= len(encoded) {
		return encoded
	}
	padded := make([]byte, target)
	copy(padded, encoded)
	for i := len(encoded); i < target; i++ {
		padded[i] = ' '
	}
	return padded
}

// sealedHeader builds and seals the intro header: magic, nonce, sender
// public key, sealed-length, sealed body.
func sealedHeader(bodyKey [KeySize]byte, filename *string, recipientPK [KeySize]byte, senderSK *[KeySize]byte) ([]byte, [KeySize]byte, error) {
	plain, err := json.Marshal(encryptionHeader{K: bodyKey[:], N: filename})
	if err != nil {
		return nil, [KeySize]byte{}, fmt.Errorf("marshaling container header: %w", err)
	}
	plain = padHeader(plain)

	var nonce [NonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, [KeySize]byte{}, fmt.Errorf("generating header nonce: %w", err)
	}

	var effectiveSK *[KeySize]byte
	var senderPK [KeySize]byte
	if senderSK != nil {
		effectiveSK = senderSK
		pk, err := publicFromSecret(*senderSK)
		if err != nil {
			return nil, [KeySize]byte{}, err
		}
		senderPK = pk
	} else {
		// No sender key supplied: generate a fresh ephemeral keypair per
		// file so the recipient cannot link multiple files to one sender.
		kp, err := GenerateKeypair()
		if err != nil {
			return nil, [KeySize]byte{}, err
		}
		effectiveSK = &kp.Secret
		senderPK = kp.Public
	}

	sealed := box.Seal(nil, plain, &nonce, &recipientPK, effectiveSK)
	if len(sealed) > maxSealedHdrSize {
		return nil, [KeySize]byte{}, brchderr.ErrHeaderTooLarge
	}

	out := make([]byte, 0, HeaderIntroLen+len(sealed))
	out = append(out, magic[:]...)
	out = append(out, nonce[:]...)
	out = append(out, senderPK[:]...)
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(sealed)))
	out = append(out, lenBuf[:]...)
	out = append(out, sealed...)

	return out, senderPK, nil
}

// SealedHeaderLen reports the sealed header length that a container for
// filename will have, without performing any sealing, so callers can size a
// progress bar via TotalWithOverhead before encryption starts.
func SealedHeaderLen(filename *string) (int, error) {
	plain, err := json.Marshal(encryptionHeader{K: make([]byte, KeySize), N: filename})
	if err != nil {
		return 0, fmt.Errorf("marshaling container header: %w", err)
	}
	plain = padHeader(plain)
	return len(plain) + box.Overhead, nil
}

// introHeader is the parsed, not-yet-opened intro.
type introHeader struct {
	nonce     [NonceSize]byte
	senderPK  [KeySize]byte
	sealedHdr []byte
}

// parseIntro reads and parses the fixed-size intro plus the variable-length
// sealed body from r. If the magic does not match, it returns
// brchderr.ErrNotAContainer so the caller can decide to pass the stream
// through unmodified.
func parseIntro(r io.Reader) (*introHeader, error) {
	intro := make([]byte, HeaderIntroLen)
	n, err := io.ReadFull(r, intro)
	if err != nil {
		if n == 0 {
			return nil, brchderr.ErrNotAContainer
		}
		return nil, fmt.Errorf("reading container intro: %w", brchderr.ErrUnexpectedEOF)
	}

	if string(intro[:MagicLen]) != string(magic[:]) {
		return nil, brchderr.ErrNotAContainer
	}

	h := &introHeader{}
	copy(h.nonce[:], intro[MagicLen:MagicLen+NonceSize])
	copy(h.senderPK[:], intro[MagicLen+NonceSize:MagicLen+NonceSize+KeySize])
	hdrLen := binary.BigEndian.Uint16(intro[MagicLen+NonceSize+KeySize:])

	h.sealedHdr = make([]byte, hdrLen)
	if _, err := io.ReadFull(r, h.sealedHdr); err != nil {
		return nil, fmt.Errorf("reading sealed header: %w", brchderr.ErrUnexpectedEOF)
	}

	return h, nil
}

// open decrypts the sealed header, optionally checking the embedded sender
// public key against an expected identity.
func (h *introHeader) open(recipientSK [KeySize]byte, expectedSenderPK *[KeySize]byte) (encryptionHeader, error) {
	if expectedSenderPK != nil && *expectedSenderPK != h.senderPK {
		return encryptionHeader{}, brchderr.ErrUntrustedSender
	}

	plain, ok := box.Open(nil, h.sealedHdr, &h.nonce, &h.senderPK, &recipientSK)
	if !ok {
		return encryptionHeader{}, brchderr.ErrInvalidHeader
	}

	var hdr encryptionHeader
	// Padding appends trailing ASCII space after the JSON object; standard
	// encoding/json tolerates (and ignores) trailing whitespace after a
	// complete top-level value.
	if err := json.Unmarshal(plain, &hdr); err != nil {
		return encryptionHeader{}, fmt.Errorf("parsing container header: %w", brchderr.ErrInvalidHeader)
	}
	if len(hdr.K) != KeySize {
		return encryptionHeader{}, fmt.Errorf("container header: %w: bad key length", brchderr.ErrInvalidHeader)
	}
	return hdr, nil
}
