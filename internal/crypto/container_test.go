package crypto

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpcyrd/brchd/internal/brchderr"
)

// fixedSecretKey is the recipient secret key used by the reference
// implementation's header roundtrip test.
var fixedSecretKey = [KeySize]byte{
	75, 34, 106, 31, 123, 150, 128, 79, 208, 89, 61, 66, 53, 35, 62, 111,
	41, 78, 178, 55, 187, 47, 244, 155, 61, 206, 49, 130, 219, 28, 104, 5,
}

func fixedKeypair(t *testing.T) ([KeySize]byte, [KeySize]byte) {
	t.Helper()
	pub, err := publicFromSecret(fixedSecretKey)
	require.NoError(t, err)
	return pub, fixedSecretKey
}

func strPtr(s string) *string { return &s }

func TestContainerRoundtrip(t *testing.T) {
	recipientPK, recipientSK := fixedKeypair(t)

	plain := []byte("ohai!\n")
	enc, err := NewEncryptor(bytes.NewReader(plain), recipientPK, nil, strPtr("ohai.txt"))
	require.NoError(t, err)

	sealed, err := io.ReadAll(enc)
	require.NoError(t, err)

	dec, err := NewDecryptor(bytes.NewReader(sealed), recipientSK, nil)
	require.NoError(t, err)
	require.NotNil(t, dec.Filename())
	assert.Equal(t, "ohai.txt", *dec.Filename())

	out, err := io.ReadAll(dec)
	require.NoError(t, err)
	assert.Equal(t, plain, out)
}

func TestContainerRoundtripMultiChunk(t *testing.T) {
	recipientPK, recipientSK := fixedKeypair(t)

	plain := bytes.Repeat([]byte("x"), ChunkSize*3+17)
	enc, err := NewEncryptor(bytes.NewReader(plain), recipientPK, nil, nil)
	require.NoError(t, err)
	sealed, err := io.ReadAll(enc)
	require.NoError(t, err)

	dec, err := NewDecryptor(bytes.NewReader(sealed), recipientSK, nil)
	require.NoError(t, err)
	assert.Nil(t, dec.Filename())

	out, err := io.ReadAll(dec)
	require.NoError(t, err)
	assert.Equal(t, plain, out)
}

func TestContainerRoundtripExactChunkMultiple(t *testing.T) {
	recipientPK, recipientSK := fixedKeypair(t)

	plain := bytes.Repeat([]byte("y"), ChunkSize*2)
	enc, err := NewEncryptor(bytes.NewReader(plain), recipientPK, nil, nil)
	require.NoError(t, err)
	sealed, err := io.ReadAll(enc)
	require.NoError(t, err)

	hdrLen, err := SealedHeaderLen(nil)
	require.NoError(t, err)
	assert.EqualValues(t, TotalWithOverhead(int64(len(plain)), hdrLen), len(sealed))

	dec, err := NewDecryptor(bytes.NewReader(sealed), recipientSK, nil)
	require.NoError(t, err)
	out, err := io.ReadAll(dec)
	require.NoError(t, err)
	assert.Equal(t, plain, out)
}

func TestContainerRoundtripEmpty(t *testing.T) {
	recipientPK, recipientSK := fixedKeypair(t)

	enc, err := NewEncryptor(strings.NewReader(""), recipientPK, nil, nil)
	require.NoError(t, err)
	sealed, err := io.ReadAll(enc)
	require.NoError(t, err)

	dec, err := NewDecryptor(bytes.NewReader(sealed), recipientSK, nil)
	require.NoError(t, err)
	out, err := io.ReadAll(dec)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestTotalWithOverheadMatchesActualLength(t *testing.T) {
	recipientPK, _ := fixedKeypair(t)

	for _, size := range []int{0, 1, ChunkSize - 1, ChunkSize, ChunkSize + 1, ChunkSize*2 + 500} {
		plain := bytes.Repeat([]byte("z"), size)
		enc, err := NewEncryptor(bytes.NewReader(plain), recipientPK, nil, strPtr("f.bin"))
		require.NoError(t, err)
		sealed, err := io.ReadAll(enc)
		require.NoError(t, err)

		hdrLen, err := SealedHeaderLen(strPtr("f.bin"))
		require.NoError(t, err)
		assert.EqualValues(t, TotalWithOverhead(int64(size), hdrLen), len(sealed), "size=%d", size)
	}
}

func TestFilenameLengthIsPaddedAcrossBuckets(t *testing.T) {
	recipientPK, _ := fixedKeypair(t)

	short, err := SealedHeaderLen(strPtr("a.txt"))
	require.NoError(t, err)
	long, err := SealedHeaderLen(strPtr("a-rather-much-longer-file-name-indeed.txt"))
	require.NoError(t, err)

	// Both still round to the same 48-byte bucket unless the name pushes
	// the plaintext header length into the next bucket; assert bucketing
	// rather than exact equality so this isn't overfit to one pair.
	assert.True(t, (short-PaddingBaseline)%PaddingSize == 0)
	assert.True(t, (long-PaddingBaseline)%PaddingSize == 0)

	_ = recipientPK
}

func TestUntrustedSenderRejected(t *testing.T) {
	recipientPK, recipientSK := fixedKeypair(t)

	otherSender, err := GenerateKeypair()
	require.NoError(t, err)

	enc, err := NewEncryptor(strings.NewReader("body"), recipientPK, &otherSender.Secret, nil)
	require.NoError(t, err)
	sealed, err := io.ReadAll(enc)
	require.NoError(t, err)

	expected, err := GenerateKeypair()
	require.NoError(t, err)

	_, err = NewDecryptor(bytes.NewReader(sealed), recipientSK, &expected.Public)
	assert.ErrorIs(t, err, brchderr.ErrUntrustedSender)
}

func TestTrustedSenderAccepted(t *testing.T) {
	recipientPK, recipientSK := fixedKeypair(t)

	sender, err := GenerateKeypair()
	require.NoError(t, err)

	enc, err := NewEncryptor(strings.NewReader("body"), recipientPK, &sender.Secret, nil)
	require.NoError(t, err)
	sealed, err := io.ReadAll(enc)
	require.NoError(t, err)

	dec, err := NewDecryptor(bytes.NewReader(sealed), recipientSK, &sender.Public)
	require.NoError(t, err)
	out, err := io.ReadAll(dec)
	require.NoError(t, err)
	assert.Equal(t, "body", string(out))
}

func TestNotAContainer(t *testing.T) {
	_, recipientSK := fixedKeypair(t)
	_, err := NewDecryptor(strings.NewReader("not a container at all"), recipientSK, nil)
	assert.ErrorIs(t, err, brchderr.ErrNotAContainer)
}

func TestTamperedChunkFailsAuthentication(t *testing.T) {
	recipientPK, recipientSK := fixedKeypair(t)

	enc, err := NewEncryptor(strings.NewReader("hello world, this spans more than one chunk of state"), recipientPK, nil, nil)
	require.NoError(t, err)
	sealed, err := io.ReadAll(enc)
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0xFF

	dec, err := NewDecryptor(bytes.NewReader(sealed), recipientSK, nil)
	require.NoError(t, err)
	_, err = io.ReadAll(dec)
	assert.Error(t, err)
}

func TestTrailingDataAfterFinalChunkIsRejected(t *testing.T) {
	recipientPK, recipientSK := fixedKeypair(t)

	plain := bytes.Repeat([]byte("y"), ChunkSize*2)
	enc, err := NewEncryptor(bytes.NewReader(plain), recipientPK, nil, nil)
	require.NoError(t, err)
	sealed, err := io.ReadAll(enc)
	require.NoError(t, err)

	sealed = append(sealed, []byte("junk appended after the container")...)

	dec, err := NewDecryptor(bytes.NewReader(sealed), recipientSK, nil)
	require.NoError(t, err)
	_, err = io.ReadAll(dec)
	assert.ErrorIs(t, err, brchderr.ErrTrailingData)
}
