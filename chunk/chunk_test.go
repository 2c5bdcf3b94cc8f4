package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldoc/ldoc/docid"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	body := []byte("some change payload bytes")
	encoded := Encode(Chunk{Type: TypeChange, Body: body})

	got, n, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, len(encoded), n)
	assert.Equal(t, TypeChange, got.Type)
	assert.Equal(t, body, got.Body)
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	encoded := Encode(Chunk{Type: TypeDocument, Body: []byte("x")})
	encoded[0] ^= 0xFF
	_, _, err := Decode(encoded)
	assert.Error(t, err)
}

func TestDecodeRejectsBitFlip(t *testing.T) {
	encoded := Encode(Chunk{Type: TypeDocument, Body: []byte("the quick brown fox")})
	encoded[len(encoded)-1] ^= 0x01
	_, _, err := Decode(encoded)
	assert.Error(t, err)
}

func TestCompressedRoundTrip(t *testing.T) {
	body := make([]byte, 0, 2000)
	for i := 0; i < 200; i++ {
		body = append(body, []byte("repeated filler data ")...)
	}
	compressed, err := EncodeCompressed(TypeDocument, body)
	require.NoError(t, err)

	outer, n, err := Decode(compressed)
	require.NoError(t, err)
	assert.Equal(t, len(compressed), n)
	assert.Equal(t, TypeCompressed, outer.Type)

	innerType, innerBody, err := DecodeCompressed(outer)
	require.NoError(t, err)
	assert.Equal(t, TypeDocument, innerType)
	assert.Equal(t, body, innerBody)
}

func TestChangeHashDependsOnSortedDeps(t *testing.T) {
	d1 := docid.ChangeHash{1}
	d2 := docid.ChangeHash{2}
	body := []byte("change body")

	a := ChangeHash([]docid.ChangeHash{d1, d2}, body)
	b := ChangeHash([]docid.ChangeHash{d2, d1}, body)
	assert.Equal(t, a, b)

	c := ChangeHash(nil, body)
	assert.NotEqual(t, a, c)
}
