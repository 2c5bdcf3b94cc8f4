package dochash

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSumMatchesStdlibSha256(t *testing.T) {
	want := sha256.Sum256([]byte("hello world"))
	got := Sum([]byte("hello world"))
	assert.Equal(t, want, got)
}

func TestSumConcatenatesInputs(t *testing.T) {
	a := Sum([]byte("hello "), []byte("world"))
	b := Sum([]byte("hello world"))
	assert.Equal(t, a, b)
}

func TestSumChangeHashIsDeterministic(t *testing.T) {
	h1 := SumChangeHash([]byte("a"), []byte("b"))
	h2 := SumChangeHash([]byte("a"), []byte("b"))
	assert.Equal(t, h1, h2)
	assert.False(t, h1.IsZero())
}

func TestHasherStreamingMatchesOneShot(t *testing.T) {
	h := NewHasher()
	h.Write([]byte("foo"))
	h.Write([]byte("bar"))
	streamed := h.Sum()

	oneShot := Sum([]byte("foo"), []byte("bar"))
	assert.Equal(t, oneShot, streamed)
}
