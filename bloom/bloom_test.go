// Copyright 2024 The ldoc Authors
// This file is part of the ldoc library.
//
// The ldoc library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package bloom

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ldoc/ldoc/docid"
)

func hashWithByte(b byte) docid.ChangeHash {
	var h docid.ChangeHash
	h[0] = b
	h[5] = b ^ 0x3C
	h[9] = b ^ 0x5A
	return h
}

func TestFilterContainsEveryAddedHash(t *testing.T) {
	hashes := []docid.ChangeHash{hashWithByte(1), hashWithByte(2), hashWithByte(3), hashWithByte(42)}
	f := Build(hashes)
	for _, h := range hashes {
		require.True(t, f.Test(h), "expected %x to test present", h)
	}
}

func TestEmptyFilterContainsNothing(t *testing.T) {
	f := Build(nil)
	require.False(t, f.Test(hashWithByte(1)))
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	hashes := []docid.ChangeHash{hashWithByte(7), hashWithByte(99)}
	f := Build(hashes)

	data := f.Marshal()
	got, err := Unmarshal(data)
	require.NoError(t, err)

	for _, h := range hashes {
		require.True(t, got.Test(h))
	}
	require.Equal(t, f.entries, got.entries)
	require.Equal(t, f.bitCount, got.bitCount)
}

func TestMarshalEmptyFilterProducesNoBitBytes(t *testing.T) {
	f := Build(nil)
	data := f.Marshal()
	got, err := Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, uint64(0), got.bitCount)
}

func TestUnmarshalRejectsWrongParameters(t *testing.T) {
	var bad []byte
	bad = append(bad, 0x05)             // entries
	bad = append(bad, 0x0B)             // wrong bits_per_entry (11, not 10)
	bad = append(bad, byte(Probes))     // probes
	_, err := Unmarshal(bad)
	require.Error(t, err)
}

func TestUnmarshalRejectsTruncatedBitVector(t *testing.T) {
	f := Build([]docid.ChangeHash{hashWithByte(1), hashWithByte(2)})
	data := f.Marshal()
	_, err := Unmarshal(data[:len(data)-1])
	require.Error(t, err)
}
