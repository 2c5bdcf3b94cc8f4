// Copyright 2024 The ldoc Authors
// This file is part of the ldoc library.
//
// The ldoc library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package change

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ldoc/ldoc/chunk"
	"github.com/ldoc/ldoc/dag"
	"github.com/ldoc/ldoc/docid"
	"github.com/ldoc/ldoc/opset"
	"github.com/ldoc/ldoc/value"
)

func sampleChange(actorByte byte) dag.Change {
	a := testActor(actorByte)
	return dag.Change{
		Actor:     a,
		Seq:       1,
		StartOp:   1,
		Timestamp: 1700000000000,
		Message:   "initial commit",
		HasMsg:    true,
		Deps:      nil,
		Ops: []opset.Op{
			{ID: docid.OpId{Counter: 1, Actor: a}, Obj: docid.Root, Key: docid.Key("title"),
				Action: opset.ActionPut, Value: value.FromScalar(value.Str("hello"))},
			{ID: docid.OpId{Counter: 2, Actor: a}, Obj: docid.Root, Key: docid.Key("count"),
				Action: opset.ActionPut, Value: value.FromScalar(value.Counter(0))},
		},
	}
}

func TestEncodeDecodeChangeBodyRoundTrip(t *testing.T) {
	c := sampleChange(7)
	body := EncodeChangeBody(c, noSeq)

	got, err := DecodeChangeBody(body)
	require.NoError(t, err)

	require.Equal(t, c.Actor, got.Actor)
	require.Equal(t, c.Seq, got.Seq)
	require.Equal(t, c.StartOp, got.StartOp)
	require.Equal(t, c.Timestamp, got.Timestamp)
	require.Equal(t, c.Message, got.Message)
	require.Equal(t, c.HasMsg, got.HasMsg)
	requireOpsEqual(t, c.Ops, got.Ops)
}

func TestEncodeDecodeChangeBodyWithoutMessage(t *testing.T) {
	c := sampleChange(8)
	c.Message = ""
	c.HasMsg = false

	body := EncodeChangeBody(c, noSeq)
	got, err := DecodeChangeBody(body)
	require.NoError(t, err)
	require.False(t, got.HasMsg)
	require.Equal(t, "", got.Message)
}

func TestChangeBodyFeedsChunkEnvelopeRoundTrip(t *testing.T) {
	c := sampleChange(4)
	dep := docid.ChangeHash{0xAA}
	c.Deps = []docid.ChangeHash{dep}

	body := EncodeChangeBody(c, noSeq)
	hash := chunk.ChangeHash(c.Deps, body)
	require.False(t, hash.IsZero())

	encoded := chunk.Encode(chunk.Chunk{Type: chunk.TypeChange, Body: body})
	decodedChunk, n, err := chunk.Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, len(encoded), n)
	require.Equal(t, chunk.TypeChange, decodedChunk.Type)

	got, err := DecodeChangeBody(decodedChunk.Body)
	require.NoError(t, err)
	require.Equal(t, c.Actor, got.Actor)
	requireOpsEqual(t, c.Ops, got.Ops)

	recomputed := chunk.ChangeHash(got.Deps, decodedChunk.Body)
	require.Equal(t, hash, recomputed)
}

func TestDecodeChangeBodyRejectsTruncatedInput(t *testing.T) {
	c := sampleChange(5)
	body := EncodeChangeBody(c, noSeq)

	_, err := DecodeChangeBody(body[:3])
	require.Error(t, err)
}
