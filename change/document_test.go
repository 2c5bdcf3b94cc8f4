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

	"github.com/ldoc/ldoc/dag"
	"github.com/ldoc/ldoc/docid"
)

func TestEncodeDecodeDocumentRoundTrip(t *testing.T) {
	c1 := sampleChange(1)
	c2 := sampleChange(2)
	head := docid.ChangeHash{0x01, 0x02}

	snap := DocumentSnapshot{
		LocalActor:  testActor(1),
		NextCounter: 3,
		LocalSeq:    1,
		Changes:     []dag.Change{c1, c2},
		Heads:       []docid.ChangeHash{head},
		VectorClock: map[docid.ActorId]uint64{testActor(1): 1, testActor(2): 1},
	}

	body := EncodeDocument(snap, noSeq)
	got, err := DecodeDocument(body)
	require.NoError(t, err)

	require.Equal(t, snap.LocalActor, got.LocalActor)
	require.Equal(t, snap.NextCounter, got.NextCounter)
	require.Equal(t, snap.LocalSeq, got.LocalSeq)
	require.Equal(t, snap.Heads, got.Heads)
	require.Equal(t, snap.VectorClock, got.VectorClock)

	require.Len(t, got.Changes, 2)
	for i := range snap.Changes {
		require.Equal(t, snap.Changes[i].Actor, got.Changes[i].Actor)
		require.Equal(t, snap.Changes[i].Seq, got.Changes[i].Seq)
		require.Equal(t, snap.Changes[i].Message, got.Changes[i].Message)
		requireOpsEqual(t, snap.Changes[i].Ops, got.Changes[i].Ops)
	}
}

func TestEncodeDecodeDocumentWithNoChanges(t *testing.T) {
	snap := DocumentSnapshot{
		LocalActor:  testActor(9),
		NextCounter: 1,
		LocalSeq:    0,
		VectorClock: map[docid.ActorId]uint64{},
	}
	body := EncodeDocument(snap, noSeq)
	got, err := DecodeDocument(body)
	require.NoError(t, err)
	require.Equal(t, snap.LocalActor, got.LocalActor)
	require.Empty(t, got.Changes)
	require.Empty(t, got.Heads)
}

func TestDecodeDocumentRejectsTruncatedInput(t *testing.T) {
	snap := DocumentSnapshot{LocalActor: testActor(1), VectorClock: map[docid.ActorId]uint64{}}
	body := EncodeDocument(snap, noSeq)
	_, err := DecodeDocument(body[:2])
	require.Error(t, err)
}
