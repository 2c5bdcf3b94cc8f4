// Copyright 2024 The ldoc Authors
// This file is part of the ldoc library.
//
// The ldoc library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package ldoc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ldoc/ldoc/docid"
	syncpkg "github.com/ldoc/ldoc/sync"
	"github.com/ldoc/ldoc/value"
)

func TestSyncConvergesTwoPeersOverTheWire(t *testing.T) {
	a := NewWithActor(testActor(1))
	_, err := a.Transact(func(tx *Transaction) error {
		_, err := tx.Put(docid.Root, "title", value.Str("shared doc"))
		return err
	})
	require.NoError(t, err)

	b := NewWithActor(testActor(2))

	stateA := syncpkg.New()
	stateB := syncpkg.New()

	for round := 0; round < 6; round++ {
		sentAny := false
		if data, ok := a.SyncGenerate(stateA); ok {
			sentAny = true
			_, err := b.SyncReceive(stateB, data)
			require.NoError(t, err)
		}
		if data, ok := b.SyncGenerate(stateB); ok {
			sentAny = true
			_, err := a.SyncReceive(stateA, data)
			require.NoError(t, err)
		}
		if !sentAny {
			break
		}
	}

	require.Equal(t, a.GetHeads(), b.GetHeads())
	v, _, ok := b.Get(docid.Root, "title")
	require.True(t, ok)
	require.Equal(t, "shared doc", v.Scalar.Str)

	_, okA := a.SyncGenerate(stateA)
	_, okB := b.SyncGenerate(stateB)
	require.False(t, okA)
	require.False(t, okB)
}
