// Copyright 2024 The ldoc Authors
// This file is part of the ldoc library.
//
// The ldoc library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Scenarios S1-S6, following the literal worked examples.
package ldoc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ldoc/ldoc/docid"
	syncpkg "github.com/ldoc/ldoc/sync"
	"github.com/ldoc/ldoc/value"
)

func TestScenarioS1BasicRoundTrip(t *testing.T) {
	d0 := New()
	_, err := d0.Transact(func(tx *Transaction) error {
		_, err := tx.Put(docid.Root, "x", value.Int(42))
		return err
	})
	require.NoError(t, err)

	b := d0.Save()
	d1, err := Load(b)
	require.NoError(t, err)

	v, _, ok := d1.Get(docid.Root, "x")
	require.True(t, ok)
	require.Equal(t, int64(42), v.Scalar.Int)
	require.Len(t, d1.GetHeads(), 1)
}

func TestScenarioS2ConcurrentMapWrites(t *testing.T) {
	d := NewWithActor(testActor(1))
	_, err := d.Transact(func(tx *Transaction) error {
		_, err := tx.Put(docid.Root, "x", value.Int(10))
		return err
	})
	require.NoError(t, err)

	e := d.ForkWithActor(testActor(2))

	_, err = d.Transact(func(tx *Transaction) error {
		_, err := tx.Put(docid.Root, "x", value.Int(11))
		return err
	})
	require.NoError(t, err)
	_, err = e.Transact(func(tx *Transaction) error {
		_, err := tx.Put(docid.Root, "x", value.Int(12))
		return err
	})
	require.NoError(t, err)

	require.NoError(t, d.Merge(e))

	all, err := d.GetAll(docid.Root, "x")
	require.NoError(t, err)
	require.Len(t, all, 2)
	got := map[int64]bool{}
	for _, entry := range all {
		got[entry.Value.Scalar.Int] = true
	}
	require.True(t, got[11] && got[12])

	winner, id, ok := d.Get(docid.Root, "x")
	require.True(t, ok)
	greatest := all[0]
	for _, entry := range all[1:] {
		if greatest.ID.Less(entry.ID) {
			greatest = entry
		}
	}
	require.Equal(t, greatest.ID, id)
	require.Equal(t, greatest.Value.Scalar.Int, winner.Scalar.Int)
}

func TestScenarioS3RGAConcurrentInserts(t *testing.T) {
	d := NewWithActor(testActor(1))
	var listID docid.ObjId
	_, err := d.Transact(func(tx *Transaction) error {
		id, err := tx.MakeObject(docid.Root, "L", value.ObjList)
		if err != nil {
			return err
		}
		listID = id
		_, err = tx.Insert(listID, 0, value.Str("A"))
		return err
	})
	require.NoError(t, err)

	e := d.ForkWithActor(testActor(2))

	_, err = d.Transact(func(tx *Transaction) error {
		_, err := tx.Insert(listID, 1, value.Str("B"))
		return err
	})
	require.NoError(t, err)
	_, err = e.Transact(func(tx *Transaction) error {
		_, err := tx.Insert(listID, 1, value.Str("C"))
		return err
	})
	require.NoError(t, err)

	require.NoError(t, d.Merge(e))

	vals, err := d.Values(listID)
	require.NoError(t, err)
	require.Len(t, vals, 3)
	require.Equal(t, "A", vals[0].Scalar.Str)
	// B and C share an insertion point (after "A") at the same op counter;
	// the greater OpId (actor 2's "C") sorts first (spec §3.4/§4.7).
	require.Equal(t, "C", vals[1].Scalar.Str)
	require.Equal(t, "B", vals[2].Scalar.Str)
}

func TestScenarioS4TextSpliceWithTimeTravel(t *testing.T) {
	d := New()
	var textID docid.ObjId
	_, err := d.Transact(func(tx *Transaction) error {
		id, err := tx.MakeObject(docid.Root, "T", value.ObjText)
		if err != nil {
			return err
		}
		textID = id
		return tx.SpliceText(textID, 0, 0, "Hello World")
	})
	require.NoError(t, err)

	h1 := d.GetHeads()

	_, err = d.Transact(func(tx *Transaction) error {
		return tx.SpliceText(textID, 5, 6, " C++")
	})
	require.NoError(t, err)

	text, err := d.Text(textID)
	require.NoError(t, err)
	require.Equal(t, "Hello C++", text)

	view, err := d.HeadsAt(h1)
	require.NoError(t, err)
	historical, err := view.Text(textID)
	require.NoError(t, err)
	require.Equal(t, "Hello World", historical)
}

func TestScenarioS5CounterConvergence(t *testing.T) {
	d := NewWithActor(testActor(1))
	_, err := d.Transact(func(tx *Transaction) error {
		_, err := tx.Put(docid.Root, "c", value.Counter(0))
		return err
	})
	require.NoError(t, err)

	e := d.ForkWithActor(testActor(2))

	_, err = d.Transact(func(tx *Transaction) error { return tx.Increment(docid.Root, "c", 5) })
	require.NoError(t, err)
	_, err = e.Transact(func(tx *Transaction) error { return tx.Increment(docid.Root, "c", 3) })
	require.NoError(t, err)

	require.NoError(t, d.Merge(e))

	v, _, ok := d.Get(docid.Root, "c")
	require.True(t, ok)
	require.Equal(t, int64(8), v.Scalar.Int)
}

func TestScenarioS6SyncConvergence(t *testing.T) {
	p1 := NewWithActor(testActor(1))
	p2 := NewWithActor(testActor(2))

	_, err := p1.Transact(func(tx *Transaction) error {
		_, err := tx.Put(docid.Root, "a", value.Int(1))
		return err
	})
	require.NoError(t, err)
	_, err = p2.Transact(func(tx *Transaction) error {
		_, err := tx.Put(docid.Root, "b", value.Int(2))
		return err
	})
	require.NoError(t, err)

	s1 := syncpkg.New()
	s2 := syncpkg.New()

	for round := 0; round < 8; round++ {
		m1, ok1 := p1.SyncGenerate(s1)
		if ok1 {
			_, err := p2.SyncReceive(s2, m1)
			require.NoError(t, err)
		}
		m2, ok2 := p2.SyncGenerate(s2)
		if ok2 {
			_, err := p1.SyncReceive(s1, m2)
			require.NoError(t, err)
		}
		if !ok1 && !ok2 {
			break
		}
	}

	keys1, err := p1.Keys(docid.Root)
	require.NoError(t, err)
	keys2, err := p2.Keys(docid.Root)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, keys1)
	require.Equal(t, []string{"a", "b"}, keys2)

	va, _, _ := p1.Get(docid.Root, "a")
	vb, _, _ := p1.Get(docid.Root, "b")
	require.Equal(t, int64(1), va.Scalar.Int)
	require.Equal(t, int64(2), vb.Scalar.Int)

	va2, _, _ := p2.Get(docid.Root, "a")
	vb2, _, _ := p2.Get(docid.Root, "b")
	require.Equal(t, int64(1), va2.Scalar.Int)
	require.Equal(t, int64(2), vb2.Scalar.Int)

	_, okA := p1.SyncGenerate(s1)
	_, okB := p2.SyncGenerate(s2)
	require.False(t, okA)
	require.False(t, okB)
}
