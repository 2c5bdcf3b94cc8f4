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
	"github.com/ldoc/ldoc/value"
)

func TestListInsertAndDeleteIndex(t *testing.T) {
	d := New()
	var listID docid.ObjId
	_, err := d.Transact(func(tx *Transaction) error {
		id, err := tx.MakeObject(docid.Root, "items", value.ObjList)
		if err != nil {
			return err
		}
		listID = id
		if _, err := tx.Insert(listID, 0, value.Int(1)); err != nil {
			return err
		}
		if _, err := tx.Insert(listID, 1, value.Int(2)); err != nil {
			return err
		}
		_, err = tx.Insert(listID, 2, value.Int(3))
		return err
	})
	require.NoError(t, err)

	n, err := d.Length(listID)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	_, err = d.Transact(func(tx *Transaction) error {
		return tx.DeleteIndex(listID, 1, 1)
	})
	require.NoError(t, err)

	vals, err := d.Values(listID)
	require.NoError(t, err)
	require.Len(t, vals, 2)
	require.Equal(t, int64(1), vals[0].Scalar.Int)
	require.Equal(t, int64(3), vals[1].Scalar.Int)
}

func TestSpliceTextInsertsAndDeletes(t *testing.T) {
	d := New()
	var textID docid.ObjId
	_, err := d.Transact(func(tx *Transaction) error {
		id, err := tx.MakeObject(docid.Root, "body", value.ObjText)
		if err != nil {
			return err
		}
		textID = id
		return tx.SpliceText(textID, 0, 0, "hello")
	})
	require.NoError(t, err)

	text, err := d.Text(textID)
	require.NoError(t, err)
	require.Equal(t, "hello", text)

	_, err = d.Transact(func(tx *Transaction) error {
		return tx.SpliceText(textID, 0, 5, "goodbye")
	})
	require.NoError(t, err)

	text, err = d.Text(textID)
	require.NoError(t, err)
	require.Equal(t, "goodbye", text)
}

func TestSetReplacesListElementInPlace(t *testing.T) {
	d := New()
	var listID docid.ObjId
	_, err := d.Transact(func(tx *Transaction) error {
		id, err := tx.MakeObject(docid.Root, "items", value.ObjList)
		if err != nil {
			return err
		}
		listID = id
		if _, err := tx.Insert(listID, 0, value.Int(1)); err != nil {
			return err
		}
		_, err = tx.Insert(listID, 1, value.Int(2))
		return err
	})
	require.NoError(t, err)

	_, err = d.Transact(func(tx *Transaction) error {
		return tx.Set(listID, 0, value.Int(99))
	})
	require.NoError(t, err)

	vals, err := d.Values(listID)
	require.NoError(t, err)
	require.Len(t, vals, 2)
	require.Equal(t, int64(99), vals[0].Scalar.Int)
	require.Equal(t, int64(2), vals[1].Scalar.Int)
}

func TestIncrementConvergesAcrossConcurrentUpdates(t *testing.T) {
	a := NewWithActor(testActor(1))
	_, err := a.Transact(func(tx *Transaction) error {
		_, err := tx.Put(docid.Root, "count", value.Counter(0))
		return err
	})
	require.NoError(t, err)

	b := a.ForkWithActor(testActor(2))

	_, err = a.Transact(func(tx *Transaction) error { return tx.Increment(docid.Root, "count", 3) })
	require.NoError(t, err)
	_, err = b.Transact(func(tx *Transaction) error { return tx.Increment(docid.Root, "count", 4) })
	require.NoError(t, err)

	require.NoError(t, a.Merge(b))
	require.NoError(t, b.Merge(a))

	va, _, _ := a.Get(docid.Root, "count")
	vb, _, _ := b.Get(docid.Root, "count")
	require.Equal(t, va.Scalar.Int, vb.Scalar.Int)
	require.Equal(t, int64(7), va.Scalar.Int)
}

func TestMarkProjectsOntoCurrentIndices(t *testing.T) {
	d := New()
	var textID docid.ObjId
	_, err := d.Transact(func(tx *Transaction) error {
		id, err := tx.MakeObject(docid.Root, "body", value.ObjText)
		if err != nil {
			return err
		}
		textID = id
		return tx.SpliceText(textID, 0, 0, "hello world")
	})
	require.NoError(t, err)

	_, err = d.Transact(func(tx *Transaction) error {
		return tx.Mark(textID, 0, 4, "bold", value.Bool(true))
	})
	require.NoError(t, err)

	marks, err := d.Marks(textID)
	require.NoError(t, err)
	require.Len(t, marks, 1)
	require.Equal(t, "bold", marks[0].Name)
	require.Equal(t, 0, marks[0].Start)
	require.Equal(t, 4, marks[0].End)
}

func TestCursorTracksElementAcrossEdits(t *testing.T) {
	d := New()
	var listID docid.ObjId
	_, err := d.Transact(func(tx *Transaction) error {
		id, err := tx.MakeObject(docid.Root, "items", value.ObjList)
		if err != nil {
			return err
		}
		listID = id
		for i := 0; i < 3; i++ {
			if _, err := tx.Insert(listID, i, value.Int(int64(i))); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	cur, err := d.CreateCursor(listID, 2)
	require.NoError(t, err)

	_, err = d.Transact(func(tx *Transaction) error {
		return tx.DeleteIndex(listID, 0, 1)
	})
	require.NoError(t, err)

	idx, ok := d.Resolve(cur)
	require.True(t, ok)
	require.Equal(t, 1, idx, "element originally at index 2 is now at index 1 after its predecessor was deleted")
}

func TestHeadsAtReconstructsHistoricalSnapshot(t *testing.T) {
	d := New()
	c1, err := d.Transact(func(tx *Transaction) error {
		_, err := tx.Put(docid.Root, "title", value.Str("v1"))
		return err
	})
	require.NoError(t, err)

	_, err = d.Transact(func(tx *Transaction) error {
		_, err := tx.Put(docid.Root, "title", value.Str("v2"))
		return err
	})
	require.NoError(t, err)

	view, err := d.HeadsAt([]docid.ChangeHash{c1.Hash})
	require.NoError(t, err)
	v, _, ok := view.Get(docid.Root, "title")
	require.True(t, ok)
	require.Equal(t, "v1", v.Scalar.Str)

	vNow, _, _ := d.Get(docid.Root, "title")
	require.Equal(t, "v2", vNow.Scalar.Str)
}
