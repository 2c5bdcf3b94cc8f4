package opset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldoc/ldoc/docid"
	"github.com/ldoc/ldoc/value"
)

func actor(b byte) docid.ActorId {
	var a docid.ActorId
	a[0] = b
	return a
}

func opID(counter uint64, a byte) docid.OpId {
	return docid.OpId{Counter: counter, Actor: actor(a)}
}

func TestMapPutWinnerIsGreatestOpId(t *testing.T) {
	objs := New()
	require.NoError(t, objs.Apply(Op{
		ID: opID(1, 1), Obj: docid.Root, Key: docid.Key("x"),
		Action: ActionPut, Value: value.FromScalar(value.Str("a")),
	}))
	require.NoError(t, objs.Apply(Op{
		ID: opID(1, 2), Obj: docid.Root, Key: docid.Key("x"),
		Action: ActionPut, Value: value.FromScalar(value.Str("b")),
	}))

	root, _ := objs.Get(docid.Root)
	winner, ok := root.Winner("x")
	require.True(t, ok)
	assert.Equal(t, "b", winner.Value.Scalar.Str)
	assert.Len(t, root.Conflicts("x"), 2)
}

func TestMapPutWithPredRemovesSuperseded(t *testing.T) {
	objs := New()
	id1 := opID(1, 1)
	require.NoError(t, objs.Apply(Op{ID: id1, Obj: docid.Root, Key: docid.Key("x"), Action: ActionPut, Value: value.FromScalar(value.Int(1))}))
	require.NoError(t, objs.Apply(Op{
		ID: opID(2, 1), Obj: docid.Root, Key: docid.Key("x"), Action: ActionPut,
		Value: value.FromScalar(value.Int(2)), Pred: []docid.OpId{id1},
	}))

	root, _ := objs.Get(docid.Root)
	assert.Len(t, root.Conflicts("x"), 1)
	winner, _ := root.Winner("x")
	assert.Equal(t, int64(2), winner.Value.Scalar.Int)
}

func TestMapDelRemovesEntries(t *testing.T) {
	objs := New()
	id1 := opID(1, 1)
	require.NoError(t, objs.Apply(Op{ID: id1, Obj: docid.Root, Key: docid.Key("x"), Action: ActionPut, Value: value.FromScalar(value.Int(1))}))
	require.NoError(t, objs.Apply(Op{ID: opID(2, 1), Obj: docid.Root, Key: docid.Key("x"), Action: ActionDel, Pred: []docid.OpId{id1}}))

	root, _ := objs.Get(docid.Root)
	_, ok := root.Winner("x")
	assert.False(t, ok)
}

func TestListInsertOrderAtHead(t *testing.T) {
	objs := New()
	makeID := opID(1, 1)
	require.NoError(t, objs.Apply(Op{
		ID: makeID, Obj: docid.Root, Key: docid.Key("list"), Action: ActionMakeObject,
		Value: value.NewObject(value.ObjList),
	}))
	list, ok := objs.Get(makeID)
	require.True(t, ok)

	a := opID(2, 1)
	require.NoError(t, objs.Apply(Op{ID: a, Obj: makeID, Action: ActionInsert, Value: value.FromScalar(value.Str("A"))}))
	b := opID(3, 1)
	require.NoError(t, objs.Apply(Op{ID: b, Obj: makeID, Action: ActionInsert, Value: value.FromScalar(value.Str("B"))}))

	elems := list.VisibleElements()
	require.Len(t, elems, 2)
	assert.Equal(t, "B", elems[0].Value.Scalar.Str)
	assert.Equal(t, "A", elems[1].Value.Scalar.Str)
}

func TestListConcurrentInsertsTieBreakDescendingOpId(t *testing.T) {
	objs := New()
	makeID := opID(1, 1)
	require.NoError(t, objs.Apply(Op{ID: makeID, Obj: docid.Root, Key: docid.Key("list"), Action: ActionMakeObject, Value: value.NewObject(value.ObjList)}))
	list, _ := objs.Get(makeID)

	base := opID(2, 1)
	require.NoError(t, objs.Apply(Op{ID: base, Obj: makeID, Action: ActionInsert, Value: value.FromScalar(value.Str("base"))}))

	low := opID(3, 1)
	high := opID(3, 2)
	require.NoError(t, objs.Apply(Op{ID: low, Obj: makeID, Action: ActionInsert, Value: value.FromScalar(value.Str("low")), InsertAfter: &base}))
	require.NoError(t, objs.Apply(Op{ID: high, Obj: makeID, Action: ActionInsert, Value: value.FromScalar(value.Str("high")), InsertAfter: &base}))

	elems := list.VisibleElements()
	require.Len(t, elems, 3)
	assert.Equal(t, "base", elems[0].Value.Scalar.Str)
	assert.Equal(t, "high", elems[1].Value.Scalar.Str)
	assert.Equal(t, "low", elems[2].Value.Scalar.Str)
}

func TestListDeleteTombstonesAndLengthExcludesIt(t *testing.T) {
	objs := New()
	makeID := opID(1, 1)
	require.NoError(t, objs.Apply(Op{ID: makeID, Obj: docid.Root, Key: docid.Key("list"), Action: ActionMakeObject, Value: value.NewObject(value.ObjList)}))
	list, _ := objs.Get(makeID)

	a := opID(2, 1)
	require.NoError(t, objs.Apply(Op{ID: a, Obj: makeID, Action: ActionInsert, Value: value.FromScalar(value.Str("A"))}))
	require.NoError(t, objs.Apply(Op{ID: opID(3, 1), Obj: makeID, Action: ActionDel, Pred: []docid.OpId{a}}))

	assert.Equal(t, 0, list.VisibleLen())
}

func TestIncrementAccumulatesOnCounter(t *testing.T) {
	objs := New()
	id := opID(1, 1)
	require.NoError(t, objs.Apply(Op{ID: id, Obj: docid.Root, Key: docid.Key("c"), Action: ActionPut, Value: value.FromScalar(value.Counter(5))}))
	require.NoError(t, objs.Apply(Op{ID: opID(2, 1), Obj: docid.Root, Key: docid.Key("c"), Action: ActionIncrement, Value: value.FromScalar(value.Int(3))}))

	root, _ := objs.Get(docid.Root)
	winner, _ := root.Winner("c")
	assert.Equal(t, int64(8), winner.Value.Scalar.Int)
}

func TestRevertUndoesAppliedOps(t *testing.T) {
	objs := New()
	snap := objs.Snapshot()
	require.NoError(t, objs.Apply(Op{ID: opID(1, 1), Obj: docid.Root, Key: docid.Key("x"), Action: ActionPut, Value: value.FromScalar(value.Int(1))}))
	require.NoError(t, objs.Apply(Op{ID: opID(2, 1), Obj: docid.Root, Key: docid.Key("y"), Action: ActionPut, Value: value.FromScalar(value.Int(2))}))

	objs.Revert(snap)

	root, _ := objs.Get(docid.Root)
	_, okX := root.Winner("x")
	_, okY := root.Winner("y")
	assert.False(t, okX)
	assert.False(t, okY)
}

func TestLogIdempotence(t *testing.T) {
	log := NewLog()
	op := Op{ID: opID(1, 1), Obj: docid.Root, Key: docid.Key("x"), Action: ActionPut}
	assert.True(t, log.Append(op))
	assert.False(t, log.Append(op))
	assert.Equal(t, 1, log.Len())
}

func TestElementAtAndVisibleIndexOfSkipTombstones(t *testing.T) {
	objs := New()
	makeID := opID(1, 1)
	require.NoError(t, objs.Apply(Op{ID: makeID, Obj: docid.Root, Key: docid.Key("list"), Action: ActionMakeObject, Value: value.NewObject(value.ObjList)}))
	list, _ := objs.Get(makeID)

	a := opID(2, 1)
	b := opID(3, 1)
	c := opID(4, 1)
	require.NoError(t, objs.Apply(Op{ID: a, Obj: makeID, Action: ActionInsert, Value: value.FromScalar(value.Str("A"))}))
	require.NoError(t, objs.Apply(Op{ID: b, Obj: makeID, Action: ActionInsert, Value: value.FromScalar(value.Str("B")), InsertAfter: &a}))
	require.NoError(t, objs.Apply(Op{ID: c, Obj: makeID, Action: ActionInsert, Value: value.FromScalar(value.Str("C")), InsertAfter: &b}))

	elem, ok := list.ElementAt(1)
	require.True(t, ok)
	assert.Equal(t, "B", elem.Value.Scalar.Str)

	idx, ok := list.VisibleIndexOf(b)
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	require.NoError(t, objs.Apply(Op{ID: opID(5, 1), Obj: makeID, Action: ActionDel, Pred: []docid.OpId{b}}))

	_, ok = list.VisibleIndexOf(b)
	assert.False(t, ok, "a tombstoned element resolves to no visible index")

	elem, ok = list.ElementAt(1)
	require.True(t, ok)
	assert.Equal(t, "C", elem.Value.Scalar.Str, "elements after a tombstone shift left")

	_, ok = list.ElementAt(2)
	assert.False(t, ok, "out-of-range index reports not found")
}

func TestLogTruncateRestoresIdempotenceSet(t *testing.T) {
	log := NewLog()
	op1 := Op{ID: opID(1, 1), Obj: docid.Root}
	op2 := Op{ID: opID(2, 1), Obj: docid.Root}
	log.Append(op1)
	mark := log.Len()
	log.Append(op2)
	log.Truncate(mark)

	assert.Equal(t, 1, log.Len())
	assert.False(t, log.Contains(op2.ID))
	assert.True(t, log.Contains(op1.ID))
}
