package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldoc/ldoc/docid"
)

func hash(b byte) docid.ChangeHash {
	var h docid.ChangeHash
	h[0] = b
	return h
}

func TestAddChangeUpdatesHeadsAndClock(t *testing.T) {
	d := New()
	a := docid.ActorId{1}
	c1 := Change{Hash: hash(1), Actor: a, Seq: 1, StartOp: 1}
	require.NoError(t, d.AddChange(c1))

	assert.Equal(t, []docid.ChangeHash{hash(1)}, d.Heads())
	assert.Equal(t, uint64(1), d.Seq(a))

	c2 := Change{Hash: hash(2), Actor: a, Seq: 2, StartOp: 2, Deps: []docid.ChangeHash{hash(1)}}
	require.NoError(t, d.AddChange(c2))
	assert.Equal(t, []docid.ChangeHash{hash(2)}, d.Heads())
	assert.Equal(t, uint64(2), d.Seq(a))
}

func TestAddChangeRejectsMissingDeps(t *testing.T) {
	d := New()
	c := Change{Hash: hash(9), Deps: []docid.ChangeHash{hash(1)}}
	err := d.AddChange(c)
	assert.Error(t, err)
}

func TestConcurrentChangesBothBecomeHeads(t *testing.T) {
	d := New()
	a1 := docid.ActorId{1}
	a2 := docid.ActorId{2}
	root := Change{Hash: hash(1), Actor: a1, Seq: 1, StartOp: 1}
	require.NoError(t, d.AddChange(root))

	left := Change{Hash: hash(2), Actor: a1, Seq: 2, StartOp: 2, Deps: []docid.ChangeHash{hash(1)}}
	right := Change{Hash: hash(3), Actor: a2, Seq: 1, StartOp: 2, Deps: []docid.ChangeHash{hash(1)}}
	require.NoError(t, d.AddChange(left))
	require.NoError(t, d.AddChange(right))

	heads := d.Heads()
	assert.ElementsMatch(t, []docid.ChangeHash{hash(2), hash(3)}, heads)
}

func TestTopoOrderRespectsDeps(t *testing.T) {
	d := New()
	a := docid.ActorId{1}
	require.NoError(t, d.AddChange(Change{Hash: hash(1), Actor: a, Seq: 1, StartOp: 1}))
	require.NoError(t, d.AddChange(Change{Hash: hash(2), Actor: a, Seq: 2, StartOp: 2, Deps: []docid.ChangeHash{hash(1)}}))
	require.NoError(t, d.AddChange(Change{Hash: hash(3), Actor: a, Seq: 3, StartOp: 3, Deps: []docid.ChangeHash{hash(2)}}))

	order := d.TopoOrder()
	require.Equal(t, []docid.ChangeHash{hash(1), hash(2), hash(3)}, order)
}

func TestReachableNotInComputesMissingSet(t *testing.T) {
	d := New()
	a := docid.ActorId{1}
	require.NoError(t, d.AddChange(Change{Hash: hash(1), Actor: a, Seq: 1, StartOp: 1}))
	require.NoError(t, d.AddChange(Change{Hash: hash(2), Actor: a, Seq: 2, StartOp: 2, Deps: []docid.ChangeHash{hash(1)}}))

	missing := d.ReachableNotIn([]docid.ChangeHash{hash(2)}, []docid.ChangeHash{hash(1)})
	assert.Equal(t, []docid.ChangeHash{hash(2)}, missing)
}

func TestTopoOrderUpToStopsAtRequestedHeads(t *testing.T) {
	d := New()
	a := docid.ActorId{1}
	require.NoError(t, d.AddChange(Change{Hash: hash(1), Actor: a, Seq: 1, StartOp: 1}))
	require.NoError(t, d.AddChange(Change{Hash: hash(2), Actor: a, Seq: 2, StartOp: 2, Deps: []docid.ChangeHash{hash(1)}}))
	require.NoError(t, d.AddChange(Change{Hash: hash(3), Actor: a, Seq: 3, StartOp: 3, Deps: []docid.ChangeHash{hash(2)}}))

	order := d.TopoOrderUpTo([]docid.ChangeHash{hash(2)})
	assert.Equal(t, []docid.ChangeHash{hash(1), hash(2)}, order)
}
