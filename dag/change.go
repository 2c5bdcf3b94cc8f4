// Copyright 2024 The ldoc Authors
// This file is part of the ldoc library.
//
// The ldoc library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package dag implements the change DAG of spec §3.5/§4.7/§4.9: change
// records, dependency hashes, DAG heads, the vector clock, causal replay
// order and time-travel snapshots.
package dag

import (
	"github.com/ldoc/ldoc/docid"
	"github.com/ldoc/ldoc/opset"
)

// Change groups a batch of operations committed by one transaction (spec
// §4.8). Hash is the content address computed over Body (package chunk);
// it is filled in once the change is serialized or received over sync.
type Change struct {
	Hash      docid.ChangeHash
	Actor     docid.ActorId
	Seq       uint64
	StartOp   uint64
	Timestamp int64
	Message   string
	HasMsg    bool
	Deps      []docid.ChangeHash
	Ops       []opset.Op
}

// OpCount returns the number of operations this change carries.
func (c Change) OpCount() int { return len(c.Ops) }
