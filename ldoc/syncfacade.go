// Copyright 2024 The ldoc Authors
// This file is part of the ldoc library.
//
// The ldoc library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package ldoc

import (
	"github.com/ldoc/ldoc/bloom"
	"github.com/ldoc/ldoc/change"
	"github.com/ldoc/ldoc/chunk"
	"github.com/ldoc/ldoc/dag"
	"github.com/ldoc/ldoc/docerr"
	"github.com/ldoc/ldoc/docid"
	"github.com/ldoc/ldoc/sync"
	"github.com/ldoc/ldoc/varint"
)

// SyncGenerate computes the next outgoing sync message against peer
// state s, already encoded for transport (spec §4.11/§6).
func (d *Document) SyncGenerate(s *sync.State) ([]byte, bool) {
	msg, ok := s.Generate(d.dag)
	if !ok {
		return nil, false
	}
	return EncodeSyncMessage(msg, d.isSequence), true
}

// SyncReceive decodes an incoming sync message and folds it into the
// document via peer state s, returning the hashes newly applied.
func (d *Document) SyncReceive(s *sync.State, data []byte) ([]docid.ChangeHash, error) {
	msg, err := DecodeSyncMessage(data)
	if err != nil {
		return nil, err
	}
	applied := s.Receive(d.dag, msg)
	for _, h := range applied {
		c, _ := d.dag.Get(h)
		for _, op := range c.Ops {
			if !d.log.Contains(op.ID) {
				if err := d.objects.Apply(op); err != nil {
					return applied, err
				}
				d.log.Append(op)
			}
		}
		if next := c.StartOp + uint64(len(c.Ops)); next > d.nextCounter {
			d.nextCounter = next
		}
	}
	return applied, nil
}

// EncodeSyncMessage serializes a sync.Message for wire transport: heads
// and need as counted hash lists, have entries as last_sync plus a
// length-prefixed Bloom filter, and changes as length-prefixed change
// bodies (spec §4.6's change body layout, reused verbatim since a shipped
// change is opaque cargo to the sync layer).
func EncodeSyncMessage(msg sync.Message, isSeq change.ObjIsSequence) []byte {
	var out []byte
	out = appendHashes(out, msg.Heads)
	out = appendHashes(out, msg.Need)

	out = varint.AppendUint(out, uint64(len(msg.Have)))
	for _, h := range msg.Have {
		out = appendHashes(out, h.LastSync)
		var bits []byte
		if h.Bloom != nil {
			bits = h.Bloom.Marshal()
		}
		out = varint.AppendUint(out, uint64(len(bits)))
		out = append(out, bits...)
	}

	out = varint.AppendUint(out, uint64(len(msg.Changes)))
	for _, c := range msg.Changes {
		body := change.EncodeChangeBody(c, isSeq)
		out = varint.AppendUint(out, uint64(len(body)))
		out = append(out, body...)
	}
	return out
}

// DecodeSyncMessage reverses EncodeSyncMessage.
func DecodeSyncMessage(data []byte) (sync.Message, error) {
	pos := 0

	heads, n, err := readHashes(data[pos:])
	if err != nil {
		return sync.Message{}, docerr.Wrap(docerr.KindDecoding, err, "sync message heads")
	}
	pos += n

	need, n, err := readHashes(data[pos:])
	if err != nil {
		return sync.Message{}, docerr.Wrap(docerr.KindDecoding, err, "sync message need")
	}
	pos += n

	haveCount, n, err := varint.DecodeUint(data[pos:])
	if err != nil {
		return sync.Message{}, docerr.Wrap(docerr.KindDecoding, err, "sync message have count")
	}
	pos += n

	haves := make([]sync.Have, haveCount)
	for i := range haves {
		lastSync, n, err := readHashes(data[pos:])
		if err != nil {
			return sync.Message{}, docerr.Wrap(docerr.KindDecoding, err, "sync message have.last_sync")
		}
		pos += n

		bitsLen, n, err := varint.DecodeUint(data[pos:])
		if err != nil {
			return sync.Message{}, docerr.Wrap(docerr.KindDecoding, err, "sync message have.bloom length")
		}
		pos += n
		if pos+int(bitsLen) > len(data) {
			return sync.Message{}, docerr.New(docerr.KindDecoding, "sync message have.bloom truncated")
		}
		var filter *bloom.Filter
		if bitsLen > 0 {
			filter, err = bloom.Unmarshal(data[pos : pos+int(bitsLen)])
			if err != nil {
				return sync.Message{}, docerr.Wrap(docerr.KindDecoding, err, "sync message have.bloom")
			}
		}
		pos += int(bitsLen)
		haves[i] = sync.Have{LastSync: lastSync, Bloom: filter}
	}

	changeCount, n, err := varint.DecodeUint(data[pos:])
	if err != nil {
		return sync.Message{}, docerr.Wrap(docerr.KindDecoding, err, "sync message change count")
	}
	pos += n

	changes := make([]dag.Change, changeCount)
	for i := range changes {
		bodyLen, n, err := varint.DecodeUint(data[pos:])
		if err != nil {
			return sync.Message{}, docerr.Wrap(docerr.KindDecoding, err, "sync message change length")
		}
		pos += n
		if pos+int(bodyLen) > len(data) {
			return sync.Message{}, docerr.New(docerr.KindDecoding, "sync message change body truncated")
		}
		body := data[pos : pos+int(bodyLen)]
		pos += int(bodyLen)

		c, err := change.DecodeChangeBody(body)
		if err != nil {
			return sync.Message{}, err
		}
		c.Hash = chunk.ChangeHash(c.Deps, body)
		changes[i] = c
	}

	return sync.Message{Heads: heads, Need: need, Have: haves, Changes: changes}, nil
}

func appendHashes(out []byte, hs []docid.ChangeHash) []byte {
	out = varint.AppendUint(out, uint64(len(hs)))
	for _, h := range hs {
		out = append(out, h.Bytes()...)
	}
	return out
}

func readHashes(data []byte) ([]docid.ChangeHash, int, error) {
	count, n, err := varint.DecodeUint(data)
	if err != nil {
		return nil, 0, err
	}
	pos := n
	out := make([]docid.ChangeHash, count)
	for i := range out {
		if pos+32 > len(data) {
			return nil, 0, docerr.New(docerr.KindDecoding, "hash list truncated")
		}
		var h docid.ChangeHash
		copy(h[:], data[pos:pos+32])
		out[i] = h
		pos += 32
	}
	return out, pos, nil
}
