// Copyright 2024 The ldoc Authors
// This file is part of the ldoc library.
//
// The ldoc library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package sync implements the two-peer synchronization protocol of spec
// §4.11: a per-peer state machine that generates outgoing sync messages
// and folds incoming ones, converging both sides on a shared frontier
// without either peer shipping changes the other already has.
package sync

import (
	"github.com/ldoc/ldoc/bloom"
	"github.com/ldoc/ldoc/dag"
	"github.com/ldoc/ldoc/docid"
)

// Have is one entry of a message's have list: a peer's claim of "I have
// everything reachable from last_sync, plus what this Bloom filter
// summarizes beyond it" (spec §4.11).
type Have struct {
	LastSync []docid.ChangeHash
	Bloom    *bloom.Filter
}

// Message is a sync protocol round-trip payload (spec §4.11).
type Message struct {
	Heads   []docid.ChangeHash
	Need    []docid.ChangeHash
	Have    []Have
	Changes []dag.Change
}

// State is one peer's view of a sync session (spec §4.11's field list).
// The zero value is a fresh, never-synced peer.
type State struct {
	SharedHeads   []docid.ChangeHash
	LastSentHeads []docid.ChangeHash
	TheirHeads    []docid.ChangeHash
	TheirNeed     []docid.ChangeHash
	TheirHave     []Have
	SentHashes    map[docid.ChangeHash]bool
	InFlight      bool
	HaveResponded bool

	deferred map[docid.ChangeHash]dag.Change
}

// New returns a fresh peer state.
func New() *State {
	return &State{SentHashes: map[docid.ChangeHash]bool{}, deferred: map[docid.ChangeHash]dag.Change{}}
}

// persistedMarker prefixes the persisted form of a sync state (spec §6):
// only shared_heads survives a save, everything else is session-local.
const persistedMarker = 0x43

// Persist serializes only shared_heads, prefixed by the 0x43 marker byte
// (spec §6) — the rest of State is ephemeral per-session bookkeeping.
func (s *State) Persist() []byte {
	out := []byte{persistedMarker}
	for _, h := range s.SharedHeads {
		out = append(out, h.Bytes()...)
	}
	return out
}

// LoadPersisted reverses Persist, returning a fresh State seeded with the
// recovered shared_heads.
func LoadPersisted(data []byte) (*State, bool) {
	if len(data) < 1 || data[0] != persistedMarker {
		return nil, false
	}
	data = data[1:]
	if len(data)%32 != 0 {
		return nil, false
	}
	s := New()
	for i := 0; i+32 <= len(data); i += 32 {
		var h docid.ChangeHash
		copy(h[:], data[i:i+32])
		s.SharedHeads = append(s.SharedHeads, h)
	}
	docid.SortHashes(s.SharedHeads)
	return s, true
}

func headsEqual(a, b []docid.ChangeHash) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]docid.ChangeHash(nil), a...)
	bs := append([]docid.ChangeHash(nil), b...)
	docid.SortHashes(as)
	docid.SortHashes(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

// Generate computes the next outgoing message, or ok=false if this side has
// nothing new to say (spec §4.11's suppression rule).
func (s *State) Generate(d *dag.DAG) (Message, bool) {
	heads := d.Heads()

	ourNeed := []docid.ChangeHash(nil)
	if len(s.TheirHeads) > 0 {
		ourNeed = d.ReachableNotIn(s.TheirHeads, heads)
	}

	toShip := s.computeChangesToShip(d, heads)

	fullySynced := headsEqual(heads, s.TheirHeads) && len(toShip) == 0 && len(ourNeed) == 0
	suppress := headsEqual(heads, s.LastSentHeads) && s.HaveResponded && (fullySynced || s.InFlight)
	if suppress {
		return Message{}, false
	}

	allKnownReachable := d.ReachableNotIn(heads, s.SharedHeads)
	haveEntries := []Have{{
		LastSync: append([]docid.ChangeHash(nil), s.SharedHeads...),
		Bloom:    bloom.Build(allKnownReachable),
	}}

	changes := make([]dag.Change, 0, len(toShip))
	for _, h := range toShip {
		if c, ok := d.Get(h); ok {
			changes = append(changes, c)
		}
	}

	msg := Message{
		Heads:   heads,
		Need:    ourNeed,
		Have:    haveEntries,
		Changes: changes,
	}

	if s.SentHashes == nil {
		s.SentHashes = map[docid.ChangeHash]bool{}
	}
	for _, h := range toShip {
		s.SentHashes[h] = true
	}
	s.LastSentHeads = heads
	s.InFlight = true
	return msg, true
}

// computeChangesToShip finds the set S of local changes the peer needs
// (spec §4.11): reachable from our heads, not in shared_heads, absent
// from every Bloom filter the peer has advertised — then transitively
// closed over descendants so a parent is never shipped after its child,
// and unioned with any hash they explicitly asked for via their_need,
// minus what we've already sent this session.
func (s *State) computeChangesToShip(d *dag.DAG, heads []docid.ChangeHash) []docid.ChangeHash {
	var candidates []docid.ChangeHash
	if len(s.TheirHave) > 0 || len(s.TheirNeed) > 0 {
		reachable := d.ReachableNotIn(heads, s.SharedHeads)
		for _, h := range reachable {
			if !s.inAnyBloom(h) {
				candidates = append(candidates, h)
			}
		}
	}

	closed := d.DescendantsInclusive(candidates)
	set := map[docid.ChangeHash]bool{}
	for h := range closed {
		if d.Has(h) {
			set[h] = true
		}
	}
	for _, h := range s.TheirNeed {
		if d.Has(h) {
			set[h] = true
		}
	}
	for h := range s.SentHashes {
		delete(set, h)
	}

	out := make([]docid.ChangeHash, 0, len(set))
	for h := range set {
		out = append(out, h)
	}
	docid.SortHashes(out)
	return out
}

func (s *State) inAnyBloom(h docid.ChangeHash) bool {
	for _, have := range s.TheirHave {
		if have.Bloom != nil && have.Bloom.Test(h) {
			return true
		}
	}
	return false
}

// Receive folds an incoming message into local state (spec §4.11): applies
// deliverable changes, defers ones with missing parents, advances
// shared_heads, and prunes sent_hashes of anything the peer has
// acknowledged as an ancestor of its advertised heads.
func (s *State) Receive(d *dag.DAG, msg Message) []docid.ChangeHash {
	applied := s.applyDeliverable(d, msg.Changes)

	allKnown := true
	for _, h := range msg.Heads {
		if !d.Has(h) {
			allKnown = false
			break
		}
	}
	if allKnown {
		s.SharedHeads = append([]docid.ChangeHash(nil), msg.Heads...)
		docid.SortHashes(s.SharedHeads)
	} else {
		merged := map[docid.ChangeHash]bool{}
		for _, h := range s.SharedHeads {
			merged[h] = true
		}
		for _, h := range msg.Heads {
			if d.Has(h) {
				merged[h] = true
			}
		}
		s.SharedHeads = s.SharedHeads[:0]
		for h := range merged {
			s.SharedHeads = append(s.SharedHeads, h)
		}
		docid.SortHashes(s.SharedHeads)
	}

	knownHeads := make([]docid.ChangeHash, 0, len(msg.Heads))
	for _, h := range msg.Heads {
		if d.Has(h) {
			knownHeads = append(knownHeads, h)
		}
	}
	for h := range d.AncestorsInclusive(knownHeads) {
		delete(s.SentHashes, h)
	}

	s.InFlight = false
	s.HaveResponded = true
	s.TheirHave = msg.Have
	s.TheirHeads = msg.Heads
	s.TheirNeed = msg.Need

	return applied
}

// applyDeliverable applies every change whose dependencies are already
// known, repeatedly, so a batch that arrives out of causal order still
// resolves within one Receive call; anything still missing parents is
// buffered in s.deferred for a later Receive.
func (s *State) applyDeliverable(d *dag.DAG, incoming []dag.Change) []docid.ChangeHash {
	pending := make(map[docid.ChangeHash]dag.Change, len(s.deferred)+len(incoming))
	for h, c := range s.deferred {
		pending[h] = c
	}
	for _, c := range incoming {
		pending[c.Hash] = c
	}

	var applied []docid.ChangeHash
	for {
		progressed := false
		for h, c := range pending {
			if d.Has(h) {
				delete(pending, h)
				continue
			}
			ready := true
			for _, dep := range c.Deps {
				if !d.Has(dep) {
					ready = false
					break
				}
			}
			if !ready {
				continue
			}
			if err := d.AddChange(c); err == nil {
				applied = append(applied, h)
				delete(pending, h)
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}

	s.deferred = pending
	return applied
}
