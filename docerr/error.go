// Copyright 2024 The ldoc Authors
// This file is part of the ldoc library.
//
// The ldoc library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ldoc library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.

// Package docerr defines the error kinds shared across the ldoc packages.
package docerr

import (
	"github.com/pkg/errors"
)

// Kind classifies a failure the way the core recognizes it (spec §7).
type Kind uint8

const (
	// KindInvalidDocument covers chunk envelope/magic/checksum failures, or
	// internally inconsistent document structure.
	KindInvalidDocument Kind = iota
	// KindInvalidChange covers a malformed change body or unresolvable deps.
	KindInvalidChange
	// KindInvalidObjID names an ObjId that does not exist in the document.
	KindInvalidObjID
	// KindEncoding is a codec-level encode malformation.
	KindEncoding
	// KindDecoding is a codec-level decode malformation.
	KindDecoding
	// KindSync is a structurally invalid sync message.
	KindSync
	// KindInvalidOperation names an operation violating structural preconditions.
	KindInvalidOperation
)

func (k Kind) String() string {
	switch k {
	case KindInvalidDocument:
		return "invalid_document"
	case KindInvalidChange:
		return "invalid_change"
	case KindInvalidObjID:
		return "invalid_obj_id"
	case KindEncoding:
		return "encoding_error"
	case KindDecoding:
		return "decoding_error"
	case KindSync:
		return "sync_error"
	case KindInvalidOperation:
		return "invalid_operation"
	default:
		return "unknown_error"
	}
}

// Error is the error type returned across package boundaries. It carries a
// Kind plus an optional wrapped cause.
type Error struct {
	kind  Kind
	msg   string
	cause error
}

func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

// Wrap attaches kind/context to cause, using pkg/errors to retain a stack
// trace the way the wider example pack wraps sync/decode failures.
func Wrap(kind Kind, cause error, msg string) *Error {
	if cause == nil {
		return New(kind, msg)
	}
	return &Error{kind: kind, msg: msg, cause: errors.Wrap(cause, msg)}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.cause.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Kind() Kind { return e.kind }

// Is reports whether target is an *Error of the same kind, so that
// errors.Is(err, docerr.ErrX) matches any error of that kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.kind == e.kind
}

// Is reports whether err, or an error it wraps, is an *Error of the given
// kind.
func Is(err error, kind Kind) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.kind == kind
	}
	return false
}

var (
	ErrInvalidDocument   = New(KindInvalidDocument, "invalid document")
	ErrInvalidChange     = New(KindInvalidChange, "invalid change")
	ErrInvalidObjID      = New(KindInvalidObjID, "invalid object id")
	ErrEncoding          = New(KindEncoding, "encoding error")
	ErrDecoding          = New(KindDecoding, "decoding error")
	ErrSync              = New(KindSync, "sync error")
	ErrInvalidOperation  = New(KindInvalidOperation, "invalid operation")
)
