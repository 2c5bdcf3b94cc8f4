// Copyright 2024 The ldoc Authors
// This file is part of the ldoc library.
//
// The ldoc library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package xlog is the structured-logging backbone shared across ldoc's
// packages. It wraps zap's SugaredLogger behind the key/value call shape
// the teacher's own log package uses: Info("msg", "k1", v1, "k2", v2, ...).
package xlog

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu      sync.RWMutex
	root    = zap.NewNop().Sugar()
	inited  bool
)

// SetDevelopment switches the root logger to zap's human-readable
// development encoder. Intended for test/example use only.
func SetDevelopment() {
	l, err := zap.NewDevelopment()
	if err != nil {
		return
	}
	mu.Lock()
	root = l.Sugar()
	inited = true
	mu.Unlock()
}

// Named returns a child logger tagged with the given component name, e.g.
// xlog.Named("sync") or xlog.Named("opset").
func Named(name string) *Logger {
	mu.RLock()
	l := root
	mu.RUnlock()
	return &Logger{s: l.Named(name)}
}

// Logger is a thin leveled wrapper kept deliberately small: the core never
// needs anything beyond Debug/Info/Warn/Error on the slow/error paths.
type Logger struct {
	s *zap.SugaredLogger
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.s.Infow(msg, kv...) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
