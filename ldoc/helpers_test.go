// Copyright 2024 The ldoc Authors
// This file is part of the ldoc library.
//
// The ldoc library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package ldoc

import (
	"errors"

	"github.com/ldoc/ldoc/docid"
)

var errAbort = errors.New("intentional abort")

func testActor(b byte) docid.ActorId {
	var a docid.ActorId
	a[0] = b
	return a
}
