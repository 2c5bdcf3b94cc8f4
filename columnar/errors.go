// Copyright 2024 The ldoc Authors
// This file is part of the ldoc library.
//
// The ldoc library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package columnar

import "github.com/ldoc/ldoc/docerr"

var errTruncated = docerr.New(docerr.KindDecoding, "column stream truncated")
