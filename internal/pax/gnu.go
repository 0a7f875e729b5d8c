// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package pax

import "bytes"

// LongLinkName is the sentinel path GNU tar writes on the standard header
// that precedes an 'L' (long name) or 'K' (long link) extension block.
const LongLinkName = "././@LongLink"

// GNU type flags for long name/link extension entries.
const (
	TypeGNULongName = 'L'
	TypeGNULongLink = 'K'
)

// ParseGNULong strips the NUL terminator (and anything past it) from a GNU
// long-name/long-link data region.
func ParseGNULong(data []byte) string {
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	return string(data)
}

// IsExtension reports whether typeflag marks a header as metadata-only: a
// PAX 'x'/'g' header or a GNU long name/link header. The reader must fold
// these into the following standard header rather than surfacing them.
func IsExtension(typeflag byte) bool {
	switch typeflag {
	case 'x', 'g', TypeGNULongName, TypeGNULongLink:
		return true
	}
	return false
}
