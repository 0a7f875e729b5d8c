// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package knownpath implements the reader's running record of every
// normalized path accepted so far in one streaming pass: a tagged union used
// to detect symlink-prefix attacks and to resolve hardlink targets.
package knownpath

import "strings"

// Kind tags what a previously-seen path turned out to be.
type Kind int

const (
	Directory Kind = iota
	Symlink
	File
	Other
)

// Entry is one known-path record.
type Entry struct {
	Kind Kind

	// Target is the symlink's raw link text, set iff Kind == Symlink.
	Target string

	// Size is the file's size in bytes, set iff Kind == File.
	Size int64
}

// Map is the known-path map: normalized path -> Entry. The zero Map is not
// usable; use New.
type Map struct {
	entries map[string]Entry
}

// New returns an empty known-path map.
func New() *Map {
	return &Map{entries: map[string]Entry{}}
}

// Put records path (already normalized) with e, overwriting any prior
// record — a later entry for the same path legitimately replaces an earlier
// one (e.g. extract's overwrite semantics, spec.md §4.6).
func (m *Map) Put(path string, e Entry) {
	m.entries[path] = e
}

// Lookup returns the record for path, if any.
func (m *Map) Lookup(path string) (Entry, bool) {
	e, ok := m.entries[path]
	return e, ok
}

// SymlinkPrefix reports the shortest proper prefix of path that is recorded
// as a Symlink, if any. path must already be normalized (slash-separated,
// no "." components). An empty, ok=false result means no component of path
// is a known symlink.
func (m *Map) SymlinkPrefix(path string) (prefix string, ok bool) {
	parts := strings.Split(path, "/")
	for i := 1; i < len(parts); i++ {
		candidate := strings.Join(parts[:i], "/")
		if e, found := m.entries[candidate]; found && e.Kind == Symlink {
			return candidate, true
		}
	}
	return "", false
}
