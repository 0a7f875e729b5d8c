// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ustar

import (
	"path/filepath"
	"strings"

	"github.com/riannucci/ustar/internal/knownpath"

	"github.com/luci/luci-go/common/data/stringset"
	"github.com/luci/luci-go/common/logging"
)

// resolveDeferredSymlinks materializes every symlink entry deferred during
// the main extraction pass, in copy_symlinks=true mode: each is resolved to
// the file it (transitively) points at and that file's bytes are copied in
// its place. A cycle, or a target that never resolves to a known file, is
// skipped with a logged warning rather than an error — the entry simply does
// not appear in the extracted
// tree, matching the symlink-cycle scenario in spec.md §8.
func (e *extractor) resolveDeferredSymlinks() error {
	for _, p := range e.deferred {
		target, ok := resolveSymlinkChain(e.rd.known, p.header.Path, p.header.Link)
		if !ok {
			logging.Warningf(e.ctx, "skipping symlink %q: target %q is cyclic, dangling, or not a file", p.header.Path, p.header.Link)
			continue
		}
		srcAbs := filepath.Join(e.root, target)
		dstAbs := filepath.Join(e.root, p.header.Path)
		info, err := e.opts.host.Lstat(srcAbs)
		if err != nil {
			logging.Warningf(e.ctx, "skipping symlink %q: %s", p.header.Path, err)
			continue
		}
		if err := e.copyFileContent(srcAbs, dstAbs, info.Mode()); err != nil {
			return err
		}
	}
	return nil
}

// resolveSymlinkChain follows the symlink at path (whose raw target text is
// link) through the known-path map until it reaches a plain file, detecting
// cycles with a visited set. It returns the resolved file's normalized path,
// or ok=false if the chain cycles, dangles, or terminates on anything but a
// file.
func resolveSymlinkChain(known *knownpath.Map, path, link string) (string, bool) {
	visited := stringset.New(0)
	cur, curLink := path, link

	for {
		if !visited.Add(cur) {
			return "", false
		}

		resolved := joinRelative(cur, curLink)
		e, ok := known.Lookup(resolved)
		if !ok {
			return "", false
		}

		switch e.Kind {
		case knownpath.File:
			return resolved, true
		case knownpath.Symlink:
			cur, curLink = resolved, e.Target
		default:
			return "", false
		}
	}
}

// joinRelative resolves link (a symlink target, possibly containing "..")
// against the directory containing path.
func joinRelative(path, link string) string {
	dir := strings.Split(path, "/")
	if len(dir) > 0 {
		dir = dir[:len(dir)-1]
	}
	cur := append([]string{}, dir...)
	for _, part := range normalizeLinkTarget(link) {
		if part == ".." {
			if len(cur) > 0 {
				cur = cur[:len(cur)-1]
			}
			continue
		}
		cur = append(cur, part)
	}
	return strings.Join(cur, "/")
}
