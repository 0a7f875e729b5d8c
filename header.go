// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ustar

import (
	"strings"

	"github.com/riannucci/ustar/internal/knownpath"

	"github.com/luci/luci-go/common/errors"
)

// Kind is the entry-type taxonomy of spec.md §3.
type Kind byte

const (
	KindFile Kind = iota
	KindHardlink
	KindSymlink
	KindChardev
	KindBlockdev
	KindDirectory
	KindFifo
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindHardlink:
		return "hardlink"
	case KindSymlink:
		return "symlink"
	case KindChardev:
		return "chardev"
	case KindBlockdev:
		return "blockdev"
	case KindDirectory:
		return "directory"
	case KindFifo:
		return "fifo"
	default:
		return "other"
	}
}

// EntryType is a Kind plus, for KindOther, the raw typeflag byte that named
// it — "other(c)" in spec.md's type taxonomy.
type EntryType struct {
	Kind Kind
	Raw  byte // meaningful iff Kind == KindOther
}

func (t EntryType) String() string {
	if t.Kind == KindOther {
		return "other(" + string(t.Raw) + ")"
	}
	return t.Kind.String()
}

// Writable reports whether t is in the writable/extractable subset:
// file, hardlink, symlink, directory.
func (t EntryType) Writable() bool {
	switch t.Kind {
	case KindFile, KindHardlink, KindSymlink, KindDirectory:
		return true
	}
	return false
}

// typeFromFlag maps a raw ustar typeflag byte to an EntryType. '\x00' and
// '7' (contiguous file) are folded into KindFile, matching common tar
// practice; 'x', 'g', 'L', 'K' never reach here — the reader strips them out
// as extension headers before a Header is ever built.
func typeFromFlag(b byte) EntryType {
	switch b {
	case '0', 0, '7':
		return EntryType{Kind: KindFile}
	case '1':
		return EntryType{Kind: KindHardlink}
	case '2':
		return EntryType{Kind: KindSymlink}
	case '3':
		return EntryType{Kind: KindChardev}
	case '4':
		return EntryType{Kind: KindBlockdev}
	case '5':
		return EntryType{Kind: KindDirectory}
	case '6':
		return EntryType{Kind: KindFifo}
	default:
		return EntryType{Kind: KindOther, Raw: b}
	}
}

func (t EntryType) flag() byte {
	switch t.Kind {
	case KindFile:
		return '0'
	case KindHardlink:
		return '1'
	case KindSymlink:
		return '2'
	case KindChardev:
		return '3'
	case KindBlockdev:
		return '4'
	case KindDirectory:
		return '5'
	case KindFifo:
		return '6'
	default:
		return t.Raw
	}
}

// Header is the logical, normalized record this package exposes for every
// tar entry: the public contract named in spec.md §6.
type Header struct {
	Path string
	Type EntryType
	Mode int64
	Size int64
	Link string
}

// normalizePath collapses repeated slashes and removes "." components. It
// rejects ".." components outright — unlike a symlink's target text, an
// entry's own path may never climb above the root.
func normalizePath(p string) (string, error) {
	if strings.IndexByte(p, 0) >= 0 {
		return "", errors.New("path contains a NUL byte")
	}
	if strings.HasPrefix(p, "/") {
		return "", errors.Reason("path %(path)q is absolute").D("path", p).Err()
	}

	trailingSlash := strings.HasSuffix(p, "/") && p != "/"
	parts := strings.Split(p, "/")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			return "", errors.Reason("path %(path)q contains a %(dotdot)q component").
				D("path", p).D("dotdot", "..").Err()
		default:
			out = append(out, part)
		}
	}
	joined := strings.Join(out, "/")
	if trailingSlash && joined != "" {
		joined += "/"
	}
	return joined, nil
}

// normalizeLinkTarget applies the same slash-collapse/dot-removal as
// normalizePath but, per spec.md §3, tolerates ".." components — a
// symlink's target text is free to contain them, subject only to the
// escapes-the-root check below.
func normalizeLinkTarget(p string) []string {
	parts := strings.Split(p, "/")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		default:
			out = append(out, part)
		}
	}
	return out
}

// checkSymlinkEscapesRoot reports whether target, interpreted as a path
// relative to a directory depth levels below the root, climbs above the
// root via "..". This is pure path arithmetic — grounded on the teacher's
// sar/sardata/toc.SymLink.Validate, which performs the identical
// depth-counting walk over a symlink's target components.
func checkSymlinkEscapesRoot(target []string, depth int) error {
	level := depth
	for _, piece := range target {
		if piece != ".." {
			level++
			continue
		}
		level--
		if level < 0 {
			return errors.Reason("symlink target %(target)q escapes the root").
				D("target", strings.Join(target, "/")).Err()
		}
	}
	return nil
}

// CheckHeader validates h against the invariants of spec.md §3/§4.2. It must
// be called after path normalization and hardlink size resolution — known is
// the known-path map used to confirm a hardlink's target was seen earlier in
// the stream as a plain file.
func CheckHeader(h *Header, known *knownpath.Map) error {
	var errs errors.MultiError

	if h.Path == "" {
		errs = append(errs, errors.New("path is empty"))
	}
	if strings.IndexByte(h.Path, 0) >= 0 {
		errs = append(errs, errors.New("path contains a NUL byte"))
	}
	if strings.HasPrefix(h.Path, "/") {
		errs = append(errs, errors.New("path is absolute"))
	}
	for _, part := range strings.Split(h.Path, "/") {
		if part == ".." {
			errs = append(errs, errors.New("path contains a \"..\" component"))
			break
		}
	}
	if h.Type.Kind != KindDirectory && strings.HasSuffix(h.Path, "/") {
		errs = append(errs, errors.New("path ends in \"/\" but type is not directory"))
	}
	if h.Type.Kind != KindDirectory {
		trimmed := strings.TrimSuffix(h.Path, "/")
		if trimmed == "." || strings.HasSuffix(trimmed, "/.") {
			errs = append(errs, errors.New(`path is "." or ends in "/."`))
		}
	}

	if h.Mode < 0 || h.Mode > 0xFFFF {
		errs = append(errs, errors.Reason("mode %(mode)#o does not fit in 16 bits").D("mode", h.Mode).Err())
	}

	if h.Size < 0 {
		errs = append(errs, errors.Reason("size %(size)d is negative").D("size", h.Size).Err())
	}
	switch h.Type.Kind {
	case KindDirectory, KindSymlink:
		if h.Size != 0 {
			errs = append(errs, errors.Reason("size must be 0 for a %(kind)s").D("kind", h.Type.Kind).Err())
		}
	}

	switch h.Type.Kind {
	case KindSymlink, KindHardlink:
		if h.Link == "" {
			errs = append(errs, errors.Reason("%(kind)s has an empty link target").D("kind", h.Type.Kind).Err())
		}
	default:
		if h.Link != "" {
			errs = append(errs, errors.Reason("%(kind)s has a non-empty link target").D("kind", h.Type.Kind).Err())
		}
	}
	if strings.IndexByte(h.Link, 0) >= 0 {
		errs = append(errs, errors.New("link contains a NUL byte"))
	}

	switch h.Type.Kind {
	case KindHardlink:
		if strings.HasPrefix(h.Link, "/") {
			errs = append(errs, errors.New("hardlink target is absolute"))
		}
		for _, part := range strings.Split(h.Link, "/") {
			if part == ".." {
				errs = append(errs, errors.New(`hardlink target contains a ".." component`))
				break
			}
		}
		if known != nil && h.Link != "" {
			if e, ok := known.Lookup(h.Link); !ok || e.Kind != knownpath.File {
				errs = append(errs, &HardlinkUnknownTargetError{Path: h.Path, Link: h.Link})
			}
		}
	case KindSymlink:
		depth := strings.Count(strings.TrimSuffix(h.Path, "/"), "/")
		if err := checkSymlinkEscapesRoot(normalizeLinkTarget(h.Link), depth); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return &InvalidHeaderError{Path: h.Path, Errs: errs}
}
