// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ustar

import (
	"bytes"
	"io"
	"io/ioutil"
	"strings"

	"github.com/riannucci/ustar/internal/fstree"

	"github.com/luci/luci-go/common/errors"
)

type rewriteOptionData struct {
	predicate func(*Header) bool
	portable  bool
}

// RewriteOption configures Rewrite.
type RewriteOption func(*rewriteOptionData)

// WithRewritePredicate drops, from the canonical output, every entry for
// which pred returns false.
func WithRewritePredicate(pred func(*Header) bool) RewriteOption {
	return func(o *rewriteOptionData) { o.predicate = pred }
}

// WithRewritePortable rejects Windows-unsafe path components instead of
// silently canonicalizing them.
func WithRewritePortable(val bool) RewriteOption {
	return func(o *rewriteOptionData) { o.portable = val }
}

// rewriteLeaf is one non-directory entry captured by a scan pass: its
// logical Header plus the byte offset, in the seekable source, at which its
// data region begins.
type rewriteLeaf struct {
	header     Header
	dataOffset int64
}

// Rewrite canonicalizes src into out: every accepted entry is re-encoded
// through this package's own writer, in git tree order, so that running
// Rewrite twice in a row produces byte-identical output. src need not be
// seekable — a non-seeking source is buffered into memory first, since the
// scan pass below requires random access back into the entries' data
// regions.
func Rewrite(src io.Reader, out io.Writer, opts ...RewriteOption) error {
	o := rewriteOptionData{}
	for _, opt := range opts {
		opt(&o)
	}

	seeker, ok := src.(io.ReadSeeker)
	if !ok {
		buf, err := ioutil.ReadAll(src)
		if err != nil {
			return errors.Annotate(err).Reason("buffering non-seekable source").Err()
		}
		seeker = bytes.NewReader(buf)
	}

	tree, dirModes, err := scanForRewrite(seeker, &o)
	if err != nil {
		return err
	}

	err = fstree.WalkAll(tree,
		func(path string) error {
			mode := int64(0755)
			if m, ok := dirModes[path]; ok {
				mode = m
			}
			return writeEntry(out, &Header{Path: path + "/", Type: EntryType{Kind: KindDirectory}, Mode: mode}, nil)
		},
		func(path string, leaf rewriteLeaf) error {
			return writeRewriteLeaf(out, seeker, &leaf)
		},
	)
	if err != nil {
		return err
	}

	return writeTrailer(out)
}

func writeRewriteLeaf(out io.Writer, seeker io.ReadSeeker, leaf *rewriteLeaf) error {
	if leaf.header.Type.Kind != KindFile {
		return writeEntry(out, &leaf.header, nil)
	}
	if _, err := seeker.Seek(leaf.dataOffset, io.SeekStart); err != nil {
		return errors.Annotate(err).Reason("seeking to %(path)q's data").D("path", leaf.header.Path).Err()
	}
	return writeEntry(out, &leaf.header, io.LimitReader(seeker, leaf.header.Size))
}

// scanForRewrite makes one streaming pass over src, recording every
// accepted entry's Header and data offset into a tree in canonical order,
// plus each directory entry's original mode (fstree has no slot for
// per-directory metadata, so this rides alongside it by path).
func scanForRewrite(seeker io.ReadSeeker, o *rewriteOptionData) (*fstree.Node[rewriteLeaf], map[string]int64, error) {
	tree := fstree.New[rewriteLeaf]()
	dirModes := map[string]int64{}
	files := map[string]rewriteLeaf{}
	rd := newReader(seeker, true)

	for {
		ent, err := rd.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}

		h := ent.Header
		leaf := rewriteLeaf{header: h, dataOffset: rd.offset()}
		if h.Type.Kind == KindHardlink {
			// re-emitted as a plain file carrying its target's mode and bytes
			if t, ok := files[h.Link]; ok {
				leaf = rewriteLeaf{header: Header{Path: h.Path, Type: t.header.Type, Mode: t.header.Mode, Size: t.header.Size}, dataOffset: t.dataOffset}
			}
		}
		if leaf.header.Type.Kind == KindFile {
			files[h.Path] = leaf
		}
		if o.predicate != nil && !o.predicate(&h) {
			continue
		}
		if o.portable {
			if err := checkPortable(h.Path); err != nil {
				return nil, nil, err
			}
		}

		if h.Type.Kind == KindDirectory {
			trimmed := strings.TrimSuffix(h.Path, "/")
			if _, err := tree.EnsureDir(trimmed); err != nil {
				return nil, nil, err
			}
			dirModes[trimmed] = h.Mode
			continue
		}

		if err := tree.SetLeaf(h.Path, leaf); err != nil {
			return nil, nil, err
		}
	}

	return tree, dirModes, nil
}
