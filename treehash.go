// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ustar

import (
	"io"
	"strings"

	"github.com/riannucci/ustar/internal/fstree"
	"github.com/riannucci/ustar/internal/githash"

	"github.com/luci/luci-go/common/errors"
)

type treeHashOptionData struct {
	predicate func(*Header) bool
	skipEmpty bool
	strict    bool
}

// TreeHashOption configures TreeHash.
type TreeHashOption func(*treeHashOptionData)

// WithTreeHashPredicate excludes entries for which pred returns false from
// the hashed tree.
func WithTreeHashPredicate(pred func(*Header) bool) TreeHashOption {
	return func(o *treeHashOptionData) { o.predicate = pred }
}

// WithSkipEmpty removes empty directories from the tree before hashing,
// matching the canonical form produced by a writer that never emits an
// entry for a directory with no descendants. Without this option, an empty
// directory contributes its algorithm's well-known empty-tree hash as a
// nested child, per the explicit canonical form.
func WithSkipEmpty(val bool) TreeHashOption {
	return func(o *treeHashOptionData) { o.skipEmpty = val }
}

// WithTreeHashStrict controls whether an unsupported entry type aborts
// hashing (true, the default) or is merely excluded from the tree.
func WithTreeHashStrict(val bool) TreeHashOption {
	return func(o *treeHashOptionData) { o.strict = val }
}

type hashLeaf struct {
	mode string
	hash string
}

// fileRecord is what TreeHash remembers about each plain file it has
// hashed, so a later hardlink entry pointing back at it can reuse the
// result instead of re-hashing zero bytes (spec.md invariant 7: a hardlink
// and a file with the same content hash identically).
type fileRecord struct {
	mode string
	hash string
}

// TreeHash decodes r and returns the hex git-compatible tree-object hash of
// the file tree it describes, under alg.
func TreeHash(r io.Reader, alg githash.Algorithm, opts ...TreeHashOption) (string, error) {
	o := treeHashOptionData{strict: true}
	for _, opt := range opts {
		opt(&o)
	}
	if _, err := alg.New(); err != nil {
		return "", err
	}

	tree := fstree.New[hashLeaf]()
	files := map[string]fileRecord{}

	rd := newReader(r, o.strict)
	for {
		ent, err := rd.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		h := ent.Header
		if o.predicate != nil && !o.predicate(&h) {
			continue
		}

		switch h.Type.Kind {
		case KindDirectory:
			if _, err := tree.EnsureDir(strings.TrimSuffix(h.Path, "/")); err != nil {
				return "", err
			}

		case KindFile:
			hash, err := githash.BlobReader(alg, h.Size, ent.data)
			if err != nil {
				return "", errors.Annotate(err).Reason("hashing %(path)q").D("path", h.Path).Err()
			}
			mode := githash.FileMode(h.Mode&0100 != 0)
			files[h.Path] = fileRecord{mode: mode, hash: hash}
			if err := tree.SetLeaf(h.Path, hashLeaf{mode: mode, hash: hash}); err != nil {
				return "", err
			}

		case KindHardlink:
			rec, ok := files[h.Link]
			if !ok {
				return "", &HardlinkUnknownTargetError{Path: h.Path, Link: h.Link}
			}
			files[h.Path] = rec
			if err := tree.SetLeaf(h.Path, hashLeaf{mode: rec.mode, hash: rec.hash}); err != nil {
				return "", err
			}

		case KindSymlink:
			hash, err := githash.Blob(alg, []byte(h.Link))
			if err != nil {
				return "", errors.Annotate(err).Reason("hashing symlink %(path)q").D("path", h.Path).Err()
			}
			if err := tree.SetLeaf(h.Path, hashLeaf{mode: githash.ModeSymlink, hash: hash}); err != nil {
				return "", err
			}
		}
	}

	if o.skipEmpty {
		tree.Prune()
	}

	result := fstree.Reduce(tree,
		func(_ string, v hashLeaf) hashLeaf { return v },
		func(children []fstree.ReducedChild[hashLeaf]) hashLeaf {
			gitChildren := make([]githash.Child, 0, len(children))
			for _, c := range children {
				gitChildren = append(gitChildren, githash.Child{Mode: c.Value.mode, Name: c.Name, Hash: c.Value.hash})
			}
			hash, err := githash.Tree(alg, gitChildren)
			if err != nil {
				// Tree() only fails on a malformed hex hash, which cannot happen
				// for hashes this package produced itself.
				panic(err)
			}
			return hashLeaf{mode: githash.ModeDir, hash: hash}
		},
	)

	return result.hash, nil
}
