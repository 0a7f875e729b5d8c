// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package githash

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"

	"github.com/luci/luci-go/common/errors"
)

// Algorithm selects which digest git-object hashing uses underneath. These
// are the only two values the tree hasher contract (spec.md §4.7) allows —
// git's own blob/tree construction doesn't admit a third.
type Algorithm string

const (
	SHA1   Algorithm = "git-sha1"
	SHA256 Algorithm = "git-sha256"
)

// New returns a fresh hash.Hash for the algorithm.
func (a Algorithm) New() (hash.Hash, error) {
	switch a {
	case SHA1:
		return sha1.New(), nil
	case SHA256:
		return sha256.New(), nil
	}
	return nil, errors.Reason("unknown tree-hash algorithm %(alg)q").D("alg", string(a)).Err()
}

// Git object mode strings, as they appear in a tree object body.
const (
	ModeDir     = "40000"
	ModeFile    = "100644"
	ModeExec    = "100755"
	ModeSymlink = "120000"
)

// EmptyTreeHash is the well-known hash of an empty git tree, under each
// supported algorithm: `git hash-object -t tree /dev/null`.
var EmptyTreeHash = map[Algorithm]string{
	SHA1:   "4b825dc642cb6eb9a060e54bf8d69288fbee4904",
	SHA256: "6ef19b41225c5369f1c104d45d8d85efa9b057b53b14b4b9b939dd74decc5321",
}

// Blob hashes data as a git blob object: H("blob " + len(data) + "\0" + data).
func Blob(alg Algorithm, data []byte) (string, error) {
	h, err := alg.New()
	if err != nil {
		return "", err
	}
	fmt.Fprintf(h, "blob %d\x00", len(data))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// BlobReader hashes data streamed from r as a git blob object, without
// buffering it all in memory; size must be the exact byte count r will
// yield.
func BlobReader(alg Algorithm, size int64, r io.Reader) (string, error) {
	h, err := alg.New()
	if err != nil {
		return "", err
	}
	fmt.Fprintf(h, "blob %d\x00", size)
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Child is one already-hashed entry of a directory, ready to fold into its
// parent's tree object body.
type Child struct {
	Mode string
	Name string
	Hash string // lowercase hex
}

// Tree hashes a directory's already-sorted children as a git tree object:
// H("tree " + len(body) + "\0" + body), where body concatenates, per child,
// "<mode> <name>\0<raw hash bytes>".
func Tree(alg Algorithm, children []Child) (string, error) {
	var body []byte
	for _, c := range children {
		raw, err := hex.DecodeString(c.Hash)
		if err != nil {
			return "", errors.Annotate(err).Reason("child %(name)q has non-hex hash").
				D("name", c.Name).Err()
		}
		body = append(body, []byte(c.Mode)...)
		body = append(body, ' ')
		body = append(body, []byte(c.Name)...)
		body = append(body, 0)
		body = append(body, raw...)
	}

	h, err := alg.New()
	if err != nil {
		return "", err
	}
	fmt.Fprintf(h, "tree %d\x00", len(body))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FileMode returns the git mode string for a regular file, based on whether
// the owner-executable bit is set.
func FileMode(ownerExec bool) string {
	if ownerExec {
		return ModeExec
	}
	return ModeFile
}
