// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ustar

import (
	"bytes"
	"testing"

	"github.com/riannucci/ustar/internal/githash"

	. "github.com/smartystreets/goconvey/convey"
)

func TestTreeHashEmpty(t *testing.T) {
	t.Parallel()

	Convey("S1/S7: an empty tarball hashes to the well-known empty tree hash", t, func() {
		var empty bytes.Buffer
		So(writeTrailer(&empty), ShouldBeNil)

		got, err := TreeHash(bytes.NewReader(empty.Bytes()), githash.SHA256)
		So(err, ShouldBeNil)
		So(got, ShouldEqual, githash.EmptyTreeHash[githash.SHA256])

		got, err = TreeHash(bytes.NewReader(empty.Bytes()), githash.SHA1)
		So(err, ShouldBeNil)
		So(got, ShouldEqual, githash.EmptyTreeHash[githash.SHA1])
	})

	Convey("a tree with only an empty directory hashes to the empty tree with skip_empty", t, func() {
		var buf bytes.Buffer
		So(writeEntry(&buf, &Header{Path: "empty/", Type: EntryType{Kind: KindDirectory}, Mode: 0755}, nil), ShouldBeNil)
		So(writeTrailer(&buf), ShouldBeNil)

		got, err := TreeHash(bytes.NewReader(buf.Bytes()), githash.SHA1, WithSkipEmpty(true))
		So(err, ShouldBeNil)
		So(got, ShouldEqual, githash.EmptyTreeHash[githash.SHA1])
	})
}

func TestTreeHashMatchesGitBlob(t *testing.T) {
	t.Parallel()

	Convey("a single file's tree hash folds its git blob hash", t, func() {
		content := []byte("hello\n")
		blobHash, err := githash.Blob(githash.SHA1, content)
		So(err, ShouldBeNil)

		var buf bytes.Buffer
		So(writeEntry(&buf, &Header{Path: "a.txt", Type: EntryType{Kind: KindFile}, Mode: 0644, Size: int64(len(content))}, bytes.NewReader(content)), ShouldBeNil)
		So(writeTrailer(&buf), ShouldBeNil)

		want, err := githash.Tree(githash.SHA1, []githash.Child{{Mode: githash.ModeFile, Name: "a.txt", Hash: blobHash}})
		So(err, ShouldBeNil)

		got, err := TreeHash(bytes.NewReader(buf.Bytes()), githash.SHA1)
		So(err, ShouldBeNil)
		So(got, ShouldEqual, want)
	})
}

func TestTreeHashHardlinkEquivalence(t *testing.T) {
	t.Parallel()

	Convey("invariant 7: a hardlink hashes identically to its content-identical target", t, func() {
		content := []byte("shared content\n")

		var withHardlink bytes.Buffer
		So(writeEntry(&withHardlink, &Header{Path: "a.txt", Type: EntryType{Kind: KindFile}, Mode: 0644, Size: int64(len(content))}, bytes.NewReader(content)), ShouldBeNil)
		So(writeEntry(&withHardlink, &Header{Path: "b.txt", Type: EntryType{Kind: KindHardlink}, Link: "a.txt"}, nil), ShouldBeNil)
		So(writeTrailer(&withHardlink), ShouldBeNil)

		var withTwoFiles bytes.Buffer
		So(writeEntry(&withTwoFiles, &Header{Path: "a.txt", Type: EntryType{Kind: KindFile}, Mode: 0644, Size: int64(len(content))}, bytes.NewReader(content)), ShouldBeNil)
		So(writeEntry(&withTwoFiles, &Header{Path: "b.txt", Type: EntryType{Kind: KindFile}, Mode: 0644, Size: int64(len(content))}, bytes.NewReader(content)), ShouldBeNil)
		So(writeTrailer(&withTwoFiles), ShouldBeNil)

		hashLink, err := TreeHash(bytes.NewReader(withHardlink.Bytes()), githash.SHA256)
		So(err, ShouldBeNil)
		hashFiles, err := TreeHash(bytes.NewReader(withTwoFiles.Bytes()), githash.SHA256)
		So(err, ShouldBeNil)

		So(hashLink, ShouldEqual, hashFiles)
	})
}

func TestTreeHashHardlinkChain(t *testing.T) {
	t.Parallel()

	Convey("a hardlink targeting another hardlink resolves through the chain", t, func() {
		content := []byte("shared content\n")

		var withChain bytes.Buffer
		So(writeEntry(&withChain, &Header{Path: "a.txt", Type: EntryType{Kind: KindFile}, Mode: 0644, Size: int64(len(content))}, bytes.NewReader(content)), ShouldBeNil)
		So(writeEntry(&withChain, &Header{Path: "b.txt", Type: EntryType{Kind: KindHardlink}, Link: "a.txt"}, nil), ShouldBeNil)
		So(writeEntry(&withChain, &Header{Path: "c.txt", Type: EntryType{Kind: KindHardlink}, Link: "b.txt"}, nil), ShouldBeNil)
		So(writeTrailer(&withChain), ShouldBeNil)

		var withThreeFiles bytes.Buffer
		So(writeEntry(&withThreeFiles, &Header{Path: "a.txt", Type: EntryType{Kind: KindFile}, Mode: 0644, Size: int64(len(content))}, bytes.NewReader(content)), ShouldBeNil)
		So(writeEntry(&withThreeFiles, &Header{Path: "b.txt", Type: EntryType{Kind: KindFile}, Mode: 0644, Size: int64(len(content))}, bytes.NewReader(content)), ShouldBeNil)
		So(writeEntry(&withThreeFiles, &Header{Path: "c.txt", Type: EntryType{Kind: KindFile}, Mode: 0644, Size: int64(len(content))}, bytes.NewReader(content)), ShouldBeNil)
		So(writeTrailer(&withThreeFiles), ShouldBeNil)

		hashChain, err := TreeHash(bytes.NewReader(withChain.Bytes()), githash.SHA256)
		So(err, ShouldBeNil)
		hashFiles, err := TreeHash(bytes.NewReader(withThreeFiles.Bytes()), githash.SHA256)
		So(err, ShouldBeNil)

		So(hashChain, ShouldEqual, hashFiles)
	})
}
