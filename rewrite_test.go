// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ustar

import (
	"bytes"
	"io/ioutil"
	"os"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRewriteIdempotent(t *testing.T) {
	t.Parallel()

	Convey("rewriting a canonical archive reproduces it byte for byte", t, func() {
		dir, err := ioutil.TempDir("", "ustar-rewrite")
		So(err, ShouldBeNil)
		defer os.RemoveAll(dir)

		mustWriteTree(t, dir, map[string]string{
			"b.txt":     "b\n",
			"a.txt":     "a\n",
			"sub/c.txt": "c\n",
		})

		var first bytes.Buffer
		So(Create(&first, dir), ShouldBeNil)

		var second bytes.Buffer
		So(Rewrite(bytes.NewReader(first.Bytes()), &second), ShouldBeNil)

		var third bytes.Buffer
		So(Rewrite(bytes.NewReader(second.Bytes()), &third), ShouldBeNil)

		So(third.Bytes(), ShouldResemble, second.Bytes())
	})

	Convey("rewrite reorders entries into canonical git tree order", t, func() {
		var src bytes.Buffer
		So(writeEntry(&src, &Header{Path: "z.txt", Type: EntryType{Kind: KindFile}, Mode: 0644, Size: 1}, bytes.NewReader([]byte("z"))), ShouldBeNil)
		So(writeEntry(&src, &Header{Path: "a.txt", Type: EntryType{Kind: KindFile}, Mode: 0644, Size: 1}, bytes.NewReader([]byte("a"))), ShouldBeNil)
		So(writeTrailer(&src), ShouldBeNil)

		var out bytes.Buffer
		So(Rewrite(bytes.NewReader(src.Bytes()), &out), ShouldBeNil)

		headers, err := List(bytes.NewReader(out.Bytes()))
		So(err, ShouldBeNil)
		So(len(headers), ShouldEqual, 2)
		So(headers[0].Path, ShouldEqual, "a.txt")
		So(headers[1].Path, ShouldEqual, "z.txt")
	})
}

func TestRewritePredicateAndPortable(t *testing.T) {
	t.Parallel()

	Convey("a predicate drops non-matching entries from the rewritten output", t, func() {
		var src bytes.Buffer
		So(writeEntry(&src, &Header{Path: "keep.txt", Type: EntryType{Kind: KindFile}, Mode: 0644, Size: 0}, bytes.NewReader(nil)), ShouldBeNil)
		So(writeEntry(&src, &Header{Path: "skip.txt", Type: EntryType{Kind: KindFile}, Mode: 0644, Size: 0}, bytes.NewReader(nil)), ShouldBeNil)
		So(writeTrailer(&src), ShouldBeNil)

		var out bytes.Buffer
		err := Rewrite(bytes.NewReader(src.Bytes()), &out, WithRewritePredicate(func(h *Header) bool {
			return h.Path != "skip.txt"
		}))
		So(err, ShouldBeNil)

		headers, err := List(bytes.NewReader(out.Bytes()))
		So(err, ShouldBeNil)
		So(len(headers), ShouldEqual, 1)
		So(headers[0].Path, ShouldEqual, "keep.txt")
	})

	Convey("portable mode rejects a Windows-reserved path component", t, func() {
		var src bytes.Buffer
		So(writeEntry(&src, &Header{Path: "CON.txt", Type: EntryType{Kind: KindFile}, Mode: 0644, Size: 0}, bytes.NewReader(nil)), ShouldBeNil)
		So(writeTrailer(&src), ShouldBeNil)

		var out bytes.Buffer
		err := Rewrite(bytes.NewReader(src.Bytes()), &out, WithRewritePortable(true))
		So(err, ShouldNotBeNil)
	})
}
