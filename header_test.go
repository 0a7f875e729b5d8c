// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ustar

import (
	"errors"
	"testing"

	"github.com/riannucci/ustar/internal/knownpath"

	. "github.com/luci/luci-go/common/testing/assertions"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNormalizePath(t *testing.T) {
	t.Parallel()

	Convey("normalizePath", t, func() {
		Convey("collapses slash runs and dot components", func() {
			got, err := normalizePath("a//./b/./c")
			So(err, ShouldBeNil)
			So(got, ShouldEqual, "a/b/c")
		})

		Convey("preserves a trailing slash", func() {
			got, err := normalizePath("a/b/")
			So(err, ShouldBeNil)
			So(got, ShouldEqual, "a/b/")
		})

		Convey("rejects absolute paths", func() {
			_, err := normalizePath("/etc/passwd")
			So(err, ShouldErrLike, "absolute")
		})

		Convey("rejects .. components", func() {
			_, err := normalizePath("a/../b")
			So(err, ShouldErrLike, `".."`)
		})

		Convey("rejects NUL bytes", func() {
			_, err := normalizePath("a\x00b")
			So(err, ShouldErrLike, "NUL")
		})
	})
}

func TestCheckHeader(t *testing.T) {
	t.Parallel()

	Convey("CheckHeader", t, func() {
		Convey("a well-formed file passes", func() {
			h := &Header{Path: "a/b.txt", Type: EntryType{Kind: KindFile}, Mode: 0644, Size: 10}
			So(CheckHeader(h, nil), ShouldBeNil)
		})

		Convey("a directory must end in / only when the caller asks for it, but size must be 0", func() {
			h := &Header{Path: "a/b", Type: EntryType{Kind: KindDirectory}, Mode: 0755, Size: 5}
			So(CheckHeader(h, nil), ShouldErrLike, "size must be 0")
		})

		Convey("a file path ending in / is invalid", func() {
			h := &Header{Path: "a/b/", Type: EntryType{Kind: KindFile}, Mode: 0644}
			So(CheckHeader(h, nil), ShouldErrLike, `path ends in "/"`)
		})

		Convey("symlink requires a link target", func() {
			h := &Header{Path: "link", Type: EntryType{Kind: KindSymlink}}
			So(CheckHeader(h, nil), ShouldErrLike, "empty link target")
		})

		Convey("file must not carry a link target", func() {
			h := &Header{Path: "f", Type: EntryType{Kind: KindFile}, Link: "x"}
			So(CheckHeader(h, nil), ShouldErrLike, "non-empty link target")
		})

		Convey("hardlink target absolute or with .. is rejected", func() {
			h := &Header{Path: "f", Type: EntryType{Kind: KindHardlink}, Link: "/etc/passwd"}
			So(CheckHeader(h, nil), ShouldErrLike, "absolute")

			h2 := &Header{Path: "f", Type: EntryType{Kind: KindHardlink}, Link: "../x"}
			So(CheckHeader(h2, nil), ShouldErrLike, `".."`)
		})

		Convey("hardlink target must be a known plain file", func() {
			known := knownpath.New()
			h := &Header{Path: "b", Type: EntryType{Kind: KindHardlink}, Link: "a"}
			err := CheckHeader(h, known)
			So(err, ShouldErrLike, "unknown file")
			var target *HardlinkUnknownTargetError
			So(errors.As(err, &target), ShouldBeTrue)

			known.Put("a", knownpath.Entry{Kind: knownpath.File, Size: 3})
			h2 := &Header{Path: "b", Type: EntryType{Kind: KindHardlink}, Link: "a"}
			So(CheckHeader(h2, known), ShouldBeNil)
		})

		Convey("a symlink target may contain .. as long as it doesn't escape the root", func() {
			h := &Header{Path: "a/link", Type: EntryType{Kind: KindSymlink}, Link: "../b"}
			So(CheckHeader(h, nil), ShouldBeNil)

			h2 := &Header{Path: "link", Type: EntryType{Kind: KindSymlink}, Link: "../../etc/passwd"}
			So(CheckHeader(h2, nil), ShouldErrLike, "escapes the root")
		})

		Convey("16-bit mode ceiling", func() {
			h := &Header{Path: "a", Type: EntryType{Kind: KindFile}, Mode: 1 << 17}
			So(CheckHeader(h, nil), ShouldErrLike, "does not fit in 16 bits")
		})
	})
}

func TestEntryType(t *testing.T) {
	t.Parallel()

	Convey("typeFromFlag/flag round trip for known types", t, func() {
		for flag, kind := range map[byte]Kind{
			'0': KindFile, '1': KindHardlink, '2': KindSymlink,
			'3': KindChardev, '4': KindBlockdev, '5': KindDirectory, '6': KindFifo,
		} {
			et := typeFromFlag(flag)
			So(et.Kind, ShouldEqual, kind)
			So(et.flag(), ShouldEqual, flag)
		}
	})

	Convey("unrecognized typeflag becomes KindOther", t, func() {
		et := typeFromFlag('S')
		So(et.Kind, ShouldEqual, KindOther)
		So(et.Raw, ShouldEqual, byte('S'))
		So(et.String(), ShouldEqual, "other(S)")
	})

	Convey("Writable subset", t, func() {
		So(EntryType{Kind: KindFile}.Writable(), ShouldBeTrue)
		So(EntryType{Kind: KindHardlink}.Writable(), ShouldBeTrue)
		So(EntryType{Kind: KindSymlink}.Writable(), ShouldBeTrue)
		So(EntryType{Kind: KindDirectory}.Writable(), ShouldBeTrue)
		So(EntryType{Kind: KindFifo}.Writable(), ShouldBeFalse)
		So(EntryType{Kind: KindChardev}.Writable(), ShouldBeFalse)
		So(EntryType{Kind: KindBlockdev}.Writable(), ShouldBeFalse)
	})
}
