// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package pax

import (
	"testing"

	. "github.com/luci/luci-go/common/testing/assertions"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRecords(t *testing.T) {
	t.Parallel()

	Convey("Marshal/Parse round trip", t, func() {
		Convey("short record", func() {
			data := Marshal(Records{"path": "hello.txt"})
			So(string(data), ShouldEqual, "18 path=hello.txt\n")

			got := Records{}
			So(Parse(data, got), ShouldBeNil)
			So(got, ShouldResemble, Records{"path": "hello.txt"})
		})

		Convey("length digit-count crosses a power of ten", func() {
			// One byte longer pushes the fixed point from a 2-digit to a
			// 3-digit length prefix, skipping the value 100 entirely.
			data90 := Marshal(Records{"path": string(make([]byte, 90))})
			So(len(data90), ShouldEqual, 99)

			data91 := Marshal(Records{"path": string(make([]byte, 91))})
			So(len(data91), ShouldEqual, 101)
		})

		Convey("multiple keys in lexicographic order", func() {
			data := Marshal(Records{"size": "12345678901234", "linkpath": "a", "path": "b"})
			So(string(data), ShouldEqual, "14 linkpath=a\n9 path=b\n23 size=12345678901234\n")
			got := Records{}
			So(Parse(data, got), ShouldBeNil)
			So(got, ShouldResemble, Records{
				"size":     "12345678901234",
				"linkpath": "a",
				"path":     "b",
			})
		})
	})

	Convey("Parse error cases", t, func() {
		Convey("missing separator", func() {
			So(Parse([]byte("nope"), Records{}), ShouldErrLike, "length/key separator")
		})

		Convey("bad length", func() {
			So(Parse([]byte("x path=y\n"), Records{}), ShouldErrLike, "invalid length")
		})

		Convey("length exceeds buffer", func() {
			So(Parse([]byte("50 path=y\n"), Records{}), ShouldErrLike, "exceeds remaining data")
		})

		Convey("missing '='", func() {
			So(Parse([]byte("8 nokey\n"), Records{}), ShouldErrLike, "missing '='")
		})
	})
}

func TestGNULong(t *testing.T) {
	t.Parallel()

	Convey("ParseGNULong strips NUL padding", t, func() {
		So(ParseGNULong([]byte("some/long/path\x00\x00\x00")), ShouldEqual, "some/long/path")
	})

	Convey("IsExtension", t, func() {
		So(IsExtension('x'), ShouldBeTrue)
		So(IsExtension('g'), ShouldBeTrue)
		So(IsExtension(TypeGNULongName), ShouldBeTrue)
		So(IsExtension(TypeGNULongLink), ShouldBeTrue)
		So(IsExtension('0'), ShouldBeFalse)
	})
}
