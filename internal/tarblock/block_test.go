// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package tarblock

import (
	"testing"

	. "github.com/luci/luci-go/common/testing/assertions"
	. "github.com/smartystreets/goconvey/convey"
)

func TestBlockRoundTrip(t *testing.T) {
	t.Parallel()

	Convey("Encode/Decode", t, func() {
		Convey("simple file", func() {
			f := Fields{
				Name:     "hello.txt",
				Mode:     0644,
				Size:     12,
				Typeflag: '0',
			}
			b, err := Encode(f)
			So(err, ShouldBeNil)
			So(VerifyChecksum(b), ShouldBeNil)

			got, err := Decode(b)
			So(err, ShouldBeNil)
			So(got.Name, ShouldEqual, "hello.txt")
			So(got.Mode, ShouldEqual, int64(0644))
			So(got.Size, ShouldEqual, int64(12))
			So(got.Typeflag, ShouldEqual, byte('0'))
			So(got.Magic, ShouldEqual, Magic)
			So(got.Version, ShouldEqual, Version)
		})

		Convey("large binary size", func() {
			f := Fields{Name: "big", Size: binarySizeThreshold + 1234, Typeflag: '0'}
			b, err := Encode(f)
			So(err, ShouldBeNil)
			So(b[offSize]&0x80, ShouldNotEqual, 0)

			got, err := Decode(b)
			So(err, ShouldBeNil)
			So(got.Size, ShouldEqual, binarySizeThreshold+1234)
		})

		Convey("name too long", func() {
			_, err := Encode(Fields{Name: string(make([]byte, 200)), Typeflag: '0'})
			So(err, ShouldErrLike, "exceeds field width")
		})

		Convey("IsZero", func() {
			var b Block
			So(b.IsZero(), ShouldBeTrue)
			b[0] = 1
			So(b.IsZero(), ShouldBeFalse)
		})
	})

	Convey("CheckMagic", t, func() {
		Convey("GNU trailing space form", func() {
			f := Fields{Magic: MagicGNU, Version: VersionGNU}
			So(f.CheckMagic(), ShouldBeNil)
		})

		Convey("bad magic", func() {
			f := Fields{Magic: "PK\x03\x04\x00\x00"}
			So(f.CheckMagic(), ShouldErrLike, "bad ustar magic")
		})
	})

	Convey("RoundUp", t, func() {
		So(RoundUp(0), ShouldEqual, 0)
		So(RoundUp(1), ShouldEqual, Size)
		So(RoundUp(Size), ShouldEqual, Size)
		So(RoundUp(Size+1), ShouldEqual, 2*Size)
	})
}
