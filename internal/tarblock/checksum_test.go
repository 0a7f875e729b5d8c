// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package tarblock

import (
	stderrors "errors"
	"testing"

	. "github.com/luci/luci-go/common/testing/assertions"
	. "github.com/smartystreets/goconvey/convey"
)

func TestChecksum(t *testing.T) {
	t.Parallel()

	Convey("Checksum", t, func() {
		b, err := Encode(Fields{Name: "a", Mode: 0644, Typeflag: '0'})
		So(err, ShouldBeNil)
		So(VerifyChecksum(b), ShouldBeNil)

		Convey("tampering is caught", func() {
			b[0] = 'b'
			err := VerifyChecksum(b)
			So(err, ShouldNotBeNil)
			var mismatch *ChecksumMismatchError
			So(stderrors.As(err, &mismatch), ShouldBeTrue)
		})

		Convey("chksum field itself is treated as spaces while summing", func() {
			sum1 := computeChecksum(b)
			b[offChksum] = '9'
			sum2 := computeChecksum(b)
			So(sum1, ShouldEqual, sum2)
		})
	})
}
