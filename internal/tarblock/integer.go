// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package tarblock

import (
	"fmt"
	"math"

	"github.com/luci/luci-go/common/errors"
)

// binarySizeThreshold is the smallest size that must be written using the
// GNU base-256 binary form: 8^12, one more than the largest value twelve
// octal digits (the size field's full width, with no terminator) can hold.
const binarySizeThreshold = 1 << 36 // 8^12 == 2^36

func isOctalDigit(c byte) bool { return c >= '0' && c <= '7' }

// ReadOctal parses an ASCII-octal numeric field: optional leading spaces,
// octal digits, terminated by a NUL or space. Anything else in the leading
// position is malformed.
func ReadOctal(b []byte) (int64, error) {
	i := 0
	for i < len(b) && b[i] == ' ' {
		i++
	}
	start := i
	var v int64
	for i < len(b) {
		c := b[i]
		if c == 0 || c == ' ' {
			break
		}
		if !isOctalDigit(c) {
			return 0, errors.Reason("non-octal byte %(byte)#x at offset %(off)d").
				D("byte", c).D("off", i).Err()
		}
		next := v*8 + int64(c-'0')
		if next < v {
			return 0, errors.New("octal field overflow")
		}
		v = next
		i++
	}
	if i == start {
		return 0, nil
	}
	return v, nil
}

// ReadSize parses the size field, which additionally supports the GNU
// base-256 binary form when the high bit of the first byte is set.
func ReadSize(b []byte) (int64, error) {
	if len(b) == 0 {
		return 0, errors.New("empty size field")
	}
	if b[0]&0x80 != 0 {
		return readBinary(b)
	}
	return ReadOctal(b)
}

// readBinary decodes the GNU base-256 binary integer form: the high bit of
// the first byte is the format flag; the remaining 95 bits (7 from the first
// byte, 8 each from the rest) are a big-endian unsigned magnitude.
func readBinary(b []byte) (int64, error) {
	if b[0]&0x7f != 0 {
		return 0, errors.New("binary size field overflows int64")
	}
	var acc uint64
	for _, c := range b[1:] {
		if acc > (math.MaxUint64 >> 8) {
			return 0, errors.New("binary size field overflows int64")
		}
		acc = acc<<8 | uint64(c)
	}
	if acc > math.MaxInt64 {
		return 0, errors.New("binary size field overflows int64")
	}
	return int64(acc), nil
}

// WriteOctal renders val as zero-padded octal digits filling all but the
// last byte of dst, NUL-terminated.
func WriteOctal(dst []byte, val int64) error {
	if val < 0 {
		return errors.Reason("negative value %(val)d for octal field").D("val", val).Err()
	}
	s := fmt.Sprintf("%0*o", len(dst)-1, val)
	if len(s) > len(dst)-1 {
		return errors.Reason("value %(val)d does not fit in %(width)d octal digits").
			D("val", val).D("width", len(dst)-1).Err()
	}
	copy(dst, s)
	dst[len(dst)-1] = 0
	return nil
}

// WriteSize writes val into a size field, switching to the GNU base-256
// binary form once val no longer fits the octal encoding.
func WriteSize(dst []byte, val int64) error {
	if val >= binarySizeThreshold {
		return writeBinary(dst, val)
	}
	if val >= int64(1)<<(3*uint(len(dst)-1)) {
		// Too many digits to leave room for a terminator: fill the whole
		// field with octal digits, which ReadOctal reads to the field's end.
		s := fmt.Sprintf("%0*o", len(dst), val)
		if len(s) > len(dst) {
			return errors.Reason("value %(val)d does not fit in %(width)d octal digits").
				D("val", val).D("width", len(dst)).Err()
		}
		copy(dst, s)
		return nil
	}
	return WriteOctal(dst, val)
}

func writeBinary(dst []byte, val int64) error {
	if val < 0 {
		return errors.Reason("negative size %(val)d").D("val", val).Err()
	}
	for i := len(dst) - 1; i >= 1; i-- {
		dst[i] = byte(val & 0xff)
		val >>= 8
	}
	if val != 0 {
		return errors.New("value too large for binary size field")
	}
	dst[0] = 0x80
	return nil
}
