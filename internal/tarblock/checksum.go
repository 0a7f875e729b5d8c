// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package tarblock

import "github.com/luci/luci-go/common/errors"

// ChecksumMismatchError is returned by VerifyChecksum when a block's stored
// checksum does not match its content.
type ChecksumMismatchError struct {
	Stored, Computed int64
}

func (e *ChecksumMismatchError) Error() string {
	return errors.Reason("chksum mismatch: stored %(stored)o computed %(computed)o").
		D("stored", e.Stored).D("computed", e.Computed).Err().Error()
}

// computeChecksum sums every byte of b as unsigned, with the chksum field
// itself treated as eight spaces, per POSIX ustar.
func computeChecksum(b *Block) int64 {
	var sum int64
	for i, c := range b {
		if i >= offChksum && i < offChksum+lenChksum {
			c = ' '
		}
		sum += int64(c)
	}
	return sum
}

// WriteChecksum computes and stores b's checksum in the standard "NNNNNN\x00 "
// form: six octal digits, a NUL, and a trailing space.
func WriteChecksum(b *Block) {
	sum := computeChecksum(b)
	dst := field(b, offChksum, lenChksum)
	// 6 octal digits + NUL + space, not the generic WriteOctal NUL-only form.
	for i := 5; i >= 0; i-- {
		dst[i] = byte('0' + sum%8)
		sum /= 8
	}
	dst[6] = 0
	dst[7] = ' '
}

// VerifyChecksum re-sums b and compares it against the stored chksum field.
// ReadOctal is used directly (rather than ReadSize) since chksum never uses
// the binary form.
func VerifyChecksum(b *Block) error {
	stored, err := ReadOctal(field(b, offChksum, lenChksum))
	if err != nil {
		return errors.Annotate(err).Reason("chksum").Err()
	}
	computed := computeChecksum(b)
	if stored != computed {
		return &ChecksumMismatchError{Stored: stored, Computed: computed}
	}
	return nil
}
