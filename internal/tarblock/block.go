// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package tarblock

import (
	"io"

	"github.com/luci/luci-go/common/errors"
)

// Size is the fixed length, in bytes, of a single tar header block and of
// the data padding unit.
const Size = 512

// field offsets, per POSIX 1003.1-2001 ustar.
const (
	offName     = 0
	lenName     = 100
	offMode     = 100
	lenMode     = 8
	offUID      = 108
	lenUID      = 8
	offGID      = 116
	lenGID      = 8
	offSize     = 124
	lenSize     = 12
	offMtime    = 136
	lenMtime    = 12
	offChksum   = 148
	lenChksum   = 8
	offTypeflag = 156
	lenTypeflag = 1
	offLinkname = 157
	lenLinkname = 100
	offMagic    = 257
	lenMagic    = 6
	offVersion  = 263
	lenVersion  = 2
	offUname    = 265
	lenUname    = 32
	offGname    = 297
	lenGname    = 32
	offDevmajor = 329
	lenDevmajor = 8
	offDevminor = 337
	lenDevminor = 8
	offPrefix   = 345
	lenPrefix   = 155
)

// Magic and Version are the values this package writes for every standard
// header block it emits. Fields.CheckMagic also accepts the GNU
// trailing-space variant on read.
const (
	Magic       = "ustar\x00"
	MagicGNU    = "ustar "
	Version     = "00"
	VersionGNU  = " \x00"
)

// Block is one raw 512-byte tar block, as read from or about to be written
// to the archive.
type Block [Size]byte

// Fields is the decoded field-table view of a single standard header block.
// It is deliberately a flat struct of strings/ints rather than Block itself
// so that the PAX/GNU assembler and the reader can overlay extended
// attributes onto it before it becomes a logical Header.
type Fields struct {
	Name     string
	Mode     int64
	UID      int64
	GID      int64
	Size     int64
	Mtime    int64
	Typeflag byte
	Linkname string
	Magic    string
	Version  string
	Uname    string
	Gname    string
	Devmajor int64
	Devminor int64
	Prefix   string
}

func field(b *Block, off, length int) []byte { return b[off : off+length] }

// IsZero reports whether b is the all-zero block that terminates an archive.
func (b *Block) IsZero() bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

// CheckMagic validates the magic/version pair the way a ustar reader must:
// GNU tar writes a trailing-space magic and a two-byte version that is not
// always "00", so version is accepted as long as it consists only of '0',
// space, and NUL bytes.
func (f Fields) CheckMagic() error {
	switch f.Magic {
	case Magic, MagicGNU:
	default:
		return errors.Reason("bad ustar magic %(magic)q").D("magic", f.Magic).Err()
	}
	for _, c := range f.Version {
		if c != '0' && c != ' ' && c != 0 {
			return errors.Reason("bad ustar version %(version)q").D("version", f.Version).Err()
		}
	}
	return nil
}

// Decode parses a raw block into Fields, verifying its checksum first.
func Decode(b *Block) (Fields, error) {
	if err := VerifyChecksum(b); err != nil {
		return Fields{}, err
	}

	var f Fields
	var err error
	f.Name = cString(field(b, offName, lenName))
	if f.Mode, err = ReadOctal(field(b, offMode, lenMode)); err != nil {
		return Fields{}, errors.Annotate(err).Reason("mode").Err()
	}
	if f.UID, err = ReadOctal(field(b, offUID, lenUID)); err != nil {
		return Fields{}, errors.Annotate(err).Reason("uid").Err()
	}
	if f.GID, err = ReadOctal(field(b, offGID, lenGID)); err != nil {
		return Fields{}, errors.Annotate(err).Reason("gid").Err()
	}
	if f.Size, err = ReadSize(field(b, offSize, lenSize)); err != nil {
		return Fields{}, errors.Annotate(err).Reason("size").Err()
	}
	if f.Mtime, err = ReadOctal(field(b, offMtime, lenMtime)); err != nil {
		return Fields{}, errors.Annotate(err).Reason("mtime").Err()
	}
	f.Typeflag = b[offTypeflag]
	f.Linkname = cString(field(b, offLinkname, lenLinkname))
	f.Magic = string(field(b, offMagic, lenMagic))
	f.Version = string(field(b, offVersion, lenVersion))
	f.Uname = cString(field(b, offUname, lenUname))
	f.Gname = cString(field(b, offGname, lenGname))
	if f.Devmajor, err = readOctalOrZero(field(b, offDevmajor, lenDevmajor)); err != nil {
		return Fields{}, errors.Annotate(err).Reason("devmajor").Err()
	}
	if f.Devminor, err = readOctalOrZero(field(b, offDevminor, lenDevminor)); err != nil {
		return Fields{}, errors.Annotate(err).Reason("devminor").Err()
	}
	f.Prefix = cString(field(b, offPrefix, lenPrefix))

	if err := f.CheckMagic(); err != nil {
		return Fields{}, err
	}
	return f, nil
}

// readOctalOrZero tolerates an all-NUL devmajor/devminor field, which many
// writers leave blank for non-device entries.
func readOctalOrZero(b []byte) (int64, error) {
	allZero := true
	for _, c := range b {
		if c != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return 0, nil
	}
	return ReadOctal(b)
}

// Encode renders Fields into a fresh, checksummed Block. Name/Linkname/Size
// are expected to already have been range-checked and, if necessary, routed
// through PAX extensions by the caller; Encode itself does not fall back to
// PAX.
func Encode(f Fields) (*Block, error) {
	b := &Block{}

	if err := writeCString(field(b, offName, lenName), f.Name); err != nil {
		return nil, errors.Annotate(err).Reason("name").Err()
	}
	if err := WriteOctal(field(b, offMode, lenMode), f.Mode); err != nil {
		return nil, errors.Annotate(err).Reason("mode").Err()
	}
	if err := WriteOctal(field(b, offUID, lenUID), f.UID); err != nil {
		return nil, errors.Annotate(err).Reason("uid").Err()
	}
	if err := WriteOctal(field(b, offGID, lenGID), f.GID); err != nil {
		return nil, errors.Annotate(err).Reason("gid").Err()
	}
	if err := WriteSize(field(b, offSize, lenSize), f.Size); err != nil {
		return nil, errors.Annotate(err).Reason("size").Err()
	}
	if err := WriteOctal(field(b, offMtime, lenMtime), f.Mtime); err != nil {
		return nil, errors.Annotate(err).Reason("mtime").Err()
	}
	b[offTypeflag] = f.Typeflag
	if err := writeCString(field(b, offLinkname, lenLinkname), f.Linkname); err != nil {
		return nil, errors.Annotate(err).Reason("linkname").Err()
	}
	copy(field(b, offMagic, lenMagic), Magic)
	copy(field(b, offVersion, lenVersion), Version)
	if err := writeCString(field(b, offUname, lenUname), f.Uname); err != nil {
		return nil, errors.Annotate(err).Reason("uname").Err()
	}
	if err := writeCString(field(b, offGname, lenGname), f.Gname); err != nil {
		return nil, errors.Annotate(err).Reason("gname").Err()
	}
	if err := WriteOctal(field(b, offDevmajor, lenDevmajor), f.Devmajor); err != nil {
		return nil, errors.Annotate(err).Reason("devmajor").Err()
	}
	if err := WriteOctal(field(b, offDevminor, lenDevminor), f.Devminor); err != nil {
		return nil, errors.Annotate(err).Reason("devminor").Err()
	}
	if err := writeCString(field(b, offPrefix, lenPrefix), f.Prefix); err != nil {
		return nil, errors.Annotate(err).Reason("prefix").Err()
	}

	WriteChecksum(b)
	return b, nil
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

func writeCString(dst []byte, s string) error {
	if len(s) > len(dst) {
		return errors.Reason("value %(value)q exceeds field width %(width)d").
			D("value", s).D("width", len(dst)).Err()
	}
	copy(dst, s)
	return nil
}

// ReadBlock reads exactly one 512-byte block from r.
func ReadBlock(r io.Reader) (*Block, error) {
	b := &Block{}
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return nil, err
	}
	return b, nil
}

// WriteBlock writes b to w.
func WriteBlock(w io.Writer, b *Block) error {
	_, err := w.Write(b[:])
	return err
}

// RoundUp rounds size up to the next multiple of Size, as every entry's data
// region is padded.
func RoundUp(size int64) int64 {
	rem := size % Size
	if rem == 0 {
		return size
	}
	return size + (Size - rem)
}
