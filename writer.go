// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ustar

import (
	"io"
	"strconv"
	"strings"

	"github.com/riannucci/ustar/internal/pax"
	"github.com/riannucci/ustar/internal/tarblock"

	"github.com/luci/luci-go/common/errors"
)

// maxUstarField is the longest path/link this package will ever carry in a
// standard header's name/linkname field without resorting to a PAX 'x'
// header or (for name only) the ustar prefix split.
const maxUstarField = 100

// maxUstarPrefix is the longest prefix(345,155) field ustar allows.
const maxUstarPrefix = 155

// splitUstarName attempts the traditional ustar name+prefix split for a path
// longer than maxUstarField, for interop with legacy readers that don't
// understand PAX: split at the last '/' before offset maxUstarField,
// provided the total path is under 256 bytes and both halves fit their
// fields. Returns ok=false if no such split exists.
func splitUstarName(path string) (prefix, name string, ok bool) {
	if len(path) >= 256 {
		return "", "", false
	}
	limit := maxUstarField
	if limit > len(path) {
		limit = len(path)
	}
	idx := strings.LastIndexByte(path[:limit], '/')
	if idx <= 0 {
		return "", "", false
	}
	prefix, name = path[:idx], path[idx+1:]
	if len(name) == 0 || len(name) > maxUstarField || len(prefix) > maxUstarPrefix {
		return "", "", false
	}
	return prefix, name, true
}

// writeEntry writes one logical entry — its header block(s) and, for a
// plain file, its data — to w. data may be nil for types that carry none.
func writeEntry(w io.Writer, h *Header, data io.Reader) error {
	records := pax.Records{}

	name, prefix := h.Path, ""
	if len(name) > maxUstarField {
		if p, n, ok := splitUstarName(name); ok {
			prefix, name = p, n
		} else {
			records[pax.KeyPath] = name
			name, prefix = "", ""
		}
	}

	link := h.Link
	if len(link) > maxUstarField {
		records[pax.KeyLinkpath] = link
		link = ""
	}

	// 8^12 and up: the standard size field switches to the binary form, so
	// the exact size also travels as a PAX record.
	if h.Size >= 1<<36 {
		records[pax.KeySize] = strconv.FormatInt(h.Size, 10)
	}

	if len(records) > 0 {
		if err := writePaxHeader(w, records); err != nil {
			return err
		}
	}

	fields := tarblock.Fields{
		Name:     name,
		Prefix:   prefix,
		Mode:     h.Mode,
		Size:     h.Size,
		Typeflag: h.Type.flag(),
		Linkname: link,
	}
	block, err := tarblock.Encode(fields)
	if err != nil {
		return errors.Annotate(err).Reason("encoding header for %(path)q").D("path", h.Path).Err()
	}
	if err := tarblock.WriteBlock(w, block); err != nil {
		return err
	}

	if data == nil {
		return nil
	}
	return writePadded(w, data, h.Size)
}

// writePaxHeader writes records as a PAX local ('x') extended header.
func writePaxHeader(w io.Writer, records pax.Records) error {
	body := pax.Marshal(records)
	fields := tarblock.Fields{
		Name:     "pax_header",
		Mode:     0644,
		Size:     int64(len(body)),
		Typeflag: 'x',
	}
	block, err := tarblock.Encode(fields)
	if err != nil {
		return errors.Annotate(err).Reason("encoding pax header").Err()
	}
	if err := tarblock.WriteBlock(w, block); err != nil {
		return err
	}
	return writePadded(w, strings.NewReader(string(body)), int64(len(body)))
}

// writePadded copies exactly size bytes from r to w, then the zero-pad
// bringing the total up to a multiple of tarblock.Size.
func writePadded(w io.Writer, r io.Reader, size int64) error {
	n, err := io.CopyN(w, r, size)
	if err != nil && err != io.EOF {
		return err
	}
	if n != size {
		return errors.Reason("wrote %(got)d bytes, want %(want)d").D("got", n).D("want", size).Err()
	}
	pad := tarblock.RoundUp(size) - size
	if pad == 0 {
		return nil
	}
	_, err = io.CopyN(w, zeroReader{}, pad)
	return err
}

// writeTrailer writes the two all-zero blocks that terminate a tar stream.
func writeTrailer(w io.Writer) error {
	var b tarblock.Block
	if err := tarblock.WriteBlock(w, &b); err != nil {
		return err
	}
	return tarblock.WriteBlock(w, &b)
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}
