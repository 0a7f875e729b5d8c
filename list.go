// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ustar

import (
	"io"

	"github.com/riannucci/ustar/internal/tarblock"

	"github.com/luci/luci-go/common/errors"
)

// EntryCallback is invoked once per listed entry. raw is the verbatim
// 512-byte standard header block that produced h (with WithRaw(true), the
// block itself, extension blocks included). body gives the callback direct access to the
// entry's data region plus its zero-pad: the callback must read exactly
// round_up_512(h.Size) bytes from it (or none at all, to let List skip the
// region itself) before returning, or List reports a CallbackProtocolError.
type EntryCallback func(h *Header, raw *tarblock.Block, body io.Reader) error

type listOptionData struct {
	raw      bool
	strict   bool
	callback EntryCallback
}

// ListOption configures List.
type ListOption func(*listOptionData)

// WithRaw causes List to surface every header block on its own: each PAX or
// GNU extension block is delivered to the callback with a nil Header, and
// PAX records are not applied to the entry that follows them. GNU 'L'/'K'
// long name/link data is still applied to the following entry's Path/Link.
func WithRaw(val bool) ListOption {
	return func(o *listOptionData) { o.raw = val }
}

// WithStrict controls whether an entry of an unsupported type (chardev,
// blockdev, fifo, or an unrecognized typeflag) aborts listing (true, the
// default) or is merely included in the result (false).
func WithStrict(val bool) ListOption {
	return func(o *listOptionData) { o.strict = val }
}

// WithListCallback registers a per-entry callback. See EntryCallback for the
// stream-advancement contract it must honor.
func WithListCallback(cb EntryCallback) ListOption {
	return func(o *listOptionData) { o.callback = cb }
}

// List decodes every entry in r and returns their Headers in stream order.
// It never touches a filesystem.
func List(r io.Reader, opts ...ListOption) ([]*Header, error) {
	o := listOptionData{strict: true}
	for _, opt := range opts {
		opt(&o)
	}

	if o.raw {
		return listRaw(r, o)
	}
	return listFolded(r, o)
}

// listFolded is the common case: extension headers are coalesced into the
// logical Header of the entry they describe.
func listFolded(r io.Reader, o listOptionData) ([]*Header, error) {
	rd := newReader(r, o.strict)

	var out []*Header
	for {
		ent, err := rd.next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, &ent.Header)

		if o.callback == nil {
			continue
		}
		if err := runCallback(o.callback, &ent.Header, ent.Raw, rd); err != nil {
			return nil, err
		}
	}
}

// listRaw surfaces every wire-level block: extension blocks are delivered
// with a nil Header so tooling can introspect them directly. PAX records are
// not folded; GNU long name/link data replaces the next header's name/link.
func listRaw(r io.Reader, o listOptionData) ([]*Header, error) {
	rd := newReader(r, o.strict)

	var out []*Header
	var longName, longLink string
	for {
		block, err := tarblock.ReadBlock(rd.src)
		if err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return out, nil
			}
			return nil, err
		}
		if block.IsZero() {
			return out, nil
		}

		fields, err := tarblock.Decode(block)
		if err != nil {
			return nil, &NotATarballError{Err: err}
		}

		dataSize := fields.Size
		rd.entryEnd = rd.offset() + tarblock.RoundUp(dataSize)

		var h *Header
		if fields.Typeflag == 0 || fields.Typeflag == '0' || fields.Typeflag == '7' ||
			fields.Typeflag == '1' || fields.Typeflag == '2' || fields.Typeflag == '3' ||
			fields.Typeflag == '4' || fields.Typeflag == '5' || fields.Typeflag == '6' {
			name := fields.Name
			if fields.Prefix != "" {
				name = fields.Prefix + "/" + name
			}
			if longName != "" {
				name = longName
				longName = ""
			}
			link := fields.Linkname
			if longLink != "" {
				link = longLink
				longLink = ""
			}
			normName, err := normalizePath(name)
			if err != nil {
				return nil, &InvalidHeaderError{Path: name, Errs: errors.MultiError{err}}
			}
			h = &Header{Path: normName, Type: typeFromFlag(fields.Typeflag), Mode: fields.Mode, Size: dataSize, Link: link}
			out = append(out, h)
		} else if fields.Typeflag == 'L' {
			data, err := rd.readExtensionData(dataSize)
			if err != nil {
				return nil, err
			}
			longName = stripPaxNul(data)
		} else if fields.Typeflag == 'K' {
			data, err := rd.readExtensionData(dataSize)
			if err != nil {
				return nil, err
			}
			longLink = stripPaxNul(data)
		}

		if o.callback != nil {
			if err := runCallback(o.callback, h, block, rd); err != nil {
				return nil, err
			}
		}
		if err := rd.skipPending(); err != nil {
			return nil, err
		}
	}
}

func stripPaxNul(data []byte) string {
	for i, c := range data {
		if c == 0 {
			return string(data[:i])
		}
	}
	return string(data)
}

// runCallback hands the caller a counting view of the entry's data+pad
// region and, on return, confirms it advanced the stream by exactly
// round_up_512(size) bytes — or by zero, in which case List performs the
// skip itself.
func runCallback(cb EntryCallback, h *Header, raw *tarblock.Block, rd *reader) error {
	start := rd.offset()
	want := rd.entryEnd - start

	cr := &countingReader{r: io.LimitReader(rd.src, want)}
	if err := cb(h, raw, cr); err != nil {
		return err
	}
	if cr.n != 0 && cr.n != want {
		path := ""
		if h != nil {
			path = h.Path
		}
		return &CallbackProtocolError{Path: path, Want: want, Got: cr.n}
	}
	return nil
}
