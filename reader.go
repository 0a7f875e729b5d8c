// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ustar

import (
	"bytes"
	"io"
	"strconv"

	"github.com/riannucci/ustar/internal/knownpath"
	"github.com/riannucci/ustar/internal/pax"
	"github.com/riannucci/ustar/internal/tarblock"

	"github.com/luci/luci-go/common/errors"
)

// entry is one decoded tar entry, as produced by the shared streaming
// reader: the normalized Header plus a reader limited to exactly its data
// region (Size bytes, unpadded).
type entry struct {
	Header    Header
	Raw       *tarblock.Block // the standard header block that carried Header, handed to List callbacks
	RawHeader []byte          // every header-section block verbatim (PAX/GNU + standard), set iff reader.captureRaw
	data      io.Reader       // exactly the on-wire data size (Header.Size, except for a hardlink, whose Header.Size is its target's)
	pad       int64           // trailing zero-pad bytes still owed after data
}

// countingReader reports how many bytes have been read through it, used to
// detect a List callback that failed to consume exactly round_up_512(size)
// bytes (CallbackProtocolError).
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// reader is the shared streaming ustar/PAX/GNU decoder underlying List,
// Extract, Rewrite, and TreeHash. It folds PAX 'x'/'g' headers and GNU
// long-name/long-link records onto the following standard header, exactly
// as spec.md §4.4 describes, and maintains a known-path map so hardlink and
// symlink-attack checks can be performed as entries stream by.
type reader struct {
	src        *countingReader
	known      *knownpath.Map
	global     pax.Records
	strict     bool
	captureRaw bool

	entryEnd int64 // stream offset at which the current entry's data+pad ends
}

// newReader wraps r for streaming decode. strict controls whether an
// UnsupportedEntry (chardev/blockdev/fifo/unrecognized typeflag) aborts the
// stream or is returned to the caller like any other entry.
func newReader(r io.Reader, strict bool) *reader {
	return &reader{
		src:    &countingReader{r: r},
		known:  knownpath.New(),
		global: pax.Records{},
		strict: strict,
	}
}

// offset returns the number of bytes consumed from the underlying stream so
// far.
func (rd *reader) offset() int64 { return rd.src.n }

// skipPending discards whatever the previous entry's caller failed to
// consume, so the reader is always block-aligned at the start of next.
func (rd *reader) skipPending() error {
	remaining := rd.entryEnd - rd.offset()
	if remaining <= 0 {
		return nil
	}
	_, err := io.CopyN(discard{}, rd.src, remaining)
	return err
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// next decodes and returns the following logical entry, folding any PAX/GNU
// extension headers onto it. It returns io.EOF at the first all-zero block
// (anything after it is left unread) or when the stream ends before a full
// block.
func (rd *reader) next() (*entry, error) {
	if err := rd.skipPending(); err != nil {
		return nil, err
	}

	local := pax.Records{}
	var longName, longLink string
	var rawBuf bytes.Buffer

	for {
		block, err := tarblock.ReadBlock(rd.src)
		if err != nil {
			if err == io.ErrUnexpectedEOF || err == io.EOF {
				return nil, io.EOF
			}
			return nil, err
		}
		if block.IsZero() {
			return nil, io.EOF
		}

		fields, err := tarblock.Decode(block)
		if err != nil {
			return nil, &NotATarballError{Err: err}
		}

		if rd.captureRaw {
			rawBuf.Write(block[:])
		}

		if !pax.IsExtension(fields.Typeflag) {
			h, dataSize, err := rd.buildHeader(fields, local, longName, longLink)
			if err != nil {
				return nil, err
			}
			pad := tarblock.RoundUp(dataSize) - dataSize
			rd.entryEnd = rd.offset() + tarblock.RoundUp(dataSize)
			ret := &entry{
				Header: *h,
				Raw:    block,
				data:   io.LimitReader(rd.src, dataSize),
				pad:    pad,
			}
			if rd.captureRaw {
				ret.RawHeader = append([]byte(nil), rawBuf.Bytes()...)
			}
			return ret, nil
		}

		data, padded, err := rd.readExtensionDataRaw(fields.Size)
		if err != nil {
			return nil, err
		}
		if rd.captureRaw {
			rawBuf.Write(padded)
		}

		switch fields.Typeflag {
		case 'x':
			if err := pax.Parse(data, local); err != nil {
				return nil, errors.Annotate(err).Reason("parsing PAX local header").Err()
			}
		case 'g':
			if err := pax.Parse(data, rd.global); err != nil {
				return nil, errors.Annotate(err).Reason("parsing PAX global header").Err()
			}
		case pax.TypeGNULongName:
			longName = pax.ParseGNULong(data)
		case pax.TypeGNULongLink:
			longLink = pax.ParseGNULong(data)
		}
	}
}

// readExtensionData reads and fully consumes a metadata-only header's data
// region (including its pad), since extension headers are never exposed to
// the caller and so have no reason to leave anything pending.
func (rd *reader) readExtensionData(size int64) ([]byte, error) {
	data, _, err := rd.readExtensionDataRaw(size)
	return data, err
}

// readExtensionDataRaw is readExtensionData plus the full padded buffer, so
// captureRaw mode can preserve the exact original pad bytes.
func (rd *reader) readExtensionDataRaw(size int64) (data, padded []byte, err error) {
	buf := make([]byte, tarblock.RoundUp(size))
	if _, err := io.ReadFull(rd.src, buf); err != nil {
		return nil, nil, err
	}
	return buf[:size], buf, nil
}

// buildHeader assembles the logical Header for a standard block, applying
// (in increasing precedence) the standard fields, any pending 'g' globals,
// GNU long name/link, and finally 'x' local PAX records, then validates and
// records it in the known-path map. It also returns the size of the data
// region on the wire, which for a hardlink differs from the returned
// Header.Size (that reports the target file's size).
func (rd *reader) buildHeader(f tarblock.Fields, local pax.Records, longName, longLink string) (*Header, int64, error) {
	name := f.Name
	if f.Prefix != "" {
		name = f.Prefix + "/" + name
	}
	link := f.Linkname

	if v, ok := rd.global[pax.KeyPath]; ok {
		name = v
	}
	if v, ok := rd.global[pax.KeyLinkpath]; ok {
		link = v
	}
	if longName != "" {
		name = longName
	}
	if longLink != "" {
		link = longLink
	}

	size := f.Size
	if v, ok := rd.global[pax.KeySize]; ok {
		if n, err := parsePaxSize(v); err == nil {
			size = n
		}
	}

	if v, ok := local[pax.KeyPath]; ok {
		name = v
	}
	if v, ok := local[pax.KeyLinkpath]; ok {
		link = v
	}
	if v, ok := local[pax.KeySize]; ok {
		n, err := parsePaxSize(v)
		if err != nil {
			return nil, 0, errors.Annotate(err).Reason("pax size record").Err()
		}
		size = n
	}

	typ := typeFromFlag(f.Typeflag)

	normName, err := normalizePath(name)
	if err != nil {
		return nil, 0, &InvalidHeaderError{Path: name, Errs: errors.MultiError{err}}
	}

	h := &Header{
		Path: normName,
		Type: typ,
		Mode: f.Mode,
		Size: size,
		Link: link,
	}

	if typ.Kind == KindHardlink {
		if e, ok := rd.known.Lookup(h.Link); ok && e.Kind == knownpath.File {
			h.Size = e.Size
		}
	}

	if !typ.Writable() {
		if rd.strict {
			return nil, 0, &UnsupportedEntryError{Path: h.Path, Type: typ}
		}
	}

	if prefix, ok := rd.known.SymlinkPrefix(h.Path); ok {
		return nil, 0, &SymlinkAttackError{Path: h.Path, Prefix: prefix}
	}

	if err := CheckHeader(h, rd.known); err != nil {
		return nil, 0, err
	}

	switch typ.Kind {
	case KindDirectory:
		rd.known.Put(normPathNoSlash(h.Path), knownpath.Entry{Kind: knownpath.Directory})
	case KindSymlink:
		rd.known.Put(h.Path, knownpath.Entry{Kind: knownpath.Symlink, Target: h.Link})
	case KindFile:
		rd.known.Put(h.Path, knownpath.Entry{Kind: knownpath.File, Size: h.Size})
	case KindHardlink:
		// a hardlink is content-equivalent to a file for later lookups
		rd.known.Put(h.Path, knownpath.Entry{Kind: knownpath.File, Size: h.Size})
	default:
		rd.known.Put(h.Path, knownpath.Entry{Kind: knownpath.Other})
	}

	return h, size, nil
}

func normPathNoSlash(p string) string {
	if len(p) > 0 && p[len(p)-1] == '/' {
		return p[:len(p)-1]
	}
	return p
}

func parsePaxSize(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
