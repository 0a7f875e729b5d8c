// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package skeleton

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"

	"github.com/luci/luci-go/common/errors"
	"github.com/luci/luci-go/common/iotools"
)

// Magic is the fixed prefix of a skeleton sidecar stream: the ASCII string
// "%!skeleton:" followed by four fixed bytes, per spec.
var Magic = append([]byte("%!skeleton:"), 0x83, 0xE6, 0xA8, 0xFE)

// Recorder writes a skeleton sidecar as entries are observed.
type Recorder struct {
	w          *iotools.CountingWriter
	wroteMagic bool
}

// NewRecorder wraps w. The magic prefix is written lazily, on the first
// Record call, so an extraction that records nothing produces an empty
// sidecar rather than a bare magic with no entries.
func NewRecorder(w io.Writer) *Recorder {
	return &Recorder{w: &iotools.CountingWriter{Writer: w}}
}

// BytesWritten returns the total number of bytes written to the sidecar so
// far, magic prefix included.
func (r *Recorder) BytesWritten() int64 {
	return r.w.Count
}

// Record appends one (path, raw header bytes) entry to the sidecar. raw is
// the verbatim wire bytes of every header block contributing to path's
// entry (PAX/GNU extension blocks, if any, followed by the standard
// header), excluding the entry's data region.
func (r *Recorder) Record(path string, raw []byte) error {
	if !r.wroteMagic {
		if _, err := r.w.Write(Magic); err != nil {
			return err
		}
		r.wroteMagic = true
	}

	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(path)))
	if _, err := r.w.Write(lenBuf[:n]); err != nil {
		return err
	}
	if _, err := io.WriteString(r.w, path); err != nil {
		return err
	}

	n = binary.PutUvarint(lenBuf[:], uint64(len(raw)))
	if _, err := r.w.Write(lenBuf[:n]); err != nil {
		return err
	}
	_, err := r.w.Write(raw)
	return err
}

// Replayer looks up a previously recorded entry's raw header bytes by path.
type Replayer struct {
	entries map[string][]byte
}

// NewReplayer reads a complete skeleton sidecar from r.
func NewReplayer(r io.Reader) (*Replayer, error) {
	br := bufio.NewReader(r)

	magic := make([]byte, len(Magic))
	n, err := io.ReadFull(br, magic)
	if err == io.EOF && n == 0 {
		// an empty sidecar (nothing was ever recorded) replays as empty.
		return &Replayer{entries: map[string][]byte{}}, nil
	}
	if err != nil {
		return nil, errors.Annotate(err).Reason("reading skeleton magic").Err()
	}
	if !bytes.Equal(magic, Magic) {
		return nil, errors.New("not a skeleton sidecar: bad magic")
	}

	rp := &Replayer{entries: map[string][]byte{}}
	for {
		pathLen, err := binary.ReadUvarint(br)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Annotate(err).Reason("reading skeleton path length").Err()
		}
		pathBuf := make([]byte, pathLen)
		if _, err := io.ReadFull(br, pathBuf); err != nil {
			return nil, errors.Annotate(err).Reason("reading skeleton path").Err()
		}

		rawLen, err := binary.ReadUvarint(br)
		if err != nil {
			return nil, errors.Annotate(err).Reason("reading skeleton raw length").Err()
		}
		raw := make([]byte, rawLen)
		if _, err := io.ReadFull(br, raw); err != nil {
			return nil, errors.Annotate(err).Reason("reading skeleton raw bytes").Err()
		}

		rp.entries[string(pathBuf)] = raw
	}
	return rp, nil
}

// Lookup returns the raw header bytes recorded for path, if any.
func (rp *Replayer) Lookup(path string) ([]byte, bool) {
	raw, ok := rp.entries[path]
	return raw, ok
}
