// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ustar

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/riannucci/ustar/internal/tarblock"

	. "github.com/smartystreets/goconvey/convey"
)

func TestListBasic(t *testing.T) {
	t.Parallel()

	Convey("List returns headers in stream order", t, func() {
		var buf bytes.Buffer
		So(writeEntry(&buf, &Header{Path: "a.txt", Type: EntryType{Kind: KindFile}, Mode: 0644, Size: 1}, bytes.NewReader([]byte("a"))), ShouldBeNil)
		So(writeEntry(&buf, &Header{Path: "b.txt", Type: EntryType{Kind: KindFile}, Mode: 0644, Size: 1}, bytes.NewReader([]byte("b"))), ShouldBeNil)
		So(writeTrailer(&buf), ShouldBeNil)

		headers, err := List(bytes.NewReader(buf.Bytes()))
		So(err, ShouldBeNil)
		So(len(headers), ShouldEqual, 2)
		So(headers[0].Path, ShouldEqual, "a.txt")
		So(headers[1].Path, ShouldEqual, "b.txt")
	})
}

func TestListCallbackReadsBody(t *testing.T) {
	t.Parallel()

	Convey("a well-behaved callback consumes exactly the data+pad region", t, func() {
		var buf bytes.Buffer
		content := []byte("hello\n")
		So(writeEntry(&buf, &Header{Path: "a.txt", Type: EntryType{Kind: KindFile}, Mode: 0644, Size: int64(len(content))}, bytes.NewReader(content)), ShouldBeNil)
		So(writeTrailer(&buf), ShouldBeNil)

		var seen []byte
		_, err := List(bytes.NewReader(buf.Bytes()), WithListCallback(func(h *Header, raw *tarblock.Block, body io.Reader) error {
			b, err := io.ReadAll(body)
			seen = b
			return err
		}))
		So(err, ShouldBeNil)
		So(string(seen[:len(content)]), ShouldEqual, "hello\n")
	})

	Convey("a callback that partially reads the body violates the protocol", t, func() {
		var buf bytes.Buffer
		content := []byte("hello\n")
		So(writeEntry(&buf, &Header{Path: "a.txt", Type: EntryType{Kind: KindFile}, Mode: 0644, Size: int64(len(content))}, bytes.NewReader(content)), ShouldBeNil)
		So(writeTrailer(&buf), ShouldBeNil)

		_, err := List(bytes.NewReader(buf.Bytes()), WithListCallback(func(h *Header, raw *tarblock.Block, body io.Reader) error {
			one := make([]byte, 1)
			_, err := body.Read(one)
			return err
		}))
		So(err, ShouldNotBeNil)
		_, ok := err.(*CallbackProtocolError)
		So(ok, ShouldBeTrue)
	})
}

func TestListRawSeesExtensionHeaders(t *testing.T) {
	t.Parallel()

	Convey("raw mode delivers PAX extension blocks uncoalesced", t, func() {
		var buf bytes.Buffer
		// a single path component with no '/' has no valid ustar
		// name+prefix split, so the writer must fall back to PAX.
		longPath := strings.Repeat("a", 150) + ".txt"
		So(writeEntry(&buf, &Header{Path: longPath, Type: EntryType{Kind: KindFile}, Mode: 0644, Size: 0}, bytes.NewReader(nil)), ShouldBeNil)
		So(writeTrailer(&buf), ShouldBeNil)

		var sawExtension bool
		_, err := List(bytes.NewReader(buf.Bytes()), WithRaw(true), WithListCallback(func(h *Header, raw *tarblock.Block, body io.Reader) error {
			if h == nil {
				sawExtension = true
			}
			return nil
		}))
		So(err, ShouldBeNil)
		So(sawExtension, ShouldBeTrue)
	})
}
