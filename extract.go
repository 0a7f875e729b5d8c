// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ustar

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/riannucci/ustar/internal/skeleton"

	"github.com/luci/luci-go/common/errors"
)

// defaultBufferSize is the read-ahead/write-behind buffer size Extract and
// Create use when the caller doesn't override it, per spec.md §5.
const defaultBufferSize = 2 * 1024 * 1024

type extractOptionData struct {
	predicate      func(*Header) bool
	skeletonSink   io.Writer
	copySymlinks   *bool // nil == auto
	setPermissions bool
	host           FSHost
	strict         bool
	bufferSize     int
}

// ExtractOption configures Extract.
type ExtractOption func(*extractOptionData)

// WithExtractPredicate restricts Extract to entries for which pred returns
// true; entries it rejects are skipped entirely (not even their data is
// written). It is an error (PredicateMisuse) to combine this with
// WithExtractSkeleton.
func WithExtractPredicate(pred func(*Header) bool) ExtractOption {
	return func(o *extractOptionData) { o.predicate = pred }
}

// WithExtractSkeleton records the exact header bytes of every entry to sink,
// for later byte-exact reconstruction via WithCreateSkeleton. It is an error
// (PredicateMisuse) to combine this with WithExtractPredicate.
func WithExtractSkeleton(sink io.Writer) ExtractOption {
	return func(o *extractOptionData) { o.skeletonSink = sink }
}

// WithCopySymlinks selects how symlink entries are materialized: true
// copies the resolved target's bytes instead of creating a real symlink
// (cycle- and dangling-target-safe: such entries are skipped with a logged
// warning, not an error);
// false creates a real symlink. Omitting this option probes the host via
// FSHost.CanSymlink.
func WithCopySymlinks(val bool) ExtractOption {
	return func(o *extractOptionData) { o.copySymlinks = &val }
}

// WithSetPermissions propagates the mode bits for each entry after writing
// it (via FSHost.Chmod, and on Windows via FSHost.PropagateMode once the
// whole tree is down).
func WithSetPermissions(val bool) ExtractOption {
	return func(o *extractOptionData) { o.setPermissions = val }
}

// WithExtractHost overrides the FSHost used to materialize the tree.
func WithExtractHost(h FSHost) ExtractOption {
	return func(o *extractOptionData) { o.host = h }
}

// WithExtractStrict controls whether an unsupported entry type aborts
// extraction (true, the default) or is skipped.
func WithExtractStrict(val bool) ExtractOption {
	return func(o *extractOptionData) { o.strict = val }
}

// WithExtractBufferSize sets how many bytes Extract reads ahead of the
// decoder, in a background goroutine, rather than pulling directly from r.
// Zero disables read-ahead entirely. Default 2 MiB.
func WithExtractBufferSize(n int) ExtractOption {
	return func(o *extractOptionData) { o.bufferSize = n }
}

// prepReader wraps r in a background-buffered pipe, the same shape as the
// teacher's OpenedArchive.prepReader: a goroutine drains r through a sized
// bufio.Reader into an io.Pipe, so the decoder never blocks waiting on a
// slow source once bufferSize bytes are available.
func prepReader(r io.Reader, bufferSize int) io.Reader {
	if bufferSize <= 0 {
		return r
	}
	rd, wr := io.Pipe()
	go func(r io.Reader) {
		_, err := bufio.NewReaderSize(r, bufferSize).WriteTo(wr)
		wr.CloseWithError(err)
	}(r)
	return rd
}

type pendingSymlink struct {
	header Header
}

type extractor struct {
	ctx  context.Context
	opts extractOptionData
	root string
	rd   *reader
	rec  *skeleton.Recorder

	createdRoot bool
	deferred    []pendingSymlink
}

// Extract decodes r and materializes it under root, which must not already
// exist or must be an empty directory. ctx carries no deadline or
// cancellation — extraction cannot be interrupted mid-entry — it is only
// the logging scope for recoverable per-entry problems (a skipped,
// cyclic, or dangling symlink under copy_symlinks), the same role it plays
// in the teacher's UnpackTo.
func Extract(ctx context.Context, r io.Reader, root string, opts ...ExtractOption) (err error) {
	o := extractOptionData{host: OSHost{}, setPermissions: true, strict: true, bufferSize: defaultBufferSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.predicate != nil && o.skeletonSink != nil {
		return &PredicateMisuseError{}
	}

	e := &extractor{ctx: ctx, opts: o, root: root}
	e.rd = newReader(prepReader(r, o.bufferSize), o.strict)
	e.rd.captureRaw = o.skeletonSink != nil
	if o.skeletonSink != nil {
		e.rec = skeleton.NewRecorder(o.skeletonSink)
	}

	createdRoot, err := ensureExtractRoot(o.host, root)
	if err != nil {
		return err
	}
	e.createdRoot = createdRoot

	defer func() {
		if err != nil && e.createdRoot {
			o.host.RemoveAll(root)
		}
	}()

	copySymlinks := o.copySymlinks
	if copySymlinks == nil {
		val := !o.host.CanSymlink(root)
		copySymlinks = &val
	}

	for {
		ent, err := e.rd.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		if o.predicate != nil && !o.predicate(&ent.Header) {
			continue
		}

		if e.rec != nil {
			if err := e.rec.Record(normPathNoSlash(ent.Header.Path), ent.RawHeader); err != nil {
				return errors.Annotate(err).Reason("recording skeleton").Err()
			}
		}

		if err := e.materialize(ent, *copySymlinks); err != nil {
			return err
		}
	}

	if *copySymlinks {
		if err := e.resolveDeferredSymlinks(); err != nil {
			return err
		}
	}

	if o.setPermissions {
		if err := o.host.PropagateMode(root, root); err != nil {
			return errors.Annotate(err).Reason("propagating permissions").Err()
		}
	}

	return nil
}

func (e *extractor) materialize(ent *entry, copySymlinks bool) error {
	h := &ent.Header
	if !h.Type.Writable() {
		return discardData(ent)
	}

	abs := filepath.Join(e.root, h.Path)

	switch h.Type.Kind {
	case KindDirectory:
		if err := e.opts.host.MkdirAll(abs, os.FileMode(h.Mode)|0700); err != nil {
			return errors.Annotate(err).Reason("making directory %(path)q").D("path", h.Path).Err()
		}

	case KindFile:
		if err := e.writeFile(abs, h, ent.data); err != nil {
			return err
		}

	case KindHardlink:
		srcAbs := filepath.Join(e.root, h.Link)
		if err := e.copyFileContent(srcAbs, abs, os.FileMode(h.Mode)); err != nil {
			return errors.Annotate(err).Reason("materializing hardlink %(path)q").D("path", h.Path).Err()
		}

	case KindSymlink:
		if copySymlinks {
			e.deferred = append(e.deferred, pendingSymlink{header: *h})
			return nil
		}
		if err := e.opts.host.Symlink(h.Link, abs); err != nil {
			return errors.Annotate(err).Reason("making symlink %(path)q").D("path", h.Path).Err()
		}
	}
	return nil
}

func (e *extractor) writeFile(abs string, h *Header, data io.Reader) error {
	if err := e.opts.host.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return err
	}
	w, err := e.opts.host.Create(abs, os.FileMode(h.Mode)|0600)
	if err != nil {
		return errors.Annotate(err).Reason("creating file %(path)q").D("path", h.Path).Err()
	}
	defer w.Close()
	if _, err := io.Copy(w, data); err != nil {
		return errors.Annotate(err).Reason("writing file %(path)q").D("path", h.Path).Err()
	}
	if e.opts.setPermissions {
		return e.opts.host.Chmod(abs, os.FileMode(h.Mode))
	}
	return nil
}

func (e *extractor) copyFileContent(srcAbs, dstAbs string, mode os.FileMode) error {
	if err := e.opts.host.MkdirAll(filepath.Dir(dstAbs), 0755); err != nil {
		return err
	}
	src, err := e.opts.host.Open(srcAbs)
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := e.opts.host.Create(dstAbs, mode|0600)
	if err != nil {
		return err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return err
	}
	if e.opts.setPermissions {
		return e.opts.host.Chmod(dstAbs, mode)
	}
	return nil
}

// discardData advances past an unsupported entry's data region; List's
// reader already arranges for this via skipPending, but Extract reads the
// body itself to keep the stream position invariant explicit here too.
func discardData(ent *entry) error {
	_, err := io.Copy(discard{}, ent.data)
	return err
}

// ensureExtractRoot mirrors the teacher's ensureRoot: root must either not
// exist (in which case Extract creates, and on failure removes, it) or be
// an existing empty directory.
func ensureExtractRoot(host FSHost, root string) (created bool, err error) {
	info, err := host.Stat(root)
	if err != nil {
		if !os.IsNotExist(err) {
			return false, err
		}
		if err := host.MkdirAll(root, 0777); err != nil {
			return false, errors.Annotate(err).Reason("making root dir").Err()
		}
		return true, nil
	}
	if !info.IsDir() {
		return false, errors.Reason("%(root)q exists and is not a directory").D("root", root).Err()
	}
	entries, err := host.Readdir(root)
	if err != nil {
		return false, err
	}
	if len(entries) != 0 {
		return false, errors.Reason("%(root)q is not empty").D("root", root).Err()
	}
	return false, nil
}
