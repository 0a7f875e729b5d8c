// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ustar

import "github.com/luci/luci-go/common/errors"

// InvalidHeaderError reports one or more structural violations of a header,
// accumulated by CheckHeader.
type InvalidHeaderError struct {
	Path string
	Errs errors.MultiError
}

func (e *InvalidHeaderError) Error() string {
	return errors.Reason("invalid header %(path)q: %(errs)s").
		D("path", e.Path).D("errs", e.Errs.Error()).Err().Error()
}

// Unwrap exposes the individual violations so errors.As can recurse into
// e.g. a *HardlinkUnknownTargetError nested inside e.Errs.
func (e *InvalidHeaderError) Unwrap() []error { return e.Errs }

// UnsupportedEntryError is raised for a structurally valid ustar entry of a
// type this package does not extract/write (chardev, blockdev, fifo, or an
// unrecognized typeflag) while strict mode is on.
type UnsupportedEntryError struct {
	Path string
	Type EntryType
}

func (e *UnsupportedEntryError) Error() string {
	return errors.Reason("unsupported entry type %(type)s at %(path)q").
		D("type", e.Type.String()).D("path", e.Path).Err().Error()
}

// SymlinkAttackError is raised when a path to be created has a prefix that
// was previously recorded as a symlink.
type SymlinkAttackError struct {
	Path   string
	Prefix string
}

func (e *SymlinkAttackError) Error() string {
	return errors.Reason("%(path)q has a symlink prefix at %(prefix)q").
		D("path", e.Path).D("prefix", e.Prefix).Err().Error()
}

// HardlinkUnknownTargetError is raised when a hardlink's target was not
// previously seen in the stream as a plain file.
type HardlinkUnknownTargetError struct {
	Path string
	Link string
}

func (e *HardlinkUnknownTargetError) Error() string {
	return errors.Reason("hardlink %(path)q targets unknown file %(link)q").
		D("path", e.Path).D("link", e.Link).Err().Error()
}

// PortabilityError is raised in portable mode for a Windows-unsafe path
// component.
type PortabilityError struct {
	Path      string
	Component string
	Reason    string
}

func (e *PortabilityError) Error() string {
	return errors.Reason("path %(path)q component %(component)q is not portable: %(reason)s").
		D("path", e.Path).D("component", e.Component).D("reason", e.Reason).Err().Error()
}

// PredicateMisuseError is raised when both a predicate and a skeleton are
// supplied to the same operation.
type PredicateMisuseError struct{}

func (e *PredicateMisuseError) Error() string {
	return "a predicate and a skeleton cannot both be supplied to the same operation"
}

// CallbackProtocolError is raised when a List consumer callback
// fails to advance the stream by exactly round_up_512(size) bytes before
// returning.
type CallbackProtocolError struct {
	Path string
	Want int64
	Got  int64
}

func (e *CallbackProtocolError) Error() string {
	return errors.Reason("callback for %(path)q advanced %(got)d bytes, want %(want)d").
		D("path", e.Path).D("got", e.Got).D("want", e.Want).Err().Error()
}

// NotATarballError wraps a checksum or magic failure with a hint that the
// stream may be compressed, since that's the overwhelmingly common cause.
type NotATarballError struct {
	Err error
}

func (e *NotATarballError) Error() string {
	return errors.Annotate(e.Err).
		Reason("not a tarball (if this came from a file, check it isn't still compressed)").
		Err().Error()
}

func (e *NotATarballError) Unwrap() error { return e.Err }
