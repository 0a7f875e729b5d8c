// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package skeleton records the exact header-block byte sequence an
// extraction observed for each entry, so Create can later reproduce the
// original tarball byte-for-byte from the extracted tree plus this sidecar.
//
// The on-disk framing borrows the length-prefixed block idiom the rest of
// this codebase's ancestry uses for its own block framing: a magic prefix
// followed by a sequence of (path, raw bytes) records, each length-prefixed
// with a uvarint.
package skeleton
