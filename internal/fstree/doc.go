// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package fstree implements the in-memory recursive tree that the rewriter
// and the tree hasher both build from a tarball's logical entries before
// walking it in canonical, git-compatible order. It replaces the teacher
// package's protobuf-backed table of contents (sardata/toc) with a small
// generic in-memory structure, since this tree is never itself put on the
// wire.
package fstree
