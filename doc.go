// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package ustar reads, writes, rewrites, and content-hashes POSIX
// 1003.1-2001 (ustar) tar archives, specialized for transferring file trees
// between systems rather than preserving host metadata: ownership, times,
// device numbers, and sparse regions are not round-tripped.
//
// It understands ustar proper, PAX extended headers ('x' local, 'g'
// global), and GNU long-name/long-link compatibility on read; it only ever
// writes ustar+PAX. Five operations sit on top of the shared streaming
// engine: Create, Extract, List, Rewrite, and TreeHash.
//
// Unlike a general-purpose archiver, this package does not compress: every
// stream it reads or writes is raw tar bytes, and callers layer gzip/bzip2
// etc. on top. Command-line entry points, temp-directory management, and
// logging policy are likewise left to callers.
package ustar
