// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package tarblock implements IO routines for reading and writing a single
// 512-byte POSIX ustar header block: fixed-offset field access, octal and
// GNU binary integer encoding, and the header checksum.
package tarblock
