// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package githash computes git-compatible blob and tree object hashes, the
// reduction the tree hasher uses to turn a logical tarball into a single
// content hash comparable against `git hash-object`/`git write-tree`.
package githash
