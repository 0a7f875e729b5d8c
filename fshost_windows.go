// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// +build windows

package ustar

import (
	"os"
	"path/filepath"
)

// isExecutable always reports false: Windows has no owner-execute mode bit,
// so executability is never round-tripped through a copy-mode extraction.
func isExecutable(info os.FileInfo) bool {
	return false
}

// propagateMode recursively re-applies src's directory structure onto dst
// after a copy-symlinks extraction, matching mode bits file-for-file. This
// is the Windows-only "recursive mode-copy routine" spec.md §6 calls out;
// POSIX never needs it because Create/Chmod already set modes directly.
func propagateMode(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		targetInfo, err := os.Lstat(target)
		if err != nil {
			return err
		}
		if targetInfo.Mode()&os.ModeSymlink != 0 {
			return nil
		}
		return os.Chmod(target, info.Mode())
	})
}
