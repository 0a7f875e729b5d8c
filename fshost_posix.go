// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// +build !windows

package ustar

import "os"

// isExecutable reads the owner-execute bit directly, mirroring the
// teacher's setWinFileAttributes/attrs_posix.go no-op split: POSIX needs no
// separate probe because the mode bits already carry this information.
func isExecutable(info os.FileInfo) bool {
	return info.Mode()&0100 != 0
}

// propagateMode is a no-op on POSIX: Create/Chmod already set the
// executable bit directly as each file is written, so there is nothing left
// to propagate after the fact.
func propagateMode(src, dst string) error {
	return nil
}
