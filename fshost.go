// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ustar

import (
	"io"
	"os"
	"path/filepath"

	"github.com/luci/luci-go/common/errors"
)

// DirEntry is one unsorted entry returned by FSHost.Readdir.
type DirEntry struct {
	Name    string
	IsDir   bool
	IsLink  bool
	ModeX   bool // executable bit, per FSHost.IsExecutable
}

// FSHost is the host filesystem surface the writer and extractor need. The
// default implementation, OSHost, talks to the real filesystem.
//
// Every path passed to an FSHost method is a host path: the root the caller
// is operating under joined with the entry's path. FSHost itself does not
// enforce path-escape safety —
// that is the extractor/writer's job (see checkSymlinkEscapesRoot and the
// known-path map).
type FSHost interface {
	Lstat(path string) (os.FileInfo, error)
	Stat(path string) (os.FileInfo, error)
	Readdir(path string) ([]DirEntry, error)
	Mkdir(path string, mode os.FileMode) error
	MkdirAll(path string, mode os.FileMode) error
	Symlink(oldname, newname string) error
	Readlink(path string) (string, error)
	RemoveAll(path string) error
	Open(path string) (io.ReadCloser, error)
	Create(path string, mode os.FileMode) (io.WriteCloser, error)
	Chmod(path string, mode os.FileMode) error

	// CanSymlink probes whether the host is able to create a symlink under
	// root at all — false on a filesystem/privilege combination that
	// rejects symlink creation (e.g. Windows without SeCreateSymbolicLink).
	CanSymlink(root string) bool

	// IsExecutable reports whether path's content should be considered
	// executable. On POSIX this reads the owner-execute mode bit; on
	// Windows, where there is no such bit, it is always false and
	// executability is not round-tripped.
	IsExecutable(info os.FileInfo) bool

	// PropagateMode recursively applies the executable bit implied by src's
	// tree onto dst after a copy-mode extraction. It is a no-op on POSIX,
	// where Create/Chmod already set the bit directly.
	PropagateMode(src, dst string) error
}

// OSHost is the default FSHost, backed by the real filesystem.
type OSHost struct{}

var _ FSHost = OSHost{}

func (OSHost) Lstat(path string) (os.FileInfo, error) { return os.Lstat(path) }
func (OSHost) Stat(path string) (os.FileInfo, error)  { return os.Stat(path) }

func (OSHost) Readdir(path string) ([]DirEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	names, err := f.Readdirnames(-1)
	if err != nil {
		return nil, err
	}
	out := make([]DirEntry, 0, len(names))
	for _, name := range names {
		info, err := os.Lstat(filepath.Join(path, name))
		if err != nil {
			return nil, err
		}
		out = append(out, DirEntry{
			Name:   name,
			IsDir:  info.Mode().IsDir(),
			IsLink: info.Mode()&os.ModeSymlink != 0,
			ModeX:  OSHost{}.IsExecutable(info),
		})
	}
	return out, nil
}

func (OSHost) Mkdir(path string, mode os.FileMode) error    { return os.Mkdir(path, mode) }
func (OSHost) MkdirAll(path string, mode os.FileMode) error { return os.MkdirAll(path, mode) }
func (OSHost) Symlink(oldname, newname string) error        { return os.Symlink(oldname, newname) }
func (OSHost) Readlink(path string) (string, error)         { return os.Readlink(path) }
func (OSHost) RemoveAll(path string) error                  { return os.RemoveAll(path) }

func (OSHost) Open(path string) (io.ReadCloser, error) { return os.Open(path) }

func (OSHost) Create(path string, mode os.FileMode) (io.WriteCloser, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
}

func (OSHost) Chmod(path string, mode os.FileMode) error { return os.Chmod(path, mode) }

// CanSymlink probes root by creating and immediately removing a throwaway
// symlink, per spec.md's "auto" copy_symlinks policy.
func (OSHost) CanSymlink(root string) bool {
	probe := filepath.Join(root, ".ustar-symlink-probe")
	defer os.Remove(probe)
	if err := os.Symlink("ustar-probe-target", probe); err != nil {
		return false
	}
	return true
}

func auxIsExecutable(info os.FileInfo) bool { return isExecutable(info) }

func (OSHost) IsExecutable(info os.FileInfo) bool { return auxIsExecutable(info) }

func (OSHost) PropagateMode(src, dst string) error { return propagateMode(src, dst) }

func wrapFSErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return errors.Annotate(err).Reason("%(op)s %(path)q").D("op", op).D("path", path).Err()
}
