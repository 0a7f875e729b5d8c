// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ustar

import (
	"bufio"
	"io"
	"path/filepath"
	"strings"

	"github.com/riannucci/ustar/internal/fstree"
	"github.com/riannucci/ustar/internal/skeleton"

	"github.com/luci/luci-go/common/errors"
)

type createOptionData struct {
	predicate  func(*Header) bool
	skeleton   *skeleton.Replayer
	portable   bool
	host       FSHost
	bufferSize int
}

// CreateOption configures Create.
type CreateOption func(*createOptionData)

// WithCreatePredicate restricts Create to entries for which pred returns
// true. It is an error (PredicateMisuse) to combine this with
// WithCreateSkeleton.
func WithCreatePredicate(pred func(*Header) bool) CreateOption {
	return func(o *createOptionData) { o.predicate = pred }
}

// WithCreateSkeleton plays back a skeleton recorded by an earlier Extract,
// reproducing the original header bytes (including any non-canonical PAX
// records or field layout) instead of emitting this package's canonical
// encoding. It is an error (PredicateMisuse) to combine this with
// WithCreatePredicate.
func WithCreateSkeleton(s *skeleton.Replayer) CreateOption {
	return func(o *createOptionData) { o.skeleton = s }
}

// WithCreatePortable rejects, rather than silently writes, any path
// component that is illegal or reserved on Windows.
func WithCreatePortable(val bool) CreateOption {
	return func(o *createOptionData) { o.portable = val }
}

// WithCreateHost overrides the FSHost used to read the source tree. The
// default is OSHost.
func WithCreateHost(h FSHost) CreateOption {
	return func(o *createOptionData) { o.host = h }
}

// WithCreateBufferSize sets the size of the write-behind buffer Create
// places in front of out. Zero disables buffering. Default 2 MiB.
func WithCreateBufferSize(n int) CreateOption {
	return func(o *createOptionData) { o.bufferSize = n }
}

// fsLeaf is one non-directory entry discovered while scanning a source
// tree: enough to build a Header without re-statting the filesystem.
type fsLeaf struct {
	kind   Kind
	mode   int64
	size   int64
	link   string
	source string // absolute host path, for opening file data
}

// Create walks the tree rooted at root and writes a canonical ustar+PAX
// tarball to out.
func Create(out io.Writer, root string, opts ...CreateOption) error {
	o := createOptionData{host: OSHost{}, bufferSize: defaultBufferSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.predicate != nil && o.skeleton != nil {
		return &PredicateMisuseError{}
	}

	tree, err := scanTree(o.host, root)
	if err != nil {
		return errors.Annotate(err).Reason("scanning %(root)q").D("root", root).Err()
	}

	w := io.Writer(out)
	var buffered *bufio.Writer
	if o.bufferSize > 0 {
		buffered = bufio.NewWriterSize(out, o.bufferSize)
		w = buffered
	}

	err = fstree.WalkAll(tree,
		func(path string) error {
			return writeTreeEntry(w, &o, path, &fsLeaf{kind: KindDirectory, mode: 0755})
		},
		func(path string, leaf fsLeaf) error {
			return writeTreeEntry(w, &o, path, &leaf)
		},
	)
	if err != nil {
		return err
	}

	if err := writeTrailer(w); err != nil {
		return err
	}
	if buffered != nil {
		return buffered.Flush()
	}
	return nil
}

func writeTreeEntry(out io.Writer, o *createOptionData, path string, leaf *fsLeaf) error {
	h := &Header{
		Path: path,
		Type: EntryType{Kind: leaf.kind},
		Mode: leaf.mode,
		Size: leaf.size,
		Link: leaf.link,
	}
	if leaf.kind == KindDirectory {
		h.Path += "/"
	}

	if o.predicate != nil && !o.predicate(h) {
		return nil
	}
	if o.portable {
		if err := checkPortable(h.Path); err != nil {
			return err
		}
	}

	if o.skeleton != nil {
		raw, ok := o.skeleton.Lookup(strings.TrimSuffix(h.Path, "/"))
		if ok {
			return writeSkeletonEntry(out, o.host, leaf, raw)
		}
	}

	if leaf.kind != KindFile {
		return writeEntry(out, h, nil)
	}

	f, err := o.host.Open(leaf.source)
	if err != nil {
		return errors.Annotate(err).Reason("opening %(path)q").D("path", h.Path).Err()
	}
	defer f.Close()
	return writeEntry(out, h, f)
}

func writeSkeletonEntry(out io.Writer, host FSHost, leaf *fsLeaf, raw []byte) error {
	if _, err := out.Write(raw); err != nil {
		return err
	}
	if leaf.kind != KindFile {
		return nil
	}
	f, err := host.Open(leaf.source)
	if err != nil {
		return err
	}
	defer f.Close()
	return writePadded(out, f, leaf.size)
}

// scanTree walks root on the host filesystem and returns an in-memory tree
// of its non-directory entries, in the same shape the rewriter and tree
// hasher use, so all three operations share one canonical walk order.
func scanTree(host FSHost, root string) (*fstree.Node[fsLeaf], error) {
	tree := fstree.New[fsLeaf]()
	var walk func(relPath, absPath string) error
	walk = func(relPath, absPath string) error {
		entries, err := host.Readdir(absPath)
		if err != nil {
			return err
		}
		for _, de := range entries {
			childRel := de.Name
			if relPath != "" {
				childRel = relPath + "/" + de.Name
			}
			childAbs := filepath.Join(absPath, de.Name)

			switch {
			case de.IsLink:
				target, err := host.Readlink(childAbs)
				if err != nil {
					return err
				}
				if err := tree.SetLeaf(childRel, fsLeaf{kind: KindSymlink, link: target}); err != nil {
					return err
				}
			case de.IsDir:
				if _, err := tree.EnsureDir(childRel); err != nil {
					return err
				}
				if err := walk(childRel, childAbs); err != nil {
					return err
				}
			default:
				info, err := host.Lstat(childAbs)
				if err != nil {
					return err
				}
				mode := int64(0644)
				if host.IsExecutable(info) {
					mode = 0755
				}
				leaf := fsLeaf{kind: KindFile, mode: mode, size: info.Size(), source: childAbs}
				if err := tree.SetLeaf(childRel, leaf); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk("", root); err != nil {
		return nil, err
	}
	return tree, nil
}

// checkPortable rejects path components that collide with Windows' illegal
// character set or reserved device names, per spec.md's portable mode.
func checkPortable(path string) error {
	for _, comp := range strings.Split(strings.TrimSuffix(path, "/"), "/") {
		if comp == "" {
			continue
		}
		if err := checkPortableComponent(comp); err != nil {
			return &PortabilityError{Path: path, Component: comp, Reason: err.Error()}
		}
	}
	return nil
}

const windowsIllegalChars = `<>:"/\|?*`

var windowsReservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

func checkPortableComponent(comp string) error {
	for _, c := range comp {
		if c < 0x20 || strings.ContainsRune(windowsIllegalChars, c) {
			return errors.Reason("contains illegal character %(char)q").D("char", string(c)).Err()
		}
	}
	if strings.HasSuffix(comp, ".") || strings.HasSuffix(comp, " ") {
		return errors.New("ends in a trailing dot or space")
	}
	base := comp
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	if windowsReservedNames[strings.ToUpper(base)] {
		return errors.Reason("%(name)q is a reserved device name").D("name", base).Err()
	}
	return nil
}
