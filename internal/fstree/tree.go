// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package fstree

import (
	"sort"
	"strings"

	"github.com/luci/luci-go/common/errors"
)

// Entry is one child of a Node: either another Node (a subdirectory) or a
// leaf of caller-supplied type T (a file, symlink, or hardlink-as-file).
type Entry[T any] struct {
	Name  string
	IsDir bool
	Dir   *Node[T]
	Leaf  T
}

// Node is a directory: a name-indexed set of Entries. The zero Node is not
// usable; use New.
type Node[T any] struct {
	Children map[string]*Entry[T]
}

// New returns an empty directory node.
func New[T any]() *Node[T] {
	return &Node[T]{Children: map[string]*Entry[T]{}}
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" || path == "." {
		return nil
	}
	return strings.Split(path, "/")
}

// EnsureDir walks/creates the directory chain named by path (slash
// separated, root-relative) and returns the innermost Node. It errors if any
// path component already exists as a leaf.
func (n *Node[T]) EnsureDir(path string) (*Node[T], error) {
	cur := n
	for _, name := range splitPath(path) {
		e, ok := cur.Children[name]
		if !ok {
			e = &Entry[T]{Name: name, IsDir: true, Dir: New[T]()}
			cur.Children[name] = e
		} else if !e.IsDir {
			return nil, errors.Reason("%(name)q already exists as a non-directory entry").
				D("name", name).Err()
		}
		cur = e.Dir
	}
	return cur, nil
}

// SetLeaf inserts v as a leaf at path, creating any missing parent
// directories. It errors if path already names a directory.
func (n *Node[T]) SetLeaf(path string, v T) error {
	parent, base := splitParent(path)
	dir, err := n.EnsureDir(parent)
	if err != nil {
		return err
	}
	if e, ok := dir.Children[base]; ok && e.IsDir {
		return errors.Reason("%(name)q already exists as a directory").D("name", base).Err()
	}
	dir.Children[base] = &Entry[T]{Name: base, Leaf: v}
	return nil
}

func splitParent(path string) (parent, base string) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return "", ""
	}
	return strings.Join(parts[:len(parts)-1], "/"), parts[len(parts)-1]
}

// SortedNames returns this node's children's names in git tree-object order:
// a directory name sorts as if it had a trailing slash, so "foo.txt" sorts
// before "foo/" ('.' < '/') even though a plain comparison would put "foo",
// a prefix of "foo.txt", first.
func (n *Node[T]) SortedNames() []string {
	names := make([]string, 0, len(n.Children))
	for name := range n.Children {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ei, ej := n.Children[names[i]], n.Children[names[j]]
		ki, kj := names[i], names[j]
		if ei.IsDir {
			ki += "/"
		}
		if ej.IsDir {
			kj += "/"
		}
		return ki < kj
	})
	return names
}

// Prune removes, recursively, every directory that (after pruning its own
// children) contains no entries at all — i.e. directories that hold no
// files/symlinks anywhere beneath them. It reports whether n itself survived
// (has at least one child after pruning).
func (n *Node[T]) Prune() bool {
	for name, e := range n.Children {
		if e.IsDir {
			if !e.Dir.Prune() {
				delete(n.Children, name)
			}
		}
	}
	return len(n.Children) > 0
}

// Walk visits every leaf in the tree in git sort order, calling fn with the
// leaf's slash-joined root-relative path.
func Walk[T any](n *Node[T], fn func(path string, v T) error) error {
	return WalkAll(n, nil, fn)
}

// WalkAll visits every entry in the tree in git sort order, pre-order
// (a directory is visited before its contents): dirFn is called for each
// directory (nil to skip), leafFn for each leaf.
func WalkAll[T any](n *Node[T], dirFn func(path string) error, leafFn func(path string, v T) error) error {
	return walkAll(n, nil, dirFn, leafFn)
}

func walkAll[T any](n *Node[T], prefix []string, dirFn func(string) error, leafFn func(string, T) error) error {
	for _, name := range n.SortedNames() {
		e := n.Children[name]
		p := append(append([]string{}, prefix...), name)
		path := strings.Join(p, "/")
		if e.IsDir {
			if dirFn != nil {
				if err := dirFn(path); err != nil {
					return err
				}
			}
			if err := walkAll(e.Dir, p, dirFn, leafFn); err != nil {
				return err
			}
			continue
		}
		if leafFn != nil {
			if err := leafFn(path, e.Leaf); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReducedChild is one already-reduced child, as passed to a Reduce dir
// callback.
type ReducedChild[R any] struct {
	Name  string
	IsDir bool
	Value R
}

// Reduce folds the tree bottom-up: leaf converts a leaf value, dir combines
// a directory's already-reduced children (in git sort order) into that
// directory's own result. This is how the tree hasher builds a git tree
// object hash from the bottom up.
func Reduce[T any, R any](n *Node[T], leaf func(name string, v T) R, dir func(children []ReducedChild[R]) R) R {
	names := n.SortedNames()
	children := make([]ReducedChild[R], 0, len(names))
	for _, name := range names {
		e := n.Children[name]
		var v R
		if e.IsDir {
			v = Reduce(e.Dir, leaf, dir)
		} else {
			v = leaf(name, e.Leaf)
		}
		children = append(children, ReducedChild[R]{Name: name, IsDir: e.IsDir, Value: v})
	}
	return dir(children)
}
