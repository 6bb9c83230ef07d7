package core

import (
	"fmt"
	"slices"
	"strings"
)

// Dir is a node owning an ordered set of children. Children are kept sorted
// by case-insensitive name and no two of them share a case-insensitive name.
type Dir struct {
	node
	writable bool
	children []Node
}

// NewRootDir creates a directory without a parent.
func NewRootDir(name string, opts ...Option) *Dir {
	o := buildOptions(nil, opts)
	d := &Dir{writable: o.writable}
	d.init(d, name, IsValidDirName, o.clock)
	return d
}

// NewDir creates a directory inside parent.
func NewDir(parent *Dir, name string, opts ...Option) (*Dir, error) {
	o := buildOptions(parent, opts)
	d := &Dir{writable: o.writable}
	d.init(d, name, IsValidDirName, o.clock)
	if err := attach("mkdir", parent, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dir) Type() NodeType     { return TypeDir }
func (d *Dir) IsWritable() bool   { return d.writable }
func (d *Dir) SetWritable(w bool) { d.writable = w }
func (d *Dir) ChildCount() int    { return len(d.children) }

// Children returns a copy of the sorted children.
func (d *Dir) Children() []Node {
	return slices.Clone(d.children)
}

func (d *Dir) add(n Node) error {
	if n == nil {
		return opError("add", d, ErrInvalidArgument)
	}
	if !d.writable {
		return opError("add", d, ErrNotWritable)
	}
	d.children = append(d.children, n)
	d.sortChildren()
	return nil
}

func (d *Dir) remove(n Node) {
	if i := slices.Index(d.children, n); i >= 0 {
		d.children = slices.Delete(d.children, i, i+1)
	}
	d.sortChildren()
}

func compareNames(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func (d *Dir) sortChildren() {
	slices.SortStableFunc(d.children, func(a, b Node) int {
		return compareNames(a.Name(), b.Name())
	})
}

func (d *Dir) search(name string) (int, bool) {
	return slices.BinarySearchFunc(d.children, name, func(n Node, target string) int {
		return compareNames(n.Name(), target)
	})
}

// ItemAt returns the child at the 1-based index. It panics when index is
// out of range.
func (d *Dir) ItemAt(index int) Node {
	if index < 1 || index > len(d.children) {
		panic(fmt.Sprintf("core: item index %d out of range [1, %d]", index, len(d.children)))
	}
	return d.children[index-1]
}

// Item looks a child up by case-insensitive name.
func (d *Dir) Item(name string) (Node, bool) {
	i, ok := d.search(name)
	if !ok {
		return nil, false
	}
	return d.children[i], true
}

func (d *Dir) ContainsName(name string) bool {
	_, ok := d.search(name)
	return ok
}

// IndexOf returns the 1-based position of a direct child.
func (d *Dir) IndexOf(n Node) (int, error) {
	i := slices.Index(d.children, n)
	if i < 0 {
		return 0, opError("index", d, ErrArgumentNotFound)
	}
	return i + 1, nil
}

// TotalChildCount counts every child plus the immediate children of child
// directories. It does not descend further.
func (d *Dir) TotalChildCount() int {
	total := 0
	for _, c := range d.children {
		total++
		if sub, ok := c.(*Dir); ok {
			total += len(sub.children)
		}
	}
	return total
}

// TotalDiskUsage sums the sizes of all files in the subtree.
func (d *Dir) TotalDiskUsage() uint64 {
	var total uint64
	for _, c := range d.children {
		switch n := c.(type) {
		case *File:
			total += uint64(n.size)
		case *Dir:
			total += n.TotalDiskUsage()
		}
	}
	return total
}

// Move attaches a root directory to dst. A directory that still has a
// parent is refused with ErrLoopedDirectory; detach it with MakeRoot first.
func (d *Dir) Move(dst *Dir) error {
	const op = "move"
	if d.terminated || dst == nil || dst.terminated {
		return opError(op, d, ErrInvalidArgument)
	}
	if !d.writable {
		return opError(op, d, ErrNotWritable)
	}
	if !dst.writable {
		return opError(op, dst, ErrNotWritable)
	}
	if d.parent != nil || dst == d || dst.IsDirectOrIndirectChildOf(d) {
		return opError(op, d, ErrLoopedDirectory)
	}
	if dst.ContainsName(d.name) {
		return opError(op, d, ErrNameNotAvailable)
	}
	if err := dst.add(d); err != nil {
		return err
	}
	d.parent = dst
	dst.touch()
	return nil
}

// MakeRoot detaches the directory from its parent.
func (d *Dir) MakeRoot() error {
	if d.terminated {
		return opError("makeroot", d, ErrInvalidArgument)
	}
	p := d.parent
	if p == nil {
		return nil
	}
	if !p.writable {
		return opError("makeroot", p, ErrNotWritable)
	}
	p.remove(d)
	d.parent = nil
	return nil
}

// Terminate removes an empty, writable directory from the namespace.
func (d *Dir) Terminate() error {
	if d.terminated {
		panic("core: terminate on terminated node " + d.name)
	}
	if !d.writable {
		return opError("terminate", d, ErrNotWritable)
	}
	if len(d.children) > 0 {
		return opError("terminate", d, ErrDirectoryNotEmpty)
	}
	return d.node.Terminate()
}
