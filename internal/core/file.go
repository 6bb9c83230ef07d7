package core

import (
	"fmt"
	"math"
)

// MaxFileSize bounds the size counter of a file.
const MaxFileSize uint32 = math.MaxInt32

// File is a leaf node carrying an opaque size counter.
type File struct {
	node
	size     uint32
	writable bool
	kind     FileKind
}

// NewFile creates a file inside parent. Files cannot be roots.
func NewFile(parent *Dir, name string, kind FileKind, opts ...Option) (*File, error) {
	o := buildOptions(parent, opts)
	if o.size > MaxFileSize {
		panic(fmt.Sprintf("core: file size %d exceeds %d", o.size, MaxFileSize))
	}
	f := &File{size: o.size, writable: o.writable, kind: kind}
	f.init(f, name, IsValidName, o.clock)
	if err := attach("create", parent, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) Type() NodeType     { return TypeFile }
func (f *File) Kind() FileKind     { return f.kind }
func (f *File) Size() uint32       { return f.size }
func (f *File) IsWritable() bool   { return f.writable }
func (f *File) SetWritable(w bool) { f.writable = w }

// AbsolutePath appends the kind's extension to the node path.
func (f *File) AbsolutePath() string {
	return f.node.AbsolutePath() + f.kind.Extension()
}

// Enlarge grows the file by delta. delta must be positive and the result
// must not exceed MaxFileSize.
func (f *File) Enlarge(delta uint32) error {
	return f.changeSize("enlarge", int64(delta))
}

// Shorten shrinks the file by delta. delta must be positive and not larger
// than the current size.
func (f *File) Shorten(delta uint32) error {
	return f.changeSize("shorten", -int64(delta))
}

func (f *File) changeSize(op string, delta int64) error {
	if !f.writable {
		return opError(op, f, ErrNotWritable)
	}
	if delta == 0 {
		panic("core: " + op + " with zero delta")
	}
	size := int64(f.size) + delta
	if size < 0 || size > int64(MaxFileSize) {
		panic(fmt.Sprintf("core: %s by %d leaves size %d outside [0, %d]", op, delta, size, MaxFileSize))
	}
	f.size = uint32(size)
	f.touch()
	return nil
}

func (f *File) Move(dst *Dir) error {
	return moveLeaf(f, dst)
}

// Terminate removes the file. Both the file and its parent must be writable.
func (f *File) Terminate() error {
	if f.terminated {
		panic("core: terminate on terminated node " + f.name)
	}
	if !f.writable {
		return opError("terminate", f, ErrNotWritable)
	}
	return f.node.Terminate()
}
