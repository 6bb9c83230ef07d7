package service

import (
	"context"
	"fmt"
	"log/slog"

	"canopy/internal/core"
)

// Paths in requests are relative to the namespace root and resolved
// case-insensitively; "" and "/" name the root itself.

type MkdirRequest struct {
	Parent   string `json:"parent"`
	Name     string `json:"name"`
	ReadOnly bool   `json:"read_only"`
}

type CreateFileRequest struct {
	Parent   string `json:"parent"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Size     uint32 `json:"size"`
	ReadOnly bool   `json:"read_only"`
}

type CreateLinkRequest struct {
	Parent string `json:"parent"`
	Name   string `json:"name"`
	Target string `json:"target"`
}

type RenameRequest struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

type MoveRequest struct {
	Path        string `json:"path"`
	Destination string `json:"destination"`
}

type ResizeRequest struct {
	Path  string `json:"path"`
	Delta int64  `json:"delta"`
}

type WritableRequest struct {
	Path     string `json:"path"`
	Writable bool   `json:"writable"`
}

type TerminateRequest struct {
	Path      string `json:"path"`
	Recursive bool   `json:"recursive"`
}

// NodeView describes one node and, for directories, its children.
type NodeView struct {
	core.Entry
	Items []core.Entry `json:"items,omitempty"`
}

// Tree returns a snapshot of the whole namespace.
func (s *NamespaceService) Tree(ctx context.Context, id, password string) (*core.Snapshot, error) {
	ns, err := s.open(ctx, id, password)
	if err != nil {
		return nil, err
	}
	defer ns.Unlock()

	return core.TakeSnapshot(ns.Root), nil
}

// Stat describes the node at path. Directories list their children.
func (s *NamespaceService) Stat(ctx context.Context, id, password, path string) (*NodeView, error) {
	ns, err := s.open(ctx, id, password)
	if err != nil {
		return nil, err
	}
	defer ns.Unlock()

	n, err := core.Resolve(ns.Root, path)
	if err != nil {
		return nil, err
	}
	view := &NodeView{Entry: core.DescribeBelow(ns.Root, n)}
	if d, ok := n.(*core.Dir); ok {
		for _, c := range d.Children() {
			view.Items = append(view.Items, core.DescribeBelow(ns.Root, c))
		}
	}
	return view, nil
}

// Mkdir creates a directory.
func (s *NamespaceService) Mkdir(ctx context.Context, id, password string, req MkdirRequest) (*core.Entry, error) {
	if !core.IsValidDirName(req.Name) {
		return nil, fmt.Errorf("%w: invalid directory name %q", ErrInvalidRequest, req.Name)
	}
	ns, err := s.open(ctx, id, password)
	if err != nil {
		return nil, err
	}
	defer ns.Unlock()

	parent, err := core.ResolveDir(ns.Root, req.Parent)
	if err != nil {
		return nil, err
	}
	var opts []core.Option
	if req.ReadOnly {
		opts = append(opts, core.ReadOnly())
	}
	d, err := core.NewDir(parent, req.Name, opts...)
	if err != nil {
		return nil, err
	}
	return s.changed(ns.ID, "mkdir", ns.Root, d), nil
}

// CreateFile creates a file with an initial size.
func (s *NamespaceService) CreateFile(ctx context.Context, id, password string, req CreateFileRequest) (*core.Entry, error) {
	if !core.IsValidName(req.Name) {
		return nil, fmt.Errorf("%w: invalid file name %q", ErrInvalidRequest, req.Name)
	}
	kind, err := core.ParseFileKind(req.Kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if req.Size > core.MaxFileSize {
		return nil, fmt.Errorf("%w: size %d exceeds %d", ErrInvalidRequest, req.Size, core.MaxFileSize)
	}
	ns, err := s.open(ctx, id, password)
	if err != nil {
		return nil, err
	}
	defer ns.Unlock()

	parent, err := core.ResolveDir(ns.Root, req.Parent)
	if err != nil {
		return nil, err
	}
	opts := []core.Option{core.WithSize(req.Size)}
	if req.ReadOnly {
		opts = append(opts, core.ReadOnly())
	}
	f, err := core.NewFile(parent, req.Name, kind, opts...)
	if err != nil {
		return nil, err
	}
	return s.changed(ns.ID, "create", ns.Root, f), nil
}

// CreateLink creates a link to the node at req.Target.
func (s *NamespaceService) CreateLink(ctx context.Context, id, password string, req CreateLinkRequest) (*core.Entry, error) {
	if !core.IsValidName(req.Name) {
		return nil, fmt.Errorf("%w: invalid link name %q", ErrInvalidRequest, req.Name)
	}
	ns, err := s.open(ctx, id, password)
	if err != nil {
		return nil, err
	}
	defer ns.Unlock()

	parent, err := core.ResolveDir(ns.Root, req.Parent)
	if err != nil {
		return nil, err
	}
	target, err := core.Resolve(ns.Root, req.Target)
	if err != nil {
		return nil, err
	}
	l, err := core.NewLink(parent, req.Name, target)
	if err != nil {
		return nil, err
	}
	return s.changed(ns.ID, "link", ns.Root, l), nil
}

// Rename changes the name of the node at req.Path.
func (s *NamespaceService) Rename(ctx context.Context, id, password string, req RenameRequest) (*core.Entry, error) {
	ns, err := s.open(ctx, id, password)
	if err != nil {
		return nil, err
	}
	defer ns.Unlock()

	n, err := core.Resolve(ns.Root, req.Path)
	if err != nil {
		return nil, err
	}
	valid := core.IsValidName
	if n.Type() == core.TypeDir {
		valid = core.IsValidDirName
	}
	if !valid(req.Name) {
		return nil, fmt.Errorf("%w: invalid name %q", ErrInvalidRequest, req.Name)
	}
	if n == core.Node(ns.Root) {
		return nil, fmt.Errorf("%w: the namespace root cannot be renamed", ErrInvalidRequest)
	}
	if err := n.ChangeName(req.Name); err != nil {
		return nil, err
	}
	return s.changed(ns.ID, "rename", ns.Root, n), nil
}

// Move reparents the node at req.Path below req.Destination. An attached
// directory is detached first; every expected failure is reported before
// that, so a refused move leaves both parents untouched.
func (s *NamespaceService) Move(ctx context.Context, id, password string, req MoveRequest) (*core.Entry, error) {
	ns, err := s.open(ctx, id, password)
	if err != nil {
		return nil, err
	}
	defer ns.Unlock()

	n, err := core.Resolve(ns.Root, req.Path)
	if err != nil {
		return nil, err
	}
	if n == core.Node(ns.Root) {
		return nil, fmt.Errorf("%w: the namespace root cannot be moved", ErrInvalidRequest)
	}
	dst, err := core.ResolveDir(ns.Root, req.Destination)
	if err != nil {
		return nil, err
	}

	d, isDir := n.(*core.Dir)
	if !isDir {
		if err := n.Move(dst); err != nil {
			return nil, err
		}
		return s.changed(ns.ID, "move", ns.Root, n), nil
	}

	if err := moveDir(d, dst); err != nil {
		return nil, err
	}
	return s.changed(ns.ID, "move", ns.Root, d), nil
}

func moveDir(d, dst *core.Dir) error {
	old := d.Parent()
	if old == dst {
		return &core.NodeError{Op: "move", Path: d.AbsolutePath(), Err: core.ErrInvalidArgument}
	}
	// These fail the same way attached or not.
	if !d.IsWritable() || dst == d || dst.IsDirectOrIndirectChildOf(d) {
		return d.Move(dst)
	}
	if !dst.IsWritable() {
		return &core.NodeError{Op: "move", Path: dst.AbsolutePath(), Err: core.ErrNotWritable}
	}
	if dst.ContainsName(d.Name()) {
		return &core.NodeError{Op: "move", Path: d.AbsolutePath(), Err: core.ErrNameNotAvailable}
	}

	if err := d.MakeRoot(); err != nil {
		return err
	}
	if err := d.Move(dst); err != nil {
		if rerr := d.Move(old); rerr != nil {
			slog.Error("failed to restore directory after move",
				"path", d.AbsolutePath(),
				"parent", old.AbsolutePath(),
				"error", rerr,
			)
		}
		return err
	}
	return nil
}

// Resize grows (positive delta) or shrinks (negative delta) a file.
func (s *NamespaceService) Resize(ctx context.Context, id, password string, req ResizeRequest) (*core.Entry, error) {
	if req.Delta == 0 {
		return nil, fmt.Errorf("%w: delta must not be zero", ErrInvalidRequest)
	}
	ns, err := s.open(ctx, id, password)
	if err != nil {
		return nil, err
	}
	defer ns.Unlock()

	n, err := core.Resolve(ns.Root, req.Path)
	if err != nil {
		return nil, err
	}
	f, ok := n.(*core.File)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a file", ErrInvalidRequest, n.AbsolutePath())
	}

	size := int64(f.Size()) + req.Delta
	if size < 0 || size > int64(core.MaxFileSize) {
		return nil, fmt.Errorf("%w: resulting size %d outside [0, %d]", ErrInvalidRequest, size, core.MaxFileSize)
	}
	if req.Delta > 0 {
		err = f.Enlarge(uint32(req.Delta))
	} else {
		err = f.Shorten(uint32(-req.Delta))
	}
	if err != nil {
		return nil, err
	}
	return s.changed(ns.ID, "resize", ns.Root, f), nil
}

type writable interface {
	core.Node
	SetWritable(bool)
}

// SetWritable toggles the write permission of a directory or file.
func (s *NamespaceService) SetWritable(ctx context.Context, id, password string, req WritableRequest) (*core.Entry, error) {
	ns, err := s.open(ctx, id, password)
	if err != nil {
		return nil, err
	}
	defer ns.Unlock()

	n, err := core.Resolve(ns.Root, req.Path)
	if err != nil {
		return nil, err
	}
	w, ok := n.(writable)
	if !ok {
		return nil, fmt.Errorf("%w: links are always writable", ErrInvalidRequest)
	}
	w.SetWritable(req.Writable)
	return s.changed(ns.ID, "writable", ns.Root, w), nil
}

// Terminate removes the node at req.Path. With Recursive set, a directory's
// subtree is removed bottom-up first; it stops at the first failure.
func (s *NamespaceService) Terminate(ctx context.Context, id, password string, req TerminateRequest) error {
	ns, err := s.open(ctx, id, password)
	if err != nil {
		return err
	}
	defer ns.Unlock()

	n, err := core.Resolve(ns.Root, req.Path)
	if err != nil {
		return err
	}
	if n == core.Node(ns.Root) {
		return fmt.Errorf("%w: the namespace root cannot be terminated", ErrInvalidRequest)
	}
	path := n.AbsolutePath()

	if d, ok := n.(*core.Dir); ok && req.Recursive {
		err = terminateTree(d)
	} else {
		err = n.Terminate()
	}
	if err != nil {
		return err
	}

	slog.Info("node terminated", "namespace_id", ns.ID, "path", path, "recursive", req.Recursive)
	return nil
}

func terminateTree(d *core.Dir) error {
	for _, c := range d.Children() {
		if sub, ok := c.(*core.Dir); ok {
			if err := terminateTree(sub); err != nil {
				return err
			}
			continue
		}
		if err := c.Terminate(); err != nil {
			return err
		}
	}
	return d.Terminate()
}

// Export returns the subtree at path as a ZIP skeleton and a file name for it.
func (s *NamespaceService) Export(ctx context.Context, id, password, path string) ([]byte, string, error) {
	ns, err := s.open(ctx, id, password)
	if err != nil {
		return nil, "", err
	}
	defer ns.Unlock()

	d, err := core.ResolveDir(ns.Root, path)
	if err != nil {
		return nil, "", err
	}
	data, err := core.ExportZip(d)
	if err != nil {
		return nil, "", err
	}
	return data, d.Name() + ".zip", nil
}

func (s *NamespaceService) changed(nsID, op string, root *core.Dir, n core.Node) *core.Entry {
	slog.Debug("namespace changed", "namespace_id", nsID, "op", op, "path", n.AbsolutePath())
	e := core.DescribeBelow(root, n)
	return &e
}
