package service

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canopy/internal/core"
)

// newPopulatedNamespace creates:
//
//	/root
//	  docs/
//	    a.txt (10)
//	    sub/
//	  src/
//	  link -> docs/a.txt
func newPopulatedNamespace(t *testing.T) (*NamespaceService, string) {
	t.Helper()
	ctx := context.Background()
	svc, _ := newTestService(t)
	res, err := svc.CreateNamespace(ctx, "", "")
	require.NoError(t, err)

	_, err = svc.Mkdir(ctx, res.ID, "", MkdirRequest{Name: "docs"})
	require.NoError(t, err)
	_, err = svc.Mkdir(ctx, res.ID, "", MkdirRequest{Name: "src"})
	require.NoError(t, err)
	_, err = svc.Mkdir(ctx, res.ID, "", MkdirRequest{Parent: "docs", Name: "sub"})
	require.NoError(t, err)
	_, err = svc.CreateFile(ctx, res.ID, "", CreateFileRequest{Parent: "docs", Name: "a", Kind: "txt", Size: 10})
	require.NoError(t, err)
	_, err = svc.CreateLink(ctx, res.ID, "", CreateLinkRequest{Name: "link", Target: "docs/a.txt"})
	require.NoError(t, err)
	return svc, res.ID
}

func TestStat(t *testing.T) {
	ctx := context.Background()
	svc, id := newPopulatedNamespace(t)

	view, err := svc.Stat(ctx, id, "", "/")
	require.NoError(t, err)
	assert.Equal(t, "dir", view.Type)
	assert.Zero(t, view.Depth)
	require.Len(t, view.Items, 3)
	assert.Equal(t, "docs", view.Items[0].Name)
	assert.Equal(t, 1, view.Items[0].Depth)

	view, err = svc.Stat(ctx, id, "", "DOCS/A.TXT")
	require.NoError(t, err)
	assert.Equal(t, "/root/docs/a.txt", view.Path)
	assert.Equal(t, 2, view.Depth)
	assert.Empty(t, view.Items)

	_, err = svc.Stat(ctx, id, "", "nope")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestTree(t *testing.T) {
	svc, id := newPopulatedNamespace(t)

	snap, err := svc.Tree(context.Background(), id, "")
	require.NoError(t, err)

	var paths []string
	for _, e := range snap.Entries {
		paths = append(paths, e.Path)
	}
	assert.Equal(t, []string{"/root", "/root/docs", "/root/docs/a.txt", "/root/docs/sub", "/root/link", "/root/src"}, paths)
	assert.Equal(t, 5, snap.TotalChildCount)
	assert.Equal(t, uint64(10), snap.DiskUsage)
}

func TestMkdirAndCreate(t *testing.T) {
	ctx := context.Background()
	svc, id := newPopulatedNamespace(t)

	t.Run("read-only dir", func(t *testing.T) {
		e, err := svc.Mkdir(ctx, id, "", MkdirRequest{Name: "locked", ReadOnly: true})
		require.NoError(t, err)
		assert.False(t, e.Writable)

		_, err = svc.CreateFile(ctx, id, "", CreateFileRequest{Parent: "locked", Name: "x"})
		assert.ErrorIs(t, err, core.ErrNotWritable)
	})

	t.Run("invalid names", func(t *testing.T) {
		_, err := svc.Mkdir(ctx, id, "", MkdirRequest{Name: "a.b"})
		assert.ErrorIs(t, err, ErrInvalidRequest)
		_, err = svc.CreateFile(ctx, id, "", CreateFileRequest{Name: "a b"})
		assert.ErrorIs(t, err, ErrInvalidRequest)
		_, err = svc.CreateLink(ctx, id, "", CreateLinkRequest{Name: "", Target: "docs"})
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := svc.CreateFile(ctx, id, "", CreateFileRequest{Name: "x", Kind: "exe"})
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("size over limit", func(t *testing.T) {
		_, err := svc.CreateFile(ctx, id, "", CreateFileRequest{Name: "x", Size: core.MaxFileSize + 1})
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("name taken", func(t *testing.T) {
		_, err := svc.Mkdir(ctx, id, "", MkdirRequest{Name: "Docs"})
		assert.ErrorIs(t, err, core.ErrNameNotAvailable)
	})

	t.Run("parent is a file", func(t *testing.T) {
		_, err := svc.Mkdir(ctx, id, "", MkdirRequest{Parent: "docs/a.txt", Name: "x"})
		assert.ErrorIs(t, err, core.ErrInvalidArgument)
	})

	t.Run("missing link target", func(t *testing.T) {
		_, err := svc.CreateLink(ctx, id, "", CreateLinkRequest{Name: "dangling", Target: "gone"})
		assert.ErrorIs(t, err, core.ErrNotFound)
	})
}

func TestRename(t *testing.T) {
	ctx := context.Background()
	svc, id := newPopulatedNamespace(t)

	e, err := svc.Rename(ctx, id, "", RenameRequest{Path: "docs/a.txt", Name: "b"})
	require.NoError(t, err)
	assert.Equal(t, "/root/docs/b.txt", e.Path)

	view, err := svc.Stat(ctx, id, "", "link")
	require.NoError(t, err)
	assert.Equal(t, "/root/docs/b.txt", view.Target)

	_, err = svc.Rename(ctx, id, "", RenameRequest{Path: "docs", Name: "src"})
	assert.ErrorIs(t, err, core.ErrNameNotAvailable)

	_, err = svc.Rename(ctx, id, "", RenameRequest{Path: "docs", Name: "d.x"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Rename(ctx, id, "", RenameRequest{Path: "", Name: "other"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestStat_RefsResolveBack(t *testing.T) {
	ctx := context.Background()
	svc, id := newPopulatedNamespace(t)

	snap, err := svc.Tree(ctx, id, "")
	require.NoError(t, err)
	for _, e := range snap.Entries {
		view, err := svc.Stat(ctx, id, "", e.Ref)
		require.NoError(t, err, "ref %q", e.Ref)
		assert.Equal(t, e.ID, view.ID)
		assert.Equal(t, e.Ref, view.Ref)
	}

	link, err := svc.Stat(ctx, id, "", "link")
	require.NoError(t, err)
	assert.Equal(t, "/root/docs/a.txt", link.Target)
	assert.Equal(t, "docs/a.txt", link.TargetRef)
	target, err := svc.Stat(ctx, id, "", link.TargetRef)
	require.NoError(t, err)
	assert.Equal(t, "docs/a.txt", target.Ref)

	_, err = svc.Stat(ctx, id, "", link.Target)
	assert.ErrorIs(t, err, core.ErrNotFound, "absolute paths carry the root name")
}

func TestMove(t *testing.T) {
	ctx := context.Background()

	t.Run("file", func(t *testing.T) {
		svc, id := newPopulatedNamespace(t)

		e, err := svc.Move(ctx, id, "", MoveRequest{Path: "docs/a.txt", Destination: "src"})
		require.NoError(t, err)
		assert.Equal(t, "/root/src/a.txt", e.Path)
	})

	t.Run("directory", func(t *testing.T) {
		svc, id := newPopulatedNamespace(t)

		e, err := svc.Move(ctx, id, "", MoveRequest{Path: "docs", Destination: "src"})
		require.NoError(t, err)
		assert.Equal(t, "/root/src/docs", e.Path)
		assert.Equal(t, 2, e.Depth)

		view, err := svc.Stat(ctx, id, "", "link")
		require.NoError(t, err)
		assert.Equal(t, "/root/src/docs/a.txt", view.Target)
	})

	t.Run("directory into itself", func(t *testing.T) {
		svc, id := newPopulatedNamespace(t)

		_, err := svc.Move(ctx, id, "", MoveRequest{Path: "docs", Destination: "docs/sub"})
		assert.ErrorIs(t, err, core.ErrLoopedDirectory)

		view, err := svc.Stat(ctx, id, "", "docs")
		require.NoError(t, err)
		assert.Equal(t, "/root/docs", view.Path)
	})

	t.Run("directory into current parent", func(t *testing.T) {
		svc, id := newPopulatedNamespace(t)

		_, err := svc.Move(ctx, id, "", MoveRequest{Path: "docs/sub", Destination: "docs"})
		assert.ErrorIs(t, err, core.ErrInvalidArgument)
	})

	t.Run("name clash leaves both parents untouched", func(t *testing.T) {
		svc, id := newPopulatedNamespace(t)
		_, err := svc.Mkdir(ctx, id, "", MkdirRequest{Parent: "src", Name: "docs"})
		require.NoError(t, err)
		root, err := svc.Stat(ctx, id, "", "/")
		require.NoError(t, err)
		src, err := svc.Stat(ctx, id, "", "src")
		require.NoError(t, err)

		_, err = svc.Move(ctx, id, "", MoveRequest{Path: "docs", Destination: "src"})
		require.ErrorIs(t, err, core.ErrNameNotAvailable)
		var nerr *core.NodeError
		require.ErrorAs(t, err, &nerr)
		assert.Equal(t, "/root/docs", nerr.Path)

		view, err := svc.Stat(ctx, id, "", "docs/a.txt")
		require.NoError(t, err)
		assert.Equal(t, "/root/docs/a.txt", view.Path)

		after, err := svc.Stat(ctx, id, "", "/")
		require.NoError(t, err)
		assert.Equal(t, root.ModifiedAt, after.ModifiedAt)
		after, err = svc.Stat(ctx, id, "", "src")
		require.NoError(t, err)
		assert.Equal(t, src.ModifiedAt, after.ModifiedAt)
	})

	t.Run("read-only destination", func(t *testing.T) {
		svc, id := newPopulatedNamespace(t)
		_, err := svc.SetWritable(ctx, id, "", WritableRequest{Path: "src", Writable: false})
		require.NoError(t, err)
		root, err := svc.Stat(ctx, id, "", "/")
		require.NoError(t, err)

		_, err = svc.Move(ctx, id, "", MoveRequest{Path: "docs", Destination: "src"})
		require.ErrorIs(t, err, core.ErrNotWritable)
		var nerr *core.NodeError
		require.ErrorAs(t, err, &nerr)
		assert.Equal(t, "/root/src", nerr.Path)

		view, err := svc.Stat(ctx, id, "", "docs")
		require.NoError(t, err)
		assert.Equal(t, "/root/docs", view.Path)

		after, err := svc.Stat(ctx, id, "", "/")
		require.NoError(t, err)
		assert.Equal(t, root.ModifiedAt, after.ModifiedAt)
	})

	t.Run("root", func(t *testing.T) {
		svc, id := newPopulatedNamespace(t)

		_, err := svc.Move(ctx, id, "", MoveRequest{Path: "/", Destination: "src"})
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})
}

func TestResize(t *testing.T) {
	ctx := context.Background()
	svc, id := newPopulatedNamespace(t)

	e, err := svc.Resize(ctx, id, "", ResizeRequest{Path: "docs/a.txt", Delta: 5})
	require.NoError(t, err)
	assert.Equal(t, uint32(15), e.Size)
	assert.NotNil(t, e.ModifiedAt)

	e, err = svc.Resize(ctx, id, "", ResizeRequest{Path: "docs/a.txt", Delta: -15})
	require.NoError(t, err)
	assert.Zero(t, e.Size)

	tests := []struct {
		name string
		req  ResizeRequest
	}{
		{"zero delta", ResizeRequest{Path: "docs/a.txt", Delta: 0}},
		{"below zero", ResizeRequest{Path: "docs/a.txt", Delta: -1}},
		{"over limit", ResizeRequest{Path: "docs/a.txt", Delta: int64(core.MaxFileSize) + 1}},
		{"not a file", ResizeRequest{Path: "docs", Delta: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Resize(ctx, id, "", tt.req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}

	t.Run("read-only file", func(t *testing.T) {
		_, err := svc.SetWritable(ctx, id, "", WritableRequest{Path: "docs/a.txt", Writable: false})
		require.NoError(t, err)

		_, err = svc.Resize(ctx, id, "", ResizeRequest{Path: "docs/a.txt", Delta: 1})
		assert.ErrorIs(t, err, core.ErrNotWritable)
	})
}

func TestSetWritable(t *testing.T) {
	ctx := context.Background()
	svc, id := newPopulatedNamespace(t)

	e, err := svc.SetWritable(ctx, id, "", WritableRequest{Path: "docs", Writable: false})
	require.NoError(t, err)
	assert.False(t, e.Writable)

	err = svc.Terminate(ctx, id, "", TerminateRequest{Path: "docs/sub"})
	assert.ErrorIs(t, err, core.ErrNotWritable)

	_, err = svc.SetWritable(ctx, id, "", WritableRequest{Path: "link"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestTerminate(t *testing.T) {
	ctx := context.Background()

	t.Run("non-empty directory", func(t *testing.T) {
		svc, id := newPopulatedNamespace(t)

		err := svc.Terminate(ctx, id, "", TerminateRequest{Path: "docs"})
		assert.ErrorIs(t, err, core.ErrDirectoryNotEmpty)
	})

	t.Run("recursive", func(t *testing.T) {
		svc, id := newPopulatedNamespace(t)

		require.NoError(t, svc.Terminate(ctx, id, "", TerminateRequest{Path: "docs", Recursive: true}))

		_, err := svc.Stat(ctx, id, "", "docs")
		assert.ErrorIs(t, err, core.ErrNotFound)

		view, err := svc.Stat(ctx, id, "", "link")
		require.NoError(t, err)
		assert.True(t, view.Broken)
	})

	t.Run("recursive stops at read-only node", func(t *testing.T) {
		svc, id := newPopulatedNamespace(t)
		_, err := svc.SetWritable(ctx, id, "", WritableRequest{Path: "docs/sub", Writable: false})
		require.NoError(t, err)

		err = svc.Terminate(ctx, id, "", TerminateRequest{Path: "docs", Recursive: true})
		assert.ErrorIs(t, err, core.ErrNotWritable)

		_, err = svc.Stat(ctx, id, "", "docs/sub")
		assert.NoError(t, err)
	})

	t.Run("root", func(t *testing.T) {
		svc, id := newPopulatedNamespace(t)

		err := svc.Terminate(ctx, id, "", TerminateRequest{Path: "/", Recursive: true})
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	svc, id := newPopulatedNamespace(t)

	data, name, err := svc.Export(ctx, id, "", "docs")
	require.NoError(t, err)
	assert.Equal(t, "docs.zip", name)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"a.txt", "sub/"}, names)

	_, _, err = svc.Export(ctx, id, "", "docs/a.txt")
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}
