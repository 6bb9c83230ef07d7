package core

import (
	"path"
	"strings"
)

// Resolve walks a slash-separated path of names starting at d. Lookups are
// case-insensitive; "" and "/" resolve to d itself. A final segment may
// carry a file's extension ("report.pdf" finds file "report" of kind pdf).
func Resolve(d *Dir, p string) (Node, error) {
	var cur Node = d
	segs := splitPath(p)
	for i, seg := range segs {
		dir, ok := cur.(*Dir)
		if !ok {
			return nil, &NodeError{Op: "resolve", Path: p, Err: ErrNotFound}
		}
		next, ok := lookupSegment(dir, seg, i == len(segs)-1)
		if !ok {
			return nil, &NodeError{Op: "resolve", Path: p, Err: ErrNotFound}
		}
		cur = next
	}
	return cur, nil
}

// ResolveDir is Resolve restricted to directories.
func ResolveDir(d *Dir, p string) (*Dir, error) {
	n, err := Resolve(d, p)
	if err != nil {
		return nil, err
	}
	dir, ok := n.(*Dir)
	if !ok {
		return nil, &NodeError{Op: "resolve", Path: p, Err: ErrInvalidArgument}
	}
	return dir, nil
}

// RelativePath returns the path of n below d, or false when n is not inside d.
func RelativePath(d *Dir, n Node) (string, bool) {
	if n == Node(d) {
		return "", true
	}
	if !n.IsDirectOrIndirectChildOf(d) {
		return "", false
	}
	segs := []string{n.Name()}
	for p := n.Parent(); p != d; p = p.Parent() {
		segs = append(segs, p.Name())
	}
	var b strings.Builder
	for i := len(segs) - 1; i >= 0; i-- {
		b.WriteString(segs[i])
		if i > 0 {
			b.WriteByte('/')
		}
	}
	return b.String(), true
}

func splitPath(p string) []string {
	var segs []string
	for _, s := range strings.Split(p, "/") {
		if s == "" || s == "." {
			continue
		}
		segs = append(segs, s)
	}
	return segs
}

func lookupSegment(d *Dir, seg string, last bool) (Node, bool) {
	if n, ok := d.Item(seg); ok {
		return n, true
	}
	if !last {
		return nil, false
	}
	ext := path.Ext(seg)
	kind, known := KindForExtension(ext)
	if !known {
		return nil, false
	}
	n, ok := d.Item(strings.TrimSuffix(seg, ext))
	if !ok {
		return nil, false
	}
	if f, isFile := n.(*File); isFile && f.kind == kind {
		return f, true
	}
	return nil, false
}
