package core

import "time"

// Entry describes one node of a snapshot. Path and Target are absolute and
// start with the root's own name ("/root/docs/a.txt"); Ref and TargetRef are the
// same locations relative to the described root, in the form Resolve accepts.
type Entry struct {
	ID         string     `json:"id" yaml:"id"`
	Type       string     `json:"type" yaml:"type"`
	Name       string     `json:"name" yaml:"name"`
	Path       string     `json:"path" yaml:"path"`
	Ref        string     `json:"ref" yaml:"ref"`
	Depth      int        `json:"depth" yaml:"depth"`
	Writable   bool       `json:"writable" yaml:"writable"`
	Kind       string     `json:"kind,omitempty" yaml:"kind,omitempty"`
	Size       uint32     `json:"size,omitempty" yaml:"size,omitempty"`
	Children   int        `json:"children,omitempty" yaml:"children,omitempty"`
	Target     string     `json:"target,omitempty" yaml:"target,omitempty"`
	TargetRef  string     `json:"target_ref,omitempty" yaml:"target_ref,omitempty"`
	Broken     bool       `json:"broken,omitempty" yaml:"broken,omitempty"`
	CreatedAt  time.Time  `json:"created_at" yaml:"created_at"`
	ModifiedAt *time.Time `json:"modified_at,omitempty" yaml:"modified_at,omitempty"`
}

// Snapshot is a flattened, point-in-time view of a directory subtree.
type Snapshot struct {
	Root            string    `json:"root" yaml:"root"`
	CreatedAt       time.Time `json:"created_at" yaml:"created_at"`
	TotalChildCount int       `json:"total_child_count" yaml:"total_child_count"`
	DiskUsage       uint64    `json:"disk_usage" yaml:"disk_usage"`
	Entries         []Entry   `json:"entries" yaml:"entries"`
}

func TakeSnapshot(root *Dir) *Snapshot {
	nodes := FlattenTree(root)
	entries := make([]Entry, 0, len(nodes))
	for _, n := range nodes {
		entries = append(entries, DescribeBelow(root, n))
	}
	return &Snapshot{
		Root:            root.AbsolutePath(),
		CreatedAt:       root.clock.Now(),
		TotalChildCount: root.TotalChildCount(),
		DiskUsage:       root.TotalDiskUsage(),
		Entries:         entries,
	}
}

// FlattenTree lists root and every node below it, depth first, children in
// sorted order.
func FlattenTree(root *Dir) []Node {
	var out []Node
	var walk func(n Node)
	walk = func(n Node) {
		out = append(out, n)
		if d, ok := n.(*Dir); ok {
			for _, c := range d.children {
				walk(c)
			}
		}
	}
	walk(root)
	return out
}

// Describe summarizes a single node.
func Describe(n Node, depth int) Entry {
	e := Entry{
		ID:        n.ID(),
		Type:      n.Type().String(),
		Name:      n.Name(),
		Path:      n.AbsolutePath(),
		Depth:     depth,
		Writable:  n.IsWritable(),
		CreatedAt: n.CreatedAt(),
	}
	if m, ok := n.ModifiedAt(); ok {
		e.ModifiedAt = &m
	}
	switch v := n.(type) {
	case *Dir:
		e.Children = len(v.children)
	case *File:
		e.Kind = v.kind.String()
		e.Size = v.size
	case *Link:
		if v.State() {
			e.Target = v.target.AbsolutePath()
		} else {
			e.Broken = true
		}
	}
	return e
}

// DescribeBelow is Describe with the depth and refs of n taken from root.
func DescribeBelow(root *Dir, n Node) Entry {
	e := Describe(n, depthBelow(root, n))
	e.Ref = refBelow(root, n)
	if l, ok := n.(*Link); ok && l.State() {
		e.TargetRef = refBelow(root, l.target)
	}
	return e
}

// refBelow is RelativePath with a file's extension kept on the last
// segment, matching the spelling of AbsolutePath.
func refBelow(root *Dir, n Node) string {
	ref, ok := RelativePath(root, n)
	if !ok {
		return ""
	}
	if f, isFile := n.(*File); isFile {
		ref += f.kind.Extension()
	}
	return ref
}

func depthBelow(root *Dir, n Node) int {
	depth := 0
	for p := n.Parent(); p != nil && n != Node(root); p = p.Parent() {
		depth++
		if p == root {
			break
		}
	}
	return depth
}
