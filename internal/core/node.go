package core

import (
	"regexp"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

// DefaultName replaces an invalid name supplied at construction.
const DefaultName = "new_file"

var (
	validNodeName = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
	validDirName  = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// IsValidName reports whether name is legal for a file or link.
func IsValidName(name string) bool {
	return validNodeName.MatchString(name)
}

// IsValidDirName reports whether name is legal for a directory. Directory
// names may not contain dots.
func IsValidDirName(name string) bool {
	return validDirName.MatchString(name)
}

type NodeType int

const (
	TypeDir NodeType = iota
	TypeFile
	TypeLink
)

func (t NodeType) String() string {
	switch t {
	case TypeDir:
		return "dir"
	case TypeFile:
		return "file"
	case TypeLink:
		return "link"
	}
	return "unknown"
}

// Node is an entry of the namespace: a *Dir, *File or *Link.
type Node interface {
	ID() string
	Name() string
	Type() NodeType
	Parent() *Dir
	CreatedAt() time.Time
	// ModifiedAt returns false until the node is first mutated.
	ModifiedAt() (time.Time, bool)
	IsTerminated() bool
	IsWritable() bool

	Root() Node
	AbsolutePath() string
	IsDirectOrIndirectChildOf(d *Dir) bool
	HasOverlappingUsePeriod(other Node) bool

	ChangeName(name string) error
	Move(dst *Dir) error
	Terminate() error

	base() *node
}

// node holds the state shared by every kind. self points back at the
// concrete value embedding it.
type node struct {
	self       Node
	id         string
	name       string
	validName  func(string) bool
	clock      clock.Clock
	createdAt  time.Time
	modifiedAt time.Time
	modified   bool
	terminated bool
	parent     *Dir
}

func (n *node) init(self Node, name string, valid func(string) bool, clk clock.Clock) {
	n.self = self
	n.id = uuid.NewString()
	n.validName = valid
	n.clock = clk
	n.createdAt = clk.Now()
	n.setName(name)
}

func (n *node) base() *node { return n }

func (n *node) setName(name string) {
	if n.validName(name) {
		n.name = name
	} else {
		n.name = DefaultName
	}
}

func (n *node) touch() {
	n.modifiedAt = n.clock.Now()
	n.modified = true
}

func (n *node) ID() string           { return n.id }
func (n *node) Name() string         { return n.name }
func (n *node) Parent() *Dir         { return n.parent }
func (n *node) CreatedAt() time.Time { return n.createdAt }
func (n *node) IsTerminated() bool   { return n.terminated }

func (n *node) ModifiedAt() (time.Time, bool) {
	return n.modifiedAt, n.modified
}

func (n *node) Root() Node {
	cur := n.self
	for {
		p := cur.Parent()
		if p == nil {
			return cur
		}
		cur = p
	}
}

func (n *node) AbsolutePath() string {
	segs := []string{n.name}
	for p := n.parent; p != nil; p = p.parent {
		segs = append(segs, p.name)
	}
	var b strings.Builder
	for i := len(segs) - 1; i >= 0; i-- {
		b.WriteByte('/')
		b.WriteString(segs[i])
	}
	return b.String()
}

func (n *node) IsDirectOrIndirectChildOf(d *Dir) bool {
	if d == nil {
		return false
	}
	for p := n.parent; p != nil; p = p.parent {
		if p == d {
			return true
		}
	}
	return false
}

// HasOverlappingUsePeriod reports whether the [created, modified] intervals
// of both nodes intersect. Nodes that were never modified overlap nothing.
func (n *node) HasOverlappingUsePeriod(other Node) bool {
	if other == nil {
		return false
	}
	m1, ok1 := n.ModifiedAt()
	m2, ok2 := other.ModifiedAt()
	if !ok1 || !ok2 {
		return false
	}
	c1, c2 := n.createdAt, other.CreatedAt()
	endsBeforeOther := !c1.After(c2) && !m1.After(c2)
	otherEndsBefore := !c2.After(c1) && !m2.After(c1)
	return !(endsBeforeOther || otherEndsBefore)
}

// ChangeName renames the node when name is valid for its kind. An invalid
// name is ignored and the old name kept.
func (n *node) ChangeName(name string) error {
	const op = "rename"
	if n.terminated {
		return opError(op, n.self, ErrInvalidArgument)
	}
	if !n.self.IsWritable() {
		return opError(op, n.self, ErrNotWritable)
	}
	if !n.validName(name) {
		return nil
	}
	if p := n.parent; p != nil {
		if other, ok := p.Item(name); ok && other != n.self {
			return opError(op, n.self, ErrNameNotAvailable)
		}
	}
	n.name = name
	n.touch()
	if n.parent != nil {
		n.parent.sortChildren()
	}
	return nil
}

// Terminate detaches the node from its parent and marks it dead. Terminating
// a node twice panics.
func (n *node) Terminate() error {
	if n.terminated {
		panic("core: terminate on terminated node " + n.name)
	}
	if p := n.parent; p != nil {
		if !p.writable {
			return opError("terminate", p, ErrNotWritable)
		}
		p.remove(n.self)
	}
	n.terminated = true
	n.parent = nil
	return nil
}

// attach links a freshly constructed node into parent.
func attach(op string, parent *Dir, n Node) error {
	if parent == nil || parent.terminated {
		return opError(op, n, ErrInvalidArgument)
	}
	if parent.ContainsName(n.Name()) {
		return opError(op, n, ErrNameNotAvailable)
	}
	if err := parent.add(n); err != nil {
		return err
	}
	n.base().parent = parent
	return nil
}

// moveLeaf implements Move for files and links.
func moveLeaf(n Node, dst *Dir) error {
	const op = "move"
	b := n.base()
	if b.terminated || dst == nil || dst.terminated || dst == b.parent {
		return opError(op, n, ErrInvalidArgument)
	}
	if !dst.writable {
		return opError(op, dst, ErrNotWritable)
	}
	if b.parent != nil && !b.parent.writable {
		return opError(op, b.parent, ErrNotWritable)
	}
	if dst.ContainsName(b.name) {
		return opError(op, n, ErrNameNotAvailable)
	}
	old := b.parent
	if err := dst.add(n); err != nil {
		return err
	}
	if old != nil {
		old.remove(n)
	}
	b.parent = dst
	dst.touch()
	return nil
}

// Option configures a node at construction.
type Option func(*options)

type options struct {
	writable bool
	size     uint32
	clock    clock.Clock
}

// ReadOnly creates the directory or file without write permission.
func ReadOnly() Option {
	return func(o *options) { o.writable = false }
}

// WithSize sets the initial size of a file.
func WithSize(size uint32) Option {
	return func(o *options) { o.size = size }
}

// WithClock sets the time source. Children inherit their parent's clock.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

func buildOptions(parent *Dir, opts []Option) options {
	o := options{writable: true}
	if parent != nil {
		o.clock = parent.clock
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = clock.New()
	}
	return o
}
