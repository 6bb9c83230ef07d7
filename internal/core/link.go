package core

// Link refers to another node without owning it. The target is fixed at
// construction and is never a Link.
type Link struct {
	node
	target Node
	broken bool
}

// NewLink creates a link to target inside parent.
func NewLink(parent *Dir, name string, target Node) (*Link, error) {
	o := buildOptions(parent, nil)
	l := &Link{}
	l.init(l, name, IsValidName, o.clock)
	if target == nil {
		return nil, opError("link", l, ErrInvalidArgument)
	}
	if _, ok := target.(*Link); ok {
		return nil, opError("link", l, ErrInvalidArgument)
	}
	if target.IsTerminated() {
		return nil, opError("link", target, ErrReferenceDeleted)
	}
	l.target = target
	if err := attach("link", parent, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Link) Type() NodeType   { return TypeLink }
func (l *Link) IsWritable() bool { return true }
func (l *Link) Target() Node     { return l.target }

// State reports whether the target is still live. Once the target has been
// seen terminated the link stays broken.
func (l *Link) State() bool {
	if !l.broken && l.target.IsTerminated() {
		l.broken = true
	}
	return !l.broken
}

func (l *Link) Move(dst *Dir) error {
	return moveLeaf(l, dst)
}
