package mapcompare

// NodeKind tags a layer tree node as a group or a leaf.
type NodeKind uint8

const (
	KindGroup NodeKind = iota // holds child nodes, no layer
	KindLeaf                  // references exactly one layer
)

func (k NodeKind) String() string {
	switch k {
	case KindGroup:
		return "group"
	case KindLeaf:
		return "leaf"
	}
	return "unknown"
}

// TreeNode is an element of the layer tree. A single struct is used for both
// kinds; Kind decides which fields are meaningful. Groups own children, leaves
// reference a Layer that lives in the LayerRepository.
type TreeNode struct {
	Kind NodeKind
	Name string

	Parent   *TreeNode
	children []*TreeNode

	layer *Layer

	// visible is the node's own check state; IsVisible also consults ancestors.
	visible bool

	// observer is only set on tree roots; every mutation below reports to it.
	observer func()

	disposed bool
}

// NewGroup creates an empty, visible group node.
func NewGroup(name string) *TreeNode {
	return &TreeNode{Kind: KindGroup, Name: name, visible: true}
}

// NewLeaf creates a visible leaf node referencing layer.
// Panics if layer is nil.
func NewLeaf(layer *Layer) *TreeNode {
	if layer == nil {
		panic("mapcompare: cannot create leaf for nil layer")
	}
	return &TreeNode{Kind: KindLeaf, Name: layer.Name, layer: layer, visible: true}
}

// Layer returns the referenced layer, or nil for groups.
func (n *TreeNode) Layer() *Layer {
	return n.layer
}

// LayerID returns the referenced layer's id, or 0 for groups.
func (n *TreeNode) LayerID() LayerID {
	if n.layer == nil {
		return 0
	}
	return n.layer.ID
}

// --- Tree manipulation ---

// AddChild appends child to this group.
// If child already has a parent, it is removed from that parent first.
// Panics if n is not a group, child is nil, or child is an ancestor of n.
func (n *TreeNode) AddChild(child *TreeNode) {
	n.AddChildAt(child, len(n.children))
}

// AddChildAt inserts child at the given index (0 is the top of the group).
// Same reparenting and cycle-check behavior as AddChild.
func (n *TreeNode) AddChildAt(child *TreeNode, index int) {
	if child == nil {
		panic("mapcompare: cannot add nil child")
	}
	if globalDebug {
		debugCheckDisposed(n, "AddChildAt (parent)")
		debugCheckDisposed(child, "AddChildAt (child)")
	}
	if n.Kind != KindGroup {
		panic("mapcompare: cannot add child to a non-group node")
	}
	if isAncestor(child, n) {
		panic("mapcompare: adding child would create a cycle")
	}
	if old := child.Parent; old != nil {
		old.removeChildByPtr(child)
		child.Parent = nil
		if old == n && index > len(n.children) {
			index = len(n.children)
		}
		if old.Root() != n.Root() {
			old.notify()
		}
	}
	if index < 0 || index > len(n.children) {
		panic("mapcompare: child index out of range")
	}
	child.Parent = n
	n.children = append(n.children, nil)
	copy(n.children[index+1:], n.children[index:])
	n.children[index] = child
	if globalDebug {
		debugCheckTreeDepth(child)
	}
	n.notify()
}

// AddLayer appends a new leaf for layer and returns it.
func (n *TreeNode) AddLayer(layer *Layer) *TreeNode {
	leaf := NewLeaf(layer)
	n.AddChild(leaf)
	return leaf
}

// InsertLayer inserts a new leaf for layer at index and returns it.
func (n *TreeNode) InsertLayer(index int, layer *Layer) *TreeNode {
	leaf := NewLeaf(layer)
	n.AddChildAt(leaf, index)
	return leaf
}

// RemoveChild detaches child from this node.
// Panics if child.Parent != n.
func (n *TreeNode) RemoveChild(child *TreeNode) {
	if child.Parent != n {
		panic("mapcompare: child's parent is not this node")
	}
	n.removeChildByPtr(child)
	child.Parent = nil
	n.notify()
}

// RemoveChildAt removes and returns the child at the given index.
func (n *TreeNode) RemoveChildAt(index int) *TreeNode {
	if index < 0 || index >= len(n.children) {
		panic("mapcompare: child index out of range")
	}
	child := n.children[index]
	copy(n.children[index:], n.children[index+1:])
	n.children[len(n.children)-1] = nil
	n.children = n.children[:len(n.children)-1]
	child.Parent = nil
	n.notify()
	return child
}

// RemoveFromParent detaches this node from its parent.
// No-op if this node has no parent.
func (n *TreeNode) RemoveFromParent() {
	if n.Parent == nil {
		return
	}
	n.Parent.RemoveChild(n)
}

// RemoveChildren detaches all children from this node. Children are NOT
// disposed.
func (n *TreeNode) RemoveChildren() {
	if len(n.children) == 0 {
		return
	}
	for _, child := range n.children {
		child.Parent = nil
	}
	clear(n.children)
	n.children = n.children[:0]
	n.notify()
}

// Children returns the child list. The returned slice MUST NOT be mutated by
// the caller.
func (n *TreeNode) Children() []*TreeNode {
	return n.children
}

// NumChildren returns the number of children.
func (n *TreeNode) NumChildren() int {
	return len(n.children)
}

// ChildAt returns the child at the given index.
func (n *TreeNode) ChildAt(index int) *TreeNode {
	return n.children[index]
}

// IndexOf returns the index of child among n's children, or -1.
func (n *TreeNode) IndexOf(child *TreeNode) int {
	for i, c := range n.children {
		if c == child {
			return i
		}
	}
	return -1
}

// --- Lookup ---

// FindGroup returns the first group named name in the subtree below n,
// searching depth first. Returns nil if there is none.
func (n *TreeNode) FindGroup(name string) *TreeNode {
	for _, c := range n.children {
		if c.Kind != KindGroup {
			continue
		}
		if c.Name == name {
			return c
		}
		if g := c.FindGroup(name); g != nil {
			return g
		}
	}
	return nil
}

// FindLayer returns the first leaf in the subtree below n referencing id.
func (n *TreeNode) FindLayer(id LayerID) *TreeNode {
	for _, c := range n.children {
		if c.Kind == KindLeaf && c.LayerID() == id {
			return c
		}
		if c.Kind == KindGroup {
			if found := c.FindLayer(id); found != nil {
				return found
			}
		}
	}
	return nil
}

// ContainsLayer reports whether a direct child of n references id.
func (n *TreeNode) ContainsLayer(id LayerID) bool {
	for _, c := range n.children {
		if c.Kind == KindLeaf && c.LayerID() == id {
			return true
		}
	}
	return false
}

// Root returns the topmost ancestor of n.
func (n *TreeNode) Root() *TreeNode {
	r := n
	for r.Parent != nil {
		r = r.Parent
	}
	return r
}

// --- Visibility ---

// SetVisible sets the node's own check state.
func (n *TreeNode) SetVisible(v bool) {
	if n.visible == v {
		return
	}
	n.visible = v
	n.notify()
}

// Checked returns the node's own check state, ignoring ancestors.
func (n *TreeNode) Checked() bool {
	return n.visible
}

// IsVisible reports whether the node and all its ancestors are checked.
func (n *TreeNode) IsVisible() bool {
	for p := n; p != nil; p = p.Parent {
		if !p.visible {
			return false
		}
	}
	return true
}

// --- Observation ---

// SetObserver installs fn to be called synchronously after every mutation of
// the tree rooted at n. Pass nil to remove it.
func (n *TreeNode) SetObserver(fn func()) {
	n.observer = fn
}

func (n *TreeNode) notify() {
	if fn := n.Root().observer; fn != nil {
		fn()
	}
}

// --- Disposal ---

// Dispose removes this node from its parent, marks it and all descendants as
// disposed. Referenced layers are not touched.
func (n *TreeNode) Dispose() {
	if n.disposed {
		return
	}
	n.RemoveFromParent()
	n.dispose()
}

func (n *TreeNode) dispose() {
	n.disposed = true
	for _, child := range n.children {
		child.Parent = nil
		child.dispose()
	}
	n.children = nil
	n.Parent = nil
	n.layer = nil
	n.observer = nil
}

// IsDisposed returns true if this node has been disposed.
func (n *TreeNode) IsDisposed() bool {
	return n.disposed
}

// --- Helpers ---

// isAncestor reports whether candidate is node or one of its ancestors.
func isAncestor(candidate, node *TreeNode) bool {
	for p := node; p != nil; p = p.Parent {
		if p == candidate {
			return true
		}
	}
	return false
}

// removeChildByPtr removes child from n.children without clearing
// child.Parent. Uses copy+nil to avoid retaining a dangling pointer in the
// backing array.
func (n *TreeNode) removeChildByPtr(child *TreeNode) {
	for i, c := range n.children {
		if c == child {
			copy(n.children[i:], n.children[i+1:])
			n.children[len(n.children)-1] = nil
			n.children = n.children[:len(n.children)-1]
			return
		}
	}
}
