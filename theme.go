package mapcompare

import "fmt"

// Walk visits every leaf below root in tree order (top to bottom). Groups are
// descended into. A node of any other kind aborts the walk with
// ErrUnknownTreeNodeKind: a malformed tree is reported, never skipped. A
// non-nil error from fn also stops the walk and is returned as is.
func Walk(root *TreeNode, fn func(leaf *TreeNode) error) error {
	for _, child := range root.children {
		switch child.Kind {
		case KindGroup:
			if err := Walk(child, fn); err != nil {
				return err
			}
		case KindLeaf:
			if err := fn(child); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: node %q has kind %d", ErrUnknownTreeNodeKind, child.Name, uint8(child.Kind))
		}
	}
	return nil
}

// VisibleLayers returns the layers of all visible leaves below root, in tree
// order. A layer referenced by several visible leaves appears once.
func VisibleLayers(root *TreeNode) ([]*Layer, error) {
	var layers []*Layer
	seen := make(map[LayerID]bool)
	err := Walk(root, func(leaf *TreeNode) error {
		if !leaf.IsVisible() || leaf.layer == nil || seen[leaf.layer.ID] {
			return nil
		}
		seen[leaf.layer.ID] = true
		layers = append(layers, leaf.layer)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return layers, nil
}

// SetVisibleLayers checks every leaf referencing one of layers and unchecks
// every other leaf below root. Group check states are left alone.
func SetVisibleLayers(root *TreeNode, layers []*Layer) error {
	want := make(map[LayerID]bool, len(layers))
	for _, l := range layers {
		want[l.ID] = true
	}
	return Walk(root, func(leaf *TreeNode) error {
		leaf.SetVisible(want[leaf.LayerID()])
		return nil
	})
}

// captureTheme computes the layer set a secondary viewport should show for
// the given compare layers: the tree is switched to show only those layers,
// the visible set is read back, and the previous check states are restored.
// Every leaf's own check state is restored, not just the visible ones.
func captureTheme(root *TreeNode, compare []*Layer) ([]*Layer, error) {
	saved := make(map[*TreeNode]bool)
	if err := Walk(root, func(leaf *TreeNode) error {
		saved[leaf] = leaf.visible
		return nil
	}); err != nil {
		return nil, err
	}
	defer func() {
		for leaf, v := range saved {
			leaf.SetVisible(v)
		}
	}()

	if err := SetVisibleLayers(root, compare); err != nil {
		return nil, err
	}
	return VisibleLayers(root)
}
