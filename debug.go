package mapcompare

import "fmt"

// globalDebug mirrors the most recently set Project debug flag so that tree
// operations (which lack a Project pointer) can check it cheaply. Only valid
// with a single Project; multiple Projects with differing debug modes will
// reflect whichever called SetDebugMode last.
var globalDebug bool

// debugCheckDisposed panics with a descriptive message when a disposed node is
// used in a tree operation. Callers skip this entirely outside debug mode.
func debugCheckDisposed(n *TreeNode, op string) {
	if n.disposed {
		panic(fmt.Sprintf("mapcompare debug: %s on disposed %s node %q", op, n.Kind, n.Name))
	}
}

// debugMaxTreeDepth is the depth past which a warning is logged.
const debugMaxTreeDepth = 32

func debugCheckTreeDepth(n *TreeNode) {
	depth := 0
	for p := n; p != nil; p = p.Parent {
		depth++
	}
	if depth > debugMaxTreeDepth {
		Logger().Warn("layer tree depth exceeds threshold",
			"depth", depth, "threshold", debugMaxTreeDepth, "node", n.Name)
	}
}

// debugCheckLayer panics when a disposed layer is handed to a repository or
// style operation.
func debugCheckLayer(l *Layer, op string) {
	if l.disposed {
		panic(fmt.Sprintf("mapcompare debug: %s on disposed layer %q (ID %d)", op, l.Name, l.ID))
	}
}
