package mapcompare

// ViewportEvent selects which viewport change a subscription listens to.
type ViewportEvent uint8

const (
	EventExtentChanged ViewportEvent = iota // center or size changed
	EventScaleChanged                       // scale changed
)

// Viewport is an independently navigable map display. Setting the center or
// scale programmatically raises the matching change event synchronously,
// exactly like a user pan or zoom would.
type Viewport interface {
	Center() Vec2
	Scale() float64
	SetCenter(c Vec2)
	ZoomToScale(scale float64)
	// CursorMapPosition returns the cursor position in map units; ok is false
	// when the cursor is outside the viewport.
	CursorMapPosition() (pos Vec2, ok bool)
	// Extent returns the visible area in map units.
	Extent() Rect
	// Subscribe registers fn for event and returns a function removing the
	// subscription. Calling the returned function more than once is a no-op.
	Subscribe(event ViewportEvent, fn func()) (unsubscribe func())
	Refresh()
}

// SecondaryViewport is the dockable viewport used by mirror mode.
type SecondaryViewport interface {
	Viewport
	// SetTheme restricts the viewport to the given layers under a named theme.
	SetTheme(name string, layers []*Layer)
	Hide()
}

// ViewportFactory creates or retrieves the secondary viewport titled title.
type ViewportFactory interface {
	SecondaryViewport(title string) (SecondaryViewport, error)
}

// LayerRepository is the project that owns layers and the layer tree.
type LayerRepository interface {
	// AddLayer registers layer. When insertIntoDefaultTree is true a leaf is
	// also appended to the root of the layer tree.
	AddLayer(layer *Layer, insertIntoDefaultTree bool) error
	// RemoveLayer unregisters the layer and removes every leaf referencing it.
	RemoveLayer(id LayerID)
	FindLayerByName(name string) *Layer
	DistanceUnit() DistanceUnit
	// CRS returns the project coordinate reference system authority id.
	CRS() string
	LayerTreeRoot() *TreeNode
}

// RenderEngine builds styles from geometry expressions.
type RenderEngine interface {
	NewStyle(spec StyleSpec) (*Style, error)
}

// TransitionEvent describes one completed or failed coordinator operation.
type TransitionEvent struct {
	From   Mode
	To     Mode
	Layers int
	Err    error
}

// EventSink receives coordinator transitions, e.g. to drive UI state or an
// ECS world.
type EventSink interface {
	EmitTransition(event TransitionEvent)
}
