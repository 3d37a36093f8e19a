package mapcompare

import (
	"errors"
	"fmt"
)

var (
	errNilLayer        = errors.New("mapcompare: nil layer")
	errLayerDisposed   = errors.New("mapcompare: layer is disposed")
	errLayerRegistered = errors.New("mapcompare: layer already registered")
)

// Project is an in-process LayerRepository: it owns registered layers, the
// layer tree, the project CRS and the map canvases drawing it. Hosts embedding
// the coordinator in a real GIS implement LayerRepository themselves; Project
// backs the headless example, scenario scripts and tests.
type Project struct {
	root   *TreeNode
	layers map[LayerID]*Layer
	order  []LayerID

	crs  string
	unit DistanceUnit

	canvases    []*MapCanvas
	observers   []*treeObserver
	injectQueue []syntheticInput
	script      *ScenarioRunner
}

type treeObserver struct {
	fn     func()
	active bool
}

// NewProject creates an empty project in the given CRS.
func NewProject(crs string, unit DistanceUnit) *Project {
	p := &Project{
		root:   NewGroup("root"),
		layers: make(map[LayerID]*Layer),
		crs:    crs,
		unit:   unit,
	}
	p.root.SetObserver(p.treeChanged)
	return p
}

// LayerTreeRoot implements LayerRepository.
func (p *Project) LayerTreeRoot() *TreeNode { return p.root }

// CRS implements LayerRepository.
func (p *Project) CRS() string { return p.crs }

// DistanceUnit implements LayerRepository.
func (p *Project) DistanceUnit() DistanceUnit { return p.unit }

// SetCRS changes the project CRS and its distance unit.
func (p *Project) SetCRS(crs string, unit DistanceUnit) {
	p.crs, p.unit = crs, unit
}

// SetDebugMode enables or disables debug checks (disposed-access panics and
// tree depth warnings).
func (p *Project) SetDebugMode(enabled bool) {
	globalDebug = enabled
}

// AddLayer implements LayerRepository.
func (p *Project) AddLayer(layer *Layer, insertIntoDefaultTree bool) error {
	switch {
	case layer == nil:
		return errNilLayer
	case layer.IsDisposed():
		return fmt.Errorf("%w: %q", errLayerDisposed, layer.Name)
	case p.layers[layer.ID] != nil:
		return fmt.Errorf("%w: %q (id %d)", errLayerRegistered, layer.Name, layer.ID)
	}
	p.layers[layer.ID] = layer
	p.order = append(p.order, layer.ID)
	layer.onRepaint = p.layerRepainted
	if insertIntoDefaultTree {
		p.root.AddLayer(layer)
	}
	return nil
}

// RemoveLayer implements LayerRepository. Unknown ids are ignored.
func (p *Project) RemoveLayer(id LayerID) {
	layer := p.layers[id]
	if layer == nil {
		return
	}
	for _, leaf := range p.leavesOf(p.root, id, nil) {
		leaf.Dispose()
	}
	delete(p.layers, id)
	for i, v := range p.order {
		if v == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	layer.dispose()
}

// FindLayerByName implements LayerRepository. The earliest registered layer
// wins if several share the name.
func (p *Project) FindLayerByName(name string) *Layer {
	for _, id := range p.order {
		if l := p.layers[id]; l.Name == name {
			return l
		}
	}
	return nil
}

// Layer returns the registered layer with the given id, or nil.
func (p *Project) Layer(id LayerID) *Layer {
	return p.layers[id]
}

// Layers returns the registered layers in registration order.
func (p *Project) Layers() []*Layer {
	out := make([]*Layer, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.layers[id])
	}
	return out
}

// NumLayers returns the number of registered layers.
func (p *Project) NumLayers() int { return len(p.order) }

// OnTreeChanged registers fn to run after every layer tree mutation and
// returns a function removing it.
func (p *Project) OnTreeChanged(fn func()) (unsubscribe func()) {
	o := &treeObserver{fn: fn, active: true}
	p.observers = append(p.observers, o)
	return func() {
		if !o.active {
			return
		}
		o.active = false
		for i, v := range p.observers {
			if v == o {
				p.observers = append(p.observers[:i], p.observers[i+1:]...)
				return
			}
		}
	}
}

func (p *Project) treeChanged() {
	for _, o := range append([]*treeObserver(nil), p.observers...) {
		if o.active {
			o.fn()
		}
	}
}

// AttachCanvas makes Update advance c. Canvases created by a CanvasDock are
// attached automatically.
func (p *Project) AttachCanvas(c *MapCanvas) {
	for _, v := range p.canvases {
		if v == c {
			return
		}
	}
	p.canvases = append(p.canvases, c)
}

// Canvases returns the attached canvases.
func (p *Project) Canvases() []*MapCanvas {
	return append([]*MapCanvas(nil), p.canvases...)
}

// Update runs one frame: it steps an attached scenario, consumes one injected
// input, then advances layer refresh clocks and canvas animations by dt
// seconds. Call it once per frame from the host loop.
func (p *Project) Update(dt float32) {
	if p.script != nil {
		p.script.step(p)
	}
	p.processInjectedInput()
	for _, id := range append([]LayerID(nil), p.order...) {
		if l := p.layers[id]; l != nil {
			l.advance(dt)
		}
	}
	for _, c := range p.canvases {
		c.update(dt)
	}
}

// layerRepainted marks every visible canvas showing layer for redraw.
func (p *Project) layerRepainted(layer *Layer) {
	for _, c := range p.canvases {
		if c.Visible() && c.shows(layer) {
			c.pending = true
		}
	}
}

// leavesOf appends every leaf under n that references id.
func (p *Project) leavesOf(n *TreeNode, id LayerID, out []*TreeNode) []*TreeNode {
	for _, child := range n.Children() {
		switch child.Kind {
		case KindLeaf:
			if child.LayerID() == id {
				out = append(out, child)
			}
		case KindGroup:
			out = p.leavesOf(child, id, out)
		}
	}
	return out
}
