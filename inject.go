package mapcompare

type inputKind uint8

const (
	inputCursor inputKind = iota
	inputLeave
	inputPan
	inputZoom
)

// syntheticInput is a single injected navigation event for one canvas.
// Screen coordinates are used, matching what a user interacts with.
type syntheticInput struct {
	canvas *MapCanvas
	kind   inputKind
	x, y   float64 // cursor position or pan delta in pixels
	factor float64 // zoom factor, >1 zooms in
}

// InjectCursor queues a cursor move to screen position (x, y) on c. The
// event is consumed on the next Update.
func (p *Project) InjectCursor(c *MapCanvas, x, y float64) {
	p.injectQueue = append(p.injectQueue, syntheticInput{canvas: c, kind: inputCursor, x: x, y: y})
}

// InjectLeave queues the cursor leaving c.
func (p *Project) InjectLeave(c *MapCanvas) {
	p.injectQueue = append(p.injectQueue, syntheticInput{canvas: c, kind: inputLeave})
}

// InjectPan queues a drag of the map by (dx, dy) pixels spread evenly over
// frames frames. Dragging right moves the center left, as with a mouse.
func (p *Project) InjectPan(c *MapCanvas, dx, dy float64, frames int) {
	if frames < 1 {
		frames = 1
	}
	for i := 0; i < frames; i++ {
		p.injectQueue = append(p.injectQueue, syntheticInput{
			canvas: c, kind: inputPan,
			x: dx / float64(frames), y: dy / float64(frames),
		})
	}
}

// InjectZoom queues a zoom by factor around the canvas center. Factors above
// one zoom in. Non-positive factors are ignored.
func (p *Project) InjectZoom(c *MapCanvas, factor float64) {
	if factor <= 0 {
		return
	}
	p.injectQueue = append(p.injectQueue, syntheticInput{canvas: c, kind: inputZoom, factor: factor})
}

// PendingInput returns the number of queued injected events.
func (p *Project) PendingInput() int { return len(p.injectQueue) }

// processInjectedInput pops one event from the inject queue and applies it
// to its canvas. Returns true if an event was consumed.
func (p *Project) processInjectedInput() bool {
	if len(p.injectQueue) == 0 {
		return false
	}
	evt := p.injectQueue[0]
	copy(p.injectQueue, p.injectQueue[1:])
	p.injectQueue = p.injectQueue[:len(p.injectQueue)-1]

	c := evt.canvas
	if c == nil {
		return true
	}
	switch evt.kind {
	case inputCursor:
		c.SetCursor(evt.x, evt.y)
	case inputLeave:
		c.ClearCursor()
	case inputPan:
		px := c.PixelSize()
		center := c.Center()
		// Screen y points down, map y up.
		c.SetCenter(Vec2{X: center.X - evt.x*px, Y: center.Y + evt.y*px})
	case inputZoom:
		c.ZoomToScale(c.Scale() / evt.factor)
	}
	return true
}
