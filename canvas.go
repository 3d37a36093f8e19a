package mapcompare

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// DefaultDPI is the screen resolution MapCanvas assumes when converting map
// scales to map units per pixel.
const DefaultDPI = 96

const metersPerInch = 0.0254

// MapCanvas is an in-process Viewport: a screen rectangle showing the map at
// a center and scale. Programmatic changes raise change events synchronously,
// in registration order, just like user navigation would.
type MapCanvas struct {
	// Title names the canvas; secondary canvases are looked up by it.
	Title string
	// Viewport is the screen-space rectangle the canvas occupies, in pixels.
	Viewport Rect
	// DPI converts scale denominators to pixel sizes.
	DPI float64

	center Vec2
	scale  float64

	cursor       Vec2 // screen coordinates
	cursorInside bool

	subs map[ViewportEvent][]*subscription

	visible     bool
	theme       string
	themeLayers []*Layer

	renders int
	pending bool

	scroll *scrollAnim
	zoom   *gween.Tween

	viewMatrix    [6]float64
	invViewMatrix [6]float64
	dirty         bool
}

type subscription struct {
	fn     func()
	active bool
}

// scrollAnim holds active scroll-to tweens for the center X and Y.
type scrollAnim struct {
	tweenX *gween.Tween
	tweenY *gween.Tween
	doneX  bool
	doneY  bool
}

// NewMapCanvas creates a visible canvas covering viewport, centered on center
// at the given scale denominator.
func NewMapCanvas(title string, viewport Rect, center Vec2, scale float64) *MapCanvas {
	if scale <= 0 {
		scale = 1
	}
	return &MapCanvas{
		Title:    title,
		Viewport: viewport,
		DPI:      DefaultDPI,
		center:   center,
		scale:    scale,
		subs:     make(map[ViewportEvent][]*subscription),
		visible:  true,
		dirty:    true,
	}
}

// Center implements Viewport.
func (c *MapCanvas) Center() Vec2 { return c.center }

// Scale implements Viewport. It returns the scale denominator.
func (c *MapCanvas) Scale() float64 { return c.scale }

// SetCenter implements Viewport. Setting the current center raises no event.
func (c *MapCanvas) SetCenter(center Vec2) {
	if center == c.center {
		return
	}
	c.center = center
	c.dirty = true
	c.emit(EventExtentChanged)
}

// ZoomToScale implements Viewport. Non-positive scales are ignored. A scale
// change also changes the extent, so both events are raised.
func (c *MapCanvas) ZoomToScale(scale float64) {
	if scale <= 0 || scale == c.scale {
		return
	}
	c.scale = scale
	c.dirty = true
	c.emit(EventScaleChanged)
	c.emit(EventExtentChanged)
}

// PixelSize returns the size of one screen pixel in map units.
func (c *MapCanvas) PixelSize() float64 {
	dpi := c.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return c.scale * metersPerInch / dpi
}

// Extent implements Viewport.
func (c *MapCanvas) Extent() Rect {
	px := c.PixelSize()
	return RectAround(c.center, c.Viewport.Width*px, c.Viewport.Height*px)
}

// SetCursor moves the cursor to screen position (sx, sy). A cursor outside
// Viewport counts as absent.
func (c *MapCanvas) SetCursor(sx, sy float64) {
	c.cursor = Vec2{X: sx, Y: sy}
	c.cursorInside = c.Viewport.Contains(sx, sy)
}

// ClearCursor marks the cursor as having left the canvas.
func (c *MapCanvas) ClearCursor() {
	c.cursorInside = false
}

// CursorMapPosition implements Viewport.
func (c *MapCanvas) CursorMapPosition() (Vec2, bool) {
	if !c.cursorInside {
		return Vec2{}, false
	}
	return c.ScreenToMap(c.cursor.X, c.cursor.Y), true
}

// Subscribe implements Viewport.
func (c *MapCanvas) Subscribe(event ViewportEvent, fn func()) func() {
	s := &subscription{fn: fn, active: true}
	c.subs[event] = append(c.subs[event], s)
	return func() {
		if !s.active {
			return
		}
		s.active = false
		list := c.subs[event]
		for i, v := range list {
			if v == s {
				c.subs[event] = append(list[:i], list[i+1:]...)
				return
			}
		}
	}
}

// Subscribers returns the number of live subscriptions for event.
func (c *MapCanvas) Subscribers(event ViewportEvent) int {
	return len(c.subs[event])
}

// emit calls the subscribers of event. Handlers unsubscribed by an earlier
// handler in the same emission are skipped.
func (c *MapCanvas) emit(event ViewportEvent) {
	for _, s := range append([]*subscription(nil), c.subs[event]...) {
		if s.active {
			s.fn()
		}
	}
}

// Refresh implements Viewport. It counts a redraw.
func (c *MapCanvas) Refresh() {
	c.renders++
	c.pending = false
}

// Renders returns how many times the canvas was redrawn.
func (c *MapCanvas) Renders() int { return c.renders }

// NeedsRedraw reports whether a layer shown by the canvas repainted since the
// last Refresh.
func (c *MapCanvas) NeedsRedraw() bool { return c.pending }

// SetTheme implements SecondaryViewport.
func (c *MapCanvas) SetTheme(name string, layers []*Layer) {
	c.theme = name
	c.themeLayers = append(c.themeLayers[:0], layers...)
	c.pending = true
}

// Theme returns the theme name and the layers it shows. A canvas without a
// theme follows the project layer tree.
func (c *MapCanvas) Theme() (string, []*Layer) {
	return c.theme, append([]*Layer(nil), c.themeLayers...)
}

// shows reports whether layer is drawn by this canvas.
func (c *MapCanvas) shows(layer *Layer) bool {
	if c.theme == "" {
		return true
	}
	for _, l := range c.themeLayers {
		if l.ID == layer.ID {
			return true
		}
	}
	return false
}

// Hide implements SecondaryViewport. Subscriptions are left alone.
func (c *MapCanvas) Hide() { c.visible = false }

// Show makes a hidden canvas visible again.
func (c *MapCanvas) Show() { c.visible = true }

// Visible reports whether the canvas is shown.
func (c *MapCanvas) Visible() bool { return c.visible }

// ScrollTo animates the center to target over duration seconds. Each frame of
// the animation raises an extent change.
func (c *MapCanvas) ScrollTo(target Vec2, duration float32, easeFn ease.TweenFunc) {
	c.scroll = &scrollAnim{
		tweenX: gween.New(float32(c.center.X), float32(target.X), duration, easeFn),
		tweenY: gween.New(float32(c.center.Y), float32(target.Y), duration, easeFn),
	}
}

// ZoomTo animates the scale to target over duration seconds.
func (c *MapCanvas) ZoomTo(target float64, duration float32, easeFn ease.TweenFunc) {
	if target <= 0 {
		return
	}
	c.zoom = gween.New(float32(c.scale), float32(target), duration, easeFn)
}

// Animating reports whether a scroll or zoom animation is running.
func (c *MapCanvas) Animating() bool {
	return c.scroll != nil || c.zoom != nil
}

// update advances animations by dt seconds. Called from Project.Update.
func (c *MapCanvas) update(dt float32) {
	if c.zoom != nil {
		v, done := c.zoom.Update(dt)
		if done {
			c.zoom = nil
		}
		c.ZoomToScale(float64(v))
	}
	if c.scroll != nil {
		next := c.center
		if !c.scroll.doneX {
			v, done := c.scroll.tweenX.Update(dt)
			next.X = float64(v)
			c.scroll.doneX = done
		}
		if !c.scroll.doneY {
			v, done := c.scroll.tweenY.Update(dt)
			next.Y = float64(v)
			c.scroll.doneY = done
		}
		if c.scroll.doneX && c.scroll.doneY {
			c.scroll = nil
		}
		c.SetCenter(next)
	}
}

// computeViewMatrix recomputes the cached map-to-screen matrix if dirty.
//
//	view = Translate(viewport center) * Scale(1/px, -1/px) * Translate(-center)
//
// Map y grows upward, screen y downward.
func (c *MapCanvas) computeViewMatrix() [6]float64 {
	if !c.dirty {
		return c.viewMatrix
	}
	c.dirty = false
	px := c.PixelSize()
	vc := c.Viewport.Center()
	m := multiplyAffine(translateAffine(vc.X, vc.Y), scaleAffine(1/px, -1/px))
	m = multiplyAffine(m, translateAffine(-c.center.X, -c.center.Y))
	c.viewMatrix = m
	c.invViewMatrix = invertAffine(m)
	return m
}

// MapToScreen converts a map position to screen coordinates.
func (c *MapCanvas) MapToScreen(p Vec2) (sx, sy float64) {
	c.computeViewMatrix()
	return transformPoint(c.viewMatrix, p.X, p.Y)
}

// ScreenToMap converts screen coordinates to a map position.
func (c *MapCanvas) ScreenToMap(sx, sy float64) Vec2 {
	c.computeViewMatrix()
	x, y := transformPoint(c.invViewMatrix, sx, sy)
	return Vec2{X: x, Y: y}
}

// MaskWindow returns the screen rectangle inside which compare layers show
// for geom, using the current extent and cursor. For the lens it is the
// bounding square of the lens circle; with no cursor the lens is centered.
func (c *MapCanvas) MaskWindow(geom Geometry) Rect {
	cursor, ok := c.CursorMapPosition()
	if !ok {
		cursor = c.center
	}
	w := geom.Window(c.Extent(), cursor)
	x0, y0 := c.MapToScreen(Vec2{X: w.X, Y: w.Y + w.Height})
	x1, y1 := c.MapToScreen(Vec2{X: w.X + w.Width, Y: w.Y})
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// CanvasDock is a ViewportFactory handing out MapCanvas secondaries. Canvases
// are created once per title, attached to the project and re-shown on reuse.
type CanvasDock struct {
	project  *Project
	viewport Rect
	canvases map[string]*MapCanvas

	// Disabled makes SecondaryViewport fail, e.g. for hosts that cannot
	// open another canvas.
	Disabled bool
}

// NewCanvasDock returns a dock creating canvases of the given screen size.
func NewCanvasDock(project *Project, viewport Rect) *CanvasDock {
	return &CanvasDock{project: project, viewport: viewport, canvases: make(map[string]*MapCanvas)}
}

// SecondaryViewport implements ViewportFactory.
func (d *CanvasDock) SecondaryViewport(title string) (SecondaryViewport, error) {
	if d.Disabled {
		return nil, ErrMissingSecondaryViewport
	}
	if c := d.canvases[title]; c != nil {
		c.Show()
		return c, nil
	}
	c := NewMapCanvas(title, d.viewport, Vec2{}, 1)
	d.canvases[title] = c
	if d.project != nil {
		d.project.AttachCanvas(c)
	}
	Logger().Debug("secondary canvas created", "title", title)
	return c, nil
}

// Canvas returns the canvas created for title, or nil.
func (d *CanvasDock) Canvas(title string) *MapCanvas {
	return d.canvases[title]
}
