package mapcompare

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// Preview is an ebiten.Game driving a Project and drawing its canvases with a
// Renderer. Keys switch modes for the layers checked in the layer tree:
// V vertical, H horizontal, L lens, M mirror, Escape stops. The mouse wheel
// zooms the primary canvas and the cursor feeds the lens.
type Preview struct {
	Project     *Project
	Coordinator *Coordinator
	Primary     *MapCanvas
	Renderer    *Renderer

	// Width and Height are the logical screen size.
	Width, Height int

	secondaryImg *ebiten.Image
}

// previewKeys is applied in order, so a later key pressed in the same frame
// wins.
var previewKeys = []struct {
	key  ebiten.Key
	mode Mode
}{
	{ebiten.KeyV, ModeSplitVertical},
	{ebiten.KeyH, ModeSplitHorizontal},
	{ebiten.KeyL, ModeLens},
	{ebiten.KeyM, ModeMirror},
	{ebiten.KeyEscape, ModeInactive},
}

// pressedModes returns the modes whose hotkeys pressed reports, in
// previewKeys order.
func pressedModes(pressed func(ebiten.Key) bool) []Mode {
	var out []Mode
	for _, k := range previewKeys {
		if pressed(k.key) {
			out = append(out, k.mode)
		}
	}
	return out
}

// Update implements ebiten.Game.
func (g *Preview) Update() error {
	for _, mode := range pressedModes(inpututil.IsKeyJustPressed) {
		if err := g.Coordinator.Activate(mode, checkedLayers(g.Project)); err != nil {
			Logger().Warn("preview: mode switch failed", "mode", mode, "err", err)
		}
	}

	mx, my := ebiten.CursorPosition()
	g.Primary.SetCursor(float64(mx), float64(my))
	if _, wy := ebiten.Wheel(); wy != 0 {
		factor := 1.1
		if wy < 0 {
			factor = 1 / factor
		}
		g.Primary.ZoomToScale(g.Primary.Scale() / factor)
	}

	g.Project.Update(float32(1.0 / float64(ebiten.TPS())))
	return nil
}

// Draw implements ebiten.Game. A visible secondary canvas is drawn into its
// own viewport rectangle over the primary.
func (g *Preview) Draw(screen *ebiten.Image) {
	g.Renderer.Draw(screen, g.Project, g.Primary)

	sec, _ := g.Coordinator.Synchronizer().Secondary().(*MapCanvas)
	if sec == nil || !sec.Visible() {
		return
	}
	v := sec.Viewport
	g.secondaryImg = ensureImage(g.secondaryImg, int(v.Width), int(v.Height))
	local := *sec
	local.Viewport = Rect{Width: v.Width, Height: v.Height}
	local.dirty = true
	g.Renderer.Draw(g.secondaryImg, g.Project, &local)

	var op ebiten.DrawImageOptions
	op.GeoM.Translate(v.X, v.Y)
	screen.DrawImage(g.secondaryImg, &op)
}

// Layout implements ebiten.Game.
func (g *Preview) Layout(_, _ int) (int, int) {
	return g.Width, g.Height
}

// checkedLayers returns the layers of checked leaves outside any compare
// group, top to bottom.
func checkedLayers(p *Project) []*Layer {
	var out []*Layer
	for _, child := range p.LayerTreeRoot().Children() {
		if child.Kind == KindLeaf && child.Checked() {
			out = append(out, child.Layer())
		}
	}
	return out
}
