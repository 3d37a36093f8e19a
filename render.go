package mapcompare

import (
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/colornames"
)

// Renderer draws a canvas as flat translucent tints, one per visible layer,
// and composites the compare group through its mask with the mask layer's
// blend rule. It is a preview for hosts without their own map renderer and
// for eyeballing mask behavior; it does not draw features.
type Renderer struct {
	// Base fills the canvas before any layer is drawn.
	Base Color
	// Tints overrides the palette color of individual layers.
	Tints map[LayerID]Color
	// Alpha is the opacity of each layer tint.
	Alpha float64

	groupImg *ebiten.Image
	maskImg  *ebiten.Image
}

var palette = []color.RGBA{
	colornames.Tomato,
	colornames.Steelblue,
	colornames.Mediumseagreen,
	colornames.Gold,
	colornames.Mediumpurple,
	colornames.Darkorange,
}

// NewRenderer returns a renderer with a dark base and half-opaque tints.
func NewRenderer() *Renderer {
	return &Renderer{
		Base:  Color{R: 0.118, G: 0.118, B: 0.157, A: 1},
		Alpha: 0.5,
	}
}

// Tint returns the color layer is drawn with.
func (r *Renderer) Tint(layer *Layer) Color {
	if c, ok := r.Tints[layer.ID]; ok {
		return c
	}
	c := ColorFromRGBA(palette[int(layer.ID)%len(palette)])
	c.A = r.Alpha
	return c
}

// Draw renders project as seen through canvas into dst. A themed canvas
// draws only its theme layers.
func (r *Renderer) Draw(dst *ebiten.Image, project *Project, canvas *MapCanvas) {
	dst.Fill(r.Base.RGBA8())
	if name, layers := canvas.Theme(); name != "" {
		for i := len(layers) - 1; i >= 0; i-- {
			r.fill(dst, canvas, layers[i])
		}
		return
	}
	r.drawGroup(dst, canvas, project.LayerTreeRoot())
}

// drawGroup draws the children of group bottom to top (index 0 is the top).
func (r *Renderer) drawGroup(dst *ebiten.Image, canvas *MapCanvas, group *TreeNode) {
	children := group.Children()
	for i := len(children) - 1; i >= 0; i-- {
		child := children[i]
		if !child.Checked() {
			continue
		}
		switch child.Kind {
		case KindLeaf:
			// The background's inverted extent fill covers no pixel inside
			// the viewport.
			if isMaskLayer(child.Layer()) || isBackgroundLayer(child.Layer()) {
				continue
			}
			r.fill(dst, canvas, child.Layer())
		case KindGroup:
			if masks := maskLayers(child); len(masks) > 0 {
				r.drawMasked(dst, canvas, child, masks)
				continue
			}
			r.drawGroup(dst, canvas, child)
		}
	}
}

// drawMasked renders group offscreen, clips it with each mask and draws the
// result over dst.
func (r *Renderer) drawMasked(dst *ebiten.Image, canvas *MapCanvas, group *TreeNode, masks []*Layer) {
	b := dst.Bounds()
	r.groupImg = ensureImage(r.groupImg, b.Dx(), b.Dy())
	r.maskImg = ensureImage(r.maskImg, b.Dx(), b.Dy())
	r.groupImg.Clear()
	r.drawGroup(r.groupImg, canvas, group)

	for _, mask := range masks {
		geom, _ := mask.Style().Geometry()
		r.maskImg.Clear()
		paintWindow(r.maskImg, canvas, geom)

		var op ebiten.DrawImageOptions
		op.Blend = mask.Blend().EbitenBlend()
		r.groupImg.DrawImage(r.maskImg, &op)
	}

	dst.DrawImage(r.groupImg, &ebiten.DrawImageOptions{})
}

func (r *Renderer) fill(dst *ebiten.Image, canvas *MapCanvas, layer *Layer) {
	v := canvas.Viewport
	vector.DrawFilledRect(dst, float32(v.X), float32(v.Y), float32(v.Width), float32(v.Height), r.Tint(layer).RGBA8(), false)
}

// paintWindow paints the mask window opaque white into img.
func paintWindow(img *ebiten.Image, canvas *MapCanvas, geom Geometry) {
	white := colornames.White
	w := canvas.MaskWindow(geom)
	if geom.Mode == ModeLens {
		c := w.Center()
		radius := math.Abs(w.Width) / 2
		vector.DrawFilledCircle(img, float32(c.X), float32(c.Y), float32(radius), white, true)
		return
	}
	vector.DrawFilledRect(img, float32(w.X), float32(w.Y), float32(w.Width), float32(w.Height), white, false)
}

// ensureImage returns img if it already has the given size, or a new image.
func ensureImage(img *ebiten.Image, w, h int) *ebiten.Image {
	if img != nil {
		if b := img.Bounds(); b.Dx() == w && b.Dy() == h {
			return img
		}
		img.Deallocate()
	}
	return ebiten.NewImage(w, h)
}

func isMaskLayer(l *Layer) bool {
	if l == nil || l.Style() == nil {
		return false
	}
	_, ok := l.Style().Geometry()
	return ok
}

func isBackgroundLayer(l *Layer) bool {
	return l != nil && l.Style() != nil && l.Style().Spec().Expr == BackgroundExpression
}

// maskLayers returns the mask layers directly inside group.
func maskLayers(group *TreeNode) []*Layer {
	var out []*Layer
	for _, child := range group.Children() {
		if child.Kind == KindLeaf && isMaskLayer(child.Layer()) {
			out = append(out, child.Layer())
		}
	}
	return out
}
