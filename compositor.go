package mapcompare

import (
	"fmt"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
)

// StyleSpec is everything the render engine needs to build a style: the
// geometry generator expression, the kind of geometry it yields, and how the
// result is filled and blended.
type StyleSpec struct {
	Expr     Expression
	Kind     GeometryKind
	Fill     Color
	Outline  bool
	Inverted bool // paint the complement of the expression's region
	Blend    BlendRule
}

// Style is a render style assignable to a layer. Styles are immutable once
// built; the compositor replaces them rather than editing them.
type Style struct {
	spec StyleSpec
	geom *Geometry // set for mask styles
}

// Spec returns the parameters the style was built from.
func (s *Style) Spec() StyleSpec {
	return s.spec
}

// Geometry returns the mask geometry the style was built for; ok is false
// for styles that are not mask styles.
func (s *Style) Geometry() (geom Geometry, ok bool) {
	if s.geom == nil {
		return Geometry{}, false
	}
	return *s.geom, true
}

// EbitenBlend returns the Ebitengine blend the style composites with.
func (s *Style) EbitenBlend() ebiten.Blend {
	return s.spec.Blend.EbitenBlend()
}

// DefaultEngine is the in-process RenderEngine. It validates the spec and
// wraps it; evaluation is left to whatever draws the layer.
type DefaultEngine struct{}

// NewStyle implements RenderEngine.
func (DefaultEngine) NewStyle(spec StyleSpec) (*Style, error) {
	if strings.TrimSpace(string(spec.Expr)) == "" {
		return nil, fmt.Errorf("mapcompare: style has empty geometry expression")
	}
	if spec.Kind != GeometryPolygon && spec.Inverted {
		return nil, fmt.Errorf("mapcompare: inverted fill requires polygon geometry")
	}
	return &Style{spec: spec}, nil
}

// BlendConvention selects how the mask layer composites with the rest of the
// compare group.
type BlendConvention uint8

const (
	// ConventionDestinationIn draws the mask with destination-in over an
	// opaque white background layer: compare layers show only inside the
	// window, the background fills the rest of the group, layers outside the
	// group are untouched.
	ConventionDestinationIn BlendConvention = iota
	// ConventionDestinationOut draws the mask with destination-out and no
	// background layer: the mask punches a hole through the group, showing
	// the layers below it. Kept for hosts without group-level compositing.
	ConventionDestinationOut
)

func (c BlendConvention) String() string {
	if c == ConventionDestinationOut {
		return "destination-out"
	}
	return "destination-in"
}

// ParseBlendConvention accepts "destination-in"/"dst-in" and
// "destination-out"/"dst-out".
func ParseBlendConvention(s string) (BlendConvention, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "destination-in", "dst-in", "destinationin":
		return ConventionDestinationIn, nil
	case "destination-out", "dst-out", "destinationout":
		return ConventionDestinationOut, nil
	}
	return ConventionDestinationIn, fmt.Errorf("mapcompare: unknown blend convention %q", s)
}

// Rule returns the blend rule the mask layer uses under this convention.
func (c BlendConvention) Rule() BlendRule {
	if c == ConventionDestinationOut {
		return BlendDestinationOut
	}
	return BlendDestinationIn
}

// UsesBackground reports whether the convention needs a background layer.
func (c BlendConvention) UsesBackground() bool {
	return c == ConventionDestinationIn
}

// Compositor turns mask geometries into styles and applies them.
type Compositor struct {
	engine     RenderEngine
	convention BlendConvention
}

// NewCompositor returns a compositor building styles through engine. A nil
// engine uses DefaultEngine.
func NewCompositor(engine RenderEngine, convention BlendConvention) *Compositor {
	if engine == nil {
		engine = DefaultEngine{}
	}
	return &Compositor{engine: engine, convention: convention}
}

// Convention returns the blend convention in use.
func (c *Compositor) Convention() BlendConvention {
	return c.convention
}

// MaskStyle builds the inverted white fill for geom.
func (c *Compositor) MaskStyle(geom Geometry) (*Style, error) {
	style, err := c.engine.NewStyle(StyleSpec{
		Expr:     geom.Expr,
		Kind:     geom.Kind,
		Fill:     ColorWhite,
		Inverted: true,
		Blend:    c.convention.Rule(),
	})
	if err != nil {
		return nil, err
	}
	if style == nil {
		return nil, fmt.Errorf("mapcompare: render engine returned no style for %s", geom.Mode)
	}
	style.geom = &geom
	return style, nil
}

// BackgroundStyle builds the white fill covering the visible extent.
func (c *Compositor) BackgroundStyle() (*Style, error) {
	return c.engine.NewStyle(StyleSpec{
		Expr:     BackgroundExpression,
		Kind:     GeometryPolygon,
		Fill:     ColorWhite,
		Inverted: true,
		Blend:    BlendSourceOver,
	})
}

// ApplyMask styles layer with geom and the convention's blend rule, then
// forces an immediate repaint so the new window shows without waiting for
// the next refresh.
func (c *Compositor) ApplyMask(layer *Layer, geom Geometry) error {
	if globalDebug {
		debugCheckLayer(layer, "ApplyMask")
	}
	style, err := c.MaskStyle(geom)
	if err != nil {
		return fmt.Errorf("mask style for %s: %w", geom.Mode, err)
	}
	layer.SetStyle(style)
	layer.SetBlend(style.spec.Blend)
	layer.TriggerRepaint()
	return nil
}

// ApplyBackground styles layer as the compare group background.
func (c *Compositor) ApplyBackground(layer *Layer) error {
	style, err := c.BackgroundStyle()
	if err != nil {
		return fmt.Errorf("background style: %w", err)
	}
	layer.SetStyle(style)
	layer.SetBlend(BlendSourceOver)
	layer.TriggerRepaint()
	return nil
}
