package mapcompare

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
)

// Color represents an RGBA color with components in [0, 1]. Not premultiplied.
type Color struct {
	R, G, B, A float64
}

// ColorWhite is the fill used for mask and background styles.
var ColorWhite = Color{1, 1, 1, 1}

// RGBA8 returns the premultiplied 8-bit form of c, suitable for image.Fill
// and ebiten.Image.Fill.
func (c Color) RGBA8() color.RGBA {
	return color.RGBA{
		R: uint8(clamp01(c.R*c.A) * 255),
		G: uint8(clamp01(c.G*c.A) * 255),
		B: uint8(clamp01(c.B*c.A) * 255),
		A: uint8(clamp01(c.A) * 255),
	}
}

// ColorFromRGBA converts an opaque or premultiplied 8-bit color.
func ColorFromRGBA(c color.RGBA) Color {
	if c.A == 0 {
		return Color{}
	}
	a := float64(c.A) / 255
	return Color{
		R: float64(c.R) / 255 / a,
		G: float64(c.G) / 255 / a,
		B: float64(c.B) / 255 / a,
		A: a,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Vec2 is a point in map units, used for viewport centers and cursor positions.
type Vec2 struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle in map units. X, Y is the minimum corner.
type Rect struct {
	X, Y, Width, Height float64
}

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Vec2 {
	return Vec2{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Contains reports whether the point (x, y) lies inside the rectangle.
// Points on the edge are considered inside.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// RectAround returns the rectangle of the given size centered on c.
func RectAround(c Vec2, width, height float64) Rect {
	return Rect{X: c.X - width/2, Y: c.Y - height/2, Width: width, Height: height}
}

// DistanceUnit is the linear unit of a project's coordinate reference system.
type DistanceUnit uint8

const (
	UnitMeters  DistanceUnit = iota // projected, meter based
	UnitDegrees                     // geographic, angular
	UnitFeet                        // projected, imperial
	UnitUnknown                     // unit could not be determined
)

var distanceUnitNames = [...]string{"meters", "degrees", "feet", "unknown"}

func (u DistanceUnit) String() string {
	if int(u) < len(distanceUnitNames) {
		return distanceUnitNames[u]
	}
	return "unknown"
}

// IsMetric reports whether mask formulas render undistorted in this unit.
func (u DistanceUnit) IsMetric() bool {
	return u == UnitMeters
}

// GeometryKind is the geometry type a style generator emits.
type GeometryKind uint8

const (
	GeometryPoint GeometryKind = iota
	GeometryLine
	GeometryPolygon
)

// BlendRule selects the compositing operation a layer is drawn with.
type BlendRule uint8

const (
	BlendSourceOver     BlendRule = iota // standard alpha blending
	BlendDestinationIn                   // keep destination only where the source is opaque
	BlendDestinationOut                  // punch holes in the destination where the source paints
)

var blendRuleNames = [...]string{"source-over", "destination-in", "destination-out"}

func (b BlendRule) String() string {
	if int(b) < len(blendRuleNames) {
		return blendRuleNames[b]
	}
	return "source-over"
}

// EbitenBlend returns the ebiten.Blend value corresponding to this rule, for
// hosts that composite compare groups with Ebitengine.
func (b BlendRule) EbitenBlend() ebiten.Blend {
	switch b {
	case BlendDestinationIn:
		return ebiten.Blend{
			BlendFactorSourceRGB:        ebiten.BlendFactorZero,
			BlendFactorSourceAlpha:      ebiten.BlendFactorZero,
			BlendFactorDestinationRGB:   ebiten.BlendFactorSourceAlpha,
			BlendFactorDestinationAlpha: ebiten.BlendFactorSourceAlpha,
			BlendOperationRGB:           ebiten.BlendOperationAdd,
			BlendOperationAlpha:         ebiten.BlendOperationAdd,
		}
	case BlendDestinationOut:
		return ebiten.BlendDestinationOut
	default:
		return ebiten.BlendSourceOver
	}
}
