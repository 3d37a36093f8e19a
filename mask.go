package mapcompare

import (
	"strconv"
	"strings"
)

// Expression is a declarative geometry expression handed to the render
// engine. The engine evaluates it against live viewport variables on every
// redraw (@map_extent_center, @map_extent_width, @map_extent_height,
// @canvas_cursor_point), so panning and zooming never require a new
// expression. mapcompare only selects templates and fills in numeric
// parameters; it never parses or evaluates an expression.
type Expression string

func (e Expression) String() string { return string(e) }

// DefaultLensSizeRate is the lens radius as a fraction of the viewport width.
const DefaultLensSizeRate = 0.15

// Vertical split: the rectangle from the vertical centerline to the right edge
// of the viewport, full height.
const verticalSplitTemplate = Expression(`make_rectangle_3points(
	make_point(x(@map_extent_center), y(@map_extent_center) - (@map_extent_height / 2)),
	make_point(x(@map_extent_center), y(@map_extent_center) + (@map_extent_height / 2)),
	make_point(x(@map_extent_center) + (@map_extent_width / 2), y(@map_extent_center) + (@map_extent_height / 2)),
	0)`)

// Horizontal split: the rectangle from the horizontal centerline to the bottom
// edge of the viewport, full width.
const horizontalSplitTemplate = Expression(`make_rectangle_3points(
	make_point(x(@map_extent_center) - (@map_extent_width / 2), y(@map_extent_center)),
	make_point(x(@map_extent_center) + (@map_extent_width / 2), y(@map_extent_center)),
	make_point(x(@map_extent_center) - (@map_extent_width / 2), y(@map_extent_center) - (@map_extent_height / 2)),
	0)`)

const lensTemplate = "buffer(@canvas_cursor_point, @map_extent_width * {rate})"

// BackgroundExpression covers the whole visible extent.
const BackgroundExpression = Expression("@map_extent")

// Geometry is a mask expression together with the parameters it was built
// from.
type Geometry struct {
	Mode Mode
	Expr Expression
	Kind GeometryKind
	// LensRate is only meaningful for ModeLens.
	LensRate float64
}

// GeometryFor returns the mask geometry for mode. ModeInactive, ModeMirror
// and unknown modes get the vertical split. A non-positive lensRate uses
// DefaultLensSizeRate.
func GeometryFor(mode Mode, lensRate float64) Geometry {
	switch mode {
	case ModeSplitHorizontal:
		return Geometry{Mode: mode, Expr: horizontalSplitTemplate, Kind: GeometryPolygon}
	case ModeLens:
		if lensRate <= 0 {
			lensRate = DefaultLensSizeRate
		}
		return Geometry{Mode: mode, Expr: LensExpression(lensRate), Kind: GeometryPolygon, LensRate: lensRate}
	default:
		return Geometry{Mode: ModeSplitVertical, Expr: verticalSplitTemplate, Kind: GeometryPolygon}
	}
}

// GeometryForName is GeometryFor keyed by mode name. Unrecognized names get
// the vertical split.
func GeometryForName(name string, lensRate float64) Geometry {
	mode, err := ParseMode(name)
	if err != nil {
		return GeometryFor(ModeSplitVertical, lensRate)
	}
	return GeometryFor(mode, lensRate)
}

// LensExpression returns the buffer expression for a lens whose radius is
// rate times the viewport width.
func LensExpression(rate float64) Expression {
	return Expression(strings.Replace(lensTemplate, "{rate}", strconv.FormatFloat(rate, 'g', -1, 64), 1))
}

// LensRadius evaluates the lens radius parameter for a viewport of the given
// width in map units.
func LensRadius(width, rate float64) float64 {
	if rate <= 0 {
		rate = DefaultLensSizeRate
	}
	return width * rate
}

// Window returns the region, in map units, the geometry selects for a
// viewport showing extent with the cursor at cursor. It mirrors what the
// render engine computes from the expression and exists for hosts that need
// a hit test (e.g. "is the cursor inside the lens") without a render pass.
// The lens window is returned as its bounding square.
func (g Geometry) Window(extent Rect, cursor Vec2) Rect {
	c := extent.Center()
	switch g.Mode {
	case ModeSplitHorizontal:
		return Rect{X: extent.X, Y: extent.Y, Width: extent.Width, Height: c.Y - extent.Y}
	case ModeLens:
		r := LensRadius(extent.Width, g.LensRate)
		return Rect{X: cursor.X - r, Y: cursor.Y - r, Width: 2 * r, Height: 2 * r}
	default:
		return Rect{X: c.X, Y: extent.Y, Width: extent.X + extent.Width - c.X, Height: extent.Height}
	}
}
