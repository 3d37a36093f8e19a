package mapcompare

import (
	"fmt"
	"strings"
	"time"
)

// LayerID identifies a layer for the lifetime of the process. Membership tests
// in the layer tree compare ids, never names.
type LayerID uint32

// layerIDCounter is a plain counter (no atomic: layers are only created from
// the host's UI loop).
var layerIDCounter uint32

func nextLayerID() LayerID {
	layerIDCounter++
	return LayerID(layerIDCounter)
}

// ProviderMemory is the provider of scratch layers that hold no features and
// are drawn purely through geometry generator styles.
const ProviderMemory = "memory"

// DataSource describes where a layer's features come from.
type DataSource struct {
	Provider string
	Geometry GeometryKind
	CRS      string // authority id, e.g. "EPSG:3857"
}

// Valid reports whether the source names a provider and a well-formed
// "AUTHORITY:CODE" coordinate reference system.
func (d DataSource) Valid() bool {
	if d.Provider == "" {
		return false
	}
	auth, code, ok := strings.Cut(d.CRS, ":")
	return ok && auth != "" && code != "" && !strings.ContainsAny(d.CRS, " ?&")
}

func (d DataSource) String() string {
	kind := "Polygon"
	switch d.Geometry {
	case GeometryPoint:
		kind = "Point"
	case GeometryLine:
		kind = "LineString"
	}
	return fmt.Sprintf("%s?crs=%s (%s)", kind, d.CRS, d.Provider)
}

// RefreshMode controls whether a layer reloads itself on a timer.
type RefreshMode uint8

const (
	RefreshDisabled RefreshMode = iota // redraw only on demand
	RefreshReload                      // reload and redraw every interval
)

// Layer is a map layer known to a LayerRepository. A layer may be referenced
// by several leaves of the layer tree.
type Layer struct {
	ID     LayerID
	Name   string
	Source DataSource

	style *Style
	blend BlendRule

	refreshMode     RefreshMode
	refreshInterval time.Duration
	clock           *refreshClock

	repaints  int
	onRepaint func(*Layer)
	disposed  bool
}

// NewLayer creates a layer with a fresh id. The layer is not registered with
// any repository.
func NewLayer(name string, src DataSource) *Layer {
	return &Layer{ID: nextLayerID(), Name: name, Source: src}
}

// NewMemoryLayer creates an empty scratch layer in the given CRS.
func NewMemoryLayer(name string, kind GeometryKind, crs string) *Layer {
	return NewLayer(name, DataSource{Provider: ProviderMemory, Geometry: kind, CRS: crs})
}

// IsValid reports whether the layer's data source is usable.
func (l *Layer) IsValid() bool {
	return !l.disposed && l.Source.Valid()
}

// Style returns the layer's render style, or nil if none was assigned.
func (l *Layer) Style() *Style {
	return l.style
}

// SetStyle replaces the render style. The layer is not repainted; call
// TriggerRepaint.
func (l *Layer) SetStyle(s *Style) {
	l.style = s
}

// Blend returns the rule the layer is composited with.
func (l *Layer) Blend() BlendRule {
	return l.blend
}

// SetBlend sets the rule the layer is composited with.
func (l *Layer) SetBlend(b BlendRule) {
	l.blend = b
}

// AutoRefresh returns the layer's refresh mode and interval.
func (l *Layer) AutoRefresh() (RefreshMode, time.Duration) {
	return l.refreshMode, l.refreshInterval
}

// SetAutoRefresh switches timer-driven reloading on or off. Disabling drops
// the clock immediately, so no further refresh fires even within the frame.
func (l *Layer) SetAutoRefresh(mode RefreshMode, interval time.Duration) {
	if mode == RefreshReload && interval <= 0 {
		mode = RefreshDisabled
	}
	l.refreshMode = mode
	if mode == RefreshDisabled {
		l.refreshInterval = 0
		l.clock = nil
		return
	}
	if l.clock == nil || l.refreshInterval != interval {
		l.clock = newRefreshClock(interval)
	}
	l.refreshInterval = interval
}

// TriggerRepaint requests an immediate redraw of the layer.
func (l *Layer) TriggerRepaint() {
	if l.disposed {
		return
	}
	l.repaints++
	if l.onRepaint != nil {
		l.onRepaint(l)
	}
}

// Repaints returns how many redraws have been requested for the layer.
func (l *Layer) Repaints() int {
	return l.repaints
}

// Clone returns a copy of the layer with a new id. Style, blend and refresh
// settings are copied; repository registration and repaint count are not.
func (l *Layer) Clone() *Layer {
	c := NewLayer(l.Name, l.Source)
	c.style = l.style
	c.blend = l.blend
	c.SetAutoRefresh(l.refreshMode, l.refreshInterval)
	return c
}

// IsDisposed reports whether the layer was removed from its repository.
func (l *Layer) IsDisposed() bool {
	return l.disposed
}

// advance moves the refresh clock forward by dt seconds.
func (l *Layer) advance(dt float32) {
	if l.disposed || l.clock == nil {
		return
	}
	for n := l.clock.Update(dt); n > 0; n-- {
		l.TriggerRepaint()
		// A repaint callback may have disabled refresh.
		if l.clock == nil {
			return
		}
	}
}

func (l *Layer) dispose() {
	l.disposed = true
	l.clock = nil
	l.refreshMode = RefreshDisabled
	l.refreshInterval = 0
	l.onRepaint = nil
}
