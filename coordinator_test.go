package mapcompare

import (
	"errors"
	"strings"
	"testing"
)

// --- Fixtures ---

type recordingSink struct {
	events []TransitionEvent
	onEmit func(TransitionEvent)
}

func (s *recordingSink) EmitTransition(e TransitionEvent) {
	s.events = append(s.events, e)
	if s.onEmit != nil {
		s.onEmit(e)
	}
}

func (s *recordingSink) last() TransitionEvent {
	return s.events[len(s.events)-1]
}

// lensFailEngine rejects lens styles only.
type lensFailEngine struct{}

func (lensFailEngine) NewStyle(spec StyleSpec) (*Style, error) {
	if strings.Contains(string(spec.Expr), "buffer") {
		return nil, errors.New("lens unsupported")
	}
	return DefaultEngine{}.NewStyle(spec)
}

// factoryFunc adapts a function to ViewportFactory.
type factoryFunc func(title string) (SecondaryViewport, error)

func (f factoryFunc) SecondaryViewport(title string) (SecondaryViewport, error) { return f(title) }

type fixture struct {
	project *Project
	primary *MapCanvas
	dock    *CanvasDock
	sink    *recordingSink
	coord   *Coordinator
	a, b    *Layer

	treeChanges int
}

func newFixture(t *testing.T, crs string, unit DistanceUnit, settings *Settings) *fixture {
	t.Helper()
	f := &fixture{
		project: NewProject(crs, unit),
		sink:    &recordingSink{},
	}
	f.primary = NewMapCanvas("main", Rect{Width: 800, Height: 600}, Vec2{X: 1000, Y: 2000}, 50000)
	f.project.AttachCanvas(f.primary)
	f.dock = NewCanvasDock(f.project, Rect{Width: 400, Height: 300})
	f.a, f.b = testLayer("A"), testLayer("B")
	f.project.AddLayer(f.a, true)
	f.project.AddLayer(f.b, true)

	coord, err := New(Config{
		Repository:  f.project,
		Primary:     f.primary,
		Viewports:   f.dock,
		Settings:    settings,
		Sink:        f.sink,
		TreeChanged: func() { f.treeChanges++ },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.project.OnTreeChanged(coord.LayerTreeChanged)
	f.coord = coord
	return f
}

func (f *fixture) layers() []*Layer { return []*Layer{f.a, f.b} }

func (f *fixture) countNamed(name string) int {
	n := 0
	for _, l := range f.project.Layers() {
		if l.Name == name {
			n++
		}
	}
	return n
}

func (f *fixture) countGroups(name string) int {
	n := 0
	for _, c := range f.project.LayerTreeRoot().Children() {
		if c.Kind == KindGroup && c.Name == name {
			n++
		}
	}
	return n
}

func (f *fixture) assertClean(t *testing.T) {
	t.Helper()
	if f.countGroups(DefaultGroupName) != 0 {
		t.Error("compare group left in the tree")
	}
	for _, name := range []string{DefaultMaskLayerName, DefaultBackgroundName, DefaultMaskLayerName + DefaultGeographicSuffix} {
		if f.countNamed(name) != 0 {
			t.Errorf("%s left registered", name)
		}
	}
	if f.coord.Synchronizer().Active() {
		t.Error("synchronizer still subscribed")
	}
	if f.primary.Subscribers(EventExtentChanged) != 0 || f.primary.Subscribers(EventScaleChanged) != 0 {
		t.Error("primary still has subscriptions")
	}
	if c := f.dock.Canvas(DefaultMirrorTitle); c != nil && c.Visible() {
		t.Error("secondary canvas still visible")
	}
}

// --- Construction ---

func TestNewRequiresHost(t *testing.T) {
	if _, err := New(Config{Primary: NewMapCanvas("m", Rect{}, Vec2{}, 1)}); !errors.Is(err, ErrNoRepository) {
		t.Errorf("err = %v, want ErrNoRepository", err)
	}
	if _, err := New(Config{Repository: NewProject("EPSG:3857", UnitMeters)}); !errors.Is(err, ErrNoViewport) {
		t.Errorf("err = %v, want ErrNoViewport", err)
	}
	bad := DefaultSettings()
	bad.LensSizeRate = 2
	_, err := New(Config{Repository: NewProject("EPSG:3857", UnitMeters), Primary: NewMapCanvas("m", Rect{}, Vec2{}, 1), Settings: &bad})
	if !errors.Is(err, ErrInvalidSettings) {
		t.Errorf("err = %v, want ErrInvalidSettings", err)
	}
}

// --- Mask modes ---

func TestActivateVerticalEndToEnd(t *testing.T) {
	f := newFixture(t, "EPSG:3857", UnitMeters, nil)

	if err := f.coord.Activate(ModeSplitVertical, f.layers()); err != nil {
		t.Fatal(err)
	}
	if f.coord.Mode() != ModeSplitVertical {
		t.Errorf("Mode = %s", f.coord.Mode())
	}
	group := f.project.LayerTreeRoot().ChildAt(0)
	want := []string{DefaultMaskLayerName, DefaultBackgroundName, "A", "B"}
	if got := childNames(group); !equalNames(got, want...) {
		t.Errorf("group = %v, want %v", got, want)
	}
	mask := f.coord.Groups().Mask()
	if mask.Blend() != BlendDestinationIn {
		t.Errorf("mask blend = %s", mask.Blend())
	}
	if geom, ok := mask.Style().Geometry(); !ok || geom.Mode != ModeSplitVertical {
		t.Errorf("mask geometry = %+v", geom)
	}
	if e := f.sink.last(); e.From != ModeInactive || e.To != ModeSplitVertical || e.Layers != 2 || e.Err != nil {
		t.Errorf("event = %+v", e)
	}

	if err := f.coord.Stop(); err != nil {
		t.Fatal(err)
	}
	if f.coord.Mode() != ModeInactive {
		t.Errorf("Mode after Stop = %s", f.coord.Mode())
	}
	f.assertClean(t)
	if f.project.Layer(f.a.ID) == nil || f.project.Layer(f.b.ID) == nil {
		t.Error("target layers unregistered by Stop")
	}
}

func TestActivateIsIdempotent(t *testing.T) {
	f := newFixture(t, "EPSG:3857", UnitMeters, nil)
	for i := 0; i < 3; i++ {
		if err := f.coord.Activate(ModeSplitHorizontal, f.layers()); err != nil {
			t.Fatal(err)
		}
	}
	if n := f.countGroups(DefaultGroupName); n != 1 {
		t.Errorf("groups = %d, want 1", n)
	}
	if n := f.countNamed(DefaultMaskLayerName); n != 1 {
		t.Errorf("masks = %d, want 1", n)
	}
	if n := f.countNamed(DefaultBackgroundName); n != 1 {
		t.Errorf("backgrounds = %d, want 1", n)
	}
	if got := childNames(f.coord.Groups().Group()); len(got) != 4 {
		t.Errorf("group = %v", got)
	}
}

func TestSwitchMaskModesReusesGroup(t *testing.T) {
	f := newFixture(t, "EPSG:3857", UnitMeters, nil)
	f.coord.Activate(ModeSplitVertical, f.layers())
	group := f.coord.Groups().Group()

	if err := f.coord.Activate(ModeLens, []*Layer{f.b}); err != nil {
		t.Fatal(err)
	}
	if f.coord.Groups().Group() != group {
		t.Error("group recreated on mask mode switch")
	}
	want := []string{DefaultMaskLayerName, DefaultBackgroundName, "B"}
	if got := childNames(group); !equalNames(got, want...) {
		t.Errorf("group = %v, want %v", got, want)
	}
	geom, _ := f.coord.Groups().Mask().Style().Geometry()
	if geom.Mode != ModeLens || geom.LensRate != DefaultLensSizeRate {
		t.Errorf("geometry = %+v", geom)
	}
}

func TestActivateGeographicProject(t *testing.T) {
	f := newFixture(t, "EPSG:4326", UnitDegrees, nil)
	if err := f.coord.Activate(ModeLens, f.layers()); err != nil {
		t.Fatal(err)
	}
	want := []string{DefaultMaskLayerName, DefaultMaskLayerName + DefaultGeographicSuffix, DefaultBackgroundName, "A", "B"}
	if got := childNames(f.coord.Groups().Group()); !equalNames(got, want...) {
		t.Errorf("group = %v, want %v", got, want)
	}
	f.coord.Stop()
	f.assertClean(t)
}

func TestActivateDestinationOut(t *testing.T) {
	s := DefaultSettings()
	s.BlendConvention = "destination-out"
	f := newFixture(t, "EPSG:3857", UnitMeters, &s)

	if err := f.coord.Activate(ModeSplitVertical, f.layers()); err != nil {
		t.Fatal(err)
	}
	if got := childNames(f.coord.Groups().Group()); !equalNames(got, DefaultMaskLayerName, "A", "B") {
		t.Errorf("group = %v", got)
	}
	if f.coord.Groups().Mask().Blend() != BlendDestinationOut {
		t.Errorf("mask blend = %s", f.coord.Groups().Mask().Blend())
	}
}

func TestLensRefreshLifecycle(t *testing.T) {
	f := newFixture(t, "EPSG:3857", UnitMeters, nil)
	f.coord.Activate(ModeLens, f.layers())
	mask := f.coord.Groups().Mask()

	before := mask.Repaints()
	f.project.Update(0.25)
	if mask.Repaints() != before+1 {
		t.Errorf("Repaints = %d, want %d", mask.Repaints(), before+1)
	}
	if !f.primary.NeedsRedraw() {
		t.Error("lens refresh did not mark the canvas")
	}

	f.coord.Activate(ModeSplitVertical, f.layers())
	if mode, _ := mask.AutoRefresh(); mode != RefreshDisabled {
		t.Error("refresh left on after leaving the lens")
	}
	before = mask.Repaints()
	f.project.Update(1)
	if mask.Repaints() != before {
		t.Error("mask repainted after refresh was disabled")
	}

	f.coord.Activate(ModeLens, f.layers())
	f.coord.Stop()
	if mode, _ := mask.AutoRefresh(); mode != RefreshDisabled {
		t.Error("refresh left on after Stop")
	}
}

// --- Failures ---

func TestActivateEmptySelection(t *testing.T) {
	f := newFixture(t, "EPSG:3857", UnitMeters, nil)
	f.coord.Activate(ModeSplitVertical, f.layers())

	disposed := testLayer("gone")
	disposed.dispose()
	for _, layers := range [][]*Layer{nil, {}, {nil}, {disposed}} {
		if err := f.coord.Activate(ModeLens, layers); !errors.Is(err, ErrEmptySelection) {
			t.Errorf("err = %v, want ErrEmptySelection", err)
		}
	}
	if f.coord.Mode() != ModeSplitVertical {
		t.Errorf("Mode = %s, want vertical", f.coord.Mode())
	}
	if !errors.Is(f.sink.last().Err, ErrEmptySelection) {
		t.Error("failure not reported to the sink")
	}
}

func TestActivateInvalidCRS(t *testing.T) {
	f := newFixture(t, "not a crs", UnitMeters, nil)
	if err := f.coord.Activate(ModeSplitVertical, f.layers()); !errors.Is(err, ErrMaskCreation) {
		t.Fatalf("err = %v, want ErrMaskCreation", err)
	}
	if f.coord.Mode() != ModeInactive {
		t.Errorf("Mode = %s", f.coord.Mode())
	}
	f.assertClean(t)
}

func TestActivateInvalidCRSFromMirror(t *testing.T) {
	f := newFixture(t, "bogus", UnitMeters, nil)
	if err := f.coord.Activate(ModeMirror, f.layers()); err != nil {
		t.Fatal(err)
	}
	if err := f.coord.Activate(ModeLens, f.layers()); !errors.Is(err, ErrMaskCreation) {
		t.Fatalf("err = %v, want ErrMaskCreation", err)
	}
	if f.coord.Mode() != ModeMirror {
		t.Errorf("Mode = %s, want mirror", f.coord.Mode())
	}
	if !f.coord.Synchronizer().Active() || !f.dock.Canvas(DefaultMirrorTitle).Visible() {
		t.Error("mirror torn down by a failed switch")
	}
}

func TestActivateRollsBackEngineFailure(t *testing.T) {
	f := newFixture(t, "EPSG:3857", UnitMeters, nil)
	coord, _ := New(Config{Repository: f.project, Primary: f.primary, Engine: lensFailEngine{}})
	coord.Activate(ModeSplitVertical, f.layers())

	if err := coord.Activate(ModeLens, []*Layer{f.a}); err == nil {
		t.Fatal("expected lens failure")
	}
	if coord.Mode() != ModeSplitVertical {
		t.Errorf("Mode = %s, want vertical", coord.Mode())
	}
	geom, _ := coord.Groups().Mask().Style().Geometry()
	if geom.Mode != ModeSplitVertical {
		t.Errorf("mask geometry = %s, want vertical", geom.Mode)
	}
	if got := childNames(coord.Groups().Group()); !equalNames(got, DefaultMaskLayerName, DefaultBackgroundName, "A", "B") {
		t.Errorf("group = %v", got)
	}
	if mode, _ := coord.Groups().Mask().AutoRefresh(); mode != RefreshDisabled {
		t.Error("lens refresh survived the rollback")
	}
}

func TestActivateFirstLensFailureCleansUp(t *testing.T) {
	f := newFixture(t, "EPSG:3857", UnitMeters, nil)
	coord, _ := New(Config{Repository: f.project, Primary: f.primary, Engine: lensFailEngine{}})
	if err := coord.Activate(ModeLens, f.layers()); err == nil {
		t.Fatal("expected lens failure")
	}
	if coord.Mode() != ModeInactive {
		t.Errorf("Mode = %s", coord.Mode())
	}
	f.assertClean(t)
}

func TestActivateMirrorMissingSecondary(t *testing.T) {
	f := newFixture(t, "EPSG:3857", UnitMeters, nil)
	f.dock.Disabled = true

	if err := f.coord.Activate(ModeMirror, f.layers()); !errors.Is(err, ErrMissingSecondaryViewport) {
		t.Fatalf("err = %v, want ErrMissingSecondaryViewport", err)
	}
	if f.coord.Mode() != ModeInactive {
		t.Errorf("Mode = %s", f.coord.Mode())
	}
	f.assertClean(t)
}

func TestActivateMirrorMissingSecondaryRestoresMask(t *testing.T) {
	f := newFixture(t, "EPSG:3857", UnitMeters, nil)
	f.coord.Activate(ModeSplitVertical, f.layers())
	f.dock.Disabled = true

	if err := f.coord.Activate(ModeMirror, f.layers()); !errors.Is(err, ErrMissingSecondaryViewport) {
		t.Fatalf("err = %v", err)
	}
	if f.coord.Mode() != ModeSplitVertical {
		t.Errorf("Mode = %s, want vertical", f.coord.Mode())
	}
	if f.countGroups(DefaultGroupName) != 1 {
		t.Error("vertical split not restored")
	}
}

func TestActivateMirrorFactoryVariants(t *testing.T) {
	tests := []struct {
		name string
		vf   ViewportFactory
	}{
		{"no factory", nil},
		{"factory error", factoryFunc(func(string) (SecondaryViewport, error) { return nil, errors.New("no dock") })},
		{"nil viewport", factoryFunc(func(string) (SecondaryViewport, error) { return nil, nil })},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProject("EPSG:3857", UnitMeters)
			a := testLayer("A")
			p.AddLayer(a, true)
			coord, _ := New(Config{Repository: p, Primary: NewMapCanvas("m", Rect{Width: 10, Height: 10}, Vec2{}, 1), Viewports: tt.vf})
			if err := coord.Activate(ModeMirror, []*Layer{a}); !errors.Is(err, ErrMissingSecondaryViewport) {
				t.Errorf("err = %v, want ErrMissingSecondaryViewport", err)
			}
			if coord.Mode() != ModeInactive {
				t.Errorf("Mode = %s", coord.Mode())
			}
		})
	}
}

// --- Mirror ---

func TestActivateMirror(t *testing.T) {
	f := newFixture(t, "EPSG:3857", UnitMeters, nil)
	if err := f.coord.Activate(ModeMirror, []*Layer{f.b}); err != nil {
		t.Fatal(err)
	}
	sec := f.dock.Canvas(DefaultMirrorTitle)
	if sec == nil || !sec.Visible() {
		t.Fatal("secondary canvas not shown")
	}
	name, layers := sec.Theme()
	if name != DefaultMirrorTheme || len(layers) != 1 || layers[0] != f.b {
		t.Errorf("theme = %q %v", name, layerNames(layers))
	}
	if sec.Center() != f.primary.Center() || sec.Scale() != f.primary.Scale() {
		t.Error("secondary not aligned with primary")
	}
	if f.countGroups(DefaultGroupName) != 0 {
		t.Error("mirror created a compare group")
	}

	f.primary.SetCenter(Vec2{X: 5, Y: 6})
	if sec.Center() != (Vec2{X: 5, Y: 6}) {
		t.Errorf("secondary center = %v", sec.Center())
	}
	sec.ZoomToScale(1234)
	if f.primary.Scale() != 1234 {
		t.Errorf("primary scale = %v", f.primary.Scale())
	}

	// Check states are untouched by the theme capture.
	for _, leaf := range f.project.LayerTreeRoot().Children() {
		if !leaf.Checked() {
			t.Errorf("leaf %q unchecked by mirror", leaf.Name)
		}
	}

	f.coord.Stop()
	f.assertClean(t)
}

func TestActivateMirrorTwiceReusesSecondary(t *testing.T) {
	f := newFixture(t, "EPSG:3857", UnitMeters, nil)
	f.coord.Activate(ModeMirror, f.layers())
	sec := f.dock.Canvas(DefaultMirrorTitle)

	if err := f.coord.Activate(ModeMirror, []*Layer{f.a}); err != nil {
		t.Fatal(err)
	}
	if f.dock.Canvas(DefaultMirrorTitle) != sec {
		t.Error("secondary recreated")
	}
	if n := f.primary.Subscribers(EventExtentChanged); n != 1 {
		t.Errorf("primary extent subscribers = %d, want 1", n)
	}
	if _, layers := sec.Theme(); len(layers) != 1 || layers[0] != f.a {
		t.Errorf("theme = %v, want [A]", layerNames(layers))
	}
}

func TestMirrorTeardownOrder(t *testing.T) {
	f := newFixture(t, "EPSG:3857", UnitMeters, nil)
	sec := newEchoViewport(Vec2{}, 1)
	coord, _ := New(Config{
		Repository: f.project,
		Primary:    f.primary,
		Viewports:  factoryFunc(func(string) (SecondaryViewport, error) { return sec, nil }),
	})
	coord.Activate(ModeMirror, f.layers())

	subsAtHide := -1
	sec.onHide = func() {
		subsAtHide = sec.live() + f.primary.Subscribers(EventExtentChanged) + f.primary.Subscribers(EventScaleChanged)
	}
	coord.Stop()
	if subsAtHide != 0 {
		t.Errorf("%d subscriptions alive when the secondary was hidden", subsAtHide)
	}
}

func TestSwitchBetweenFamilies(t *testing.T) {
	f := newFixture(t, "EPSG:3857", UnitMeters, nil)
	f.coord.Activate(ModeSplitVertical, f.layers())

	f.coord.Activate(ModeMirror, f.layers())
	if f.countGroups(DefaultGroupName) != 0 || f.countNamed(DefaultMaskLayerName) != 0 {
		t.Error("mask artifacts survived the switch to mirror")
	}

	f.coord.Activate(ModeLens, f.layers())
	sec := f.dock.Canvas(DefaultMirrorTitle)
	if sec.Visible() || f.coord.Synchronizer().Active() {
		t.Error("mirror survived the switch to lens")
	}
	if f.countGroups(DefaultGroupName) != 1 {
		t.Error("lens group missing")
	}
}

func TestSwitchBetweenFamiliesOrder(t *testing.T) {
	f := newFixture(t, "EPSG:3857", UnitMeters, nil)
	sec := newEchoViewport(Vec2{}, 1)
	groupsAtCreate, masksAtCreate := -1, -1
	coord, err := New(Config{
		Repository: f.project,
		Primary:    f.primary,
		Viewports: factoryFunc(func(string) (SecondaryViewport, error) {
			groupsAtCreate = f.countGroups(DefaultGroupName)
			masksAtCreate = f.countNamed(DefaultMaskLayerName)
			return sec, nil
		}),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := coord.Activate(ModeSplitVertical, f.layers()); err != nil {
		t.Fatal(err)
	}
	if err := coord.Activate(ModeMirror, f.layers()); err != nil {
		t.Fatal(err)
	}
	if groupsAtCreate != 0 || masksAtCreate != 0 {
		t.Errorf("secondary created with %d groups and %d masks alive, want 0", groupsAtCreate, masksAtCreate)
	}

	subsAtHide, groupsAtHide := -1, -1
	sec.onHide = func() {
		subsAtHide = sec.live() + f.primary.Subscribers(EventExtentChanged) + f.primary.Subscribers(EventScaleChanged)
		groupsAtHide = f.countGroups(DefaultGroupName)
	}
	if err := coord.Activate(ModeSplitHorizontal, f.layers()); err != nil {
		t.Fatal(err)
	}
	if subsAtHide != 0 {
		t.Errorf("%d subscriptions alive when the secondary was hidden", subsAtHide)
	}
	if groupsAtHide != 0 {
		t.Errorf("%d compare groups existed before the secondary was hidden", groupsAtHide)
	}
	if f.countGroups(DefaultGroupName) != 1 || !sec.hidden {
		t.Error("horizontal split not in place after the switch")
	}
}

// --- Stop ---

func TestStopEveryMode(t *testing.T) {
	for _, mode := range []Mode{ModeSplitVertical, ModeSplitHorizontal, ModeLens, ModeMirror} {
		t.Run(mode.String(), func(t *testing.T) {
			f := newFixture(t, "EPSG:4326", UnitDegrees, nil)
			if err := f.coord.Activate(mode, f.layers()); err != nil {
				t.Fatal(err)
			}
			if err := f.coord.Stop(); err != nil {
				t.Fatal(err)
			}
			f.assertClean(t)
			if e := f.sink.last(); e.From != mode || e.To != ModeInactive {
				t.Errorf("event = %+v", e)
			}
		})
	}
}

func TestStopInactiveIsNoop(t *testing.T) {
	f := newFixture(t, "EPSG:3857", UnitMeters, nil)
	if err := f.coord.Stop(); err != nil {
		t.Fatal(err)
	}
	if len(f.sink.events) != 0 {
		t.Errorf("events = %d, want 0", len(f.sink.events))
	}
	if err := f.coord.Activate(ModeInactive, nil); err != nil {
		t.Errorf("Activate(inactive) = %v", err)
	}
}

// --- Re-entrancy ---

func TestNestedStopIsDeferred(t *testing.T) {
	f := newFixture(t, "EPSG:3857", UnitMeters, nil)
	stopped := false
	f.sink.onEmit = func(e TransitionEvent) {
		if e.To == ModeSplitVertical && !stopped {
			stopped = true
			if err := f.coord.Stop(); err != nil {
				t.Errorf("nested Stop = %v", err)
			}
			if f.coord.Mode() != ModeSplitVertical {
				t.Error("nested Stop ran inside the transition")
			}
		}
	}
	if err := f.coord.Activate(ModeSplitVertical, f.layers()); err != nil {
		t.Fatal(err)
	}
	if f.coord.Mode() != ModeInactive {
		t.Errorf("Mode = %s, want inactive after deferred stop", f.coord.Mode())
	}
	f.assertClean(t)
}

func TestNestedActivateRefused(t *testing.T) {
	f := newFixture(t, "EPSG:3857", UnitMeters, nil)
	var nested error
	f.sink.onEmit = func(e TransitionEvent) {
		if e.To == ModeSplitVertical {
			nested = f.coord.Activate(ModeLens, f.layers())
		}
	}
	f.coord.Activate(ModeSplitVertical, f.layers())
	if !errors.Is(nested, ErrTransitionInProgress) {
		t.Errorf("nested err = %v, want ErrTransitionInProgress", nested)
	}
	if f.coord.Mode() != ModeSplitVertical {
		t.Errorf("Mode = %s", f.coord.Mode())
	}
}

// --- Layer tree notifications ---

func TestOwnTreeChangesSuppressed(t *testing.T) {
	f := newFixture(t, "EPSG:3857", UnitMeters, nil)
	f.treeChanges = 0
	f.coord.Activate(ModeSplitVertical, f.layers())
	f.coord.Stop()

	if f.treeChanges != 0 {
		t.Errorf("host saw %d tree changes caused by the coordinator", f.treeChanges)
	}
	if f.coord.Suppressed() == 0 {
		t.Error("no notifications were suppressed")
	}

	f.project.AddLayer(testLayer("C"), true)
	if f.treeChanges != 1 {
		t.Errorf("treeChanges = %d, want 1", f.treeChanges)
	}
}

func TestExternalGroupRemovalStops(t *testing.T) {
	f := newFixture(t, "EPSG:3857", UnitMeters, nil)
	f.coord.Activate(ModeSplitVertical, f.layers())

	f.coord.Groups().Group().Dispose()
	if f.coord.Mode() != ModeInactive {
		t.Errorf("Mode = %s, want inactive", f.coord.Mode())
	}
	if f.countNamed(DefaultMaskLayerName) != 0 || f.countNamed(DefaultBackgroundName) != 0 {
		t.Error("artifacts left after external removal")
	}
}

// --- Selection and settings ---

func TestSelectionChanged(t *testing.T) {
	f := newFixture(t, "EPSG:3857", UnitMeters, nil)
	if err := f.coord.SelectionChanged([]*Layer{f.a}); err != nil {
		t.Fatal(err)
	}
	if f.coord.Mode() != ModeInactive || len(f.coord.CheckedLayers()) != 1 {
		t.Error("inactive selection change should only be remembered")
	}

	f.coord.Activate(ModeSplitVertical, f.layers())
	f.coord.SelectionChanged([]*Layer{f.b})
	if got := childNames(f.coord.Groups().Group()); !equalNames(got, DefaultMaskLayerName, DefaultBackgroundName, "B") {
		t.Errorf("group = %v", got)
	}
	if err := f.coord.SelectionChanged(nil); !errors.Is(err, ErrEmptySelection) {
		t.Errorf("err = %v, want ErrEmptySelection", err)
	}
	if f.coord.Mode() != ModeSplitVertical {
		t.Errorf("Mode = %s", f.coord.Mode())
	}
}

func TestEmptySelectionKeepsRemembered(t *testing.T) {
	f := newFixture(t, "EPSG:3857", UnitMeters, nil)
	if err := f.coord.Activate(ModeSplitVertical, f.layers()); err != nil {
		t.Fatal(err)
	}
	if err := f.coord.SelectionChanged(nil); !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("err = %v, want ErrEmptySelection", err)
	}
	if got := layerNames(f.coord.CheckedLayers()); !equalNames(got, "A", "B") {
		t.Errorf("checked = %v, want [A B]", got)
	}
	if e := f.sink.last(); !errors.Is(e.Err, ErrEmptySelection) {
		t.Errorf("event err = %v", e.Err)
	}
	if err := f.coord.Refresh(); err != nil {
		t.Fatalf("Refresh after empty selection: %v", err)
	}
	if got := childNames(f.coord.Groups().Group()); !equalNames(got, DefaultMaskLayerName, DefaultBackgroundName, "A", "B") {
		t.Errorf("group = %v", got)
	}
}

func TestRefreshReappliesMode(t *testing.T) {
	f := newFixture(t, "EPSG:3857", UnitMeters, nil)
	if err := f.coord.Refresh(); err != nil {
		t.Fatal(err)
	}
	f.coord.Activate(ModeLens, f.layers())
	mask := f.coord.Groups().Mask()
	before := mask.Repaints()
	if err := f.coord.Refresh(); err != nil {
		t.Fatal(err)
	}
	if mask.Repaints() <= before {
		t.Error("Refresh did not repaint the mask")
	}
}

func TestApplySettingsLensRate(t *testing.T) {
	f := newFixture(t, "EPSG:3857", UnitMeters, nil)
	f.coord.Activate(ModeLens, f.layers())

	s := DefaultSettings()
	s.LensSizeRate = 0.3
	if err := f.coord.ApplySettings(s); err != nil {
		t.Fatal(err)
	}
	geom, _ := f.coord.Groups().Mask().Style().Geometry()
	if geom.LensRate != 0.3 || !strings.Contains(string(geom.Expr), "0.3") {
		t.Errorf("geometry = %+v", geom)
	}
	if n := f.countNamed(DefaultBackgroundName); n != 1 {
		t.Errorf("backgrounds = %d, want 1", n)
	}
}

func TestApplySettingsRenamesArtifacts(t *testing.T) {
	f := newFixture(t, "EPSG:3857", UnitMeters, nil)
	f.coord.Activate(ModeSplitVertical, f.layers())

	s := DefaultSettings()
	s.GroupName = "Compare"
	s.MaskLayerName = "Mask"
	if err := f.coord.ApplySettings(s); err != nil {
		t.Fatal(err)
	}
	if f.countGroups(DefaultGroupName) != 0 || f.countNamed(DefaultMaskLayerName) != 0 {
		t.Error("old artifacts left behind")
	}
	if f.countGroups("Compare") != 1 || f.countNamed("Mask") != 1 {
		t.Error("new artifacts missing")
	}
	if f.coord.Mode() != ModeSplitVertical {
		t.Errorf("Mode = %s", f.coord.Mode())
	}
}

func TestApplySettingsRetitlesMirror(t *testing.T) {
	f := newFixture(t, "EPSG:3857", UnitMeters, nil)
	if err := f.coord.Activate(ModeMirror, f.layers()); err != nil {
		t.Fatal(err)
	}
	old := f.dock.Canvas(DefaultMirrorTitle)

	s := DefaultSettings()
	s.MirrorTitle = "Side by side"
	if err := f.coord.ApplySettings(s); err != nil {
		t.Fatal(err)
	}
	if old.Visible() {
		t.Error("old mirror canvas still visible")
	}
	sec := f.dock.Canvas("Side by side")
	if sec == nil || !sec.Visible() {
		t.Fatal("mirror not reopened under the new title")
	}
	if f.coord.Mode() != ModeMirror || !f.coord.Synchronizer().Active() {
		t.Error("mirror not running after retitle")
	}
	if n := f.primary.Subscribers(EventExtentChanged); n != 1 {
		t.Errorf("primary extent subscribers = %d, want 1", n)
	}
}

func TestApplySettingsInvalid(t *testing.T) {
	f := newFixture(t, "EPSG:3857", UnitMeters, nil)
	s := DefaultSettings()
	s.BlendConvention = "xor"
	if err := f.coord.ApplySettings(s); !errors.Is(err, ErrInvalidSettings) {
		t.Errorf("err = %v, want ErrInvalidSettings", err)
	}
	if f.coord.Settings().BlendConvention != DefaultSettings().BlendConvention {
		t.Error("invalid settings were applied")
	}
}

func TestCompactLayers(t *testing.T) {
	a, b := testLayer("a"), testLayer("b")
	gone := testLayer("gone")
	gone.dispose()
	got := compactLayers([]*Layer{a, nil, b, a, gone})
	if len(got) != 2 || got[0] != a || got[1] != b {
		t.Errorf("compactLayers = %v", layerNames(got))
	}
}
