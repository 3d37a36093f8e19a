package mapcompare

import (
	"errors"
	"fmt"
)

// ErrTransitionInProgress is returned when Activate is called from inside a
// side effect of another Activate or Stop.
var ErrTransitionInProgress = errors.New("mapcompare: transition in progress")

// Config wires a Coordinator to its host.
type Config struct {
	Repository LayerRepository
	Primary    Viewport
	// Viewports creates the secondary viewport for mirror mode. Without it
	// mirror activation fails with ErrMissingSecondaryViewport.
	Viewports ViewportFactory
	// Engine builds styles; nil uses DefaultEngine.
	Engine RenderEngine
	// Settings; nil uses DefaultSettings.
	Settings *Settings
	// Sink receives transition events; may be nil.
	Sink EventSink
	// TreeChanged is called for layer tree changes the coordinator did not
	// cause itself, e.g. to refresh a layer picker.
	TreeChanged func()
}

// transitionState is held for the duration of Activate and Stop. While held,
// tree change notifications are suppressed and nested operations are refused
// (Activate) or deferred (Stop).
type transitionState struct {
	op          string
	pendingStop bool
	suppressed  int
}

// Coordinator is the compare-mode state machine. It is the only component
// that knows which mode is active. All methods must be called from the
// host's UI loop.
type Coordinator struct {
	repo        LayerRepository
	primary     Viewport
	viewports   ViewportFactory
	engine      RenderEngine
	sink        EventSink
	treeChanged func()

	settings   Settings
	compositor *Compositor
	groups     *GroupManager
	sync       *Synchronizer
	secondary  SecondaryViewport

	mode    Mode
	active  []*Layer // layers of the running mode
	checked []*Layer // last explicit selection

	transition transitionState
}

// New returns an inactive coordinator.
func New(cfg Config) (*Coordinator, error) {
	if cfg.Repository == nil {
		return nil, ErrNoRepository
	}
	if cfg.Primary == nil {
		return nil, ErrNoViewport
	}
	settings := DefaultSettings()
	if cfg.Settings != nil {
		settings = *cfg.Settings
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	engine := cfg.Engine
	if engine == nil {
		engine = DefaultEngine{}
	}
	c := &Coordinator{
		repo:        cfg.Repository,
		primary:     cfg.Primary,
		viewports:   cfg.Viewports,
		engine:      engine,
		sink:        cfg.Sink,
		treeChanged: cfg.TreeChanged,
		sync:        NewSynchronizer(),
	}
	c.configure(settings)
	return c, nil
}

func (c *Coordinator) configure(s Settings) {
	c.settings = s
	c.compositor = NewCompositor(c.engine, s.Convention())
	c.groups = NewGroupManager(c.repo, c.compositor, s.Names(), s.LensRefreshInterval())
}

// Mode returns the active mode.
func (c *Coordinator) Mode() Mode { return c.mode }

// Settings returns the settings in use.
func (c *Coordinator) Settings() Settings { return c.settings }

// Groups exposes the mask artifacts for inspection.
func (c *Coordinator) Groups() *GroupManager { return c.groups }

// Synchronizer exposes the mirror synchronizer for inspection.
func (c *Coordinator) Synchronizer() *Synchronizer { return c.sync }

// Processing reports whether an Activate or Stop is executing.
func (c *Coordinator) Processing() bool { return c.transition.op != "" }

// Suppressed returns how many tree change notifications were swallowed
// because the coordinator caused them.
func (c *Coordinator) Suppressed() int { return c.transition.suppressed }

// CheckedLayers returns a copy of the remembered layer selection.
func (c *Coordinator) CheckedLayers() []*Layer {
	return append([]*Layer(nil), c.checked...)
}

// SetEventSink replaces the transition event sink.
func (c *Coordinator) SetEventSink(sink EventSink) {
	c.sink = sink
}

// begin acquires the transition state for op. The returned release runs a
// Stop deferred by a nested call. ok is false if another operation holds it.
func (c *Coordinator) begin(op string) (release func(), ok bool) {
	if c.transition.op != "" {
		return nil, false
	}
	c.transition.op = op
	return func() {
		c.transition.op = ""
		if c.transition.pendingStop {
			c.transition.pendingStop = false
			_ = c.Stop()
		}
	}, true
}

// Activate switches to mode comparing layers. ModeInactive is the same as
// Stop. Re-activating the running mode reuses its artifacts and only
// refreshes the mask style and group membership (or the mirror theme). On
// failure the coordinator is left in the mode it was in.
func (c *Coordinator) Activate(mode Mode, layers []*Layer) (err error) {
	if mode == ModeInactive {
		return c.Stop()
	}
	layers = compactLayers(layers)
	from := c.mode
	if len(layers) == 0 {
		c.report(from, mode, 0, ErrEmptySelection)
		return ErrEmptySelection
	}
	release, ok := c.begin("activate")
	if !ok {
		return fmt.Errorf("%w: activate %s during %s", ErrTransitionInProgress, mode, c.transition.op)
	}
	defer release()
	defer func() { c.report(from, mode, len(layers), err) }()

	if mode.IsMask() {
		if err := c.groups.Preflight(); err != nil {
			return err
		}
	}

	switch {
	case from == ModeMirror && mode.IsMask():
		c.teardownMirror()
	case from.IsMask() && mode == ModeMirror:
		c.groups.Teardown()
	}

	if err := c.activate(from, mode, layers); err != nil {
		c.rollback(from, mode, c.active)
		return err
	}
	c.mode = mode
	c.active = layers
	c.checked = layers
	return nil
}

func (c *Coordinator) activate(from, mode Mode, layers []*Layer) error {
	if mode == ModeMirror {
		return c.activateMirror(from == ModeMirror, layers)
	}
	return c.activateMask(mode, layers)
}

func (c *Coordinator) activateMask(mode Mode, layers []*Layer) error {
	group, mask, err := c.groups.EnsureGroupAndMask(mode)
	if err != nil {
		return err
	}
	c.groups.StripMembers()
	if err := c.compositor.ApplyMask(mask, GeometryFor(mode, c.settings.LensSizeRate)); err != nil {
		return err
	}
	if err := c.groups.MaybeAddGeographyDuplicate(); err != nil {
		return err
	}
	return c.groups.AddBackgroundAndTargets(group, layers)
}

func (c *Coordinator) activateMirror(reuse bool, layers []*Layer) error {
	if reuse && c.secondary != nil && c.sync.Active() {
		return c.applyTheme(c.secondary, layers)
	}
	if c.viewports == nil {
		return fmt.Errorf("%w: no viewport factory configured", ErrMissingSecondaryViewport)
	}
	sec, err := c.viewports.SecondaryViewport(c.settings.MirrorTitle)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMissingSecondaryViewport, err)
	}
	if sec == nil {
		return fmt.Errorf("%w: factory returned no viewport for %q", ErrMissingSecondaryViewport, c.settings.MirrorTitle)
	}
	if err := c.applyTheme(sec, layers); err != nil {
		sec.Hide()
		return err
	}
	if err := c.sync.Start(c.primary, sec); err != nil {
		sec.Hide()
		return err
	}
	c.secondary = sec
	return nil
}

// applyTheme shows the compare layers in sec. Layers missing from the layer
// tree are shown as given.
func (c *Coordinator) applyTheme(sec SecondaryViewport, layers []*Layer) error {
	theme, err := captureTheme(c.repo.LayerTreeRoot(), layers)
	if err != nil {
		return err
	}
	if len(theme) == 0 {
		theme = layers
	}
	sec.SetTheme(c.settings.MirrorTheme, theme)
	sec.Refresh()
	return nil
}

// teardownMirror removes every sync subscription, then hides the secondary
// viewport.
func (c *Coordinator) teardownMirror() {
	c.sync.Stop()
	if c.secondary != nil {
		c.secondary.Hide()
		c.secondary = nil
	}
}

// rollback undoes a failed activation of to and restores from with its
// previous layers.
func (c *Coordinator) rollback(from, to Mode, prev []*Layer) {
	switch {
	case to.IsMask() && !from.IsMask():
		c.groups.Teardown()
	case to == ModeMirror && from != ModeMirror:
		c.teardownMirror()
	}
	if from == ModeInactive || len(prev) == 0 {
		c.mode = ModeInactive
		c.active = nil
		return
	}
	if err := c.activate(from, from, prev); err != nil {
		Logger().Warn("rollback failed, compare stopped", "mode", from, "err", err)
		if from.IsMask() {
			c.groups.Teardown()
		} else {
			c.teardownMirror()
		}
		c.mode = ModeInactive
		c.active = nil
		return
	}
	Logger().Warn("activation failed, previous mode restored", "failed", to, "restored", from)
}

// Stop tears down whatever the active mode created and returns to
// ModeInactive. Stopping an inactive coordinator is a no-op. Called from
// inside a running transition, the stop is carried out as soon as that
// transition finishes.
func (c *Coordinator) Stop() error {
	release, ok := c.begin("stop")
	if !ok {
		c.transition.pendingStop = true
		return nil
	}
	defer release()

	from := c.mode
	if from == ModeInactive {
		return nil
	}
	switch {
	case from.IsMask():
		c.groups.Teardown()
	case from == ModeMirror:
		c.teardownMirror()
	}
	c.mode = ModeInactive
	c.active = nil
	c.report(from, ModeInactive, 0, nil)
	return nil
}

// SelectionChanged records layers as the current selection and re-runs the
// active mode with it. While inactive the selection is only remembered. An
// empty selection while a mode is active is rejected with ErrEmptySelection
// and the remembered selection is kept.
func (c *Coordinator) SelectionChanged(layers []*Layer) error {
	next := compactLayers(layers)
	if c.mode == ModeInactive {
		c.checked = next
		return nil
	}
	if len(next) == 0 {
		c.report(c.mode, c.mode, 0, ErrEmptySelection)
		return ErrEmptySelection
	}
	c.checked = next
	return c.Activate(c.mode, c.checked)
}

// Refresh re-runs the active mode with the remembered selection.
func (c *Coordinator) Refresh() error {
	if c.mode == ModeInactive {
		return nil
	}
	return c.Activate(c.mode, c.checked)
}

// LayerTreeChanged is the coordinator's handler for the host's layer tree
// change notification. Changes caused by the coordinator's own transitions
// are swallowed. If the compare group disappeared from under a mask mode
// (e.g. the user deleted it), the mode is stopped.
func (c *Coordinator) LayerTreeChanged() {
	if c.Processing() {
		c.transition.suppressed++
		return
	}
	if c.mode.IsMask() && c.repo.LayerTreeRoot().FindGroup(c.settings.GroupName) == nil {
		Logger().Debug("compare group removed externally, stopping", "mode", c.mode)
		_ = c.Stop()
	}
	if c.treeChanged != nil {
		c.treeChanged()
	}
}

// ApplySettings swaps the settings and re-runs the active mode so they take
// effect. If artifact names changed, the old artifacts are removed first. A
// running mirror whose title changed is torn down and reopened under the new
// title.
func (c *Coordinator) ApplySettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if c.Processing() {
		return fmt.Errorf("%w: apply settings during %s", ErrTransitionInProgress, c.transition.op)
	}
	mode, layers := c.mode, c.active
	renamed := mode.IsMask() && s.Names() != c.settings.Names()
	retitled := mode == ModeMirror && s.MirrorTitle != c.settings.MirrorTitle
	if renamed || retitled {
		if err := c.Stop(); err != nil {
			return err
		}
	}
	c.configure(s)
	Logger().Info("settings applied", "lens_rate", s.LensSizeRate, "refresh_ms", s.LensRefreshMS, "blend", s.Convention())
	if mode == ModeInactive {
		return nil
	}
	return c.Activate(mode, layers)
}

func (c *Coordinator) report(from, to Mode, layers int, err error) {
	if err != nil {
		Logger().Warn("compare transition failed", "from", from, "to", to, "layers", layers, "err", err)
	} else {
		Logger().Debug("compare transition", "from", from, "to", to, "layers", layers)
	}
	if c.sink != nil {
		c.sink.EmitTransition(TransitionEvent{From: from, To: to, Layers: layers, Err: err})
	}
}

// compactLayers drops nil and disposed layers and duplicates by id, keeping
// first occurrences in order.
func compactLayers(layers []*Layer) []*Layer {
	out := make([]*Layer, 0, len(layers))
	seen := make(map[LayerID]bool, len(layers))
	for _, l := range layers {
		if l == nil || l.IsDisposed() || seen[l.ID] {
			continue
		}
		seen[l.ID] = true
		out = append(out, l)
	}
	return out
}
