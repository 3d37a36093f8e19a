package mapcompare

import (
	"fmt"
	"time"
)

// GroupManager owns the ephemeral artifacts of the mask modes: the mask layer,
// the background layer, the geography duplicate of the mask and the compare
// group holding them together with the target layers.
//
// Group layout, top to bottom:
//
//	mask, [geography duplicate], [background], target layers...
type GroupManager struct {
	repo       LayerRepository
	compositor *Compositor
	names      ArtifactNames
	refresh    time.Duration

	group      *TreeNode
	mask       *Layer
	background *Layer
	duplicate  *Layer
}

// ArtifactNames are the well-known names the group manager finds its
// artifacts by.
type ArtifactNames struct {
	Group            string
	Mask             string
	Background       string
	GeographicSuffix string
}

// NewGroupManager returns a manager creating artifacts in repo. refresh is the
// lens auto-refresh interval.
func NewGroupManager(repo LayerRepository, compositor *Compositor, names ArtifactNames, refresh time.Duration) *GroupManager {
	return &GroupManager{repo: repo, compositor: compositor, names: names, refresh: refresh}
}

// Group returns the compare group, or nil when torn down.
func (m *GroupManager) Group() *TreeNode { return m.group }

// Mask returns the mask layer, or nil when torn down.
func (m *GroupManager) Mask() *Layer { return m.mask }

// Background returns the current background layer, or nil.
func (m *GroupManager) Background() *Layer { return m.background }

// Duplicate returns the geography duplicate of the mask, or nil.
func (m *GroupManager) Duplicate() *Layer { return m.duplicate }

func (m *GroupManager) duplicateName() string {
	return m.names.Mask + m.names.GeographicSuffix
}

// Preflight reports ErrMaskCreation if a mask layer would have to be created
// and the project CRS cannot back it. It changes nothing, so callers can run
// it before tearing down another mode.
func (m *GroupManager) Preflight() error {
	if m.repo.FindLayerByName(m.names.Mask) != nil {
		return nil
	}
	src := DataSource{Provider: ProviderMemory, Geometry: GeometryPolygon, CRS: m.repo.CRS()}
	if !src.Valid() {
		return fmt.Errorf("%w: invalid data source %s", ErrMaskCreation, src)
	}
	return nil
}

// EnsureGroupAndMask finds or creates the mask layer and the compare group.
// The mask auto-refreshes every interval in lens mode and never otherwise.
// A new group is inserted at the top of the layer tree with the mask as its
// only member; an existing group is reused as is.
func (m *GroupManager) EnsureGroupAndMask(mode Mode) (*TreeNode, *Layer, error) {
	mask := m.repo.FindLayerByName(m.names.Mask)
	if mask == nil {
		mask = NewMemoryLayer(m.names.Mask, GeometryPolygon, m.repo.CRS())
		if !mask.IsValid() {
			return nil, nil, fmt.Errorf("%w: invalid data source %s", ErrMaskCreation, mask.Source)
		}
		m.setRefresh(mask, mode)
		if err := m.repo.AddLayer(mask, false); err != nil {
			return nil, nil, fmt.Errorf("%w: register %q: %v", ErrMaskCreation, mask.Name, err)
		}
		Logger().Debug("mask layer created", "layer", mask.Name, "id", mask.ID, "crs", mask.Source.CRS)
	} else {
		m.setRefresh(mask, mode)
	}

	root := m.repo.LayerTreeRoot()
	group := root.FindGroup(m.names.Group)
	if group == nil {
		group = NewGroup(m.names.Group)
		group.AddLayer(mask)
		root.AddChildAt(group, 0)
		Logger().Debug("compare group created", "group", group.Name)
	} else if !group.ContainsLayer(mask.ID) {
		group.InsertLayer(0, mask)
	}

	m.group, m.mask = group, mask
	return group, mask, nil
}

func (m *GroupManager) setRefresh(mask *Layer, mode Mode) {
	if mode == ModeLens {
		mask.SetAutoRefresh(RefreshReload, m.refresh)
		return
	}
	mask.SetAutoRefresh(RefreshDisabled, 0)
}

// StripMembers removes every member of the group except the mask and its
// geography duplicate, so targets from a previous activation do not linger.
// The previous background layer is unregistered from the repository.
func (m *GroupManager) StripMembers() {
	if m.group == nil {
		return
	}
	for _, child := range append([]*TreeNode(nil), m.group.Children()...) {
		if m.isMaskLeaf(child) {
			continue
		}
		m.group.RemoveChild(child)
		child.Dispose()
	}
	if m.background != nil {
		m.repo.RemoveLayer(m.background.ID)
		m.background = nil
	}
	// Backgrounds left behind by an earlier manager are found by name.
	m.removeAllNamed(m.names.Background)
}

// removeAllNamed unregisters every layer called name. It stops if the
// repository hands back a layer it was just asked to remove.
func (m *GroupManager) removeAllNamed(name string) {
	var last LayerID
	for l := m.repo.FindLayerByName(name); l != nil && l.ID != last; l = m.repo.FindLayerByName(name) {
		last = l.ID
		m.repo.RemoveLayer(l.ID)
	}
}

func (m *GroupManager) isMaskLeaf(n *TreeNode) bool {
	if n.Kind != KindLeaf {
		return false
	}
	id := n.LayerID()
	return (m.mask != nil && id == m.mask.ID) || (m.duplicate != nil && id == m.duplicate.ID)
}

// maskBlockEnd returns the index just below the mask and its duplicate.
func (m *GroupManager) maskBlockEnd(group *TreeNode) int {
	end := 0
	for i, child := range group.Children() {
		if m.isMaskLeaf(child) {
			end = i + 1
		}
	}
	return end
}

// AddBackgroundAndTargets inserts a fresh background layer directly below the
// mask (only when the blend convention uses one), then appends every layer
// of layers the group does not reference yet. Membership is by layer id.
func (m *GroupManager) AddBackgroundAndTargets(group *TreeNode, layers []*Layer) error {
	if m.compositor.Convention().UsesBackground() {
		bg := NewMemoryLayer(m.names.Background, GeometryPolygon, m.repo.CRS())
		if !bg.IsValid() {
			return fmt.Errorf("%w: invalid background data source %s", ErrMaskCreation, bg.Source)
		}
		if err := m.repo.AddLayer(bg, false); err != nil {
			return fmt.Errorf("%w: register %q: %v", ErrMaskCreation, bg.Name, err)
		}
		if err := m.compositor.ApplyBackground(bg); err != nil {
			m.repo.RemoveLayer(bg.ID)
			return err
		}
		group.InsertLayer(m.maskBlockEnd(group), bg)
		m.background = bg
	}

	for _, l := range layers {
		if l == nil || group.ContainsLayer(l.ID) {
			continue
		}
		group.AddLayer(l)
	}
	return nil
}

// MaybeAddGeographyDuplicate compensates for mask formulas assuming meter
// based Cartesian units. In a non-metric project a clone of the mask is
// placed directly below it; the clone is created only if absent and restyled
// from the mask otherwise. In a metric project any existing clone is removed.
func (m *GroupManager) MaybeAddGeographyDuplicate() error {
	if m.group == nil || m.mask == nil {
		return nil
	}
	if m.duplicate == nil {
		m.duplicate = m.repo.FindLayerByName(m.duplicateName())
	}

	if m.repo.DistanceUnit().IsMetric() {
		m.removeDuplicate()
		return nil
	}

	if m.duplicate != nil {
		dup := m.duplicate
		dup.SetStyle(m.mask.Style())
		dup.SetBlend(m.mask.Blend())
		dup.SetAutoRefresh(m.mask.AutoRefresh())
		if !m.group.ContainsLayer(dup.ID) {
			m.group.InsertLayer(m.group.IndexOf(m.group.FindLayer(m.mask.ID))+1, dup)
		}
		dup.TriggerRepaint()
		return nil
	}

	dup := m.mask.Clone()
	dup.Name = m.duplicateName()
	if err := m.repo.AddLayer(dup, false); err != nil {
		return fmt.Errorf("%w: register %q: %v", ErrMaskCreation, dup.Name, err)
	}
	m.group.InsertLayer(m.group.IndexOf(m.group.FindLayer(m.mask.ID))+1, dup)
	dup.TriggerRepaint()
	m.duplicate = dup
	Logger().Debug("geography duplicate created", "layer", dup.Name, "unit", m.repo.DistanceUnit())
	return nil
}

func (m *GroupManager) removeDuplicate() {
	if m.duplicate == nil {
		return
	}
	m.duplicate.SetAutoRefresh(RefreshDisabled, 0)
	m.repo.RemoveLayer(m.duplicate.ID)
	m.duplicate = nil
}

// Teardown removes the compare group and all its children from the layer tree
// and unregisters the mask, background and duplicate layers. Target layers
// stay registered. Auto-refresh is switched off before anything is removed.
func (m *GroupManager) Teardown() {
	if m.mask == nil {
		m.mask = m.repo.FindLayerByName(m.names.Mask)
	}
	if m.mask != nil {
		m.mask.SetAutoRefresh(RefreshDisabled, 0)
	}
	if m.duplicate == nil {
		m.duplicate = m.repo.FindLayerByName(m.duplicateName())
	}
	if m.duplicate != nil {
		m.duplicate.SetAutoRefresh(RefreshDisabled, 0)
	}

	if group := m.repo.LayerTreeRoot().FindGroup(m.names.Group); group != nil {
		group.Dispose()
	}
	m.group = nil

	for _, l := range []*Layer{m.mask, m.duplicate, m.background} {
		if l != nil {
			m.repo.RemoveLayer(l.ID)
		}
	}
	m.mask, m.duplicate, m.background = nil, nil, nil

	for _, name := range []string{m.names.Background, m.names.Mask, m.duplicateName()} {
		m.removeAllNamed(name)
	}
	Logger().Debug("compare group torn down", "group", m.names.Group)
}
