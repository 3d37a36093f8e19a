package mapcompare

import "fmt"

// syncGuard prevents re-entrant synchronization. Setting a viewport's center
// or scale raises that viewport's change event synchronously; without the
// guard each handler would re-trigger the other indefinitely.
type syncGuard struct {
	held bool
}

// acquire takes the guard. It returns a release function, or nil if the guard
// was already held.
func (g *syncGuard) acquire() func() {
	if g.held {
		return nil
	}
	g.held = true
	return func() { g.held = false }
}

// Synchronizer keeps a primary and a secondary viewport showing the same
// center and scale. It owns the list of its event subscriptions and removes
// every one of them on Stop.
type Synchronizer struct {
	primary   Viewport
	secondary SecondaryViewport
	guard     syncGuard
	subs      []func()

	// syncs counts completed copies in either direction.
	syncs int
}

// NewSynchronizer returns an idle synchronizer.
func NewSynchronizer() *Synchronizer {
	return &Synchronizer{}
}

// Start aligns secondary with primary and subscribes to extent and scale
// changes of both. Starting an active synchronizer first stops it.
func (s *Synchronizer) Start(primary Viewport, secondary SecondaryViewport) error {
	if primary == nil {
		return ErrNoViewport
	}
	if secondary == nil {
		return fmt.Errorf("%w: synchronizer started without one", ErrMissingSecondaryViewport)
	}
	s.Stop()
	s.primary, s.secondary = primary, secondary

	secondary.ZoomToScale(primary.Scale())
	secondary.SetCenter(primary.Center())
	secondary.Refresh()

	s.subs = append(s.subs,
		primary.Subscribe(EventExtentChanged, s.primaryChanged),
		primary.Subscribe(EventScaleChanged, s.primaryChanged),
		secondary.Subscribe(EventExtentChanged, s.secondaryChanged),
		secondary.Subscribe(EventScaleChanged, s.secondaryChanged),
	)
	return nil
}

// Stop removes every subscription. The secondary viewport is not hidden: the
// caller does that after Stop returns. Safe to call when idle.
func (s *Synchronizer) Stop() {
	for _, unsubscribe := range s.subs {
		if unsubscribe != nil {
			unsubscribe()
		}
	}
	s.subs = s.subs[:0]
	s.primary, s.secondary = nil, nil
}

// Active reports whether the synchronizer holds subscriptions.
func (s *Synchronizer) Active() bool {
	return len(s.subs) > 0
}

// Subscriptions returns the number of live subscriptions.
func (s *Synchronizer) Subscriptions() int {
	return len(s.subs)
}

// Secondary returns the viewport being kept in sync, or nil when idle.
func (s *Synchronizer) Secondary() SecondaryViewport {
	return s.secondary
}

// Syncs returns how many center/scale copies have been made.
func (s *Synchronizer) Syncs() int {
	return s.syncs
}

func (s *Synchronizer) primaryChanged() {
	release := s.guard.acquire()
	if release == nil {
		return
	}
	defer release()
	if s.primary == nil || s.secondary == nil {
		return
	}
	copyView(s.primary, s.secondary)
	s.syncs++
}

func (s *Synchronizer) secondaryChanged() {
	release := s.guard.acquire()
	if release == nil {
		return
	}
	defer release()
	if s.primary == nil || s.secondary == nil {
		return
	}
	copyView(s.secondary, s.primary)
	s.syncs++
}

// copyView sets dst's scale then center from src and redraws dst.
func copyView(src, dst Viewport) {
	dst.ZoomToScale(src.Scale())
	dst.SetCenter(src.Center())
	dst.Refresh()
}
