// Package ecs provides ECS adapters for mapcompare.
package ecs

import (
	"github.com/phanxgames/mapcompare"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// TransitionEventType is the Donburi event type for coordinator transitions.
// Subscribe to this in your ECS systems to react to mode switches.
var TransitionEventType = events.NewEventType[mapcompare.TransitionEvent]()

// CompareState is the component holding the last successful transition.
type CompareState struct {
	Mode        mapcompare.Mode
	Layers      int
	Transitions int
	Failures    int
}

// Compare is the component type of the compare state entity.
var Compare = donburi.NewComponentType[CompareState]()

// DonburiSink is an EventSink backed by a Donburi world. Every transition is
// published to TransitionEventType; successful ones also update a single
// entity carrying the Compare component.
type DonburiSink struct {
	world  donburi.World
	entity donburi.Entity
}

// NewDonburiSink creates the compare state entity in world and returns a sink
// updating it. Events can be consumed with events.Subscribe and
// ProcessEvents.
func NewDonburiSink(world donburi.World) *DonburiSink {
	return &DonburiSink{world: world, entity: world.Create(Compare)}
}

// EmitTransition implements mapcompare.EventSink.
func (s *DonburiSink) EmitTransition(event mapcompare.TransitionEvent) {
	TransitionEventType.Publish(s.world, event)

	entry := s.world.Entry(s.entity)
	state := Compare.Get(entry)
	if event.Err != nil {
		state.Failures++
		return
	}
	state.Mode = event.To
	state.Layers = event.Layers
	state.Transitions++
}

// Entity returns the compare state entity.
func (s *DonburiSink) Entity() donburi.Entity { return s.entity }

// State returns a copy of the compare state.
func (s *DonburiSink) State() CompareState {
	return *Compare.Get(s.world.Entry(s.entity))
}
