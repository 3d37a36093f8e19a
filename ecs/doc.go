// Package ecs provides ECS adapters for mapcompare's coordinator events.
//
// The primary adapter is [NewDonburiSink], which bridges coordinator mode
// transitions into a [Donburi] world as typed events and keeps a single
// entity with the current [CompareState]. Subscribe to
// [TransitionEventType] in your ECS systems to receive the events.
//
// Usage:
//
//	sink := ecs.NewDonburiSink(world)
//	coord.SetEventSink(sink)
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
