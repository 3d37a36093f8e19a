// Package mapcompare coordinates side-by-side comparison of map layers.
//
// A [Coordinator] switches a map between four compare modes and back:
//
//   - [ModeSplitVertical] and [ModeSplitHorizontal] show the compared layers
//     in one half of the map only.
//   - [ModeLens] shows them inside a circle following the cursor.
//   - [ModeMirror] shows them in a second, independently navigable viewport
//     kept at the same center and scale as the main one.
//
// The three mask modes work by gathering the compared layers into a group
// together with a mask layer. The mask is styled with a geometry expression
// (see [GeometryFor]) that the render engine re-evaluates against the live
// viewport on every redraw, and it is composited with a destination-in blend
// over a background layer, so only the window selected by the expression
// shows the group. Nothing is recomputed when the user pans or zooms. The
// lens additionally reloads its mask every 200 ms so the circle tracks the
// cursor.
//
// # Quick start
//
// The coordinator talks to its host through small interfaces:
// [LayerRepository] for layers and the layer tree, [Viewport] for the main
// map and [ViewportFactory] for the mirror. [Project], [MapCanvas] and
// [CanvasDock] are in-process implementations:
//
//	project := mapcompare.NewProject("EPSG:3857", mapcompare.UnitMeters)
//	canvas := mapcompare.NewMapCanvas("main", mapcompare.Rect{Width: 800, Height: 600},
//		mapcompare.Vec2{}, 50000)
//	project.AttachCanvas(canvas)
//
//	coord, err := mapcompare.New(mapcompare.Config{
//		Repository: project,
//		Primary:    canvas,
//		Viewports:  mapcompare.NewCanvasDock(project, mapcompare.Rect{Width: 400, Height: 300}),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	project.OnTreeChanged(coord.LayerTreeChanged)
//
//	err = coord.Activate(mapcompare.ModeSplitVertical, []*mapcompare.Layer{a, b})
//	// ...
//	coord.Stop()
//
// Call [Project.Update] once per frame; it drives the lens refresh clock and
// canvas animations. [Preview] wraps all of this in an [ebiten.Game].
//
// # Threading
//
// Everything except [SettingsWatcher] runs on the host's UI loop and is not
// safe for concurrent use. Viewport change events are delivered
// synchronously; the mirror [Synchronizer] guards against the feedback loop
// this creates. The settings watcher delivers reloaded [Settings] on a
// channel for the host to apply with [Coordinator.ApplySettings].
//
// # Settings
//
// [LoadSettings] reads TOML, YAML or JSON settings and applies MAPCOMPARE_*
// environment overrides. Logging goes through [log/slog]; install a logger
// with [SetLogger] or build one with [NewLogger].
//
// # Scenarios
//
// [ScenarioRunner] plays a JSON script of mode switches, cursor moves, pans
// and expectations one step per frame, for end-to-end checks without a
// window. The ecs sub-package forwards transitions into a Donburi world.
package mapcompare
