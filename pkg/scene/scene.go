// Package scene declares the rendering collaborator the curation core
// talks to. The real engine (a VTK-style scene graph, a GPU viewer, a
// remote display) lives behind the Stage interface; the core only
// creates actors, flips their visibility, opacity and colors, and asks
// for a redraw. MemoryStage is the in-process implementation used by
// tests and the terminal frontend.
package scene

import (
	"streamcurate/pkg/colormap"
	"streamcurate/pkg/tract"
)

// Actor is one renderable object on the stage.
type Actor interface {
	// SetVisible toggles the actor.
	SetVisible(visible bool)
	// Visible reports the current toggle.
	Visible() bool
	// SetOpacity sets the actor opacity in [0, 1].
	SetOpacity(opacity float64)
	// SetPointColors replaces the flat per-point color scalars.
	SetPointColors(colors []colormap.Color)
}

// Stage is the scene-graph surface the curation core drives.
type Stage interface {
	// AddStreamlines creates a polyline actor for a whole collection
	// with per-point colors.
	AddStreamlines(lines *tract.Tractogram, pointColors []colormap.Color) Actor
	// AddTube creates a tube actor for a single representative
	// streamline, used for cluster centroids.
	AddTube(line tract.Streamline, color colormap.Color, width float64) Actor
	// Remove detaches actors from the stage.
	Remove(actors ...Actor)
	// Render requests a redraw after a batch of state changes.
	Render()
}
