package bundle

import (
	"math"

	"streamcurate/pkg/scene"
)

// Attach creates the bundle's streamline actor on the stage and
// applies the current coloring and visibility. Attaching twice is a
// no-op. The centroid representation is built lazily by Update.
func (b *Bundle) Attach(stage scene.Stage) {
	if b.actor != nil {
		return
	}
	b.stage = stage
	b.actor = stage.AddStreamlines(b.lines, b.pointColors)
	b.actor.SetVisible(b.streamlinesVisible)
	b.dirty = true
}

// Detach removes every actor of the bundle from its stage. The
// bundle keeps its state and can be attached again, as happens when
// an undone decision restores it.
func (b *Bundle) Detach() {
	if b.stage == nil {
		return
	}
	if b.actor != nil {
		b.stage.Remove(b.actor)
		b.actor = nil
	}
	if len(b.centroidActors) > 0 {
		b.stage.Remove(b.centroidActors...)
		b.centroidActors = nil
	}
	b.stage = nil
	b.dirty = true
}

// Attached reports whether the bundle currently has actors on a
// stage.
func (b *Bundle) Attached() bool { return b.stage != nil }

// Update rebuilds the centroid tube actors if clustering changed
// since the last rebuild. Each centroid is drawn as a tube whose
// width grows with the log of its cluster size. Repeated calls
// without an intervening recluster are free, which lets callers
// invoke Update on every interaction.
func (b *Bundle) Update() {
	if !b.dirty || b.stage == nil {
		return
	}
	b.dirty = false

	if len(b.centroidActors) > 0 {
		b.stage.Remove(b.centroidActors...)
		b.centroidActors = b.centroidActors[:0]
	}
	for ci, c := range b.clusters {
		width := 0.1 + 0.1*math.Log(float64(c.Size()))
		tube := b.stage.AddTube(c.Centroid, b.clusterColors[ci], width)
		tube.SetVisible(b.centroidsVisible)
		b.centroidActors = append(b.centroidActors, tube)
	}
}

// ShowCentroids makes the centroid tubes visible, rebuilding them
// first if clustering changed.
func (b *Bundle) ShowCentroids() {
	b.Update()
	b.centroidsVisible = true
	for _, a := range b.centroidActors {
		a.SetVisible(true)
	}
}

// HideCentroids hides the centroid tubes without discarding them.
func (b *Bundle) HideCentroids() {
	b.centroidsVisible = false
	for _, a := range b.centroidActors {
		a.SetVisible(false)
	}
}

// ShowStreamlines makes the full streamline actor visible.
func (b *Bundle) ShowStreamlines() {
	b.streamlinesVisible = true
	if b.actor != nil {
		b.actor.SetVisible(true)
	}
}

// HideStreamlines hides the full streamline actor. The two
// representations toggle independently, so centroids can stand alone.
func (b *Bundle) HideStreamlines() {
	b.streamlinesVisible = false
	if b.actor != nil {
		b.actor.SetVisible(false)
	}
}

// CentroidsVisible reports whether the centroid representation is
// shown.
func (b *Bundle) CentroidsVisible() bool { return b.centroidsVisible }

// StreamlinesVisible reports whether the streamline representation is
// shown.
func (b *Bundle) StreamlinesVisible() bool { return b.streamlinesVisible }

// SetVisible shows or hides the streamline actor without touching the
// recorded representation toggles, used by the session to dim and
// hide unselected bundles.
func (b *Bundle) SetVisible(v bool) {
	if b.actor != nil {
		b.actor.SetVisible(v)
	}
}

// SetOpacity adjusts the streamline actor opacity.
func (b *Bundle) SetOpacity(o float64) {
	if b.actor != nil {
		b.actor.SetOpacity(o)
	}
}
