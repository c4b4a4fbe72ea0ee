package scene

import (
	"streamcurate/pkg/colormap"
	"streamcurate/pkg/tract"
)

// ActorKind discriminates the two actor shapes the core creates.
type ActorKind int

const (
	// KindStreamlines is a whole-collection polyline actor.
	KindStreamlines ActorKind = iota
	// KindTube is a single-centroid tube actor.
	KindTube
)

// MemoryActor is the in-memory actor record kept by MemoryStage.
// New actors start visible with full opacity, matching the behavior
// of the rendering engines this stands in for.
type MemoryActor struct {
	Kind        ActorKind
	Lines       *tract.Tractogram
	Tube        tract.Streamline
	TubeColor   colormap.Color
	TubeWidth   float64
	PointColors []colormap.Color

	visible bool
	opacity float64
	removed bool
}

// SetVisible implements Actor.
func (a *MemoryActor) SetVisible(visible bool) { a.visible = visible }

// Visible implements Actor.
func (a *MemoryActor) Visible() bool { return a.visible }

// SetOpacity implements Actor.
func (a *MemoryActor) SetOpacity(opacity float64) { a.opacity = opacity }

// Opacity returns the last opacity set on the actor.
func (a *MemoryActor) Opacity() float64 { return a.opacity }

// SetPointColors implements Actor.
func (a *MemoryActor) SetPointColors(colors []colormap.Color) { a.PointColors = colors }

// MemoryStage records actors and render requests without drawing
// anything. All curation state transitions run on a single event
// thread, so the stage keeps no locks.
type MemoryStage struct {
	actors  []*MemoryActor
	renders int
}

// NewMemoryStage returns an empty stage.
func NewMemoryStage() *MemoryStage {
	return &MemoryStage{}
}

// AddStreamlines implements Stage.
func (s *MemoryStage) AddStreamlines(lines *tract.Tractogram, pointColors []colormap.Color) Actor {
	a := &MemoryActor{
		Kind:        KindStreamlines,
		Lines:       lines,
		PointColors: pointColors,
		visible:     true,
		opacity:     1,
	}
	s.actors = append(s.actors, a)
	return a
}

// AddTube implements Stage.
func (s *MemoryStage) AddTube(line tract.Streamline, color colormap.Color, width float64) Actor {
	a := &MemoryActor{
		Kind:      KindTube,
		Tube:      line,
		TubeColor: color,
		TubeWidth: width,
		visible:   true,
		opacity:   1,
	}
	s.actors = append(s.actors, a)
	return a
}

// Remove implements Stage.
func (s *MemoryStage) Remove(actors ...Actor) {
	for _, actor := range actors {
		if ma, ok := actor.(*MemoryActor); ok {
			ma.removed = true
		}
	}
	live := s.actors[:0]
	for _, a := range s.actors {
		if !a.removed {
			live = append(live, a)
		}
	}
	s.actors = live
}

// Render implements Stage.
func (s *MemoryStage) Render() { s.renders++ }

// Actors returns the live actors in creation order.
func (s *MemoryStage) Actors() []*MemoryActor {
	out := make([]*MemoryActor, len(s.actors))
	copy(out, s.actors)
	return out
}

// Tubes returns the live tube actors in creation order.
func (s *MemoryStage) Tubes() []*MemoryActor {
	var out []*MemoryActor
	for _, a := range s.actors {
		if a.Kind == KindTube {
			out = append(out, a)
		}
	}
	return out
}

// RenderCount returns how many redraws were requested.
func (s *MemoryStage) RenderCount() int { return s.renders }
