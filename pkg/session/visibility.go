package session

import (
	"errors"
	"fmt"
	"math"

	"streamcurate/pkg/bundle"
)

// Visibility is a bulk display state applied to unselected bundles.
type Visibility string

const (
	// VisibilityVisible shows bundles at full opacity.
	VisibilityVisible Visibility = "visible"
	// VisibilityDimmed shows bundles washed out so the selected one
	// stands out. Bigger bundles are dimmed harder.
	VisibilityDimmed Visibility = "dimmed"
	// VisibilityHidden removes bundles from view entirely.
	VisibilityHidden Visibility = "hidden"
)

// ErrUnknownVisibility rejects visibility tokens outside the closed
// set.
var ErrUnknownVisibility = errors.New("unknown visibility state")

// dimOpacity returns the opacity for a dimmed bundle of n streamlines.
// Dense bundles wash out more so the selection stays legible, with a
// floor that keeps every bundle faintly visible.
func dimOpacity(n int) float64 {
	if n < 1 {
		return 0.6
	}
	return math.Max(0.1, 0.6-0.1*math.Log10(float64(n)))
}

// applyVisibility drives the actors for one visibility state over the
// given bundles (nil means every registered bundle, in label order),
// skipping any in exclude. Dimmed and hidden are remembered as the
// state to restore on the next selection; plain visible is not, so a
// deselect does not forget the user's dim/hide preference.
func (s *Session) applyVisibility(state Visibility, only []*bundle.Bundle, exclude map[*bundle.Bundle]bool) error {
	var visible bool
	switch state {
	case VisibilityVisible:
		visible = true
	case VisibilityDimmed:
		visible = true
		s.lastVisibility = state
	case VisibilityHidden:
		visible = false
		s.lastVisibility = state
	default:
		return fmt.Errorf("%w: %q", ErrUnknownVisibility, state)
	}

	targets := only
	if targets == nil {
		for _, h := range s.reg.handles() {
			targets = append(targets, s.reg.entries[h].bundle)
		}
	}
	for _, b := range targets {
		if exclude[b] {
			continue
		}
		b.SetVisible(visible)
		opacity := 1.0
		if state == VisibilityDimmed {
			opacity = dimOpacity(b.Len())
		}
		b.SetOpacity(opacity)
	}
	s.observer.VisibilityChanged(state)
	return nil
}

// SetBundlesVisibility applies a visibility state to every registered
// bundle except the named ones. Unknown states are rejected.
func (s *Session) SetBundlesVisibility(state Visibility, excludeLabels ...string) error {
	exclude := make(map[*bundle.Bundle]bool, len(excludeLabels))
	for _, label := range excludeLabels {
		if ent, ok := s.reg.lookupLabel(label); ok {
			exclude[ent.bundle] = true
		}
	}
	if err := s.applyVisibility(state, nil, exclude); err != nil {
		return err
	}
	s.stage.Render()
	return nil
}

// ToggleOthersVisibility flips the unselected bundles between dimmed
// and hidden. It needs a selection to know which bundle to spare.
func (s *Session) ToggleOthersVisibility() error {
	ent, ok := s.reg.lookup(s.selected)
	if !ok {
		return ErrNoSelection
	}
	exclude := map[*bundle.Bundle]bool{ent.bundle: true}
	switch s.lastVisibility {
	case VisibilityDimmed:
		if err := s.applyVisibility(VisibilityHidden, nil, exclude); err != nil {
			return err
		}
	case VisibilityHidden:
		if err := s.applyVisibility(VisibilityDimmed, nil, exclude); err != nil {
			return err
		}
	}
	s.stage.Render()
	return nil
}

// LastVisibility returns the dim/hide state applied to unselected
// bundles.
func (s *Session) LastVisibility() Visibility { return s.lastVisibility }
