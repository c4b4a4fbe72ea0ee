package session

import "streamcurate/pkg/bundle"

// Observer receives the state changes an interactive surface needs to
// mirror: panel visibility, the threshold gauge range and the cluster
// count readout. The session calls it synchronously from its own
// event thread; implementations must not call back into the session.
type Observer interface {
	// SelectionChanged fires when a bundle becomes selected. The
	// surface opens its review and clustering panels and derives the
	// threshold range from the bundle (half its extent).
	SelectionChanged(label string, b *bundle.Bundle)
	// SelectionCleared fires when no bundle is selected; panels close.
	SelectionCleared()
	// ThresholdPreviewed fires after a clustering preview with the
	// threshold applied and the resulting cluster count.
	ThresholdPreviewed(threshold float64, clusters int)
	// VisibilityChanged fires whenever a bulk visibility state is
	// applied, including the dim/hide toggle.
	VisibilityChanged(state Visibility)
}

type nopObserver struct{}

func (nopObserver) SelectionChanged(string, *bundle.Bundle) {}
func (nopObserver) SelectionCleared()                       {}
func (nopObserver) ThresholdPreviewed(float64, int)         {}
func (nopObserver) VisibilityChanged(Visibility)            {}
