package session

import (
	"fmt"

	"go.uber.org/zap"
)

// Command is one state transition requested by the interaction layer.
// Input events are translated into commands and dispatched through
// Execute, which keeps the frontends decoupled from the session's
// method surface: a frontend only produces values, never captures
// session internals in callbacks.
type Command interface {
	// Name identifies the command in logs.
	Name() string
}

// SelectBundle selects the bundle with the given label; an empty
// label deselects.
type SelectBundle struct{ Label string }

// SelectNext moves the selection to the next bundle in review order.
type SelectNext struct{}

// SelectPrevious moves the selection to the previous bundle in review
// order.
type SelectPrevious struct{}

// Deselect clears the selection and restores full visibility.
type Deselect struct{}

// SetThreshold previews the selected bundle's clustering at a new
// threshold.
type SetThreshold struct{ Value float64 }

// ToggleOthers flips unselected bundles between dimmed and hidden.
type ToggleOthers struct{}

// CentroidView shows centroids and hides streamlines everywhere.
type CentroidView struct{}

// StreamlineView shows streamlines and hides centroids everywhere.
type StreamlineView struct{}

// AcceptSelected moves the selected bundle into the inliers.
type AcceptSelected struct{}

// RejectSelected moves the selected bundle into the outliers.
type RejectSelected struct{}

// UndoLast reverses the most recent accept or reject.
type UndoLast struct{}

// SplitSelected materializes the selected bundle's clusters as new
// bundles.
type SplitSelected struct{}

// SaveAll persists every bundle plus the inliers and outliers.
type SaveAll struct{}

// MergeAll merges every live bundle back into a single root bundle.
type MergeAll struct{}

func (SelectBundle) Name() string   { return "select-bundle" }
func (SelectNext) Name() string     { return "select-next" }
func (SelectPrevious) Name() string { return "select-previous" }
func (Deselect) Name() string       { return "deselect" }
func (SetThreshold) Name() string   { return "set-threshold" }
func (ToggleOthers) Name() string   { return "toggle-others" }
func (CentroidView) Name() string   { return "centroid-view" }
func (StreamlineView) Name() string { return "streamline-view" }
func (AcceptSelected) Name() string { return "accept-selected" }
func (RejectSelected) Name() string { return "reject-selected" }
func (UndoLast) Name() string       { return "undo-last" }
func (SplitSelected) Name() string  { return "split-selected" }
func (SaveAll) Name() string        { return "save-all" }
func (MergeAll) Name() string       { return "merge-all" }

// Execute dispatches one command to its transition. The command set
// is closed; an unknown implementation of Command is an error.
func (s *Session) Execute(cmd Command) error {
	s.log.Debug("executing command", zap.String("command", cmd.Name()))
	switch c := cmd.(type) {
	case SelectBundle:
		return s.Select(c.Label)
	case SelectNext:
		return s.SelectNext()
	case SelectPrevious:
		return s.SelectPrevious()
	case Deselect:
		return s.Select("")
	case SetThreshold:
		_, err := s.SetThreshold(c.Value)
		return err
	case ToggleOthers:
		return s.ToggleOthersVisibility()
	case CentroidView:
		s.CentroidView()
		return nil
	case StreamlineView:
		s.StreamlineView()
		return nil
	case AcceptSelected:
		return s.Accept()
	case RejectSelected:
		return s.Reject()
	case UndoLast:
		return s.Undo()
	case SplitSelected:
		return s.Split()
	case SaveAll:
		return s.Save()
	case MergeAll:
		return s.ResetAll()
	default:
		return fmt.Errorf("unhandled command %q", cmd.Name())
	}
}
