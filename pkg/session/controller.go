package session

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"
)

// KeyEvent is one keyboard input as delivered by a frontend. Key is
// the lowercase key name ("tab", "space", "escape", "a"); Shift
// reports the modifier separately so "C" arrives as {"c", true}.
type KeyEvent struct {
	Key   string
	Shift bool
}

// Controller translates raw input events into session commands. It
// owns the keyboard shortcut surface:
//
//	tab        select next bundle (biggest first)
//	shift+tab  select previous bundle
//	space      toggle dim/hide of unselected bundles
//	c          show centroids, hide streamlines
//	shift+c    show streamlines, hide centroids
//	a          accept the selected bundle (inliers)
//	r          reject the selected bundle (outliers)
//	u          undo the last accept/reject
//	escape     deselect
//	s          save all bundles and collections
//	home       merge everything back into one bundle
type Controller struct {
	session *Session
	log     *zap.Logger
}

// NewController wires a controller to a session. A nil logger
// disables logging.
func NewController(s *Session, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{session: s, log: logger}
}

// HandleKey dispatches one key event. The returned handled flag tells
// the frontend whether to stop propagating the event; an event is
// either fully consumed or not touched at all. Keys that need a
// selection fall through unhandled when nothing is selected.
func (c *Controller) HandleKey(ev KeyEvent) (handled bool, err error) {
	c.log.Debug("key pressed",
		zap.String("key", ev.Key), zap.Bool("shift", ev.Shift))

	cmd, ok := c.command(ev)
	if !ok {
		return false, nil
	}
	return true, c.session.Execute(cmd)
}

func (c *Controller) command(ev KeyEvent) (Command, bool) {
	switch ev.Key {
	case "escape", "esc":
		return Deselect{}, true
	case "tab":
		if ev.Shift {
			return SelectPrevious{}, true
		}
		return SelectNext{}, true
	case "c":
		if ev.Shift {
			return StreamlineView{}, true
		}
		return CentroidView{}, true
	case "C":
		return StreamlineView{}, true
	case "u":
		return UndoLast{}, true
	case "s":
		return SaveAll{}, true
	case "home":
		return MergeAll{}, true
	case "space", " ":
		if c.session.Selected() == "" {
			return nil, false
		}
		return ToggleOthers{}, true
	case "a":
		if c.session.Selected() == "" {
			return nil, false
		}
		return AcceptSelected{}, true
	case "r":
		if c.session.Selected() == "" {
			return nil, false
		}
		return RejectSelected{}, true
	}
	return nil, false
}

// ApplyThresholdText parses a threshold typed into the numeric field
// and previews it. Text that does not parse, is negative, or exceeds
// the current threshold range is rejected without touching the
// preview.
func (c *Controller) ApplyThresholdText(text string) (float64, int, error) {
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid threshold %q", text)
	}
	max := c.session.ThresholdMax()
	if value < 0 || value > max {
		return 0, 0, fmt.Errorf("threshold %.1f outside range 0-%.1f", value, max)
	}
	n, err := c.session.SetThreshold(value)
	if err != nil {
		return 0, 0, err
	}
	return value, n, nil
}

// DragThreshold previews the clustering at a slider position given as
// a ratio in [0, 1] of the current threshold range. It returns the
// threshold value and the cluster count.
func (c *Controller) DragThreshold(ratio float64) (float64, int, error) {
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	value := ratio * c.session.ThresholdMax()
	n, err := c.session.SetThreshold(value)
	if err != nil {
		return 0, 0, err
	}
	return value, n, nil
}
