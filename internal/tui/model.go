// Package tui is the terminal frontend of a curation session. It
// wraps the session in a bubbletea model: curation shortcuts are fed
// to the session controller first, and keys the controller leaves
// untouched drive the frontend itself (threshold entry, anatomy
// slices, help overlay, quitting).
//
// The model is a value; bubbletea copies it on every update. Shared
// state lives behind pointers (session, slicer, status sink), so the
// copies all observe the same curation run.
package tui

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"streamcurate/pkg/anatomy"
	"streamcurate/pkg/bundle"
	"streamcurate/pkg/journal"
	"streamcurate/pkg/session"
)

// statusKeep bounds the notification lines shown in the footer.
const statusKeep = 4

// StatusSink collects session notifications for the footer. Register
// the same sink as the session observer and pass it to New; the model
// copies made by bubbletea all share it.
type StatusSink struct {
	lines []string
}

// NewStatusSink returns an empty sink.
func NewStatusSink() *StatusSink { return &StatusSink{} }

func (s *StatusSink) push(line string) {
	s.lines = append(s.lines, line)
	if n := len(s.lines) - statusKeep; n > 0 {
		s.lines = s.lines[n:]
	}
}

// SelectionChanged implements session.Observer.
func (s *StatusSink) SelectionChanged(label string, b *bundle.Bundle) {
	s.push(fmt.Sprintf("selected %s: %d streamlines, threshold range 0-%.1f",
		label, b.Len(), b.Extent()/2))
}

// SelectionCleared implements session.Observer.
func (s *StatusSink) SelectionCleared() { s.push("selection cleared") }

// ThresholdPreviewed implements session.Observer.
func (s *StatusSink) ThresholdPreviewed(threshold float64, clusters int) {
	s.push(fmt.Sprintf("threshold %.2f: %d clusters", threshold, clusters))
}

// VisibilityChanged implements session.Observer.
func (s *StatusSink) VisibilityChanged(state session.Visibility) {
	s.push("unselected bundles " + string(state))
}

// Options configures the terminal frontend.
type Options struct {
	// Session is the curation session this frontend drives.
	Session *session.Session

	// Sink must be the observer the session was built with; the view
	// reads its notification lines.
	Sink *StatusSink

	// Volume is the anatomical background volume. Nil hides the
	// anatomy panel and disables the slice keys.
	Volume *anatomy.Volume

	// Journal records curation decisions. Nil disables recording.
	Journal *journal.Journal

	// RunID names the journal run decisions are appended to.
	RunID string

	// Width and Height bound the rendered screen until the first
	// terminal size message arrives. Zero leaves the size unbounded.
	Width  int
	Height int

	// Logger receives key and command diagnostics. Nil disables
	// logging.
	Logger *zap.Logger
}

// Model is the bubbletea model of one curation run.
type Model struct {
	session    *session.Session
	controller *session.Controller
	sink       *StatusSink
	volume     *anatomy.Volume
	slicer     *anatomy.Slicer
	journal    *journal.Journal
	runID      string
	log        *zap.Logger

	input    textinput.Model
	entering bool

	width    int
	height   int
	showHelp bool
	quitting bool
}

// New builds the model for tea.NewProgram. The session must have been
// created with opts.Sink as its observer.
func New(opts Options) Model {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	sink := opts.Sink
	if sink == nil {
		sink = NewStatusSink()
	}

	input := textinput.New()
	input.Placeholder = "distance in mm"
	input.CharLimit = 10
	input.Width = 16

	m := Model{
		session:    opts.Session,
		controller: session.NewController(opts.Session, log),
		sink:       sink,
		volume:     opts.Volume,
		journal:    opts.Journal,
		runID:      opts.RunID,
		log:        log,
		input:      input,
		width:      opts.Width,
		height:     opts.Height,
	}
	if opts.Volume != nil {
		m.slicer = anatomy.NewSlicer(opts.Volume)
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.entering {
			return m.handleThresholdKey(msg)
		}
		if m.showHelp {
			switch msg.String() {
			case "q", "?", "esc":
				m.showHelp = false
			}
			return m, nil
		}
		return m.handleKey(msg)
	}
	return m, nil
}

// handleKey dispatches one key press. The session controller gets it
// first; a key it consumes never reaches the frontend shortcuts.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ev := keyEvent(msg)
	before := m.snapshot()

	handled, err := m.controller.HandleKey(ev)
	if err != nil {
		m.sink.push("error: " + err.Error())
		return m, nil
	}
	if handled {
		m.afterCommand(ev, before)
		return m, nil
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "?":
		m.showHelp = true

	case "enter":
		m.splitSelected(before)

	case "t":
		if m.session.Selected() == "" {
			m.sink.push("select a bundle before typing a threshold")
			return m, nil
		}
		m.entering = true
		m.input.SetValue("")
		return m, m.input.Focus()

	case "left":
		m.nudgeThreshold(-thresholdStep)

	case "right":
		m.nudgeThreshold(thresholdStep)

	case "x", "y", "z":
		m.shiftSlice(msg.String(), 1)

	case "X", "Y", "Z":
		m.shiftSlice(strings.ToLower(msg.String()), -1)
	}
	return m, nil
}

// handleThresholdKey runs while the threshold field is open: enter
// applies, esc cancels and everything else feeds the text input.
func (m Model) handleThresholdKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "esc":
		m.entering = false
		m.input.Blur()
		return m, nil

	case "enter":
		m.entering = false
		m.input.Blur()
		value, clusters, err := m.controller.ApplyThresholdText(m.input.Value())
		if err != nil {
			m.sink.push(err.Error())
			return m, nil
		}
		m.log.Info("threshold applied",
			zap.Float64("threshold", value), zap.Int("clusters", clusters))
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// keyEvent translates a bubbletea key into the controller's event
// shape. bubbletea spells modified keys "shift+tab"; the controller
// wants the modifier split out.
func keyEvent(msg tea.KeyMsg) session.KeyEvent {
	key := msg.String()
	if rest, ok := strings.CutPrefix(key, "shift+"); ok {
		return session.KeyEvent{Key: rest, Shift: true}
	}
	return session.KeyEvent{Key: key}
}

// snapshot captures the selection before a command runs. Accept and
// reject clear the selection as a side effect, so the journal entry
// has to be taken from the state the user saw when pressing the key.
type snapshot struct {
	label     string
	size      int
	threshold float64
	undoDepth int
}

func (m Model) snapshot() snapshot {
	snap := snapshot{
		label:     m.session.Selected(),
		threshold: m.session.LastThreshold(),
		undoDepth: m.session.UndoDepth(),
	}
	if b := m.session.SelectedBundle(); b != nil {
		snap.size = b.Len()
	}
	return snap
}

// afterCommand reports a consumed curation key to the footer and the
// journal. View changes (selection, visibility) are not decisions and
// are skipped; the observer already narrates them.
func (m Model) afterCommand(ev session.KeyEvent, before snapshot) {
	switch ev.Key {
	case "a":
		m.sink.push(fmt.Sprintf("accepted %s: %d streamlines", before.label, before.size))
		m.record(journal.ActionAccept, before.label, before.size, before.threshold)

	case "r":
		m.sink.push(fmt.Sprintf("rejected %s: %d streamlines", before.label, before.size))
		m.record(journal.ActionReject, before.label, before.size, before.threshold)

	case "u":
		if m.session.UndoDepth() == before.undoDepth {
			return
		}
		after := m.snapshot()
		m.sink.push("restored " + after.label)
		m.record(journal.ActionUndo, after.label, after.size, after.threshold)

	case "s":
		lines := m.session.Inliers().Len() + m.session.Outliers().Len()
		for _, label := range m.session.Bundles() {
			if b, ok := m.session.Lookup(label); ok {
				lines += b.Len()
			}
		}
		m.sink.push(fmt.Sprintf("saved %d streamlines under %s", lines, m.session.Prefix()))
		m.record(journal.ActionSave, "", lines, math.NaN())

	case "home":
		root, ok := m.session.Lookup(session.RootLabel)
		if !ok {
			return
		}
		m.sink.push(fmt.Sprintf("merged everything into %s: %d streamlines",
			session.RootLabel, root.Len()))
		m.record(journal.ActionMerge, session.RootLabel, root.Len(), math.NaN())
	}
}

// splitSelected materializes the previewed clusters of the selected
// bundle as child bundles.
func (m Model) splitSelected(before snapshot) {
	sel := m.session.SelectedBundle()
	if sel == nil {
		m.sink.push("select a bundle to split")
		return
	}
	children := len(sel.Clusters())
	if err := m.session.Execute(session.SplitSelected{}); err != nil {
		m.sink.push("error: " + err.Error())
		return
	}
	m.sink.push(fmt.Sprintf("split %s into %d bundles", before.label, children))
	m.record(journal.ActionSplit, before.label, before.size, before.threshold)
}

// thresholdStep is the slider fraction one arrow key press moves.
const thresholdStep = 0.01

func (m Model) nudgeThreshold(step float64) {
	if m.session.Selected() == "" {
		m.sink.push("select a bundle before adjusting the threshold")
		return
	}
	max := m.session.ThresholdMax()
	if max <= 0 {
		return
	}
	ratio := m.session.LastThreshold()/max + step
	if _, _, err := m.controller.DragThreshold(ratio); err != nil {
		m.sink.push("error: " + err.Error())
	}
}

func (m Model) shiftSlice(axis string, delta int) {
	if m.slicer == nil {
		m.sink.push("no anatomy volume loaded")
		return
	}
	if err := m.slicer.Shift(axis, delta); err != nil {
		m.sink.push("error: " + err.Error())
	}
}

func (m Model) record(action, label string, lines int, threshold float64) {
	if m.journal == nil {
		return
	}
	err := m.journal.Record(context.Background(), m.runID, action, label, lines, threshold)
	if err != nil {
		m.log.Warn("journal write failed", zap.Error(err))
	}
}
