// Package session implements the curation workflow: a registry of
// live bundles under hierarchical labels, a selection that drives
// clustering previews, accept/reject decisions feeding the inlier and
// outlier collections, a bounded undo log, and persistence of the
// final state.
//
// All session methods must be called from a single goroutine; the
// interactive frontends funnel every input event through one update
// loop, matching that model.
package session

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"streamcurate/pkg/bundle"
	"streamcurate/pkg/cluster"
	"streamcurate/pkg/scene"
	"streamcurate/pkg/tract"
)

// RootLabel is the label of the initial whole-tractogram bundle and
// of the bundle recreated by ResetAll.
const RootLabel = "/"

// DefaultExtension is the output format used when none is configured.
const DefaultExtension = ".tck"

var (
	// ErrNoSelection is returned by operations that need a selected
	// bundle when there is none.
	ErrNoSelection = errors.New("no bundle selected")
	// ErrUnknownBundle is returned when a label resolves to nothing.
	ErrUnknownBundle = errors.New("unknown bundle")
	// ErrNoStorage is returned by Save when the session was built
	// without a storage collaborator.
	ErrNoStorage = errors.New("no storage configured")
)

// Storage persists streamline collections keyed by file path. Remove
// of an absent path is not an error.
type Storage interface {
	Write(path string, t *tract.Tractogram) error
	Remove(path string) error
}

// Options configures a curation session.
type Options struct {
	// Prefix is prepended to every output file name; it may include a
	// directory.
	Prefix string

	// Extension selects the output format by file extension. Empty
	// means DefaultExtension.
	Extension string

	// DefaultThreshold is the clustering threshold applied when a
	// bundle is selected. Zero means "widest": half the bundle extent,
	// which previews as a single cluster.
	DefaultThreshold float64

	// UndoCapacity bounds the undo log; zero or negative selects
	// DefaultUndoCapacity.
	UndoCapacity int

	// Metric overrides the clustering metric for every bundle.
	Metric cluster.Metric

	// Storage receives persisted files. May be nil for sessions that
	// never save.
	Storage Storage

	// Observer mirrors state changes onto an interactive surface. May
	// be nil.
	Observer Observer

	// Logger receives progress and warning messages. Nil disables
	// logging.
	Logger *zap.Logger
}

// Session is the curation state machine. It owns the bundle registry,
// the selection, the inlier/outlier destinations and the undo log.
type Session struct {
	stage    scene.Stage
	log      *zap.Logger
	storage  Storage
	observer Observer
	metric   cluster.Metric

	prefix           string
	ext              string
	defaultThreshold float64

	reg      *registry
	selected Handle

	inliers  *tract.Tractogram
	outliers *tract.Tractogram
	undo     *undoLog

	lastVisibility Visibility
	lastThreshold  float64
	lastClusters   int
}

// New starts a session over one loaded tractogram. The whole
// collection becomes the root bundle, registered under RootLabel and
// attached to the stage.
func New(stage scene.Stage, lines *tract.Tractogram, opts Options) *Session {
	s := &Session{
		stage:            stage,
		log:              opts.Logger,
		storage:          opts.Storage,
		observer:         opts.Observer,
		metric:           opts.Metric,
		prefix:           opts.Prefix,
		ext:              opts.Extension,
		defaultThreshold: opts.DefaultThreshold,
		reg:              newRegistry(),
		inliers:          tract.NewTractogram(),
		outliers:         tract.NewTractogram(),
		undo:             newUndoLog(opts.UndoCapacity),
		lastVisibility:   VisibilityDimmed,
		lastThreshold:    math.NaN(),
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.observer == nil {
		s.observer = nopObserver{}
	}
	if s.ext == "" {
		s.ext = DefaultExtension
	}

	root := s.newBundle(lines, bundle.Options{})
	if _, err := s.addBundle(RootLabel, NoHandle, root); err != nil {
		// Unreachable: the registry is empty.
		panic(err)
	}
	s.stage.Render()
	return s
}

func (s *Session) newBundle(lines *tract.Tractogram, opts bundle.Options) *bundle.Bundle {
	opts.Metric = s.metric
	opts.Logger = s.log
	return bundle.New(lines, opts)
}

func (s *Session) addBundle(label string, parent Handle, b *bundle.Bundle) (Handle, error) {
	h, err := s.reg.add(label, parent, b)
	if err != nil {
		return NoHandle, err
	}
	b.Attach(s.stage)
	return h, nil
}

func (s *Session) removeBundle(h Handle) {
	if ent, ok := s.reg.lookup(h); ok {
		ent.bundle.Detach()
		_ = s.reg.remove(h)
	}
}

// Bundles returns the live bundle labels in sorted order.
func (s *Session) Bundles() []string { return s.reg.labels() }

// Lookup resolves a label to its bundle.
func (s *Session) Lookup(label string) (*bundle.Bundle, bool) {
	ent, ok := s.reg.lookupLabel(label)
	if !ok {
		return nil, false
	}
	return ent.bundle, true
}

// Selected returns the selected bundle's label, empty when nothing is
// selected.
func (s *Session) Selected() string {
	if ent, ok := s.reg.lookup(s.selected); ok {
		return ent.label
	}
	return ""
}

// SelectedBundle returns the selected bundle, nil when none.
func (s *Session) SelectedBundle() *bundle.Bundle {
	if ent, ok := s.reg.lookup(s.selected); ok {
		return ent.bundle
	}
	return nil
}

// Inliers returns the accepted streamline collection. Callers must
// treat it as read-only.
func (s *Session) Inliers() *tract.Tractogram { return s.inliers }

// Outliers returns the rejected streamline collection. Callers must
// treat it as read-only.
func (s *Session) Outliers() *tract.Tractogram { return s.outliers }

// UndoDepth returns how many decisions are currently reversible.
func (s *Session) UndoDepth() int { return s.undo.depth() }

// Prefix returns the output file prefix.
func (s *Session) Prefix() string { return s.prefix }

// LastThreshold returns the threshold of the most recent preview,
// NaN before the first selection.
func (s *Session) LastThreshold() float64 { return s.lastThreshold }

// LastClusterCount returns the cluster count of the most recent
// preview.
func (s *Session) LastClusterCount() int { return s.lastClusters }

// ThresholdMax returns the top of the interactive threshold range for
// the current selection: half the bundle's bounding-box diagonal,
// which always previews as one cluster. Zero when nothing is selected.
func (s *Session) ThresholdMax() float64 {
	if ent, ok := s.reg.lookup(s.selected); ok {
		return ent.bundle.Extent() / 2
	}
	return 0
}

// Select makes the named bundle current: the previous selection is
// reset to a single cluster, the new bundle is brought to full
// visibility while the others get the remembered dim/hide state, and
// a clustering preview runs at the default threshold (or the widest
// when none is configured). An empty label deselects: panels close
// and every bundle becomes fully visible.
func (s *Session) Select(label string) error {
	if label == "" {
		s.deselect()
		return nil
	}
	ent, ok := s.reg.lookupLabel(label)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownBundle, label)
	}
	s.selectEntry(ent)
	return nil
}

func (s *Session) deselect() {
	if prev, ok := s.reg.lookup(s.selected); ok {
		prev.bundle.Reset()
	}
	s.selected = NoHandle
	s.observer.SelectionCleared()
	_ = s.applyVisibility(VisibilityVisible, nil, nil)
	s.stage.Render()
}

func (s *Session) selectEntry(ent *entry) {
	if prev, ok := s.reg.lookup(s.selected); ok {
		prev.bundle.Reset()
	}
	s.selected = ent.handle
	b := ent.bundle
	s.log.Info("selecting bundle",
		zap.String("bundle", ent.label),
		zap.Int("streamlines", b.Len()))

	threshold := b.Extent() / 2
	if s.defaultThreshold > 0 {
		threshold = s.defaultThreshold
	}
	s.observer.SelectionChanged(ent.label, b)

	_ = s.applyVisibility(VisibilityVisible, []*bundle.Bundle{b}, nil)
	_ = s.applyVisibility(s.lastVisibility, nil, map[*bundle.Bundle]bool{b: true})

	n := b.Preview(threshold)
	s.lastThreshold = threshold
	s.lastClusters = n
	s.observer.ThresholdPreviewed(threshold, n)
	s.stage.Render()
}

// SelectNext moves the selection forward through the bundles in
// review order (biggest first), wrapping around. With no selection it
// lands on the biggest bundle.
func (s *Session) SelectNext() error { return s.cycle(1) }

// SelectPrevious moves the selection backward through the review
// order, wrapping around.
func (s *Session) SelectPrevious() error { return s.cycle(-1) }

func (s *Session) cycle(step int) error {
	order := s.reg.cycleOrder()
	if len(order) == 0 {
		s.log.Debug("no bundles to cycle through")
		return nil
	}
	pos := 0
	if _, ok := s.reg.lookup(s.selected); ok {
		cur := indexOfHandle(order, s.selected)
		pos = ((cur+step)%len(order) + len(order)) % len(order)
	}
	ent := s.reg.entries[order[pos]]
	s.selectEntry(ent)
	s.log.Info("selection cycled",
		zap.Int("position", pos+1),
		zap.Int("bundles", len(order)))
	return nil
}

func indexOfHandle(handles []Handle, h Handle) int {
	for i, other := range handles {
		if other == h {
			return i
		}
	}
	return 0
}

// SetThreshold reruns the clustering preview of the selected bundle
// at the given threshold and returns the cluster count. Repeating the
// current threshold is free: the cached count is returned without
// re-clustering.
func (s *Session) SetThreshold(threshold float64) (int, error) {
	ent, ok := s.reg.lookup(s.selected)
	if !ok {
		return 0, ErrNoSelection
	}
	if threshold == s.lastThreshold {
		return s.lastClusters, nil
	}
	n := ent.bundle.Preview(threshold)
	s.lastThreshold = threshold
	s.lastClusters = n
	s.observer.ThresholdPreviewed(threshold, n)
	s.stage.Render()
	return n, nil
}

// Accept moves the selected bundle's streamlines into the inliers,
// records the decision for undo, advances the selection and removes
// the bundle.
func (s *Session) Accept() error { return s.curate(ActionAccept) }

// Reject moves the selected bundle's streamlines into the outliers,
// records the decision for undo, advances the selection and removes
// the bundle.
func (s *Session) Reject() error { return s.curate(ActionReject) }

func (s *Session) curate(action Action) error {
	ent, ok := s.reg.lookup(s.selected)
	if !ok {
		return ErrNoSelection
	}
	b := ent.bundle

	var dest *tract.Tractogram
	switch action {
	case ActionAccept:
		dest = s.inliers
		s.log.Info("accepting bundle",
			zap.String("bundle", ent.label), zap.Int("streamlines", b.Len()))
	case ActionReject:
		dest = s.outliers
		s.log.Info("rejecting bundle",
			zap.String("bundle", ent.label), zap.Int("streamlines", b.Len()))
	default:
		return fmt.Errorf("invalid curation action %v", action)
	}

	dest.AppendTractogram(b.Lines())
	s.undo.push(undoRecord{
		action:  action,
		label:   ent.label,
		parent:  ent.parent,
		bundle:  b,
		count:   b.Len(),
		wantLen: dest.Len(),
	})

	s.advancePast(ent.handle)
	s.removeBundle(ent.handle)
	s.stage.Render()
	return nil
}

// advancePast moves the selection to the bundle that follows h in
// review order, skipping h itself since it is about to be removed.
// When h is the last bundle the selection is cleared.
func (s *Session) advancePast(h Handle) {
	order := s.reg.cycleOrder()
	pos := indexOfHandle(order, h)
	candidates := make([]Handle, 0, len(order)-1)
	for _, other := range order {
		if other != h {
			candidates = append(candidates, other)
		}
	}
	if len(candidates) == 0 {
		s.deselect()
		return
	}
	s.selectEntry(s.reg.entries[candidates[pos%len(candidates)]])
}

// Undo reverses the most recent accept/reject: the destination
// collection is truncated by exactly the streamlines that were
// appended, and the bundle returns to the registry under its original
// label and becomes selected. An empty log is a logged no-op. The
// truncation first checks that the collection still has the length
// recorded at decision time; any drift is an error instead of a wrong
// truncate.
func (s *Session) Undo() error {
	s.log.Info("undoing last action")
	rec, ok := s.undo.pop()
	if !ok {
		s.log.Info("undo memory empty")
		return nil
	}

	var dest *tract.Tractogram
	var name string
	switch rec.action {
	case ActionAccept:
		dest, name = s.inliers, "inliers"
	case ActionReject:
		dest, name = s.outliers, "outliers"
	default:
		s.log.Warn("unrecognized undo action, skipping",
			zap.Stringer("action", rec.action))
		return nil
	}

	if dest.Len() != rec.wantLen {
		return fmt.Errorf("undo %s %q: %s has %d streamlines, expected %d",
			rec.action, rec.label, name, dest.Len(), rec.wantLen)
	}
	if err := dest.Truncate(rec.count); err != nil {
		return fmt.Errorf("undo %s %q: %w", rec.action, rec.label, err)
	}
	s.log.Info("undid last action",
		zap.Stringer("action", rec.action),
		zap.String("bundle", rec.label),
		zap.Int("streamlines", rec.count))

	if _, err := s.addBundle(rec.label, rec.parent, rec.bundle); err != nil {
		return fmt.Errorf("undo %s: %w", rec.action, err)
	}
	return s.Select(rec.label)
}

// Split materializes the selected bundle's current clusters as new
// bundles labeled "{parent}{i}/", removes the parent and clears the
// selection. A bundle that was never clustered cannot be split.
func (s *Session) Split() error {
	ent, ok := s.reg.lookup(s.selected)
	if !ok {
		return ErrNoSelection
	}
	children, err := ent.bundle.ClusterBundles()
	if err != nil {
		return fmt.Errorf("split %q: %w", ent.label, err)
	}
	s.log.Info("materializing clusters",
		zap.String("bundle", ent.label), zap.Int("clusters", len(children)))

	for i, child := range children {
		label := fmt.Sprintf("%s%d/", ent.label, i)
		if _, err := s.addBundle(label, ent.handle, child); err != nil {
			return fmt.Errorf("split %q: %w", ent.label, err)
		}
	}
	s.removeBundle(ent.handle)
	s.deselect()
	s.log.Info("split complete", zap.Int("bundles", s.reg.len()))
	return nil
}

// CentroidView switches every bundle to its centroid representation:
// centroids shown, streamlines hidden.
func (s *Session) CentroidView() {
	for _, h := range s.reg.handles() {
		b := s.reg.entries[h].bundle
		b.ShowCentroids()
		b.HideStreamlines()
	}
	s.stage.Render()
}

// StreamlineView switches every bundle back to full streamlines:
// centroids hidden, streamlines shown.
func (s *Session) StreamlineView() {
	for _, h := range s.reg.handles() {
		b := s.reg.entries[h].bundle
		b.HideCentroids()
		b.ShowStreamlines()
	}
	s.stage.Render()
}

// ResetAll merges every live bundle back into a single root bundle.
// The undo log is cleared first; a reset is not reversible. The
// inlier and outlier collections are untouched.
func (s *Session) ResetAll() error {
	s.log.Info("merging remaining bundles")
	s.undo.clear()

	merged := tract.NewTractogram()
	for _, h := range s.reg.handles() {
		merged.AppendTractogram(s.reg.entries[h].bundle.Lines())
		s.removeBundle(h)
	}
	s.selected = NoHandle

	if merged.Len() == 0 {
		s.log.Info("no streamlines left to merge")
		s.stage.Render()
		return nil
	}

	root := s.newBundle(merged, bundle.Options{})
	if _, err := s.addBundle(RootLabel, NoHandle, root); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	s.deselect()
	s.log.Info("merged streamlines", zap.Int("streamlines", merged.Len()))
	return nil
}

// Save writes every live bundle plus the non-empty inlier and outlier
// collections through the storage collaborator, then clears the undo
// log: a save is the commit point, after which past decisions are
// permanent. Files with the exact target names are deleted first; a
// failed write leaves the undo log intact.
func (s *Session) Save() error {
	if s.storage == nil {
		return ErrNoStorage
	}
	s.log.Info("saving", zap.String("prefix", s.prefix))

	inliersPath := s.prefix + "_inliers" + s.ext
	outliersPath := s.prefix + "_outliers" + s.ext
	if err := s.storage.Remove(inliersPath); err != nil {
		return fmt.Errorf("saving: %w", err)
	}
	if err := s.storage.Remove(outliersPath); err != nil {
		return fmt.Errorf("saving: %w", err)
	}

	labels := s.reg.labels()
	for i, label := range labels {
		path := fmt.Sprintf("%s_bundle_%d%s", s.prefix, i, s.ext)
		if err := s.storage.Remove(path); err != nil {
			return fmt.Errorf("saving %q: %w", label, err)
		}
		ent, _ := s.reg.lookupLabel(label)
		if err := s.storage.Write(path, ent.bundle.Lines()); err != nil {
			return fmt.Errorf("saving %q: %w", label, err)
		}
		s.log.Info("wrote bundle",
			zap.String("file", path), zap.Int("streamlines", ent.bundle.Len()))
	}

	if s.inliers.Len() > 0 {
		if err := s.storage.Write(inliersPath, s.inliers); err != nil {
			return fmt.Errorf("saving inliers: %w", err)
		}
		s.log.Info("wrote inliers",
			zap.String("file", inliersPath), zap.Int("streamlines", s.inliers.Len()))
	}
	if s.outliers.Len() > 0 {
		if err := s.storage.Write(outliersPath, s.outliers); err != nil {
			return fmt.Errorf("saving outliers: %w", err)
		}
		s.log.Info("wrote outliers",
			zap.String("file", outliersPath), zap.Int("streamlines", s.outliers.Len()))
	}

	s.undo.clear()
	s.log.Info("save complete")
	return nil
}
