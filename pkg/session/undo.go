package session

import "streamcurate/pkg/bundle"

// Action is the kind of curation decision recorded for undo.
type Action uint8

const (
	actionUnknown Action = iota
	// ActionAccept moved a bundle's streamlines into the inliers.
	ActionAccept
	// ActionReject moved a bundle's streamlines into the outliers.
	ActionReject
)

// String returns the action name used in logs.
func (a Action) String() string {
	switch a {
	case ActionAccept:
		return "accept"
	case ActionReject:
		return "reject"
	default:
		return "unknown"
	}
}

// DefaultUndoCapacity is how many accept/reject decisions stay
// reversible when no capacity is configured.
const DefaultUndoCapacity = 2

// undoRecord captures one accept/reject decision completely enough to
// reverse it: the bundle object itself (so the registry entry can be
// rebuilt), its label and parent link, and the destination collection
// length right after the append. The length is validated before
// truncating, which turns the "nothing else touched the collection in
// between" assumption into an enforced invariant.
type undoRecord struct {
	action  Action
	label   string
	parent  Handle
	bundle  *bundle.Bundle
	count   int
	wantLen int
}

// undoLog is a bounded LIFO of curation decisions. Pushing beyond
// capacity silently evicts the oldest record; those decisions become
// permanent.
type undoLog struct {
	records  []undoRecord
	capacity int
}

func newUndoLog(capacity int) *undoLog {
	if capacity <= 0 {
		capacity = DefaultUndoCapacity
	}
	return &undoLog{capacity: capacity}
}

func (l *undoLog) push(rec undoRecord) {
	l.records = append(l.records, rec)
	if len(l.records) > l.capacity {
		over := len(l.records) - l.capacity
		l.records = append(l.records[:0], l.records[over:]...)
	}
}

func (l *undoLog) pop() (undoRecord, bool) {
	if len(l.records) == 0 {
		return undoRecord{}, false
	}
	rec := l.records[len(l.records)-1]
	l.records = l.records[:len(l.records)-1]
	return rec, true
}

func (l *undoLog) clear() { l.records = l.records[:0] }

func (l *undoLog) depth() int { return len(l.records) }
