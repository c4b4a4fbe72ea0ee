package session

import (
	"fmt"
	"sort"

	"streamcurate/pkg/bundle"
)

// Handle is the opaque identity of a live registry entry. Handles are
// never reused within a session; a bundle restored by undo gets a
// fresh handle even though it keeps its label.
type Handle uint64

// NoHandle is the zero Handle, meaning "no bundle".
const NoHandle Handle = 0

// entry is one arena slot. The label is the user-facing hierarchical
// name ("/", "/0/", "/0/2/"); identity is the handle. The parent
// handle records which bundle this one was split from and may refer
// to an entry that has since been removed.
type entry struct {
	handle Handle
	label  string
	parent Handle
	bundle *bundle.Bundle
}

// registry is the arena of live bundles. It keeps a label index for
// user-facing lookups and a label-sorted order for deterministic
// iteration.
type registry struct {
	entries map[Handle]*entry
	byLabel map[string]Handle
	order   []Handle
	next    Handle
}

func newRegistry() *registry {
	return &registry{
		entries: make(map[Handle]*entry),
		byLabel: make(map[string]Handle),
	}
}

func (r *registry) len() int { return len(r.entries) }

// add inserts a bundle under the given label and returns its handle.
// Labels must be unique among live entries.
func (r *registry) add(label string, parent Handle, b *bundle.Bundle) (Handle, error) {
	if _, exists := r.byLabel[label]; exists {
		return NoHandle, fmt.Errorf("bundle %q is already registered", label)
	}
	r.next++
	ent := &entry{handle: r.next, label: label, parent: parent, bundle: b}
	r.entries[ent.handle] = ent
	r.byLabel[label] = ent.handle
	r.order = append(r.order, ent.handle)
	r.sortOrder()
	return ent.handle, nil
}

// remove deletes the entry. Handles of removed entries are never
// handed out again.
func (r *registry) remove(h Handle) error {
	ent, ok := r.entries[h]
	if !ok {
		return fmt.Errorf("no bundle with handle %d", h)
	}
	delete(r.entries, h)
	delete(r.byLabel, ent.label)
	for i, other := range r.order {
		if other == h {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// lookup returns the entry for h.
func (r *registry) lookup(h Handle) (*entry, bool) {
	ent, ok := r.entries[h]
	return ent, ok
}

// lookupLabel resolves a user-facing label.
func (r *registry) lookupLabel(label string) (*entry, bool) {
	h, ok := r.byLabel[label]
	if !ok {
		return nil, false
	}
	return r.entries[h], true
}

// handles returns the live handles in label order.
func (r *registry) handles() []Handle {
	out := make([]Handle, len(r.order))
	copy(out, r.order)
	return out
}

// labels returns the live labels in sorted order.
func (r *registry) labels() []string {
	out := make([]string, 0, len(r.order))
	for _, h := range r.order {
		out = append(out, r.entries[h].label)
	}
	return out
}

func (r *registry) sortOrder() {
	sort.Slice(r.order, func(i, j int) bool {
		return r.entries[r.order[i]].label < r.entries[r.order[j]].label
	})
}

// cycleOrder returns the handles in review order: biggest bundle
// first, label as the tie breaker. This is the order tab cycling
// walks through.
func (r *registry) cycleOrder() []Handle {
	out := r.handles()
	sort.Slice(out, func(i, j int) bool {
		a, b := r.entries[out[i]], r.entries[out[j]]
		if a.bundle.Len() != b.bundle.Len() {
			return a.bundle.Len() > b.bundle.Len()
		}
		return a.label > b.label
	})
	return out
}
