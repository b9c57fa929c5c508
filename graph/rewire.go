package graph

import "github.com/enactio/enact/core"

// RewireHandle tracks a temporary rewire of an activity's outgoing
// transitions. It must be restored exactly once before the surrounding
// operation returns, on every exit path.
type RewireHandle struct {
	activity *core.Activity

	// snapshot is the outgoing list as it was before the rewire.
	snapshot []*core.Transition

	// created are the temporary edges pointing at the predecessors.
	created []*core.Transition

	restored bool
}

// RewireToPredecessors clears the activity's outgoing transitions and replaces
// them with one new transition per incoming edge, each pointing back at that
// edge's source. Driving a normal forward completion through the activity then
// walks execution backward. The caller must hold the definition lock: the
// activity belongs to the deployed definition shared by every running instance.
func RewireToPredecessors(activity *core.Activity) *RewireHandle {
	h := &RewireHandle{
		activity: activity,
		snapshot: append([]*core.Transition(nil), activity.Outgoing...),
	}

	activity.Outgoing = nil

	for _, incoming := range activity.Incoming {
		t := activity.CreateOutgoingTransition(incoming.Source)
		h.created = append(h.created, t)
	}

	return h
}

// Restore removes the temporary transitions and puts the original outgoing
// list back. Calling Restore more than once is a no-op, so it is safe to
// defer.
func (h *RewireHandle) Restore() {
	if h.restored {
		return
	}
	h.restored = true

	temporary := make(map[*core.Transition]bool, len(h.created))
	for _, t := range h.created {
		temporary[t] = true
	}

	kept := h.activity.Outgoing[:0]
	for _, t := range h.activity.Outgoing {
		if !temporary[t] {
			kept = append(kept, t)
		}
	}

	h.activity.Outgoing = append(kept, h.snapshot...)
}

// Restored reports whether Restore has run.
func (h *RewireHandle) Restored() bool {
	return h.restored
}
