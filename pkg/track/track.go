// Package track assigns stable integer identities to bounding boxes across
// frames, so the same physical object keeps one track id through a video.
package track

import (
	"github.com/boxlab/boxlab/pkg/anno"
)

// TrackIDAttribute is the annotation attribute key that trackers write.
const TrackIDAttribute = "track_id"

// Tracker is one identity-assignment strategy. Two exist: a batch pass over
// the whole store, and an incremental assignment for a single freshly drawn
// box.
type Tracker interface {
	// AssignAll runs a full pass over the store in frame order, writing a
	// track id attribute onto every box. Returns the number of boxes updated.
	// State from a previous pass is discarded; one call is one session.
	AssignAll(store *anno.FrameStore) int

	// AssignNew assigns a track id to a single new box on 'frame' by matching
	// against the previous frame only.
	AssignNew(box *anno.Annotation, frame int, store *anno.FrameStore)
}

// IDAllocator hands out track ids for a single tracking session. It is an
// explicit object rather than package state, so tracking two videos in the
// same process can never bleed ids between them.
type IDAllocator struct {
	next int
}

func (a *IDAllocator) Next() int {
	id := a.next
	a.next++
	return id
}

// MaxAssignedID returns the largest track id anywhere in the store, or -1 if
// no box has one.
func MaxAssignedID(store *anno.FrameStore) int {
	maxID := -1
	for _, f := range store.Frames() {
		for _, a := range store.Get(f) {
			if id, ok := TrackIDOf(a); ok && id > maxID {
				maxID = id
			}
		}
	}
	return maxID
}

// TrackIDOf reads the track id attribute from an annotation.
func TrackIDOf(a *anno.Annotation) (int, bool) {
	switch id := a.Attributes[TrackIDAttribute].(type) {
	case int:
		return id, true
	case float64:
		// JSON decoding turns ints into float64
		return int(id), true
	}
	return 0, false
}
