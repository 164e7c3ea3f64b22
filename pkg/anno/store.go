package anno

import (
	"sort"
)

// FrameStore holds every annotation in a video or image sequence, keyed by
// frame index. Within a frame, slice order is z-order (last element on top).
//
// Frames absent from the store have no annotations, and so do frames present
// with an empty list, but only a frame with a non-empty list is a keyframe.
//
// The store is not safe for concurrent use. Callers must serialize access,
// typically by running everything on the GUI thread.
type FrameStore struct {
	frames map[int][]*Annotation
}

func NewFrameStore() *FrameStore {
	return &FrameStore{
		frames: map[int][]*Annotation{},
	}
}

// Get returns the annotations on a frame, or nil if the frame is absent.
func (s *FrameStore) Get(frame int) []*Annotation {
	return s.frames[frame]
}

func (s *FrameStore) Set(frame int, list []*Annotation) {
	s.frames[frame] = list
}

func (s *FrameStore) Has(frame int) bool {
	_, ok := s.frames[frame]
	return ok
}

func (s *FrameStore) Delete(frame int) {
	delete(s.frames, frame)
}

// Add appends an annotation to a frame, on top of the existing z-order.
func (s *FrameStore) Add(frame int, a *Annotation) {
	s.frames[frame] = append(s.frames[frame], a)
}

// Frames returns all frame indices present in the store, sorted ascending.
func (s *FrameStore) Frames() []int {
	frames := make([]int, 0, len(s.frames))
	for f := range s.frames {
		frames = append(frames, f)
	}
	sort.Ints(frames)
	return frames
}

// IsKeyframe is true if the frame is present and holds at least one annotation.
func (s *FrameStore) IsKeyframe(frame int) bool {
	return len(s.frames[frame]) > 0
}

// NearestEarlierKeyframe returns the closest frame before 'frame' that holds
// at least one annotation.
func (s *FrameStore) NearestEarlierKeyframe(frame int) (int, bool) {
	best := -1
	found := false
	for f, list := range s.frames {
		if f < frame && len(list) > 0 && (!found || f > best) {
			best = f
			found = true
		}
	}
	return best, found
}
