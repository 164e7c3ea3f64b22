package track

import (
	"sort"

	flatbush "github.com/bmharper/flatbush-go"
	"github.com/bmharper/ringbuffer"
	"github.com/cyclopcam/logs"

	"github.com/boxlab/boxlab/pkg/anno"
)

const (
	// DefaultMemoryWindow is how many frames an object may stay unseen and
	// still get its old id back when it reappears.
	DefaultMemoryWindow = 30

	// Matching thresholds against currently visible and recently vanished
	// objects. The inactive threshold is lower because position drifts while
	// an object is unseen. Both values are behavioral contracts.
	activeIoUThreshold   float32 = 0.5
	inactiveIoUThreshold float32 = 0.4

	// Ring buffer size for per-object position history (must be a power of 2)
	positionHistorySize = 32
)

// A frame and position where we saw an object
type framePosition struct {
	frame int
	box   anno.Rect
}

// Internal record of one object identity
type trackedObject struct {
	id        int
	lastBox   anno.Rect
	lastSeen  int
	active    bool
	history   ringbuffer.RingP[framePosition]
	sightings int
}

// Identities are scoped per class name: a "Car" and a "Person" can never be
// the same object. The id pool of a class is bounded by the maximum number of
// that class ever visible in a single frame.
type classTracks struct {
	objects []*trackedObject
	maxIDs  int
}

// IoUTracker assigns identities by IoU-matching each frame's boxes against
// the tracked object history, tolerating disappearance up to memoryWindow
// frames.
type IoUTracker struct {
	log          logs.Log
	memoryWindow int
	alloc        *IDAllocator
	classes      map[string]*classTracks
}

func NewIoUTracker(log logs.Log, memoryWindow int) *IoUTracker {
	if memoryWindow <= 0 {
		memoryWindow = DefaultMemoryWindow
	}
	return &IoUTracker{
		log:          log,
		memoryWindow: memoryWindow,
		alloc:        &IDAllocator{},
		classes:      map[string]*classTracks{},
	}
}

func (t *IoUTracker) classState(class string) *classTracks {
	ct := t.classes[class]
	if ct == nil {
		ct = &classTracks{}
		t.classes[class] = ct
	}
	return ct
}

// AssignAll implements Tracker.
func (t *IoUTracker) AssignAll(store *anno.FrameStore) int {
	// Fresh session
	t.alloc = &IDAllocator{}
	t.classes = map[string]*classTracks{}

	frames := store.Frames()

	// Bound each class's id pool by its maximum concurrent count
	for _, f := range frames {
		counts := map[string]int{}
		for _, a := range store.Get(f) {
			counts[a.Class]++
		}
		for class, n := range counts {
			ct := t.classState(class)
			if n > ct.maxIDs {
				ct.maxIDs = n
			}
		}
	}

	classNames := make([]string, 0, len(t.classes))
	for class := range t.classes {
		classNames = append(classNames, class)
	}
	sort.Strings(classNames)

	updated := 0
	for _, f := range frames {
		byClass := map[string][]*anno.Annotation{}
		for _, a := range store.Get(f) {
			byClass[a.Class] = append(byClass[a.Class], a)
		}
		// Every class gets processed on every frame, so that objects of a
		// class absent from this frame are marked inactive
		for _, class := range classNames {
			updated += t.trackFrame(f, class, byClass[class])
		}
	}

	t.log.Infof("Track pass complete: %v boxes labeled across %v frames, %v ids issued", updated, len(frames), t.alloc.next)
	return updated
}

func (t *IoUTracker) trackFrame(frame int, class string, boxes []*anno.Annotation) int {
	ct := t.classes[class]
	claimed := map[*trackedObject]bool{}
	assigned := make([]*trackedObject, len(boxes))

	// Phase 1: match against active objects, best IoU >= 0.5.
	// A spatial index over the active set keeps us from scoring objects whose
	// boxes can't overlap at all.
	active := []*trackedObject{}
	for _, o := range ct.objects {
		if o.active {
			active = append(active, o)
		}
	}
	fb := flatbush.NewFlatbush[int32]()
	fb.Reserve(len(active))
	for _, o := range active {
		fb.Add(int32(o.lastBox.X), int32(o.lastBox.Y), int32(o.lastBox.X2()), int32(o.lastBox.Y2()))
	}
	fb.Finish()

	candidates := []int{}
	for i, box := range boxes {
		candidates = fb.SearchFast(int32(box.Box.X), int32(box.Box.Y), int32(box.Box.X2()), int32(box.Box.Y2()), candidates)
		var best *trackedObject
		bestIoU := float32(-1)
		for _, j := range candidates {
			o := active[j]
			if claimed[o] {
				continue
			}
			if iou := box.Box.IOU(o.lastBox); iou >= activeIoUThreshold && iou > bestIoU {
				bestIoU = iou
				best = o
			}
		}
		if best != nil {
			claimed[best] = true
			assigned[i] = best
		}
	}

	// Phase 2: remaining boxes against inactive objects last seen within the
	// memory window. Position drifts while an object is unseen, so equal
	// overlaps are common here; ties go to the nearest center.
	for i, box := range boxes {
		if assigned[i] != nil {
			continue
		}
		center := box.Box.Center()
		var best *trackedObject
		bestIoU := float32(-1)
		bestDist := float32(0)
		for _, o := range ct.objects {
			if o.active || claimed[o] || frame-o.lastSeen > t.memoryWindow {
				continue
			}
			iou := box.Box.IOU(o.lastBox)
			if iou < inactiveIoUThreshold {
				continue
			}
			dist := center.Distance(o.lastBox.Center())
			if iou > bestIoU || (iou == bestIoU && dist < bestDist) {
				bestIoU = iou
				bestDist = dist
				best = o
			}
		}
		if best != nil {
			claimed[best] = true
			assigned[i] = best
		}
	}

	// Phase 3: remaining boxes get a fresh id while the class pool allows,
	// after that the least-recently-seen identity is recycled
	for i := range boxes {
		if assigned[i] != nil {
			continue
		}
		var o *trackedObject
		if len(ct.objects) < ct.maxIDs {
			o = &trackedObject{
				id:      t.alloc.Next(),
				history: ringbuffer.NewRingP[framePosition](positionHistorySize),
			}
			ct.objects = append(ct.objects, o)
		} else {
			o = ct.recycleLRU(claimed)
			if o == nil {
				// Cannot happen while maxIDs bounds the per-frame box count,
				// but a fresh id beats a panic on malformed input
				o = &trackedObject{
					id:      t.alloc.Next(),
					history: ringbuffer.NewRingP[framePosition](positionHistorySize),
				}
				ct.objects = append(ct.objects, o)
			}
		}
		claimed[o] = true
		assigned[i] = o
	}

	// Update matched objects and write ids onto the boxes
	for i, box := range boxes {
		o := assigned[i]
		o.lastBox = box.Box
		o.lastSeen = frame
		o.active = true
		o.sightings++
		o.history.Add(framePosition{frame: frame, box: box.Box})
		if box.Attributes == nil {
			box.Attributes = map[string]any{}
		}
		box.Attributes[TrackIDAttribute] = o.id
	}

	// Objects that went unmatched this frame are deactivated, never deleted:
	// they may still reclaim their id within the memory window
	for _, o := range ct.objects {
		if !claimed[o] {
			o.active = false
		}
	}

	return len(boxes)
}

// recycleLRU hands the least-recently-seen unclaimed identity to a new
// object, preferring inactive ones. The recycled object forgets its history.
func (ct *classTracks) recycleLRU(claimed map[*trackedObject]bool) *trackedObject {
	var lru *trackedObject
	for _, o := range ct.objects {
		if claimed[o] {
			continue
		}
		if lru == nil ||
			(!o.active && lru.active) ||
			(o.active == lru.active && o.lastSeen < lru.lastSeen) {
			lru = o
		}
	}
	if lru == nil {
		return nil
	}
	lru.history = ringbuffer.NewRingP[framePosition](positionHistorySize)
	lru.sightings = 0
	return lru
}

// TrackSummary describes one identity after a batch pass.
type TrackSummary struct {
	ID        int
	Class     string
	Sightings int
	FirstSeen int // earliest frame in the retained position history
	LastSeen  int
}

// Tracks summarizes every identity assigned by the last AssignAll pass,
// sorted by id. A recycled identity restarts its history, so FirstSeen and
// Sightings describe only its current object. Identities with few sightings
// are how callers spot spurious tracks.
func (t *IoUTracker) Tracks() []TrackSummary {
	out := []TrackSummary{}
	for class, ct := range t.classes {
		for _, o := range ct.objects {
			if o.sightings == 0 {
				continue
			}
			out = append(out, TrackSummary{
				ID:        o.id,
				Class:     class,
				Sightings: o.sightings,
				FirstSeen: o.history.Peek(0).frame,
				LastSeen:  o.lastSeen,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AssignNew implements Tracker. It considers only the previous frame: the
// best same-class overlap at or above the active threshold donates its id,
// otherwise the box gets max(existing ids) + 1.
func (t *IoUTracker) AssignNew(box *anno.Annotation, frame int, store *anno.FrameStore) {
	if box.Attributes == nil {
		box.Attributes = map[string]any{}
	}
	var best *anno.Annotation
	bestIoU := float32(-1)
	for _, prev := range store.Get(frame - 1) {
		if prev.Class != box.Class {
			continue
		}
		if _, ok := TrackIDOf(prev); !ok {
			continue
		}
		if iou := box.Box.IOU(prev.Box); iou >= activeIoUThreshold && iou > bestIoU {
			bestIoU = iou
			best = prev
		}
	}
	if best != nil {
		id, _ := TrackIDOf(best)
		box.Attributes[TrackIDAttribute] = id
		return
	}
	box.Attributes[TrackIDAttribute] = MaxAssignedID(store) + 1
}
