package anno

import (
	"sort"

	"github.com/boxlab/boxlab/pkg/gen"
)

// MatchIoUThreshold is the minimum overlap for two boxes on different frames
// to be considered the same object.
const MatchIoUThreshold float32 = 0.1

// MatchedPair links one annotation on an earlier frame to one on a later frame.
type MatchedPair struct {
	A *Annotation
	B *Annotation
}

// MatchPair pairs annotations between two frames.
//
// Annotations are grouped by class first. If a class has exactly one
// annotation on each side, the two are paired directly, regardless of
// overlap. Otherwise pairs are formed greedily by descending IoU, accepting
// only pairs above MatchIoUThreshold, each annotation used at most once.
// Unmatched annotations are dropped.
//
// The greedy order is deliberate: we do not solve the assignment problem
// optimally, and downstream interpolation depends on the greedy tie-breaks.
func MatchPair(listA, listB []*Annotation) []MatchedPair {
	classes, byClassA := groupByClass(listA)
	_, byClassB := groupByClass(listB)

	pairs := []MatchedPair{}
	for _, class := range classes {
		ca := byClassA[class]
		cb := byClassB[class]
		if len(cb) == 0 {
			continue
		}
		if len(ca) == 1 && len(cb) == 1 {
			pairs = append(pairs, MatchedPair{A: ca[0], B: cb[0]})
			continue
		}
		pairs = append(pairs, greedyPairs(ca, cb)...)
	}
	return pairs
}

// groupByClass splits a list by class name, preserving z-order within each
// class and the order in which classes first appear.
func groupByClass(list []*Annotation) ([]string, map[string][]*Annotation) {
	classes := []string{}
	byClass := map[string][]*Annotation{}
	for _, a := range list {
		if _, ok := byClass[a.Class]; !ok {
			classes = append(classes, a.Class)
		}
		byClass[a.Class] = append(byClass[a.Class], a)
	}
	return classes, byClass
}

// greedyPairs repeatedly takes the unmatched (a, b) pair with the highest IoU
// until no remaining pair clears MatchIoUThreshold.
func greedyPairs(ca, cb []*Annotation) []MatchedPair {
	usedA := make([]bool, len(ca))
	usedB := make([]bool, len(cb))
	pairs := []MatchedPair{}
	for {
		bestIoU := MatchIoUThreshold
		bestA, bestB := -1, -1
		for i, a := range ca {
			if usedA[i] {
				continue
			}
			for j, b := range cb {
				if usedB[j] {
					continue
				}
				if iou := a.Box.IOU(b.Box); iou > bestIoU {
					bestIoU = iou
					bestA, bestB = i, j
				}
			}
		}
		if bestA == -1 {
			break
		}
		usedA[bestA] = true
		usedB[bestB] = true
		pairs = append(pairs, MatchedPair{A: ca[bestA], B: cb[bestB]})
	}
	return pairs
}

// GroupAcrossFrames chains annotations of the same object across more than
// two frames. The result maps frame index -> annotation, one map per object.
//
// If a class has exactly one annotation on every given frame, the chain is a
// simple zip. Otherwise one chain is seeded per annotation in the first frame,
// and each subsequent frame extends a chain with its unmatched annotation of
// highest IoU against the chain's last known box. A chain that finds no
// candidate above MatchIoUThreshold stops extending but keeps what it has.
// Chains covering fewer than 2 frames are discarded.
func GroupAcrossFrames(frameIndices []int, store *FrameStore) []map[int]*Annotation {
	frames := gen.CopySlice(frameIndices)
	sort.Ints(frames)
	if len(frames) < 2 {
		return nil
	}

	// Class names in order of first appearance across the given frames
	classes := []string{}
	seen := map[string]bool{}
	for _, f := range frames {
		for _, a := range store.Get(f) {
			if !seen[a.Class] {
				seen[a.Class] = true
				classes = append(classes, a.Class)
			}
		}
	}

	chains := []map[int]*Annotation{}
	for _, class := range classes {
		perFrame := make([][]*Annotation, len(frames))
		for i, f := range frames {
			for _, a := range store.Get(f) {
				if a.Class == class {
					perFrame[i] = append(perFrame[i], a)
				}
			}
		}
		chains = append(chains, chainClass(frames, perFrame)...)
	}
	return chains
}

func chainClass(frames []int, perFrame [][]*Annotation) []map[int]*Annotation {
	oneEach := true
	for _, list := range perFrame {
		if len(list) != 1 {
			oneEach = false
			break
		}
	}
	if oneEach {
		chain := map[int]*Annotation{}
		for i, f := range frames {
			chain[f] = perFrame[i][0]
		}
		return []map[int]*Annotation{chain}
	}

	type chainState struct {
		members map[int]*Annotation
		last    *Annotation
		broken  bool
	}

	// Seed one chain per annotation in the first frame
	chains := []*chainState{}
	for _, a := range perFrame[0] {
		chains = append(chains, &chainState{
			members: map[int]*Annotation{frames[0]: a},
			last:    a,
		})
	}

	for i := 1; i < len(frames); i++ {
		used := make([]bool, len(perFrame[i]))
		for _, c := range chains {
			if c.broken {
				continue
			}
			bestIoU := MatchIoUThreshold
			best := -1
			for j, a := range perFrame[i] {
				if used[j] {
					continue
				}
				if iou := c.last.Box.IOU(a.Box); iou > bestIoU {
					bestIoU = iou
					best = j
				}
			}
			if best == -1 {
				c.broken = true
				continue
			}
			used[best] = true
			c.members[frames[i]] = perFrame[i][best]
			c.last = perFrame[i][best]
		}
	}

	out := []map[int]*Annotation{}
	for _, c := range chains {
		if len(c.members) >= 2 {
			out = append(out, c.members)
		}
	}
	return out
}
