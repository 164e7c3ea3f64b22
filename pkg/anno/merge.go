package anno

import (
	"sort"

	flatbush "github.com/bmharper/flatbush-go"

	"github.com/boxlab/boxlab/pkg/gen"
)

const (
	// ConflictIoUThreshold is the overlap above which two annotations on the
	// same frame are considered the same object in conflict.
	ConflictIoUThreshold float32 = 0.5

	// scoreTieBand is the score difference below which neither conflicting
	// annotation is trusted more than the other, so the two are merged.
	scoreTieBand = 0.2
)

// MergeFunc combines two overlapping annotations into one. The interpolation
// engine supplies the score-weighted implementation.
type MergeFunc func(a, b *Annotation) *Annotation

// Resolve merges an existing annotation set with an incoming one (newly
// interpolated or newly detected boxes that must coexist with what is already
// on the frame).
//
// Existing and incoming boxes are paired greedily at IoU above
// ConflictIoUThreshold, in first-match order. For each conflicting pair:
// a manual annotation always wins; otherwise if the scores are within
// scoreTieBand of each other the pair is replaced by merge(existing, incoming);
// otherwise the higher-scoring side wins. Unpaired annotations from both sides
// pass through unchanged.
//
// Output order: resolved pairs, then leftover existing, then leftover incoming.
func Resolve(existing, incoming []*Annotation, merge MergeFunc) []*Annotation {
	if len(existing) == 0 {
		return incoming
	}
	if len(incoming) == 0 {
		return existing
	}

	// Spatial index over the incoming boxes, so we only score candidates that
	// can overlap at all
	fb := flatbush.NewFlatbush[int32]()
	fb.Reserve(len(incoming))
	for _, b := range incoming {
		fb.Add(int32(b.Box.X), int32(b.Box.Y), int32(b.Box.X2()), int32(b.Box.Y2()))
	}
	fb.Finish()

	usedIncoming := make([]bool, len(incoming))
	usedExisting := make([]bool, len(existing))
	resolved := []*Annotation{}

	candidates := []int{}
	for i, ex := range existing {
		candidates = fb.SearchFast(int32(ex.Box.X), int32(ex.Box.Y), int32(ex.Box.X2()), int32(ex.Box.Y2()), candidates)
		// First match in incoming order, not best match
		match := -1
		for _, j := range sortedCopy(candidates) {
			if usedIncoming[j] {
				continue
			}
			if ex.Box.IOU(incoming[j].Box) > ConflictIoUThreshold {
				match = j
				break
			}
		}
		if match == -1 {
			continue
		}
		usedExisting[i] = true
		usedIncoming[match] = true
		resolved = append(resolved, resolveConflict(ex, incoming[match], merge))
	}

	for i, ex := range existing {
		if !usedExisting[i] {
			resolved = append(resolved, ex)
		}
	}
	for j, in := range incoming {
		if !usedIncoming[j] {
			resolved = append(resolved, in)
		}
	}
	return resolved
}

func resolveConflict(existing, incoming *Annotation, merge MergeFunc) *Annotation {
	switch {
	case existing.Source == SourceManual:
		return existing
	case incoming.Source == SourceManual:
		return incoming
	case gen.Abs(existing.ScoreOrDefault()-incoming.ScoreOrDefault()) < scoreTieBand:
		return merge(existing, incoming)
	case existing.ScoreOrDefault() >= incoming.ScoreOrDefault():
		return existing
	default:
		return incoming
	}
}

// sortedCopy orders spatial-index hits by incoming index, to keep pairing in
// first-match order rather than index-build order.
func sortedCopy(indices []int) []int {
	out := gen.CopySlice(indices)
	sort.Ints(out)
	return out
}
