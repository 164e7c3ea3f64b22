// Package interp computes synthetic annotations for the frames between
// sparse, user-annotated keyframes.
package interp

import (
	"math"

	"github.com/cyclopcam/logs"

	"github.com/boxlab/boxlab/pkg/anno"
)

// Method selects how intermediate boxes are computed.
type Method string

const (
	MethodLinear Method = "linear"
	MethodSmooth Method = "smooth"
)

// Engine writes interpolated annotations into a shared frame store.
// It never overwrites a frame that already holds annotations.
type Engine struct {
	log   logs.Log
	store *anno.FrameStore
}

func NewEngine(log logs.Log, store *anno.FrameStore) *Engine {
	return &Engine{
		log:   log,
		store: store,
	}
}

// Store returns the frame store the engine writes into.
func (e *Engine) Store() *anno.FrameStore {
	return e.store
}

// Interpolate fills the frames between start and end with synthetic
// annotations for every object that could be matched between the two
// endpoints.
//
// Both endpoints must hold at least one annotation and be at least 2 frames
// apart, and at least one object must match between them; otherwise nothing
// is written and false is returned. These are routine conditions during
// interactive use (eg the user triggered interpolation before creating a
// second keyframe), so they are signaled by return value, not by error.
//
// MethodSmooth fits a curve through start, end and any annotated frames in
// between; it needs a gap larger than 2 and at least one intermediate
// keyframe, and falls back to pairwise linear interpolation otherwise.
func (e *Engine) Interpolate(start, end int, method Method) bool {
	if start > end {
		start, end = end, start
	}
	if end-start < 2 {
		return false
	}
	if !e.store.IsKeyframe(start) || !e.store.IsKeyframe(end) {
		return false
	}
	pairs := anno.MatchPair(e.store.Get(start), e.store.Get(end))
	if len(pairs) == 0 {
		return false
	}

	if method == MethodSmooth && end-start > 2 {
		if mids := e.keyframesBetween(start, end); len(mids) > 0 {
			keyframes := make([]int, 0, len(mids)+2)
			keyframes = append(keyframes, start)
			keyframes = append(keyframes, mids...)
			keyframes = append(keyframes, end)
			if e.smoothInterpolate(keyframes, start, end) {
				return true
			}
		}
	}

	e.linearInterpolate(start, end, pairs)
	return true
}

func (e *Engine) keyframesBetween(start, end int) []int {
	mids := []int{}
	for f := start + 1; f < end; f++ {
		if e.store.IsKeyframe(f) {
			mids = append(mids, f)
		}
	}
	return mids
}

func (e *Engine) linearInterpolate(start, end int, pairs []anno.MatchedPair) {
	filled := 0
	for f := start + 1; f < end; f++ {
		if e.store.IsKeyframe(f) {
			continue
		}
		alpha := float64(f-start) / float64(end-start)
		for _, p := range pairs {
			e.store.Add(f, lerpAnnotation(p, alpha))
		}
		filled++
	}
	e.log.Infof("Linear interpolation %v..%v: %v objects on %v frames", start, end, len(pairs), filled)
}

func lerpAnnotation(p anno.MatchedPair, alpha float64) *anno.Annotation {
	score := linearScore(alpha)
	return anno.New(
		lerpRect(p.A.Box, p.B.Box, alpha),
		p.A.Class,
		lerpAttributes(p.A.Attributes, p.B.Attributes, alpha),
		p.A.Color,
		anno.SourceInterpolated,
		anno.ScorePtr(score),
	)
}

// linearScore is lowest (0) at the midpoint, furthest from both keyframes,
// and approaches 0.8 next to either keyframe.
func linearScore(alpha float64) float64 {
	return 0.8 - 3.2*alpha*(1-alpha)
}

func lerpInt(a, b int, alpha float64) int {
	return int(math.Round(float64(a)*(1-alpha) + float64(b)*alpha))
}

func lerpRect(a, b anno.Rect, alpha float64) anno.Rect {
	return anno.Rect{
		X:      lerpInt(a.X, b.X, alpha),
		Y:      lerpInt(a.Y, b.Y, alpha),
		Width:  lerpInt(a.Width, b.Width, alpha),
		Height: lerpInt(a.Height, b.Height, alpha),
	}
}

// lerpAttributes interpolates over the union of keys from both sides.
// Numeric values blend linearly (rounded back to int if both sides were int).
// Booleans, strings and mixed-type values snap to the end value once alpha
// passes 0.5. Keys present on one side only pass through unchanged.
func lerpAttributes(a, b map[string]any, alpha float64) map[string]any {
	out := make(map[string]any, max(len(a), len(b)))
	for k, av := range a {
		bv, ok := b[k]
		if !ok {
			out[k] = av
			continue
		}
		out[k] = lerpValue(av, bv, alpha)
	}
	for k, bv := range b {
		if _, ok := a[k]; !ok {
			out[k] = bv
		}
	}
	return out
}

func lerpValue(av, bv any, alpha float64) any {
	af, aInt, aNum := numericValue(av)
	bf, bInt, bNum := numericValue(bv)
	if aNum && bNum {
		blend := af*(1-alpha) + bf*alpha
		if aInt && bInt {
			return int(math.Round(blend))
		}
		return blend
	}
	if alpha > 0.5 {
		return bv
	}
	return av
}

func numericValue(v any) (val float64, isInt bool, ok bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true, true
	case int64:
		return float64(n), true, true
	case float64:
		return n, false, true
	case float32:
		return float64(n), false, true
	}
	return 0, false, false
}
