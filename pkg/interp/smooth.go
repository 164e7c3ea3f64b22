package interp

import (
	"math"
	"sort"

	"github.com/boxlab/boxlab/pkg/anno"
	"github.com/boxlab/boxlab/pkg/gen"
)

// Smooth interpolation confidence bounds. Unlike the linear formula, smooth
// confidence bottoms out at smoothScoreMin at maximum distance from any
// keyframe. The two formulas disagree on purpose: both are contracts.
const (
	smoothScoreMax = 0.9
	smoothScoreMin = 0.3
)

// smoothInterpolate fits a curve per matched object chain through the given
// keyframes and samples it on every unannotated frame in between.
// 3 known keyframes give an exact quadratic per box coordinate, 4 or more a
// least-squares cubic, and a chain that only covers 2 frames degrades to a
// linear blend between its bracketing keyframes.
//
// Returns false if no object chains across the keyframes, or if there was
// nothing left to fill; the caller then falls back to linear interpolation.
func (e *Engine) smoothInterpolate(keyframes []int, start, end int) bool {
	chains := anno.GroupAcrossFrames(keyframes, e.store)
	if len(chains) == 0 {
		return false
	}

	// Collect first, write after: frames filled by one chain must not look
	// like keyframes to the next chain.
	halfSpan := float64(end-start) / 2
	newBoxes := map[int][]*anno.Annotation{}
	wrote := 0
	for _, chain := range chains {
		frames := make([]int, 0, len(chain))
		for f := range chain {
			frames = append(frames, f)
		}
		sort.Ints(frames)

		curve := newChainCurve(frames, chain)
		for f := frames[0] + 1; f < frames[len(frames)-1]; f++ {
			// Keyframes, and any frame that already holds annotations, are
			// left untouched
			if e.store.IsKeyframe(f) {
				continue
			}
			nearest := nearestFrame(frames, f)
			src := chain[nearest]
			minDist := float64(gen.Abs(f - nearest))
			score := gen.Clamp(smoothScoreMax-0.5*(minDist/halfSpan), smoothScoreMin, smoothScoreMax)
			newBoxes[f] = append(newBoxes[f], anno.New(
				curve.rectAt(f),
				src.Class,
				src.Copy().Attributes,
				src.Color,
				anno.SourceSmoothInterpolated,
				anno.ScorePtr(score),
			))
			wrote++
		}
	}
	if wrote == 0 {
		return false
	}
	for f, list := range newBoxes {
		for _, a := range list {
			e.store.Add(f, a)
		}
	}
	e.log.Infof("Smooth interpolation %v..%v: %v chains, %v boxes", start, end, len(chains), wrote)
	return true
}

// chainCurve is the fitted motion of one object chain. With 3 or more known
// positions each rectangle coordinate gets its own polynomial; with 2 the
// curve is a straight line between them.
type chainCurve struct {
	frames []int
	boxes  []anno.Rect
	polys  [4]polynomial
	fitted bool
}

func newChainCurve(frames []int, chain map[int]*anno.Annotation) *chainCurve {
	c := &chainCurve{
		frames: frames,
		boxes:  make([]anno.Rect, len(frames)),
	}
	for i, f := range frames {
		c.boxes[i] = chain[f].Box
	}
	if len(frames) >= 3 {
		degree := 2
		if len(frames) >= 4 {
			degree = 3
		}
		c.fitted = true
		values := make([]float64, len(frames))
		for coord := 0; coord < 4; coord++ {
			for i, box := range c.boxes {
				values[i] = float64(rectCoord(box, coord))
			}
			c.polys[coord] = polyFit(frames, values, degree)
			if !c.polys[coord].valid() {
				c.fitted = false
				break
			}
		}
	}
	return c
}

func (c *chainCurve) rectAt(frame int) anno.Rect {
	if c.fitted {
		return anno.Rect{
			X:      int(math.Round(c.polys[0].at(frame))),
			Y:      int(math.Round(c.polys[1].at(frame))),
			Width:  int(math.Round(c.polys[2].at(frame))),
			Height: int(math.Round(c.polys[3].at(frame))),
		}
	}
	// Linear blend between the bracketing keyframes
	i := 0
	for i < len(c.frames)-2 && c.frames[i+1] <= frame {
		i++
	}
	alpha := float64(frame-c.frames[i]) / float64(c.frames[i+1]-c.frames[i])
	return lerpRect(c.boxes[i], c.boxes[i+1], alpha)
}

func rectCoord(r anno.Rect, coord int) int {
	switch coord {
	case 0:
		return r.X
	case 1:
		return r.Y
	case 2:
		return r.Width
	default:
		return r.Height
	}
}

// nearestFrame returns the keyframe closest to f, preferring the earlier one
// on ties.
func nearestFrame(frames []int, f int) int {
	best := frames[0]
	bestDist := gen.Abs(f - best)
	for _, k := range frames[1:] {
		if d := gen.Abs(f - k); d < bestDist {
			bestDist = d
			best = k
		}
	}
	return best
}
