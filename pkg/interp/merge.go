package interp

import (
	"math"

	"github.com/boxlab/boxlab/pkg/anno"
)

// WeightedMerge combines two overlapping annotations into one, weighting the
// rectangle and every numeric attribute by confidence. The class, color and
// non-numeric attributes come from the higher-scoring side. The merged score
// is min(1, 1.1 * mean(scores)): agreement between two sources is worth a
// little more than either alone.
//
// This lives with the interpolation code because it shares the blending math;
// the conflict resolver takes it as its anno.MergeFunc.
func WeightedMerge(a, b *anno.Annotation) *anno.Annotation {
	sa := a.ScoreOrDefault()
	sb := b.ScoreOrDefault()
	// weight of b, which doubles as the blend alpha
	wb := 0.5
	if sa+sb > 0 {
		wb = sb / (sa + sb)
	}

	higher := a
	if sb > sa {
		higher = b
	}

	score := math.Min(1.0, 1.1*(sa+sb)/2)
	return anno.New(
		lerpRect(a.Box, b.Box, wb),
		higher.Class,
		lerpAttributes(a.Attributes, b.Attributes, wb),
		higher.Color,
		anno.SourceInterpolated,
		anno.ScorePtr(score),
	)
}
