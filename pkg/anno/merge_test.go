package anno_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/boxlab/boxlab/pkg/anno"
	"github.com/boxlab/boxlab/pkg/interp"
)

func scored(x, y, w, h int, class string, source anno.Source, score float64) *anno.Annotation {
	return anno.New(anno.Rect{X: x, Y: y, Width: w, Height: h}, class, nil, anno.RGBA{}, source, anno.ScorePtr(score))
}

func manual(x, y, w, h int, class string) *anno.Annotation {
	return anno.New(anno.Rect{X: x, Y: y, Width: w, Height: h}, class, nil, anno.RGBA{}, anno.SourceManual, nil)
}

func TestResolveEmptySides(t *testing.T) {
	a := []*anno.Annotation{manual(0, 0, 10, 10, "Quad")}
	require.Equal(t, a, anno.Resolve(a, nil, interp.WeightedMerge))
	require.Equal(t, a, anno.Resolve(nil, a, interp.WeightedMerge))
}

func TestResolveManualWins(t *testing.T) {
	// A manual annotation beats any overlapping annotation, regardless of
	// which side it is on
	m := manual(0, 0, 10, 10, "Quad")
	other := scored(1, 0, 10, 10, "Quad", anno.SourceDetected, 0.99)

	out := anno.Resolve([]*anno.Annotation{m}, []*anno.Annotation{other}, interp.WeightedMerge)
	require.Len(t, out, 1)
	require.Same(t, m, out[0])

	out = anno.Resolve([]*anno.Annotation{other}, []*anno.Annotation{m}, interp.WeightedMerge)
	require.Len(t, out, 1)
	require.Same(t, m, out[0])
}

func TestResolveCloseScoresMerge(t *testing.T) {
	ex := scored(0, 0, 10, 10, "Quad", anno.SourceInterpolated, 0.6)
	in := scored(2, 0, 10, 10, "Quad", anno.SourceDetected, 0.5)

	out := anno.Resolve([]*anno.Annotation{ex}, []*anno.Annotation{in}, interp.WeightedMerge)
	require.Len(t, out, 1)
	merged := out[0]
	require.NotSame(t, ex, merged)
	require.NotSame(t, in, merged)
	require.Equal(t, anno.SourceInterpolated, merged.Source)
	// min(1, 1.1*(0.6+0.5)/2)
	require.InDelta(t, 0.605, *merged.Score, 1e-9)
	// x blended by score weight: 0*(0.6/1.1) + 2*(0.5/1.1) = 0.909 -> 1
	require.Equal(t, 1, merged.Box.X)
	// Class from the higher-scoring side
	require.Equal(t, "Quad", merged.Class)
}

func TestResolveHigherScoreWins(t *testing.T) {
	ex := scored(0, 0, 10, 10, "Quad", anno.SourceInterpolated, 0.9)
	in := scored(1, 0, 10, 10, "Quad", anno.SourceDetected, 0.4)
	out := anno.Resolve([]*anno.Annotation{ex}, []*anno.Annotation{in}, interp.WeightedMerge)
	require.Len(t, out, 1)
	require.Same(t, ex, out[0])

	ex = scored(0, 0, 10, 10, "Quad", anno.SourceInterpolated, 0.4)
	in = scored(1, 0, 10, 10, "Quad", anno.SourceDetected, 0.9)
	out = anno.Resolve([]*anno.Annotation{ex}, []*anno.Annotation{in}, interp.WeightedMerge)
	require.Len(t, out, 1)
	require.Same(t, in, out[0])
}

func TestResolveOutsideBandKeepsExisting(t *testing.T) {
	// A score difference beyond the merge band does not merge, and the
	// higher (existing) side wins
	ex := scored(0, 0, 10, 10, "Quad", anno.SourceInterpolated, 0.75)
	in := scored(1, 0, 10, 10, "Quad", anno.SourceDetected, 0.5)
	out := anno.Resolve([]*anno.Annotation{ex}, []*anno.Annotation{in}, interp.WeightedMerge)
	require.Len(t, out, 1)
	require.Same(t, ex, out[0])
}

func TestResolveLowOverlapPassesThrough(t *testing.T) {
	// IoU at or below 0.5 is no conflict
	ex := scored(0, 0, 10, 10, "Quad", anno.SourceInterpolated, 0.5)
	in := scored(8, 0, 10, 10, "Quad", anno.SourceDetected, 0.5)
	out := anno.Resolve([]*anno.Annotation{ex}, []*anno.Annotation{in}, interp.WeightedMerge)
	require.Len(t, out, 2)
	require.Same(t, ex, out[0])
	require.Same(t, in, out[1])
}

func TestResolveOutputOrder(t *testing.T) {
	// Resolved pairs come first, then leftover existing, then leftover incoming
	exPaired := manual(0, 0, 10, 10, "Quad")
	exLeft := scored(200, 0, 10, 10, "Quad", anno.SourceInterpolated, 0.5)
	inPaired := scored(1, 0, 10, 10, "Quad", anno.SourceDetected, 0.7)
	inLeft := scored(400, 0, 10, 10, "Quad", anno.SourceDetected, 0.7)

	out := anno.Resolve(
		[]*anno.Annotation{exLeft, exPaired},
		[]*anno.Annotation{inPaired, inLeft},
		interp.WeightedMerge,
	)
	require.Len(t, out, 3)
	require.Same(t, exPaired, out[0])
	require.Same(t, exLeft, out[1])
	require.Same(t, inLeft, out[2])
}
