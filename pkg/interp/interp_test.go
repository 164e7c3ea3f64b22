package interp

import (
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"

	"github.com/boxlab/boxlab/pkg/anno"
	"github.com/boxlab/boxlab/pkg/gen"
)

func manualBox(x, y, w, h int, class string) *anno.Annotation {
	return anno.New(anno.Rect{X: x, Y: y, Width: w, Height: h}, class, nil, anno.RGBA{}, anno.SourceManual, nil)
}

func newTestEngine(t *testing.T) (*Engine, *anno.FrameStore) {
	store := anno.NewFrameStore()
	return NewEngine(logs.NewTestingLog(t), store), store
}

func TestLinearInterpolation(t *testing.T) {
	engine, store := newTestEngine(t)
	store.Set(0, []*anno.Annotation{manualBox(0, 0, 10, 10, "Quad")})
	store.Set(5, []*anno.Annotation{manualBox(50, 0, 10, 10, "Quad")})

	require.True(t, engine.Interpolate(0, 5, MethodLinear))

	for f := 1; f <= 4; f++ {
		list := store.Get(f)
		require.Len(t, list, 1, "frame %v", f)
		a := list[0]
		require.Equal(t, anno.SourceInterpolated, a.Source)
		require.Equal(t, anno.SourceInterpolated, a.OriginalSource)
		require.False(t, a.Verified)
		require.NotNil(t, a.Score)
		require.Equal(t, "Quad", a.Class)
	}
	// x at frame 3 is 0 + (50-0)*3/5
	require.Equal(t, 30, store.Get(3)[0].Box.X)
	require.Equal(t, 10, store.Get(3)[0].Box.Width)
}

func TestLinearScoreTroughsAtMidpoint(t *testing.T) {
	// Confidence is lowest exactly halfway between the keyframes
	require.InDelta(t, 0.0, linearScore(0.5), 1e-9)
	require.InDelta(t, 0.8, linearScore(0), 1e-9)
	require.InDelta(t, 0.8, linearScore(1), 1e-9)
	require.Greater(t, linearScore(0.2), linearScore(0.4))
}

func TestLerpRectEndpoints(t *testing.T) {
	a := anno.Rect{X: 3, Y: 7, Width: 20, Height: 30}
	b := anno.Rect{X: 50, Y: 1, Width: 8, Height: 90}
	require.Equal(t, a, lerpRect(a, b, 0))
	require.Equal(t, b, lerpRect(a, b, 1))

	// Intermediate alphas move every coordinate monotonically
	prev := a
	for _, alpha := range []float64{0.25, 0.5, 0.75, 1} {
		cur := lerpRect(a, b, alpha)
		require.GreaterOrEqual(t, cur.X, prev.X)
		require.LessOrEqual(t, cur.Y, prev.Y)
		require.LessOrEqual(t, cur.Width, prev.Width)
		require.GreaterOrEqual(t, cur.Height, prev.Height)
		prev = cur
	}
}

func TestInterpolatePreconditions(t *testing.T) {
	engine, store := newTestEngine(t)
	store.Set(0, []*anno.Annotation{manualBox(0, 0, 10, 10, "Quad")})

	// End frame missing from the store
	require.False(t, engine.Interpolate(0, 5, MethodLinear))
	// End frame present but empty
	store.Set(5, []*anno.Annotation{})
	require.False(t, engine.Interpolate(0, 5, MethodLinear))
	// Keyframes too close together
	store.Set(1, []*anno.Annotation{manualBox(2, 0, 10, 10, "Quad")})
	require.False(t, engine.Interpolate(0, 1, MethodLinear))

	// No mutation happened
	require.Equal(t, []int{0, 1, 5}, store.Frames())
	require.Empty(t, store.Get(5))
}

func TestInterpolateNoMatchableObjects(t *testing.T) {
	engine, store := newTestEngine(t)
	store.Set(0, []*anno.Annotation{manualBox(0, 0, 10, 10, "Car")})
	store.Set(5, []*anno.Annotation{manualBox(50, 0, 10, 10, "Person")})
	require.False(t, engine.Interpolate(0, 5, MethodLinear))
	require.Equal(t, []int{0, 5}, store.Frames())
}

func TestInterpolateNeverOverwrites(t *testing.T) {
	engine, store := newTestEngine(t)
	store.Set(0, []*anno.Annotation{manualBox(0, 0, 10, 10, "Quad")})
	store.Set(5, []*anno.Annotation{manualBox(50, 0, 10, 10, "Quad")})
	existing := manualBox(999, 999, 5, 5, "Quad")
	store.Set(3, []*anno.Annotation{existing})

	require.True(t, engine.Interpolate(0, 5, MethodLinear))
	require.Len(t, store.Get(3), 1)
	require.Same(t, existing, store.Get(3)[0])
	require.Len(t, store.Get(2), 1)
}

func TestInterpolateIdempotent(t *testing.T) {
	engine, store := newTestEngine(t)
	store.Set(0, []*anno.Annotation{manualBox(0, 0, 10, 10, "Quad")})
	store.Set(5, []*anno.Annotation{manualBox(50, 0, 10, 10, "Quad")})

	require.True(t, engine.Interpolate(0, 5, MethodLinear))
	snapshot := map[int][]*anno.Annotation{}
	for _, f := range store.Frames() {
		snapshot[f] = gen.CopySlice(store.Get(f))
	}

	// The second run must not touch the frames filled by the first
	engine.Interpolate(0, 5, MethodLinear)
	require.Equal(t, len(snapshot), len(store.Frames()))
	for f, list := range snapshot {
		require.Equal(t, list, store.Get(f), "frame %v", f)
	}
}

func TestInterpolateSwappedEndpoints(t *testing.T) {
	engine, store := newTestEngine(t)
	store.Set(0, []*anno.Annotation{manualBox(0, 0, 10, 10, "Quad")})
	store.Set(4, []*anno.Annotation{manualBox(40, 0, 10, 10, "Quad")})
	require.True(t, engine.Interpolate(4, 0, MethodLinear))
	require.Equal(t, 20, store.Get(2)[0].Box.X)
}

func TestLerpAttributes(t *testing.T) {
	a := map[string]any{
		"count":   10,
		"ratio":   0.0,
		"moving":  false,
		"pose":    "up",
		"only_a":  "here",
		"mixed":   1,
	}
	b := map[string]any{
		"count":   20,
		"ratio":   1.0,
		"moving":  true,
		"pose":    "down",
		"only_b":  42,
		"mixed":   "two",
	}

	early := lerpAttributes(a, b, 0.25)
	require.Equal(t, 13, early["count"]) // both int -> rounded back to int
	require.InDelta(t, 0.25, early["ratio"].(float64), 1e-9)
	require.Equal(t, false, early["moving"])
	require.Equal(t, "up", early["pose"])
	require.Equal(t, "here", early["only_a"])
	require.Equal(t, 42, early["only_b"])
	require.Equal(t, 1, early["mixed"]) // mixed types snap, no blend

	late := lerpAttributes(a, b, 0.75)
	require.Equal(t, 18, late["count"])
	require.InDelta(t, 0.75, late["ratio"].(float64), 1e-9)
	require.Equal(t, true, late["moving"])
	require.Equal(t, "down", late["pose"])
	require.Equal(t, "two", late["mixed"])
}

func TestWeightedMergeScoreBound(t *testing.T) {
	for _, scores := range [][2]float64{{0, 0}, {0.5, 0.5}, {1, 1}, {0.9, 0.95}, {0.1, 0.05}} {
		a := anno.New(anno.Rect{X: 0, Y: 0, Width: 10, Height: 10}, "Quad", nil, anno.RGBA{}, anno.SourceDetected, anno.ScorePtr(scores[0]))
		b := anno.New(anno.Rect{X: 1, Y: 0, Width: 10, Height: 10}, "Quad", nil, anno.RGBA{}, anno.SourceDetected, anno.ScorePtr(scores[1]))
		merged := WeightedMerge(a, b)
		require.NotNil(t, merged.Score)
		require.GreaterOrEqual(t, *merged.Score, 0.0)
		require.LessOrEqual(t, *merged.Score, 1.0)
		require.Equal(t, anno.SourceInterpolated, merged.Source)
	}
}

func TestWeightedMergeTakesHigherSide(t *testing.T) {
	a := anno.New(anno.Rect{X: 0, Y: 0, Width: 10, Height: 10}, "Car", map[string]any{"pose": "left"}, anno.RGBA{R: 1}, anno.SourceDetected, anno.ScorePtr(0.3))
	b := anno.New(anno.Rect{X: 2, Y: 0, Width: 10, Height: 10}, "Truck", map[string]any{"pose": "right"}, anno.RGBA{R: 2}, anno.SourceDetected, anno.ScorePtr(0.7))
	merged := WeightedMerge(a, b)
	require.Equal(t, "Truck", merged.Class)
	require.Equal(t, "right", merged.Attributes["pose"])
	require.Equal(t, anno.RGBA{R: 2}, merged.Color)
	// x weighted towards b: 0*0.3 + 2*0.7 = 1.4 -> 1
	require.Equal(t, 1, merged.Box.X)
}
