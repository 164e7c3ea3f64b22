package anno

// Package anno holds the annotation data model that every other component
// operates on: bounding boxes, the per-frame annotation store, box matching
// and conflict resolution.

// Source identifies how an annotation came to exist.
type Source string

const (
	SourceManual             Source = "manual"
	SourceInterpolated       Source = "interpolated"
	SourceSmoothInterpolated Source = "smooth_interpolated"
	SourceTracked            Source = "tracked"
	SourceDetected           Source = "detected"
)

// DefaultScore is assumed for annotations that carry no confidence of their own
// (eg a manually drawn box) when one is needed for a comparison.
const DefaultScore = 0.5

// RGBA is the display color of an annotation. The core never inspects it,
// but it must survive copies and interpolation.
type RGBA struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

// Annotation is one labeled bounding box on one frame.
type Annotation struct {
	Box            Rect           `json:"box"`
	Class          string         `json:"class"`
	Attributes     map[string]any `json:"attributes,omitempty"` // int, float64, bool or string values, keys are class-dependent
	Color          RGBA           `json:"color"`
	Source         Source         `json:"source"`
	OriginalSource Source         `json:"originalSource"` // the Source assigned at creation; never changes afterwards
	Verified       bool           `json:"verified"`
	Score          *float64       `json:"score,omitempty"` // confidence in [0,1]; nil once a human has verified the box
}

// New creates an annotation. Manually drawn boxes are verified by definition,
// and verified boxes carry no confidence score.
func New(box Rect, class string, attributes map[string]any, color RGBA, source Source, score *float64) *Annotation {
	if attributes == nil {
		attributes = map[string]any{}
	}
	a := &Annotation{
		Box:            box,
		Class:          class,
		Attributes:     attributes,
		Color:          color,
		Source:         source,
		OriginalSource: source,
		Score:          score,
	}
	if source == SourceManual {
		a.Verified = true
		a.Score = nil
	}
	return a
}

// Copy returns a deep copy. The copy shares no mutable state with the
// original, including the Attributes map.
func (a *Annotation) Copy() *Annotation {
	dup := *a
	dup.Attributes = make(map[string]any, len(a.Attributes))
	for k, v := range a.Attributes {
		dup.Attributes[k] = v
	}
	if a.Score != nil {
		score := *a.Score
		dup.Score = &score
	}
	return &dup
}

// Verify marks the annotation as human-confirmed and drops its score.
func (a *Annotation) Verify() {
	a.Verified = true
	a.Score = nil
}

// ScoreOrDefault returns the confidence score, or DefaultScore if none is set.
func (a *Annotation) ScoreOrDefault() float64 {
	if a.Score == nil {
		return DefaultScore
	}
	return *a.Score
}

// ScorePtr is a convenience for building annotations with a literal score.
func ScorePtr(v float64) *float64 {
	return &v
}
