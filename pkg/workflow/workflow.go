// Package workflow drives the keyframe annotation loop: it tracks which
// frames the user has annotated, suggests which frame to visit next, and
// fires interpolation once two keyframes far enough apart exist.
package workflow

import (
	"github.com/boxlab/boxlab/pkg/anno"
	"github.com/boxlab/boxlab/pkg/gen"
	"github.com/boxlab/boxlab/pkg/interp"
)

// State of the keyframe workflow.
type State int

const (
	StateIdle                   State = iota // interpolation mode off
	StateArmed                               // mode on, no keyframe recorded yet
	StateAwaitingSecondKeyframe              // one keyframe recorded
	StateInterpolationPending                // two keyframes at least 2 frames apart, ready to interpolate
)

// DefaultInterval is the suggested gap between consecutive keyframes.
const DefaultInterval = 5

// Controller is the small state machine behind interpolation mode.
// It owns its navigation state, including the set of frames the user was sent
// to review; nothing is stored on the host window.
type Controller struct {
	engine      *interp.Engine
	store       *anno.FrameStore
	interval    int
	totalFrames int // 0 when unknown; only used to clamp suggested frames

	enabled       bool
	haveLast      bool
	lastAnnotated int
	haveAnchor    bool
	anchor        int // the first keyframe; all navigation offsets hang off it
	pending       bool
	visited       map[int]bool
}

func NewController(engine *interp.Engine, interval, totalFrames int) *Controller {
	if interval < 2 {
		interval = DefaultInterval
	}
	return &Controller{
		engine:      engine,
		store:       engine.Store(),
		interval:    interval,
		totalFrames: totalFrames,
		visited:     map[int]bool{},
	}
}

// Enable turns interpolation mode on.
func (c *Controller) Enable() {
	c.enabled = true
}

// Disable turns interpolation mode off and resets all workflow state.
func (c *Controller) Disable() {
	c.enabled = false
	c.haveLast = false
	c.lastAnnotated = 0
	c.haveAnchor = false
	c.anchor = 0
	c.pending = false
	c.visited = map[int]bool{}
}

func (c *Controller) Enabled() bool {
	return c.enabled
}

func (c *Controller) State() State {
	switch {
	case !c.enabled:
		return StateIdle
	case !c.haveLast:
		return StateArmed
	case c.pending:
		return StateInterpolationPending
	default:
		return StateAwaitingSecondKeyframe
	}
}

// Interval returns the configured keyframe gap.
func (c *Controller) Interval() int {
	return c.interval
}

// OnFrameAnnotated records that the user finished annotating a frame.
// For the very first keyframe it returns the suggested frame to visit next.
// Any later keyframe at least 2 frames from the previous one arms a pending
// interpolation.
func (c *Controller) OnFrameAnnotated(frame int) (next int, suggested bool) {
	if !c.enabled {
		return 0, false
	}
	if !c.haveAnchor {
		c.haveAnchor = true
		c.anchor = frame
	}
	if !c.haveLast {
		c.haveLast = true
		c.lastAnnotated = frame
		return c.clamp(frame + c.interval), true
	}
	if gen.Abs(frame-c.lastAnnotated) >= 2 {
		c.pending = true
	}
	c.lastAnnotated = frame
	return 0, false
}

// CheckPendingInterpolation fires the pending interpolation once the user
// navigates away from the frame they just annotated.
func (c *Controller) CheckPendingInterpolation(newFrame int) {
	if c.pending && newFrame != c.lastAnnotated {
		c.PerformPendingInterpolation()
	}
}

// PerformPendingInterpolation interpolates between the nearest earlier
// keyframe and the last annotated frame, and clears the pending flag.
func (c *Controller) PerformPendingInterpolation() bool {
	c.pending = false
	if !c.haveLast {
		return false
	}
	prev, ok := c.store.NearestEarlierKeyframe(c.lastAnnotated)
	if !ok {
		return false
	}
	return c.engine.Interpolate(prev, c.lastAnnotated, interp.MethodLinear)
}

// NextFrame returns the frame the user should visit after 'current'.
//
// With interpolation mode on, navigation follows a fixed offset pattern
// anchored at the first keyframe, repeating every 2*interval frames:
// +2, +4, +interval+4, +2*interval. The pattern alternates between reviewing
// interpolated frames and annotating new keyframes; its exact offsets are a
// contract with the UI prompts and must not be made adaptive.
// With the mode off (or before any keyframe exists) it is simply current+1.
func (c *Controller) NextFrame(current int) int {
	if !c.enabled || !c.haveAnchor {
		return c.clamp(current + 1)
	}
	cycle := 2 * c.interval
	offsets := [4]int{2, 4, c.interval + 4, cycle}
	k := 0
	if current > c.anchor {
		k = (current - c.anchor) / cycle
	}
	for ; ; k++ {
		for _, off := range offsets {
			cand := c.anchor + k*cycle + off
			if cand > current {
				cand = c.clamp(cand)
				c.visited[cand] = true
				return cand
			}
		}
	}
}

// HasVisited is true if NextFrame has already sent the user to this frame.
func (c *Controller) HasVisited(frame int) bool {
	return c.visited[frame]
}

func (c *Controller) clamp(frame int) int {
	if c.totalFrames > 0 {
		return gen.Clamp(frame, 0, c.totalFrames-1)
	}
	return frame
}
