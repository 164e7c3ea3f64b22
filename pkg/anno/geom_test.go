package anno

import (
	"testing"
)

func TestIOU(t *testing.T) {
	a := Rect{
		X:      0,
		Y:      0,
		Width:  10,
		Height: 10,
	}
	b := Rect{
		X:      5,
		Y:      5,
		Width:  10,
		Height: 10,
	}
	if a.IOU(b) != 0.25/(0.75+1) {
		t.Errorf("IOU is %v, not 0.25", a.IOU(b))
	}
	if a.IOU(b) != b.IOU(a) {
		t.Errorf("IOU is not symmetric")
	}
	if a.IOU(a) != 1.0 {
		t.Errorf("IOU of a rect with itself is %v, not 1", a.IOU(a))
	}
}

func TestIOUDisjoint(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	b := Rect{X: 20, Y: 20, Width: 10, Height: 10}
	if a.IOU(b) != 0 {
		t.Errorf("IOU of disjoint rects is %v, not 0", a.IOU(b))
	}
}

func TestIOUDegenerate(t *testing.T) {
	empty := Rect{X: 5, Y: 5, Width: 0, Height: 0}
	if empty.IOU(empty) != 0 {
		t.Errorf("IOU with zero union area is %v, not 0", empty.IOU(empty))
	}
}

func TestIOURange(t *testing.T) {
	rects := []Rect{
		{0, 0, 10, 10},
		{5, 5, 10, 10},
		{-3, -3, 6, 6},
		{0, 0, 0, 0},
		{100, 100, 1, 1},
	}
	for _, a := range rects {
		for _, b := range rects {
			iou := a.IOU(b)
			if iou < 0 || iou > 1 {
				t.Errorf("IOU(%v, %v) = %v, outside [0,1]", a, b, iou)
			}
		}
	}
}
