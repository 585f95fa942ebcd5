package viewport

import (
	"math"
	"testing"

	"cow-tagger/pkg/geometry"
)

const tol = 1e-9

func pointsClose(a, b geometry.Point2D) bool {
	return math.Abs(a.X-b.X) < tol && math.Abs(a.Y-b.Y) < tol
}

func TestTransformRoundTrip(t *testing.T) {
	cams := []*Camera{
		{Scale: 1},
		{Scale: 0.25, OffsetX: -300, OffsetY: 120},
		{Scale: 7.5, OffsetX: 13.7, OffsetY: -0.4},
	}
	points := []geometry.Point2D{
		{X: 0, Y: 0},
		{X: 512.5, Y: 384.25},
		{X: -20, Y: 99999},
	}

	for _, c := range cams {
		for _, p := range points {
			got := c.ToScreen(c.ToImage(p))
			if !pointsClose(got, p) {
				t.Fatalf("round trip of %+v at scale %v gave %+v", p, c.Scale, got)
			}
		}
	}
}

func TestZoomAtKeepsAnchorFixed(t *testing.T) {
	c := NewCamera()
	c.Scale = 1.3
	c.OffsetX = 40
	c.OffsetY = -25

	anchor := geometry.NewPoint2D(211, 173)
	before := c.ToImage(anchor)
	c.ZoomAt(1.1, anchor)
	after := c.ToImage(anchor)

	if !pointsClose(before, after) {
		t.Fatalf("anchor image point moved: before %+v, after %+v", before, after)
	}
	if math.Abs(c.Scale-1.43) > tol {
		t.Fatalf("expected scale 1.43, got %v", c.Scale)
	}
}

func TestZoomByLeavesOffsetUnchanged(t *testing.T) {
	c := NewCamera()
	c.OffsetX = 17
	c.OffsetY = 31
	c.ZoomBy(1.2)
	if c.OffsetX != 17 || c.OffsetY != 31 {
		t.Fatalf("keyboard zoom must not move the offset, got (%v, %v)", c.OffsetX, c.OffsetY)
	}
}

func TestZoomClamps(t *testing.T) {
	c := NewCamera()
	for i := 0; i < 100; i++ {
		c.ZoomBy(1.2)
	}
	if c.Scale > DefaultMaxZoom {
		t.Fatalf("scale %v exceeds max %v", c.Scale, DefaultMaxZoom)
	}
	for i := 0; i < 200; i++ {
		c.ZoomAt(0.9, geometry.NewPoint2D(100, 100))
	}
	if c.Scale < DefaultMinZoom {
		t.Fatalf("scale %v below min %v", c.Scale, DefaultMinZoom)
	}
}

func TestFitToView(t *testing.T) {
	c := NewCamera()
	img := geometry.NewSize(2000, 1000)
	view := geometry.NewSize(800, 600)
	c.FitToView(img, view, 0.9)

	// Width is the limiting dimension: 800/2000 * 0.9 = 0.36.
	if math.Abs(c.Scale-0.36) > tol {
		t.Fatalf("expected scale 0.36, got %v", c.Scale)
	}

	// Image center lands on the viewport center.
	center := c.ToScreen(geometry.NewPoint2D(1000, 500))
	if !pointsClose(center, geometry.NewPoint2D(400, 300)) {
		t.Fatalf("image center mapped to %+v, want viewport center", center)
	}
}

func TestPan(t *testing.T) {
	c := NewCamera()
	c.Pan(10, -4)
	c.Pan(5, 5)
	if c.OffsetX != 15 || c.OffsetY != 1 {
		t.Fatalf("unexpected offset (%v, %v)", c.OffsetX, c.OffsetY)
	}
}
