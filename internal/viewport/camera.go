// Package viewport implements the interactive camera transform, box hit
// testing, and spatial selection cycling for the annotation canvas.
package viewport

import "cow-tagger/pkg/geometry"

const (
	// DefaultMinZoom and DefaultMaxZoom bound the image-to-screen scale.
	DefaultMinZoom = 0.05
	DefaultMaxZoom = 10.0

	// DefaultFitMargin leaves a 10% border around a fitted image.
	DefaultFitMargin = 0.9
)

// Camera maps image-pixel space to screen space with a uniform scale and a
// screen-space translation of the image origin. It is never persisted.
type Camera struct {
	Scale   float64
	OffsetX float64
	OffsetY float64

	MinZoom float64
	MaxZoom float64
}

// NewCamera returns a camera at 1:1 scale with default zoom bounds.
func NewCamera() *Camera {
	return &Camera{Scale: 1, MinZoom: DefaultMinZoom, MaxZoom: DefaultMaxZoom}
}

// ToScreen maps an image-space point to screen space.
func (c *Camera) ToScreen(p geometry.Point2D) geometry.Point2D {
	return p.Scale(c.Scale).Add(c.offset())
}

// ToImage maps a screen-space point back to image space.
func (c *Camera) ToImage(p geometry.Point2D) geometry.Point2D {
	return p.Sub(c.offset()).Scale(1 / c.Scale)
}

func (c *Camera) offset() geometry.Point2D {
	return geometry.NewPoint2D(c.OffsetX, c.OffsetY)
}

// RectToScreen maps an image-space rectangle to screen space.
func (c *Camera) RectToScreen(r geometry.Rect) geometry.Rect {
	tl := c.ToScreen(r.TopLeft())
	return geometry.NewRect(tl.X, tl.Y, r.Width*c.Scale, r.Height*c.Scale)
}

// FitToView scales the image to fit the viewport with a margin and centers it.
func (c *Camera) FitToView(img, view geometry.Size, margin float64) {
	if img.Width <= 0 || img.Height <= 0 || view.Width <= 0 || view.Height <= 0 {
		return
	}
	if margin <= 0 {
		margin = DefaultFitMargin
	}
	scale := view.Width / img.Width
	if s := view.Height / img.Height; s < scale {
		scale = s
	}
	c.Scale = c.clamp(scale * margin)
	c.OffsetX = (view.Width - img.Width*c.Scale) / 2
	c.OffsetY = (view.Height - img.Height*c.Scale) / 2
}

// ZoomAt scales by factor keeping the image point under anchor visually
// fixed. Used by wheel zoom with the pointer position as anchor.
func (c *Camera) ZoomAt(factor float64, anchor geometry.Point2D) {
	anchorImage := c.ToImage(anchor)
	c.Scale = c.clamp(c.Scale * factor)
	c.OffsetX = anchor.X - anchorImage.X*c.Scale
	c.OffsetY = anchor.Y - anchorImage.Y*c.Scale
}

// ZoomBy scales by factor without moving the offset, anchoring the zoom at
// the image origin rather than the viewport center. Keyboard zoom behaves
// this way in the original tool; kept as-is pending product confirmation.
func (c *Camera) ZoomBy(factor float64) {
	c.Scale = c.clamp(c.Scale * factor)
}

// Pan translates the image origin by a screen-space delta.
func (c *Camera) Pan(dx, dy float64) {
	c.OffsetX += dx
	c.OffsetY += dy
}

func (c *Camera) clamp(scale float64) float64 {
	minZoom, maxZoom := c.MinZoom, c.MaxZoom
	if minZoom <= 0 {
		minZoom = DefaultMinZoom
	}
	if maxZoom <= 0 {
		maxZoom = DefaultMaxZoom
	}
	if scale < minZoom {
		return minZoom
	}
	if scale > maxZoom {
		return maxZoom
	}
	return scale
}
