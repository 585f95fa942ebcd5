// Package canvas provides drawing primitives for the annotation viewport.
package canvas

import (
	"image"
	"image/color"
	"image/draw"

	"cow-tagger/pkg/geometry"
)

// Box outline colors by state.
var (
	colorUnlabeled = color.RGBA{R: 239, G: 83, B: 80, A: 255}  // red: needs an identity
	colorLabeled   = color.RGBA{R: 76, G: 175, B: 80, A: 255}  // green: identity confirmed
	colorHovered   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	colorSelected  = color.RGBA{R: 255, G: 179, B: 0, A: 255}
	colorBackdrop  = color.RGBA{R: 24, G: 24, B: 24, A: 255}
)

// digitPatterns contains 3x5 pixel patterns for digits 0-9.
// Each digit is represented as 5 rows of 3 bits.
var digitPatterns = [10][5]uint8{
	{0b111, 0b101, 0b101, 0b101, 0b111}, // 0
	{0b010, 0b110, 0b010, 0b010, 0b111}, // 1
	{0b111, 0b001, 0b111, 0b100, 0b111}, // 2
	{0b111, 0b001, 0b111, 0b001, 0b111}, // 3
	{0b101, 0b101, 0b111, 0b001, 0b001}, // 4
	{0b111, 0b100, 0b111, 0b001, 0b111}, // 5
	{0b111, 0b100, 0b111, 0b101, 0b111}, // 6
	{0b111, 0b001, 0b001, 0b001, 0b001}, // 7
	{0b111, 0b101, 0b111, 0b101, 0b111}, // 8
	{0b111, 0b101, 0b111, 0b001, 0b111}, // 9
}

// fill floods the whole image with one color.
func fill(output *image.RGBA, col color.RGBA) {
	draw.Draw(output, output.Bounds(), image.NewUniform(col), image.Point{}, draw.Src)
}

// drawRectOutline draws an axis-aligned rectangle outline with the given
// screen-space thickness. Thickness is fixed in screen pixels so box edges
// look the same at every zoom level.
func drawRectOutline(output *image.RGBA, r geometry.Rect, col color.RGBA, thickness int) {
	x1, y1 := int(r.X), int(r.Y)
	x2, y2 := int(r.X+r.Width), int(r.Y+r.Height)
	bounds := output.Bounds()

	for t := 0; t < thickness; t++ {
		// Top and bottom edges
		for x := x1; x <= x2; x++ {
			if x < bounds.Min.X || x >= bounds.Max.X {
				continue
			}
			if y1+t >= bounds.Min.Y && y1+t < bounds.Max.Y {
				output.SetRGBA(x, y1+t, col)
			}
			if y2-t >= bounds.Min.Y && y2-t < bounds.Max.Y {
				output.SetRGBA(x, y2-t, col)
			}
		}
		// Left and right edges
		for y := y1; y <= y2; y++ {
			if y < bounds.Min.Y || y >= bounds.Max.Y {
				continue
			}
			if x1+t >= bounds.Min.X && x1+t < bounds.Max.X {
				output.SetRGBA(x1+t, y, col)
			}
			if x2-t >= bounds.Min.X && x2-t < bounds.Max.X {
				output.SetRGBA(x2-t, y, col)
			}
		}
	}
}

// drawIdentityLabel draws a digit label centered at the given screen point.
// Identities are 1-6 digit strings; non-digit characters are skipped.
func drawIdentityLabel(output *image.RGBA, label string, centerX, centerY int, col color.RGBA, zoom float64) {
	// Base scale is 2 pixels per font pixel at zoom 1.0.
	scale := int(zoom * 2)
	if scale < 2 {
		scale = 2
	}
	if scale > 6 {
		scale = 6
	}

	charWidth := 3 * scale
	charHeight := 5 * scale
	spacing := scale
	labelWidth := len(label)*charWidth + (len(label)-1)*spacing

	startX := centerX - labelWidth/2
	startY := centerY - charHeight/2

	bounds := output.Bounds()

	for i, ch := range label {
		if ch < '0' || ch > '9' {
			continue
		}
		pattern := digitPatterns[ch-'0']
		charX := startX + i*(charWidth+spacing)

		for row := 0; row < 5; row++ {
			for c := 0; c < 3; c++ {
				if (pattern[row] & (1 << (2 - c))) == 0 {
					continue
				}
				for dy := 0; dy < scale; dy++ {
					for dx := 0; dx < scale; dx++ {
						px := charX + c*scale + dx
						py := startY + row*scale + dy
						if px >= bounds.Min.X && px < bounds.Max.X &&
							py >= bounds.Min.Y && py < bounds.Max.Y {
							output.SetRGBA(px, py, col)
						}
					}
				}
			}
		}
	}
}
