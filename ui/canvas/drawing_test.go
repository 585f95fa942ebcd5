package canvas

import (
	"image"
	"image/color"
	"testing"

	"cow-tagger/pkg/geometry"
)

func countColored(img *image.RGBA) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			if r != 0 || g != 0 || bl != 0 {
				n++
			}
		}
	}
	return n
}

func TestFillSetsEachChannel(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	col := color.RGBA{R: 10, G: 20, B: 30, A: 255}
	fill(img, col)

	for _, p := range []image.Point{{0, 0}, {3, 3}, {1, 2}} {
		if got := img.RGBAAt(p.X, p.Y); got != col {
			t.Errorf("pixel %v = %v, want %v", p, got, col)
		}
	}
}

func TestDrawRectOutlineSetsEdges(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 50, 50))
	drawRectOutline(img, geometry.NewRect(10, 10, 20, 20), colorSelected, 2)

	for _, p := range []image.Point{{10, 10}, {30, 10}, {10, 30}, {30, 30}} {
		if img.RGBAAt(p.X, p.Y) != colorSelected {
			t.Errorf("corner %v not drawn", p)
		}
	}
	// Second thickness row on the top edge.
	if img.RGBAAt(20, 11) != colorSelected {
		t.Error("thickness 2 missing on top edge")
	}
	// Interior stays empty.
	if img.RGBAAt(20, 20) == colorSelected {
		t.Error("interior filled")
	}
}

func TestDrawRectOutlineClipsToBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	// Mostly off-screen rect must not panic and must still draw the
	// visible part.
	drawRectOutline(img, geometry.NewRect(-100, -100, 110, 110), colorHovered, 3)
	if countColored(img) == 0 {
		t.Error("visible edge portion not drawn")
	}
}

func TestDrawIdentityLabel(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	drawIdentityLabel(img, "118", 50, 50, colorLabeled, 1.0)
	if countColored(img) == 0 {
		t.Fatal("no label pixels drawn")
	}

	blank := image.NewRGBA(image.Rect(0, 0, 100, 100))
	drawIdentityLabel(blank, "abc", 50, 50, colorLabeled, 1.0)
	if countColored(blank) != 0 {
		t.Error("non-digit characters must be skipped")
	}
}

func TestDrawIdentityLabelClampedScale(t *testing.T) {
	// Extreme zooms must stay inside the scale clamp, not blow up the
	// glyph size or drop below visibility.
	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	drawIdentityLabel(img, "7", 100, 100, colorLabeled, 100.0)
	small := countColored(img)
	if small == 0 {
		t.Fatal("no pixels at high zoom")
	}
	// 3x5 glyph at max scale 6 covers at most 15*30 pixels.
	if small > 15*30 {
		t.Errorf("glyph escaped the scale clamp: %d pixels", small)
	}
}
