package viewport

import (
	"cow-tagger/internal/annotation"
	"cow-tagger/pkg/geometry"
)

// HitTest resolves an image-space point to the top-most box containing it.
// Boxes are scanned in reverse insertion order so the last-drawn box wins
// when boxes overlap. Returns -1 when no box contains the point.
//
// Linear scan: box counts are tens, not thousands.
func HitTest(boxes []annotation.Box, imgW, imgH float64, p geometry.Point2D) int {
	for i := len(boxes) - 1; i >= 0; i-- {
		if boxes[i].PixelRect(imgW, imgH).Contains(p) {
			return i
		}
	}
	return -1
}
