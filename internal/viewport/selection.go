package viewport

import (
	"sort"

	"cow-tagger/internal/annotation"
)

// NoSelection marks the absence of a hovered or selected box.
const NoSelection = -1

// Selection tracks the hovered and selected box indices into the current
// document's box sequence. Indices are invalidated whenever the document
// is replaced.
type Selection struct {
	Hovered  int
	Selected int
}

// NewSelection returns an empty selection.
func NewSelection() Selection {
	return Selection{Hovered: NoSelection, Selected: NoSelection}
}

// Reset clears both indices.
func (s *Selection) Reset() {
	s.Hovered = NoSelection
	s.Selected = NoSelection
}

// CycleOrder returns box indices sorted ascending by normalized x-center.
// The order is recomputed on demand, never cached, since boxes can be
// edited between cycles. The sort is stable so equal centers keep storage
// order.
func CycleOrder(boxes []annotation.Box) []int {
	order := make([]int, len(boxes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return boxes[order[a]].CenterX() < boxes[order[b]].CenterX()
	})
	return order
}

// Cycle advances the selection through the spatial tab order. dir is +1 for
// Tab and -1 for Shift+Tab; the rank wraps in both directions. current is
// the currently selected original index, or NoSelection. Returns the new
// original index, or NoSelection when there are no boxes.
func Cycle(boxes []annotation.Box, current, dir int) int {
	order := CycleOrder(boxes)
	if len(order) == 0 {
		return NoSelection
	}

	rank := -1
	for r, idx := range order {
		if idx == current {
			rank = r
			break
		}
	}

	rank += dir
	if rank < 0 {
		rank = len(order) - 1
	}
	if rank >= len(order) {
		rank = 0
	}
	return order[rank]
}
