package dataset

import (
	"gonum.org/v1/gonum/stat"

	"cow-tagger/internal/annotation"
)

// Progress summarizes how far a split's review has come.
type Progress struct {
	Images        int
	Completed     int
	InProgress    int
	MeanBoxes     float64
	CompletedFrac float64
}

// Summarize computes gallery progress numbers for the status bar.
func Summarize(entries []annotation.ImageListEntry) Progress {
	p := Progress{Images: len(entries)}
	if len(entries) == 0 {
		return p
	}

	boxes := make([]float64, len(entries))
	done := make([]float64, len(entries))
	for i, e := range entries {
		boxes[i] = float64(e.TotalBoxes)
		switch e.Status {
		case annotation.ImageCompleted:
			p.Completed++
			done[i] = 1
		case annotation.ImageInProgress:
			p.InProgress++
		}
	}
	p.MeanBoxes = stat.Mean(boxes, nil)
	p.CompletedFrac = stat.Mean(done, nil)
	return p
}
