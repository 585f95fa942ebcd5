// Package dataset provides access to annotation datasets on disk.
//
// A dataset root contains directories named *_dataset, each with the layout
//
//	images/<split>/*.jpg        source images
//	labels/<split>/<stem>.txt   YOLO detections (class xc yc w h)
//	labeled_data/<split>/<stem>.json   reviewed annotation documents
package dataset

import (
	"context"
	"errors"
	"image"

	"cow-tagger/internal/annotation"
)

// ErrNotFound is returned for missing datasets, images, or annotation files.
var ErrNotFound = errors.New("dataset: not found")

// Split selects the train or validation half of a dataset.
type Split string

const (
	SplitTrain Split = "train"
	SplitVal   Split = "val"
)

// Splits lists all supported splits in display order.
func Splits() []Split {
	return []Split{SplitTrain, SplitVal}
}

// Info summarizes one dataset directory.
type Info struct {
	Name       string
	ImageCount int
}

// Store is the persistence bridge consumed by the editing session. The
// fetch methods take a context so slow reads can be abandoned on shutdown;
// stale-response handling is the caller's job (the session tracks a
// generation token per navigation).
type Store interface {
	ListDatasets() ([]Info, error)
	ListImages(dataset string, split Split) ([]annotation.ImageListEntry, error)
	FetchImage(ctx context.Context, dataset string, split Split, filename string) (image.Image, error)
	FetchAnnotations(ctx context.Context, dataset string, split Split, filename string) (*annotation.Document, error)
	SaveAnnotations(ctx context.Context, dataset string, doc *annotation.Document) error
}
