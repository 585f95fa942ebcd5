// Package annotation defines the per-image annotation document and the
// status rules derived from per-box identity labels.
package annotation

import (
	"strings"

	"cow-tagger/pkg/geometry"
)

// BoxStatus is the labeling state of a single bounding box.
type BoxStatus string

const (
	BoxUnlabeled BoxStatus = "unknown"
	BoxLabeled   BoxStatus = "labeled"
)

// ImageStatus summarizes how far along an image's annotation is.
type ImageStatus string

const (
	ImageUntouched  ImageStatus = "untouched"
	ImageTouched    ImageStatus = "touched"
	ImageInProgress ImageStatus = "in_progress"
	ImageCompleted  ImageStatus = "completed"
)

// Box is one detected region. Coordinates use the YOLO convention:
// center x, center y, width, height, each as a fraction of the image size.
type Box struct {
	YOLO   [4]float64 `json:"yolo"`
	Status BoxStatus  `json:"status"`
	CowID  string     `json:"cow_id,omitempty"`
}

// Labeled reports whether the box carries a confirmed identity.
func (b *Box) Labeled() bool {
	return b.Status == BoxLabeled && b.CowID != ""
}

// SetIdentity confirms an identity for the box. The input is trimmed; an
// empty result clears the identity and reverts the box to unlabeled.
func (b *Box) SetIdentity(id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		b.CowID = ""
		b.Status = BoxUnlabeled
		return
	}
	b.CowID = id
	b.Status = BoxLabeled
}

// CenterX returns the normalized x-center used for tab ordering.
func (b *Box) CenterX() float64 {
	return b.YOLO[0]
}

// PixelRect converts the normalized box to an image-space pixel rectangle.
func (b *Box) PixelRect(imgW, imgH float64) geometry.Rect {
	xc, yc, w, h := b.YOLO[0], b.YOLO[1], b.YOLO[2], b.YOLO[3]
	return geometry.NewRect((xc-w/2)*imgW, (yc-h/2)*imgH, w*imgW, h*imgH)
}

// Document holds all boxes for one image. Box order is stable and only
// meaningful for persistence; display and selection order is computed.
type Document struct {
	Dataset  string `json:"dataset,omitempty"`
	Filename string `json:"filename"`
	Split    string `json:"split"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Boxes    []Box  `json:"annotations"`
}

// LabeledCount returns the number of boxes with confirmed identities.
func (d *Document) LabeledCount() int {
	n := 0
	for i := range d.Boxes {
		if d.Boxes[i].Labeled() {
			n++
		}
	}
	return n
}

// DeriveStatus computes the per-image status from the per-box labels.
// It encodes the post-save rules: a document with no boxes counts as
// touched once it has been saved at all.
func (d *Document) DeriveStatus() ImageStatus {
	total := len(d.Boxes)
	labeled := d.LabeledCount()
	switch {
	case total > 0 && labeled == total:
		return ImageCompleted
	case labeled > 0:
		return ImageInProgress
	default:
		return ImageTouched
	}
}

// LabeledIdentities returns the identities present on the document, in box
// storage order.
func (d *Document) LabeledIdentities() []string {
	var ids []string
	for i := range d.Boxes {
		if d.Boxes[i].CowID != "" {
			ids = append(ids, d.Boxes[i].CowID)
		}
	}
	return ids
}

// ImageListEntry is the per-image summary shown in the gallery. It is
// derived, not authoritative: recomputed locally after each save and
// refreshed wholesale when a split is (re)loaded.
type ImageListEntry struct {
	Filename   string      `json:"filename"`
	Status     ImageStatus `json:"status"`
	TotalBoxes int         `json:"total_boxes"`
	LabeledIDs []string    `json:"labeled_ids"`
}

// EntryFor recomputes a list entry from a just-saved document.
func EntryFor(d *Document) ImageListEntry {
	return ImageListEntry{
		Filename:   d.Filename,
		Status:     d.DeriveStatus(),
		TotalBoxes: len(d.Boxes),
		LabeledIDs: d.LabeledIdentities(),
	}
}
