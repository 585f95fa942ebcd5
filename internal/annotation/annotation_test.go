package annotation

import "testing"

func boxWithID(id string) Box {
	b := Box{YOLO: [4]float64{0.5, 0.5, 0.2, 0.2}}
	b.SetIdentity(id)
	return b
}

func TestSetIdentityTransitions(t *testing.T) {
	var b Box

	b.SetIdentity(" 1042 ")
	if !b.Labeled() {
		t.Fatalf("expected labeled after confirming identity, got status %q", b.Status)
	}
	if b.CowID != "1042" {
		t.Fatalf("expected trimmed identity 1042, got %q", b.CowID)
	}

	// Confirming an empty identity is an explicit clear.
	b.SetIdentity("   ")
	if b.Labeled() {
		t.Fatal("expected unlabeled after clearing identity")
	}
	if b.CowID != "" || b.Status != BoxUnlabeled {
		t.Fatalf("expected cleared box, got id=%q status=%q", b.CowID, b.Status)
	}
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name string
		ids  []string
		want ImageStatus
	}{
		{"no boxes", nil, ImageTouched},
		{"none labeled", []string{"", "", ""}, ImageTouched},
		{"some labeled", []string{"17", "", "23"}, ImageInProgress},
		{"all labeled", []string{"17", "8", "23"}, ImageCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &Document{Filename: "img.jpg"}
			for _, id := range tt.ids {
				doc.Boxes = append(doc.Boxes, boxWithID(id))
			}
			if got := doc.DeriveStatus(); got != tt.want {
				t.Fatalf("DeriveStatus() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEntryFor(t *testing.T) {
	doc := &Document{
		Filename: "cow_007.jpg",
		Boxes:    []Box{boxWithID("12"), boxWithID(""), boxWithID("9")},
	}
	entry := EntryFor(doc)
	if entry.Filename != "cow_007.jpg" {
		t.Fatalf("unexpected filename %q", entry.Filename)
	}
	if entry.Status != ImageInProgress {
		t.Fatalf("expected in_progress, got %q", entry.Status)
	}
	if entry.TotalBoxes != 3 {
		t.Fatalf("expected 3 boxes, got %d", entry.TotalBoxes)
	}
	if len(entry.LabeledIDs) != 2 || entry.LabeledIDs[0] != "12" || entry.LabeledIDs[1] != "9" {
		t.Fatalf("unexpected labeled ids %v", entry.LabeledIDs)
	}
}

func TestPixelRect(t *testing.T) {
	b := Box{YOLO: [4]float64{0.5, 0.25, 0.2, 0.1}}
	r := b.PixelRect(1000, 800)
	if r.X != 400 || r.Y != 160 || r.Width != 200 || r.Height != 80 {
		t.Fatalf("unexpected rect %+v", r)
	}
}
