package app

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"cow-tagger/internal/annotation"
	"cow-tagger/internal/config"
	"cow-tagger/internal/dataset"
	"cow-tagger/internal/viewport"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// fakeStore serves canned documents and lets tests gate individual image
// fetches to simulate slow responses.
type fakeStore struct {
	mu      sync.Mutex
	entries []annotation.ImageListEntry
	docs    map[string]*annotation.Document
	gates   map[string]chan struct{}
	saveErr error
	saved   []string
}

func newFakeStore(filenames ...string) *fakeStore {
	fs := &fakeStore{docs: make(map[string]*annotation.Document), gates: make(map[string]chan struct{})}
	for _, name := range filenames {
		fs.entries = append(fs.entries, annotation.ImageListEntry{Filename: name, Status: annotation.ImageUntouched})
		fs.docs[name] = &annotation.Document{
			Filename: name,
			Split:    "train",
			Width:    100,
			Height:   100,
			Boxes:    []annotation.Box{{YOLO: [4]float64{0.5, 0.5, 0.2, 0.2}}},
		}
	}
	return fs
}

func (f *fakeStore) gate(name string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[name] = ch
	return ch
}

func (f *fakeStore) ListDatasets() ([]dataset.Info, error) { return nil, nil }

func (f *fakeStore) ListImages(string, dataset.Split) ([]annotation.ImageListEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]annotation.ImageListEntry, len(f.entries))
	copy(out, f.entries)
	return out, nil
}

// FetchImage returns an image whose width encodes the filename length so
// tests can tell responses apart.
func (f *fakeStore) FetchImage(ctx context.Context, _ string, _ dataset.Split, name string) (image.Image, error) {
	f.mu.Lock()
	ch := f.gates[name]
	f.mu.Unlock()
	if ch != nil {
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return image.NewRGBA(image.Rect(0, 0, len(name), 10)), nil
}

func (f *fakeStore) FetchAnnotations(_ context.Context, _ string, _ dataset.Split, name string) (*annotation.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[name]
	if !ok {
		return nil, dataset.ErrNotFound
	}
	cp := *doc
	cp.Boxes = append([]annotation.Box(nil), doc.Boxes...)
	return &cp, nil
}

func (f *fakeStore) SaveAnnotations(_ context.Context, _ string, doc *annotation.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, doc.Filename)
	return nil
}

func newTestSession(fs *fakeStore) *Session {
	s := NewSession(fs, config.Default(), testLogger)
	if err := s.OpenSplit("bucket_1_dataset", dataset.SplitTrain); err != nil {
		panic(err)
	}
	return s
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestNavigationLoadsImageAndDocument(t *testing.T) {
	s := newTestSession(newFakeStore("aa.jpg", "bbbb.jpg"))
	defer s.Close()

	if !s.NavigateTo(0) {
		t.Fatal("navigation rejected")
	}
	waitFor(t, "bitmap", func() bool { return s.Bitmap() != nil })
	waitFor(t, "document", func() bool { return s.Document() != nil })

	if s.Document().Filename != "aa.jpg" {
		t.Fatalf("wrong document %q", s.Document().Filename)
	}
	if got := s.Bitmap().Bounds().Dx(); got != len("aa.jpg") {
		t.Fatalf("wrong bitmap, width %d", got)
	}
}

func TestStaleImageResponseDiscarded(t *testing.T) {
	fs := newFakeStore("aa.jpg", "bbbb.jpg")
	slow := fs.gate("aa.jpg")
	s := newTestSession(fs)
	defer s.Close()

	// Navigate to A (its image fetch hangs), then move on to B.
	s.NavigateTo(0)
	s.NavigateTo(1)
	waitFor(t, "B bitmap", func() bool { return s.Bitmap() != nil })

	// A's fetch finally resolves; its bitmap must not become visible.
	close(slow)
	time.Sleep(20 * time.Millisecond)
	if got := s.Bitmap().Bounds().Dx(); got != len("bbbb.jpg") {
		t.Fatalf("stale bitmap leaked through, width %d", got)
	}
}

func TestOutdatedApplyDiscardedUnderLock(t *testing.T) {
	s := newTestSession(newFakeStore("aa.jpg", "bbbb.jpg"))
	defer s.Close()

	s.NavigateTo(1)
	waitFor(t, "bitmap", func() bool { return s.Bitmap() != nil })
	waitFor(t, "document", func() bool { return s.Document() != nil })

	// A fetch for the previous image resolving after the navigation
	// carries the previous token and must not install anything.
	gen := s.loadGen.Load()
	s.applyBitmap(gen-1, image.NewRGBA(image.Rect(0, 0, 1, 1)))
	s.applyDocument(gen-1, &annotation.Document{Filename: "aa.jpg"})

	if got := s.Bitmap().Bounds().Dx(); got != len("bbbb.jpg") {
		t.Fatalf("outdated bitmap installed, width %d", got)
	}
	if got := s.Document().Filename; got != "bbbb.jpg" {
		t.Fatalf("outdated document installed: %q", got)
	}
}

func TestNavigationResetsSelection(t *testing.T) {
	s := newTestSession(newFakeStore("aa.jpg", "bbbb.jpg"))
	defer s.Close()

	s.NavigateTo(0)
	waitFor(t, "document", func() bool { return s.Document() != nil })
	s.Select(0)
	s.Hover(0)

	s.NavigateTo(1)
	sel := s.Selection()
	if sel.Selected != viewport.NoSelection || sel.Hovered != viewport.NoSelection {
		t.Fatalf("selection not invalidated on navigation: %+v", sel)
	}
}

func TestHoverReportsChanges(t *testing.T) {
	s := newTestSession(newFakeStore("aa.jpg"))
	defer s.Close()

	if !s.Hover(2) {
		t.Fatal("first hover should report a change")
	}
	if s.Hover(2) {
		t.Fatal("repeated hover must not report a change")
	}
	if !s.Hover(viewport.NoSelection) {
		t.Fatal("clearing hover should report a change")
	}
}

func TestSaveRecomputesEntry(t *testing.T) {
	fs := newFakeStore("aa.jpg")
	s := newTestSession(fs)
	defer s.Close()

	s.NavigateTo(0)
	waitFor(t, "document", func() bool { return s.Document() != nil })

	s.ConfirmIdentity(0, "118")
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}

	entry := s.Images()[0]
	if entry.Status != annotation.ImageCompleted {
		t.Fatalf("expected completed after labeling the only box, got %q", entry.Status)
	}
	if len(entry.LabeledIDs) != 1 || entry.LabeledIDs[0] != "118" {
		t.Fatalf("unexpected labeled ids %v", entry.LabeledIDs)
	}
	if len(fs.saved) != 1 {
		t.Fatalf("expected one save, got %d", len(fs.saved))
	}
}

func TestSaveFailureLeavesEntryUntouched(t *testing.T) {
	fs := newFakeStore("aa.jpg")
	fs.saveErr = errors.New("disk full")
	s := newTestSession(fs)
	defer s.Close()

	s.NavigateTo(0)
	waitFor(t, "document", func() bool { return s.Document() != nil })
	s.ConfirmIdentity(0, "7")

	if err := s.Save(); err == nil {
		t.Fatal("expected save error")
	}
	if got := s.Images()[0].Status; got != annotation.ImageUntouched {
		t.Fatalf("optimistic update applied despite failure: %q", got)
	}
}

func TestSaveGuardsAgainstOverlap(t *testing.T) {
	s := newTestSession(newFakeStore("aa.jpg"))
	defer s.Close()

	if err := s.Save(); !errors.Is(err, ErrNothingToSave) {
		t.Fatalf("expected ErrNothingToSave, got %v", err)
	}

	s.NavigateTo(0)
	waitFor(t, "document", func() bool { return s.Document() != nil })

	// Simulate an outstanding save and check the guard.
	s.mu.Lock()
	s.saving = true
	s.mu.Unlock()
	if err := s.Save(); !errors.Is(err, ErrSaveInFlight) {
		t.Fatalf("expected ErrSaveInFlight, got %v", err)
	}
	s.mu.Lock()
	s.saving = false
	s.mu.Unlock()

	if err := s.Save(); err != nil {
		t.Fatal(err)
	}
}

func TestCycleSelectionUsesSpatialOrder(t *testing.T) {
	fs := newFakeStore("aa.jpg")
	fs.docs["aa.jpg"].Boxes = []annotation.Box{
		{YOLO: [4]float64{0.8, 0.5, 0.1, 0.1}},
		{YOLO: [4]float64{0.2, 0.5, 0.1, 0.1}},
		{YOLO: [4]float64{0.5, 0.5, 0.1, 0.1}},
	}
	s := newTestSession(fs)
	defer s.Close()

	s.NavigateTo(0)
	waitFor(t, "document", func() bool { return s.Document() != nil })

	got := s.CycleSelection(viewport.NoSelection, +1)
	if got != 1 {
		t.Fatalf("first tab selected %d, want 1", got)
	}
	got = s.CycleSelection(got, +1)
	if got != 2 {
		t.Fatalf("second tab selected %d, want 2", got)
	}
	if s.Selection().Selected != 2 {
		t.Fatalf("selection state not updated: %+v", s.Selection())
	}
}

func TestConfirmEmptyIdentityClearsBox(t *testing.T) {
	s := newTestSession(newFakeStore("aa.jpg"))
	defer s.Close()

	s.NavigateTo(0)
	waitFor(t, "document", func() bool { return s.Document() != nil })

	s.ConfirmIdentity(0, "55")
	if !s.Document().Boxes[0].Labeled() {
		t.Fatal("expected labeled box")
	}
	s.ConfirmIdentity(0, "  ")
	if s.Document().Boxes[0].Labeled() {
		t.Fatal("expected cleared box after empty confirm")
	}
}
