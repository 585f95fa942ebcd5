// Package app provides the editing session: application state, events, and
// the load/save orchestration around the dataset store.
package app

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"cow-tagger/internal/annotation"
	"cow-tagger/internal/config"
	"cow-tagger/internal/dataset"
	"cow-tagger/internal/viewport"
)

// EventType identifies different application events.
type EventType int

const (
	EventImageListLoaded EventType = iota
	EventNavigated
	EventImageLoaded
	EventAnnotationsLoaded
	EventSelectionChanged
	EventBoxLabeled
	EventSaveStarted
	EventSaveFinished
	EventImageStatusChanged
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// Save errors surfaced to the UI.
var (
	ErrSaveInFlight  = errors.New("save already in progress")
	ErrNothingToSave = errors.New("no annotation document loaded")
)

// Session owns the state of one editing session: the open split, the image
// list, the current document and bitmap, the camera, and the selection.
// All mutation happens on the UI thread; the mutex guards against the
// background fetch goroutines.
type Session struct {
	mu     sync.RWMutex
	logger *slog.Logger
	store  dataset.Store
	cfg    *config.Config

	// Camera is owned here so the input loop, renderer, and selection
	// controller all see one transform. Never persisted.
	Camera *viewport.Camera

	datasetName string
	split       dataset.Split
	images      []annotation.ImageListEntry
	index       int

	doc    *annotation.Document
	bitmap image.Image
	sel    viewport.Selection

	// loadGen is bumped under mu on every navigation; fetch results
	// re-check it under mu before installing, so a response from an
	// abandoned navigation can never overwrite a newer image.
	loadGen atomic.Uint64
	saving  bool

	ctx    context.Context
	cancel context.CancelFunc

	listeners map[EventType][]EventListener
}

// NewSession creates a session over the given store.
func NewSession(store dataset.Store, cfg *config.Config, logger *slog.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	cam := viewport.NewCamera()
	cam.MinZoom = cfg.MinZoom
	cam.MaxZoom = cfg.MaxZoom
	return &Session{
		logger:    logger,
		store:     store,
		cfg:       cfg,
		Camera:    cam,
		index:     -1,
		sel:       viewport.NewSelection(),
		ctx:       ctx,
		cancel:    cancel,
		listeners: make(map[EventType][]EventListener),
	}
}

// Close abandons any in-flight fetches.
func (s *Session) Close() {
	s.cancel()
}

// Config returns the viewport tuning.
func (s *Session) Config() *config.Config {
	return s.cfg
}

// On registers an event listener for the specified event type.
func (s *Session) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *Session) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// OpenSplit loads the image list for a dataset split. The fetched list is
// authoritative and replaces any locally recomputed entries.
func (s *Session) OpenSplit(datasetName string, split dataset.Split) error {
	entries, err := s.store.ListImages(datasetName, split)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.datasetName = datasetName
	s.split = split
	s.images = entries
	s.index = -1
	s.doc = nil
	s.bitmap = nil
	s.sel.Reset()
	s.mu.Unlock()

	s.logger.Info("split opened", "dataset", datasetName, "split", split, "images", len(entries))
	s.Emit(EventImageListLoaded, entries)
	return nil
}

// Images returns a snapshot of the gallery entries.
func (s *Session) Images() []annotation.ImageListEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]annotation.ImageListEntry, len(s.images))
	copy(out, s.images)
	return out
}

// Index returns the current image index, or -1.
func (s *Session) Index() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

// Dataset returns the open dataset name.
func (s *Session) Dataset() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.datasetName
}

// Split returns the open split.
func (s *Session) Split() dataset.Split {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.split
}

// Document returns the current annotation document, or nil while loading.
func (s *Session) Document() *annotation.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc
}

// Bitmap returns the current image, or nil while loading.
func (s *Session) Bitmap() image.Image {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bitmap
}

// Selection returns the current hovered/selected indices.
func (s *Session) Selection() viewport.Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sel
}

// NavigateTo opens the image at index i. The document and bitmap are
// fetched independently and may arrive in either order; each triggers its
// own event on arrival. Responses for an abandoned navigation are dropped.
func (s *Session) NavigateTo(i int) bool {
	s.mu.Lock()
	if i < 0 || i >= len(s.images) {
		s.mu.Unlock()
		return false
	}
	s.index = i
	filename := s.images[i].Filename
	datasetName, split := s.datasetName, s.split
	s.doc = nil
	s.bitmap = nil
	s.sel.Reset()
	// Bumped while still holding mu: a response applied concurrently
	// must see either the old state with the old token or the cleared
	// state with the new one, never a mix.
	gen := s.loadGen.Add(1)
	s.mu.Unlock()

	s.Emit(EventNavigated, filename)

	var g errgroup.Group
	g.Go(func() error {
		img, err := s.store.FetchImage(s.ctx, datasetName, split, filename)
		if err != nil {
			return err
		}
		s.applyBitmap(gen, img)
		return nil
	})
	g.Go(func() error {
		doc, err := s.store.FetchAnnotations(s.ctx, datasetName, split, filename)
		if err != nil {
			return err
		}
		s.applyDocument(gen, doc)
		return nil
	})
	go func() {
		if err := g.Wait(); err != nil {
			s.logger.Warn("image load incomplete", "image", filename, "error", err)
		}
	}()
	return true
}

// Next navigates to the following image in the list.
func (s *Session) Next() bool {
	return s.NavigateTo(s.Index() + 1)
}

// Prev navigates to the preceding image in the list.
func (s *Session) Prev() bool {
	return s.NavigateTo(s.Index() - 1)
}

func (s *Session) applyBitmap(gen uint64, img image.Image) {
	s.mu.Lock()
	if gen != s.loadGen.Load() {
		s.mu.Unlock()
		s.logger.Debug("discarding stale image response", "gen", gen)
		return
	}
	s.bitmap = img
	s.mu.Unlock()
	s.Emit(EventImageLoaded, img)
}

func (s *Session) applyDocument(gen uint64, doc *annotation.Document) {
	s.mu.Lock()
	if gen != s.loadGen.Load() {
		s.mu.Unlock()
		s.logger.Debug("discarding stale annotation response", "gen", gen)
		return
	}
	s.doc = doc
	s.mu.Unlock()
	s.Emit(EventAnnotationsLoaded, doc)
}

// Hover updates the hovered box index. Returns true when the index
// actually changed, so callers can skip redundant redraws.
func (s *Session) Hover(i int) bool {
	s.mu.Lock()
	changed := s.sel.Hovered != i
	s.sel.Hovered = i
	s.mu.Unlock()
	return changed
}

// Select marks the box at index i as selected.
func (s *Session) Select(i int) {
	s.mu.Lock()
	s.sel.Selected = i
	s.mu.Unlock()
	s.Emit(EventSelectionChanged, i)
}

// ClearSelection restores the no-selection state.
func (s *Session) ClearSelection() {
	s.Select(viewport.NoSelection)
}

// CycleSelection advances the selection through the spatial tab order.
// dir is +1 for Tab, -1 for Shift+Tab. from is the index to advance from,
// normally the current selection; the edit overlay passes its pre-edit
// index since confirming clears the selection. Returns the new index.
func (s *Session) CycleSelection(from, dir int) int {
	s.mu.RLock()
	doc := s.doc
	s.mu.RUnlock()
	if doc == nil {
		return viewport.NoSelection
	}

	next := viewport.Cycle(doc.Boxes, from, dir)
	s.Select(next)
	return next
}

// ConfirmIdentity applies a confirmed identity to the box at index i.
// An empty (or all-space) identity is an explicit clear.
func (s *Session) ConfirmIdentity(i int, identity string) {
	s.mu.Lock()
	if s.doc == nil || i < 0 || i >= len(s.doc.Boxes) {
		s.mu.Unlock()
		return
	}
	s.doc.Boxes[i].SetIdentity(identity)
	box := s.doc.Boxes[i]
	s.mu.Unlock()

	s.Emit(EventBoxLabeled, box)
}

// Saving reports whether a save is outstanding.
func (s *Session) Saving() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saving
}

// Save writes the current document through the store. Only one save may be
// in flight. On success the image's gallery entry is recomputed locally
// from the just-saved document; on failure local state is left untouched
// so the user can retry.
func (s *Session) Save() error {
	s.mu.Lock()
	if s.saving {
		s.mu.Unlock()
		return ErrSaveInFlight
	}
	if s.doc == nil {
		s.mu.Unlock()
		return ErrNothingToSave
	}
	s.saving = true
	doc := s.doc
	datasetName := s.datasetName
	s.mu.Unlock()

	s.Emit(EventSaveStarted, doc.Filename)
	err := s.store.SaveAnnotations(s.ctx, datasetName, doc)

	s.mu.Lock()
	s.saving = false
	updated := -1
	if err == nil {
		entry := annotation.EntryFor(doc)
		for idx := range s.images {
			if s.images[idx].Filename == doc.Filename {
				s.images[idx] = entry
				updated = idx
				break
			}
		}
	}
	s.mu.Unlock()

	s.Emit(EventSaveFinished, err)
	if err != nil {
		s.logger.Error("save failed", "image", doc.Filename, "error", err)
		return err
	}
	if updated >= 0 {
		s.Emit(EventImageStatusChanged, updated)
	}
	return nil
}
