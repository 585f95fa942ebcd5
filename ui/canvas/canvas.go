package canvas

import (
	"image"
	"log/slog"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	xdraw "golang.org/x/image/draw"

	"cow-tagger/internal/app"
	"cow-tagger/internal/viewport"
	"cow-tagger/pkg/geometry"
)

// frameInterval approximates one display refresh for the held-key pan loop.
const frameInterval = 16 * time.Millisecond

// AnnotationCanvas is the interactive viewport: it renders the current
// image and its boxes through the session camera and owns the pointer and
// keyboard input loop.
type AnnotationCanvas struct {
	widget.BaseWidget

	session *app.Session
	logger  *slog.Logger
	raster  *fynecanvas.Raster

	// Pointer state
	dragging bool

	// Held-key set for the continuous pan loop. Guarded by keysMu since
	// the loop runs on its own ticker goroutine.
	keysMu   sync.Mutex
	keysHeld map[fyne.KeyName]bool

	editor *identityEditor

	stopPan chan struct{}
}

// New creates the annotation canvas bound to a session.
func New(session *app.Session, logger *slog.Logger) *AnnotationCanvas {
	ac := &AnnotationCanvas{
		session:  session,
		logger:   logger,
		keysHeld: make(map[fyne.KeyName]bool),
	}
	ac.raster = fynecanvas.NewRaster(ac.draw)
	ac.raster.ScaleMode = fynecanvas.ImageScalePixels
	ac.ExtendBaseWidget(ac)

	session.On(app.EventNavigated, func(interface{}) {
		ac.CloseEditor()
		ac.Refresh()
	})
	session.On(app.EventImageLoaded, func(interface{}) {
		ac.FitToView()
		ac.Refresh()
	})
	session.On(app.EventAnnotationsLoaded, func(interface{}) { ac.Refresh() })
	session.On(app.EventSelectionChanged, func(interface{}) { ac.Refresh() })
	session.On(app.EventBoxLabeled, func(interface{}) { ac.Refresh() })

	return ac
}

// Start launches the continuous pan loop. The loop keeps running even when
// no key is held so a newly pressed key takes effect within one frame.
func (ac *AnnotationCanvas) Start() {
	if ac.stopPan != nil {
		return
	}
	ac.stopPan = make(chan struct{})
	go ac.panLoop()
}

// Stop ends the continuous pan loop.
func (ac *AnnotationCanvas) Stop() {
	if ac.stopPan != nil {
		close(ac.stopPan)
		ac.stopPan = nil
	}
}

func (ac *AnnotationCanvas) panLoop() {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()
	stop := ac.stopPan
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ac.panTick()
		}
	}
}

// panTick applies one frame of held-key panning. Movement is applied only
// when non-zero so an idle loop never forces a redraw.
func (ac *AnnotationCanvas) panTick() {
	dx, dy := ac.heldPanDelta()
	if dx == 0 && dy == 0 {
		return
	}
	ac.session.Camera.Pan(dx, dy)
	ac.Refresh()
}

// heldPanDelta reads the held-key set. W/Up move content down, S/Down up,
// A/Left right, D/Right left: the viewport moves opposite the content
// shift, giving hold-to-scroll semantics. Arrow keys pan only with Control
// held; alone they are reserved for navigation and zoom.
func (ac *AnnotationCanvas) heldPanDelta() (dx, dy float64) {
	speed := ac.session.Config().PanSpeed

	ac.keysMu.Lock()
	defer ac.keysMu.Unlock()
	held := func(k fyne.KeyName) bool { return ac.keysHeld[k] }
	ctrl := held(desktop.KeyControlLeft) || held(desktop.KeyControlRight)

	if held(fyne.KeyW) || (ctrl && held(fyne.KeyUp)) {
		dy += speed
	}
	if held(fyne.KeyS) || (ctrl && held(fyne.KeyDown)) {
		dy -= speed
	}
	if held(fyne.KeyA) || (ctrl && held(fyne.KeyLeft)) {
		dx += speed
	}
	if held(fyne.KeyD) || (ctrl && held(fyne.KeyRight)) {
		dx -= speed
	}
	return dx, dy
}

// KeyDown handles a global key press. The main window routes key events
// here only while no text field has focus.
func (ac *AnnotationCanvas) KeyDown(name fyne.KeyName) {
	ac.keysMu.Lock()
	ac.keysHeld[name] = true
	ctrl := ac.keysHeld[desktop.KeyControlLeft] || ac.keysHeld[desktop.KeyControlRight]
	shift := ac.keysHeld[desktop.KeyShiftLeft] || ac.keysHeld[desktop.KeyShiftRight]
	ac.keysMu.Unlock()

	cfg := ac.session.Config()
	switch name {
	case fyne.KeyF:
		ac.FitToView()
		ac.Refresh()
	case fyne.KeyUp:
		if !ctrl {
			ac.session.Camera.ZoomBy(cfg.KeyZoomFactor)
			ac.Refresh()
		}
	case fyne.KeyDown:
		if !ctrl {
			ac.session.Camera.ZoomBy(1 / cfg.KeyZoomFactor)
			ac.Refresh()
		}
	case fyne.KeyLeft:
		if !ctrl {
			ac.session.Prev()
		}
	case fyne.KeyRight:
		if !ctrl {
			ac.session.Next()
		}
	case fyne.KeyTab:
		dir := +1
		if shift {
			dir = -1
		}
		ac.CycleSelection(dir)
	}
}

// KeyUp releases a key from the held set.
func (ac *AnnotationCanvas) KeyUp(name fyne.KeyName) {
	ac.keysMu.Lock()
	delete(ac.keysHeld, name)
	ac.keysMu.Unlock()
}

// TrackModifierDown records a modifier press while a text field has focus.
// Regular keys are dropped, but Shift must stay visible so Shift+Tab inside
// the identity editor cycles backwards.
func (ac *AnnotationCanvas) TrackModifierDown(name fyne.KeyName) {
	if !isModifier(name) {
		return
	}
	ac.keysMu.Lock()
	ac.keysHeld[name] = true
	ac.keysMu.Unlock()
}

func (ac *AnnotationCanvas) shiftHeld() bool {
	ac.keysMu.Lock()
	defer ac.keysMu.Unlock()
	return ac.keysHeld[desktop.KeyShiftLeft] || ac.keysHeld[desktop.KeyShiftRight]
}

// releaseMovementKeys drops held pan keys so the view does not keep
// drifting under the editor popup. Modifiers stay tracked.
func (ac *AnnotationCanvas) releaseMovementKeys() {
	ac.keysMu.Lock()
	for k := range ac.keysHeld {
		if !isModifier(k) {
			delete(ac.keysHeld, k)
		}
	}
	ac.keysMu.Unlock()
}

func isModifier(name fyne.KeyName) bool {
	switch name {
	case desktop.KeyShiftLeft, desktop.KeyShiftRight,
		desktop.KeyControlLeft, desktop.KeyControlRight:
		return true
	}
	return false
}

// FitToView resets the camera so the whole image fits with a margin.
func (ac *AnnotationCanvas) FitToView() {
	imgSize, ok := ac.imageSize()
	if !ok {
		return
	}
	size := ac.Size()
	ac.session.Camera.FitToView(imgSize,
		geometry.NewSize(float64(size.Width), float64(size.Height)),
		ac.session.Config().FitMargin)
}

// imageSize prefers the document's recorded dimensions so boxes can be
// placed before the bitmap arrives.
func (ac *AnnotationCanvas) imageSize() (geometry.Size, bool) {
	if doc := ac.session.Document(); doc != nil && doc.Width > 0 && doc.Height > 0 {
		return geometry.NewSize(float64(doc.Width), float64(doc.Height)), true
	}
	if bmp := ac.session.Bitmap(); bmp != nil {
		b := bmp.Bounds()
		return geometry.NewSize(float64(b.Dx()), float64(b.Dy())), true
	}
	return geometry.Size{}, false
}

// CycleSelection advances the spatial tab order and opens the identity
// editor at a synthetic anchor, as if the new box had been clicked.
func (ac *AnnotationCanvas) CycleSelection(dir int) {
	from := ac.session.Selection().Selected
	if ac.editor != nil {
		// Confirm-then-cycle: commit the open edit first and continue
		// from the index captured before the confirm cleared it.
		from = ac.confirmEditor()
	}
	next := ac.session.CycleSelection(from, dir)
	if next == viewport.NoSelection {
		return
	}
	ac.openEditor(next, ac.anchorForBox(next))
}

// anchorForBox computes the synthetic screen anchor for a box selected via
// keyboard: its center mapped through the camera.
func (ac *AnnotationCanvas) anchorForBox(i int) fyne.Position {
	doc := ac.session.Document()
	if doc == nil || i < 0 || i >= len(doc.Boxes) {
		return fyne.NewPos(0, 0)
	}
	center := doc.Boxes[i].PixelRect(float64(doc.Width), float64(doc.Height)).Center()
	p := ac.session.Camera.ToScreen(center)
	return fyne.NewPos(float32(p.X), float32(p.Y))
}

// Tapped selects the top-most box under the pointer, or clears the
// selection when the background is clicked.
func (ac *AnnotationCanvas) Tapped(ev *fyne.PointEvent) {
	doc := ac.session.Document()
	if doc == nil {
		return
	}

	p := ac.session.Camera.ToImage(geometry.NewPoint2D(float64(ev.Position.X), float64(ev.Position.Y)))
	idx := viewport.HitTest(doc.Boxes, float64(doc.Width), float64(doc.Height), p)
	if idx == viewport.NoSelection {
		ac.CloseEditor()
		ac.session.ClearSelection()
		return
	}

	ac.openEditor(idx, ev.Position)
}

// Dragged pans the camera. A drag that begins over a box is ignored so
// pressing on a box stays a selection gesture.
func (ac *AnnotationCanvas) Dragged(ev *fyne.DragEvent) {
	if !ac.dragging {
		if ac.session.Selection().Hovered != viewport.NoSelection {
			return
		}
		ac.dragging = true
	}
	ac.session.Camera.Pan(float64(ev.Dragged.DX), float64(ev.Dragged.DY))
	ac.Refresh()
}

// DragEnd ends a pan drag.
func (ac *AnnotationCanvas) DragEnd() {
	ac.dragging = false
}

// Scrolled zooms at the pointer. Zooming while typing an identity is
// disallowed, so any open editor is closed first.
func (ac *AnnotationCanvas) Scrolled(ev *fyne.ScrollEvent) {
	ac.CloseEditor()

	step := ac.session.Config().WheelZoomStep
	factor := 1 + step
	if ev.Scrolled.DY < 0 {
		factor = 1 - step
	}
	anchor := geometry.NewPoint2D(float64(ev.Position.X), float64(ev.Position.Y))
	ac.session.Camera.ZoomAt(factor, anchor)
	ac.Refresh()
}

// MouseIn implements desktop.Hoverable.
func (ac *AnnotationCanvas) MouseIn(ev *desktop.MouseEvent) {
	ac.MouseMoved(ev)
}

// MouseMoved recomputes the hovered box. A redraw happens only when the
// hovered index actually changes.
func (ac *AnnotationCanvas) MouseMoved(ev *desktop.MouseEvent) {
	if ac.dragging {
		return
	}
	doc := ac.session.Document()
	if doc == nil {
		return
	}

	p := ac.session.Camera.ToImage(geometry.NewPoint2D(float64(ev.Position.X), float64(ev.Position.Y)))
	idx := viewport.HitTest(doc.Boxes, float64(doc.Width), float64(doc.Height), p)
	if ac.session.Hover(idx) {
		ac.Refresh()
	}
}

// MouseOut clears the hover state.
func (ac *AnnotationCanvas) MouseOut() {
	if ac.session.Hover(viewport.NoSelection) {
		ac.Refresh()
	}
}

// Refresh redraws the raster.
func (ac *AnnotationCanvas) Refresh() {
	ac.raster.Refresh()
}

// draw renders the frame from session state: image layer, then boxes, then
// identity labels. Either layer may still be loading and is skipped.
func (ac *AnnotationCanvas) draw(w, h int) image.Image {
	output := image.NewRGBA(image.Rect(0, 0, w, h))
	fill(output, colorBackdrop)

	cam := ac.session.Camera

	if bmp := ac.session.Bitmap(); bmp != nil {
		b := bmp.Bounds()
		dst := image.Rect(
			int(cam.OffsetX), int(cam.OffsetY),
			int(cam.OffsetX+float64(b.Dx())*cam.Scale),
			int(cam.OffsetY+float64(b.Dy())*cam.Scale),
		)
		// Nearest-neighbor keeps pixels crisp when zoomed in; the
		// bilinear scaler looks better zoomed out.
		if cam.Scale >= 1 {
			xdraw.NearestNeighbor.Scale(output, dst, bmp, b, xdraw.Over, nil)
		} else {
			xdraw.ApproxBiLinear.Scale(output, dst, bmp, b, xdraw.Over, nil)
		}
	}

	doc := ac.session.Document()
	if doc == nil || doc.Width <= 0 || doc.Height <= 0 {
		return output
	}

	sel := ac.session.Selection()
	imgW, imgH := float64(doc.Width), float64(doc.Height)
	for i := range doc.Boxes {
		box := &doc.Boxes[i]
		r := cam.RectToScreen(box.PixelRect(imgW, imgH))

		col := colorUnlabeled
		if box.Labeled() {
			col = colorLabeled
		}
		thickness := 2
		switch i {
		case sel.Selected:
			col = colorSelected
			thickness = 3
		case sel.Hovered:
			col = colorHovered
		}
		drawRectOutline(output, r, col, thickness)

		if box.CowID != "" {
			center := r.Center()
			drawIdentityLabel(output, box.CowID, int(center.X), int(center.Y), col, cam.Scale)
		}
	}

	return output
}

// CreateRenderer implements fyne.Widget.
func (ac *AnnotationCanvas) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(ac.raster)
}
