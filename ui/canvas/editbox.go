package canvas

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// Editor popup placement, in screen pixels.
const (
	editorOffsetX = 20
	editorWidth   = 140
	editorHeight  = 40
)

// identityEditor is the floating text entry anchored next to the selected
// box. Confirming writes the identity through the session; dismissing in
// any other way leaves the box unchanged.
type identityEditor struct {
	canvas   *AnnotationCanvas
	popup    *widget.PopUp
	entry    *identityEntry
	boxIndex int
	done     bool
}

// openEditor shows the identity entry for the given box, offset from the
// anchor point and flipped back inside the viewport when it would overflow.
func (ac *AnnotationCanvas) openEditor(boxIndex int, anchor fyne.Position) {
	ac.CloseEditor()

	doc := ac.session.Document()
	if doc == nil || boxIndex < 0 || boxIndex >= len(doc.Boxes) {
		return
	}
	fc := fyne.CurrentApp().Driver().CanvasForObject(ac)
	if fc == nil {
		return
	}
	ac.releaseMovementKeys()
	// Closing a previous editor clears the selection, so establish the
	// new one here rather than relying on the caller's ordering.
	ac.session.Select(boxIndex)

	ed := &identityEditor{canvas: ac, boxIndex: boxIndex}
	ed.entry = newIdentityEntry(ed)
	ed.entry.SetText(doc.Boxes[boxIndex].CowID)

	content := container.NewGridWrap(fyne.NewSize(editorWidth, editorHeight), ed.entry)
	ed.popup = widget.NewPopUp(content, fc)
	ed.popup.ShowAtPosition(ac.editorPosition(anchor))
	fc.Focus(ed.entry)
	ac.editor = ed
}

// editorPosition offsets the popup to the right of the anchor, flipping
// left or above when the default placement would leave the canvas.
func (ac *AnnotationCanvas) editorPosition(anchor fyne.Position) fyne.Position {
	size := ac.Size()
	pos := fyne.NewPos(anchor.X+editorOffsetX, anchor.Y)
	if pos.X+editorWidth > size.Width {
		pos.X = anchor.X - editorOffsetX - editorWidth
	}
	if pos.Y+editorHeight > size.Height {
		pos.Y = anchor.Y - editorHeight
	}
	if pos.X < 0 {
		pos.X = 0
	}
	if pos.Y < 0 {
		pos.Y = 0
	}
	base := fyne.CurrentApp().Driver().AbsolutePositionForObject(ac)
	return fyne.NewPos(base.X+pos.X, base.Y+pos.Y)
}

// CloseEditor dismisses any open identity editor without applying the text.
func (ac *AnnotationCanvas) CloseEditor() {
	if ac.editor != nil {
		ac.editor.cancel()
	}
}

// confirmEditor commits the open edit and returns the index it was editing,
// so confirm-then-cycle can continue from the right box.
func (ac *AnnotationCanvas) confirmEditor() int {
	ed := ac.editor
	if ed == nil {
		return ac.session.Selection().Selected
	}
	idx := ed.boxIndex
	ed.confirm()
	return idx
}

func (ed *identityEditor) confirm() {
	if ed.done {
		return
	}
	ed.canvas.session.ConfirmIdentity(ed.boxIndex, ed.entry.Text)
	ed.close()
}

func (ed *identityEditor) cancel() {
	if ed.done {
		return
	}
	ed.close()
}

func (ed *identityEditor) close() {
	ed.done = true
	ed.popup.Hide()
	if ed.canvas.editor == ed {
		ed.canvas.editor = nil
	}
	ed.canvas.session.ClearSelection()
}

// identityEntry is a text entry that keeps Tab for selection cycling and
// maps Return/Escape to confirm/cancel.
type identityEntry struct {
	widget.Entry
	editor *identityEditor
}

func newIdentityEntry(ed *identityEditor) *identityEntry {
	e := &identityEntry{editor: ed}
	e.ExtendBaseWidget(e)
	return e
}

// AcceptsTab keeps Tab key events in TypedKey instead of the focus walk.
func (e *identityEntry) AcceptsTab() bool {
	return true
}

func (e *identityEntry) TypedKey(ev *fyne.KeyEvent) {
	switch ev.Name {
	case fyne.KeyTab:
		dir := +1
		if e.editor.canvas.shiftHeld() {
			dir = -1
		}
		e.editor.canvas.CycleSelection(dir)
	case fyne.KeyReturn, fyne.KeyEnter:
		e.editor.confirm()
	case fyne.KeyEscape:
		e.editor.cancel()
	default:
		e.Entry.TypedKey(ev)
	}
}

// FocusLost cancels the edit, so clicking elsewhere never half-applies an
// identity. The done guard stops re-entry when the popup is hidden by a
// confirm or cancel that already ran.
func (e *identityEntry) FocusLost() {
	e.Entry.FocusLost()
	if !e.editor.done {
		e.editor.cancel()
	}
}

var _ fyne.Focusable = (*identityEntry)(nil)
