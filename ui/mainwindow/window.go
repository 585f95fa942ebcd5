// Package mainwindow provides the main application window.
package mainwindow

import (
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"strings"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"cow-tagger/internal/annotation"
	"cow-tagger/internal/app"
	"cow-tagger/internal/dataset"
	"cow-tagger/internal/version"
	"cow-tagger/ui/canvas"
	"cow-tagger/ui/prefs"
)

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app     fyne.App
	session *app.Session
	store   dataset.Store
	prefs   *prefs.Prefs
	logger  *slog.Logger

	canvas    *canvas.AnnotationCanvas
	gallery   *widget.List
	statusBar *widget.Label
	saveBtn   *widget.Button

	datasetSelect *widget.Select
	splitSelect   *widget.Select

	// Gallery snapshot backing the list widget.
	entries []annotation.ImageListEntry

	// Set while the gallery selection is being synced from a navigation,
	// so OnSelected does not navigate again.
	syncingGallery bool
}

// New creates the main window over an open session.
func New(fyneApp fyne.App, session *app.Session, store dataset.Store, pf *prefs.Prefs, logger *slog.Logger) *MainWindow {
	win := fyneApp.NewWindow("Cow Tagger")

	mw := &MainWindow{
		Window:  win,
		app:     fyneApp,
		session: session,
		store:   store,
		prefs:   pf,
		logger:  logger,
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()
	mw.setupKeyboard()

	win.Resize(fyne.NewSize(1280, 800))
	win.SetOnClosed(func() {
		mw.canvas.Stop()
		if err := mw.prefs.Save(); err != nil {
			mw.logger.Warn("preferences not saved", "error", err)
		}
	})

	mw.restoreLastSession()
	mw.canvas.Start()
	return mw
}

// setupUI creates the main layout: gallery | toolbar-over-canvas, with a
// status bar at the bottom.
func (mw *MainWindow) setupUI() {
	mw.canvas = canvas.New(mw.session, mw.logger)
	mw.statusBar = widget.NewLabel("Ready")
	mw.gallery = mw.createGallery()

	canvasArea := container.NewBorder(
		mw.createToolbar(), // top
		nil, nil, nil,
		mw.canvas,
	)

	split := container.NewHSplit(
		container.NewBorder(mw.createPickers(), nil, nil, nil, mw.gallery),
		canvasArea,
	)
	split.SetOffset(0.25)

	content := container.NewBorder(
		nil,
		container.NewPadded(mw.statusBar),
		nil, nil,
		split,
	)
	mw.SetContent(content)
}

// createPickers builds the dataset and split selectors above the gallery.
func (mw *MainWindow) createPickers() fyne.CanvasObject {
	mw.datasetSelect = widget.NewSelect(nil, func(name string) {
		mw.openSplit(name, mw.currentSplit())
	})
	mw.datasetSelect.PlaceHolder = "Dataset"

	splitNames := make([]string, 0, len(dataset.Splits()))
	for _, s := range dataset.Splits() {
		splitNames = append(splitNames, string(s))
	}
	mw.splitSelect = widget.NewSelect(splitNames, func(name string) {
		if ds := mw.datasetSelect.Selected; ds != "" {
			mw.openSplit(ds, dataset.Split(name))
		}
	})
	mw.splitSelect.PlaceHolder = "Split"

	return container.NewVBox(mw.datasetSelect, mw.splitSelect)
}

// createGallery builds the image list: a status swatch plus filename and
// the identities labeled so far.
func (mw *MainWindow) createGallery() *widget.List {
	list := widget.NewList(
		func() int { return len(mw.entries) },
		func() fyne.CanvasObject {
			swatch := fynecanvas.NewRectangle(color.Transparent)
			swatch.SetMinSize(fyne.NewSize(12, 12))
			return container.NewHBox(swatch, widget.NewLabel(""))
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			if id < 0 || id >= len(mw.entries) {
				return
			}
			e := mw.entries[id]
			row := obj.(*fyne.Container)
			swatch := row.Objects[0].(*fynecanvas.Rectangle)
			label := row.Objects[1].(*widget.Label)
			swatch.FillColor = statusColor(e.Status)
			swatch.Refresh()
			label.SetText(galleryText(e))
		},
	)
	list.OnSelected = func(id widget.ListItemID) {
		if mw.syncingGallery {
			return
		}
		mw.session.NavigateTo(id)
	}
	return list
}

// createToolbar creates the navigation, save, and zoom controls.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	prevBtn := widget.NewButton("<", func() { mw.session.Prev() })
	nextBtn := widget.NewButton(">", func() { mw.session.Next() })
	mw.saveBtn = widget.NewButton("Save", mw.onSave)

	zoomOutBtn := widget.NewButton("-", func() {
		mw.session.Camera.ZoomBy(1 / mw.session.Config().KeyZoomFactor)
		mw.canvas.Refresh()
	})
	zoomInBtn := widget.NewButton("+", func() {
		mw.session.Camera.ZoomBy(mw.session.Config().KeyZoomFactor)
		mw.canvas.Refresh()
	})
	fitBtn := widget.NewButton("Fit", func() {
		mw.canvas.FitToView()
		mw.canvas.Refresh()
	})

	return container.NewHBox(
		prevBtn,
		nextBtn,
		mw.saveBtn,
		widget.NewSeparator(),
		widget.NewLabel("Zoom:"),
		zoomOutBtn,
		zoomInBtn,
		fitBtn,
	)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Save Annotations", mw.onSave),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", func() { mw.app.Quit() }),
	)

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Zoom In", func() {
			mw.session.Camera.ZoomBy(mw.session.Config().KeyZoomFactor)
			mw.canvas.Refresh()
		}),
		fyne.NewMenuItem("Zoom Out", func() {
			mw.session.Camera.ZoomBy(1 / mw.session.Config().KeyZoomFactor)
			mw.canvas.Refresh()
		}),
		fyne.NewMenuItem("Fit to Window", func() {
			mw.canvas.FitToView()
			mw.canvas.Refresh()
		}),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Previous Image", func() { mw.session.Prev() }),
		fyne.NewMenuItem("Next Image", func() { mw.session.Next() }),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, viewMenu, helpMenu))
}

// setupKeyboard routes raw key events to the canvas input loop. While a
// text field has focus only modifiers are tracked, so typing an identity
// never pans or navigates. Key releases are always routed so no key is
// left stuck in the held set.
func (mw *MainWindow) setupKeyboard() {
	if dc, ok := mw.Canvas().(desktop.Canvas); ok {
		dc.SetOnKeyDown(func(ev *fyne.KeyEvent) {
			if mw.Canvas().Focused() != nil {
				mw.canvas.TrackModifierDown(ev.Name)
				return
			}
			mw.canvas.KeyDown(ev.Name)
		})
		dc.SetOnKeyUp(func(ev *fyne.KeyEvent) {
			mw.canvas.KeyUp(ev.Name)
		})
	}

	mw.Canvas().AddShortcut(&desktop.CustomShortcut{
		KeyName:  fyne.KeyS,
		Modifier: fyne.KeyModifierControl,
	}, func(fyne.Shortcut) { mw.onSave() })
}

// setupEventHandlers registers for session events.
func (mw *MainWindow) setupEventHandlers() {
	mw.session.On(app.EventImageListLoaded, func(interface{}) {
		mw.refreshGallery()
		mw.gallery.UnselectAll()
		mw.updateProgress()
	})

	mw.session.On(app.EventImageStatusChanged, func(interface{}) {
		mw.refreshGallery()
		mw.updateProgress()
	})

	mw.session.On(app.EventNavigated, func(data interface{}) {
		filename, _ := data.(string)
		mw.SetTitle(fmt.Sprintf("Cow Tagger - %s/%s/%s",
			mw.session.Dataset(), mw.session.Split(), filename))
		mw.updateStatus("Loading " + filename)

		mw.syncingGallery = true
		mw.gallery.Select(mw.session.Index())
		mw.syncingGallery = false

		mw.prefs.SetString(prefs.KeyLastImage, filename)
	})

	mw.session.On(app.EventAnnotationsLoaded, func(interface{}) {
		mw.updateLabelProgress()
	})
	mw.session.On(app.EventBoxLabeled, func(interface{}) {
		mw.updateLabelProgress()
	})

	mw.session.On(app.EventSaveStarted, func(interface{}) {
		mw.saveBtn.SetText("Saving...")
		mw.saveBtn.Disable()
	})
	mw.session.On(app.EventSaveFinished, func(data interface{}) {
		mw.saveBtn.SetText("Save")
		mw.saveBtn.Enable()
		if err, ok := data.(error); ok && err != nil {
			return
		}
		if doc := mw.session.Document(); doc != nil {
			mw.updateStatus("Saved " + doc.Filename)
		}
	})
}

// onSave persists the current document. The guard errors are shown in the
// status bar; real write failures get a dialog.
func (mw *MainWindow) onSave() {
	err := mw.session.Save()
	switch {
	case err == nil:
	case errors.Is(err, app.ErrSaveInFlight):
		mw.updateStatus("Save already in progress")
	case errors.Is(err, app.ErrNothingToSave):
		mw.updateStatus("Nothing to save")
	default:
		dialog.ShowError(err, mw.Window)
	}
}

// openSplit loads a dataset split and navigates to its first image, or to
// the remembered one when restoring a session.
func (mw *MainWindow) openSplit(name string, split dataset.Split) {
	if name == "" {
		return
	}
	if err := mw.session.OpenSplit(name, split); err != nil {
		dialog.ShowError(err, mw.Window)
		return
	}
	mw.prefs.SetString(prefs.KeyLastDataset, name)
	mw.prefs.SetString(prefs.KeyLastSplit, string(split))

	target := 0
	if last := mw.prefs.String(prefs.KeyLastImage); last != "" {
		for i, e := range mw.session.Images() {
			if e.Filename == last {
				target = i
				break
			}
		}
	}
	mw.session.NavigateTo(target)
}

// restoreLastSession populates the dataset picker and reopens the last
// dataset, split, and image from the preferences file.
func (mw *MainWindow) restoreLastSession() {
	infos, err := mw.store.ListDatasets()
	if err != nil {
		mw.logger.Error("dataset scan failed", "error", err)
		dialog.ShowError(err, mw.Window)
		return
	}
	if len(infos) == 0 {
		mw.updateStatus("No datasets found")
		return
	}

	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}
	mw.datasetSelect.Options = names

	split := dataset.SplitTrain
	if s := mw.prefs.String(prefs.KeyLastSplit); s == string(dataset.SplitVal) {
		split = dataset.SplitVal
	}
	// SetSelected fires the pickers' handlers; set the split first so the
	// dataset handler opens the right one.
	mw.splitSelect.Selected = string(split)
	mw.splitSelect.Refresh()

	name := names[0]
	if last := mw.prefs.String(prefs.KeyLastDataset); last != "" {
		for _, n := range names {
			if n == last {
				name = last
				break
			}
		}
	}
	mw.datasetSelect.SetSelected(name)
}

func (mw *MainWindow) currentSplit() dataset.Split {
	if mw.splitSelect != nil && mw.splitSelect.Selected == string(dataset.SplitVal) {
		return dataset.SplitVal
	}
	return dataset.SplitTrain
}

func (mw *MainWindow) refreshGallery() {
	mw.entries = mw.session.Images()
	mw.gallery.Refresh()
}

// updateProgress summarizes the split in the status bar.
func (mw *MainWindow) updateProgress() {
	p := dataset.Summarize(mw.entries)
	mw.updateStatus(fmt.Sprintf("%d images: %d completed, %d in progress (%.0f%% done, %.1f boxes/image)",
		p.Images, p.Completed, p.InProgress, p.CompletedFrac*100, p.MeanBoxes))
}

// updateLabelProgress shows the labeled count for the open image.
func (mw *MainWindow) updateLabelProgress() {
	doc := mw.session.Document()
	if doc == nil {
		return
	}
	mw.updateStatus(fmt.Sprintf("%s: %d/%d boxes labeled",
		doc.Filename, doc.LabeledCount(), len(doc.Boxes)))
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About Cow Tagger",
		fmt.Sprintf("Cow Tagger v%s\n\n"+
			"Bounding-box review and identity labeling for livestock datasets.\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			version.Version, version.BuildTime, version.GitCommit),
		mw.Window)
}

// statusColor maps an image status to its gallery swatch color.
func statusColor(s annotation.ImageStatus) color.Color {
	switch s {
	case annotation.ImageCompleted:
		return color.NRGBA{R: 0x4C, G: 0xAF, B: 0x50, A: 0xFF}
	case annotation.ImageInProgress:
		return color.NRGBA{R: 0xFF, G: 0xB3, B: 0x00, A: 0xFF}
	case annotation.ImageTouched:
		return color.NRGBA{R: 0x42, G: 0xA5, B: 0xF5, A: 0xFF}
	default:
		return color.NRGBA{R: 0x9E, G: 0x9E, B: 0x9E, A: 0xFF}
	}
}

// galleryText renders one gallery row: filename plus labeled identities.
func galleryText(e annotation.ImageListEntry) string {
	if len(e.LabeledIDs) == 0 {
		return e.Filename
	}
	return e.Filename + "  [" + strings.Join(e.LabeledIDs, ", ") + "]"
}
