package app

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// CowTaggerTheme skins the stock theme with the box labeling palette, so
// widget chrome matches the overlay colors on the canvas.
type CowTaggerTheme struct{}

var _ fyne.Theme = (*CowTaggerTheme)(nil)

func (t *CowTaggerTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary:
		return color.NRGBA{R: 0x4C, G: 0xAF, B: 0x50, A: 0xFF} // labeled-box green
	case theme.ColorNameSelection:
		return color.NRGBA{R: 0xFF, G: 0xB3, B: 0x00, A: 0x66} // selected-box amber
	case theme.ColorNameError:
		return color.NRGBA{R: 0xEF, G: 0x53, B: 0x50, A: 0xFF} // unlabeled-box red
	default:
		return theme.DefaultTheme().Color(name, variant)
	}
}

func (t *CowTaggerTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *CowTaggerTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *CowTaggerTheme) Size(name fyne.ThemeSizeName) float32 {
	return theme.DefaultTheme().Size(name)
}
