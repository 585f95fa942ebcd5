package app

import (
	"image/color"
	"testing"

	"fyne.io/fyne/v2/test"
	"fyne.io/fyne/v2/theme"
)

func TestThemeUsesLabelingPalette(t *testing.T) {
	th := &CowTaggerTheme{}
	v := theme.VariantDark

	if got := th.Color(theme.ColorNamePrimary, v); got != (color.NRGBA{R: 0x4C, G: 0xAF, B: 0x50, A: 0xFF}) {
		t.Errorf("primary: got %v", got)
	}
	if got := th.Color(theme.ColorNameSelection, v); got != (color.NRGBA{R: 0xFF, G: 0xB3, B: 0x00, A: 0x66}) {
		t.Errorf("selection: got %v", got)
	}
	if got := th.Color(theme.ColorNameError, v); got != (color.NRGBA{R: 0xEF, G: 0x53, B: 0x50, A: 0xFF}) {
		t.Errorf("error: got %v", got)
	}
}

func TestThemeFallsThroughToDefault(t *testing.T) {
	test.NewApp()
	th := &CowTaggerTheme{}
	def := theme.DefaultTheme()
	v := theme.VariantDark

	if got := th.Color(theme.ColorNameBackground, v); got != def.Color(theme.ColorNameBackground, v) {
		t.Errorf("background not defaulted: got %v", got)
	}
	if got := th.Size(theme.SizeNameText); got != def.Size(theme.SizeNameText) {
		t.Errorf("text size not defaulted: got %v", got)
	}
}
