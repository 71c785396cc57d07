package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"

	"github.com/rescale/rescale-space/internal/models"
)

// Tile colours
var (
	colorDirTile  = color.NRGBA{R: 0x00, G: 0x7A, B: 0xCC, A: 0x40}
	colorFileTile = color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0x30}
	colorSelected = color.NRGBA{R: 0xFF, G: 0x98, B: 0x00, A: 0xFF}
	colorOutline  = color.NRGBA{R: 0x00, G: 0x7A, B: 0xCC, A: 0xFF}
)

// spaceTheme keeps the default look with the Rescale accent colours.
type spaceTheme struct{}

func (t *spaceTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary, theme.ColorNameFocus:
		return colorOutline
	case theme.ColorNameSelection:
		return color.NRGBA{R: 0xFF, G: 0x98, B: 0x00, A: 0x40}
	case theme.ColorNameError:
		return color.NRGBA{R: 0xF4, G: 0x43, B: 0x36, A: 0xFF}
	default:
		return theme.DefaultTheme().Color(name, variant)
	}
}

func (t *spaceTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *spaceTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *spaceTheme) Size(name fyne.ThemeSizeName) float32 {
	if name == theme.SizeNameText {
		return 12
	}
	return theme.DefaultTheme().Size(name)
}

func tileFill(item models.Item) color.Color {
	if item.IsDir() {
		return colorDirTile
	}
	return colorFileTile
}
