//go:build gui
// +build gui

package main

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// trackerTheme keeps the default look but uses a monospace body font so
// pattern columns line up.
type trackerTheme struct{}

func (t trackerTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	if variant == theme.VariantLight {
		switch name {
		case theme.ColorNameBackground:
			return color.NRGBA{250, 250, 250, 255}
		case theme.ColorNameForeground:
			return color.NRGBA{20, 20, 20, 255}
		case theme.ColorNamePrimary:
			return color.NRGBA{33, 150, 243, 255}
		}
	} else {
		switch name {
		case theme.ColorNameBackground:
			return color.NRGBA{24, 26, 30, 255}
		case theme.ColorNameForeground:
			return color.NRGBA{230, 230, 230, 255}
		case theme.ColorNamePrimary:
			return color.NRGBA{255, 170, 40, 255}
		case theme.ColorNameHover:
			return color.NRGBA{60, 60, 66, 255}
		}
	}
	return theme.DefaultTheme().Color(name, variant)
}

func (t trackerTheme) Font(style fyne.TextStyle) fyne.Resource {
	if style.Monospace {
		return theme.DefaultTheme().Font(fyne.TextStyle{Monospace: true})
	}
	return theme.DefaultTheme().Font(style)
}

func (t trackerTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t trackerTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNamePadding:
		return 4
	case theme.SizeNameScrollBar:
		return 12
	}
	return theme.DefaultTheme().Size(name)
}
