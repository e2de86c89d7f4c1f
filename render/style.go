package render

import (
	"image/color"
	"math"
)

// Style holds every visual choice of the choropleth.
type Style struct {
	// Size is the side of the square map area in pixels. The colour bar
	// is drawn to its right.
	Size int
	// Palette stops are spread evenly from the lowest to the highest median.
	Palette []color.RGBA
	// Alpha applies to region fills, label boxes and the colour bar.
	Alpha      float64
	Background color.Color
	EdgeColor  color.Color
	// EdgeWidth outlines every region; FillEdgeWidth outlines filled ones.
	EdgeWidth     float64
	FillEdgeWidth float64
	TextColor     color.Color
	// Padding around the region set, as a fraction of its extent.
	Padding float64
	// FontPath optionally points to a TrueType font; the built-in bitmap
	// face is used when empty.
	FontPath      string
	LabelFontSize float64
	TitleFontSize float64
}

// DefaultStyle reproduces the published Medellín maps.
func DefaultStyle(size int) Style {
	return Style{
		Size: size,
		Palette: []color.RGBA{
			{102, 99, 91, 255},   // gray dark
			{179, 179, 179, 255}, // gray light
			{0, 195, 255, 255},   // blue light
			{5, 71, 127, 255},    // blue dark dark
			{12, 58, 229, 255},   // blue dark
		},
		Alpha:         0.8,
		Background:    color.White,
		EdgeColor:     color.Black,
		EdgeWidth:     3 * float64(size) / 960,
		FillEdgeWidth: 1,
		TextColor:     color.Black,
		Padding:       0.05,
		LabelFontSize: 10 * float64(size) / 960 * 1.4,
		TitleFontSize: 18 * float64(size) / 960 * 1.4,
	}
}

// ColorAt maps t in [0,1] onto the palette by linear interpolation.
// Values outside the range are clamped.
func (s Style) ColorAt(t float64) color.RGBA {
	n := len(s.Palette)
	switch {
	case n == 0:
		return color.RGBA{A: 255}
	case n == 1 || math.IsNaN(t) || t <= 0:
		return s.Palette[0]
	case t >= 1:
		return s.Palette[n-1]
	}

	pos := t * float64(n-1)
	i := int(pos)
	f := pos - float64(i)
	a, b := s.Palette[i], s.Palette[i+1]
	lerp := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + f*(float64(y)-float64(x))))
	}
	return color.RGBA{lerp(a.R, b.R), lerp(a.G, b.G), lerp(a.B, b.B), 255}
}

// withAlpha returns c as non-premultiplied colour with the style's alpha.
func (s Style) withAlpha(c color.RGBA) color.NRGBA {
	return color.NRGBA{c.R, c.G, c.B, uint8(math.Round(s.Alpha * 255))}
}
