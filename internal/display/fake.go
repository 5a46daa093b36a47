package display

import (
	"image"
	"image/color"
)

// Op is a single recorded surface operation.
type Op struct {
	// Fill is true for FillRegion, false for DrawText.
	Fill  bool
	Rect  image.Rectangle
	At    image.Point
	Text  string
	Color color.Color
	Size  int
}

// FakeSurface is a test double that records every operation.
type FakeSurface struct {
	Ops []Op

	// Err, if set, is returned by every operation.
	Err error
}

// NewFakeSurface creates an empty FakeSurface.
func NewFakeSurface() *FakeSurface {
	return &FakeSurface{}
}

// FillRegion records a fill.
func (f *FakeSurface) FillRegion(r image.Rectangle, c color.Color) error {
	f.Ops = append(f.Ops, Op{Fill: true, Rect: r, Color: c})
	return f.Err
}

// DrawText records a text draw.
func (f *FakeSurface) DrawText(at image.Point, text string, c color.Color, size int) error {
	f.Ops = append(f.Ops, Op{At: at, Text: text, Color: c, Size: size})
	return f.Err
}

// Reset clears recorded operations.
func (f *FakeSurface) Reset() {
	f.Ops = nil
}
