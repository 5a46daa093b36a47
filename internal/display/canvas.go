package display

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/display"
)

// Canvas is a Surface backed by an in-memory frame buffer. Every operation
// pushes only the rectangle it touched to the device.
type Canvas struct {
	dev  display.Drawer
	buf  *image.RGBA
	face *basicfont.Face
}

// NewCanvas returns a canvas the size of dev.
func NewCanvas(dev display.Drawer) *Canvas {
	return &Canvas{
		dev:  dev,
		buf:  image.NewRGBA(dev.Bounds()),
		face: basicfont.Face7x13,
	}
}

// Image returns the frame buffer. It must not be modified.
func (c *Canvas) Image() image.Image {
	return c.buf
}

// FillRegion implements Surface.
func (c *Canvas) FillRegion(r image.Rectangle, col color.Color) error {
	r = r.Intersect(c.buf.Bounds())
	if r.Empty() {
		return nil
	}
	draw.Draw(c.buf, r, image.NewUniform(col), image.Point{}, draw.Src)
	return c.flush(r)
}

// DrawText implements Surface. The 7x13 base font is scaled by size with
// nearest-neighbour sampling so large digits stay crisp.
func (c *Canvas) DrawText(at image.Point, text string, col color.Color, size int) error {
	if text == "" {
		return nil
	}
	if size < 1 {
		size = 1
	}

	m := c.face.Metrics()
	w := font.MeasureString(c.face, text).Ceil()
	h := m.Height.Ceil()

	glyphs := image.NewAlpha(image.Rect(0, 0, w, h))
	d := font.Drawer{
		Dst:  glyphs,
		Src:  image.Opaque,
		Face: c.face,
		Dot:  fixed.P(0, m.Ascent.Ceil()),
	}
	d.DrawString(text)

	mask := glyphs
	if size > 1 {
		mask = image.NewAlpha(image.Rect(0, 0, w*size, h*size))
		draw.NearestNeighbor.Scale(mask, mask.Bounds(), glyphs, glyphs.Bounds(), draw.Src, nil)
	}

	dst := mask.Bounds().Add(at)
	draw.DrawMask(c.buf, dst, image.NewUniform(col), image.Point{}, mask, image.Point{}, draw.Over)

	r := dst.Intersect(c.buf.Bounds())
	if r.Empty() {
		return nil
	}
	return c.flush(r)
}

func (c *Canvas) flush(r image.Rectangle) error {
	if err := c.dev.Draw(r, c.buf, r.Min); err != nil {
		return fmt.Errorf("display %s: %w", c.dev, err)
	}
	return nil
}
