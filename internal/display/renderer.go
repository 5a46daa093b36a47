package display

import (
	"fmt"
	"image"
	"image/color"

	"github.com/sweeney/co2-sensor/internal/logic"
)

// Field identifies a value drawn at a fixed position.
type Field int

const (
	FieldCO2 Field = iota
	FieldHumidity
	FieldTemperature
	FieldNetwork
	numFields
)

// Slot is where and how large a text item is drawn.
type Slot struct {
	At   image.Point
	Size int
}

// Layout fixes the position of the header and every field.
type Layout struct {
	Bounds image.Rectangle
	Header Slot
	Fields [numFields]Slot
}

// DefaultLayout fits a 128x64 panel using the 7x13 base font.
func DefaultLayout() Layout {
	return Layout{
		Bounds: image.Rect(0, 0, 128, 64),
		Header: Slot{At: image.Pt(2, 0), Size: 1},
		Fields: [numFields]Slot{
			FieldCO2:         {At: image.Pt(2, 13), Size: 2},
			FieldHumidity:    {At: image.Pt(2, 38), Size: 1},
			FieldTemperature: {At: image.Pt(66, 38), Size: 1},
			FieldNetwork:     {At: image.Pt(2, 51), Size: 1},
		},
	}
}

// Frame is what is currently on screen. It is only used for diffing.
type Frame struct {
	Sample  logic.Reading
	Zone    Zone
	Network string
}

// Renderer draws frames onto a surface.
type Renderer struct {
	surface Surface
	layout  Layout
}

// NewRenderer returns a renderer drawing on s with layout l.
func NewRenderer(s Surface, l Layout) *Renderer {
	return &Renderer{surface: s, layout: l}
}

// Render draws sample in zone. When the zone differs from prev the whole
// screen is repainted; otherwise each changed field is erased by redrawing
// its old text in the background color and then drawn anew. The returned
// frame always describes what was requested, even when drawing failed.
func (r *Renderer) Render(sample logic.Reading, zone Zone, network string, prev Frame) (Frame, error) {
	next := Frame{Sample: sample, Zone: zone, Network: network}
	if zone != prev.Zone {
		return next, r.repaint(next)
	}
	return next, r.update(prev, next)
}

func (r *Renderer) repaint(f Frame) error {
	bg := f.Zone.Background()
	fg := Foreground(bg)

	if err := r.surface.FillRegion(r.layout.Bounds, bg); err != nil {
		return fmt.Errorf("fill background: %w", err)
	}
	h := r.layout.Header
	if err := r.surface.DrawText(h.At, f.Zone.Header(), fg, h.Size); err != nil {
		return fmt.Errorf("draw header: %w", err)
	}
	for _, field := range fieldsOf(f.Zone) {
		if err := r.draw(field, formatField(field, f), fg); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) update(prev, next Frame) error {
	bg := next.Zone.Background()
	fg := Foreground(bg)

	for _, field := range fieldsOf(next.Zone) {
		if !changed(field, prev, next) {
			continue
		}
		if err := r.draw(field, formatField(field, prev), bg); err != nil {
			return err
		}
		if err := r.draw(field, formatField(field, next), fg); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) draw(field Field, text string, c color.Color) error {
	if text == "" {
		return nil
	}
	s := r.layout.Fields[field]
	if err := r.surface.DrawText(s.At, text, c, s.Size); err != nil {
		return fmt.Errorf("draw field %d: %w", field, err)
	}
	return nil
}

// fieldsOf lists the fields shown in zone. Network identity is only shown
// on the connection screen.
func fieldsOf(z Zone) []Field {
	if z == ZoneConnecting {
		return []Field{FieldCO2, FieldHumidity, FieldTemperature, FieldNetwork}
	}
	return []Field{FieldCO2, FieldHumidity, FieldTemperature}
}

func changed(field Field, a, b Frame) bool {
	switch field {
	case FieldCO2:
		return a.Sample.CO2 != b.Sample.CO2
	case FieldHumidity:
		return a.Sample.Humidity != b.Sample.Humidity
	case FieldTemperature:
		return a.Sample.Temperature != b.Sample.Temperature
	case FieldNetwork:
		return a.Network != b.Network
	}
	return false
}

func formatField(field Field, f Frame) string {
	switch field {
	case FieldCO2:
		return fmt.Sprintf("%.0f ppm", f.Sample.CO2)
	case FieldHumidity:
		return fmt.Sprintf("%.1f %%", f.Sample.Humidity)
	case FieldTemperature:
		return fmt.Sprintf("%.1f C", f.Sample.Temperature)
	case FieldNetwork:
		return f.Network
	}
	return ""
}
