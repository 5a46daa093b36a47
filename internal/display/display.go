// Package display renders readings on a small screen, repainting only what
// changed unless the alert color zone changes.
package display

import (
	"image"
	"image/color"

	"github.com/sweeney/co2-sensor/internal/logic"
)

// Surface is the minimal pixel interface the renderer draws with.
type Surface interface {
	// FillRegion paints r with c.
	FillRegion(r image.Rectangle, c color.Color) error

	// DrawText draws text with its top-left corner at at. size is an
	// integer scale factor of the base font.
	DrawText(at image.Point, text string, c color.Color, size int) error
}

// Zone is the background color zone of the screen. A zone change forces a
// full repaint.
type Zone int

const (
	ZoneNone Zone = iota
	ZoneGreen
	ZoneYellow
	ZoneRed
	ZoneConnecting
	ZoneCalibrating
)

var (
	colorGreen  = color.RGBA{R: 0x00, G: 0xc0, B: 0x00, A: 0xff}
	colorYellow = color.RGBA{R: 0xff, G: 0xe0, B: 0x00, A: 0xff}
	colorRed    = color.RGBA{R: 0xe0, G: 0x00, B: 0x00, A: 0xff}
	colorBlue   = color.RGBA{R: 0x00, G: 0x30, B: 0xe0, A: 0xff}
	colorCyan   = color.RGBA{R: 0x00, G: 0xc0, B: 0xd0, A: 0xff}
)

// ZoneFor maps an alert level to its zone. RED and RED_ALARM share a zone.
func ZoneFor(level logic.AlertLevel) Zone {
	switch level {
	case logic.LevelGreen:
		return ZoneGreen
	case logic.LevelYellow:
		return ZoneYellow
	case logic.LevelRed, logic.LevelRedAlarm:
		return ZoneRed
	}
	return ZoneNone
}

// Background returns the fill color of the zone.
func (z Zone) Background() color.Color {
	switch z {
	case ZoneGreen:
		return colorGreen
	case ZoneYellow:
		return colorYellow
	case ZoneRed:
		return colorRed
	case ZoneConnecting:
		return colorBlue
	case ZoneCalibrating:
		return colorCyan
	}
	return color.White
}

// Header returns the static title drawn on a full repaint.
func (z Zone) Header() string {
	switch z {
	case ZoneConnecting:
		return "Connecting"
	case ZoneCalibrating:
		return "Calibrating"
	}
	return "Air quality"
}

func (z Zone) String() string {
	switch z {
	case ZoneGreen:
		return "GREEN"
	case ZoneYellow:
		return "YELLOW"
	case ZoneRed:
		return "RED"
	case ZoneConnecting:
		return "CONNECTING"
	case ZoneCalibrating:
		return "CALIBRATING"
	}
	return "NONE"
}

// Foreground picks black or white, whichever contrasts with bg.
func Foreground(bg color.Color) color.Color {
	r, g, b, _ := bg.RGBA()
	// ITU-R BT.601 luma on 16-bit channels.
	luma := (299*r + 587*g + 114*b) / 1000
	if luma > 0x8000 {
		return color.Black
	}
	return color.White
}
