//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealPins drives actual hardware using Linux GPIO character device.
type RealPins struct {
	chip    *gpiocdev.Chip
	outputs map[int]*gpiocdev.Line
	inputs  map[int]*gpiocdev.Line
}

// NewRealPins requests the output lines (driven low) and the button line
// (input with pull-up) of the layout on the given chip.
func NewRealPins(chipName string, layout Layout) (*RealPins, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	p := &RealPins{
		chip:    chip,
		outputs: make(map[int]*gpiocdev.Line),
		inputs:  make(map[int]*gpiocdev.Line),
	}

	for _, pin := range layout.Outputs() {
		line, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("request output pin %d: %w", pin, err)
		}
		p.outputs[pin] = line
	}

	// The button pulls the line to ground when pressed.
	btn, err := chip.RequestLine(layout.Button, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("request button pin %d: %w", layout.Button, err)
	}
	p.inputs[layout.Button] = btn

	return p, nil
}

// Write sets an output line.
func (p *RealPins) Write(pin int, level bool) error {
	line, ok := p.outputs[pin]
	if !ok {
		return fmt.Errorf("pin %d is not an output", pin)
	}
	v := 0
	if level {
		v = 1
	}
	if err := line.SetValue(v); err != nil {
		return fmt.Errorf("set pin %d: %w", pin, err)
	}
	return nil
}

// Read returns the level of an input or output line.
func (p *RealPins) Read(pin int) (bool, error) {
	line, ok := p.inputs[pin]
	if !ok {
		line, ok = p.outputs[pin]
	}
	if !ok {
		return false, fmt.Errorf("pin %d not requested", pin)
	}
	v, err := line.Value()
	if err != nil {
		return false, fmt.Errorf("read pin %d: %w", pin, err)
	}
	return v != 0, nil
}

// Close drives all outputs low and releases GPIO resources.
// Lines are reconfigured to input with pull-down (matching Pi boot defaults)
// before closing so nothing stays lit after shutdown.
func (p *RealPins) Close() error {
	var errs []error

	for pin, line := range p.outputs {
		if err := line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear pin %d: %w", pin, err))
		}
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", pin, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", pin, err))
		}
	}
	for pin, line := range p.inputs {
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", pin, err))
		}
	}
	p.outputs = nil
	p.inputs = nil

	if p.chip != nil {
		if err := p.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		p.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
