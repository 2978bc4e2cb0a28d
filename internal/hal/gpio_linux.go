//go:build linux

package hal

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// GPIOOutputs drives relay lines through the Linux GPIO character device.
type GPIOOutputs struct {
	chip  *gpiocdev.Chip
	lines map[int]*gpiocdev.Line
}

// OpenGPIO requests every pin as an output, initially inactive. With
// activeLow the kernel inverts the lines, so logical on drives the pin low as
// the relay boards expect.
func OpenGPIO(chipName string, pins []int, activeLow bool) (*GPIOOutputs, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}
	g := &GPIOOutputs{chip: chip, lines: make(map[int]*gpiocdev.Line, len(pins))}

	for _, pin := range pins {
		opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0)}
		if activeLow {
			opts = append(opts, gpiocdev.AsActiveLow)
		}
		line, err := chip.RequestLine(pin, opts...)
		if err != nil {
			g.Close()
			return nil, fmt.Errorf("request pin %d: %w", pin, err)
		}
		g.lines[pin] = line
	}
	return g, nil
}

func (g *GPIOOutputs) Write(pin int, on bool) error {
	line, ok := g.lines[pin]
	if !ok {
		return fmt.Errorf("pin %d not requested", pin)
	}
	v := 0
	if on {
		v = 1
	}
	return line.SetValue(v)
}

// Close sets every line inactive and releases it.
func (g *GPIOOutputs) Close() error {
	var errs []error
	for pin, line := range g.lines {
		if err := line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("reset pin %d: %w", pin, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", pin, err))
		}
	}
	g.lines = nil
	if g.chip != nil {
		if err := g.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		g.chip = nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %w", errors.Join(errs...))
	}
	return nil
}
