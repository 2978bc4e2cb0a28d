//go:build !linux

package hal

import "errors"

// GPIOOutputs is not available on non-Linux platforms.
type GPIOOutputs struct{}

// OpenGPIO returns an error on non-Linux platforms.
func OpenGPIO(chipName string, pins []int, activeLow bool) (*GPIOOutputs, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

func (g *GPIOOutputs) Write(pin int, on bool) error {
	return errors.New("gpio: not supported")
}

func (g *GPIOOutputs) Close() error {
	return nil
}
