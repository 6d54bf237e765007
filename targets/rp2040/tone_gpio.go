//go:build rp2040

package main

import (
	"errors"
	"machine"

	"gopiezo/core"

	"tinygo.org/x/drivers/buzzer"
)

const numGPIO = 30

var errBadPin = errors.New("no such GPIO")

// newGPIOToneDriver bit-bangs tones on any GPIO: each pin becomes a
// drivers buzzer.Device toggled from core scheduler timers
func newGPIOToneDriver() *core.SoftToneDriver {
	return core.NewSoftToneDriver(func(pin core.TonePin) (core.ToneOutput, error) {
		if pin >= numGPIO {
			return nil, errBadPin
		}
		p := machine.Pin(pin)
		p.Configure(machine.PinConfig{Mode: machine.PinOutput})
		dev := buzzer.New(p)
		return &dev, nil
	})
}
