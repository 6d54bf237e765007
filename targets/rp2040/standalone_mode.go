//go:build rp2040

package main

import (
	"gopiezo/core"
	"gopiezo/standalone"
	"gopiezo/standalone/gcode"
	"machine"
	"time"
)

// RunStandaloneMode takes line commands (M300 and friends) over USB
// instead of the host protocol. It never returns.
func RunStandaloneMode(cfg *standalone.MachineConfig) {
	m, err := gcode.NewMachine(cfg, core.MustTone(), core.SystemClock{})
	if err != nil {
		core.DebugPrintln("[STANDALONE] " + err.Error())
		blinkForever(100 * time.Millisecond)
	}

	if err := m.Start(); err != nil {
		m.Manager.SendResponse("Error: " + err.Error() + "\n")
	}

	for {
		if USBAvailable() > 0 {
			if b, err := USBRead(); err == nil {
				m.Manager.ProcessByte(b)
			}
		}

		UpdateSystemTime()
		core.ProcessTimers()
		m.Update()

		if output := m.Manager.GetOutput(); len(output) > 0 {
			USBWriteBytes(output)
		}

		time.Sleep(10 * time.Microsecond)
	}
}

// blinkForever flashes the LED to report a fatal configuration error
func blinkForever(period time.Duration) {
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for {
		led.High()
		time.Sleep(period)
		led.Low()
		time.Sleep(period)
	}
}
