//go:build rp2040

package main

import (
	_ "embed"

	"gopiezo/core"
	"gopiezo/standalone"
	"gopiezo/standalone/config"
	"gopiezo/targets/pio"
)

// Edit config.json and reflash to change mode, pin or driver
//
//go:embed config.json
var configJSON []byte

// loadConfig parses the embedded configuration, falling back to the
// defaults if it is broken
func loadConfig() *standalone.MachineConfig {
	cfg, err := config.LoadConfig(configJSON)
	if err != nil {
		core.DebugPrintln("[CFG] " + err.Error() + ", using defaults")
		return config.DefaultBuzzerConfig()
	}
	return cfg
}

// newToneDriver builds the tone driver named in the configuration
func newToneDriver(name string) core.ToneDriver {
	switch name {
	case "pio":
		return core.NewPWMToneDriver(pio.NewPIOPWM())
	case "gpio":
		return newGPIOToneDriver()
	default:
		core.SetPWMDriver(NewRP2040PWMDriver())
		return core.NewPWMToneDriver(core.MustPWM())
	}
}
