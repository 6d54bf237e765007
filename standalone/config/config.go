package config

import (
	"encoding/json"
	"errors"

	"gopiezo/standalone"
)

var ErrBadDriver = errors.New("unknown buzzer driver")

// LoadConfig parses a JSON configuration and fills in defaults
func LoadConfig(jsonData []byte) (*standalone.MachineConfig, error) {
	config := standalone.MachineConfig{BootSong: -1}
	if err := json.Unmarshal(jsonData, &config); err != nil {
		return nil, err
	}

	applyDefaults(&config)

	switch config.Buzzer.Driver {
	case "pwm", "pio", "gpio":
	default:
		return nil, ErrBadDriver
	}
	return &config, nil
}

// applyDefaults fills in missing values
func applyDefaults(config *standalone.MachineConfig) {
	if config.Mode == "" {
		config.Mode = "standalone"
	}
	if config.Buzzer.Driver == "" {
		config.Buzzer.Driver = "pwm"
	}
	if config.Buzzer.BPM <= 0 {
		config.Buzzer.BPM = 120
	}
}

// DefaultBuzzerConfig is a passive piezo on GPIO 15 driven by hardware PWM
func DefaultBuzzerConfig() *standalone.MachineConfig {
	return &standalone.MachineConfig{
		Mode: "standalone",
		Buzzer: standalone.BuzzerConfig{
			Pin:    15,
			Driver: "pwm",
			BPM:    120,
		},
		BootSong: 0,
	}
}
