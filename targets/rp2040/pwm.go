//go:build rp2040

package main

import (
	"gopiezo/core"
	"machine"
)

// PWM_MAX is the duty value for fully on
const PWM_MAX = 255

// pwmPeripheral abstracts over TinyGo's unexported *pwmGroup type
type pwmPeripheral interface {
	Configure(config machine.PWMConfig) error
	SetPeriod(period uint64) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
}

// RP2040PWMDriver implements core.PWMDriver on the 8 PWM slices.
// Both pins of a slice share its period, so two buzzers on one slice
// play the same pitch.
type RP2040PWMDriver struct {
	// Key: pin number, Value: PWM channel
	channels map[uint32]uint8

	// Key: slice number (0-7)
	peripherals map[uint8]pwmPeripheral
}

func NewRP2040PWMDriver() *RP2040PWMDriver {
	return &RP2040PWMDriver{
		channels:    make(map[uint32]uint8),
		peripherals: make(map[uint8]pwmPeripheral),
	}
}

// GetMaxValue returns the maximum PWM value (255)
func (d *RP2040PWMDriver) GetMaxValue() uint32 {
	return PWM_MAX
}

// ConfigureHardwarePWM sets the slice period for pin. The first call for
// a slice configures it; later calls only change the period.
func (d *RP2040PWMDriver) ConfigureHardwarePWM(pin core.PWMPin, periodNS uint64) error {
	pinNum := uint32(pin)

	// GPIO N is on slice (N >> 1) & 7, channel A for even N and B for odd
	sliceNum := uint8((pinNum >> 1) & 0x7)

	pwm, exists := d.peripherals[sliceNum]
	if !exists {
		pwm = d.getPWMPeripheral(sliceNum)
		if err := pwm.Configure(machine.PWMConfig{Period: periodNS}); err != nil {
			return err
		}
		d.peripherals[sliceNum] = pwm
	} else if err := pwm.SetPeriod(periodNS); err != nil {
		return err
	}

	if _, ok := d.channels[pinNum]; !ok {
		channel, err := pwm.Channel(machine.Pin(pinNum))
		if err != nil {
			return err
		}
		d.channels[pinNum] = channel
	}
	return nil
}

// SetDutyCycle sets the duty cycle for a pin, 0 to PWM_MAX
func (d *RP2040PWMDriver) SetDutyCycle(pin core.PWMPin, value core.PWMValue) error {
	pinNum := uint32(pin)

	channel, exists := d.channels[pinNum]
	if !exists {
		return core.ErrToneNotConfigured
	}
	pwm := d.peripherals[uint8((pinNum>>1)&0x7)]

	// Scale to the slice's counter top
	top := pwm.Top()
	pwm.Set(channel, uint32(uint64(value)*uint64(top)/PWM_MAX))
	return nil
}

// DisablePWM drives the pin low and forgets it. TinyGo has no way to
// hand the pin back to GPIO.
func (d *RP2040PWMDriver) DisablePWM(pin core.PWMPin) error {
	if err := d.SetDutyCycle(pin, 0); err != nil {
		return err
	}
	delete(d.channels, uint32(pin))
	return nil
}

// getPWMPeripheral returns PWM0-PWM7 through the pwmPeripheral interface
func (d *RP2040PWMDriver) getPWMPeripheral(sliceNum uint8) pwmPeripheral {
	switch sliceNum {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	default:
		return machine.PWM7
	}
}
