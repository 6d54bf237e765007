package core

// PWMPin identifies a hardware pin capable of PWM output
type PWMPin uint32

// PWMValue is a duty cycle from 0 to GetMaxValue()
type PWMValue uint32

// PWMDriver is the hardware PWM interface the tone driver uses.
// Platform code implements it on top of its PWM slices.
type PWMDriver interface {
	// ConfigureHardwarePWM sets the period of the slice driving pin and
	// routes the pin to it
	ConfigureHardwarePWM(pin PWMPin, periodNS uint64) error

	// SetDutyCycle sets the duty cycle for a pin
	SetDutyCycle(pin PWMPin, value PWMValue) error

	// GetMaxValue returns the full-on duty value
	GetMaxValue() uint32

	// DisablePWM stops output on a pin
	DisablePWM(pin PWMPin) error
}

var pwmDriver PWMDriver

// SetPWMDriver is called by target-specific code to register its driver.
func SetPWMDriver(d PWMDriver) {
	pwmDriver = d
}

// MustPWM returns the configured driver or panics if missing.
func MustPWM() PWMDriver {
	if pwmDriver == nil {
		panic("PWM driver not configured")
	}
	return pwmDriver
}
