package core

import "errors"

// TonePin identifies the output pin a buzzer is wired to
type TonePin uint32

// Audible range accepted by the tone drivers. Frequency 0 is a rest.
const (
	ToneFrequencyMin = 31
	ToneFrequencyMax = 20000
)

// ErrNoteOutOfRange is returned by drivers for a frequency they cannot emit
var ErrNoteOutOfRange = errors.New("note frequency out of range")

// ToneEmitter starts a square wave of frequency Hz on pin for durationMS
// milliseconds. Frequency 0 keeps the pin silent. A duration of 0 keeps
// the tone going until the next call or NoTone. Emission is non-blocking
// on every driver in this repository.
type ToneEmitter interface {
	Tone(pin TonePin, frequency uint32, durationMS uint32) error
}

// ToneDriver is the tone HAL that platform code registers
type ToneDriver interface {
	ToneEmitter

	// ConfigureTone claims pin for tone output and leaves it silent
	ConfigureTone(pin TonePin) error

	// NoTone silences pin immediately
	NoTone(pin TonePin) error
}

// ToneReleaser is implemented by drivers that can hand every configured
// pin back, as config_reset does
type ToneReleaser interface {
	Release()
}

// Clock is a monotonic millisecond counter that wraps at 2^32
type Clock interface {
	Millis() uint32
}

var toneDriver ToneDriver

// SetToneDriver is called by target-specific code to register its driver
func SetToneDriver(d ToneDriver) {
	toneDriver = d
}

// MustTone returns the configured driver or panics if missing
func MustTone() ToneDriver {
	if toneDriver == nil {
		panic("tone driver not configured")
	}
	return toneDriver
}

// CheckToneFrequency validates frequency against the audible range
func CheckToneFrequency(frequency uint32) error {
	if frequency == 0 {
		return nil
	}
	if frequency < ToneFrequencyMin || frequency > ToneFrequencyMax {
		return ErrNoteOutOfRange
	}
	return nil
}
