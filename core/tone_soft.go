package core

import "errors"

var ErrToneNotConfigured = errors.New("tone pin not configured")

// ToneOutput is a pin that can be switched by software. The drivers
// package buzzer.Device satisfies it.
type ToneOutput interface {
	On() error
	Off() error
	Toggle() error
}

// SoftToneDriver generates square waves by toggling outputs from scheduler
// timers. Resolution is bounded by how often ProcessTimers runs, so it
// suits boards without a free PWM slice.
type SoftToneDriver struct {
	open   func(pin TonePin) (ToneOutput, error)
	voices map[TonePin]*softVoice
}

type softVoice struct {
	timer      Timer
	out        ToneOutput
	halfPeriod uint32
	endTime    uint32
	remaining  uint32 // ms still to add to endTime
	timed      bool
}

// NewSoftToneDriver creates a driver that claims pins through open
func NewSoftToneDriver(open func(pin TonePin) (ToneOutput, error)) *SoftToneDriver {
	return &SoftToneDriver{
		open:   open,
		voices: make(map[TonePin]*softVoice),
	}
}

// ConfigureTone implements ToneDriver
func (d *SoftToneDriver) ConfigureTone(pin TonePin) error {
	if _, ok := d.voices[pin]; ok {
		return nil
	}
	out, err := d.open(pin)
	if err != nil {
		return err
	}
	v := &softVoice{out: out}
	v.timer.Handler = v.toggle
	d.voices[pin] = v
	return out.Off()
}

// Tone implements ToneEmitter
func (d *SoftToneDriver) Tone(pin TonePin, frequency, durationMS uint32) error {
	if err := CheckToneFrequency(frequency); err != nil {
		return err
	}
	v, ok := d.voices[pin]
	if !ok {
		return ErrToneNotConfigured
	}

	CancelTimer(&v.timer)
	if err := v.out.Off(); err != nil {
		return err
	}
	if frequency == 0 {
		return nil
	}

	now := GetTime()
	v.halfPeriod = TimerFreq / (2 * frequency)
	v.timed = durationMS > 0
	v.remaining = durationMS
	v.endTime = now + nextTimerStep(&v.remaining)
	v.timer.WakeTime = now + v.halfPeriod
	if err := v.out.On(); err != nil {
		return err
	}
	ScheduleTimer(&v.timer)
	return nil
}

// NoTone implements ToneDriver
func (d *SoftToneDriver) NoTone(pin TonePin) error {
	v, ok := d.voices[pin]
	if !ok {
		return ErrToneNotConfigured
	}
	CancelTimer(&v.timer)
	return v.out.Off()
}

// Release silences every pin and forgets them
func (d *SoftToneDriver) Release() {
	for pin, v := range d.voices {
		CancelTimer(&v.timer)
		v.out.Off()
		delete(d.voices, pin)
	}
}

func (v *softVoice) toggle(t *Timer) uint8 {
	if v.timed && !TimerIsBefore(t.WakeTime, v.endTime) {
		if v.remaining == 0 {
			v.out.Off()
			return SF_DONE
		}
		v.endTime += nextTimerStep(&v.remaining)
	}
	v.out.Toggle()
	t.WakeTime += v.halfPeriod
	return SF_RESCHEDULE
}
