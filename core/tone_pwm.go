package core

// PWMToneDriver plays notes as a 50% duty square wave on a hardware PWM
// slice. A scheduler timer ends timed notes, so Tone never blocks.
type PWMToneDriver struct {
	pwm    PWMDriver
	voices map[TonePin]*pwmVoice
}

type pwmVoice struct {
	pin   PWMPin
	timer Timer
	pwm   PWMDriver

	// Note time left beyond the armed stop timer, in ms
	remaining uint32
}

func NewPWMToneDriver(pwm PWMDriver) *PWMToneDriver {
	return &PWMToneDriver{
		pwm:    pwm,
		voices: make(map[TonePin]*pwmVoice),
	}
}

// ConfigureTone implements ToneDriver
func (d *PWMToneDriver) ConfigureTone(pin TonePin) error {
	if _, ok := d.voices[pin]; ok {
		return nil
	}
	// Any valid period will do until the first note
	if err := d.pwm.ConfigureHardwarePWM(PWMPin(pin), periodNS(440)); err != nil {
		return err
	}
	v := &pwmVoice{pin: PWMPin(pin), pwm: d.pwm}
	v.timer.Handler = v.stop
	d.voices[pin] = v
	return d.pwm.SetDutyCycle(v.pin, 0)
}

// Tone implements ToneEmitter
func (d *PWMToneDriver) Tone(pin TonePin, frequency, durationMS uint32) error {
	if err := CheckToneFrequency(frequency); err != nil {
		return err
	}
	v, ok := d.voices[pin]
	if !ok {
		return ErrToneNotConfigured
	}

	CancelTimer(&v.timer)
	if frequency == 0 {
		return d.pwm.SetDutyCycle(v.pin, 0)
	}
	if err := d.pwm.ConfigureHardwarePWM(v.pin, periodNS(frequency)); err != nil {
		return err
	}
	if err := d.pwm.SetDutyCycle(v.pin, PWMValue(d.pwm.GetMaxValue()/2)); err != nil {
		return err
	}
	if durationMS > 0 {
		v.remaining = durationMS
		v.timer.WakeTime = GetTime() + nextTimerStep(&v.remaining)
		ScheduleTimer(&v.timer)
	}
	return nil
}

// NoTone implements ToneDriver
func (d *PWMToneDriver) NoTone(pin TonePin) error {
	v, ok := d.voices[pin]
	if !ok {
		return ErrToneNotConfigured
	}
	CancelTimer(&v.timer)
	return d.pwm.SetDutyCycle(v.pin, 0)
}

// Release silences and disables every configured pin
func (d *PWMToneDriver) Release() {
	for pin, v := range d.voices {
		CancelTimer(&v.timer)
		d.pwm.SetDutyCycle(v.pin, 0)
		d.pwm.DisablePWM(v.pin)
		delete(d.voices, pin)
	}
}

func (v *pwmVoice) stop(t *Timer) uint8 {
	if v.remaining > 0 {
		t.WakeTime += nextTimerStep(&v.remaining)
		return SF_RESCHEDULE
	}
	v.pwm.SetDutyCycle(v.pin, 0)
	return SF_DONE
}

func periodNS(frequency uint32) uint64 {
	return 1000000000 / uint64(frequency)
}
