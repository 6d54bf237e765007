package sim

import (
	"sync"

	"gopiezo/core"
)

// ToneEvent is one Tone or NoTone call seen by a Recorder
type ToneEvent struct {
	At        uint32 // clock ms
	Pin       core.TonePin
	Frequency uint32
	Duration  uint32
	Silence   bool
}

// Recorder is a headless tone driver that logs every call. It backs
// -headless runs and tests.
type Recorder struct {
	clock core.Clock

	mu         sync.Mutex
	configured map[core.TonePin]bool
	events     []ToneEvent
}

func NewRecorder(clock core.Clock) *Recorder {
	return &Recorder{
		clock:      clock,
		configured: make(map[core.TonePin]bool),
	}
}

func (r *Recorder) ConfigureTone(pin core.TonePin) error {
	r.mu.Lock()
	r.configured[pin] = true
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Tone(pin core.TonePin, frequency, durationMS uint32) error {
	if err := core.CheckToneFrequency(frequency); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.configured[pin] {
		return core.ErrToneNotConfigured
	}
	r.events = append(r.events, ToneEvent{
		At:        r.clock.Millis(),
		Pin:       pin,
		Frequency: frequency,
		Duration:  durationMS,
	})
	return nil
}

func (r *Recorder) NoTone(pin core.TonePin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.configured[pin] {
		return core.ErrToneNotConfigured
	}
	r.events = append(r.events, ToneEvent{At: r.clock.Millis(), Pin: pin, Silence: true})
	return nil
}

// Events returns a copy of everything recorded so far
func (r *Recorder) Events() []ToneEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ToneEvent(nil), r.events...)
}
