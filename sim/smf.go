package sim

import (
	"io"
	"math"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"gopiezo/core"
)

const (
	ticksPerQuarter = 480
	midiVelocity    = 100
)

// MIDIKey returns the equal-tempered key nearest to frequency
func MIDIKey(frequency uint32) uint8 {
	if frequency == 0 {
		return 0
	}
	key := math.Round(69 + 12*math.Log2(float64(frequency)/440))
	return uint8(min(max(key, 0), 127))
}

// WriteSMF writes a sequence as a one-track Standard MIDI File on
// channel 0. Rests and continuous (zero length) notes become gaps.
func WriteSMF(w io.Writer, sequence []int, length int) error {
	notes, err := core.ParseSequence(sequence, length)
	if err != nil {
		return err
	}
	bpm := float64(sequence[0])
	clock := smf.MetricTicks(ticksPerQuarter)

	var tr smf.Track
	tr.Add(0, smf.MetaTempo(bpm))
	var gap uint32
	for _, n := range notes {
		ticks := clock.Ticks(bpm, time.Duration(n.Duration)*time.Millisecond)
		if n.Frequency == 0 || ticks == 0 {
			gap += ticks
			continue
		}
		key := MIDIKey(n.Frequency)
		tr.Add(gap, midi.NoteOn(0, key, midiVelocity))
		tr.Add(ticks, midi.NoteOff(0, key))
		gap = 0
	}
	tr.Close(gap)

	s := smf.New()
	s.TimeFormat = clock
	if err := s.Add(tr); err != nil {
		return err
	}
	_, err = s.WriteTo(w)
	return err
}
