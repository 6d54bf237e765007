package sim

import (
	"encoding/binary"
	"math"
	"sync"
)

// squareSynth renders one voice of square wave as mono float32 little
// endian samples, the format the oto player is opened with
type squareSynth struct {
	sampleRate int
	amplitude  float32

	mu        sync.Mutex
	frequency uint32
	remaining int // samples left, -1 for continuous
	phase     float64
}

func newSquareSynth(sampleRate int) *squareSynth {
	return &squareSynth{sampleRate: sampleRate, amplitude: 0.2}
}

// play starts a note. Frequency 0 or a zero remaining count is silence.
func (s *squareSynth) play(frequency, durationMS uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frequency = frequency
	s.phase = 0
	if durationMS == 0 {
		s.remaining = -1
	} else {
		s.remaining = int(uint64(durationMS) * uint64(s.sampleRate) / 1000)
	}
}

func (s *squareSynth) stop() {
	s.mu.Lock()
	s.frequency = 0
	s.remaining = 0
	s.mu.Unlock()
}

// Read implements io.Reader for oto
func (s *squareSynth) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(p) / 4
	step := float64(s.frequency) / float64(s.sampleRate)
	for i := 0; i < n; i++ {
		var v float32
		if s.frequency != 0 && s.remaining != 0 {
			if s.phase < 0.5 {
				v = s.amplitude
			} else {
				v = -s.amplitude
			}
			s.phase += step
			s.phase -= math.Floor(s.phase)
			if s.remaining > 0 {
				s.remaining--
			}
		}
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(v))
	}
	return n * 4, nil
}
