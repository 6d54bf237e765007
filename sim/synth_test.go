package sim

import (
	"encoding/binary"
	"math"
	"testing"
)

func samples(t *testing.T, s *squareSynth, n int) []float32 {
	t.Helper()
	buf := make([]byte, n*4)
	got, err := s.Read(buf)
	if err != nil || got != len(buf) {
		t.Fatalf("Read = %d, %v", got, err)
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out
}

func TestSquareSynthWave(t *testing.T) {
	// 1 kHz at 8 kHz: four samples high, four low
	s := newSquareSynth(8000)
	s.play(1000, 0)

	out := samples(t, s, 16)
	for i, v := range out {
		high := (i % 8) < 4
		if high && v <= 0 || !high && v >= 0 {
			t.Fatalf("sample %d = %v, want high=%v", i, v, high)
		}
	}
}

func TestSquareSynthDuration(t *testing.T) {
	s := newSquareSynth(8000)
	s.play(500, 2) // 16 samples

	out := samples(t, s, 32)
	for i := 0; i < 16; i++ {
		if out[i] == 0 {
			t.Fatalf("sample %d silent during the note", i)
		}
	}
	for i := 16; i < 32; i++ {
		if out[i] != 0 {
			t.Fatalf("sample %d = %v after the note ended", i, out[i])
		}
	}
}

func TestSquareSynthRestAndStop(t *testing.T) {
	s := newSquareSynth(8000)
	s.play(0, 100)
	for i, v := range samples(t, s, 8) {
		if v != 0 {
			t.Fatalf("rest sample %d = %v", i, v)
		}
	}

	s.play(440, 0)
	s.stop()
	for i, v := range samples(t, s, 8) {
		if v != 0 {
			t.Fatalf("stopped sample %d = %v", i, v)
		}
	}
}
