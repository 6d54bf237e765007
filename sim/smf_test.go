package sim

import (
	"bytes"
	"errors"
	"testing"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"gopiezo/core"
)

func TestMIDIKey(t *testing.T) {
	tests := []struct {
		freq uint32
		key  uint8
	}{
		{440, 69},
		{262, 60},
		{523, 72},
		{31, 23},
		{20000, 127},
	}
	for _, tt := range tests {
		if got := MIDIKey(tt.freq); got != tt.key {
			t.Errorf("MIDIKey(%d) = %d, want %d", tt.freq, got, tt.key)
		}
	}
}

func TestWriteSMF(t *testing.T) {
	// 120 bpm: 500 ms is one quarter, 480 ticks
	seq := []int{120, 440, 500, 0, 250, 523, 500}
	var buf bytes.Buffer
	if err := WriteSMF(&buf, seq, 3); err != nil {
		t.Fatal(err)
	}

	s, err := smf.ReadFrom(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Tracks) != 1 {
		t.Fatalf("%d tracks", len(s.Tracks))
	}

	type noteEvent struct {
		on    bool
		key   uint8
		delta uint32
	}
	var got []noteEvent
	for _, ev := range s.Tracks[0] {
		var ch, key, vel uint8
		msg := midi.Message(ev.Message)
		switch {
		case msg.GetNoteStart(&ch, &key, &vel):
			got = append(got, noteEvent{true, key, ev.Delta})
		case msg.GetNoteEnd(&ch, &key):
			got = append(got, noteEvent{false, key, ev.Delta})
		}
	}

	want := []noteEvent{
		{true, 69, 0},
		{false, 69, 480},
		{true, 72, 240}, // after the rest
		{false, 72, 480},
	}
	if len(got) != len(want) {
		t.Fatalf("events = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestWriteSMFRejectsBadSequence(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSMF(&buf, []int{0, 440, 100}, 1); !errors.Is(err, core.ErrInvalidTempo) {
		t.Errorf("zero tempo = %v", err)
	}
	if err := WriteSMF(&buf, []int{120, 440}, 1); !errors.Is(err, core.ErrMalformedSequence) {
		t.Errorf("short sequence = %v", err)
	}
	if buf.Len() != 0 {
		t.Error("bytes written for a bad sequence")
	}
}
