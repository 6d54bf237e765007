//go:build !headless

package sim

import (
	"fmt"
	"sync"

	"github.com/ebitengine/oto/v3"

	"gopiezo/core"
)

const SampleRate = 44100

// Speaker is a tone driver that plays each pin as a square wave on the
// desktop audio device. oto mixes the pins' players.
type Speaker struct {
	ctx *oto.Context

	mu     sync.Mutex
	voices map[core.TonePin]*speakerVoice
}

type speakerVoice struct {
	synth  *squareSynth
	player *oto.Player
}

// NewSpeaker opens the default audio device
func NewSpeaker() (*Speaker, error) {
	op := &oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("sim: open audio: %w", err)
	}
	<-ready
	return &Speaker{ctx: ctx, voices: make(map[core.TonePin]*speakerVoice)}, nil
}

func (s *Speaker) ConfigureTone(pin core.TonePin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.voices[pin]; ok {
		return nil
	}
	synth := newSquareSynth(SampleRate)
	player := s.ctx.NewPlayer(synth)
	player.Play()
	s.voices[pin] = &speakerVoice{synth: synth, player: player}
	return nil
}

func (s *Speaker) Tone(pin core.TonePin, frequency, durationMS uint32) error {
	if err := core.CheckToneFrequency(frequency); err != nil {
		return err
	}
	v, err := s.voice(pin)
	if err != nil {
		return err
	}
	v.synth.play(frequency, durationMS)
	return nil
}

func (s *Speaker) NoTone(pin core.TonePin) error {
	v, err := s.voice(pin)
	if err != nil {
		return err
	}
	v.synth.stop()
	return nil
}

// Close stops every player
func (s *Speaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for pin, v := range s.voices {
		v.player.Close()
		delete(s.voices, pin)
	}
	return nil
}

func (s *Speaker) voice(pin core.TonePin) (*speakerVoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.voices[pin]
	if !ok {
		return nil, core.ErrToneNotConfigured
	}
	return v, nil
}
