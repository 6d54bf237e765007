//go:build headless

package sim

import (
	"errors"

	"gopiezo/core"
)

var ErrNoAudio = errors.New("sim: built without audio output")

// Speaker is unavailable in headless builds
type Speaker struct{ core.ToneDriver }

func NewSpeaker() (*Speaker, error) {
	return nil, ErrNoAudio
}

func (s *Speaker) Close() error { return nil }
