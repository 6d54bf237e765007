package songs

import (
	"errors"
	"strings"

	"gopiezo/core"
)

var ErrBadScore = errors.New("bad score")

// ScoreError locates a parse failure. It matches ErrBadScore.
type ScoreError struct {
	Score  string
	Token  string
	Reason string
}

func (e *ScoreError) Error() string {
	return "score " + e.Score + ": " + e.Token + ": " + e.Reason
}

func (e *ScoreError) Unwrap() error { return ErrBadScore }

// NoteValue is a note length relative to the beat
type NoteValue byte

const (
	Whole     NoteValue = 'w'
	Half      NoteValue = 'h'
	Quarter   NoteValue = 'q'
	Eighth    NoteValue = 'e'
	Sixteenth NoteValue = 's'
)

// Length returns the value's duration in ms for the given tempo
func (v NoteValue) Length(d core.Durations) (uint32, bool) {
	switch v {
	case Whole:
		return d.Whole, true
	case Half:
		return d.Half, true
	case Quarter:
		return d.Quarter, true
	case Eighth:
		return d.Eighth, true
	case Sixteenth:
		return d.Sixteenth, true
	}
	return 0, false
}

// ScoreNote is one written note: pitch name, value and an optional dot
type ScoreNote struct {
	Pitch  string
	Value  NoteValue
	Dotted bool
}

// Score is a melody written in note values, independent of tempo
type Score struct {
	Name  string
	BPM   int
	Notes []ScoreNote
}

// ParseScore reads space separated notes written as pitch:value, e.g.
// "C4:q E4:e. R:h". A trailing '.' dots the note.
func ParseScore(name string, bpm int, text string) (Score, error) {
	s := Score{Name: name, BPM: bpm}
	for _, tok := range strings.Fields(text) {
		pitch, value, ok := strings.Cut(tok, ":")
		if !ok || value == "" {
			return Score{}, &ScoreError{name, tok, "missing value"}
		}
		n := ScoreNote{Pitch: pitch, Value: NoteValue(value[0])}
		switch value[1:] {
		case "":
		case ".":
			n.Dotted = true
		default:
			return Score{}, &ScoreError{name, tok, "bad value"}
		}
		if _, ok := n.Value.Length(core.Durations{}); !ok {
			return Score{}, &ScoreError{name, tok, "bad value"}
		}
		if _, err := Frequency(pitch); err != nil {
			return Score{}, &ScoreError{name, tok, "bad pitch"}
		}
		s.Notes = append(s.Notes, n)
	}
	return s, nil
}

// Sequence renders the score at its tempo into the
// [bpm, note1, duration1, ...] layout Musical.PlaySequence takes, and
// returns the note count
func (s Score) Sequence() ([]int, int, error) {
	d, err := core.TempoDurations(s.BPM)
	if err != nil {
		return nil, 0, err
	}
	seq := make([]int, 1, 1+2*len(s.Notes))
	seq[0] = s.BPM
	for _, n := range s.Notes {
		freq, err := Frequency(n.Pitch)
		if err != nil {
			return nil, 0, ErrBadScore
		}
		length, ok := n.Value.Length(d)
		if !ok {
			return nil, 0, ErrBadScore
		}
		if n.Dotted {
			length += length / 2
		}
		seq = append(seq, int(freq), int(length))
	}
	return seq, len(s.Notes), nil
}
