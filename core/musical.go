package core

import (
	"errors"
	"math"
)

var (
	ErrInvalidTempo      = errors.New("tempo must be a positive bpm")
	ErrMalformedSequence = errors.New("malformed note sequence")
)

// DefaultBPM is the tempo of a freshly created Musical
const DefaultBPM = 120

// Durations holds the note lengths in milliseconds for one tempo
type Durations struct {
	Whole     uint32
	Half      uint32
	Quarter   uint32
	Eighth    uint32
	Sixteenth uint32
}

// TempoDurations derives note lengths from beats per minute. Integer
// division truncates, so at very fast tempos the short values reach 0.
func TempoDurations(bpm int) (Durations, error) {
	if bpm <= 0 {
		return Durations{}, ErrInvalidTempo
	}
	q := uint32(60000 / bpm)
	return Durations{
		Whole:     q * 4,
		Half:      q * 2,
		Quarter:   q,
		Eighth:    q / 2,
		Sixteenth: q / 4,
	}, nil
}

// Note is one entry of a loaded song
type Note struct {
	Frequency uint32
	Duration  uint32
}

// PlaybackState is what Update would do if called now
type PlaybackState uint8

const (
	StateIdle    PlaybackState = iota // nothing loaded or song exhausted
	StateWaiting                      // next note not yet due
	StateDue                          // next note plays on the next Update
)

func (s PlaybackState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaiting:
		return "waiting"
	case StateDue:
		return "due"
	}
	return "unknown"
}

// Musical plays single notes and tempo-based songs on one buzzer pin.
// Songs advance from Update, which the owner calls from its main loop;
// nothing in Musical blocks or locks, so it belongs to a single goroutine.
type Musical struct {
	emitter ToneEmitter
	clock   Clock
	pin     TonePin

	bpm       int
	durations Durations

	song         []Note
	currentNote  int
	nextNoteTime uint32

	// Set when the emitter rejected the last note Update played
	lastErr error

	// Tag for timing ring events
	OID uint8
}

// NewMusical creates a Musical at DefaultBPM with no song loaded
func NewMusical(emitter ToneEmitter, clock Clock) *Musical {
	m := &Musical{emitter: emitter, clock: clock}
	m.bpm = DefaultBPM
	m.durations, _ = TempoDurations(DefaultBPM)
	return m
}

// SetBPM sets the tempo and recomputes the note lengths. A non-positive
// bpm returns ErrInvalidTempo and leaves the previous tempo in place.
func (m *Musical) SetBPM(bpm int) error {
	d, err := TempoDurations(bpm)
	if err != nil {
		return err
	}
	m.bpm = bpm
	m.durations = d
	RecordTiming(EvtTempo, m.OID, m.clock.Millis(), uint32(bpm), 0)
	return nil
}

// SetBuzzerPin selects the pin used by every later emission
func (m *Musical) SetBuzzerPin(pin TonePin) {
	m.pin = pin
}

// PlayNote emits one note right away. Driver errors are returned as is.
func (m *Musical) PlayNote(frequency, duration uint32) error {
	return m.emitter.Tone(m.pin, frequency, duration)
}

// ParseSequence checks a song laid out as
// [bpm, note1, duration1, ..., noteN, durationN] with length = N and
// returns its notes
func ParseSequence(sequence []int, length int) ([]Note, error) {
	if len(sequence) < 1 || length < 0 || (len(sequence)-1)/2 < length {
		return nil, ErrMalformedSequence
	}
	for _, v := range sequence[1 : 1+2*length] {
		if v < 0 || int64(v) > math.MaxInt32 {
			return nil, ErrMalformedSequence
		}
	}
	if sequence[0] <= 0 || int64(sequence[0]) > math.MaxInt32 {
		return nil, ErrInvalidTempo
	}

	song := make([]Note, length)
	for i := range song {
		song[i] = Note{
			Frequency: uint32(sequence[1+2*i]),
			Duration:  uint32(sequence[2+2*i]),
		}
	}
	return song, nil
}

// PlaySequence loads a song in the ParseSequence layout. The values are
// copied, the tempo is applied and the first note is due at once. A song
// already playing is dropped. Nothing changes on error.
func (m *Musical) PlaySequence(sequence []int, length int) error {
	song, err := ParseSequence(sequence, length)
	if err != nil {
		return err
	}
	d, err := TempoDurations(sequence[0])
	if err != nil {
		return err
	}

	m.bpm = sequence[0]
	m.durations = d
	m.song = song
	m.currentNote = 0
	m.nextNoteTime = m.clock.Millis()
	m.lastErr = nil
	RecordTiming(EvtSongStart, m.OID, m.nextNoteTime, uint32(length), uint32(m.bpm))
	return nil
}

// Update plays the current note if it is due and reports whether it did.
// The following note becomes due once the played note's duration has
// elapsed. Due times compare modulo 2^32 ms, so the caller must poll
// within 2^31 ms (about 24.8 days) of a note falling due; a later poll
// sees that note as not yet due and waits another 2^31 ms.
func (m *Musical) Update() bool {
	if m.currentNote >= len(m.song) {
		return false
	}
	now := m.clock.Millis()
	if int32(now-m.nextNoteTime) < 0 {
		return false
	}

	note := m.song[m.currentNote]
	m.lastErr = m.emitter.Tone(m.pin, note.Frequency, note.Duration)
	if m.lastErr != nil {
		RecordTiming(EvtToneError, m.OID, now, note.Frequency, uint32(m.currentNote))
	} else {
		RecordTiming(EvtNoteFire, m.OID, now, uint32(m.currentNote), note.Frequency)
	}
	m.nextNoteTime = now + note.Duration
	m.currentNote++
	if m.currentNote == len(m.song) {
		RecordTiming(EvtSongDone, m.OID, now, uint32(len(m.song)), 0)
	}
	return true
}

// Stop drops the loaded song. The pin is left to the driver.
func (m *Musical) Stop() {
	m.song = nil
	m.currentNote = 0
}

// State reports what the next Update would do
func (m *Musical) State() PlaybackState {
	if m.currentNote >= len(m.song) {
		return StateIdle
	}
	if int32(m.clock.Millis()-m.nextNoteTime) < 0 {
		return StateWaiting
	}
	return StateDue
}

func (m *Musical) CurrentNote() int     { return m.currentNote }
func (m *Musical) SongLength() int      { return len(m.song) }
func (m *Musical) BPM() int             { return m.bpm }
func (m *Musical) Durations() Durations { return m.durations }
func (m *Musical) Pin() TonePin         { return m.pin }

// LastError returns the emitter error from the most recent Update, if any
func (m *Musical) LastError() error { return m.lastErr }
