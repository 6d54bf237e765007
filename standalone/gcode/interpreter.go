package gcode

import (
	"errors"
	"strconv"

	"gopiezo/core"
	"gopiezo/standalone"
	"gopiezo/standalone/songs"
)

var ErrUnsupported = errors.New("unsupported command")

// Player is the buzzer the interpreter drives
type Player interface {
	SetBPM(bpm int) error
	PlayNote(frequency, duration uint32) error
	PlaySequence(sequence []int, length int) error
	State() core.PlaybackState
	CurrentNote() int
	SongLength() int
	BPM() int
	Pin() core.TonePin
}

// PinSelector moves the buzzer to another pin (M931)
type PinSelector func(pin core.TonePin) error

// Stopper silences the buzzer (M112)
type Stopper func()

// Default M300 values, as in Marlin
const (
	defaultBeepFrequency = 260
	defaultBeepDuration  = 1000
)

// Interpreter executes buzzer G-code
type Interpreter struct {
	player    Player
	selectPin PinSelector
	stop      Stopper
	reply     func(string)
}

// NewInterpreter creates an interpreter. reply receives report lines
// (M933); selectPin and stop may be nil.
func NewInterpreter(player Player, selectPin PinSelector, stop Stopper, reply func(string)) *Interpreter {
	if reply == nil {
		reply = func(string) {}
	}
	return &Interpreter{
		player:    player,
		selectPin: selectPin,
		stop:      stop,
		reply:     reply,
	}
}

// Execute runs one parsed command
func (interp *Interpreter) Execute(cmd *standalone.GCodeCommand) error {
	if cmd == nil || cmd.Type == 0 {
		return nil
	}
	if cmd.Type != 'M' {
		return ErrUnsupported
	}

	switch cmd.Number {
	case 112: // M112 - Emergency stop
		if interp.stop != nil {
			interp.stop()
		}
		return nil
	case 300: // M300 S<hz> P<ms> - Play note
		freq := cmd.IntParameter('S', defaultBeepFrequency)
		dur := cmd.IntParameter('P', defaultBeepDuration)
		if freq < 0 || dur < 0 {
			return core.ErrNoteOutOfRange
		}
		return interp.player.PlayNote(uint32(freq), uint32(dur))
	case 930: // M930 S<bpm> - Tempo
		return interp.player.SetBPM(cmd.IntParameter('S', 0))
	case 931: // M931 P<pin> - Buzzer pin
		if !cmd.HasParameter('P') || interp.selectPin == nil {
			return ErrUnsupported
		}
		pin := cmd.IntParameter('P', 0)
		if pin < 0 {
			return ErrUnsupported
		}
		return interp.selectPin(core.TonePin(pin))
	case 932: // M932 S<index> - Play built-in song
		score, err := songs.Builtin(cmd.IntParameter('S', 0))
		if err != nil {
			return err
		}
		seq, n, err := score.Sequence()
		if err != nil {
			return err
		}
		return interp.player.PlaySequence(seq, n)
	case 933: // M933 - Report state
		interp.reply(FormatState(interp.GetState()))
		return nil
	}
	return ErrUnsupported
}

// GetState snapshots the player
func (interp *Interpreter) GetState() *standalone.MachineState {
	p := interp.player
	return &standalone.MachineState{
		Pin:         uint32(p.Pin()),
		BPM:         p.BPM(),
		CurrentNote: p.CurrentNote(),
		SongLength:  p.SongLength(),
		Playing:     p.State().String(),
	}
}

// FormatState renders an M933 report line
func FormatState(s *standalone.MachineState) string {
	return "Buzzer pin:" + strconv.FormatUint(uint64(s.Pin), 10) +
		" bpm:" + strconv.Itoa(s.BPM) +
		" note:" + strconv.Itoa(s.CurrentNote) + "/" + strconv.Itoa(s.SongLength) +
		" state:" + s.Playing
}
