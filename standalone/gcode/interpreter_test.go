package gcode

import (
	"errors"
	"strings"
	"testing"

	"gopiezo/core"
	"gopiezo/standalone/songs"
)

type toneCall struct {
	pin       core.TonePin
	frequency uint32
	duration  uint32
}

type fakeDriver struct {
	configured map[core.TonePin]bool
	calls      []toneCall
	silenced   []core.TonePin
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{configured: make(map[core.TonePin]bool)}
}

func (d *fakeDriver) ConfigureTone(pin core.TonePin) error {
	if pin > 29 {
		return errors.New("no such pin")
	}
	d.configured[pin] = true
	return nil
}

func (d *fakeDriver) Tone(pin core.TonePin, frequency, duration uint32) error {
	if err := core.CheckToneFrequency(frequency); err != nil {
		return err
	}
	d.calls = append(d.calls, toneCall{pin, frequency, duration})
	return nil
}

func (d *fakeDriver) NoTone(pin core.TonePin) error {
	d.silenced = append(d.silenced, pin)
	return nil
}

type fakeClock struct{ ms uint32 }

func (c *fakeClock) Millis() uint32 { return c.ms }

func newTestInterpreter(t *testing.T) (*Interpreter, *core.Musical, *fakeDriver, *[]string) {
	t.Helper()
	driver := newFakeDriver()
	musical := core.NewMusical(driver, &fakeClock{})
	musical.SetBuzzerPin(4)
	var replies []string
	interp := NewInterpreter(musical, func(pin core.TonePin) error {
		musical.SetBuzzerPin(pin)
		return nil
	}, func() {
		musical.Stop()
	}, func(line string) {
		replies = append(replies, line)
	})
	return interp, musical, driver, &replies
}

func run(t *testing.T, interp *Interpreter, line string) error {
	t.Helper()
	cmd, err := NewParser().ParseLine(line)
	if err != nil {
		t.Fatalf("ParseLine(%q): %v", line, err)
	}
	return interp.Execute(cmd)
}

func TestM300PlaysNote(t *testing.T) {
	interp, _, driver, _ := newTestInterpreter(t)

	if err := run(t, interp, "M300 S440 P250"); err != nil {
		t.Fatal(err)
	}
	if err := run(t, interp, "M300"); err != nil {
		t.Fatal(err)
	}

	want := []toneCall{{4, 440, 250}, {4, defaultBeepFrequency, defaultBeepDuration}}
	if len(driver.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", driver.calls, want)
	}
	for i := range want {
		if driver.calls[i] != want[i] {
			t.Errorf("call %d = %v, want %v", i, driver.calls[i], want[i])
		}
	}
}

func TestM300Errors(t *testing.T) {
	interp, _, driver, _ := newTestInterpreter(t)

	if err := run(t, interp, "M300 S25000 P10"); !errors.Is(err, core.ErrNoteOutOfRange) {
		t.Errorf("25 kHz = %v, want ErrNoteOutOfRange", err)
	}
	if err := run(t, interp, "M300 S-5"); !errors.Is(err, core.ErrNoteOutOfRange) {
		t.Errorf("negative frequency = %v, want ErrNoteOutOfRange", err)
	}
	if len(driver.calls) != 0 {
		t.Errorf("driver called %v", driver.calls)
	}
}

func TestM930Tempo(t *testing.T) {
	interp, musical, _, _ := newTestInterpreter(t)

	if err := run(t, interp, "M930 S60"); err != nil {
		t.Fatal(err)
	}
	if musical.BPM() != 60 || musical.Durations().Quarter != 1000 {
		t.Errorf("bpm %d quarter %d, want 60 and 1000", musical.BPM(), musical.Durations().Quarter)
	}

	if err := run(t, interp, "M930 S0"); !errors.Is(err, core.ErrInvalidTempo) {
		t.Errorf("S0 = %v, want ErrInvalidTempo", err)
	}
	if err := run(t, interp, "M930"); !errors.Is(err, core.ErrInvalidTempo) {
		t.Errorf("missing S = %v, want ErrInvalidTempo", err)
	}
	if musical.BPM() != 60 {
		t.Errorf("rejected tempo changed bpm to %d", musical.BPM())
	}
}

func TestM931SelectsPin(t *testing.T) {
	interp, musical, _, _ := newTestInterpreter(t)

	if err := run(t, interp, "M931 P9"); err != nil {
		t.Fatal(err)
	}
	if musical.Pin() != 9 {
		t.Errorf("pin = %d, want 9", musical.Pin())
	}
	if err := run(t, interp, "M931"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("M931 without P = %v, want ErrUnsupported", err)
	}
}

func TestM932PlaysBuiltin(t *testing.T) {
	interp, musical, driver, _ := newTestInterpreter(t)

	if err := run(t, interp, "M932 S1"); err != nil {
		t.Fatal(err)
	}
	want, _ := songs.Builtin(1)
	if musical.SongLength() != len(want.Notes) {
		t.Errorf("song length %d, want %d", musical.SongLength(), len(want.Notes))
	}
	if musical.State() != core.StateDue {
		t.Errorf("state %v, want due", musical.State())
	}
	musical.Update()
	if len(driver.calls) != 1 {
		t.Errorf("first note not played: %v", driver.calls)
	}

	if err := run(t, interp, "M932 S99"); !errors.Is(err, songs.ErrNoSuchSong) {
		t.Errorf("S99 = %v, want ErrNoSuchSong", err)
	}
}

func TestM933ReportsState(t *testing.T) {
	interp, _, _, replies := newTestInterpreter(t)

	if err := run(t, interp, "M930 S96"); err != nil {
		t.Fatal(err)
	}
	if err := run(t, interp, "M933"); err != nil {
		t.Fatal(err)
	}
	if len(*replies) != 1 {
		t.Fatalf("replies = %q", *replies)
	}
	want := "Buzzer pin:4 bpm:96 note:0/0 state:idle"
	if (*replies)[0] != want {
		t.Errorf("reply %q, want %q", (*replies)[0], want)
	}
}

func TestM112Stops(t *testing.T) {
	interp, musical, _, _ := newTestInterpreter(t)

	if err := run(t, interp, "M932 S3"); err != nil {
		t.Fatal(err)
	}
	if err := run(t, interp, "M112"); err != nil {
		t.Fatal(err)
	}
	if musical.State() != core.StateIdle {
		t.Errorf("state %v after M112, want idle", musical.State())
	}
}

func TestUnsupportedCommands(t *testing.T) {
	interp, _, _, _ := newTestInterpreter(t)

	for _, line := range []string{"G1 X10", "M104 S200", "T0"} {
		if err := run(t, interp, line); !errors.Is(err, ErrUnsupported) {
			t.Errorf("%s = %v, want ErrUnsupported", line, err)
		}
	}
	if err := run(t, interp, "; just a comment"); err != nil {
		t.Errorf("comment = %v", err)
	}
}

func TestFormatState(t *testing.T) {
	interp, musical, _, _ := newTestInterpreter(t)
	if err := musical.PlaySequence([]int{120, 440, 500, 523, 500}, 2); err != nil {
		t.Fatal(err)
	}
	musical.Update()

	got := FormatState(interp.GetState())
	if !strings.Contains(got, "note:1/2") || !strings.HasSuffix(got, "state:waiting") {
		t.Errorf("FormatState = %q", got)
	}
}
