package gcode

import (
	"strings"
	"testing"

	"gopiezo/core"
	"gopiezo/standalone"
	"gopiezo/standalone/config"
)

func newTestMachine(t *testing.T, bootSong int) (*Machine, *fakeDriver, *fakeClock) {
	t.Helper()
	cfg := config.DefaultBuzzerConfig()
	cfg.BootSong = bootSong
	driver := newFakeDriver()
	clock := &fakeClock{}
	m, err := NewMachine(cfg, driver, clock)
	if err != nil {
		t.Fatal(err)
	}
	return m, driver, clock
}

func feed(m *Machine, text string) string {
	for i := 0; i < len(text); i++ {
		m.Manager.ProcessByte(text[i])
	}
	return string(m.Manager.GetOutput())
}

func TestMachineRepliesOk(t *testing.T) {
	m, driver, _ := newTestMachine(t, -1)

	if out := feed(m, "M300 S440 P100\n"); out != "ok\n" {
		t.Errorf("output %q, want ok", out)
	}
	if len(driver.calls) != 1 || driver.calls[0].pin != 15 {
		t.Errorf("calls = %v", driver.calls)
	}

	out := feed(m, "M930 S0\r\n")
	if !strings.HasPrefix(out, "Error: ") {
		t.Errorf("output %q, want an error", out)
	}

	out = feed(m, "M933\n")
	if out != "Buzzer pin:15 bpm:120 note:0/0 state:idle\nok\n" {
		t.Errorf("M933 output %q", out)
	}
}

func TestMachineBootSong(t *testing.T) {
	m, driver, clock := newTestMachine(t, 0)

	if err := m.Start(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(m.Manager.GetOutput()), "gopiezo standalone ready") {
		t.Error("missing banner")
	}

	for i := 0; i < 5000 && m.Musical.State() != core.StateIdle; i++ {
		m.Update()
		clock.ms += 10
	}
	if len(driver.calls) != m.Musical.SongLength() {
		t.Errorf("played %d notes, want %d", len(driver.calls), m.Musical.SongLength())
	}
}

func TestMachineSelectPin(t *testing.T) {
	m, driver, _ := newTestMachine(t, -1)

	if out := feed(m, "M931 P3\n"); out != "ok\n" {
		t.Fatalf("output %q", out)
	}
	if !driver.configured[3] || m.Musical.Pin() != 3 {
		t.Error("pin 3 not selected")
	}
	if len(driver.silenced) != 1 || driver.silenced[0] != 15 {
		t.Errorf("old pin not silenced: %v", driver.silenced)
	}

	if out := feed(m, "M931 P40\n"); !strings.HasPrefix(out, "Error: ") {
		t.Errorf("bad pin output %q", out)
	}
	if m.Musical.Pin() != 3 {
		t.Errorf("pin changed to %d after a failed select", m.Musical.Pin())
	}
}

func TestMachineEmergencyStop(t *testing.T) {
	m, driver, _ := newTestMachine(t, -1)

	feed(m, "M932 S3\n")
	if out := feed(m, "M112\n"); out != "ok\n" {
		t.Errorf("output %q", out)
	}
	if m.Musical.State() != core.StateIdle {
		t.Error("song still loaded")
	}
	if len(driver.silenced) == 0 {
		t.Error("pin not silenced")
	}
}

func TestNewMachineBadConfig(t *testing.T) {
	cfg := &standalone.MachineConfig{Buzzer: standalone.BuzzerConfig{Pin: 2, BPM: -1}}
	if _, err := NewMachine(cfg, newFakeDriver(), &fakeClock{}); err == nil {
		t.Error("negative tempo accepted")
	}
	cfg = &standalone.MachineConfig{Buzzer: standalone.BuzzerConfig{Pin: 31, BPM: 100}}
	if _, err := NewMachine(cfg, newFakeDriver(), &fakeClock{}); err == nil {
		t.Error("bad pin accepted")
	}
}
