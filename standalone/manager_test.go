package standalone

import (
	"errors"
	"strings"
	"testing"
)

func newTestManager(echo bool) (*Manager, *[]string) {
	var lines []string
	handler := func(line string) error {
		lines = append(lines, line)
		if strings.HasPrefix(line, "BAD") {
			return errors.New("bad line")
		}
		return nil
	}
	return NewManager(&MachineConfig{Echo: echo}, handler), &lines
}

func feed(m *Manager, text string) string {
	for i := 0; i < len(text); i++ {
		m.ProcessByte(text[i])
	}
	return string(m.GetOutput())
}

func TestManagerFramesLines(t *testing.T) {
	m, lines := newTestManager(false)

	out := feed(m, "M300 S440  \r\n\nM933\n")
	if out != "ok\nok\n" {
		t.Errorf("output %q, want two oks", out)
	}
	want := []string{"M300 S440", "M933"}
	if len(*lines) != len(want) {
		t.Fatalf("lines = %q, want %q", *lines, want)
	}
	for i := range want {
		if (*lines)[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, (*lines)[i], want[i])
		}
	}
}

func TestManagerReportsErrors(t *testing.T) {
	m, _ := newTestManager(false)

	if out := feed(m, "BAD\n"); out != "Error: bad line\n" {
		t.Errorf("output %q", out)
	}
}

func TestManagerEcho(t *testing.T) {
	m, _ := newTestManager(true)

	if out := feed(m, "M933\n"); out != "echo:M933\nok\n" {
		t.Errorf("output %q", out)
	}
}

func TestManagerLongLine(t *testing.T) {
	m, lines := newTestManager(false)

	out := feed(m, strings.Repeat("x", maxLine+1))
	if out != "Error: "+ErrLineTooLong.Error()+"\n" {
		t.Errorf("output %q", out)
	}
	if out := feed(m, "\n"); out != "" {
		t.Errorf("leftover after overflow produced %q", out)
	}
	if len(*lines) != 0 {
		t.Errorf("handler saw %q", *lines)
	}
}

func TestManagerStartStop(t *testing.T) {
	m, _ := newTestManager(false)

	m.Start()
	if !m.IsRunning() {
		t.Error("not running after Start")
	}
	if out := string(m.GetOutput()); !strings.HasPrefix(out, "gopiezo standalone ready") {
		t.Errorf("banner %q", out)
	}
	if m.GetOutput() != nil {
		t.Error("output not cleared")
	}
	m.Stop()
	if m.IsRunning() {
		t.Error("still running after Stop")
	}
}
