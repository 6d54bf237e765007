package sim

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelNavigationAndPlay(t *testing.T) {
	p, rec, _, ctx := startPlayer(t)
	lib, _ := LoadLibrary("")
	m := NewModel(ctx, p, lib, nil)

	next, _ := m.Update(key("down"))
	m = next.(Model)
	if m.cursor != 1 {
		t.Fatalf("cursor = %d after down", m.cursor)
	}

	next, cmd := m.Update(key("enter"))
	m = next.(Model)
	if cmd == nil {
		t.Fatal("enter returned no command")
	}
	msg := cmd()
	if e, ok := msg.(errMsg); !ok || e.err != nil {
		t.Fatalf("play = %#v", msg)
	}

	st := waitFor(t, p, func(st Status) bool { return st.Note >= 1 })
	if st.Melody != m.names[1] {
		t.Errorf("playing %q, want %q", st.Melody, m.names[1])
	}
	if len(rec.Events()) == 0 {
		t.Error("no tone emitted")
	}

	next, _ = m.Update(statusMsg(st))
	m = next.(Model)
	if !strings.Contains(m.View(), m.names[1]) {
		t.Error("view does not list the melody")
	}
}

func TestModelTempoError(t *testing.T) {
	p, _, _, ctx := startPlayer(t)
	lib, _ := LoadLibrary("")
	m := NewModel(ctx, p, lib, nil)
	m.status.BPM = 5

	_, cmd := m.Update(key("-"))
	msg := cmd()
	next, _ := m.Update(msg)
	m = next.(Model)
	if m.err == nil || !strings.Contains(m.View(), m.err.Error()) {
		t.Errorf("tempo 0 error not shown: %v", m.err)
	}
}

func TestModelQuit(t *testing.T) {
	p, _, _, ctx := startPlayer(t)
	lib, _ := LoadLibrary("")
	m := NewModel(ctx, p, lib, nil)

	next, cmd := m.Update(key("q"))
	if cmd == nil || next.(Model).View() != "" {
		t.Error("q did not quit")
	}
}
