package sim

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#555"))
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#fff"))
	cursorStyle = lipgloss.NewStyle().Background(lipgloss.Color("#444"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#d33"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888"))
)

// Library supplies melodies by name; the simulator backs it with the
// melody book and the built-in scores
type Library interface {
	Names() []string
	Resolve(name string) ([]int, int, error)
}

type statusMsg Status
type reloadMsg struct{}
type errMsg struct{ err error }

// Model is the bubbletea model of the simulator
type Model struct {
	ctx     context.Context
	player  *Player
	library Library
	reload  <-chan struct{}

	names    []string
	cursor   int
	status   Status
	err      error
	quitting bool
}

// NewModel builds the TUI. A receive on reload re-reads the library names.
func NewModel(ctx context.Context, player *Player, library Library, reload <-chan struct{}) Model {
	return Model{
		ctx:     ctx,
		player:  player,
		library: library,
		reload:  reload,
		names:   library.Names(),
	}
}

func listenForStatus(p *Player) tea.Cmd {
	return func() tea.Msg {
		return statusMsg(<-p.Updates())
	}
}

func listenForReload(reload <-chan struct{}) tea.Cmd {
	if reload == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-reload; !ok {
			return nil
		}
		return reloadMsg{}
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(listenForStatus(m.player), listenForReload(m.reload))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "k", "up":
			if m.cursor > 0 {
				m.cursor--
			}
		case "j", "down":
			if m.cursor < len(m.names)-1 {
				m.cursor++
			}
		case "enter", " ":
			if m.cursor < len(m.names) {
				return m, m.play(m.names[m.cursor])
			}
		case "s":
			return m, m.request(func() error { return m.player.Stop(m.ctx) })
		case "+", "=":
			bpm := m.status.BPM + 5
			return m, m.request(func() error { return m.player.SetBPM(m.ctx, bpm) })
		case "-", "_":
			bpm := m.status.BPM - 5
			return m, m.request(func() error { return m.player.SetBPM(m.ctx, bpm) })
		}

	case statusMsg:
		m.status = Status(msg)
		if m.status.LastErr != nil {
			m.err = m.status.LastErr
		}
		return m, listenForStatus(m.player)

	case reloadMsg:
		m.names = m.library.Names()
		if m.cursor >= len(m.names) {
			m.cursor = max(len(m.names)-1, 0)
		}
		return m, listenForReload(m.reload)

	case errMsg:
		m.err = msg.err
	}
	return m, nil
}

func (m Model) play(name string) tea.Cmd {
	return m.request(func() error {
		seq, n, err := m.library.Resolve(name)
		if err != nil {
			return err
		}
		return m.player.Play(m.ctx, name, seq, n)
	})
}

// request runs fn off the UI goroutine and reports its error
func (m Model) request(fn func() error) tea.Cmd {
	return func() tea.Msg {
		return errMsg{fn()}
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var lines []string
	for i, name := range m.names {
		style := dimStyle
		if name == m.status.Melody && m.status.Note < m.status.Length {
			style = activeStyle
		}
		if i == m.cursor {
			style = style.Inherit(cursorStyle)
		}
		lines = append(lines, style.Render(name))
	}

	status := statusStyle.Render(fmt.Sprintf("pin %d  %3dbpm  %s  %d/%d  %s",
		m.status.Pin, m.status.BPM, m.status.State, m.status.Note, m.status.Length, m.status.Melody))
	if m.err != nil {
		status += "\n" + errorStyle.Render(m.err.Error())
	}

	help := dimStyle.Render("j/k:move  enter:play  s:stop  +/-:tempo  q:quit")
	return fmt.Sprintf("\n%s\n\n%s\n\n%s\n", strings.Join(lines, "\n"), status, help)
}
