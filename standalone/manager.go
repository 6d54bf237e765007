package standalone

import "errors"

// LineHandler executes one input line. The gcode package provides it;
// keeping it a func avoids an import cycle.
type LineHandler func(line string) error

// Manager frames serial input into lines and replies in the
// ok / Error: style G-code senders expect
type Manager struct {
	config  *MachineConfig
	handler LineHandler

	inputBuffer  []byte
	outputBuffer []byte

	running bool
}

const maxLine = 256

var ErrLineTooLong = errors.New("line too long")

// NewManager creates a manager that passes complete lines to handler
func NewManager(cfg *MachineConfig, handler LineHandler) *Manager {
	return &Manager{
		config:       cfg,
		handler:      handler,
		inputBuffer:  make([]byte, 0, maxLine),
		outputBuffer: make([]byte, 0, maxLine),
	}
}

// Config returns the configuration the manager was created with
func (m *Manager) Config() *MachineConfig {
	return m.config
}

// ProcessLine runs one line and queues its reply
func (m *Manager) ProcessLine(line string) {
	if m.config != nil && m.config.Echo {
		m.SendResponse("echo:" + line + "\n")
	}
	if err := m.handler(line); err != nil {
		m.SendResponse("Error: " + err.Error() + "\n")
		return
	}
	m.SendResponse("ok\n")
}

// ProcessByte collects input until a line terminator
func (m *Manager) ProcessByte(b byte) {
	if b != '\n' && b != '\r' {
		if len(m.inputBuffer) >= maxLine {
			m.inputBuffer = m.inputBuffer[:0]
			m.SendResponse("Error: " + ErrLineTooLong.Error() + "\n")
			return
		}
		m.inputBuffer = append(m.inputBuffer, b)
		return
	}

	line := string(m.inputBuffer)
	m.inputBuffer = m.inputBuffer[:0]
	for len(line) > 0 && line[len(line)-1] == ' ' {
		line = line[:len(line)-1]
	}
	if len(line) > 0 {
		m.ProcessLine(line)
	}
}

// SendResponse queues text for the host
func (m *Manager) SendResponse(response string) {
	m.outputBuffer = append(m.outputBuffer, response...)
}

// GetOutput returns pending output and clears it
func (m *Manager) GetOutput() []byte {
	if len(m.outputBuffer) == 0 {
		return nil
	}
	output := make([]byte, len(m.outputBuffer))
	copy(output, m.outputBuffer)
	m.outputBuffer = m.outputBuffer[:0]
	return output
}

// Start announces the manager. The banner is the first line a sender sees.
func (m *Manager) Start() {
	m.running = true
	m.SendResponse("gopiezo standalone ready\n")
}

func (m *Manager) Stop() {
	m.running = false
}

func (m *Manager) IsRunning() bool {
	return m.running
}
