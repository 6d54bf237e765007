package gcode

import (
	"gopiezo/core"
	"gopiezo/standalone"
	"gopiezo/standalone/songs"
)

// Machine is standalone mode assembled: one Musical on the configured
// pin, the interpreter driving it and the line manager in front
type Machine struct {
	Manager     *standalone.Manager
	Interpreter *Interpreter
	Musical     *core.Musical

	parser *Parser
	driver core.ToneDriver
	config *standalone.MachineConfig
}

// NewMachine claims the configured pin on driver and builds the pipeline
func NewMachine(cfg *standalone.MachineConfig, driver core.ToneDriver, clock core.Clock) (*Machine, error) {
	pin := core.TonePin(cfg.Buzzer.Pin)
	if err := driver.ConfigureTone(pin); err != nil {
		return nil, err
	}

	m := &Machine{
		Musical: core.NewMusical(driver, clock),
		parser:  NewParser(),
		driver:  driver,
		config:  cfg,
	}
	m.Musical.SetBuzzerPin(pin)
	if err := m.Musical.SetBPM(cfg.Buzzer.BPM); err != nil {
		return nil, err
	}

	m.Manager = standalone.NewManager(cfg, m.handleLine)
	m.Interpreter = NewInterpreter(m.Musical, m.selectPin, m.EmergencyStop, func(line string) {
		m.Manager.SendResponse(line + "\n")
	})
	return m, nil
}

func (m *Machine) handleLine(line string) error {
	cmd, err := m.parser.ParseLine(line)
	if err != nil {
		return err
	}
	return m.Interpreter.Execute(cmd)
}

func (m *Machine) selectPin(pin core.TonePin) error {
	old := m.Musical.Pin()
	if pin == old {
		return nil
	}
	if err := m.driver.ConfigureTone(pin); err != nil {
		return err
	}
	m.driver.NoTone(old)
	m.Musical.SetBuzzerPin(pin)
	return nil
}

// Start prints the banner and plays the boot song, if one is configured
func (m *Machine) Start() error {
	m.Manager.Start()
	if m.config.BootSong < 0 {
		return nil
	}
	score, err := songs.Builtin(m.config.BootSong)
	if err != nil {
		return err
	}
	seq, n, err := score.Sequence()
	if err != nil {
		return err
	}
	return m.Musical.PlaySequence(seq, n)
}

// Update advances playback; call it every main loop iteration
func (m *Machine) Update() bool {
	return m.Musical.Update()
}

// EmergencyStop drops the song and silences the pin
func (m *Machine) EmergencyStop() {
	m.Musical.Stop()
	m.driver.NoTone(m.Musical.Pin())
}
