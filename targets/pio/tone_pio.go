//go:build rp2040

// Package pio generates buzzer square waves with the RP2040 PIO blocks.
package pio

import (
	"machine"

	"gopiezo/core"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

// Two instructions, 32 cycles each: one period is 64 state machine
// cycles and the pitch is set by the clock divider alone.
func buildToneProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		// .wrap_target
		asm.Set(rp2pio.SetDestPins, 1).Delay(31).Encode(), // 0: set pins, 1 [31]
		asm.Set(rp2pio.SetDestPins, 0).Delay(31).Encode(), // 1: set pins, 0 [31]
		// .wrap
	}
}

const cyclesPerPeriod = 64

type pioVoice struct {
	pio     *rp2pio.PIO
	sm      rp2pio.StateMachine
	pioNum  uint8
	smNum   uint8
	pin     machine.Pin
	offset  uint8
	running bool
}

// PIOPWM is a core.PWMDriver whose outputs are PIO state machines, one
// per pin. Duty is fixed at 50%: a zero duty stops the machine and any
// other value runs it. Wrap it with core.NewPWMToneDriver.
type PIOPWM struct {
	voices  map[core.PWMPin]*pioVoice
	offsets [2]int16 // program offset per block, -1 until loaded
}

func NewPIOPWM() *PIOPWM {
	return &PIOPWM{
		voices:  make(map[core.PWMPin]*pioVoice),
		offsets: [2]int16{-1, -1},
	}
}

// GetMaxValue implements core.PWMDriver
func (p *PIOPWM) GetMaxValue() uint32 {
	return 2
}

// ConfigureHardwarePWM claims a state machine for pin on first use and
// sets its clock divider for the requested period
func (p *PIOPWM) ConfigureHardwarePWM(pin core.PWMPin, periodNS uint64) error {
	v, ok := p.voices[pin]
	if !ok {
		var err error
		if v, err = p.claim(pin); err != nil {
			return err
		}
		p.voices[pin] = v
	}

	// divider in 8.8 fixed point: sysclk * period / 64 cycles
	div := uint64(machine.CPUFrequency()) * periodNS * 256 / (cyclesPerPeriod * 1000000000)
	if div < 1<<8 {
		div = 1 << 8
	}
	if div > 0xFFFFFF {
		div = 0xFFFFFF
	}

	v.sm.SetEnabled(false)
	v.sm.Init(v.offset, p.config(v, uint16(div>>8), uint8(div)))
	v.sm.SetPindirsConsecutive(v.pin, 1, true)
	v.sm.SetPinsConsecutive(v.pin, 1, false)
	v.sm.SetEnabled(v.running)
	return nil
}

// SetDutyCycle starts or stops the wave
func (p *PIOPWM) SetDutyCycle(pin core.PWMPin, value core.PWMValue) error {
	v, ok := p.voices[pin]
	if !ok {
		return core.ErrToneNotConfigured
	}
	v.running = value != 0
	if !v.running {
		v.sm.SetEnabled(false)
		v.sm.Restart()
		v.sm.SetPinsConsecutive(v.pin, 1, false)
		return nil
	}
	v.sm.SetEnabled(true)
	return nil
}

// DisablePWM stops the state machine and frees it
func (p *PIOPWM) DisablePWM(pin core.PWMPin) error {
	v, ok := p.voices[pin]
	if !ok {
		return nil
	}
	v.sm.SetEnabled(false)
	v.sm.SetPinsConsecutive(v.pin, 1, false)
	releasePIO(v.pioNum, v.smNum)
	delete(p.voices, pin)
	return nil
}

func (p *PIOPWM) claim(pin core.PWMPin) (*pioVoice, error) {
	pioNum, smNum, ok := allocatePIO()
	if !ok {
		return nil, ErrNoStateMachine
	}
	hw := rp2pio.PIO0
	if pioNum == 1 {
		hw = rp2pio.PIO1
	}
	v := &pioVoice{
		pio:    hw,
		sm:     hw.StateMachine(smNum),
		pioNum: pioNum,
		smNum:  smNum,
		pin:    machine.Pin(pin),
	}
	v.sm.TryClaim()

	// One copy of the program per block serves all four machines
	if p.offsets[pioNum] < 0 {
		offset, err := hw.AddProgram(buildToneProgram(), -1)
		if err != nil {
			releasePIO(pioNum, smNum)
			return nil, err
		}
		p.offsets[pioNum] = int16(offset)
	}
	v.offset = uint8(p.offsets[pioNum])
	v.pin.Configure(machine.PinConfig{Mode: hw.PinMode()})
	return v, nil
}

func (p *PIOPWM) config(v *pioVoice, divInt uint16, divFrac uint8) rp2pio.StateMachineConfig {
	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetSetPins(v.pin, 1)
	cfg.SetWrap(v.offset+1, v.offset)
	cfg.SetClkDivIntFrac(divInt, divFrac)
	return cfg
}
