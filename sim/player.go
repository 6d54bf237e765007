package sim

import (
	"context"
	"time"

	"gopiezo/core"
)

// Status is a snapshot of the simulated buzzer
type Status struct {
	Pin     core.TonePin
	BPM     int
	Note    int
	Length  int
	State   core.PlaybackState
	Melody  string
	LastErr error
}

type request struct {
	run   func(m *core.Musical) error
	reply chan error
}

// Player owns one Musical and polls it from its own goroutine. Other
// goroutines reach it only through the request channel.
type Player struct {
	musical *core.Musical
	driver  core.ToneDriver
	poll    time.Duration

	requests chan request
	updates  chan Status
	melody   string
	lastErr  error
}

// NewPlayer configures pin on driver and builds the Musical playing it
func NewPlayer(driver core.ToneDriver, clock core.Clock, pin core.TonePin) (*Player, error) {
	if err := driver.ConfigureTone(pin); err != nil {
		return nil, err
	}
	m := core.NewMusical(driver, clock)
	m.SetBuzzerPin(pin)
	return &Player{
		musical:  m,
		driver:   driver,
		poll:     time.Millisecond,
		requests: make(chan request),
		updates:  make(chan Status, 1),
	}, nil
}

// Updates delivers a Status after every note and request. Slow readers
// only see the latest one.
func (p *Player) Updates() <-chan Status {
	return p.updates
}

// Run polls the Musical until ctx ends, then silences the pin
func (p *Player) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.poll)
	defer ticker.Stop()
	defer p.driver.NoTone(p.musical.Pin())

	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-p.requests:
			req.reply <- req.run(p.musical)
			p.publish()
		case <-ticker.C:
			if p.musical.Update() {
				p.lastErr = p.musical.LastError()
				p.publish()
			}
		}
	}
}

func (p *Player) publish() {
	st := p.status()
	select {
	case <-p.updates:
	default:
	}
	p.updates <- st
}

func (p *Player) status() Status {
	return Status{
		Pin:     p.musical.Pin(),
		BPM:     p.musical.BPM(),
		Note:    p.musical.CurrentNote(),
		Length:  p.musical.SongLength(),
		State:   p.musical.State(),
		Melody:  p.melody,
		LastErr: p.lastErr,
	}
}

func (p *Player) do(ctx context.Context, fn func(m *core.Musical) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	req := request{run: fn, reply: make(chan error, 1)}
	select {
	case p.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Play starts a sequence, replacing whatever was playing
func (p *Player) Play(ctx context.Context, name string, sequence []int, length int) error {
	return p.do(ctx, func(m *core.Musical) error {
		if err := m.PlaySequence(sequence, length); err != nil {
			return err
		}
		p.melody = name
		p.lastErr = nil
		return nil
	})
}

func (p *Player) SetBPM(ctx context.Context, bpm int) error {
	return p.do(ctx, func(m *core.Musical) error {
		return m.SetBPM(bpm)
	})
}

func (p *Player) PlayNote(ctx context.Context, frequency, duration uint32) error {
	return p.do(ctx, func(m *core.Musical) error {
		return m.PlayNote(frequency, duration)
	})
}

// Stop drops the song and silences the pin
func (p *Player) Stop(ctx context.Context) error {
	return p.do(ctx, func(m *core.Musical) error {
		m.Stop()
		p.melody = ""
		return p.driver.NoTone(m.Pin())
	})
}

func (p *Player) Status(ctx context.Context) (Status, error) {
	var st Status
	err := p.do(ctx, func(*core.Musical) error {
		st = p.status()
		return nil
	})
	return st, err
}
