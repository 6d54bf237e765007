package core

// toneCall is one recorded Tone invocation
type toneCall struct {
	Pin       TonePin
	Frequency uint32
	Duration  uint32
}

// MockToneDriver records emissions instead of driving a pin
type MockToneDriver struct {
	calls      []toneCall
	configured map[TonePin]bool
	silenced   []TonePin
	failFreq   uint32
	released   int
}

func NewMockToneDriver() *MockToneDriver {
	return &MockToneDriver{configured: make(map[TonePin]bool)}
}

func (m *MockToneDriver) Tone(pin TonePin, frequency, duration uint32) error {
	if m.failFreq != 0 && frequency == m.failFreq {
		return ErrNoteOutOfRange
	}
	m.calls = append(m.calls, toneCall{pin, frequency, duration})
	return nil
}

func (m *MockToneDriver) ConfigureTone(pin TonePin) error {
	m.configured[pin] = true
	return nil
}

func (m *MockToneDriver) NoTone(pin TonePin) error {
	m.silenced = append(m.silenced, pin)
	return nil
}

func (m *MockToneDriver) Release() {
	m.released++
	clear(m.configured)
}

// fakeClock is a Clock the test advances by hand
type fakeClock struct {
	ms uint32
}

func (c *fakeClock) Millis() uint32 { return c.ms }

func (c *fakeClock) Advance(ms uint32) { c.ms += ms }
