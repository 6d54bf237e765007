package standalone

// BuzzerConfig describes one buzzer wired to the board
type BuzzerConfig struct {
	Pin    uint32 // GPIO number
	Driver string // "pwm", "pio" or "gpio"
	BPM    int    // tempo before any M930
}

// MachineConfig is the standalone mode configuration
type MachineConfig struct {
	Mode string // "standalone" or "host"

	Buzzer BuzzerConfig

	// Built-in song played by Start, -1 for none
	BootSong int

	// Echo commands back before their reply
	Echo bool
}

// MachineState is what M933 reports
type MachineState struct {
	Pin         uint32
	BPM         int
	CurrentNote int
	SongLength  int
	Playing     string
}

// GCodeCommand is one parsed line
type GCodeCommand struct {
	Type       byte             // 'G', 'M' or 'T'
	Number     int              // e.g. 300 for M300
	Parameters map[byte]float64 // S, P, ...
	Comment    string
}

// HasParameter reports whether letter was given
func (cmd *GCodeCommand) HasParameter(letter byte) bool {
	_, ok := cmd.Parameters[letter]
	return ok
}

// GetParameter returns the value of letter, or def if it was not given
func (cmd *GCodeCommand) GetParameter(letter byte, def float64) float64 {
	if val, ok := cmd.Parameters[letter]; ok {
		return val
	}
	return def
}

// IntParameter returns letter rounded to an int, or def
func (cmd *GCodeCommand) IntParameter(letter byte, def int) int {
	val, ok := cmd.Parameters[letter]
	if !ok {
		return def
	}
	if val < 0 {
		return int(val - 0.5)
	}
	return int(val + 0.5)
}
