package core

// TimerFreq is the rate of the system tick counter. The RP2040 timer
// counts microseconds.
const TimerFreq = 1000000

const ticksPerMS = TimerFreq / 1000

var (
	lastTicks  uint32
	uptimeHigh uint32
)

// GetTime returns the current system time in timer ticks
func GetTime() uint32 {
	return getSystemTicks()
}

// SetTime publishes a new tick reading from the hardware counter. A reading
// below the previous one is taken as a 32-bit rollover, so it must be
// called at least once per rollover period (about 71 minutes).
func SetTime(ticks uint32) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	if ticks < lastTicks {
		uptimeHigh++
	}
	lastTicks = ticks
	setSystemTicks(ticks)
}

// GetUptime returns 64-bit uptime in timer ticks
func GetUptime() uint64 {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return uint64(uptimeHigh)<<32 | uint64(getSystemTicks())
}

// TimerFromMS converts milliseconds to timer ticks
func TimerFromMS(ms uint32) uint32 {
	return ms * ticksPerMS
}

// maxTimerMS is the longest wait one timer is armed for. Longer spans are
// taken in steps so TimerIsBefore never sees a wake time half the counter
// range away.
const maxTimerMS = (1 << 30) / ticksPerMS

// nextTimerStep takes up to maxTimerMS off remaining and returns that step
// in timer ticks
func nextTimerStep(remaining *uint32) uint32 {
	step := min(*remaining, maxTimerMS)
	*remaining -= step
	return TimerFromMS(step)
}

// TimerIsBefore reports whether tick time a is before b, allowing for
// rollover as long as the two are less than half the counter range apart
func TimerIsBefore(a, b uint32) bool {
	return int32(a-b) < 0
}

// Millis returns milliseconds since boot. Like the Arduino call it wraps
// after 2^32 ms.
func Millis() uint32 {
	return uint32(GetUptime() / ticksPerMS)
}

// SystemClock is the Clock backed by the firmware tick counter
type SystemClock struct{}

// Millis implements Clock
func (SystemClock) Millis() uint32 {
	return Millis()
}

// TimerInit resets the uptime counter and drops every scheduled timer
func TimerInit() {
	state := disableInterrupts()
	lastTicks = 0
	uptimeHigh = 0
	setSystemTicks(0)
	restoreInterrupts(state)

	ResetTimers()
}

// ProcessTimers runs every scheduled timer that is due
func ProcessTimers() {
	currentTime = GetTime()
	TimerDispatch()
}
