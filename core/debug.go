package core

// DebugWriter writes one line of debug output
type DebugWriter func(string)

// TimingEvent records one buzzer event for post-mortem analysis
type TimingEvent struct {
	EventType uint8
	OID       uint8
	Clock     uint32 // Millis() at the event
	Value1    uint32
	Value2    uint32
}

// Event type codes
const (
	EvtSongStart = 1 // sequence accepted, Value1=length Value2=bpm
	EvtNoteFire  = 2 // note emitted, Value1=index Value2=frequency
	EvtSongDone  = 3 // sequence finished, Value1=length
	EvtToneError = 4 // emitter rejected a note, Value1=frequency
	EvtTempo     = 5 // tempo changed, Value1=bpm
	EvtShutdown  = 6 // playback stopped by emergency_stop
)

const TimingRingSize = 32

var (
	debugPrintln DebugWriter = func(s string) {}

	// Off by default; enable with set_debug enable=1
	debugEnabled bool

	timingRing     [TimingRingSize]TimingEvent
	timingRingHead uint8
	timingEnabled  = true

	debugChan chan string
)

// SetDebugWriter redirects debug output to the platform's UART or USB
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

func IsDebugEnabled() bool {
	return debugEnabled
}

// InitAsyncDebug starts the goroutine that drains DebugAsync messages.
// Call it from main() after SetDebugWriter.
func InitAsyncDebug() {
	debugChan = make(chan string, 16)
	go func() {
		for msg := range debugChan {
			if debugPrintln != nil {
				debugPrintln(msg)
			}
		}
	}()
}

// DebugPrintln writes msg synchronously when debug output is enabled
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// DebugAsync queues msg without blocking; it is dropped if the queue is full
func DebugAsync(msg string) {
	if debugChan == nil {
		return
	}
	select {
	case debugChan <- msg:
	default:
	}
}

// RecordTiming stores an event in the timing ring
func RecordTiming(eventType, oid uint8, clock, value1, value2 uint32) {
	if !timingEnabled {
		return
	}
	idx := timingRingHead
	timingRing[idx] = TimingEvent{
		EventType: eventType,
		OID:       oid,
		Clock:     clock,
		Value1:    value1,
		Value2:    value2,
	}
	timingRingHead = (idx + 1) % TimingRingSize
}

// TimingEvents returns the recorded events, oldest first
func TimingEvents() []TimingEvent {
	events := make([]TimingEvent, 0, TimingRingSize)
	for i := uint8(0); i < TimingRingSize; i++ {
		evt := timingRing[(timingRingHead+i)%TimingRingSize]
		if evt.EventType != 0 {
			events = append(events, evt)
		}
	}
	return events
}

func timingEventName(eventType uint8) string {
	switch eventType {
	case EvtSongStart:
		return "SONG_START"
	case EvtNoteFire:
		return "NOTE"
	case EvtSongDone:
		return "SONG_DONE"
	case EvtToneError:
		return "TONE_ERR!"
	case EvtTempo:
		return "TEMPO"
	case EvtShutdown:
		return "SHUTDOWN"
	}
	return "UNKNOWN"
}

// DumpTimingRing prints the timing ring through the debug writer
func DumpTimingRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[TIMING] === Timing Ring Dump ===")
	for _, evt := range TimingEvents() {
		debugPrintln("[TIMING] " + timingEventName(evt.EventType) +
			" oid=" + itoa(int(evt.OID)) +
			" ms=" + utoa(evt.Clock) +
			" v1=" + utoa(evt.Value1) +
			" v2=" + utoa(evt.Value2))
	}
	debugPrintln("[TIMING] === End Dump ===")
}

func ClearTimingRing() {
	for i := range timingRing {
		timingRing[i] = TimingEvent{}
	}
	timingRingHead = 0
}
