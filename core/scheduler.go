package core

// Timer is a scheduled callback. Handler returns SF_DONE to drop the timer
// or SF_RESCHEDULE after advancing WakeTime.
type Timer struct {
	WakeTime uint32
	Handler  func(*Timer) uint8
	Next     *Timer
}

const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1
)

var (
	timerList   *Timer
	currentTime uint32
)

// ScheduleTimer adds a timer to the schedule. The timer must not already
// be scheduled; use CancelTimer first when re-arming.
func ScheduleTimer(t *Timer) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	insertTimer(t)
}

// CancelTimer removes t from the schedule. It is a no-op for a timer that
// is not scheduled.
func CancelTimer(t *Timer) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	for link := &timerList; *link != nil; link = &(*link).Next {
		if *link == t {
			*link = t.Next
			t.Next = nil
			return
		}
	}
}

// TimerScheduled reports whether t is waiting in the schedule
func TimerScheduled(t *Timer) bool {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	for cur := timerList; cur != nil; cur = cur.Next {
		if cur == t {
			return true
		}
	}
	return false
}

// ResetTimers drops every scheduled timer
func ResetTimers() {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	for timerList != nil {
		t := timerList
		timerList = t.Next
		t.Next = nil
	}
}

// insertTimer keeps the list ordered by WakeTime, oldest first
func insertTimer(t *Timer) {
	if timerList == nil || TimerIsBefore(t.WakeTime, timerList.WakeTime) {
		t.Next = timerList
		timerList = t
		return
	}

	current := timerList
	for current.Next != nil && !TimerIsBefore(t.WakeTime, current.Next.WakeTime) {
		current = current.Next
	}

	t.Next = current.Next
	current.Next = t
}

// TimerDispatch runs every timer whose WakeTime is not after currentTime
func TimerDispatch() {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	for timerList != nil && !TimerIsBefore(currentTime, timerList.WakeTime) {
		timer := timerList
		timerList = timer.Next
		timer.Next = nil

		if timer.Handler(timer) == SF_RESCHEDULE {
			insertTimer(timer)
		}
	}
}
