package sim

import "time"

// WallClock is a core.Clock counting milliseconds since it was created
type WallClock struct {
	start time.Time
}

func NewWallClock() *WallClock {
	return &WallClock{start: time.Now()}
}

func (c *WallClock) Millis() uint32 {
	return uint32(time.Since(c.start).Milliseconds())
}
