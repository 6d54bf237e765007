//go:build !tinygo

package core

// Host builds drive the tick counter from tests and the simulator
var systemTicks uint32

func getSystemTicks() uint32 {
	return systemTicks
}

func setSystemTicks(ticks uint32) {
	systemTicks = ticks
}
