//go:build tinygo

package core

import "sync/atomic"

// The USB reader goroutine and the main loop both read the counter
var systemTicks uint32

func getSystemTicks() uint32 {
	return atomic.LoadUint32(&systemTicks)
}

func setSystemTicks(ticks uint32) {
	atomic.StoreUint32(&systemTicks, ticks)
}
