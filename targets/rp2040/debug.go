//go:build rp2040

package main

import (
	"gopiezo/core"
	"machine"
)

var debugUART *machine.UART

// InitDebugUART routes core debug output to UART0 on GPIO0 (TX) and
// GPIO1 (RX) at 115200 baud. Output stays off until enabled.
func InitDebugUART() {
	debugUART = machine.UART0
	err := debugUART.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GPIO0,
		RX:       machine.GPIO1,
	})
	if err != nil {
		return
	}
	core.SetDebugWriter(func(msg string) {
		debugUART.Write([]byte(msg))
		debugUART.Write([]byte("\r\n"))
	})
}
