//go:build rp2040

package main

import (
	"gopiezo/core"
	"gopiezo/protocol"
	"machine"
	"strconv"
	"time"
)

var (
	inputBuffer  *protocol.FifoBuffer
	outputBuffer *protocol.ScratchOutput
	transport    *protocol.Transport

	// Debug counters
	messagesReceived uint32
	messagesSent     uint32
	msgerrors        uint32

	// USB connection state tracking
	lastWriteSuccess         uint64
	usbWasDisconnected       bool
	consecutiveWriteFailures uint32
)

func main() {
	// Clear any watchdog state left over from a reset
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	InitUSB()
	InitDebugUART()

	InitClock()
	core.TimerInit()

	cfg := loadConfig()
	core.SetToneDriver(newToneDriver(cfg.Buzzer.Driver))

	if cfg.Mode == "standalone" {
		RunStandaloneMode(cfg)
		return
	}

	core.InitCoreCommands()
	core.InitBuzzerCommands()
	registerRP2040Pins()

	// Build and cache the compressed dictionary once everything is registered
	core.GetGlobalDictionary().BuildDictionary()

	inputBuffer = protocol.NewFifoBuffer(256)
	outputBuffer = protocol.NewScratchOutput()

	transport = protocol.NewTransport(outputBuffer, handleCommand)
	transport.SetResetCallback(func() {
		inputBuffer.Reset()
		outputBuffer.Reset()
		core.ResetFirmwareState()
	})
	// The host expects the ACK before any response, so send it right away
	transport.SetFlushCallback(func() {
		writeUSB()
	})
	core.SetGlobalTransport(transport)

	// Watchdog reset re-enumerates USB more reliably than SYSRESETREQ
	core.SetResetHandler(func() {
		if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 1}); err != nil {
			return
		}
		if err := machine.Watchdog.Start(); err != nil {
			return
		}
		for {
			time.Sleep(1 * time.Millisecond)
		}
	})

	go usbReaderLoop()

	for {
		func() {
			defer func() {
				if r := recover(); r != nil {
					msgerrors++
					inputBuffer.Reset()
					outputBuffer.Reset()
					core.TryShutdown("panic in main loop")
				}
			}()

			UpdateSystemTime()

			if inputBuffer.Available() > 0 {
				data := inputBuffer.Data()
				originalLen := len(data)
				inputBuf := protocol.NewSliceInputBuffer(data)

				transport.Receive(inputBuf)
				messagesReceived++

				consumed := originalLen - inputBuf.Available()
				if consumed > 0 {
					inputBuffer.Pop(consumed)
				}
			}

			// Square waves and note ends first, then start any due notes
			core.ProcessTimers()
			core.BuzzerTask()

			if len(outputBuffer.Result()) > 0 {
				writeUSB()
				messagesSent++
			}

			// After the ACK has gone out
			core.CheckPendingReset()
		}()

		time.Sleep(10 * time.Microsecond)
	}
}

// usbReaderLoop moves USB bytes into inputBuffer
func usbReaderLoop() {
	defer func() {
		if r := recover(); r != nil {
			msgerrors++
			time.Sleep(100 * time.Millisecond)
			go usbReaderLoop()
		}
	}()

	for {
		if USBAvailable() > 0 {
			data, err := USBRead()
			if err != nil {
				msgerrors++
				time.Sleep(1 * time.Millisecond)
				continue
			}

			// First byte after a disconnect starts a fresh session
			if usbWasDisconnected {
				usbWasDisconnected = false
				inputBuffer.Reset()
				outputBuffer.Reset()
				transport.Reset()
				core.ResetFirmwareState()
				messagesReceived = 0
				messagesSent = 0
				consecutiveWriteFailures = 0
			}

			if inputBuffer.Write([]byte{data}) == 0 {
				msgerrors++
				time.Sleep(10 * time.Millisecond)
			}
		}
		time.Sleep(100 * time.Microsecond)
	}
}

func handleCommand(cmdID uint16, data *[]byte) error {
	return core.DispatchCommand(cmdID, data)
}

// registerRP2040Pins names GPIO 0-29 for the host's pin enumeration
func registerRP2040Pins() {
	pinNames := make([]string, numGPIO)
	for i := range pinNames {
		pinNames[i] = "gpio" + strconv.Itoa(i)
	}
	core.RegisterEnumeration("pin", pinNames)
}

// writeUSB drains outputBuffer. Repeated failures mean the host went
// away, so stale output is dropped.
func writeUSB() {
	result := outputBuffer.Result()
	written := 0
	for written < len(result) {
		n, err := USBWriteBytes(result[written:])
		if err != nil || n == 0 {
			consecutiveWriteFailures++
			if consecutiveWriteFailures > 10 {
				usbWasDisconnected = true
				consecutiveWriteFailures = 0
				outputBuffer.Reset()
				inputBuffer.Reset()
			}
			return
		}
		written += n
	}
	consecutiveWriteFailures = 0
	lastWriteSuccess = core.GetUptime()
	outputBuffer.Reset()
}
