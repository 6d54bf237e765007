package protocol

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrTransportClosed = errors.New("transport stopped")
	ErrNak             = errors.New("frame rejected by mcu")
)

// DefaultAckTimeout bounds how long SendCommand waits for an ACK
const DefaultAckTimeout = 2 * time.Second

// ResponseHandler is called from the read loop for every response frame
type ResponseHandler func(cmdID uint16, data *[]byte) error

// HostTransport is the host side of the link. It sends one command frame
// at a time, waits for the acknowledgement and queues responses.
type HostTransport struct {
	frameScanner

	port       io.ReadWriteCloser
	currentSeq uint32 // atomic, 0x10-0x1F

	input *FifoBuffer

	ackChan      chan Message
	responseChan chan Message

	handlerMu       sync.RWMutex
	responseHandler ResponseHandler

	writeMutex sync.Mutex
	stopOnce   sync.Once
	stopChan   chan struct{}
	doneChan   chan struct{}
}

// NewHostTransport creates a host transport and starts its read loop
func NewHostTransport(port io.ReadWriteCloser) *HostTransport {
	t := &HostTransport{
		port:         port,
		currentSeq:   MessageDest,
		input:        NewFifoBuffer(1024),
		ackChan:      make(chan Message, 1),
		responseChan: make(chan Message, 16),
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
	t.setSynchronized(true)

	go t.readLoop()

	return t
}

// SendCommand sends a command and waits for its ACK
func (t *HostTransport) SendCommand(cmdID uint16, args func(output OutputBuffer)) error {
	return t.SendCommandWithTimeout(cmdID, args, DefaultAckTimeout)
}

// SendCommandWithTimeout sends a command with a custom ACK timeout
func (t *HostTransport) SendCommandWithTimeout(cmdID uint16, args func(output OutputBuffer), timeout time.Duration) error {
	t.writeMutex.Lock()
	defer t.writeMutex.Unlock()

	msg, err := t.buildCommandMessage(cmdID, args)
	if err != nil {
		return fmt.Errorf("failed to build command: %w", err)
	}

	n, err := t.port.Write(msg)
	if err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if n != len(msg) {
		return fmt.Errorf("incomplete write: %d/%d bytes", n, len(msg))
	}

	if err := t.waitForAck(timeout); err != nil {
		return fmt.Errorf("command %d: %w", cmdID, err)
	}
	return nil
}

// buildCommandMessage frames cmdID and its arguments with the current
// sequence number
func (t *HostTransport) buildCommandMessage(cmdID uint16, args func(output OutputBuffer)) ([]byte, error) {
	payload := NewScratchOutput()
	EncodeVLQUint(payload, uint32(cmdID))
	if args != nil {
		args(payload)
	}
	if len(payload.Result()) > MessagePayloadMax {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFrameTooLong, len(payload.Result()), MessagePayloadMax)
	}

	out := NewScratchOutput()
	EncodeFrame(out, t.GetCurrentSequence(), func(output OutputBuffer) {
		output.Output(payload.Result())
	})

	msg := make([]byte, len(out.Result()))
	copy(msg, out.Result())
	return msg, nil
}

// waitForAck waits for the MCU to acknowledge the last frame. The MCU
// answers with the next sequence it expects; anything else is a NAK.
func (t *HostTransport) waitForAck(timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ack := <-t.ackChan:
		current := t.GetCurrentSequence()
		want := nextSeq(current)
		if ack.Sequence != want {
			return fmt.Errorf("%w: expected 0x%02x, got 0x%02x", ErrNak, want, ack.Sequence)
		}
		atomic.StoreUint32(&t.currentSeq, uint32(want))
		return nil

	case <-timer.C:
		return fmt.Errorf("ACK timeout after %v", timeout)

	case <-t.stopChan:
		return ErrTransportClosed
	}
}

// ReceiveResponse returns the next queued response frame
func (t *HostTransport) ReceiveResponse(timeout time.Duration) (*Message, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-t.responseChan:
		return &resp, nil
	case <-timer.C:
		return nil, fmt.Errorf("response timeout after %v", timeout)
	case <-t.stopChan:
		return nil, ErrTransportClosed
	}
}

// SetResponseHandler sets a callback for responses. It runs on the read
// loop goroutine, in addition to the response queue.
func (t *HostTransport) SetResponseHandler(handler ResponseHandler) {
	t.handlerMu.Lock()
	defer t.handlerMu.Unlock()
	t.responseHandler = handler
}

func (t *HostTransport) readLoop() {
	defer close(t.doneChan)

	buf := make([]byte, 256)
	for {
		select {
		case <-t.stopChan:
			return
		default:
		}

		n, err := t.port.Read(buf)
		if n > 0 {
			t.input.Write(buf[:n])
			consumed := t.scan(t.input.Data(), nil, t.dispatchMessage)
			t.input.Pop(consumed)
		}
		if err != nil {
			if err == io.EOF || errors.Is(err, io.ErrClosedPipe) {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// dispatchMessage routes an empty frame to the ACK channel and anything
// else to the response handler and queue
func (t *HostTransport) dispatchMessage(msg Message) {
	payload := make([]byte, len(msg.Payload))
	copy(payload, msg.Payload)
	msg.Payload = payload

	if len(payload) == 0 {
		select {
		case t.ackChan <- msg:
		default:
		}
		return
	}

	t.handlerMu.RLock()
	handler := t.responseHandler
	t.handlerMu.RUnlock()
	if handler != nil {
		data := payload
		if cmdID, err := DecodeVLQUint(&data); err == nil {
			_ = handler(uint16(cmdID), &data)
		}
	}

	// Drop the oldest queued response rather than block the reader
	for {
		select {
		case t.responseChan <- msg:
			return
		default:
		}
		select {
		case <-t.responseChan:
		default:
		}
	}
}

// Close stops the read loop and closes the port
func (t *HostTransport) Close() error {
	var err error
	t.stopOnce.Do(func() {
		close(t.stopChan)
		if t.port != nil {
			err = t.port.Close()
		}
		<-t.doneChan
	})
	return err
}

// Reset clears sequence state and drops queued frames
func (t *HostTransport) Reset() {
	t.setSynchronized(true)
	atomic.StoreUint32(&t.currentSeq, MessageDest)
	for len(t.ackChan) > 0 {
		<-t.ackChan
	}
	for len(t.responseChan) > 0 {
		<-t.responseChan
	}
}

// GetCurrentSequence returns the sequence of the next command frame
func (t *HostTransport) GetCurrentSequence() uint8 {
	return uint8(atomic.LoadUint32(&t.currentSeq))
}
