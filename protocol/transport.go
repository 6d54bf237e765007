package protocol

import "sync/atomic"

// CommandHandler is called for each command decoded from a frame. It must
// consume its own arguments from data.
type CommandHandler func(cmdID uint16, data *[]byte) error

// Transport is the firmware side of the link: it validates incoming
// frames, dispatches their commands, acknowledges them and frames
// responses into an OutputBuffer
type Transport struct {
	frameScanner
	nextSequence  uint32 // atomic, 0x10-0x1F
	output        OutputBuffer
	handler       CommandHandler
	resetCallback func()
	flushCallback func()
}

// NewTransport creates a new Transport instance
func NewTransport(output OutputBuffer, handler CommandHandler) *Transport {
	t := &Transport{
		nextSequence: MessageDest,
		output:       output,
		handler:      handler,
	}
	t.setSynchronized(true)
	return t
}

// Receive processes every complete frame available in input and pops the
// consumed bytes
func (t *Transport) Receive(input InputBuffer) {
	consumed := t.scan(input.Data(), t.encodeAckNak, t.receiveFrame)
	if consumed > 0 {
		input.Pop(consumed)
	}
}

func (t *Transport) receiveFrame(msg Message) {
	expected := t.sequence()

	// A host that restarts begins again at MessageDest
	if msg.Sequence == MessageDest && expected != MessageDest {
		atomic.StoreUint32(&t.nextSequence, MessageDest)
		expected = MessageDest
		if t.resetCallback != nil {
			t.resetCallback()
		}
	}

	if msg.Sequence == expected {
		atomic.StoreUint32(&t.nextSequence, uint32(nextSeq(expected)))
		_ = t.dispatch(msg.Payload)
	}

	// Acknowledge every frame; on a sequence mismatch this doubles as a
	// NAK carrying the expected sequence
	t.encodeAckNak()
}

// dispatch runs each command in the payload. A failing handler stops the
// rest of the frame but keeps the link synchronized.
func (t *Transport) dispatch(payload []byte) error {
	defer func() {
		if r := recover(); r != nil {
			t.setSynchronized(false)
		}
	}()

	for len(payload) > 0 {
		cmdID, err := DecodeVLQUint(&payload)
		if err != nil {
			t.setSynchronized(false)
			return err
		}
		if t.handler == nil {
			continue
		}
		if err := t.handler(uint16(cmdID), &payload); err != nil {
			return err
		}
	}
	return nil
}

// encodeAckNak writes an empty frame and flushes it immediately; the host
// waits for it before reading responses
func (t *Transport) encodeAckNak() {
	EncodeFrame(t.output, t.sequence(), nil)
	if t.flushCallback != nil {
		t.flushCallback()
	}
}

// SendCommand frames a message (usually a response) with its arguments.
// Responses reuse the current sequence; only received frames advance it.
func (t *Transport) SendCommand(cmdID uint16, args func(output OutputBuffer)) {
	EncodeFrame(t.output, t.sequence(), func(output OutputBuffer) {
		EncodeVLQUint(output, uint32(cmdID))
		if args != nil {
			args(output)
		}
	})
}

// Reset returns the transport to its power-on state
func (t *Transport) Reset() {
	t.setSynchronized(true)
	atomic.StoreUint32(&t.nextSequence, MessageDest)
	if t.resetCallback != nil {
		t.resetCallback()
	}
}

// SetResetCallback sets a callback to be called when host reset is detected
func (t *Transport) SetResetCallback(callback func()) {
	t.resetCallback = callback
}

// SetFlushCallback sets a callback that pushes acknowledgements out at once
func (t *Transport) SetFlushCallback(callback func()) {
	t.flushCallback = callback
}

func (t *Transport) sequence() uint8 {
	return uint8(atomic.LoadUint32(&t.nextSequence))
}
