package protocol

import (
	"errors"
	"sync/atomic"
)

var (
	ErrFrameIncomplete = errors.New("frame incomplete")
	ErrFrameCorrupt    = errors.New("frame corrupt")
	ErrFrameTooLong    = errors.New("frame payload too long")
)

// Message is one decoded frame
type Message struct {
	Length   uint8
	Sequence uint8
	Payload  []byte // aliases the receive buffer
	CRC      uint16
}

// ParseFrame decodes the frame at the start of data. It returns
// ErrFrameIncomplete when more bytes are needed and ErrFrameCorrupt when the
// header, trailer or CRC is wrong.
func ParseFrame(data []byte) (Message, int, error) {
	if len(data) < MessageLengthMin {
		return Message{}, 0, ErrFrameIncomplete
	}
	n := int(data[MessagePositionLen])
	if n < MessageLengthMin || n > MessageLengthMax {
		return Message{}, 0, ErrFrameCorrupt
	}
	seq := data[MessagePositionSeq]
	if seq&^MessageSeqMask != MessageDest {
		return Message{}, 0, ErrFrameCorrupt
	}
	if len(data) < n {
		return Message{}, 0, ErrFrameIncomplete
	}
	if data[n-MessageTrailerSync] != MessageValueSync {
		return Message{}, 0, ErrFrameCorrupt
	}
	crc := uint16(data[n-MessageTrailerCRC])<<8 | uint16(data[n-MessageTrailerCRC+1])
	if crc != CRC16(data[:n-MessageTrailerSize]) {
		return Message{}, 0, ErrFrameCorrupt
	}
	return Message{
		Length:   uint8(n),
		Sequence: seq,
		Payload:  data[MessageHeaderSize : n-MessageTrailerSize],
		CRC:      crc,
	}, n, nil
}

// EncodeFrame writes one complete frame with the given sequence byte
func EncodeFrame(output OutputBuffer, seq uint8, payload func(output OutputBuffer)) {
	start := output.CurPosition()
	output.Output([]byte{0, seq})
	if payload != nil {
		payload(output)
	}
	output.Update(start, uint8(len(output.DataSince(start))+MessageTrailerSize))

	var trailer [MessageTrailerSize]byte
	output.Output(appendCRC(trailer[:0], output.DataSince(start)))
}

// frameScanner holds the receive synchronization state shared by the
// firmware and host transports
type frameScanner struct {
	synchronized uint32 // atomic bool
}

func (s *frameScanner) isSynchronized() bool {
	return atomic.LoadUint32(&s.synchronized) != 0
}

func (s *frameScanner) setSynchronized(v bool) {
	if v {
		atomic.StoreUint32(&s.synchronized, 1)
	} else {
		atomic.StoreUint32(&s.synchronized, 0)
	}
}

// scan walks data, calling onFrame for every valid frame and onResync when
// a sync byte recovers a lost stream. It returns the bytes consumed; a
// trailing partial frame is left in place.
func (s *frameScanner) scan(data []byte, onResync func(), onFrame func(Message)) int {
	total := len(data)
	for len(data) > 0 {
		if !s.isSynchronized() {
			i := 0
			for i < len(data) && data[i] != MessageValueSync {
				i++
			}
			if i == len(data) {
				data = nil
				break
			}
			data = data[i+1:]
			s.setSynchronized(true)
			if onResync != nil {
				onResync()
			}
			continue
		}

		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}

		msg, n, err := ParseFrame(data)
		if err == ErrFrameIncomplete {
			break
		}
		if err != nil {
			s.setSynchronized(false)
			continue
		}
		data = data[n:]
		onFrame(msg)
	}
	return total - len(data)
}
