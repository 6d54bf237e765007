// Package protocol implements the framed serial protocol spoken between
// gopiezo firmware and its host tools
package protocol

// Version represents the gopiezo firmware version
const Version = "0.2.0"

// Frame layout
//
//	<len> <seq> <payload...> <crc hi> <crc lo> <sync>
const (
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePayloadMax  = MessageLengthMax - MessageLengthMin
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E
	MessageDest        = 0x10

	// MessageMax is the scratch output size; several frames may be
	// queued before a flush
	MessageMax = 512

	MessageSeqMask = 0x0F
)

// nextSeq advances a sequence number within the 0x10-0x1F window
func nextSeq(seq uint8) uint8 {
	return ((seq + 1) & MessageSeqMask) | MessageDest
}
