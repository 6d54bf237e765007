// Package tinycompress writes zlib streams made of stored (uncompressed)
// DEFLATE blocks. The output is readable by any zlib decoder, and the
// writer needs no tables or hashing state, which keeps it small enough for
// the firmware's data dictionary.
package tinycompress

import (
	"hash/adler32"
	"io"
)

// maxStoredBlock is the largest payload of one stored DEFLATE block
const maxStoredBlock = 0xFFFF

// Writer buffers everything written to it and emits the zlib stream on
// Close
type Writer struct {
	output io.Writer
	buf    []byte
}

// NewWriter creates a Writer that reserves sizeHint bytes up front. The
// dictionary is built once at boot, so reserving avoids growing the buffer
// while the heap is fragmented.
func NewWriter(w io.Writer, sizeHint int) *Writer {
	return &Writer{
		output: w,
		buf:    make([]byte, 0, sizeHint),
	}
}

// Write implements io.Writer
func (w *Writer) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

// Close writes the header, the stored blocks and the Adler-32 trailer
func (w *Writer) Close() error {
	if _, err := w.output.Write([]byte{0x78, 0x01}); err != nil {
		return err
	}

	data := w.buf
	for {
		n := len(data)
		final := byte(1)
		if n > maxStoredBlock {
			n = maxStoredBlock
			final = 0
		}
		length := uint16(n)
		header := []byte{final, byte(length), byte(length >> 8), byte(^length), byte(^length >> 8)}
		if _, err := w.output.Write(header); err != nil {
			return err
		}
		if _, err := w.output.Write(data[:n]); err != nil {
			return err
		}
		data = data[n:]
		if final == 1 {
			break
		}
	}

	sum := adler32.Checksum(w.buf)
	_, err := w.output.Write([]byte{byte(sum >> 24), byte(sum >> 16), byte(sum >> 8), byte(sum)})
	return err
}
