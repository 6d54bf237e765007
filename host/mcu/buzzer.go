package mcu

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gopiezo/core"
	"gopiezo/protocol"
)

// Room left in a frame for buzzer_load_song data after the command ID,
// oid, offset and length prefix
const songChunkBytes = protocol.MessagePayloadMax - 8

const queryTimeout = time.Second

var ErrSongTooLong = errors.New("song longer than BUZZER_SONG_MAX")

// Buzzer drives one buzzer object on the MCU
type Buzzer struct {
	mcu *MCU
	OID uint8
	Pin uint32
}

// BuzzerState is the reply to query_buzzer
type BuzzerState struct {
	BPM         int
	CurrentNote int
	SongLength  int
	State       core.PlaybackState
}

// ConfigureBuzzer creates buzzer oid on pin
func (m *MCU) ConfigureBuzzer(oid uint8, pin uint32) (*Buzzer, error) {
	if err := m.Send("config_buzzer", uint32(oid), pin); err != nil {
		return nil, err
	}
	return &Buzzer{mcu: m, OID: oid, Pin: pin}, nil
}

// SetBPM changes the buzzer tempo
func (b *Buzzer) SetBPM(bpm int) error {
	if _, err := core.TempoDurations(bpm); err != nil {
		return err
	}
	return b.mcu.Send("buzzer_set_bpm", uint32(b.OID), uint32(bpm))
}

// PlayNote plays one note immediately
func (b *Buzzer) PlayNote(frequency, duration uint32) error {
	return b.mcu.Send("buzzer_play_note", uint32(b.OID), frequency, duration)
}

// PlaySequence uploads [bpm, note1, duration1, ...] and starts it
func (b *Buzzer) PlaySequence(sequence []int, length int) error {
	if _, err := core.ParseSequence(sequence, length); err != nil {
		return err
	}
	dict := b.mcu.GetDictionary()
	if dict == nil {
		return ErrNoDictionary
	}
	if max, ok := dict.ConfigInt("BUZZER_SONG_MAX"); ok && length > max {
		return fmt.Errorf("%w: %d notes, max %d", ErrSongTooLong, length, max)
	}

	values := sequence[:1+2*length]
	for _, chunk := range chunkValues(values, songChunkBytes) {
		err := b.mcu.SendCommand("buzzer_load_song", func(output protocol.OutputBuffer) {
			protocol.EncodeVLQUint(output, uint32(b.OID))
			protocol.EncodeVLQUint(output, uint32(chunk.offset))
			protocol.EncodeVLQBytes(output, chunk.data)
		})
		if err != nil {
			return err
		}
	}
	return b.mcu.Send("buzzer_play_song", uint32(b.OID), uint32(length))
}

// PlayAndWait plays a song and blocks until the MCU reports buzzer_done
func (b *Buzzer) PlayAndWait(ctx context.Context, sequence []int, length int) error {
	done, cancel := b.mcu.Subscribe("buzzer_done")
	defer cancel()

	if err := b.PlaySequence(sequence, length); err != nil {
		return err
	}
	if length == 0 {
		return nil
	}
	for {
		select {
		case r := <-done:
			if uint8(r.Int("oid")) == b.OID {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Query reads the buzzer's playback state
func (b *Buzzer) Query() (BuzzerState, error) {
	r, err := b.mcu.Query("query_buzzer", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(b.OID))
	}, "buzzer_state", func(r Response) bool {
		return uint8(r.Int("oid")) == b.OID
	}, queryTimeout)
	if err != nil {
		return BuzzerState{}, err
	}
	return BuzzerState{
		BPM:         int(r.Int("bpm")),
		CurrentNote: int(r.Int("note")),
		SongLength:  int(r.Int("length")),
		State:       core.PlaybackState(r.Int("state")),
	}, nil
}

type valueChunk struct {
	offset int
	data   []byte
}

// chunkValues VLQ-encodes values into runs of at most limit bytes
func chunkValues(values []int, limit int) []valueChunk {
	var chunks []valueChunk
	cur := valueChunk{}
	for i, v := range values {
		enc := protocol.AppendVLQInt(nil, int32(v))
		if len(cur.data)+len(enc) > limit {
			chunks = append(chunks, cur)
			cur = valueChunk{offset: i}
		}
		cur.data = append(cur.data, enc...)
	}
	if len(cur.data) > 0 {
		chunks = append(chunks, cur)
	}
	return chunks
}
