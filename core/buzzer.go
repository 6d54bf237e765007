package core

import (
	"errors"

	"gopiezo/protocol"
)

// BuzzerSongMax is the most notes a song uploaded over the wire can hold
const BuzzerSongMax = 128

const buzzerUploadValues = 1 + 2*BuzzerSongMax

var (
	ErrShutdown     = errors.New("firmware is shut down")
	ErrUnknownOID   = errors.New("unknown buzzer oid")
	ErrOIDInUse     = errors.New("oid already configured")
	ErrSongTooLong  = errors.New("song upload exceeds BUZZER_SONG_MAX")
	ErrUploadFormat = errors.New("song upload data is not a VLQ list")
)

// Buzzer is a configured buzzer object: a Musical plus the staging
// buffer that songs are uploaded into
type Buzzer struct {
	OID     uint8
	Musical *Musical
	upload  [buzzerUploadValues]int
	loaded  int // values written since the last song started
	playing bool
}

var buzzers = make(map[uint8]*Buzzer)

// InitBuzzerCommands registers the buzzer commands and responses
func InitBuzzerCommands() {
	RegisterCommand("config_buzzer", "oid=%c pin=%u", handleConfigBuzzer)
	RegisterCommand("buzzer_set_bpm", "oid=%c bpm=%hu", handleBuzzerSetBPM)
	RegisterCommand("buzzer_play_note", "oid=%c frequency=%u duration=%u", handleBuzzerPlayNote)
	RegisterCommand("buzzer_load_song", "oid=%c offset=%hu data=%*s", handleBuzzerLoadSong)
	RegisterCommand("buzzer_play_song", "oid=%c length=%hu", handleBuzzerPlaySong)
	RegisterCommand("query_buzzer", "oid=%c", handleQueryBuzzer)

	RegisterResponse("buzzer_state", "oid=%c bpm=%hu note=%hu length=%hu state=%c")
	RegisterResponse("buzzer_done", "oid=%c")

	RegisterConstant("BUZZER_SONG_MAX", uint32(BuzzerSongMax))
}

// ConfigureBuzzer creates buzzer oid on pin using the registered tone
// driver. Standalone mode calls it directly.
func ConfigureBuzzer(oid uint8, pin TonePin) (*Buzzer, error) {
	if _, exists := buzzers[oid]; exists {
		return nil, ErrOIDInUse
	}
	driver := MustTone()
	if err := driver.ConfigureTone(pin); err != nil {
		return nil, err
	}
	m := NewMusical(driver, SystemClock{})
	m.SetBuzzerPin(pin)
	m.OID = oid
	b := &Buzzer{OID: oid, Musical: m}
	buzzers[oid] = b
	return b, nil
}

// GetBuzzer returns the buzzer configured as oid
func GetBuzzer(oid uint8) (*Buzzer, bool) {
	b, ok := buzzers[oid]
	return b, ok
}

func decodeBuzzer(data *[]byte) (*Buzzer, error) {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return nil, err
	}
	b, ok := buzzers[uint8(oid)]
	if !ok {
		return nil, ErrUnknownOID
	}
	return b, nil
}

func handleConfigBuzzer(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	pin, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	_, err = ConfigureBuzzer(uint8(oid), TonePin(pin))
	return err
}

func handleBuzzerSetBPM(data *[]byte) error {
	b, err := decodeBuzzer(data)
	if err != nil {
		return err
	}
	bpm, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	return b.Musical.SetBPM(int(bpm))
}

func handleBuzzerPlayNote(data *[]byte) error {
	b, err := decodeBuzzer(data)
	if err != nil {
		return err
	}
	frequency, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	duration, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	if IsShutdown() {
		return ErrShutdown
	}
	return b.Musical.PlayNote(frequency, duration)
}

// buzzer_load_song writes a run of VLQ-encoded values into the upload
// buffer starting at value index offset
func handleBuzzerLoadSong(data *[]byte) error {
	b, err := decodeBuzzer(data)
	if err != nil {
		return err
	}
	offset, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	values, err := protocol.DecodeVLQBytes(data)
	if err != nil {
		return err
	}
	return b.Load(int(offset), values)
}

// Load decodes VLQ values into the upload buffer at value index offset.
// The whole run is checked before anything is written.
func (b *Buzzer) Load(offset int, values []byte) error {
	count := 0
	for rest := values; len(rest) > 0; count++ {
		if _, err := protocol.DecodeVLQInt(&rest); err != nil {
			return ErrUploadFormat
		}
	}
	if offset < 0 || offset+count > len(b.upload) {
		return ErrSongTooLong
	}
	for i := 0; i < count; i++ {
		v, _ := protocol.DecodeVLQInt(&values)
		b.upload[offset+i] = int(v)
	}
	if offset+count > b.loaded {
		b.loaded = offset + count
	}
	return nil
}

func handleBuzzerPlaySong(data *[]byte) error {
	b, err := decodeBuzzer(data)
	if err != nil {
		return err
	}
	length, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	if length > BuzzerSongMax {
		return ErrSongTooLong
	}
	if IsShutdown() {
		return ErrShutdown
	}
	return b.PlayUploaded(int(length))
}

// PlayUploaded starts the song held in the upload buffer. Only values
// loaded since the previous song count, so a length past the upload is
// ErrMalformedSequence.
func (b *Buzzer) PlayUploaded(length int) error {
	if err := b.Musical.PlaySequence(b.upload[:b.loaded], length); err != nil {
		return err
	}
	b.loaded = 0
	b.playing = length > 0
	return nil
}

func handleQueryBuzzer(data *[]byte) error {
	b, err := decodeBuzzer(data)
	if err != nil {
		return err
	}
	m := b.Musical
	SendResponse("buzzer_state", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(b.OID))
		protocol.EncodeVLQUint(output, uint32(m.BPM()))
		protocol.EncodeVLQUint(output, uint32(m.CurrentNote()))
		protocol.EncodeVLQUint(output, uint32(m.SongLength()))
		protocol.EncodeVLQUint(output, uint32(m.State()))
	})
	return nil
}

// BuzzerTask advances every buzzer's song. Call it from the main loop;
// it reports buzzer_done once a song has played its last note.
func BuzzerTask() {
	for oid, b := range buzzers {
		b.Musical.Update()
		if b.playing && b.Musical.CurrentNote() >= b.Musical.SongLength() {
			b.playing = false
			SendResponse("buzzer_done", func(output protocol.OutputBuffer) {
				protocol.EncodeVLQUint(output, uint32(oid))
			})
		}
	}
}

// ShutdownAllBuzzers silences every buzzer and drops its song
func ShutdownAllBuzzers() {
	if len(buzzers) == 0 {
		return
	}
	driver := MustTone()
	for oid, b := range buzzers {
		b.Musical.Stop()
		b.playing = false
		if err := driver.NoTone(b.Musical.Pin()); err != nil {
			DebugPrintln("[BUZZER] silence oid=" + itoa(int(oid)) + " failed: " + err.Error())
		}
		RecordTiming(EvtShutdown, oid, Millis(), 0, 0)
	}
}

// ResetBuzzers silences and forgets every buzzer. A driver that can
// release its pins gets them back.
func ResetBuzzers() {
	if len(buzzers) > 0 {
		ShutdownAllBuzzers()
		if r, ok := MustTone().(ToneReleaser); ok {
			r.Release()
		}
	}
	buzzers = make(map[uint8]*Buzzer)
}
