package core

import (
	"bytes"
	"compress/zlib"
	"errors"
	"io"
	"strings"
	"testing"

	"gopiezo/protocol"
)

// response is a decoded MCU to host message
type response struct {
	Name string
	Args []uint32
}

type buzzerFixture struct {
	driver *MockToneDriver
	output *protocol.ScratchOutput
}

func setupBuzzerTest(t *testing.T) *buzzerFixture {
	t.Helper()
	f := &buzzerFixture{
		driver: NewMockToneDriver(),
		output: protocol.NewScratchOutput(),
	}
	SetToneDriver(f.driver)
	ResetBuzzers()
	ResetRegistry()
	ResetFirmwareState()
	TimerInit()
	InitCoreCommands()
	InitBuzzerCommands()
	SetGlobalTransport(protocol.NewTransport(f.output, DispatchCommand))
	t.Cleanup(func() { SetGlobalTransport(nil) })
	return f
}

func dispatch(t *testing.T, name string, args ...uint32) error {
	t.Helper()
	cmd, ok := GetGlobalRegistry().GetCommandByName(name)
	if !ok {
		t.Fatalf("command %s not registered", name)
	}
	out := protocol.NewScratchOutput()
	for _, a := range args {
		protocol.EncodeVLQUint(out, a)
	}
	data := out.Result()
	return GetGlobalRegistry().Dispatch(cmd.ID, &data)
}

// responses decodes every frame written so far and clears the output.
// Only integer arguments are decoded; data fields are skipped.
func (f *buzzerFixture) responses(t *testing.T) []response {
	t.Helper()
	var out []response
	data := f.output.Result()
	for len(data) > 0 {
		msg, n, err := protocol.ParseFrame(data)
		if err != nil {
			t.Fatalf("bad frame in output: %v", err)
		}
		data = data[n:]
		payload := msg.Payload
		if len(payload) == 0 {
			continue
		}
		id, _ := protocol.DecodeVLQUint(&payload)
		cmd, ok := GetGlobalRegistry().GetCommand(uint16(id))
		if !ok {
			t.Fatalf("response id %d not registered", id)
		}
		r := response{Name: cmd.Name}
		for len(payload) > 0 && !strings.Contains(cmd.Format, "%*s") {
			v, err := protocol.DecodeVLQUint(&payload)
			if err != nil {
				t.Fatalf("%s: %v", cmd.Name, err)
			}
			r.Args = append(r.Args, v)
		}
		out = append(out, r)
	}
	f.output.Reset()
	return out
}

func advanceMS(ms uint32) {
	SetTime(GetTime() + TimerFromMS(ms))
}

func uploadSong(t *testing.T, oid uint8, values []int32, chunk int) {
	t.Helper()
	for start := 0; start < len(values); start += chunk {
		end := start + chunk
		if end > len(values) {
			end = len(values)
		}
		var enc []byte
		for _, v := range values[start:end] {
			enc = protocol.AppendVLQInt(enc, v)
		}
		cmd, _ := GetGlobalRegistry().GetCommandByName("buzzer_load_song")
		out := protocol.NewScratchOutput()
		protocol.EncodeVLQUint(out, uint32(oid))
		protocol.EncodeVLQUint(out, uint32(start))
		protocol.EncodeVLQBytes(out, enc)
		data := out.Result()
		if err := GetGlobalRegistry().Dispatch(cmd.ID, &data); err != nil {
			t.Fatalf("buzzer_load_song at %d: %v", start, err)
		}
	}
}

func TestConfigBuzzer(t *testing.T) {
	f := setupBuzzerTest(t)

	if err := dispatch(t, "config_buzzer", 2, 15); err != nil {
		t.Fatalf("config_buzzer: %v", err)
	}
	if !f.driver.configured[15] {
		t.Error("pin 15 not configured on the tone driver")
	}
	b, ok := GetBuzzer(2)
	if !ok || b.Musical.Pin() != 15 {
		t.Fatalf("buzzer not created on pin 15")
	}
	if err := dispatch(t, "config_buzzer", 2, 16); !errors.Is(err, ErrOIDInUse) {
		t.Errorf("reconfigure: %v, want ErrOIDInUse", err)
	}
	if err := dispatch(t, "buzzer_set_bpm", 9, 120); !errors.Is(err, ErrUnknownOID) {
		t.Errorf("unknown oid: %v", err)
	}
}

func TestBuzzerPlayNoteAndTempo(t *testing.T) {
	f := setupBuzzerTest(t)
	dispatch(t, "config_buzzer", 0, 4)

	if err := dispatch(t, "buzzer_set_bpm", 0, 0); !errors.Is(err, ErrInvalidTempo) {
		t.Errorf("bpm 0: %v", err)
	}
	if err := dispatch(t, "buzzer_set_bpm", 0, 60); err != nil {
		t.Fatal(err)
	}
	b, _ := GetBuzzer(0)
	if b.Musical.Durations().Quarter != 1000 {
		t.Errorf("quarter = %d", b.Musical.Durations().Quarter)
	}

	if err := dispatch(t, "buzzer_play_note", 0, 880, 125); err != nil {
		t.Fatal(err)
	}
	if len(f.driver.calls) != 1 || f.driver.calls[0] != (toneCall{4, 880, 125}) {
		t.Errorf("calls = %+v", f.driver.calls)
	}
}

func TestBuzzerUploadAndPlay(t *testing.T) {
	f := setupBuzzerTest(t)
	dispatch(t, "config_buzzer", 1, 7)

	song := []int32{120, 440, 500, 0, 250, 523, 500}
	uploadSong(t, 1, song, 3)
	if err := dispatch(t, "buzzer_play_song", 1, 3); err != nil {
		t.Fatalf("buzzer_play_song: %v", err)
	}

	BuzzerTask()
	advanceMS(499)
	BuzzerTask()
	advanceMS(1)
	BuzzerTask()
	advanceMS(250)
	BuzzerTask()

	want := []toneCall{{7, 440, 500}, {7, 0, 250}, {7, 523, 500}}
	if len(f.driver.calls) != len(want) {
		t.Fatalf("calls = %+v, want %+v", f.driver.calls, want)
	}
	for i := range want {
		if f.driver.calls[i] != want[i] {
			t.Errorf("call %d = %+v, want %+v", i, f.driver.calls[i], want[i])
		}
	}

	var done int
	for _, r := range f.responses(t) {
		if r.Name == "buzzer_done" {
			done++
			if len(r.Args) != 1 || r.Args[0] != 1 {
				t.Errorf("buzzer_done args %v", r.Args)
			}
		}
	}
	if done != 1 {
		t.Errorf("buzzer_done sent %d times, want 1", done)
	}

	BuzzerTask()
	for _, r := range f.responses(t) {
		if r.Name == "buzzer_done" {
			t.Error("buzzer_done repeated")
		}
	}
}

func TestBuzzerUploadBounds(t *testing.T) {
	setupBuzzerTest(t)
	dispatch(t, "config_buzzer", 1, 7)
	b, _ := GetBuzzer(1)

	if err := b.Load(buzzerUploadValues-1, protocol.AppendVLQInt(nil, 5)); err != nil {
		t.Errorf("last slot: %v", err)
	}
	enc := protocol.AppendVLQInt(protocol.AppendVLQInt(nil, 5), 6)
	if err := b.Load(buzzerUploadValues-1, enc); !errors.Is(err, ErrSongTooLong) {
		t.Errorf("past the end: %v", err)
	}
	if err := b.Load(0, []byte{0x80, 0x80}); !errors.Is(err, ErrUploadFormat) {
		t.Errorf("truncated value: %v", err)
	}
	if err := dispatch(t, "buzzer_play_song", 1, BuzzerSongMax+1); !errors.Is(err, ErrSongTooLong) {
		t.Errorf("length over max: %v", err)
	}

	// A zero tempo in slot 0 is refused and nothing starts
	b.upload[0] = 0
	if err := dispatch(t, "buzzer_play_song", 1, 1); !errors.Is(err, ErrInvalidTempo) {
		t.Errorf("zero tempo: %v", err)
	}
	if b.playing {
		t.Error("rejected song marked as playing")
	}
}

func TestBuzzerPlayPastUpload(t *testing.T) {
	f := setupBuzzerTest(t)
	dispatch(t, "config_buzzer", 1, 7)
	b, _ := GetBuzzer(1)

	uploadSong(t, 1, []int32{120, 440, 100}, 8)
	if err := dispatch(t, "buzzer_play_song", 1, 5); !errors.Is(err, ErrMalformedSequence) {
		t.Fatalf("length past upload: %v, want ErrMalformedSequence", err)
	}
	if b.Musical.SongLength() != 0 || b.playing {
		t.Error("rejected song was loaded")
	}

	// A long song, then a shorter upload: the old tail must not play
	uploadSong(t, 1, []int32{120, 440, 100, 523, 100, 659, 100}, 8)
	if err := dispatch(t, "buzzer_play_song", 1, 3); err != nil {
		t.Fatal(err)
	}
	uploadSong(t, 1, []int32{120, 880, 100}, 8)
	if err := dispatch(t, "buzzer_play_song", 1, 3); !errors.Is(err, ErrMalformedSequence) {
		t.Errorf("stale values played: %v", err)
	}
	if err := dispatch(t, "buzzer_play_song", 1, 1); err != nil {
		t.Fatal(err)
	}
	BuzzerTask()
	last := f.driver.calls[len(f.driver.calls)-1]
	if last != (toneCall{7, 880, 100}) {
		t.Errorf("played %+v, want 880 Hz", last)
	}
}

func TestBuzzerLoadBadValueWritesNothing(t *testing.T) {
	setupBuzzerTest(t)
	dispatch(t, "config_buzzer", 1, 7)
	b, _ := GetBuzzer(1)

	enc := protocol.AppendVLQInt(protocol.AppendVLQInt(nil, 90), 440)
	enc = append(enc, 0x80)
	if err := b.Load(0, enc); !errors.Is(err, ErrUploadFormat) {
		t.Fatalf("bad tail: %v", err)
	}
	if b.upload[0] != 0 || b.upload[1] != 0 {
		t.Errorf("partial write %v", b.upload[:2])
	}
	if b.loaded != 0 {
		t.Errorf("loaded = %d after failed upload", b.loaded)
	}
}

func TestQueryBuzzer(t *testing.T) {
	f := setupBuzzerTest(t)
	dispatch(t, "config_buzzer", 3, 9)
	uploadSong(t, 3, []int32{100, 262, 600, 294, 600}, 8)
	dispatch(t, "buzzer_play_song", 3, 2)
	BuzzerTask()
	f.responses(t)

	if err := dispatch(t, "query_buzzer", 3); err != nil {
		t.Fatal(err)
	}
	rs := f.responses(t)
	if len(rs) != 1 || rs[0].Name != "buzzer_state" {
		t.Fatalf("responses %+v", rs)
	}
	want := []uint32{3, 100, 1, 2, uint32(StateWaiting)}
	for i, v := range want {
		if rs[0].Args[i] != v {
			t.Errorf("buzzer_state arg %d = %d, want %d", i, rs[0].Args[i], v)
		}
	}
}

func TestEmergencyStopSilencesBuzzers(t *testing.T) {
	f := setupBuzzerTest(t)
	dispatch(t, "config_buzzer", 0, 4)
	dispatch(t, "config_buzzer", 1, 5)
	uploadSong(t, 0, []int32{120, 440, 100, 440, 100}, 8)
	dispatch(t, "buzzer_play_song", 0, 2)
	BuzzerTask()

	if err := dispatch(t, "emergency_stop"); err != nil {
		t.Fatal(err)
	}
	if !IsShutdown() {
		t.Fatal("not shut down")
	}
	if len(f.driver.silenced) != 2 {
		t.Errorf("silenced %v, want both pins", f.driver.silenced)
	}

	calls := len(f.driver.calls)
	advanceMS(1000)
	BuzzerTask()
	if len(f.driver.calls) != calls {
		t.Error("song kept playing after emergency_stop")
	}
	if err := dispatch(t, "buzzer_play_note", 1, 440, 10); !errors.Is(err, ErrShutdown) {
		t.Errorf("play_note in shutdown: %v", err)
	}
	if err := dispatch(t, "buzzer_play_song", 0, 2); !errors.Is(err, ErrShutdown) {
		t.Errorf("play_song in shutdown: %v", err)
	}

	if err := dispatch(t, "config_reset"); err != nil {
		t.Fatal(err)
	}
	if IsShutdown() {
		t.Error("config_reset did not clear shutdown")
	}
	if _, ok := GetBuzzer(0); ok {
		t.Error("config_reset kept buzzer objects")
	}
	if f.driver.released != 1 || len(f.driver.configured) != 0 {
		t.Errorf("config_reset released %d times, %d pins still claimed",
			f.driver.released, len(f.driver.configured))
	}
}

func TestIdentifyReturnsCompressedDictionary(t *testing.T) {
	f := setupBuzzerTest(t)
	GetGlobalDictionary().BuildDictionary()

	var compressed []byte
	for offset := uint32(0); ; {
		if err := dispatch(t, "identify", offset, 40); err != nil {
			t.Fatal(err)
		}
		msg, _, err := protocol.ParseFrame(f.output.Result())
		if err != nil {
			t.Fatal(err)
		}
		payload := msg.Payload
		protocol.DecodeVLQUint(&payload) // id
		got, _ := protocol.DecodeVLQUint(&payload)
		chunk, err := protocol.DecodeVLQBytes(&payload)
		if err != nil || got != offset {
			t.Fatalf("identify_response offset %d err %v", got, err)
		}
		f.output.Reset()
		if len(chunk) == 0 {
			break
		}
		compressed = append(compressed, chunk...)
		offset += uint32(len(chunk))
	}

	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		t.Fatal(err)
	}
	js, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`"config_buzzer oid=%c pin=%u":`,
		`"identify offset=%u count=%c":1`,
		`"identify_response offset=%u data=%*s":0`,
		`"buzzer_done oid=%c":`,
		`"BUZZER_SONG_MAX":"128"`,
	} {
		if !bytes.Contains(js, []byte(want)) {
			t.Errorf("dictionary missing %s\n%s", want, js)
		}
	}
}

func TestSetDebugAndDumpTiming(t *testing.T) {
	setupBuzzerTest(t)
	var lines []string
	SetDebugWriter(func(msg string) { lines = append(lines, msg) })
	defer SetDebugWriter(nil)
	defer SetDebugEnabled(false)

	if err := dispatch(t, "set_debug", 1); err != nil {
		t.Fatal(err)
	}
	if !IsDebugEnabled() {
		t.Fatal("set_debug enable=1 left debug off")
	}

	ClearTimingRing()
	dispatch(t, "config_buzzer", 0, 15)
	dispatch(t, "buzzer_set_bpm", 0, 90)
	if err := dispatch(t, "dump_timing"); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, l := range lines {
		if strings.Contains(l, "TEMPO") {
			found = true
		}
	}
	if !found {
		t.Errorf("tempo event missing from dump: %q", lines)
	}

	dispatch(t, "set_debug", 0)
	if IsDebugEnabled() {
		t.Error("set_debug enable=0 left debug on")
	}
}
