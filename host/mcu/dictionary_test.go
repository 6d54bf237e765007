package mcu

import (
	"errors"
	"testing"

	"gopiezo/protocol"
)

const testDictionary = `{"version":"gopiezo-test","build_versions":"go",
"config":{"BUZZER_SONG_MAX":"128","MCU":"rp2040"},
"commands":{"identify offset=%u count=%c":1,"buzzer_play_note oid=%c frequency=%u duration=%u":5},
"responses":{"identify_response offset=%u data=%*s":0,"buzzer_state oid=%c bpm=%hu note=%hu length=%hu state=%c":9}}`

func TestParseDictionaryIndexesByName(t *testing.T) {
	d, err := ParseDictionary([]byte(testDictionary))
	if err != nil {
		t.Fatal(err)
	}
	f, ok := d.Command("buzzer_play_note")
	if !ok || f.ID != 5 {
		t.Fatalf("buzzer_play_note = %+v, %v", f, ok)
	}
	if _, ok := d.Command("buzzer_play_note oid=%c frequency=%u duration=%u"); ok {
		t.Error("lookup by full signature should not match")
	}
	if v, ok := d.ConfigInt("MCU"); ok {
		t.Errorf("MCU parsed as int %d", v)
	}
}

func TestDecodeResponse(t *testing.T) {
	d, _ := ParseDictionary([]byte(testDictionary))

	out := protocol.NewScratchOutput()
	for _, v := range []uint32{3, 120, 2, 5, 1} {
		protocol.EncodeVLQUint(out, v)
	}
	r, err := d.DecodeResponse(9, out.Result())
	if err != nil {
		t.Fatal(err)
	}
	if r.Name != "buzzer_state" || r.Int("oid") != 3 || r.Int("bpm") != 120 || r.Int("state") != 1 {
		t.Errorf("decoded %v", r)
	}
	if got := r.String(); got != "buzzer_state oid=3 bpm=120 note=2 length=5 state=1" {
		t.Errorf("String() = %q", got)
	}

	out.Reset()
	protocol.EncodeVLQUint(out, 40)
	protocol.EncodeVLQBytes(out, []byte("{}"))
	r, err = d.DecodeResponse(0, out.Result())
	if err != nil || string(r.Data["data"]) != "{}" || r.Int("offset") != 40 {
		t.Errorf("identify_response %v, %v", r, err)
	}

	if _, err := d.DecodeResponse(77, nil); !errors.Is(err, ErrUnknownMessage) {
		t.Errorf("unknown id: %v", err)
	}
}

func TestEncodeArgs(t *testing.T) {
	d, _ := ParseDictionary([]byte(testDictionary))
	f, _ := d.Command("buzzer_play_note")

	args, err := f.EncodeArgs(map[string]string{"oid": "0", "frequency": "440", "duration": "0x100"})
	if err != nil {
		t.Fatal(err)
	}
	out := protocol.NewScratchOutput()
	args(out)
	data := out.Result()
	for _, want := range []uint32{0, 440, 256} {
		v, err := protocol.DecodeVLQUint(&data)
		if err != nil || v != want {
			t.Fatalf("got %d, %v; want %d", v, err, want)
		}
	}

	for _, params := range []map[string]string{
		{"oid": "0", "frequency": "440"},
		{"oid": "0", "frequency": "abc", "duration": "1"},
		{"oid": "0", "frequency": "440", "duration": "1", "volume": "3"},
	} {
		if _, err := f.EncodeArgs(params); !errors.Is(err, ErrBadParam) {
			t.Errorf("EncodeArgs(%v) = %v, want ErrBadParam", params, err)
		}
	}
}
