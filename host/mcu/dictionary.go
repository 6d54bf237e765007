package mcu

import (
	"bytes"
	"compress/zlib"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopiezo/protocol"
)

var (
	ErrUnknownMessage = errors.New("message not in dictionary")
	ErrBadParam       = errors.New("bad message parameter")
)

// Dictionary is the data dictionary read from the MCU
type Dictionary struct {
	Version       string                    `json:"version"`
	BuildVersions string                    `json:"build_versions"`
	Config        map[string]string         `json:"config"`
	Commands      map[string]int            `json:"commands"`
	Responses     map[string]int            `json:"responses"`
	Enumerations  map[string]map[string]int `json:"enumerations,omitempty"`

	commands  map[string]*MessageFormat // by name
	responses map[uint16]*MessageFormat // by id
}

// MessageFormat is one parsed dictionary signature such as
// "buzzer_state oid=%c bpm=%hu"
type MessageFormat struct {
	ID     uint16
	Name   string
	Params []Param
}

// Param is one name=%type field
type Param struct {
	Name  string
	Bytes bool // %*s and %.*s carry a byte string
}

// ParseDictionary decodes the dictionary, inflating it if it is zlib
// compressed, and indexes its messages by name
func ParseDictionary(data []byte) (*Dictionary, error) {
	if len(data) >= 2 && data[0] == 0x78 {
		r, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("inflate dictionary: %w", err)
		}
		data, err = io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("inflate dictionary: %w", err)
		}
	}

	d := &Dictionary{}
	if err := json.Unmarshal(data, d); err != nil {
		return nil, fmt.Errorf("decode dictionary: %w", err)
	}

	d.commands = make(map[string]*MessageFormat, len(d.Commands))
	for sig, id := range d.Commands {
		f, err := parseSignature(sig, id)
		if err != nil {
			return nil, err
		}
		d.commands[f.Name] = f
	}
	d.responses = make(map[uint16]*MessageFormat, len(d.Responses))
	for sig, id := range d.Responses {
		f, err := parseSignature(sig, id)
		if err != nil {
			return nil, err
		}
		d.responses[f.ID] = f
	}
	return d, nil
}

func parseSignature(sig string, id int) (*MessageFormat, error) {
	fields := strings.Fields(sig)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty signature for id %d", id)
	}
	f := &MessageFormat{ID: uint16(id), Name: fields[0]}
	for _, field := range fields[1:] {
		name, kind, ok := strings.Cut(field, "=")
		if !ok || !strings.HasPrefix(kind, "%") {
			return nil, fmt.Errorf("signature %q: bad field %q", sig, field)
		}
		f.Params = append(f.Params, Param{
			Name:  name,
			Bytes: kind == "%*s" || kind == "%.*s" || kind == "%s",
		})
	}
	return f, nil
}

// Command returns the format of the named command
func (d *Dictionary) Command(name string) (*MessageFormat, bool) {
	f, ok := d.commands[name]
	return f, ok
}

// ConfigInt returns a numeric dictionary constant
func (d *Dictionary) ConfigInt(name string) (int, bool) {
	v, ok := d.Config[name]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}

// Response is a decoded MCU to host message
type Response struct {
	Name   string
	Params map[string]int64
	Data   map[string][]byte

	order []string
}

// Int returns an integer parameter, 0 if absent
func (r Response) Int(name string) int64 {
	return r.Params[name]
}

// DecodeResponse decodes one response, payload starting after its ID
func (d *Dictionary) DecodeResponse(id uint16, payload []byte) (Response, error) {
	f, ok := d.responses[id]
	if !ok {
		return Response{}, fmt.Errorf("%w: response id %d", ErrUnknownMessage, id)
	}
	r := Response{Name: f.Name, Params: make(map[string]int64)}
	for _, p := range f.Params {
		r.order = append(r.order, p.Name)
		if p.Bytes {
			b, err := protocol.DecodeVLQBytes(&payload)
			if err != nil {
				return r, fmt.Errorf("%s %s: %w", f.Name, p.Name, err)
			}
			if r.Data == nil {
				r.Data = make(map[string][]byte)
			}
			r.Data[p.Name] = b
			continue
		}
		v, err := protocol.DecodeVLQInt(&payload)
		if err != nil {
			return r, fmt.Errorf("%s %s: %w", f.Name, p.Name, err)
		}
		// Unsigned 32-bit values arrive sign-extended
		r.Params[p.Name] = int64(uint32(v))
	}
	return r, nil
}

// EncodeArgs writes params in the order the command format lists them.
// Integer parameters are parsed from their text form.
func (f *MessageFormat) EncodeArgs(params map[string]string) (func(output protocol.OutputBuffer), error) {
	ints := make([]uint32, len(f.Params))
	for i, p := range f.Params {
		text, ok := params[p.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %s needs %s", ErrBadParam, f.Name, p.Name)
		}
		if p.Bytes {
			continue
		}
		v, err := strconv.ParseInt(text, 0, 64)
		if err != nil || v < -(1<<31) || v >= 1<<32 {
			return nil, fmt.Errorf("%w: %s=%q", ErrBadParam, p.Name, text)
		}
		ints[i] = uint32(v)
	}
	for name := range params {
		if !f.hasParam(name) {
			return nil, fmt.Errorf("%w: %s has no %s", ErrBadParam, f.Name, name)
		}
	}
	return func(output protocol.OutputBuffer) {
		for i, p := range f.Params {
			if p.Bytes {
				protocol.EncodeVLQBytes(output, []byte(params[p.Name]))
			} else {
				protocol.EncodeVLQUint(output, ints[i])
			}
		}
	}, nil
}

func (f *MessageFormat) hasParam(name string) bool {
	for _, p := range f.Params {
		if p.Name == name {
			return true
		}
	}
	return false
}

// String renders the response like a dictionary line with values
func (r Response) String() string {
	var sb strings.Builder
	sb.WriteString(r.Name)
	for _, name := range r.order {
		if b, ok := r.Data[name]; ok {
			fmt.Fprintf(&sb, " %s=%q", name, b)
		} else {
			fmt.Fprintf(&sb, " %s=%d", name, r.Params[name])
		}
	}
	return sb.String()
}
