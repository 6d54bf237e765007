package core

import (
	"bytes"
	"sort"
	"strconv"
	"sync"

	"gopiezo/protocol"
	"gopiezo/tinycompress"
)

// Constant is a firmware value exposed to the host, e.g. CLOCK_FREQ
type Constant struct {
	Name  string
	Value interface{}
}

// Enumeration maps symbolic names (pin names) to their indexes
type Enumeration struct {
	Name   string
	Values []string
}

// Dictionary is the zlib-compressed JSON data dictionary the host reads
// with identify
type Dictionary struct {
	mu            sync.RWMutex
	constants     map[string]*Constant
	enumerations  map[string]*Enumeration
	commandReg    *CommandRegistry
	version       string
	buildVersions string
	cachedDict    []byte
}

var globalDictionary = NewDictionary(globalRegistry)

func NewDictionary(cmdReg *CommandRegistry) *Dictionary {
	return &Dictionary{
		constants:     make(map[string]*Constant),
		enumerations:  make(map[string]*Enumeration),
		commandReg:    cmdReg,
		version:       "gopiezo-" + protocol.Version,
		buildVersions: "go-tinygo",
	}
}

// RegisterConstant adds a constant to the global dictionary
func RegisterConstant(name string, value interface{}) {
	globalDictionary.AddConstant(name, value)
}

// RegisterEnumeration adds an enumeration to the global dictionary
func RegisterEnumeration(name string, values []string) {
	globalDictionary.AddEnumeration(name, values)
}

func (d *Dictionary) AddConstant(name string, value interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.constants[name] = &Constant{Name: name, Value: value}
	d.cachedDict = nil
}

func (d *Dictionary) AddEnumeration(name string, values []string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	valuesCopy := make([]string, len(values))
	copy(valuesCopy, values)
	d.enumerations[name] = &Enumeration{Name: name, Values: valuesCopy}
	d.cachedDict = nil
}

func (d *Dictionary) SetVersion(version string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.version = version
	d.cachedDict = nil
}

func (d *Dictionary) SetBuildVersions(versions string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buildVersions = versions
	d.cachedDict = nil
}

// BuildDictionary compresses and caches the dictionary. Call it again if
// commands are registered after the first build.
func (d *Dictionary) BuildDictionary() {
	// Read the registry before taking our own lock
	commands := d.commandReg.Snapshot()

	d.mu.Lock()
	defer d.mu.Unlock()

	jsonData := d.buildJSONLocked(commands)
	var buf bytes.Buffer
	w := tinycompress.NewWriter(&buf, len(jsonData))
	w.Write(jsonData)
	if err := w.Close(); err != nil {
		DebugPrintln("[DICT] compression failed: " + err.Error())
		d.cachedDict = jsonData
		return
	}
	d.cachedDict = buf.Bytes()
	DebugPrintln("[DICT] " + itoa(len(jsonData)) + " bytes, " + itoa(len(d.cachedDict)) + " compressed")
}

// Generate returns the compressed dictionary, building it if needed
func (d *Dictionary) Generate() []byte {
	d.mu.RLock()
	cached := d.cachedDict
	d.mu.RUnlock()
	if cached == nil {
		d.BuildDictionary()
		d.mu.RLock()
		cached = d.cachedDict
		d.mu.RUnlock()
	}
	return cached
}

// JSON returns the uncompressed dictionary
func (d *Dictionary) JSON() []byte {
	commands := d.commandReg.Snapshot()
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.buildJSONLocked(commands)
}

func appendJSONString(dst []byte, s string) []byte {
	return strconv.AppendQuote(dst, s)
}

func (d *Dictionary) buildJSONLocked(commands []Command) []byte {
	result := make([]byte, 0, 1024)

	result = append(result, `{"version":`...)
	result = appendJSONString(result, d.version)
	result = append(result, `,"build_versions":`...)
	result = appendJSONString(result, d.buildVersions)

	result = append(result, `,"config":{`...)
	names := make([]string, 0, len(d.constants))
	for name := range d.constants {
		names = append(names, name)
	}
	sort.Strings(names)
	for i, name := range names {
		if i > 0 {
			result = append(result, ',')
		}
		result = appendJSONString(result, name)
		result = append(result, ':')
		result = appendJSONString(result, valueToString(d.constants[name].Value))
	}

	// Commands and responses in ID order
	for _, section := range []struct {
		key       string
		responses bool
	}{{`},"commands":{`, false}, {`},"responses":{`, true}} {
		result = append(result, section.key...)
		first := true
		for i := range commands {
			cmd := &commands[i]
			if (cmd.Handler == nil) != section.responses {
				continue
			}
			if !first {
				result = append(result, ',')
			}
			result = appendJSONString(result, cmd.Signature())
			result = append(result, ':')
			result = strconv.AppendInt(result, int64(cmd.ID), 10)
			first = false
		}
	}
	result = append(result, '}')

	if len(d.enumerations) > 0 {
		result = append(result, `,"enumerations":{`...)
		names = names[:0]
		for name := range d.enumerations {
			names = append(names, name)
		}
		sort.Strings(names)
		for i, name := range names {
			if i > 0 {
				result = append(result, ',')
			}
			result = appendJSONString(result, name)
			result = append(result, ":{"...)
			first := true
			for idx, value := range d.enumerations[name].Values {
				if value == "" {
					continue
				}
				if !first {
					result = append(result, ',')
				}
				result = appendJSONString(result, value)
				result = append(result, ':')
				result = strconv.AppendInt(result, int64(idx), 10)
				first = false
			}
			result = append(result, '}')
		}
		result = append(result, '}')
	}

	return append(result, '}')
}

// GetChunk returns a copy of up to count bytes of the compressed
// dictionary starting at offset
func (d *Dictionary) GetChunk(offset uint32, count uint8) []byte {
	data := d.Generate()
	if offset >= uint32(len(data)) {
		return []byte{}
	}
	end := offset + uint32(count)
	if end > uint32(len(data)) {
		end = uint32(len(data))
	}
	chunk := make([]byte, end-offset)
	copy(chunk, data[offset:end])
	return chunk
}

func GetGlobalDictionary() *Dictionary {
	return globalDictionary
}
