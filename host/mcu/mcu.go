package mcu

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"gopiezo/host/serial"
	"gopiezo/protocol"
)

var (
	ErrNotConnected   = errors.New("not connected to MCU")
	ErrNoDictionary   = errors.New("dictionary not loaded")
	ErrTimeout        = errors.New("timed out waiting for response")
	ErrUnknownCommand = errors.New("unknown command")
)

const (
	identifyChunk      = 40
	identifyMaxChunks  = 1000
	identifyTimeout    = time.Second
	subscriberCapacity = 16
)

// MCU is a connection to a gopiezo microcontroller
type MCU struct {
	transport *protocol.HostTransport
	port      io.ReadWriteCloser

	dictionary     *Dictionary
	dictionaryData []byte

	mu          sync.Mutex
	subscribers map[string][]chan Response
	async       func(Response)

	connected bool
}

// NewMCU creates an MCU that is not yet connected
func NewMCU() *MCU {
	return &MCU{subscribers: make(map[string][]chan Response)}
}

// Connect opens device with the default serial settings
func (m *MCU) Connect(device string) error {
	return m.ConnectWithConfig(serial.DefaultConfig(device))
}

// ConnectWithConfig opens the serial port described by cfg
func (m *MCU) ConnectWithConfig(cfg *serial.Config) error {
	port, err := serial.Open(cfg)
	if err != nil {
		return err
	}
	if err := port.Flush(); err != nil {
		port.Close()
		return fmt.Errorf("flush %s: %w", cfg.Device, err)
	}
	m.Attach(port)

	// Let a freshly enumerated board finish booting
	time.Sleep(100 * time.Millisecond)
	return nil
}

// Attach runs the protocol over an already open port
func (m *MCU) Attach(port io.ReadWriteCloser) {
	m.port = port
	m.transport = protocol.NewHostTransport(port)
	m.transport.SetResponseHandler(m.handleResponse)
	m.connected = true
}

func (m *MCU) Close() error {
	m.connected = false
	if m.transport == nil {
		return nil
	}
	return m.transport.Close()
}

func (m *MCU) IsConnected() bool {
	return m.connected
}

// RetrieveDictionary reads the dictionary with identify in 40 byte chunks
func (m *MCU) RetrieveDictionary() error {
	if !m.connected {
		return ErrNotConnected
	}

	var buf bytes.Buffer
	offset := uint32(0)
	for i := 0; i < identifyMaxChunks; i++ {
		chunk, err := m.sendIdentify(offset, identifyChunk)
		if err != nil {
			return fmt.Errorf("dictionary chunk at offset %d: %w", offset, err)
		}
		buf.Write(chunk)
		offset += uint32(len(chunk))
		if len(chunk) < identifyChunk {
			break
		}
	}

	dict, err := ParseDictionary(buf.Bytes())
	if err != nil {
		return err
	}
	m.dictionaryData = buf.Bytes()

	m.mu.Lock()
	m.dictionary = dict
	m.mu.Unlock()
	return nil
}

// sendIdentify uses the bootstrap IDs: identify is 1, identify_response 0
func (m *MCU) sendIdentify(offset uint32, count uint8) ([]byte, error) {
	err := m.transport.SendCommand(1, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQUint(output, uint32(count))
	})
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(identifyTimeout)
	for {
		resp, err := m.transport.ReceiveResponse(time.Until(deadline))
		if err != nil {
			return nil, err
		}
		payload := resp.Payload
		cmdID, err := protocol.DecodeVLQUint(&payload)
		if err != nil || cmdID != 0 {
			continue
		}
		respOffset, err := protocol.DecodeVLQUint(&payload)
		if err != nil {
			return nil, fmt.Errorf("decode identify_response: %w", err)
		}
		if respOffset != offset {
			continue
		}
		data, err := protocol.DecodeVLQBytes(&payload)
		if err != nil {
			return nil, fmt.Errorf("decode identify_response: %w", err)
		}
		return data, nil
	}
}

// handleResponse runs on the transport's read loop
func (m *MCU) handleResponse(cmdID uint16, data *[]byte) error {
	m.mu.Lock()
	dict := m.dictionary
	m.mu.Unlock()
	if dict == nil {
		return nil
	}

	resp, err := dict.DecodeResponse(cmdID, *data)
	if err != nil {
		return err
	}

	m.mu.Lock()
	subs := append([]chan Response(nil), m.subscribers[resp.Name]...)
	async := m.async
	m.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- resp:
		default:
		}
	}
	if async != nil {
		async(resp)
	}
	return nil
}

// Subscribe delivers every response called name until cancel is called.
// Responses are dropped if the channel is full.
func (m *MCU) Subscribe(name string) (<-chan Response, func()) {
	ch := make(chan Response, subscriberCapacity)
	m.mu.Lock()
	m.subscribers[name] = append(m.subscribers[name], ch)
	m.mu.Unlock()

	return ch, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		subs := m.subscribers[name]
		for i, c := range subs {
			if c == ch {
				m.subscribers[name] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}
}

// SetAsyncHandler installs a callback for every decoded response. It runs
// on the read loop and must not block.
func (m *MCU) SetAsyncHandler(fn func(Response)) {
	m.mu.Lock()
	m.async = fn
	m.mu.Unlock()
}

func (m *MCU) GetDictionary() *Dictionary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dictionary
}

// GetDictionaryRaw returns the dictionary as read, still compressed
func (m *MCU) GetDictionaryRaw() []byte {
	return m.dictionaryData
}

// SendCommand sends the named command with pre-encoded arguments
func (m *MCU) SendCommand(name string, args func(output protocol.OutputBuffer)) error {
	if !m.connected {
		return ErrNotConnected
	}
	dict := m.GetDictionary()
	if dict == nil {
		return ErrNoDictionary
	}
	f, ok := dict.Command(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	if err := m.transport.SendCommand(f.ID, args); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Send sends a command with integer arguments in format order
func (m *MCU) Send(name string, args ...uint32) error {
	return m.SendCommand(name, func(output protocol.OutputBuffer) {
		for _, a := range args {
			protocol.EncodeVLQUint(output, a)
		}
	})
}

// SendText sends a command given as name and key=value text parameters
func (m *MCU) SendText(name string, params map[string]string) error {
	dict := m.GetDictionary()
	if dict == nil {
		return ErrNoDictionary
	}
	f, ok := dict.Command(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	args, err := f.EncodeArgs(params)
	if err != nil {
		return err
	}
	return m.SendCommand(name, args)
}

// Query sends a command and waits for the first response called reply
// that satisfies match
func (m *MCU) Query(name string, args func(output protocol.OutputBuffer), reply string, match func(Response) bool, timeout time.Duration) (Response, error) {
	ch, cancel := m.Subscribe(reply)
	defer cancel()

	if err := m.SendCommand(name, args); err != nil {
		return Response{}, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case r := <-ch:
			if match == nil || match(r) {
				return r, nil
			}
		case <-timer.C:
			return Response{}, fmt.Errorf("%s: %w", reply, ErrTimeout)
		}
	}
}

// PrintDictionary writes a summary of the dictionary to w
func (m *MCU) PrintDictionary(w io.Writer) {
	dict := m.GetDictionary()
	if dict == nil {
		fmt.Fprintln(w, "No dictionary loaded")
		return
	}

	fmt.Fprintf(w, "Version: %s\n", dict.Version)
	fmt.Fprintf(w, "Build: %s\n", dict.BuildVersions)
	fmt.Fprintln(w, "Config:")
	for k, v := range dict.Config {
		fmt.Fprintf(w, "  %s = %s\n", k, v)
	}
	fmt.Fprintf(w, "Commands (%d):\n", len(dict.Commands))
	for sig, id := range dict.Commands {
		fmt.Fprintf(w, "  [%d] %s\n", id, sig)
	}
	fmt.Fprintf(w, "Responses (%d):\n", len(dict.Responses))
	for sig, id := range dict.Responses {
		fmt.Fprintf(w, "  [%d] %s\n", id, sig)
	}
}
