package core

import (
	"errors"
	"strings"
	"sync"
)

var ErrUnknownCommand = errors.New("unknown command")

// CommandHandler decodes its own arguments from data and runs the command
type CommandHandler func(data *[]byte) error

// Command is one entry of the data dictionary. Responses are registered
// the same way with a nil Handler.
type Command struct {
	ID      uint16
	Name    string
	Format  string // e.g. "oid=%c pin=%u"
	Handler CommandHandler
}

// Signature returns the dictionary key, "name format"
func (c *Command) Signature() string {
	if c.Format == "" {
		return c.Name
	}
	return c.Name + " " + c.Format
}

// CommandRegistry assigns message IDs in registration order
type CommandRegistry struct {
	mu       sync.RWMutex
	commands []*Command
	nameToID map[string]uint16
}

var globalRegistry = NewCommandRegistry()

func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{nameToID: make(map[string]uint16)}
}

// RegisterCommand adds a command to the global registry. Registering a
// name twice returns the existing ID.
func RegisterCommand(name string, format string, handler CommandHandler) uint16 {
	return globalRegistry.Register(name, format, handler)
}

// RegisterResponse adds an MCU to host message to the global registry
func RegisterResponse(name string, format string) uint16 {
	return globalRegistry.Register(name, format, nil)
}

// Register adds a command and returns its ID
func (r *CommandRegistry) Register(name string, format string, handler CommandHandler) uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, exists := r.nameToID[name]; exists {
		return id
	}
	id := uint16(len(r.commands))
	r.commands = append(r.commands, &Command{
		ID:      id,
		Name:    name,
		Format:  format,
		Handler: handler,
	})
	r.nameToID[name] = id
	return id
}

func (r *CommandRegistry) GetCommand(id uint16) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id) >= len(r.commands) {
		return nil, false
	}
	return r.commands[id], true
}

func (r *CommandRegistry) GetCommandByName(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.nameToID[name]
	if !ok {
		return nil, false
	}
	return r.commands[id], true
}

func (r *CommandRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Dispatch runs the handler for cmdID. Responses arriving as commands are
// ignored.
func (r *CommandRegistry) Dispatch(cmdID uint16, data *[]byte) error {
	cmd, ok := r.GetCommand(cmdID)
	if !ok {
		return ErrUnknownCommand
	}
	if cmd.Handler == nil {
		return nil
	}
	return cmd.Handler(data)
}

// GetDictionary lists the registered signatures, one per line, in ID order
func (r *CommandRegistry) GetDictionary() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sb strings.Builder
	for _, cmd := range r.commands {
		sb.WriteString(cmd.Signature())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Snapshot returns the registered commands in ID order
func (r *CommandRegistry) Snapshot() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Command, len(r.commands))
	for i, cmd := range r.commands {
		out[i] = *cmd
	}
	return out
}

// DispatchCommand dispatches through the global registry. Its signature
// matches protocol.CommandHandler.
func DispatchCommand(cmdID uint16, data *[]byte) error {
	return globalRegistry.Dispatch(cmdID, data)
}

func GetGlobalRegistry() *CommandRegistry {
	return globalRegistry
}

// ResetRegistry drops every registered command, constant and
// enumeration. Boot code calls the Init*Commands functions afterwards.
func ResetRegistry() {
	globalRegistry = NewCommandRegistry()
	globalDictionary = NewDictionary(globalRegistry)
}
