package protocol

import (
	"fmt"
	"strings"
)

// Version is the only protocol version spoken on the wire.
const Version byte = 0x10

// MaxKeyLength is the longest key, in bytes, a frame can carry.
const MaxKeyLength = 127

// Presence flag bits.
const (
	flagKey  byte = 1 << 0
	flagTTL  byte = 1 << 1
	flagData byte = 1 << 2

	// Responses carry nothing but data, so data takes the lowest bit.
	flagResponseData byte = 1 << 0
)

// Command identifies a request operation. Wire codes are stable and never reused.
type Command byte

const (
	CommandClear  Command = 0
	CommandPut    Command = 1
	CommandGet    Command = 2
	CommandRemove Command = 3
)

func (c Command) String() string {
	switch c {
	case CommandClear:
		return "CLEAR"
	case CommandPut:
		return "PUT"
	case CommandGet:
		return "GET"
	case CommandRemove:
		return "REMOVE"
	default:
		return fmt.Sprintf("COMMAND(%d)", byte(c))
	}
}

// Valid reports whether c is a known command.
func (c Command) Valid() bool {
	switch c {
	case CommandClear, CommandPut, CommandGet, CommandRemove:
		return true
	default:
		return false
	}
}

// ParseCommand maps a wire code to a Command.
func ParseCommand(code byte) (Command, error) {
	c := Command(code)
	if !c.Valid() {
		return c, fmt.Errorf("%w: %d", ErrUnknownCommand, code)
	}
	return c, nil
}

// Status is the outcome reported in a response.
type Status byte

const (
	StatusAdded    Status = 0
	StatusReplaced Status = 1
	StatusGotten   Status = 2
	StatusNotFound Status = 3
	StatusRemoved  Status = 4
	StatusCleared  Status = 5
)

func (s Status) String() string {
	switch s {
	case StatusAdded:
		return "ADDED"
	case StatusReplaced:
		return "REPLACED"
	case StatusGotten:
		return "GOTTEN"
	case StatusNotFound:
		return "NOT_FOUND"
	case StatusRemoved:
		return "REMOVED"
	case StatusCleared:
		return "CLEARED"
	default:
		return fmt.Sprintf("STATUS(%d)", byte(s))
	}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusAdded, StatusReplaced, StatusGotten, StatusNotFound, StatusRemoved, StatusCleared:
		return true
	default:
		return false
	}
}

// ParseStatus maps a wire code to a Status.
func ParseStatus(code byte) (Status, error) {
	s := Status(code)
	if !s.Valid() {
		return s, fmt.Errorf("%w: %d", ErrUnknownStatus, code)
	}
	return s, nil
}

// Request is a decoded client request. Key and TTL presence is explicit;
// a nil Data means the frame carried no data field.
type Request struct {
	Command Command
	Key     string
	HasKey  bool
	TTL     int64 // relative, milliseconds
	HasTTL  bool
	Data    []byte
}

// NewRequest creates a request carrying only a command.
func NewRequest(cmd Command) *Request {
	return &Request{Command: cmd}
}

func (r *Request) WithKey(key string) *Request {
	r.Key = key
	r.HasKey = true
	return r
}

func (r *Request) WithTTL(ttlMs int64) *Request {
	r.TTL = ttlMs
	r.HasTTL = true
	return r
}

// WithData attaches a payload. A nil slice is stored as an empty one so the
// data field is still written.
func (r *Request) WithData(data []byte) *Request {
	if data == nil {
		data = []byte{}
	}
	r.Data = data
	return r
}

func (r *Request) HasData() bool {
	return r.Data != nil
}

func (r *Request) flags() byte {
	var flags byte
	if r.HasKey {
		flags |= flagKey
	}
	if r.HasTTL {
		flags |= flagTTL
	}
	if r.HasData() {
		flags |= flagData
	}
	return flags
}

func (r *Request) String() string {
	var sb strings.Builder
	sb.WriteString(r.Command.String())
	if r.HasKey {
		fmt.Fprintf(&sb, "[%s]", r.Key)
	}
	if r.HasData() {
		fmt.Fprintf(&sb, "=%d bytes", len(r.Data))
	}
	if r.HasTTL {
		fmt.Fprintf(&sb, " (ttl %dms)", r.TTL)
	}
	return sb.String()
}

// Response is the server's answer to a single request.
type Response struct {
	Status Status
	Data   []byte
}

func NewResponse(status Status, data []byte) *Response {
	return &Response{Status: status, Data: data}
}

func (r *Response) HasData() bool {
	return r.Data != nil
}

func (r *Response) String() string {
	if r.HasData() {
		return fmt.Sprintf("%s [%d bytes]", r.Status, len(r.Data))
	}
	return r.Status.String()
}
