package log

import (
	"time"
)

// Event is one captured instrument interaction.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID uniquely identifies the transport session (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Direction indicates command flow relative to the host.
	Direction Direction `cbor:"3,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	// RemoteAddr is the instrument address (host:port or GPIB address).
	RemoteAddr string `cbor:"5,keyasint,omitempty"`

	// Command is the raw command text sent to the instrument.
	Command string `cbor:"6,keyasint,omitempty"`

	// Response is the raw reply text received from the instrument.
	Response string `cbor:"7,keyasint,omitempty"`

	// Path is the configuration path the command addressed, when the
	// event originated from the configuration engine.
	Path string `cbor:"8,keyasint,omitempty"`

	// Channel is the bank channel the command was scoped to, if any.
	Channel *int `cbor:"9,keyasint,omitempty"`

	// Error holds the failure text for CategoryError events.
	Error string `cbor:"10,keyasint,omitempty"`
}

// Direction indicates the direction of command flow.
type Direction uint8

const (
	// DirectionOut is host-to-instrument.
	DirectionOut Direction = 0
	// DirectionIn is instrument-to-host.
	DirectionIn Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionOut:
		return "OUT"
	case DirectionIn:
		return "IN"
	default:
		return "UNKNOWN"
	}
}

// Category classifies a transcript event.
type Category uint8

const (
	// CategoryOpen records a session being opened.
	CategoryOpen Category = iota
	// CategoryClose records a session being closed.
	CategoryClose
	// CategoryWrite records a fire-and-forget command.
	CategoryWrite
	// CategoryQuery records a query command being sent.
	CategoryQuery
	// CategoryReply records a query reply being received.
	CategoryReply
	// CategoryError records a transport failure.
	CategoryError
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryOpen:
		return "OPEN"
	case CategoryClose:
		return "CLOSE"
	case CategoryWrite:
		return "WRITE"
	case CategoryQuery:
		return "QUERY"
	case CategoryReply:
		return "REPLY"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
