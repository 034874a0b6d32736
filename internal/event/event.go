package event

import (
	"trade_desk/internal/domain"
)

// Type identifies an event kind on the sequencer inbox
type Type int

const (
	TypeFrame Type = iota + 1
	TypeConnection
	TypeBars
)

// String returns the string representation of Type
func (t Type) String() string {
	switch t {
	case TypeFrame:
		return "FRAME"
	case TypeConnection:
		return "CONNECTION"
	case TypeBars:
		return "BARS"
	default:
		return "UNKNOWN"
	}
}

// Event is anything the sequencer applies in arrival order
type Event interface {
	GetType() Type
}

// FrameEvent carries one raw text frame read from the feed socket
type FrameEvent struct {
	Raw []byte
}

func (e *FrameEvent) GetType() Type { return TypeFrame }

// ConnectionState is the lifecycle state of a feed session
type ConnectionState int32

const (
	StateIdle ConnectionState = iota
	StateConnecting
	StateConnected
	StateDisconnected
	StateClosed
)

func (s ConnectionState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateDisconnected:
		return "DISCONNECTED"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// ConnectionEvent reports a session state transition
type ConnectionEvent struct {
	State ConnectionState
}

func (e *ConnectionEvent) GetType() Type { return TypeConnection }

// BarsEvent delivers a fresh window of historical bars for a symbol
type BarsEvent struct {
	Symbol string
	Bars   []domain.Bar
}

func (e *BarsEvent) GetType() Type { return TypeBars }
