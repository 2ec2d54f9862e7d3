package reader

import (
	"errors"
	"fmt"
)

// State is the setup stage a Session has reached. States only move forward;
// Close returns the session to Disconnected.
type State int

const (
	Disconnected State = iota
	Connected
	EscapeCodeAcquired
	TransparentSessionActive
	ProtocolSelected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Connected:
		return "Connected"
	case EscapeCodeAcquired:
		return "EscapeCodeAcquired"
	case TransparentSessionActive:
		return "TransparentSessionActive"
	case ProtocolSelected:
		return "ProtocolSelected(NFC-F)"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var (
	// ErrTransparentSessionRejected is returned when the reader refuses to enter transparent mode.
	ErrTransparentSessionRejected = errors.New("transparent session rejected")

	// ErrProtocolSwitchRejected is returned when the reader refuses to select NFC-F.
	ErrProtocolSwitchRejected = errors.New("protocol switch rejected")

	// ErrInvalidState is returned when an operation is called before the
	// setup step it depends on, or after Close.
	ErrInvalidState = errors.New("invalid session state")
)

func (s *Session) require(want State, op string) error {
	if s.closed {
		return fmt.Errorf("%w: %s on closed session", ErrInvalidState, op)
	}
	if s.state != want {
		return fmt.Errorf("%w: %s needs %s, session is %s", ErrInvalidState, op, want, s.state)
	}
	return nil
}

func (s *Session) advance(to State) {
	s.logger.Info("Reader state changed", "from", s.state, "to", to)
	s.state = to
}
