package pcsc

import (
	"errors"
	"fmt"
)

var (
	// ErrTransportUnavailable is returned when no connected reader matches the requested name.
	ErrTransportUnavailable = errors.New("transport unavailable")

	// ErrEscapeCodeUnavailable is returned when the driver exposes no escape control code.
	ErrEscapeCodeUnavailable = errors.New("escape control code unavailable")

	// ErrTransport wraps any failure reported by the transport itself, including
	// replies that cannot be decoded below the card protocol framing.
	ErrTransport = errors.New("transport error")

	// ErrNoCardResponse is returned when a transparent exchange carried no card frame.
	ErrNoCardResponse = errors.New("no card response")
)

// StatusError is a non-success status reported by the reader.
type StatusError struct {
	// Trailer is true when the status comes from the R-APDU trailer rather
	// than from the Generic Error Status object.
	Trailer bool
	// Object is the index of the failing data object ('C0' first byte).
	Object byte
	Status StatusWord
}

func (e *StatusError) Error() string {
	if e.Trailer {
		return fmt.Sprintf("reader status %s", e.Status.Verbose())
	}
	return fmt.Sprintf("data object %d failed with %s", e.Object, e.Status.Verbose())
}
