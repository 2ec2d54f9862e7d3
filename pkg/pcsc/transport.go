package pcsc

// Transport opens exclusive connections to named readers.
type Transport interface {
	// Connect opens the reader whose name, without the trailing numeric
	// suffixes PC/SC appends, equals readerName. It fails with
	// ErrTransportUnavailable when no reader matches.
	Connect(readerName string) (Conn, error)
}

// Conn is one open reader connection. Exactly one command may be in flight
// at a time; implementations are not required to be safe for concurrent use.
type Conn interface {
	// EscapeControlCode returns the vendor control code used for escape
	// commands, or ErrEscapeCodeUnavailable.
	EscapeControlCode() (uint32, error)

	// Escape sends payload to the reader driver with the given control code.
	Escape(code uint32, payload []byte) ([]byte, error)

	// Exchange sends a data exchange command and returns the raw reply.
	Exchange(payload []byte) ([]byte, error)

	// Disconnect releases the connection. Calls after the first are no-ops.
	Disconnect() error
}
