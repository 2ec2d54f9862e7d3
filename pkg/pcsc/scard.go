package pcsc

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/ebfe/scard"
)

// ScardTransport implements Transport with the system PC/SC stack.
type ScardTransport struct {
	// EscapeCode overrides the platform SCARD_CTL_CODE(3500) when non-zero.
	EscapeCode uint32

	// ExchangeViaEscape sends data exchange commands with SCardControl instead of
	// SCardTransmit. Some readers only accept transparent traffic on the escape
	// channel of a direct connection.
	ExchangeViaEscape bool

	goos string
}

// NewScardTransport creates a transport bound to the running platform.
func NewScardTransport() *ScardTransport {
	return &ScardTransport{goos: runtime.GOOS}
}

// Connect establishes a PC/SC context and opens a direct connection to the named reader.
// A direct connection reaches the reader even when no card is in the field.
func (t *ScardTransport) Connect(readerName string) (_ Conn, err error) {
	defer deferWrap(&err)

	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("%w: establishing context: %w", ErrTransport, err)
	}

	readers, err := ctx.ListReaders()
	if err != nil || len(readers) == 0 {
		if err == nil {
			err = errors.New("empty reader list")
		}
		if relErr := ctx.Release(); relErr != nil {
			err = errors.Join(err, relErr)
		}
		return nil, fmt.Errorf("%w: no reader found: %w", ErrTransportUnavailable, err)
	}

	reader, ok := MatchReader(readers, readerName)
	if !ok {
		if relErr := ctx.Release(); relErr != nil {
			return nil, fmt.Errorf("%w: %q not in %q: %w", ErrTransportUnavailable, readerName, readers, relErr)
		}
		return nil, fmt.Errorf("%w: %q not in %q", ErrTransportUnavailable, readerName, readers)
	}

	card, err := ctx.Connect(reader, scard.ShareDirect, scard.ProtocolUndefined)
	if err != nil {
		if relErr := ctx.Release(); relErr != nil {
			err = errors.Join(err, relErr)
		}
		return nil, fmt.Errorf("%w: connecting to %q: %w", ErrTransportUnavailable, reader, err)
	}

	goos := t.goos
	if goos == "" {
		goos = runtime.GOOS
	}

	return &scardConn{
		ctx:               ctx,
		card:              card,
		reader:            reader,
		escapeOverride:    t.EscapeCode,
		exchangeViaEscape: t.ExchangeViaEscape,
		goos:              goos,
	}, nil
}

type scardConn struct {
	ctx    *scard.Context
	card   *scard.Card
	reader string

	escapeOverride    uint32
	exchangeViaEscape bool
	goos              string

	closed bool
}

func (c *scardConn) EscapeControlCode() (uint32, error) {
	if c.escapeOverride != 0 {
		return c.escapeOverride, nil
	}
	code, ok := CtlCode(CtlCodePcToRdrEscape, c.goos)
	if !ok {
		return 0, fmt.Errorf("%w: unsupported platform %q", ErrEscapeCodeUnavailable, c.goos)
	}
	return code, nil
}

func (c *scardConn) Escape(code uint32, payload []byte) (_ []byte, err error) {
	defer deferWrap(&err)

	if c.closed {
		return nil, fmt.Errorf("%w: connection to %q closed", ErrTransport, c.reader)
	}

	resp, err := c.card.Control(code, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: control %08X: %w", ErrTransport, code, err)
	}
	return resp, nil
}

func (c *scardConn) Exchange(payload []byte) (_ []byte, err error) {
	defer deferWrap(&err)

	if c.exchangeViaEscape {
		code, err := c.EscapeControlCode()
		if err != nil {
			return nil, err
		}
		return c.Escape(code, payload)
	}

	if c.closed {
		return nil, fmt.Errorf("%w: connection to %q closed", ErrTransport, c.reader)
	}

	resp, err := c.card.Transmit(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: transmit: %w", ErrTransport, err)
	}
	return resp, nil
}

func (c *scardConn) Disconnect() (err error) {
	defer deferWrap(&err)

	if c.closed {
		return nil
	}
	c.closed = true

	if dErr := c.card.Disconnect(scard.LeaveCard); dErr != nil {
		err = fmt.Errorf("disconnecting %q: %w", c.reader, dErr)
	}
	if rErr := c.ctx.Release(); rErr != nil {
		err = errors.Join(err, fmt.Errorf("releasing context: %w", rErr))
	}
	return err
}
