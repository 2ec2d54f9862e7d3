/*
Package reader drives a PC/SC contactless reader through a FeliCa transparent session.

# Lifecycle

A Session walks through the setup stages in a fixed order:

	Disconnected -> Connected -> EscapeCodeAcquired -> TransparentSessionActive -> ProtocolSelected

Once ProtocolSelected, Polling, Read Without Encryption and Write Without
Encryption may be issued in any order. Read and write target the IDm found by
the last successful poll; polling first is the caller's job.

Close ends the transparent session (only if it was started) and releases the
connection. Run wraps the whole sequence and always closes.

A Session is not safe for concurrent use: the reader accepts one command at a time.
*/
package reader

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gregLibert/felica-pcsc/pkg/felica"
	"github.com/gregLibert/felica-pcsc/pkg/pcsc"
)

// Session owns one reader connection.
type Session struct {
	conn   pcsc.Conn
	reader string

	escapeControlCode uint32
	idm               felica.IDm
	lastPoll          felica.PollingResponse
	recvBuf           []byte
	state             State
	closed            bool
	trace             pcsc.Trace

	logger  *slog.Logger
	polling felica.PollingCommand
	layout  felica.ReadLayout

	pollBuf  [felica.PollingCommandLen]byte
	readBuf  [felica.ReadCommandLen]byte
	writeBuf [felica.WriteCommandLen]byte
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPolling sets the parameters used by NFCFPolling.
func WithPolling(cmd felica.PollingCommand) Option {
	return func(s *Session) {
		s.polling = cmd
	}
}

// WithReadLayout selects the Read Without Encryption envelope variant.
func WithReadLayout(l felica.ReadLayout) Option {
	return func(s *Session) {
		s.layout = l
	}
}

// StartSessionForReader connects to the reader whose name, without the PC/SC
// numeric suffix, equals name. The session starts in Connected.
func StartSessionForReader(t pcsc.Transport, name string, opts ...Option) (_ *Session, err error) {
	defer deferWrap(&err)

	s := &Session{
		reader:  name,
		logger:  slog.Default(),
		polling: felica.DefaultPolling(),
		layout:  felica.LayoutCanonical,
	}
	for _, opt := range opts {
		opt(s)
	}

	conn, err := t.Connect(name)
	if err != nil {
		return nil, fmt.Errorf("connecting to %q: %w", name, err)
	}
	s.conn = conn
	s.advance(Connected)

	return s, nil
}

// AcquireEscapeCodeFromReader fetches the vendor control code used for every escape command.
func (s *Session) AcquireEscapeCodeFromReader() (err error) {
	defer deferWrap(&err)

	if err := s.require(Connected, "acquire escape code"); err != nil {
		return err
	}

	code, err := s.conn.EscapeControlCode()
	if err != nil {
		if !errors.Is(err, pcsc.ErrEscapeCodeUnavailable) {
			err = fmt.Errorf("%w: %w", pcsc.ErrEscapeCodeUnavailable, err)
		}
		return err
	}

	s.escapeControlCode = code
	s.logger.Debug("Escape control code acquired", slog.String("code", fmt.Sprintf("%08X", code)))
	s.advance(EscapeCodeAcquired)
	return nil
}

// StartTransparentSession hands RF control to the host.
func (s *Session) StartTransparentSession() (err error) {
	defer deferWrap(&err)

	if err := s.require(EscapeCodeAcquired, "start transparent session"); err != nil {
		return err
	}

	s.trace = nil
	if err := s.escape(pcsc.StartTransparentSession(), ErrTransparentSessionRejected); err != nil {
		return err
	}

	s.advance(TransparentSessionActive)
	return nil
}

// SwitchProtocolToNFCF selects the FeliCa RF technology.
func (s *Session) SwitchProtocolToNFCF() (err error) {
	defer deferWrap(&err)

	if err := s.require(TransparentSessionActive, "switch protocol"); err != nil {
		return err
	}

	s.trace = nil
	if err := s.escape(pcsc.SwitchProtocol(pcsc.ProtocolFeliCa, pcsc.LayerNone), ErrProtocolSwitchRejected); err != nil {
		return err
	}

	s.advance(ProtocolSelected)
	return nil
}

// Setup runs the three setup steps that follow a connection, in order.
func (s *Session) Setup() error {
	if err := s.AcquireEscapeCodeFromReader(); err != nil {
		return err
	}
	if err := s.StartTransparentSession(); err != nil {
		return err
	}
	return s.SwitchProtocolToNFCF()
}

// NFCFPolling polls with the session's polling parameters.
// See PollWith.
func (s *Session) NFCFPolling() (bool, error) {
	return s.PollWith(s.polling)
}

// PollWith sends a Polling command and reports whether a card answered.
// On success the card's IDm is kept for the following read and write commands.
// A reply that carries no usable card frame, or an all-zero IDm, means no card:
// it returns false and leaves the known IDm untouched. Only transport failures
// are returned as errors.
func (s *Session) PollWith(cmd felica.PollingCommand) (_ bool, err error) {
	defer deferWrap(&err)

	if err := s.require(ProtocolSelected, "polling"); err != nil {
		return false, err
	}

	s.trace = nil
	cmd.Encode(&s.pollBuf)

	frame, err := s.exchange(s.pollBuf[:])
	if err != nil {
		if noCard(err) {
			s.logger.Debug("No card", "err", err)
			return false, nil
		}
		return false, err
	}

	resp, err := felica.ParsePollingResponse(frame)
	if err != nil {
		s.logger.Debug("No card", "err", err)
		return false, nil
	}
	if resp.IDm.IsZero() {
		s.logger.Debug("No card", "reason", "zero IDm")
		return false, nil
	}

	s.idm = resp.IDm
	s.lastPoll = resp
	s.logger.Debug("Card found", slog.String("idm", resp.IDm.String()), slog.String("pmm", resp.PMm.String()))
	return true, nil
}

// noCard reports whether a polling failure only means that no card answered.
func noCard(err error) bool {
	return errors.Is(err, pcsc.ErrNoCardResponse) ||
		errors.Is(err, felica.ErrMalformedFrame) ||
		errors.Is(err, felica.ErrUnexpectedResponseCode) ||
		errors.Is(err, felica.ErrCardStatus)
}

// NFCFReadWithoutEncryption reads two blocks of the random read service of the
// last polled card. Blocks come back in request order.
func (s *Session) NFCFReadWithoutEncryption(block1, block2 byte) (_ felica.ReadResponse, err error) {
	defer deferWrap(&err)

	if err := s.require(ProtocolSelected, "read"); err != nil {
		return felica.ReadResponse{}, err
	}

	s.trace = nil
	cmd := felica.ReadCommand{IDm: s.idm, Block1: block1, Block2: block2, Layout: s.layout}
	cmd.Encode(&s.readBuf)

	frame, err := s.exchange(s.readBuf[:])
	if err != nil {
		return felica.ReadResponse{}, err
	}

	resp, err := felica.ParseReadResponse(frame)
	if err != nil {
		return felica.ReadResponse{}, fmt.Errorf("reading blocks %02X/%02X: %w", block1, block2, err)
	}
	return resp, nil
}

// NFCFWriteWithoutEncryption writes one block of the random read/write service
// of the last polled card.
func (s *Session) NFCFWriteWithoutEncryption(block byte, data [felica.BlockSize]byte) (err error) {
	defer deferWrap(&err)

	if err := s.require(ProtocolSelected, "write"); err != nil {
		return err
	}

	s.trace = nil
	felica.EncodeWriteWithoutEncryption(&s.writeBuf, s.idm, block, &data)

	frame, err := s.exchange(s.writeBuf[:])
	if err != nil {
		return err
	}

	resp, err := felica.ParseWriteResponse(frame)
	if err != nil {
		return fmt.Errorf("writing block %02X: %w", block, err)
	}
	if resp.IDm != s.idm {
		s.logger.Warn("Write acknowledged by another card", slog.String("want", s.idm.String()), slog.String("got", resp.IDm.String()))
	}
	return nil
}

// Close ends the transparent session, if it was started, then releases the
// connection. Both steps are attempted; their errors are joined. Calls after
// the first return nil.
func (s *Session) Close() (err error) {
	defer deferWrap(&err)

	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if s.state >= TransparentSessionActive {
		s.trace = nil
		if err := s.escape(pcsc.EndTransparentSession(), nil); err != nil {
			errs = append(errs, fmt.Errorf("ending transparent session: %w", err))
		}
	}

	if err := s.conn.Disconnect(); err != nil {
		errs = append(errs, fmt.Errorf("disconnecting: %w", err))
	}

	s.advance(Disconnected)
	return errors.Join(errs...)
}

// escape sends a transparent session command on the escape channel.
// A reply with a failing status is reported as rejected.
func (s *Session) escape(payload []byte, rejected error) error {
	resp, err := s.conn.Escape(s.escapeControlCode, payload)
	s.record(pcsc.Transaction{
		Kind:        pcsc.KindEscape,
		ControlCode: s.escapeControlCode,
		Command:     payload,
		Response:    resp,
		Err:         err,
	})
	if err != nil {
		return err
	}

	tr, err := pcsc.ParseTransparentResponse(resp)
	if err != nil {
		return err
	}
	if err := tr.Err(); err != nil {
		if rejected == nil {
			return err
		}
		return fmt.Errorf("%w: %w", rejected, err)
	}
	return nil
}

// exchange sends a Transparent Exchange command and returns the card frame.
// The raw reply is kept in the receive buffer.
func (s *Session) exchange(cmd []byte) ([]byte, error) {
	resp, err := s.conn.Exchange(cmd)
	s.record(pcsc.Transaction{
		Kind:     pcsc.KindExchange,
		Command:  cmd,
		Response: resp,
		Err:      err,
	})
	if err != nil {
		return nil, err
	}
	s.recvBuf = append(s.recvBuf[:0], resp...)

	tr, err := pcsc.ParseTransparentResponse(s.recvBuf)
	if err != nil {
		return nil, err
	}
	if !tr.Status.IsSuccess() {
		return nil, fmt.Errorf("%w: %w", pcsc.ErrTransport, tr.Err())
	}
	return tr.CardResponse()
}

func (s *Session) record(tx pcsc.Transaction) {
	tx.Command = append([]byte(nil), tx.Command...)
	tx.Response = append([]byte(nil), tx.Response...)
	s.trace = append(s.trace, tx)

	attrs := []any{slog.String("kind", tx.Kind.String()), logHex("cmd", tx.Command)}
	if tx.Err != nil {
		attrs = append(attrs, slog.Any("err", tx.Err))
	} else {
		attrs = append(attrs, logHex("resp", tx.Response))
	}
	s.logger.Debug("Reader round trip", attrs...)
}

// State returns the setup stage reached.
func (s *Session) State() State {
	return s.state
}

// IDm returns the IDm of the last polled card, or the zero IDm.
func (s *Session) IDm() felica.IDm {
	return s.idm
}

// LastPolling returns the last successful Polling response.
func (s *Session) LastPolling() felica.PollingResponse {
	return s.lastPoll
}

// EscapeControlCode returns the control code acquired from the reader.
func (s *Session) EscapeControlCode() uint32 {
	return s.escapeControlCode
}

// RecvBuf returns a copy of the last raw Transparent Exchange reply.
func (s *Session) RecvBuf() []byte {
	return append([]byte(nil), s.recvBuf...)
}

// LastTrace returns the round trips of the last operation.
func (s *Session) LastTrace() pcsc.Trace {
	return append(pcsc.Trace(nil), s.trace...)
}

// Reader returns the name the session was opened with.
func (s *Session) Reader() string {
	return s.reader
}
