package pcsc

import (
	"fmt"
	"strings"
)

// TRACE:
// A Trace records every escape and exchange round trip performed on behalf of one
// logical operation (e.g. "poll" or "end session then disconnect"). It is kept for
// diagnostics: when an operation fails, the trace shows exactly which bytes were
// sent and what the reader answered.

// TransactionKind distinguishes the two transport channels.
type TransactionKind int

const (
	KindEscape TransactionKind = iota
	KindExchange
)

func (k TransactionKind) String() string {
	switch k {
	case KindEscape:
		return "ESCAPE"
	case KindExchange:
		return "EXCHANGE"
	default:
		return fmt.Sprintf("TransactionKind(%d)", int(k))
	}
}

// Transaction is one command sent to the reader and its outcome.
type Transaction struct {
	Kind        TransactionKind
	ControlCode uint32 // escape only
	Command     []byte
	Response    []byte
	Err         error
}

// IsSuccess checks if the reader answered with a success trailer.
// It returns false if the transport failed or the response is too short.
func (t *Transaction) IsSuccess() bool {
	if t.Err != nil {
		return false
	}
	resp, err := ParseResponseAPDU(t.Response)
	if err != nil {
		return false
	}
	return resp.Status.IsSuccess()
}

// Trace is a sequence of transactions.
type Trace []Transaction

// Last returns the final transaction of the trace.
// Returns nil if the trace is empty.
func (t Trace) Last() *Transaction {
	if len(t) == 0 {
		return nil
	}
	return &t[len(t)-1]
}

// IsSuccess checks if the FINAL transaction in the trace was successful.
func (t Trace) IsSuccess() bool {
	last := t.Last()
	if last == nil {
		return false
	}
	return last.IsSuccess()
}

// Describe renders the trace as a command/response log.
func (t Trace) Describe() string {
	var sb strings.Builder
	sb.WriteString("=== READER TRACE ===")

	for i, tx := range t {
		if tx.Kind == KindEscape {
			sb.WriteString(fmt.Sprintf("\n[%d] %s (ctl %08X)", i+1, tx.Kind, tx.ControlCode))
		} else {
			sb.WriteString(fmt.Sprintf("\n[%d] %s", i+1, tx.Kind))
		}
		sb.WriteString(fmt.Sprintf("\n    >> %X", tx.Command))
		if tx.Err != nil {
			sb.WriteString(fmt.Sprintf("\n    !! %v", tx.Err))
			continue
		}
		sb.WriteString(fmt.Sprintf("\n    << %X", tx.Response))
	}

	return sb.String()
}
