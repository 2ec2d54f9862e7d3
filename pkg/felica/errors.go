package felica

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedFrame is returned when a response is shorter than its layout requires.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrUnexpectedResponseCode is returned when the response code does not
	// match the command that was sent.
	ErrUnexpectedResponseCode = errors.New("unexpected response code")

	// ErrCardStatus is matched by every *CardStatusError.
	ErrCardStatus = errors.New("card status error")
)

// ResponseCodeError reports the response code found where another was expected.
type ResponseCodeError struct {
	Want byte
	Got  byte
}

func (e *ResponseCodeError) Error() string {
	return fmt.Sprintf("%s: got %02X, want %02X", ErrUnexpectedResponseCode, e.Got, e.Want)
}

func (e *ResponseCodeError) Is(target error) bool {
	return target == ErrUnexpectedResponseCode
}

// CardStatusError is a non-zero status flag 1 returned by the card.
type CardStatusError struct {
	// Code is the response code of the rejected command.
	Code  byte
	Flag1 byte
	Flag2 byte
}

func (e *CardStatusError) Error() string {
	return fmt.Sprintf("%s: response %02X, status flags %02X %02X (%s)",
		ErrCardStatus, e.Code, e.Flag1, e.Flag2, e.Description())
}

func (e *CardStatusError) Is(target error) bool {
	return target == ErrCardStatus
}

// Status flag 2 values defined for the plain block commands.
var statusFlag2Descriptions = map[byte]string{
	0x01: "purse data under/overflow",
	0x02: "cashback data exceeded",
	0x70: "memory error",
	0x71: "memory write count exceeded",
	0xA1: "illegal number of services",
	0xA2: "illegal command packet (block count)",
	0xA3: "illegal block list (service order)",
	0xA4: "illegal service type",
	0xA5: "access not allowed",
	0xA6: "illegal service code list",
	0xA7: "illegal block list (access mode)",
	0xA8: "illegal block number",
	0xA9: "data write failure",
	0xAA: "key change failure",
	0xAB: "illegal package parity or package MAC",
	0xB0: "illegal parameter",
	0xB1: "illegal service code",
	0xB2: "illegal service code list order",
	0xC0: "illegal system code",
}

// Description returns a human readable explanation of Flag2.
func (e *CardStatusError) Description() string {
	if desc, ok := statusFlag2Descriptions[e.Flag2]; ok {
		return desc
	}
	return "unknown error"
}
