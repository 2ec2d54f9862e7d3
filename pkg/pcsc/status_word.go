package pcsc

import (
	"fmt"
)

// StatusWord represents a two-byte status (SW1-SW2).
//
// It appears twice in a transparent session reply: as the R-APDU trailer, and
// inside the Generic Error Status data object ('C0') where it qualifies the
// outcome of the embedded reader operation (e.g. '64 01' when the card did not answer).
type StatusWord uint16

// NewStatusWord creates a StatusWord instance from two separate bytes.
func NewStatusWord(sw1, sw2 byte) StatusWord {
	return StatusWord(uint16(sw1)<<8 | uint16(sw2))
}

// SW1 returns the first byte (high byte) of the status word.
func (sw StatusWord) SW1() byte {
	return byte(sw >> 8)
}

// SW2 returns the second byte (low byte) of the status word.
func (sw StatusWord) SW2() byte {
	return byte(sw)
}

// IsSuccess returns true if the command was processed successfully (9000) or
// if data is available (61XX).
func (sw StatusWord) IsSuccess() bool {
	return sw == SW_NO_ERROR || sw.SW1() == 0x61
}

// IsWarning returns true if the status indicates a warning (62XX or 63XX).
func (sw StatusWord) IsWarning() bool {
	sw1 := sw.SW1()
	return sw1 == 0x62 || sw1 == 0x63
}

// IsError returns true if the status indicates an execution error (64XX to 6FXX).
func (sw StatusWord) IsError() bool {
	sw1 := sw.SW1()
	return sw1 >= 0x64 && sw1 <= 0x6F
}

// String returns the symbolic name of well-known status words.
func (sw StatusWord) String() string {
	if name, ok := statusNames[sw]; ok {
		return name
	}
	return fmt.Sprintf("StatusWord(%04X)", uint16(sw))
}

// Verbose returns a human-readable description of the status word.
func (sw StatusWord) Verbose() string {
	if sw.SW1() == 0x61 {
		return fmt.Sprintf("[%04X] Process completed, %d bytes available", uint16(sw), sw.SW2())
	}

	if desc, ok := statusDescriptions[sw]; ok {
		return fmt.Sprintf("[%04X] %s", uint16(sw), desc)
	}

	return fmt.Sprintf("[%04X] %s", uint16(sw), sw.genericCategoryDescription())
}

// genericCategoryDescription provides a fallback description based on SW1.
func (sw StatusWord) genericCategoryDescription() string {
	switch sw.SW1() {
	case 0x62:
		return "Warning: NV memory unchanged"
	case 0x63:
		return "Warning: NV memory changed"
	case 0x64:
		return "Execution Error: NV memory unchanged"
	case 0x65:
		return "Execution Error: NV memory changed"
	case 0x67:
		return "Checking Error: Wrong length"
	case 0x68:
		return "Checking Error: Function not supported"
	case 0x69:
		return "Checking Error: Command not allowed"
	case 0x6A:
		return "Checking Error: Wrong parameters"
	default:
		return "Unknown Status"
	}
}

// Status words returned by readers for pseudo-APDUs and transparent session objects.
const (
	SW_NO_ERROR StatusWord = 0x9000

	SW_WARN_NO_INFO           StatusWord = 0x6200
	SW_WARN_EOF_REACHED       StatusWord = 0x6282
	SW_WARN_NV_CHANGED        StatusWord = 0x6300
	SW_ERR_EXEC_NO_INFO       StatusWord = 0x6400
	SW_ERR_NO_CARD_RESPONSE   StatusWord = 0x6401
	SW_ERR_WRONG_LENGTH       StatusWord = 0x6700
	SW_ERR_CMD_NOT_ALLOWED    StatusWord = 0x6900
	SW_ERR_INCORRECT_PARAMS   StatusWord = 0x6A80
	SW_ERR_FUNC_NOT_SUPPORTED StatusWord = 0x6A81
	SW_ERR_WRONG_P1P2         StatusWord = 0x6B00
	SW_ERR_INS_INVALID        StatusWord = 0x6D00
	SW_ERR_CLA_NOT_SUPPORTED  StatusWord = 0x6E00
	SW_ERR_UNKNOWN            StatusWord = 0x6F00
)

var statusNames = map[StatusWord]string{
	SW_NO_ERROR:               "SW_NO_ERROR",
	SW_WARN_NO_INFO:           "SW_WARN_NO_INFO",
	SW_WARN_EOF_REACHED:       "SW_WARN_EOF_REACHED",
	SW_WARN_NV_CHANGED:        "SW_WARN_NV_CHANGED",
	SW_ERR_EXEC_NO_INFO:       "SW_ERR_EXEC_NO_INFO",
	SW_ERR_NO_CARD_RESPONSE:   "SW_ERR_NO_CARD_RESPONSE",
	SW_ERR_WRONG_LENGTH:       "SW_ERR_WRONG_LENGTH",
	SW_ERR_CMD_NOT_ALLOWED:    "SW_ERR_CMD_NOT_ALLOWED",
	SW_ERR_INCORRECT_PARAMS:   "SW_ERR_INCORRECT_PARAMS",
	SW_ERR_FUNC_NOT_SUPPORTED: "SW_ERR_FUNC_NOT_SUPPORTED",
	SW_ERR_WRONG_P1P2:         "SW_ERR_WRONG_P1P2",
	SW_ERR_INS_INVALID:        "SW_ERR_INS_INVALID",
	SW_ERR_CLA_NOT_SUPPORTED:  "SW_ERR_CLA_NOT_SUPPORTED",
	SW_ERR_UNKNOWN:            "SW_ERR_UNKNOWN",
}

var statusDescriptions = map[StatusWord]string{
	SW_NO_ERROR:               "Success",
	SW_WARN_EOF_REACHED:       "Warning: End of data reached before Le bytes",
	SW_ERR_NO_CARD_RESPONSE:   "Execution Error: No response from card (timeout)",
	SW_ERR_WRONG_LENGTH:       "Checking Error: Wrong length",
	SW_ERR_INCORRECT_PARAMS:   "Checking Error: Incorrect parameters in data field",
	SW_ERR_FUNC_NOT_SUPPORTED: "Checking Error: Function not supported",
	SW_ERR_WRONG_P1P2:         "Checking Error: Wrong P1-P2",
	SW_ERR_INS_INVALID:        "Checking Error: INS not supported",
	SW_ERR_CLA_NOT_SUPPORTED:  "Checking Error: CLA not supported",
}
