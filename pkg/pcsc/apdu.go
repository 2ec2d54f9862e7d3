package pcsc

import (
	"bytes"
	"fmt"
)

// Pseudo-APDU structures used to address the reader rather than the card.
//
// COMMAND (C-APDU):
// A pseudo-APDU reuses the ISO 7816-4 short encoding, with the proprietary class 'FF':
//
//	CLA INS P1 P2 [Lc Data] [Le]
//
// The transparent session family uses INS 'C2' and distinguishes functions with P2:
//   - P2 '00': Manage Session (start/end transparent session, timers, RF control).
//   - P2 '01': Transparent Exchange (transmit/receive raw card frames).
//   - P2 '02': Switch Protocol (select the RF technology and layer).
//
// Only Short Length encoding is accepted by readers for these commands.
//
// RESPONSE (R-APDU):
// An optional body followed by the mandatory trailer SW1 SW2.

// Pseudo-APDU header values.
const (
	ClaPseudoAPDU  byte = 0xFF
	InsTransparent byte = 0xC2

	P1Transparent byte = 0x00

	P2ManageSession       byte = 0x00
	P2TransparentExchange byte = 0x01
	P2SwitchProtocol      byte = 0x02
)

// APDU Limits according to ISO 7816-3 Short Length mode.
const (
	// MaxShortLc is the maximum data length (Nc) encodable in Short Length mode (1 byte).
	MaxShortLc = 255

	// MaxShortLe is the maximum expected response length (Ne) encodable in Short Length mode.
	// In Short mode, 0x00 encodes 256.
	MaxShortLe = 256
)

// CommandAPDU represents a pseudo-APDU sent to the reader.
type CommandAPDU struct {
	Class       byte
	Instruction byte
	P1, P2      byte
	Data        []byte
	Ne          int // Expected response length (0 means none)
}

// NewCommandAPDU creates a basic command.
func NewCommandAPDU(cla, ins, p1, p2 byte, data []byte, ne int) *CommandAPDU {
	return &CommandAPDU{
		Class:       cla,
		Instruction: ins,
		P1:          p1,
		P2:          p2,
		Data:        data,
		Ne:          ne,
	}
}

// NewTransparentCommand creates a CLA 'FF' INS 'C2' command for the given function (P2).
func NewTransparentCommand(p2 byte, data []byte) *CommandAPDU {
	return NewCommandAPDU(ClaPseudoAPDU, InsTransparent, P1Transparent, p2, data, 0)
}

// Bytes encodes the CommandAPDU into its Short Length byte representation.
func (c *CommandAPDU) Bytes() ([]byte, error) {
	nc := len(c.Data)
	if nc > MaxShortLc {
		return nil, fmt.Errorf("data length %d exceeds short Lc limit %d", nc, MaxShortLc)
	}
	if c.Ne < 0 || c.Ne > MaxShortLe {
		return nil, fmt.Errorf("expected length %d out of short Le range", c.Ne)
	}

	buf := new(bytes.Buffer)
	buf.Grow(4 + 1 + nc + 1)

	buf.WriteByte(c.Class)
	buf.WriteByte(c.Instruction)
	buf.WriteByte(c.P1)
	buf.WriteByte(c.P2)

	if nc > 0 {
		buf.WriteByte(byte(nc))
		buf.Write(c.Data)
	}

	if c.Ne > 0 {
		// 0x00 represents 256
		buf.WriteByte(byte(c.Ne % MaxShortLe))
	}

	return buf.Bytes(), nil
}

// String returns a readable representation of the command meta-data.
func (c *CommandAPDU) String() string {
	return fmt.Sprintf("CLA: %02X | INS: %02X | P1: %02X, P2: %02X | Lc: %d | Le: %d",
		c.Class, c.Instruction, c.P1, c.P2, len(c.Data), c.Ne)
}

// ResponseAPDU represents the reply from the reader (R-APDU).
type ResponseAPDU struct {
	Data   []byte
	Status StatusWord
}

// ParseResponseAPDU parses raw bytes received from the reader into a ResponseAPDU.
// The input must contain at least 2 bytes (SW1, SW2). Data aliases raw.
func ParseResponseAPDU(raw []byte) (*ResponseAPDU, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("response too short: length %d", len(raw))
	}

	indexSW1 := len(raw) - 2

	return &ResponseAPDU{
		Data:   raw[:indexSW1],
		Status: NewStatusWord(raw[indexSW1], raw[indexSW1+1]),
	}, nil
}

// String returns a readable representation of the response.
func (r *ResponseAPDU) String() string {
	return fmt.Sprintf("Data (%d bytes) | Status: %s", len(r.Data), r.Status.Verbose())
}
