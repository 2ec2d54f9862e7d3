/*
Package felica encodes and parses the FeliCa (NFC-F, JIS X 6319-4) commands needed to
identify a card and exchange plain (unencrypted) blocks with it, wrapped in the PC/SC
transparent exchange envelope.

# Frames

Every FeliCa frame starts with a length byte (LEN) that counts itself, followed by a
command or response code:

	Polling                   LEN 00 SC SC RC TS              -> LEN 01 IDm PMm [RD RD]
	Read Without Encryption   LEN 06 IDm 01 SVC 02 BLK BLK    -> LEN 07 IDm SF1 SF2 NB D1 D2
	Write Without Encryption  LEN 08 IDm 01 SVC 01 BLK D      -> LEN 09 IDm SF1 SF2

On the way out, the frame is wrapped in a Transceive data object:

	FF C2 00 01 <Lc> 95 <LEN> <frame...>

On the way back, the reader returns the card frame in data object '97'; the parsers in
this package take that frame (starting at LEN) as input.

# Memory Model

Parsers copy fields into fixed-size arrays. Results never alias the input buffer, so a
reader can reuse its receive buffer for the next exchange. Parsing does not allocate.
*/
package felica

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Sizes fixed by JIS X 6319-4.
const (
	IDmLength = 8
	PMmLength = 8
	BlockSize = 16
)

// System codes.
const (
	// SystemAll is the wildcard system code: any system answers the poll.
	SystemAll uint16 = 0xFFFF
	// SystemNDEF is the NFC Forum Type 3 Tag system.
	SystemNDEF uint16 = 0x12FC
	// SystemCommon is the FeliCa common area.
	SystemCommon uint16 = 0xFE00
)

// Service codes used for the plain block commands. They are sent little-endian.
const (
	ServiceRandomReadWrite uint16 = 0x0009
	ServiceRandomRead      uint16 = 0x000B
)

// Command and response codes.
const (
	CmdPolling                 byte = 0x00
	RespPolling                byte = 0x01
	CmdReadWithoutEncryption   byte = 0x06
	RespReadWithoutEncryption  byte = 0x07
	CmdWriteWithoutEncryption  byte = 0x08
	RespWriteWithoutEncryption byte = 0x09
)

// IDm is the 8-byte card identifier returned by Polling.
type IDm [IDmLength]byte

// IsZero reports whether the IDm is the all-zero "no card" value.
func (id IDm) IsZero() bool {
	return id == IDm{}
}

func (id IDm) String() string {
	return strings.ToUpper(hex.EncodeToString(id[:]))
}

// ParseIDm decodes a 16 hex digit IDm. Spaces are ignored.
func ParseIDm(s string) (IDm, error) {
	var id IDm
	raw, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		return id, fmt.Errorf("invalid IDm %q: %w", s, err)
	}
	if len(raw) != IDmLength {
		return id, fmt.Errorf("invalid IDm %q: %d bytes, want %d", s, len(raw), IDmLength)
	}
	copy(id[:], raw)
	return id, nil
}

// PMm is the 8-byte manufacture parameter returned alongside the IDm.
type PMm [PMmLength]byte

func (p PMm) String() string {
	return strings.ToUpper(hex.EncodeToString(p[:]))
}

// RequestCode selects the optional data a card appends to its Polling response.
// The set is closed: the zero value is RequestNone and no other values can be built
// outside this package.
type RequestCode struct {
	code byte
}

var (
	RequestNone       = RequestCode{0x00}
	RequestSystemCode = RequestCode{0x01}
	RequestCapability = RequestCode{0x02}
)

// Encode returns the wire value.
func (r RequestCode) Encode() byte {
	return r.code
}

func (r RequestCode) String() string {
	switch r {
	case RequestSystemCode:
		return "system_code"
	case RequestCapability:
		return "capability"
	default:
		return "none"
	}
}

// ParseRequestCode maps a configuration name to a RequestCode.
func ParseRequestCode(s string) (RequestCode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return RequestNone, nil
	case "system_code", "systemcode":
		return RequestSystemCode, nil
	case "capability":
		return RequestCapability, nil
	default:
		return RequestNone, fmt.Errorf("unknown request code %q (want none, system_code or capability)", s)
	}
}

// TimeSlot is the number of response slots offered to cards during Polling.
// The set is closed: the zero value is Slot1.
type TimeSlot struct {
	code byte
}

var (
	Slot1  = TimeSlot{0x00}
	Slot2  = TimeSlot{0x01}
	Slot4  = TimeSlot{0x03}
	Slot8  = TimeSlot{0x07}
	Slot16 = TimeSlot{0x0F}
)

// Encode returns the wire value (number of slots minus one).
func (t TimeSlot) Encode() byte {
	return t.code
}

// Slots returns the number of time slots.
func (t TimeSlot) Slots() int {
	return int(t.code) + 1
}

func (t TimeSlot) String() string {
	return fmt.Sprintf("%d slot(s)", t.Slots())
}

// TimeSlotFor returns the TimeSlot offering n slots. Valid values are 1, 2, 4, 8 and 16.
func TimeSlotFor(n int) (TimeSlot, error) {
	switch n {
	case 1:
		return Slot1, nil
	case 2:
		return Slot2, nil
	case 4:
		return Slot4, nil
	case 8:
		return Slot8, nil
	case 16:
		return Slot16, nil
	default:
		return Slot1, fmt.Errorf("invalid time slot count %d (want 1, 2, 4, 8 or 16)", n)
	}
}
