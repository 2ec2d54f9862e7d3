package felica

import (
	"encoding/binary"

	"github.com/gregLibert/felica-pcsc/pkg/bits"
)

// Encoded command sizes, envelope included.
const (
	PollingCommandLen = 13
	ReadCommandLen    = 25
	WriteCommandLen   = 39
)

// Transparent exchange envelope: FF C2 00 01 <Lc> 95 <L> followed by the frame.
const (
	envelopeLen      = 7
	tagTransceive    = 0x95
	pollingFrameLen  = PollingCommandLen - envelopeLen // 6
	readFrameLen     = ReadCommandLen - envelopeLen    // 18
	writeFrameLen    = WriteCommandLen - envelopeLen   // 32
	legacyReadLenTag = readFrameLen - 1                // 17
)

// putEnvelope writes the 8 header bytes shared by every command:
// the pseudo-APDU header, the Transceive tag and length, and the FeliCa LEN byte.
func putEnvelope(buf []byte, lc, dataLen byte) {
	buf[0] = 0xFF // CLA: pseudo-APDU
	buf[1] = 0xC2 // INS: transparent session
	buf[2] = 0x00
	buf[3] = 0x01 // P2: Transparent Exchange
	buf[4] = lc
	buf[5] = tagTransceive
	buf[6] = dataLen
	buf[7] = dataLen // FeliCa LEN, counts itself
}

// blockListElement builds a 2-byte block list element targeting the first
// service of the service code list in normal access mode.
func blockListElement(block byte) (byte, byte) {
	// bit 8: 2-byte element, bits 7-5: access mode (normal), bits 4-1: service index.
	head := bits.Set(0, 8)
	head = bits.SetRange(head, 7, 5, 0)
	head = bits.SetRange(head, 4, 1, 0)
	return head, block
}

// EncodePolling writes a Polling command into buf.
func EncodePolling(buf *[PollingCommandLen]byte, systemCode uint16, rc RequestCode, ts TimeSlot) {
	putEnvelope(buf[:], pollingFrameLen+2, pollingFrameLen)
	buf[8] = CmdPolling
	binary.BigEndian.PutUint16(buf[9:11], systemCode)
	buf[11] = rc.Encode()
	buf[12] = ts.Encode()
}

// EncodeReadWithoutEncryption writes a Read Without Encryption command for two
// blocks of the random read service into buf.
func EncodeReadWithoutEncryption(buf *[ReadCommandLen]byte, idm IDm, block1, block2 byte) {
	putEnvelope(buf[:], readFrameLen+2, readFrameLen)
	putReadBody(buf, idm, block1, block2)
}

// EncodeReadWithoutEncryptionLegacy writes the Read Without Encryption layout
// shipped by earlier releases, whose data size bytes are '11 11' instead of
// '12 12'. The rest of the frame is identical. Readers that validate the
// Transceive length reject it; it is kept for devices that were tuned to it.
func EncodeReadWithoutEncryptionLegacy(buf *[ReadCommandLen]byte, idm IDm, block1, block2 byte) {
	putEnvelope(buf[:], readFrameLen+2, legacyReadLenTag)
	putReadBody(buf, idm, block1, block2)
}

func putReadBody(buf *[ReadCommandLen]byte, idm IDm, block1, block2 byte) {
	buf[8] = CmdReadWithoutEncryption
	copy(buf[9:17], idm[:])
	buf[17] = 0x01 // number of services
	binary.LittleEndian.PutUint16(buf[18:20], ServiceRandomRead)
	buf[20] = 0x02 // number of blocks
	buf[21], buf[22] = blockListElement(block1)
	buf[23], buf[24] = blockListElement(block2)
}

// EncodeWriteWithoutEncryption writes a Write Without Encryption command for one
// block of the random read/write service into buf.
func EncodeWriteWithoutEncryption(buf *[WriteCommandLen]byte, idm IDm, block byte, data *[BlockSize]byte) {
	putEnvelope(buf[:], writeFrameLen+2, writeFrameLen)
	buf[8] = CmdWriteWithoutEncryption
	copy(buf[9:17], idm[:])
	buf[17] = 0x01 // number of services
	binary.LittleEndian.PutUint16(buf[18:20], ServiceRandomReadWrite)
	buf[20] = 0x01 // number of blocks
	buf[21], buf[22] = blockListElement(block)
	copy(buf[23:39], data[:])
}

// PollingCommand describes a Polling request.
type PollingCommand struct {
	SystemCode  uint16
	RequestCode RequestCode
	TimeSlot    TimeSlot
}

// DefaultPolling polls every system, requests no extra data and uses one time slot.
func DefaultPolling() PollingCommand {
	return PollingCommand{SystemCode: SystemAll, RequestCode: RequestNone, TimeSlot: Slot1}
}

func (c PollingCommand) Encode(buf *[PollingCommandLen]byte) {
	EncodePolling(buf, c.SystemCode, c.RequestCode, c.TimeSlot)
}

func (c PollingCommand) Bytes() []byte {
	var buf [PollingCommandLen]byte
	c.Encode(&buf)
	return buf[:]
}

// ReadLayout selects the Read Without Encryption envelope variant.
type ReadLayout int

const (
	// LayoutCanonical uses data size bytes matching the frame length ('12 12').
	LayoutCanonical ReadLayout = iota
	// LayoutLegacy uses the '11 11' data size bytes of earlier releases.
	LayoutLegacy
)

func (l ReadLayout) String() string {
	if l == LayoutLegacy {
		return "legacy"
	}
	return "canonical"
}

// ReadCommand describes a Read Without Encryption request for two blocks.
type ReadCommand struct {
	IDm    IDm
	Block1 byte
	Block2 byte
	Layout ReadLayout
}

func (c ReadCommand) Encode(buf *[ReadCommandLen]byte) {
	if c.Layout == LayoutLegacy {
		EncodeReadWithoutEncryptionLegacy(buf, c.IDm, c.Block1, c.Block2)
		return
	}
	EncodeReadWithoutEncryption(buf, c.IDm, c.Block1, c.Block2)
}

func (c ReadCommand) Bytes() []byte {
	var buf [ReadCommandLen]byte
	c.Encode(&buf)
	return buf[:]
}

// WriteCommand describes a Write Without Encryption request for one block.
type WriteCommand struct {
	IDm   IDm
	Block byte
	Data  [BlockSize]byte
}

func (c WriteCommand) Encode(buf *[WriteCommandLen]byte) {
	EncodeWriteWithoutEncryption(buf, c.IDm, c.Block, &c.Data)
}

func (c WriteCommand) Bytes() []byte {
	var buf [WriteCommandLen]byte
	c.Encode(&buf)
	return buf[:]
}
