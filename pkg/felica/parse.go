package felica

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/gregLibert/felica-pcsc/pkg/tlv"
)

// frameReader walks a response frame front to back. Every step checks the
// remaining length first, so truncated frames fail with ErrMalformedFrame.
type frameReader struct {
	b   []byte
	off int
}

func (r *frameReader) take(n int, what string) ([]byte, error) {
	if len(r.b)-r.off < n {
		return nil, fmt.Errorf("%w: %s needs %d byte(s) at offset %d, frame has %d",
			ErrMalformedFrame, what, n, r.off, len(r.b))
	}
	v := r.b[r.off : r.off+n]
	r.off += n
	return v, nil
}

func (r *frameReader) skip(n int, what string) error {
	_, err := r.take(n, what)
	return err
}

func (r *frameReader) next(what string) (byte, error) {
	v, err := r.take(1, what)
	if err != nil {
		return 0, err
	}
	return v[0], nil
}

func (r *frameReader) remaining() int {
	return len(r.b) - r.off
}

func (r *frameReader) expectCode(want byte) error {
	got, err := r.next("response code")
	if err != nil {
		return err
	}
	if got != want {
		return &ResponseCodeError{Want: want, Got: got}
	}
	return nil
}

// statusFlags reads status flag 1 and 2. A non-zero flag 1 fails immediately,
// whatever follows it in the frame.
func (r *frameReader) statusFlags(code byte) error {
	sf1, err := r.next("status flag 1")
	if err != nil {
		return err
	}
	if sf1 != 0x00 {
		var sf2 byte
		if r.remaining() > 0 {
			sf2 = r.b[r.off]
		}
		return &CardStatusError{Code: code, Flag1: sf1, Flag2: sf2}
	}
	return r.skip(1, "status flag 2")
}

// PollingResponse is a decoded Polling reply.
type PollingResponse struct {
	IDm IDm
	PMm PMm

	// RequestData holds the 2 bytes requested by the RequestCode, if the card sent them.
	RequestData    [2]byte
	HasRequestData bool
}

// ParsePollingResponse decodes a Polling reply frame starting at its LEN byte.
func ParsePollingResponse(b []byte) (PollingResponse, error) {
	var resp PollingResponse
	r := frameReader{b: b}

	if err := r.skip(1, "length"); err != nil {
		return resp, err
	}
	if err := r.expectCode(RespPolling); err != nil {
		return resp, err
	}

	idm, err := r.take(IDmLength, "IDm")
	if err != nil {
		return resp, err
	}
	copy(resp.IDm[:], idm)

	pmm, err := r.take(PMmLength, "PMm")
	if err != nil {
		return resp, err
	}
	copy(resp.PMm[:], pmm)

	if r.remaining() >= len(resp.RequestData) {
		rd, _ := r.take(len(resp.RequestData), "request data")
		copy(resp.RequestData[:], rd)
		resp.HasRequestData = true
	}

	return resp, nil
}

// SystemCode returns the system code sent in reply to RequestSystemCode.
func (p PollingResponse) SystemCode() (uint16, bool) {
	if !p.HasRequestData {
		return 0, false
	}
	return binary.BigEndian.Uint16(p.RequestData[:]), true
}

// Capability returns the communication performance bytes sent in reply to RequestCapability.
func (p PollingResponse) Capability() ([2]byte, bool) {
	return p.RequestData, p.HasRequestData
}

func (p PollingResponse) Describe() string {
	var sb strings.Builder
	sb.WriteString("=== POLLING RESPONSE ===")

	view := struct {
		IDm         [IDmLength]byte
		PMm         [PMmLength]byte
		RequestData []byte
	}{IDm: p.IDm, PMm: p.PMm}
	if p.HasRequestData {
		view.RequestData = p.RequestData[:]
	}
	tlv.WriteStructFields(&sb, "Card", view)

	if p.IDm.IsZero() {
		sb.WriteString("\n    + Result:  no card")
	}
	return sb.String()
}

// ReadResponse is a decoded Read Without Encryption reply for two blocks.
type ReadResponse struct {
	Data1 [BlockSize]byte
	Data2 [BlockSize]byte
}

// ParseReadResponse decodes a Read Without Encryption reply frame starting at its LEN byte.
func ParseReadResponse(b []byte) (ReadResponse, error) {
	var resp ReadResponse
	r := frameReader{b: b}

	if err := r.skip(1, "length"); err != nil {
		return resp, err
	}
	if err := r.expectCode(RespReadWithoutEncryption); err != nil {
		return resp, err
	}
	if err := r.skip(IDmLength, "IDm"); err != nil {
		return resp, err
	}
	if err := r.statusFlags(RespReadWithoutEncryption); err != nil {
		return resp, err
	}
	if err := r.skip(1, "number of blocks"); err != nil {
		return resp, err
	}

	d1, err := r.take(BlockSize, "block 1")
	if err != nil {
		return resp, err
	}
	copy(resp.Data1[:], d1)

	d2, err := r.take(BlockSize, "block 2")
	if err != nil {
		return resp, err
	}
	copy(resp.Data2[:], d2)

	return resp, nil
}

// Blocks returns both blocks in request order.
func (r ReadResponse) Blocks() [2][BlockSize]byte {
	return [2][BlockSize]byte{r.Data1, r.Data2}
}

func (r ReadResponse) Describe() string {
	var sb strings.Builder
	sb.WriteString("=== READ WITHOUT ENCRYPTION RESPONSE ===")
	tlv.WriteStructFields(&sb, "Block", struct {
		Data1 [BlockSize]byte `fmt:"ascii"`
		Data2 [BlockSize]byte `fmt:"ascii"`
	}{r.Data1, r.Data2})
	return sb.String()
}

// WriteResponse is a decoded Write Without Encryption reply.
type WriteResponse struct {
	IDm IDm
}

// ParseWriteResponse decodes a Write Without Encryption reply frame starting at its LEN byte.
func ParseWriteResponse(b []byte) (WriteResponse, error) {
	var resp WriteResponse
	r := frameReader{b: b}

	if err := r.skip(1, "length"); err != nil {
		return resp, err
	}
	if err := r.expectCode(RespWriteWithoutEncryption); err != nil {
		return resp, err
	}

	idm, err := r.take(IDmLength, "IDm")
	if err != nil {
		return resp, err
	}
	copy(resp.IDm[:], idm)

	if err := r.statusFlags(RespWriteWithoutEncryption); err != nil {
		return resp, err
	}

	return resp, nil
}

func (w WriteResponse) Describe() string {
	var sb strings.Builder
	sb.WriteString("=== WRITE WITHOUT ENCRYPTION RESPONSE ===")
	tlv.WriteStructFields(&sb, "Card", struct {
		IDm [IDmLength]byte
	}{w.IDm})
	sb.WriteString("\n    + Result:  written")
	return sb.String()
}
