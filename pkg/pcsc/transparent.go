package pcsc

import (
	"fmt"
	"strings"

	"github.com/gregLibert/felica-pcsc/pkg/tlv"
	"github.com/moov-io/bertlv"
)

// TRANSPARENT SESSION (PC/SC Part 3 Supplement):
//
// Manage Session (P2 '00') data objects:
//   - '81 00': Start Transparent Session. RF field handling moves to the host.
//   - '82 00': End Transparent Session. The reader resumes its own polling.
//
// Switch Protocol (P2 '02') data object:
//   - '8F 02 PP LL': PP selects the RF technology, LL the protocol layer.
//
// Transparent Exchange (P2 '01') data object:
//   - '95 LL <frame>': Transceive. The frame is sent to the card as-is.

// Data object tags used in transparent session commands.
const (
	TagStartTransparentSession = "81"
	TagEndTransparentSession   = "82"
	TagSwitchProtocol          = "8F"
	TagTransceive              = "95"
)

// RFProtocol selects the RF technology in a Switch Protocol command.
type RFProtocol byte

const (
	ProtocolISO14443A RFProtocol = 0x00
	ProtocolISO14443B RFProtocol = 0x01
	ProtocolISO15693  RFProtocol = 0x02
	ProtocolFeliCa    RFProtocol = 0x03 // NFC-F
)

// ProtocolLayer selects how much of the protocol stack the reader handles.
type ProtocolLayer byte

const (
	LayerNone ProtocolLayer = 0x00
	Layer2    ProtocolLayer = 0x02
	Layer3    ProtocolLayer = 0x03
	Layer4    ProtocolLayer = 0x04
)

func transparentCommand(p2 byte, objects ...bertlv.TLV) []byte {
	data := must(bertlv.Encode(objects))
	return must(NewTransparentCommand(p2, data).Bytes())
}

// StartTransparentSession returns the escape payload 'FF C2 00 00 02 81 00'.
func StartTransparentSession() []byte {
	return transparentCommand(P2ManageSession, bertlv.TLV{Tag: TagStartTransparentSession, Value: []byte{}})
}

// EndTransparentSession returns the escape payload 'FF C2 00 00 02 82 00'.
func EndTransparentSession() []byte {
	return transparentCommand(P2ManageSession, bertlv.TLV{Tag: TagEndTransparentSession, Value: []byte{}})
}

// SwitchProtocol returns the escape payload 'FF C2 00 02 04 8F 02 PP LL'.
func SwitchProtocol(protocol RFProtocol, layer ProtocolLayer) []byte {
	return transparentCommand(P2SwitchProtocol, bertlv.TLV{
		Tag:   TagSwitchProtocol,
		Value: []byte{byte(protocol), byte(layer)},
	})
}

// Transceive wraps a raw card frame in a Transparent Exchange command.
func Transceive(frame []byte) ([]byte, error) {
	data, err := bertlv.Encode([]bertlv.TLV{{Tag: TagTransceive, Value: frame}})
	if err != nil {
		return nil, fmt.Errorf("encoding transceive object: %w", err)
	}
	return NewTransparentCommand(P2TransparentExchange, data).Bytes()
}

// TransparentResponse is the decoded body of a transparent session reply.
type TransparentResponse struct {
	GenericErrorStatus []byte       `tlv:"C0"`
	ValidBits          []byte       `tlv:"92"`
	ResponseStatus     []byte       `tlv:"96"`
	CardFrame          []byte       `tlv:"97"`
	Unknown            []bertlv.TLV `tlv:",unknown"`

	// Status is the R-APDU trailer.
	Status StatusWord
}

// ParseTransparentResponse decodes an R-APDU carrying transparent session data objects.
// Errors returned here are transport-level: the reply could not be understood at all.
// Reader-reported failures are available through Err.
func ParseTransparentResponse(raw []byte) (*TransparentResponse, error) {
	resp, err := ParseResponseAPDU(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	tr := &TransparentResponse{Status: resp.Status}
	if len(resp.Data) == 0 {
		return tr, nil
	}

	if err := tlv.Unmarshal(resp.Data, tr); err != nil {
		return nil, fmt.Errorf("%w: data objects: %w", ErrTransport, err)
	}

	if tr.GenericErrorStatus != nil && len(tr.GenericErrorStatus) != 3 {
		return nil, fmt.Errorf("%w: generic error status has %d bytes, want 3", ErrTransport, len(tr.GenericErrorStatus))
	}

	return tr, nil
}

// Err reports the first failure signalled by the reader, either in the R-APDU
// trailer or in the Generic Error Status object. It returns nil on success.
func (r *TransparentResponse) Err() error {
	if !r.Status.IsSuccess() {
		return &StatusError{Trailer: true, Status: r.Status}
	}

	if r.GenericErrorStatus != nil {
		sw := NewStatusWord(r.GenericErrorStatus[1], r.GenericErrorStatus[2])
		if r.GenericErrorStatus[0] != 0x00 || sw != SW_NO_ERROR {
			return &StatusError{Object: r.GenericErrorStatus[0], Status: sw}
		}
	}

	return nil
}

// CardResponse returns the card frame carried in the '97' object.
// It fails with ErrNoCardResponse when the reader reported an error or no frame came back.
func (r *TransparentResponse) CardResponse() ([]byte, error) {
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoCardResponse, err)
	}
	if r.CardFrame == nil {
		return nil, ErrNoCardResponse
	}
	return r.CardFrame, nil
}

// Describe generates a report of the data objects in the reply.
func (r *TransparentResponse) Describe() string {
	var sb strings.Builder
	sb.WriteString("=== TRANSPARENT SESSION RESPONSE ===")

	tlv.WriteStructFields(&sb, "Response", r)

	sb.WriteString(fmt.Sprintf("\n    + Result:  %s", r.Status.Verbose()))
	if r.Status.IsSuccess() {
		if err := r.Err(); err != nil {
			sb.WriteString(fmt.Sprintf("\n    + Reader:  %s", err))
		}
	}

	return sb.String()
}
