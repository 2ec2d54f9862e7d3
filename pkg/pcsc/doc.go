/*
Package pcsc implements the reader-side plumbing needed to drive a contactless card
through a PC/SC "transparent session", as defined by PC/SC Part 3 Supplement
(pseudo-APDUs with CLA 'FF' and INS 'C2').

# Fundamentals

Two kinds of traffic exist:
 1. Escape (control) commands, sent to the reader driver itself with a vendor
    control code (SCARD_CTL_CODE(3500) on most CCID drivers). These start and end
    the transparent session and select the RF protocol.
 2. Data exchange commands, sent with SCardTransmit. In a transparent session these
    carry raw card frames inside a Transceive data object (tag '95').

Every reply is an R-APDU: an optional body followed by SW1 SW2. In a transparent
session the body is a list of BER-TLV data objects:

  - 'C0': Generic Error Status (object index, SW1, SW2). '00 90 00' means success.
  - '92': Number of valid bits in the last byte received.
  - '96': Response status reported by the reader.
  - '97': The card response frame, exactly as received over the air.

# Transport Boundary

The Transport and Conn interfaces describe the capabilities consumed by a reader
session: connect to a named reader, query the escape control code, send escape
commands, exchange data, disconnect. ScardTransport implements them on top of
github.com/ebfe/scard.

# Usage Example: Unwrapping a Transceive Reply

	raw, err := conn.Exchange(cmd)
	if err != nil {
	    return err
	}

	resp, err := pcsc.ParseTransparentResponse(raw)
	if err != nil {
	    return err // R-APDU or data objects could not be decoded
	}

	frame, err := resp.CardResponse()
	if errors.Is(err, pcsc.ErrNoCardResponse) {
	    // No card answered (e.g. 'C0 03 01 64 01', timeout)
	}

	fmt.Println(resp.Describe())
*/
package pcsc
