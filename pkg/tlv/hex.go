package tlv

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Hex constructs a byte slice from a series of hex strings.
// Whitespace is ignored, so frames can be written as "FF C2 00 01".
// It panics on invalid input and is meant for fixtures and constants.
func Hex(parts ...string) []byte {
	cleanHex := strings.Join(strings.Fields(strings.Join(parts, " ")), "")

	data, err := hex.DecodeString(cleanHex)
	if err != nil {
		panic(fmt.Sprintf("invalid input '%s': %v", cleanHex, err))
	}
	return data
}
