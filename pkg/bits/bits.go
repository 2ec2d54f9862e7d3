// Package bits provides helpers for the 1-based bit numbering used by
// JIS X 6319-4 and ISO/IEC 7816 (bit 8 is the most significant bit).
package bits

// Bit returns a byte with only the n-th bit set (1 to 8).
func Bit(n uint) byte {
	if n < 1 || n > 8 {
		return 0
	}
	return 1 << (n - 1)
}

// IsSet checks if the n-th bit is set (1 to 8).
func IsSet(b byte, n uint) bool {
	return b&Bit(n) != 0
}

// Set returns b with bit n set.
func Set(b byte, n uint) byte {
	return b | Bit(n)
}

// Clear returns b with bit n cleared.
func Clear(b byte, n uint) byte {
	return b &^ Bit(n)
}

func rangeMask(high, low uint) (byte, bool) {
	if high < low || high > 8 || low < 1 {
		return 0, false
	}
	width := high - low + 1
	return byte((1 << width) - 1), true
}

// GetRange extracts the value from a range of bits (e.g., bits 7 to 5).
// Example: GetRange(0b1001_0011, 7, 5) returns 1 (0b001)
func GetRange(b byte, high, low uint) byte {
	mask, ok := rangeMask(high, low)
	if !ok {
		return 0
	}
	return (b >> (low - 1)) & mask
}

// SetRange writes v into bits high..low of b. Bits of v that do not fit
// the range are dropped.
// Example: SetRange(0x80, 4, 1, 0x2) returns 0x82
func SetRange(b byte, high, low uint, v byte) byte {
	mask, ok := rangeMask(high, low)
	if !ok {
		return b
	}
	shift := low - 1
	return (b &^ (mask << shift)) | ((v & mask) << shift)
}
