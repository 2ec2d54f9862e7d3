package pcsc

import (
	"regexp"
	"strings"
)

// CtlCodePcToRdrEscape is the CCID function number of the PC_to_RDR_Escape command.
const CtlCodePcToRdrEscape uint32 = 3500

// CtlCode computes SCARD_CTL_CODE(function) as defined by the PC/SC stack of goos.
// It reports false when the platform's encoding is unknown.
func CtlCode(function uint32, goos string) (uint32, bool) {
	switch goos {
	case "windows":
		// CTL_CODE(FILE_DEVICE_SMARTCARD, function, METHOD_BUFFERED, FILE_ANY_ACCESS)
		return 0x00310000 | function<<2, true
	case "linux", "darwin", "freebsd", "openbsd", "netbsd", "dragonfly", "solaris", "illumos":
		// pcsc-lite and the macOS PCSC framework
		return 0x42000000 + function, true
	default:
		return 0, false
	}
}

// PC/SC appends " NN" (pcsc-lite: interface and slot, Windows: instance) to reader names.
var readerSuffix = regexp.MustCompile(`(\s+\d{1,2})+$`)

// TrimReaderSuffix removes the trailing numeric disambiguation suffix from a reader name.
// Example: "SONY FeliCa RC-S300/P (0201504) 01 00" -> "SONY FeliCa RC-S300/P (0201504)"
func TrimReaderSuffix(reader string) string {
	return readerSuffix.ReplaceAllString(strings.TrimSpace(reader), "")
}

// MatchReader returns the first reader whose name equals name, either exactly
// or once its numeric suffix is removed.
func MatchReader(readers []string, name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	for _, r := range readers {
		if r == name || TrimReaderSuffix(r) == name {
			return r, true
		}
	}
	return "", false
}
