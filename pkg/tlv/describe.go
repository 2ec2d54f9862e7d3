package tlv

import (
	"encoding/hex"
	"fmt"
	"reflect"
	"strings"

	"github.com/moov-io/bertlv"
)

// WriteStructFields inspects a struct and writes its fields to the strings.Builder.
// Byte slices, byte arrays and unsigned integers are reported; other kinds are skipped.
// It joins lines with newlines but DOES NOT add a trailing newline, preventing artifacts in strings.Split.
// If the builder is not empty, it prepends a newline to separate this block from previous content.
func WriteStructFields(sb *strings.Builder, prefix string, s interface{}) {
	val := reflect.ValueOf(s)

	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return
		}
		val = val.Elem()
	}

	typ := val.Type()
	var lines []string

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		if !fieldType.IsExported() {
			continue
		}

		switch {
		case isByteSlice(field):
			if field.IsNil() || field.Len() == 0 {
				continue
			}
			lines = append(lines, formatField(prefix, fieldType, formatByteValue(field.Bytes(), fieldType.Tag.Get("fmt"))))

		case isByteArray(field):
			lines = append(lines, formatField(prefix, fieldType, formatByteValue(arrayBytes(field), fieldType.Tag.Get("fmt"))))

		case field.Kind() == reflect.Uint8:
			lines = append(lines, formatField(prefix, fieldType, fmt.Sprintf("%02X", field.Uint())))

		case field.Kind() == reflect.Uint16:
			lines = append(lines, formatField(prefix, fieldType, fmt.Sprintf("%04X", field.Uint())))

		case field.Type() == reflect.TypeOf([]bertlv.TLV{}):
			if unknownLines := formatUnknownField(prefix, field); len(unknownLines) > 0 {
				lines = append(lines, unknownLines...)
			}
		}
	}

	if len(lines) > 0 {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(strings.Join(lines, "\n"))
	}
}

func formatField(prefix string, fieldType reflect.StructField, displayVal string) string {
	name := fieldType.Name
	if tlvTag := fieldType.Tag.Get("tlv"); tlvTag != "" {
		name = fmt.Sprintf("%s (%s)", name, strings.Split(tlvTag, ",")[0])
	}
	return fmt.Sprintf("    - %s.%s: %s", prefix, name, displayVal)
}

// arrayBytes copies a byte array out of a possibly non-addressable value.
func arrayBytes(v reflect.Value) []byte {
	out := make([]byte, v.Len())
	for i := range out {
		out[i] = byte(v.Index(i).Uint())
	}
	return out
}

func formatUnknownField(prefix string, field reflect.Value) []string {
	if field.IsNil() || field.Len() == 0 {
		return nil
	}

	var lines []string
	tlvs := field.Interface().([]bertlv.TLV)
	for _, t := range tlvs {
		valStr := strings.ToUpper(hex.EncodeToString(t.Value))
		lines = append(lines, fmt.Sprintf("    - %s.Unknown Tag %s: %s", prefix, t.Tag, valStr))
	}
	return lines
}

func formatByteValue(data []byte, format string) string {
	switch format {
	case "ascii":
		return fmt.Sprintf("%X (%q)", data, MakeSafeASCII(data))
	case "int":
		var integer int
		for _, b := range data {
			integer = (integer << 8) | int(b)
		}
		return fmt.Sprintf("%X (Dec: %d)", data, integer)
	default:
		return strings.ToUpper(hex.EncodeToString(data))
	}
}

// MakeSafeASCII replaces non-printable bytes with '.' for block dumps.
func MakeSafeASCII(data []byte) string {
	return strings.Map(func(r rune) rune {
		if r >= 32 && r <= 126 {
			return r
		}
		return '.'
	}, string(data))
}
