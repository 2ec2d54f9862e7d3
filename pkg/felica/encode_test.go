package felica

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gregLibert/felica-pcsc/pkg/tlv"
)

var testIDm = IDm{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}

func TestEncodePolling(t *testing.T) {
	tests := []struct {
		name     string
		cmd      PollingCommand
		expected []byte
	}{
		{
			name:     "Default (wildcard, no request, 1 slot)",
			cmd:      DefaultPolling(),
			expected: tlv.Hex("FF C2 00 01 08 95 06 06", "00 FFFF 00 00"),
		},
		{
			name:     "NDEF system, system code request, 16 slots",
			cmd:      PollingCommand{SystemCode: SystemNDEF, RequestCode: RequestSystemCode, TimeSlot: Slot16},
			expected: tlv.Hex("FF C2 00 01 08 95 06 06", "00 12FC 01 0F"),
		},
		{
			name:     "Zero value command",
			cmd:      PollingCommand{},
			expected: tlv.Hex("FF C2 00 01 08 95 06 06", "00 0000 00 00"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cmd.Bytes()
			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("Polling mismatch (-want +got):\n%s", diff)
			}
			if len(got) != PollingCommandLen {
				t.Errorf("Length = %d, want %d", len(got), PollingCommandLen)
			}
		})
	}
}

func TestEncodeReadWithoutEncryption(t *testing.T) {
	header := "FF C2 00 01 14 95"
	body := "06 0102030405060708 01 0B00 02 8005 8091"

	t.Run("Canonical", func(t *testing.T) {
		var buf [ReadCommandLen]byte
		EncodeReadWithoutEncryption(&buf, testIDm, 0x05, 0x91)

		if diff := cmp.Diff(tlv.Hex(header, "12 12", body), buf[:]); diff != "" {
			t.Errorf("Canonical layout mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Legacy", func(t *testing.T) {
		var buf [ReadCommandLen]byte
		EncodeReadWithoutEncryptionLegacy(&buf, testIDm, 0x05, 0x91)

		want := tlv.Hex("FF C2 00 01 14 95 11 11 06 01 02 03 04 05 06 07 08 01 0B 00 02 80 05 80 91")
		if diff := cmp.Diff(want, buf[:]); diff != "" {
			t.Errorf("Legacy layout mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Layouts differ only in data size bytes", func(t *testing.T) {
		canonical := ReadCommand{IDm: testIDm, Block1: 0x05, Block2: 0x91}.Bytes()
		legacy := ReadCommand{IDm: testIDm, Block1: 0x05, Block2: 0x91, Layout: LayoutLegacy}.Bytes()

		var diffs []int
		for i := range canonical {
			if canonical[i] != legacy[i] {
				diffs = append(diffs, i)
			}
		}
		if diff := cmp.Diff([]int{6, 7}, diffs); diff != "" {
			t.Errorf("Differing offsets (-want +got):\n%s", diff)
		}
	})

	t.Run("Buffer is fully overwritten", func(t *testing.T) {
		var buf [ReadCommandLen]byte
		for i := range buf {
			buf[i] = 0xEE
		}
		EncodeReadWithoutEncryption(&buf, testIDm, 0x05, 0x91)
		if diff := cmp.Diff(tlv.Hex(header, "12 12", body), buf[:]); diff != "" {
			t.Errorf("Stale bytes left in buffer (-want +got):\n%s", diff)
		}
	})
}

func TestEncodeWriteWithoutEncryption(t *testing.T) {
	cmd := WriteCommand{
		IDm:   testIDm,
		Block: 0x05,
		Data:  [BlockSize]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88, 0x99, 0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF},
	}

	want := tlv.Hex(
		"FF C2 00 01 22 95 20 20",
		"08 0102030405060708 01 0900 01 8005",
		"00112233445566778899AABBCCDDEEFF",
	)

	got := cmd.Bytes()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Write layout mismatch (-want +got):\n%s", diff)
	}
	if len(got) != WriteCommandLen {
		t.Errorf("Length = %d, want %d", len(got), WriteCommandLen)
	}
}

func TestBlockListElement(t *testing.T) {
	for _, blk := range []byte{0x00, 0x05, 0x91, 0xFF} {
		t.Run(fmt.Sprintf("%02X", blk), func(t *testing.T) {
			head, num := blockListElement(blk)
			if head != 0x80 || num != blk {
				t.Errorf("blockListElement(%02X) = %02X %02X, want 80 %02X", blk, head, num, blk)
			}
		})
	}
}

func TestEnumEncodings(t *testing.T) {
	rc := map[RequestCode]byte{RequestNone: 0x00, RequestSystemCode: 0x01, RequestCapability: 0x02}
	for code, want := range rc {
		if got := code.Encode(); got != want {
			t.Errorf("%s.Encode() = %02X, want %02X", code, got, want)
		}
	}

	ts := map[int]byte{1: 0x00, 2: 0x01, 4: 0x03, 8: 0x07, 16: 0x0F}
	for n, want := range ts {
		slot, err := TimeSlotFor(n)
		if err != nil {
			t.Fatalf("TimeSlotFor(%d): %v", n, err)
		}
		if got := slot.Encode(); got != want {
			t.Errorf("TimeSlotFor(%d).Encode() = %02X, want %02X", n, got, want)
		}
		if slot.Slots() != n {
			t.Errorf("TimeSlotFor(%d).Slots() = %d", n, slot.Slots())
		}
	}

	for _, n := range []int{0, 3, 5, 17, -1} {
		if _, err := TimeSlotFor(n); err == nil {
			t.Errorf("TimeSlotFor(%d) should fail", n)
		}
	}

	if (RequestCode{}) != RequestNone || (TimeSlot{}) != Slot1 {
		t.Error("Zero values must be RequestNone and Slot1")
	}
}

func TestParseRequestCode(t *testing.T) {
	tests := []struct {
		in      string
		want    RequestCode
		wantErr bool
	}{
		{"", RequestNone, false},
		{"none", RequestNone, false},
		{"System_Code", RequestSystemCode, false},
		{" capability ", RequestCapability, false},
		{"everything", RequestNone, true},
	}

	for _, tt := range tests {
		got, err := ParseRequestCode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseRequestCode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseRequestCode(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestParseIDm(t *testing.T) {
	id, err := ParseIDm("01 02 03 04 05 06 07 08")
	if err != nil {
		t.Fatalf("ParseIDm: %v", err)
	}
	if id != testIDm {
		t.Errorf("ParseIDm = %s, want %s", id, testIDm)
	}
	if id.String() != "0102030405060708" {
		t.Errorf("String() = %s", id.String())
	}

	for _, bad := range []string{"0102", "zz02030405060708", "010203040506070809"} {
		if _, err := ParseIDm(bad); err == nil {
			t.Errorf("ParseIDm(%q) should fail", bad)
		}
	}
}
