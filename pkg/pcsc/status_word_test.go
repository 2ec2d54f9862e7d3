package pcsc

import (
	"strings"
	"testing"
)

func TestStatusWord_Bytes(t *testing.T) {
	sw := NewStatusWord(0x64, 0x01)
	if sw != SW_ERR_NO_CARD_RESPONSE {
		t.Errorf("NewStatusWord(64, 01) = %04X, want 6401", uint16(sw))
	}
	if sw.SW1() != 0x64 || sw.SW2() != 0x01 {
		t.Errorf("SW1/SW2 = %02X/%02X, want 64/01", sw.SW1(), sw.SW2())
	}
}

func TestStatusWord_Classification(t *testing.T) {
	tests := []struct {
		sw        StatusWord
		isSuccess bool
		isWarning bool
		isError   bool
	}{
		{SW_NO_ERROR, true, false, false},
		{NewStatusWord(0x61, 0x10), true, false, false}, // Bytes Available
		{SW_WARN_EOF_REACHED, false, true, false},
		{SW_ERR_NO_CARD_RESPONSE, false, false, true},
		{SW_ERR_FUNC_NOT_SUPPORTED, false, false, true},
	}

	for _, tt := range tests {
		if got := tt.sw.IsSuccess(); got != tt.isSuccess {
			t.Errorf("SW %04X IsSuccess = %v, want %v", uint16(tt.sw), got, tt.isSuccess)
		}
		if got := tt.sw.IsWarning(); got != tt.isWarning {
			t.Errorf("SW %04X IsWarning = %v, want %v", uint16(tt.sw), got, tt.isWarning)
		}
		if got := tt.sw.IsError(); got != tt.isError {
			t.Errorf("SW %04X IsError = %v, want %v", uint16(tt.sw), got, tt.isError)
		}
	}
}

func TestStatusWord_Verbose(t *testing.T) {
	tests := []struct {
		name     string
		sw       StatusWord
		contains string
	}{
		{"Success", SW_NO_ERROR, "[9000] Success"},
		{"Bytes available", NewStatusWord(0x61, 0x20), "32 bytes available"},
		{"No card", SW_ERR_NO_CARD_RESPONSE, "No response from card"},
		{"Generic fallback", NewStatusWord(0x6A, 0x99), "[6A99] Checking Error: Wrong parameters"},
		{"Unknown", NewStatusWord(0x12, 0x34), "[1234] Unknown Status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sw.Verbose(); !strings.Contains(got, tt.contains) {
				t.Errorf("Verbose() = %q, want it to contain %q", got, tt.contains)
			}
		})
	}
}

func TestStatusWord_String(t *testing.T) {
	if got := SW_ERR_INS_INVALID.String(); got != "SW_ERR_INS_INVALID" {
		t.Errorf("String() = %q", got)
	}
	if got := NewStatusWord(0x12, 0x34).String(); got != "StatusWord(1234)" {
		t.Errorf("String() = %q", got)
	}
}
