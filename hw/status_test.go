package hw

import "testing"

func TestPString(t *testing.T) {
	tests := []struct {
		p    P
		want string
	}{
		{0x00, "nvubdizc"},
		{0xFF, "NVUBDIZC"},
		{0x24, "nvUbdIzc"},
		{Carry | Negative, "NvubdizC"},
	}
	for _, tt := range tests {
		if got := tt.p.String(); got != tt.want {
			t.Errorf("P(%02x).String() = %s, want %s", uint8(tt.p), got, tt.want)
		}
	}
}

func TestCheckCV(t *testing.T) {
	tests := []struct {
		x, y uint8
		c, v bool
	}{
		{0x50, 0x10, false, false},
		{0x50, 0x50, false, true}, // pos + pos = neg
		{0xD0, 0x90, true, true},  // neg + neg = pos
		{0x50, 0xD0, true, false}, // no signed overflow
		{0xFF, 0x01, true, false},
	}
	for _, tt := range tests {
		var p P
		sum := uint16(tt.x) + uint16(tt.y)
		p.checkCV(tt.x, tt.y, sum)
		if p.hasFlag(Carry) != tt.c || p.hasFlag(Overflow) != tt.v {
			t.Errorf("%02x+%02x: got %s, want C=%t V=%t", tt.x, tt.y, p, tt.c, tt.v)
		}
	}
}
