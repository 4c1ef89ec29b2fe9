package hwio

import "testing"

func TestReverse8(t *testing.T) {
	tests := []struct{ in, want uint8 }{
		{0x00, 0x00},
		{0x01, 0x80},
		{0x80, 0x01},
		{0xF0, 0x0F},
		{0xA5, 0xA5},
		{0x12, 0x48},
	}
	for _, tt := range tests {
		if got := Reverse8(tt.in); got != tt.want {
			t.Errorf("Reverse8(%02x) = %02x, want %02x", tt.in, got, tt.want)
		}
	}
}

func TestBit8(t *testing.T) {
	var v uint8
	SetBit8(&v, 3)
	if !GetBit8(v, 3) || v != 0x08 {
		t.Fatalf("SetBit8: got %02x", v)
	}
	FlipBit8(&v, 0)
	ClearBit8(&v, 3)
	if v != 0x01 {
		t.Fatalf("got %02x, want 01", v)
	}
}

func TestBit16(t *testing.T) {
	var v uint16 = 0xFFFF
	ClearBits16(&v, 0x0F00)
	ClearBit16(&v, 15)
	if v != 0x70FF {
		t.Fatalf("got %04x, want 70ff", v)
	}
	if GetBiti16(v, 14) != 1 {
		t.Fatalf("bit 14 should be set")
	}
}
