package hwio

import "testing"

func TestReg8(t *testing.T) {
	r := Reg8{Value: 0x11, RoMask: 0xF0}

	if got := r.Read8(0, 0); got != 0x11 {
		t.Errorf("invalid read: %x", got)
	}
	if got := r.Read8(9999, 0); got != 0x11 {
		t.Errorf("invalid read with offset: %x", got)
	}

	r.Write8(0, 0x77)
	if r.Value != 0x17 {
		t.Errorf("writemask not respected: %x", r.Value)
	}
	r.Write8(9999, 0x88)
	if r.Value != 0x18 {
		t.Errorf("writemask with offset not respected: %x", r.Value)
	}
}

func TestReg8Flags(t *testing.T) {
	ro := Reg8{Name: "status", Value: 0x80, Flags: ReadOnlyFlag}
	ro.Write8(0x2002, 0x00)
	if ro.Value != 0x80 {
		t.Errorf("readonly reg written: %x", ro.Value)
	}

	wo := Reg8{Name: "ctrl", Value: 0x12, Flags: WriteOnlyFlag}
	if got := wo.Read8(0x2000, 0x5A); got != 0x5A {
		t.Errorf("writeonly reg should read open bus, got %x", got)
	}
}

func TestReg8Callbacks(t *testing.T) {
	var reads, writes int
	r := Reg8{
		ReadCb:  func(val uint8) uint8 { reads++; return val | 1 },
		PeekCb:  func(val uint8) uint8 { return val | 2 },
		WriteCb: func(old, val uint8) { writes++ },
	}

	r.Write8(0, 0x40)
	if writes != 1 {
		t.Errorf("write callback not called")
	}
	if got := r.Read8(0, 0); got != 0x41 || reads != 1 {
		t.Errorf("read callback: got %x reads=%d", got, reads)
	}
	if got := r.Peek8(0); got != 0x42 || reads != 1 {
		t.Errorf("peek must not trigger read callback: got %x reads=%d", got, reads)
	}
}

func TestReg8Bits(t *testing.T) {
	var r Reg8
	r.SetBit(7)
	if !r.GetBit(7) || r.GetBiti(7) != 1 {
		t.Errorf("bit 7 not set: %x", r.Value)
	}
	r.SetBitTo(0, true)
	r.ClearBit(7)
	if r.Value != 0x01 {
		t.Errorf("got %x, want 01", r.Value)
	}
	r.Value = 0xFF
	r.ClearBits(0xE0)
	if r.Value != 0x1F {
		t.Errorf("got %x, want 1f", r.Value)
	}
}
