package hwio

import "testing"

func TestMemMirroring(t *testing.T) {
	m := NewMem(0x800)

	m.Write8(0x0001, 0xAA)
	for _, addr := range []uint16{0x0801, 0x1001, 0x1801} {
		if got := m.Read8(addr); got != 0xAA {
			t.Errorf("Read8(%04x) = %02x, want aa", addr, got)
		}
	}

	m.Write8(0x1FFF, 0x55)
	if got := m.Peek8(0x07FF); got != 0x55 {
		t.Errorf("Peek8(07ff) = %02x, want 55", got)
	}

	m.Clear()
	if got := m.Read8(0x0001); got != 0 {
		t.Errorf("memory not cleared: %02x", got)
	}
}

func TestMemNonPow2(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("NewMem should panic on non pow2 size")
		}
	}()
	NewMem(0x300)
}
