package mappers

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nescore/hw/hwdefs"
	"nescore/ines"
)

func TestMMC3Banks(t *testing.T) {
	m, _ := loadMapper(t, makeROM(4, 256, 256))

	// R6=5, R7=9, PRG mode 0.
	m.Write(0x8000, 6)
	m.Write(0x8001, 5)
	m.Write(0x8000, 7)
	m.Write(0x8001, 9)
	require.Equal(t, [4]uint8{5, 9, 30, 31}, prgBanks(m))

	// PRG mode 1 swaps $8000 and $C000.
	m.Write(0x8000, 0x40)
	require.Equal(t, [4]uint8{30, 9, 5, 31}, prgBanks(m))

	// CHR banks.
	for r, v := range []uint8{10, 20, 1, 2, 3, 4} {
		m.Write(0x8000, uint8(r))
		m.Write(0x8001, v)
	}
	require.Equal(t, [8]uint8{10, 11, 20, 21, 1, 2, 3, 4}, chrBanks(m))

	// CHR A12 inversion.
	m.Write(0x8000, 0x80)
	require.Equal(t, [8]uint8{1, 2, 3, 4, 10, 11, 20, 21}, chrBanks(m))
}

func TestMMC3Mirroring(t *testing.T) {
	m, host := loadMapper(t, makeROM(4, 128, 128))
	m.Write(0xA000, 1)
	require.Equal(t, ines.HorzMirroring, host.mirroring)
	m.Write(0xA000, 0)
	require.Equal(t, ines.VertMirroring, host.mirroring)
}

func TestMMC3PRGRAMProtect(t *testing.T) {
	m, _ := loadMapper(t, makeROM(4, 128, 128))
	m.Write(0xA001, 0x80)
	m.Write(0x6000, 0x11)
	require.Equal(t, uint8(0x11), m.ReadROM(0x6000))

	m.Write(0xA001, 0xC0) // write protect
	m.Write(0x6000, 0x22)
	require.Equal(t, uint8(0x11), m.ReadROM(0x6000))
}

func TestMMC3IRQ(t *testing.T) {
	m, host := loadMapper(t, makeROM(4, 128, 128))

	m.Write(0xC000, 3) // latch
	m.Write(0xC001, 0) // reload
	m.Write(0xE001, 0) // enable

	// reload to 3, then 2, 1, 0 -> IRQ on the 4th scanline.
	for range 3 {
		m.Clock()
		require.Zero(t, host.irq&hwdefs.Mapper)
	}
	m.Clock()
	require.NotZero(t, host.irq&hwdefs.Mapper)

	// Acknowledge and disable.
	m.Write(0xE000, 0)
	require.Zero(t, host.irq&hwdefs.Mapper)

	// Counter reloads from latch when it reaches 0, no IRQ while disabled.
	for range 8 {
		m.Clock()
	}
	require.Zero(t, host.irq&hwdefs.Mapper)
}

func TestMMC3IRQLatchZero(t *testing.T) {
	m, host := loadMapper(t, makeROM(4, 128, 128))
	m.Write(0xC000, 0)
	m.Write(0xC001, 0)
	m.Write(0xE001, 0)

	// With a latch of 0, the IRQ fires on every scanline.
	m.Clock()
	require.NotZero(t, host.irq&hwdefs.Mapper)
}
