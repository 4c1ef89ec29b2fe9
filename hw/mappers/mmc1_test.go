package mappers

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nescore/hw"
	"nescore/ines"
)

// writeMMC1 writes a 5-bit value to an MMC1 register, LSB first.
func writeMMC1(m hw.Mapper, addr uint16, val uint8) {
	for i := range 5 {
		m.Write(addr, (val>>i)&1)
	}
}

func TestMMC1PowerUp(t *testing.T) {
	m, host := loadMapper(t, makeROM(1, 256, 128))
	mm := m.(*mmc1)

	// 16KB mode, $8000 swappable, last bank fixed at $C000.
	require.Equal(t, uint8(3), mm.prgmode())
	require.Equal(t, [4]uint8{0, 1, 30, 31}, prgBanks(m))
	require.Equal(t, ines.OnlyAScreen, host.mirroring)
}

func TestMMC1Registers(t *testing.T) {
	m, host := loadMapper(t, makeROM(1, 256, 128))

	// Control: vertical mirroring, PRG mode 2, 4KB CHR mode.
	writeMMC1(m, 0x8000, 0b1_10_10)
	require.Equal(t, ines.VertMirroring, host.mirroring)

	writeMMC1(m, 0xE000, 5)
	require.Equal(t, [4]uint8{0, 1, 10, 11}, prgBanks(m))

	writeMMC1(m, 0xA000, 3)
	writeMMC1(m, 0xC000, 8)
	require.Equal(t, [8]uint8{12, 13, 14, 15, 32, 33, 34, 35}, chrBanks(m))

	// 32KB PRG mode, 8KB CHR mode: the low bit of bank numbers is ignored.
	writeMMC1(m, 0x8000, 0b0_00_11)
	require.Equal(t, ines.HorzMirroring, host.mirroring)
	require.Equal(t, [4]uint8{8, 9, 10, 11}, prgBanks(m))
	require.Equal(t, [8]uint8{8, 9, 10, 11, 12, 13, 14, 15}, chrBanks(m))
}

func TestMMC1ResetBit(t *testing.T) {
	m, _ := loadMapper(t, makeROM(1, 256, 128))
	mm := m.(*mmc1)

	writeMMC1(m, 0x8000, 0b0_00_10) // PRG mode 0
	require.Equal(t, uint8(0), mm.prgmode())

	// Partially shift, then reset.
	m.Write(0x8000, 1)
	m.Write(0x8000, 1)
	m.Write(0x8000, 0x80)
	require.Equal(t, uint8(0), mm.counter)
	require.Equal(t, shiftReg(0), mm.serial)
	require.Equal(t, uint8(3), mm.prgmode())
	require.Equal(t, uint8(0x0E), mm.ctrl, "other control bits are kept")

	// Next write is the first one of a new sequence.
	writeMMC1(m, 0xE000, 2)
	require.Equal(t, [4]uint8{4, 5, 30, 31}, prgBanks(m))
}

func TestMMC1ConsecutiveWrites(t *testing.T) {
	host := &fakeHost{}
	m, err := Load(makeROM(1, 256, 128), host)
	require.NoError(t, err)
	m.OnLoadCPU()
	mm := m.(*mmc1)

	mm.Write(0x8000, 1)
	require.Equal(t, uint8(1), mm.counter)

	// A write on the next cycle (RMW dummy write) is ignored.
	mm.prevCycle = host.cycle + 4
	mm.Write(0x8000, 1)
	require.Equal(t, uint8(1), mm.counter)
}

func TestMMC1PRGRAMDisable(t *testing.T) {
	m, _ := loadMapper(t, makeROM(1, 256, 128))
	m.Write(0x6000, 0x55)
	require.Equal(t, uint8(0x55), m.ReadROM(0x6000))

	writeMMC1(m, 0xE000, 0x10)
	require.Equal(t, uint8(0x60), m.ReadROM(0x6000), "disabled PRG RAM reads open bus")
}
