package mappers

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nescore/hw"
	"nescore/hw/hwdefs"
	"nescore/hw/snapshot"
	"nescore/ines"
)

type fakeHost struct {
	mirroring ines.NTMirroring
	irq       hwdefs.IRQSource
	cycle     int64
}

func (h *fakeHost) SetMirroring(m ines.NTMirroring)     { h.mirroring = m }
func (h *fakeHost) SetIRQSource(src hwdefs.IRQSource)   { h.irq |= src }
func (h *fakeHost) ClearIRQSource(src hwdefs.IRQSource) { h.irq &^= src }

// Each access is at least 2 cycles apart from the previous one.
func (h *fakeHost) CurrentCycle() int64 {
	h.cycle += 4
	return h.cycle
}

// makeROM returns a rom in which each 8KB PRG bank (resp. 1KB CHR bank) is
// filled with its bank number.
func makeROM(mapper uint16, prgKB, chrKB int) *ines.Rom {
	prg := make([]byte, prgKB*1024)
	for i := range prg {
		prg[i] = uint8(i / 0x2000)
	}
	chr := make([]byte, chrKB*1024)
	for i := range chr {
		chr[i] = uint8(i / 0x400)
	}
	return ines.New(mapper, ines.HorzMirroring, prg, chr)
}

func loadMapper(t *testing.T, rom *ines.Rom) (hw.Mapper, *fakeHost) {
	t.Helper()
	host := &fakeHost{}
	m, err := Load(rom, host)
	require.NoError(t, err)
	m.OnLoadCPU()
	m.OnLoadPPU()
	return m, host
}

// prgBanks returns the 8KB bank mapped in each CPU slot.
func prgBanks(m hw.Mapper) [4]uint8 {
	return [4]uint8{m.ReadROM(0x8000), m.ReadROM(0xA000), m.ReadROM(0xC000), m.ReadROM(0xE000)}
}

// chrBanks returns the 1KB bank mapped in each PPU slot.
func chrBanks(m hw.Mapper) [8]uint8 {
	var banks [8]uint8
	for i := range banks {
		banks[i] = m.ReadCHR(uint16(i) * 0x400)
	}
	return banks
}

func TestUnsupportedMapper(t *testing.T) {
	_, err := Load(makeROM(250, 32, 8), &fakeHost{})
	require.ErrorIs(t, err, ErrUnsupportedMapper)
}

func TestNonPow2PRG(t *testing.T) {
	_, err := Load(makeROM(0, 48, 8), &fakeHost{})
	require.ErrorIs(t, err, ines.ErrMalformedROM)
}

func TestNROM(t *testing.T) {
	m, host := loadMapper(t, makeROM(0, 16, 8))
	require.Equal(t, "NROM", m.Name())
	require.Equal(t, ines.HorzMirroring, host.mirroring)

	// NROM-128: 0xC000 mirrors 0x8000.
	require.Equal(t, [4]uint8{0, 1, 0, 1}, prgBanks(m))

	m, _ = loadMapper(t, makeROM(0, 32, 8))
	require.Equal(t, [4]uint8{0, 1, 2, 3}, prgBanks(m))

	// PRG RAM.
	require.True(t, m.InWriteWindow(0x6000))
	m.Write(0x6123, 0x42)
	require.Equal(t, uint8(0x42), m.ReadROM(0x6123))

	// ROM writes are ignored.
	m.Write(0x8000, 0xFF)
	require.Equal(t, uint8(0), m.ReadROM(0x8000))
}

func TestCHRRAM(t *testing.T) {
	m, _ := loadMapper(t, makeROM(0, 32, 0))
	m.WriteCHRRAM(0x1234, 0x99)
	require.Equal(t, uint8(0x99), m.ReadCHR(0x1234))

	// CHR ROM is not writable.
	m, _ = loadMapper(t, makeROM(0, 32, 8))
	m.WriteCHRRAM(0x0000, 0x99)
	require.Equal(t, uint8(0), m.ReadCHR(0x0000))
}

func TestUxROM(t *testing.T) {
	m, _ := loadMapper(t, makeROM(2, 128, 0))

	// Last 16KB bank is fixed at $C000.
	require.Equal(t, [4]uint8{0, 1, 14, 15}, prgBanks(m))

	m.Write(0x8000, 3)
	require.Equal(t, [4]uint8{6, 7, 14, 15}, prgBanks(m))

	// UNROM only uses the low 3 bits.
	m.Write(0xFFFF, 0xF9)
	require.Equal(t, [4]uint8{2, 3, 14, 15}, prgBanks(m))

	// The expansion area is not decoded.
	for _, addr := range []uint16{0x4020, 0x5000, 0x5FFF} {
		require.Falsef(t, m.InWriteWindow(addr), "addr %04X", addr)
	}
	require.True(t, m.InWriteWindow(0x6000))
	require.True(t, m.InWriteWindow(0x8000))
}

func TestCNROM(t *testing.T) {
	m, _ := loadMapper(t, makeROM(3, 32, 32))
	require.Equal(t, uint8(0), m.ReadCHR(0x0000))

	m.Write(0x8000, 2)
	require.Equal(t, [8]uint8{16, 17, 18, 19, 20, 21, 22, 23}, chrBanks(m))
}

func TestAxROM(t *testing.T) {
	m, host := loadMapper(t, makeROM(7, 128, 0))
	require.Equal(t, ines.OnlyAScreen, host.mirroring)
	require.Equal(t, [4]uint8{0, 1, 2, 3}, prgBanks(m))

	m.Write(0x8000, 0x12)
	require.Equal(t, ines.OnlyBScreen, host.mirroring)
	require.Equal(t, [4]uint8{8, 9, 10, 11}, prgBanks(m))
}

func TestGxROM(t *testing.T) {
	m, _ := loadMapper(t, makeROM(66, 128, 32))
	m.Write(0x8000, 0x31)
	require.Equal(t, [4]uint8{12, 13, 14, 15}, prgBanks(m))
	require.Equal(t, uint8(8), m.ReadCHR(0))
}

func TestSerializeRestoresBanks(t *testing.T) {
	m, _ := loadMapper(t, makeROM(2, 128, 0))
	m.Write(0x8000, 5)
	m.Write(0x6000, 0xAB)
	m.WriteCHRRAM(0x0010, 0xCD)

	st := snapshot.NewStore(0x8000)
	m.Serialize(st)
	blob, err := st.Blob()
	require.NoError(t, err)

	m2, _ := loadMapper(t, makeROM(2, 128, 0))
	ld := snapshot.NewLoad(blob)
	m2.Serialize(ld)
	require.NoError(t, ld.Finish())

	require.Equal(t, prgBanks(m), prgBanks(m2))
	require.Equal(t, uint8(0xAB), m2.ReadROM(0x6000))
	require.Equal(t, uint8(0xCD), m2.ReadCHR(0x0010))
}
