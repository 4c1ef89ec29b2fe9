package mappers

import (
	"nescore/hw"
	"nescore/hw/hwdefs"
	"nescore/hw/snapshot"
	"nescore/ines"
)

var MMC3 = MapperDesc{
	ID:   4,
	Name: "MMC3",
	Load: loadMMC3,
}

type mmc3 struct {
	*base

	regs    [8]uint8 // R0-R7
	bankSel uint8
	mirror  uint8
	ramProt uint8

	irqLatch   uint8
	irqCounter uint8
	irqReload  bool
	irqEnabled bool
}

func (m *mmc3) OnLoadCPU() {
	m.remap()
}

func (m *mmc3) OnLoadPPU() {
	m.remap()
	m.setNTMirroring(m.cart.Mirroring)
}

func (m *mmc3) Write(addr uint16, val uint8) {
	if m.writePRGRAM(addr, val) {
		return
	}

	switch addr & 0xE001 {
	case 0x8000:
		// 7  bit  0
		// ---- ----
		// CPMx xRRR
		// |||   |||
		// |||   +++- Specify which bank register to update on next write to Bank Data register
		// ||+------- Nothing on the MMC3, see MMC6
		// |+-------- PRG ROM bank mode (0: $8000-$9FFF swappable,
		// |                                $C000-$DFFF fixed to second-last bank;
		// |                             1: $C000-$DFFF swappable,
		// |                                $8000-$9FFF fixed to second-last bank)
		// +--------- CHR A12 inversion (0: two 2 KB banks at $0000-$0FFF,
		//                                 four 1 KB banks at $1000-$1FFF;
		//                              1: two 2 KB banks at $1000-$1FFF,
		//                                 four 1 KB banks at $0000-$0FFF)
		m.bankSel = val
		m.remap()
	case 0x8001:
		m.regs[m.bankSel&0x07] = val
		m.remap()
	case 0xA000:
		m.mirror = val & 0x01
		m.remapMirroring()
	case 0xA001:
		// 7  bit  0
		// ---- ----
		// RWXX xxxx
		// ||
		// |+-------- Write protection (0: allow writes; 1: deny writes)
		// +--------- PRG RAM chip enable (0: disable; 1: enable)
		m.ramProt = val
		m.prgRAMEnabled = val&0x80 != 0
		m.prgRAMReadOnly = val&0x40 != 0
	case 0xC000:
		m.irqLatch = val
	case 0xC001:
		m.irqCounter = 0
		m.irqReload = true
	case 0xE000:
		m.irqEnabled = false
		m.host.ClearIRQSource(hwdefs.Mapper)
	case 0xE001:
		m.irqEnabled = true
	}
}

func (m *mmc3) remap() {
	if m.bankSel&0x40 == 0 {
		m.selectPRGPage8KB(0, int(m.regs[6]&0x3F))
		m.selectPRGPage8KB(2, -2)
	} else {
		m.selectPRGPage8KB(0, -2)
		m.selectPRGPage8KB(2, int(m.regs[6]&0x3F))
	}
	m.selectPRGPage8KB(1, int(m.regs[7]&0x3F))
	m.selectPRGPage8KB(3, -1)

	// With inversion, the 2KB banks go to $1000-$1FFF (slots 4-7) and the
	// 1KB banks to $0000-$0FFF (slots 0-3).
	inv := 0
	if m.bankSel&0x80 != 0 {
		inv = 4
	}
	m.selectCHRPage1KB(0^inv, int(m.regs[0]&0xFE))
	m.selectCHRPage1KB(1^inv, int(m.regs[0]|0x01))
	m.selectCHRPage1KB(2^inv, int(m.regs[1]&0xFE))
	m.selectCHRPage1KB(3^inv, int(m.regs[1]|0x01))
	m.selectCHRPage1KB(4^inv, int(m.regs[2]))
	m.selectCHRPage1KB(5^inv, int(m.regs[3]))
	m.selectCHRPage1KB(6^inv, int(m.regs[4]))
	m.selectCHRPage1KB(7^inv, int(m.regs[5]))
}

func (m *mmc3) remapMirroring() {
	if m.mirror == 0 {
		m.setNTMirroring(ines.VertMirroring)
	} else {
		m.setNTMirroring(ines.HorzMirroring)
	}
}

// Clock clocks the scanline counter. It's called once per scanline, at the
// time the PPU fetches sprite patterns, which is when PPU A12 rises on boards
// using the usual configuration (background at $0000, sprites at $1000).
func (m *mmc3) Clock() {
	if m.irqCounter == 0 || m.irqReload {
		m.irqCounter = m.irqLatch
		m.irqReload = false
	} else {
		m.irqCounter--
	}

	if m.irqCounter == 0 && m.irqEnabled {
		m.host.SetIRQSource(hwdefs.Mapper)
		modMapper.DebugZ("scanline IRQ").String("mapper", m.desc.Name).Hex8("latch", m.irqLatch).End()
	}
}

func (m *mmc3) Serialize(s *snapshot.Serializer) {
	m.serialize(s)
	s.Bytes(m.regs[:])
	s.U8(&m.bankSel)
	s.U8(&m.mirror)
	s.U8(&m.ramProt)
	s.U8(&m.irqLatch)
	s.U8(&m.irqCounter)
	s.Bool(&m.irqReload)
	s.Bool(&m.irqEnabled)
	if s.Loading() {
		m.remap()
	}
}

func loadMMC3(b *base) (hw.Mapper, error) {
	m := &mmc3{base: b}
	// Power-up values of the bank registers are unspecified, these match
	// what most games expect.
	m.regs = [8]uint8{0, 2, 4, 5, 6, 7, 0, 1}
	return m, nil
}
