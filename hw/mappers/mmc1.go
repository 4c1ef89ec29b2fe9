package mappers

import (
	"nescore/hw"
	"nescore/hw/snapshot"
	"nescore/ines"
)

var MMC1 = MapperDesc{
	ID:   1,
	Name: "MMC1",
	Load: loadMMC1,
}

type mmc1 struct {
	*base

	prevCycle int64

	serial  shiftReg // shift register
	counter uint8    // count of bits shifted

	ctrl     uint8
	chrbank0 uint8
	chrbank1 uint8
	prgreg   uint8
}

type shiftReg uint8

func (sr shiftReg) push(val uint8) shiftReg {
	sr >>= 1
	sr |= shiftReg((val << 4) & 0x10)
	return sr
}

func (m *mmc1) OnLoadCPU() {
	// On powerup: bits 2,3 of $8000 are set (this ensures the $8000 is bank 0,
	// and $C000 is the last bank - needed for SEROM/SHROM/SH1ROM which do no
	// support banking)
	m.ctrl = 0x0C
	m.remap()
}

func (m *mmc1) OnLoadPPU() {
	m.remap()
}

func (m *mmc1) Write(addr uint16, val uint8) {
	if m.writePRGRAM(addr, val) {
		return
	}

	curCycle := m.host.CurrentCycle()
	defer func() { m.prevCycle = curCycle }()

	if val&0x80 != 0 {
		// if the resetbit is set.
		//	- ignore databit
		//	- reset shift register (so that the next write is the "first" write)
		//	- bits 2,3 of control reg are set (16k PRG mode, $8000 swappable)
		//	- other bits of $8000 (and other regs) are unchanged
		m.serial = 0
		m.counter = 0
		m.ctrl |= 0x0C
		m.remap()
		return
	}

	// Ignore consecutive cycle writes (i.e dummy writes of RMW instructions).
	if curCycle-m.prevCycle < 2 {
		return
	}

	m.serial = m.serial.push(val)
	m.counter++
	if m.counter == 5 {
		m.writeREG(addr, uint8(m.serial))
		m.remap()
		m.serial = 0
		m.counter = 0
	}
}

func (m *mmc1) writeREG(addr uint16, val uint8) {
	switch (addr & 0x6000) >> 13 {
	case 0:
		m.ctrl = val
		modMapper.DebugZ("write CTRL reg").String("mapper", m.desc.Name).
			Hex8("val", val).
			Uint("prgmode", uint(m.prgmode())).
			Uint("chrmode", uint(m.chrmode())).
			End()
	case 1:
		modMapper.DebugZ("write CHR0 reg").String("mapper", m.desc.Name).Hex8("val", val).End()
		m.chrbank0 = val
	case 2:
		modMapper.DebugZ("write CHR1 reg").String("mapper", m.desc.Name).Hex8("val", val).End()
		m.chrbank1 = val
	case 3:
		// $E000-FFFF:  [...W PPPP]
		// W = WRAM Disable (0=enabled, 1=disabled)
		// P = PRG Reg
		modMapper.DebugZ("write PRG reg").String("mapper", m.desc.Name).Hex8("val", val).End()
		m.prgreg = val
	}
}

func (m *mmc1) prgmode() uint8 { return (m.ctrl & 0x0C) >> 2 }
func (m *mmc1) chrmode() uint8 { return (m.ctrl & 0x10) >> 4 }

func (m *mmc1) remap() {
	prgbank := int(m.prgreg & 0x0F)
	switch m.prgmode() {
	case 0, 1:
		// ignore low bit of bank number
		m.selectPRGPage32KB(prgbank >> 1)
	case 2:
		m.selectPRGPage16KB(0, 0)
		m.selectPRGPage16KB(1, prgbank)
	case 3:
		m.selectPRGPage16KB(0, prgbank)
		m.selectPRGPage16KB(1, -1)
	}
	m.prgRAMEnabled = m.prgreg&0x10 == 0

	switch m.chrmode() {
	case 0:
		m.selectCHRPage8KB(int(m.chrbank0&0x1F) >> 1)
	case 1:
		m.selectCHRPage4KB(0, int(m.chrbank0&0x1F))
		m.selectCHRPage4KB(1, int(m.chrbank1&0x1F))
	}

	switch m.ctrl & 0x03 {
	case 0:
		m.setNTMirroring(ines.OnlyAScreen)
	case 1:
		m.setNTMirroring(ines.OnlyBScreen)
	case 2:
		m.setNTMirroring(ines.VertMirroring)
	case 3:
		m.setNTMirroring(ines.HorzMirroring)
	}
}

func (m *mmc1) Serialize(s *snapshot.Serializer) {
	m.serialize(s)
	s.I64(&m.prevCycle)
	sr := uint8(m.serial)
	s.U8(&sr)
	s.U8(&m.counter)
	s.U8(&m.ctrl)
	s.U8(&m.chrbank0)
	s.U8(&m.chrbank1)
	s.U8(&m.prgreg)
	if s.Loading() {
		m.serial = shiftReg(sr)
		m.remap()
	}
}

func loadMMC1(b *base) (hw.Mapper, error) {
	return &mmc1{base: b, prevCycle: -2}, nil
}
