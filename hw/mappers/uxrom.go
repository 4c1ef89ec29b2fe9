package mappers

import (
	"nescore/hw"
	"nescore/hw/snapshot"
)

var UxROM = MapperDesc{
	ID:              2,
	Name:            "UxROM",
	Load:            loadUxROM,
	HasBusConflicts: func(b *base) bool { return b.cart.SubMapper == 2 },
}

type uxrom struct {
	*base

	prgbank  uint8
	bankmask uint8
}

func (m *uxrom) OnLoadCPU() {
	m.remap()
}

func (m *uxrom) Write(addr uint16, val uint8) {
	if m.writePRGRAM(addr, val) {
		return
	}
	val = m.busConflict(addr, val)

	// 7  bit  0
	// ---- ----
	// xxxx pPPP
	//      ||||
	//      ++++- Select 16 KB PRG ROM bank for CPU $8000-$BFFF
	//            (UNROM uses bits 2-0; UOROM uses bits 3-0)
	prev := m.prgbank
	m.prgbank = val & m.bankmask
	if prev != m.prgbank {
		m.remap()
		modMapper.DebugZ("PRGROM bank switch").String("mapper", m.desc.Name).Uint("prev", uint(prev)).Uint("new", uint(m.prgbank)).End()
	}
}

func (m *uxrom) remap() {
	m.selectPRGPage16KB(0, int(m.prgbank))
	m.selectPRGPage16KB(1, -1)
}

func (m *uxrom) Serialize(s *snapshot.Serializer) {
	m.serialize(s)
	s.U8(&m.prgbank)
	if s.Loading() {
		m.remap()
	}
}

func loadUxROM(b *base) (hw.Mapper, error) {
	nbanks := len(b.cart.PRGROM) >> 14
	mask := uint8(0x0F)
	if nbanks <= 8 {
		mask = 0x07
	}
	return &uxrom{base: b, bankmask: mask}, nil
}
