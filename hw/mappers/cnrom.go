package mappers

import (
	"nescore/hw"
	"nescore/hw/snapshot"
)

var CNROM = MapperDesc{
	ID:              3,
	Name:            "CNROM",
	Load:            loadCNROM,
	HasBusConflicts: func(b *base) bool { return b.cart.SubMapper == 2 },
}

type cnrom struct {
	*base

	chrbank uint8
}

func (m *cnrom) OnLoadCPU() {
	m.selectPRGPage16KB(0, 0)
	m.selectPRGPage16KB(1, -1)
}

func (m *cnrom) Write(addr uint16, val uint8) {
	if m.writePRGRAM(addr, val) {
		return
	}
	val = m.busConflict(addr, val)

	// 7  bit  0
	// ---- ----
	// cccc ccCC
	// |||| ||||
	// ++++-++++- Select 8 KB CHR ROM bank for PPU $0000-$1FFF
	// CNROM only uses lowest 2 bits
	prev := m.chrbank
	m.chrbank = val & 0b11
	if prev != m.chrbank {
		m.selectCHRPage8KB(int(m.chrbank))
		modMapper.DebugZ("CHRROM bank switch").String("mapper", m.desc.Name).Uint("prev", uint(prev)).Uint("new", uint(m.chrbank)).End()
	}
}

func (m *cnrom) Serialize(s *snapshot.Serializer) {
	m.serialize(s)
	s.U8(&m.chrbank)
	if s.Loading() {
		m.selectCHRPage8KB(int(m.chrbank))
	}
}

func loadCNROM(b *base) (hw.Mapper, error) {
	return &cnrom{base: b}, nil
}
