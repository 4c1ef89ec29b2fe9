package mappers

import (
	"nescore/hw"
	"nescore/hw/snapshot"
)

var GxROM = MapperDesc{
	ID:   66,
	Name: "GxROM",
	Load: loadGxROM,
}

type gxrom struct {
	*base

	chrbank uint8
	prgbank uint8
}

func (m *gxrom) OnLoadCPU() {
	m.selectPRGPage32KB(0)
}

func (m *gxrom) Write(addr uint16, val uint8) {
	if m.writePRGRAM(addr, val) {
		return
	}

	// 7  bit  0
	// ---- ----
	// xxPP xxCC
	//   ||   ||
	//   ||   ++- Select 8 KB CHR ROM bank for PPU $0000-$1FFF
	//   ++------ Select 32 KB PRG ROM bank for CPU $8000-$FFFF
	prevchr := m.chrbank
	m.chrbank = val & 0x3
	if prevchr != m.chrbank {
		m.selectCHRPage8KB(int(m.chrbank))
		modMapper.DebugZ("CHRROM bank switch").String("mapper", m.desc.Name).Uint("prev", uint(prevchr)).Uint("new", uint(m.chrbank)).End()
	}

	prevprg := m.prgbank
	m.prgbank = (val >> 4) & 0x3
	if prevprg != m.prgbank {
		m.selectPRGPage32KB(int(m.prgbank))
		modMapper.DebugZ("PRGROM bank switch").String("mapper", m.desc.Name).Uint("prev", uint(prevprg)).Uint("new", uint(m.prgbank)).End()
	}
}

func (m *gxrom) Serialize(s *snapshot.Serializer) {
	m.serialize(s)
	s.U8(&m.chrbank)
	s.U8(&m.prgbank)
	if s.Loading() {
		m.selectCHRPage8KB(int(m.chrbank))
		m.selectPRGPage32KB(int(m.prgbank))
	}
}

func loadGxROM(b *base) (hw.Mapper, error) {
	return &gxrom{base: b}, nil
}
