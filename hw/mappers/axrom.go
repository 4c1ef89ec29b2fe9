package mappers

import (
	"nescore/hw"
	"nescore/hw/snapshot"
	"nescore/ines"
)

var AxROM = MapperDesc{
	ID:   7,
	Name: "AxROM",
	Load: loadAxROM,
}

type axrom struct {
	*base

	ntm     ines.NTMirroring
	prgbank uint8
}

func (m *axrom) OnLoadCPU() {
	m.selectPRGPage32KB(0)
}

func (m *axrom) OnLoadPPU() {
	m.selectCHRPage8KB(0)
	m.setNTMirroring(m.ntm)
}

func (m *axrom) Write(addr uint16, val uint8) {
	if m.writePRGRAM(addr, val) {
		return
	}

	// 7  bit  0
	// ---- ----
	// xxxM xPPP
	//    |  |||
	//    |  +++- Select 32 KB PRG ROM bank for CPU $8000-$FFFF
	//    +------ Select 1 KB VRAM page for all 4 nametables
	prev := m.prgbank
	m.prgbank = val & 0x7
	if prev != m.prgbank {
		m.selectPRGPage32KB(int(m.prgbank))
	}

	prevntm := m.ntm
	if val&0x10 == 0x10 {
		m.ntm = ines.OnlyBScreen
	} else {
		m.ntm = ines.OnlyAScreen
	}
	if prevntm != m.ntm {
		m.setNTMirroring(m.ntm)
		modMapper.DebugZ("select NT mirroring").String("mapper", m.desc.Name).Stringer("prev", prevntm).Stringer("new", m.ntm).End()
	}
}

func (m *axrom) Serialize(s *snapshot.Serializer) {
	m.serialize(s)
	s.U8(&m.prgbank)
	ntm := uint8(m.ntm)
	s.U8(&ntm)
	if s.Loading() {
		m.ntm = ines.NTMirroring(ntm)
		m.selectPRGPage32KB(int(m.prgbank))
	}
}

func loadAxROM(b *base) (hw.Mapper, error) {
	return &axrom{base: b, ntm: ines.OnlyAScreen}, nil
}
