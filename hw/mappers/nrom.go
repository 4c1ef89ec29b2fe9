package mappers

import (
	"nescore/hw"
	"nescore/hw/snapshot"
)

var NROM = MapperDesc{
	ID:   0,
	Name: "NROM",
	Load: loadNROM,
}

type nrom struct {
	*base
}

func (m *nrom) OnLoadCPU() {
	// NROM-128 mirrors its single 16KB bank at 0xC000.
	m.selectPRGPage16KB(0, 0)
	m.selectPRGPage16KB(1, -1)
}

func (m *nrom) Write(addr uint16, val uint8) {
	if !m.writePRGRAM(addr, val) {
		modMapper.DebugZ("write to ROM").String("mapper", m.desc.Name).Hex16("addr", addr).Hex8("val", val).End()
	}
}

func (m *nrom) Serialize(s *snapshot.Serializer) {
	m.serialize(s)
}

func loadNROM(b *base) (hw.Mapper, error) {
	return &nrom{base: b}, nil
}
