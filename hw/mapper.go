package hw

import (
	"nescore/hw/snapshot"
)

// Mapper is the cartridge hardware, as seen from the CPU and PPU buses.
type Mapper interface {
	// OnLoadCPU and OnLoadPPU set up the initial bank configuration once
	// the cartridge is plugged.
	OnLoadCPU()
	OnLoadPPU()

	// ReadROM reads from cartridge space (0x4020-0xFFFF).
	ReadROM(addr uint16) uint8
	// ReadCHR reads from the pattern tables (0x0000-0x1FFF).
	ReadCHR(addr uint16) uint8
	// WriteCHRRAM writes into the pattern tables. It has no effect if the
	// cartridge has CHR ROM.
	WriteCHRRAM(addr uint16, val uint8)

	// InWriteWindow reports whether the mapper handles CPU writes at addr.
	InWriteWindow(addr uint16) bool
	Write(addr uint16, val uint8)

	// Clock is called by the PPU once per rendered scanline.
	Clock()

	Serialize(s *snapshot.Serializer)

	ID() uint16
	Name() string
}
