package mappers

import (
	"errors"
	"fmt"

	"nescore/emu/log"
	"nescore/hw"
	"nescore/hw/hwdefs"
	"nescore/ines"
)

var modMapper = log.NewModule("mapper")

// ErrUnsupportedMapper is returned by Load when no mapper implementation
// exists for the rom mapper number.
var ErrUnsupportedMapper = errors.New("unsupported mapper")

// Host is the part of the console a mapper can act upon.
type Host interface {
	SetMirroring(m ines.NTMirroring)
	SetIRQSource(src hwdefs.IRQSource)
	ClearIRQSource(src hwdefs.IRQSource)
	CurrentCycle() int64
}

// Load creates the mapper for rom. The returned mapper must then be
// initialized with OnLoadCPU and OnLoadPPU.
func Load(rom *ines.Rom, host Host) (hw.Mapper, error) {
	desc, ok := All[rom.Mapper()]
	if !ok {
		return nil, fmt.Errorf("%w %d", ErrUnsupportedMapper, rom.Mapper())
	}
	base, err := newbase(desc, rom, host)
	if err != nil {
		return nil, fmt.Errorf("mapper initialization failed: %w", err)
	}
	m, err := desc.Load(base)
	if err != nil {
		return nil, fmt.Errorf("failed to load mapper %s: %w", desc.Name, err)
	}
	modMapper.InfoZ("mapper loaded").
		String("name", desc.Name).
		Int("prg", len(base.cart.PRGROM)).
		Int("chr", len(base.cart.CHR)).
		Bool("chrram", base.cart.CHRRAM).
		End()
	return m, nil
}

type MapperDesc struct {
	ID              uint16
	Name            string
	Load            func(*base) (hw.Mapper, error)
	HasBusConflicts func(*base) bool
}

var All = map[uint16]MapperDesc{
	0:  NROM,
	1:  MMC1,
	2:  UxROM,
	3:  CNROM,
	4:  MMC3,
	7:  AxROM,
	66: GxROM,
}
