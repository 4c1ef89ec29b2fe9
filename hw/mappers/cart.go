package mappers

import (
	"fmt"

	"nescore/ines"
)

// Cart holds the memory chips of a cartridge.
type Cart struct {
	PRGROM []byte
	PRGRAM []byte
	CHR    []byte // CHR ROM or CHR RAM
	CHRRAM bool

	Mirroring ines.NTMirroring
	Battery   bool
	SubMapper uint8
}

func ispow2(n int) bool {
	return n&(n-1) == 0
}

func NewCart(rom *ines.Rom) (*Cart, error) {
	if !ispow2(len(rom.PRGROM)) {
		return nil, fmt.Errorf("%w: only support PRGROM with power of 2 size, got %d", ines.ErrMalformedROM, len(rom.PRGROM))
	}

	cart := &Cart{
		PRGROM:    rom.PRGROM,
		PRGRAM:    make([]byte, rom.PRGRAMSize()),
		Mirroring: rom.Mirroring(),
		Battery:   rom.HasPersistent(),
		SubMapper: rom.SubMapper(),
	}
	if len(rom.CHRROM) == 0 {
		cart.CHR = make([]byte, 0x2000)
		cart.CHRRAM = true
	} else {
		cart.CHR = rom.CHRROM
	}
	return cart, nil
}
