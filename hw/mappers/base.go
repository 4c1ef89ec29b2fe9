package mappers

import (
	"nescore/hw/snapshot"
	"nescore/ines"
)

// base implements the bank switching common to all mappers. The CPU sees
// PRG ROM through four 8KB slots (0x8000-0xFFFF) and the PPU sees CHR
// through eight 1KB slots (0x0000-0x1FFF).
type base struct {
	desc MapperDesc
	cart *Cart
	host Host

	prg [4]int // offsets in PRGROM
	chr [8]int // offsets in CHR

	prgRAMEnabled  bool
	prgRAMReadOnly bool
	busConflicts   bool
}

func newbase(desc MapperDesc, rom *ines.Rom, host Host) (*base, error) {
	cart, err := NewCart(rom)
	if err != nil {
		return nil, err
	}
	b := &base{
		desc:          desc,
		cart:          cart,
		host:          host,
		prgRAMEnabled: true,
	}
	if desc.HasBusConflicts != nil {
		b.busConflicts = desc.HasBusConflicts(b)
	}
	return b, nil
}

func (b *base) ID() uint16   { return b.desc.ID }
func (b *base) Name() string { return b.desc.Name }

func (b *base) OnLoadCPU() {}

func (b *base) OnLoadPPU() {
	b.setNTMirroring(b.cart.Mirroring)
	b.selectCHRPage8KB(0)
}

func (b *base) Clock() {}

func (b *base) ReadROM(addr uint16) uint8 {
	switch {
	case addr >= 0x8000:
		slot := (addr - 0x8000) >> 13
		return b.cart.PRGROM[b.prg[slot]+int(addr&0x1FFF)]
	case addr >= 0x6000:
		if b.prgRAMEnabled && len(b.cart.PRGRAM) > 0 {
			return b.cart.PRGRAM[int(addr&0x1FFF)%len(b.cart.PRGRAM)]
		}
	}
	// Open bus, the last value on the data bus is usually the high byte of
	// the address.
	return uint8(addr >> 8)
}

func (b *base) ReadCHR(addr uint16) uint8 {
	addr &= 0x1FFF
	return b.cart.CHR[b.chr[addr>>10]+int(addr&0x3FF)]
}

func (b *base) WriteCHRRAM(addr uint16, val uint8) {
	if !b.cart.CHRRAM {
		return
	}
	addr &= 0x1FFF
	b.cart.CHR[b.chr[addr>>10]+int(addr&0x3FF)] = val
}

// InWriteWindow reports whether addr is in $6000-$FFFF. None of the boards
// handled here decode the expansion area ($4020-$5FFF): writes there reach
// no register, even on UxROM which otherwise latches any write to
// cartridge space.
func (b *base) InWriteWindow(addr uint16) bool {
	return addr >= 0x6000
}

// writePRGRAM handles writes to 0x6000-0x7FFF, it reports whether addr lies
// in the PRG RAM window.
func (b *base) writePRGRAM(addr uint16, val uint8) bool {
	if addr < 0x6000 || addr >= 0x8000 {
		return false
	}
	if b.prgRAMEnabled && !b.prgRAMReadOnly && len(b.cart.PRGRAM) > 0 {
		b.cart.PRGRAM[int(addr&0x1FFF)%len(b.cart.PRGRAM)] = val
	}
	return true
}

// busConflict returns the value effectively written at addr, when the ROM
// drives the data bus at the same time as the CPU.
func (b *base) busConflict(addr uint16, val uint8) uint8 {
	if b.busConflicts {
		return val & b.ReadROM(addr)
	}
	return val
}

// bank returns the offset of a bank of the given size, in a memory of n
// bytes. Negative banks are counted from the end.
func bank(n, size, bank int) int {
	nbanks := n / size
	if nbanks == 0 {
		return 0
	}
	if bank < 0 {
		bank += nbanks
	}
	return (bank % nbanks) * size
}

func (b *base) selectPRGPage8KB(slot, n int) {
	b.prg[slot] = bank(len(b.cart.PRGROM), 0x2000, n)
}

func (b *base) selectPRGPage16KB(slot, n int) {
	off := bank(len(b.cart.PRGROM), 0x4000, n)
	b.prg[2*slot] = off
	b.prg[2*slot+1] = off + 0x2000
}

func (b *base) selectPRGPage32KB(n int) {
	off := bank(len(b.cart.PRGROM), 0x8000, n)
	if len(b.cart.PRGROM) < 0x8000 {
		// 16KB PRG is mirrored.
		b.selectPRGPage16KB(0, 0)
		b.selectPRGPage16KB(1, 0)
		return
	}
	for i := range b.prg {
		b.prg[i] = off + i*0x2000
	}
}

func (b *base) selectCHRPage1KB(slot, n int) {
	b.chr[slot] = bank(len(b.cart.CHR), 0x400, n)
}

func (b *base) selectCHRPage2KB(slot, n int) {
	off := bank(len(b.cart.CHR), 0x800, n)
	for i := range 2 {
		b.chr[2*slot+i] = off + i*0x400
	}
}

func (b *base) selectCHRPage4KB(slot, n int) {
	off := bank(len(b.cart.CHR), 0x1000, n)
	for i := range 4 {
		b.chr[4*slot+i] = off + i*0x400
	}
}

func (b *base) selectCHRPage8KB(n int) {
	off := bank(len(b.cart.CHR), 0x2000, n)
	for i := range b.chr {
		b.chr[i] = off + i*0x400
	}
}

func (b *base) setNTMirroring(m ines.NTMirroring) {
	if b.cart.Mirroring == ines.FourScreen {
		m = ines.FourScreen
	}
	b.host.SetMirroring(m)
}

// serialize stores the cartridge RAM. Bank slots are not stored since each
// mapper recomputes them from its registers after a load.
func (b *base) serialize(s *snapshot.Serializer) {
	s.Bytes(b.cart.PRGRAM)
	if b.cart.CHRRAM {
		s.Bytes(b.cart.CHR)
	}
	s.Bool(&b.prgRAMEnabled)
	s.Bool(&b.prgRAMReadOnly)
}
