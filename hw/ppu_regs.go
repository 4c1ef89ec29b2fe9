package hw

import (
	"nescore/emu/log"
	"nescore/hw/hwio"
)

// loopy is the internal VRAM address register, used for both v (current
// address) and t (temporary address, top-left onscreen tile).
//
//	yyy NN YYYYY XXXXX
//	||| || ||||| +++++-- coarse X scroll
//	||| || +++++-------- coarse Y scroll
//	||| ++-------------- nametable select
//	+++----------------- fine Y scroll
type loopy uint16

func (l loopy) coarsex() uint8   { return uint8(l & 0x1F) }
func (l loopy) coarsey() uint8   { return uint8(l>>5) & 0x1F }
func (l loopy) nametable() uint8 { return uint8(l>>10) & 0x03 }
func (l loopy) finey() uint8     { return uint8(l>>12) & 0x07 }
func (l loopy) low() uint8       { return uint8(l) }
func (l loopy) high() uint8      { return uint8(l>>8) & 0x7F }
func (l loopy) addr() uint16     { return uint16(l) & 0x3FFF }
func (l loopy) val() uint16      { return uint16(l) & 0x7FFF }

func (l *loopy) setCoarsex(v uint8)   { *l = *l&^0x001F | loopy(v&0x1F) }
func (l *loopy) setCoarsey(v uint8)   { *l = *l&^0x03E0 | loopy(v&0x1F)<<5 }
func (l *loopy) setNametable(v uint8) { *l = *l&^0x0C00 | loopy(v&0x03)<<10 }
func (l *loopy) setFiney(v uint8)     { *l = *l&^0x7000 | loopy(v&0x07)<<12 }
func (l *loopy) setLow(v uint8)       { *l = *l&^0x00FF | loopy(v) }
func (l *loopy) setHigh(v uint8)      { *l = *l&^0x7F00 | loopy(v&0x7F)<<8 }

// incx increments coarse X, switching horizontal nametable on wrap.
func (l *loopy) incx() {
	if l.coarsex() == 31 {
		l.setCoarsex(0)
		*l ^= 0x0400
		return
	}
	*l++
}

// incy increments fine Y, overflowing into coarse Y and switching vertical
// nametable at row 29. Coarse Y values 30 and 31 (attribute rows) wrap
// without switching.
func (l *loopy) incy() {
	if l.finey() < 7 {
		l.setFiney(l.finey() + 1)
		return
	}
	l.setFiney(0)
	switch y := l.coarsey(); y {
	case 29:
		l.setCoarsey(0)
		*l ^= 0x0800
	case 31:
		l.setCoarsey(0)
	default:
		l.setCoarsey(y + 1)
	}
}

// copy horizontal position (coarse X and horizontal nametable) from t.
func (l *loopy) copyx(t loopy) { *l = *l&^0x041F | t&0x041F }

// copy vertical position (fine Y, coarse Y and vertical nametable) from t.
func (l *loopy) copyy(t loopy) { *l = *l&^0x7BE0 | t&0x7BE0 }

const (
	// PPUCTRL bits

	// Base nametable address
	// (0 = $2000; 1 = $2400; 2 = $2800; 3 = $2C00)
	baseNTmask = 0b11

	// VRAM address increment per CPU read/write of PPUDATA
	// (0: add 1, going across; 1: add 32, going down)
	vramIncr = 2

	// Sprite pattern table address for 8x8 sprites
	// (0: $0000; 1: $1000; ignored in 8x16 mode)
	spriteAddr = 3

	// Background pattern table address (0: $0000; 1: $1000)
	backgroundAddr = 4

	// Sprite size (0: 8x8 pixels; 1: 8x16 pixels)
	spriteSize = 5

	// Generate an NMI at the start of the
	// vertical blanking interval (0: off; 1: on)
	nmiOnVblank = 7
)

const (
	// PPUMASK bits
	greyscale       = 0
	leftmostBg      = 1
	leftmostSprites = 2
	showBg          = 3
	showSprites     = 4
)

const (
	// PPUSTATUS bits

	// Returns stale PPU bus contents.
	openbusMask = 0b11111

	// Set when more than eight sprites appear on a scanline. Cleared at dot
	// 1 of the pre-render line.
	spriteOverflow = 5

	// Set when a nonzero pixel of sprite 0 overlaps a nonzero background
	// pixel; cleared at dot 1 of the pre-render line.
	sprite0Hit = 6

	// Set at dot 1 of line 241; cleared after reading $2002 and at dot 1
	// of the pre-render line.
	vblank = 7
)

func (p *PPU) initRegs() {
	p.PPUCTRL = hwio.Reg8{Name: "PPUCTRL", Flags: hwio.WriteOnlyFlag, WriteCb: p.WritePPUCTRL}
	p.PPUMASK = hwio.Reg8{Name: "PPUMASK", Flags: hwio.WriteOnlyFlag}
	p.PPUSTATUS = hwio.Reg8{Name: "PPUSTATUS", Flags: hwio.ReadOnlyFlag, ReadCb: p.ReadPPUSTATUS, PeekCb: p.PeekPPUSTATUS}
	p.OAMADDR = hwio.Reg8{Name: "OAMADDR", Flags: hwio.WriteOnlyFlag}
	p.OAMDATA = hwio.Reg8{Name: "OAMDATA", ReadCb: p.ReadOAMDATA, PeekCb: p.ReadOAMDATA, WriteCb: p.WriteOAMDATA}
	p.PPUSCROLL = hwio.Reg8{Name: "PPUSCROLL", Flags: hwio.WriteOnlyFlag, WriteCb: p.WritePPUSCROLL}
	p.PPUADDR = hwio.Reg8{Name: "PPUADDR", Flags: hwio.WriteOnlyFlag, WriteCb: p.WritePPUADDR}
	p.PPUDATA = hwio.Reg8{Name: "PPUDATA", ReadCb: p.ReadPPUDATA, PeekCb: p.PeekPPUDATA, WriteCb: p.WritePPUDATA}

	p.regs = [8]*hwio.Reg8{
		&p.PPUCTRL, &p.PPUMASK, &p.PPUSTATUS, &p.OAMADDR,
		&p.OAMDATA, &p.PPUSCROLL, &p.PPUADDR, &p.PPUDATA,
	}
}

func checkRegAddr(addr uint16) {
	if addr < 0x2000 || addr > 0x3FFF {
		panic(hwio.AddressContract("ppu", addr))
	}
}

// ReadReg reads the PPU register mapped at addr (0x2000-0x3FFF, mirrored
// every 8 bytes).
func (p *PPU) ReadReg(addr uint16) uint8 {
	checkRegAddr(addr)
	val := p.regs[addr&7].Read8(addr, p.openBus)
	p.openBus = val
	return val
}

// PeekReg is ReadReg without side effects.
func (p *PPU) PeekReg(addr uint16) uint8 {
	checkRegAddr(addr)
	reg := p.regs[addr&7]
	if reg.Flags&hwio.WriteOnlyFlag != 0 {
		return p.openBus
	}
	return reg.Peek8(addr)
}

// WriteReg writes the PPU register mapped at addr (0x2000-0x3FFF, mirrored
// every 8 bytes).
func (p *PPU) WriteReg(addr uint16, val uint8) {
	checkRegAddr(addr)
	p.openBus = val
	p.regs[addr&7].Write8(addr, val)
}

// PPUCTRL: $2000
func (p *PPU) WritePPUCTRL(old, val uint8) {
	log.ModPPU.DebugZ("Write to PPUCTRL").Hex8("val", val).End()

	// Transfer the nametable bits.
	p.t.setNametable(val & baseNTmask)

	// Enabling NMI while in vblank generates an immediate NMI.
	if old&(1<<nmiOnVblank) == 0 && val&(1<<nmiOnVblank) != 0 && p.PPUSTATUS.GetBit(vblank) {
		p.host.RequestNMI()
	}
}

// PPUSTATUS: $2002
func (p *PPU) ReadPPUSTATUS(val uint8) uint8 {
	ret := p.PeekPPUSTATUS(val)
	p.PPUSTATUS.ClearBit(vblank)
	p.w = false
	return ret
}

func (p *PPU) PeekPPUSTATUS(val uint8) uint8 {
	return val&^openbusMask | p.openBus&openbusMask
}

// OAMDATA: $2004
func (p *PPU) ReadOAMDATA(_ uint8) uint8 {
	val := p.oam[p.OAMADDR.Value]
	if p.OAMADDR.Value&0x03 == 2 {
		// unimplemented attribute bits always read back as 0.
		val &= 0xE3
	}
	return val
}

func (p *PPU) WriteOAMDATA(_, val uint8) {
	p.oam[p.OAMADDR.Value] = val
	p.OAMADDR.Value++
}

// PPUSCROLL: $2005
func (p *PPU) WritePPUSCROLL(_, val uint8) {
	log.ModPPU.DebugZ("Write to PPUSCROLL").Hex8("val", val).Bool("w", p.w).End()

	if !p.w { // first write
		p.finex = val & 0b111
		p.t.setCoarsex(val >> 3)
	} else { // second write
		p.t.setFiney(val & 0b111)
		p.t.setCoarsey(val >> 3)
	}
	p.w = !p.w
}

// To read/write VRAM from CPU, PPUADDR is set to the address of the operation.
// It's a 16-bit register so 2 writes are necessary.
// PPUADDR: $2006
func (p *PPU) WritePPUADDR(_, val uint8) {
	if !p.w { // first write, bit 14 is cleared.
		p.t.setHigh(val & 0b11_1111)
	} else { // second write
		p.t.setLow(val)
		p.v = p.t
	}
	p.w = !p.w
}

// PPUDATA: $2007
func (p *PPU) ReadPPUDATA(_ uint8) uint8 {
	addr := p.v.addr()
	var val uint8
	if addr < 0x3F00 {
		// Reading VRAM is slow so the actual data is returned at the next
		// read.
		val = p.readBuf
		p.readBuf = p.read8(addr)
	} else {
		// Reading palette data is immediate, but the buffer is still
		// filled with the nametable byte 'under' the palette.
		val = p.readPalette(addr)
		p.readBuf = p.read8(addr - 0x1000)
	}

	log.ModPPU.DebugZ("VRAM read").Hex16("addr", addr).Hex8("val", val).End()
	p.incVRAMaddr()
	return val
}

func (p *PPU) PeekPPUDATA(_ uint8) uint8 {
	if addr := p.v.addr(); addr >= 0x3F00 {
		return p.readPalette(addr)
	}
	return p.readBuf
}

// PPUDATA: $2007
func (p *PPU) WritePPUDATA(_, val uint8) {
	addr := p.v.addr()
	log.ModPPU.DebugZ("VRAM write").Hex16("addr", addr).Hex8("val", val).End()

	p.write8(addr, val)
	p.incVRAMaddr()
}

// After each access to PPUDATA, v is incremented.
func (p *PPU) incVRAMaddr() {
	if p.renderingEnabled() && (p.Scanline < 240 || p.Scanline == preRenderLine) {
		// During rendering, the PPU increments coarse X and Y at the same
		// time.
		p.v.incx()
		p.v.incy()
		return
	}

	if p.PPUCTRL.GetBit(vramIncr) {
		p.v += 32
	} else {
		p.v++
	}
	p.v &= 0x7FFF
}
