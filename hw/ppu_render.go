package hw

import (
	"image/color"

	"nescore/emu/log"
)

// bgPipeline holds the background tile latches and shift registers.
type bgPipeline struct {
	// latches, filled by the 8-dot fetch sequence.
	ntByte uint8
	atByte uint8
	lo, hi uint8

	// pattern shift registers, the high byte holds the tile being drawn.
	patLo, patHi uint16

	// 1-bit attribute latches feeding the attribute shift registers.
	atLatchLo, atLatchHi uint8
	atLo, atHi           uint8
}

func (bg *bgPipeline) shift() {
	bg.patLo <<= 1
	bg.patHi <<= 1
	bg.atLo = bg.atLo<<1 | bg.atLatchLo
	bg.atHi = bg.atHi<<1 | bg.atLatchHi
}

// reload transfers the fetched tile into the low byte of the shift registers.
func (bg *bgPipeline) reload() {
	bg.patLo = bg.patLo&0xFF00 | uint16(bg.lo)
	bg.patHi = bg.patHi&0xFF00 | uint16(bg.hi)
	bg.atLatchLo = bg.atByte & 1
	bg.atLatchHi = (bg.atByte >> 1) & 1
}

// pixel returns the 4-bit background color index (palette << 2 | pattern)
// at fine x.
func (bg *bgPipeline) pixel(finex uint8) uint8 {
	pat := uint8(bg.patLo>>(15-finex))&1 | uint8(bg.patHi>>(15-finex))&1<<1
	if pat == 0 {
		return 0
	}
	pal := (bg.atLo>>(7-finex))&1 | ((bg.atHi>>(7-finex))&1)<<1
	return pal<<2 | pat
}

// fetchBackground runs one step of the 8-dot background fetch sequence.
func (p *PPU) fetchBackground(dot int) {
	switch dot % 8 {
	case 1:
		p.bg.reload()
		p.bg.ntByte = p.read8(0x2000 | p.v.addr()&0x0FFF)
	case 3:
		v := uint16(p.v)
		addr := 0x23C0 | v&0x0C00 | (v>>4)&0x38 | (v>>2)&0x07
		shift := (v>>4)&0x04 | v&0x02
		p.bg.atByte = (p.read8(addr) >> shift) & 0x03
	case 5:
		p.bg.lo = p.read8(p.bgTileAddr())
	case 7:
		p.bg.hi = p.read8(p.bgTileAddr() + 8)
	case 0:
		p.v.incx()
	}
}

func (p *PPU) bgTileAddr() uint16 {
	table := uint16(p.PPUCTRL.GetBiti(backgroundAddr)) * 0x1000
	return table + uint16(p.bg.ntByte)*16 + uint16(p.v.finey())
}

// renderPixel composes the background and sprite pixels at the current dot.
func (p *PPU) renderPixel() {
	x := p.Cycle - 1

	var bgpx uint8
	if p.PPUMASK.GetBit(showBg) && p.Opts.ShowBG && (x >= 8 || p.PPUMASK.GetBit(leftmostBg)) {
		bgpx = p.bg.pixel(p.finex)
	}

	var sp spritePixel
	if p.PPUMASK.GetBit(showSprites) && p.Opts.ShowSprites && (x >= 8 || p.PPUMASK.GetBit(leftmostSprites)) {
		sp = p.sprites.pixel(x)
	}

	bgOpaque := bgpx&0x03 != 0
	spOpaque := sp.color&0x03 != 0

	if sp.zero && bgOpaque && spOpaque && x != 255 {
		if !p.PPUSTATUS.GetBit(sprite0Hit) {
			p.PPUSTATUS.SetBit(sprite0Hit)
			log.ModPPU.DebugZ("sprite 0 hit").Int("x", x).Int("y", p.Scanline).End()
		}
	}

	var idx uint8
	switch {
	case !bgOpaque && !spOpaque:
		idx = 0
	case !bgOpaque:
		idx = 0x10 | sp.color
	case !spOpaque:
		idx = bgpx
	case sp.behind:
		idx = bgpx
	default:
		idx = 0x10 | sp.color
	}

	p.setPixel(x, p.Scanline, p.readPalette(0x3F00|uint16(idx)))
}

// outputBackdrop draws the backdrop color while rendering is disabled.
func (p *PPU) outputBackdrop() {
	idx := uint16(0)
	if addr := p.v.addr(); addr >= 0x3F00 {
		// background palette hack: when v points to the palette, its color
		// is displayed.
		idx = addr
	}
	p.setPixel(p.Cycle-1, p.Scanline, p.readPalette(0x3F00|idx))
}

func (p *PPU) setPixel(x, y int, colidx uint8) {
	c := Palette[colidx&0x3F]
	off := p.screen.PixOffset(x, y)
	pix := p.screen.Pix[off : off+4 : off+4]
	pix[0] = c.R
	pix[1] = c.G
	pix[2] = c.B
	pix[3] = 0xFF
}

// Palette is the RGB palette of the 2C02.
var Palette = [64]color.RGBA{
	rgb(0x7C7C7C), rgb(0x0000FC), rgb(0x0000BC), rgb(0x4428BC), rgb(0x940084), rgb(0xA80020), rgb(0xA81000), rgb(0x881400),
	rgb(0x503000), rgb(0x007800), rgb(0x006800), rgb(0x005800), rgb(0x004058), rgb(0x000000), rgb(0x000000), rgb(0x000000),
	rgb(0xBCBCBC), rgb(0x0078F8), rgb(0x0058F8), rgb(0x6844FC), rgb(0xD800CC), rgb(0xE40058), rgb(0xF83800), rgb(0xE45C10),
	rgb(0xAC7C00), rgb(0x00B800), rgb(0x00A800), rgb(0x00A844), rgb(0x008888), rgb(0x000000), rgb(0x000000), rgb(0x000000),
	rgb(0xF8F8F8), rgb(0x3CBCFC), rgb(0x6888FC), rgb(0x9878F8), rgb(0xF878F8), rgb(0xF85898), rgb(0xF87858), rgb(0xFCA044),
	rgb(0xF8B800), rgb(0xB8F818), rgb(0x58D854), rgb(0x58F898), rgb(0x00E8D8), rgb(0x787878), rgb(0x000000), rgb(0x000000),
	rgb(0xFCFCFC), rgb(0xA4E4FC), rgb(0xB8B8F8), rgb(0xD8B8F8), rgb(0xF8B8F8), rgb(0xF8A4C0), rgb(0xF0D0B0), rgb(0xFCE0A8),
	rgb(0xF8D878), rgb(0xD8F878), rgb(0xB8F8B8), rgb(0xB8F8D8), rgb(0x00FCFC), rgb(0xF8D8F8), rgb(0x000000), rgb(0x000000),
}

func rgb(v uint32) color.RGBA {
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}
}
