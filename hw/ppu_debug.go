package hw

import (
	"image"

	"nescore/hw/snapshot"
	"nescore/ines"
)

// PPUState is a snapshot of the PPU internal state, for debugging.
type PPUState struct {
	Scanline, Cycle int
	Frame           int64
	Ctrl            uint8
	Mask            uint8
	Status          uint8
	OAMAddr         uint8
	V, T            uint16
	FineX           uint8
	W               bool
	Sprites         int
}

func (p *PPU) State() PPUState {
	return PPUState{
		Scanline: p.Scanline,
		Cycle:    p.Cycle,
		Frame:    p.Frame,
		Ctrl:     p.PPUCTRL.Value,
		Mask:     p.PPUMASK.Value,
		Status:   p.PPUSTATUS.Value,
		OAMAddr:  p.OAMADDR.Value,
		V:        p.v.val(),
		T:        p.t.val(),
		FineX:    p.finex,
		W:        p.w,
		Sprites:  p.sprites.count,
	}
}

// drawTile draws the 8x8 tile at pattern address addr, with the given
// palette (0-7), at (x,y) in img.
func (p *PPU) drawTile(img *image.RGBA, x, y int, addr uint16, palette uint8) {
	for row := range 8 {
		lo := p.read8(addr + uint16(row))
		hi := p.read8(addr + uint16(row) + 8)
		for col := range 8 {
			pat := (lo>>(7-col))&1 | ((hi>>(7-col))&1)<<1
			idx := uint16(0)
			if pat != 0 {
				idx = uint16(palette)<<2 | uint16(pat)
			}
			c := Palette[p.readPalette(0x3F00|idx)&0x3F]
			img.SetRGBA(x+col, y+row, c)
		}
	}
}

// PatternTable renders pattern table i (0 or 1) as a 128x128 image, using
// the palette from the options.
func (p *PPU) PatternTable(i int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 128, 128))
	base := uint16(i&1) * 0x1000
	palette := uint8(p.Opts.ChrPalette & 7)
	for tile := range 256 {
		tx, ty := tile%16, tile/16
		p.drawTile(img, tx*8, ty*8, base+uint16(tile)*16, palette)
	}
	return img
}

// NametableSheet renders the 4 logical nametables, as a 512x480 image.
func (p *PPU) NametableSheet() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 2*ScreenWidth, 2*ScreenHeight))
	table := uint16(p.PPUCTRL.GetBiti(backgroundAddr)) * 0x1000

	for nt := range 4 {
		ntbase := 0x2000 + uint16(nt)*0x400
		ox, oy := (nt%2)*ScreenWidth, (nt/2)*ScreenHeight
		for ty := range 30 {
			for tx := range 32 {
				tile := p.read8(ntbase + uint16(ty*32+tx))
				at := p.read8(ntbase + 0x3C0 + uint16(ty/4*8+tx/4))
				shift := (ty&2)<<1 | tx&2
				pal := (at >> shift) & 3
				p.drawTile(img, ox+tx*8, oy+ty*8, table+uint16(tile)*16, pal)
			}
		}
	}
	return img
}

// PaletteSwatch renders the 32 palette entries as 8x16 blocks.
func (p *PPU) PaletteSwatch() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 256, 16))
	for i := range 32 {
		c := Palette[p.palettes[paletteIndex(uint16(i))]&0x3F]
		for y := range 16 {
			for x := range 8 {
				img.SetRGBA(i*8+x, y, c)
			}
		}
	}
	return img
}

// PickObject returns the index of the frontmost sprite covering the screen
// coordinate (x,y), and its image. It returns -1 and nil if there is none.
func (p *PPU) PickObject(x, y int) (int, *image.RGBA) {
	h := p.spriteHeight()
	for i := range 64 {
		sy := int(p.oam[i*4]) + 1
		sx := int(p.oam[i*4+3])
		if x < sx || x >= sx+8 || y < sy || y >= sy+h {
			continue
		}

		img := image.NewRGBA(image.Rect(0, 0, 8, h))
		pal := 4 + p.oam[i*4+2]&spritePalette
		for row := range h {
			s := p.fetchSprite(uint8(i), row, h)
			for col := range 8 {
				pat := (s.lo>>(7-col))&1 | ((s.hi>>(7-col))&1)<<1
				idx := uint16(0)
				if pat != 0 {
					idx = uint16(pal)<<2 | uint16(pat)
				}
				img.SetRGBA(col, row, Palette[p.readPalette(0x3F00|idx)&0x3F])
			}
		}
		return i, img
	}
	return -1, nil
}

func (p *PPU) Serialize(s *snapshot.Serializer) {
	s.I64(&p.Cycles)
	s.Int(&p.Cycle)
	s.Int(&p.Scanline)
	s.I64(&p.Frame)
	s.Bool(&p.oddFrame)
	for _, reg := range p.regs {
		s.U8(&reg.Value)
	}
	s.U8(&p.openBus)
	mirroring := uint8(p.mirroring)
	s.U8(&mirroring)
	p.mirroring = ines.NTMirroring(mirroring)

	v, t := uint16(p.v), uint16(p.t)
	s.U16(&v)
	s.U16(&t)
	p.v, p.t = loopy(v), loopy(t)
	s.U8(&p.finex)
	s.Bool(&p.w)
	s.U8(&p.readBuf)

	s.U8(&p.bg.ntByte)
	s.U8(&p.bg.atByte)
	s.U8(&p.bg.lo)
	s.U8(&p.bg.hi)
	s.U16(&p.bg.patLo)
	s.U16(&p.bg.patHi)
	s.U8(&p.bg.atLatchLo)
	s.U8(&p.bg.atLatchHi)
	s.U8(&p.bg.atLo)
	s.U8(&p.bg.atHi)

	s.Int(&p.sprites.count)
	for i := range p.sprites.entries {
		e := &p.sprites.entries[i]
		s.U8(&e.index)
		s.U8(&e.x)
		s.U8(&e.attr)
		s.U8(&e.lo)
		s.U8(&e.hi)
	}
}

// SerializeVRAM serializes nametables, palettes and OAM.
func (p *PPU) SerializeVRAM(s *snapshot.Serializer) {
	s.Bytes(p.nametables.Buf)
	s.Bytes(p.palettes[:])
	s.Bytes(p.oam[:])
}
