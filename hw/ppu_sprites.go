package hw

import "nescore/hw/hwio"

const maxSpritesPerLine = 8

// sprite is a secondary OAM entry, with its pattern for the current line
// already fetched.
type sprite struct {
	index  uint8 // index in primary OAM
	x      uint8
	attr   uint8
	lo, hi uint8 // pattern bits, horizontal flip already applied
}

const (
	// OAM byte 2 (attributes)
	spritePalette = 0b11
	spriteBehind  = 5
	spriteFlipH   = 6
	spriteFlipV   = 7
)

// spriteLine holds the sprites selected for the current scanline.
type spriteLine struct {
	count   int
	entries [maxSpritesPerLine]sprite
}

type spritePixel struct {
	color  uint8 // palette << 2 | pattern, 0 if transparent
	behind bool
	zero   bool
}

// pixel returns the first opaque sprite pixel at screen x, if any.
func (sl *spriteLine) pixel(x int) spritePixel {
	for i := range sl.count {
		s := &sl.entries[i]
		off := x - int(s.x)
		if off < 0 || off > 7 {
			continue
		}
		pat := (s.lo>>(7-off))&1 | ((s.hi>>(7-off))&1)<<1
		if pat == 0 {
			continue
		}
		return spritePixel{
			color:  (s.attr&spritePalette)<<2 | pat,
			behind: hwio.GetBit8(s.attr, spriteBehind),
			zero:   s.index == 0,
		}
	}
	return spritePixel{}
}

func (p *PPU) spriteHeight() int {
	if p.PPUCTRL.GetBit(spriteSize) {
		return 16
	}
	return 8
}

func (p *PPU) spriteLimit() int {
	limit := p.Opts.SpriteLimit
	if limit <= 0 || limit > maxSpritesPerLine {
		limit = maxSpritesPerLine
	}
	return limit
}

// evaluateSprites scans primary OAM for the sprites covering the current
// scanline, and fetches their patterns into secondary OAM.
func (p *PPU) evaluateSprites() {
	h := p.spriteHeight()
	limit := p.spriteLimit()

	p.sprites.count = 0
	matches := 0
	for i := range 64 {
		y := p.oam[i*4]
		// Sprite data is delayed by one scanline.
		row := p.Scanline - int(y) - 1
		if row < 0 || row >= h {
			continue
		}
		matches++
		if p.sprites.count < limit {
			p.sprites.entries[p.sprites.count] = p.fetchSprite(uint8(i), row, h)
			p.sprites.count++
		}
	}

	if matches > maxSpritesPerLine {
		p.PPUSTATUS.SetBit(spriteOverflow)
	}
}

func (p *PPU) fetchSprite(i uint8, row, h int) sprite {
	tile := p.oam[int(i)*4+1]
	attr := p.oam[int(i)*4+2]
	x := p.oam[int(i)*4+3]

	if hwio.GetBit8(attr, spriteFlipV) {
		row = h - 1 - row
	}

	var addr uint16
	if h == 8 {
		table := uint16(p.PPUCTRL.GetBiti(spriteAddr)) * 0x1000
		addr = table + uint16(tile)*16 + uint16(row)
	} else {
		// 8x16 sprites select the pattern table with bit 0 of the tile.
		table := uint16(tile&1) * 0x1000
		tile &^= 1
		if row >= 8 {
			tile++
			row -= 8
		}
		addr = table + uint16(tile)*16 + uint16(row)
	}

	s := sprite{
		index: i,
		x:     x,
		attr:  attr,
		lo:    p.read8(addr),
		hi:    p.read8(addr + 8),
	}
	if hwio.GetBit8(attr, spriteFlipH) {
		s.lo = hwio.Reverse8(s.lo)
		s.hi = hwio.Reverse8(s.hi)
	}
	return s
}

// SpriteCount returns the number of sprites selected for the current
// scanline.
func (p *PPU) SpriteCount() int {
	return p.sprites.count
}
