package hw

import (
	"image"

	"nescore/emu/log"
	"nescore/hw/hwio"
	"nescore/ines"
)

const (
	NumScanlines = 262 // Number of scanlines per frame.
	NumCycles    = 341 // Number of PPU cycles per scanline.

	ScreenWidth  = 256
	ScreenHeight = 240

	postRenderLine = 240
	vblankLine     = 241
	preRenderLine  = 261
)

// ppuHost receives the PPU interrupt requests.
type ppuHost interface {
	RequestNMI()
}

// PPUOptions are user overrides of the PPU behavior.
type PPUOptions struct {
	// Max number of sprites per scanline (hardware limit is 8).
	SpriteLimit int
	ShowBG      bool
	ShowSprites bool
	// Palette used to colorize the pattern table debug images.
	ChrPalette int
}

func DefaultPPUOptions() PPUOptions {
	return PPUOptions{
		SpriteLimit: 8,
		ShowBG:      true,
		ShowSprites: true,
	}
}

type PPU struct {
	host   ppuHost
	mapper Mapper
	Opts   PPUOptions

	Cycles   int64 // PPU cycles since power-up
	Cycle    int   // Current cycle/pixel in scanline
	Scanline int   // Current scanline being drawn
	Frame    int64
	oddFrame bool

	// CPU-exposed memory-mapped PPU registers
	// mapped from $2000 to $2007, mirrored up to $3fff
	PPUCTRL   hwio.Reg8
	PPUMASK   hwio.Reg8
	PPUSTATUS hwio.Reg8
	OAMADDR   hwio.Reg8
	OAMDATA   hwio.Reg8
	PPUSCROLL hwio.Reg8
	PPUADDR   hwio.Reg8
	PPUDATA   hwio.Reg8
	regs      [8]*hwio.Reg8

	openBus uint8

	// $2000-$2FFF, 4 physical nametables, only 2 of which are used unless
	// the cartridge provides four-screen VRAM.
	nametables hwio.Mem
	mirroring  ines.NTMirroring
	// $3F00-$3F1F, mirrored up to $3FFF
	palettes [32]uint8

	oam [256]uint8

	// VRAM read/write
	v, t    loopy
	finex   uint8
	w       bool
	readBuf uint8

	bg      bgPipeline
	sprites spriteLine

	screen    *image.RGBA
	frameDone bool
}

func NewPPU(host ppuHost) *PPU {
	p := &PPU{
		host:       host,
		Opts:       DefaultPPUOptions(),
		nametables: hwio.NewMem(0x1000),
		screen:     image.NewRGBA(image.Rect(0, 0, ScreenWidth, ScreenHeight)),
	}
	p.initRegs()
	return p
}

func (p *PPU) SetMapper(m Mapper) {
	p.mapper = m
}

// SetMirroring changes the nametable arrangement.
func (p *PPU) SetMirroring(m ines.NTMirroring) {
	log.ModPPU.DebugZ("set nametable mirroring").Stringer("mode", m).End()
	p.mirroring = m
}

func (p *PPU) Mirroring() ines.NTMirroring {
	return p.mirroring
}

// Output returns the frame buffer. It is overwritten while the next frame is
// rendered.
func (p *PPU) Output() *image.RGBA {
	return p.screen
}

// Position returns the scanline and dot the PPU is at.
func (p *PPU) Position() (scanline, dot int) {
	return p.Scanline, p.Cycle
}

func (p *PPU) Reset(soft bool) {
	p.PPUCTRL.Value = 0
	p.PPUMASK.Value = 0
	p.PPUSCROLL.Value = 0
	p.PPUDATA.Value = 0
	p.w = false
	p.readBuf = 0
	p.oddFrame = false
	p.Scanline = 0
	p.Cycle = 0
	p.frameDone = false
	if !soft {
		p.PPUSTATUS.Value = 0
		p.OAMADDR.Value = 0
		p.v, p.t = 0, 0
		p.finex = 0
		p.Cycles = 0
		p.Frame = 0
		p.nametables.Clear()
		clear(p.palettes[:])
		clear(p.oam[:])
		p.bg = bgPipeline{}
		p.sprites = spriteLine{}
	}
}

// FrameDone reports whether a frame has been completed since the last call.
func (p *PPU) FrameDone() bool {
	done := p.frameDone
	p.frameDone = false
	return done
}

func (p *PPU) renderingEnabled() bool {
	return p.PPUMASK.GetBit(showBg) || p.PPUMASK.GetBit(showSprites)
}

// Run runs the PPU until its cycle count reaches until.
func (p *PPU) Run(until int64) {
	for p.Cycles < until {
		p.Tick()
	}
}

// Tick advances the PPU by one dot.
func (p *PPU) Tick() {
	switch {
	case p.Scanline < postRenderLine:
		p.renderLine()
	case p.Scanline == vblankLine:
		if p.Cycle == 1 {
			p.startVBlank()
		}
	case p.Scanline == preRenderLine:
		if p.Cycle == 1 {
			// Clear vblank, sprite0Hit and spriteOverflow
			const mask = 1<<vblank | 1<<sprite0Hit | 1<<spriteOverflow
			p.PPUSTATUS.ClearBits(mask)
		}
		p.renderLine()
	}

	p.Cycles++
	p.Cycle++

	// On odd frames, with rendering enabled, the last dot of the pre-render
	// line is skipped.
	if p.Scanline == preRenderLine && p.Cycle == NumCycles-1 && p.oddFrame && p.renderingEnabled() {
		p.Cycle++
	}

	if p.Cycle >= NumCycles {
		p.Cycle = 0
		p.Scanline++
		if p.Scanline == postRenderLine {
			p.frameDone = true
		}
		if p.Scanline >= NumScanlines {
			p.Scanline = 0
			p.Frame++
			p.oddFrame = !p.oddFrame
		}
	}
}

func (p *PPU) startVBlank() {
	p.PPUSTATUS.SetBit(vblank)
	log.ModPPU.DebugZ("vblank start").Int64("frame", p.Frame).End()
	if p.PPUCTRL.GetBit(nmiOnVblank) {
		p.host.RequestNMI()
	}
}

// renderLine runs one dot of a visible or pre-render scanline.
func (p *PPU) renderLine() {
	if !p.renderingEnabled() {
		if p.Scanline != preRenderLine && p.Cycle >= 1 && p.Cycle <= 256 {
			p.outputBackdrop()
		}
		return
	}

	visible := p.Scanline != preRenderLine
	dot := p.Cycle

	if visible && dot == 0 {
		p.evaluateSprites()
	}

	// Background shifters run during the visible part and the prefetch of
	// the first two tiles of the next line.
	if (dot >= 2 && dot <= 257) || (dot >= 322 && dot <= 337) {
		p.bg.shift()
	}

	if (dot >= 1 && dot <= 256) || (dot >= 321 && dot <= 336) {
		p.fetchBackground(dot)
	}

	switch {
	case dot == 256:
		p.v.incy()
	case dot == 257:
		p.bg.reload()
		p.v.copyx(p.t)
	case dot == 337 || dot == 339:
		// unused nametable fetches
		p.read8(0x2000 | p.v.addr()&0x0FFF)
	case !visible && dot >= 280 && dot <= 304:
		p.v.copyy(p.t)
	}

	// Scanline counter for IRQ-capable mappers.
	if dot == 260 && p.mapper != nil {
		p.mapper.Clock()
	}

	// OAMADDR is cleared while sprite tiles are loaded.
	if dot >= 257 && dot <= 320 {
		p.OAMADDR.Value = 0
	}

	if visible && dot >= 1 && dot <= 256 {
		p.renderPixel()
	}
}

/* VRAM */

// ntOffset maps a nametable address to an offset in physical VRAM,
// according to the current mirroring.
func (p *PPU) ntOffset(addr uint16) uint16 {
	addr &= 0x0FFF
	table := addr / 0x400
	switch p.mirroring {
	case ines.HorzMirroring:
		table /= 2
	case ines.VertMirroring:
		table %= 2
	case ines.OnlyAScreen:
		table = 0
	case ines.OnlyBScreen:
		table = 1
	}
	return table*0x400 | addr&0x3FF
}

func paletteIndex(addr uint16) uint16 {
	addr &= 0x1F
	// $3F10/$3F14/$3F18/$3F1C mirror $3F00/$3F04/$3F08/$3F0C.
	if addr&0x13 == 0x10 {
		addr &^= 0x10
	}
	return addr
}

func (p *PPU) readPalette(addr uint16) uint8 {
	val := p.palettes[paletteIndex(addr)]
	if p.PPUMASK.GetBit(greyscale) {
		val &= 0x30
	}
	return val
}

// read8 reads from the PPU bus.
func (p *PPU) read8(addr uint16) uint8 {
	addr &= 0x3FFF
	switch {
	case addr < 0x2000:
		return p.mapper.ReadCHR(addr)
	case addr < 0x3F00:
		return p.nametables.Read8(p.ntOffset(addr))
	default:
		return p.palettes[paletteIndex(addr)]
	}
}

// write8 writes on the PPU bus.
func (p *PPU) write8(addr uint16, val uint8) {
	addr &= 0x3FFF
	switch {
	case addr < 0x2000:
		p.mapper.WriteCHRRAM(addr, val)
	case addr < 0x3F00:
		p.nametables.Write8(p.ntOffset(addr), val)
	default:
		p.palettes[paletteIndex(addr)] = val & 0x3F
	}
}

// OAM gives access to primary OAM, for DMA.
func (p *PPU) OAM() *[256]uint8 {
	return &p.oam
}
