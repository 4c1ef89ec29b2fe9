package hw

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nescore/hw/snapshot"
	"nescore/ines"
)

// chrRAM is a minimal mapper with 8KB of CHR RAM, counting scanline clocks.
type chrRAM struct {
	chr    [0x2000]uint8
	clocks int
}

func (m *chrRAM) OnLoadCPU()                         {}
func (m *chrRAM) OnLoadPPU()                         {}
func (m *chrRAM) ReadROM(addr uint16) uint8          { return 0 }
func (m *chrRAM) ReadCHR(addr uint16) uint8          { return m.chr[addr&0x1FFF] }
func (m *chrRAM) WriteCHRRAM(addr uint16, val uint8) { m.chr[addr&0x1FFF] = val }
func (m *chrRAM) InWriteWindow(addr uint16) bool     { return false }
func (m *chrRAM) Write(addr uint16, val uint8)       {}
func (m *chrRAM) Clock()                             { m.clocks++ }
func (m *chrRAM) Serialize(s *snapshot.Serializer)   {}
func (m *chrRAM) ID() uint16                         { return 0xFFFF }
func (m *chrRAM) Name() string                       { return "chrram" }

type nmiCounter struct{ n int }

func (c *nmiCounter) RequestNMI() { c.n++ }

func newTestPPU() (*PPU, *chrRAM, *nmiCounter) {
	nmi := &nmiCounter{}
	m := &chrRAM{}
	p := NewPPU(nmi)
	p.SetMapper(m)
	p.SetMirroring(ines.VertMirroring)
	p.Reset(false)
	return p, m, nmi
}

// runTo ticks the PPU until it reaches (scanline, dot).
func runTo(p *PPU, scanline, dot int) {
	for p.Scanline != scanline || p.Cycle != dot {
		p.Tick()
	}
}

func TestPPURegisterMirrors(t *testing.T) {
	p, _, _ := newTestPPU()

	for addr := uint16(0x2000); addr < 0x4000; addr += 8 {
		val := uint8(addr >> 3)
		p.WriteReg(addr, val)
		require.Equalf(t, val, p.PPUCTRL.Value, "write to %04X", addr)
	}

	p.PPUSTATUS.Value = 0x80
	for addr := uint16(0x2002); addr < 0x4000; addr += 8 {
		require.Equalf(t, uint8(0x80), p.PeekReg(addr)&0xE0, "peek %04X", addr)
	}
}

func TestPPURegisterContract(t *testing.T) {
	p, _, _ := newTestPPU()
	require.Panics(t, func() { p.ReadReg(0x1FFF) })
	require.Panics(t, func() { p.WriteReg(0x4000, 0) })
}

func TestPPUScroll(t *testing.T) {
	p, _, _ := newTestPPU()
	p.t = 0xFFFF

	// Write to PPUCTRL
	p.WriteReg(0x2000, 0)
	require.Zero(t, p.t.nametable())

	// Read from PPUSTATUS
	p.w = true
	p.ReadReg(0x2002)
	require.False(t, p.w)

	// First write to PPUSCROLL
	p.WriteReg(0x2005, 0b01111_101)
	require.EqualValues(t, 0b01111, p.t.coarsex())
	require.EqualValues(t, 0b101, p.finex)
	require.True(t, p.w)

	// Second write to PPUSCROLL
	p.WriteReg(0x2005, 0b01011_110)
	require.EqualValues(t, 0b01011, p.t.coarsey())
	require.EqualValues(t, 0b110, p.t.finey())
	require.False(t, p.w)

	// First write to PPUADDR
	p.WriteReg(0x2006, 0b00_111101)
	require.EqualValues(t, 0b111101, p.t.high())
	// Bit 14 (15th bit) of t gets set to zero
	require.EqualValues(t, 0b0111101_01101111, p.t.val())

	// Second write to PPUADDR
	p.WriteReg(0x2006, 0b11110000)
	require.EqualValues(t, 0b11110000, p.t.low())
	require.EqualValues(t, 0b0111101_11110000, p.t.val())
	// After t is updated, contents of t copied into v
	require.Equal(t, p.t, p.v)
}

func TestPPUStatusRead(t *testing.T) {
	p, _, _ := newTestPPU()
	p.PPUSTATUS.SetBit(vblank)
	p.PPUSTATUS.SetBit(sprite0Hit)
	p.WriteReg(0x2005, 0x1F) // sets w, and the open bus latch.

	val := p.ReadReg(0x2002)
	require.EqualValues(t, 0xC0|0x1F, val)
	require.False(t, p.PPUSTATUS.GetBit(vblank))
	require.True(t, p.PPUSTATUS.GetBit(sprite0Hit))
	require.False(t, p.w)

	// peek has no side effect
	p.PPUSTATUS.SetBit(vblank)
	p.PeekReg(0x2002)
	require.True(t, p.PPUSTATUS.GetBit(vblank))
}

func TestPPUVBlankNMI(t *testing.T) {
	t.Run("nmi enabled", func(t *testing.T) {
		p, _, nmi := newTestPPU()
		p.WriteReg(0x2000, 0x80)

		runTo(p, 241, 1)
		require.False(t, p.PPUSTATUS.GetBit(vblank))
		p.Tick()
		require.True(t, p.PPUSTATUS.GetBit(vblank))
		require.Equal(t, 1, nmi.n)

		runTo(p, 261, 1)
		require.True(t, p.PPUSTATUS.GetBit(vblank))
		p.Tick()
		require.False(t, p.PPUSTATUS.GetBit(vblank))
		require.Equal(t, 1, nmi.n)
	})

	t.Run("nmi disabled", func(t *testing.T) {
		p, _, nmi := newTestPPU()
		runTo(p, 241, 2)
		require.True(t, p.PPUSTATUS.GetBit(vblank))
		require.Zero(t, nmi.n)

		// Enabling NMI during vblank triggers it immediately.
		p.WriteReg(0x2000, 0x80)
		require.Equal(t, 1, nmi.n)
		// but not when it's already enabled.
		p.WriteReg(0x2000, 0x80)
		require.Equal(t, 1, nmi.n)
	})

	t.Run("status read clears vblank", func(t *testing.T) {
		p, _, nmi := newTestPPU()
		runTo(p, 241, 2)
		p.ReadReg(0x2002)
		p.WriteReg(0x2000, 0x80)
		require.Zero(t, nmi.n)
	})
}

func TestPPUFrameTiming(t *testing.T) {
	p, _, _ := newTestPPU()
	p.WriteReg(0x2001, 1<<showBg)

	// even frame: 262*341 dots
	runTo(p, 0, 1)
	start := p.Cycles
	runTo(p, 0, 0)
	p.Tick()
	require.EqualValues(t, NumScanlines*NumCycles, p.Cycles-start)

	// odd frame skips one dot of the pre-render line.
	start = p.Cycles
	runTo(p, 0, 0)
	p.Tick()
	require.EqualValues(t, NumScanlines*NumCycles-1, p.Cycles-start)
}

func TestPPUDataBuffer(t *testing.T) {
	p, _, _ := newTestPPU()

	setAddr := func(addr uint16) {
		p.WriteReg(0x2006, uint8(addr>>8))
		p.WriteReg(0x2006, uint8(addr))
	}

	setAddr(0x2400)
	p.WriteReg(0x2007, 0x11)
	p.WriteReg(0x2007, 0x22)

	setAddr(0x2400)
	p.ReadReg(0x2007) // stale
	require.EqualValues(t, 0x11, p.ReadReg(0x2007))
	require.EqualValues(t, 0x22, p.ReadReg(0x2007))

	// +32 increment
	p.WriteReg(0x2000, 1<<vramIncr)
	setAddr(0x2000)
	p.WriteReg(0x2007, 0x33)
	require.EqualValues(t, 0x2020, p.v.addr())

	// palette reads are immediate
	p.WriteReg(0x2000, 0)
	setAddr(0x3F01)
	p.WriteReg(0x2007, 0x2A)
	setAddr(0x3F01)
	require.EqualValues(t, 0x2A, p.ReadReg(0x2007))
}

func TestPPUMirroring(t *testing.T) {
	tests := []struct {
		mode ines.NTMirroring
		want [4]uint16
	}{
		{ines.HorzMirroring, [4]uint16{0x000, 0x000, 0x400, 0x400}},
		{ines.VertMirroring, [4]uint16{0x000, 0x400, 0x000, 0x400}},
		{ines.OnlyAScreen, [4]uint16{0x000, 0x000, 0x000, 0x000}},
		{ines.OnlyBScreen, [4]uint16{0x400, 0x400, 0x400, 0x400}},
		{ines.FourScreen, [4]uint16{0x000, 0x400, 0x800, 0xC00}},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			p, _, _ := newTestPPU()
			p.SetMirroring(tt.mode)
			for i, want := range tt.want {
				addr := 0x2000 + uint16(i)*0x400 + 0x12
				require.Equal(t, want+0x12, p.ntOffset(addr))
				// $3000-$3EFF mirrors $2000-$2EFF
				require.Equal(t, want+0x12, p.ntOffset(addr+0x1000))
			}
		})
	}

	p, _, _ := newTestPPU()
	for _, addr := range []uint16{0x3F10, 0x3F14, 0x3F18, 0x3F1C} {
		p.write8(addr, uint8(addr))
		require.Equal(t, uint8(addr)&0x3F, p.read8(addr-0x10))
		require.Equal(t, uint8(addr)&0x3F, p.read8(addr+0x20))
	}
}

func TestPPULoopyIncrements(t *testing.T) {
	var v loopy
	v.setCoarsex(31)
	v.incx()
	require.Zero(t, v.coarsex())
	require.EqualValues(t, 1, v.nametable())

	v = 0
	v.setFiney(7)
	v.setCoarsey(29)
	v.incy()
	require.Zero(t, v.finey())
	require.Zero(t, v.coarsey())
	require.EqualValues(t, 2, v.nametable())

	v = 0
	v.setFiney(7)
	v.setCoarsey(31)
	v.incy()
	require.Zero(t, v.coarsey())
	require.Zero(t, v.nametable())
}

// fillSpriteTile makes tile 1 fully opaque (color 3) in pattern table 0.
func fillSpriteTile(m *chrRAM) {
	for i := range 16 {
		m.chr[16+i] = 0xFF
	}
}

func setSprite(p *PPU, i int, y, tile, attr, x uint8) {
	p.oam[i*4+0] = y
	p.oam[i*4+1] = tile
	p.oam[i*4+2] = attr
	p.oam[i*4+3] = x
}

func TestPPUSpriteEvaluation(t *testing.T) {
	tests := []struct {
		name         string
		nsprites     int
		limit        int
		wantCount    int
		wantOverflow bool
	}{
		{"below limit", 5, 8, 5, false},
		{"exactly 8", 8, 8, 8, false},
		{"overflow", 12, 8, 8, true},
		{"user limit", 6, 3, 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _, _ := newTestPPU()
			p.Opts.SpriteLimit = tt.limit
			for i := range 64 {
				setSprite(p, i, 0xF0, 0, 0, 0) // offscreen
			}
			for i := range tt.nsprites {
				setSprite(p, i, 49, 0, 0, uint8(i*8))
			}
			p.WriteReg(0x2001, 1<<showSprites)

			runTo(p, 50, 1)
			require.Equal(t, tt.wantCount, p.SpriteCount())
			require.Equal(t, tt.wantOverflow, p.PPUSTATUS.GetBit(spriteOverflow))

			// sprites cover lines 50-57
			runTo(p, 58, 1)
			require.Zero(t, p.SpriteCount())
		})
	}
}

func TestPPUSprite0Hit(t *testing.T) {
	setup := func(mask uint8, spriteX uint8) *PPU {
		p, m, _ := newTestPPU()
		fillSpriteTile(m)
		// background: whole nametable uses tile 1
		for i := range 960 {
			p.write8(0x2000+uint16(i), 1)
		}
		for i := range 64 {
			setSprite(p, i, 0xF0, 0, 0, 0)
		}
		setSprite(p, 0, 29, 1, 0, spriteX)
		p.WriteReg(0x2001, mask)
		return p
	}

	const all = 1<<showBg | 1<<showSprites | 1<<leftmostBg | 1<<leftmostSprites

	t.Run("hit", func(t *testing.T) {
		p := setup(all, 100)
		runTo(p, 30, 100)
		require.False(t, p.PPUSTATUS.GetBit(sprite0Hit))
		runTo(p, 30, 103)
		require.True(t, p.PPUSTATUS.GetBit(sprite0Hit))

		// cleared on pre-render line.
		runTo(p, 261, 2)
		require.False(t, p.PPUSTATUS.GetBit(sprite0Hit))
	})

	t.Run("background disabled", func(t *testing.T) {
		p := setup(1<<showSprites|1<<leftmostSprites, 100)
		runTo(p, 40, 0)
		require.False(t, p.PPUSTATUS.GetBit(sprite0Hit))
	})

	t.Run("x=255", func(t *testing.T) {
		p := setup(all, 255)
		runTo(p, 40, 0)
		require.False(t, p.PPUSTATUS.GetBit(sprite0Hit))
	})

	t.Run("left clip", func(t *testing.T) {
		p := setup(1<<showBg|1<<showSprites, 0)
		runTo(p, 40, 0)
		require.False(t, p.PPUSTATUS.GetBit(sprite0Hit))
	})
}

func TestPPUMapperClock(t *testing.T) {
	p, m, _ := newTestPPU()
	p.WriteReg(0x2001, 1<<showBg)

	runTo(p, 0, 0)
	m.clocks = 0
	runTo(p, 240, 0)
	require.Equal(t, 240, m.clocks)

	// no clock when rendering is disabled.
	p.WriteReg(0x2001, 0)
	runTo(p, 100, 0)
	require.Equal(t, 240, m.clocks)
}

func TestPPUOAMAddrReset(t *testing.T) {
	p, _, _ := newTestPPU()
	p.WriteReg(0x2001, 1<<showSprites)
	p.WriteReg(0x2003, 0x10)

	runTo(p, 0, 257)
	require.EqualValues(t, 0x10, p.OAMADDR.Value)
	runTo(p, 0, 258)
	require.Zero(t, p.OAMADDR.Value)

	// Same on the pre-render line.
	runTo(p, 241, 0)
	p.WriteReg(0x2003, 0x20)
	runTo(p, preRenderLine, 300)
	require.Zero(t, p.OAMADDR.Value)

	// Left alone when rendering is disabled.
	p.WriteReg(0x2001, 0)
	p.WriteReg(0x2003, 0x30)
	runTo(p, 10, 330)
	require.EqualValues(t, 0x30, p.OAMADDR.Value)
}

func TestPPUDebugImages(t *testing.T) {
	p, m, _ := newTestPPU()
	fillSpriteTile(m)
	p.write8(0x3F00, 0x0F)
	p.write8(0x3F13, 0x30)
	setSprite(p, 0, 19, 1, 0, 40)

	require.Equal(t, 128, p.PatternTable(0).Bounds().Dx())
	require.Equal(t, 480, p.NametableSheet().Bounds().Dy())
	require.Equal(t, 256, p.PaletteSwatch().Bounds().Dx())

	idx, img := p.PickObject(44, 22)
	require.Equal(t, 0, idx)
	require.Equal(t, Palette[0x30], img.RGBAAt(3, 3))

	idx, img = p.PickObject(10, 10)
	require.Equal(t, -1, idx)
	require.Nil(t, img)
}

func TestPPUSerialize(t *testing.T) {
	p, m, _ := newTestPPU()
	fillSpriteTile(m)
	p.WriteReg(0x2001, 1<<showBg|1<<showSprites)
	p.write8(0x2005, 0x42)
	runTo(p, 120, 17)

	s := snapshot.NewStore(0x2000)
	p.Serialize(s)
	p.SerializeVRAM(s)
	require.NoError(t, s.Err())
	blob, err := s.Blob()
	require.NoError(t, err)

	want := p.State()
	runTo(p, 200, 0)

	l := snapshot.NewLoad(blob)
	p.Serialize(l)
	p.SerializeVRAM(l)
	require.NoError(t, l.Finish())
	require.Equal(t, want, p.State())
	require.EqualValues(t, 0x42, p.read8(0x2005))
}
