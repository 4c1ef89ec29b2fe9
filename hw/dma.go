package hw

import (
	"nescore/emu/log"
	"nescore/hw/hwio"
	"nescore/hw/snapshot"
)

const (
	oamDMACycles = 513 // +1 when starting on an odd CPU cycle.
	dmcDMACycles = 4
)

// DMA handles DMA transfer of OAM (sprites attributes) to the PPU and of DMC
// samples to the APU. Transfers are performed at once, the CPU is then
// stalled for the duration the transfer takes on hardware.
type DMA struct {
	bus *Bus

	OAMDMA hwio.Reg8 // $4014

	// transfer counters, for debugging.
	OAMTransfers uint64
	DMCTransfers uint64
}

func (dma *DMA) init(bus *Bus) {
	dma.bus = bus
	dma.OAMDMA = hwio.Reg8{Name: "OAMDMA", Flags: hwio.WriteOnlyFlag, WriteCb: dma.WriteOAMDMA}
}

func (dma *DMA) WriteOAMDMA(_, val uint8) {
	dma.oam(val)
}

// oam copies the 256 bytes of CPU page into OAM, starting at OAMADDR.
func (dma *DMA) oam(page uint8) {
	cpu := dma.bus.CPU
	stall := int64(oamDMACycles)
	if cpu.Cycles&0x01 != 0 {
		// DMA transfer can only be started on even CPU cycles, an extra idle
		// cycle aligns it.
		stall++
	}

	log.ModDMA.DebugZ("OAM DMA transfer").
		Hex8("page", page).
		Hex8("oamaddr", dma.bus.PPU.OAMADDR.Value).
		Int64("cycle", cpu.Cycles).
		Int64("stall", stall).
		End()

	base := uint16(page) << 8
	for i := range uint16(256) {
		val := dma.bus.Read8(base | i)
		dma.bus.PPU.WriteReg(0x2004, val)
	}
	cpu.AddStall(stall)
	dma.OAMTransfers++
}

// dmc fetches the next DMC sample byte.
func (dma *DMA) dmc() {
	addr := dma.bus.APU.DMCAddr()
	val := dma.bus.Read8(addr)

	log.ModDMA.DebugZ("DMC DMA transfer").
		Hex16("addr", addr).
		Hex8("val", val).
		End()

	dma.bus.CPU.AddStall(dmcDMACycles)
	dma.bus.APU.SetDMCBuffer(val)
	dma.DMCTransfers++
}

func (dma *DMA) serialize(s *snapshot.Serializer) {
	s.U64(&dma.OAMTransfers)
	s.U64(&dma.DMCTransfers)
}
