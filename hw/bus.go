package hw

import (
	"nescore/emu/log"
	"nescore/hw/apu"
	"nescore/hw/hwdefs"
	"nescore/hw/hwio"
	"nescore/hw/snapshot"
	"nescore/ines"
)

// Bus is the CPU address space. It connects the CPU, the PPU, the APU, the
// controllers and the cartridge, and carries the signals they send to each
// other (NMI, IRQ, DMA).
//
//	$0000-$1FFF  2KB internal RAM, mirrored every $800
//	$2000-$3FFF  PPU registers, mirrored every 8 bytes
//	$4000-$4017  APU and I/O registers
//	$4018-$401F  APU test mode (open bus)
//	$4020-$FFFF  cartridge
type Bus struct {
	CPU   *CPU
	PPU   *PPU
	APU   *apu.APU
	Input InputPorts
	DMA   DMA

	RAM     hwio.Mem
	mapper  Mapper
	openBus uint8
}

func NewBus(mixer *apu.Mixer) *Bus {
	b := &Bus{RAM: hwio.NewMem(0x800)}
	b.CPU = NewCPU(b)
	b.PPU = NewPPU(b)
	b.APU = apu.New(b, mixer)
	b.Input.init()
	b.DMA.init(b)
	return b
}

// SetMapper plugs the cartridge.
func (b *Bus) SetMapper(m Mapper) {
	b.mapper = m
	b.PPU.SetMapper(m)
}

func (b *Bus) Mapper() Mapper { return b.mapper }

// Reset resets all components. The mapper must be set.
func (b *Bus) Reset(soft bool) {
	if !soft {
		b.RAM.Clear()
		b.openBus = 0
	}
	b.Input.reset()
	b.PPU.Reset(soft)
	b.APU.Reset(soft)
	b.CPU.Reset(soft)
	b.APU.SyncCycles(b.CPU.Cycles)
}

func (b *Bus) Read8(addr uint16) uint8 {
	var val uint8
	switch {
	case addr < 0x2000:
		val = b.RAM.Read8(addr)
	case addr < 0x4000:
		val = b.PPU.ReadReg(addr)
	case addr < 0x4018:
		val = b.readIO(addr)
	case addr < 0x4020:
		val = b.openBus
	default:
		val = b.mapper.ReadROM(addr)
	}
	b.openBus = val
	return val
}

func (b *Bus) readIO(addr uint16) uint8 {
	switch addr {
	case 0x4014:
		return b.openBus
	case 0x4016:
		return b.Input.In.Read8(addr, b.openBus) | b.openBus&0xE0&^0x40
	case 0x4017:
		return b.Input.Out.Read8(addr, b.openBus) | b.openBus&0xE0&^0x40
	}
	return b.APU.ReadReg(addr, b.openBus)
}

func (b *Bus) Peek8(addr uint16) uint8 {
	switch {
	case addr < 0x2000:
		return b.RAM.Peek8(addr)
	case addr < 0x4000:
		return b.PPU.PeekReg(addr)
	case addr < 0x4018:
		switch addr {
		case 0x4014:
			return b.openBus
		case 0x4016:
			return b.Input.In.Peek8(addr) | b.openBus&0xE0&^0x40
		case 0x4017:
			return b.Input.Out.Peek8(addr) | b.openBus&0xE0&^0x40
		}
		return b.APU.PeekReg(addr, b.openBus)
	case addr < 0x4020:
		return b.openBus
	}
	return b.mapper.ReadROM(addr)
}

func (b *Bus) Write8(addr uint16, val uint8) {
	b.openBus = val
	switch {
	case addr < 0x2000:
		b.RAM.Write8(addr, val)
	case addr < 0x4000:
		b.PPU.WriteReg(addr, val)
	case addr == 0x4014:
		b.RequestDMA(val)
	case addr == 0x4016:
		b.Input.In.Write8(addr, val)
	case addr < 0x4018:
		b.APU.WriteReg(addr, val)
	case addr < 0x4020:
		log.ModMem.DebugZ("write to test mode register").Hex16("addr", addr).Hex8("val", val).End()
	default:
		if b.mapper.InWriteWindow(addr) {
			b.mapper.Write(addr, val)
		} else {
			log.ModMem.DebugZ("unhandled cartridge write").Hex16("addr", addr).Hex8("val", val).End()
		}
	}
}

// RequestDMA starts an OAM DMA transfer from CPU page.
func (b *Bus) RequestDMA(page uint8) {
	b.DMA.OAMDMA.Write8(0x4014, page)
}

/* signals */

// RequestNMI asserts the NMI line, it's serviced before the next instruction.
func (b *Bus) RequestNMI() { b.CPU.TriggerNMI() }

func (b *Bus) RequestDmcTransfer() { b.DMA.dmc() }

func (b *Bus) SetIRQSource(src hwdefs.IRQSource)      { b.CPU.SetIRQSource(src) }
func (b *Bus) ClearIRQSource(src hwdefs.IRQSource)    { b.CPU.ClearIRQSource(src) }
func (b *Bus) HasIRQSource(src hwdefs.IRQSource) bool { return b.CPU.HasIRQSource(src) }

func (b *Bus) CurrentCycle() int64 { return b.CPU.Cycles }

// SetMirroring is called by mappers to change the nametable arrangement.
func (b *Bus) SetMirroring(m ines.NTMirroring) { b.PPU.SetMirroring(m) }

/* scheduling */

// Step runs the CPU up to cpuTarget, then the PPU up to ppuTarget, then the
// APU up to the CPU cycle count. Register writes performed by the CPU are
// thus seen by the PPU and the APU later in the same step.
func (b *Bus) Step(cpuTarget, ppuTarget int64) {
	b.CPU.Run(cpuTarget)
	b.PPU.Run(ppuTarget)
	b.APU.Step(b.CPU.Cycles)
}

// SerializeRAM serializes the 2KB internal RAM.
func (b *Bus) SerializeRAM(s *snapshot.Serializer) {
	s.Bytes(b.RAM.Buf)
}

// Serialize serializes the I/O state: open bus, controllers and DMA.
func (b *Bus) Serialize(s *snapshot.Serializer) {
	s.U8(&b.openBus)
	b.Input.serialize(s)
	b.DMA.serialize(s)
}
