package hw

import (
	"io"

	"nescore/emu/log"
	"nescore/hw/hwdefs"
	"nescore/hw/snapshot"
)

// Locations reserved for vector pointers.
const (
	NMIVector   = uint16(0xFFFA) // Non-Maskable Interrupt
	ResetVector = uint16(0xFFFC) // Reset
	IRQVector   = uint16(0xFFFE) // Interrupt Request
)

// CPUBus is the memory map as seen by the CPU.
type CPUBus interface {
	Read8(addr uint16) uint8
	Write8(addr uint16, val uint8)
	// Peek8 reads without side effects.
	Peek8(addr uint16) uint8
}

type CPU struct {
	bus CPUBus

	Cycles int64 // CPU cycles

	// cpu registers
	A, X, Y, SP uint8
	PC          uint16
	P           P

	// interrupt handling
	nmiPending bool // NMI edge latched
	irqFlag    hwdefs.IRQSource

	// cycles stolen by DMA, consumed at the start of the next step.
	stall int64

	halted bool

	// HaltOnBRK makes BRK halt the CPU (with B set) instead of entering the
	// IRQ handler. Used to run bare 6502 programs.
	HaltOnBRK bool

	// BCD enables decimal mode arithmetic. The NES CPU lacks it, the D flag
	// is then only stored.
	BCD bool

	// Non-nil when execution tracing is enabled.
	tracer *tracer
}

// NewCPU creates a new CPU at power-up state.
func NewCPU(bus CPUBus) *CPU {
	return &CPU{
		bus: bus,
		SP:  0xFD,
		P:   Interrupt | Reserved,
	}
}

func (c *CPU) Reset(soft bool) {
	if soft {
		c.SP -= 0x03
		c.P.setIntDisable()
	} else {
		c.A = 0x00
		c.X = 0x00
		c.Y = 0x00
		c.SP = 0xFD
		c.P = Interrupt | Reserved
		c.irqFlag = 0
	}

	// Directly peek the vector to avoid side effects.
	c.PC = uint16(c.bus.Peek8(ResetVector)) | uint16(c.bus.Peek8(ResetVector+1))<<8
	c.nmiPending = false
	c.stall = 0
	c.halted = false

	// After a reset/power up, the CPU takes 7 cycles before going on with
	// ROM execution. The cycle counter keeps running across a soft reset:
	// the PPU, APU and mappers stay timed against it.
	if soft {
		c.Cycles += 7
	} else {
		c.Cycles = 7
	}
}

func (c *CPU) CurrentCycle() int64 {
	return c.Cycles
}

// Run executes instructions until the CPU cycle count reaches until.
func (c *CPU) Run(until int64) {
	for c.Cycles < until {
		if c.halted {
			c.Cycles = until
			return
		}
		c.Step()
	}
}

// Step executes a single instruction, or services a pending interrupt or
// DMA stall, and returns the number of cycles it took.
func (c *CPU) Step() int64 {
	start := c.Cycles

	if c.stall > 0 {
		c.Cycles += c.stall
		c.stall = 0
		return c.Cycles - start
	}

	if c.halted {
		c.Cycles++
		return 1
	}

	if c.nmiPending {
		c.nmiPending = false
		c.interrupt(NMIVector, c.P.withoutBreak())
		c.Cycles += 7
		return c.Cycles - start
	}

	if c.irqFlag != 0 && !c.P.intDisable() {
		c.interrupt(IRQVector, c.P.withoutBreak())
		c.Cycles += 7
		return c.Cycles - start
	}

	if c.tracer != nil {
		c.tracer.write(c)
	}

	op := opcodes[c.fetch8()]
	c.Cycles += int64(op.cycles)
	c.execute(op)
	return c.Cycles - start
}

func (c *CPU) halt(opcode uint8) {
	c.halted = true
	log.ModCPU.WarnZ("CPU halted").
		Hex16("PC", c.PC).
		Hex8("opcode", opcode).
		End()
}

func (c *CPU) IsHalted() bool {
	return c.halted
}

/* memory access */

func (c *CPU) read8(addr uint16) uint8 {
	return c.bus.Read8(addr)
}

func (c *CPU) write8(addr uint16, val uint8) {
	c.bus.Write8(addr, val)
}

func (c *CPU) read16(addr uint16) uint16 {
	lo := c.read8(addr)
	hi := c.read8(addr + 1)
	return uint16(hi)<<8 | uint16(lo)
}

func (c *CPU) fetch8() uint8 {
	val := c.read8(c.PC)
	c.PC++
	return val
}

func (c *CPU) fetch16() uint16 {
	val := c.read16(c.PC)
	c.PC += 2
	return val
}

/* stack operations */

func (c *CPU) push8(val uint8) {
	top := uint16(c.SP) + 0x0100
	c.write8(top, val)
	c.SP -= 1
}

func (c *CPU) push16(val uint16) {
	c.push8(uint8(val >> 8))
	c.push8(uint8(val & 0xff))
}

func (c *CPU) pull8() uint8 {
	c.SP++
	top := uint16(c.SP) + 0x0100
	return c.read8(top)
}

func (c *CPU) pull16() uint16 {
	lo := c.pull8()
	hi := c.pull8()
	return uint16(hi)<<8 | uint16(lo)
}

/* DMA */

// AddStall suspends the CPU for n cycles, as when the bus is taken by DMA.
func (c *CPU) AddStall(n int64) {
	c.stall += n
}

/* interrupt handling */

func (c *CPU) SetIRQSource(src hwdefs.IRQSource)      { c.irqFlag |= src }
func (c *CPU) HasIRQSource(src hwdefs.IRQSource) bool { return (c.irqFlag & src) != 0 }
func (c *CPU) ClearIRQSource(src hwdefs.IRQSource)    { c.irqFlag &= ^src }

// TriggerNMI signals a falling edge on the NMI line. The NMI is serviced
// before the next instruction.
func (c *CPU) TriggerNMI() {
	c.nmiPending = true
}

func (c *CPU) interrupt(vector uint16, p P) {
	prevpc := c.PC
	c.push16(c.PC)
	c.push8(uint8(p))
	c.P.setIntDisable()
	c.PC = c.read16(vector)

	log.ModCPU.DebugZ("interrupt").
		Hex16("from", prevpc).
		Hex16("to", c.PC).
		Hex16("vector", vector).
		End()
}

/* tracing / debugging */

// ppuPosition gives the current PPU position, for the execution trace.
type ppuPosition interface {
	Position() (scanline, dot int)
}

// SetTraceOutput enables the execution trace, one line per instruction, in
// the same format as nestest.log. Passing a nil writer disables tracing.
func (c *CPU) SetTraceOutput(w io.Writer, ppu ppuPosition) {
	if w == nil {
		c.tracer = nil
		return
	}
	c.tracer = &tracer{w: w, ppu: ppu}
}

func (c *CPU) Serialize(s *snapshot.Serializer) {
	s.I64(&c.Cycles)
	s.U8(&c.A)
	s.U8(&c.X)
	s.U8(&c.Y)
	s.U8(&c.SP)
	s.U16(&c.PC)
	p := uint8(c.P)
	s.U8(&p)
	c.P = P(p)
	s.Bool(&c.nmiPending)
	irq := uint8(c.irqFlag)
	s.U8(&irq)
	c.irqFlag = hwdefs.IRQSource(irq)
	s.I64(&c.stall)
	s.Bool(&c.halted)
}

// CPUState is a snapshot of the CPU registers, for debugging.
type CPUState struct {
	A, X, Y, SP uint8
	PC          uint16
	P           uint8
	Cycles      int64
	IRQ         hwdefs.IRQSource
	Halted      bool
}

func (c *CPU) State() CPUState {
	return CPUState{
		A:      c.A,
		X:      c.X,
		Y:      c.Y,
		SP:     c.SP,
		PC:     c.PC,
		P:      uint8(c.P),
		Cycles: c.Cycles,
		IRQ:    c.irqFlag,
		Halted: c.halted,
	}
}
