package hw

import "nescore/emu/log"

// operand resolves the effective address of the current instruction
// operand. base is the address before indexing, crossed reports whether
// indexing crossed a page boundary.
func (c *CPU) operand(mode addrMode) (addr, base uint16, crossed bool) {
	switch mode {
	case imp, acc:
		return 0, 0, false
	case imm:
		addr = c.PC
		c.PC++
		return addr, addr, false
	case zpg:
		addr = uint16(c.fetch8())
		return addr, addr, false
	case zpx:
		// Zero page indexing wraps around within page 0.
		zp := c.fetch8()
		return uint16(zp + c.X), uint16(zp), false
	case zpy:
		zp := c.fetch8()
		return uint16(zp + c.Y), uint16(zp), false
	case abs:
		addr = c.fetch16()
		return addr, addr, false
	case abx:
		base = c.fetch16()
		addr = base + uint16(c.X)
		return addr, base, pagesDiffer(base, addr)
	case aby:
		base = c.fetch16()
		addr = base + uint16(c.Y)
		return addr, base, pagesDiffer(base, addr)
	case izx:
		zp := c.fetch8() + c.X
		lo := c.read8(uint16(zp))
		hi := c.read8(uint16(zp + 1))
		addr = uint16(hi)<<8 | uint16(lo)
		return addr, addr, false
	case izy:
		zp := c.fetch8()
		lo := c.read8(uint16(zp))
		hi := c.read8(uint16(zp + 1))
		base = uint16(hi)<<8 | uint16(lo)
		addr = base + uint16(c.Y)
		return addr, base, pagesDiffer(base, addr)
	case ind:
		// 6502 bug: the high byte of the target is fetched from the start
		// of the same page when the pointer lies on a page boundary.
		ptr := c.fetch16()
		lo := c.read8(ptr)
		hi := c.read8(ptr&0xFF00 | uint16(uint8(ptr)+1))
		addr = uint16(hi)<<8 | uint16(lo)
		return addr, ptr, false
	case rel:
		off := int8(c.fetch8())
		addr = c.PC + uint16(off)
		return addr, c.PC, false
	}
	panic("unknown addressing mode")
}

func pagesDiffer(a, b uint16) bool {
	return a&0xFF00 != b&0xFF00
}

func (c *CPU) execute(op opcode) {
	addr, base, crossed := c.operand(op.mode)
	if crossed && op.cross {
		c.Cycles++
	}

	switch op.name {
	// loads / stores
	case LDA:
		c.A = c.read8(addr)
		c.P.checkNZ(c.A)
	case LDX:
		c.X = c.read8(addr)
		c.P.checkNZ(c.X)
	case LDY:
		c.Y = c.read8(addr)
		c.P.checkNZ(c.Y)
	case STA:
		c.write8(addr, c.A)
	case STX:
		c.write8(addr, c.X)
	case STY:
		c.write8(addr, c.Y)

	// transfers
	case TAX:
		c.X = c.A
		c.P.checkNZ(c.X)
	case TAY:
		c.Y = c.A
		c.P.checkNZ(c.Y)
	case TSX:
		c.X = c.SP
		c.P.checkNZ(c.X)
	case TXA:
		c.A = c.X
		c.P.checkNZ(c.A)
	case TXS:
		c.SP = c.X
	case TYA:
		c.A = c.Y
		c.P.checkNZ(c.A)

	// arithmetic / logic
	case ADC:
		if val := c.read8(addr); c.decimalMode() {
			c.adcDecimal(val)
		} else {
			c.add(val)
		}
	case SBC:
		if val := c.read8(addr); c.decimalMode() {
			c.sbcDecimal(val)
		} else {
			c.add(^val)
		}
	case AND:
		c.A &= c.read8(addr)
		c.P.checkNZ(c.A)
	case ORA:
		c.A |= c.read8(addr)
		c.P.checkNZ(c.A)
	case EOR:
		c.A ^= c.read8(addr)
		c.P.checkNZ(c.A)
	case BIT:
		val := c.read8(addr)
		c.P.clearFlags(Zero | Overflow | Negative)
		c.P |= P(val & 0b11000000)
		c.P.setFlag(Zero, c.A&val == 0)
	case CMP:
		c.compare(c.A, c.read8(addr))
	case CPX:
		c.compare(c.X, c.read8(addr))
	case CPY:
		c.compare(c.Y, c.read8(addr))

	// increments / decrements
	case INC:
		c.P.checkNZ(c.rmw(addr, func(v uint8) uint8 { return v + 1 }))
	case DEC:
		c.P.checkNZ(c.rmw(addr, func(v uint8) uint8 { return v - 1 }))
	case INX:
		c.X++
		c.P.checkNZ(c.X)
	case INY:
		c.Y++
		c.P.checkNZ(c.Y)
	case DEX:
		c.X--
		c.P.checkNZ(c.X)
	case DEY:
		c.Y--
		c.P.checkNZ(c.Y)

	// shifts
	case ASL:
		c.shift(op.mode, addr, c.asl)
	case LSR:
		c.shift(op.mode, addr, c.lsr)
	case ROL:
		c.shift(op.mode, addr, c.rol)
	case ROR:
		c.shift(op.mode, addr, c.ror)

	// jumps / calls
	case JMP:
		c.PC = addr
	case JSR:
		c.push16(c.PC - 1)
		c.PC = addr
	case RTS:
		c.PC = c.pull16() + 1
	case RTI:
		c.plp()
		c.PC = c.pull16()
	case BRK:
		c.brk()

	// branches
	case BCC:
		c.branch(!c.P.hasFlag(Carry), addr)
	case BCS:
		c.branch(c.P.hasFlag(Carry), addr)
	case BEQ:
		c.branch(c.P.hasFlag(Zero), addr)
	case BNE:
		c.branch(!c.P.hasFlag(Zero), addr)
	case BMI:
		c.branch(c.P.hasFlag(Negative), addr)
	case BPL:
		c.branch(!c.P.hasFlag(Negative), addr)
	case BVC:
		c.branch(!c.P.hasFlag(Overflow), addr)
	case BVS:
		c.branch(c.P.hasFlag(Overflow), addr)

	// stack
	case PHA:
		c.push8(c.A)
	case PHP:
		c.push8(uint8(c.P.withBreak()))
	case PLA:
		c.A = c.pull8()
		c.P.checkNZ(c.A)
	case PLP:
		c.plp()

	// flags
	case CLC:
		c.P.clearFlags(Carry)
	case CLD:
		c.P.clearFlags(Decimal)
	case CLI:
		c.P.clearFlags(Interrupt)
	case CLV:
		c.P.clearFlags(Overflow)
	case SEC:
		c.P.setFlags(Carry)
	case SED:
		c.P.setFlags(Decimal)
	case SEI:
		c.P.setFlags(Interrupt)

	case NOP:
		if op.mode != imp && op.mode != imm {
			// unofficial NOPs with an operand still read it.
			c.read8(addr)
		}

	// unofficial opcodes
	case LAX:
		c.A = c.read8(addr)
		c.X = c.A
		c.P.checkNZ(c.A)
	case SAX:
		c.write8(addr, c.A&c.X)
	case DCP:
		c.compare(c.A, c.rmw(addr, func(v uint8) uint8 { return v - 1 }))
	case ISB:
		c.add(^c.rmw(addr, func(v uint8) uint8 { return v + 1 }))
	case SLO:
		c.A |= c.rmw(addr, c.asl)
		c.P.checkNZ(c.A)
	case RLA:
		c.A &= c.rmw(addr, c.rol)
		c.P.checkNZ(c.A)
	case SRE:
		c.A ^= c.rmw(addr, c.lsr)
		c.P.checkNZ(c.A)
	case RRA:
		c.add(c.rmw(addr, c.ror))
	case ALR:
		// like and + lsr but saves one tick
		c.A = c.lsr(c.A & c.read8(addr))
	case ANC:
		c.A &= c.read8(addr)
		c.P.checkNZ(c.A)
		c.P.setFlag(Carry, c.P.hasFlag(Negative))
	case ARR:
		c.A &= c.read8(addr)
		c.A = c.A>>1 | c.P.carry()<<7
		c.P.checkNZ(c.A)
		c.P.setFlag(Carry, c.A&0x40 != 0)
		c.P.setFlag(Overflow, (c.A>>6^c.A>>5)&0x01 != 0)
	case ANE:
		const magic = 0xEE
		c.A = (c.A | magic) & c.X & c.read8(addr)
		c.P.checkNZ(c.A)
	case LXA:
		const magic = 0xFF
		c.A = (c.A | magic) & c.read8(addr)
		c.X = c.A
		c.P.checkNZ(c.A)
	case SBX:
		val := c.read8(addr)
		ax := c.A & c.X
		c.X = ax - val
		c.P.setFlag(Carry, ax >= val)
		c.P.checkNZ(c.X)
	case LAS:
		c.A = c.SP & c.read8(addr)
		c.X = c.A
		c.SP = c.A
		c.P.checkNZ(c.A)
	case SHA:
		c.sh(addr, base, crossed, c.A&c.X)
	case SHX:
		c.sh(addr, base, crossed, c.X)
	case SHY:
		c.sh(addr, base, crossed, c.Y)
	case TAS:
		c.SP = c.A & c.X
		c.sh(addr, base, crossed, c.SP)
	case STP:
		c.PC--
		c.halt(c.read8(c.PC))

	default:
		log.ModCPU.ErrorZ("unimplemented opcode").Stringer("name", op.name).Hex16("PC", c.PC).End()
	}
}

// add performs A+val+carry, SBC is add with the complement of val.
func (c *CPU) add(val uint8) {
	sum := uint16(c.A) + uint16(val) + uint16(c.P.carry())
	c.P.checkCV(c.A, val, sum)
	c.A = uint8(sum)
	c.P.checkNZ(c.A)
}

func (c *CPU) decimalMode() bool {
	return c.BCD && c.P.hasFlag(Decimal)
}

// adcDecimal is ADC with the D flag set, as done by the NMOS 6502. Only A and
// C are meaningful, N V and Z are set like the chip does, from intermediate
// or binary results.
func (c *CPU) adcDecimal(val uint8) {
	bin := uint16(c.A) + uint16(val) + uint16(c.P.carry())
	lo := c.A&0x0F + val&0x0F + c.P.carry()
	hi := c.A>>4 + val>>4
	if lo > 9 {
		lo += 6
	}
	if lo > 0x0F {
		hi++
	}
	c.P.checkCV(c.A, val, bin)
	c.P.setFlag(Zero, uint8(bin) == 0)
	c.P.setFlag(Negative, hi&0x08 != 0)
	if hi > 9 {
		hi += 6
	}
	c.A = hi<<4 | lo&0x0F
	c.P.setFlag(Carry, hi > 0x0F)
}

// sbcDecimal is SBC with the D flag set. Flags are those of the binary
// subtraction.
func (c *CPU) sbcDecimal(val uint8) {
	bin := uint16(c.A) + uint16(^val) + uint16(c.P.carry())
	lo := int(c.A&0x0F) - int(val&0x0F) - int(1-c.P.carry())
	hi := int(c.A>>4) - int(val>>4)
	if lo < 0 {
		lo -= 6
		hi--
	}
	if hi < 0 {
		hi -= 6
	}
	c.P.checkCV(c.A, ^val, bin)
	c.A = uint8(hi<<4) | uint8(lo&0x0F)
	c.P.checkNZ(uint8(bin))
}

func (c *CPU) compare(reg, val uint8) {
	c.P.setFlag(Carry, reg >= val)
	c.P.checkNZ(reg - val)
}

func (c *CPU) branch(taken bool, addr uint16) {
	if !taken {
		return
	}
	c.Cycles++
	if pagesDiffer(c.PC, addr) {
		c.Cycles++
	}
	c.PC = addr
}

func (c *CPU) plp() {
	const mask = 0b11001111 // ignore B and U bits
	p := c.pull8()
	c.P = P(uint8(c.P)&^mask | p&mask)
}

func (c *CPU) brk() {
	if c.HaltOnBRK {
		c.P.setFlags(Break)
		c.halted = true
		log.ModCPU.DebugZ("BRK halt").Hex16("PC", c.PC).End()
		return
	}
	// BRK has a padding byte.
	c.PC++
	c.interrupt(IRQVector, c.P.withBreak())
}

// rmw applies f to the byte at addr. Like the real CPU, the unmodified value
// is first written back before the result.
func (c *CPU) rmw(addr uint16, f func(uint8) uint8) uint8 {
	val := c.read8(addr)
	c.write8(addr, val)
	val = f(val)
	c.write8(addr, val)
	return val
}

func (c *CPU) shift(mode addrMode, addr uint16, f func(uint8) uint8) {
	if mode == acc {
		c.A = f(c.A)
		return
	}
	c.rmw(addr, f)
}

func (c *CPU) asl(val uint8) uint8 {
	c.P.setFlag(Carry, val&0x80 != 0)
	val <<= 1
	c.P.checkNZ(val)
	return val
}

func (c *CPU) lsr(val uint8) uint8 {
	c.P.setFlag(Carry, val&0x01 != 0)
	val >>= 1
	c.P.checkNZ(val)
	return val
}

func (c *CPU) rol(val uint8) uint8 {
	carry := c.P.carry()
	c.P.setFlag(Carry, val&0x80 != 0)
	val = val<<1 | carry
	c.P.checkNZ(val)
	return val
}

func (c *CPU) ror(val uint8) uint8 {
	carry := c.P.carry()
	c.P.setFlag(Carry, val&0x01 != 0)
	val = val>>1 | carry<<7
	c.P.checkNZ(val)
	return val
}

// sh implements the unstable SHA/SHX/SHY/TAS stores: the stored value is
// ANDed with the high byte of the base address plus one, and on page
// crossing that value replaces the high byte of the target address.
func (c *CPU) sh(addr, base uint16, crossed bool, val uint8) {
	val &= uint8(base>>8) + 1
	if crossed {
		addr = uint16(val)<<8 | addr&0xFF
	}
	c.write8(addr, val)
}
