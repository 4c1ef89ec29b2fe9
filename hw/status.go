package hw

// P is the processor status register.
type P uint8

const (
	Carry = 1 << iota
	Zero
	Interrupt
	Decimal
	Break
	Reserved
	Overflow
	Negative
)

func (p P) String() string {
	const bits = "nvubdizcNVUBDIZC"

	s := make([]byte, 8)
	for i := range 8 {
		ibit := (uint8(p) & (1 << (7 - i))) >> (7 - i)
		s[i] = bits[i+int(8*ibit)]
	}
	return string(s)
}

func (p *P) setFlags(flags uint8) {
	*p |= P(flags)
}

func (p *P) clearFlags(flags uint8) {
	*p &= ^P(flags)
}

func (p P) hasFlag(flag uint8) bool {
	return uint8(p)&flag == flag
}

func (p *P) setFlag(flag uint8, v bool) {
	if v {
		p.setFlags(flag)
	} else {
		p.clearFlags(flag)
	}
}

// checkNZ sets or clears N and Z according to val.
func (p *P) checkNZ(val uint8) {
	p.setFlag(Zero, val == 0)
	p.setFlag(Negative, val&0x80 != 0)
}

// checkCV sets C and V after the 8-bit addition x+y giving sum.
func (p *P) checkCV(x, y uint8, sum uint16) {
	// forward carry or unsigned overflow.
	p.setFlag(Carry, sum > 0xFF)

	// signed overflow, can only happen if the sign of the sum differs
	// from that of both operands.
	v := (uint16(x) ^ sum) & (uint16(y) ^ sum) & 0x80
	p.setFlag(Overflow, v != 0)
}

func (p P) carry() uint8     { return uint8(p) & Carry }
func (p P) intDisable() bool { return p.hasFlag(Interrupt) }
func (p *P) setIntDisable()  { p.setFlags(Interrupt) }
func (p P) withBreak() P     { return p | Break | Reserved }
func (p P) withoutBreak() P  { return (p &^ Break) | Reserved }
