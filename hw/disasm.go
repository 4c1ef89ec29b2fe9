package hw

import (
	"fmt"
	"strings"
)

type DisasmOp struct {
	Opcode string
	Oper   string
	Buf    []byte
	PC     uint16
}

func (d DisasmOp) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%04X  ", d.PC)
	for i := range 3 {
		if i < len(d.Buf) {
			fmt.Fprintf(&sb, "%02X ", d.Buf[i])
		} else {
			sb.WriteString("   ")
		}
	}
	fmt.Fprintf(&sb, "%4s %s", d.Opcode, d.Oper)
	return sb.String()
}

// Disasm disassembles the instruction at pc, without side effects.
func (c *CPU) Disasm(pc uint16) DisasmOp {
	code := c.bus.Peek8(pc)
	op := opcodes[code]

	d := DisasmOp{
		PC:     pc,
		Opcode: op.name.String(),
		Buf:    make([]byte, op.size()),
	}
	if op.name.unofficial() || (op.name == NOP && code != 0xEA) || code == 0xEB {
		d.Opcode = "*" + d.Opcode
	}
	for i := range d.Buf {
		d.Buf[i] = c.bus.Peek8(pc + uint16(i))
	}

	var oper16 uint16
	if len(d.Buf) == 3 {
		oper16 = uint16(d.Buf[2])<<8 | uint16(d.Buf[1])
	}

	switch op.mode {
	case imp:
	case acc:
		d.Oper = "A"
	case imm:
		d.Oper = fmt.Sprintf("#$%02X", d.Buf[1])
	case zpg:
		d.Oper = fmt.Sprintf("$%02X", d.Buf[1])
	case zpx:
		d.Oper = fmt.Sprintf("$%02X,X", d.Buf[1])
	case zpy:
		d.Oper = fmt.Sprintf("$%02X,Y", d.Buf[1])
	case abs:
		d.Oper = formatAddr(oper16)
	case abx:
		d.Oper = formatAddr(oper16) + ",X"
	case aby:
		d.Oper = formatAddr(oper16) + ",Y"
	case izx:
		d.Oper = fmt.Sprintf("($%02X,X)", d.Buf[1])
	case izy:
		d.Oper = fmt.Sprintf("($%02X),Y", d.Buf[1])
	case ind:
		d.Oper = fmt.Sprintf("($%04X)", oper16)
	case rel:
		dst := pc + 2 + uint16(int8(d.Buf[1]))
		d.Oper = fmt.Sprintf("$%04X", dst)
	}
	return d
}

var addressLabels = map[uint16]string{
	0x2000: "PpuControl_2000",
	0x2001: "PpuMask_2001",
	0x2002: "PpuStatus_2002",
	0x2003: "OamAddr_2003",
	0x2004: "OamData_2004",
	0x2005: "PpuScroll_2005",
	0x2006: "PpuAddr_2006",
	0x2007: "PpuData_2007",
	0x4014: "SpriteDma_4014",
	0x4015: "ApuStatus_4015",
	0x4016: "Ctrl1_4016",
	0x4017: "Ctrl2_FrameCtr_4017",
}

func formatAddr(addr uint16) string {
	if label, ok := addressLabels[addr]; ok {
		return label
	}
	return fmt.Sprintf("$%04X", addr)
}
