package hw

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"nescore/hw/hwdefs"
	"nescore/tests"
)

// flatBus is a 64KB RAM bus.
type flatBus struct {
	mem    [0x10000]uint8
	writes []uint16
}

func (b *flatBus) Read8(addr uint16) uint8 { return b.mem[addr] }
func (b *flatBus) Peek8(addr uint16) uint8 { return b.mem[addr] }
func (b *flatBus) Write8(addr uint16, val uint8) {
	b.mem[addr] = val
	b.writes = append(b.writes, addr)
}

func (b *flatBus) load(addr uint16, prog ...uint8) {
	copy(b.mem[addr:], prog)
}

// newTestCPU returns a cpu ready to execute prog at 0x0600.
func newTestCPU(prog ...uint8) (*CPU, *flatBus) {
	bus := &flatBus{}
	bus.load(0x0600, prog...)
	bus.mem[ResetVector] = 0x00
	bus.mem[ResetVector+1] = 0x06

	cpu := NewCPU(bus)
	cpu.Reset(false)
	cpu.HaltOnBRK = true
	cpu.P = Reserved
	cpu.SP = 0xFF
	return cpu, bus
}

type regs struct {
	A, X, Y, SP uint8
	PC          uint16
	P           uint8
}

func cpuRegs(c *CPU) regs {
	return regs{A: c.A, X: c.X, Y: c.Y, SP: c.SP, PC: c.PC, P: uint8(c.P)}
}

func runToHalt(t *testing.T, cpu *CPU, maxCycles int64) {
	t.Helper()
	for !cpu.IsHalted() {
		if cpu.Cycles > maxCycles {
			t.Fatalf("cpu still running after %d cycles, PC=%04X", maxCycles, cpu.PC)
		}
		cpu.Step()
	}
}

func TestProgram1(t *testing.T) {
	cpu, bus := newTestCPU(
		0xA9, 0x01, // LDA #$01
		0x8D, 0x00, 0x02, // STA $0200
		0xA9, 0x05, // LDA #$05
		0x8D, 0x01, 0x02, // STA $0201
		0xA9, 0x08, // LDA #$08
		0x8D, 0x02, 0x02, // STA $0202
		0x00, // BRK
	)
	runToHalt(t, cpu, 1000)

	want := regs{A: 0x08, X: 0x00, Y: 0x00, SP: 0xFF, PC: 0x0610, P: 0x30}
	require.Equal(t, want, cpuRegs(cpu))
	require.Equal(t, []uint8{0x01, 0x05, 0x08}, bus.mem[0x200:0x203])
}

func TestFunctionalTest(t *testing.T) {
	buf, err := os.ReadFile(tests.FunctionalTestPath(t))
	if err != nil {
		t.Fatal(err)
	}

	bus := &flatBus{}
	copy(bus.mem[:], buf)
	cpu := NewCPU(bus)
	cpu.BCD = true
	cpu.PC = 0x0400

	// Success and failures both end in a jump to self.
	const success = 0x3469
	for {
		pc := cpu.PC
		cpu.Step()
		bus.writes = bus.writes[:0]
		if cpu.PC == pc {
			break
		}
		if cpu.Cycles > 200_000_000 {
			t.Fatalf("functional test still running after %d cycles, PC=%04X", cpu.Cycles, cpu.PC)
		}
	}
	if cpu.PC != success {
		t.Fatalf("functional test trapped at PC=%04X, test case $%02X", cpu.PC, bus.mem[0x0200])
	}
}

func TestDecimalMode(t *testing.T) {
	tests := []struct {
		name   string
		bcd    bool
		code   uint8 // ADC or SBC immediate
		a, val uint8
		carry  bool
		want   uint8
		wantC  bool
	}{
		{"nes ignores D", false, 0x69, 0x15, 0x27, false, 0x3C, false},
		{"adc", true, 0x69, 0x15, 0x27, false, 0x42, false},
		{"adc carry in", true, 0x69, 0x15, 0x27, true, 0x43, false},
		{"adc carry out", true, 0x69, 0x99, 0x01, false, 0x00, true},
		{"adc 58+46", true, 0x69, 0x58, 0x46, true, 0x05, true},
		{"sbc", true, 0xE9, 0x42, 0x15, true, 0x27, true},
		{"sbc borrow", true, 0xE9, 0x00, 0x01, true, 0x99, false},
		{"sbc borrow in", true, 0xE9, 0x40, 0x13, false, 0x26, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cpu, _ := newTestCPU(tt.code, tt.val)
			cpu.BCD = tt.bcd
			cpu.A = tt.a
			cpu.P.setFlags(Decimal)
			cpu.P.setFlag(Carry, tt.carry)
			cpu.Step()

			require.Equal(t, tt.want, cpu.A)
			require.Equal(t, tt.wantC, cpu.P.hasFlag(Carry), "carry")
		})
	}
}

func TestReset(t *testing.T) {
	cpu, _ := newTestCPU()
	cpu.A, cpu.X, cpu.Y = 1, 2, 3
	cpu.Reset(false)

	require.Equal(t, regs{SP: 0xFD, PC: 0x0600, P: 0x24}, cpuRegs(cpu))
	require.EqualValues(t, 7, cpu.Cycles)

	cpu.P = 0
	cpu.Cycles = 1000
	cpu.Reset(true)
	require.EqualValues(t, 0xFA, cpu.SP)
	require.True(t, cpu.P.intDisable())
	require.EqualValues(t, 1007, cpu.Cycles, "soft reset keeps the cycle count running")
}

func TestZeroPageWrap(t *testing.T) {
	cpu, bus := newTestCPU(
		0xA2, 0x01, // LDX #$01
		0xB5, 0xFF, // LDA $FF,X  -> $00
		0xA0, 0x02, // LDY #$02
		0xB6, 0xFF, // LDX $FF,Y  -> $01
		0xA2, 0x00, // LDX #$00
		0xA1, 0xFF, // LDA ($FF,X) -> ptr at $FF/$00
		0x00,
	)
	bus.mem[0x00] = 0x34
	bus.mem[0x01] = 0x56
	bus.mem[0xFF] = 0x00
	bus.mem[0x3400] = 0x99

	cpu.Step()
	cpu.Step()
	require.EqualValues(t, 0x34, cpu.A)
	cpu.Step()
	cpu.Step()
	require.EqualValues(t, 0x56, cpu.X)
	cpu.Step()
	cpu.Step()
	require.EqualValues(t, 0x99, cpu.A)
}

func TestJMPIndirectBug(t *testing.T) {
	cpu, bus := newTestCPU(0x6C, 0xFF, 0x02) // JMP ($02FF)
	bus.mem[0x02FF] = 0x00
	bus.mem[0x0300] = 0x80 // would be the high byte without the bug
	bus.mem[0x0200] = 0x40

	cycles := cpu.Step()
	require.EqualValues(t, 0x4000, cpu.PC)
	require.EqualValues(t, 5, cycles)
}

func TestBranchCycles(t *testing.T) {
	tests := []struct {
		name   string
		pc     uint16
		prog   []uint8
		cycles int64
		wantPC uint16
	}{
		{
			name:   "not taken",
			pc:     0x0600,
			prog:   []uint8{0xD0, 0x10}, // BNE, Z is set
			cycles: 2,
			wantPC: 0x0602,
		},
		{
			name:   "taken",
			pc:     0x0600,
			prog:   []uint8{0xF0, 0x10}, // BEQ
			cycles: 3,
			wantPC: 0x0612,
		},
		{
			name:   "taken page cross",
			pc:     0x06F0,
			prog:   []uint8{0xF0, 0x10}, // BEQ
			cycles: 4,
			wantPC: 0x0702,
		},
		{
			name:   "taken backwards page cross",
			pc:     0x0600,
			prog:   []uint8{0xF0, 0xFC}, // BEQ -4
			cycles: 4,
			wantPC: 0x05FE,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cpu, bus := newTestCPU()
			bus.load(tt.pc, tt.prog...)
			cpu.PC = tt.pc
			cpu.P.setFlags(Zero)

			require.Equal(t, tt.cycles, cpu.Step())
			require.Equal(t, tt.wantPC, cpu.PC)
		})
	}
}

func TestPageCrossCycles(t *testing.T) {
	tests := []struct {
		name   string
		prog   []uint8
		x      uint8
		cycles int64
	}{
		{"LDA abs,X no cross", []uint8{0xBD, 0x00, 0x02}, 0x10, 4},
		{"LDA abs,X cross", []uint8{0xBD, 0xF8, 0x02}, 0x10, 5},
		{"STA abs,X cross", []uint8{0x9D, 0xF8, 0x02}, 0x10, 5},
		{"STA abs,X no cross", []uint8{0x9D, 0x00, 0x02}, 0x10, 5},
		{"INC abs,X cross", []uint8{0xFE, 0xF8, 0x02}, 0x10, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cpu, _ := newTestCPU(tt.prog...)
			cpu.X = tt.x
			require.Equal(t, tt.cycles, cpu.Step())
		})
	}
}

func TestOpcodeTable(t *testing.T) {
	// A few well-known entries.
	tests := []struct {
		code   uint8
		name   mnemonic
		mode   addrMode
		cycles uint8
		size   uint8
	}{
		{0x00, BRK, imp, 7, 1},
		{0x20, JSR, abs, 6, 3},
		{0x6C, JMP, ind, 5, 3},
		{0xA9, LDA, imm, 2, 2},
		{0xB1, LDA, izy, 5, 2},
		{0x91, STA, izy, 6, 2},
		{0xEA, NOP, imp, 2, 1},
		{0xEB, SBC, imm, 2, 2},
		{0xA7, LAX, zpg, 3, 2},
		{0xC3, DCP, izx, 8, 2},
	}
	for _, tt := range tests {
		op := opcodes[tt.code]
		require.Equalf(t, tt.name, op.name, "opcode %02X", tt.code)
		require.Equalf(t, tt.mode, op.mode, "opcode %02X", tt.code)
		require.Equalf(t, tt.cycles, op.cycles, "opcode %02X", tt.code)
		require.Equalf(t, tt.size, op.size(), "opcode %02X", tt.code)
	}

	for code, op := range opcodes {
		require.NotZerof(t, op.cycles, "opcode %02X has no cycle count", code)
	}
}

func TestADCSBC(t *testing.T) {
	tests := []struct {
		name     string
		a, val   uint8
		carry    bool
		sbc      bool
		want     uint8
		wantC    bool
		wantV    bool
		wantN    bool
		wantZero bool
	}{
		{"adc simple", 0x01, 0x01, false, false, 0x02, false, false, false, false},
		{"adc carry in", 0x01, 0x01, true, false, 0x03, false, false, false, false},
		{"adc signed overflow", 0x50, 0x50, false, false, 0xA0, false, true, true, false},
		{"adc carry out", 0xFF, 0x01, false, false, 0x00, true, false, false, true},
		{"sbc no borrow", 0x05, 0x03, true, true, 0x02, true, false, false, false},
		{"sbc borrow", 0x03, 0x05, true, true, 0xFE, false, false, true, false},
		{"sbc signed overflow", 0x80, 0x01, true, true, 0x7F, true, true, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := uint8(0x69)
			if tt.sbc {
				code = 0xE9
			}
			cpu, _ := newTestCPU(code, tt.val)
			cpu.A = tt.a
			cpu.P.setFlag(Carry, tt.carry)
			cpu.Step()

			require.Equal(t, tt.want, cpu.A)
			require.Equal(t, tt.wantC, cpu.P.hasFlag(Carry), "carry")
			require.Equal(t, tt.wantV, cpu.P.hasFlag(Overflow), "overflow")
			require.Equal(t, tt.wantN, cpu.P.hasFlag(Negative), "negative")
			require.Equal(t, tt.wantZero, cpu.P.hasFlag(Zero), "zero")
		})
	}
}

func TestRMWDummyWrite(t *testing.T) {
	cpu, bus := newTestCPU(0xEE, 0x00, 0x02) // INC $0200
	bus.mem[0x200] = 0x41
	cpu.Step()

	require.EqualValues(t, 0x42, bus.mem[0x200])
	require.Equal(t, []uint16{0x0200, 0x0200}, bus.writes)
}

func TestStackJSRRTS(t *testing.T) {
	cpu, bus := newTestCPU(
		0x20, 0x10, 0x06, // JSR $0610
		0x00,
	)
	bus.load(0x0610, 0xA9, 0x42, 0x60) // LDA #$42; RTS
	runToHalt(t, cpu, 100)

	require.EqualValues(t, 0x42, cpu.A)
	require.EqualValues(t, 0xFF, cpu.SP)
	require.EqualValues(t, 0x0604, cpu.PC)
	// return address minus one
	require.EqualValues(t, 0x06, bus.mem[0x1FF])
	require.EqualValues(t, 0x02, bus.mem[0x1FE])
}

func TestPHPPLP(t *testing.T) {
	cpu, bus := newTestCPU(
		0x08, // PHP
		0x28, // PLP
	)
	cpu.P = Carry | Reserved
	cpu.Step()
	require.EqualValues(t, Carry|Reserved|Break, bus.mem[0x1FF], "PHP pushes B and U set")

	bus.mem[0x1FF] = 0xFF
	cpu.Step()
	require.EqualValues(t, 0xFF&^Break, uint8(cpu.P), "PLP ignores B")
}

func TestInterrupts(t *testing.T) {
	t.Run("nmi", func(t *testing.T) {
		cpu, bus := newTestCPU(0xEA)
		bus.mem[NMIVector] = 0x00
		bus.mem[NMIVector+1] = 0x80
		cpu.P.setIntDisable()

		cpu.TriggerNMI()
		require.EqualValues(t, 7, cpu.Step())
		require.EqualValues(t, 0x8000, cpu.PC)
		require.EqualValues(t, 0xFC, cpu.SP)
		require.Zero(t, bus.mem[0x1FD]&Break, "B clear on stack")

		// only serviced once
		bus.mem[0x8000] = 0xEA
		require.EqualValues(t, 2, cpu.Step())
	})

	t.Run("irq masked", func(t *testing.T) {
		cpu, _ := newTestCPU(0xEA)
		cpu.P.setIntDisable()
		cpu.SetIRQSource(hwdefs.Mapper)
		cpu.Step()
		require.EqualValues(t, 0x0601, cpu.PC)
	})

	t.Run("irq level", func(t *testing.T) {
		cpu, bus := newTestCPU(0x58) // CLI
		bus.mem[IRQVector] = 0x00
		bus.mem[IRQVector+1] = 0x90
		bus.load(0x9000, 0x40) // RTI
		cpu.P.setIntDisable()
		cpu.SetIRQSource(hwdefs.FrameCounter)
		cpu.SetIRQSource(hwdefs.Mapper)

		cpu.Step() // CLI
		cpu.Step() // IRQ
		require.EqualValues(t, 0x9000, cpu.PC)
		require.True(t, cpu.P.intDisable())

		cpu.ClearIRQSource(hwdefs.FrameCounter)
		require.True(t, cpu.HasIRQSource(hwdefs.Mapper))
		cpu.ClearIRQSource(hwdefs.Mapper)
		cpu.Step() // RTI
		require.EqualValues(t, 0x0601, cpu.PC)
		require.False(t, cpu.P.intDisable())
	})
}

func TestStall(t *testing.T) {
	cpu, _ := newTestCPU(0xEA)
	cpu.AddStall(513)
	require.EqualValues(t, 513, cpu.Step())
	require.EqualValues(t, 0x0600, cpu.PC)
	require.EqualValues(t, 2, cpu.Step())
}

func TestHalt(t *testing.T) {
	cpu, _ := newTestCPU(0x02) // STP
	cpu.Step()
	require.True(t, cpu.IsHalted())
	require.EqualValues(t, 0x0600, cpu.PC)

	before := cpu.Cycles
	require.EqualValues(t, 1, cpu.Step())
	require.Equal(t, before+1, cpu.Cycles)

	cpu.Run(1000)
	require.EqualValues(t, 1000, cpu.Cycles)
}
