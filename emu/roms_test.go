package emu

import (
	"path/filepath"
	"testing"

	"nescore/tests"
)

func TestNestest(t *testing.T) {
	romPath := filepath.Join(tests.RomsPath(t), "other", "nestest.nes")

	s := New(DefaultConfig())
	if err := s.LoadROM(romPath); err != nil {
		t.Fatal(err)
	}

	// nestest.nes has an 'automation' mode. To enable it, PC must be set to
	// C000 (instead of C004 for graphic mode). The run ends on the RTS at
	// C66E.
	cpu := s.Bus().CPU
	cpu.PC = 0xC000
	for i := 0; cpu.PC != 0xC66E; i++ {
		if i > 10000 || cpu.IsHalted() {
			t.Fatalf("nestest did not complete, PC=%04X", cpu.PC)
		}
		cpu.Step()
	}

	// $02 holds the result of the official opcodes tests, $03 the
	// unofficial ones.
	if res := s.Bus().Peek8(0x02); res != 0 {
		t.Errorf("official opcodes failed with code 0x%02x (check nestest.txt)", res)
	}
	if res := s.Bus().Peek8(0x03); res != 0 {
		t.Errorf("unofficial opcodes failed with code 0x%02x (check nestest.txt)", res)
	}
}
