package ines

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"nescore/tests"
)

func TestDecode(t *testing.T) {
	prg := bytes.Repeat([]byte{0xEA}, 2*16384)
	chr := bytes.Repeat([]byte{0x55}, 8192)
	img := New(4, VertMirroring, prg, chr).Encode()

	rom, err := Decode(img)
	if err != nil {
		t.Fatal(err)
	}

	type infos struct {
		Mapper    uint16
		PRGBanks  int
		CHRBanks  int
		Mirroring NTMirroring
		Trainer   bool
		PRGRAM    int
	}
	got := infos{rom.Mapper(), rom.PRGBanks(), rom.CHRBanks(), rom.Mirroring(), rom.HasTrainer(), rom.PRGRAMSize()}
	want := infos{4, 2, 1, VertMirroring, false, 0x2000}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rom infos mismatch (-want +got):\n%s", diff)
	}
	if !bytes.Equal(rom.PRGROM, prg) || !bytes.Equal(rom.CHRROM, chr) {
		t.Errorf("PRG/CHR sections mismatch")
	}
}

func TestMapperNibbles(t *testing.T) {
	img := New(0x42, HorzMirroring, make([]byte, 16384), nil).Encode()
	rom, err := Decode(img)
	if err != nil {
		t.Fatal(err)
	}
	if rom.Mapper() != 0x42 {
		t.Errorf("Mapper() = %d, want %d", rom.Mapper(), 0x42)
	}

	// Garbage in the reserved bytes disables the high nibble.
	copy(img[7:16], "DiskDude!")
	img[7] = 0x40
	rom, err = Decode(img)
	if err != nil {
		t.Fatal(err)
	}
	if rom.Mapper() != 0x02 {
		t.Errorf("Mapper() = %d, want 2", rom.Mapper())
	}
}

func TestFourScreen(t *testing.T) {
	rom, err := Decode(New(0, FourScreen, make([]byte, 16384), nil).Encode())
	if err != nil {
		t.Fatal(err)
	}
	if rom.Mirroring() != FourScreen {
		t.Errorf("Mirroring() = %s, want FourScreen", rom.Mirroring())
	}
}

func TestMalformed(t *testing.T) {
	valid := New(0, HorzMirroring, make([]byte, 16384), make([]byte, 8192)).Encode()

	tests := []struct {
		name string
		buf  []byte
	}{
		{"empty", nil},
		{"short header", valid[:10]},
		{"bad magic", append([]byte("NES\x00"), valid[4:]...)},
		{"truncated PRG", valid[:16+100]},
		{"truncated CHR", valid[:len(valid)-1]},
		{"no PRG", append(append([]byte{}, valid[:4]...), make([]byte, 12)...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.buf)
			if !errors.Is(err, ErrMalformedROM) {
				t.Errorf("got err = %v, want ErrMalformedROM", err)
			}
		})
	}
}

func TestRomOpen(t *testing.T) {
	dir := filepath.Join(tests.RomsPath(t), "instr_test-v5", "rom_singles")
	paths := []string{
		"01-basics.nes",
		"02-implied.nes",
		"10-branches.nes",
		"15-brk.nes",
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			rom, err := Open(filepath.Join(dir, path))
			if err != nil {
				t.Fatal(err)
			}
			t.Logf("%s", rom)
		})
	}
}
