package main

import (
	"testing"

	"nescore/emu/log"
)

func TestParseLogModules(t *testing.T) {
	cpu, _ := log.ModuleByName("cpu")
	ppu, _ := log.ModuleByName("ppu")

	tests := []struct {
		list    string
		want    log.ModuleMask
		nolog   bool
		wantErr bool
	}{
		{list: "cpu", want: cpu.Mask()},
		{list: "cpu,ppu", want: cpu.Mask() | ppu.Mask()},
		{list: "all", want: log.ModuleMaskAll},
		{list: "cpu,all", want: log.ModuleMaskAll},
		{list: "no", nolog: true},
		{list: "no,all", wantErr: true},
		{list: "no,cpu", wantErr: true},
		{list: "foo", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.list, func(t *testing.T) {
			mask, nolog, err := parseLogModules(tt.list)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseLogModules(%q) error = %v, wantErr %t", tt.list, err, tt.wantErr)
			}
			if mask != tt.want || nolog != tt.nolog {
				t.Errorf("parseLogModules(%q) = %x, %t, want %x, %t", tt.list, mask, nolog, tt.want, tt.nolog)
			}
		})
	}
}

func TestOutPath(t *testing.T) {
	single := &Run{RomPaths: []string{"roms/smb.nes"}}
	if got := single.outPath("out.wav", "roms/smb.nes"); got != "out.wav" {
		t.Errorf("single rom: got %q", got)
	}

	multi := &Run{RomPaths: []string{"roms/smb.nes", "roms/zelda.nes"}}
	if got := multi.outPath("dump/out.wav", "roms/zelda.nes"); got != "dump/out-zelda.wav" {
		t.Errorf("multiple roms: got %q", got)
	}
	if got := multi.outPath("", "roms/zelda.nes"); got != "" {
		t.Errorf("no output: got %q", got)
	}
}
