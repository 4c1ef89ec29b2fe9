package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"nescore/hw/mappers"
	"nescore/ines"
)

func main() {
	cli := parseArgs(os.Args[1:])

	switch cli.mode {
	case romInfosMode:
		for _, path := range cli.RomInfos.RomPaths {
			checkf(printRomInfos(path), "failed to read rom %s", path)
		}
	case versionMode:
		fmt.Println("nescore", version())
	case runMode:
		checkf(cli.Run.run(), "run failed")
	}
}

func printRomInfos(path string) error {
	rom, err := ines.Open(path)
	if err != nil {
		return err
	}

	mapper := "unsupported"
	if desc, ok := mappers.All[rom.Mapper()]; ok {
		mapper = desc.Name
	}
	fmt.Printf("%s:\n", path)
	fmt.Printf("  %s\n", rom.String())
	fmt.Printf("  mapper: %s\n", mapper)
	fmt.Printf("  prg: %d bytes, chr: %d bytes\n", len(rom.PRGROM), len(rom.CHRROM))
	if rom.IsNES20() {
		fmt.Printf("  nes 2.0 header\n")
	}
	return nil
}

func version() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok || bi.Main.Version == "" {
		return "(devel)"
	}
	return bi.Main.Version
}
