package hw

import (
	"fmt"
	"io"
)

type tracer struct {
	w   io.Writer
	ppu ppuPosition
}

// write the execution trace for the instruction about to be executed.
func (t *tracer) write(c *CPU) {
	scanline, dot := 0, 0
	if t.ppu != nil {
		scanline, dot = t.ppu.Position()
	}
	if scanline == 261 {
		scanline = -1
	}

	dis := c.Disasm(c.PC)
	fmt.Fprintf(t.w, "%-47s A:%02X X:%02X Y:%02X P:%02X SP:%02X PPU:%3d,%3d CYC:%d\n",
		dis.String(), c.A, c.X, c.Y, uint8(c.P), c.SP, scanline, dot, c.Cycles)
}
