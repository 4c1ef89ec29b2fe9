package emu

import (
	"fmt"
	"io"

	"github.com/go-faster/jx"

	"nescore/hw"
	"nescore/hw/apu"
)

// WriteStateJSON writes the debug snapshots of r as an indented JSON object.
func WriteStateJSON(w io.Writer, r *FrameResult) error {
	var e jx.Encoder
	e.SetIdent(2)
	encodeFrameResult(&e, r)
	if _, err := w.Write(e.Bytes()); err != nil {
		return fmt.Errorf("write state json: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func encodeFrameResult(e *jx.Encoder, r *FrameResult) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("frame", func(e *jx.Encoder) { e.Int64(int64(r.FrameIndex)) })
		e.Field("playback", func(e *jx.Encoder) { e.Str(r.Playback.String()) })
		e.Field("replay_frame", func(e *jx.Encoder) { e.Int(r.ReplayFrame) })
		e.Field("trace", func(e *jx.Encoder) { e.Bool(r.Trace) })
		e.Field("cart", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("mapper", func(e *jx.Encoder) { e.Int(int(r.MapperID)) })
				e.Field("mapper_name", func(e *jx.Encoder) { e.Str(r.MapperName) })
				e.Field("mirroring", func(e *jx.Encoder) { e.Str(r.Mirroring.String()) })
				e.Field("header", func(e *jx.Encoder) { e.Str(fmt.Sprintf("% X", r.Header[:])) })
			})
		})
		e.Field("cpu", func(e *jx.Encoder) { encodeCPU(e, &r.CPU) })
		e.Field("ppu", func(e *jx.Encoder) { encodePPU(e, &r.PPU) })
		e.Field("apu", func(e *jx.Encoder) { encodeAPU(e, &r.APU) })
		e.Field("audio_samples", func(e *jx.Encoder) { e.Int(len(r.Audio)) })
		e.Field("picked", func(e *jx.Encoder) { e.Int(r.PickedIndex) })
	})
}

func hex8(v uint8) string   { return fmt.Sprintf("$%02X", v) }
func hex16(v uint16) string { return fmt.Sprintf("$%04X", v) }

func encodeCPU(e *jx.Encoder, cpu *hw.CPUState) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("a", func(e *jx.Encoder) { e.Str(hex8(cpu.A)) })
		e.Field("x", func(e *jx.Encoder) { e.Str(hex8(cpu.X)) })
		e.Field("y", func(e *jx.Encoder) { e.Str(hex8(cpu.Y)) })
		e.Field("sp", func(e *jx.Encoder) { e.Str(hex8(cpu.SP)) })
		e.Field("pc", func(e *jx.Encoder) { e.Str(hex16(cpu.PC)) })
		e.Field("p", func(e *jx.Encoder) { e.Str(hw.P(cpu.P).String()) })
		e.Field("cycles", func(e *jx.Encoder) { e.Int64(cpu.Cycles) })
		e.Field("irq", func(e *jx.Encoder) { e.Str(cpu.IRQ.String()) })
		e.Field("halted", func(e *jx.Encoder) { e.Bool(cpu.Halted) })
	})
}

func encodePPU(e *jx.Encoder, ppu *hw.PPUState) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("scanline", func(e *jx.Encoder) { e.Int(ppu.Scanline) })
		e.Field("dot", func(e *jx.Encoder) { e.Int(ppu.Cycle) })
		e.Field("frame", func(e *jx.Encoder) { e.Int64(ppu.Frame) })
		e.Field("ctrl", func(e *jx.Encoder) { e.Str(hex8(ppu.Ctrl)) })
		e.Field("mask", func(e *jx.Encoder) { e.Str(hex8(ppu.Mask)) })
		e.Field("status", func(e *jx.Encoder) { e.Str(hex8(ppu.Status)) })
		e.Field("oamaddr", func(e *jx.Encoder) { e.Str(hex8(ppu.OAMAddr)) })
		e.Field("v", func(e *jx.Encoder) { e.Str(hex16(ppu.V)) })
		e.Field("t", func(e *jx.Encoder) { e.Str(hex16(ppu.T)) })
		e.Field("fine_x", func(e *jx.Encoder) { e.Int(int(ppu.FineX)) })
		e.Field("w", func(e *jx.Encoder) { e.Bool(ppu.W) })
		e.Field("sprites", func(e *jx.Encoder) { e.Int(ppu.Sprites) })
	})
}

var channelNames = [apu.NumChannels]string{"square1", "square2", "triangle", "noise", "dmc"}

func encodeAPU(e *jx.Encoder, st *apu.State) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("status", func(e *jx.Encoder) { e.Str(hex8(st.Status)) })
		e.Field("frame_step", func(e *jx.Encoder) { e.Int64(int64(st.FrameStep)) })
		e.Field("five_step", func(e *jx.Encoder) { e.Bool(st.FiveStep) })
		e.Field("channels", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				for i, ch := range st.Channels {
					e.Field(channelNames[i], func(e *jx.Encoder) {
						e.Obj(func(e *jx.Encoder) {
							e.Field("enabled", func(e *jx.Encoder) { e.Bool(ch.Enabled) })
							e.Field("output", func(e *jx.Encoder) { e.Int(int(ch.Output)) })
							e.Field("period", func(e *jx.Encoder) { e.Int(int(ch.Period)) })
							e.Field("length", func(e *jx.Encoder) { e.Int(int(ch.Length)) })
						})
					})
				}
			})
		})
	})
}
