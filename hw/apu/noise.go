package apu

import (
	"nescore/emu/log"
	"nescore/hw/hwio"
	"nescore/hw/snapshot"
)

// noise ($400C-$400F) outputs the envelope volume gated by bit 0 of a 15-bit
// linear feedback shift register. The register is clocked by a timer whose
// period comes from a 16-entry table.
type noise struct {
	apu      apu
	envelope envelope
	timer    timer
	region   Region

	lfsr uint16
	// short mode taps bit 6 instead of bit 1, giving a 93-step sequence
	// instead of 32767.
	short bool

	Volume hwio.Reg8
	Unused hwio.Reg8
	Period hwio.Reg8
	Length hwio.Reg8
}

var noisePeriods = [2][16]uint16{
	NTSC: {4, 8, 16, 32, 64, 96, 128, 160, 202, 254, 380, 508, 762, 1016, 2034, 4068},
	PAL:  {4, 8, 14, 30, 60, 88, 118, 148, 188, 236, 354, 472, 708, 944, 1890, 3778},
}

func (n *noise) init(apu apu, mixer mixer) {
	n.apu = apu
	n.envelope.lenCounter = lengthCounter{channel: Noise, apu: apu}
	n.timer = timer{channel: Noise, mixer: mixer}

	n.Volume = hwio.Reg8{Name: "VOLUME", Flags: hwio.WriteOnlyFlag, WriteCb: n.writeControl}
	n.Unused = hwio.Reg8{Name: "UNUSED", Flags: hwio.WriteOnlyFlag, WriteCb: func(_, _ uint8) { n.apu.Run() }}
	n.Period = hwio.Reg8{Name: "PERIOD", Flags: hwio.WriteOnlyFlag, WriteCb: n.writePeriod}
	n.Length = hwio.Reg8{Name: "LENGTH", Flags: hwio.WriteOnlyFlag, WriteCb: n.writeLength}
}

// --LC VVVV: length counter halt, constant volume, volume/envelope.
func (n *noise) writeControl(_, val uint8) {
	n.apu.Run()
	n.envelope.init(val)
	log.ModSound.DebugZ("noise control").Hex8("val", val).End()
}

// M--- PPPP: short mode, period index.
func (n *noise) writePeriod(_, val uint8) {
	n.apu.Run()
	n.short = val&0x80 != 0
	n.timer.period = noisePeriods[n.region][val&0x0F] - 1
	log.ModSound.DebugZ("noise period").Hex8("val", val).Uint16("period", n.timer.period).End()
}

// LLLL L---: length counter load, restarts the envelope.
func (n *noise) writeLength(_, val uint8) {
	n.apu.Run()
	n.envelope.lenCounter.load(val >> 3)
	n.envelope.restart()
	log.ModSound.DebugZ("noise length").Hex8("val", val).End()
}

func (n *noise) shift() {
	tap := 1
	if n.short {
		tap = 6
	}
	bit := (n.lfsr ^ n.lfsr>>tap) & 1
	n.lfsr = n.lfsr>>1 | bit<<14
}

func (n *noise) run(targetCycle uint32) {
	for n.timer.run(targetCycle) {
		n.shift()
		var out uint8
		if n.lfsr&1 == 0 {
			out = n.envelope.output()
		}
		n.timer.addOutput(int8(out))
	}
}

func (n *noise) reset(soft bool) {
	n.envelope.reset(soft)
	n.timer.reset(soft)

	n.timer.period = noisePeriods[n.region][0] - 1
	n.lfsr = 1
	n.short = false
}

func (n *noise) tickEnvelope()        { n.envelope.tick() }
func (n *noise) tickLengthCounter()   { n.envelope.lenCounter.tick() }
func (n *noise) reloadLengthCounter() { n.envelope.lenCounter.reload() }
func (n *noise) endFrame()            { n.timer.endFrame() }
func (n *noise) setEnabled(v bool)    { n.envelope.lenCounter.setEnabled(v) }
func (n *noise) status() bool         { return n.envelope.lenCounter.status() }
func (n *noise) output() uint8        { return uint8(n.timer.lastOutput) }

func (n *noise) serialize(s *snapshot.Serializer) {
	n.timer.serialize(s)
	n.envelope.serialize(s)
	s.U16(&n.lfsr)
	s.Bool(&n.short)
}
