package apu

import (
	"nescore/emu/log"
	"nescore/hw/hwio"
	"nescore/hw/snapshot"
)

// pulse is one of the two square wave generators ($4000-$4003 and
// $4004-$4007). Its timer runs at half the CPU rate and steps an 8-step duty
// sequence, gated by the sweep unit and the length counter, scaled by the
// envelope.
type pulse struct {
	apu      apu
	envelope envelope
	timer    timer
	sweep    sweep

	// raw 11-bit period as written by the program; the timer counts
	// 2*period+1 CPU cycles.
	period uint16

	duty uint8
	step uint8

	Duty   hwio.Reg8
	Sweep  hwio.Reg8
	Timer  hwio.Reg8
	Length hwio.Reg8
}

// sweep periodically adjusts the pulse period. Square 1 negates in ones'
// complement, square 2 in two's complement.
type sweep struct {
	onesComplement bool

	enabled bool
	negate  bool
	shift   uint8
	period  uint8
	divider uint8
	reload  bool
	target  uint32
}

func (sw *sweep) write(val uint8) {
	sw.enabled = val&0x80 != 0
	sw.period = (val>>4)&0x07 + 1
	sw.negate = val&0x08 != 0
	sw.shift = val & 0x07
	sw.reload = true
}

func (sw *sweep) computeTarget(period uint16) {
	delta := period >> sw.shift
	switch {
	case !sw.negate:
		sw.target = uint32(period + delta)
	case sw.onesComplement:
		sw.target = uint32(period-delta) - 1
	default:
		sw.target = uint32(period - delta)
	}
}

// overflows reports whether the target period mutes the channel.
func (sw *sweep) overflows() bool {
	return !sw.negate && sw.target > 0x7FF
}

// clock advances the divider, it reports whether the period must be updated
// to the target.
func (sw *sweep) clock(period uint16) bool {
	adjust := false
	sw.divider--
	if sw.divider == 0 {
		adjust = sw.enabled && sw.shift != 0 && period >= 8 && sw.target <= 0x7FF
		sw.divider = sw.period
	}
	if sw.reload {
		sw.divider = sw.period
		sw.reload = false
	}
	return adjust
}

func (sw *sweep) serialize(s *snapshot.Serializer) {
	s.U32(&sw.target)
	s.Bool(&sw.enabled)
	s.U8(&sw.period)
	s.Bool(&sw.negate)
	s.U8(&sw.shift)
	s.U8(&sw.divider)
	s.Bool(&sw.reload)
}

func (p *pulse) init(apu apu, mixer mixer, channel Channel) {
	p.apu = apu
	p.sweep.onesComplement = channel == Square1
	p.envelope.lenCounter = lengthCounter{channel: channel, apu: apu}
	p.timer = timer{channel: channel, mixer: mixer}

	p.Duty = hwio.Reg8{Name: "DUTY", Flags: hwio.WriteOnlyFlag, WriteCb: p.writeControl}
	p.Sweep = hwio.Reg8{Name: "SWEEP", Flags: hwio.WriteOnlyFlag, WriteCb: p.writeSweep}
	p.Timer = hwio.Reg8{Name: "TIMER", Flags: hwio.WriteOnlyFlag, WriteCb: p.writePeriodLo}
	p.Length = hwio.Reg8{Name: "LENGTH", Flags: hwio.WriteOnlyFlag, WriteCb: p.writePeriodHi}
}

// DDLC VVVV: duty, length counter halt, constant volume, volume/envelope.
func (p *pulse) writeControl(_, val uint8) {
	p.apu.Run()
	p.duty = val >> 6
	p.envelope.init(val)
	log.ModSound.DebugZ("pulse control").Hex8("val", val).Uint8("duty", p.duty).End()
}

// EPPP NSSS: sweep enable, divider period, negate, shift.
func (p *pulse) writeSweep(_, val uint8) {
	p.apu.Run()
	p.sweep.write(val)
	p.sweep.computeTarget(p.period)
	log.ModSound.DebugZ("pulse sweep").Hex8("val", val).Hex32("target", p.sweep.target).End()
}

func (p *pulse) writePeriodLo(_, val uint8) {
	p.apu.Run()
	p.setPeriod(p.period&0x700 | uint16(val))
	log.ModSound.DebugZ("pulse period lo").Hex8("val", val).Uint16("period", p.period).End()
}

// LLLL LHHH: length counter load, period high bits. Also restarts the duty
// sequence and the envelope.
func (p *pulse) writePeriodHi(_, val uint8) {
	p.apu.Run()
	p.envelope.lenCounter.load(val >> 3)
	p.setPeriod(p.period&0xFF | uint16(val&0x07)<<8)
	p.step = 0
	p.envelope.restart()
	log.ModSound.DebugZ("pulse period hi").Hex8("val", val).Uint16("period", p.period).End()
}

func (p *pulse) setPeriod(period uint16) {
	p.period = period
	p.timer.period = period*2 + 1
	p.sweep.computeTarget(period)
}

// silent reports whether the sweep unit mutes the channel, either because
// the current period is too low or the target period overflows.
func (p *pulse) silent() bool {
	return p.period < 8 || p.sweep.overflows()
}

var dutySequences = [4]uint8{
	0b0000_0001, // 12.5%
	0b0000_0011, // 25%
	0b0000_1111, // 50%
	0b1111_1100, // 25% negated
}

func (p *pulse) level() uint8 {
	return dutySequences[p.duty] >> (7 - p.step) & 1
}

func (p *pulse) run(targetCycle uint32) {
	for p.timer.run(targetCycle) {
		p.step = (p.step - 1) & 7
		var out uint8
		if !p.silent() {
			out = p.level() * p.envelope.output()
		}
		p.timer.addOutput(int8(out))
	}
}

func (p *pulse) reset(soft bool) {
	p.envelope.reset(soft)
	p.timer.reset(soft)

	p.duty, p.step = 0, 0
	p.period = 0
	p.sweep = sweep{onesComplement: p.sweep.onesComplement}
	p.sweep.computeTarget(0)
}

func (p *pulse) tickSweep() {
	if p.sweep.clock(p.period) {
		p.setPeriod(uint16(p.sweep.target))
	}
}

func (p *pulse) tickEnvelope()        { p.envelope.tick() }
func (p *pulse) tickLengthCounter()   { p.envelope.lenCounter.tick() }
func (p *pulse) reloadLengthCounter() { p.envelope.lenCounter.reload() }
func (p *pulse) endFrame()            { p.timer.endFrame() }
func (p *pulse) setEnabled(v bool)    { p.envelope.lenCounter.setEnabled(v) }
func (p *pulse) status() bool         { return p.envelope.lenCounter.status() }
func (p *pulse) output() uint8        { return uint8(p.timer.lastOutput) }

func (p *pulse) serialize(s *snapshot.Serializer) {
	p.timer.serialize(s)
	p.envelope.serialize(s)
	p.sweep.serialize(s)
	s.U16(&p.period)
	s.U8(&p.duty)
	s.U8(&p.step)
}
