package apu

import (
	"nescore/emu/log"
	"nescore/hw/hwio"
	"nescore/hw/snapshot"
)

// triangle ($4008-$400B) steps a 32-entry ramp at the CPU rate. The ramp
// only advances while both the linear counter and the length counter are
// non-zero, so a silenced triangle holds its last level instead of dropping
// to 0.
type triangle struct {
	apu    apu
	length lengthCounter
	timer  timer
	linear linearCounter
	step   uint8

	Linear hwio.Reg8
	Unused hwio.Reg8
	Timer  hwio.Reg8
	Length hwio.Reg8
}

// linearCounter is the triangle's second gate, clocked on quarter frames.
type linearCounter struct {
	counter uint8
	load    uint8
	reload  bool
	control bool // also halts the length counter
}

func (lc *linearCounter) clock() {
	switch {
	case lc.reload:
		lc.counter = lc.load
	case lc.counter > 0:
		lc.counter--
	}
	if !lc.control {
		lc.reload = false
	}
}

func (lc *linearCounter) serialize(s *snapshot.Serializer) {
	s.U8(&lc.counter)
	s.U8(&lc.load)
	s.Bool(&lc.reload)
	s.Bool(&lc.control)
}

func (t *triangle) init(apu apu, mixer mixer) {
	t.apu = apu
	t.length = lengthCounter{channel: Triangle, apu: apu}
	t.timer = timer{channel: Triangle, mixer: mixer}

	t.Linear = hwio.Reg8{Name: "LINEAR", Flags: hwio.WriteOnlyFlag, WriteCb: t.writeLinear}
	t.Unused = hwio.Reg8{Name: "UNUSED", Flags: hwio.WriteOnlyFlag, WriteCb: func(_, _ uint8) { t.apu.Run() }}
	t.Timer = hwio.Reg8{Name: "TIMER", Flags: hwio.WriteOnlyFlag, WriteCb: t.writePeriodLo}
	t.Length = hwio.Reg8{Name: "LENGTH", Flags: hwio.WriteOnlyFlag, WriteCb: t.writePeriodHi}
}

// rampLevel returns the 4-bit level at the given step: 15 down to 0, then
// back up to 15.
func rampLevel(step uint8) int8 {
	if step < 16 {
		return int8(15 - step)
	}
	return int8(step - 16)
}

func (t *triangle) run(targetCycle uint32) {
	for t.timer.run(targetCycle) {
		if !t.length.status() || t.linear.counter == 0 {
			continue
		}
		t.step = (t.step + 1) & 31
		// Periods 0 and 1 produce ultrasonic output that only pops,
		// the level is held instead.
		if t.timer.period >= 2 {
			t.timer.addOutput(rampLevel(t.step))
		}
	}
}

func (t *triangle) reset(soft bool) {
	t.timer.reset(soft)
	t.length.reset(soft)
	t.linear = linearCounter{}
	t.step = 0
}

// CRRR RRRR: control/length halt, linear counter reload value.
func (t *triangle) writeLinear(_, val uint8) {
	t.apu.Run()
	t.linear.control = val&0x80 != 0
	t.linear.load = val & 0x7F
	t.length.init(t.linear.control)
	log.ModSound.DebugZ("triangle linear").Hex8("val", val).Uint8("load", t.linear.load).End()
}

func (t *triangle) writePeriodLo(_, val uint8) {
	t.apu.Run()
	t.timer.period = t.timer.period&0xFF00 | uint16(val)
	log.ModSound.DebugZ("triangle period lo").Hex8("val", val).Uint16("period", t.timer.period).End()
}

// LLLL LHHH: length counter load, period high bits. Also sets the linear
// counter reload flag.
func (t *triangle) writePeriodHi(_, val uint8) {
	t.apu.Run()
	t.length.load(val >> 3)
	t.timer.period = t.timer.period&0xFF | uint16(val&0x07)<<8
	t.linear.reload = true
	log.ModSound.DebugZ("triangle period hi").Hex8("val", val).Uint16("period", t.timer.period).End()
}

func (t *triangle) tickLinearCounter()   { t.linear.clock() }
func (t *triangle) tickLengthCounter()   { t.length.tick() }
func (t *triangle) reloadLengthCounter() { t.length.reload() }
func (t *triangle) endFrame()            { t.timer.endFrame() }
func (t *triangle) setEnabled(v bool)    { t.length.setEnabled(v) }
func (t *triangle) status() bool         { return t.length.status() }
func (t *triangle) output() uint8        { return uint8(t.timer.lastOutput) }

func (t *triangle) serialize(s *snapshot.Serializer) {
	t.length.serialize(s)
	t.timer.serialize(s)
	t.linear.serialize(s)
	s.U8(&t.step)
}
