package apu

import "nescore/hw/snapshot"

var lengthLUT = [32]uint8{
	10, 254, 20, 2, 40, 4, 80, 6, 160, 8, 60, 10, 14, 12, 26, 14,
	12, 16, 24, 18, 48, 20, 96, 22, 192, 24, 72, 26, 16, 28, 32, 30,
}

type lengthCounter struct {
	channel Channel
	newHalt bool

	enabled       bool
	halt          bool
	counter       uint8
	reloadValue   uint8
	previousValue uint8

	apu apu
}

func (lc *lengthCounter) init(halt bool) {
	lc.apu.SetNeedToRun()
	lc.newHalt = halt
}

func (lc *lengthCounter) load(val uint8) {
	if lc.enabled {
		lc.reloadValue = lengthLUT[val&0x1F]
		lc.previousValue = lc.counter
		lc.apu.SetNeedToRun()
	}
}

func (lc *lengthCounter) reset(soft bool) {
	if soft {
		lc.enabled = false
		if lc.channel != Triangle {
			// At reset, length counters should be enabled, triangle unaffected
			lc.halt = false
			lc.counter = 0
			lc.newHalt = false
			lc.reloadValue = 0
			lc.previousValue = 0
		}
	} else {
		lc.enabled = false
		lc.halt = false
		lc.counter = 0
		lc.newHalt = false
		lc.reloadValue = 0
		lc.previousValue = 0
	}
}

func (lc *lengthCounter) status() bool {
	return lc.counter > 0
}

func (lc *lengthCounter) isHalted() bool {
	return lc.halt
}

// reload applies a pending $4003/$4007/$400B/$400F write, unless the counter
// has been clocked in the same cycle.
func (lc *lengthCounter) reload() {
	if lc.reloadValue != 0 {
		if lc.counter == lc.previousValue {
			lc.counter = lc.reloadValue
		}
		lc.reloadValue = 0
	}

	lc.halt = lc.newHalt
}

func (lc *lengthCounter) tick() {
	if lc.counter > 0 && !lc.halt {
		lc.counter--
	}
}

func (lc *lengthCounter) setEnabled(enabled bool) {
	if !enabled {
		lc.counter = 0
	}
	lc.enabled = enabled
}

func (lc *lengthCounter) serialize(s *snapshot.Serializer) {
	s.Bool(&lc.enabled)
	s.Bool(&lc.halt)
	s.Bool(&lc.newHalt)
	s.U8(&lc.counter)
	s.U8(&lc.reloadValue)
	s.U8(&lc.previousValue)
}
