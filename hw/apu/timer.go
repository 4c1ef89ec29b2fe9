package apu

import "nescore/hw/snapshot"

// timer is a divider clocked by the CPU. It reports output changes to the
// mixer as deltas, stamped with the cycle at which they occur.
type timer struct {
	prevCycle  uint32
	count      uint16
	period     uint16
	lastOutput int8

	channel Channel
	mixer   mixer
}

func (t *timer) reset(_ bool) {
	t.count = 0
	t.period = 0
	t.prevCycle = 0
	t.lastOutput = 0
}

func (t *timer) addOutput(output int8) {
	if output != t.lastOutput {
		t.mixer.AddDelta(t.channel, t.prevCycle, int16(output)-int16(t.lastOutput))
		t.lastOutput = output
	}
}

// run runs the timer up to targetCycle, or until it reaches 0, in which case
// it's reloaded and run returns true.
func (t *timer) run(targetCycle uint32) bool {
	cyclesToRun := targetCycle - t.prevCycle

	if cyclesToRun > uint32(t.count) {
		t.prevCycle += uint32(t.count) + 1
		t.count = t.period
		return true
	}

	t.count -= uint16(cyclesToRun)
	t.prevCycle = targetCycle
	return false
}

func (t *timer) endFrame() {
	t.prevCycle = 0
}

func (t *timer) serialize(s *snapshot.Serializer) {
	s.U32(&t.prevCycle)
	s.U16(&t.count)
	s.U16(&t.period)
	out := uint8(t.lastOutput)
	s.U8(&out)
	t.lastOutput = int8(out)
}
