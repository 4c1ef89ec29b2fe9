package apu

import "nescore/hw/snapshot"

type envelope struct {
	constantVolume bool
	volume         uint8

	start   bool
	divider int8
	counter uint8

	lenCounter lengthCounter
}

func (env *envelope) init(regValue uint8) {
	env.lenCounter.init((regValue & 0x20) == 0x20)
	env.constantVolume = (regValue & 0x10) == 0x10
	env.volume = regValue & 0x0F
}

func (env *envelope) restart() {
	env.start = true
}

func (env *envelope) output() uint8 {
	if env.lenCounter.status() {
		if env.constantVolume {
			return env.volume
		}
		return env.counter
	}
	return 0
}

func (env *envelope) reset(soft bool) {
	env.lenCounter.reset(soft)
	env.constantVolume = false
	env.volume = 0
	env.start = false
	env.divider = 0
	env.counter = 0
}

func (env *envelope) tick() {
	if env.start {
		env.start = false
		env.counter = 15
		env.divider = int8(env.volume)
		return
	}

	env.divider--
	if env.divider < 0 {
		env.divider = int8(env.volume)
		if env.counter > 0 {
			env.counter--
		} else if env.lenCounter.isHalted() {
			// loop flag
			env.counter = 15
		}
	}
}

func (env *envelope) serialize(s *snapshot.Serializer) {
	s.Bool(&env.constantVolume)
	s.U8(&env.volume)
	s.Bool(&env.start)
	div := uint8(env.divider)
	s.U8(&div)
	env.divider = int8(div)
	s.U8(&env.counter)
	env.lenCounter.serialize(s)
}
