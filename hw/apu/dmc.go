package apu

import (
	"nescore/emu/log"
	"nescore/hw/hwdefs"
	"nescore/hw/hwio"
	"nescore/hw/snapshot"
)

// dmc is the delta modulation channel ($4010-$4013). A sample reader fetches
// bytes from $8000-$FFFF through DMA into a one byte buffer. The output unit
// shifts buffered bytes out one bit per timer clock, each bit moving a 7-bit
// level up or down by 2. The level can also be written directly through
// $4011.
type dmc struct {
	apu    apu
	host   Host
	timer  timer
	region Region

	irq  bool
	loop bool

	// sample as programmed through $4012/$4013.
	start  uint16
	length uint16

	// reader
	addr        uint16
	remaining   uint16
	buffer      uint8
	bufferEmpty bool

	// output unit
	shifter uint8
	bits    uint8
	silent  bool
	level   uint8

	// pending $4015 effects, in CPU cycles.
	startDelay uint8
	stopDelay  uint8
	active     bool

	Control hwio.Reg8
	Load    hwio.Reg8
	Addr    hwio.Reg8
	Len     hwio.Reg8
}

var dmcPeriods = [2][16]uint16{
	NTSC: {428, 380, 340, 320, 286, 254, 226, 214, 190, 160, 142, 128, 106, 84, 72, 54},
	PAL:  {398, 354, 316, 298, 276, 236, 210, 198, 176, 148, 132, 118, 98, 78, 66, 50},
}

func (d *dmc) init(apu apu, host Host, mixer mixer) {
	d.apu = apu
	d.host = host
	d.silent = true
	d.timer = timer{channel: DMC, mixer: mixer}

	d.Control = hwio.Reg8{Name: "CONTROL", Flags: hwio.WriteOnlyFlag, WriteCb: d.writeControl}
	d.Load = hwio.Reg8{Name: "LOAD", Flags: hwio.WriteOnlyFlag, WriteCb: d.writeLoad}
	d.Addr = hwio.Reg8{Name: "ADDR", Flags: hwio.WriteOnlyFlag, WriteCb: d.writeAddr}
	d.Len = hwio.Reg8{Name: "LEN", Flags: hwio.WriteOnlyFlag, WriteCb: d.writeLen}
}

func (d *dmc) reset(soft bool) {
	d.timer.reset(soft)
	if !soft {
		d.start = 0xC000
		d.length = 1
	}

	d.irq, d.loop = false, false
	d.addr, d.remaining = 0, 0
	d.buffer, d.bufferEmpty = 0, true
	d.shifter, d.bits, d.silent, d.level = 0, 8, true, 0
	d.startDelay, d.stopDelay, d.active = 0, 0, false

	d.timer.period = dmcPeriods[d.region][0] - 1
	// No output clock on the very first cycle, as observed by the sprite
	// DMA/DMC interaction tests.
	d.timer.count = d.timer.period
}

func (d *dmc) restart() {
	d.addr = d.start
	d.remaining = d.length
	d.active = d.active || d.remaining > 0
}

// IL-- RRRR: IRQ enable, loop, rate index. Clearing I acknowledges a pending
// DMC interrupt.
func (d *dmc) writeControl(_, val uint8) {
	d.apu.Run()
	d.irq = val&0x80 != 0
	d.loop = val&0x40 != 0
	d.timer.period = dmcPeriods[d.region][val&0x0F] - 1
	if !d.irq {
		d.host.ClearIRQSource(hwdefs.DMC)
	}
	log.ModSound.DebugZ("dmc control").
		Hex8("val", val).
		Bool("irq", d.irq).
		Bool("loop", d.loop).
		Uint16("period", d.timer.period).
		End()
}

// -DDD DDDD: direct load of the output level.
func (d *dmc) writeLoad(_, val uint8) {
	d.apu.Run()

	// Large jumps are halved, they otherwise produce audible clicks.
	prev := int(d.level)
	next := int(val & 0x7F)
	if diff := next - prev; diff > 50 || diff < -50 {
		next -= diff / 2
	}
	d.level = uint8(next)

	// The new level is output immediately rather than on the next timer
	// reload, programs streaming PCM through $4011 depend on it.
	d.timer.addOutput(int8(d.level))
	log.ModSound.DebugZ("dmc load").Hex8("val", val).Uint8("level", d.level).End()
}

// Sample address is $C000 + val*64.
func (d *dmc) writeAddr(_, val uint8) {
	d.apu.Run()
	d.start = 0xC000 | uint16(val)<<6
	log.ModSound.DebugZ("dmc addr").Hex8("val", val).Hex16("start", d.start).End()
}

// Sample length is val*16 + 1 bytes.
func (d *dmc) writeLen(_, val uint8) {
	d.apu.Run()
	d.length = uint16(val)<<4 | 1
	log.ModSound.DebugZ("dmc len").Hex8("val", val).Uint16("length", d.length).End()
}

func (d *dmc) requestFetch() {
	if d.bufferEmpty && d.remaining > 0 {
		d.host.RequestDmcTransfer()
	}
}

func (d *dmc) currentAddr() uint16 { return d.addr }

// setReadBuffer completes a DMA fetch with the byte read at currentAddr.
func (d *dmc) setReadBuffer(val uint8) {
	log.ModSound.DebugZ("dmc fetch").Hex16("addr", d.addr).Hex8("val", val).End()

	if d.remaining > 0 {
		d.buffer = val
		d.bufferEmpty = false

		d.addr++
		if d.addr == 0 {
			d.addr = 0x8000
		}

		d.remaining--
		if d.remaining == 0 {
			switch {
			case d.loop:
				d.restart()
			case d.irq:
				d.host.SetIRQSource(hwdefs.DMC)
			}
		}
	}

	// A one byte sample whose fetch ends right before the bit counter
	// reloads restarts, then gets aborted a cycle later.
	if d.length == 1 && !d.loop && d.bits == 1 && d.timer.count < 2 {
		d.shifter = d.buffer
		d.bufferEmpty = false
		d.restart()
		d.stopDelay = 3
	}
}

func (d *dmc) clockOutput() {
	if !d.silent {
		if d.shifter&1 != 0 {
			if d.level <= 125 {
				d.level += 2
			}
		} else if d.level >= 2 {
			d.level -= 2
		}
		d.shifter >>= 1
	}

	d.bits--
	if d.bits > 0 {
		return
	}
	d.bits = 8
	d.silent = d.bufferEmpty
	if !d.bufferEmpty {
		d.shifter = d.buffer
		d.bufferEmpty = true
		d.active = true
		d.requestFetch()
	}
}

func (d *dmc) run(targetCycle uint32) {
	for d.timer.run(targetCycle) {
		d.clockOutput()
		d.timer.addOutput(int8(d.level))
	}
}

// irqPending reports whether the DMC interrupt fires within the next
// cyclesToRun cycles, that is when the last sample byte gets consumed.
func (d *dmc) irqPending(cyclesToRun uint32) bool {
	if !d.irq || d.remaining == 0 {
		return false
	}
	bitsLeft := uint32(d.bits) + uint32(d.remaining-1)*8
	return cyclesToRun >= bitsLeft*uint32(d.timer.period)
}

func (d *dmc) status() bool { return d.remaining > 0 }

// setEnabled handles the DMC bit of $4015. Both starting and stopping take
// effect 2 or 3 cycles later depending on the CPU cycle parity.
func (d *dmc) setEnabled(enabled bool) {
	delay := uint8(2)
	if d.host.CurrentCycle()&1 != 0 {
		delay = 3
	}

	switch {
	case !enabled:
		if d.stopDelay == 0 {
			d.stopDelay = delay
		}
		d.active = true
	case d.remaining == 0:
		d.restart()
		d.startDelay = delay
		d.active = true
	}
}

// processClock applies the pending $4015 effects. It's called once per CPU
// cycle while the DMC is active.
func (d *dmc) processClock() {
	if d.stopDelay > 0 {
		d.stopDelay--
		if d.stopDelay == 0 {
			d.remaining = 0
		}
	}
	if d.startDelay > 0 {
		d.startDelay--
		if d.startDelay == 0 {
			d.requestFetch()
		}
	}
	d.active = d.stopDelay != 0 || d.startDelay != 0 || d.remaining != 0
}

func (d *dmc) needsToRun() bool {
	if d.active {
		d.processClock()
	}
	return d.active
}

func (d *dmc) endFrame()     { d.timer.endFrame() }
func (d *dmc) output() uint8 { return uint8(d.timer.lastOutput) }

func (d *dmc) serialize(s *snapshot.Serializer) {
	d.timer.serialize(s)
	s.Bool(&d.irq)
	s.Bool(&d.loop)
	s.U16(&d.start)
	s.U16(&d.length)
	s.U16(&d.addr)
	s.U16(&d.remaining)
	s.U8(&d.buffer)
	s.Bool(&d.bufferEmpty)
	s.U8(&d.shifter)
	s.U8(&d.bits)
	s.Bool(&d.silent)
	s.U8(&d.level)
	s.U8(&d.startDelay)
	s.U8(&d.stopDelay)
	s.Bool(&d.active)
}
