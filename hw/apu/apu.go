package apu

import (
	"nescore/emu/log"
	"nescore/hw/hwdefs"
	"nescore/hw/hwio"
	"nescore/hw/snapshot"
)

// APU is the 2A03 audio processing unit. Channels are run lazily: the APU
// only catches up with the CPU when a register is accessed, when an interrupt
// may fire, or at the end of an audio frame.
type APU struct {
	host  Host
	mixer *Mixer

	square1  pulse
	square2  pulse
	triangle triangle
	noise    noise
	dmc      dmc

	frameCounter frameCounter

	STATUS hwio.Reg8
	regs   [0x18]*hwio.Reg8

	region     Region
	cycles     int64 // CPU cycle the APU has been run to.
	prevCycle  uint32
	curCycle   uint32
	needToRun_ bool
}

func New(host Host, mixer *Mixer) *APU {
	a := &APU{
		host:  host,
		mixer: mixer,
	}
	a.square1.init(a, mixer, Square1)
	a.square2.init(a, mixer, Square2)
	a.triangle.init(a, mixer)
	a.noise.init(a, mixer)
	a.dmc.init(a, host, mixer)
	a.frameCounter.init(a, host)

	a.STATUS = hwio.Reg8{
		Name:    "STATUS",
		ReadCb:  a.ReadSTATUS,
		PeekCb:  a.PeekSTATUS,
		WriteCb: a.WriteSTATUS,
	}

	a.regs = [0x18]*hwio.Reg8{
		0x00: &a.square1.Duty, 0x01: &a.square1.Sweep, 0x02: &a.square1.Timer, 0x03: &a.square1.Length,
		0x04: &a.square2.Duty, 0x05: &a.square2.Sweep, 0x06: &a.square2.Timer, 0x07: &a.square2.Length,
		0x08: &a.triangle.Linear, 0x09: &a.triangle.Unused, 0x0A: &a.triangle.Timer, 0x0B: &a.triangle.Length,
		0x0C: &a.noise.Volume, 0x0D: &a.noise.Unused, 0x0E: &a.noise.Period, 0x0F: &a.noise.Length,
		0x10: &a.dmc.Control, 0x11: &a.dmc.Load, 0x12: &a.dmc.Addr, 0x13: &a.dmc.Len,
		0x15: &a.STATUS,
		0x17: &a.frameCounter.FRAMECOUNTER,
	}
	return a
}

// SetRegion selects NTSC or PAL timings.
func (a *APU) SetRegion(r Region) {
	a.region = r
	a.noise.region = r
	a.dmc.region = r
	a.frameCounter.region = r
}

func (a *APU) Mixer() *Mixer { return a.mixer }

func (a *APU) reg(addr uint16) *hwio.Reg8 {
	if addr < 0x4000 || addr > 0x4017 {
		panic(hwio.AddressContract("apu", addr))
	}
	reg := a.regs[addr-0x4000]
	if reg == nil {
		panic(hwio.AddressContract("apu", addr))
	}
	return reg
}

// WriteReg writes the APU register at addr ($4000-$4013, $4015, $4017).
func (a *APU) WriteReg(addr uint16, val uint8) {
	a.reg(addr).Write8(addr, val)
}

// ReadReg reads the APU register at addr. Only $4015 is readable, other
// registers return openBus.
func (a *APU) ReadReg(addr uint16, openBus uint8) uint8 {
	reg := a.reg(addr)
	if addr == 0x4015 {
		return reg.Read8(addr, openBus) | openBus&0x20
	}
	return reg.Read8(addr, openBus)
}

// PeekReg is ReadReg without side effects.
func (a *APU) PeekReg(addr uint16, openBus uint8) uint8 {
	reg := a.reg(addr)
	if reg.Flags&hwio.WriteOnlyFlag != 0 {
		return openBus
	}
	return reg.Peek8(addr) | openBus&0x20
}

func (a *APU) status() uint8 {
	var status uint8

	if a.square1.status() {
		status |= 0x01
	}
	if a.square2.status() {
		status |= 0x02
	}
	if a.triangle.status() {
		status |= 0x04
	}
	if a.noise.status() {
		status |= 0x08
	}
	if a.dmc.status() {
		status |= 0x10
	}
	if a.host.HasIRQSource(hwdefs.FrameCounter) {
		status |= 0x40
	}
	if a.host.HasIRQSource(hwdefs.DMC) {
		status |= 0x80
	}

	return status
}

// STATUS: $4015
func (a *APU) PeekSTATUS(_ uint8) uint8 {
	return a.status()
}

func (a *APU) ReadSTATUS(_ uint8) uint8 {
	a.Run()
	status := a.status()

	// Reading $4015 clears the Frame Counter interrupt flag.
	a.host.ClearIRQSource(hwdefs.FrameCounter)

	log.ModSound.DebugZ("read status").Hex8("status", status).End()
	return status
}

func (a *APU) WriteSTATUS(_, val uint8) {
	log.ModSound.DebugZ("write status").Hex8("val", val).End()

	a.Run()

	// Writing to $4015 clears the DMC interrupt flag. This needs to be done
	// before setting the enabled flag for the DMC (because doing so can trigger
	// an IRQ).
	a.host.ClearIRQSource(hwdefs.DMC)

	a.square1.setEnabled((val & 0x01) == 0x01)
	a.square2.setEnabled((val & 0x02) == 0x02)
	a.triangle.setEnabled((val & 0x04) == 0x04)
	a.noise.setEnabled((val & 0x08) == 0x08)
	a.dmc.setEnabled((val & 0x10) == 0x10)
}

// DMCAddr returns the address of the next DMC sample byte.
func (a *APU) DMCAddr() uint16 { return a.dmc.currentAddr() }

// SetDMCBuffer hands the byte fetched at DMCAddr to the DMC.
func (a *APU) SetDMCBuffer(val uint8) { a.dmc.setReadBuffer(val) }

func (a *APU) FrameCounterTick(ftyp FrameType) {
	// Quarter & half frame clock envelope & linear counter
	a.square1.tickEnvelope()
	a.square2.tickEnvelope()
	a.triangle.tickLinearCounter()
	a.noise.tickEnvelope()

	if ftyp == HalfFrame {
		// Half frames clock length counter & sweep
		a.square1.tickLengthCounter()
		a.square2.tickLengthCounter()
		a.triangle.tickLengthCounter()
		a.noise.tickLengthCounter()

		a.square1.tickSweep()
		a.square2.tickSweep()
	}
}

func (a *APU) Reset(soft bool) {
	a.curCycle = 0
	a.prevCycle = 0
	if !soft {
		a.cycles = 0
	}

	a.square1.reset(soft)
	a.square2.reset(soft)
	a.triangle.reset(soft)
	a.noise.reset(soft)
	a.dmc.reset(soft)
	a.frameCounter.reset(soft)
	a.mixer.Reset()
}

// Step runs the APU until it reaches the CPU cycle target.
func (a *APU) Step(target int64) {
	for a.cycles < target {
		a.Tick()
	}
}

// Cycles returns the CPU cycle the APU has been run to.
func (a *APU) Cycles() int64 { return a.cycles }

// SyncCycles aligns the APU cycle counter with the CPU, without running it.
func (a *APU) SyncCycles(cycles int64) { a.cycles = cycles }

// Tick runs the APU for one CPU cycle.
func (a *APU) Tick() {
	a.cycles++
	a.curCycle++
	if a.curCycle == cycleLength-1 {
		a.EndFrame()
	} else if a.needToRun(a.curCycle) {
		a.Run()
	}
}

// EndFrame runs all channels up to the current cycle and sends the
// accumulated audio frame to the mixer.
func (a *APU) EndFrame() {
	a.dmc.processClock()
	a.Run()
	a.square1.endFrame()
	a.square2.endFrame()
	a.triangle.endFrame()
	a.noise.endFrame()
	a.dmc.endFrame()

	a.mixer.endFrame(a.curCycle)

	a.curCycle = 0
	a.prevCycle = 0
}

// Run updates the frame counter and all channels up to the current cycle.
// It's called before register accesses, when an interrupt may fire and at the
// end of an audio frame.
func (a *APU) Run() {
	cyclesToRun := int32(a.curCycle - a.prevCycle)

	for cyclesToRun > 0 {
		ran := a.frameCounter.run(cyclesToRun)
		a.prevCycle += ran
		cyclesToRun -= int32(ran)

		// Reload counters set by writes to 4003/4008/400B/400F after running
		// the frame counter to allow the length counter to be clocked first.
		a.square1.reloadLengthCounter()
		a.square2.reloadLengthCounter()
		a.noise.reloadLengthCounter()
		a.triangle.reloadLengthCounter()

		a.square1.run(a.prevCycle)
		a.square2.run(a.prevCycle)
		a.noise.run(a.prevCycle)
		a.triangle.run(a.prevCycle)
		a.dmc.run(a.prevCycle)
	}
}

func (a *APU) SetNeedToRun() { a.needToRun_ = true }

func (a *APU) needToRun(curCycle uint32) bool {
	if a.dmc.needsToRun() || a.needToRun_ {
		// Run whenever the length counters are altered, and every cycle while
		// the DMC is active so that CPU stalls happen at the right time.
		a.needToRun_ = false
		return true
	}

	cyclesToRun := curCycle - a.prevCycle
	return a.frameCounter.needToRun(cyclesToRun) || a.dmc.irqPending(cyclesToRun)
}

// ChannelState is a debug view of a sound channel.
type ChannelState struct {
	Enabled bool
	Output  uint8
	Period  uint16
	Length  uint16
}

// State is a debug view of the APU.
type State struct {
	Status    uint8
	FrameStep uint32
	FiveStep  bool
	Channels  [NumChannels]ChannelState
}

func (a *APU) State() State {
	return State{
		Status:    a.status(),
		FrameStep: a.frameCounter.curStep,
		FiveStep:  a.frameCounter.stepMode == 1,
		Channels: [NumChannels]ChannelState{
			Square1: {
				Enabled: a.square1.status(),
				Output:  a.square1.output(),
				Period:  a.square1.period,
				Length:  uint16(a.square1.envelope.lenCounter.counter),
			},
			Square2: {
				Enabled: a.square2.status(),
				Output:  a.square2.output(),
				Period:  a.square2.period,
				Length:  uint16(a.square2.envelope.lenCounter.counter),
			},
			Triangle: {
				Enabled: a.triangle.status(),
				Output:  a.triangle.output(),
				Period:  a.triangle.timer.period,
				Length:  uint16(a.triangle.length.counter),
			},
			Noise: {
				Enabled: a.noise.status(),
				Output:  a.noise.output(),
				Period:  a.noise.timer.period,
				Length:  uint16(a.noise.envelope.lenCounter.counter),
			},
			DMC: {
				Enabled: a.dmc.status(),
				Output:  a.dmc.output(),
				Period:  a.dmc.timer.period,
				Length:  a.dmc.remaining,
			},
		},
	}
}

func (a *APU) Serialize(s *snapshot.Serializer) {
	s.I64(&a.cycles)
	s.U32(&a.prevCycle)
	s.U32(&a.curCycle)
	s.Bool(&a.needToRun_)
	a.square1.serialize(s)
	a.square2.serialize(s)
	a.triangle.serialize(s)
	a.noise.serialize(s)
	a.dmc.serialize(s)
	a.frameCounter.serialize(s)
	a.mixer.serialize(s)
}
