package apu

import (
	"nescore/emu/log"
	"nescore/hw/hwdefs"
	"nescore/hw/hwio"
	"nescore/hw/snapshot"
)

//go:generate go tool stringer -type=FrameType
type FrameType uint8

const (
	NoFrame FrameType = iota
	QuarterFrame
	HalfFrame
)

// stepCycles holds, per region and per step mode (4-step, 5-step), the CPU
// cycles at which each sequencer step fires.
var stepCycles = [2][2][6]int32{
	NTSC: {
		{7457, 14913, 22371, 29828, 29829, 29830},
		{7457, 14913, 22371, 29829, 37281, 37282},
	},
	PAL: {
		{8313, 16627, 24939, 33252, 33253, 33254},
		{8313, 16627, 24939, 33253, 41565, 41566},
	},
}

var frameType = [2][6]FrameType{
	{QuarterFrame, HalfFrame, QuarterFrame, NoFrame, HalfFrame, NoFrame},
	{QuarterFrame, HalfFrame, QuarterFrame, NoFrame, HalfFrame, NoFrame},
}

type frameTicker interface {
	apu
	FrameCounterTick(FrameType)
}

type frameCounter struct {
	FRAMECOUNTER hwio.Reg8

	apu  frameTicker
	host Host

	region            Region
	prevCycle         int32
	curStep           uint32
	stepMode          uint32 // 0: 4-step mode, 1: 5-step mode
	inhibitIRQ        bool
	blockTick         uint8
	newval            int16
	writeDelayCounter int8
}

func (fc *frameCounter) init(apu frameTicker, host Host) {
	fc.apu = apu
	fc.host = host
	fc.FRAMECOUNTER = hwio.Reg8{
		Name:    "FRAMECOUNTER",
		Flags:   hwio.WriteOnlyFlag,
		WriteCb: fc.WriteFRAMECOUNTER,
	}
}

func (fc *frameCounter) reset(soft bool) {
	fc.prevCycle = 0

	// After reset the mode in $4017 is unchanged, so soft resets keep
	// whatever value stepMode has.
	if !soft {
		fc.stepMode = 0
	}

	fc.curStep = 0

	// After reset or power-up, the APU acts as if $4017 were written with
	// $00 from 9 to 12 clocks before the first instruction begins.
	fc.newval = 0
	if fc.stepMode != 0 {
		fc.newval = 0x80
	}
	fc.writeDelayCounter = 3
	fc.inhibitIRQ = false

	fc.blockTick = 0
}

// $4017
func (fc *frameCounter) WriteFRAMECOUNTER(_, val uint8) {
	log.ModSound.DebugZ("write framecounter").Hex8("val", val).End()
	fc.apu.Run()
	fc.newval = int16(val)

	if fc.host.CurrentCycle()&0x01 != 0 {
		// If the write occurs between APU cycles, the effects occur 4 CPU
		// cycles after the write cycle.
		fc.writeDelayCounter = 4
	} else {
		// If the write occurs during an APU cycle, the effects occur 3 CPU
		// cycles after the $4017 write cycle
		fc.writeDelayCounter = 3
	}

	fc.inhibitIRQ = (val & 0x40) == 0x40
	if fc.inhibitIRQ {
		fc.host.ClearIRQSource(hwdefs.FrameCounter)
	}
}

// run advances the sequencer by at most cyclesToRun cycles, stopping at the
// next step boundary. It returns the number of cycles actually run.
func (fc *frameCounter) run(cyclesToRun int32) uint32 {
	var cyclesRan int32
	steps := &stepCycles[fc.region][fc.stepMode]

	if fc.prevCycle+cyclesToRun >= steps[fc.curStep] {
		if !fc.inhibitIRQ && fc.stepMode == 0 && fc.curStep >= 3 {
			// Set irq on the last 3 cycles for 4-step mode
			fc.host.SetIRQSource(hwdefs.FrameCounter)
		}

		ftyp := frameType[fc.stepMode][fc.curStep]
		if ftyp != NoFrame && fc.blockTick == 0 {
			fc.apu.FrameCounterTick(ftyp)

			// Do not allow writes to 4017 to clock the frame counter for the
			// next cycle (i.e this odd cycle + the following even cycle)
			fc.blockTick = 2
		}

		if steps[fc.curStep] < fc.prevCycle {
			// Only happens after a region switch.
			cyclesRan = 0
		} else {
			cyclesRan = steps[fc.curStep] - fc.prevCycle
		}

		fc.curStep++
		if fc.curStep == 6 {
			fc.curStep = 0
			fc.prevCycle = 0
		} else {
			fc.prevCycle += cyclesRan
		}
	} else {
		cyclesRan = cyclesToRun
		fc.prevCycle += cyclesRan
	}

	if fc.newval >= 0 {
		fc.writeDelayCounter--
		if fc.writeDelayCounter == 0 {
			// Apply new value after the appropriate number of cycles has elapsed
			if (fc.newval & 0x80) == 0x80 {
				fc.stepMode = 1
			} else {
				fc.stepMode = 0
			}

			fc.writeDelayCounter = -1
			fc.curStep = 0
			fc.prevCycle = 0
			fc.newval = -1

			if fc.stepMode != 0 && fc.blockTick == 0 {
				// Writing to $4017 with bit 7 set immediately generates a
				// clock for both the quarter frame and the half frame units.
				fc.apu.FrameCounterTick(HalfFrame)
				fc.blockTick = 2
			}
		}
	}

	if fc.blockTick > 0 {
		fc.blockTick--
	}

	return uint32(cyclesRan)
}

// needToRun reports whether the frame counter has something to do within
// the next cyclesToRun cycles: a pending $4017 value, a blocked tick, or the
// current step boundary.
func (fc *frameCounter) needToRun(cyclesToRun uint32) bool {
	return fc.newval >= 0 ||
		fc.blockTick > 0 ||
		(fc.prevCycle+int32(cyclesToRun) >= stepCycles[fc.region][fc.stepMode][fc.curStep]-1)
}

func (fc *frameCounter) serialize(s *snapshot.Serializer) {
	prev := uint32(fc.prevCycle)
	s.U32(&prev)
	fc.prevCycle = int32(prev)
	s.U32(&fc.curStep)
	s.U32(&fc.stepMode)
	s.Bool(&fc.inhibitIRQ)
	s.U8(&fc.blockTick)
	newval := uint16(fc.newval)
	s.U16(&newval)
	fc.newval = int16(newval)
	delay := uint8(fc.writeDelayCounter)
	s.U8(&delay)
	fc.writeDelayCounter = int8(delay)
}
