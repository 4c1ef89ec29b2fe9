package apu

import "nescore/hw/hwdefs"

//go:generate go tool stringer -type=Channel
type Channel uint8

const (
	Square1 Channel = iota
	Square2
	Triangle
	Noise
	DMC

	NumChannels = hwdefs.NumAudioChannels
)

// Host is the part of the console the APU interacts with.
type Host interface {
	// CurrentCycle returns the CPU cycle count.
	CurrentCycle() int64

	SetIRQSource(src hwdefs.IRQSource)
	ClearIRQSource(src hwdefs.IRQSource)
	HasIRQSource(src hwdefs.IRQSource) bool

	// RequestDmcTransfer asks for the DMC sample buffer to be filled with
	// the byte at the DMC current address. The host steals CPU cycles for
	// that and calls SetReadBuffer.
	RequestDmcTransfer()
}

type mixer interface {
	AddDelta(ch Channel, time uint32, delta int16)
}

type apu interface {
	SetNeedToRun()
	Run()
}

// Region selects the timing tables used by the noise, DMC and frame counter
// units.
type Region uint8

const (
	NTSC Region = iota
	PAL
)
