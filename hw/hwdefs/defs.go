// Package hwdefs holds definitions shared between the hardware packages.
package hwdefs

import "strings"

// IRQSource identifies a device asserting the CPU IRQ line. The line is level
// triggered and stays asserted as long as one source is set.
type IRQSource uint8

const (
	Mapper IRQSource = 1 << iota
	FrameCounter
	DMC

	numSources = 3
)

var irqSrcNames = [numSources]string{
	"mapper",
	"fcnt",
	"dmc",
}

func (irq IRQSource) String() string {
	var names []string
	for i := range numSources {
		if irq&(1<<i) != 0 {
			names = append(names, irqSrcNames[i])
		}
	}
	return strings.Join(names, "|")
}

const (
	SoftReset = true
	HardReset = false
)

const NumAudioChannels = 5 // Square1, Square2, Triangle, Noise, DMC

const (
	NTSCMasterClock = 21477272
	NTSCCPUDivider  = 12
	NTSCPPUDivider  = 4
	NTSCCPUClock    = NTSCMasterClock / NTSCCPUDivider
)
