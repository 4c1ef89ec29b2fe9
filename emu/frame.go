package emu

import (
	"image"

	"nescore/hw"
	"nescore/hw/apu"
	"nescore/ines"
)

// FrameResult is produced by RunEpoch once a frame is complete.
//
// Images and audio slices are owned by the System: they're only valid until
// the next call to RunEpoch, the caller must copy what it wants to keep.
type FrameResult struct {
	Frame *image.RGBA // 256x240

	// Debug images, nil in headless mode.
	Nametables    *image.RGBA    // 512x480
	PatternTables [2]*image.RGBA // 128x128
	Palette       *image.RGBA    // 256x16
	Picked        *image.RGBA    // sprite under the picked position, if any
	PickedIndex   int            // OAM index of the picked sprite, or -1

	// Mixed output and per-channel debug queues, accumulated since the
	// previous FrameResult.
	Audio        []int16
	ChannelAudio [apu.NumChannels][]float32

	CPU hw.CPUState
	PPU hw.PPUState
	APU apu.State

	Header     [16]byte
	Mirroring  ines.NTMirroring
	MapperID   uint16
	MapperName string

	FrameIndex  uint64 // number of frames completed since power-up
	ReplayFrame int    // position in the history when replaying
	Playback    PlaybackState
	Trace       bool // execution trace active
}
