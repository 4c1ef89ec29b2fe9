package emu

import (
	"image"
	"time"

	"nescore/emu/log"
	"nescore/hw"
	"nescore/hw/apu"
	"nescore/hw/hwdefs"
)

const (
	// The scheduler advances the master clock by this amount, which is the
	// duration of one PPU dot.
	masterTick = hwdefs.NTSCPPUDivider

	// Master cycles in a frame.
	masterFrame = hw.NumScanlines * hw.NumCycles * hwdefs.NTSCPPUDivider

	// Max number of frames worth of budget kept pending with LimitStall.
	maxStallFrames = 4
)

// budget converts a wall-clock duration into master clock cycles.
func budget(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(float64(d.Nanoseconds()) * hwdefs.NTSCMasterClock / float64(time.Second))
}

// RunEpoch runs the emulation for the wall-clock duration d, and returns the
// last frame completed during the epoch, or nil if none was completed.
//
// Queued commands are executed first. The budget of cycles not consumed,
// including the overshoot of the last instruction, is carried to the next
// epoch.
func (s *System) RunEpoch(d time.Duration) *FrameResult {
	if s.bus == nil {
		return nil
	}
	if s.delivered {
		s.mixer.Drain()
		s.delivered = false
	}
	s.runCommands()

	if !s.playback.emulating() {
		return nil
	}

	s.pending += budget(d)
	if s.cfg.Emulation.LimitStall && s.pending > maxStallFrames*masterFrame {
		log.ModEmu.DebugZ("stall, clamping budget").
			Int64("pending", s.pending).
			End()
		s.pending = maxStallFrames * masterFrame
	}

	var res *FrameResult
	for s.pending >= masterTick {
		s.master += masterTick
		s.pending -= masterTick
		s.bus.Step(s.master/hwdefs.NTSCCPUDivider, s.master/hwdefs.NTSCPPUDivider)

		if !s.bus.PPU.FrameDone() {
			continue
		}
		res = s.endFrame()
		if s.cfg.Emulation.ClampFps || !s.playback.emulating() {
			break
		}
	}

	if res != nil {
		s.delivered = true
	}
	return res
}

// RunFrames runs n complete frames, ignoring wall-clock time and the clamping
// options, and returns the last FrameResult.
func (s *System) RunFrames(n int) *FrameResult {
	if s.bus == nil {
		return nil
	}
	var res *FrameResult
	for range n {
		if s.delivered {
			s.mixer.Drain()
			s.delivered = false
		}
		s.runCommands()
		if !s.playback.emulating() {
			break
		}
		for {
			s.master += masterTick
			s.bus.Step(s.master/hwdefs.NTSCCPUDivider, s.master/hwdefs.NTSCPPUDivider)
			if s.bus.PPU.FrameDone() {
				break
			}
		}
		res = s.endFrame()
		s.delivered = true
	}
	return res
}

// endFrame is called each time the PPU completes a frame.
func (s *System) endFrame() *FrameResult {
	s.bus.APU.EndFrame()
	s.frame++

	res := s.buildResult()

	switch s.playback {
	case Recording:
		s.record()
	case Replaying:
		s.replayNext()
	}
	res.Playback = s.playback

	if s.tracing && s.traceLeft > 0 {
		s.traceLeft--
		if s.traceLeft == 0 {
			s.stopTrace()
		}
	}
	return res
}

func (s *System) buildResult() *FrameResult {
	r := &s.result
	ppu := s.bus.PPU

	r.Frame = ppu.Output()
	r.Audio = s.mixer.Samples()
	for ch := range r.ChannelAudio {
		r.ChannelAudio[ch] = s.mixer.ChannelSamples(apu.Channel(ch))
	}
	r.CPU = s.bus.CPU.State()
	r.PPU = ppu.State()
	r.APU = s.bus.APU.State()

	r.Header = s.rom.Header()
	r.Mirroring = ppu.Mirroring()
	r.MapperID = s.bus.Mapper().ID()
	r.MapperName = s.bus.Mapper().Name()
	r.FrameIndex = s.frame
	r.ReplayFrame = s.replayPos
	r.Playback = s.playback
	r.Trace = s.tracing

	r.PickedIndex = -1
	r.Picked = nil
	if s.cfg.Emulation.Headless {
		r.Nametables = nil
		r.PatternTables = [2]*image.RGBA{}
		r.Palette = nil
		return r
	}

	r.Nametables = ppu.NametableSheet()
	r.PatternTables[0] = ppu.PatternTable(0)
	r.PatternTables[1] = ppu.PatternTable(1)
	r.Palette = ppu.PaletteSwatch()
	if s.hasPicked {
		r.PickedIndex, r.Picked = ppu.PickObject(s.picked.X, s.picked.Y)
	}
	return r
}
