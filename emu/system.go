package emu

import (
	"errors"
	"fmt"
	"image"

	"nescore/emu/log"
	"nescore/hw"
	"nescore/hw/apu"
	"nescore/hw/hwdefs"
	"nescore/hw/mappers"
	"nescore/hw/snapshot"
	"nescore/ines"
)

// ErrNoROM is returned by operations requiring a cartridge when none is
// loaded.
var ErrNoROM = errors.New("no rom loaded")

// System is a NES console: the hardware connected through the bus, the
// master clock scheduler and the command queue used to control it.
//
// A System is not safe for concurrent use, RunEpoch and the methods
// controlling the emulation must be called from the same goroutine.
type System struct {
	cfg Config

	rom   *ines.Rom
	bus   *hw.Bus
	mixer *apu.Mixer

	master  int64 // master clock cycles since power-up
	pending int64 // master cycles budget not consumed yet
	frame   uint64

	cmds     []Command
	playback PlaybackState
	history  *snapshot.History

	recordLeft int // frames left to record, -1 for unbounded
	replayPos  int
	traceLeft  int
	tracing    bool

	quick   *snapshot.StateBlob // last saved state
	lastErr error

	picked    image.Point
	hasPicked bool
	delivered bool // a FrameResult has been returned by the last epoch

	result FrameResult
}

// New creates a System with no cartridge.
func New(cfg Config) *System {
	cfg.Check()
	return &System{
		cfg:     cfg,
		history: snapshot.NewHistory(cfg.Emulation.HistoryCapacity),
	}
}

// LoadROM loads the iNES file at path and powers the console up. On error,
// the System is left as it was.
func (s *System) LoadROM(path string) error {
	rom, err := ines.Open(path)
	if err != nil {
		return err
	}
	return s.plug(rom)
}

// LoadROMBytes is like LoadROM for a rom image already in memory.
func (s *System) LoadROMBytes(buf []byte) error {
	rom, err := ines.Decode(buf)
	if err != nil {
		return err
	}
	return s.plug(rom)
}

// plug builds a new console around rom and only replaces the current one
// once everything succeeded.
func (s *System) plug(rom *ines.Rom) error {
	mixer := apu.NewMixer(s.cfg.mixerConfig())
	bus := hw.NewBus(mixer)

	m, err := mappers.Load(rom, bus)
	if err != nil {
		return err
	}
	bus.SetMapper(m)
	m.OnLoadCPU()
	m.OnLoadPPU()
	bus.PPU.Opts = s.cfg.ppuOptions()
	bus.Reset(hwdefs.HardReset)

	s.rom = rom
	s.bus = bus
	s.mixer = mixer
	s.frame = 0
	s.pending = 0
	s.alignClock()

	s.cmds = s.cmds[:0]
	s.playback = Running
	s.history.Clear()
	s.quick = nil
	s.lastErr = nil
	s.delivered = false
	s.tracing = false
	s.traceLeft = 0

	log.ModEmu.InfoZ("rom loaded").
		Uint16("mapper", m.ID()).
		String("name", m.Name()).
		Stringer("mirroring", rom.Mirroring()).
		End()
	return nil
}

// alignClock sets the master clock so that the CPU target matches the CPU
// cycle count after a reset.
func (s *System) alignClock() {
	s.master = s.bus.CPU.Cycles * hwdefs.NTSCCPUDivider
}

// Reset performs a soft (reset button) or hard (power cycle) reset.
func (s *System) Reset(soft bool) error {
	if s.bus == nil {
		return ErrNoROM
	}
	log.ModEmu.InfoZ("reset").Bool("soft", soft).End()
	s.bus.Reset(soft)
	s.alignClock()
	s.pending = 0
	if !soft {
		s.frame = 0
	}
	return nil
}

// Loaded reports whether a cartridge is plugged.
func (s *System) Loaded() bool { return s.bus != nil }

func (s *System) Rom() *ines.Rom { return s.rom }

// Bus gives access to the hardware, mostly for tests and debugging.
func (s *System) Bus() *hw.Bus { return s.bus }

func (s *System) Config() Config { return s.cfg }

// Frame returns the number of frames completed since power-up.
func (s *System) Frame() uint64 { return s.frame }

func (s *System) Playback() PlaybackState { return s.playback }

// History returns the recorded states.
func (s *System) History() *snapshot.History { return s.history }

// LastError returns the error of the last failed command, if any. Commands
// are processed asynchronously with respect to Push so this is the only way
// to observe their failure.
func (s *System) LastError() error { return s.lastErr }

// Push enqueues a command, processed at the start of the next RunEpoch.
func (s *System) Push(cmd Command) {
	s.cmds = append(s.cmds, cmd)
}

// SetButtons sets the buttons currently pressed on the controller plugged in
// port (0 or 1).
func (s *System) SetButtons(port int, buttons hw.Button) {
	if s.bus == nil {
		return
	}
	s.bus.Input.SetButtons(port, buttons)
}

// Pick sets the screen position used to find the picked object shown in
// FrameResult. A negative coordinate disables picking.
func (s *System) Pick(x, y int) {
	if x < 0 || y < 0 {
		s.hasPicked = false
		return
	}
	s.picked = image.Pt(x, y)
	s.hasPicked = true
}

// SetConfig applies a new configuration. Audio and video settings take
// effect immediately, emulation settings at the next epoch.
func (s *System) SetConfig(cfg Config) {
	cfg.Check()
	if cfg.Emulation.HistoryCapacity != s.history.Cap() {
		s.history = snapshot.NewHistory(cfg.Emulation.HistoryCapacity)
		if s.playback == Replaying || s.playback == Paused {
			s.playback = Finished
		}
	}
	s.cfg = cfg
	if s.bus != nil {
		s.mixer.Configure(cfg.mixerConfig())
		s.bus.PPU.Opts = cfg.ppuOptions()
	}
}

func (s *System) fail(cmd Command, err error) {
	s.lastErr = fmt.Errorf("%s: %w", cmd, err)
	log.ModEmu.WarnZ("command failed").
		Stringer("cmd", cmd).
		Error("err", err).
		End()
}
