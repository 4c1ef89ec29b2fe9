package emu

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"nescore/emu/log"
	"nescore/hw/snapshot"
)

// ErrNoState is returned when loading a state while none has been saved.
var ErrNoState = errors.New("no saved state")

// Save-state sections, in serialization order.
const (
	SectionSystem = "System"
	SectionCPU    = "CPU"
	SectionMemory = "Memory" // 2KB internal RAM
	SectionIO     = "IO"
	SectionPPU    = "PPU"
	SectionVRAM   = "VRAM" // nametables, palettes and OAM
	SectionAPU    = "APU"
	SectionMapper = "Mapper"
)

func (s *System) serialize(sz *snapshot.Serializer) {
	sz.NewLabel(SectionSystem)
	sz.U64(&s.frame)
	sz.I64(&s.master)
	sz.EndLabel(SectionSystem)

	sz.NewLabel(SectionCPU)
	s.bus.CPU.Serialize(sz)
	sz.EndLabel(SectionCPU)

	sz.NewLabel(SectionMemory)
	s.bus.SerializeRAM(sz)
	sz.EndLabel(SectionMemory)

	sz.NewLabel(SectionIO)
	s.bus.Serialize(sz)
	sz.EndLabel(SectionIO)

	sz.NewLabel(SectionPPU)
	s.bus.PPU.Serialize(sz)
	sz.EndLabel(SectionPPU)

	sz.NewLabel(SectionVRAM)
	s.bus.PPU.SerializeVRAM(sz)
	sz.EndLabel(SectionVRAM)

	sz.NewLabel(SectionAPU)
	s.bus.APU.Serialize(sz)
	sz.EndLabel(SectionAPU)

	sz.NewLabel(SectionMapper)
	s.bus.Mapper().Serialize(sz)
	sz.EndLabel(SectionMapper)
}

// Snapshot returns the current state of the console.
func (s *System) Snapshot() (*snapshot.StateBlob, error) {
	if s.bus == nil {
		return nil, ErrNoROM
	}
	sz := snapshot.NewStore(s.cfg.Emulation.StateBufferSize)
	s.serialize(sz)
	blob, err := sz.Blob()
	if err != nil {
		return nil, err
	}
	blob.Frame = s.frame
	return blob, nil
}

// Restore replaces the console state with blob. If blob can't be loaded, the
// console is left in the state it was before the call.
func (s *System) Restore(blob *snapshot.StateBlob) error {
	if s.bus == nil {
		return ErrNoROM
	}
	backup, err := s.Snapshot()
	if err != nil {
		return fmt.Errorf("backup: %w", err)
	}
	if err := s.restore(blob); err != nil {
		if rerr := s.restore(backup); rerr != nil {
			panic(fmt.Sprintf("failed to restore backup state: %v", rerr))
		}
		return err
	}
	return nil
}

func (s *System) restore(blob *snapshot.StateBlob) error {
	sz := snapshot.NewLoad(blob)
	s.serialize(sz)
	return sz.Finish()
}

// SaveState stores the current state in the quick-save slot and, if
// configured, in the state file. Nothing is modified on error.
func (s *System) SaveState() error {
	blob, err := s.Snapshot()
	if err != nil {
		return err
	}
	if path := s.cfg.Emulation.StatePath; path != "" {
		if err := writeStateFile(path, blob); err != nil {
			return err
		}
	}
	s.quick = blob
	log.ModEmu.InfoZ("state saved").
		Uint64("frame", blob.Frame).
		Int("size", len(blob.Data)).
		End()
	return nil
}

// LoadState restores the quick-save slot, or the state file if no state has
// been saved since the rom was loaded.
func (s *System) LoadState() error {
	blob := s.quick
	if blob == nil {
		path := s.cfg.Emulation.StatePath
		if path == "" {
			return ErrNoState
		}
		var err error
		if blob, err = readStateFile(path); err != nil {
			return err
		}
	}
	if err := s.Restore(blob); err != nil {
		return err
	}
	log.ModEmu.InfoZ("state loaded").Uint64("frame", blob.Frame).End()
	return nil
}

// SaveStateFile writes the current state to the file at path.
func (s *System) SaveStateFile(path string) error {
	blob, err := s.Snapshot()
	if err != nil {
		return err
	}
	return writeStateFile(path, blob)
}

// LoadStateFile restores the state saved in the file at path.
func (s *System) LoadStateFile(path string) error {
	blob, err := readStateFile(path)
	if err != nil {
		return err
	}
	return s.Restore(blob)
}

// writeStateFile atomically replaces the file at path with blob.
func writeStateFile(path string, blob *snapshot.StateBlob) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if _, err := blob.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write state %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

func readStateFile(path string) (*snapshot.StateBlob, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var blob snapshot.StateBlob
	if _, err := blob.ReadFrom(f); err != nil {
		return nil, fmt.Errorf("read state %s: %w", path, err)
	}
	return &blob, nil
}

func (s *System) runCommands() {
	for _, cmd := range s.cmds {
		log.ModEmu.DebugZ("command").Stringer("cmd", cmd).End()
		if err := s.runCommand(cmd); err != nil {
			s.fail(cmd, err)
		}
	}
	s.cmds = s.cmds[:0]
}

func (s *System) runCommand(cmd Command) error {
	switch cmd.Kind {
	case SaveState:
		return s.SaveState()
	case LoadState:
		if err := s.LoadState(); err != nil {
			return err
		}
		s.playback = Running
	case Record:
		s.history.Clear()
		s.recordLeft = cmd.Frames
		if cmd.Frames == 0 {
			s.playback = Running
			return nil
		}
		s.playback = Recording
	case Replay:
		return s.replay(cmd.Frame, cmd.Pause)
	case StartTrace:
		return s.startTrace(cmd.Frames)
	case StopTrace:
		s.stopTrace()
	default:
		return fmt.Errorf("unknown command kind %d", cmd.Kind)
	}
	return nil
}

// record pushes the state of the frame just completed into the history.
func (s *System) record() {
	blob, err := s.Snapshot()
	if err != nil {
		s.fail(CmdRecord(s.recordLeft), err)
		s.playback = Running
		return
	}
	s.history.Push(blob)
	if s.recordLeft > 0 {
		s.recordLeft--
		if s.recordLeft == 0 {
			log.ModEmu.InfoZ("recording done").Int("frames", s.history.Len()).End()
			s.playback = Running
		}
	}
}

// replay seeks to the recorded frame at index frame in the history. Seeking
// outside of the history finishes the replay.
func (s *System) replay(frame int, pause bool) error {
	s.replayPos = frame
	blob := s.history.At(frame)
	if blob == nil {
		log.ModEmu.InfoZ("replay beyond history").
			Int("frame", frame).
			Int("len", s.history.Len()).
			End()
		s.playback = Finished
		return nil
	}
	if err := s.Restore(blob); err != nil {
		s.playback = Finished
		return err
	}
	if pause {
		s.playback = Paused
	} else {
		s.playback = Replaying
	}
	return nil
}

func (s *System) replayNext() {
	if err := s.replay(s.replayPos+1, false); err != nil {
		s.fail(CmdReplay(s.replayPos, false), err)
	}
}

func (s *System) startTrace(frames int) error {
	if s.cfg.TraceOut == nil {
		return fmt.Errorf("no trace output configured")
	}
	s.bus.CPU.SetTraceOutput(s.cfg.TraceOut, s.bus.PPU)
	s.tracing = true
	s.traceLeft = frames
	return nil
}

func (s *System) stopTrace() {
	s.bus.CPU.SetTraceOutput(nil, nil)
	s.tracing = false
	s.traceLeft = 0
}
