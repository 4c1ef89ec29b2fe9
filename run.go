package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/pprof"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"nescore/emu"
	"nescore/emu/log"
)

// run runs all the ROMs concurrently, each in its own System.
func (r *Run) run() error {
	if len(r.RomPaths) == 0 {
		return fmt.Errorf("no rom to run")
	}
	if r.Trace != nil {
		defer r.Trace.Close()
		if len(r.RomPaths) > 1 {
			return fmt.Errorf("--trace can only be used with a single rom")
		}
	}
	if r.CPUProfile != "" {
		f, err := os.Create(r.CPUProfile)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return err
		}
		defer pprof.StopCPUProfile()
	}

	cfg := emu.DefaultConfig()
	if r.Config != "" {
		var err error
		if cfg, err = emu.LoadConfig(r.Config); err != nil {
			return err
		}
	}
	cfg.Emulation.Headless = true
	if r.Trace != nil {
		cfg.TraceOut = r.Trace
	}

	var g errgroup.Group
	for _, path := range r.RomPaths {
		g.Go(func() error {
			if err := r.runROM(path, cfg); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// outPath returns the path of an output file for rom. With multiple roms, the
// rom name is appended to the file name.
func (r *Run) outPath(path, rom string) string {
	if path == "" || len(r.RomPaths) == 1 {
		return path
	}
	ext := filepath.Ext(path)
	name := strings.TrimSuffix(filepath.Base(rom), filepath.Ext(rom))
	return strings.TrimSuffix(path, ext) + "-" + name + ext
}

func (r *Run) runROM(path string, cfg emu.Config) error {
	sys := emu.New(cfg)
	if err := sys.LoadROM(path); err != nil {
		return err
	}
	if r.LoadState != "" {
		if err := sys.LoadStateFile(r.LoadState); err != nil {
			return err
		}
	}
	if r.Trace != nil {
		sys.Push(emu.CmdStartTrace(r.TraceFrames))
	}

	var wav *emu.WavWriter
	if r.Wav != "" {
		var err error
		wav, err = emu.NewWavWriter(r.outPath(r.Wav, path), sys.Config().Audio.SampleRate)
		if err != nil {
			return err
		}
		defer wav.Close()
	}

	start := time.Now()
	var last *emu.FrameResult
	frames := 0
	next := func() *emu.FrameResult { return sys.RunFrames(1) }
	if r.Realtime {
		prev := start
		next = func() *emu.FrameResult {
			time.Sleep(time.Second / 60)
			now := time.Now()
			res := sys.RunEpoch(now.Sub(prev))
			prev = now
			return res
		}
	}

	for frames < r.Frames {
		res := next()
		if err := sys.LastError(); err != nil {
			return err
		}
		if res == nil {
			if sys.Playback() == emu.Paused || sys.Playback() == emu.Finished {
				break
			}
			continue
		}
		frames++
		last = res
		if wav != nil {
			if err := wav.Write(res.Audio); err != nil {
				return err
			}
		}
		if res.CPU.Halted {
			log.ModEmu.WarnZ("cpu halted, stopping").String("rom", path).End()
			break
		}
	}

	if wav != nil {
		if err := wav.Close(); err != nil {
			return err
		}
	}
	if r.SaveState != "" {
		if err := sys.SaveStateFile(r.outPath(r.SaveState, path)); err != nil {
			return err
		}
	}
	if r.StateJSON != "" && last != nil {
		if err := writeStateJSON(r.outPath(r.StateJSON, path), last); err != nil {
			return err
		}
	}

	elapsed := time.Since(start)
	fmt.Printf("%s: %d frames in %s (%.1f fps)\n", filepath.Base(path), frames, elapsed.Round(time.Millisecond),
		float64(frames)/elapsed.Seconds())
	return nil
}

func writeStateJSON(path string, res *emu.FrameResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := emu.WriteStateJSON(f, res); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
