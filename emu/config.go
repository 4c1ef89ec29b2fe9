package emu

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"

	"nescore/emu/log"
	"nescore/hw"
	"nescore/hw/apu"
)

type Config struct {
	Emulation EmulationConfig `toml:"emulation"`
	Audio     AudioConfig     `toml:"audio"`
	Video     VideoConfig     `toml:"video"`

	TraceOut io.Writer `toml:"-"`
}

type EmulationConfig struct {
	// ClampFps runs at most one frame per epoch, the remaining budget is
	// kept for the next epochs.
	ClampFps bool `toml:"clamp_fps"`

	// LimitStall bounds the pending cycle budget to a few frames, so that the
	// emulation doesn't try to catch up after a long stall.
	LimitStall bool `toml:"limit_stall"`

	// Headless skips the production of debug images.
	Headless bool `toml:"headless"`

	StatePath       string `toml:"state_path"`
	StateBufferSize int    `toml:"state_buffer_size"`
	HistoryCapacity int    `toml:"history_capacity"`
}

type AudioConfig struct {
	Volume         float64               `toml:"volume"`
	FrequencyScale float64               `toml:"frequency_scale"`
	SampleRate     int                   `toml:"sample_rate"`
	Mute           [apu.NumChannels]bool `toml:"mute"`
	WaveShift      bool                  `toml:"wave_shift"`
}

type VideoConfig struct {
	ChrPalette  int  `toml:"chr_palette"`
	SpriteLimit int  `toml:"sprite_limit"`
	ShowBG      bool `toml:"show_bg"`
	ShowSprites bool `toml:"show_sprites"`
}

const (
	defaultStateBufferSize = 64 * 1024
	defaultHistoryCapacity = 600
)

func DefaultConfig() Config {
	ppu := hw.DefaultPPUOptions()
	mix := apu.DefaultMixerConfig()
	return Config{
		Emulation: EmulationConfig{
			LimitStall:      true,
			StateBufferSize: defaultStateBufferSize,
			HistoryCapacity: defaultHistoryCapacity,
		},
		Audio: AudioConfig{
			Volume:         mix.Volume,
			FrequencyScale: mix.FrequencyScale,
			SampleRate:     mix.SampleRate,
		},
		Video: VideoConfig{
			ChrPalette:  ppu.ChrPalette,
			SpriteLimit: ppu.SpriteLimit,
			ShowBG:      ppu.ShowBG,
			ShowSprites: ppu.ShowSprites,
		},
	}
}

// Check replaces out of range values with their defaults.
func (cfg *Config) Check() {
	def := DefaultConfig()
	if cfg.Video.SpriteLimit < 1 || cfg.Video.SpriteLimit > 8 {
		log.ModEmu.WarnZ("invalid sprite limit, using default").
			Int("limit", cfg.Video.SpriteLimit).
			End()
		cfg.Video.SpriteLimit = def.Video.SpriteLimit
	}
	if cfg.Video.ChrPalette < 0 || cfg.Video.ChrPalette > 7 {
		cfg.Video.ChrPalette = def.Video.ChrPalette
	}
	if cfg.Audio.SampleRate <= 0 || cfg.Audio.SampleRate > apu.MaxSampleRate {
		cfg.Audio.SampleRate = def.Audio.SampleRate
	}
	if cfg.Audio.FrequencyScale <= 0 {
		cfg.Audio.FrequencyScale = def.Audio.FrequencyScale
	}
	cfg.Audio.Volume = max(0, min(cfg.Audio.Volume, 1))
	if cfg.Emulation.StateBufferSize <= 0 {
		cfg.Emulation.StateBufferSize = def.Emulation.StateBufferSize
	}
	if cfg.Emulation.HistoryCapacity <= 0 {
		cfg.Emulation.HistoryCapacity = def.Emulation.HistoryCapacity
	}
}

func (cfg *Config) mixerConfig() apu.MixerConfig {
	return apu.MixerConfig{
		SampleRate:     cfg.Audio.SampleRate,
		Volume:         cfg.Audio.Volume,
		FrequencyScale: cfg.Audio.FrequencyScale,
		Mute:           cfg.Audio.Mute,
		WaveShift:      cfg.Audio.WaveShift,
	}
}

func (cfg *Config) ppuOptions() hw.PPUOptions {
	return hw.PPUOptions{
		SpriteLimit: cfg.Video.SpriteLimit,
		ShowBG:      cfg.Video.ShowBG,
		ShowSprites: cfg.Video.ShowSprites,
		ChrPalette:  cfg.Video.ChrPalette,
	}
}

// LoadConfig decodes the configuration at path. Keys missing from the file
// keep their default value.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return DefaultConfig(), fmt.Errorf("config %s: %w", path, err)
	}
	for _, key := range md.Undecoded() {
		log.ModEmu.WarnZ("unknown config key").String("key", key.String()).End()
	}
	cfg.Check()
	return cfg, nil
}

// LoadConfigOrDefault loads the configuration at path, or provides the
// default one if it doesn't exist or can't be decoded.
func LoadConfigOrDefault(path string) Config {
	cfg, err := LoadConfig(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.ModEmu.WarnZ("failed to load config, using default").Error("err", err).End()
		}
		return DefaultConfig()
	}
	return cfg
}

// SaveConfig writes cfg at path.
func SaveConfig(path string, cfg Config) error {
	buf, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0644)
}
