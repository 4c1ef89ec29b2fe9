package emu

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nescore.toml")

	cfg := DefaultConfig()
	cfg.Emulation.ClampFps = true
	cfg.Emulation.StatePath = "/tmp/state.nss"
	cfg.Audio.Volume = 0.5
	cfg.Audio.Mute[2] = true
	cfg.Video.SpriteLimit = 4
	cfg.Video.ShowBG = false

	if err := SaveConfig(path, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Errorf("config round trip (-want +got):\n%s", diff)
	}
}

func TestConfigDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nescore.toml")
	const partial = `
[video]
sprite_limit = 64
show_sprites = false

[audio]
volume = 3.0
`
	if err := os.WriteFile(path, []byte(partial), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	want := DefaultConfig()
	want.Video.ShowSprites = false
	want.Audio.Volume = 1

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("partial config (-want +got):\n%s", diff)
	}
}

func TestLoadConfigOrDefault(t *testing.T) {
	dir := t.TempDir()

	got := LoadConfigOrDefault(filepath.Join(dir, "missing.toml"))
	if diff := cmp.Diff(DefaultConfig(), got); diff != "" {
		t.Errorf("missing config (-want +got):\n%s", diff)
	}

	bad := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(bad, []byte("[video\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(bad); err == nil {
		t.Errorf("LoadConfig(bad) succeeded")
	}
	got = LoadConfigOrDefault(bad)
	if diff := cmp.Diff(DefaultConfig(), got); diff != "" {
		t.Errorf("invalid config (-want +got):\n%s", diff)
	}
}
