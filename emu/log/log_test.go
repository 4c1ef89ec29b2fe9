package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

type frameCtx struct{ frame int }

func (c *frameCtx) AddLogContext(z *EntryZ) { z.Int("frame", c.frame) }

func TestNilEntryIsNoop(t *testing.T) {
	mod := NewModule("testnoop")
	DisableDebugModules(mod.Mask())

	z := mod.DebugZ("hidden")
	require.Nil(t, z)
	// Chained calls on a nil entry must not panic.
	z.Hex8("a", 1).Hex16("b", 2).String("c", "d").End()
}

func TestEntryOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(&bytes.Buffer{})

	mod := NewModule("testout")
	EnableDebugModules(mod.Mask())
	defer DisableDebugModules(mod.Mask())

	ctx := &frameCtx{frame: 42}
	AddContext(ctx)
	defer RemoveContext(ctx)

	mod.DebugZ("write").Hex8("val", 0xab).Hex16("addr", 0x2006).End()

	out := buf.String()
	require.Contains(t, out, "write")
	require.Contains(t, out, "val=ab")
	require.Contains(t, out, "addr=2006")
	require.Contains(t, out, "frame=42")
	require.Contains(t, out, "_mod=testout")
}

func TestModuleByName(t *testing.T) {
	mod, ok := ModuleByName("ppu")
	require.True(t, ok)
	require.Equal(t, ModPPU, mod)

	_, ok = ModuleByName("nonexistent")
	require.False(t, ok)

	require.Contains(t, ModuleNames(), "cpu")
}

func TestDisable(t *testing.T) {
	Disable()
	defer Enable()
	require.False(t, ModEmu.Enabled(ErrorLevel))
	require.Nil(t, ModEmu.WarnZ("x"))
}
