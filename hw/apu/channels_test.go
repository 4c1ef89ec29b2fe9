package apu

import "testing"

func TestSweepTarget(t *testing.T) {
	tests := []struct {
		name     string
		ones     bool
		reg      uint8
		period   uint16
		want     uint32
		overflow bool
	}{
		{"add", false, 0x81, 0x100, 0x180, false},
		{"negate square 1", true, 0x89, 0x100, 0x7F, false},
		{"negate square 2", false, 0x89, 0x100, 0x80, false},
		{"overflow", false, 0x81, 0x700, 0xA80, true},
		{"negate never overflows", true, 0x88, 0x700, 0xFFFFFFFF, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sw := sweep{onesComplement: tt.ones}
			sw.write(tt.reg)
			sw.computeTarget(tt.period)
			if sw.target != tt.want {
				t.Errorf("target = %X, want %X", sw.target, tt.want)
			}
			if sw.overflows() != tt.overflow {
				t.Errorf("overflows = %t, want %t", sw.overflows(), tt.overflow)
			}
		})
	}
}

func TestSweepClock(t *testing.T) {
	// Enabled, divider period 2, shift 1.
	sw := sweep{}
	sw.write(0x91)
	sw.computeTarget(0x100)

	// The first clock only reloads the divider.
	if sw.clock(0x100) {
		t.Fatalf("period adjusted on reload")
	}
	if sw.clock(0x100) {
		t.Fatalf("period adjusted before the divider expired")
	}
	if !sw.clock(0x100) {
		t.Fatalf("period not adjusted when the divider expired")
	}
	// Too low periods are never adjusted.
	sw.divider = 1
	if sw.clock(7) {
		t.Errorf("period 7 adjusted")
	}
}

func TestPulseDutyLevels(t *testing.T) {
	want := [4]string{"00000001", "00000011", "00001111", "11111100"}
	for duty := range want {
		p := pulse{duty: uint8(duty)}
		got := ""
		for step := range 8 {
			p.step = uint8(step)
			got += string('0' + rune(p.level()))
		}
		if got != want[duty] {
			t.Errorf("duty %d = %s, want %s", duty, got, want[duty])
		}
	}
}

func TestTriangleRamp(t *testing.T) {
	for step := range 32 {
		want := 15 - step
		if step >= 16 {
			want = step - 16
		}
		if got := rampLevel(uint8(step)); int(got) != want {
			t.Errorf("step %d: level = %d, want %d", step, got, want)
		}
	}
}

func TestLinearCounter(t *testing.T) {
	lc := linearCounter{load: 3, reload: true}
	lc.clock()
	lc.clock()
	if lc.counter != 2 || lc.reload {
		t.Errorf("counter = %d reload = %t, want 2 false", lc.counter, lc.reload)
	}

	// With the control flag, the reload flag sticks.
	lc = linearCounter{load: 3, reload: true, control: true}
	lc.clock()
	lc.clock()
	if lc.counter != 3 || !lc.reload {
		t.Errorf("counter = %d reload = %t, want 3 true", lc.counter, lc.reload)
	}
}

func TestNoiseSequenceLength(t *testing.T) {
	cycle := func(short bool, limit int) int {
		n := noise{lfsr: 1, short: short}
		for i := 1; i <= limit; i++ {
			n.shift()
			if n.lfsr == 1 {
				return i
			}
		}
		return -1
	}

	if got := cycle(false, 40000); got != 32767 {
		t.Errorf("long mode sequence = %d steps, want 32767", got)
	}
	if got := cycle(true, 40000); got < 1 || got > 93 {
		t.Errorf("short mode sequence = %d steps, want at most 93", got)
	}
}
