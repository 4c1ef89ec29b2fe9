package hwdefs

import "testing"

func TestIRQSourceString(t *testing.T) {
	tests := []struct {
		src  IRQSource
		want string
	}{
		{0, ""},
		{Mapper, "mapper"},
		{FrameCounter | DMC, "fcnt|dmc"},
		{Mapper | FrameCounter | DMC, "mapper|fcnt|dmc"},
	}
	for _, tt := range tests {
		if got := tt.src.String(); got != tt.want {
			t.Errorf("IRQSource(%d).String() = %q, want %q", tt.src, got, tt.want)
		}
	}
}
