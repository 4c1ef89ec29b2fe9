package hw

import (
	"strings"

	"nescore/emu/log"
	"nescore/hw/hwio"
	"nescore/hw/snapshot"
)

// Button is a standard controller button, as a bit in the state byte shifted
// out through $4016/$4017 (A first).
type Button uint8

const (
	ButtonA Button = 1 << iota
	ButtonB
	ButtonSelect
	ButtonStart
	ButtonUp
	ButtonDown
	ButtonLeft
	ButtonRight
)

var buttonNames = [8]string{"A", "B", "Select", "Start", "Up", "Down", "Left", "Right"}

func (b Button) String() string {
	var names []string
	for i, name := range buttonNames {
		if b&(1<<i) != 0 {
			names = append(names, name)
		}
	}
	return strings.Join(names, "|")
}

// InputPorts handles I/O with the two standard controllers.
type InputPorts struct {
	In  hwio.Reg8 // $4016
	Out hwio.Reg8 // $4017 (read side)

	buttons [2]Button // current state of both pads.

	prevStrobe, strobe bool     // to observe strobe falling edge.
	state              [2]uint8 // state shift registers.
}

func (ip *InputPorts) init() {
	ip.In = hwio.Reg8{Name: "IN", ReadCb: ip.ReadIN, PeekCb: ip.PeekIN, WriteCb: ip.WriteIN}
	ip.Out = hwio.Reg8{Name: "OUT", ReadCb: ip.ReadOUT, PeekCb: ip.PeekOUT}
}

func (ip *InputPorts) reset() {
	ip.prevStrobe, ip.strobe = false, false
	ip.state = [2]uint8{}
}

// SetButtons sets the pressed buttons of the pad plugged in port (0 or 1).
func (ip *InputPorts) SetButtons(port int, mask Button) {
	ip.buttons[port&1] = mask
}

func (ip *InputPorts) regval(port uint8) uint8 {
	ret := ip.state[port] & 1
	ip.state[port] >>= 1

	// After 8 bits are read, all subsequent bits will report 1 on a standard
	// NES controller, but third party and other controllers may report other
	// values here
	ip.state[port] |= 0x80

	// Emulate open bus behavior.
	return 0x40 | ret
}

// capture state of both pads.
func (ip *InputPorts) loadstate() {
	ip.state[0] = uint8(ip.buttons[0])
	ip.state[1] = uint8(ip.buttons[1])
}

// In: $4016
func (ip *InputPorts) WriteIN(_, val uint8) {
	ip.prevStrobe = ip.strobe
	ip.strobe = val&1 == 1
	if ip.prevStrobe && !ip.strobe {
		ip.loadstate()
		log.ModInput.DebugZ("latched pads").
			Stringer("pad1", ip.buttons[0]).
			Stringer("pad2", ip.buttons[1]).
			End()
	}
}

func (ip *InputPorts) ReadIN(_ uint8) uint8 {
	if ip.strobe {
		ip.loadstate()
	}
	return ip.regval(0)
}

func (ip *InputPorts) PeekIN(_ uint8) uint8 {
	if ip.strobe {
		return 0x40 | uint8(ip.buttons[0])&1
	}
	return 0x40 | ip.state[0]&1
}

// Out: $4017
func (ip *InputPorts) ReadOUT(_ uint8) uint8 {
	if ip.strobe {
		ip.loadstate()
	}
	return ip.regval(1)
}

func (ip *InputPorts) PeekOUT(_ uint8) uint8 {
	if ip.strobe {
		return 0x40 | uint8(ip.buttons[1])&1
	}
	return 0x40 | ip.state[1]&1
}

func (ip *InputPorts) serialize(s *snapshot.Serializer) {
	s.Bool(&ip.prevStrobe)
	s.Bool(&ip.strobe)
	s.U8(&ip.state[0])
	s.U8(&ip.state[1])
	for i := range ip.buttons {
		b := uint8(ip.buttons[i])
		s.U8(&b)
		ip.buttons[i] = Button(b)
	}
}
