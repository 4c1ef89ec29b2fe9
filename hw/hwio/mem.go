package hwio

import (
	"errors"
	"fmt"
)

// ErrAddressContract is the panic value used when a component receives an
// access outside the address range it is wired to. It always denotes an
// emulator bug, never a guest program error.
var ErrAddressContract = errors.New("address outside component range")

// AddressContract returns the error a component panics with when addr is out
// of its range.
func AddressContract(component string, addr uint16) error {
	return fmt.Errorf("%w: %s $%04X", ErrAddressContract, component, addr)
}

// Mem is a linear memory area, mirrored over its power-of-2 size.
type Mem struct {
	Buf  []byte
	mask uint16
}

func NewMem(size int) Mem {
	if size&(size-1) != 0 || size == 0 {
		panic("memory buffer size is not pow2")
	}
	return Mem{
		Buf:  make([]byte, size),
		mask: uint16(size - 1),
	}
}

func (m *Mem) Read8(addr uint16) uint8 {
	return m.Buf[addr&m.mask]
}

func (m *Mem) Peek8(addr uint16) uint8 {
	return m.Buf[addr&m.mask]
}

func (m *Mem) Write8(addr uint16, val uint8) {
	m.Buf[addr&m.mask] = val
}

func (m *Mem) Clear() {
	clear(m.Buf)
}
