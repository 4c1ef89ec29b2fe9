// Package snapshot implements the binary save-state codec shared by all
// hardware components.
//
// A Serializer works in one of two modes, Store or Load, and exposes the
// same set of codecs for both: each component has a single Serialize method
// which either writes its fields into the buffer or reads them back, so that
// a stored state always round-trips.
package snapshot

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrBufferTooSmall is returned when the state doesn't fit in the
	// serializer buffer.
	ErrBufferTooSmall = errors.New("save-state buffer too small")

	// ErrCorruptState is returned when a state can't be decoded.
	ErrCorruptState = errors.New("corrupt save-state")
)

type Mode uint8

const (
	Store Mode = iota
	Load
)

func (m Mode) String() string {
	if m == Load {
		return "load"
	}
	return "store"
}

// A Label locates a named section inside the serialized buffer.
type Label struct {
	Name   string
	Offset int
	Size   int
}

type Serializer struct {
	buf    []byte
	cursor int
	mode   Mode

	labels []Label
	open   []int // indices in labels of unterminated sections
	expect []Label

	err error
}

// NewStore returns a Serializer that stores state in a buffer of the given
// size.
func NewStore(size int) *Serializer {
	return &Serializer{
		buf:  make([]byte, size),
		mode: Store,
	}
}

// NewLoad returns a Serializer that loads state from blob.
func NewLoad(blob *StateBlob) *Serializer {
	return &Serializer{
		buf:    blob.Data,
		mode:   Load,
		expect: blob.Labels,
	}
}

func (s *Serializer) Mode() Mode    { return s.mode }
func (s *Serializer) Loading() bool { return s.mode == Load }

// Err returns the first error encountered. Once an error occurred all
// subsequent codec calls are no-ops.
func (s *Serializer) Err() error { return s.err }

// Len returns the number of bytes processed so far.
func (s *Serializer) Len() int { return s.cursor }

func (s *Serializer) Labels() []Label { return s.labels }

func (s *Serializer) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

// next returns the next n bytes of the buffer and advances the cursor, or nil
// if the buffer is exhausted.
func (s *Serializer) next(n int) []byte {
	if s.err != nil {
		return nil
	}
	if s.cursor+n > len(s.buf) {
		if s.mode == Store {
			s.fail(fmt.Errorf("%w: need at least %d bytes, have %d", ErrBufferTooSmall, s.cursor+n, len(s.buf)))
		} else {
			s.fail(fmt.Errorf("%w: truncated at offset %d", ErrCorruptState, s.cursor))
		}
		return nil
	}
	b := s.buf[s.cursor : s.cursor+n]
	s.cursor += n
	return b
}

func (s *Serializer) Bool(v *bool) {
	b := s.next(1)
	if b == nil {
		return
	}
	if s.mode == Store {
		b[0] = 0
		if *v {
			b[0] = 1
		}
		return
	}
	switch b[0] {
	case 0:
		*v = false
	case 1:
		*v = true
	default:
		s.fail(fmt.Errorf("%w: invalid bool 0x%02x at offset %d", ErrCorruptState, b[0], s.cursor-1))
	}
}

func (s *Serializer) U8(v *uint8) {
	b := s.next(1)
	if b == nil {
		return
	}
	if s.mode == Store {
		b[0] = *v
	} else {
		*v = b[0]
	}
}

func (s *Serializer) U16(v *uint16) {
	b := s.next(2)
	if b == nil {
		return
	}
	if s.mode == Store {
		binary.LittleEndian.PutUint16(b, *v)
	} else {
		*v = binary.LittleEndian.Uint16(b)
	}
}

func (s *Serializer) U32(v *uint32) {
	b := s.next(4)
	if b == nil {
		return
	}
	if s.mode == Store {
		binary.LittleEndian.PutUint32(b, *v)
	} else {
		*v = binary.LittleEndian.Uint32(b)
	}
}

func (s *Serializer) U64(v *uint64) {
	b := s.next(8)
	if b == nil {
		return
	}
	if s.mode == Store {
		binary.LittleEndian.PutUint64(b, *v)
	} else {
		*v = binary.LittleEndian.Uint64(b)
	}
}

func (s *Serializer) I64(v *int64) {
	u := uint64(*v)
	s.U64(&u)
	if s.mode == Load && s.err == nil {
		*v = int64(u)
	}
}

// Int encodes an int as a 64-bit value.
func (s *Serializer) Int(v *int) {
	i := int64(*v)
	s.I64(&i)
	if s.mode == Load && s.err == nil {
		*v = int(i)
	}
}

// Bytes encodes a fixed-size byte slice. In Load mode p must already have
// the stored length.
func (s *Serializer) Bytes(p []byte) {
	b := s.next(len(p))
	if b == nil {
		return
	}
	if s.mode == Store {
		copy(b, p)
	} else {
		copy(p, b)
	}
}

// NewLabel opens a named section, to be terminated by EndLabel.
func (s *Serializer) NewLabel(name string) {
	s.open = append(s.open, len(s.labels))
	s.labels = append(s.labels, Label{Name: name, Offset: s.cursor})
}

// EndLabel terminates the last opened section, which must be named name.
func (s *Serializer) EndLabel(name string) {
	if len(s.open) == 0 {
		panic(fmt.Sprintf("snapshot: EndLabel(%q) without NewLabel", name))
	}
	idx := s.open[len(s.open)-1]
	s.open = s.open[:len(s.open)-1]

	lbl := &s.labels[idx]
	if lbl.Name != name {
		panic(fmt.Sprintf("snapshot: EndLabel(%q) closes section %q", name, lbl.Name))
	}
	lbl.Size = s.cursor - lbl.Offset

	if s.mode == Load && s.err == nil && idx < len(s.expect) && s.expect[idx] != *lbl {
		s.fail(fmt.Errorf("%w: section %q at %d+%d, expected %d+%d", ErrCorruptState,
			name, lbl.Offset, lbl.Size, s.expect[idx].Offset, s.expect[idx].Size))
	}
}

// Blob returns the state written so far. It must be called after all
// sections are closed.
func (s *Serializer) Blob() (*StateBlob, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(s.open) != 0 {
		panic(fmt.Sprintf("snapshot: section %q left open", s.labels[s.open[len(s.open)-1]].Name))
	}
	blob := &StateBlob{
		Data:   make([]byte, s.cursor),
		Labels: make([]Label, len(s.labels)),
	}
	copy(blob.Data, s.buf[:s.cursor])
	copy(blob.Labels, s.labels)
	return blob, nil
}

// Finish checks that a Load consumed the whole state and returns the first
// error encountered, if any.
func (s *Serializer) Finish() error {
	if s.err != nil {
		return s.err
	}
	if s.mode == Load {
		if s.cursor != len(s.buf) {
			return fmt.Errorf("%w: %d trailing bytes", ErrCorruptState, len(s.buf)-s.cursor)
		}
		if len(s.labels) != len(s.expect) {
			return fmt.Errorf("%w: %d sections, expected %d", ErrCorruptState, len(s.labels), len(s.expect))
		}
	}
	return nil
}
