package snapshot

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	Magic   = "NSST"
	Version = 1
)

// A StateBlob is a complete, self-contained save-state.
type StateBlob struct {
	Frame  uint64 // frame at which the state was taken
	Data   []byte
	Labels []Label
}

// Section returns the bytes of the named section, or nil if there's no such
// section.
func (b *StateBlob) Section(name string) []byte {
	for _, l := range b.Labels {
		if l.Name == name {
			return b.Data[l.Offset : l.Offset+l.Size]
		}
	}
	return nil
}

type fileHeader struct {
	Magic   [4]byte
	Version uint16
	NLabels uint16
	Frame   uint64
	DataLen uint32
}

// WriteTo implements io.WriterTo. The format is a fixed header, the list of
// labels then the raw data.
func (b *StateBlob) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	hdr := fileHeader{
		Version: Version,
		NLabels: uint16(len(b.Labels)),
		Frame:   b.Frame,
		DataLen: uint32(len(b.Data)),
	}
	copy(hdr.Magic[:], Magic)
	binary.Write(&buf, binary.LittleEndian, &hdr)

	for _, l := range b.Labels {
		buf.WriteByte(uint8(len(l.Name)))
		buf.WriteString(l.Name)
		binary.Write(&buf, binary.LittleEndian, uint32(l.Offset))
		binary.Write(&buf, binary.LittleEndian, uint32(l.Size))
	}
	buf.Write(b.Data)
	return buf.WriteTo(w)
}

// ReadFrom implements io.ReaderFrom.
func (b *StateBlob) ReadFrom(r io.Reader) (int64, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	if err := b.decode(raw); err != nil {
		return 0, err
	}
	return int64(len(raw)), nil
}

func (b *StateBlob) decode(raw []byte) error {
	rd := bytes.NewReader(raw)

	var hdr fileHeader
	if err := binary.Read(rd, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("%w: header: %w", ErrCorruptState, err)
	}
	if string(hdr.Magic[:]) != Magic {
		return fmt.Errorf("%w: invalid magic %q", ErrCorruptState, hdr.Magic[:])
	}
	if hdr.Version != Version {
		return fmt.Errorf("%w: unsupported version %d", ErrCorruptState, hdr.Version)
	}

	labels := make([]Label, hdr.NLabels)
	for i := range labels {
		n, err := rd.ReadByte()
		if err != nil {
			return fmt.Errorf("%w: label %d: %w", ErrCorruptState, i, err)
		}
		name := make([]byte, n)
		if _, err := io.ReadFull(rd, name); err != nil {
			return fmt.Errorf("%w: label %d: %w", ErrCorruptState, i, err)
		}
		var off, size uint32
		if err := binary.Read(rd, binary.LittleEndian, &off); err != nil {
			return fmt.Errorf("%w: label %d: %w", ErrCorruptState, i, err)
		}
		if err := binary.Read(rd, binary.LittleEndian, &size); err != nil {
			return fmt.Errorf("%w: label %d: %w", ErrCorruptState, i, err)
		}
		if uint64(off)+uint64(size) > uint64(hdr.DataLen) {
			return fmt.Errorf("%w: label %q out of bounds", ErrCorruptState, name)
		}
		labels[i] = Label{Name: string(name), Offset: int(off), Size: int(size)}
	}

	if rd.Len() != int(hdr.DataLen) {
		return fmt.Errorf("%w: data length %d, expected %d", ErrCorruptState, rd.Len(), hdr.DataLen)
	}
	data := make([]byte, hdr.DataLen)
	io.ReadFull(rd, data)

	b.Frame = hdr.Frame
	b.Data = data
	b.Labels = labels
	return nil
}

func (b *StateBlob) Clone() *StateBlob {
	c := &StateBlob{
		Frame:  b.Frame,
		Data:   make([]byte, len(b.Data)),
		Labels: make([]Label, len(b.Labels)),
	}
	copy(c.Data, b.Data)
	copy(c.Labels, b.Labels)
	return c
}
