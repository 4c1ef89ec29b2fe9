// package ines implements a Reader for roms in the iNES file format, used for
// the distribution of NES binary programs.
package ines

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrMalformedROM is returned when a rom header or its sections can't be
// decoded.
var ErrMalformedROM = errors.New("malformed rom")

type Rom struct {
	header
	Trainer []byte // Trainer, 512 bytes if present, or empty.
	PRGROM  []byte // PRGROM data (length is multiple of 16k)
	CHRROM  []byte // CHRROM data (length is multiple of 8k, empty means CHR RAM)
}

// Open loads a rom from file.
func Open(path string) (*Rom, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rom := new(Rom)
	if _, err := rom.ReadFrom(f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rom, nil
}

// Decode decodes a rom from an in-memory iNES image.
func Decode(buf []byte) (*Rom, error) {
	rom := new(Rom)
	if err := rom.decode(buf); err != nil {
		return nil, err
	}
	return rom, nil
}

// ReadFrom implements io.ReaderFrom interface
func (rom *Rom) ReadFrom(r io.Reader) (int64, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	if err := rom.decode(buf); err != nil {
		return 0, err
	}
	return int64(len(buf)), nil
}

func (rom *Rom) decode(buf []byte) error {
	// header
	var off int
	if err := rom.header.decode(buf); err != nil {
		return fmt.Errorf("%w: failed to decode header: %w", ErrMalformedROM, err)
	}
	off += 16

	// trainer
	if rom.HasTrainer() {
		if len(buf) < off+512 {
			return fmt.Errorf("%w: incomplete TRAINER section", ErrMalformedROM)
		}
		rom.Trainer = buf[off : off+512]
		off += 512
	}

	// PRG rom data
	if len(buf) < off+rom.prgsz {
		return fmt.Errorf("%w: incomplete PRG section", ErrMalformedROM)
	}
	rom.PRGROM = buf[off : off+rom.prgsz]
	off += rom.prgsz

	// CHR rom data
	if len(buf) < off+rom.chrsz {
		return fmt.Errorf("%w: incomplete CHR section", ErrMalformedROM)
	}
	rom.CHRROM = buf[off : off+rom.chrsz]
	return nil
}

const Magic = "NES\x1a"

func (hdr *header) decode(p []byte) error {
	if len(p) < 16 {
		return fmt.Errorf("too small, needs 16 bytes")
	}
	if string(p[:4]) != Magic {
		return fmt.Errorf("invalid magic number")
	}
	copy(hdr.raw[:], p[:16])

	hdr.prgsz = int(hdr.raw[4]) * 16384
	hdr.chrsz = int(hdr.raw[5]) * 8192
	if hdr.prgsz == 0 {
		return fmt.Errorf("no PRG ROM")
	}
	return nil
}

type header struct {
	raw   [16]byte
	prgsz int
	chrsz int
}

// Header returns the raw 16-byte header.
func (hdr *header) Header() [16]byte {
	return hdr.raw
}

// PRGBanks returns the number of 16KB PRG ROM banks.
func (hdr *header) PRGBanks() int { return int(hdr.raw[4]) }

// CHRBanks returns the number of 8KB CHR ROM banks, 0 means CHR RAM.
func (hdr *header) CHRBanks() int { return int(hdr.raw[5]) }

// HasTrainer indicates the presence of a trainer section in the rom.
func (hdr *header) HasTrainer() bool {
	return hdr.raw[6]&0x04 != 0
}

// HasPersistent indicates the presence of persistent memory in the rom.
func (hdr *header) HasPersistent() bool {
	return hdr.raw[6]&0x02 != 0
}

func (hdr *header) IsNES20() bool {
	return hdr.raw[7]&0x0C == 0x08
}

// Mapper returns the mapper number.
func (hdr *header) Mapper() uint16 {
	lo := uint16(hdr.raw[6] >> 4)
	// Some dumps carry garbage in bytes 7-15 ("DiskDude!"), in that case
	// only the lower nibble is meaningful.
	if !hdr.IsNES20() && hdr.raw[7]&0x0C == 0 && (hdr.raw[12]|hdr.raw[13]|hdr.raw[14]|hdr.raw[15]) != 0 {
		return lo
	}
	m := lo | uint16(hdr.raw[7]&0xF0)
	if hdr.IsNES20() {
		m |= uint16(hdr.raw[8]&0x0F) << 8
	}
	return m
}

// SubMapper returns the NES 2.0 submapper number, or 0.
func (hdr *header) SubMapper() uint8 {
	if !hdr.IsNES20() {
		return 0
	}
	return hdr.raw[8] >> 4
}

// PRGRAMSize returns the size of the PRG RAM, in bytes.
func (hdr *header) PRGRAMSize() int {
	if hdr.IsNES20() {
		shift := hdr.raw[10] & 0x0F
		if shift == 0 {
			return 0
		}
		return 64 << shift
	}
	// iNES 1.0: 0 infers 8KB for compatibility.
	if hdr.raw[8] == 0 {
		return 0x2000
	}
	return int(hdr.raw[8]) * 0x2000
}

// Mirroring returns the nametable mirroring hardwired on the cartridge.
func (hdr *header) Mirroring() NTMirroring {
	if hdr.raw[6]&0x08 != 0 {
		return FourScreen
	}
	if hdr.raw[6]&0x01 != 0 {
		return VertMirroring
	}
	return HorzMirroring
}

func (hdr *header) String() string {
	return fmt.Sprintf("mapper=%d prg=%dx16KB chr=%dx8KB mirroring=%s battery=%t trainer=%t",
		hdr.Mapper(), hdr.PRGBanks(), hdr.CHRBanks(), hdr.Mirroring(), hdr.HasPersistent(), hdr.HasTrainer())
}

//go:generate go tool stringer -type=NTMirroring
type NTMirroring uint8

const (
	HorzMirroring NTMirroring = iota
	VertMirroring
	FourScreen
	OnlyAScreen
	OnlyBScreen
)

// New builds a rom from its parts. Only the mirroring modes hardwired on
// cartridges (horizontal, vertical and four-screen) are representable.
func New(mapper uint16, mirroring NTMirroring, prg, chr []byte) *Rom {
	rom := &Rom{PRGROM: prg, CHRROM: chr}
	copy(rom.raw[:], Magic)
	rom.raw[4] = uint8(len(prg) / 16384)
	rom.raw[5] = uint8(len(chr) / 8192)
	rom.raw[6] = uint8(mapper&0x0F) << 4
	rom.raw[7] = uint8(mapper & 0xF0)
	switch mirroring {
	case VertMirroring:
		rom.raw[6] |= 0x01
	case FourScreen:
		rom.raw[6] |= 0x08
	}
	rom.prgsz = len(prg)
	rom.chrsz = len(chr)
	return rom
}

// Encode returns the iNES image of the rom.
func (rom *Rom) Encode() []byte {
	buf := make([]byte, 0, 16+len(rom.Trainer)+len(rom.PRGROM)+len(rom.CHRROM))
	buf = append(buf, rom.raw[:]...)
	buf = append(buf, rom.Trainer...)
	buf = append(buf, rom.PRGROM...)
	buf = append(buf, rom.CHRROM...)
	return buf
}
