// Package codestream reads and writes the header that frames a compressed array.
//
// All fields are bit-packed most significant bit first:
//
//	magic    24  "zfp"
//	version   8
//	type      4  scalar type tag
//	dims      4  1-4
//	shape    32  per axis, dims times
//	minbits  32
//	maxbits  32
//	maxprec   8
//	minexp   16  two's complement
//	bits     64  payload size in bits
//
// The header always ends on a byte boundary.
package codestream

import (
	"errors"
	"fmt"
	"io"

	"github.com/icza/bitio"
)

// Version is the current header version.
const Version = 1

// Magic identifies a compressed array stream.
const Magic = "zfp"

// ErrInvalidHeader is returned for malformed or inconsistent headers.
var ErrInvalidHeader = errors.New("invalid header")

// Scalar type tags.
const (
	TypeInt32   = 1
	TypeInt64   = 2
	TypeFloat32 = 3
	TypeFloat64 = 4
)

// Header describes a compressed array.
type Header struct {
	Type  uint8     // Scalar type tag
	Dims  uint8     // Dimensionality (1-4)
	Shape [4]uint32 // Extents per axis, x first; unused axes are 0

	// Rate control parameters
	MinBits uint32
	MaxBits uint32
	MaxPrec uint8
	MinExp  int16

	// Compressed payload size in bits
	Bits uint64
}

// Size returns the encoded header length in bytes.
func (h *Header) Size() int {
	return (24 + 8 + 4 + 4 + 32*int(h.Dims) + 32 + 32 + 8 + 16 + 64) / 8
}

// Validate checks the header fields for consistency.
func (h *Header) Validate() error {
	if h.Type < TypeInt32 || h.Type > TypeFloat64 {
		return fmt.Errorf("%w: scalar type %d", ErrInvalidHeader, h.Type)
	}
	if h.Dims < 1 || h.Dims > 4 {
		return fmt.Errorf("%w: dimensionality %d", ErrInvalidHeader, h.Dims)
	}
	for axis := 0; axis < 4; axis++ {
		if axis < int(h.Dims) && h.Shape[axis] == 0 {
			return fmt.Errorf("%w: zero extent on axis %d", ErrInvalidHeader, axis)
		}
		if axis >= int(h.Dims) && h.Shape[axis] != 0 {
			return fmt.Errorf("%w: extent on unused axis %d", ErrInvalidHeader, axis)
		}
	}
	if h.MaxBits == 0 || h.MinBits > h.MaxBits {
		return fmt.Errorf("%w: bit range [%d, %d]", ErrInvalidHeader, h.MinBits, h.MaxBits)
	}
	if h.MaxPrec == 0 || h.MaxPrec > 64 {
		return fmt.Errorf("%w: precision %d", ErrInvalidHeader, h.MaxPrec)
	}
	return nil
}

// WriteHeader writes h to w.
func WriteHeader(w io.Writer, h *Header) error {
	if err := h.Validate(); err != nil {
		return err
	}

	bw := bitio.NewWriter(w)
	for i := 0; i < len(Magic); i++ {
		bw.TryWriteBits(uint64(Magic[i]), 8)
	}
	bw.TryWriteBits(Version, 8)
	bw.TryWriteBits(uint64(h.Type), 4)
	bw.TryWriteBits(uint64(h.Dims), 4)
	for axis := 0; axis < int(h.Dims); axis++ {
		bw.TryWriteBits(uint64(h.Shape[axis]), 32)
	}
	bw.TryWriteBits(uint64(h.MinBits), 32)
	bw.TryWriteBits(uint64(h.MaxBits), 32)
	bw.TryWriteBits(uint64(h.MaxPrec), 8)
	bw.TryWriteBits(uint64(uint16(h.MinExp)), 16)
	bw.TryWriteBits(h.Bits, 64)
	if bw.TryError != nil {
		return fmt.Errorf("failed to write header: %w", bw.TryError)
	}
	if err := bw.Close(); err != nil {
		return fmt.Errorf("failed to flush header: %w", err)
	}
	return nil
}

// ReadHeader reads a header from r. Exactly Size bytes are consumed when r
// implements io.ByteReader; otherwise r is buffered and may be read past the
// header.
func ReadHeader(r io.Reader) (*Header, error) {
	br := bitio.NewReader(r)

	var magic [3]byte
	for i := range magic {
		magic[i] = byte(br.TryReadBits(8))
	}
	version := br.TryReadBits(8)
	if br.TryError != nil {
		return nil, fmt.Errorf("failed to read header: %w", br.TryError)
	}
	if string(magic[:]) != Magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrInvalidHeader, magic[:])
	}
	if version != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidHeader, version)
	}

	h := &Header{}
	h.Type = uint8(br.TryReadBits(4))
	h.Dims = uint8(br.TryReadBits(4))
	if br.TryError != nil {
		return nil, fmt.Errorf("failed to read header: %w", br.TryError)
	}
	if h.Dims < 1 || h.Dims > 4 {
		return nil, fmt.Errorf("%w: dimensionality %d", ErrInvalidHeader, h.Dims)
	}
	for axis := 0; axis < int(h.Dims); axis++ {
		h.Shape[axis] = uint32(br.TryReadBits(32))
	}
	h.MinBits = uint32(br.TryReadBits(32))
	h.MaxBits = uint32(br.TryReadBits(32))
	h.MaxPrec = uint8(br.TryReadBits(8))
	h.MinExp = int16(uint16(br.TryReadBits(16)))
	h.Bits = br.TryReadBits(64)
	if br.TryError != nil {
		return nil, fmt.Errorf("failed to read header: %w", br.TryError)
	}
	if err := h.Validate(); err != nil {
		return nil, err
	}
	return h, nil
}
