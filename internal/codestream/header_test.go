package codestream

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validHeader() *Header {
	return &Header{
		Type:    TypeFloat64,
		Dims:    3,
		Shape:   [4]uint32{10, 20, 30},
		MinBits: 1024,
		MaxBits: 1024,
		MaxPrec: 64,
		MinExp:  -1074,
		Bits:    123456,
	}
}

func TestHeader_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		h    *Header
	}{
		{"float64 3d", validHeader()},
		{"int32 1d", &Header{Type: TypeInt32, Dims: 1, Shape: [4]uint32{1}, MinBits: 0, MaxBits: 22099, MaxPrec: 32, MinExp: -1075}},
		{"float32 4d", &Header{Type: TypeFloat32, Dims: 4, Shape: [4]uint32{4, 5, 6, 7}, MinBits: 1, MaxBits: 9000, MaxPrec: 16, MinExp: -7, Bits: 1 << 40}},
		{"positive minexp", &Header{Type: TypeInt64, Dims: 2, Shape: [4]uint32{0xFFFFFFFF, 3}, MinBits: 6, MaxBits: 6, MaxPrec: 64, MinExp: 300}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteHeader(&buf, tt.h))
			assert.Equal(t, tt.h.Size(), buf.Len())

			got, err := ReadHeader(&buf)
			require.NoError(t, err)
			assert.Equal(t, tt.h, got)
		})
	}
}

func TestHeader_Layout(t *testing.T) {
	var buf bytes.Buffer
	h := &Header{Type: TypeFloat32, Dims: 1, Shape: [4]uint32{0x01020304}, MinBits: 5, MaxBits: 6, MaxPrec: 7, MinExp: -2, Bits: 9}
	require.NoError(t, WriteHeader(&buf, h))
	b := buf.Bytes()
	assert.Equal(t, []byte("zfp"), b[:3])
	assert.Equal(t, byte(Version), b[3])
	assert.Equal(t, byte(TypeFloat32<<4|1), b[4])
	assert.Equal(t, []byte{1, 2, 3, 4}, b[5:9])
	assert.Equal(t, []byte{0, 0, 0, 5}, b[9:13])
	assert.Equal(t, []byte{0, 0, 0, 6}, b[13:17])
	assert.Equal(t, byte(7), b[17])
	assert.Equal(t, []byte{0xFF, 0xFE}, b[18:20])
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 9}, b[20:28])
	assert.Len(t, b, 28)
}

func TestHeader_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(h *Header)
	}{
		{"no type", func(h *Header) { h.Type = 0 }},
		{"unknown type", func(h *Header) { h.Type = 9 }},
		{"zero dims", func(h *Header) { h.Dims = 0 }},
		{"five dims", func(h *Header) { h.Dims = 5 }},
		{"zero extent", func(h *Header) { h.Shape[1] = 0 }},
		{"unused extent", func(h *Header) { h.Shape[3] = 2 }},
		{"zero maxbits", func(h *Header) { h.MaxBits = 0; h.MinBits = 0 }},
		{"min above max", func(h *Header) { h.MinBits = h.MaxBits + 1 }},
		{"zero precision", func(h *Header) { h.MaxPrec = 0 }},
		{"precision too large", func(h *Header) { h.MaxPrec = 65 }},
	}

	require.NoError(t, validHeader().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := validHeader()
			tt.modify(h)
			assert.ErrorIs(t, h.Validate(), ErrInvalidHeader)
			assert.ErrorIs(t, WriteHeader(io.Discard, h), ErrInvalidHeader)
		})
	}
}

func TestReadHeader_Errors(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHeader(&buf, validHeader()))
	good := buf.Bytes()

	t.Run("bad magic", func(t *testing.T) {
		data := append([]byte("zpf"), good[3:]...)
		_, err := ReadHeader(bytes.NewReader(data))
		assert.ErrorIs(t, err, ErrInvalidHeader)
	})

	t.Run("bad version", func(t *testing.T) {
		data := append([]byte(nil), good...)
		data[3] = Version + 1
		_, err := ReadHeader(bytes.NewReader(data))
		assert.ErrorIs(t, err, ErrInvalidHeader)
	})

	t.Run("bad dims", func(t *testing.T) {
		data := append([]byte(nil), good...)
		data[4] = TypeFloat64<<4 | 7
		_, err := ReadHeader(bytes.NewReader(data))
		assert.ErrorIs(t, err, ErrInvalidHeader)
	})

	t.Run("truncated", func(t *testing.T) {
		for n := 0; n < len(good); n++ {
			_, err := ReadHeader(bytes.NewReader(good[:n]))
			require.Error(t, err, "length %d", n)
			assert.False(t, errors.Is(err, ErrInvalidHeader) && n > 5, "length %d should fail on I/O", n)
		}
	})
}

func TestReadHeader_LeavesPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHeader(&buf, validHeader()))
	buf.WriteString("payload")

	r := bufio.NewReader(&buf)
	_, err := ReadHeader(r)
	require.NoError(t, err)
	rest, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(rest))
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) {
	return 0, errors.New("write error")
}

func TestWriteHeader_WriterError(t *testing.T) {
	err := WriteHeader(failWriter{}, validHeader())
	assert.Error(t, err)
}
