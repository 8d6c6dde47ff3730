package zfp

import (
	"bytes"
	"log/slog"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smoothField(shape []int) []float64 {
	n := 1
	for _, s := range shape {
		n *= s
	}
	data := make([]float64, n)
	for i := range data {
		v, rest := 0.0, i
		for axis, s := range shape {
			c := float64(rest % s)
			rest /= s
			v += math.Sin(c*0.21 + float64(axis))
		}
		data[i] = v
	}
	return data
}

func TestCompress_ReversibleRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	t.Run("float64 3d", func(t *testing.T) {
		shape := []int{7, 5, 6}
		data := smoothField(shape)
		data[3] = math.NaN()
		data[17] = math.Inf(-1)
		a, err := Compress(data, shape, nil)
		require.NoError(t, err)
		out := make([]float64, len(data))
		require.NoError(t, Decompress(a, out))
		assert.Equal(t, float64Bits(data), float64Bits(out))
	})

	t.Run("float32 4d", func(t *testing.T) {
		shape := []int{5, 4, 3, 2}
		data := make([]float32, 5*4*3*2)
		for i := range data {
			data[i] = float32(rng.NormFloat64())
		}
		a, err := Compress(data, shape, &Options{Workers: 3})
		require.NoError(t, err)
		out := make([]float32, len(data))
		require.NoError(t, Decompress(a, out))
		assert.Equal(t, data, out)
	})

	t.Run("int32 1d", func(t *testing.T) {
		data := make([]int32, 37)
		for i := range data {
			data[i] = int32(rng.Uint32())
		}
		a, err := Compress(data, []int{37}, &Options{Params: Reversible(), Workers: 1})
		require.NoError(t, err)
		assert.Equal(t, 10, a.BlockCount())
		out := make([]int32, len(data))
		require.NoError(t, Decompress(a, out))
		assert.Equal(t, data, out)
	})

	t.Run("int64 2d", func(t *testing.T) {
		data := make([]int64, 81)
		for i := range data {
			data[i] = int64(rng.Uint64())
		}
		a, err := Compress(data, []int{9, 9}, nil)
		require.NoError(t, err)
		out := make([]int64, len(data))
		require.NoError(t, Decompress(a, out))
		assert.Equal(t, data, out)
	})
}

func TestCompress_WorkersAgree(t *testing.T) {
	shape := []int{17, 13, 9}
	data := smoothField(shape)

	serial, err := Compress(data, shape, &Options{Params: FixedAccuracy(1e-4), Workers: 1})
	require.NoError(t, err)
	parallel, err := Compress(data, shape, &Options{Params: FixedAccuracy(1e-4), Workers: 8})
	require.NoError(t, err)

	assert.Equal(t, serial.CompressedBits(), parallel.CompressedBits())
	assert.Equal(t, serial.CompressedData(), parallel.CompressedData())
	for i := 0; i <= serial.BlockCount(); i++ {
		assert.Equal(t, serial.BlockOffset(i), parallel.BlockOffset(i))
	}
}

func TestCompress_FixedRate(t *testing.T) {
	shape := []int{8, 8, 8}
	data := smoothField(shape)
	p := FixedRate(TypeFloat64, 3, 8)
	a, err := Compress(data, shape, &Options{Params: p})
	require.NoError(t, err)

	assert.Equal(t, 512, p.MaxBits)
	assert.Equal(t, uint64(8*512), a.CompressedBits())
	for i := 0; i < a.BlockCount(); i++ {
		assert.Equal(t, uint64(i*512), a.BlockOffset(i))
	}

	out := make([]float64, len(data))
	require.NoError(t, Decompress(a, out))
	for i := range data {
		assert.InDelta(t, data[i], out[i], 1e-2)
	}
}

func TestCompress_FixedAccuracy(t *testing.T) {
	shape := []int{21, 11, 6}
	data := smoothField(shape)
	for _, tol := range []float64{1e-2, 1e-5} {
		a, err := Compress(data, shape, &Options{Params: FixedAccuracy(tol)})
		require.NoError(t, err)
		out := make([]float64, len(data))
		require.NoError(t, Decompress(a, out))
		for i := range data {
			assert.InDelta(t, data[i], out[i], tol)
		}
	}
}

func TestCompress_NonFinite(t *testing.T) {
	data := []float32{1, 2, float32(math.NaN()), 4, 5}
	_, err := Compress(data, []int{5}, &Options{Params: FixedPrecision(10)})
	assert.ErrorIs(t, err, ErrNonFinite)
}

func TestCompress_ShapeErrors(t *testing.T) {
	data := make([]float32, 16)

	_, err := Compress(data, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidDims)
	_, err = Compress(data, []int{1, 1, 1, 1, 16}, nil)
	assert.ErrorIs(t, err, ErrInvalidDims)
	_, err = Compress(data, []int{0, 16}, nil)
	assert.ErrorIs(t, err, ErrShape)
	_, err = Compress(data, []int{4, 5}, nil)
	assert.ErrorIs(t, err, ErrShape)
	_, err = Compress(data, []int{16}, &Options{Params: Params{MaxBits: 3, MaxPrec: 8}})
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestDecompress_Errors(t *testing.T) {
	a, err := Compress(make([]float64, 16), []int{4, 4}, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, Decompress(a, make([]float32, 16)), ErrTypeMismatch)
	assert.ErrorIs(t, Decompress(a, make([]float64, 15)), ErrShape)
	assert.ErrorIs(t, a.Check(TypeFloat64, 3), ErrDimsMismatch)
	assert.NoError(t, a.Check(TypeFloat64, 2))
	assert.ErrorIs(t, DecompressBlock(a, 1, make([]float64, 16)), ErrShape)
}

func TestDecompressBlock(t *testing.T) {
	shape := []int{6, 3}
	data := make([]int32, 18)
	for i := range data {
		data[i] = int32(i * 7)
	}
	a, err := Compress(data, shape, nil)
	require.NoError(t, err)
	require.Equal(t, 2, a.BlockCount())

	// Block 1 covers x in [4, 6) and y in [0, 3).
	block := make([]int32, 16)
	require.NoError(t, DecompressBlock(a, 1, block))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			sx, sy := 4+min(x, 1), min(y, 2)
			assert.Equal(t, data[sy*6+sx], block[y*4+x], "x=%d y=%d", x, y)
		}
	}
}

func TestConstruct(t *testing.T) {
	shape := []int{13, 7}
	data := smoothField(shape)

	for _, p := range []Params{Reversible(), FixedAccuracy(1e-3), FixedRate(TypeFloat64, 2, 12)} {
		t.Run(p.Mode().String(), func(t *testing.T) {
			a, err := Compress(data, shape, &Options{Params: p})
			require.NoError(t, err)

			b, err := Construct(a.Header(), a.CompressedData())
			require.NoError(t, err)
			assert.Equal(t, a.Header(), b.Header())
			for i := 0; i <= a.BlockCount(); i++ {
				assert.Equal(t, a.BlockOffset(i), b.BlockOffset(i))
			}

			want := make([]float64, len(data))
			got := make([]float64, len(data))
			require.NoError(t, Decompress(a, want))
			require.NoError(t, Decompress(b, got))
			assert.Equal(t, want, got)
		})
	}
}

func TestCompress_DefaultOptions(t *testing.T) {
	data := []float32{1, 2, 3, 4, 5}
	want := DefaultOptions().Params

	a, err := Compress(data, []int{5}, nil)
	require.NoError(t, err)
	assert.Equal(t, want, a.Header().Params)

	a, err = Compress(data, []int{5}, &Options{Workers: 2})
	require.NoError(t, err)
	assert.Equal(t, want, a.Header().Params)
}

func TestConstruct_EmptyIntBlocks(t *testing.T) {
	data := make([]int32, 16)
	for i := range data {
		data[i] = int32(1000 * i)
	}
	a, err := Compress(data, []int{16}, &Options{Params: FixedAccuracy(math.Ldexp(1, 40))})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), a.CompressedBits())

	want := make([]int32, len(data))
	require.NoError(t, Decompress(a, want))

	b, err := Construct(a.Header(), a.CompressedData())
	require.NoError(t, err)
	assert.Equal(t, a.Header(), b.Header())
	assert.Equal(t, uint64(0), b.BlockOffset(3))
	got := make([]int32, len(data))
	require.NoError(t, Decompress(b, got))
	assert.Equal(t, want, got)

	var buf bytes.Buffer
	_, err = a.WriteTo(&buf)
	require.NoError(t, err)
	c, err := ReadArray(&buf, nil)
	require.NoError(t, err)
	assert.Equal(t, a.Header(), c.Header())
	got = make([]int32, len(data))
	require.NoError(t, Decompress(c, got))
	assert.Equal(t, want, got)

	// Equally long blocks must account for the whole payload.
	h := a.Header()
	h.Bits = 8
	_, err = Construct(h, make([]byte, 8))
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestConstruct_Corrupt(t *testing.T) {
	shape := []int{9, 9}
	data := smoothField(shape)
	a, err := Compress(data, shape, &Options{Params: FixedAccuracy(1e-3)})
	require.NoError(t, err)

	h := a.Header()
	h.Bits++
	_, err = Construct(h, append(a.CompressedData(), make([]byte, 8)...))
	assert.ErrorIs(t, err, ErrCorrupt)

	h = a.Header()
	_, err = Construct(h, a.CompressedData()[:4])
	assert.ErrorIs(t, err, ErrCorrupt)

	h.Type = TypeNone
	_, err = Construct(h, a.CompressedData())
	assert.ErrorIs(t, err, ErrInvalidHeader)
}

func TestWriteToReadArray(t *testing.T) {
	shape := []int{5, 6, 7}
	data := make([]float32, 5*6*7)
	for i := range data {
		data[i] = float32(i%11) * 0.5
	}
	a, err := Compress(data, shape, &Options{Params: FixedPrecision(20)})
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := a.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	assert.Equal(t, "zfp", buf.String()[:3])

	b, err := ReadArray(bytes.NewReader(buf.Bytes()), nil)
	require.NoError(t, err)
	assert.Equal(t, a.Header(), b.Header())
	assert.Equal(t, TypeFloat32, b.Type())
	assert.Equal(t, 3, b.Dims())
	assert.Equal(t, shape, b.Shape())
	assert.Equal(t, ModeFixedPrecision, b.Params().Mode())

	want := make([]float32, len(data))
	got := make([]float32, len(data))
	require.NoError(t, Decompress(a, want))
	require.NoError(t, Decompress(b, got))
	assert.Equal(t, want, got)

	_, err = ReadArray(bytes.NewReader(buf.Bytes()[:buf.Len()-1]), nil)
	assert.Error(t, err)
	_, err = ReadArray(bytes.NewReader(buf.Bytes()[:10]), nil)
	assert.Error(t, err)
}

func TestReadHeader(t *testing.T) {
	a, err := Compress(make([]int64, 40), []int{10, 4}, &Options{Params: FixedPrecision(12)})
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = a.WriteTo(&buf)
	require.NoError(t, err)

	h, err := ReadHeader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, TypeInt64, h.Type)
	assert.Equal(t, []int{10, 4}, h.Shape)
	assert.Equal(t, FixedPrecision(12), h.Params)
	assert.Equal(t, a.CompressedBits(), h.Bits)

	_, err = ReadHeader(bytes.NewReader([]byte("zfq")))
	assert.Error(t, err)
}

func TestCompress_Logging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	a, err := Compress(make([]float64, 64), []int{4, 4, 4}, &Options{Logger: logger})
	require.NoError(t, err)
	require.NoError(t, Decompress(a, make([]float64, 64)))
	assert.Contains(t, buf.String(), "compressed array")
	assert.Contains(t, buf.String(), "mode=reversible")
}

func BenchmarkCompress3D(b *testing.B) {
	shape := []int{64, 64, 64}
	data := smoothField(shape)
	opts := &Options{Params: FixedAccuracy(1e-6)}

	b.SetBytes(int64(8 * len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Compress(data, shape, opts); err != nil {
			b.Fatal(err)
		}
	}
}
