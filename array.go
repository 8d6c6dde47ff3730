package zfp

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"runtime"
	"sync"

	"github.com/mrjoshuak/go-zfp/bitstream"
	"github.com/mrjoshuak/go-zfp/internal/codestream"
	"github.com/mrjoshuak/go-zfp/internal/tile"
)

// maxSamples bounds the size of an array.
const maxSamples = 1 << 48

// Options holds the compression options.
type Options struct {
	// Params selects the rate control policy. The zero value selects
	// Reversible().
	Params Params

	// Workers is the number of goroutines coding blocks in parallel.
	// 0 means GOMAXPROCS.
	Workers int

	// Logger receives debug output. nil discards it.
	Logger *slog.Logger
}

// DefaultOptions returns the default compression options.
func DefaultOptions() *Options {
	return &Options{Params: Reversible()}
}

func (o *Options) params() Params {
	if o == nil || o.Params == (Params{}) {
		return DefaultOptions().Params
	}
	return o.Params
}

func (o *Options) workers() int {
	if o == nil || o.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return o.Workers
}

func (o *Options) logger() *slog.Logger {
	if o == nil || o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}

// Header describes a compressed array: everything needed besides the payload
// to decode it.
type Header struct {
	// Type is the scalar type of the samples.
	Type ScalarType

	// Shape holds the extent of each axis, x first. Its length is the
	// dimensionality.
	Shape []int

	// Params are the rate control parameters the blocks were coded with.
	Params Params

	// Bits is the payload size in bits.
	Bits uint64
}

// Validate checks the header for consistency.
func (h Header) Validate() error {
	if !h.Type.valid() {
		return fmt.Errorf("%w: scalar type %d", ErrInvalidHeader, int(h.Type))
	}
	if len(h.Shape) < 1 || len(h.Shape) > MaxDims {
		return fmt.Errorf("%w: %d", ErrInvalidDims, len(h.Shape))
	}
	samples := 1
	for axis, n := range h.Shape {
		if n < 1 || uint64(n) > math.MaxUint32 {
			return fmt.Errorf("%w: extent %d on axis %d", ErrShape, n, axis)
		}
		if samples > maxSamples/n {
			return fmt.Errorf("%w: more than %d samples", ErrShape, maxSamples)
		}
		samples *= n
	}
	if err := h.Params.Validate(); err != nil {
		return err
	}
	if need := minBits(h.Type, h.Params); h.Params.MaxBits < need {
		return fmt.Errorf("%w: maxbits %d below %s block header of %d bits", ErrInvalidParams, h.Params.MaxBits, h.Type, need)
	}
	return nil
}

// Array is a compressed array: a sequence of independently coded blocks with
// the bit offset of each block.
type Array struct {
	typ      ScalarType
	shape    []int
	params   Params
	grid     tile.Grid
	words    []uint64
	bits     uint64
	offsets  []uint64 // Bit offset of each block, plus the end; nil when blockLen applies
	blockLen uint64   // Length of every block when offsets is nil
	workers  int
	logger   *slog.Logger
}

// Type returns the scalar type of the samples.
func (a *Array) Type() ScalarType { return a.typ }

// Dims returns the dimensionality.
func (a *Array) Dims() int { return len(a.shape) }

// Shape returns the extent of each axis.
func (a *Array) Shape() []int { return append([]int(nil), a.shape...) }

// Params returns the rate control parameters.
func (a *Array) Params() Params { return a.params }

// BlockCount returns the number of blocks.
func (a *Array) BlockCount() int { return a.grid.Count() }

// BlockOffset returns the bit offset of block i within the payload.
func (a *Array) BlockOffset(i int) uint64 { return a.offset(i) }

func (a *Array) offset(i int) uint64 {
	if a.offsets == nil {
		return uint64(i) * a.blockLen
	}
	return a.offsets[i]
}

// CompressedBits returns the payload size in bits.
func (a *Array) CompressedBits() uint64 { return a.bits }

// CompressedSize returns the payload size in bytes, padded to whole words.
func (a *Array) CompressedSize() int { return 8 * len(a.words) }

// CompressedData returns the payload as little-endian words.
func (a *Array) CompressedData() []byte {
	data := make([]byte, 8*len(a.words))
	for i, word := range a.words {
		binary.LittleEndian.PutUint64(data[8*i:], word)
	}
	return data
}

// Header returns the array header.
func (a *Array) Header() Header {
	return Header{Type: a.typ, Shape: a.Shape(), Params: a.params, Bits: a.bits}
}

// Check reports whether the array holds samples of type t in dims dimensions.
func (a *Array) Check(t ScalarType, dims int) error {
	if t != a.typ {
		return fmt.Errorf("%w: %s, header has %s", ErrTypeMismatch, t, a.typ)
	}
	if dims != len(a.shape) {
		return fmt.Errorf("%w: %d, header has %d", ErrDimsMismatch, dims, len(a.shape))
	}
	return nil
}

// blockResult is the output of one block job.
type blockResult struct {
	words []uint64
	bits  int
}

// forEachBlock runs fn for every block index, in parallel when worthwhile.
// The first error by block index is returned.
func forEachBlock(count, workers int, fn func(worker, index int) error) error {
	if workers > count {
		workers = count
	}
	errs := make([]error, count)

	// Sequential for small block counts or single-threaded mode
	if count <= 4 || workers <= 1 {
		for i := 0; i < count; i++ {
			if err := fn(0, i); err != nil {
				return fmt.Errorf("block %d: %w", i, err)
			}
		}
		return nil
	}

	// Pre-fill job channel before starting workers to reduce contention
	jobChan := make(chan int, count)
	for i := 0; i < count; i++ {
		jobChan <- i
	}
	close(jobChan)

	var wg sync.WaitGroup
	for worker := 0; worker < workers; worker++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := range jobChan {
				errs[i] = fn(worker, i)
			}
		}(worker)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
	}
	return nil
}

// Compress compresses data, an array of the given shape stored with the x axis
// varying fastest, into an Array. A nil opts uses DefaultOptions.
func Compress[T Scalar](data []T, shape []int, opts *Options) (*Array, error) {
	t := TypeOf[T]()
	p := opts.params()
	h := Header{Type: t, Shape: shape, Params: p}
	if err := h.Validate(); err != nil {
		return nil, err
	}
	grid := tile.NewGrid(shape)
	if len(data) != grid.Samples() {
		return nil, fmt.Errorf("%w: %d samples for shape %v", ErrShape, len(data), shape)
	}

	a := &Array{
		typ:     t,
		shape:   append([]int(nil), shape...),
		params:  p,
		grid:    grid,
		workers: opts.workers(),
		logger:  opts.logger(),
	}
	dims := len(shape)
	count := grid.Count()
	capacity := uint64(BlockBits(t, dims, p))
	workers := min(a.workers, count)

	// Each worker codes into its own scratch buffer.
	scratch := make([][]uint64, max(workers, 1))
	for i := range scratch {
		scratch[i] = make([]uint64, bitstream.Words(capacity))
	}
	results := make([]blockResult, count)
	err := forEachBlock(count, workers, func(worker, i int) error {
		var block [256]T
		tile.Gather(block[:grid.BlockSize()], data, grid, i)
		w := bitstream.NewWriter(scratch[worker])
		bits, err := EncodeBlock(w, block[:grid.BlockSize()], dims, p)
		if err != nil {
			return err
		}
		w.Flush()
		words := make([]uint64, bitstream.Words(uint64(bits)))
		copy(words, scratch[worker])
		results[i] = blockResult{words: words, bits: bits}
		return nil
	})
	if err != nil {
		a.logger.Error("compression failed", "type", t, "shape", shape, "error", err)
		return nil, err
	}

	// Concatenate blocks in order
	var total uint64
	for _, r := range results {
		total += uint64(r.bits)
	}
	a.words = make([]uint64, bitstream.Words(total))
	a.offsets = make([]uint64, count+1)
	w := bitstream.NewWriter(a.words)
	for i, r := range results {
		a.offsets[i] = w.Position()
		w.Copy(bitstream.NewReader(r.words), uint64(r.bits))
	}
	a.offsets[count] = w.Position()
	w.Flush()
	if err := w.Err(); err != nil {
		return nil, err
	}
	a.bits = total

	a.logger.Debug("compressed array",
		"type", t,
		"shape", shape,
		"mode", p.Mode(),
		"blocks", count,
		"workers", workers,
		"bits", total,
		"ratio", float64(len(data)*t.Bits())/float64(max(total, 1)),
	)
	return a, nil
}

// decodeBlockAt decodes block i into block and verifies its length.
func decodeBlockAt[T Scalar](a *Array, i int, block []T) error {
	r := bitstream.NewReader(a.words)
	r.Seek(a.offset(i))
	bits, err := DecodeBlock(r, block, len(a.shape), a.params)
	if err != nil {
		return err
	}
	if want := a.offset(i+1) - a.offset(i); uint64(bits) != want {
		return fmt.Errorf("%w: read %d bits, block has %d", ErrCorrupt, bits, want)
	}
	return nil
}

// Decompress decodes every block of a into dst, which must hold exactly as
// many samples as the array.
func Decompress[T Scalar](a *Array, dst []T) error {
	if err := a.Check(TypeOf[T](), len(a.shape)); err != nil {
		return err
	}
	if len(dst) != a.grid.Samples() {
		return fmt.Errorf("%w: %d samples for shape %v", ErrShape, len(dst), a.shape)
	}

	n := a.grid.BlockSize()
	err := forEachBlock(a.grid.Count(), a.workers, func(_, i int) error {
		var block [256]T
		if err := decodeBlockAt(a, i, block[:n]); err != nil {
			return err
		}
		tile.Scatter(dst, block[:n], a.grid, i)
		return nil
	})
	if err != nil {
		a.logger.Error("decompression failed", "type", a.typ, "shape", a.shape, "error", err)
		return err
	}
	a.logger.Debug("decompressed array", "type", a.typ, "shape", a.shape, "blocks", a.grid.Count())
	return nil
}

// DecompressBlock decodes block index of a into block, which must hold at
// least 4^d samples. Samples of a partial block beyond the array's edge hold
// padding.
func DecompressBlock[T Scalar](a *Array, index int, block []T) error {
	if err := a.Check(TypeOf[T](), len(a.shape)); err != nil {
		return err
	}
	if index < 0 || index >= a.grid.Count() {
		return fmt.Errorf("%w: block %d of %d", ErrShape, index, a.grid.Count())
	}
	if err := decodeBlockAt(a, index, block); err != nil {
		return fmt.Errorf("block %d: %w", index, err)
	}
	return nil
}

// Construct rebuilds an Array from its header and payload, as returned by
// Header and CompressedData.
func Construct(h Header, data []byte) (*Array, error) {
	return construct(h, data, nil)
}

func construct(h Header, data []byte, opts *Options) (*Array, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	grid := tile.NewGrid(h.Shape)
	dims := len(h.Shape)
	if limit := uint64(grid.Count()) * uint64(BlockBits(h.Type, dims, h.Params)); h.Bits > limit {
		return nil, fmt.Errorf("%w: payload of %d bits exceeds bound %d", ErrInvalidHeader, h.Bits, limit)
	}
	count := uint64(grid.Count())
	if n, ok := blockLength(h.Type, dims, h.Params); ok {
		if h.Bits != count*uint64(n) {
			return nil, fmt.Errorf("%w: %d bits for %d blocks of %d bits", ErrCorrupt, h.Bits, count, n)
		}
	} else if least := uint64(minBlockBits(h.Type, h.Params)); h.Bits < count*least {
		return nil, fmt.Errorf("%w: %d bits for %d blocks of at least %d bits", ErrCorrupt, h.Bits, count, least)
	}
	if uint64(len(data))*8 < h.Bits {
		return nil, fmt.Errorf("%w: payload has %d bytes, header needs %d bits", ErrCorrupt, len(data), h.Bits)
	}

	a := &Array{
		typ:     h.Type,
		shape:   append([]int(nil), h.Shape...),
		params:  h.Params,
		grid:    grid,
		words:   make([]uint64, bitstream.Words(h.Bits)),
		bits:    h.Bits,
		workers: opts.workers(),
		logger:  opts.logger(),
	}
	var buf [8]byte
	for i := range a.words {
		clear(buf[:])
		copy(buf[:], data[min(8*i, len(data)):])
		a.words[i] = binary.LittleEndian.Uint64(buf[:])
	}

	if err := a.index(); err != nil {
		return nil, err
	}
	return a, nil
}

// index rebuilds the block offsets. Equally long blocks need no table;
// otherwise every block is decoded once to measure it.
func (a *Array) index() error {
	if n, ok := blockLength(a.typ, len(a.shape), a.params); ok {
		a.offsets = nil
		a.blockLen = uint64(n)
		return nil
	}

	count := a.grid.Count()
	a.offsets = make([]uint64, count+1)
	var err error
	switch a.typ {
	case TypeInt32:
		err = scanOffsets[int32](a)
	case TypeInt64:
		err = scanOffsets[int64](a)
	case TypeFloat32:
		err = scanOffsets[float32](a)
	case TypeFloat64:
		err = scanOffsets[float64](a)
	}
	if err != nil {
		return err
	}
	if a.offsets[count] != a.bits {
		return fmt.Errorf("%w: blocks span %d bits, header has %d", ErrCorrupt, a.offsets[count], a.bits)
	}
	return nil
}

// scanOffsets measures every block by decoding it in order.
func scanOffsets[T Scalar](a *Array) error {
	var block [256]T
	n := a.grid.BlockSize()
	r := bitstream.NewReader(a.words)
	for i := 0; i < a.grid.Count(); i++ {
		a.offsets[i] = r.Position()
		if _, err := DecodeBlock(r, block[:n], len(a.shape), a.params); err != nil {
			return fmt.Errorf("%w: block %d: %w", ErrCorrupt, i, err)
		}
	}
	a.offsets[a.grid.Count()] = r.Position()
	return nil
}

// toCodestream converts a header to its serialized form.
func (h Header) toCodestream() *codestream.Header {
	ch := &codestream.Header{
		Type:    toHeaderType(h.Type),
		Dims:    uint8(len(h.Shape)),
		MinBits: uint32(h.Params.MinBits),
		MaxBits: uint32(h.Params.MaxBits),
		MaxPrec: uint8(h.Params.MaxPrec),
		MinExp:  int16(h.Params.MinExp),
		Bits:    h.Bits,
	}
	for axis, n := range h.Shape {
		ch.Shape[axis] = uint32(n)
	}
	return ch
}

// fromCodestream converts a serialized header.
func fromCodestream(ch *codestream.Header) Header {
	h := Header{
		Type:  fromHeaderType(ch.Type),
		Shape: make([]int, ch.Dims),
		Params: Params{
			MinBits: int(ch.MinBits),
			MaxBits: int(ch.MaxBits),
			MaxPrec: int(ch.MaxPrec),
			MinExp:  int(ch.MinExp),
		},
		Bits: ch.Bits,
	}
	for axis := range h.Shape {
		h.Shape[axis] = int(ch.Shape[axis])
	}
	return h
}

// WriteTo writes the header followed by the payload to w.
func (a *Array) WriteTo(w io.Writer) (int64, error) {
	ch := a.Header().toCodestream()
	if err := codestream.WriteHeader(w, ch); err != nil {
		return 0, fmt.Errorf("writing header: %w", err)
	}
	n, err := w.Write(a.CompressedData())
	if err != nil {
		return int64(ch.Size() + n), fmt.Errorf("writing payload: %w", err)
	}
	return int64(ch.Size() + n), nil
}

// ReadHeader reads only the header of an array written by WriteTo. Unless r
// is an io.ByteReader it may consume bytes past the header.
func ReadHeader(r io.Reader) (Header, error) {
	ch, err := codestream.ReadHeader(r)
	if err != nil {
		return Header{}, fmt.Errorf("reading header: %w", err)
	}
	h := fromCodestream(ch)
	if err := h.Validate(); err != nil {
		return Header{}, err
	}
	return h, nil
}

// ReadArray reads an array written by WriteTo. A nil opts uses the default
// worker count and discards log output.
func ReadArray(r io.Reader, opts *Options) (*Array, error) {
	br := bufio.NewReader(r)
	h, err := ReadHeader(br)
	if err != nil {
		return nil, err
	}
	grid := tile.NewGrid(h.Shape)
	if limit := uint64(grid.Count()) * uint64(BlockBits(h.Type, len(h.Shape), h.Params)); h.Bits > limit {
		return nil, fmt.Errorf("%w: payload of %d bits exceeds bound %d", ErrInvalidHeader, h.Bits, limit)
	}
	size := int64(8 * bitstream.Words(h.Bits))
	data, err := io.ReadAll(io.LimitReader(br, size))
	if err != nil {
		return nil, fmt.Errorf("reading payload: %w", err)
	}
	if int64(len(data)) < size {
		return nil, fmt.Errorf("reading payload: %w", io.ErrUnexpectedEOF)
	}
	return construct(h, data, opts)
}
