// Package bitstream provides word-granular bit I/O over caller-owned buffers.
//
// Bits are packed least-significant first into 64-bit words. Neither Reader nor
// Writer ever allocates or grows the buffer: an operation that would cross the
// buffer's capacity records a sticky ErrCapacity error instead, after which writes
// are dropped and reads return zero bits.
package bitstream

import (
	"errors"
	"fmt"
)

// WordBits is the number of bits in a buffer word.
const WordBits = 64

// ErrCapacity is recorded when a read or write would cross the buffer capacity.
var ErrCapacity = errors.New("bitstream: capacity exceeded")

// Words returns the number of words needed to hold n bits.
func Words(n uint64) int {
	return int((n + WordBits - 1) / WordBits)
}

// Writer appends bits to a fixed word buffer.
type Writer struct {
	words  []uint64
	buffer uint64 // Pending bits, LSB aligned
	bits   uint   // Number of pending bits (0-63)
	ptr    int    // Index of the next word to store
	err    error
}

// NewWriter creates a writer positioned at the start of words.
func NewWriter(words []uint64) *Writer {
	return &Writer{words: words}
}

// Capacity returns the buffer size in bits.
func (w *Writer) Capacity() uint64 {
	return uint64(len(w.words)) * WordBits
}

// Position returns the current bit offset.
func (w *Writer) Position() uint64 {
	return uint64(w.ptr)*WordBits + uint64(w.bits)
}

// Err returns the first capacity error, if any.
func (w *Writer) Err() error {
	return w.err
}

// reserve reports whether n more bits fit, recording an error when they do not.
func (w *Writer) reserve(n uint64) bool {
	if w.err != nil {
		return false
	}
	if pos := w.Position(); pos+n > w.Capacity() {
		w.err = fmt.Errorf("%w: write of %d bits at %d, capacity %d", ErrCapacity, n, pos, w.Capacity())
		return false
	}
	return true
}

// WriteBit writes the low bit of bit and returns it.
func (w *Writer) WriteBit(bit uint64) uint64 {
	bit &= 1
	if !w.reserve(1) {
		return bit
	}
	w.buffer |= bit << w.bits
	w.bits++
	if w.bits == WordBits {
		w.words[w.ptr] = w.buffer
		w.ptr++
		w.buffer = 0
		w.bits = 0
	}
	return bit
}

// WriteBits writes the low n bits of value (n <= 64) and returns value >> n.
func (w *Writer) WriteBits(value uint64, n uint) uint64 {
	if n == 0 || !w.reserve(uint64(n)) {
		return value >> n
	}
	w.buffer |= value << w.bits
	w.bits += n
	if w.bits >= WordBits {
		w.bits -= WordBits
		w.words[w.ptr] = w.buffer
		w.ptr++
		// The top w.bits bits of the n-bit field did not fit in the stored word.
		w.buffer = value >> (n - w.bits)
	}
	w.buffer &= (1 << w.bits) - 1
	return value >> n
}

// WriteUnary writes n zero bits followed by a one bit. The one bit is omitted
// when n == max, so a decoder reading at most max zeros recovers n.
func (w *Writer) WriteUnary(n, max uint) {
	if n > max {
		n = max
	}
	w.Pad(uint64(n))
	if n < max {
		w.WriteBit(1)
	}
}

// Pad writes n zero bits.
func (w *Writer) Pad(n uint64) {
	if !w.reserve(n) {
		return
	}
	for ; n >= WordBits; n -= WordBits {
		w.WriteBits(0, WordBits)
	}
	w.WriteBits(0, uint(n))
}

// Flush zero-pads the final partial word and stores it. It returns the number
// of padding bits written.
func (w *Writer) Flush() uint64 {
	if w.bits == 0 {
		return 0
	}
	n := uint64(WordBits - w.bits)
	w.Pad(n)
	return n
}

// Seek moves the write position to pos. Pending bits are stored first, and bits
// preceding pos in its word are kept.
func (w *Writer) Seek(pos uint64) {
	if pos > w.Capacity() {
		if w.err == nil {
			w.err = fmt.Errorf("%w: seek to %d, capacity %d", ErrCapacity, pos, w.Capacity())
		}
		return
	}
	if w.bits > 0 {
		mask := uint64(1)<<w.bits - 1
		w.words[w.ptr] = w.words[w.ptr]&^mask | w.buffer
	}
	w.ptr = int(pos / WordBits)
	w.bits = uint(pos % WordBits)
	w.buffer = 0
	if w.bits > 0 {
		w.buffer = w.words[w.ptr] & ((1 << w.bits) - 1)
	}
}

// Copy transfers n bits from src to w.
func (w *Writer) Copy(src *Reader, n uint64) {
	if !w.reserve(n) {
		return
	}
	for ; n >= WordBits; n -= WordBits {
		w.WriteBits(src.ReadBits(WordBits), WordBits)
	}
	w.WriteBits(src.ReadBits(uint(n)), uint(n))
}

// Reader consumes bits from a fixed word buffer.
type Reader struct {
	words  []uint64
	buffer uint64 // Unconsumed bits of the last fetched word
	bits   uint   // Number of unconsumed bits in buffer (0-63)
	ptr    int    // Index of the next word to fetch
	err    error
}

// NewReader creates a reader positioned at the start of words.
func NewReader(words []uint64) *Reader {
	return &Reader{words: words}
}

// Capacity returns the buffer size in bits.
func (r *Reader) Capacity() uint64 {
	return uint64(len(r.words)) * WordBits
}

// Position returns the current bit offset.
func (r *Reader) Position() uint64 {
	return uint64(r.ptr)*WordBits - uint64(r.bits)
}

// Err returns the first capacity error, if any.
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) reserve(n uint64) bool {
	if r.err != nil {
		return false
	}
	if pos := r.Position(); pos+n > r.Capacity() {
		r.err = fmt.Errorf("%w: read of %d bits at %d, capacity %d", ErrCapacity, n, pos, r.Capacity())
		return false
	}
	return true
}

// ReadBit reads a single bit.
func (r *Reader) ReadBit() uint64 {
	if !r.reserve(1) {
		return 0
	}
	if r.bits == 0 {
		r.buffer = r.words[r.ptr]
		r.ptr++
		r.bits = WordBits
	}
	r.bits--
	bit := r.buffer & 1
	r.buffer >>= 1
	return bit
}

// ReadBits reads n bits (n <= 64), first bit in the least significant position.
func (r *Reader) ReadBits(n uint) uint64 {
	if n == 0 || !r.reserve(uint64(n)) {
		return 0
	}
	value := r.buffer
	if r.bits < n {
		word := r.words[r.ptr]
		r.ptr++
		value |= word << r.bits
		// Bits of word beyond the field remain buffered.
		r.buffer = word >> (n - r.bits)
		r.bits += WordBits - n
	} else {
		r.buffer >>= n
		r.bits -= n
	}
	if r.bits == 0 {
		r.buffer = 0
	}
	if n < WordBits {
		value &= (1 << n) - 1
	}
	return value
}

// ReadUnary reads zero bits until a one bit or max zeros, returning the number
// of zeros read.
func (r *Reader) ReadUnary(max uint) uint {
	n := uint(0)
	for n < max && r.ReadBit() == 0 {
		if r.err != nil {
			break
		}
		n++
	}
	return n
}

// Skip advances the read position by n bits.
func (r *Reader) Skip(n uint64) {
	r.Seek(r.Position() + n)
}

// Seek moves the read position to pos.
func (r *Reader) Seek(pos uint64) {
	if pos > r.Capacity() {
		if r.err == nil {
			r.err = fmt.Errorf("%w: seek to %d, capacity %d", ErrCapacity, pos, r.Capacity())
		}
		return
	}
	r.ptr = int(pos / WordBits)
	n := uint(pos % WordBits)
	r.buffer = 0
	r.bits = 0
	if n > 0 {
		r.buffer = r.words[r.ptr] >> n
		r.ptr++
		r.bits = WordBits - n
	}
}
