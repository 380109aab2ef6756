package stream

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// nullBuffer is the length written for a null byte array.
const nullBuffer = -1

var ErrTruncated = errors.New("truncated input")

// Reader reads big-endian primitives from an in-memory buffer
type Reader struct {
	data []byte
	off  int
}

// NewReader creates a reader positioned at the start of data
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Remaining returns the number of unread bytes
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

// Read returns exactly n bytes. The returned slice aliases the buffer.
func (r *Reader) Read(n int) ([]byte, error) {
	if n < 0 || n > r.Remaining() {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, n, r.Remaining())
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

// ReadUint32 reads a big-endian uint32
func (r *Reader) ReadUint32() (uint32, error) {
	b, err := r.Read(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// ReadInt32 reads a big-endian int32
func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

// ReadUint64 reads a big-endian uint64
func (r *Reader) ReadUint64() (uint64, error) {
	b, err := r.Read(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// ReadBuffer reads a length-prefixed byte array. A null array decodes as
// an empty slice.
func (r *Reader) ReadBuffer() ([]byte, error) {
	n, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	if n == nullBuffer {
		return []byte{}, nil
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: negative buffer length %d", ErrTruncated, n)
	}
	return r.Read(int(n))
}

// Writer appends big-endian primitives to a growing buffer
type Writer struct {
	buf []byte
}

// NewWriter creates a writer with room for sizeHint bytes
func NewWriter(sizeHint int) *Writer {
	return &Writer{buf: make([]byte, 0, sizeHint)}
}

// WriteUint32 appends a big-endian uint32
func (w *Writer) WriteUint32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

// WriteInt32 appends a big-endian int32
func (w *Writer) WriteInt32(v int32) {
	w.WriteUint32(uint32(v))
}

// WriteUint64 appends a big-endian uint64
func (w *Writer) WriteUint64(v uint64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, v)
}

// WriteRaw appends b without a length prefix
func (w *Writer) WriteRaw(b []byte) {
	w.buf = append(w.buf, b...)
}

// WriteBuffer appends b with a signed 32-bit length prefix
func (w *Writer) WriteBuffer(b []byte) {
	w.WriteInt32(int32(len(b)))
	w.buf = append(w.buf, b...)
}

// Bytes returns the written bytes
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of written bytes
func (w *Writer) Len() int {
	return len(w.buf)
}
