// Package bigend provides a sequential big-endian cursor over a byte buffer.
//
// The reader is forward-only: decoders that need to address data relative to
// the buffer start record the cursor position before reading instead of
// seeking back.
package bigend

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrUnexpectedEOF is reported when fewer bytes remain than a read requests.
// Errors returned by Reader methods match it with errors.Is.
var ErrUnexpectedEOF = errors.New("unexpected end of input")

// TruncatedError records where a read ran past the end of the buffer.
type TruncatedError struct {
	Offset int // cursor position when the read was attempted
	Want   int // bytes requested
	Have   int // bytes remaining
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("unexpected end of input at offset %d: want %d bytes, have %d", e.Offset, e.Want, e.Have)
}

func (e *TruncatedError) Unwrap() error { return ErrUnexpectedEOF }

// Reader is a forward-only cursor over a byte buffer. All multi-byte reads
// are big-endian. The zero value is an empty reader.
type Reader struct {
	data []byte
	off  int
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Pos returns the current cursor position from the start of the buffer.
func (r *Reader) Pos() int { return r.off }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.off }

func (r *Reader) need(n int) error {
	if len(r.data)-r.off < n {
		return &TruncatedError{Offset: r.off, Want: n, Have: len(r.data) - r.off}
	}
	return nil
}

func (r *Reader) U8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.data[r.off]
	r.off++
	return b, nil
}

func (r *Reader) U16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v, nil
}

func (r *Reader) U32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v, nil
}

func (r *Reader) U64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(r.data[r.off:])
	r.off += 8
	return v, nil
}

func (r *Reader) S8() (int8, error) {
	v, err := r.U8()
	return int8(v), err
}

func (r *Reader) S16() (int16, error) {
	v, err := r.U16()
	return int16(v), err
}

func (r *Reader) S32() (int32, error) {
	v, err := r.U32()
	return int32(v), err
}

// Bytes returns the next n bytes as a sub-slice of the underlying buffer.
// Callers that retain the result beyond the life of the buffer must copy it.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative read length %d", n)
	}
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.data[r.off : r.off+n : r.off+n]
	r.off += n
	return b, nil
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int) error {
	if err := r.need(n); err != nil {
		return err
	}
	r.off += n
	return nil
}
