// Package xdr implements the canonical big-endian serialization used on
// the wire: fixed-width integers, and opaque byte sequences and strings
// length-prefixed and padded to 4-byte alignment.
package xdr

import (
	"encoding/binary"
	"errors"
)

// ErrTruncated is returned when a decoder runs past the end of its record.
var ErrTruncated = errors.New("xdr: truncated record")

// ErrLength is returned when a length prefix exceeds the remaining record.
var ErrLength = errors.New("xdr: length prefix out of range")

var padding [4]byte

// Encoder appends the canonical serialization of values to a buffer.
// The zero value is ready to use.
type Encoder struct {
	buf []byte
}

// Bytes returns the encoded record. The slice is only valid until the next
// append.
func (e *Encoder) Bytes() []byte { return e.buf }

// Reset discards the encoded record, retaining the buffer.
func (e *Encoder) Reset() { e.buf = e.buf[:0] }

func (e *Encoder) Uint32(v uint32) {
	e.buf = binary.BigEndian.AppendUint32(e.buf, v)
}

func (e *Encoder) Uint64(v uint64) {
	e.buf = binary.BigEndian.AppendUint64(e.buf, v)
}

func (e *Encoder) Int32(v int32) { e.Uint32(uint32(v)) }

func (e *Encoder) Int64(v int64) { e.Uint64(uint64(v)) }

// Opaque appends a length-prefixed opaque sequence, padded to 4 bytes.
func (e *Encoder) Opaque(v []byte) {
	e.Uint32(uint32(len(v)))
	e.buf = append(e.buf, v...)
	if pad := len(v) & 3; pad != 0 {
		e.buf = append(e.buf, padding[:4-pad]...)
	}
}

// String appends a length-prefixed string, padded to 4 bytes.
func (e *Encoder) String(v string) {
	e.Uint32(uint32(len(v)))
	e.buf = append(e.buf, v...)
	if pad := len(v) & 3; pad != 0 {
		e.buf = append(e.buf, padding[:4-pad]...)
	}
}

// Decoder reads values back out of a record. Errors are sticky: after the
// first failure every method returns the zero value and Err reports the
// cause, so call sites can decode a full record and check once.
type Decoder struct {
	buf []byte
	off int
	err error
}

// NewDecoder returns a Decoder reading from the given record.
func NewDecoder(record []byte) *Decoder {
	return &Decoder{buf: record}
}

// Err returns the first decoding error encountered, if any.
func (d *Decoder) Err() error { return d.err }

// Remaining returns the number of undecoded bytes.
func (d *Decoder) Remaining() int { return len(d.buf) - d.off }

func (d *Decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if d.off+n > len(d.buf) {
		d.err = ErrTruncated
		return nil
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}

func (d *Decoder) Uint32() uint32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (d *Decoder) Uint64() uint64 {
	b := d.take(8)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

func (d *Decoder) Int32() int32 { return int32(d.Uint32()) }

func (d *Decoder) Int64() int64 { return int64(d.Uint64()) }

// Opaque reads a length-prefixed opaque sequence and its padding. The
// returned slice aliases the record.
func (d *Decoder) Opaque() []byte {
	n := d.Uint32()
	if d.err != nil {
		return nil
	}
	if int(n) > d.Remaining() {
		d.err = ErrLength
		return nil
	}
	b := d.take(int(n))
	if pad := int(n) & 3; pad != 0 {
		d.take(4 - pad)
	}
	return b
}

// String reads a length-prefixed string and its padding.
func (d *Decoder) String() string {
	return string(d.Opaque())
}
