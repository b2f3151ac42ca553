// Package protocol defines the messages exchanged between the syscall
// client and server: a call/reply header pair carrying the protocol
// identity, and one request/response record per forwarded operation.
//
// Records travel over a stream transport with record marking: each message
// is preceded by its big-endian uint32 length. The serialization itself is
// implemented by protocol/xdr.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/catabozan/p3-syscall-server/protocol/xdr"
)

const (
	// Program identifies the syscall forwarding service. Both sides carry
	// it on every call; a mismatch is a handshake failure.
	Program uint32 = 0x20000199

	// Version is the protocol revision understood by this package.
	Version uint32 = 1
)

const (
	// MaxBufferSize caps the payload of a single read or pread. Requests
	// asking for more are silently truncated to this size by the server.
	MaxBufferSize = 8192

	// MaxRecordSize bounds a single wire record. Anything larger is a
	// codec error and drops the connection.
	MaxRecordSize = 1 << 20
)

// Procedure numbers. Zero is reserved, matching the null procedure of the
// RPC convention the protocol descends from.
const (
	ProcNull uint32 = iota
	ProcOpen
	ProcOpenat
	ProcClose
	ProcRead
	ProcPread
	ProcWrite
	ProcPwrite
	ProcStat
	ProcFstat
	ProcFstatat
	ProcFcntl
	ProcFdatasync
)

// ReplyStatus reports how the server disposed of a call.
type ReplyStatus uint32

const (
	// Accepted means the call was executed and the response body follows.
	Accepted ReplyStatus = iota

	// ProgMismatch means the call carried an unknown program or version.
	ProgMismatch

	// ProcUnavailable means the procedure number is not served.
	ProcUnavailable

	// GarbageArgs means the request body could not be decoded.
	GarbageArgs
)

func (s ReplyStatus) String() string {
	switch s {
	case Accepted:
		return "accepted"
	case ProgMismatch:
		return "program mismatch"
	case ProcUnavailable:
		return "procedure unavailable"
	case GarbageArgs:
		return "garbage arguments"
	default:
		return fmt.Sprintf("status(%d)", uint32(s))
	}
}

// Message is a record that knows its canonical serialization.
type Message interface {
	Encode(e *xdr.Encoder)
	Decode(d *xdr.Decoder) error
}

// CallHeader prefixes every request record.
type CallHeader struct {
	XID     uint32
	Program uint32
	Version uint32
	Proc    uint32
}

func (h *CallHeader) Encode(e *xdr.Encoder) {
	e.Uint32(h.XID)
	e.Uint32(h.Program)
	e.Uint32(h.Version)
	e.Uint32(h.Proc)
}

func (h *CallHeader) Decode(d *xdr.Decoder) error {
	h.XID = d.Uint32()
	h.Program = d.Uint32()
	h.Version = d.Uint32()
	h.Proc = d.Uint32()
	return d.Err()
}

// ReplyHeader prefixes every response record. The response body is only
// present when Status is Accepted.
type ReplyHeader struct {
	XID    uint32
	Status ReplyStatus
}

func (h *ReplyHeader) Encode(e *xdr.Encoder) {
	e.Uint32(h.XID)
	e.Uint32(uint32(h.Status))
}

func (h *ReplyHeader) Decode(d *xdr.Decoder) error {
	h.XID = d.Uint32()
	h.Status = ReplyStatus(d.Uint32())
	return d.Err()
}

var errRecordSize = errors.New("protocol: record exceeds maximum size")

// WriteRecord writes one length-prefixed record to the stream.
func WriteRecord(w io.Writer, record []byte) error {
	if len(record) > MaxRecordSize {
		return errRecordSize
	}
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(record)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("protocol: write record header: %w", err)
	}
	if _, err := w.Write(record); err != nil {
		return fmt.Errorf("protocol: write record: %w", err)
	}
	return nil
}

// ReadRecord reads one length-prefixed record from the stream. It returns
// io.EOF untouched when the stream ends cleanly between records.
func ReadRecord(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("protocol: read record header: %w", err)
	}
	n := binary.BigEndian.Uint32(header[:])
	if n == 0 || n > MaxRecordSize {
		return nil, errRecordSize
	}
	record := make([]byte, n)
	if _, err := io.ReadFull(r, record); err != nil {
		return nil, fmt.Errorf("protocol: read record: %w", err)
	}
	return record, nil
}
