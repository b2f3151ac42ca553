package protocol

import (
	"fmt"

	"github.com/catabozan/p3-syscall-server"
	"github.com/catabozan/p3-syscall-server/protocol/xdr"
)

func encodeStat(e *xdr.Encoder, s *syscalls.FileStat) {
	e.Uint64(s.Dev)
	e.Uint64(s.Ino)
	e.Uint32(s.Mode)
	e.Uint64(s.Nlink)
	e.Uint32(s.UID)
	e.Uint32(s.GID)
	e.Uint64(s.Rdev)
	e.Int64(s.Size)
	e.Int64(s.Blksize)
	e.Int64(s.Blocks)
	e.Int64(s.Atime)
	e.Int64(s.Mtime)
	e.Int64(s.Ctime)
}

func decodeStat(d *xdr.Decoder, s *syscalls.FileStat) {
	s.Dev = d.Uint64()
	s.Ino = d.Uint64()
	s.Mode = d.Uint32()
	s.Nlink = d.Uint64()
	s.UID = d.Uint32()
	s.GID = d.Uint32()
	s.Rdev = d.Uint64()
	s.Size = d.Int64()
	s.Blksize = d.Int64()
	s.Blocks = d.Int64()
	s.Atime = d.Int64()
	s.Mtime = d.Int64()
	s.Ctime = d.Int64()
}

func encodeFcntlArg(e *xdr.Encoder, a *syscalls.FcntlArg) {
	e.Uint32(uint32(a.Kind))
	switch a.Kind {
	case syscalls.FcntlArgNone:
	case syscalls.FcntlArgInt:
		e.Int32(a.Int)
	case syscalls.FcntlArgFlock:
		e.Int32(a.Lock.Type)
		e.Int32(a.Lock.Whence)
		e.Int64(a.Lock.Start)
		e.Int64(a.Lock.Len)
		e.Int32(a.Lock.PID)
	}
}

func decodeFcntlArg(d *xdr.Decoder, a *syscalls.FcntlArg) error {
	*a = syscalls.FcntlArg{Kind: syscalls.FcntlArgKind(d.Uint32())}
	switch a.Kind {
	case syscalls.FcntlArgNone:
	case syscalls.FcntlArgInt:
		a.Int = d.Int32()
	case syscalls.FcntlArgFlock:
		a.Lock.Type = d.Int32()
		a.Lock.Whence = d.Int32()
		a.Lock.Start = d.Int64()
		a.Lock.Len = d.Int64()
		a.Lock.PID = d.Int32()
	default:
		return fmt.Errorf("protocol: invalid fcntl argument discriminator %d", a.Kind)
	}
	return d.Err()
}

type OpenRequest struct {
	Path  string
	Flags int32
	Mode  uint32
}

func (m *OpenRequest) Encode(e *xdr.Encoder) {
	e.String(m.Path)
	e.Int32(m.Flags)
	e.Uint32(m.Mode)
}

func (m *OpenRequest) Decode(d *xdr.Decoder) error {
	m.Path = d.String()
	m.Flags = d.Int32()
	m.Mode = d.Uint32()
	return d.Err()
}

// OpenResponse carries a client descriptor in Result on success.
type OpenResponse struct {
	Result int32
	Err    uint32
}

func (m *OpenResponse) Encode(e *xdr.Encoder) {
	e.Int32(m.Result)
	e.Uint32(m.Err)
}

func (m *OpenResponse) Decode(d *xdr.Decoder) error {
	m.Result = d.Int32()
	m.Err = d.Uint32()
	return d.Err()
}

type OpenatRequest struct {
	Dirfd int32
	Path  string
	Flags int32
	Mode  uint32
}

func (m *OpenatRequest) Encode(e *xdr.Encoder) {
	e.Int32(m.Dirfd)
	e.String(m.Path)
	e.Int32(m.Flags)
	e.Uint32(m.Mode)
}

func (m *OpenatRequest) Decode(d *xdr.Decoder) error {
	m.Dirfd = d.Int32()
	m.Path = d.String()
	m.Flags = d.Int32()
	m.Mode = d.Uint32()
	return d.Err()
}

type CloseRequest struct {
	FD int32
}

func (m *CloseRequest) Encode(e *xdr.Encoder) { e.Int32(m.FD) }

func (m *CloseRequest) Decode(d *xdr.Decoder) error {
	m.FD = d.Int32()
	return d.Err()
}

// Response is the plain (result, errno) pair returned by operations with
// no out-of-band payload: close, write, pwrite, fdatasync.
type Response struct {
	Result int64
	Err    uint32
}

func (m *Response) Encode(e *xdr.Encoder) {
	e.Int64(m.Result)
	e.Uint32(m.Err)
}

func (m *Response) Decode(d *xdr.Decoder) error {
	m.Result = d.Int64()
	m.Err = d.Uint32()
	return d.Err()
}

type ReadRequest struct {
	FD    int32
	Count uint32
}

func (m *ReadRequest) Encode(e *xdr.Encoder) {
	e.Int32(m.FD)
	e.Uint32(m.Count)
}

func (m *ReadRequest) Decode(d *xdr.Decoder) error {
	m.FD = d.Int32()
	m.Count = d.Uint32()
	return d.Err()
}

// ReadResponse carries the bytes read; len(Data) equals Result on success.
type ReadResponse struct {
	Result int64
	Err    uint32
	Data   []byte
}

func (m *ReadResponse) Encode(e *xdr.Encoder) {
	e.Int64(m.Result)
	e.Uint32(m.Err)
	e.Opaque(m.Data)
}

func (m *ReadResponse) Decode(d *xdr.Decoder) error {
	m.Result = d.Int64()
	m.Err = d.Uint32()
	m.Data = d.Opaque()
	return d.Err()
}

type PreadRequest struct {
	FD     int32
	Count  uint32
	Offset uint64
}

func (m *PreadRequest) Encode(e *xdr.Encoder) {
	e.Int32(m.FD)
	e.Uint32(m.Count)
	e.Uint64(m.Offset)
}

func (m *PreadRequest) Decode(d *xdr.Decoder) error {
	m.FD = d.Int32()
	m.Count = d.Uint32()
	m.Offset = d.Uint64()
	return d.Err()
}

type WriteRequest struct {
	FD   int32
	Data []byte
}

func (m *WriteRequest) Encode(e *xdr.Encoder) {
	e.Int32(m.FD)
	e.Opaque(m.Data)
}

func (m *WriteRequest) Decode(d *xdr.Decoder) error {
	m.FD = d.Int32()
	m.Data = d.Opaque()
	return d.Err()
}

type PwriteRequest struct {
	FD     int32
	Data   []byte
	Offset uint64
}

func (m *PwriteRequest) Encode(e *xdr.Encoder) {
	e.Int32(m.FD)
	e.Opaque(m.Data)
	e.Uint64(m.Offset)
}

func (m *PwriteRequest) Decode(d *xdr.Decoder) error {
	m.FD = d.Int32()
	m.Data = d.Opaque()
	m.Offset = d.Uint64()
	return d.Err()
}

type StatRequest struct {
	Path string
}

func (m *StatRequest) Encode(e *xdr.Encoder) { e.String(m.Path) }

func (m *StatRequest) Decode(d *xdr.Decoder) error {
	m.Path = d.String()
	return d.Err()
}

// StatResponse is shared by stat, fstat and fstatat. The Stat fields are
// all zero when Result is negative.
type StatResponse struct {
	Result int32
	Err    uint32
	Stat   syscalls.FileStat
}

func (m *StatResponse) Encode(e *xdr.Encoder) {
	e.Int32(m.Result)
	e.Uint32(m.Err)
	encodeStat(e, &m.Stat)
}

func (m *StatResponse) Decode(d *xdr.Decoder) error {
	m.Result = d.Int32()
	m.Err = d.Uint32()
	decodeStat(d, &m.Stat)
	return d.Err()
}

type FstatRequest struct {
	FD int32
}

func (m *FstatRequest) Encode(e *xdr.Encoder) { e.Int32(m.FD) }

func (m *FstatRequest) Decode(d *xdr.Decoder) error {
	m.FD = d.Int32()
	return d.Err()
}

type FstatatRequest struct {
	Dirfd int32
	Path  string
	Flags int32
}

func (m *FstatatRequest) Encode(e *xdr.Encoder) {
	e.Int32(m.Dirfd)
	e.String(m.Path)
	e.Int32(m.Flags)
}

func (m *FstatatRequest) Decode(d *xdr.Decoder) error {
	m.Dirfd = d.Int32()
	m.Path = d.String()
	m.Flags = d.Int32()
	return d.Err()
}

type FcntlRequest struct {
	FD  int32
	Cmd int32
	Arg syscalls.FcntlArg
}

func (m *FcntlRequest) Encode(e *xdr.Encoder) {
	e.Int32(m.FD)
	e.Int32(m.Cmd)
	encodeFcntlArg(e, &m.Arg)
}

func (m *FcntlRequest) Decode(d *xdr.Decoder) error {
	m.FD = d.Int32()
	m.Cmd = d.Int32()
	return decodeFcntlArg(d, &m.Arg)
}

// FcntlResponse returns the operation result plus, for F_GETLK, the lock
// description written by the kernel in ArgOut.
type FcntlResponse struct {
	Result int32
	Err    uint32
	ArgOut syscalls.FcntlArg
}

func (m *FcntlResponse) Encode(e *xdr.Encoder) {
	e.Int32(m.Result)
	e.Uint32(m.Err)
	encodeFcntlArg(e, &m.ArgOut)
}

func (m *FcntlResponse) Decode(d *xdr.Decoder) error {
	m.Result = d.Int32()
	m.Err = d.Uint32()
	return decodeFcntlArg(d, &m.ArgOut)
}

type FdatasyncRequest struct {
	FD int32
}

func (m *FdatasyncRequest) Encode(e *xdr.Encoder) { e.Int32(m.FD) }

func (m *FdatasyncRequest) Decode(d *xdr.Decoder) error {
	m.FD = d.Int32()
	return d.Err()
}
