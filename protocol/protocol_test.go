package protocol_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catabozan/p3-syscall-server"
	"github.com/catabozan/p3-syscall-server/protocol"
	"github.com/catabozan/p3-syscall-server/protocol/xdr"
)

func TestHeaders(t *testing.T) {
	var e xdr.Encoder
	call := protocol.CallHeader{XID: 3, Program: protocol.Program, Version: protocol.Version, Proc: protocol.ProcPread}
	call.Encode(&e)
	reply := protocol.ReplyHeader{XID: 3, Status: protocol.ProgMismatch}
	reply.Encode(&e)

	d := xdr.NewDecoder(e.Bytes())
	var gotCall protocol.CallHeader
	require.NoError(t, gotCall.Decode(d))
	assert.Equal(t, call, gotCall)
	var gotReply protocol.ReplyHeader
	require.NoError(t, gotReply.Decode(d))
	assert.Equal(t, reply, gotReply)
}

func TestRecordMarking(t *testing.T) {
	var stream bytes.Buffer
	require.NoError(t, protocol.WriteRecord(&stream, []byte("abc")))
	require.NoError(t, protocol.WriteRecord(&stream, []byte("defg")))

	rec, err := protocol.ReadRecord(&stream)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), rec)
	rec, err = protocol.ReadRecord(&stream)
	require.NoError(t, err)
	assert.Equal(t, []byte("defg"), rec)

	// A clean end of stream between records is io.EOF untouched.
	_, err = protocol.ReadRecord(&stream)
	assert.Equal(t, io.EOF, err)
}

func TestRecordMarkingTruncatedStream(t *testing.T) {
	var stream bytes.Buffer
	require.NoError(t, protocol.WriteRecord(&stream, []byte("abcdef")))

	truncated := bytes.NewReader(stream.Bytes()[:7])
	_, err := protocol.ReadRecord(truncated)
	require.Error(t, err)
	assert.NotEqual(t, io.EOF, err)
}

func TestRecordMarkingOversized(t *testing.T) {
	var stream bytes.Buffer
	stream.Write([]byte{0xff, 0xff, 0xff, 0xff})
	_, err := protocol.ReadRecord(&stream)
	require.Error(t, err)

	err = protocol.WriteRecord(io.Discard, make([]byte, protocol.MaxRecordSize+1))
	require.Error(t, err)
}

func TestFcntlArgVariants(t *testing.T) {
	for _, arg := range []syscalls.FcntlArg{
		{},
		syscalls.IntArg(10),
		syscalls.FlockArg(syscalls.Flock{Type: 1, Whence: 2, Start: 100, Len: 4096, PID: 1234}),
	} {
		var e xdr.Encoder
		req := protocol.FcntlRequest{FD: 5, Cmd: 42, Arg: arg}
		req.Encode(&e)

		var got protocol.FcntlRequest
		require.NoError(t, got.Decode(xdr.NewDecoder(e.Bytes())))
		assert.Equal(t, req, got)
	}
}

func TestFcntlArgBadDiscriminator(t *testing.T) {
	var e xdr.Encoder
	e.Int32(5)   // fd
	e.Int32(42)  // cmd
	e.Uint32(99) // no such argument kind

	var got protocol.FcntlRequest
	require.Error(t, got.Decode(xdr.NewDecoder(e.Bytes())))
}

func TestStatResponseRoundTrip(t *testing.T) {
	res := protocol.StatResponse{
		Stat: syscalls.FileStat{
			Dev: 2049, Ino: 131072, Mode: 0100644, Nlink: 1,
			UID: 1000, GID: 1000, Size: 56, Blksize: 4096, Blocks: 8,
			Atime: 1700000000, Mtime: 1700000001, Ctime: 1700000002,
		},
	}
	var e xdr.Encoder
	res.Encode(&e)

	var got protocol.StatResponse
	require.NoError(t, got.Decode(xdr.NewDecoder(e.Bytes())))
	assert.Equal(t, res, got)
}

func TestReadResponsePayload(t *testing.T) {
	res := protocol.ReadResponse{Result: 5, Data: []byte("hello")}
	var e xdr.Encoder
	res.Encode(&e)

	var got protocol.ReadResponse
	require.NoError(t, got.Decode(xdr.NewDecoder(e.Bytes())))
	assert.Equal(t, int64(5), got.Result)
	assert.Equal(t, []byte("hello"), got.Data)
}
