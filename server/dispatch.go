package server

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/catabozan/p3-syscall-server"
	"github.com/catabozan/p3-syscall-server/protocol"
	"github.com/catabozan/p3-syscall-server/protocol/xdr"
)

// errProcUnavailable marks a call for an unserved procedure number. The
// reply still goes out so the client can tell what happened, then the
// connection is dropped like any other codec-level fault.
var errProcUnavailable = errors.New("procedure unavailable")

// dispatch decodes the request for one call, executes it, and encodes the
// complete reply record. A decode failure returns an error without
// encoding a reply: undecodable requests drop the connection.
func (s *Server) dispatch(ctx context.Context, call protocol.CallHeader, d *xdr.Decoder, enc *xdr.Encoder) error {
	reply := protocol.ReplyHeader{XID: call.XID, Status: protocol.Accepted}

	switch call.Proc {
	case protocol.ProcNull:
		reply.Encode(enc)
		return nil

	case protocol.ProcOpen:
		var req protocol.OpenRequest
		if err := req.Decode(d); err != nil {
			return err
		}
		reply.Encode(enc)
		res := s.open(ctx, &req)
		res.Encode(enc)
		return nil

	case protocol.ProcOpenat:
		var req protocol.OpenatRequest
		if err := req.Decode(d); err != nil {
			return err
		}
		reply.Encode(enc)
		res := s.openat(ctx, &req)
		res.Encode(enc)
		return nil

	case protocol.ProcClose:
		var req protocol.CloseRequest
		if err := req.Decode(d); err != nil {
			return err
		}
		reply.Encode(enc)
		res := s.close(ctx, &req)
		res.Encode(enc)
		return nil

	case protocol.ProcRead:
		var req protocol.ReadRequest
		if err := req.Decode(d); err != nil {
			return err
		}
		reply.Encode(enc)
		res := s.read(ctx, &req)
		res.Encode(enc)
		return nil

	case protocol.ProcPread:
		var req protocol.PreadRequest
		if err := req.Decode(d); err != nil {
			return err
		}
		reply.Encode(enc)
		res := s.pread(ctx, &req)
		res.Encode(enc)
		return nil

	case protocol.ProcWrite:
		var req protocol.WriteRequest
		if err := req.Decode(d); err != nil {
			return err
		}
		reply.Encode(enc)
		res := s.write(ctx, &req)
		res.Encode(enc)
		return nil

	case protocol.ProcPwrite:
		var req protocol.PwriteRequest
		if err := req.Decode(d); err != nil {
			return err
		}
		reply.Encode(enc)
		res := s.pwrite(ctx, &req)
		res.Encode(enc)
		return nil

	case protocol.ProcStat:
		var req protocol.StatRequest
		if err := req.Decode(d); err != nil {
			return err
		}
		reply.Encode(enc)
		res := s.stat(ctx, &req)
		res.Encode(enc)
		return nil

	case protocol.ProcFstat:
		var req protocol.FstatRequest
		if err := req.Decode(d); err != nil {
			return err
		}
		reply.Encode(enc)
		res := s.fstat(ctx, &req)
		res.Encode(enc)
		return nil

	case protocol.ProcFstatat:
		var req protocol.FstatatRequest
		if err := req.Decode(d); err != nil {
			return err
		}
		reply.Encode(enc)
		res := s.fstatat(ctx, &req)
		res.Encode(enc)
		return nil

	case protocol.ProcFcntl:
		var req protocol.FcntlRequest
		if err := req.Decode(d); err != nil {
			return err
		}
		reply.Encode(enc)
		res := s.fcntl(ctx, &req)
		res.Encode(enc)
		return nil

	case protocol.ProcFdatasync:
		var req protocol.FdatasyncRequest
		if err := req.Decode(d); err != nil {
			return err
		}
		reply.Encode(enc)
		res := s.fdatasync(ctx, &req)
		res.Encode(enc)
		return nil

	default:
		reply.Status = protocol.ProcUnavailable
		reply.Encode(enc)
		return errProcUnavailable
	}
}

func (s *Server) open(ctx context.Context, req *protocol.OpenRequest) protocol.OpenResponse {
	s.log.WithFields(logrus.Fields{
		"path": req.Path, "flags": req.Flags, "mode": req.Mode,
	}).Debug("open")

	kernelFD, errno := s.sys.Open(ctx, req.Path, req.Flags, syscalls.FileMode(req.Mode))
	return s.mapOpened(ctx, kernelFD, errno)
}

func (s *Server) openat(ctx context.Context, req *protocol.OpenatRequest) protocol.OpenResponse {
	s.log.WithFields(logrus.Fields{
		"dirfd": req.Dirfd, "path": req.Path, "flags": req.Flags, "mode": req.Mode,
	}).Debug("openat")

	dirfd, errno := s.translateDir(req.Dirfd)
	if errno != syscalls.ESUCCESS {
		return protocol.OpenResponse{Result: -1, Err: uint32(errno)}
	}
	kernelFD, errno := s.sys.Openat(ctx, dirfd, req.Path, req.Flags, syscalls.FileMode(req.Mode))
	return s.mapOpened(ctx, kernelFD, errno)
}

// mapOpened turns a freshly opened kernel descriptor into a client
// descriptor. A full table converts to ENFILE and closes the orphaned
// kernel descriptor; an open failure allocates nothing.
func (s *Server) mapOpened(ctx context.Context, kernelFD syscalls.FD, errno syscalls.Errno) protocol.OpenResponse {
	if errno != syscalls.ESUCCESS {
		return protocol.OpenResponse{Result: -1, Err: uint32(errno)}
	}
	clientFD, ok := s.table.Add(int32(kernelFD))
	if !ok {
		s.log.Error("descriptor table full")
		s.sys.Close(ctx, kernelFD)
		return protocol.OpenResponse{Result: -1, Err: uint32(syscalls.ENFILE)}
	}
	s.log.WithFields(logrus.Fields{
		"client_fd": clientFD, "kernel_fd": int32(kernelFD),
	}).Debug("descriptor mapped")
	return protocol.OpenResponse{Result: clientFD}
}

// translateDir maps a directory descriptor from client space, letting
// AT_FDCWD through untouched.
func (s *Server) translateDir(dirfd int32) (syscalls.FD, syscalls.Errno) {
	if syscalls.FD(dirfd) == syscalls.AT_FDCWD {
		return syscalls.AT_FDCWD, syscalls.ESUCCESS
	}
	kernelFD, ok := s.table.Translate(dirfd)
	if !ok {
		return -1, syscalls.EBADF
	}
	return syscalls.FD(kernelFD), syscalls.ESUCCESS
}

func (s *Server) close(ctx context.Context, req *protocol.CloseRequest) protocol.Response {
	s.log.WithField("client_fd", req.FD).Debug("close")

	kernelFD, ok := s.table.Translate(req.FD)
	if !ok {
		return protocol.Response{Result: -1, Err: uint32(syscalls.EBADF)}
	}
	errno := s.sys.Close(ctx, syscalls.FD(kernelFD))
	if errno != syscalls.ESUCCESS {
		// The mapping stays in place so the client may retry.
		return protocol.Response{Result: -1, Err: uint32(errno)}
	}
	s.table.Remove(req.FD)
	return protocol.Response{}
}

func (s *Server) read(ctx context.Context, req *protocol.ReadRequest) protocol.ReadResponse {
	s.log.WithFields(logrus.Fields{"client_fd": req.FD, "count": req.Count}).Debug("read")

	kernelFD, ok := s.table.Translate(req.FD)
	if !ok {
		return protocol.ReadResponse{Result: -1, Err: uint32(syscalls.EBADF)}
	}
	buf := s.scratch[:min(req.Count, protocol.MaxBufferSize)]
	n, errno := s.sys.Read(ctx, syscalls.FD(kernelFD), buf)
	if errno != syscalls.ESUCCESS {
		return protocol.ReadResponse{Result: -1, Err: uint32(errno)}
	}
	return protocol.ReadResponse{Result: int64(n), Data: buf[:n]}
}

func (s *Server) pread(ctx context.Context, req *protocol.PreadRequest) protocol.ReadResponse {
	s.log.WithFields(logrus.Fields{
		"client_fd": req.FD, "count": req.Count, "offset": req.Offset,
	}).Debug("pread")

	kernelFD, ok := s.table.Translate(req.FD)
	if !ok {
		return protocol.ReadResponse{Result: -1, Err: uint32(syscalls.EBADF)}
	}
	buf := s.scratch[:min(req.Count, protocol.MaxBufferSize)]
	n, errno := s.sys.Pread(ctx, syscalls.FD(kernelFD), buf, syscalls.FileSize(req.Offset))
	if errno != syscalls.ESUCCESS {
		return protocol.ReadResponse{Result: -1, Err: uint32(errno)}
	}
	return protocol.ReadResponse{Result: int64(n), Data: buf[:n]}
}

func (s *Server) write(ctx context.Context, req *protocol.WriteRequest) protocol.Response {
	s.log.WithFields(logrus.Fields{"client_fd": req.FD, "count": len(req.Data)}).Debug("write")

	kernelFD, ok := s.table.Translate(req.FD)
	if !ok {
		return protocol.Response{Result: -1, Err: uint32(syscalls.EBADF)}
	}
	n, errno := s.sys.Write(ctx, syscalls.FD(kernelFD), req.Data)
	if errno != syscalls.ESUCCESS {
		return protocol.Response{Result: -1, Err: uint32(errno)}
	}
	return protocol.Response{Result: int64(n)}
}

func (s *Server) pwrite(ctx context.Context, req *protocol.PwriteRequest) protocol.Response {
	s.log.WithFields(logrus.Fields{
		"client_fd": req.FD, "count": len(req.Data), "offset": req.Offset,
	}).Debug("pwrite")

	kernelFD, ok := s.table.Translate(req.FD)
	if !ok {
		return protocol.Response{Result: -1, Err: uint32(syscalls.EBADF)}
	}
	n, errno := s.sys.Pwrite(ctx, syscalls.FD(kernelFD), req.Data, syscalls.FileSize(req.Offset))
	if errno != syscalls.ESUCCESS {
		return protocol.Response{Result: -1, Err: uint32(errno)}
	}
	return protocol.Response{Result: int64(n)}
}

func (s *Server) stat(ctx context.Context, req *protocol.StatRequest) protocol.StatResponse {
	s.log.WithField("path", req.Path).Debug("stat")

	st, errno := s.sys.Stat(ctx, req.Path)
	if errno != syscalls.ESUCCESS {
		return protocol.StatResponse{Result: -1, Err: uint32(errno)}
	}
	return protocol.StatResponse{Stat: st}
}

func (s *Server) fstat(ctx context.Context, req *protocol.FstatRequest) protocol.StatResponse {
	s.log.WithField("client_fd", req.FD).Debug("fstat")

	kernelFD, ok := s.table.Translate(req.FD)
	if !ok {
		return protocol.StatResponse{Result: -1, Err: uint32(syscalls.EBADF)}
	}
	st, errno := s.sys.Fstat(ctx, syscalls.FD(kernelFD))
	if errno != syscalls.ESUCCESS {
		return protocol.StatResponse{Result: -1, Err: uint32(errno)}
	}
	return protocol.StatResponse{Stat: st}
}

func (s *Server) fstatat(ctx context.Context, req *protocol.FstatatRequest) protocol.StatResponse {
	s.log.WithFields(logrus.Fields{
		"dirfd": req.Dirfd, "path": req.Path, "flags": req.Flags,
	}).Debug("fstatat")

	dirfd, errno := s.translateDir(req.Dirfd)
	if errno != syscalls.ESUCCESS {
		return protocol.StatResponse{Result: -1, Err: uint32(errno)}
	}
	st, errno := s.sys.Fstatat(ctx, dirfd, req.Path, req.Flags)
	if errno != syscalls.ESUCCESS {
		return protocol.StatResponse{Result: -1, Err: uint32(errno)}
	}
	return protocol.StatResponse{Stat: st}
}

func (s *Server) fcntl(ctx context.Context, req *protocol.FcntlRequest) protocol.FcntlResponse {
	s.log.WithFields(logrus.Fields{"client_fd": req.FD, "cmd": req.Cmd}).Debug("fcntl")

	kernelFD, ok := s.table.Translate(req.FD)
	if !ok {
		return protocol.FcntlResponse{Result: -1, Err: uint32(syscalls.EBADF)}
	}

	cmd := syscalls.FcntlCmd(req.Cmd)
	result, argOut, errno := s.sys.Fcntl(ctx, syscalls.FD(kernelFD), cmd, req.Arg)
	if errno != syscalls.ESUCCESS {
		return protocol.FcntlResponse{Result: -1, Err: uint32(errno)}
	}

	switch cmd {
	case syscalls.F_DUPFD, syscalls.F_DUPFD_CLOEXEC:
		// The kernel handed back a new server-side descriptor; the dup
		// minimum applies in client descriptor space.
		clientFD, ok := s.table.AddFrom(result, req.Arg.Int)
		if !ok {
			s.log.Error("descriptor table full")
			s.sys.Close(ctx, syscalls.FD(result))
			return protocol.FcntlResponse{Result: -1, Err: uint32(syscalls.ENFILE)}
		}
		return protocol.FcntlResponse{Result: clientFD}

	case syscalls.F_GETLK:
		return protocol.FcntlResponse{Result: result, ArgOut: argOut}

	default:
		return protocol.FcntlResponse{Result: result}
	}
}

func (s *Server) fdatasync(ctx context.Context, req *protocol.FdatasyncRequest) protocol.Response {
	s.log.WithField("client_fd", req.FD).Debug("fdatasync")

	kernelFD, ok := s.table.Translate(req.FD)
	if !ok {
		return protocol.Response{Result: -1, Err: uint32(syscalls.EBADF)}
	}
	if errno := s.sys.Fdatasync(ctx, syscalls.FD(kernelFD)); errno != syscalls.ESUCCESS {
		return protocol.Response{Result: -1, Err: uint32(errno)}
	}
	return protocol.Response{}
}
