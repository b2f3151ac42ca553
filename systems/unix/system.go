// Package unix provides a syscalls.System that executes every operation
// against the local kernel.
//
// It serves two roles: it is the executor behind the server's dispatch
// loop, and it is the fallback path taken by systems/remote when no server
// connection can be established. Descriptors are real kernel descriptors;
// translation between descriptor spaces is the server's concern, not this
// package's.
package unix

import (
	"context"

	"golang.org/x/sys/unix"

	"github.com/catabozan/p3-syscall-server"
)

// System executes system calls on the local kernel.
//
// The type is stateless; the zero value is ready to use and safe for
// concurrent use.
type System struct{}

var _ syscalls.System = (*System)(nil)

func (*System) Open(ctx context.Context, path string, flags int32, mode syscalls.FileMode) (syscalls.FD, syscalls.Errno) {
	fd, err := unix.Open(path, int(flags), uint32(mode))
	if err != nil {
		return -1, syscalls.MakeErrno(err)
	}
	return syscalls.FD(fd), syscalls.ESUCCESS
}

func (*System) Openat(ctx context.Context, dirfd syscalls.FD, path string, flags int32, mode syscalls.FileMode) (syscalls.FD, syscalls.Errno) {
	fd, err := unix.Openat(int(dirfd), path, int(flags), uint32(mode))
	if err != nil {
		return -1, syscalls.MakeErrno(err)
	}
	return syscalls.FD(fd), syscalls.ESUCCESS
}

func (*System) Close(ctx context.Context, fd syscalls.FD) syscalls.Errno {
	return syscalls.MakeErrno(unix.Close(int(fd)))
}

func (*System) Read(ctx context.Context, fd syscalls.FD, buf []byte) (syscalls.Size, syscalls.Errno) {
	n, err := unix.Read(int(fd), buf)
	if err != nil {
		return 0, syscalls.MakeErrno(err)
	}
	return syscalls.Size(n), syscalls.ESUCCESS
}

func (*System) Pread(ctx context.Context, fd syscalls.FD, buf []byte, offset syscalls.FileSize) (syscalls.Size, syscalls.Errno) {
	n, err := unix.Pread(int(fd), buf, int64(offset))
	if err != nil {
		return 0, syscalls.MakeErrno(err)
	}
	return syscalls.Size(n), syscalls.ESUCCESS
}

func (*System) Write(ctx context.Context, fd syscalls.FD, data []byte) (syscalls.Size, syscalls.Errno) {
	n, err := unix.Write(int(fd), data)
	if err != nil {
		return 0, syscalls.MakeErrno(err)
	}
	return syscalls.Size(n), syscalls.ESUCCESS
}

func (*System) Pwrite(ctx context.Context, fd syscalls.FD, data []byte, offset syscalls.FileSize) (syscalls.Size, syscalls.Errno) {
	n, err := unix.Pwrite(int(fd), data, int64(offset))
	if err != nil {
		return 0, syscalls.MakeErrno(err)
	}
	return syscalls.Size(n), syscalls.ESUCCESS
}

func (*System) Stat(ctx context.Context, path string) (syscalls.FileStat, syscalls.Errno) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return syscalls.FileStat{}, syscalls.MakeErrno(err)
	}
	return makeFileStat(&st), syscalls.ESUCCESS
}

func (*System) Fstat(ctx context.Context, fd syscalls.FD) (syscalls.FileStat, syscalls.Errno) {
	var st unix.Stat_t
	if err := unix.Fstat(int(fd), &st); err != nil {
		return syscalls.FileStat{}, syscalls.MakeErrno(err)
	}
	return makeFileStat(&st), syscalls.ESUCCESS
}

func (*System) Fstatat(ctx context.Context, dirfd syscalls.FD, path string, flags int32) (syscalls.FileStat, syscalls.Errno) {
	var st unix.Stat_t
	if err := unix.Fstatat(int(dirfd), path, &st, int(flags)); err != nil {
		return syscalls.FileStat{}, syscalls.MakeErrno(err)
	}
	return makeFileStat(&st), syscalls.ESUCCESS
}

func (*System) Fcntl(ctx context.Context, fd syscalls.FD, cmd syscalls.FcntlCmd, arg syscalls.FcntlArg) (int32, syscalls.FcntlArg, syscalls.Errno) {
	none := syscalls.FcntlArg{}
	switch arg.Kind {
	case syscalls.FcntlArgNone:
		r, err := unix.FcntlInt(uintptr(fd), int(cmd), 0)
		if err != nil {
			return -1, none, syscalls.MakeErrno(err)
		}
		return int32(r), none, syscalls.ESUCCESS

	case syscalls.FcntlArgInt:
		r, err := unix.FcntlInt(uintptr(fd), int(cmd), int(arg.Int))
		if err != nil {
			return -1, none, syscalls.MakeErrno(err)
		}
		return int32(r), none, syscalls.ESUCCESS

	case syscalls.FcntlArgFlock:
		fl := unix.Flock_t{
			Type:   int16(arg.Lock.Type),
			Whence: int16(arg.Lock.Whence),
			Start:  arg.Lock.Start,
			Len:    arg.Lock.Len,
			Pid:    arg.Lock.PID,
		}
		if err := unix.FcntlFlock(uintptr(fd), int(cmd), &fl); err != nil {
			return -1, none, syscalls.MakeErrno(err)
		}
		out := syscalls.FlockArg(syscalls.Flock{
			Type:   int32(fl.Type),
			Whence: int32(fl.Whence),
			Start:  fl.Start,
			Len:    fl.Len,
			PID:    fl.Pid,
		})
		return 0, out, syscalls.ESUCCESS

	default:
		return -1, none, syscalls.EINVAL
	}
}

func (*System) Fdatasync(ctx context.Context, fd syscalls.FD) syscalls.Errno {
	return syscalls.MakeErrno(unix.Fdatasync(int(fd)))
}

func makeFileStat(st *unix.Stat_t) syscalls.FileStat {
	return syscalls.FileStat{
		Dev:     uint64(st.Dev),
		Ino:     uint64(st.Ino),
		Mode:    uint32(st.Mode),
		Nlink:   uint64(st.Nlink),
		UID:     st.Uid,
		GID:     st.Gid,
		Rdev:    uint64(st.Rdev),
		Size:    st.Size,
		Blksize: int64(st.Blksize),
		Blocks:  st.Blocks,
		Atime:   int64(st.Atim.Sec),
		Mtime:   int64(st.Mtim.Sec),
		Ctime:   int64(st.Ctim.Sec),
	}
}
