package syscalls

import "golang.org/x/sys/unix"

// FD is a file descriptor number.
//
// Inside systems/unix it is a real kernel descriptor. On the wire, and from
// the point of view of a program using systems/remote, it is a client
// descriptor allocated by the server; the two spaces never mix.
type FD int32

// Size is the number of bytes moved by a read or write.
type Size uint32

// FileSize is a file size or offset, in bytes.
type FileSize uint64

// FileMode is the permission mode passed to open when a file is created.
type FileMode uint32

// AT_FDCWD is the pseudo descriptor that makes the *at calls resolve their
// path relative to the current working directory.
const AT_FDCWD = FD(unix.AT_FDCWD)

// FileStat is the flat record of file attributes returned by the stat
// family. The zero value is what callers observe on failure.
type FileStat struct {
	Dev     uint64
	Ino     uint64
	Mode    uint32
	Nlink   uint64
	UID     uint32
	GID     uint32
	Rdev    uint64
	Size    int64
	Blksize int64
	Blocks  int64
	Atime   int64
	Mtime   int64
	Ctime   int64
}

// IsRegular reports whether the record describes a regular file.
func (s *FileStat) IsRegular() bool {
	return s.Mode&unix.S_IFMT == unix.S_IFREG
}

// IsDir reports whether the record describes a directory.
func (s *FileStat) IsDir() bool {
	return s.Mode&unix.S_IFMT == unix.S_IFDIR
}

// Flock describes an advisory record lock, as used by the F_GETLK, F_SETLK
// and F_SETLKW commands.
type Flock struct {
	Type   int32
	Whence int32
	Start  int64
	Len    int64
	PID    int32
}
