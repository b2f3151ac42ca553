// Package syscalls defines the surface through which programs perform
// file-related system calls without knowing whether they execute locally
// or on a remote server.
//
// The package declares the System interface; implementations live in the
// systems submodules. systems/unix executes every operation against the
// local kernel, systems/remote forwards each operation to a syscall server
// and reconstructs the kernel result in the calling goroutine.
package syscalls

import "context"

// System is the set of file system calls a program may perform.
//
// Every method is synchronous and returns the operation value along with an
// Errno. The Errno is ESUCCESS when the operation succeeded and the raw
// kernel error number otherwise; callers must not interpret the value when
// the Errno is non-zero.
//
// Implementations are not required to be safe for concurrent use unless
// documented otherwise.
type System interface {
	// Open opens a path relative to the current working directory.
	//
	// Mode is only meaningful when flags contain O_CREAT or O_TMPFILE;
	// callers pass zero otherwise.
	//
	// Note: This is similar to open(2) in POSIX.
	Open(ctx context.Context, path string, flags int32, mode FileMode) (FD, Errno)

	// Openat opens a path relative to the directory referenced by dirfd.
	// AT_FDCWD is accepted for dirfd.
	//
	// Note: This is similar to openat(2) in POSIX.
	Openat(ctx context.Context, dirfd FD, path string, flags int32, mode FileMode) (FD, Errno)

	// Close closes a file descriptor.
	//
	// Note: This is similar to close(2) in POSIX.
	Close(ctx context.Context, fd FD) Errno

	// Read reads from a file descriptor at its current offset.
	//
	// On success it returns the number of bytes placed into buf.
	//
	// Note: This is similar to read(2) in POSIX.
	Read(ctx context.Context, fd FD, buf []byte) (Size, Errno)

	// Pread reads from a file descriptor at the given offset, without
	// using or updating the descriptor's offset.
	//
	// Note: This is similar to pread(2) in POSIX.
	Pread(ctx context.Context, fd FD, buf []byte, offset FileSize) (Size, Errno)

	// Write writes to a file descriptor at its current offset.
	//
	// Note: This is similar to write(2) in POSIX.
	Write(ctx context.Context, fd FD, data []byte) (Size, Errno)

	// Pwrite writes to a file descriptor at the given offset, without
	// using or updating the descriptor's offset.
	//
	// Note: This is similar to pwrite(2) in POSIX.
	Pwrite(ctx context.Context, fd FD, data []byte, offset FileSize) (Size, Errno)

	// Stat returns the attributes of the file at path.
	//
	// Note: This is similar to stat(2) in POSIX.
	Stat(ctx context.Context, path string) (FileStat, Errno)

	// Fstat returns the attributes of an open file.
	//
	// Note: This is similar to fstat(2) in POSIX.
	Fstat(ctx context.Context, fd FD) (FileStat, Errno)

	// Fstatat returns the attributes of the file at path relative to the
	// directory referenced by dirfd, honoring AT_* flags.
	//
	// Note: This is similar to fstatat(2) in POSIX (newfstatat on Linux).
	Fstatat(ctx context.Context, dirfd FD, path string, flags int32) (FileStat, Errno)

	// Fcntl performs a file control operation. The argument variant must
	// match FcntlArgKindOf(cmd); for F_GETLK the returned FcntlArg carries
	// the lock description written by the kernel.
	//
	// Note: This is similar to fcntl(2) in POSIX.
	Fcntl(ctx context.Context, fd FD, cmd FcntlCmd, arg FcntlArg) (int32, FcntlArg, Errno)

	// Fdatasync flushes the data of a file to disk.
	//
	// Note: This is similar to fdatasync(2) in POSIX.
	Fdatasync(ctx context.Context, fd FD) Errno
}
