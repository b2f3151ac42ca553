package syscalls

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Errno is a kernel error number.
//
// The value is the raw Linux errno captured on the machine that executed
// the system call; it travels the wire verbatim so that the calling program
// observes exactly what a local call would have produced.
type Errno uint32

const (
	// ESUCCESS indicates that no error occurred.
	ESUCCESS Errno = 0

	// ENOENT means no such file or directory.
	ENOENT = Errno(unix.ENOENT)

	// EIO means an input/output error; it is also what a caller observes
	// when an RPC exchange fails mid-flight.
	EIO = Errno(unix.EIO)

	// EBADF means bad file number; returned for client descriptors with
	// no server-side mapping.
	EBADF = Errno(unix.EBADF)

	// EINVAL means invalid argument.
	EINVAL = Errno(unix.EINVAL)

	// ENFILE means the descriptor table is full.
	ENFILE = Errno(unix.ENFILE)
)

// Error returns the description of the error number.
func (e Errno) Error() string {
	if e == ESUCCESS {
		return "success"
	}
	return unix.Errno(e).Error()
}

// Syscall converts the Errno to the matching syscall error value, or nil
// for ESUCCESS.
func (e Errno) Syscall() error {
	if e == ESUCCESS {
		return nil
	}
	return unix.Errno(e)
}

// MakeErrno converts an error returned by the x/sys layer into the raw
// kernel error number. It panics when the error does not carry one, which
// would indicate a call that bypassed the kernel entirely.
func MakeErrno(err error) Errno {
	if err == nil {
		return ESUCCESS
	}
	var sysErrno unix.Errno
	if errors.As(err, &sysErrno) {
		return Errno(sysErrno)
	}
	panic(fmt.Errorf("not a kernel error: %w", err))
}
