package syscalls

import "golang.org/x/sys/unix"

// FcntlCmd is a file control command.
type FcntlCmd int32

const (
	F_DUPFD         = FcntlCmd(unix.F_DUPFD)
	F_DUPFD_CLOEXEC = FcntlCmd(unix.F_DUPFD_CLOEXEC)
	F_GETFD         = FcntlCmd(unix.F_GETFD)
	F_SETFD         = FcntlCmd(unix.F_SETFD)
	F_GETFL         = FcntlCmd(unix.F_GETFL)
	F_SETFL         = FcntlCmd(unix.F_SETFL)
	F_GETOWN        = FcntlCmd(unix.F_GETOWN)
	F_SETOWN        = FcntlCmd(unix.F_SETOWN)
	F_GETLK         = FcntlCmd(unix.F_GETLK)
	F_SETLK         = FcntlCmd(unix.F_SETLK)
	F_SETLKW        = FcntlCmd(unix.F_SETLKW)
)

// FcntlArgKind discriminates the argument variant a fcntl command takes.
type FcntlArgKind uint32

const (
	// FcntlArgNone is for commands that take no argument.
	FcntlArgNone FcntlArgKind = iota

	// FcntlArgInt is for commands that take an integer argument.
	FcntlArgInt

	// FcntlArgFlock is for commands that take a struct flock argument.
	FcntlArgFlock
)

// FcntlArg is the tagged argument of a fcntl operation. Only the field
// selected by Kind is meaningful.
type FcntlArg struct {
	Kind FcntlArgKind
	Int  int32
	Lock Flock
}

// IntArg returns a FcntlArg carrying an integer argument.
func IntArg(v int32) FcntlArg {
	return FcntlArg{Kind: FcntlArgInt, Int: v}
}

// FlockArg returns a FcntlArg carrying a lock description.
func FlockArg(l Flock) FcntlArg {
	return FcntlArg{Kind: FcntlArgFlock, Lock: l}
}

// FcntlArgKindOf classifies a fcntl command by the argument variant it
// takes. Unknown commands classify as FcntlArgNone.
func FcntlArgKindOf(cmd FcntlCmd) FcntlArgKind {
	switch cmd {
	case F_DUPFD, F_DUPFD_CLOEXEC, F_SETFD, F_SETFL, F_SETOWN:
		return FcntlArgInt
	case F_GETLK, F_SETLK, F_SETLKW:
		return FcntlArgFlock
	default:
		return FcntlArgNone
	}
}
