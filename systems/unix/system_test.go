package unix_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sysunix "golang.org/x/sys/unix"

	"github.com/catabozan/p3-syscall-server"
	"github.com/catabozan/p3-syscall-server/systems/unix"
)

func TestOpenWriteReadClose(t *testing.T) {
	ctx := context.Background()
	sys := &unix.System{}
	path := filepath.Join(t.TempDir(), "data")

	fd, errno := sys.Open(ctx, path, sysunix.O_CREAT|sysunix.O_WRONLY|sysunix.O_TRUNC, 0644)
	require.Equal(t, syscalls.ESUCCESS, errno)

	n, errno := sys.Write(ctx, fd, []byte("payload"))
	require.Equal(t, syscalls.ESUCCESS, errno)
	assert.Equal(t, syscalls.Size(7), n)

	require.Equal(t, syscalls.ESUCCESS, sys.Fdatasync(ctx, fd))
	require.Equal(t, syscalls.ESUCCESS, sys.Close(ctx, fd))

	fd, errno = sys.Open(ctx, path, sysunix.O_RDONLY, 0)
	require.Equal(t, syscalls.ESUCCESS, errno)
	defer sys.Close(ctx, fd)

	buf := make([]byte, 32)
	n, errno = sys.Read(ctx, fd, buf)
	require.Equal(t, syscalls.ESUCCESS, errno)
	assert.Equal(t, "payload", string(buf[:n]))
}

func TestOpenat(t *testing.T) {
	ctx := context.Background()
	sys := &unix.System{}
	dir := t.TempDir()

	dirFD, errno := sys.Open(ctx, dir, sysunix.O_RDONLY|sysunix.O_DIRECTORY, 0)
	require.Equal(t, syscalls.ESUCCESS, errno)
	defer sys.Close(ctx, dirFD)

	fd, errno := sys.Openat(ctx, dirFD, "data", sysunix.O_CREAT|sysunix.O_WRONLY, 0644)
	require.Equal(t, syscalls.ESUCCESS, errno)
	_, errno = sys.Write(ctx, fd, []byte("at"))
	require.Equal(t, syscalls.ESUCCESS, errno)
	require.Equal(t, syscalls.ESUCCESS, sys.Close(ctx, fd))

	st, errno := sys.Stat(ctx, filepath.Join(dir, "data"))
	require.Equal(t, syscalls.ESUCCESS, errno)
	assert.EqualValues(t, 2, st.Size)

	// AT_FDCWD resolves relative to the working directory.
	fd, errno = sys.Openat(ctx, syscalls.AT_FDCWD, filepath.Join(dir, "data"), sysunix.O_RDONLY, 0)
	require.Equal(t, syscalls.ESUCCESS, errno)
	require.Equal(t, syscalls.ESUCCESS, sys.Close(ctx, fd))

	_, errno = sys.Openat(ctx, dirFD, "missing", sysunix.O_RDONLY, 0)
	assert.Equal(t, syscalls.ENOENT, errno)
}

func TestPreadPwrite(t *testing.T) {
	ctx := context.Background()
	sys := &unix.System{}
	path := filepath.Join(t.TempDir(), "data")

	fd, errno := sys.Open(ctx, path, sysunix.O_CREAT|sysunix.O_RDWR, 0644)
	require.Equal(t, syscalls.ESUCCESS, errno)
	defer sys.Close(ctx, fd)

	_, errno = sys.Pwrite(ctx, fd, []byte("0123456789"), 0)
	require.Equal(t, syscalls.ESUCCESS, errno)
	_, errno = sys.Pwrite(ctx, fd, []byte("abc"), 4)
	require.Equal(t, syscalls.ESUCCESS, errno)

	buf := make([]byte, 5)
	n, errno := sys.Pread(ctx, fd, buf, 3)
	require.Equal(t, syscalls.ESUCCESS, errno)
	assert.Equal(t, "3abc7", string(buf[:n]))

	// The descriptor's offset is untouched by positional I/O.
	full := make([]byte, 16)
	n, errno = sys.Read(ctx, fd, full)
	require.Equal(t, syscalls.ESUCCESS, errno)
	assert.Equal(t, "0123abc789", string(full[:n]))
}

func TestStatFamily(t *testing.T) {
	ctx := context.Background()
	sys := &unix.System{}
	dir := t.TempDir()
	path := filepath.Join(dir, "data")

	fd, errno := sys.Open(ctx, path, sysunix.O_CREAT|sysunix.O_WRONLY, 0600)
	require.Equal(t, syscalls.ESUCCESS, errno)
	_, errno = sys.Write(ctx, fd, []byte("hello"))
	require.Equal(t, syscalls.ESUCCESS, errno)

	st, errno := sys.Stat(ctx, path)
	require.Equal(t, syscalls.ESUCCESS, errno)
	assert.True(t, st.IsRegular())
	assert.EqualValues(t, 5, st.Size)

	fst, errno := sys.Fstat(ctx, fd)
	require.Equal(t, syscalls.ESUCCESS, errno)
	assert.Equal(t, st.Ino, fst.Ino)
	require.Equal(t, syscalls.ESUCCESS, sys.Close(ctx, fd))

	// fstatat resolves relative to an open directory descriptor.
	dirFD, errno := sys.Open(ctx, dir, sysunix.O_RDONLY|sysunix.O_DIRECTORY, 0)
	require.Equal(t, syscalls.ESUCCESS, errno)
	defer sys.Close(ctx, dirFD)

	ast, errno := sys.Fstatat(ctx, dirFD, "data", 0)
	require.Equal(t, syscalls.ESUCCESS, errno)
	assert.Equal(t, st.Ino, ast.Ino)

	dst, errno := sys.Fstatat(ctx, dirFD, "", sysunix.AT_EMPTY_PATH)
	require.Equal(t, syscalls.ESUCCESS, errno)
	assert.True(t, dst.IsDir())

	_, errno = sys.Stat(ctx, filepath.Join(dir, "nonexistent_abcdef"))
	assert.Equal(t, syscalls.ENOENT, errno)
}

func TestFcntl(t *testing.T) {
	ctx := context.Background()
	sys := &unix.System{}
	path := filepath.Join(t.TempDir(), "data")

	fd, errno := sys.Open(ctx, path, sysunix.O_CREAT|sysunix.O_RDWR, 0644)
	require.Equal(t, syscalls.ESUCCESS, errno)
	defer sys.Close(ctx, fd)

	flags, _, errno := sys.Fcntl(ctx, fd, syscalls.F_GETFL, syscalls.FcntlArg{})
	require.Equal(t, syscalls.ESUCCESS, errno)
	assert.EqualValues(t, sysunix.O_RDWR, flags&sysunix.O_ACCMODE)

	dup, _, errno := sys.Fcntl(ctx, fd, syscalls.F_DUPFD, syscalls.IntArg(20))
	require.Equal(t, syscalls.ESUCCESS, errno)
	assert.GreaterOrEqual(t, dup, int32(20))
	require.Equal(t, syscalls.ESUCCESS, sys.Close(ctx, syscalls.FD(dup)))

	// An unlocked file reports F_UNLCK through F_GETLK.
	lock := syscalls.Flock{Type: sysunix.F_WRLCK, Whence: 0, Start: 0, Len: 10}
	_, out, errno := sys.Fcntl(ctx, fd, syscalls.F_GETLK, syscalls.FlockArg(lock))
	require.Equal(t, syscalls.ESUCCESS, errno)
	require.Equal(t, syscalls.FcntlArgFlock, out.Kind)
	assert.EqualValues(t, sysunix.F_UNLCK, out.Lock.Type)

	_, _, errno = sys.Fcntl(ctx, 99999, syscalls.F_GETFD, syscalls.FcntlArg{})
	assert.Equal(t, syscalls.EBADF, errno)
}

func TestMakeErrno(t *testing.T) {
	assert.Equal(t, syscalls.ESUCCESS, syscalls.MakeErrno(nil))
	assert.Equal(t, syscalls.ENOENT, syscalls.MakeErrno(sysunix.ENOENT))
	assert.Equal(t, "success", syscalls.ESUCCESS.Error())
	assert.NotEmpty(t, syscalls.EBADF.Error())
}
