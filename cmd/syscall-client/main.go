// Command syscall-client exercises a running syscall-server end to end:
// it performs a scripted sequence of file operations through the remote
// surface and checks that each result matches what a local call would
// have produced.
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/catabozan/p3-syscall-server"
	"github.com/catabozan/p3-syscall-server/systems/remote"
	"github.com/catabozan/p3-syscall-server/transport"
)

const testMessage = "Hello from intercepted syscalls! This is a test message."

type options struct {
	transportName string
	dir           string
}

func main() {
	var opts options

	cmd := &cobra.Command{
		Use:           "syscall-client",
		Short:         "Exercise a running syscall-server",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			config := transport.FromEnv()
			if cmd.Flags().Changed("transport") {
				config.Kind = transport.ParseKind(opts.transportName)
			}
			return run(config, opts.dir)
		},
	}
	cmd.Flags().StringVar(&opts.transportName, "transport", "", "transport to dial: unix or tcp (default: $RPC_TRANSPORT)")
	cmd.Flags().StringVar(&opts.dir, "dir", "/tmp", "directory the scenarios create files in")

	if err := cmd.Execute(); err != nil {
		logrus.WithError(err).Error("scenarios failed")
		os.Exit(1)
	}
}

func run(config transport.Config, dir string) error {
	ctx := context.Background()
	sys := &remote.System{Transport: config}
	defer sys.Shutdown()

	path := filepath.Join(dir, "t.txt")
	payload := []byte(testMessage)

	// Write/read round-trip.
	fd, errno := sys.Open(ctx, path, unix.O_CREAT|unix.O_WRONLY|unix.O_TRUNC, 0644)
	if errno != syscalls.ESUCCESS {
		return fmt.Errorf("open for write: %w", errno.Syscall())
	}
	if n, errno := sys.Write(ctx, fd, payload); errno != syscalls.ESUCCESS || int(n) != len(payload) {
		return fmt.Errorf("write: n=%d errno=%d", n, errno)
	}
	if errno := sys.Close(ctx, fd); errno != syscalls.ESUCCESS {
		return fmt.Errorf("close after write: %w", errno.Syscall())
	}

	fd, errno = sys.Open(ctx, path, unix.O_RDONLY, 0)
	if errno != syscalls.ESUCCESS {
		return fmt.Errorf("open for read: %w", errno.Syscall())
	}
	buf := make([]byte, 255)
	n, errno := sys.Read(ctx, fd, buf)
	if errno != syscalls.ESUCCESS {
		return fmt.Errorf("read: %w", errno.Syscall())
	}
	if int(n) != len(payload) || !bytes.Equal(buf[:n], payload) {
		return fmt.Errorf("read returned %d bytes, want %d matching bytes", n, len(payload))
	}

	// Stat on the file just written.
	st, errno := sys.Stat(ctx, path)
	if errno != syscalls.ESUCCESS {
		return fmt.Errorf("stat: %w", errno.Syscall())
	}
	if !st.IsRegular() || st.Size != int64(len(payload)) {
		return fmt.Errorf("stat: mode=%o size=%d, want regular file of %d bytes", st.Mode, st.Size, len(payload))
	}

	// Stat on a path that does not exist.
	if _, errno := sys.Stat(ctx, filepath.Join(dir, "nonexistent_abcdef")); errno != syscalls.ENOENT {
		return fmt.Errorf("stat absent: errno=%d, want ENOENT", errno)
	}

	// Fcntl on a descriptor the server never handed out.
	if _, _, errno := sys.Fcntl(ctx, 999, syscalls.F_GETFD, syscalls.FcntlArg{}); errno != syscalls.EBADF {
		return fmt.Errorf("fcntl invalid fd: errno=%d, want EBADF", errno)
	}

	// Duplicate with a minimum descriptor number.
	dup, _, errno := sys.Fcntl(ctx, fd, syscalls.F_DUPFD, syscalls.IntArg(10))
	if errno != syscalls.ESUCCESS || dup < 10 {
		return fmt.Errorf("dupfd: fd=%d errno=%d, want fd >= 10", dup, errno)
	}
	if errno := sys.Close(ctx, syscalls.FD(dup)); errno != syscalls.ESUCCESS {
		return fmt.Errorf("close dup: %w", errno.Syscall())
	}
	if _, errno := sys.Fstat(ctx, fd); errno != syscalls.ESUCCESS {
		return fmt.Errorf("fstat original after closing dup: %w", errno.Syscall())
	}
	if errno := sys.Close(ctx, fd); errno != syscalls.ESUCCESS {
		return fmt.Errorf("close: %w", errno.Syscall())
	}

	logrus.WithField("path", path).Info("all scenarios passed")
	return nil
}
