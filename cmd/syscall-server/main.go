// Command syscall-server executes file system calls on behalf of one
// connected client.
//
// The transport is selected by the RPC_TRANSPORT environment variable or
// the --transport flag: a unix domain socket at /tmp/p3_tb (the default)
// or TCP on localhost:9999.
package main

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/catabozan/p3-syscall-server/server"
	"github.com/catabozan/p3-syscall-server/transport"
)

type options struct {
	transportName string
	logLevel      string
}

func main() {
	var opts options

	cmd := &cobra.Command{
		Use:           "syscall-server",
		Short:         "Execute file system calls on behalf of a remote client",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Flags(), &opts)
		},
	}
	cmd.Flags().StringVar(&opts.transportName, "transport", "", "transport to listen on: unix or tcp (default: $RPC_TRANSPORT)")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")

	if err := cmd.Execute(); err != nil {
		logrus.WithError(err).Error("server failed")
		os.Exit(1)
	}
}

func run(flags *pflag.FlagSet, opts *options) error {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	level, err := logrus.ParseLevel(opts.logLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)

	config := transport.FromEnv()
	if flags.Changed("transport") {
		config.Kind = transport.ParseKind(opts.transportName)
	}
	log.WithField("transport", config.Kind).Info("starting syscall server")

	srv := server.New(server.Config{Transport: config, Log: log})
	return srv.ListenAndServe(context.Background())
}
