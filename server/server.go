// Package server implements the syscall server: it accepts a single
// client connection, services its requests sequentially, and owns the real
// kernel descriptors behind the client's descriptor numbers.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/sirupsen/logrus"

	"github.com/catabozan/p3-syscall-server"
	"github.com/catabozan/p3-syscall-server/internal/descriptor"
	"github.com/catabozan/p3-syscall-server/protocol"
	"github.com/catabozan/p3-syscall-server/protocol/xdr"
	unixsystem "github.com/catabozan/p3-syscall-server/systems/unix"
	"github.com/catabozan/p3-syscall-server/transport"
)

// Config parameterizes a Server.
type Config struct {
	// Transport is the endpoint to listen on.
	Transport transport.Config

	// Log receives the server's diagnostics. Nil means the standard
	// logger.
	Log *logrus.Logger
}

// Server services the syscall protocol for one connected client.
//
// The server is single-threaded with respect to client requests: requests
// are decoded, executed and answered one at a time, which is also why the
// descriptor table needs no locking.
type Server struct {
	log     *logrus.Logger
	config  Config
	table   *descriptor.Table
	sys     syscalls.System
	scratch [protocol.MaxBufferSize]byte
}

// New returns a Server executing calls against the local kernel.
func New(config Config) *Server {
	log := config.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{
		log:    log,
		config: config,
		table:  descriptor.NewTable(),
		sys:    &unixsystem.System{},
	}
}

// ListenAndServe binds the configured endpoint, accepts exactly one
// client, closes the listener, and services the connection until the
// client disconnects.
//
// A bind, listen or accept failure is returned to the caller; a clean
// client disconnect returns nil.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := s.config.Transport.Listen()
	if err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{
		"transport": s.config.Transport.Kind,
		"address":   ln.Addr(),
	}).Info("listening")

	conn, err := ln.Accept()
	ln.Close()
	if err != nil {
		return fmt.Errorf("accept: %w", err)
	}
	s.log.WithField("client", conn.RemoteAddr()).Info("client connected")

	return s.ServeConn(ctx, conn)
}

// ServeConn services one connection until it ends. It returns nil when the
// client disconnects between requests and an error when the stream dies
// mid-record or carries an undecodable request; the connection is dropped
// either way.
func (s *Server) ServeConn(ctx context.Context, conn net.Conn) error {
	defer conn.Close()
	defer s.closeAll()

	var enc xdr.Encoder
	for {
		record, err := protocol.ReadRecord(conn)
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.log.Info("client disconnected")
				return nil
			}
			return fmt.Errorf("server: read request: %w", err)
		}

		d := xdr.NewDecoder(record)
		var call protocol.CallHeader
		if err := call.Decode(d); err != nil {
			return fmt.Errorf("server: decode call header: %w", err)
		}

		enc.Reset()
		if call.Program != protocol.Program || call.Version != protocol.Version {
			s.log.WithFields(logrus.Fields{
				"program": fmt.Sprintf("%#x", call.Program),
				"version": call.Version,
			}).Error("protocol identity mismatch")
			reply := protocol.ReplyHeader{XID: call.XID, Status: protocol.ProgMismatch}
			reply.Encode(&enc)
			protocol.WriteRecord(conn, enc.Bytes())
			return fmt.Errorf("server: program mismatch: %#x v%d", call.Program, call.Version)
		}

		err = s.dispatch(ctx, call, d, &enc)
		if err != nil && !errors.Is(err, errProcUnavailable) {
			return fmt.Errorf("server: proc %d: %w", call.Proc, err)
		}
		if werr := protocol.WriteRecord(conn, enc.Bytes()); werr != nil {
			return fmt.Errorf("server: write reply: %w", werr)
		}
		if err != nil {
			return fmt.Errorf("server: proc %d: %w", call.Proc, err)
		}
	}
}

// closeAll releases every kernel descriptor still mapped when the client
// goes away.
func (s *Server) closeAll() {
	ctx := context.Background()
	s.table.Range(func(clientFD, kernelFD int32) bool {
		s.sys.Close(ctx, syscalls.FD(kernelFD))
		return true
	})
}
