// Copyright 2018 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

//go:build !windows

package nin

import (
	"encoding/binary"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/maruel/depios/diaglog"
)

const (
	posixServerSocketPath = "./.ninja-ipc-server"
	posixClientSocketPath = "./.ninja-ipc-client"
	posixMaxMessageSize   = 1024 * 100
)

// PosixIpcTransport implements IpcTransport over an AF_UNIX SOCK_DGRAM pair
// of well-known paths in the current directory, passing stdio across with
// SCM_RIGHTS ancillary data.
type PosixIpcTransport struct {
	Logger diaglog.Logger

	fd     int
	source unix.Sockaddr
}

func (t *PosixIpcTransport) log() diaglog.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return diaglog.NullLogger{}
}

// Listen binds the server socket and daemonizes the calling process: it
// detaches from the controlling terminal via setsid, matching
// ForkBuildServerInCwd's behavior after the fork. The caller is expected to
// already be running in a dedicated server process (cmd/depios's
// startServer re-execs the binary in server mode), so no fork happens here.
func (t *PosixIpcTransport) Listen() error {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_DGRAM, 0)
	if err != nil {
		return fmt.Errorf("socket: %w", err)
	}
	_ = os.Remove(posixServerSocketPath)
	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: posixServerSocketPath}); err != nil {
		unix.Close(fd)
		_ = os.Remove(posixServerSocketPath)
		return fmt.Errorf("bind: %w", err)
	}
	if _, err := unix.Setsid(); err != nil {
		// Already a session leader (e.g. under a test harness); not fatal.
		t.log().Info("setsid: %v", err)
	}
	t.fd = fd
	return nil
}

// Accept waits for and decodes the next client request, including the
// three inherited standard file descriptors carried over SCM_RIGHTS.
func (t *PosixIpcTransport) Accept() (*BuildRequest, error) {
	buf := make([]byte, posixMaxMessageSize)
	oob := make([]byte, unix.CmsgSpace(3*4))
	n, oobn, _, from, err := unix.Recvmsg(t.fd, buf, oob, 0)
	if err != nil {
		return nil, fmt.Errorf("recvmsg: %w", ErrTransport)
	}
	scms, err := unix.ParseSocketControlMessage(oob[:oobn])
	if err != nil || len(scms) == 0 {
		return nil, fmt.Errorf("parse control message: %w", ErrTransport)
	}
	fds, err := unix.ParseUnixRights(&scms[0])
	if err != nil || len(fds) != 3 {
		return nil, fmt.Errorf("expected 3 fds, got %d: %w", len(fds), ErrTransport)
	}
	t.source = from
	fingerprint, argv, err := decodeBuildPayload(buf[:n])
	if err != nil {
		return nil, err
	}
	return &BuildRequest{
		Fingerprint: fingerprint,
		Argv:        argv,
		Stdin:       os.NewFile(uintptr(fds[0]), "client-stdin"),
		Stdout:      os.NewFile(uintptr(fds[1]), "client-stdout"),
		Stderr:      os.NewFile(uintptr(fds[2]), "client-stderr"),
	}, nil
}

// Reply sends exitCode to the client that made req, using the source
// address Accept recorded for it. The upstream protocol sends the worker
// pid first and the exit status second over two sendto calls; callers that
// need the pid handshake should call SendPID before Reply.
func (t *PosixIpcTransport) Reply(req *BuildRequest, exitCode int) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(int32(exitCode)))
	return unix.Sendto(t.fd, b[:], 0, t.source)
}

// SendPID sends the worker's pid ahead of the eventual exit code, matching
// the two-message handshake ipc-posix.cc performs.
func (t *PosixIpcTransport) SendPID(pid int) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(int32(pid)))
	return unix.Sendto(t.fd, b[:], 0, t.source)
}

// Ready reports whether a server socket this transport would connect to
// already exists, letting a client poll for a just-started server (or for
// a prior one's teardown) without attempting a full RequestBuild.
func (t *PosixIpcTransport) Ready() bool {
	_, err := os.Stat(posixServerSocketPath)
	return err == nil
}

func (t *PosixIpcTransport) Close() error {
	if t.fd == 0 {
		return nil
	}
	err := unix.Close(t.fd)
	_ = os.Remove(posixServerSocketPath)
	return err
}

// RequestBuild connects to the server bound to the current directory,
// sends fingerprint plus this process's stdio, and blocks for the worker
// pid followed by its exit code, forwarding SIGINT/SIGTERM/SIGHUP to the
// worker while it waits. A server that declines the request sends only
// ServerShutdownExitCode, which is returned as is. It does not start a
// server; a connect failure is returned as an error.
func (t *PosixIpcTransport) RequestBuild(fingerprint []byte, argv []string) (int, error) {
	_ = os.Remove(posixClientSocketPath)
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_DGRAM, 0)
	if err != nil {
		return 0, fmt.Errorf("socket: %w", err)
	}
	defer func() {
		unix.Close(fd)
		_ = os.Remove(posixClientSocketPath)
	}()
	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: posixClientSocketPath}); err != nil {
		return 0, fmt.Errorf("bind: %w", err)
	}
	if err := unix.Connect(fd, &unix.SockaddrUnix{Name: posixServerSocketPath}); err != nil {
		return 0, fmt.Errorf("connect: %w", ErrTransport)
	}
	rights := unix.UnixRights(int(os.Stdin.Fd()), int(os.Stdout.Fd()), int(os.Stderr.Fd()))
	payload := encodeBuildPayload(fingerprint, argv)
	if err := unix.Sendmsg(fd, payload, rights, nil, 0); err != nil {
		return 0, fmt.Errorf("sendmsg: %w", ErrTransport)
	}

	var pidBuf [4]byte
	if n, _, err := unix.Recvfrom(fd, pidBuf[:], 0); err != nil || n != 4 {
		return 0, fmt.Errorf("recv worker pid: %w", ErrTransport)
	}
	workerPID := int(int32(binary.LittleEndian.Uint32(pidBuf[:])))
	if workerPID == ServerShutdownExitCode {
		// A declining server sends only the exit code, no worker pid.
		return ServerShutdownExitCode, nil
	}

	restore := forwardSignalsTo(workerPID)
	defer restore()

	var codeBuf [4]byte
	n, _, err := unix.Recvfrom(fd, codeBuf[:], 0)
	if err != nil || n != 4 {
		return 0, fmt.Errorf("recv exit code: %w", ErrTransport)
	}
	return int(int32(binary.LittleEndian.Uint32(codeBuf[:]))), nil
}

// forwardSignalsTo relays SIGINT/SIGTERM/SIGHUP to pid for as long as the
// client waits on the worker, so e.g. Ctrl-C on the client terminates the
// worker too. The returned func stops forwarding and must be called once
// the wait is over.
func forwardSignalsTo(pid int) (stop func()) {
	ch := make(chan os.Signal, 4)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-ch:
				s, ok := sig.(syscall.Signal)
				if !ok {
					continue
				}
				syscall.Kill(pid, s)
				_ = os.Remove(posixClientSocketPath)
				os.Exit(1)
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(ch)
		close(done)
	}
}
