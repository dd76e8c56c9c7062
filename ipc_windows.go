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

//go:build windows

package nin

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/Microsoft/go-winio"
	"github.com/google/uuid"
	"golang.org/x/sys/windows"

	"github.com/maruel/depios/diaglog"
)

const winMaxMessageSize = 1024 * 256

// WindowsIpcTransport implements IpcTransport over a named pipe keyed off
// the current directory, using go-winio in place of raw CreateNamedPipe /
// CreateFile syscalls. Unlike the POSIX transport it does not pass stdio,
// and it does not attach the server to the client's console: a build runs
// with the server process's own stdio.
type WindowsIpcTransport struct {
	Logger diaglog.Logger

	listener   net.Listener
	pipeEvent  windows.Handle
	activeConn net.Conn
}

func (t *WindowsIpcTransport) log() diaglog.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return diaglog.NullLogger{}
}

func pipeName() string {
	cwd, _ := os.Getwd()
	const maxLen = 246
	if len(cwd) > maxLen {
		cwd = cwd[:maxLen]
	}
	cwd = strings.ReplaceAll(cwd, `\`, "/")
	return `\\.\pipe\` + cwd
}

func eventName() string {
	cwd, _ := os.Getwd()
	const maxPath = 260
	if len(cwd) > maxPath {
		cwd = cwd[:maxPath]
	}
	return strings.ReplaceAll(cwd, `\`, "/")
}

// Listen creates the named pipe and signals the companion event so a
// spawning client's WaitForSingleObject rendezvous unblocks.
func (t *WindowsIpcTransport) Listen() error {
	cfg := &winio.PipeConfig{
		MessageMode:      true,
		InputBufferSize:  winMaxMessageSize,
		OutputBufferSize: winMaxMessageSize,
	}
	l, err := winio.ListenPipe(pipeName(), cfg)
	if err != nil {
		return fmt.Errorf("ListenPipe: %w", err)
	}
	t.listener = l
	ev, err := windows.CreateEvent(nil, 1, 0, windows.StringToUTF16Ptr(eventName()))
	if err == nil {
		windows.SetEvent(ev)
		t.pipeEvent = ev
	}
	return nil
}

// Accept blocks for the next client connection and decodes its request:
// 4-byte client pid followed by the encodeBuildPayload fingerprint and argv.
func (t *WindowsIpcTransport) Accept() (*BuildRequest, error) {
	conn, err := t.listener.Accept()
	if err != nil {
		return nil, fmt.Errorf("accept: %w", ErrTransport)
	}
	buf := make([]byte, winMaxMessageSize)
	n, err := conn.Read(buf)
	if err != nil || n < 4 {
		conn.Close()
		return nil, fmt.Errorf("read request: %w", ErrTransport)
	}
	pid := int(int32(binary.LittleEndian.Uint32(buf[:4])))
	sessionID := uuid.New()
	t.log().Info("accepted build request pid=%d session=%s", pid, sessionID)
	t.activeConn = conn
	fingerprint, argv, err := decodeBuildPayload(buf[4:n])
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &BuildRequest{
		ClientPID:   pid,
		Fingerprint: fingerprint,
		Argv:        argv,
	}, nil
}

// Reply writes the 4-byte exit code back over the still-open pipe
// connection Accept created.
func (t *WindowsIpcTransport) Reply(req *BuildRequest, exitCode int) error {
	if t.activeConn == nil {
		return fmt.Errorf("reply with no active connection: %w", ErrTransport)
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(int32(exitCode)))
	_, err := t.activeConn.Write(b[:])
	return err
}

// Ready reports whether a server is listening on this transport's pipe, by
// attempting a short-timeout dial. There is no handle-based equivalent of
// stat()-ing a POSIX socket path for named pipes.
func (t *WindowsIpcTransport) Ready() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	conn, err := winio.DialPipeContext(ctx, pipeName())
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func (t *WindowsIpcTransport) Close() error {
	if t.pipeEvent != 0 {
		windows.CloseHandle(t.pipeEvent)
	}
	if t.listener != nil {
		return t.listener.Close()
	}
	return nil
}

// RequestBuild dials the pipe, sends the client pid, fingerprint and argv,
// and blocks for the 4-byte exit code. It does not start a server; a dial
// failure is returned as an error.
func (t *WindowsIpcTransport) RequestBuild(fingerprint []byte, argv []string) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	conn, err := winio.DialPipeContext(ctx, pipeName())
	if err != nil {
		return 0, fmt.Errorf("dial pipe: %w", ErrTransport)
	}
	defer conn.Close()

	pid := os.Getpid()
	body := encodeBuildPayload(fingerprint, argv)
	payload := make([]byte, 4+len(body))
	binary.LittleEndian.PutUint32(payload[:4], uint32(int32(pid)))
	copy(payload[4:], body)
	if _, err := conn.Write(payload); err != nil {
		return 0, fmt.Errorf("write request: %w", ErrTransport)
	}

	buf := make([]byte, 4)
	n, err := conn.Read(buf)
	if err != nil || n != 4 {
		return 0, fmt.Errorf("read exit code: %w", ErrTransport)
	}
	return int(int32(binary.LittleEndian.Uint32(buf))), nil
}
