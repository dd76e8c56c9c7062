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

package nin

import (
	"encoding/binary"
	"fmt"
	"os"
)

// ServerShutdownExitCode is the reserved exit code a build server sends back
// when it declines to run a build because the client's StateFingerprint
// does not match its own: it is about to exit, and the client must restart
// it once by resending the request.
const ServerShutdownExitCode = 2

// ServerModeEnv, when set in a child's environment, tells the binary's
// entrypoint to run as a BuildServer (bind, accept, dispatch) instead of as
// a client, mirroring ReexecWorkerEnv's role for the per-request worker.
const ServerModeEnv = "DEPIOS_SERVER_MODE"

// ReexecWorkerEnv, when set in a child's environment, tells the binary's
// entrypoint to run as a worker instead of as a server or client: run the
// command given as its own command-line arguments once, with its inherited
// stdio, then exit with the build's exit code. Only POSIX launches a child with this
// set (see NewReexecWorkerLauncher); Windows servers run builds in-process
// via BuildRunner instead, but the entrypoint still checks this on both
// platforms so one main() serves either.
const ReexecWorkerEnv = "DEPIOS_WORKER_MODE"

// BuildRequest is what a client hands a server: the client's state
// fingerprint and the command-line it wants run, plus, on POSIX, its
// inherited stdio so the worker can print and read exactly as if it were
// the client itself. On Windows stdio is not transferred, and the build
// runs with the server process's own stdio.
type BuildRequest struct {
	ClientPID   int
	Fingerprint []byte
	Argv        []string
	Stdin       *os.File
	Stdout      *os.File
	Stderr      *os.File
}

// encodeBuildPayload packs fingerprint and argv into a single byte slice
// transport implementations can send as one datagram or stream write:
// a 4-byte fingerprint length, the fingerprint, then argv entries
// NUL-separated.
func encodeBuildPayload(fingerprint []byte, argv []string) []byte {
	var argvBuf []byte
	for i, a := range argv {
		if i > 0 {
			argvBuf = append(argvBuf, 0)
		}
		argvBuf = append(argvBuf, a...)
	}
	out := make([]byte, 4+len(fingerprint)+len(argvBuf))
	binary.LittleEndian.PutUint32(out[:4], uint32(len(fingerprint)))
	copy(out[4:], fingerprint)
	copy(out[4+len(fingerprint):], argvBuf)
	return out
}

// decodeBuildPayload is encodeBuildPayload's inverse.
func decodeBuildPayload(payload []byte) (fingerprint []byte, argv []string, err error) {
	if len(payload) < 4 {
		return nil, nil, fmt.Errorf("payload too short: %w", ErrTransport)
	}
	flen := int(binary.LittleEndian.Uint32(payload[:4]))
	if flen < 0 || 4+flen > len(payload) {
		return nil, nil, fmt.Errorf("invalid fingerprint length: %w", ErrTransport)
	}
	fingerprint = append([]byte(nil), payload[4:4+flen]...)
	rest := payload[4+flen:]
	if len(rest) > 0 {
		argv = splitNUL(rest)
	}
	return fingerprint, argv, nil
}

func splitNUL(b []byte) []string {
	var out []string
	start := 0
	for i, c := range b {
		if c == 0 {
			out = append(out, string(b[start:i]))
			start = i + 1
		}
	}
	out = append(out, string(b[start:]))
	return out
}

// IpcTransport is the platform-specific half of the build-server protocol:
// binding/accepting on the server side, connecting/sending on the client
// side. PosixIpcTransport and WindowsIpcTransport implement it.
type IpcTransport interface {
	// Listen binds the server's well-known endpoint. Call once per server
	// process.
	Listen() error

	// Accept blocks for the next client request.
	Accept() (*BuildRequest, error)

	// Reply sends exitCode back to the client that issued req.
	Reply(req *BuildRequest, exitCode int) error

	// Close releases the server endpoint.
	Close() error

	// RequestBuild acts as the client: connects to the server bound to the
	// current directory, sends fingerprint and argv, and blocks for the exit
	// code. It does not start a server; BuildClient does that when
	// RequestBuild fails.
	RequestBuild(fingerprint []byte, argv []string) (exitCode int, err error)
}
