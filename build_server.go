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
	"bytes"
	"fmt"
	"os"

	"github.com/maruel/depios/diaglog"
)

// BuildRunner performs one build, given the stdio the triggering client
// inherited (POSIX only; nil on Windows, where the build runs with the
// server process's own stdio) and argv. It returns the process exit code.
type BuildRunner func(stdin, stdout, stderr *os.File, argv []string) int

// WorkerLauncher starts a worker to handle req and returns its pid plus a
// function that blocks for its exit code. This models the POSIX fork: Go
// cannot continue running arbitrary code in a forked child of a
// multithreaded process, so the real implementation re-execs the running
// binary in a hidden worker mode instead of calling syscall.Fork (see
// NewReexecWorkerLauncher).
type WorkerLauncher func(req *BuildRequest) (pid int, wait func() (int, error), err error)

// BuildServer implements the server half of the build-request protocol:
// bind, accept one request at a time, validate its StateFingerprint against
// the one captured at boot, and dispatch to a worker.
type BuildServer struct {
	Transport    IpcTransport
	Fingerprint  []byte
	Logger       diaglog.Logger
	LaunchWorker WorkerLauncher // POSIX: fork-equivalent dispatch.
	Run          BuildRunner    // Windows: the server is the worker.
}

func (s *BuildServer) log() diaglog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return diaglog.NullLogger{}
}

// Serve binds the transport and processes requests until a fingerprint
// mismatch, a build that exits with ServerShutdownExitCode, or a transport
// or dispatch error ends the server. It returns nil after a clean shutdown
// (the client is expected to restart a fresh server with the new state)
// and a non-nil error on failure.
func (s *BuildServer) Serve() error {
	if err := s.Transport.Listen(); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer s.Transport.Close()

	for {
		req, err := s.Transport.Accept()
		if err != nil {
			return fmt.Errorf("accept: %w", err)
		}

		if !bytes.Equal(req.Fingerprint, s.Fingerprint) {
			s.log().Warning("client state does not match server state, shutting down")
			_ = s.Transport.Reply(req, ServerShutdownExitCode)
			return nil
		}

		exitCode, shutdown, err := s.dispatch(req)
		if err != nil {
			return fmt.Errorf("dispatch: %w", err)
		}
		if err := s.Transport.Reply(req, exitCode); err != nil {
			return fmt.Errorf("reply: %w", err)
		}
		if shutdown {
			return nil
		}
	}
}

func (s *BuildServer) dispatch(req *BuildRequest) (exitCode int, shutdown bool, err error) {
	if s.LaunchWorker != nil {
		pid, wait, err := s.LaunchWorker(req)
		if err != nil {
			return 0, false, err
		}
		if p, ok := s.Transport.(interface{ SendPID(int) error }); ok {
			if err := p.SendPID(pid); err != nil {
				return 0, false, fmt.Errorf("send worker pid: %w", err)
			}
		}
		code, err := wait()
		if err != nil {
			return 0, false, err
		}
		return code, code == ServerShutdownExitCode, nil
	}
	if s.Run != nil {
		code := s.Run(req.Stdin, req.Stdout, req.Stderr, req.Argv)
		return code, code == ServerShutdownExitCode, nil
	}
	return 0, false, fmt.Errorf("build server configured with neither LaunchWorker nor Run")
}
