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

package main

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	nin "github.com/maruel/depios"
	"github.com/maruel/depios/diaglog"
)

// DETACHED_PROCESS: the new process has no console, so it does not inherit
// one from the client and is not killed if the client's console closes.
const detachedProcessFlag = 0x00000008

func newTransport(logger diaglog.Logger) nin.IpcTransport {
	return &nin.WindowsIpcTransport{Logger: logger}
}

func configureWorker(s *nin.BuildServer) {
	s.Run = nin.RunBuildCommand
}

// startServer re-execs the current binary with ServerModeEnv set as a
// detached background process; DETACHED_PROCESS keeps it off the client's
// console so it survives the client exiting.
func startServer(argv []string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	cmd := exec.Command(exe, argv...)
	cmd.Env = append(os.Environ(), nin.ServerModeEnv+"=1")
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: detachedProcessFlag}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	return cmd.Process.Release()
}
