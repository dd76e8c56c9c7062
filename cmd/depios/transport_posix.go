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

package main

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	nin "github.com/maruel/depios"
	"github.com/maruel/depios/diaglog"
)

func newTransport(logger diaglog.Logger) nin.IpcTransport {
	return &nin.PosixIpcTransport{Logger: logger}
}

func configureWorker(s *nin.BuildServer) {
	s.LaunchWorker = nin.NewReexecWorkerLauncher()
}

// startServer re-execs the current binary with ServerModeEnv set, detaches
// it from this process, and returns once it is listening or a short
// deadline passes.
func startServer(argv []string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	cmd := exec.Command(exe, argv...)
	cmd.Env = append(os.Environ(), nin.ServerModeEnv+"=1")
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	if err := cmd.Process.Release(); err != nil {
		return err
	}
	probe := &nin.PosixIpcTransport{}
	deadline := time.Now().Add(5 * time.Second)
	for !probe.Ready() && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	return nil
}
