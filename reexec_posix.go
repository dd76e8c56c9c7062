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
	"fmt"
	"os"
	"os/exec"
)

// NewReexecWorkerLauncher returns a WorkerLauncher that re-execs the
// running binary with ReexecWorkerEnv set, dup'ing req's inherited stdio
// onto the child's. This is the Go-idiomatic stand-in for the upstream
// tool's fork(): the Go runtime does not support continuing arbitrary
// goroutine-bearing code in a forked child of a multithreaded process, so
// the worker is a freshly exec'd process rather than a forked one.
func NewReexecWorkerLauncher() WorkerLauncher {
	return func(req *BuildRequest) (int, func() (int, error), error) {
		exe, err := os.Executable()
		if err != nil {
			return 0, nil, fmt.Errorf("locate executable: %w", err)
		}
		cmd := exec.Command(exe, req.Argv...)
		cmd.Env = append(os.Environ(), ReexecWorkerEnv+"=1")
		cmd.Stdin = req.Stdin
		cmd.Stdout = req.Stdout
		cmd.Stderr = req.Stderr
		if err := cmd.Start(); err != nil {
			return 0, nil, fmt.Errorf("start worker: %w", err)
		}
		wait := func() (int, error) {
			err := cmd.Wait()
			if err == nil {
				return 0, nil
			}
			if exitErr, ok := err.(*exec.ExitError); ok {
				return exitErr.ExitCode(), nil
			}
			return 0, err
		}
		return cmd.Process.Pid, wait, nil
	}
}
