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
	"fmt"
	"time"

	"github.com/maruel/depios/diaglog"
)

// BuildClient implements the client half of the build-request protocol:
// compute a StateFingerprint, request a build from whatever server is
// bound to the current directory (spawning one if none answers), and
// retry once if the server declines with ServerShutdownExitCode.
type BuildClient struct {
	Transport IpcTransport
	Logger    diaglog.Logger

	// StartServer spawns a detached server process bound to the current
	// directory and returns once it is ready to accept, or once a
	// reasonable timeout has elapsed.
	StartServer func() error

	// ServerGone polls whether the previous server's endpoint has been torn
	// down, so a restart does not race the old process's cleanup.
	ServerGone func() bool
}

func (c *BuildClient) log() diaglog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return diaglog.NullLogger{}
}

// Run sends one build request, restarting the server at most once if it
// reports ServerShutdownExitCode, and returns the final exit code.
func (c *BuildClient) Run(argv, env []string) (int, error) {
	fingerprint := StateFingerprint(argv, env)

	code, err := c.requestWithRetryStart(fingerprint, argv)
	if err != nil {
		return 0, err
	}
	if code != ServerShutdownExitCode {
		return code, nil
	}

	c.log().Info("server declined (state mismatch), restarting")
	c.waitForServerGone()
	if c.StartServer != nil {
		if err := c.StartServer(); err != nil {
			return 0, fmt.Errorf("restart server: %w", err)
		}
	}
	code, err = c.Transport.RequestBuild(fingerprint, argv)
	if err != nil {
		return 0, err
	}
	return code, nil
}

func (c *BuildClient) requestWithRetryStart(fingerprint []byte, argv []string) (int, error) {
	code, err := c.Transport.RequestBuild(fingerprint, argv)
	if err == nil {
		return code, nil
	}
	if c.StartServer == nil {
		return 0, err
	}
	c.log().Info("no server answered, starting one")
	if startErr := c.StartServer(); startErr != nil {
		return 0, fmt.Errorf("start server: %w", startErr)
	}
	return c.Transport.RequestBuild(fingerprint, argv)
}

func (c *BuildClient) waitForServerGone() {
	if c.ServerGone == nil {
		return
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if c.ServerGone() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
}
