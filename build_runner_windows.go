// Copyright 2012 Google Inc. All Rights Reserved.
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
	"fmt"
	"os"
	"os/exec"
)

// RunBuildCommand is the Windows BuildRunner. The server has no inherited
// stdio for this request (WindowsIpcTransport does not pass handles), so it
// runs argv with the server process's own stdio; nothing attaches it to the
// client's console.
func RunBuildCommand(stdin, stdout, stderr *os.File, argv []string) int {
	if len(argv) == 0 {
		fmt.Fprintln(os.Stderr, "depios: worker invoked with no command")
		return 1
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode()
		}
		fmt.Fprintf(os.Stderr, "depios: %v\n", err)
		return 1
	}
	return 0
}
